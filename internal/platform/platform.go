// Package platform describes the window-system resources the pipeline drives
// and provides a headless implementation that records every call.
package platform

import (
	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
)

// Platform is the narrow surface the deferred stage talks to. Every method
// may fail; callers log failures and carry on.
type Platform interface {
	StartTimer(id change.TimerID, t change.Timer) error
	StopTimer(id change.TimerID) error
	ShowMenu(menu change.Menu, pos geom.Position) error
	SyncWindowState(state change.WindowState) error
	BeginInteractiveMove() error
	ShowTooltip(text string, pos geom.Position) error
	HideTooltip() error
	CreateWindow(opts change.WindowOptions) error
}

// Call is one recorded platform invocation.
type Call struct {
	Op     string `json:"op"`
	Detail string `json:"detail,omitempty"`
}

func (c Call) String() string {
	if c.Detail == "" {
		return c.Op
	}
	return c.Op + "(" + c.Detail + ")"
}
