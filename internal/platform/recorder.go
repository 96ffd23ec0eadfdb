package platform

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/changeflow/internal/change"
	"github.com/roach88/changeflow/internal/geom"
)

// ErrRefused is returned by a Recorder for operations told to fail.
var ErrRefused = errors.New("platform refused request")

// Recorder is a headless Platform. It keeps the resulting platform state
// (active timers, open tooltip, synced window) and a log of every call.
type Recorder struct {
	calls      []Call
	drained    int
	timers     map[change.TimerID]change.Timer
	failTimers map[change.TimerID]bool
	failOps    map[string]bool

	Window     change.WindowState
	Synced     bool
	Tooltip    string
	TooltipOn  bool
	Menus      []change.Menu
	Windows    []change.WindowOptions
	MoveActive bool
}

var _ Platform = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		timers:     make(map[change.TimerID]change.Timer),
		failTimers: make(map[change.TimerID]bool),
		failOps:    make(map[string]bool),
	}
}

// FailTimer makes StartTimer refuse id.
func (r *Recorder) FailTimer(id change.TimerID) { r.failTimers[id] = true }

// FailOp makes every call to op (e.g. "ShowMenu") refuse.
func (r *Recorder) FailOp(op string) { r.failOps[op] = true }

func (r *Recorder) record(op, detail string) error {
	r.calls = append(r.calls, Call{Op: op, Detail: detail})
	if r.failOps[op] {
		return fmt.Errorf("%s: %w", op, ErrRefused)
	}
	return nil
}

func timerDetail(id change.TimerID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (r *Recorder) StartTimer(id change.TimerID, t change.Timer) error {
	if err := r.record("StartTimer", timerDetail(id)); err != nil {
		return err
	}
	if r.failTimers[id] {
		return fmt.Errorf("StartTimer %d: %w", id, ErrRefused)
	}
	r.timers[id] = t
	return nil
}

func (r *Recorder) StopTimer(id change.TimerID) error {
	if err := r.record("StopTimer", timerDetail(id)); err != nil {
		return err
	}
	delete(r.timers, id)
	return nil
}

func (r *Recorder) ShowMenu(menu change.Menu, pos geom.Position) error {
	if err := r.record("ShowMenu", pos.String()); err != nil {
		return err
	}
	menu.Position = pos
	r.Menus = append(r.Menus, menu)
	return nil
}

func (r *Recorder) SyncWindowState(state change.WindowState) error {
	if err := r.record("SyncWindowState", state.Title); err != nil {
		return err
	}
	r.Window = state
	r.Synced = true
	return nil
}

func (r *Recorder) BeginInteractiveMove() error {
	if err := r.record("BeginInteractiveMove", ""); err != nil {
		return err
	}
	r.MoveActive = true
	return nil
}

func (r *Recorder) ShowTooltip(text string, pos geom.Position) error {
	if err := r.record("ShowTooltip", text); err != nil {
		return err
	}
	r.Tooltip = text
	r.TooltipOn = true
	return nil
}

func (r *Recorder) HideTooltip() error {
	if err := r.record("HideTooltip", ""); err != nil {
		return err
	}
	r.TooltipOn = false
	return nil
}

func (r *Recorder) CreateWindow(opts change.WindowOptions) error {
	if err := r.record("CreateWindow", opts.Title); err != nil {
		return err
	}
	r.Windows = append(r.Windows, opts)
	return nil
}

// Calls returns every call recorded so far.
func (r *Recorder) Calls() []Call {
	return slices.Clone(r.calls)
}

// Drain returns the calls recorded since the previous Drain.
func (r *Recorder) Drain() []Call {
	out := slices.Clone(r.calls[r.drained:])
	r.drained = len(r.calls)
	return out
}

// ActiveTimers returns the ids of timers currently running on the platform,
// in ascending order.
func (r *Recorder) ActiveTimers() []change.TimerID {
	ids := make([]change.TimerID, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// HasTimer reports whether id is running on the platform.
func (r *Recorder) HasTimer(id change.TimerID) bool {
	_, ok := r.timers[id]
	return ok
}
