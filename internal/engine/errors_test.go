package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/changeflow/internal/change"
)

func TestRuntimeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RuntimeError
		want string
	}{
		{
			name: "with tag",
			err:  NewMissingRuleError("immediate", "InsertText", 4),
			want: "MISSING_RULE: immediate table has no entry (tag=InsertText, seq=4)",
		},
		{
			name: "without tag",
			err:  &RuntimeError{Code: ErrCodeQuotaExceeded, Message: "too many", Seq: 2},
			want: "QUOTA_EXCEEDED: too many (seq=2)",
		},
		{
			name: "quota",
			err:  NewQuotaError("QueueWindowStateSequence", 5, 4, 1),
			want: "QUOTA_EXCEEDED: 5 steps exceed limit 4 (tag=QueueWindowStateSequence, seq=1)",
		},
		{
			name: "unresolved target",
			err:  newUnresolvedTargetError("SetFocusTarget", change.FocusTarget{Kind: change.FocusNode, Node: change.Ref(0, 3)}),
			want: "UNRESOLVED_TARGET: focus target node(0/3) resolves to nothing (tag=SetFocusTarget, seq=0)",
		},
		{
			name: "reserved",
			err:  newReservedIDError("AddTimer", 0xffff0001),
			want: "RESERVED_ID: timer id 0xffff0001 is reserved (tag=AddTimer, seq=0)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	missing := fmt.Errorf("wrap: %w", NewMissingRuleError("deferred", "X", 1))
	quota := NewQuotaError("X", 2, 1, 1)
	plat := fmt.Errorf("start timer 7: %w", &PlatformError{Op: "StartTimer", Err: errors.New("denied")})

	assert.True(t, IsMissingRuleError(missing))
	assert.False(t, IsMissingRuleError(quota))
	assert.True(t, IsQuotaError(quota))
	assert.False(t, IsQuotaError(missing))
	assert.True(t, IsPlatformError(plat))
	assert.False(t, IsPlatformError(missing))
	assert.False(t, IsMissingRuleError(nil))
}

func TestPlatformError_Unwrap(t *testing.T) {
	cause := errors.New("denied")
	err := &PlatformError{Op: "ShowMenu", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "PLATFORM_REFUSED: platform ShowMenu failed: denied", err.Error())
}
