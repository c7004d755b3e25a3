package navigation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/thread"
)

func newController(t *testing.T) (*clock.Manual, *Controller, *[]Snapshot) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC))
	var seen []Snapshot
	c := New(Options{
		Clock:             clk,
		HighlightDuration: 2 * time.Second,
		JumpBackTTL:       5 * time.Second,
		OnChange:          func(s Snapshot) { seen = append(seen, s) },
	})
	return clk, c, &seen
}

func TestController_FocusThenJumpBack(t *testing.T) {
	_, c, _ := newController(t)

	snap := c.Focus(thread.Position{MessageID: "m1", Row: 3}, 120)
	require.Equal(t, Snapshot{
		State: StateFocusing, TargetID: "m1", Offset: 3, SavedOffset: 120, Highlighted: true, CanJumpBack: true,
	}, snap)

	offset, ok := c.JumpBack()
	require.True(t, ok)
	require.Equal(t, 120, offset)
	require.Equal(t, StateIdle, c.Snapshot().State)
	require.False(t, c.Snapshot().Highlighted)

	_, ok = c.JumpBack()
	require.False(t, ok)
}

func TestController_HighlightClearsThenJumpBackExpires(t *testing.T) {
	clk, c, seen := newController(t)
	c.Focus(thread.Position{MessageID: "m1", Row: 3}, 40)

	clk.Advance(2 * time.Second)
	snap := c.Snapshot()
	require.False(t, snap.Highlighted)
	require.Equal(t, StateFocusing, snap.State)
	require.True(t, snap.CanJumpBack)

	clk.Advance(3 * time.Second)
	require.Equal(t, StateIdle, c.Snapshot().State)
	_, ok := c.JumpBack()
	require.False(t, ok)
	require.Len(t, *seen, 3)
	require.Zero(t, clk.Pending())
}

func TestController_SecondFocusReplacesSavedOffset(t *testing.T) {
	clk, c, _ := newController(t)
	c.Focus(thread.Position{MessageID: "m1", Row: 3}, 100)
	clk.Advance(4 * time.Second)
	c.Focus(thread.Position{MessageID: "m2", Row: 9}, 3)

	// The first focus' timers are gone; the second has its full window.
	clk.Advance(4 * time.Second)
	require.True(t, c.Snapshot().CanJumpBack)
	require.Equal(t, "m2", c.Snapshot().TargetID)

	offset, ok := c.JumpBack()
	require.True(t, ok)
	require.Equal(t, 3, offset)
}

func TestController_ResetIgnoresLateTimers(t *testing.T) {
	clk, c, seen := newController(t)
	c.Focus(thread.Position{MessageID: "m1", Row: 3}, 10)
	c.Reset()

	clk.Advance(10 * time.Second)
	require.Equal(t, Snapshot{State: StateIdle}, c.Snapshot())
	require.Len(t, *seen, 1)
}
