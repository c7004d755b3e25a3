package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	var fired []string
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(1*time.Second, func() { fired = append(fired, "b") })

	c.Advance(2 * time.Second)
	require.Equal(t, []string{"a", "b"}, fired)
	require.Equal(t, start.Add(2*time.Second), c.Now())
	require.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	require.Equal(t, []string{"a", "b", "c"}, fired)
	require.Zero(t, c.Pending())
}

func TestManual_StopPreventsCallback(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	c.Advance(time.Minute)
	require.False(t, called)
}

func TestManual_CallbackCanScheduleWithinWindow(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	var fired []int
	c.AfterFunc(time.Second, func() {
		fired = append(fired, 1)
		c.AfterFunc(time.Second, func() { fired = append(fired, 2) })
	})

	c.Advance(5 * time.Second)
	require.Equal(t, []int{1, 2}, fired)
}
