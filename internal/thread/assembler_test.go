package thread

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/clock"
	"github.com/adi-253/Talkie/chatcore/internal/models"
)

var now = time.Date(2026, 2, 9, 15, 30, 0, 0, time.UTC)

func msg(id string, at time.Time) models.Message {
	return models.Message{ID: id, Direction: models.DirectionReceived, CreatedAt: at}
}

func ids(g Group) []string {
	out := make([]string, 0, len(g.Messages))
	for _, e := range g.Messages {
		out = append(out, e.ID)
	}
	return out
}

func TestAssemble_TwoDaysOutOfOrder(t *testing.T) {
	a := NewAssembler(time.UTC, clock.NewManual(now))
	day1 := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 4, 9, 0, 0, 0, time.UTC)

	plan := a.Assemble([]models.Message{
		msg("d2", day2),
		msg("d1-late", day1.Add(3*time.Hour)),
		msg("d1-early", day1),
	})

	require.Len(t, plan.Groups, 2)
	require.Equal(t, "2026-02-03", plan.Groups[0].Key)
	require.Equal(t, []string{"d1-early", "d1-late"}, ids(plan.Groups[0]))
	require.Equal(t, []string{"d2"}, ids(plan.Groups[1]))
	require.Equal(t, "Tuesday, February 3, 2026", plan.Groups[0].Label)
	require.Equal(t, "10:00", plan.Groups[0].Messages[0].DisplayTime)
}

func TestAssemble_EmptyInput(t *testing.T) {
	plan := NewAssembler(nil, nil).Assemble(nil)
	require.True(t, plan.Empty())
	require.Zero(t, plan.Rows())
}

func TestAssemble_StableForEqualTimestamps(t *testing.T) {
	a := NewAssembler(time.UTC, clock.NewManual(now))
	at := now.Add(-time.Hour)
	plan := a.Assemble([]models.Message{msg("x", at), msg("a", at), msg("m", at)})

	require.Len(t, plan.Groups, 1)
	require.Equal(t, []string{"x", "a", "m"}, ids(plan.Groups[0]))
}

func TestAssemble_TodayYesterdayLabels(t *testing.T) {
	a := NewAssembler(time.UTC, clock.NewManual(now))
	plan := a.Assemble([]models.Message{
		msg("today", now.Add(-time.Hour)),
		msg("yesterday", now.Add(-24*time.Hour)),
		msg("older", now.Add(-72*time.Hour)),
	})

	require.Len(t, plan.Groups, 3)
	require.Equal(t, "Friday, February 6, 2026", plan.Groups[0].Label)
	require.Equal(t, "Yesterday", plan.Groups[1].Label)
	require.Equal(t, "Today", plan.Groups[2].Label)
}

func TestAssemble_GroupsInFixedLocation(t *testing.T) {
	// 23:30 UTC on Feb 3 is already Feb 4 in Tokyo.
	tokyo := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 2, 3, 23, 30, 0, 0, time.UTC)

	utcPlan := NewAssembler(time.UTC, clock.NewManual(now)).Assemble([]models.Message{msg("m", at)})
	jstPlan := NewAssembler(tokyo, clock.NewManual(now)).Assemble([]models.Message{msg("m", at)})

	require.Equal(t, "2026-02-03", utcPlan.Groups[0].Key)
	require.Equal(t, "2026-02-04", jstPlan.Groups[0].Key)

	// The caller's zone on the timestamp itself doesn't matter.
	local := at.In(time.FixedZone("PST", -8*60*60))
	again := NewAssembler(time.UTC, clock.NewManual(now)).Assemble([]models.Message{msg("m", local)})
	require.Equal(t, "2026-02-03", again.Groups[0].Key)
}

func TestAssemble_OrderingProperty(t *testing.T) {
	a := NewAssembler(time.UTC, clock.NewManual(now))
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		msgs := make([]models.Message, n)
		for i := range msgs {
			offset := time.Duration(rng.Intn(5*24*60)) * time.Minute
			msgs[i] = msg(string(rune('a'+i%26))+time.Duration(i).String(), now.Add(-offset))
		}

		plan := a.Assemble(msgs)
		require.Equal(t, n, plan.Len())
		for gi, g := range plan.Groups {
			if gi > 0 {
				require.True(t, plan.Groups[gi-1].Day().Before(g.Day()))
			}
			for mi := 1; mi < len(g.Messages); mi++ {
				require.False(t, g.Messages[mi].CreatedAt.Before(g.Messages[mi-1].CreatedAt))
			}
		}
	}
}

func TestPlan_Locate(t *testing.T) {
	a := NewAssembler(time.UTC, clock.NewManual(now))
	day1 := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	plan := a.Assemble([]models.Message{
		msg("a", day1),
		msg("b", day1.Add(time.Minute)),
		msg("c", day1.Add(24*time.Hour)),
	})

	pos, ok := plan.Locate("c")
	require.True(t, ok)
	// header, a, b, header, c
	require.Equal(t, Position{MessageID: "c", Group: 1, Index: 0, Row: 4}, pos)

	_, ok = plan.Locate("missing")
	require.False(t, ok)
}
