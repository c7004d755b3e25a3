package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsOnOwnRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.MessageAppended("sent")
	m.MessageAppended("sent")
	m.TransitionDropped()
	m.SessionOpened()

	require.Equal(t, 2.0, testutil.ToFloat64(m.MessagesAppended.WithLabelValues("sent")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StaleTransitions))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.MessageAppended("received")
		m.TransitionApplied("read")
		m.Jump("found")
		m.SessionClosed()
	})
}
