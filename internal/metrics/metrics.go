// Package metrics provides Prometheus metrics for the chat engine
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	MessagesAppended    *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	StaleTransitions    prometheus.Counter
	AttachmentsIngested *prometheus.CounterVec
	IngestionFailures   prometheus.Counter
	JumpRequests        *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesAppended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talkie_messages_appended_total",
				Help: "Total number of messages appended to conversation stores",
			},
			[]string{"direction"},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talkie_delivery_transitions_total",
				Help: "Delivery status transitions applied by the scheduler",
			},
			[]string{"status"},
		),
		StaleTransitions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "talkie_delivery_stale_transitions_total",
				Help: "Delivery status transitions dropped because the store rejected them",
			},
		),
		AttachmentsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talkie_attachments_ingested_total",
				Help: "Attachments resolved into previewable records",
			},
			[]string{"kind"},
		),
		IngestionFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "talkie_attachment_ingestion_failures_total",
				Help: "Attachment batches that failed to resolve",
			},
		),
		JumpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "talkie_jump_requests_total",
				Help: "Jump-to-message requests by result",
			},
			[]string{"result"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "talkie_active_sessions",
				Help: "Number of open chat sessions",
			},
		),
	}
}

func (m *Metrics) MessageAppended(direction string) {
	if m == nil {
		return
	}
	m.MessagesAppended.WithLabelValues(direction).Inc()
}

func (m *Metrics) TransitionApplied(status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) TransitionDropped() {
	if m == nil {
		return
	}
	m.StaleTransitions.Inc()
}

func (m *Metrics) AttachmentIngested(kind string) {
	if m == nil {
		return
	}
	m.AttachmentsIngested.WithLabelValues(kind).Inc()
}

func (m *Metrics) IngestionFailed() {
	if m == nil {
		return
	}
	m.IngestionFailures.Inc()
}

// Jump records a jump request; result is "found" or "not_found".
func (m *Metrics) Jump(result string) {
	if m == nil {
		return
	}
	m.JumpRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}
