package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics records counters for the checkout and webhook pipeline.
type PaymentMetrics struct {
	sessionsCreated *prometheus.CounterVec
	eventsReceived  *prometheus.CounterVec
	eventsApplied   *prometheus.CounterVec
	eventsFailed    *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment pipeline metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created",
		Help: "Checkout sessions created with the payment provider.",
	}, []string{"currency"})
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook events accepted after signature verification.",
	}, []string{"type"})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_applied",
		Help: "Webhook events that produced a state transition.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_failed",
		Help: "Webhook events whose handler failed after acknowledgement.",
	}, []string{"type"})
	reg.MustRegister(sessions, received, applied, failed)
	return &PaymentMetrics{
		sessionsCreated: sessions,
		eventsReceived:  received,
		eventsApplied:   applied,
		eventsFailed:    failed,
	}
}

// IncSessionCreated increments the created-session counter.
func (p *PaymentMetrics) IncSessionCreated(currency string) {
	if p == nil || p.sessionsCreated == nil {
		return
	}
	p.sessionsCreated.WithLabelValues(normalizeLabel(currency)).Inc()
}

// IncEventReceived increments the received counter for the event type.
func (p *PaymentMetrics) IncEventReceived(eventType string) {
	if p == nil || p.eventsReceived == nil {
		return
	}
	p.eventsReceived.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncEventApplied increments the applied counter for the event type.
func (p *PaymentMetrics) IncEventApplied(eventType string) {
	if p == nil || p.eventsApplied == nil {
		return
	}
	p.eventsApplied.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncEventFailed increments the failed counter for the event type.
func (p *PaymentMetrics) IncEventFailed(eventType string) {
	if p == nil || p.eventsFailed == nil {
		return
	}
	p.eventsFailed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
