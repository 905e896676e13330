package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncSessionCreated("eur")
	m.IncEventReceived("payment_intent.succeeded")
	m.IncEventReceived("payment_intent.succeeded")
	m.IncEventApplied("payment_intent.succeeded")
	m.IncEventFailed("")

	if got := testutil.ToFloat64(m.sessionsCreated.WithLabelValues("eur")); got != 1 {
		t.Fatalf("expected 1 session created, got %v", got)
	}
	if got := testutil.ToFloat64(m.eventsReceived.WithLabelValues("payment_intent.succeeded")); got != 2 {
		t.Fatalf("expected 2 events received, got %v", got)
	}
	if got := testutil.ToFloat64(m.eventsFailed.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty label to normalize to unknown, got %v", got)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncSessionCreated("eur")
	m.IncEventReceived("x")
	m.IncEventApplied("x")
	m.IncEventFailed("x")

	empty := NewPaymentMetrics(nil)
	empty.IncEventReceived("x")
}
