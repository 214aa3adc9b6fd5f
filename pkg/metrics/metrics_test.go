package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.ObserveRequest("GET", "/api/v1/cart", "200", time.Millisecond)
	m.IncInFlight()
	m.DecInFlight()

	empty := NewHTTPMetrics(nil)
	empty.ObserveRequest("GET", "/api/v1/cart", "200", time.Millisecond)
}

func TestHTTPMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.IncInFlight()
	m.ObserveRequest("POST", "/api/v1/checkout/submit", "201", 25*time.Millisecond)
	m.DecInFlight()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestOutboxMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObservePublish("order_created", 5*time.Millisecond)
	m.IncFailure("")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 3 {
		t.Fatalf("expected 3 metric families, got %d", len(families))
	}
}
