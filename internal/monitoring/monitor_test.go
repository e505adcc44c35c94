package monitoring

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"shackbot/internal/llm"
)

func TestMonitor_GetMetrics(t *testing.T) {
	m := NewMonitor()
	m.RecordMetric("test_metric", 42)

	metrics := m.GetMetrics()

	// Check if our metric is present
	value, exists := metrics["test_metric"]
	if !exists {
		t.Fatalf("Expected 'test_metric' to be present in metrics, but it was not")
	}

	// Check value
	if value != 42 {
		t.Errorf("Expected 'test_metric' to be 42, but got %v", value)
	}

	// Check uptime presence
	_, exists = metrics["uptime_seconds"]
	if !exists {
		t.Errorf("Expected 'uptime_seconds' to be present in metrics, but it was not")
	}
}

func TestMonitor_ObserveLLMAttempt(t *testing.T) {
	m := NewMonitor()

	m.ObserveLLMAttempt(llm.Attempt{Number: 1, Duration: 30 * time.Millisecond, Err: llm.ErrRateLimited, Kind: llm.KindTransient})
	m.ObserveLLMAttempt(llm.Attempt{Number: 2, Duration: 40 * time.Millisecond})

	if got := testutil.ToFloat64(m.llmAttempts.WithLabelValues("error", "transient")); got != 1 {
		t.Errorf("Expected 1 transient error attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.llmAttempts.WithLabelValues("success", "")); got != 1 {
		t.Errorf("Expected 1 successful attempt, got %v", got)
	}

	metrics := m.GetMetrics()
	if metrics["llm_attempts_total"] != 2.0 {
		t.Errorf("Expected llm_attempts_total to be 2, got %v", metrics["llm_attempts_total"])
	}
	if metrics["llm_errors_total"] != 1.0 {
		t.Errorf("Expected llm_errors_total to be 1, got %v", metrics["llm_errors_total"])
	}
}

func TestMonitor_DomainCounters(t *testing.T) {
	m := NewMonitor()

	m.ObserveIntent("place_order")
	m.ObserveIntent("place_order")
	m.ObserveCartMutation("add", "ok")
	m.ObserveCheckout("storage_error")
	m.ObserveCatalogRefresh("stale", time.Second)

	if got := testutil.ToFloat64(m.intents.WithLabelValues("place_order")); got != 2 {
		t.Errorf("Expected 2 place_order intents, got %v", got)
	}
	if got := testutil.ToFloat64(m.checkouts.WithLabelValues("storage_error")); got != 1 {
		t.Errorf("Expected 1 failed checkout, got %v", got)
	}

	metrics := m.GetMetrics()
	for _, name := range []string{"intent_place_order", "cart_add_ok", "checkout_storage_error", "catalog_refreshes_stale"} {
		if _, ok := metrics[name]; !ok {
			t.Errorf("Expected %q in metrics snapshot", name)
		}
	}
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor()
	m.ObserveIntent("greeting")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code != 200 {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(string(body), `intents_total{intent="greeting"} 1`) {
		t.Errorf("Expected intents_total in exposition, got:\n%s", body)
	}
}

func TestMonitor_TrackBreaker(t *testing.T) {
	m := NewMonitor()
	state := "closed"
	m.TrackBreaker("openai", func() string { return state })

	scrape := func() string {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		return rec.Body.String()
	}

	if body := scrape(); !strings.Contains(body, `llm_circuit_state{breaker="openai"} 0`) {
		t.Errorf("Expected closed breaker gauge, got:\n%s", body)
	}
	state = "open"
	if body := scrape(); !strings.Contains(body, `llm_circuit_state{breaker="openai"} 2`) {
		t.Errorf("Expected open breaker gauge, got:\n%s", body)
	}
}

func TestMonitor_Reset(t *testing.T) {
	m := NewMonitor()
	m.RecordMetric("test_metric", 42)
	m.ObserveLLMAttempt(llm.Attempt{Err: errors.New("x")})

	m.Reset()

	metrics := m.GetMetrics()
	if len(metrics) != 1 {
		t.Errorf("Expected only uptime_seconds after reset, got %v", metrics)
	}
}
