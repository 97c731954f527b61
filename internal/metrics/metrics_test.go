package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposed(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveCommand("saldo", "ok", 20*time.Millisecond)
	m.ReminderSent()
	m.ObserveHTTP(http.MethodGet, "/api/v1/summary", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `caku_commands_total{kind="saldo",outcome="ok"} 1`)
	assert.Contains(t, body, "caku_reminders_sent_total 1")
	assert.Contains(t, body, `caku_http_requests_total{method="GET",path="/api/v1/summary",status="200"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("x", "ok", 0)
		m.ReminderSent()
		m.PriceDrop()
		m.ObserveHTTP("GET", "/", 200, 0)
	})
}

func TestServerExposesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry).PriceDrop()
	srv := NewServer("127.0.0.1:0", registry)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "caku_wishlist_price_drops_total 1")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
