package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the bot, scheduler and HTTP API report to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	reminders       prometheus.Counter
	priceDrops      prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caku_commands_total",
				Help: "Chat commands handled, by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "caku_command_duration_seconds",
				Help:    "Time spent handling a chat command.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caku_reminders_sent_total",
			Help: "Daily reminders delivered.",
		}),
		priceDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "caku_wishlist_price_drops_total",
			Help: "Wishlist price drops notified.",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "caku_http_requests_total",
				Help: "Dashboard API requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "caku_http_request_duration_seconds",
				Help:    "Dashboard API latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	registry.MustRegister(
		m.commands,
		m.commandDuration,
		m.reminders,
		m.priceDrops,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveCommand(kind string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind, outcome).Inc()
	m.commandDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.reminders.Inc()
}

func (m *Metrics) PriceDrop() {
	if m == nil {
		return
	}
	m.priceDrops.Inc()
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
