package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"opsengine/internal/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry         *prometheus.Registry
	ticketsTriaged   *prometheus.CounterVec
	triageDuration   prometheus.Histogram
	requestedAmounts prometheus.Histogram
	actionsSent      *prometheus.CounterVec
	actionsFailed    *prometheus.CounterVec
	logger           *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	return &MetricsCollector{
		registry: registry,
		ticketsTriaged: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_triaged_total",
			Help: "Total number of triaged support tickets",
		}, []string{"intent", "outcome"}),
		triageDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_duration_seconds",
			Help:    "Time taken to classify and decide a ticket",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		requestedAmounts: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "requested_limit_amount_euros",
			Help:    "Distribution of requested credit limit amounts",
			Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000},
		}),
		actionsSent: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "automated_actions_sent_total",
			Help: "Automated replies and notes delivered, by channel",
		}, []string{"channel"}),
		actionsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "automated_actions_failed_total",
			Help: "Automated replies and notes that failed to deliver, by channel",
		}, []string{"channel"}),
		logger: logger,
	}
}

func (m *MetricsCollector) RecordTriage(intent domain.Intent, outcome domain.Outcome, requestedAmount int64, duration time.Duration) {
	m.ticketsTriaged.WithLabelValues(string(intent), string(outcome)).Inc()
	m.triageDuration.Observe(duration.Seconds())
	if intent == domain.IntentCreditLimitIncrease {
		m.requestedAmounts.Observe(float64(requestedAmount))
	}
}

func (m *MetricsCollector) RecordAction(channel string, success bool) {
	if success {
		m.actionsSent.WithLabelValues(channel).Inc()
		return
	}
	m.actionsFailed.WithLabelValues(channel).Inc()
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context, server *http.Server) error {
	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	m.logger.Info("Metrics server shutdown complete")
	return nil
}
