package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Chat pipeline metrics
	IntentsClassified *prometheus.CounterVec
	Outcomes          *prometheus.CounterVec
	ResponseLatency   *prometheus.HistogramVec
	Predictions       *prometheus.CounterVec
	SymptomMatches    *prometheus.CounterVec
	SinkFailures      *prometheus.CounterVec
	AlternativeCache  *prometheus.CounterVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxQueueSize         prometheus.Gauge
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Redis metrics
	RedisOperations *prometheus.CounterVec
	RedisLatency    *prometheus.HistogramVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg creates unregistered collectors.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Chat metrics
		IntentsClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "intents_classified_total",
			Help:      "Total number of messages classified, by intent",
		}, []string{"intent"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_outcomes_total",
			Help:      "Total number of handled messages, by intent and outcome",
		}, []string{"intent", "outcome"}),
		ResponseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "response_duration_seconds",
			Help:      "Time spent producing a reply",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"intent"}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "disease_predictions_total",
			Help:      "Total number of disease prediction attempts, by result",
		}, []string{"result"}),
		SymptomMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "symptom_matches_total",
			Help:      "Total number of symptom phrases, by how they matched the vocabulary",
		}, []string{"kind"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prediction_log_failures_total",
			Help:      "Total number of prediction log records that were not written",
		}, []string{"reason"}),
		AlternativeCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alternative_cache_lookups_total",
			Help:      "Total number of alternative ranking cache lookups",
		}, []string{"result"}),

		// Outbox metrics
		OutboxEventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_queue_size",
			Help:      "Current number of events in the outbox queue",
		}),
		OutboxRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),

		// Database metrics
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		// Redis metrics
		RedisOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
		RedisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "redis_operation_duration_seconds",
			Help:      "Duration of Redis operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),
	}
}

// The Observe helpers accept a nil receiver so callers can run without
// metrics.

func (m *Metrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.IntentsClassified.WithLabelValues(intent).Inc()
}

func (m *Metrics) ObserveOutcome(intent, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(intent, outcome).Inc()
	m.ResponseLatency.WithLabelValues(intent).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePrediction(result string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveSymptomMatch(kind string) {
	if m == nil {
		return
	}
	m.SymptomMatches.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSinkFailure(reason string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.AlternativeCache.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDatabase(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DatabaseOperations.WithLabelValues(operation, status(err)).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRedis(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RedisOperations.WithLabelValues(operation, status(err)).Inc()
	m.RedisLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
