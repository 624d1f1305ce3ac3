// Package observability holds the service's Prometheus instruments.
// Collectors are package level; Register binds them to a registry.
package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "featureserver"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"method", "route", "status"},
	)

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Dispatched FeatureServer operations by outcome.",
		},
		[]string{"operation", "status"},
	)

	sourceCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_results_total",
			Help:      "Decoded source cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	sourceLoadSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_load_duration_seconds",
			Help:      "Time to fetch and decode a GeoJSON source.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"driver", "result"},
	)

	redisOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_ops_total",
			Help:      "Redis operations by command and result.",
		},
		[]string{"op", "result"},
	)

	redisOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "redis_op_duration_seconds",
			Help:      "Latency of Redis operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalidations_total",
			Help:      "Invalidation events by op and result.",
		},
		[]string{"op", "result"},
	)

	kafkaErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consumer_errors_total",
			Help:      "Kafka consumer errors by stage.",
		},
		[]string{"stage"},
	)

	lintWarningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geojson_lint_warnings_total",
			Help:      "GeoJSON structure problems reported by the linter.",
		},
	)
)

// Collectors lists every instrument of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		operationsTotal,
		sourceCacheResults,
		sourceLoadSeconds,
		redisOpsTotal,
		redisOpSeconds,
		invalidationsTotal,
		kafkaErrorsTotal,
		lintWarningsTotal,
	}
}

// Register binds the collectors to reg. Registering twice on the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveOperation(op string, status int) {
	operationsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

func IncSourceCacheHit() {
	sourceCacheResults.WithLabelValues("hit").Inc()
}

func IncSourceCacheMiss() {
	sourceCacheResults.WithLabelValues("miss").Inc()
}

func ObserveSourceLoad(driver string, err error, durationSeconds float64) {
	sourceLoadSeconds.WithLabelValues(driver, result(err)).Observe(durationSeconds)
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	redisOpsTotal.WithLabelValues(op, result(err)).Inc()
	redisOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func ObserveInvalidation(op string, err error) {
	invalidationsTotal.WithLabelValues(op, result(err)).Inc()
}

func IncKafkaError(stage string) {
	kafkaErrorsTotal.WithLabelValues(stage).Inc()
}

func AddLintWarnings(n int) {
	if n > 0 {
		lintWarningsTotal.Add(float64(n))
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
