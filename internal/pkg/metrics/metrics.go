package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terramind",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terramind",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Pipeline metrics
	ScriptRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "pipeline",
		Name:      "script_runs_total",
		Help:      "Total script runs by classified payload kind and matching step",
	}, []string{"kind", "source"})

	ScriptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "terramind",
		Subsystem: "pipeline",
		Name:      "script_duration_seconds",
		Help:      "Wall-clock duration of script execution",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "llm",
		Name:      "generation_failures_total",
		Help:      "Script generations rejected or failed, by reason",
	}, []string{"reason"})

	BorderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "border",
		Name:      "failures_total",
		Help:      "Border buffer resolutions that failed, by reason",
	}, []string{"reason"})

	MapSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "map",
		Name:      "sessions",
		Help:      "Map sessions currently held in memory",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terramind",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_empty_acquires",
		Help:      "Cumulative acquires that had to wait for a new connection",
	})

	DBPoolCanceledAcquires = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_canceled_acquires",
		Help:      "Cumulative acquires canceled by their context",
	})

	DBPoolAcquireSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terramind",
		Subsystem: "db",
		Name:      "pool_acquire_seconds",
		Help:      "Cumulative time spent acquiring connections",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pgxpool statistics into the pool gauges.
func UpdateDBPoolMetrics(stat *pgxpool.Stat) {
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
	DBPoolConnsOpen.Set(float64(stat.TotalConns()))
	DBPoolEmptyAcquires.Set(float64(stat.EmptyAcquireCount()))
	DBPoolCanceledAcquires.Set(float64(stat.CanceledAcquireCount()))
	DBPoolAcquireSeconds.Set(stat.AcquireDuration().Seconds())
}
