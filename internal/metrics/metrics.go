package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transitions_total",
			Help: "Committed project and proposal status transitions",
		},
		[]string{"entity", "from", "to"},
	)

	AcceptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "accept_conflicts_total",
			Help: "Accept attempts that lost to a concurrent decision",
		},
	)

	ProjectListDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "project_list_duration_seconds",
			Help:    "listProjects page+count duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	ViewIncrementFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "view_increment_failures_total",
			Help: "Best-effort view count increments that failed",
		},
	)
)

func RecordTransition(entity, from, to string) {
	LifecycleTransitions.WithLabelValues(entity, from, to).Inc()
}

func RecordProjectList(d time.Duration) {
	ProjectListDuration.Observe(d.Seconds())
}

// Middleware observes every request under its route pattern, not its raw path,
// so ids do not blow up label cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Method(), route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
