package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_login_total",
			Help: "Total number of login attempts",
		},
	)

	// User operation counter
	UserOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_user_operations_total",
			Help: "Total number of user operations",
		},
		[]string{"operation"}, // operation can be "create", "update", "delete", "move", etc.
	)

	// Route operation counter
	RouteOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_route_operations_total",
			Help: "Total number of route operations",
		},
		[]string{"operation"}, // operation can be "create", "start", "update", "deviation", etc.
	)

	// Route lifecycle transition counter
	RouteTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_route_transitions_total",
			Help: "Total number of sweep-driven route status transitions",
		},
		[]string{"transition"},
	)

	// Task creation counter
	TaskCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_tasks_created_total",
			Help: "Total number of proof-of-delivery tasks created",
		},
	)

	// Tracking ping counter
	TrackingPingCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_tracking_pings_total",
			Help: "Total number of driver location pings",
		},
	)

	// Tracking records swept offline
	TrackingSweptCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_tracking_swept_total",
			Help: "Total number of tracking records swept offline for staleness",
		},
	)

	// Push notification counter
	NotificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_notifications_total",
			Help: "Total number of push notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	APIErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_api_errors_total",
			Help: "Total number of API errors",
		},
		[]string{"type"}, // type can be "validation", "not_found", "permission_denied", "db_error" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)

	// Sweep duration
	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_sweep_duration_seconds",
			Help:    "Duration of periodic sweep jobs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"}, // job is "route_status", "reminders" or "tracking"
	)
)

// Gauge metrics
var (
	// Active drivers
	ActiveDriversGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_active_drivers",
			Help: "Number of drivers currently tracked as active on a route",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleet_info",
			Help: "Information about the fleet service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(UserOperationCounter)
	prometheus.MustRegister(RouteOperationCounter)
	prometheus.MustRegister(RouteTransitionCounter)
	prometheus.MustRegister(TaskCreatedCounter)
	prometheus.MustRegister(TrackingPingCounter)
	prometheus.MustRegister(TrackingSweptCounter)
	prometheus.MustRegister(NotificationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(APIErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(SweepDuration)

	// Register gauges
	prometheus.MustRegister(ActiveDriversGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordAPIError records an API error by type
func RecordAPIError(errorType string) {
	APIErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordUserOperation records a user operation
func RecordUserOperation(operation string) {
	UserOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordRouteOperation records a route operation
func RecordRouteOperation(operation string) {
	RouteOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordRouteTransition records sweep-driven status transitions
func RecordRouteTransition(transition string, count int64) {
	if count == 0 {
		return
	}
	RouteTransitionCounter.With(prometheus.Labels{"transition": transition}).Add(float64(count))
}

// RecordNotification records a push notification outcome
func RecordNotification(kind, outcome string) {
	NotificationCounter.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
}

// RecordTrackingSwept records tracking records forced offline by the sweep
func RecordTrackingSwept(count int64) {
	TrackingSweptCounter.Add(float64(count))
}

// ObserveSweep records the duration of one sweep run
func ObserveSweep(job string, duration time.Duration) {
	SweepDuration.With(prometheus.Labels{"job": job}).Observe(duration.Seconds())
}

// UpdateActiveDrivers updates the active drivers gauge
func UpdateActiveDrivers(count int64) {
	ActiveDriversGauge.Set(float64(count))
}
