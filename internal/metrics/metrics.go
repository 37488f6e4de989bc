package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workhub_http_request_duration_seconds",
			Help:    "Histogram of HTTP response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	NotificationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workhub_notifications_created_total",
			Help: "Total number of notifications persisted",
		},
	)

	EventsBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workhub_hub_events_broadcast_total",
			Help: "Total number of events fanned out to connected sessions",
		},
		[]string{"event"},
	)

	EventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workhub_hub_events_dropped_total",
			Help: "Total number of events dropped because a subscriber buffer was full",
		},
	)
)

// Register registers all collectors with the default registry. Call once at startup.
func Register() {
	prometheus.MustRegister(
		TotalRequests,
		RequestDuration,
		NotificationsCreated,
		EventsBroadcast,
		EventsDropped,
	)
}
