package metrics

import (
	"parcel-dispatch-service/internal/services"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, route pattern, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Assignments counts assignment decisions by outcome and reason
	Assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_assignments_total", Help: "Package assignment decisions by outcome and reason."},
		[]string{"outcome", "reason"},
	)
	// AssignmentLatency tracks how long a single assignment takes in milliseconds
	AssignmentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "dispatch_assignment_latency_ms", Help: "Package assignment latency in ms.", Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}},
		[]string{"outcome"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Assignments)
		Registry.MustRegister(AssignmentLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// AssignmentRecorder feeds engine decisions into the assignment collectors.
type AssignmentRecorder struct{}

func (AssignmentRecorder) ObserveAssignment(outcome services.Outcome, reason services.Reason, d time.Duration) {
	label := string(reason)
	if label == "" {
		label = "none"
	}
	Assignments.WithLabelValues(string(outcome), label).Inc()
	AssignmentLatency.WithLabelValues(string(outcome)).Observe(float64(d.Microseconds()) / 1000)
}
