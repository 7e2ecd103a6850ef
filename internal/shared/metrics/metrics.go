package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exported at /metrics.
var Registry = prometheus.NewRegistry()

var (
	analysisStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started.",
	}, []string{"resource_type"})
	analysisCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed.",
	}, []string{"resource_type"})
	analysisFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_failed_total",
		Help: "Total analyses failed.",
	}, []string{"resource_type"})
	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	jobsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_received_total",
		Help: "Queued analysis jobs received by the worker.",
	})
	jobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_completed_total",
		Help: "Queued analysis jobs processed and deleted.",
	})
	jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_jobs_failed_total",
		Help: "Queued analysis jobs that failed processing.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		analysisStarted,
		analysisCompleted,
		analysisFailed,
		analysisDuration,
		jobsReceived,
		jobsCompleted,
		jobsFailed,
		httpRequests,
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted(resourceType string) {
	analysisStarted.WithLabelValues(resourceType).Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted(resourceType string) {
	analysisCompleted.WithLabelValues(resourceType).Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed(resourceType string) {
	analysisFailed.WithLabelValues(resourceType).Inc()
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

func IncJobReceived()  { jobsReceived.Inc() }
func IncJobCompleted() { jobsCompleted.Inc() }
func IncJobFailed()    { jobsFailed.Inc() }

// ObserveRequest counts a finished HTTP request. route is the gin route template.
func ObserveRequest(method, route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
