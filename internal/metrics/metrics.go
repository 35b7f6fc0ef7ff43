package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "storyteller"

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Number of outbound provider calls by outcome",
		},
		[]string{"kind", "provider", "status"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Outbound provider call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"kind", "provider"},
	)

	pipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_total",
			Help:      "Story pipeline stage transitions",
		},
		[]string{"stage", "status"},
	)

	imagePlaceholderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_placeholder_total",
			Help:      "Number of image requests answered with the timeout placeholder",
		},
		[]string{"resolution"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Reply cache lookups by result",
		},
		[]string{"result"},
	)
)

func HttpRequestsTotal(method, path, code string) {
	httpRequestsTotal.With(prometheus.Labels{
		"method": method,
		"path":   path,
		"code":   code,
	}).Inc()
}

func HttpRequestDuration(method, path string, duration time.Duration) {
	httpRequestDuration.With(prometheus.Labels{
		"method": method,
		"path":   path,
	}).Observe(duration.Seconds())
}

func ProviderRequest(kind, provider, status string, duration time.Duration) {
	providerRequestsTotal.With(prometheus.Labels{
		"kind":     kind,
		"provider": provider,
		"status":   status,
	}).Inc()
	providerRequestDuration.With(prometheus.Labels{
		"kind":     kind,
		"provider": provider,
	}).Observe(duration.Seconds())
}

func PipelineStage(stage, status string) {
	pipelineStageTotal.With(prometheus.Labels{
		"stage":  stage,
		"status": status,
	}).Inc()
}

func ImagePlaceholder(resolution string) {
	imagePlaceholderTotal.With(prometheus.Labels{
		"resolution": resolution,
	}).Inc()
}

func CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.With(prometheus.Labels{"result": result}).Inc()
}

// Middleware records request counts and durations labelled by the chi route
// pattern, so path parameters do not blow up label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		duration := time.Since(start)
		HttpRequestsTotal(r.Method, path, strconv.Itoa(status))
		HttpRequestDuration(r.Method, path, duration)
	})
}
