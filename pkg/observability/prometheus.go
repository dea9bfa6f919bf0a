package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "visstudy"

// Prometheus records pipeline, cache and HTTP metrics.
type Prometheus struct {
	charts        *prometheus.CounterVec
	chartDuration *prometheus.HistogramVec
	rows          prometheus.Counter
	stageBytes    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	indexWrites   *prometheus.CounterVec
	cleaned       prometheus.Counter
	cacheOps      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		charts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charts_total",
			Help:      "Number of generated charts",
		}, []string{"status", "format"}),
		chartDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chart_duration_seconds",
			Help:      "Time to generate one chart with its dataset and page",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status", "format"}),
		rows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_rows_total",
			Help:      "Number of dataset rows written",
		}),
		stageBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_bytes_total",
			Help:      "Bytes written per generation stage",
		}, []string{"stage"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each generation stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		indexWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_writes_total",
			Help:      "Number of index page writes",
		}, []string{"status"}),
		cleaned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaned_files_total",
			Help:      "Number of generated files removed",
		}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes",
		}, []string{"op", "key_type"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnChartStart(context.Context, string) {}

func (p *Prometheus) OnChartComplete(_ context.Context, _ string, format string, rows int, d time.Duration, err error) {
	labels := prometheus.Labels{"status": status(err), "format": format}
	p.charts.With(labels).Inc()
	p.chartDuration.With(labels).Observe(d.Seconds())
	if err == nil {
		p.rows.Add(float64(rows))
	}
}

func (p *Prometheus) OnStageComplete(_ context.Context, stage string, bytes int64, d time.Duration, err error) {
	p.stageDuration.With(prometheus.Labels{"stage": stage, "status": status(err)}).Observe(d.Seconds())
	if bytes > 0 {
		p.stageBytes.WithLabelValues(stage).Add(float64(bytes))
	}
}

func (p *Prometheus) OnIndexComplete(_ context.Context, _ int, err error) {
	p.indexWrites.WithLabelValues(status(err)).Inc()
}

func (p *Prometheus) OnClean(_ context.Context, removed int, _ error) {
	p.cleaned.Add(float64(removed))
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues("hit", keyType).Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues("miss", keyType).Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, _ int) {
	p.cacheOps.WithLabelValues("set", keyType).Inc()
}

// Middleware records request counts and latencies. Paths are labeled with
// the matched chi route pattern to keep label cardinality bounded.
func (p *Prometheus) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		p.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(ww.status)).Inc()
		p.httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

var (
	_ PipelineHooks = (*Prometheus)(nil)
	_ CacheHooks    = (*Prometheus)(nil)
)
