package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnChartStart(ctx, "t1")
	p.OnChartComplete(ctx, "t1", "csv", 100, time.Second, nil)
	p.OnStageComplete(ctx, "dataset", 1024, time.Second, nil)
	p.OnIndexComplete(ctx, 3, nil)
	p.OnClean(ctx, 5, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "spec")
	c.OnCacheMiss(ctx, "page")
	c.OnCacheSet(ctx, "spec", 1024)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	SetPipelineHooks(nil)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset should restore NoopPipelineHooks")
	}
}

func TestPrometheusHooks(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnChartComplete(ctx, "t1", "json", 3, time.Millisecond, nil)
	p.OnChartComplete(ctx, "t2", "json", 5, time.Millisecond, errors.New("boom"))
	p.OnStageComplete(ctx, "dataset", 200, time.Millisecond, nil)
	p.OnCacheHit(ctx, "spec")
	p.OnCacheMiss(ctx, "spec")
	p.OnClean(ctx, 4, nil)

	if got := testutil.ToFloat64(p.charts.WithLabelValues("ok", "json")); got != 1 {
		t.Errorf("charts ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.charts.WithLabelValues("error", "json")); got != 1 {
		t.Errorf("charts error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.rows); got != 3 {
		t.Errorf("rows = %v, want 3 (failed runs are not counted)", got)
	}
	if got := testutil.ToFloat64(p.stageBytes.WithLabelValues("dataset")); got != 200 {
		t.Errorf("stage bytes = %v, want 200", got)
	}
	if got := testutil.ToFloat64(p.cacheOps.WithLabelValues("hit", "spec")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.cleaned); got != 4 {
		t.Errorf("cleaned = %v, want 4", got)
	}
}

func TestPrometheusMiddleware(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(p.Middleware)
	r.Get("/api/experiments/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, slug := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/experiments/"+slug, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	}

	got := testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/api/experiments/{slug}", "404"))
	if got != 2 {
		t.Errorf("requests for route pattern = %v, want 2", got)
	}
}

// Test helpers

type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
