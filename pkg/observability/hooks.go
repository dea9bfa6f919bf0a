// Package observability provides hooks for metrics and tracing.
//
// Library packages emit events through the registered hooks without
// depending on a metrics backend. The defaults are no-ops; the server
// registers [Prometheus] at startup.
//
// Register hooks at application startup:
//
//	func main() {
//	    prom := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    observability.SetPipelineHooks(prom)
//	    observability.SetCacheHooks(prom)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnChartStart(ctx, slug)
//	// ... generate ...
//	observability.Pipeline().OnChartComplete(ctx, slug, format, rows, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from artifact generation.
type PipelineHooks interface {
	// Chart events, one pair per experiment.
	OnChartStart(ctx context.Context, slug string)
	OnChartComplete(ctx context.Context, slug, format string, rows int, duration time.Duration, err error)

	// Stage events inside a chart run ("dataset", "spec", "page").
	OnStageComplete(ctx context.Context, stage string, bytes int64, duration time.Duration, err error)

	// OnIndexComplete records an index page write.
	OnIndexComplete(ctx context.Context, pages int, err error)

	// OnClean records a cleanup of the output tree.
	OnClean(ctx context.Context, removed int, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnChartStart(context.Context, string) {}
func (NoopPipelineHooks) OnChartComplete(context.Context, string, string, int, time.Duration, error) {
}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, int64, time.Duration, error) {}
func (NoopPipelineHooks) OnIndexComplete(context.Context, int, error)                         {}
func (NoopPipelineHooks) OnClean(context.Context, int, error)                                 {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any generation.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
}
