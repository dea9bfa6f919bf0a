// Package pipeline orchestrates experiment generation for visstudy.
//
// One chart run executes three independent stages that all derive their
// output from the request alone:
//
//  1. Dataset: stream random rows to data/<slug>_data.<ext> (overwritten)
//  2. Spec: build the Vega spec and write specs/<slug>_spec.json (overwritten)
//  3. Page: render <slug>.html (write-once)
//
// No stage reads another stage's output, so the spec and page only refer to
// the dataset by path. A failure leaves the artifacts already written in
// place; there is no rollback.
//
// Specs and pages are pure functions of the request and are cached; datasets
// are random and always regenerated.
//
// # Usage
//
//	runner := pipeline.NewRunner(sink.Dir{Root: "generated"}, cache, nil, logger)
//	res, err := runner.GenerateChart(ctx, req)
//
// Batches run in order, or in parallel when every slug is distinct:
//
//	batch, err := runner.RunBatch(ctx, reqs, pipeline.BatchOptions{
//	    Clean:   true,
//	    Index:   true,
//	    Workers: 4,
//	})
package pipeline

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/matzehuels/visstudy/pkg/dataset"
	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/study"
)

// Stage names reported to hooks and logs.
const (
	StageDataset = "dataset"
	StageSpec    = "spec"
	StagePage    = "page"
)

// MaxWorkers bounds batch parallelism.
const MaxWorkers = 64

// =============================================================================
// Results
// =============================================================================

// Result describes one chart run.
type Result struct {
	// RunID identifies the run in logs. It is not written into any artifact.
	RunID   string        `json:"run_id"`
	Request study.Request `json:"request"`
	Slug    string        `json:"slug"`

	DataPath string `json:"data_path"`
	SpecPath string `json:"spec_path"`
	PagePath string `json:"page_path"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains run statistics.
type Stats struct {
	Rows      int           `json:"rows"`
	DataBytes int64         `json:"data_bytes"`
	SpecBytes int64         `json:"spec_bytes"`
	PageBytes int64         `json:"page_bytes"`
	DataTime  time.Duration `json:"data_time"`
	SpecTime  time.Duration `json:"spec_time"`
	PageTime  time.Duration `json:"page_time"`
	Total     time.Duration `json:"total"`
}

// CacheInfo tracks which stages were served from the cache.
type CacheInfo struct {
	SpecHit bool `json:"spec_hit"` // Whether the spec came from cache
	PageHit bool `json:"page_hit"` // Whether the page came from cache
}

// BatchResult describes a batch run.
type BatchResult struct {
	Removed   int       `json:"removed"`
	Charts    []*Result `json:"charts"`
	IndexPath string    `json:"index_path,omitempty"`
}

// =============================================================================
// Batch Options
// =============================================================================

// BatchOptions configures [Runner.RunBatch].
type BatchOptions struct {
	// Clean removes previously generated files before the first request.
	Clean bool
	// Index writes index.html after the last request.
	Index        bool
	IndexOptions page.IndexOptions
	// Workers is the number of requests generated concurrently. Values
	// below 2 run sequentially.
	Workers int
}

// SetDefaults normalizes the worker count.
func (o *BatchOptions) SetDefaults() {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
}

// Validate checks every request, and slug uniqueness when the batch runs in
// parallel.
func (o *BatchOptions) Validate(reqs []study.Request) error {
	if len(reqs) == 0 && !o.Clean && !o.Index {
		return errors.New(errors.ErrCodeInvalidInput, "nothing to do: no requests, no cleanup, no index")
	}
	for i, r := range reqs {
		if err := r.Validate(); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "request %d", i)
		}
	}
	if o.Workers > 1 {
		return study.CheckDistinct(reqs)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// untilDone stops a row sequence once ctx is cancelled.
func untilDone(ctx context.Context, rows iter.Seq[dataset.Row]) iter.Seq[dataset.Row] {
	return func(yield func(dataset.Row) bool) {
		for row := range rows {
			if ctx.Err() != nil || !yield(row) {
				return
			}
		}
	}
}
