package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/visstudy/pkg/cache"
	"github.com/matzehuels/visstudy/pkg/chart"
	"github.com/matzehuels/visstudy/pkg/dataset"
	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/observability"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/sink"
	"github.com/matzehuels/visstudy/pkg/study"
)

// Runner generates artifacts into an output tree with caching.
// Both the CLI and the server use it.
//
// The Runner holds no per-run state, so multiple goroutines can use the same
// Runner as long as their requests have distinct slugs.
type Runner struct {
	Sink   sink.Dir
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Minifier shrinks pages before they are written. Nil disables it.
	Minifier *page.Minifier
}

// NewRunner creates a runner writing below dir.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If logger is nil, logs are discarded.
func NewRunner(dir sink.Dir, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Sink:   dir,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// GenerateChart writes the dataset, spec and page of req.
func (r *Runner) GenerateChart(ctx context.Context, req study.Request) (res *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	slug := study.Slug(req)
	res = &Result{
		RunID:    uuid.NewString(),
		Request:  req,
		Slug:     slug,
		DataPath: study.DataPath(req),
		SpecPath: study.SpecPath(req),
		PagePath: study.PagePath(req),
	}
	logger := r.Logger.With("run", res.RunID[:8], "experiment", req.ExperimentName)

	hooks := observability.Pipeline()
	hooks.OnChartStart(ctx, slug)
	defer func() {
		res.Stats.Total = time.Since(start)
		hooks.OnChartComplete(ctx, slug, req.DataFormat.String(), res.Stats.Rows, res.Stats.Total, err)
		if err != nil {
			res = nil
		}
	}()

	// Stage 1: Dataset
	stageStart := time.Now()
	rows, n, err := r.writeDataset(ctx, req, res.DataPath)
	res.Stats.DataTime = time.Since(stageStart)
	hooks.OnStageComplete(ctx, StageDataset, n, res.Stats.DataTime, err)
	if err != nil {
		return res, err
	}
	res.Stats.Rows, res.Stats.DataBytes = rows, n
	logger.Debug("wrote dataset",
		"path", res.DataPath,
		"rows", rows,
		"bytes", n,
		"duration", res.Stats.DataTime)

	// Stage 2: Spec
	stageStart = time.Now()
	spec, hit, err := r.SpecWithCacheInfo(ctx, req)
	if err == nil {
		err = r.Sink.WriteFile(res.SpecPath, spec, sink.Overwrite)
	}
	res.Stats.SpecTime = time.Since(stageStart)
	hooks.OnStageComplete(ctx, StageSpec, int64(len(spec)), res.Stats.SpecTime, err)
	if err != nil {
		return res, err
	}
	res.Stats.SpecBytes, res.CacheInfo.SpecHit = int64(len(spec)), hit
	logger.Debug("wrote spec", "path", res.SpecPath, "cached", hit, "duration", res.Stats.SpecTime)

	// Stage 3: Page
	stageStart = time.Now()
	html, hit, err := r.PageWithCacheInfo(ctx, req)
	if err == nil {
		err = r.Sink.WriteFile(res.PagePath, html, sink.CreateOnly)
	}
	res.Stats.PageTime = time.Since(stageStart)
	hooks.OnStageComplete(ctx, StagePage, int64(len(html)), res.Stats.PageTime, err)
	if err != nil {
		return res, err
	}
	res.Stats.PageBytes, res.CacheInfo.PageHit = int64(len(html)), hit
	logger.Debug("wrote page", "path", res.PagePath, "cached", hit, "duration", res.Stats.PageTime)

	logger.Info("generated chart",
		"rows", rows,
		"format", req.DataFormat,
		"renderer", req.Renderer,
		"duration", time.Since(start))
	return res, nil
}

func (r *Runner) writeDataset(ctx context.Context, req study.Request, rel string) (int, int64, error) {
	f, err := r.Sink.Create(rel, sink.Overwrite)
	if err != nil {
		return 0, 0, err
	}
	cw := &countingWriter{w: f}

	gen := dataset.NewGenerator(req.Seed)
	rows, err := dataset.Write(cw, req, untilDone(ctx, gen.Rows(req)))
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(errors.ErrCodeIO, cerr, "close %s", rel)
	}
	if err == nil {
		err = ctx.Err()
	}
	return rows, cw.n, err
}

// SpecWithCacheInfo returns the serialized chart spec of req and whether it
// came from the cache.
func (r *Runner) SpecWithCacheInfo(ctx context.Context, req study.Request) ([]byte, bool, error) {
	key := r.Keyer.SpecKey(req)
	if data, hit := r.cached(ctx, key, StageSpec); hit {
		return data, true, nil
	}

	data, err := chart.Marshal(chart.Build(req))
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, key, StageSpec, data, cache.TTLSpec)
	return data, false, nil
}

// PageWithCacheInfo returns the rendered (and optionally minified) page of
// req and whether it came from the cache.
func (r *Runner) PageWithCacheInfo(ctx context.Context, req study.Request) ([]byte, bool, error) {
	key := r.Keyer.PageKey(req, cache.PageKeyOpts{Minify: r.Minifier != nil})
	if data, hit := r.cached(ctx, key, StagePage); hit {
		return data, true, nil
	}

	data, err := page.Chart(req, study.SpecPath(req), study.DataPath(req))
	if err != nil {
		return nil, false, err
	}
	if data, err = r.Minifier.HTML(data); err != nil {
		return nil, false, err
	}
	r.store(ctx, key, StagePage, data, cache.TTLPage)
	return data, false, nil
}

// cached looks key up. Cache errors are logged and treated as misses.
func (r *Runner) cached(ctx context.Context, key, keyType string) ([]byte, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache lookup failed", "type", keyType, "err", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return data, true
}

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// GenerateIndex writes index.html listing every chart page in the output
// root and returns its path. An existing index is never overwritten.
func (r *Runner) GenerateIndex(ctx context.Context, opts page.IndexOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pages, err := r.Sink.Pages()
	if err == nil {
		var html []byte
		if html, err = page.Index(pages, opts); err == nil {
			if html, err = r.Minifier.HTML(html); err == nil {
				err = r.Sink.WriteFile(study.IndexFile, html, sink.CreateOnly)
			}
		}
	}
	observability.Pipeline().OnIndexComplete(ctx, len(pages), err)
	if err != nil {
		return "", err
	}

	r.Logger.Info("generated index", "pages", len(pages))
	return study.IndexFile, nil
}

// RemoveAllGenerated deletes every generated file and returns the count.
func (r *Runner) RemoveAllGenerated(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.Sink.Clean()
	observability.Pipeline().OnClean(ctx, n, err)
	if err != nil {
		return n, err
	}
	r.Logger.Info("removed generated files", "count", n, "dir", r.Sink.Root)
	return n, nil
}

// RunBatch optionally cleans the output tree, generates every request and
// optionally writes the index. All requests are validated before anything is
// written. The first failure aborts the batch.
func (r *Runner) RunBatch(ctx context.Context, reqs []study.Request, opts BatchOptions) (*BatchResult, error) {
	opts.SetDefaults()
	if err := opts.Validate(reqs); err != nil {
		return nil, err
	}

	out := &BatchResult{Charts: make([]*Result, len(reqs))}

	if opts.Clean {
		n, err := r.RemoveAllGenerated(ctx)
		if err != nil {
			return out, err
		}
		out.Removed = n
	}

	var err error
	if opts.Workers > 1 && len(reqs) > 1 {
		err = r.runParallel(ctx, reqs, opts.Workers, out.Charts)
	} else {
		err = r.runSequential(ctx, reqs, out.Charts)
	}
	if err != nil {
		return out, err
	}

	if opts.Index {
		path, err := r.GenerateIndex(ctx, opts.IndexOptions)
		if err != nil {
			return out, err
		}
		out.IndexPath = path
	}
	return out, nil
}

func (r *Runner) runSequential(ctx context.Context, reqs []study.Request, results []*Result) error {
	for i, req := range reqs {
		res, err := r.GenerateChart(ctx, req)
		if err != nil {
			return errors.Wrap(codeOf(err), err, "experiment %s", req.ExperimentName)
		}
		results[i] = res
	}
	return nil
}

// runParallel requires pairwise distinct slugs, so workers never write the
// same file.
func (r *Runner) runParallel(ctx context.Context, reqs []study.Request, workers int, results []*Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := r.GenerateChart(gctx, req)
			if err != nil {
				return errors.Wrap(codeOf(err), err, "experiment %s", req.ExperimentName)
			}
			results[i] = res
			return nil
		})
	}
	return g.Wait()
}

// codeOf keeps a structured error's code, mapping anything else to INTERNAL.
func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInternal
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
