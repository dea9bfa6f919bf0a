package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/visstudy/pkg/cache"
	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/page"
	"github.com/matzehuels/visstudy/pkg/sink"
	"github.com/matzehuels/visstudy/pkg/study"
)

func t1() study.Request {
	return study.Request{
		ExperimentName: "t1",
		NumPoints:      3,
		NumCategories:  2,
		NumAttributes:  1,
		Width:          400,
		Height:         300,
		DataFormat:     study.FormatJSON,
		Renderer:       study.RendererCanvas,
	}
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	dir := sink.Dir{Root: filepath.Join(t.TempDir(), "generated")}
	require.NoError(t, dir.Init())
	return NewRunner(dir, nil, nil, nil)
}

func readFile(t *testing.T, r *Runner, rel string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(r.Sink.Root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return b
}

func TestGenerateChartEndToEnd(t *testing.T) {
	r := newTestRunner(t)
	req := t1()

	res, err := r.GenerateChart(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, study.DataPath(req), res.DataPath)
	assert.Equal(t, 3, res.Stats.Rows)
	assert.NotEmpty(t, res.RunID)
	assert.Positive(t, res.Stats.DataBytes)

	// dataset: 3 objects with exactly the canonical keys
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(readFile(t, r, res.DataPath), &rows))
	require.Len(t, rows, 3)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		assert.ElementsMatch(t, []string{"category", "x", "y", "attr_0"}, keys)
		assert.Contains(t, []any{"category_0", "category_1"}, row["category"])
	}

	// spec: color scale keyed by category
	var spec struct {
		Scales []struct {
			Name   string `json:"name"`
			Domain struct {
				Field string `json:"field"`
			} `json:"domain"`
		} `json:"scales"`
	}
	require.NoError(t, json.Unmarshal(readFile(t, r, res.SpecPath), &spec))
	var colorField string
	for _, s := range spec.Scales {
		if s.Name == "color" {
			colorField = s.Domain.Field
		}
	}
	assert.Equal(t, "category", colorField)

	// page: references the dataset by its exact relative path
	assert.Contains(t, string(readFile(t, r, res.PagePath)), study.DataPath(req))
}

func TestGenerateChartPageIsWriteOnce(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	_, err := r.GenerateChart(ctx, t1())
	require.NoError(t, err)

	_, err = r.GenerateChart(ctx, t1())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyExists))

	// dataset and spec were rewritten before the page conflict
	assert.FileExists(t, filepath.Join(r.Sink.Root, filepath.FromSlash(study.SpecPath(t1()))))
}

func TestGenerateChartMissingDirectories(t *testing.T) {
	r := NewRunner(sink.Dir{Root: t.TempDir()}, nil, nil, nil)
	_, err := r.GenerateChart(context.Background(), t1())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIO))
}

func TestGenerateChartInvalidRequest(t *testing.T) {
	r := newTestRunner(t)
	req := t1()
	req.DataFormat = 0

	_, err := r.GenerateChart(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))

	entries, err := os.ReadDir(filepath.Join(r.Sink.Root, study.DataDir))
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is written for an invalid request")
}

func TestGenerateChartCancelled(t *testing.T) {
	r := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GenerateChart(ctx, t1())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateChartUsesCache(t *testing.T) {
	dir := sink.Dir{Root: t.TempDir()}
	require.NoError(t, dir.Init())
	fc, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(dir, fc, nil, nil)
	ctx := context.Background()

	first, err := r.GenerateChart(ctx, t1())
	require.NoError(t, err)
	assert.False(t, first.CacheInfo.SpecHit)
	assert.False(t, first.CacheInfo.PageHit)

	_, err = r.RemoveAllGenerated(ctx)
	require.NoError(t, err)

	second, err := r.GenerateChart(ctx, t1())
	require.NoError(t, err)
	assert.True(t, second.CacheInfo.SpecHit)
	assert.True(t, second.CacheInfo.PageHit)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestSpecIsPure(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	a, _, err := r.SpecWithCacheInfo(ctx, t1())
	require.NoError(t, err)
	b, _, err := r.SpecWithCacheInfo(ctx, t1())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMinifiedPage(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	plain, _, err := r.PageWithCacheInfo(ctx, t1())
	require.NoError(t, err)

	r.Minifier = page.NewMinifier()
	small, _, err := r.PageWithCacheInfo(ctx, t1())
	require.NoError(t, err)
	assert.Less(t, len(small), len(plain))
}

func TestGenerateIndex(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	b := t1()
	b.ExperimentName = "a0"
	for _, req := range []study.Request{t1(), b} {
		_, err := r.GenerateChart(ctx, req)
		require.NoError(t, err)
	}

	path, err := r.GenerateIndex(ctx, page.IndexOptions{Title: "Demo"})
	require.NoError(t, err)
	assert.Equal(t, study.IndexFile, path)

	html := string(readFile(t, r, path))
	assert.Less(t, strings.Index(html, study.PagePath(b)), strings.Index(html, study.PagePath(t1())))
	assert.NotContains(t, html, `href="index.html"`)

	_, err = r.GenerateIndex(ctx, page.IndexOptions{})
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyExists))
}

func TestRemoveAllGenerated(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	_, err := r.GenerateChart(ctx, t1())
	require.NoError(t, err)

	n, err := r.RemoveAllGenerated(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = r.RemoveAllGenerated(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	missing := NewRunner(sink.Dir{Root: filepath.Join(t.TempDir(), "missing")}, nil, nil, nil)
	n, err = missing.RemoveAllGenerated(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func batchRequests() []study.Request {
	var reqs []study.Request
	for _, f := range []study.DataFormat{study.FormatCSV, study.FormatJSON} {
		for _, rr := range []study.Renderer{study.RendererCanvas, study.RendererSVG} {
			req := t1()
			req.DataFormat, req.Renderer = f, rr
			reqs = append(reqs, req)
		}
	}
	return reqs
}

func TestRunBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(map[int]string{1: "sequential", 4: "parallel"}[workers], func(t *testing.T) {
			r := newTestRunner(t)
			ctx := context.Background()

			// a leftover page that a clean must remove
			require.NoError(t, r.Sink.WriteFile("old.html", []byte("x"), sink.CreateOnly))

			reqs := batchRequests()
			out, err := r.RunBatch(ctx, reqs, BatchOptions{Clean: true, Index: true, Workers: workers})
			require.NoError(t, err)

			assert.Equal(t, 1, out.Removed)
			require.Len(t, out.Charts, len(reqs))
			for i, res := range out.Charts {
				require.NotNil(t, res)
				assert.Equal(t, study.Slug(reqs[i]), res.Slug)
			}
			assert.Equal(t, study.IndexFile, out.IndexPath)

			pages, err := r.Sink.Pages()
			require.NoError(t, err)
			assert.Len(t, pages, len(reqs))
		})
	}
}

func TestRunBatchRejectsDuplicateSlugsInParallel(t *testing.T) {
	r := newTestRunner(t)
	dup := t1()
	dup.Width = 999

	_, err := r.RunBatch(context.Background(), []study.Request{t1(), dup}, BatchOptions{Workers: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeDuplicateSlug))
}

func TestRunBatchValidatesUpFront(t *testing.T) {
	r := newTestRunner(t)
	bad := t1()
	bad.ExperimentName = "bad"
	bad.NumPoints = 0

	_, err := r.RunBatch(context.Background(), []study.Request{t1(), bad}, BatchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidRequest))

	pages, err := r.Sink.Pages()
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestRunBatchStopsAtFirstFailure(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	_, err := r.GenerateChart(ctx, t1())
	require.NoError(t, err)

	second := t1()
	second.ExperimentName = "zz"
	out, err := r.RunBatch(ctx, []study.Request{t1(), second}, BatchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAlreadyExists))
	assert.Nil(t, out.Charts[1], "requests after a failure are not run")
}

func TestBatchOptionsDefaults(t *testing.T) {
	o := BatchOptions{Workers: -3}
	o.SetDefaults()
	assert.Equal(t, 1, o.Workers)

	o = BatchOptions{Workers: 1000}
	o.SetDefaults()
	assert.Equal(t, MaxWorkers, o.Workers)

	o = BatchOptions{}
	assert.Error(t, o.Validate(nil))
}
