// Package pkg provides the libraries behind visstudy, a generator of
// synthetic scatter-plot experiments for comparing chart renderers.
//
// # Overview
//
// One experiment is described by a [study] request. From it visstudy writes
// a random dataset, a Vega chart specification and an HTML page that loads
// both by relative path:
//
//	study.Request
//	     ↓
//	[dataset] (random rows → data/<slug>_data.csv|json)
//	[chart]   (Vega spec   → specs/<slug>_spec.json)
//	[page]    (HTML page   → <slug>.html, index.html)
//	     ↓
//	[sink] (output tree with write-once pages and cleanup)
//
// The three artifacts are derived from the request independently; none
// reads another.
//
// # Main Packages
//
// [study] - Request model, slug and path derivation, TOML study plans.
//
// [dataset] - Lazy random row generation, CSV and JSON writers and readers.
//
// [chart] - Typed Vega model and the scatter-plot spec builder with
// interactive legend filtering and hover tooltips.
//
// [page] - Embedded HTML templates for chart pages and the index, plus
// optional minification.
//
// [sink] - The output directory tree: write modes, listing, cleanup.
//
// [pipeline] - The runner used by the CLI and the server. Generates charts,
// batches, the index and cleanups, with caching of specs and pages.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches with request-derived keys.
//
// [observability] - Pipeline and cache hooks with a Prometheus implementation.
//
// [errors] - Structured errors with machine-readable codes.
//
// [buildinfo] - Version information set via ldflags.
//
// # Quick Start
//
//	dir := sink.Dir{Root: "generated"}
//	if err := dir.Init(); err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(dir, nil, nil, nil)
//	res, err := runner.GenerateChart(ctx, study.DefaultRequest())
//
// # Testing
//
//	go test ./...
//	VISSTUDY_TEST_REDIS_ADDR=localhost:6379 go test ./pkg/cache/
//
// [study]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/study
// [dataset]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/dataset
// [chart]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/chart
// [page]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/page
// [sink]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/visstudy/pkg/buildinfo
package pkg
