// Package page renders the HTML pages of a study: one chart page per
// experiment and an index listing every generated page.
//
// Pages reference the chart spec and the dataset by relative URL, so the
// output directory can be served by any static file server. Rendering never
// touches the filesystem; the write-once rule for pages is enforced by the
// sink that stores them.
package page

import (
	"bytes"
	"embed"
	"html/template"
	"sort"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/study"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

const (
	chartTemplate = "chart.html.tmpl"
	indexTemplate = "index.html.tmpl"

	// DefaultIndexTitle is used when IndexOptions.Title is empty.
	DefaultIndexTitle = "Visualization study"
)

type param struct {
	Key   string
	Value string
}

type chartData struct {
	Title    string
	Params   []param
	SpecURL  string
	DataURL  string
	IndexURL string
	Renderer string
}

// Chart renders the page of one experiment. specURL and dataURL are usually
// [study.SpecPath] and [study.DataPath]. The renderer is passed to the
// viewer as a display hint only.
func Chart(r study.Request, specURL, dataURL string) ([]byte, error) {
	renderer, err := rendererHint(r.Renderer)
	if err != nil {
		return nil, err
	}

	data := chartData{
		Title: r.ExperimentName,
		Params: []param{
			{"experiment", r.ExperimentName},
			{"points", strconv.Itoa(r.NumPoints)},
			{"categories", strconv.Itoa(r.NumCategories)},
			{"attributes", strconv.Itoa(r.NumAttributes)},
			{"size", strconv.Itoa(r.Width) + " × " + strconv.Itoa(r.Height)},
			{"format", r.DataFormat.String()},
			{"renderer", renderer},
		},
		SpecURL:  specURL,
		DataURL:  dataURL,
		IndexURL: study.IndexFile,
		Renderer: renderer,
	}
	return execute(chartTemplate, data)
}

func rendererHint(r study.Renderer) (string, error) {
	switch r {
	case study.RendererCanvas:
		return "canvas", nil
	case study.RendererSVG:
		return "svg", nil
	default:
		return "", errors.New(errors.ErrCodeInvalidRenderer, "unknown renderer %s", r)
	}
}

// IndexOptions customizes the index page.
type IndexOptions struct {
	Title string `json:"title"`
	// Description is Markdown rendered above the listing.
	Description string `json:"description"`
}

type indexEntry struct {
	File   string
	Parsed bool
	Fields study.SlugFields
}

type indexData struct {
	Title       string
	Description template.HTML
	Pages       []indexEntry
}

// Index renders the listing of pages. Filenames are sorted lexicographically;
// names produced by [study.PagePath] are annotated with their parameters.
func Index(pages []string, opts IndexOptions) ([]byte, error) {
	sorted := append([]string(nil), pages...)
	sort.Strings(sorted)

	data := indexData{Title: opts.Title}
	if data.Title == "" {
		data.Title = DefaultIndexTitle
	}
	if opts.Description != "" {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(opts.Description), &buf); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "render index description")
		}
		data.Description = template.HTML(buf.String())
	}

	for _, name := range sorted {
		e := indexEntry{File: name}
		if f, err := study.ParsePageName(name); err == nil {
			e.Parsed, e.Fields = true, f
		}
		data.Pages = append(data.Pages, e)
	}
	return execute(indexTemplate, data)
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", name)
	}
	return buf.Bytes(), nil
}
