package study

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// Output tree layout, relative to the output root.
const (
	DataDir   = "data"
	SpecsDir  = "specs"
	IndexFile = "index.html"

	PageExt     = ".html"
	dataSuffix  = "_data."
	specSuffix  = "_spec.json"
	slugPattern = `^(.+)_points-(\d+)_format-(csv|json)_categories-(\d+)_attributes-(\d+)_renderer-(canvas|svg)$`
)

var slugRegex = regexp.MustCompile(slugPattern)

// Slug returns the shared base name of every artifact of r.
//
// It concatenates the disambiguating fields (name, points, format,
// categories, attributes, renderer) with fixed separators. Width, height and
// seed are not part of the slug.
func Slug(r Request) string {
	return fmt.Sprintf("%s_points-%d_format-%s_categories-%d_attributes-%d_renderer-%s",
		r.ExperimentName, r.NumPoints, r.DataFormat, r.NumCategories, r.NumAttributes, r.Renderer)
}

// DataPath returns the dataset path relative to the output root.
func DataPath(r Request) string {
	return path.Join(DataDir, Slug(r)+dataSuffix+r.DataFormat.Ext())
}

// SpecPath returns the chart spec path relative to the output root.
func SpecPath(r Request) string {
	return path.Join(SpecsDir, Slug(r)+specSuffix)
}

// PagePath returns the chart page path relative to the output root.
func PagePath(r Request) string {
	return Slug(r) + PageExt
}

// SlugFields holds the request fields recoverable from a slug.
type SlugFields struct {
	ExperimentName string     `json:"experiment_name"`
	NumPoints      int        `json:"num_points"`
	DataFormat     DataFormat `json:"data_format"`
	NumCategories  int        `json:"num_categories"`
	NumAttributes  int        `json:"num_attributes"`
	Renderer       Renderer   `json:"renderer"`
}

// Request returns a request with the slug fields set. Its artifact paths
// equal those of any request the slug was derived from; width, height and
// seed are left zero.
func (f SlugFields) Request() Request {
	return Request{
		ExperimentName: f.ExperimentName,
		NumPoints:      f.NumPoints,
		NumCategories:  f.NumCategories,
		NumAttributes:  f.NumAttributes,
		DataFormat:     f.DataFormat,
		Renderer:       f.Renderer,
	}
}

// ParseSlug inverts [Slug].
//
// The fixed suffix is matched anchored at the end of s, so experiment names
// that themselves contain separator-like text still parse unambiguously.
func ParseSlug(s string) (SlugFields, error) {
	m := slugRegex.FindStringSubmatch(s)
	if m == nil {
		return SlugFields{}, errors.New(errors.ErrCodeInvalidInput, "not a generated slug: %q", s)
	}

	var f SlugFields
	f.ExperimentName = m[1]
	f.NumPoints, _ = strconv.Atoi(m[2])
	f.DataFormat, _ = ParseDataFormat(m[3])
	f.NumCategories, _ = strconv.Atoi(m[4])
	f.NumAttributes, _ = strconv.Atoi(m[5])
	f.Renderer, _ = ParseRenderer(m[6])
	return f, nil
}

// ParsePageName parses a page filename such as "t1_points-3_..._renderer-svg.html".
func ParsePageName(name string) (SlugFields, error) {
	if !strings.HasSuffix(name, PageExt) {
		return SlugFields{}, errors.New(errors.ErrCodeInvalidInput, "not a page filename: %q", name)
	}
	return ParseSlug(strings.TrimSuffix(name, PageExt))
}

// CheckDistinct returns a DUPLICATE_SLUG error if two requests share a slug.
// Requests with distinct slugs write disjoint files and may run in parallel.
func CheckDistinct(reqs []Request) error {
	seen := make(map[string]int, len(reqs))
	for i, r := range reqs {
		s := Slug(r)
		if j, ok := seen[s]; ok {
			return errors.New(errors.ErrCodeDuplicateSlug,
				"experiments %d and %d resolve to the same slug %q", j, i, s)
		}
		seen[s] = i
	}
	return nil
}
