// Package study defines the experiment request model and the naming scheme
// shared by every generated artifact.
//
// A [Request] describes one synthetic scatter-plot experiment. It is created
// once by the caller and passed by value to the dataset generator, the chart
// builder and the page renderer, none of which modify it.
//
// All artifacts of a request share a deterministic [Slug]. [DataPath],
// [SpecPath] and [PagePath] derive the relative output paths from it; the same
// strings are used as relative URLs inside the chart spec and the page.
//
// Batches of requests can be described in a TOML [Plan].
package study

import (
	"fmt"
	"strings"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// DataFormat selects how a dataset is serialized.
type DataFormat int

// Supported data formats. The zero value is invalid.
const (
	FormatCSV DataFormat = iota + 1
	FormatJSON
)

// ParseDataFormat parses a format name ("csv" or "json", case-insensitive).
func ParseDataFormat(s string) (DataFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidFormat, "unknown data format %q (must be csv or json)", s)
	}
}

// String returns the lowercase format name.
func (f DataFormat) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("DataFormat(%d)", int(f))
	}
}

// Ext returns the file extension (without dot) used for datasets in this format.
func (f DataFormat) Ext() string { return f.String() }

// Valid reports whether f is one of the supported formats.
func (f DataFormat) Valid() bool { return f == FormatCSV || f == FormatJSON }

// MarshalText implements encoding.TextMarshaler.
func (f DataFormat) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown data format %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *DataFormat) UnmarshalText(text []byte) error {
	v, err := ParseDataFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Renderer is the rendering mode hint passed to the chart page. It does not
// change the dataset or the chart spec.
type Renderer int

// Supported renderers. The zero value is invalid.
const (
	RendererCanvas Renderer = iota + 1
	RendererSVG
)

// ParseRenderer parses a renderer name ("canvas" or "svg", case-insensitive).
func ParseRenderer(s string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "canvas":
		return RendererCanvas, nil
	case "svg":
		return RendererSVG, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidRenderer, "unknown renderer %q (must be canvas or svg)", s)
	}
}

// String returns the lowercase renderer name.
func (r Renderer) String() string {
	switch r {
	case RendererCanvas:
		return "canvas"
	case RendererSVG:
		return "svg"
	default:
		return fmt.Sprintf("Renderer(%d)", int(r))
	}
}

// Valid reports whether r is one of the supported renderers.
func (r Renderer) Valid() bool { return r == RendererCanvas || r == RendererSVG }

// MarshalText implements encoding.TextMarshaler.
func (r Renderer) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidRenderer, "unknown renderer %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Renderer) UnmarshalText(text []byte) error {
	v, err := ParseRenderer(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Request holds the generation parameters of one experiment.
type Request struct {
	ExperimentName string     `json:"experiment_name" toml:"experiment_name"`
	NumPoints      int        `json:"num_points" toml:"num_points"`
	NumCategories  int        `json:"num_categories" toml:"num_categories"`
	NumAttributes  int        `json:"num_attributes" toml:"num_attributes"`
	Width          int        `json:"width" toml:"width"`
	Height         int        `json:"height" toml:"height"`
	DataFormat     DataFormat `json:"data_format" toml:"data_format"`
	Renderer       Renderer   `json:"renderer" toml:"renderer"`

	// Seed makes the dataset reproducible. Zero means unseeded. It is not part
	// of the slug, so re-running with a different seed overwrites the same files.
	Seed uint64 `json:"seed,omitempty" toml:"seed,omitempty"`
}

// Defaults used by [DefaultRequest].
const (
	DefaultExperimentName = "exp_300k_canvas_csv"
	DefaultPoints         = 3000
	DefaultCategories     = 14
	DefaultAttributes     = 5
	DefaultWidth          = 500
	DefaultHeight         = 500
)

// DefaultRequest returns the canonical single-experiment request.
func DefaultRequest() Request {
	return Request{
		ExperimentName: DefaultExperimentName,
		NumPoints:      DefaultPoints,
		NumCategories:  DefaultCategories,
		NumAttributes:  DefaultAttributes,
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		DataFormat:     FormatCSV,
		Renderer:       RendererCanvas,
	}
}

// Validate checks every field constraint.
func (r Request) Validate() error {
	if err := errors.ValidateExperimentName(r.ExperimentName); err != nil {
		return err
	}
	if r.NumPoints <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "num_points must be positive, got %d", r.NumPoints)
	}
	if r.NumCategories <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "num_categories must be positive, got %d", r.NumCategories)
	}
	if r.NumAttributes < 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "num_attributes cannot be negative, got %d", r.NumAttributes)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "width and height must be positive, got %dx%d", r.Width, r.Height)
	}
	if !r.DataFormat.Valid() {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown data format %s", r.DataFormat)
	}
	if !r.Renderer.Valid() {
		return errors.New(errors.ErrCodeInvalidRenderer, "unknown renderer %s", r.Renderer)
	}
	return nil
}
