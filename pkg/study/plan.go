package study

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// Plan is a batch of experiments loaded from a TOML file.
//
//	title = "Canvas vs SVG"
//
//	[defaults]
//	points = 3000
//	format = "csv"
//
//	[[experiment]]
//	name = "exp_3k_canvas_csv"
type Plan struct {
	Title       string       `toml:"title"`
	Description string       `toml:"description"`
	Defaults    Experiment   `toml:"defaults"`
	Experiments []Experiment `toml:"experiment"`
}

// Experiment is one plan entry. Unset fields are taken from [Plan.Defaults].
type Experiment struct {
	Name       string  `toml:"name"`
	Points     *int    `toml:"points"`
	Categories *int    `toml:"categories"`
	Attributes *int    `toml:"attributes"`
	Width      *int    `toml:"width"`
	Height     *int    `toml:"height"`
	Format     string  `toml:"format"`
	Renderer   string  `toml:"renderer"`
	Seed       *uint64 `toml:"seed"`
}

// LoadPlan reads and decodes a plan file.
func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "plan %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeIO, err, "open plan %s", path)
	}
	defer f.Close()
	return ParsePlan(f)
}

// ParsePlan decodes a plan from r. Unknown keys are rejected so typos in a
// plan surface instead of silently falling back to defaults.
func ParsePlan(r io.Reader) (*Plan, error) {
	var p Plan
	md, err := toml.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPlan, err, "decode plan")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidPlan, "unknown plan key %q", undecoded[0].String())
	}
	return &p, nil
}

// Requests resolves every experiment against the defaults and validates the
// result. It fails if the plan is empty, if any request is invalid, or if two
// experiments resolve to the same slug.
func (p *Plan) Requests() ([]Request, error) {
	if len(p.Experiments) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidPlan, "plan has no [[experiment]] entries")
	}

	reqs := make([]Request, 0, len(p.Experiments))
	for i, e := range p.Experiments {
		r, err := e.resolve(p.Defaults)
		if err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "experiment %d (%s)", i, e.Name)
		}
		if err := r.Validate(); err != nil {
			return nil, errors.Wrap(errors.GetCode(err), err, "experiment %d (%s)", i, e.Name)
		}
		reqs = append(reqs, r)
	}

	if err := CheckDistinct(reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (e Experiment) resolve(d Experiment) (Request, error) {
	r := DefaultRequest()
	r.ExperimentName = firstString(e.Name, d.Name)
	r.NumPoints = firstInt(r.NumPoints, e.Points, d.Points)
	r.NumCategories = firstInt(r.NumCategories, e.Categories, d.Categories)
	r.NumAttributes = firstInt(r.NumAttributes, e.Attributes, d.Attributes)
	r.Width = firstInt(r.Width, e.Width, d.Width)
	r.Height = firstInt(r.Height, e.Height, d.Height)

	if s := firstString(e.Format, d.Format); s != "" {
		f, err := ParseDataFormat(s)
		if err != nil {
			return Request{}, err
		}
		r.DataFormat = f
	}
	if s := firstString(e.Renderer, d.Renderer); s != "" {
		rr, err := ParseRenderer(s)
		if err != nil {
			return Request{}, err
		}
		r.Renderer = rr
	}

	switch {
	case e.Seed != nil:
		r.Seed = *e.Seed
	case d.Seed != nil:
		r.Seed = *d.Seed
	}
	return r, nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(fallback int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return fallback
}
