package chart

import (
	"slices"

	"github.com/bytedance/sonic"

	"github.com/matzehuels/visstudy/pkg/errors"
)

// Marshal serializes spec as indented JSON. HTML characters are not escaped,
// so expressions like "!shift && clicked" stay readable.
func Marshal(spec Spec) ([]byte, error) {
	b, err := sonic.ConfigDefault.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode chart spec")
	}
	return b, nil
}

// Unmarshal decodes a serialized spec into a generic tree.
func Unmarshal(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := sonic.ConfigDefault.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode chart spec")
	}
	return doc, nil
}

// Fields returns the sorted, de-duplicated dataset columns referenced by
// spec's scale domains and mark encodings.
func Fields(spec Spec) []string {
	var fields []string
	add := func(f string) {
		if f != "" && !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}

	for _, s := range spec.Scales {
		add(s.Domain.Field)
	}
	for _, m := range spec.Marks {
		for _, c := range []*Channels{m.Encode.Enter, m.Encode.Update} {
			if c == nil {
				continue
			}
			for _, p := range c.productions() {
				add(p.Field)
			}
		}
	}

	slices.Sort(fields)
	return fields
}

func (c *Channels) productions() []*Production {
	all := []*Production{
		c.X, c.Y, c.Size, c.Shape, c.StrokeWidth, c.Opacity,
		c.Stroke, c.Fill, c.FillOpacity, c.Align, c.Baseline, c.Text,
	}
	return slices.DeleteFunc(all, func(p *Production) bool { return p == nil })
}
