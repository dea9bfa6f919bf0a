package chart

import (
	"github.com/bytedance/sonic"
)

// Spec is a Vega v5 document. Only the subset used by the generated charts is
// modeled.
type Spec struct {
	Schema  string   `json:"$schema"`
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Padding int      `json:"padding"`
	Data    []Data   `json:"data"`
	Scales  []Scale  `json:"scales"`
	Axes    []Axis   `json:"axes"`
	Signals []Signal `json:"signals"`
	Marks   []Mark   `json:"marks"`
	Legends []Legend `json:"legends"`
}

// Data is a named data source. Sources either load a URL or are maintained
// client-side through triggers.
type Data struct {
	Name      string      `json:"name"`
	URL       string      `json:"url,omitempty"`
	Format    *Format     `json:"format,omitempty"`
	Transform []Transform `json:"transform,omitempty"`
	On        []Trigger   `json:"on,omitempty"`
}

// Format declares how the runtime parses a loaded source.
type Format struct {
	Type  string `json:"type"`
	Parse string `json:"parse"`
}

// Transform is a data transform. Only formula transforms are produced.
type Transform struct {
	Type string `json:"type"`
	Expr string `json:"expr"`
	As   string `json:"as"`
}

// Trigger updates a client-side source when its expression is truthy.
type Trigger struct {
	Trigger string `json:"trigger"`
	Remove  bool   `json:"remove,omitempty"`
	Insert  string `json:"insert,omitempty"`
	Toggle  string `json:"toggle,omitempty"`
}

// Scale maps data values to visual values.
type Scale struct {
	Name    string  `json:"name"`
	Type    string  `json:"type,omitempty"`
	Domain  Domain  `json:"domain"`
	Range   Range   `json:"range"`
	Padding float64 `json:"padding,omitempty"`
	Nice    bool    `json:"nice,omitempty"`
	Zero    *bool   `json:"zero,omitempty"`
}

// Domain binds a scale to a field of a data source.
type Domain struct {
	Data  string `json:"data"`
	Field string `json:"field"`
}

// Range is one of a named range ("width"), a color scheme or literal values.
type Range struct {
	Named  string
	Scheme string
	Values []float64
}

// MarshalJSON encodes whichever form is set.
func (r Range) MarshalJSON() ([]byte, error) {
	switch {
	case r.Scheme != "":
		return sonic.Marshal(struct {
			Scheme string `json:"scheme"`
		}{r.Scheme})
	case r.Values != nil:
		return sonic.Marshal(r.Values)
	default:
		return sonic.Marshal(r.Named)
	}
}

// Axis draws a scale along one edge.
type Axis struct {
	Orient string `json:"orient"`
	Scale  string `json:"scale"`
	Grid   bool   `json:"grid"`
}

// Signal is a reactive value driven by event handlers.
type Signal struct {
	Name  string    `json:"name"`
	Value any       `json:"value"`
	On    []Handler `json:"on"`
}

// Handler updates a signal on matching events.
type Handler struct {
	Events string `json:"events"`
	Update string `json:"update"`
	Force  bool   `json:"force,omitempty"`
}

// Mark is a graphical mark.
type Mark struct {
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	From   *From  `json:"from,omitempty"`
	Encode Encode `json:"encode"`
}

// From names the data source a mark iterates over.
type From struct {
	Data string `json:"data"`
}

// Encode holds the encoding sets of a mark.
type Encode struct {
	Enter  *Channels `json:"enter,omitempty"`
	Update *Channels `json:"update,omitempty"`
}

// Channels are the visual properties set by an encoding.
type Channels struct {
	X           *Production `json:"x,omitempty"`
	Y           *Production `json:"y,omitempty"`
	Size        *Production `json:"size,omitempty"`
	Shape       *Production `json:"shape,omitempty"`
	StrokeWidth *Production `json:"strokeWidth,omitempty"`
	Opacity     *Production `json:"opacity,omitempty"`
	Stroke      *Production `json:"stroke,omitempty"`
	Fill        *Production `json:"fill,omitempty"`
	FillOpacity *Production `json:"fillOpacity,omitempty"`
	Align       *Production `json:"align,omitempty"`
	Baseline    *Production `json:"baseline,omitempty"`
	Text        *Production `json:"text,omitempty"`
}

// Production is a value reference, or a list of rules when Rules is set.
// Rules are evaluated in order; the first rule whose test passes wins.
type Production struct {
	Value  any     `json:"value,omitempty"`
	Scale  string  `json:"scale,omitempty"`
	Field  string  `json:"field,omitempty"`
	Signal string  `json:"signal,omitempty"`
	Band   float64 `json:"band,omitempty"`
	Offset float64 `json:"offset,omitempty"`

	Rules []Rule `json:"-"`
}

// MarshalJSON encodes the rule list when present, otherwise the reference.
func (p Production) MarshalJSON() ([]byte, error) {
	if len(p.Rules) > 0 {
		return sonic.Marshal(p.Rules)
	}
	type ref Production
	return sonic.Marshal(ref(p))
}

// Rule is one conditional branch of a production. An empty Test always
// matches.
type Rule struct {
	Test  string `json:"test,omitempty"`
	Value any    `json:"value"`
}

// Legend describes a legend bound to a scale.
type Legend struct {
	Stroke string       `json:"stroke"`
	Title  string       `json:"title"`
	Encode LegendEncode `json:"encode"`
}

// LegendEncode customizes legend parts.
type LegendEncode struct {
	Symbols *LegendPart `json:"symbols,omitempty"`
	Labels  *LegendPart `json:"labels,omitempty"`
}

// LegendPart is a named, optionally interactive legend element.
type LegendPart struct {
	Name        string   `json:"name"`
	Interactive bool     `json:"interactive"`
	Update      Channels `json:"update"`
}

// value returns a constant production.
func value(v any) *Production { return &Production{Value: v} }

// rules returns a production evaluating rs in order.
func rules(rs ...Rule) *Production { return &Production{Rules: rs} }
