// Package chart builds the Vega specification of an interactive scatter plot.
//
// [Build] is a pure function of the request: it performs no I/O and uses no
// randomness, so identical requests always yield identical documents. The
// document is a typed model serialized only at the boundary by [Marshal].
//
// The chart plots every row as a circle positioned by x and y, colored by
// category and sized by the first attribute. Clicking legend entries selects
// categories (shift-click toggles); unselected categories are dimmed.
package chart

import (
	"github.com/matzehuels/visstudy/pkg/dataset"
	"github.com/matzehuels/visstudy/pkg/study"
)

// SchemaURL is the Vega schema every spec declares.
const SchemaURL = "https://vega.github.io/schema/vega/v5.json"

// Names of sources, scales, signals and legend parts.
const (
	SourceTable    = "table"
	SourceSelected = "selected"

	ScaleX     = "xscale"
	ScaleY     = "yscale"
	ScaleColor = "color"
	ScaleSize  = "size"

	SignalTooltip = "tooltip"
	SignalShift   = "shift"
	SignalClicked = "clicked"

	FieldTooltipText = "tooltip_text"

	LegendSymbol = "legendSymbol"
	LegendLabel  = "legendLabel"
)

const (
	padding         = 5
	colorScheme     = "category10"
	legendTitle     = "Origin"
	legendEvents    = "@" + LegendSymbol + ":click, @" + LegendLabel + ":click"
	defaultSymbol   = 64
	labelOpacity    = 1.0
	labelDimOpacity = 0.25
)

// Build returns the chart spec for r.
//
// The data source URL is [study.DataPath], relative to the page. When the
// request has no attributes there is no column to size by, so the size scale
// is omitted and points use a constant size.
func Build(r study.Request) Spec {
	sized := r.NumAttributes > 0
	sizeField := dataset.AttrName(0)

	scales := []Scale{
		{
			Name:    ScaleX,
			Type:    "linear",
			Domain:  Domain{Data: SourceTable, Field: dataset.ColumnX},
			Range:   Range{Named: "width"},
			Padding: 0.05,
		},
		{
			Name:   ScaleY,
			Type:   "linear",
			Domain: Domain{Data: SourceTable, Field: dataset.ColumnY},
			Nice:   true,
			Range:  Range{Named: "height"},
		},
		{
			Name:   ScaleColor,
			Type:   "ordinal",
			Range:  Range{Scheme: colorScheme},
			Domain: Domain{Data: SourceTable, Field: dataset.ColumnCategory},
		},
	}

	size := value(defaultSymbol)
	if sized {
		zero := false
		scales = append(scales, Scale{
			Name:   ScaleSize,
			Domain: Domain{Data: SourceTable, Field: sizeField},
			Zero:   &zero,
			Range:  Range{Values: []float64{10, 1000}},
		})
		size = &Production{Scale: ScaleSize, Field: sizeField}
	}

	return Spec{
		Schema:  SchemaURL,
		Width:   r.Width,
		Height:  r.Height,
		Padding: padding,
		Data: []Data{
			{
				Name:   SourceTable,
				URL:    study.DataPath(r),
				Format: &Format{Type: r.DataFormat.String(), Parse: "auto"},
				Transform: []Transform{
					{Type: "formula", Expr: TooltipExpr(r.NumAttributes), As: FieldTooltipText},
				},
			},
			{
				Name: SourceSelected,
				On: []Trigger{
					{Trigger: "!" + SignalShift, Remove: true},
					{Trigger: "!" + SignalShift + " && " + SignalClicked, Insert: SignalClicked},
					{Trigger: SignalShift + " && " + SignalClicked, Toggle: SignalClicked},
				},
			},
		},
		Scales: scales,
		Axes: []Axis{
			{Orient: "bottom", Scale: ScaleX, Grid: true},
			{Orient: "left", Scale: ScaleY, Grid: true},
		},
		Signals: []Signal{
			{
				Name:  SignalTooltip,
				Value: map[string]any{},
				On: []Handler{
					{Events: "symbol:mouseover", Update: "datum"},
					{Events: "symbol:mouseout", Update: "{}"},
				},
			},
			{
				Name:  SignalShift,
				Value: false,
				On:    []Handler{{Events: legendEvents, Update: "event.shiftKey", Force: true}},
			},
			{
				Name:  SignalClicked,
				Value: nil,
				On:    []Handler{{Events: legendEvents, Update: "{value: datum.value}", Force: true}},
			},
		},
		Marks:   []Mark{pointMark(size), tooltipMark()},
		Legends: []Legend{legend()},
	}
}

func pointMark(size *Production) Mark {
	return Mark{
		Name: "marks",
		Type: "symbol",
		From: &From{Data: SourceTable},
		Encode: Encode{Update: &Channels{
			X:           &Production{Scale: ScaleX, Field: dataset.ColumnX},
			Y:           &Production{Scale: ScaleY, Field: dataset.ColumnY},
			Size:        size,
			Shape:       value("circle"),
			StrokeWidth: value(2),
			Opacity: rules(
				Rule{Test: markSelectedExpr(), Value: OpacityActive},
				Rule{Value: OpacityDimmed},
			),
			Stroke: &Production{Value: "#FF0000", Scale: ScaleColor, Field: dataset.ColumnCategory},
			Fill:   &Production{Value: "transparent", Scale: ScaleColor, Field: dataset.ColumnCategory},
		}},
	}
}

func tooltipMark() Mark {
	tip := func(field string) string { return SignalTooltip + "." + field }
	return Mark{
		Type: "text",
		Encode: Encode{
			Enter: &Channels{
				Align:    value("center"),
				Baseline: value("bottom"),
				Fill:     value("#333"),
			},
			Update: &Channels{
				X:    &Production{Scale: ScaleX, Signal: tip(dataset.ColumnX), Band: 0.5},
				Y:    &Production{Scale: ScaleY, Signal: tip(dataset.ColumnY), Offset: -2},
				Text: &Production{Signal: tip(FieldTooltipText)},
				FillOpacity: rules(
					Rule{Test: "isNaN(" + tip(dataset.ColumnX) + ")", Value: 1},
					Rule{Value: 1},
				),
			},
		},
	}
}

func legend() Legend {
	test := SelectedExpr("datum.value")
	return Legend{
		Stroke: ScaleColor,
		Title:  legendTitle,
		Encode: LegendEncode{
			Symbols: &LegendPart{
				Name:        LegendSymbol,
				Interactive: true,
				Update: Channels{
					Fill:        value("transparent"),
					StrokeWidth: value(2),
					Opacity:     rules(Rule{Test: test, Value: OpacityActive}, Rule{Value: OpacityDimmed}),
					Size:        value(defaultSymbol),
				},
			},
			Labels: &LegendPart{
				Name:        LegendLabel,
				Interactive: true,
				Update: Channels{
					Opacity: rules(Rule{Test: test, Value: labelOpacity}, Rule{Value: labelDimOpacity}),
				},
			},
		},
	}
}
