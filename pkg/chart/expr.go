package chart

import (
	"slices"
	"strings"

	"github.com/matzehuels/visstudy/pkg/dataset"
)

// The helpers below build Vega expression strings. They are evaluated by the
// Vega runtime in the browser, never by Go.

// TooltipExpr returns the formula for the derived tooltip text: the literal
// 'data: ' followed by every attribute value, space-separated.
func TooltipExpr(numAttributes int) string {
	var b strings.Builder
	b.WriteString("'data: '")
	for i := range numAttributes {
		b.WriteString(" + ' ' + datum.")
		b.WriteString(dataset.AttrName(i))
	}
	return b.String()
}

// inSelection tests whether field is a member of the selection source.
func inSelection(field string) string {
	return "indata('" + SourceSelected + "', 'value', " + field + ")"
}

// SelectedExpr is true when the selection is empty or field is selected.
func SelectedExpr(field string) string {
	return "!length(data('" + SourceSelected + "')) || " + inSelection(field)
}

// markSelectedExpr is [SelectedExpr] for data points, keyed by category.
func markSelectedExpr() string {
	return "!length(data('" + SourceSelected + "')) || (" + inSelection("datum."+dataset.ColumnCategory) + ")"
}

// Mark opacities under the selection rule.
const (
	OpacityActive = 0.7
	OpacityDimmed = 0.15
)

// Dimmed mirrors the chart's selection rule: a category is dimmed exactly
// when the selection is non-empty and does not contain it.
func Dimmed(selection []string, category string) bool {
	return len(selection) > 0 && !slices.Contains(selection, category)
}

// MarkOpacity returns the opacity the chart assigns to a point of category.
func MarkOpacity(selection []string, category string) float64 {
	if Dimmed(selection, category) {
		return OpacityDimmed
	}
	return OpacityActive
}
