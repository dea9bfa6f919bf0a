package chart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/visstudy/pkg/dataset"
	"github.com/matzehuels/visstudy/pkg/study"
)

func request() study.Request {
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

func TestBuildIsPure(t *testing.T) {
	r := request()
	a, b := Build(r), Build(r)
	assert.Equal(t, a, b)

	ja, err := Marshal(a)
	require.NoError(t, err)
	jb, err := Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestBuildRendererOnlyChangesDataURL(t *testing.T) {
	ra := request()
	rb := request()
	rb.Renderer = study.RendererSVG

	a, b := Build(ra), Build(rb)
	require.NotEmpty(t, a.Data)
	require.NotEmpty(t, b.Data)
	assert.Equal(t, study.DataPath(ra), a.Data[0].URL)
	assert.Equal(t, study.DataPath(rb), b.Data[0].URL)
	assert.NotEqual(t, a.Data[0].URL, b.Data[0].URL)

	a.Data[0].URL, b.Data[0].URL = "", ""
	assert.Equal(t, a, b)
}

func TestTooltipExpr(t *testing.T) {
	assert.Equal(t, "'data: '", TooltipExpr(0))
	assert.Equal(t, "'data: ' + ' ' + datum.attr_0 + ' ' + datum.attr_1", TooltipExpr(2))
}

func TestSelectedExpr(t *testing.T) {
	assert.Equal(t,
		"!length(data('selected')) || indata('selected', 'value', datum.value)",
		SelectedExpr("datum.value"))
	assert.Equal(t,
		"!length(data('selected')) || (indata('selected', 'value', datum.category))",
		markSelectedExpr())
}

func TestMarkOpacity(t *testing.T) {
	tests := []struct {
		name      string
		selection []string
		category  string
		want      float64
	}{
		{"empty selection", nil, "category_0", 0.7},
		{"selected", []string{"category_0"}, "category_0", 0.7},
		{"not selected", []string{"category_1"}, "category_0", 0.15},
		{"multi selected", []string{"category_1", "category_3"}, "category_3", 0.7},
		{"multi not selected", []string{"category_1", "category_3"}, "category_2", 0.15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkOpacity(tt.selection, tt.category))
			assert.Equal(t, tt.want == OpacityDimmed, Dimmed(tt.selection, tt.category))
		})
	}
}

func TestFieldsSubsetOfColumns(t *testing.T) {
	for _, n := range []int{0, 1, 4} {
		r := request()
		r.NumAttributes = n
		cols := dataset.Columns(n)
		for _, f := range Fields(Build(r)) {
			assert.Contains(t, cols, f, "attributes=%d", n)
		}
	}
	assert.Equal(t, []string{"attr_0", "category", "x", "y"}, Fields(Build(request())))
}

func TestBuildWithoutAttributes(t *testing.T) {
	r := request()
	r.NumAttributes = 0
	spec := Build(r)

	for _, s := range spec.Scales {
		assert.NotEqual(t, ScaleSize, s.Name)
	}
	assert.Equal(t, defaultSymbol, spec.Marks[0].Encode.Update.Size.Value)
}

func TestMarshalStructure(t *testing.T) {
	r := request()
	b, err := Marshal(Build(r))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"!shift && clicked"`)
	assert.True(t, strings.HasPrefix(string(b), "{\n  \"$schema\""))

	doc, err := Unmarshal(b)
	require.NoError(t, err)

	assert.Equal(t, SchemaURL, doc["$schema"])
	assert.EqualValues(t, 400, doc["width"])
	assert.EqualValues(t, 300, doc["height"])
	assert.EqualValues(t, 5, doc["padding"])

	data := doc["data"].([]any)
	require.Len(t, data, 2)
	table := data[0].(map[string]any)
	assert.Equal(t, study.DataPath(r), table["url"])
	assert.Equal(t, map[string]any{"type": "json", "parse": "auto"}, table["format"])

	selected := data[1].(map[string]any)
	assert.Equal(t, []any{
		map[string]any{"trigger": "!shift", "remove": true},
		map[string]any{"trigger": "!shift && clicked", "insert": "clicked"},
		map[string]any{"trigger": "shift && clicked", "toggle": "clicked"},
	}, selected["on"])

	scales := doc["scales"].([]any)
	require.Len(t, scales, 4)
	color := scales[2].(map[string]any)
	assert.Equal(t, "color", color["name"])
	assert.Equal(t, map[string]any{"scheme": "category10"}, color["range"])
	assert.Equal(t, "category", color["domain"].(map[string]any)["field"])

	size := scales[3].(map[string]any)
	assert.Equal(t, false, size["zero"])
	assert.Equal(t, []any{10.0, 1000.0}, size["range"])
	assert.Equal(t, "width", scales[0].(map[string]any)["range"])

	signals := doc["signals"].([]any)
	require.Len(t, signals, 3)
	assert.Equal(t, map[string]any{}, signals[0].(map[string]any)["value"])
	assert.Equal(t, false, signals[1].(map[string]any)["value"])
	clicked := signals[2].(map[string]any)
	v, ok := clicked["value"]
	assert.True(t, ok)
	assert.Nil(t, v)

	marks := doc["marks"].([]any)
	update := marks[0].(map[string]any)["encode"].(map[string]any)["update"].(map[string]any)
	assert.Equal(t, []any{
		map[string]any{"test": markSelectedExpr(), "value": 0.7},
		map[string]any{"value": 0.15},
	}, update["opacity"])
	assert.Equal(t, map[string]any{"value": "#FF0000", "scale": "color", "field": "category"}, update["stroke"])

	text := marks[1].(map[string]any)
	assert.Equal(t, "text", text["type"])
	_, named := text["name"]
	assert.False(t, named)

	legends := doc["legends"].([]any)
	require.Len(t, legends, 1)
	assert.Equal(t, "Origin", legends[0].(map[string]any)["title"])
}
