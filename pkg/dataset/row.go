// Package dataset generates, serializes and parses synthetic scatter-plot
// datasets.
//
// Every row has a category label, two coordinates and a configurable number
// of numeric attributes. [Columns] is the single source of truth for the row
// shape: the CSV header, the CSV cell order and the JSON object key order are
// all derived from it.
//
//	gen := dataset.NewGenerator(42)
//	n, err := dataset.Write(w, req, gen.Rows(req))
package dataset

import (
	"strconv"

	"github.com/bytedance/sonic"
)

// Column names shared by every dataset.
const (
	ColumnCategory = "category"
	ColumnX        = "x"
	ColumnY        = "y"
	attrPrefix     = "attr_"
	categoryPrefix = "category_"
)

// Columns returns the canonical column order for a dataset with n attributes:
// category, x, y, attr_0 … attr_{n-1}.
func Columns(n int) []string {
	cols := make([]string, 0, 3+n)
	cols = append(cols, ColumnCategory, ColumnX, ColumnY)
	for i := range n {
		cols = append(cols, AttrName(i))
	}
	return cols
}

// AttrName returns the column name of attribute i.
func AttrName(i int) string { return attrPrefix + strconv.Itoa(i) }

// CategoryName returns the label of category k.
func CategoryName(k int) string { return categoryPrefix + strconv.Itoa(k) }

// Row is one data point.
type Row struct {
	Category string
	X, Y     float64
	Attrs    []float64
}

// Values returns the row's cells in [Columns] order.
func (r Row) Values() []string {
	vals := make([]string, 0, 3+len(r.Attrs))
	vals = append(vals, r.Category, formatFloat(r.X), formatFloat(r.Y))
	for _, a := range r.Attrs {
		vals = append(vals, formatFloat(a))
	}
	return vals
}

// MarshalJSON encodes the row as an object whose keys follow [Columns] order.
func (r Row) MarshalJSON() ([]byte, error) {
	cat, err := sonic.Marshal(r.Category)
	if err != nil {
		return nil, err
	}

	cols := Columns(len(r.Attrs))
	buf := make([]byte, 0, 48+24*len(r.Attrs))
	buf = append(buf, '{')
	buf = appendKey(buf, cols[0])
	buf = append(buf, cat...)
	buf = append(buf, ',')
	buf = appendKey(buf, cols[1])
	buf = strconv.AppendFloat(buf, r.X, 'g', -1, 64)
	buf = append(buf, ',')
	buf = appendKey(buf, cols[2])
	buf = strconv.AppendFloat(buf, r.Y, 'g', -1, 64)
	for i, a := range r.Attrs {
		buf = append(buf, ',')
		buf = appendKey(buf, cols[3+i])
		buf = strconv.AppendFloat(buf, a, 'g', -1, 64)
	}
	buf = append(buf, '}')
	return buf, nil
}

func appendKey(buf []byte, key string) []byte {
	buf = append(buf, '"')
	buf = append(buf, key...)
	return append(buf, '"', ':')
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
