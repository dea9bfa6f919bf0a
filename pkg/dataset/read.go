package dataset

import (
	"encoding/csv"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/study"
)

// Read parses a dataset previously produced by [Write].
func Read(r io.Reader, format study.DataFormat) ([]Row, error) {
	switch format {
	case study.FormatCSV:
		return ReadCSV(r)
	case study.FormatJSON:
		return ReadJSON(r)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown data format %s", format)
	}
}

// ReadCSV parses a CSV dataset. The header must match [Columns] exactly.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv header")
	}
	numAttrs := len(header) - 3
	if numAttrs < 0 || !slices.Equal(header, Columns(numAttrs)) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unexpected csv header %q", strings.Join(header, ","))
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read csv line %d", line)
		}

		row := Row{Category: rec[0]}
		nums := make([]float64, len(rec)-1)
		for i, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "line %d column %s", line, header[i+1])
			}
			nums[i] = v
		}
		row.X, row.Y = nums[0], nums[1]
		if numAttrs > 0 {
			row.Attrs = nums[2:]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadJSON parses a JSON dataset. Every object must carry exactly the
// [Columns] keys for a common attribute count.
func ReadJSON(r io.Reader) ([]Row, error) {
	var objs []map[string]any
	if err := sonic.ConfigDefault.NewDecoder(r).Decode(&objs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json dataset")
	}

	rows := make([]Row, 0, len(objs))
	numAttrs := -1
	for i, obj := range objs {
		n := len(obj) - 3
		if numAttrs == -1 {
			numAttrs = n
		}
		if n != numAttrs || n < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "object %d has keys %v", i, sortedKeys(obj))
		}

		cat, ok := obj[ColumnCategory].(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "object %d: missing %s", i, ColumnCategory)
		}
		row := Row{Category: cat}
		var err error
		if row.X, err = number(obj, ColumnX, i); err != nil {
			return nil, err
		}
		if row.Y, err = number(obj, ColumnY, i); err != nil {
			return nil, err
		}
		if n > 0 {
			row.Attrs = make([]float64, n)
			for a := range n {
				if row.Attrs[a], err = number(obj, AttrName(a), i); err != nil {
					return nil, err
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func number(obj map[string]any, key string, i int) (float64, error) {
	v, ok := obj[key].(float64)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "object %d: missing or non-numeric %s", i, key)
	}
	return v, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summary describes a parsed dataset.
type Summary struct {
	Rows       int            `json:"rows"`
	Attributes int            `json:"attributes"`
	Categories map[string]int `json:"categories"`
}

// Summarize counts rows per category.
func Summarize(rows []Row) Summary {
	s := Summary{Rows: len(rows), Categories: make(map[string]int)}
	for _, r := range rows {
		s.Categories[r.Category]++
		s.Attributes = max(s.Attributes, len(r.Attrs))
	}
	return s
}
