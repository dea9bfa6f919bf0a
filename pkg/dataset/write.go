package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"iter"

	"github.com/bytedance/sonic"

	"github.com/matzehuels/visstudy/pkg/errors"
	"github.com/matzehuels/visstudy/pkg/study"
)

// Write serializes rows in r.DataFormat and returns the number of rows
// written. An unknown format fails before anything is written.
func Write(w io.Writer, r study.Request, rows iter.Seq[Row]) (int, error) {
	switch r.DataFormat {
	case study.FormatCSV:
		return writeCSV(w, r.NumAttributes, rows)
	case study.FormatJSON:
		return writeJSON(w, rows)
	default:
		return 0, errors.New(errors.ErrCodeInvalidFormat, "unknown data format %s", r.DataFormat)
	}
}

func writeCSV(w io.Writer, numAttrs int, rows iter.Seq[Row]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(numAttrs)); err != nil {
		return 0, errors.Wrap(errors.ErrCodeIO, err, "write csv header")
	}

	n := 0
	for row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return n, errors.Wrap(errors.ErrCodeIO, err, "write csv row %d", n)
		}
		n++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, errors.Wrap(errors.ErrCodeIO, err, "flush csv")
	}
	return n, nil
}

// writeJSON emits a single array, one element at a time.
func writeJSON(w io.Writer, rows iter.Seq[Row]) (int, error) {
	bw := bufio.NewWriter(w)
	if err := bw.WriteByte('['); err != nil {
		return 0, errors.Wrap(errors.ErrCodeIO, err, "write json")
	}

	n := 0
	for row := range rows {
		b, err := sonic.Marshal(row)
		if err != nil {
			return n, errors.Wrap(errors.ErrCodeInternal, err, "encode row %d", n)
		}
		if n > 0 {
			if err := bw.WriteByte(','); err != nil {
				return n, errors.Wrap(errors.ErrCodeIO, err, "write json")
			}
		}
		if _, err := bw.Write(b); err != nil {
			return n, errors.Wrap(errors.ErrCodeIO, err, "write json row %d", n)
		}
		n++
	}

	if err := bw.WriteByte(']'); err != nil {
		return n, errors.Wrap(errors.ErrCodeIO, err, "write json")
	}
	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(errors.ErrCodeIO, err, "flush json")
	}
	return n, nil
}
