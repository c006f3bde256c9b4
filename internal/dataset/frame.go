// Package dataset reads the raw tabular data and moves numeric matrices in
// and out of CSV.
package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Frame is a header plus string cells. Cells are parsed on demand, so a Frame
// can hold any schema.
type Frame struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewFrame builds a Frame from a header and rows of the same width.
func NewFrame(header []string, rows [][]string) (*Frame, error) {
	f := &Frame{Header: header, Rows: rows}
	if err := f.buildIndex(); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return nil, errors.Wrapf(errors.NewDimensionError("dataset.NewFrame", len(header), len(row), 1), "row %d", i+1)
		}
	}
	return f, nil
}

func (f *Frame) buildIndex() error {
	f.index = make(map[string]int, len(f.Header))
	for i, name := range f.Header {
		name = strings.TrimSpace(name)
		f.Header[i] = name
		if _, dup := f.index[name]; dup {
			return errors.NewValueError("dataset", "duplicate column "+strconv.Quote(name))
		}
		f.index[name] = i
	}
	return nil
}

// ReadCSV parses CSV with a header line and at least one data row.
func ReadCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no header")
	}
	if len(records) == 1 {
		return nil, errors.Wrap(errors.ErrEmptyData, "csv has no data rows")
	}
	return NewFrame(records[0], records[1:])
}

// ParseCSV is ReadCSV over a byte slice.
func ParseCSV(data []byte) (*Frame, error) {
	return ReadCSV(bytes.NewReader(data))
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Has reports whether column name is present.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Missing returns the names not present in the header, in argument order.
func (f *Frame) Missing(names []string) []string {
	var out []string
	for _, n := range names {
		if !f.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func (f *Frame) columnIndices(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for j, n := range names {
		i, ok := f.index[n]
		if !ok {
			return nil, errors.NewFeatureMismatchError("select", names, f.Header)
		}
		idx[j] = i
	}
	return idx, nil
}

// Strings returns the cells of the named columns, one slice per row.
func (f *Frame) Strings(names []string) ([][]string, error) {
	idx, err := f.columnIndices(names)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		sel := make([]string, len(idx))
		for j, c := range idx {
			sel[j] = strings.TrimSpace(row[c])
		}
		out[i] = sel
	}
	return out, nil
}

// Floats parses the named columns into a rows x len(names) matrix. The error
// names the first cell that is not a number.
func (f *Frame) Floats(names []string) (*mat.Dense, error) {
	idx, err := f.columnIndices(names)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 || len(f.Rows) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no numeric cells")
	}
	out := mat.NewDense(len(f.Rows), len(names), nil)
	for i, row := range f.Rows {
		for j, c := range idx {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d column %q", i+1, names[j])
			}
			out.Set(i, j, v)
		}
	}
	return out, nil
}
