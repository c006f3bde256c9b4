package dataset

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FormatFloat renders v with the shortest representation that parses back
// to the same float64.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteMatrix encodes m as CSV with header as the first line. Values round
// trip exactly through ReadMatrix.
func WriteMatrix(m mat.Matrix, header []string) ([]byte, error) {
	r, c := m.Dims()
	if len(header) != c {
		return nil, errors.NewDimensionError("dataset.WriteMatrix", c, len(header), 1)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			record[j] = FormatFloat(m.At(i, j))
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrapf(err, "write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}
	return buf.Bytes(), nil
}

// ReadMatrix decodes CSV written by WriteMatrix.
func ReadMatrix(data []byte) (*mat.Dense, []string, error) {
	f, err := ParseCSV(data)
	if err != nil {
		return nil, nil, err
	}
	m, err := f.Floats(f.Header)
	if err != nil {
		return nil, nil, err
	}
	return m, f.Header, nil
}
