package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/heartml/core/model"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// OneHotEncoder encodes string columns as 0/1 indicator columns, one per
// category seen during Fit. Categories are kept in sorted order, and with
// DropFirst the first category of every column becomes the implicit
// reference level and gets no indicator.
type OneHotEncoder struct {
	model.StateManager

	// DropFirst drops the indicator of the first sorted category per column.
	DropFirst bool

	// Columns holds the input column names. Defaults to x0, x1, ... when
	// SetFeatureNames was not called before Fit.
	Columns []string

	// Categories holds the sorted categories of each input column.
	Categories [][]string
}

// NewOneHotEncoder creates an encoder. dropFirst mirrors scikit-learn's
// drop="first".
//
//	enc := preprocessing.NewOneHotEncoder(true)
//	enc.SetFeatureNames([]string{"Sex", "ST_Slope"})
//	X, err := enc.FitTransform(rows)
func NewOneHotEncoder(dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{DropFirst: dropFirst}
}

// SetFeatureNames records the names of the columns Fit will see.
func (e *OneHotEncoder) SetFeatureNames(names []string) {
	e.Columns = append([]string(nil), names...)
}

// Fit learns the categories of every column of X, where X[i][j] is the
// value of column j in row i.
func (e *OneHotEncoder) Fit(X [][]string) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.NewModelError("OneHotEncoder.Fit", "empty data", errors.ErrEmptyData)
	}
	nCols := len(X[0])
	if e.Columns != nil && len(e.Columns) != nCols {
		return errors.NewDimensionError("OneHotEncoder.Fit", len(e.Columns), nCols, 1)
	}

	seen := make([]map[string]struct{}, nCols)
	for j := range seen {
		seen[j] = make(map[string]struct{})
	}
	for i, row := range X {
		if len(row) != nCols {
			return errors.Wrapf(errors.NewDimensionError("OneHotEncoder.Fit", nCols, len(row), 1), "row %d", i)
		}
		for j, v := range row {
			seen[j][v] = struct{}{}
		}
	}

	e.Categories = make([][]string, nCols)
	for j, set := range seen {
		cats := make([]string, 0, len(set))
		for v := range set {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		e.Categories[j] = cats
	}
	if e.Columns == nil {
		e.Columns = make([]string, nCols)
		for j := range e.Columns {
			e.Columns[j] = fmt.Sprintf("x%d", j)
		}
	}

	e.SetFitted(nCols, len(X))
	return nil
}

// Transform encodes X with the categories learned by Fit. A value that was
// not seen during Fit is an error wrapping ErrUnknownCategory.
func (e *OneHotEncoder) Transform(X [][]string) (*mat.Dense, error) {
	if err := e.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, errors.NewModelError("OneHotEncoder.Transform", "empty data", errors.ErrEmptyData)
	}

	offsets, width := e.layout()
	if width == 0 {
		return nil, errors.NewValueError("OneHotEncoder.Transform", "every column has a single category; no indicators to produce")
	}
	result := mat.NewDense(len(X), width, nil)
	for i, row := range X {
		if err := e.RequireFeatures("OneHotEncoder.Transform", len(row)); err != nil {
			return nil, err
		}
		for j, v := range row {
			k := sort.SearchStrings(e.Categories[j], v)
			if k == len(e.Categories[j]) || e.Categories[j][k] != v {
				return nil, errors.Wrapf(errors.ErrUnknownCategory, "column %q: value %q", e.Columns[j], v)
			}
			if e.DropFirst {
				if k == 0 {
					continue
				}
				k--
			}
			result.Set(i, offsets[j]+k, 1)
		}
	}
	return result, nil
}

// FitTransform は学習と変換を同時に実行する
func (e *OneHotEncoder) FitTransform(X [][]string) (*mat.Dense, error) {
	if err := e.Fit(X); err != nil {
		return nil, err
	}
	return e.Transform(X)
}

// layout returns the first output column of every input column and the
// total output width.
func (e *OneHotEncoder) layout() ([]int, int) {
	offsets := make([]int, len(e.Categories))
	width := 0
	for j, cats := range e.Categories {
		offsets[j] = width
		n := len(cats)
		if e.DropFirst && n > 0 {
			n--
		}
		width += n
	}
	return offsets, width
}

// NOutputs returns the number of indicator columns Transform produces.
func (e *OneHotEncoder) NOutputs() int {
	_, width := e.layout()
	return width
}

// FeatureNamesIn returns the input column names in fit order.
func (e *OneHotEncoder) FeatureNamesIn() []string {
	return append([]string(nil), e.Columns...)
}

// GetFeatureNamesOut returns "<column>_<category>" for every indicator, in
// output order.
func (e *OneHotEncoder) GetFeatureNamesOut() []string {
	names := make([]string, 0, e.NOutputs())
	for j, cats := range e.Categories {
		start := 0
		if e.DropFirst {
			start = 1
		}
		for _, c := range cats[min(start, len(cats)):] {
			names = append(names, e.Columns[j]+"_"+c)
		}
	}
	return names
}

var _ model.FeatureNamer = (*OneHotEncoder)(nil)
