// Package heartdata generates a synthetic clinical dataset with the columns of
// the heart-failure reference data. The same seed always yields the same
// bytes, which makes it a fixture for tests and a bootstrap source for demos.
package heartdata

import (
	"bytes"
	"encoding/csv"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// Target is the label column.
const Target = "HeartDisease"

// Columns is the reference header, target last.
var Columns = []string{
	"Age", "Sex", "ChestPainType", "RestingBP", "Cholesterol", "FastingBS",
	"RestingECG", "MaxHR", "ExerciseAngina", "Oldpeak", "ST_Slope", Target,
}

// Allowed values of the categorical attributes.
var (
	Sexes          = []string{"M", "F"}
	ChestPainTypes = []string{"TA", "ATA", "NAP", "ASY"}
	RestingECGs    = []string{"Normal", "ST", "LVH"}
	Anginas        = []string{"Y", "N"}
	STSlopes       = []string{"Up", "Flat", "Down"}
)

type generator struct {
	r *rand.Rand
	i int
}

// pick draws from values with weights; the first len(values) rows walk
// through every value so small samples still contain each category.
func (g *generator) pick(values []string, weights []float64) string {
	if g.i < len(values) {
		return values[g.i]
	}
	u := g.r.Float64()
	for k, w := range weights {
		if u < w {
			return values[k]
		}
		u -= w
	}
	return values[len(values)-1]
}

func (g *generator) normal(mean, sd, lo, hi float64) float64 {
	v := mean + sd*g.r.NormFloat64()
	return math.Max(lo, math.Min(hi, v))
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Rows returns n records laid out as Columns.
func Rows(n int, seed uint64) [][]string {
	g := &generator{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	rows := make([][]string, n)
	for g.i = 0; g.i < n; g.i++ {
		age := math.Round(g.normal(54, 9, 28, 77))
		sex := g.pick(Sexes, []float64{0.79, 0.21})
		cp := g.pick(ChestPainTypes, []float64{0.05, 0.19, 0.22, 0.54})
		bp := math.Round(g.normal(132, 18, 80, 200))
		chol := math.Round(g.normal(240, 55, 85, 600))
		fbs := 0.0
		if g.i < 2 {
			fbs = float64(g.i)
		} else if g.r.Float64() < 0.23 {
			fbs = 1
		}
		ecg := g.pick(RestingECGs, []float64{0.6, 0.2, 0.2})
		maxHR := math.Round(g.normal(175-0.6*age, 20, 60, 202))
		angina := g.pick(Anginas, []float64{0.4, 0.6})
		oldpeak := math.Round(math.Abs(g.normal(0.9, 1.0, -2.6, 6.2))*10) / 10
		slope := g.pick(STSlopes, []float64{0.43, 0.5, 0.07})

		z := -1.0 +
			0.04*(age-54) +
			0.9*b2f(sex == "M") +
			1.4*b2f(cp == "ASY") - 0.6*b2f(cp == "ATA") +
			0.7*fbs +
			1.0*b2f(angina == "Y") +
			0.6*oldpeak +
			1.5*b2f(slope == "Flat") + 1.0*b2f(slope == "Down") -
			0.015*(maxHR-140) +
			0.002*(chol-240)
		label := 0
		if g.r.Float64() < sigmoid(z) {
			label = 1
		}

		rows[g.i] = []string{
			strconv.Itoa(int(age)), sex, cp, strconv.Itoa(int(bp)), strconv.Itoa(int(chol)),
			strconv.Itoa(int(fbs)), ecg, strconv.Itoa(int(maxHR)), angina,
			dataset.FormatFloat(oldpeak), slope, strconv.Itoa(label),
		}
	}
	return rows
}

// CSV returns n generated records as CSV with a header line.
func CSV(n int, seed uint64) ([]byte, error) {
	if n < 1 {
		return nil, errors.NewValidationError("rows", "must be >= 1", n)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	if err := w.WriteAll(Rows(n, seed)); err != nil {
		return nil, errors.Wrap(err, "write rows")
	}
	return buf.Bytes(), nil
}

// Frame returns n generated records as a dataset.Frame.
func Frame(n int, seed uint64) (*dataset.Frame, error) {
	return dataset.NewFrame(append([]string(nil), Columns...), Rows(n, seed))
}
