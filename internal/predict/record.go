package predict

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// Record is one prediction request. Every field is required.
type Record struct {
	Age            int     `json:"Age"`
	Sex            string  `json:"Sex"`
	ChestPainType  string  `json:"ChestPainType"`
	RestingBP      int     `json:"RestingBP"`
	Cholesterol    int     `json:"Cholesterol"`
	FastingBS      int     `json:"FastingBS"`
	RestingECG     string  `json:"RestingECG"`
	MaxHR          int     `json:"MaxHR"`
	ExerciseAngina string  `json:"ExerciseAngina"`
	Oldpeak        float64 `json:"Oldpeak"`
	STSlope        string  `json:"ST_Slope"`
}

type fieldKind int

const (
	kindInt fieldKind = iota
	kindFloat
	kindEnum
)

type field struct {
	name    string
	kind    fieldKind
	allowed []string
}

// Fields in wire order. The enum sets follow the reference dataset.
var fields = []field{
	{name: "Age", kind: kindInt},
	{name: "Sex", kind: kindEnum, allowed: []string{"M", "F"}},
	{name: "ChestPainType", kind: kindEnum, allowed: []string{"TA", "ATA", "NAP", "ASY"}},
	{name: "RestingBP", kind: kindInt},
	{name: "Cholesterol", kind: kindInt},
	{name: "FastingBS", kind: kindInt, allowed: []string{"0", "1"}},
	{name: "RestingECG", kind: kindEnum, allowed: []string{"Normal", "ST", "LVH"}},
	{name: "MaxHR", kind: kindInt},
	{name: "ExerciseAngina", kind: kindEnum, allowed: []string{"Y", "N"}},
	{name: "Oldpeak", kind: kindFloat},
	{name: "ST_Slope", kind: kindEnum, allowed: []string{"Up", "Flat", "Down"}},
}

// FieldNames returns the request field names in wire order.
func FieldNames() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// Allowed returns the accepted values of an enumerated field, or nil.
func Allowed(name string) []string {
	for _, f := range fields {
		if f.name == name {
			return append([]string(nil), f.allowed...)
		}
	}
	return nil
}

// values renders r as strings in wire order, formatted the way the
// reference CSV writes them.
func (r Record) values() []string {
	return []string{
		strconv.Itoa(r.Age), r.Sex, r.ChestPainType,
		strconv.Itoa(r.RestingBP), strconv.Itoa(r.Cholesterol), strconv.Itoa(r.FastingBS),
		r.RestingECG, strconv.Itoa(r.MaxHR), r.ExerciseAngina,
		dataset.FormatFloat(r.Oldpeak), r.STSlope,
	}
}

// Validate checks every enumerated field. The error is an InputError listing
// each offending field.
func (r Record) Validate() error {
	problems := map[string]string{}
	for i, v := range r.values() {
		if f := fields[i]; f.allowed != nil && !contains(f.allowed, v) {
			problems[f.name] = "must be one of " + strings.Join(f.allowed, ", ")
		}
	}
	if len(problems) > 0 {
		return errors.NewInputError(problems)
	}
	return nil
}

// Frame returns r as a one-row frame keyed by field name.
func (r Record) Frame() (*dataset.Frame, error) {
	return dataset.NewFrame(FieldNames(), [][]string{r.values()})
}

// DecodeRecord parses a JSON object into a Record. Missing fields, values of
// the wrong type and values outside an enumeration are all reported together
// in one InputError.
func DecodeRecord(data []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, errors.NewInputError(map[string]string{"body": "must be a JSON object"})
	}

	problems := map[string]string{}
	cells := make([]string, len(fields))
	for i, f := range fields {
		v, ok := raw[f.name]
		if !ok || v == nil {
			problems[f.name] = "field required"
			continue
		}
		switch f.kind {
		case kindInt:
			n, ok := v.(json.Number)
			if !ok {
				problems[f.name] = "must be an integer"
				continue
			}
			if _, err := strconv.Atoi(n.String()); err != nil {
				problems[f.name] = "must be an integer"
				continue
			}
			cells[i] = n.String()
		case kindFloat:
			n, ok := v.(json.Number)
			if !ok {
				problems[f.name] = "must be a number"
				continue
			}
			if _, err := n.Float64(); err != nil {
				problems[f.name] = "must be a number"
				continue
			}
			cells[i] = n.String()
		case kindEnum:
			s, ok := v.(string)
			if !ok {
				problems[f.name] = "must be a string"
				continue
			}
			cells[i] = s
		}
		if f.allowed != nil && !contains(f.allowed, cells[i]) {
			problems[f.name] = "must be one of " + strings.Join(f.allowed, ", ")
		}
	}
	if len(problems) > 0 {
		return nil, errors.NewInputError(problems)
	}

	atoi := func(s string) int { n, _ := strconv.Atoi(s); return n }
	oldpeak, _ := strconv.ParseFloat(cells[9], 64)
	return &Record{
		Age:            atoi(cells[0]),
		Sex:            cells[1],
		ChestPainType:  cells[2],
		RestingBP:      atoi(cells[3]),
		Cholesterol:    atoi(cells[4]),
		FastingBS:      atoi(cells[5]),
		RestingECG:     cells[6],
		MaxHR:          atoi(cells[7]),
		ExerciseAngina: cells[8],
		Oldpeak:        oldpeak,
		STSlope:        cells[10],
	}, nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
