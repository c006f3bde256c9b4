package config

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ColumnType is the declared type of a schema column.
type ColumnType string

// Recognized column types. Only TypeString columns are one-hot encoded.
const (
	TypeInt    ColumnType = "int"
	TypeFloat  ColumnType = "float"
	TypeString ColumnType = "str"
)

func (t ColumnType) valid() bool {
	return t == TypeInt || t == TypeFloat || t == TypeString
}

// Column is one declared column.
type Column struct {
	Name string
	Type ColumnType
}

// Schema describes the expected columns of the dataset in declared order and
// the name of the target column.
type Schema struct {
	Columns []Column
	Target  string
}

type schemaFile struct {
	Columns yaml.Node `yaml:"columns"`
	Target  string    `yaml:"target"`
}

// LoadSchema reads and validates a schema file.
func LoadSchema(path string) (*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}
	return ParseSchema(b, path)
}

// ParseSchema decodes a schema document. The column mapping is read node by
// node so that declared order is kept. Every problem found is reported in a
// single ConfigError.
func ParseSchema(data []byte, source string) (*Schema, error) {
	var raw schemaFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.NewConfigError(source, []string{err.Error()})
	}

	s := &Schema{Target: raw.Target}
	var problems []string
	switch raw.Columns.Kind {
	case 0:
		// absent: an empty schema
	case yaml.MappingNode:
		seen := make(map[string]bool)
		for i := 0; i+1 < len(raw.Columns.Content); i += 2 {
			key, val := raw.Columns.Content[i], raw.Columns.Content[i+1]
			name := key.Value
			typ := ColumnType(val.Value)
			if seen[name] {
				problems = append(problems, fmt.Sprintf("columns.%s: declared twice", name))
				continue
			}
			seen[name] = true
			if val.Kind != yaml.ScalarNode || !typ.valid() {
				problems = append(problems, fmt.Sprintf("columns.%s: unknown type %q (want int, float or str)", name, val.Value))
				continue
			}
			s.Columns = append(s.Columns, Column{Name: name, Type: typ})
		}
	default:
		problems = append(problems, "columns: must be a mapping of column name to type")
	}
	if len(raw.Columns.Content) > 0 && s.Target == "" {
		problems = append(problems, "target: required when columns are declared")
	}
	if err := errors.NewConfigError(source, problems); err != nil {
		return nil, err
	}
	return s, nil
}

// Required returns every column the data must contain: the declared columns
// in order, followed by the target when it is not itself declared.
func (s *Schema) Required() []string {
	names := make([]string, 0, len(s.Columns)+1)
	hasTarget := false
	for _, c := range s.Columns {
		names = append(names, c.Name)
		if c.Name == s.Target {
			hasTarget = true
		}
	}
	if s.Target != "" && !hasTarget {
		names = append(names, s.Target)
	}
	return names
}

// Categorical returns the str-typed feature columns in declared order.
func (s *Schema) Categorical() []string {
	return s.features(func(t ColumnType) bool { return t == TypeString })
}

// Numeric returns the feature columns of every other type in declared order.
func (s *Schema) Numeric() []string {
	return s.features(func(t ColumnType) bool { return t != TypeString })
}

func (s *Schema) features(keep func(ColumnType) bool) []string {
	var names []string
	for _, c := range s.Columns {
		if c.Name != s.Target && keep(c.Type) {
			names = append(names, c.Name)
		}
	}
	return names
}

// TypeOf returns the declared type of name.
func (s *Schema) TypeOf(name string) (ColumnType, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return "", false
}
