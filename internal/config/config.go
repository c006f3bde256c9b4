// Package config loads the declarative schema and stage parameters of the
// pipeline from YAML and validates them at load time.
package config

import (
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// File names looked up inside a configuration directory.
const (
	SchemaFile = "schema.yaml"
	ParamsFile = "params.yaml"
)

// EnvDataSource overrides data.source when set.
const EnvDataSource = "HEARTML_DATA_SOURCE"

// Config bundles the schema and the params loaded once at process start.
type Config struct {
	Schema *Schema
	Params *Params
}

// Load reads schema.yaml and params.yaml from dir. When both are invalid the
// returned error carries both reports.
func Load(dir string) (*Config, error) {
	schema, schemaErr := LoadSchema(filepath.Join(dir, SchemaFile))
	params, paramsErr := LoadParams(filepath.Join(dir, ParamsFile))
	if schemaErr != nil && paramsErr != nil {
		return nil, errors.Join(schemaErr, paramsErr)
	}
	if schemaErr != nil {
		return nil, schemaErr
	}
	if paramsErr != nil {
		return nil, paramsErr
	}
	cfg := &Config{Schema: schema, Params: params}
	cfg.ResolveEnv()
	return cfg, nil
}

// ResolveEnv applies environment overrides.
func (c *Config) ResolveEnv() {
	if v := os.Getenv(EnvDataSource); v != "" {
		c.Params.Data.Source = v
	}
}
