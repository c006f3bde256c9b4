package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout and the log output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	c := NewCLI()
	c.logOut = &logs
	root := c.Root()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), logs.String(), err
}

func writeConfigs(t *testing.T, dir, source string) {
	t.Helper()
	schema, err := os.ReadFile(filepath.Join("..", "..", "configs", config.SchemaFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.SchemaFile), schema, 0o644))
	params := "data:\n  source: " + source + "\n  test_size: 0.2\n  random_state: 42\n" +
		"validation:\n  stop_on_fail: true\n" +
		"model:\n  name: GradientBoostingClassifier\n  n_estimators: 30\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ParamsFile), []byte(params), 0o644))
}

func TestGenerateThenRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data", "heart.csv")
	out, _, err := execute(t, "generate", "--rows", "200", "--out", data)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 200 rows")

	writeConfigs(t, dir, data)
	arts := filepath.Join(dir, "artifacts")
	out, logs, err := execute(t, "run", "--config-dir", dir, "--artifacts", arts, "--tracking", "log,prometheus")
	require.NoError(t, err)
	assert.Contains(t, out, "validation: passed")
	assert.Contains(t, out, "test accuracy:")
	assert.Contains(t, logs, "Pipeline completed")

	for _, key := range append(artifact.Serving, artifact.Metrics, artifact.FeatureImportance) {
		_, err := os.Stat(filepath.Join(arts, filepath.FromSlash(key.Path())))
		assert.NoError(t, err, key.String())
	}
}

func TestStagesOneByOneWithSQLite(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "heart.csv")
	_, _, err := execute(t, "generate", "--rows", "150", "--out", data)
	require.NoError(t, err)
	writeConfigs(t, dir, data)

	db := filepath.Join(dir, "store", "heartml.db")
	common := []string{"--config-dir", dir, "--store", "sqlite", "--artifacts", db}
	for _, stage := range []string{"ingest", "validate", "transform", "train", "evaluate"} {
		_, _, err := execute(t, append([]string{stage}, common...)...)
		require.NoError(t, err, stage)
	}
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestValidationFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "heart.csv")
	require.NoError(t, os.WriteFile(data, []byte("Age,Sex\n40,M\n50,F\n"), 0o644))
	writeConfigs(t, dir, data)

	out, _, err := execute(t, "validate", "--config-dir", dir, "--store", "memory")
	require.Error(t, err, "ingest has not run in this memory store")
	assert.Empty(t, out)

	_, _, err = execute(t, "run", "--config-dir", dir, "--artifacts", filepath.Join(dir, "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HeartDisease")
}

func TestBadFlags(t *testing.T) {
	dir := t.TempDir()
	writeConfigs(t, dir, "x.csv")

	_, _, err := execute(t, "ingest", "--config-dir", dir, "--store", "s3")
	assert.ErrorContains(t, err, "store")

	_, _, err = execute(t, "ingest", "--config-dir", dir, "--log-level", "loud")
	assert.Error(t, err)

	_, _, err = execute(t, "ingest", "--config-dir", dir, "--tracking", "mlflow")
	assert.ErrorContains(t, err, "tracking")

	_, _, err = execute(t, "generate", "--rows", "0", "--out", "-")
	assert.Error(t, err)
}
