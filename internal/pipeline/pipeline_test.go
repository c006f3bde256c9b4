package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/internal/dataset"
	"github.com/YuminosukeSato/heartml/internal/heartdata"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/YuminosukeSato/heartml/preprocessing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	schema, err := config.LoadSchema(filepath.Join("..", "..", "configs", config.SchemaFile))
	require.NoError(t, err)
	params := config.Default()
	params.Data.TestSize = 0.2
	params.Validation.StopOnFail = true
	params.Model.Name = config.ModelGradientBoosting
	params.Model.NEstimators = 30
	return &config.Config{Schema: schema, Params: &params}
}

func writeSource(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heart.csv")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// newRun returns a run context over a fresh memory store reading csv.
func newRun(t *testing.T, cfg *config.Config, csv []byte) (*RunContext, *artifact.MemoryStore, *log.TestLogger) {
	t.Helper()
	cfg.Params.Data.Source = writeSource(t, csv)
	store := artifact.NewMemoryStore()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewRunContext(cfg, store, logger, nil), store, logger
}

func heartCSV(t *testing.T, n int) []byte {
	t.Helper()
	b, err := heartdata.CSV(n, 42)
	require.NoError(t, err)
	return b
}

// dropColumn removes col from a CSV document.
func dropColumn(t *testing.T, data []byte, col string) []byte {
	t.Helper()
	f, err := dataset.ParseCSV(data)
	require.NoError(t, err)
	var keep []string
	for _, h := range f.Header {
		if h != col {
			keep = append(keep, h)
		}
	}
	rows, err := f.Strings(keep)
	require.NoError(t, err)
	var buf bytes.Buffer
	buf.WriteString(strings.Join(keep, ",") + "\n")
	for _, r := range rows {
		buf.WriteString(strings.Join(r, ",") + "\n")
	}
	return buf.Bytes()
}

func TestCheckColumns(t *testing.T) {
	frame, err := dataset.ParseCSV([]byte("a,b,y\n1,x,0\n"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		schema *config.Schema
		want   map[string]string
	}{
		{"empty schema", &config.Schema{}, map[string]string{}},
		{"all present", &config.Schema{
			Columns: []config.Column{{Name: "a", Type: config.TypeInt}, {Name: "b", Type: config.TypeString}},
			Target:  "y",
		}, map[string]string{}},
		{"missing feature and target", &config.Schema{
			Columns: []config.Column{{Name: "a", Type: config.TypeInt}, {Name: "c", Type: config.TypeFloat}},
			Target:  "label",
		}, map[string]string{"c": Missing, "label": Missing}},
		{"declared target missing once", &config.Schema{
			Columns: []config.Column{{Name: "z", Type: config.TypeInt}},
			Target:  "z",
		}, map[string]string{"z": Missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CheckColumns(tt.schema, frame)
			assert.Equal(t, tt.want, r.Errors)
			assert.Equal(t, len(tt.want) == 0, r.Passed)
		})
	}
}

// All schema columns present: every stage runs and leaves its artifacts.
func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	rc, store, logger := newRun(t, loadTestConfig(t), heartCSV(t, 300))

	res, err := Run(ctx, rc)
	require.NoError(t, err)
	require.True(t, res.Completed())

	assert.True(t, res.Report.Passed)
	assert.True(t, res.Transformed)
	assert.GreaterOrEqual(t, res.TrainAccuracy, 0.0)
	assert.LessOrEqual(t, res.TrainAccuracy, 1.0)
	assert.Equal(t, res.TrainAccuracy, res.Evaluation.Accuracy)

	keys := []artifact.Key{
		artifact.Ingested, artifact.ValidationReport,
		artifact.XTrain, artifact.XTest, artifact.YTrain, artifact.YTest,
		artifact.Encoder, artifact.Scaler, artifact.Model,
		artifact.Metrics, artifact.FeatureImportance,
	}
	for _, k := range keys {
		ok, err := store.Exists(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, "%s", k)
	}

	xTrain, err := store.Get(ctx, artifact.XTrain)
	require.NoError(t, err)
	m, _, err := dataset.ReadMatrix(xTrain)
	require.NoError(t, err)
	rows, _ := m.Dims()
	assert.Equal(t, 240, rows)

	png, err := store.Get(ctx, artifact.FeatureImportance)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	ev, err := LoadEvaluation(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, res.Evaluation.Accuracy, ev.Accuracy)
	cm := ev.Confusion
	assert.Equal(t, 60, cm.TN+cm.FP+cm.FN+cm.TP)

	assert.True(t, logger.ContainsField(log.StageKey, log.StageEvaluation))
	assert.True(t, logger.ContainsField(log.RunIDKey, rc.RunID))
	assert.True(t, logger.ContainsMessage("Pipeline completed"))
}

type paramRecorder struct {
	params  map[string]string
	metrics map[string]float64
}

func (r *paramRecorder) RecordParam(_ context.Context, name, value string) error {
	r.params[name] = value
	return nil
}

func (r *paramRecorder) RecordMetric(_ context.Context, name string, value float64) error {
	r.metrics[name] = value
	return nil
}

func TestTrainRecordsHyperparameters(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Params.Data.Source = writeSource(t, heartCSV(t, 200))
	rec := &paramRecorder{params: map[string]string{}, metrics: map[string]float64{}}
	rc := NewRunContext(cfg, artifact.NewMemoryStore(), nil, rec)

	res, err := Run(context.Background(), rc)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"model_name":        "GradientBoostingClassifier",
		"n_estimators":      "30",
		"learning_rate":     "0.1",
		"max_depth":         "3",
		"min_samples_split": "2",
		"min_samples_leaf":  "1",
	}, rec.params)
	assert.Equal(t, res.TrainAccuracy, rec.metrics["accuracy"])
}

// A dataset without the target column stops the run at validation.
func TestRunStopsOnMissingTarget(t *testing.T) {
	ctx := context.Background()
	csv := dropColumn(t, heartCSV(t, 50), heartdata.Target)
	rc, store, _ := newRun(t, loadTestConfig(t), csv)

	res, err := Run(ctx, rc)
	require.Error(t, err)

	var vf *errors.ValidationFailedError
	require.True(t, errors.As(err, &vf))
	assert.Equal(t, map[string]string{"HeartDisease": "missing"}, vf.Missing)
	assert.False(t, res.Transformed)

	report, err := LoadReport(ctx, store)
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, map[string]string{"HeartDisease": "missing"}, report.Errors)

	for _, k := range []artifact.Key{artifact.XTrain, artifact.Encoder, artifact.Model} {
		ok, _ := store.Exists(ctx, k)
		assert.False(t, ok, "%s must not be written", k)
	}
}

func TestRunContinuesPastFailedValidationWithoutTransforming(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t)
	cfg.Params.Validation.StopOnFail = false
	rc, store, logger := newRun(t, cfg, dropColumn(t, heartCSV(t, 50), "Cholesterol"))

	res, err := Run(ctx, rc)
	require.NoError(t, err)
	assert.False(t, res.Transformed)
	assert.False(t, res.Completed())
	assert.True(t, logger.ContainsMessage("Validation failed, continuing"))

	ok, _ := store.Exists(ctx, artifact.XTrain)
	assert.False(t, ok)
}

func TestTransformWithoutReportIsNotPerformed(t *testing.T) {
	rc, _, _ := newRun(t, loadTestConfig(t), heartCSV(t, 50))
	require.NoError(t, Ingest(context.Background(), rc))

	ok, err := Transform(context.Background(), rc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransformFeatureCount(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t)
	rc, store, _ := newRun(t, cfg, heartCSV(t, 120))
	require.NoError(t, Ingest(ctx, rc))
	_, err := Validate(ctx, rc)
	require.NoError(t, err)
	ok, err := Transform(ctx, rc)
	require.NoError(t, err)
	require.True(t, ok)

	frame, err := loadFrame(ctx, rc)
	require.NoError(t, err)
	want := len(cfg.Schema.Numeric())
	for _, col := range cfg.Schema.Categorical() {
		cells, err := frame.Strings([]string{col})
		require.NoError(t, err)
		distinct := map[string]bool{}
		for _, c := range cells {
			distinct[c[0]] = true
		}
		want += len(distinct) - 1
	}

	b, err := store.Get(ctx, artifact.XTest)
	require.NoError(t, err)
	_, header, err := dataset.ReadMatrix(b)
	require.NoError(t, err)
	assert.Len(t, header, want)
	// numeric columns come first, in declared order
	assert.Equal(t, cfg.Schema.Numeric(), header[:len(cfg.Schema.Numeric())])
	assert.Equal(t, "ChestPainType_ATA", header[len(cfg.Schema.Numeric())+1])
}

func TestTransformIsDeterministic(t *testing.T) {
	ctx := context.Background()
	csv := heartCSV(t, 150)
	var outputs [][]byte
	for i := 0; i < 2; i++ {
		rc, store, _ := newRun(t, loadTestConfig(t), csv)
		require.NoError(t, Ingest(ctx, rc))
		_, err := Validate(ctx, rc)
		require.NoError(t, err)
		_, err = Transform(ctx, rc)
		require.NoError(t, err)
		b, err := store.Get(ctx, artifact.XTrain)
		require.NoError(t, err)
		outputs = append(outputs, b)
	}
	assert.Equal(t, outputs[0], outputs[1])
}

// Applying the persisted transformers to one row reproduces that row of the
// training matrix bit for bit.
func TestSingleRowMatchesTrainingMatrix(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t)
	csv := heartCSV(t, 100)
	rc, store, _ := newRun(t, cfg, csv)
	require.NoError(t, Ingest(ctx, rc))
	_, err := Validate(ctx, rc)
	require.NoError(t, err)
	_, err = Transform(ctx, rc)
	require.NoError(t, err)

	feat, err := LoadFeaturizer(ctx, store)
	require.NoError(t, err)
	frame, err := dataset.ParseCSV(csv)
	require.NoError(t, err)

	b, err := store.Get(ctx, artifact.XTrain)
	require.NoError(t, err)
	xTrain, _, err := dataset.ReadMatrix(b)
	require.NoError(t, err)
	trainIdx, _, err := preprocessing.SplitIndices(frame.Len(), cfg.Params.Data.TestSize, cfg.Params.Data.RandomState)
	require.NoError(t, err)

	for _, k := range []int{0, 7, len(trainIdx) - 1} {
		src := trainIdx[k]
		one, err := dataset.NewFrame(append([]string(nil), frame.Header...), [][]string{frame.Rows[src]})
		require.NoError(t, err)
		got, err := feat.Transform(one)
		require.NoError(t, err)
		assert.Equal(t, xTrain.RawRowView(k), got.RawRowView(0), "training row %d", k)
	}
}

func TestTransformRejectsNonNumericCell(t *testing.T) {
	ctx := context.Background()
	csv := strings.Replace(string(heartCSV(t, 30)), "\n5", "\nfifty", 1)
	if !strings.Contains(csv, "fifty") {
		csv = strings.Replace(string(heartCSV(t, 30)), "\n4", "\nforty", 1)
	}
	rc, _, _ := newRun(t, loadTestConfig(t), []byte(csv))
	require.NoError(t, Ingest(ctx, rc))
	_, err := Validate(ctx, rc)
	require.NoError(t, err)
	_, err = Transform(ctx, rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "Age"`)
}

func TestIngestMissingSource(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Params.Data.Source = filepath.Join(t.TempDir(), "nope.csv")
	rc := NewRunContext(cfg, artifact.NewMemoryStore(), nil, nil)

	err := Ingest(context.Background(), rc)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestTrainWithoutPartitions(t *testing.T) {
	rc := NewRunContext(loadTestConfig(t), artifact.NewMemoryStore(), nil, nil)
	_, err := Train(context.Background(), rc)
	assert.True(t, errors.Is(err, errors.ErrArtifactNotFound))
}

func TestEvaluateDetectsFeatureSkew(t *testing.T) {
	ctx := context.Background()
	rc, store, _ := newRun(t, loadTestConfig(t), heartCSV(t, 120))
	_, err := Run(ctx, rc)
	require.NoError(t, err)

	b, err := store.Get(ctx, artifact.XTest)
	require.NoError(t, err)
	m, header, err := dataset.ReadMatrix(b)
	require.NoError(t, err)
	header[0], header[1] = header[1], header[0]
	swapped, err := dataset.WriteMatrix(m, header)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, artifact.XTest, swapped))

	_, err = Evaluate(ctx, rc)
	var fm *errors.FeatureMismatchError
	assert.True(t, errors.As(err, &fm))
}

func TestImportanceChartValidatesInput(t *testing.T) {
	_, err := ImportanceChart([]string{"a"}, []float64{0.5, 0.5})
	assert.Error(t, err)

	png, err := ImportanceChart([]string{"a", "b"}, []float64{0.25, 0.75})
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestFeaturizerSkipsSingleValuedCategoricals(t *testing.T) {
	schema := &config.Schema{
		Columns: []config.Column{
			{Name: "x", Type: config.TypeFloat},
			{Name: "c", Type: config.TypeString},
		},
		Target: "y",
	}
	frame, err := dataset.ParseCSV([]byte("x,c,y\n1,a,0\n3,a,1\n"))
	require.NoError(t, err)

	feat, err := FitFeaturizer(schema, frame)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, feat.FeatureNames())
	X, err := feat.Transform(frame)
	require.NoError(t, err)
	assert.True(t, mat.Equal(mat.NewDense(2, 1, []float64{-1, 1}), X))
}
