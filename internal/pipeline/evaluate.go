package pipeline

import (
	"bytes"
	"context"
	"image/color"
	"slices"
	"sort"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/metrics"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/YuminosukeSato/heartml/sklearn/ensemble"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gopkg.in/yaml.v3"
)

// Evaluation is the re-computed test-set report, persisted as
// evaluation/metrics.yaml.
type Evaluation struct {
	Model     string                  `yaml:"model"`
	Samples   int                     `yaml:"samples"`
	Accuracy  float64                 `yaml:"accuracy"`
	Precision float64                 `yaml:"precision"`
	Recall    float64                 `yaml:"recall"`
	F1        float64                 `yaml:"f1"`
	LogLoss   float64                 `yaml:"log_loss"`
	ROCAUC    float64                 `yaml:"roc_auc"`
	Confusion metrics.ConfusionMatrix `yaml:"confusion_matrix"`
}

// Evaluate reloads the persisted model and test partition and recomputes
// the scores. It writes metrics.yaml and a feature importance chart.
func Evaluate(ctx context.Context, rc *RunContext) (*Evaluation, error) {
	span := rc.begin(log.StageEvaluation)

	clf, err := LoadModel(ctx, rc.Store)
	if err != nil {
		return nil, err
	}
	test, err := loadPartition(ctx, rc.Store, artifact.XTest, artifact.YTest)
	if err != nil {
		return nil, err
	}
	if want := clf.FeatureNamesIn(); !slices.Equal(want, test.features) {
		return nil, errors.NewFeatureMismatchError("evaluation", want, test.features)
	}

	ev, err := score(clf, test)
	if err != nil {
		return nil, err
	}
	b, err := yaml.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(err, "encode metrics")
	}
	if err := rc.Store.Put(ctx, artifact.Metrics, b); err != nil {
		return nil, err
	}

	importances, err := clf.FeatureImportances()
	if err != nil {
		return nil, err
	}
	png, err := ImportanceChart(test.features, importances)
	if err != nil {
		return nil, err
	}
	if err := rc.Store.Put(ctx, artifact.FeatureImportance, png); err != nil {
		return nil, err
	}

	for name, v := range map[string]float64{
		"eval_accuracy":  ev.Accuracy,
		"eval_precision": ev.Precision,
		"eval_recall":    ev.Recall,
		"eval_f1":        ev.F1,
		"eval_log_loss":  ev.LogLoss,
		"eval_roc_auc":   ev.ROCAUC,
	} {
		_ = rc.Recorder.RecordMetric(ctx, name, v)
	}

	span.done(
		log.ModelNameKey, ev.Model,
		log.SamplesKey, ev.Samples,
		log.AccuracyKey, ev.Accuracy,
		"precision", ev.Precision,
		"recall", ev.Recall,
		"f1", ev.F1,
	)
	return ev, nil
}

func score(clf *ensemble.GradientBoostingClassifier, test *partition) (*Evaluation, error) {
	const op = "pipeline.Evaluate"
	pred, err := clf.Predict(test.X)
	if err != nil {
		return nil, err
	}
	proba, err := clf.PredictProba(test.X)
	if err != nil {
		return nil, err
	}
	yTrue, err := metrics.FirstColumn(op, test.y)
	if err != nil {
		return nil, err
	}
	yPred, err := metrics.FirstColumn(op, pred)
	if err != nil {
		return nil, err
	}
	p1 := mat.VecDenseCopyOf(proba.(mat.ColViewer).ColView(1))

	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	cm, err := metrics.BinaryConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	logLoss, err := metrics.BinaryLogLoss(yTrue, p1)
	if err != nil {
		return nil, err
	}
	auc, err := metrics.AUC(yTrue, p1)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Model:     ensemble.ModelName,
		Samples:   yTrue.Len(),
		Accuracy:  acc,
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		F1:        cm.F1(),
		LogLoss:   logLoss,
		ROCAUC:    auc,
		Confusion: cm,
	}, nil
}

// LoadEvaluation reads a persisted metrics.yaml.
func LoadEvaluation(ctx context.Context, store artifact.Store) (*Evaluation, error) {
	b, err := store.Get(ctx, artifact.Metrics)
	if err != nil {
		return nil, err
	}
	var ev Evaluation
	if err := yaml.Unmarshal(b, &ev); err != nil {
		return nil, errors.Wrapf(err, "artifact %s", artifact.Metrics)
	}
	return &ev, nil
}

// ImportanceChart renders importances as a horizontal bar chart PNG, most
// important feature on top.
func ImportanceChart(names []string, importances []float64) ([]byte, error) {
	if len(names) != len(importances) || len(names) == 0 {
		return nil, errors.NewDimensionError("ImportanceChart", len(names), len(importances), 1)
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	// ascending, so the largest bar is drawn last (top of the y axis)
	sort.SliceStable(order, func(a, b int) bool { return importances[order[a]] < importances[order[b]] })
	values := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for i, k := range order {
		values[i] = importances[k]
		labels[i] = names[k]
	}

	p := plot.New()
	p.Title.Text = "Feature importance"
	p.X.Label.Text = "normalized gain"
	bars, err := plotter.NewBarChart(values, vg.Points(10))
	if err != nil {
		return nil, errors.Wrap(err, "feature importance chart")
	}
	bars.Horizontal = true
	bars.Color = color.RGBA{R: 196, G: 52, B: 52, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)

	height := vg.Length(len(labels))*14 + 72
	canvas := vgimg.New(6*vg.Inch, height)
	p.Draw(draw.New(canvas))
	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "encode feature importance chart")
	}
	return buf.Bytes(), nil
}
