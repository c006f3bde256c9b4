package pipeline

import (
	"context"
	"time"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
)

// Result summarizes one Run.
type Result struct {
	RunID         string
	Report        *Report
	Transformed   bool
	TrainAccuracy float64
	Evaluation    *Evaluation
	Duration      time.Duration
}

// Completed reports whether every stage ran.
func (r *Result) Completed() bool {
	return r.Evaluation != nil
}

// Run executes ingestion, validation, transformation, training and
// evaluation in order. A transformation that declines to run ends the run
// early without error. An evaluated accuracy that differs from the training
// accuracy is reported as ErrArtifactSkew.
func Run(ctx context.Context, rc *RunContext) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: rc.RunID}
	defer func() { res.Duration = time.Since(start) }()

	rc.Logger.Info("Pipeline started",
		log.ModelNameKey, rc.Params.Model.Name,
		log.RandomSeedKey, rc.Params.Data.RandomState,
	)

	if err := Ingest(ctx, rc); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	report, err := Validate(ctx, rc)
	res.Report = report
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	ok, err := Transform(ctx, rc)
	res.Transformed = ok
	if err != nil {
		return res, err
	}
	if !ok {
		rc.Logger.Warn("Pipeline stopped: transformation not performed")
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.TrainAccuracy, err = Train(ctx, rc)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Evaluation, err = Evaluate(ctx, rc)
	if err != nil {
		return res, err
	}
	if res.Evaluation.Accuracy != res.TrainAccuracy {
		return res, errors.Wrapf(errors.ErrArtifactSkew,
			"evaluated accuracy %v differs from training accuracy %v", res.Evaluation.Accuracy, res.TrainAccuracy)
	}

	rc.Logger.Info("Pipeline completed",
		log.AccuracyKey, res.TrainAccuracy,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return res, nil
}
