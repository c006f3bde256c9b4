// Package pipeline runs the training stages (ingestion, validation,
// transformation, training and evaluation) against an artifact store.
//
// Every stage takes an explicit *RunContext. There is no package state: the
// configuration, the store, the logger and the tracker are all carried by the
// context, which is built once per process.
package pipeline

import (
	"time"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/internal/tracking"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/google/uuid"
)

// RunContext carries everything a stage needs.
type RunContext struct {
	RunID    string
	Schema   *config.Schema
	Params   *config.Params
	Store    artifact.Store
	Recorder tracking.Recorder
	Logger   log.Logger
}

// NewRunContext mints a run id and wires the dependencies. logger and rec may
// be nil. The recorder is always wrapped so that tracking failures are logged
// and never fail a stage.
func NewRunContext(cfg *config.Config, store artifact.Store, logger log.Logger, rec tracking.Recorder) *RunContext {
	if logger == nil {
		logger = log.Nop()
	}
	id := uuid.NewString()
	logger = logger.With(log.RunIDKey, id)
	return &RunContext{
		RunID:    id,
		Schema:   cfg.Schema,
		Params:   cfg.Params,
		Store:    store,
		Recorder: tracking.BestEffort(rec, logger),
		Logger:   logger,
	}
}

type stageSpan struct {
	logger log.Logger
	start  time.Time
}

func (rc *RunContext) begin(stage string) stageSpan {
	logger := rc.Logger.With(log.StageKey, stage)
	logger.Info("Stage started")
	return stageSpan{logger: logger, start: time.Now()}
}

func (s stageSpan) done(fields ...any) {
	fields = append(fields, log.DurationMsKey, time.Since(s.start).Milliseconds())
	s.logger.Info("Stage completed", fields...)
}
