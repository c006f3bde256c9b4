package predict

import (
	"context"
	"time"

	"github.com/YuminosukeSato/heartml/internal/pipeline"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// DefaultBootstrapTimeout bounds one bootstrap run.
const DefaultBootstrapTimeout = 2 * time.Minute

// RunFunc trains and persists the serving artifacts.
type RunFunc func(ctx context.Context) error

// Bootstrapper runs the training pipeline on behalf of prediction requests.
// Concurrent callers share one run, each run is bounded by a timeout and a
// limiter keeps a failing pipeline from being retried on every request.
type Bootstrapper struct {
	run     RunFunc
	timeout time.Duration
	limiter *rate.Limiter
	logger  log.Logger
	group   singleflight.Group
}

// BootstrapOption configures a Bootstrapper.
type BootstrapOption func(*Bootstrapper)

// WithTimeout bounds each run.
func WithTimeout(d time.Duration) BootstrapOption {
	return func(b *Bootstrapper) { b.timeout = d }
}

// WithLimiter replaces the default limiter (one run per 30s).
func WithLimiter(l *rate.Limiter) BootstrapOption {
	return func(b *Bootstrapper) { b.limiter = l }
}

// WithBootstrapLogger sets the logger.
func WithBootstrapLogger(l log.Logger) BootstrapOption {
	return func(b *Bootstrapper) { b.logger = l }
}

// NewBootstrapper wraps run.
func NewBootstrapper(run RunFunc, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		run:     run,
		timeout: DefaultBootstrapTimeout,
		limiter: rate.NewLimiter(rate.Every(30*time.Second), 1),
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ensure runs the pipeline once for all concurrent callers. No caller waits
// longer than the timeout: a caller whose ctx ends, or whose wait exceeds
// the timeout, returns while the shared run keeps going under its own
// deadline. A throttled attempt is reported as ErrNotTrained.
func (b *Bootstrapper) Ensure(ctx context.Context) error {
	ch := b.group.DoChan("bootstrap", func() (interface{}, error) {
		if !b.limiter.Allow() {
			return nil, errors.Wrap(errors.ErrNotTrained, "pipeline bootstrap throttled")
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()

		start := time.Now()
		b.logger.Info("Bootstrap started")
		if err := b.run(runCtx); err != nil {
			b.logger.Error("Bootstrap failed", err, log.DurationMsKey, time.Since(start).Milliseconds())
			return nil, errors.Wrap(err, "bootstrap pipeline")
		}
		b.logger.Info("Bootstrap completed", log.DurationMsKey, time.Since(start).Milliseconds())
		return nil, nil
	})
	wait := time.NewTimer(b.timeout)
	defer wait.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wait.C:
		b.logger.Warn("Bootstrap wait timed out", "timeout", b.timeout.String())
		return errors.Wrapf(context.DeadlineExceeded, "bootstrap did not finish within %s", b.timeout)
	case res := <-ch:
		return res.Err
	}
}

// PipelineRun adapts pipeline.Run to a RunFunc. newContext is called for
// every run so each bootstrap gets its own run id. A run that stops at the
// transformation gate is reported as ErrNotTrained.
func PipelineRun(newContext func() *pipeline.RunContext) RunFunc {
	return func(ctx context.Context) error {
		res, err := pipeline.Run(ctx, newContext())
		if err != nil {
			return err
		}
		if !res.Completed() {
			return errors.Wrap(errors.ErrNotTrained, "pipeline stopped before training")
		}
		return nil
	}
}
