// Package tracking records run parameters and metrics on a best-effort
// experiment tracker. Stages depend on Recorder only; the backend is chosen
// when the run context is built.
package tracking

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the experiment-tracking capability.
type Recorder interface {
	RecordParam(ctx context.Context, name, value string) error
	RecordMetric(ctx context.Context, name string, value float64) error
}

// Noop discards everything.
type Noop struct{}

func (Noop) RecordParam(context.Context, string, string) error   { return nil }
func (Noop) RecordMetric(context.Context, string, float64) error { return nil }

// Log writes every record as an Info line.
type Log struct {
	Logger log.Logger
}

func (l Log) RecordParam(_ context.Context, name, value string) error {
	l.Logger.Info("Tracked param", "param", name, "value", value)
	return nil
}

func (l Log) RecordMetric(_ context.Context, name string, value float64) error {
	l.Logger.Info("Tracked metric", "metric", name, "value", value)
	return nil
}

// Prometheus exposes the latest value of every metric as a gauge and every
// param as an info-style gauge set to 1.
type Prometheus struct {
	metrics *prometheus.GaugeVec
	params  *prometheus.GaugeVec
}

// NewPrometheus registers the tracking collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		metrics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heartml_run_metric",
			Help: "Latest value of a metric recorded by a pipeline stage",
		}, []string{"name"}),
		params: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "heartml_run_param",
			Help: "Parameters recorded by a pipeline stage (value is always 1)",
		}, []string{"name", "value"}),
	}
	for _, c := range []prometheus.Collector{p.metrics, p.params} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "register tracking collectors")
		}
	}
	return p, nil
}

func (p *Prometheus) RecordParam(_ context.Context, name, value string) error {
	p.params.DeletePartialMatch(prometheus.Labels{"name": name})
	p.params.WithLabelValues(name, value).Set(1)
	return nil
}

func (p *Prometheus) RecordMetric(_ context.Context, name string, value float64) error {
	p.metrics.WithLabelValues(name).Set(value)
	return nil
}

// Multi fans out to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) RecordParam(ctx context.Context, name, value string) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordParam(ctx, name, value))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordMetric(ctx context.Context, name string, value float64) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordMetric(ctx, name, value))
	}
	return errors.Join(errs...)
}

// BestEffort wraps r so that failures are logged as warnings and never
// returned. A nil r records nothing.
func BestEffort(r Recorder, logger log.Logger) Recorder {
	if r == nil {
		r = Noop{}
	}
	return bestEffort{r: r, logger: logger}
}

type bestEffort struct {
	r      Recorder
	logger log.Logger
}

func (b bestEffort) RecordParam(ctx context.Context, name, value string) error {
	if err := b.r.RecordParam(ctx, name, value); err != nil {
		b.logger.Warn("Tracking failed", log.ErrAttrKey, err.Error(), "param", name)
	}
	return nil
}

func (b bestEffort) RecordMetric(ctx context.Context, name string, value float64) error {
	if err := b.r.RecordMetric(ctx, name, value); err != nil {
		b.logger.Warn("Tracking failed", log.ErrAttrKey, err.Error(), "metric", name)
	}
	return nil
}

// Parse maps a comma separated backend list ("log,prometheus") to a
// Recorder. An empty string or "none" yields Noop.
func Parse(backends string, logger log.Logger, reg prometheus.Registerer) (Recorder, error) {
	var out Multi
	for _, name := range strings.Split(backends, ",") {
		switch strings.TrimSpace(name) {
		case "", "none":
		case "log":
			out = append(out, Log{Logger: logger})
		case "prometheus":
			p, err := NewPrometheus(reg)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		default:
			return nil, errors.NewValidationError("tracking", "unknown backend (want none, log or prometheus)", name)
		}
	}
	switch len(out) {
	case 0:
		return Noop{}, nil
	case 1:
		return out[0], nil
	}
	return out, nil
}
