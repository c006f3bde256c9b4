package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/heartml/internal/artifact"
	"github.com/YuminosukeSato/heartml/internal/config"
	"github.com/YuminosukeSato/heartml/internal/pipeline"
	"github.com/YuminosukeSato/heartml/internal/tracking"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// CLI holds the persistent flags shared by every command.
type CLI struct {
	configDir string
	artifacts string
	store     string
	logLevel  string
	logFormat string
	tracking  string

	logOut io.Writer
}

// NewCLI returns a CLI with its defaults.
func NewCLI() *CLI {
	return &CLI{logOut: os.Stderr}
}

// Root builds the command tree.
func (c *CLI) Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "heartml",
		Short:         "Heart disease classification pipeline and prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&c.configDir, "config-dir", "configs", "Directory holding schema.yaml and params.yaml")
	f.StringVar(&c.artifacts, "artifacts", "artifacts", "Artifact directory (file store) or database path (sqlite store)")
	f.StringVar(&c.store, "store", "file", "Artifact store: file, sqlite or memory")
	f.StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.StringVar(&c.logFormat, "log-format", "json", "Log format: json or console")
	f.StringVar(&c.tracking, "tracking", "log", "Comma separated tracking backends: none, log, prometheus")

	root.AddCommand(
		c.newRunCommand(),
		c.newStageCommand("ingest", "Read the raw dataset into the artifact store", c.ingest),
		c.newStageCommand("validate", "Check the ingested data against the schema", c.validate),
		c.newStageCommand("transform", "Fit the featurizer and write the train/test partitions", c.transform),
		c.newStageCommand("train", "Fit the classifier on the training partition", c.train),
		c.newStageCommand("evaluate", "Score the model on the test partition", c.evaluate),
		c.newServeCommand(),
		c.newUICommand(),
		c.newGenerateCommand(),
	)
	return root
}

func (c *CLI) logger() (log.Logger, error) {
	level, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return nil, err
	}
	opts := []log.ZerologOption{log.WithWriter(c.logOut)}
	switch c.logFormat {
	case "json":
	case "console":
		opts = append(opts, log.WithConsole())
	default:
		return nil, errors.NewValidationError("log-format", "want json or console", c.logFormat)
	}
	return log.NewZerologProvider(level, opts...).GetLogger(), nil
}

// openStore returns the configured store and a function releasing it.
func (c *CLI) openStore() (artifact.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.store {
	case "file":
		return artifact.NewFileStore(c.artifacts), noop, nil
	case "memory":
		return artifact.NewMemoryStore(), noop, nil
	case "sqlite":
		path := c.artifacts
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "artifacts.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, errors.Wrap(err, "create sqlite directory")
		}
		s, err := artifact.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, errors.NewValidationError("store", "want file, sqlite or memory", c.store)
}

// env is everything a command needs, built once per invocation.
type env struct {
	cfg      *config.Config
	store    artifact.Store
	logger   log.Logger
	recorder tracking.Recorder
	registry *prometheus.Registry
	close    func() error
}

func (c *CLI) setup() (*env, error) {
	logger, err := c.logger()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := c.openStore()
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	rec, err := tracking.Parse(c.tracking, logger, reg)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	return &env{cfg: cfg, store: store, logger: logger, recorder: rec, registry: reg, close: closeStore}, nil
}

func (e *env) runContext() *pipeline.RunContext {
	return pipeline.NewRunContext(e.cfg, e.store, e.logger, e.recorder)
}

func (c *CLI) withEnv(fn func(ctx context.Context, e *env, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := c.setup()
		if err != nil {
			return err
		}
		defer e.close()
		return fn(cmd.Context(), e, cmd.OutOrStdout())
	}
}

func (c *CLI) newStageCommand(use, short string, fn func(context.Context, *env, io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE:  c.withEnv(fn),
	}
}

func (c *CLI) newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		Args:  cobra.NoArgs,
		Example: `  heartml run
  heartml run --store sqlite --artifacts artifacts/heartml.db`,
		RunE: c.withEnv(func(ctx context.Context, e *env, out io.Writer) error {
			res, err := pipeline.Run(ctx, e.runContext())
			if err != nil {
				return err
			}
			printReport(out, res.Report)
			if !res.Transformed {
				fmt.Fprintln(out, "transformation skipped: validation did not pass")
				return nil
			}
			fmt.Fprintf(out, "train accuracy: %.4f\n", res.TrainAccuracy)
			printEvaluation(out, res.Evaluation)
			fmt.Fprintf(out, "run %s finished in %s\n", res.RunID, res.Duration.Round(time.Millisecond))
			return nil
		}),
	}
}

func (c *CLI) ingest(ctx context.Context, e *env, out io.Writer) error {
	if err := pipeline.Ingest(ctx, e.runContext()); err != nil {
		return err
	}
	fmt.Fprintf(out, "ingested %s into %s\n", e.cfg.Params.Data.Source, artifact.Ingested)
	return nil
}

func (c *CLI) validate(ctx context.Context, e *env, out io.Writer) error {
	rep, err := pipeline.Validate(ctx, e.runContext())
	if rep != nil {
		printReport(out, rep)
	}
	return err
}

func (c *CLI) transform(ctx context.Context, e *env, out io.Writer) error {
	ran, err := pipeline.Transform(ctx, e.runContext())
	if err != nil {
		return err
	}
	if !ran {
		fmt.Fprintln(out, "transformation skipped: validation did not pass")
		return nil
	}
	fmt.Fprintln(out, "wrote train/test partitions and featurizer")
	return nil
}

func (c *CLI) train(ctx context.Context, e *env, out io.Writer) error {
	acc, err := pipeline.Train(ctx, e.runContext())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "train accuracy: %.4f\n", acc)
	return nil
}

func (c *CLI) evaluate(ctx context.Context, e *env, out io.Writer) error {
	ev, err := pipeline.Evaluate(ctx, e.runContext())
	if err != nil {
		return err
	}
	printEvaluation(out, ev)
	return nil
}

func printReport(out io.Writer, rep *pipeline.Report) {
	if rep == nil {
		return
	}
	if rep.Passed {
		fmt.Fprintln(out, "validation: passed")
		return
	}
	fmt.Fprintf(out, "validation: failed (missing %v)\n", rep.MissingColumns())
}

func printEvaluation(out io.Writer, ev *pipeline.Evaluation) {
	if ev == nil {
		return
	}
	fmt.Fprintf(out, "test accuracy: %.4f  precision: %.4f  recall: %.4f  f1: %.4f  roc_auc: %.4f  (%d samples)\n",
		ev.Accuracy, ev.Precision, ev.Recall, ev.F1, ev.ROCAUC, ev.Samples)
}
