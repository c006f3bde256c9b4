package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/YuminosukeSato/heartml/internal/heartdata"
	"github.com/YuminosukeSato/heartml/internal/predict"
	"github.com/YuminosukeSato/heartml/internal/server"
	"github.com/YuminosukeSato/heartml/internal/ui"
	"github.com/YuminosukeSato/heartml/pkg/errors"
	"github.com/YuminosukeSato/heartml/pkg/log"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func (c *CLI) newServeCommand() *cobra.Command {
	var (
		addr      string
		bootstrap bool
		timeout   time.Duration
		cooldown  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		Example: `  heartml serve --addr :8080
  heartml serve --bootstrap=false`,
		RunE: c.withEnv(func(ctx context.Context, e *env, _ io.Writer) error {
			e.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			opts := []predict.Option{predict.WithLogger(e.logger.With(log.ComponentKey, "predict"))}
			if bootstrap {
				b := predict.NewBootstrapper(
					predict.PipelineRun(e.runContext),
					predict.WithTimeout(timeout),
					predict.WithLimiter(rate.NewLimiter(rate.Every(cooldown), 1)),
					predict.WithBootstrapLogger(e.logger.With(log.ComponentKey, "bootstrap")),
				)
				opts = append(opts, predict.WithBootstrap(b))
			}
			svc := predict.NewService(e.store, opts...)

			srvLogger := e.logger.With(log.ComponentKey, "server")
			h, err := server.New(svc, srvLogger, e.registry, e.registry)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, addr, h, srvLogger)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().BoolVar(&bootstrap, "bootstrap", true, "Run the pipeline when a request arrives before any model exists")
	cmd.Flags().DurationVar(&timeout, "bootstrap-timeout", predict.DefaultBootstrapTimeout, "Upper bound on one bootstrap run")
	cmd.Flags().DurationVar(&cooldown, "bootstrap-cooldown", 30*time.Second, "Minimum interval between bootstrap attempts")
	return cmd
}

func (c *CLI) newUICommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Interactive form that queries a running server",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return ui.Run(url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "Base URL of the prediction API")
	return cmd
}

func (c *CLI) newGenerateCommand() *cobra.Command {
	var (
		rows int
		seed uint64
		out  string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic heart disease dataset",
		Args:  cobra.NoArgs,
		Example: `  heartml generate --rows 918 --out data/heart.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := heartdata.CSV(rows, seed)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return errors.Wrap(err, "create output directory")
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 918, "Number of rows")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&out, "out", "data/heart.csv", "Output path, or - for stdout")
	return cmd
}
