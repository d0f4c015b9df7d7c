// Command netintent compiles an IPv6 network intent and a GNS3 topology into
// per-router configuration files.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/netintent/internal/compiler"
	"github.com/signalsfoundry/netintent/internal/config"
	"github.com/signalsfoundry/netintent/internal/logging"
	"github.com/signalsfoundry/netintent/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and maps the outcome to an exit code:
// 0 success, 1 diff found differences, 2 any other failure.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	// Teardown runs on failure too: a failed compilation is still counted.
	if terr := a.teardown(ctx); terr != nil && err == nil {
		err = terr
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDifferences):
		return 1
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	log    logging.Logger
	stdout io.Writer
	stderr io.Writer

	registry *prometheus.Registry
	metrics  *observability.CompileCollector
	shutdown func(context.Context) error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "netintent",
		Short:         "Compile an IPv6 routing intent into router configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newCompileCmd(a),
		newPlanCmd(a),
		newDiffCmd(a),
		newValidateCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: a.stderr,
	})

	a.registry = prometheus.NewRegistry()
	a.metrics, err = observability.NewCompileCollector(a.registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	a.cfg.Tracing.Output = a.stderr
	a.shutdown, err = observability.InitTracing(cmd.Context(), a.cfg.Tracing, a.log)
	if err != nil {
		// Tracing is optional; carry on without it.
		a.log.Warn(cmd.Context(), "tracing disabled", logging.Err(err))
		a.shutdown = nil
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.shutdown != nil {
		observability.ShutdownWithTimeout(ctx, a.shutdown, a.log)
	}
	if a.cfg != nil && a.cfg.MetricsTextfile != "" && a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			return err
		}
		a.log.Debug(ctx, "metrics written", logging.String("path", a.cfg.MetricsTextfile))
	}
	return nil
}

func (a *app) compiler() *compiler.Compiler {
	return compiler.New(compiler.Options{
		Parallelism: a.cfg.Parallelism,
		Logger:      a.log,
		Metrics:     a.metrics,
	})
}

// load reads both inputs named by the configuration.
// compile loads both inputs and compiles them; load failures count as
// invalid-input compilations.
func (a *app) compile(ctx context.Context) (*compiler.Result, error) {
	if err := a.cfg.RequireInputs(); err != nil {
		return nil, err
	}
	return a.compiler().CompileFiles(ctx, a.cfg.Intent, a.cfg.Topology)
}

func (a *app) load(ctx context.Context) (*compiler.Inputs, error) {
	if err := a.cfg.RequireInputs(); err != nil {
		return nil, err
	}
	start := time.Now()
	in, err := compiler.LoadFiles(ctx, a.cfg.Intent, a.cfg.Topology)
	if err != nil {
		a.metrics.ObserveCompilation(observability.ResultInvalidInput, time.Since(start))
		return nil, err
	}
	a.log.Info(ctx, "inputs loaded",
		logging.String("intent", a.cfg.Intent),
		logging.String("topology", a.cfg.Topology),
		logging.Int("devices", len(in.Summary.DeviceIDs)),
		logging.Int("links", len(in.Summary.LinkIDs)),
	)
	return in, nil
}
