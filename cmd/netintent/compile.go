package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/netintent/internal/config"
	"github.com/signalsfoundry/netintent/internal/logging"
	"github.com/signalsfoundry/netintent/internal/sink"
)

func newCompileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile the intent and write one configuration per router",
		Long: `'compile' validates the intent against the topology, allocates every
loopback and link address, and writes one configuration per router to the
selected sink. Nothing is written unless the whole compilation succeeds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.cfg.ValidateSink(); err != nil {
				return err
			}
			res, err := a.compile(ctx)
			if err != nil {
				return err
			}
			out, err := a.sink(ctx)
			if err != nil {
				return err
			}
			for _, c := range res.Configs {
				if err := out.Write(ctx, c.Name, c.Text); err != nil {
					return fmt.Errorf("deliver %s: %w", c.Name, err)
				}
				a.log.Debug(ctx, "configuration written", logging.Device(c.Name))
			}
			a.log.Info(ctx, "configurations written",
				logging.Int("count", len(res.Configs)),
				logging.String("sink", a.cfg.Sink),
			)
			return nil
		},
	}
}

func (a *app) sink(ctx context.Context) (sink.Sink, error) {
	switch a.cfg.Sink {
	case config.SinkStdout:
		return sink.NewWriterSink(a.stdout), nil
	case config.SinkS3:
		return sink.NewS3Sink(ctx, a.cfg.S3Bucket, a.cfg.S3Prefix, a.cfg.S3Region)
	default:
		return sink.NewDirSink(a.cfg.OutputDir), nil
	}
}
