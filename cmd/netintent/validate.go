package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the intent and topology without producing configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in, err := a.load(ctx)
			if err != nil {
				return err
			}
			res, err := a.compiler().Check(ctx, in.Intent, in.Topology)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "ok: %d domains, %d addressed routers, %d addressed links\n",
				len(res.Index.Systems()), res.Assignment.LoopbackCount(), res.Assignment.Len())
			return nil
		},
	}
}
