package main

import (
	"io"
	"net/netip"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/internal/compiler"
	"github.com/signalsfoundry/netintent/internal/synth"
)

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the address plan as a table",
		Long: `'plan' validates the inputs and prints every allocated address: one
loopback row per addressed router followed by its link interfaces.
Routers outside every domain are listed without addresses.`,
		Args: cobra.NoArgs,
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
			writePlan(a.stdout, in.Topology, res)
			return nil
		},
	}
}

func writePlan(w io.Writer, g *core.TopologyGraph, res *compiler.Result) {
	var rows [][]string
	for _, d := range g.Devices() {
		as := res.Index.SystemOf(d.Name)
		if as == nil {
			rows = append(rows, []string{d.Name, "-", "", "", "", "orphan"})
			continue
		}
		asn := strconv.FormatUint(uint64(as.ASN), 10)
		if lo, ok := res.Assignment.Loopback(d.ID); ok {
			rows = append(rows, []string{d.Name, asn, synth.LoopbackInterface,
				netip.PrefixFrom(lo, 128).String(), "", "loopback"})
		}

		for _, link := range g.LinksForDevice(d.ID) {
			la, ok := res.Assignment.Link(link.ID)
			if !ok {
				continue
			}
			local, remote, _ := la.Side(d.ID)
			rows = append(rows, []string{d.Name, asn, local.Interface,
				local.CIDR(), remote.DeviceName, la.Scope.String()})
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"ROUTER", "AS", "INTERFACE", "ADDRESS", "PEER", "SCOPE"})
	table.AppendBulk(rows)
	table.Render()
}
