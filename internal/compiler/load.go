package compiler

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/kb"
	"github.com/signalsfoundry/netintent/model"
)

// Inputs is a loaded intent/topology pair.
type Inputs struct {
	Intent   *model.Intent
	Topology *core.TopologyGraph
	Summary  *core.TopologySummary
}

// LoadFiles reads and validates both input documents. Formats follow the
// file extensions.
func LoadFiles(ctx context.Context, intentPath, topologyPath string) (*Inputs, error) {
	_, span := startSpan(ctx, "load")
	defer span.End()

	intent, err := kb.LoadIntentFile(intentPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	g := core.NewTopologyGraph()
	summary, err := core.LoadTopologyFile(g, topologyPath)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidTopology, err)
	}
	return &Inputs{Intent: intent, Topology: g, Summary: summary}, nil
}

// CompileFiles is LoadFiles followed by Compile.
func (c *Compiler) CompileFiles(ctx context.Context, intentPath, topologyPath string) (*Result, error) {
	in, err := LoadFiles(ctx, intentPath, topologyPath)
	if err != nil {
		c.metrics.ObserveCompilation(resultLabel(err), 0)
		return nil, err
	}
	return c.Compile(ctx, in.Intent, in.Topology)
}
