// Package compiler turns a validated intent and a topology into one ordered
// configuration text per device.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/internal/addressing"
	"github.com/signalsfoundry/netintent/internal/logging"
	"github.com/signalsfoundry/netintent/internal/observability"
	"github.com/signalsfoundry/netintent/internal/relationship"
	"github.com/signalsfoundry/netintent/internal/synth"
	"github.com/signalsfoundry/netintent/kb"
	"github.com/signalsfoundry/netintent/model"
)

var (
	ErrNilInput  = errors.New("compiler: nil intent or topology")
	ErrAllocate  = errors.New("address allocation failed")
	ErrSynthesis = errors.New("synthesis failed")
)

// Options tune a Compiler. The zero value is usable.
type Options struct {
	// Parallelism bounds concurrent per-device synthesis; <=0 means GOMAXPROCS.
	Parallelism int
	Logger      logging.Logger
	Metrics     *observability.CompileCollector
}

// Compiler is stateless between runs; one value may compile many intents.
type Compiler struct {
	parallelism int
	log         logging.Logger
	metrics     *observability.CompileCollector
}

// New builds a Compiler from opts.
func New(opts Options) *Compiler {
	p := opts.Parallelism
	if p <= 0 {
		p = runtime.GOMAXPROCS(0)
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Compiler{parallelism: p, log: log, metrics: opts.Metrics}
}

// DeviceConfig is the finished configuration of one device.
type DeviceConfig struct {
	Name     string
	DeviceID string
	// ASN is zero for devices outside every domain.
	ASN  uint32
	Text string

	IBGPPeers int
	Sessions  []synth.EBGPSession
}

// Result is one compilation: configs in device order plus the intermediate
// tables callers may want to render.
type Result struct {
	Configs    []DeviceConfig
	Assignment *addressing.Assignment
	Index      *kb.KnowledgeBase
}

// Config returns the configuration of the named device.
func (r *Result) Config(name string) (DeviceConfig, bool) {
	for _, c := range r.Configs {
		if c.Name == name {
			return c, true
		}
	}
	return DeviceConfig{}, false
}

// Compile validates intent against g, allocates addresses, then synthesizes
// every device. Nothing is returned on error: a partial plan is never
// emitted.
func (c *Compiler) Compile(ctx context.Context, intent *model.Intent, g *core.TopologyGraph) (res *Result, err error) {
	if intent == nil || g == nil {
		return nil, ErrNilInput
	}
	start := time.Now()
	ctx, log := logging.WithRunLogger(ctx, c.log)
	ctx = logging.ContextWithLogger(ctx, log)
	ctx, span := startSpan(ctx, "compile", attribute.String("project", intent.ProjectName))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.metrics.ObserveCompilation(resultLabel(err), time.Since(start))
	}()

	idx, err := c.index(ctx, intent, g)
	if err != nil {
		log.Error(ctx, "intent rejected", logging.Err(err))
		return nil, err
	}

	asg, err := c.allocate(ctx, g, idx)
	if err != nil {
		log.Error(ctx, "address allocation failed", logging.Err(err))
		return nil, err
	}

	configs, err := c.synthesize(ctx, g, idx, asg)
	if err != nil {
		log.Error(ctx, "synthesis failed", logging.Err(err))
		return nil, err
	}

	devices, links := g.Counts()
	c.metrics.SetTopologyCounts(devices, asg.Len())
	log.Info(ctx, "compilation finished",
		logging.Int("devices", devices),
		logging.Int("links", links),
		logging.Int("addressed_links", asg.Len()),
		logging.Any("elapsed", time.Since(start).String()),
	)
	return &Result{Configs: configs, Assignment: asg, Index: idx}, nil
}

// Check validates intent against g and allocates addresses without
// synthesizing anything. The returned Result has no Configs.
func (c *Compiler) Check(ctx context.Context, intent *model.Intent, g *core.TopologyGraph) (*Result, error) {
	if intent == nil || g == nil {
		return nil, ErrNilInput
	}
	ctx, log := logging.WithRunLogger(ctx, c.log)
	ctx, span := startSpan(ctx, "check", attribute.String("project", intent.ProjectName))
	defer span.End()

	idx, err := c.index(ctx, intent, g)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	asg, err := c.allocate(ctx, g, idx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	log.Debug(ctx, "intent checked",
		logging.Int("loopbacks", asg.LoopbackCount()),
		logging.Int("links", asg.Len()),
	)
	return &Result{Assignment: asg, Index: idx}, nil
}

func (c *Compiler) index(ctx context.Context, intent *model.Intent, g *core.TopologyGraph) (*kb.KnowledgeBase, error) {
	_, span := startSpan(ctx, "validate")
	defer span.End()

	if err := kb.Validate(intent); err != nil {
		return nil, err
	}
	idx, err := kb.NewKnowledgeBase(intent)
	if err != nil {
		return nil, err
	}
	if err := idx.CheckTopology(g); err != nil {
		return nil, fmt.Errorf("%w: %w", kb.ErrInvalidIntent, err)
	}
	return idx, nil
}

func (c *Compiler) allocate(ctx context.Context, g *core.TopologyGraph, idx *kb.KnowledgeBase) (*addressing.Assignment, error) {
	_, span := startSpan(ctx, "allocate")
	defer span.End()

	asg, err := addressing.Allocate(g, idx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocate, err)
	}
	span.SetAttributes(
		attribute.Int("loopbacks", asg.LoopbackCount()),
		attribute.Int("links", asg.Len()),
	)
	return asg, nil
}

// synthesize fans the devices out over a bounded errgroup. Every task owns
// its own Block and writes its result into its own slot, so output order is
// the device order whatever the scheduling.
func (c *Compiler) synthesize(ctx context.Context, g *core.TopologyGraph, idx *kb.KnowledgeBase, asg *addressing.Assignment) ([]DeviceConfig, error) {
	devices := g.Devices()
	out := make([]DeviceConfig, len(devices))

	bgp := &synth.BGP{
		Resolver: relationship.NewResolver(idx.Relationships()),
		Policy:   idx.Policy(),
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallelism)
	for i, d := range devices {
		i, d := i, d
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			cfg, err := c.device(egCtx, g, idx, asg, bgp, d)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrSynthesis, d.Name, err)
			}
			out[i] = cfg
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, cfg := range out {
		c.metrics.AddSessions(cfg.IBGPPeers, len(cfg.Sessions))
		for _, s := range cfg.Sessions {
			c.metrics.AddPolicy(string(s.Kind))
		}
	}
	return out, nil
}

func (c *Compiler) device(ctx context.Context, g *core.TopologyGraph, idx *kb.KnowledgeBase, asg *addressing.Assignment, bgp *synth.BGP, d *model.Device) (DeviceConfig, error) {
	_, span := startSpan(ctx, "synthesize", attribute.String("device", d.Name))
	defer span.End()

	view, err := buildView(g, idx, asg, d)
	if err != nil {
		return DeviceConfig{}, err
	}

	var b synth.Block
	b.Addf("! Config %s", d.Name)
	b.Add("ipv6 unicast-routing")

	cfg := DeviceConfig{Name: d.Name, DeviceID: d.ID}
	if view.System != nil {
		as := view.System
		cfg.ASN = as.ASN

		b.Addf("interface %s", synth.LoopbackInterface)
		b.Addf(" ipv6 address %s/128", view.Loopback)
		b.Add(" ipv6 enable")
		b.Add(synth.LoopbackIGP(as)...)
		b.Add(" exit")
		b.Addf("ipv6 route %s Null0", view.Aggregate)

		for _, iface := range view.Interfaces {
			b.Addf("interface %s", iface.Name)
			b.Addf(" ipv6 address %s", iface.Local.CIDR())
			b.Add(" no shutdown")
			b.Add(synth.InterfaceIGP(as, iface)...)
			b.Add(" exit")
		}

		synth.IGPProcess(&b, view)

		peers, err := ibgpPeers(g, idx, asg, as, d)
		if err != nil {
			return DeviceConfig{}, err
		}
		cfg.IBGPPeers = len(peers)
		cfg.Sessions = bgp.Process(&b, view, peers)
	}

	b.Add("end", "write memory")
	cfg.Text = b.String()

	span.SetAttributes(attribute.Int("lines", b.Len()))
	logging.FromContext(ctx).Debug(ctx, "device synthesized",
		logging.Device(d.Name),
		logging.ASN(cfg.ASN),
		logging.Int("lines", b.Len()),
	)
	return cfg, nil
}

// buildView gathers the immutable inputs of one device. Orphans get a view
// with no system and no interfaces.
func buildView(g *core.TopologyGraph, idx *kb.KnowledgeBase, asg *addressing.Assignment, d *model.Device) (synth.DeviceView, error) {
	view := synth.DeviceView{Device: d, System: idx.SystemOf(d.Name)}
	if view.System == nil {
		return view, nil
	}
	lo, ok := asg.Loopback(d.ID)
	if !ok {
		return view, fmt.Errorf("no loopback allocated")
	}
	view.Loopback = lo
	if view.Aggregate, ok = idx.DomainPrefix(view.System.ASN); !ok {
		return view, fmt.Errorf("AS %d has no parsed prefix", view.System.ASN)
	}

	for _, link := range g.LinksForDevice(d.ID) {
		la, ok := asg.Link(link.ID)
		if !ok {
			continue
		}
		local, remote, _ := la.Side(d.ID)
		iface := synth.InterfaceView{
			Name:   local.Interface,
			Scope:  la.Scope,
			Local:  local,
			Remote: remote,
		}
		if iface.IntraAS() {
			if cost, ok := view.System.CostFor(d.Name, remote.DeviceName); ok {
				iface.Cost = cost
			}
		}
		view.Interfaces = append(view.Interfaces, iface)
	}
	return view, nil
}

func ibgpPeers(g *core.TopologyGraph, idx *kb.KnowledgeBase, asg *addressing.Assignment, as *model.AutonomousSystem, self *model.Device) ([]synth.IBGPPeer, error) {
	members := idx.Members(g, as)
	peers := make([]synth.IBGPPeer, 0, len(members))
	for _, m := range members {
		if m.ID == self.ID {
			continue
		}
		lo, ok := asg.Loopback(m.ID)
		if !ok {
			return nil, fmt.Errorf("iBGP peer %q has no loopback", m.Name)
		}
		peers = append(peers, synth.IBGPPeer{Name: m.Name, Loopback: lo})
	}
	return peers, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, ErrAllocate):
		return observability.ResultAllocation
	case errors.Is(err, ErrSynthesis):
		return observability.ResultSynthesis
	default:
		return observability.ResultInvalidInput
	}
}
