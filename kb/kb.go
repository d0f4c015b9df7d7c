package kb

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/model"
)

var (
	ErrUnknownDevice  = errors.New("intent references unknown device")
	ErrNoNumericID    = errors.New("device name has no numeric identifier")
	ErrNumericIDRange = errors.New("numeric identifier out of range")
	ErrDuplicateID    = errors.New("numeric identifier used twice")
)

// MaxNumericID bounds numeric identifiers: they are repeated in the four
// octets of router-ids.
const MaxNumericID = 255

// KnowledgeBase is the read-only index over a validated intent: which domain
// a device belongs to, the members of each domain, and the parsed prefixes.
//
// It is built once per compilation and never mutated afterwards, so it needs
// no locking for concurrent readers.
type KnowledgeBase struct {
	intent *model.Intent

	systemByDevice map[string]*model.AutonomousSystem
	systemByASN    map[uint32]*model.AutonomousSystem
	prefixes       map[uint32]netip.Prefix
	interAS        netip.Prefix
}

// NewKnowledgeBase indexes intent. The intent must already have passed
// Validate; NewKnowledgeBase re-checks only what the index itself relies on.
func NewKnowledgeBase(intent *model.Intent) (*KnowledgeBase, error) {
	if intent == nil {
		return nil, fmt.Errorf("%w: intent is nil", ErrInvalidIntent)
	}

	kb := &KnowledgeBase{
		intent:         intent,
		systemByDevice: make(map[string]*model.AutonomousSystem),
		systemByASN:    make(map[uint32]*model.AutonomousSystem),
		prefixes:       make(map[uint32]netip.Prefix),
	}

	interAS, err := ParseDomainPrefix(intent.Global.InterASPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: inter-AS prefix: %w", ErrInvalidIntent, err)
	}
	kb.interAS = interAS

	for _, as := range intent.Systems {
		if _, dup := kb.systemByASN[as.ASN]; dup {
			return nil, fmt.Errorf("%w: AS %d declared twice", ErrInvalidIntent, as.ASN)
		}
		p, err := ParseDomainPrefix(as.Prefix)
		if err != nil {
			return nil, fmt.Errorf("%w: AS %d prefix: %w", ErrInvalidIntent, as.ASN, err)
		}
		kb.systemByASN[as.ASN] = as
		kb.prefixes[as.ASN] = p

		for _, r := range as.Routers {
			if other, dup := kb.systemByDevice[r]; dup {
				return nil, fmt.Errorf("%w: %q is a member of AS %d and AS %d", ErrInvalidIntent, r, other.ASN, as.ASN)
			}
			kb.systemByDevice[r] = as
		}
	}
	return kb, nil
}

// Policy returns the BGP policy set.
func (kb *KnowledgeBase) Policy() model.BGPPolicy { return kb.intent.Policy }

// Relationships returns the declared external relationships.
func (kb *KnowledgeBase) Relationships() []model.Relationship { return kb.intent.Relationships }

// SystemOf returns the domain deviceName belongs to, or nil for orphans.
func (kb *KnowledgeBase) SystemOf(deviceName string) *model.AutonomousSystem {
	return kb.systemByDevice[deviceName]
}

// Systems returns every domain ordered by AS number.
func (kb *KnowledgeBase) Systems() []*model.AutonomousSystem {
	out := make([]*model.AutonomousSystem, 0, len(kb.systemByASN))
	for _, as := range kb.systemByASN {
		out = append(out, as)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ASN < out[j].ASN })
	return out
}

// DomainPrefix returns the parsed /32 of the given domain.
func (kb *KnowledgeBase) DomainPrefix(asn uint32) (netip.Prefix, bool) {
	p, ok := kb.prefixes[asn]
	return p, ok
}

// InterASPrefix returns the parsed /32 shared by inter-domain links.
func (kb *KnowledgeBase) InterASPrefix() netip.Prefix { return kb.interAS }

// SameSystem reports whether both devices belong to the same domain. Orphans
// are never in the same system as anything.
func (kb *KnowledgeBase) SameSystem(a, b string) bool {
	sa, sb := kb.systemByDevice[a], kb.systemByDevice[b]
	return sa != nil && sa == sb
}

// Members returns the member devices of as that exist in g, ordered by
// numeric identifier.
func (kb *KnowledgeBase) Members(g *core.TopologyGraph, as *model.AutonomousSystem) []*model.Device {
	out := make([]*model.Device, 0, len(as.Routers))
	for _, name := range as.Routers {
		if d := g.DeviceByName(name); d != nil {
			out = append(out, d)
		}
	}
	core.SortDevices(out)
	return out
}

// CheckTopology cross-checks the intent against a loaded topology: every
// member must exist, carry a numeric identifier in 1..MaxNumericID, and no two
// addressed devices may share one. Orphan devices are not checked; they take
// no part in addressing.
func (kb *KnowledgeBase) CheckTopology(g *core.TopologyGraph) error {
	var errs []error
	owner := make(map[int]string)

	for _, as := range kb.Systems() {
		for _, name := range as.Routers {
			d := g.DeviceByName(name)
			if d == nil {
				errs = append(errs, fmt.Errorf("%w: AS %d member %q", ErrUnknownDevice, as.ASN, name))
				continue
			}
			if !d.HasNumericID {
				errs = append(errs, fmt.Errorf("%w: %q", ErrNoNumericID, name))
				continue
			}
			if d.NumericID < 1 || d.NumericID > MaxNumericID {
				errs = append(errs, fmt.Errorf("%w: %q has %d, want 1..%d", ErrNumericIDRange, name, d.NumericID, MaxNumericID))
				continue
			}
			if other, dup := owner[d.NumericID]; dup {
				errs = append(errs, fmt.Errorf("%w: %d by %q and %q", ErrDuplicateID, d.NumericID, other, name))
				continue
			}
			owner[d.NumericID] = name
		}
	}
	return errors.Join(errs...)
}
