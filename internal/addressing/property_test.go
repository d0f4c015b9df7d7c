package addressing

import (
	"fmt"
	"math/rand"
	"net/netip"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/kb"
)

// randomLab builds a topology of n routers split across the given number of
// domains, with each router pair cabled with probability density, plus one
// orphan hanging off R1. reverse inserts everything in reverse order.
func randomLab(t *testing.T, seed int64, n, domains int, density float64, reverse bool) (*core.TopologyGraph, *kb.KnowledgeBase) {
	rng := rand.New(rand.NewSource(seed))

	names := make([]string, 0, n+1)
	for i := 1; i <= n; i++ {
		names = append(names, fmt.Sprintf("R%d", i))
	}
	names = append(names, "Host")

	type cable struct {
		id   string
		a, b string
	}
	var cables []cable
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			if rng.Float64() < density {
				cables = append(cables, cable{fmt.Sprintf("l%d-%d", i, j), names[i-1], names[j-1]})
			}
		}
	}
	cables = append(cables, cable{"host", "R1", "Host"})

	if reverse {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
		for i, j := 0, len(cables)-1; i < j; i, j = i+1, j-1 {
			cables[i], cables[j] = cables[j], cables[i]
		}
	}

	g := core.NewTopologyGraph()
	addDevices(t, g, names...)
	// Adapters are assigned in a fixed, order-independent way so both
	// insertion orders produce the same interface names.
	for _, c := range cables {
		addLink(t, g, c.id, c.a, adapterFor(c.a, c.b), c.b, adapterFor(c.b, c.a))
	}

	ds := make([]domain, domains)
	for d := range ds {
		ds[d] = domain{asn: uint32(100 * (d + 1)), prefix: fmt.Sprintf("2001:%d", 100*(d+1))}
	}
	for i := 1; i <= n; i++ {
		d := &ds[i%domains]
		d.routers = append(d.routers, fmt.Sprintf("R%d", i))
	}
	var nonEmpty []domain
	for _, d := range ds {
		if len(d.routers) > 0 {
			nonEmpty = append(nonEmpty, d)
		}
	}
	return g, newIndex(t, nonEmpty...)
}

// adapterFor gives each (local, remote) pair its own adapter number.
func adapterFor(local, remote string) int {
	var id int
	if remote == "Host" {
		return 99
	}
	fmt.Sscanf(remote, "R%d", &id)
	return id
}

func TestAllocatorProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("every allocated address is unique", prop.ForAll(
		func(seed int64, n, domains int) bool {
			g, idx := randomLab(t, seed, n, domains, 0.3, false)
			asg, err := Allocate(g, idx)
			if err != nil {
				t.Logf("Allocate error: %v", err)
				return false
			}
			seen := make(map[netip.Addr]bool)
			for _, d := range g.Devices() {
				if lo, ok := asg.Loopback(d.ID); ok {
					if seen[lo] {
						return false
					}
					seen[lo] = true
				}
			}
			for _, l := range asg.Links() {
				for _, a := range []netip.Addr{l.A.Addr, l.B.Addr} {
					if seen[a] {
						return false
					}
					seen[a] = true
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(2, 30),
		gen.IntRange(1, 4),
	))

	properties.Property("loopback is the domain prefix with the numeric id", prop.ForAll(
		func(seed int64, n, domains int) bool {
			g, idx := randomLab(t, seed, n, domains, 0.2, false)
			asg, err := Allocate(g, idx)
			if err != nil {
				return false
			}
			for _, d := range g.Devices() {
				as := idx.SystemOf(d.Name)
				lo, ok := asg.Loopback(d.ID)
				if as == nil {
					if ok {
						return false
					}
					continue
				}
				want := netip.MustParseAddr(fmt.Sprintf("%s::%d", as.Prefix, d.NumericID))
				if !ok || lo != want {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(2, 30),
		gen.IntRange(1, 4),
	))

	properties.Property("host suffix is the endpoint's own id", prop.ForAll(
		func(seed int64, n, domains int) bool {
			g, idx := randomLab(t, seed, n, domains, 0.3, false)
			asg, err := Allocate(g, idx)
			if err != nil {
				return false
			}
			for _, l := range asg.Links() {
				for _, ep := range []EndpointAddress{l.A, l.B} {
					d := g.GetDevice(ep.DeviceID)
					want, err := HostAddr(l.Subnet, d.NumericID)
					if err != nil || ep.Addr != want || !l.Subnet.Contains(ep.Addr) {
						return false
					}
				}
				wantScope := ScopeInterAS
				if idx.SameSystem(l.A.DeviceName, l.B.DeviceName) {
					wantScope = ScopeIntraAS
				}
				if l.Scope != wantScope {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(2, 30),
		gen.IntRange(1, 4),
	))

	properties.Property("allocation ignores insertion order", prop.ForAll(
		func(seed int64, n, domains int) bool {
			g1, idx1 := randomLab(t, seed, n, domains, 0.3, false)
			g2, idx2 := randomLab(t, seed, n, domains, 0.3, true)
			a1, err1 := Allocate(g1, idx1)
			a2, err2 := Allocate(g2, idx2)
			if err1 != nil || err2 != nil {
				return false
			}
			l1, l2 := a1.Links(), a2.Links()
			if len(l1) != len(l2) {
				return false
			}
			for i := range l1 {
				if l1[i].LinkID != l2[i].LinkID || l1[i].Subnet != l2[i].Subnet {
					return false
				}
				x1, y1, _ := l1[i].Side(l1[i].A.DeviceID)
				x2, y2, _ := l2[i].Side(l1[i].A.DeviceID)
				if x1 != x2 || y1 != y2 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(2, 30),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
