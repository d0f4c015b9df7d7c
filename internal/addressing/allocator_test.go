package addressing

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/kb"
	"github.com/signalsfoundry/netintent/model"
)

type domain struct {
	asn     uint32
	prefix  string
	routers []string
}

func newIndex(t testing.TB, domains ...domain) *kb.KnowledgeBase {
	t.Helper()
	intent := &model.Intent{
		Global: model.GlobalOptions{InterASPrefix: "2001:ff"},
		Policy: model.BGPPolicy{CustomerCommunity: "1:1", LocalPrefCustomer: 1, LocalPrefPeer: 1, LocalPrefProvider: 1},
	}
	for _, d := range domains {
		intent.Systems = append(intent.Systems, &model.AutonomousSystem{
			ASN:      d.asn,
			Prefix:   d.prefix,
			Protocol: model.IGPNone,
			Routers:  d.routers,
		})
	}
	if err := kb.Validate(intent); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	idx, err := kb.NewKnowledgeBase(intent)
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}
	return idx
}

func addDevices(t testing.TB, g *core.TopologyGraph, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := g.AddDevice(model.NewDevice(n, n)); err != nil {
			t.Fatalf("AddDevice(%s) error: %v", n, err)
		}
	}
}

func addLink(t testing.TB, g *core.TopologyGraph, id, a string, aAdapter int, b string, bAdapter int) {
	t.Helper()
	err := g.AddNetworkLink(&core.NetworkLink{
		ID: id,
		A:  core.Endpoint{DeviceID: a, Adapter: aAdapter},
		B:  core.Endpoint{DeviceID: b, Adapter: bAdapter},
	})
	if err != nil {
		t.Fatalf("AddNetworkLink(%s) error: %v", id, err)
	}
}

func TestAllocateIntraASPair(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R1", "R2")
	// Listed B-first: the subnet must not depend on endpoint order.
	addLink(t, g, "l1", "R2", 0, "R1", 0)
	idx := newIndex(t, domain{100, "2001:100", []string{"R1", "R2"}})

	asg, err := Allocate(g, idx)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}

	la, ok := asg.Link("l1")
	if !ok {
		t.Fatalf("link l1 not allocated")
	}
	if got, want := la.Subnet.String(), "2001:100:1:2::/64"; got != want {
		t.Fatalf("subnet = %s, want %s", got, want)
	}
	if la.Scope != ScopeIntraAS || la.Mnemonic != "1:2" {
		t.Fatalf("scope/mnemonic = %v/%s, want intra-as/1:2", la.Scope, la.Mnemonic)
	}

	r1, r2, ok := la.Side("R1")
	if !ok {
		t.Fatalf("Side(R1) not found")
	}
	if got := r1.CIDR(); got != "2001:100:1:2::1/64" {
		t.Fatalf("R1 address = %s, want 2001:100:1:2::1/64", got)
	}
	if got := r2.CIDR(); got != "2001:100:1:2::2/64" {
		t.Fatalf("R2 address = %s, want 2001:100:1:2::2/64", got)
	}
	if r1.Interface != "GigabitEthernet0/0" || r1.ASN != 100 {
		t.Fatalf("R1 endpoint = %+v", r1)
	}

	for name, want := range map[string]string{"R1": "2001:100::1", "R2": "2001:100::2"} {
		lo, ok := asg.Loopback(name)
		if !ok || lo.String() != want {
			t.Fatalf("Loopback(%s) = %v, %v, want %s", name, lo, ok, want)
		}
	}
}

func TestAllocateInterASUsesSharedPrefix(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R7", "R8")
	addLink(t, g, "l", "R7", 1, "R8", 2)
	idx := newIndex(t,
		domain{100, "2001:100", []string{"R7"}},
		domain{200, "2001:200", []string{"R8"}},
	)

	asg, err := Allocate(g, idx)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	la, _ := asg.Link("l")
	if la.Scope != ScopeInterAS || la.Subnet.String() != "2001:ff:7:8::/64" {
		t.Fatalf("link = %+v, want inter-as 2001:ff:7:8::/64", la)
	}
	r7, r8, _ := la.Side("R7")
	if r7.ASN != 100 || r8.ASN != 200 {
		t.Fatalf("endpoint ASNs = %d/%d, want 100/200", r7.ASN, r8.ASN)
	}
	if r8.Interface != "GigabitEthernet2/0" {
		t.Fatalf("R8 interface = %s", r8.Interface)
	}
}

func TestAllocateSkipsOrphans(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R1", "R2", "Switch")
	addLink(t, g, "core", "R1", 0, "R2", 0)
	addLink(t, g, "access", "R2", 1, "Switch", 0)
	idx := newIndex(t, domain{100, "2001:100", []string{"R1", "R2"}})

	asg, err := Allocate(g, idx)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if _, ok := asg.Link("access"); ok {
		t.Fatalf("link to an orphan was addressed")
	}
	if _, ok := asg.Loopback("Switch"); ok {
		t.Fatalf("orphan received a loopback")
	}
	if asg.Len() != 1 || asg.LoopbackCount() != 2 {
		t.Fatalf("Len/LoopbackCount = %d/%d, want 1/2", asg.Len(), asg.LoopbackCount())
	}
}

func TestAllocateRejectsParallelLinks(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R1", "R2")
	addLink(t, g, "a", "R1", 0, "R2", 0)
	addLink(t, g, "b", "R1", 1, "R2", 1)
	idx := newIndex(t, domain{100, "2001:100", []string{"R1", "R2"}})

	_, err := Allocate(g, idx)
	if !errors.Is(err, ErrAddressCollision) {
		t.Fatalf("Allocate error = %v, want ErrAddressCollision", err)
	}
}

// An index built without validation may let the inter-AS base overlap a
// domain and two routers share an identifier; the resulting subnet reuse
// must still be caught.
func TestAllocateRejectsSubnetReuseAcrossBases(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R1", "R2", "PE2")
	addLink(t, g, "l1", "R1", 0, "R2", 0)
	addLink(t, g, "l2", "R1", 1, "PE2", 0)

	intent := &model.Intent{
		Global: model.GlobalOptions{InterASPrefix: "2001:100"},
		Systems: []*model.AutonomousSystem{
			{ASN: 100, Prefix: "2001:100", Protocol: model.IGPNone, Routers: []string{"R1", "R2"}},
			{ASN: 200, Prefix: "2001:200", Protocol: model.IGPNone, Routers: []string{"PE2"}},
		},
	}
	idx, err := kb.NewKnowledgeBase(intent)
	if err != nil {
		t.Fatalf("NewKnowledgeBase error: %v", err)
	}

	_, err = Allocate(g, idx)
	if !errors.Is(err, ErrAddressCollision) {
		t.Fatalf("Allocate error = %v, want ErrAddressCollision", err)
	}
	if !strings.Contains(err.Error(), "2001:100:1:2::1") {
		t.Fatalf("error does not name the reused address: %v", err)
	}
}

func TestAllocateOrdersLinksBySubnet(t *testing.T) {
	g := core.NewTopologyGraph()
	addDevices(t, g, "R1", "R2", "R3")
	addLink(t, g, "z", "R2", 1, "R3", 0)
	addLink(t, g, "y", "R1", 1, "R3", 1)
	addLink(t, g, "x", "R1", 0, "R2", 0)
	idx := newIndex(t, domain{100, "2001:100", []string{"R1", "R2", "R3"}})

	asg, err := Allocate(g, idx)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	var got []string
	for _, l := range asg.Links() {
		got = append(got, l.Mnemonic)
	}
	want := []string{"1:2", "1:3", "2:3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("link order = %v, want %v", got, want)
		}
	}
}

func TestMnemonicIsInjective(t *testing.T) {
	if Mnemonic(1, 23) == Mnemonic(12, 3) {
		t.Fatalf("Mnemonic(1,23) == Mnemonic(12,3) = %s", Mnemonic(1, 23))
	}
	if Mnemonic(5, 2) != Mnemonic(2, 5) {
		t.Fatalf("Mnemonic is not symmetric")
	}

	base := netip.MustParsePrefix("2001:100::/32")
	a, err := SubnetFor(base, 1, 23)
	if err != nil {
		t.Fatalf("SubnetFor error: %v", err)
	}
	b, err := SubnetFor(base, 12, 3)
	if err != nil {
		t.Fatalf("SubnetFor error: %v", err)
	}
	if a == b {
		t.Fatalf("SubnetFor(1,23) == SubnetFor(12,3) = %s", a)
	}
	if a.String() != "2001:100:1:23::/64" || b.String() != "2001:100:3:12::/64" {
		t.Fatalf("subnets = %s, %s", a, b)
	}
}

func TestHextetReadsDecimalDigits(t *testing.T) {
	cases := map[int]uint16{1: 0x1, 9: 0x9, 12: 0x12, 255: 0x255, 9999: 0x9999}
	for id, want := range cases {
		got, err := hextet(id)
		if err != nil || got != want {
			t.Fatalf("hextet(%d) = %#x, %v, want %#x", id, got, err, want)
		}
	}
	for _, id := range []int{-1, 10000} {
		if _, err := hextet(id); !errors.Is(err, ErrBadIdentifier) {
			t.Fatalf("hextet(%d) error = %v, want ErrBadIdentifier", id, err)
		}
	}
}

func TestLoopbackAddrAndHostAddr(t *testing.T) {
	lo, err := LoopbackAddr(netip.MustParsePrefix("2001:100::/32"), 12)
	if err != nil || lo.String() != "2001:100::12" {
		t.Fatalf("LoopbackAddr = %v, %v, want 2001:100::12", lo, err)
	}
	host, err := HostAddr(netip.MustParsePrefix("2001:ff:3:12::/64"), 3)
	if err != nil || host.String() != "2001:ff:3:12::3" {
		t.Fatalf("HostAddr = %v, %v, want 2001:ff:3:12::3", host, err)
	}
}
