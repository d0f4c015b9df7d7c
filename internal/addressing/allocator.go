// Package addressing derives the IPv6 plan of a compilation: one /128
// loopback per addressed device and one /64 per link, with every endpoint
// addressed by its device's numeric identifier.
package addressing

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"strconv"

	"github.com/signalsfoundry/netintent/core"
	"github.com/signalsfoundry/netintent/kb"
	"github.com/signalsfoundry/netintent/model"
)

var (
	ErrAddressCollision = errors.New("address allocated twice")
	ErrBadIdentifier    = errors.New("identifier cannot be encoded in a hextet")
)

// LinkPrefixBits is the length of every link subnet.
const LinkPrefixBits = 64

// LinkScope tells intra-domain links from inter-domain ones.
type LinkScope int

const (
	ScopeIntraAS LinkScope = iota
	ScopeInterAS
)

func (s LinkScope) String() string {
	if s == ScopeInterAS {
		return "inter-as"
	}
	return "intra-as"
}

// EndpointAddress is the address one device holds on one link.
type EndpointAddress struct {
	DeviceID   string
	DeviceName string
	Interface  string
	ASN        uint32
	Addr       netip.Addr
}

// CIDR renders the interface address with the link prefix length.
func (e EndpointAddress) CIDR() string {
	return netip.PrefixFrom(e.Addr, LinkPrefixBits).String()
}

// LinkAddress is the addressing of one link.
type LinkAddress struct {
	LinkID string
	Scope  LinkScope
	Subnet netip.Prefix
	// Mnemonic is the lower:upper identifier pair keying the subnet.
	Mnemonic string

	A EndpointAddress
	B EndpointAddress
}

// Side returns the endpoint held by deviceID and the one facing it.
func (l *LinkAddress) Side(deviceID string) (local, remote EndpointAddress, ok bool) {
	switch deviceID {
	case l.A.DeviceID:
		return l.A, l.B, true
	case l.B.DeviceID:
		return l.B, l.A, true
	}
	return EndpointAddress{}, EndpointAddress{}, false
}

// Assignment is the address table of one compilation. It is built once by
// Allocate and only read afterwards; nothing exported mutates it.
type Assignment struct {
	loopbacks map[string]netip.Addr
	links     map[string]*LinkAddress
	order     []string
}

// Loopback returns the /128 loopback address of a device.
func (a *Assignment) Loopback(deviceID string) (netip.Addr, bool) {
	addr, ok := a.loopbacks[deviceID]
	return addr, ok
}

// Link returns the addressing of a link; ok is false for skipped links.
func (a *Assignment) Link(linkID string) (*LinkAddress, bool) {
	l, ok := a.links[linkID]
	return l, ok
}

// Links returns every addressed link in allocation order.
func (a *Assignment) Links() []*LinkAddress {
	out := make([]*LinkAddress, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.links[id])
	}
	return out
}

// Len returns the number of addressed links.
func (a *Assignment) Len() int { return len(a.order) }

// LoopbackCount returns the number of addressed devices.
func (a *Assignment) LoopbackCount() int { return len(a.loopbacks) }

// Mnemonic encodes an unordered identifier pair as two hextets, lower first.
// Keeping the ids in separate groups makes the encoding injective: (1,23) and
// (12,3) give "1:23" and "3:12".
func Mnemonic(i, j int) string {
	if i > j {
		i, j = j, i
	}
	return strconv.Itoa(i) + ":" + strconv.Itoa(j)
}

// Allocate computes the loopback of every device that belongs to a domain and
// the subnet and endpoint addresses of every link whose two ends both belong
// to a domain. Links touching an orphan device are skipped.
//
// An address handed out twice is a fatal error; in practice this happens
// with parallel links between the same two routers.
func Allocate(g *core.TopologyGraph, idx *kb.KnowledgeBase) (*Assignment, error) {
	a := &Assignment{
		loopbacks: make(map[string]netip.Addr),
		links:     make(map[string]*LinkAddress),
	}
	owners := make(map[netip.Addr]string)

	for _, d := range g.Devices() {
		as := idx.SystemOf(d.Name)
		if as == nil {
			continue
		}
		domain, ok := idx.DomainPrefix(as.ASN)
		if !ok {
			return nil, fmt.Errorf("AS %d has no parsed prefix", as.ASN)
		}
		addr, err := LoopbackAddr(domain, d.NumericID)
		if err != nil {
			return nil, fmt.Errorf("loopback of %q: %w", d.Name, err)
		}
		if other, dup := owners[addr]; dup {
			return nil, fmt.Errorf("%w: loopback %s of %q already held by %s", ErrAddressCollision, addr, d.Name, other)
		}
		owners[addr] = "loopback of " + d.Name
		a.loopbacks[d.ID] = addr
	}

	for _, link := range g.NetworkLinks() {
		da, db := g.GetDevice(link.A.DeviceID), g.GetDevice(link.B.DeviceID)
		asA, asB := idx.SystemOf(da.Name), idx.SystemOf(db.Name)
		if asA == nil || asB == nil {
			continue
		}

		scope := ScopeIntraAS
		base, _ := idx.DomainPrefix(asA.ASN)
		if !idx.SameSystem(da.Name, db.Name) {
			scope = ScopeInterAS
			base = idx.InterASPrefix()
		}

		subnet, err := SubnetFor(base, da.NumericID, db.NumericID)
		if err != nil {
			return nil, fmt.Errorf("link %q: %w", link.ID, err)
		}
		// The subnet is a function of (base, mnemonic): links can only share
		// one when both bases and identifier pairs coincide, and the endpoint
		// owner check below reports that.
		la := &LinkAddress{
			LinkID:   link.ID,
			Scope:    scope,
			Subnet:   subnet,
			Mnemonic: Mnemonic(da.NumericID, db.NumericID),
		}
		for _, side := range []struct {
			ep  core.Endpoint
			dev *model.Device
			as  *model.AutonomousSystem
			out *EndpointAddress
		}{
			{link.A, da, asA, &la.A},
			{link.B, db, asB, &la.B},
		} {
			addr, err := HostAddr(subnet, side.dev.NumericID)
			if err != nil {
				return nil, fmt.Errorf("link %q: %w", link.ID, err)
			}
			if other, dup := owners[addr]; dup {
				return nil, fmt.Errorf("%w: %s for %q on link %q already held by %s", ErrAddressCollision, addr, side.dev.Name, link.ID, other)
			}
			owners[addr] = fmt.Sprintf("%s on link %q", side.dev.Name, link.ID)
			*side.out = EndpointAddress{
				DeviceID:   side.dev.ID,
				DeviceName: side.dev.Name,
				Interface:  side.ep.InterfaceName(),
				ASN:        side.as.ASN,
				Addr:       addr,
			}
		}

		a.links[link.ID] = la
		a.order = append(a.order, link.ID)
	}

	sort.SliceStable(a.order, func(i, j int) bool {
		return lessLink(a.links[a.order[i]], a.links[a.order[j]])
	})
	return a, nil
}

// LoopbackAddr returns domain::id, the /128 loopback of a device.
func LoopbackAddr(domain netip.Prefix, id int) (netip.Addr, error) {
	h, err := hextet(id)
	if err != nil {
		return netip.Addr{}, err
	}
	b := domain.Masked().Addr().As16()
	b[14], b[15] = byte(h>>8), byte(h)
	return netip.AddrFrom16(b), nil
}

// SubnetFor returns base:lower:upper::/64 for the identifier pair (i, j).
func SubnetFor(base netip.Prefix, i, j int) (netip.Prefix, error) {
	if i > j {
		i, j = j, i
	}
	lo, err := hextet(i)
	if err != nil {
		return netip.Prefix{}, err
	}
	hi, err := hextet(j)
	if err != nil {
		return netip.Prefix{}, err
	}
	b := base.Masked().Addr().As16()
	b[4], b[5] = byte(lo>>8), byte(lo)
	b[6], b[7] = byte(hi>>8), byte(hi)
	return netip.PrefixFrom(netip.AddrFrom16(b), LinkPrefixBits), nil
}

// HostAddr returns subnet::id.
func HostAddr(subnet netip.Prefix, id int) (netip.Addr, error) {
	h, err := hextet(id)
	if err != nil {
		return netip.Addr{}, err
	}
	b := subnet.Masked().Addr().As16()
	b[14], b[15] = byte(h>>8), byte(h)
	return netip.AddrFrom16(b), nil
}

// hextet writes the decimal digits of id into one address group, so R12 is
// "::12" on the wire, exactly as operators read it.
func hextet(id int) (uint16, error) {
	if id < 0 || id > 9999 {
		return 0, fmt.Errorf("%w: %d", ErrBadIdentifier, id)
	}
	v, err := strconv.ParseUint(strconv.Itoa(id), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %d", ErrBadIdentifier, id)
	}
	return uint16(v), nil
}

func lessLink(x, y *LinkAddress) bool {
	if c := x.Subnet.Addr().Compare(y.Subnet.Addr()); c != 0 {
		return c < 0
	}
	return x.LinkID < y.LinkID
}
