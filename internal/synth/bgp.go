package synth

import (
	"net/netip"

	"github.com/signalsfoundry/netintent/model"
)

// RelationshipResolver classifies what a remote router is to a local one.
type RelationshipResolver interface {
	Resolve(local, remote string) model.RelationshipKind
}

// IBGPPeer is another member of the local domain, reached on its loopback.
type IBGPPeer struct {
	Name     string
	Loopback netip.Addr
}

// EBGPSession is one eBGP neighbor as emitted for a device.
type EBGPSession struct {
	Interface string
	Peer      string
	Addr      netip.Addr
	RemoteAS  uint32
	Kind      model.RelationshipKind
}

// BGP synthesizes the BGP process and the policy route-maps.
type BGP struct {
	Resolver RelationshipResolver
	Policy   model.BGPPolicy
}

// Sessions lists the eBGP sessions of dev, one per inter-domain interface,
// in interface order.
func (s *BGP) Sessions(dev DeviceView) []EBGPSession {
	var out []EBGPSession
	for _, iface := range dev.Interfaces {
		if iface.IntraAS() {
			continue
		}
		kind := model.RelationshipPeer
		if s.Resolver != nil {
			kind = s.Resolver.Resolve(dev.Device.Name, iface.Remote.DeviceName)
		}
		out = append(out, EBGPSession{
			Interface: iface.Name,
			Peer:      iface.Remote.DeviceName,
			Addr:      iface.Remote.Addr,
			RemoteAS:  iface.Remote.ASN,
			Kind:      kind,
		})
	}
	return out
}

// Process appends the router bgp block followed by the policy route-maps.
// ibgp must hold every other member of the domain, in a stable order.
func (s *BGP) Process(b *Block, dev DeviceView, ibgp []IBGPPeer) []EBGPSession {
	as := dev.System
	if as == nil {
		return nil
	}

	b.Add("! --- BGP ---")
	b.Addf("router bgp %d", as.ASN)
	b.Addf(" bgp router-id %s", dev.Device.RouterID())
	b.Add(" no bgp default ipv4-unicast")

	// Neighbor declarations go under the process; their activation and
	// policy under the address family, which is assembled alongside.
	var af Block
	af.Add(" address-family ipv6 unicast")
	af.Addf("  network %s", dev.Aggregate)

	for _, p := range ibgp {
		n := p.Loopback.String()
		b.Addf(" neighbor %s remote-as %d", n, as.ASN)
		b.Addf(" neighbor %s update-source %s", n, LoopbackInterface)
		af.Addf("  neighbor %s activate", n)
		af.Addf("  neighbor %s next-hop-self", n)
		af.Addf("  neighbor %s send-community", n)
	}

	sessions := s.Sessions(dev)
	for _, e := range sessions {
		n := e.Addr.String()
		b.Addf(" neighbor %s remote-as %d", n, e.RemoteAS)
		af.Addf("  neighbor %s activate", n)
		af.Addf("  neighbor %s send-community", n)
		af.Addf("  neighbor %s route-map %s in", n, e.Kind.RouteMapIn())
		af.Addf("  neighbor %s route-map %s out", n, e.Kind.RouteMapOut())
	}
	af.Add(" exit-address-family")

	b.Add(af.Lines()...)
	b.Add(" exit")

	s.RouteMaps(b)
	return sessions
}
