// Package synth turns a device's domain membership, incident links and
// allocated addresses into IOS-style IPv6 routing commands.
package synth

import (
	"net/netip"

	"github.com/signalsfoundry/netintent/internal/addressing"
	"github.com/signalsfoundry/netintent/model"
)

// LoopbackInterface is the interface carrying the router's /128.
const LoopbackInterface = "Loopback0"

// DeviceView is everything the synthesizers read about one device. It is
// assembled by the compiler from the topology, the intent index and the
// address assignment, all of which are immutable by then.
type DeviceView struct {
	Device   *model.Device
	System   *model.AutonomousSystem
	Loopback netip.Addr
	// Aggregate is the parsed domain /32 announced by BGP and discarded to
	// Null0.
	Aggregate netip.Prefix
	// Interfaces are the device's addressed links, ordered by interface.
	Interfaces []InterfaceView
}

// InterfaceView is one addressed physical interface of a device.
type InterfaceView struct {
	Name   string
	Scope  addressing.LinkScope
	Local  addressing.EndpointAddress
	Remote addressing.EndpointAddress

	// Cost is the OSPF cost override of the link; zero when none applies.
	Cost int
}

// IntraAS reports whether the interface faces a router of the same domain.
func (i InterfaceView) IntraAS() bool { return i.Scope == addressing.ScopeIntraAS }
