package synth

import (
	"strconv"

	"github.com/signalsfoundry/netintent/model"
)

// LoopbackIGP returns the IGP activation lines of the loopback interface.
func LoopbackIGP(as *model.AutonomousSystem) []string {
	return activation(as)
}

// InterfaceIGP returns the IGP lines of a physical interface. Inter-domain
// interfaces never run the IGP. An OSPF cost is only emitted when the
// domain overrides it for this very link.
func InterfaceIGP(as *model.AutonomousSystem, iface InterfaceView) []string {
	if !iface.IntraAS() {
		return nil
	}
	lines := activation(as)
	if as.Protocol == model.IGPOSPF && iface.Cost > 0 {
		lines = append(lines, " ipv6 ospf cost "+strconv.Itoa(iface.Cost))
	}
	return lines
}

// IGPProcess appends the global IGP process block.
func IGPProcess(b *Block, dev DeviceView) {
	as := dev.System
	if as == nil {
		return
	}
	switch as.Protocol {
	case model.IGPRIP:
		b.Addf("ipv6 router rip %s", as.ProcessID())
		b.Add(" redistribute connected", " exit")
	case model.IGPOSPF:
		b.Addf("ipv6 router ospf %s", as.ProcessID())
		b.Addf(" router-id %s", dev.Device.RouterID())
		b.Add(" exit")
	}
}

func activation(as *model.AutonomousSystem) []string {
	if as == nil {
		return nil
	}
	switch as.Protocol {
	case model.IGPRIP:
		return []string{" ipv6 rip " + as.ProcessID() + " enable"}
	case model.IGPOSPF:
		return []string{" ipv6 ospf " + as.ProcessID() + " area 0"}
	}
	return nil
}
