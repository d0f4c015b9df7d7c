package model

import "strconv"

// IGPProtocol selects the interior routing protocol of an autonomous system.
type IGPProtocol string

const (
	IGPNone IGPProtocol = "none"
	IGPRIP  IGPProtocol = "rip"
	IGPOSPF IGPProtocol = "ospf"
)

// Valid reports whether p is one of the supported IGP selectors.
func (p IGPProtocol) Valid() bool {
	switch p {
	case IGPNone, IGPRIP, IGPOSPF:
		return true
	}
	return false
}

// CostOverride pins the OSPF cost of the link between two member routers.
// The pair is unordered.
type CostOverride struct {
	A    string
	B    string
	Cost int
}

// Matches reports whether the override applies to the link between a and b.
func (c CostOverride) Matches(a, b string) bool {
	return (c.A == a && c.B == b) || (c.A == b && c.B == a)
}

// AutonomousSystem is one administrative routing domain of the intent.
type AutonomousSystem struct {
	ASN uint32
	// Prefix holds the leading hextets of the domain's /32, e.g. "2001:100".
	Prefix   string
	Protocol IGPProtocol

	RIPProcessName string
	OSPFProcessID  int

	// Routers lists member device names.
	Routers       []string
	CostOverrides []CostOverride
}

// ProcessID returns the IGP process identifier as it appears in commands.
func (as *AutonomousSystem) ProcessID() string {
	switch as.Protocol {
	case IGPRIP:
		return as.RIPProcessName
	case IGPOSPF:
		return strconv.Itoa(as.OSPFProcessID)
	}
	return ""
}

// CostFor returns the cost override declared for the link between a and b.
func (as *AutonomousSystem) CostFor(a, b string) (int, bool) {
	for _, c := range as.CostOverrides {
		if c.Matches(a, b) {
			return c.Cost, true
		}
	}
	return 0, false
}
