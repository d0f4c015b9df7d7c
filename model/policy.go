package model

import "strings"

// RelationshipKind classifies an inter-domain adjacency.
type RelationshipKind string

const (
	RelationshipCustomer RelationshipKind = "customer"
	RelationshipProvider RelationshipKind = "provider"
	RelationshipPeer     RelationshipKind = "peer"
)

// Valid reports whether k is a known classification.
func (k RelationshipKind) Valid() bool {
	switch k {
	case RelationshipCustomer, RelationshipProvider, RelationshipPeer:
		return true
	}
	return false
}

// RouteMapIn is the inbound route-map attached to sessions of this kind.
func (k RelationshipKind) RouteMapIn() string {
	return "RM-" + strings.ToUpper(string(k)) + "-IN"
}

// RouteMapOut is the outbound route-map attached to sessions of this kind.
func (k RelationshipKind) RouteMapOut() string {
	return "RM-" + strings.ToUpper(string(k)) + "-OUT"
}

// Relationship classifies the session between From and To. The order only
// records how the intent listed the pair: {R3, R4, customer} gives both R3
// and R4 the customer route-maps on that session.
type Relationship struct {
	From string
	To   string
	Kind RelationshipKind
}

// BGPPolicy carries the knobs of the customer/peer/provider route-maps.
type BGPPolicy struct {
	CustomerCommunity string

	LocalPrefCustomer int
	LocalPrefPeer     int
	LocalPrefProvider int
}
