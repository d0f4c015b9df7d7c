package model

// GlobalOptions holds intent-wide addressing parameters.
type GlobalOptions struct {
	// InterASPrefix keys every inter-domain link subnet.
	InterASPrefix string
	// ManagementPrefix is reserved for out-of-band loopbacks. It only takes
	// part in the prefix overlap check.
	ManagementPrefix string
}

// Intent is the validated, declarative description of the network.
type Intent struct {
	ProjectName   string
	Global        GlobalOptions
	Systems       []*AutonomousSystem
	Policy        BGPPolicy
	Relationships []Relationship
}
