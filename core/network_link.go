package core

// NetworkLink connects exactly two endpoints. The pair is unordered; A and B
// only reflect the order the topology file listed them in.
type NetworkLink struct {
	ID string
	A  Endpoint
	B  Endpoint
}

// Local returns the endpoint attached to deviceID and the one facing it.
// ok is false when the link does not touch deviceID.
func (l *NetworkLink) Local(deviceID string) (local, remote Endpoint, ok bool) {
	switch deviceID {
	case l.A.DeviceID:
		return l.A, l.B, true
	case l.B.DeviceID:
		return l.B, l.A, true
	}
	return Endpoint{}, Endpoint{}, false
}
