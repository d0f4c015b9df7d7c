package model

import (
	"strconv"
)

// Device is a router taken from the topology. ID is the opaque topology key,
// Name the display name the operator sees (and the key used by the intent).
type Device struct {
	ID   string
	Name string

	// NumericID is derived from the first run of digits in Name. It feeds
	// loopback/link host suffixes and the router-id. Zero when Name carries
	// no digits; HasNumericID tells the two cases apart.
	NumericID    int
	HasNumericID bool
}

// NewDevice builds a Device and derives its numeric identifier from name.
func NewDevice(id, name string) *Device {
	n, ok := ParseNumericID(name)
	return &Device{
		ID:           id,
		Name:         name,
		NumericID:    n,
		HasNumericID: ok,
	}
}

// ParseNumericID extracts the first decimal digit run of name ("R12" -> 12,
// "PE3-west" -> 3). It reports false when there is no digit or the run does
// not fit an int.
func ParseNumericID(name string) (int, bool) {
	start := -1
	end := len(name)
	for i := 0; i < len(name); i++ {
		isDigit := name[i] >= '0' && name[i] <= '9'
		if start < 0 {
			if isDigit {
				start = i
			}
			continue
		}
		if !isDigit {
			end = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// RouterID renders the dotted-quad router-id used by OSPF and BGP: four
// copies of the numeric identifier.
func (d *Device) RouterID() string {
	s := strconv.Itoa(d.NumericID)
	return s + "." + s + "." + s + "." + s
}
