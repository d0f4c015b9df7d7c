package core

import "fmt"

// InterfacePrefix is the interface family physical ports are rendered with.
const InterfacePrefix = "GigabitEthernet"

// Endpoint is one side of a point-to-point link: a device plus the
// adapter/port pair the topology recorded for the cable.
type Endpoint struct {
	DeviceID string
	Adapter  int
	Port     int
}

// InterfaceName returns the router interface name, e.g. GigabitEthernet1/0.
func (e Endpoint) InterfaceName() string {
	return FormatInterface(e.Adapter, e.Port)
}

// FormatInterface combines an adapter and port number into an interface name.
func FormatInterface(adapter, port int) string {
	return fmt.Sprintf("%s%d/%d", InterfacePrefix, adapter, port)
}
