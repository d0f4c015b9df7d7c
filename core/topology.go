package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/netintent/model"
)

var (
	ErrDeviceExists   = errors.New("device already exists")
	ErrDeviceBadInput = errors.New("invalid device")
	ErrLinkExists     = errors.New("link already exists")
	ErrLinkBadInput   = errors.New("invalid link")
	ErrEmptyLinkID    = errors.New("empty link ID")
	ErrEndpointMiss   = errors.New("link references unknown device")
	ErrPortInUse      = errors.New("interface already cabled")
)

// TopologyGraph stores the devices and point-to-point links of a lab
// topology together with a device -> incident links index, so synthesizers
// never rescan the full link list.
//
// The graph is filled once by the loader and only read afterwards; the
// RWMutex keeps concurrent readers (parallel per-device synthesis) safe.
type TopologyGraph struct {
	mu sync.RWMutex

	devices       map[string]*model.Device
	devicesByName map[string]*model.Device
	links         map[string]*NetworkLink
	linksByDevice map[string]map[string]*NetworkLink
	portsInUse    map[string]string
}

// NewTopologyGraph creates an empty topology.
func NewTopologyGraph() *TopologyGraph {
	return &TopologyGraph{
		devices:       make(map[string]*model.Device),
		devicesByName: make(map[string]*model.Device),
		links:         make(map[string]*NetworkLink),
		linksByDevice: make(map[string]map[string]*NetworkLink),
		portsInUse:    make(map[string]string),
	}
}

//
// ---------- Devices ----------
//

// AddDevice inserts a device. IDs and display names must both be unique.
func (g *TopologyGraph) AddDevice(d *model.Device) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("%w: empty device ID", ErrDeviceBadInput)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: device %q has no name", ErrDeviceBadInput, d.ID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.devices[d.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDeviceExists, d.ID)
	}
	if other, exists := g.devicesByName[d.Name]; exists {
		return fmt.Errorf("%w: name %q already used by %q", ErrDeviceExists, d.Name, other.ID)
	}
	g.devices[d.ID] = d
	g.devicesByName[d.Name] = d
	return nil
}

// GetDevice returns a device by topology ID, or nil if not found.
func (g *TopologyGraph) GetDevice(id string) *model.Device {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.devices[id]
}

// DeviceByName returns a device by display name, or nil if not found.
func (g *TopologyGraph) DeviceByName(name string) *model.Device {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.devicesByName[name]
}

// Devices returns all devices ordered by numeric identifier, then name.
func (g *TopologyGraph) Devices() []*model.Device {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*model.Device, 0, len(g.devices))
	for _, d := range g.devices {
		out = append(out, d)
	}
	SortDevices(out)
	return out
}

// SortDevices orders devices by numeric identifier, breaking ties by name.
func SortDevices(ds []*model.Device) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].NumericID != ds[j].NumericID {
			return ds[i].NumericID < ds[j].NumericID
		}
		return ds[i].Name < ds[j].Name
	})
}

//
// ---------- Links ----------
//

// AddNetworkLink inserts a link and indexes it under both endpoint devices.
// Self-loops and reuse of an already cabled interface are rejected.
func (g *TopologyGraph) AddNetworkLink(link *NetworkLink) error {
	if link == nil {
		return fmt.Errorf("%w", ErrLinkBadInput)
	}
	if link.ID == "" {
		return fmt.Errorf("%w", ErrEmptyLinkID)
	}
	if link.A.DeviceID == "" || link.B.DeviceID == "" {
		return fmt.Errorf("%w: %q needs two endpoints", ErrLinkBadInput, link.ID)
	}
	if link.A.DeviceID == link.B.DeviceID {
		return fmt.Errorf("%w: %q loops back to %q", ErrLinkBadInput, link.ID, link.A.DeviceID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.links[link.ID]; exists {
		return fmt.Errorf("%w: %q", ErrLinkExists, link.ID)
	}
	for _, ep := range []Endpoint{link.A, link.B} {
		if _, ok := g.devices[ep.DeviceID]; !ok {
			return fmt.Errorf("%w: %q references unknown device %q", ErrEndpointMiss, link.ID, ep.DeviceID)
		}
		if other, used := g.portsInUse[portKey(ep)]; used {
			return fmt.Errorf("%w: %s on %q already used by link %q", ErrPortInUse, ep.InterfaceName(), ep.DeviceID, other)
		}
	}

	g.links[link.ID] = link
	g.attachLinkToDevice(link, link.A)
	g.attachLinkToDevice(link, link.B)
	return nil
}

// NetworkLinks returns every link in a stable order (see SortLinks).
func (g *TopologyGraph) NetworkLinks() []*NetworkLink {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*NetworkLink, 0, len(g.links))
	for _, l := range g.links {
		out = append(out, l)
	}
	g.sortLinksLocked(out)
	return out
}

// LinksForDevice returns the links incident to deviceID, ordered by the
// local interface name.
func (g *TopologyGraph) LinksForDevice(deviceID string) []*NetworkLink {
	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.linksByDevice[deviceID]
	if !ok {
		return nil
	}
	out := make([]*NetworkLink, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		li, _, _ := out[i].Local(deviceID)
		lj, _, _ := out[j].Local(deviceID)
		if li.Adapter != lj.Adapter {
			return li.Adapter < lj.Adapter
		}
		if li.Port != lj.Port {
			return li.Port < lj.Port
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts returns the number of devices and links.
func (g *TopologyGraph) Counts() (devices, links int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.devices), len(g.links)
}

// sortLinksLocked orders links by the (lower, upper) numeric identifiers of
// their endpoints, then by link ID. Caller must hold g.mu.
func (g *TopologyGraph) sortLinksLocked(ls []*NetworkLink) {
	key := func(l *NetworkLink) (int, int) {
		a, b := 0, 0
		if d := g.devices[l.A.DeviceID]; d != nil {
			a = d.NumericID
		}
		if d := g.devices[l.B.DeviceID]; d != nil {
			b = d.NumericID
		}
		if a > b {
			a, b = b, a
		}
		return a, b
	}
	sort.Slice(ls, func(i, j int) bool {
		li, hi := key(ls[i])
		lj, hj := key(ls[j])
		if li != lj {
			return li < lj
		}
		if hi != hj {
			return hi < hj
		}
		return ls[i].ID < ls[j].ID
	})
}

// attachLinkToDevice indexes link under the endpoint's device.
//
// NOTE: caller must hold g.mu (write lock).
func (g *TopologyGraph) attachLinkToDevice(link *NetworkLink, ep Endpoint) {
	m, ok := g.linksByDevice[ep.DeviceID]
	if !ok {
		m = make(map[string]*NetworkLink)
		g.linksByDevice[ep.DeviceID] = m
	}
	m[link.ID] = link
	g.portsInUse[portKey(ep)] = link.ID
}

func portKey(ep Endpoint) string {
	return ep.DeviceID + "|" + ep.InterfaceName()
}
