package core

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/signalsfoundry/netintent/internal/docformat"
	"github.com/signalsfoundry/netintent/model"
)

var ErrInvalidTopology = errors.New("invalid topology")

// TopologySummary is a small summary of what was loaded.
// It’s mainly useful for logging from the CLI.
type TopologySummary struct {
	DeviceIDs []string
	LinkIDs   []string
}

// internal document shapes: unexported so we’re free to evolve them. They
// follow the GNS3 project layout; everything else in the project file is
// ignored.
type topologyDoc struct {
	Topology struct {
		Nodes []nodeDoc `json:"nodes" yaml:"nodes" toml:"nodes"`
		Links []linkDoc `json:"links" yaml:"links" toml:"links"`
	} `json:"topology" yaml:"topology" toml:"topology"`
}

type nodeDoc struct {
	NodeID string `json:"node_id" yaml:"node_id" toml:"node_id"`
	Name   string `json:"name" yaml:"name" toml:"name"`
}

type linkDoc struct {
	LinkID string        `json:"link_id" yaml:"link_id" toml:"link_id"`
	Nodes  []endpointDoc `json:"nodes" yaml:"nodes" toml:"nodes"`
}

type endpointDoc struct {
	NodeID        string `json:"node_id" yaml:"node_id" toml:"node_id"`
	AdapterNumber int    `json:"adapter_number" yaml:"adapter_number" toml:"adapter_number"`
	PortNumber    int    `json:"port_number" yaml:"port_number" toml:"port_number"`
}

// LoadTopology decodes a topology document from r and populates g with its
// devices and links. Links without a link_id get a positional one
// ("link-<index>") so they can still be referenced in errors.
func LoadTopology(g *TopologyGraph, r io.Reader, format docformat.Format) (*TopologySummary, error) {
	if g == nil {
		return nil, fmt.Errorf("LoadTopology: graph is nil")
	}

	var doc topologyDoc
	if err := docformat.Decode(r, format, &doc); err != nil {
		return nil, fmt.Errorf("LoadTopology: decode failed: %w", err)
	}
	return populate(g, &doc)
}

// LoadTopologyFile is LoadTopology for a file on disk; the format follows
// the extension (.gns3/.json, .yaml/.yml, .toml).
func LoadTopologyFile(g *TopologyGraph, path string) (*TopologySummary, error) {
	if g == nil {
		return nil, fmt.Errorf("LoadTopologyFile: graph is nil")
	}

	var doc topologyDoc
	if err := docformat.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("LoadTopologyFile: %w", err)
	}
	return populate(g, &doc)
}

func populate(g *TopologyGraph, doc *topologyDoc) (*TopologySummary, error) {
	result := &TopologySummary{
		DeviceIDs: make([]string, 0, len(doc.Topology.Nodes)),
		LinkIDs:   make([]string, 0, len(doc.Topology.Links)),
	}

	// 1) Devices
	for i, n := range doc.Topology.Nodes {
		if n.NodeID == "" {
			return nil, fmt.Errorf("%w: node[%d] has empty node_id", ErrInvalidTopology, i)
		}
		if err := g.AddDevice(model.NewDevice(n.NodeID, n.Name)); err != nil {
			return nil, fmt.Errorf("%w: node[%d]: %w", ErrInvalidTopology, i, err)
		}
		result.DeviceIDs = append(result.DeviceIDs, n.NodeID)
	}

	// 2) Links
	for i, l := range doc.Topology.Links {
		if len(l.Nodes) != 2 {
			return nil, fmt.Errorf("%w: link[%d] has %d endpoints, want 2", ErrInvalidTopology, i, len(l.Nodes))
		}
		id := l.LinkID
		if id == "" {
			id = "link-" + strconv.Itoa(i)
		}
		link := &NetworkLink{
			ID: id,
			A: Endpoint{
				DeviceID: l.Nodes[0].NodeID,
				Adapter:  l.Nodes[0].AdapterNumber,
				Port:     l.Nodes[0].PortNumber,
			},
			B: Endpoint{
				DeviceID: l.Nodes[1].NodeID,
				Adapter:  l.Nodes[1].AdapterNumber,
				Port:     l.Nodes[1].PortNumber,
			},
		}
		if err := g.AddNetworkLink(link); err != nil {
			return nil, fmt.Errorf("%w: link[%d]: %w", ErrInvalidTopology, i, err)
		}
		result.LinkIDs = append(result.LinkIDs, id)
	}

	return result, nil
}
