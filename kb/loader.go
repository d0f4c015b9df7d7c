package kb

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/netintent/internal/docformat"
	"github.com/signalsfoundry/netintent/model"
)

// internal document shapes: keep them unexported so we’re free to evolve
// them. Field names follow the intent files the lab tooling already writes.
type intentDoc struct {
	ProjectName           string            `json:"project_name" yaml:"project_name" toml:"project_name"`
	GlobalOptions         globalOptionsDoc  `json:"global_options" yaml:"global_options" toml:"global_options"`
	ASList                []asDoc           `json:"as_list" yaml:"as_list" toml:"as_list" validate:"required,min=1,dive"`
	BGPPolicies           policyDoc         `json:"bgp_policies" yaml:"bgp_policies" toml:"bgp_policies"`
	ExternalRelationships []relationshipDoc `json:"external_relationships" yaml:"external_relationships" toml:"external_relationships" validate:"dive"`
	OSPFCustomMetrics     []metricDoc       `json:"ospf_custom_metrics" yaml:"ospf_custom_metrics" toml:"ospf_custom_metrics" validate:"dive"`
}

type globalOptionsDoc struct {
	InterASSubnet      string `json:"inter_as_subnet" yaml:"inter_as_subnet" toml:"inter_as_subnet" validate:"required"`
	MgmtLoopbackPrefix string `json:"mgmt_loopback_prefix" yaml:"mgmt_loopback_prefix" toml:"mgmt_loopback_prefix"`
}

type asDoc struct {
	ASN            flexUint  `json:"asn" yaml:"asn" toml:"asn" validate:"required,max=4294967295"`
	Prefix         string    `json:"prefix" yaml:"prefix" toml:"prefix" validate:"required"`
	Protocol       string    `json:"protocol" yaml:"protocol" toml:"protocol" validate:"omitempty,oneof=rip ospf none"`
	Routers        []string  `json:"routers" yaml:"routers" toml:"routers" validate:"dive,required"`
	RIPProcessName string    `json:"rip_process_name" yaml:"rip_process_name" toml:"rip_process_name" validate:"required_if=Protocol rip"`
	OSPFProcessID  flexUint  `json:"ospf_process_id" yaml:"ospf_process_id" toml:"ospf_process_id" validate:"required_if=Protocol ospf,max=65535"`
	CustomCosts    []costDoc `json:"custom_costs" yaml:"custom_costs" toml:"custom_costs" validate:"dive"`
}

type costDoc struct {
	R1   string   `json:"r1" yaml:"r1" toml:"r1" validate:"required"`
	R2   string   `json:"r2" yaml:"r2" toml:"r2" validate:"required"`
	Cost flexUint `json:"cost" yaml:"cost" toml:"cost" validate:"required,max=65535"`
}

type policyDoc struct {
	CustomerCommunity string   `json:"customer_community" yaml:"customer_community" toml:"customer_community" validate:"required,community"`
	LocalPrefCustomer flexUint `json:"local_pref_customer" yaml:"local_pref_customer" toml:"local_pref_customer" validate:"required,max=4294967295"`
	LocalPrefPeer     flexUint `json:"local_pref_peer" yaml:"local_pref_peer" toml:"local_pref_peer" validate:"required,max=4294967295"`
	LocalPrefProvider flexUint `json:"local_pref_provider" yaml:"local_pref_provider" toml:"local_pref_provider" validate:"required,max=4294967295"`
}

type relationshipDoc struct {
	Nodes        []string `json:"nodes" yaml:"nodes" toml:"nodes" validate:"len=2,dive,required"`
	Relationship string   `json:"relationship" yaml:"relationship" toml:"relationship" validate:"omitempty,oneof=customer provider peer"`
}

type metricDoc struct {
	Nodes []string `json:"nodes" yaml:"nodes" toml:"nodes" validate:"len=2,dive,required"`
	Cost  flexUint `json:"cost" yaml:"cost" toml:"cost" validate:"required,max=65535"`
}

// flexUint accepts both 100 and "100": intent files written by hand and by
// the prompt-driven generator disagree on quoting.
type flexUint uint64

func (f *flexUint) set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("not a non-negative integer: %q", s)
	}
	*f = flexUint(n)
	return nil
}

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	return f.set(strings.Trim(s, `"`))
}

func (f *flexUint) UnmarshalYAML(n *yaml.Node) error {
	return f.set(n.Value)
}

// LoadIntent decodes an intent document, validates it, and returns the
// model. Any failure is fatal: nothing downstream runs on a partial intent.
func LoadIntent(r io.Reader, format docformat.Format) (*model.Intent, error) {
	var doc intentDoc
	if err := docformat.Decode(r, format, &doc, docformat.Strict()); err != nil {
		return nil, fmt.Errorf("%w: decode failed: %w", ErrInvalidIntent, err)
	}
	return fromDoc(&doc)
}

// LoadIntentFile is LoadIntent for a file on disk; the format follows the
// extension.
func LoadIntentFile(path string) (*model.Intent, error) {
	format, err := docformat.FromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIntent, err)
	}
	defer f.Close()

	intent, err := LoadIntent(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return intent, nil
}

func fromDoc(doc *intentDoc) (*model.Intent, error) {
	// Keywords are case-insensitive on input.
	for i := range doc.ASList {
		doc.ASList[i].Protocol = strings.ToLower(strings.TrimSpace(doc.ASList[i].Protocol))
	}
	for i := range doc.ExternalRelationships {
		doc.ExternalRelationships[i].Relationship = strings.ToLower(strings.TrimSpace(doc.ExternalRelationships[i].Relationship))
	}
	if err := validate.Struct(doc); err != nil {
		return nil, formatValidationError(err)
	}

	intent := &model.Intent{
		ProjectName: doc.ProjectName,
		Global: model.GlobalOptions{
			InterASPrefix:    strings.TrimSpace(doc.GlobalOptions.InterASSubnet),
			ManagementPrefix: strings.TrimSpace(doc.GlobalOptions.MgmtLoopbackPrefix),
		},
		Policy: model.BGPPolicy{
			CustomerCommunity: doc.BGPPolicies.CustomerCommunity,
			LocalPrefCustomer: int(doc.BGPPolicies.LocalPrefCustomer),
			LocalPrefPeer:     int(doc.BGPPolicies.LocalPrefPeer),
			LocalPrefProvider: int(doc.BGPPolicies.LocalPrefProvider),
		},
	}

	byRouter := make(map[string]*model.AutonomousSystem)
	for _, a := range doc.ASList {
		protocol := model.IGPProtocol(a.Protocol)
		if protocol == "" {
			protocol = model.IGPNone
		}
		as := &model.AutonomousSystem{
			ASN:            uint32(a.ASN),
			Prefix:         strings.TrimSpace(a.Prefix),
			Protocol:       protocol,
			RIPProcessName: strings.TrimSpace(a.RIPProcessName),
			OSPFProcessID:  int(a.OSPFProcessID),
			Routers:        append([]string(nil), a.Routers...),
		}
		for _, c := range a.CustomCosts {
			as.CostOverrides = append(as.CostOverrides, model.CostOverride{A: c.R1, B: c.R2, Cost: int(c.Cost)})
		}
		for _, r := range as.Routers {
			if _, seen := byRouter[r]; !seen {
				byRouter[r] = as
			}
		}
		intent.Systems = append(intent.Systems, as)
	}

	// Global metrics belong to whichever domain holds both ends.
	for i, m := range doc.OSPFCustomMetrics {
		a, b := m.Nodes[0], m.Nodes[1]
		sa, sb := byRouter[a], byRouter[b]
		if sa == nil || sa != sb {
			return nil, fmt.Errorf("%w: %w: ospf_custom_metrics[%d] %s-%s", ErrInvalidIntent, ErrCrossASMetric, i, a, b)
		}
		sa.CostOverrides = append(sa.CostOverrides, model.CostOverride{A: a, B: b, Cost: int(m.Cost)})
	}

	for _, rel := range doc.ExternalRelationships {
		kind := model.RelationshipKind(rel.Relationship)
		if kind == "" {
			kind = model.RelationshipPeer
		}
		intent.Relationships = append(intent.Relationships, model.Relationship{
			From: rel.Nodes[0],
			To:   rel.Nodes[1],
			Kind: kind,
		})
	}

	if err := Validate(intent); err != nil {
		return nil, err
	}
	return intent, nil
}
