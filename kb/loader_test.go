package kb

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/netintent/internal/docformat"
	"github.com/signalsfoundry/netintent/model"
)

const yamlIntent = `
project_name: lab
global_options:
  inter_as_subnet: "2001:ff"
as_list:
  - asn: 100
    prefix: "2001:100"
    protocol: RIP
    rip_process_name: RIPNG
    routers: [R1, R2]
  - asn: "200"
    prefix: "2001:200"
    protocol: ospf
    ospf_process_id: "7"
    routers: [R3, R4]
    custom_costs:
      - {r1: R3, r2: R4, cost: 20}
bgp_policies:
  customer_community: "100:1"
  local_pref_customer: 200
  local_pref_peer: "150"
  local_pref_provider: 100
external_relationships:
  - nodes: [R2, R3]
    relationship: provider
  - nodes: [R1, R4]
ospf_custom_metrics:
  - nodes: [R4, R3]
    cost: 30
`

func TestLoadIntentYAML(t *testing.T) {
	intent, err := LoadIntent(strings.NewReader(yamlIntent), docformat.YAML)
	if err != nil {
		t.Fatalf("LoadIntent error: %v", err)
	}

	if intent.ProjectName != "lab" || intent.Global.InterASPrefix != "2001:ff" {
		t.Fatalf("unexpected header: %+v", intent)
	}
	if len(intent.Systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(intent.Systems))
	}

	rip := intent.Systems[0]
	if rip.Protocol != model.IGPRIP || rip.RIPProcessName != "RIPNG" {
		t.Fatalf("AS 100 = %+v, want rip RIPNG (protocol is case-insensitive)", rip)
	}

	ospf := intent.Systems[1]
	if ospf.ASN != 200 || ospf.OSPFProcessID != 7 {
		t.Fatalf("AS 200 = %+v, want quoted numbers accepted", ospf)
	}
	wantCosts := []model.CostOverride{{A: "R3", B: "R4", Cost: 20}, {A: "R4", B: "R3", Cost: 30}}
	if diff := cmp.Diff(wantCosts, ospf.CostOverrides); diff != "" {
		t.Fatalf("cost overrides (-want +got):\n%s", diff)
	}

	if intent.Policy.LocalPrefPeer != 150 {
		t.Fatalf("LocalPrefPeer = %d, want 150", intent.Policy.LocalPrefPeer)
	}

	wantRels := []model.Relationship{
		{From: "R2", To: "R3", Kind: model.RelationshipProvider},
		{From: "R1", To: "R4", Kind: model.RelationshipPeer},
	}
	if diff := cmp.Diff(wantRels, intent.Relationships); diff != "" {
		t.Fatalf("relationships (-want +got):\n%s", diff)
	}
}

func TestLoadIntentJSONAndTOMLAgreeWithYAML(t *testing.T) {
	const jsonIntent = `{
  "project_name": "lab",
  "global_options": {"inter_as_subnet": "2001:ff"},
  "as_list": [
    {"asn": 100, "prefix": "2001:100", "protocol": "none", "routers": ["R1"]}
  ],
  "bgp_policies": {"customer_community": "100:1", "local_pref_customer": 200, "local_pref_peer": 150, "local_pref_provider": 100}
}`
	const tomlIntent = `
project_name = "lab"

[global_options]
inter_as_subnet = "2001:ff"

[[as_list]]
asn = 100
prefix = "2001:100"
protocol = "none"
routers = ["R1"]

[bgp_policies]
customer_community = "100:1"
local_pref_customer = 200
local_pref_peer = 150
local_pref_provider = 100
`
	fromJSON, err := LoadIntent(strings.NewReader(jsonIntent), docformat.JSON)
	if err != nil {
		t.Fatalf("LoadIntent(json) error: %v", err)
	}
	fromTOML, err := LoadIntent(strings.NewReader(tomlIntent), docformat.TOML)
	if err != nil {
		t.Fatalf("LoadIntent(toml) error: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromTOML); diff != "" {
		t.Fatalf("json and toml intents differ (-json +toml):\n%s", diff)
	}
	if fromJSON.Systems[0].Protocol != model.IGPNone {
		t.Fatalf("protocol = %q, want none", fromJSON.Systems[0].Protocol)
	}
}

func TestLoadIntentDefaultsProtocolToNone(t *testing.T) {
	doc := strings.Replace(yamlIntent, "    protocol: RIP\n    rip_process_name: RIPNG\n", "", 1)
	intent, err := LoadIntent(strings.NewReader(doc), docformat.YAML)
	if err != nil {
		t.Fatalf("LoadIntent error: %v", err)
	}
	if got := intent.Systems[0].Protocol; got != model.IGPNone {
		t.Fatalf("protocol = %q, want none", got)
	}
}

func TestLoadIntentRejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr error
	}{
		{
			name: "unknown field",
			mutate: func(s string) string {
				return strings.Replace(s, "project_name: lab", "project_name: lab\nprojet: typo", 1)
			},
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "rip without process name",
			mutate:  func(s string) string { return strings.Replace(s, "    rip_process_name: RIPNG\n", "", 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "ospf without process id",
			mutate:  func(s string) string { return strings.Replace(s, `    ospf_process_id: "7"`+"\n", "", 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "unknown protocol",
			mutate:  func(s string) string { return strings.Replace(s, "protocol: ospf", "protocol: isis", 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "unknown relationship",
			mutate:  func(s string) string { return strings.Replace(s, "relationship: provider", "relationship: sibling", 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "bad community",
			mutate:  func(s string) string { return strings.Replace(s, `"100:1"`, `"no-export"`, 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name:    "non-numeric asn",
			mutate:  func(s string) string { return strings.Replace(s, `asn: "200"`, `asn: "AS200"`, 1) },
			wantErr: ErrInvalidIntent,
		},
		{
			name: "metric across domains",
			mutate: func(s string) string {
				return strings.Replace(s, "  - nodes: [R4, R3]\n    cost: 30", "  - nodes: [R2, R3]\n    cost: 30", 1)
			},
			wantErr: ErrCrossASMetric,
		},
		{
			name:    "overlapping prefixes",
			mutate:  func(s string) string { return strings.Replace(s, `prefix: "2001:200"`, `prefix: "2001:100"`, 1) },
			wantErr: ErrPrefixOverlap,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := tc.mutate(yamlIntent)
			if doc == yamlIntent {
				t.Fatalf("mutation did not apply")
			}
			_, err := LoadIntent(strings.NewReader(doc), docformat.YAML)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("LoadIntent error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadIntentFilePicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intent.yml")
	if err := os.WriteFile(path, []byte(yamlIntent), 0o644); err != nil {
		t.Fatalf("write intent: %v", err)
	}
	if _, err := LoadIntentFile(path); err != nil {
		t.Fatalf("LoadIntentFile error: %v", err)
	}

	bad := filepath.Join(dir, "intent.ini")
	if err := os.WriteFile(bad, []byte(yamlIntent), 0o644); err != nil {
		t.Fatalf("write intent: %v", err)
	}
	_, err := LoadIntentFile(bad)
	if !errors.Is(err, ErrInvalidIntent) || !errors.Is(err, docformat.ErrUnknownFormat) {
		t.Fatalf("LoadIntentFile(.ini) error = %v, want ErrInvalidIntent wrapping ErrUnknownFormat", err)
	}
}

func TestLoadIntentFileNamesThePath(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "intent.json")
	if err := os.WriteFile(broken, []byte(`{"project_name": 7}`), 0o644); err != nil {
		t.Fatalf("write intent: %v", err)
	}
	_, err := LoadIntentFile(broken)
	if !errors.Is(err, ErrInvalidIntent) || !strings.Contains(err.Error(), broken) {
		t.Fatalf("LoadIntentFile(broken) error = %v, want ErrInvalidIntent naming %s", err, broken)
	}

	_, err = LoadIntentFile(filepath.Join(dir, "absent.yaml"))
	if !errors.Is(err, ErrInvalidIntent) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadIntentFile(absent) error = %v, want ErrInvalidIntent wrapping ErrNotExist", err)
	}
}
