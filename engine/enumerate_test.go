package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

func connectorCalls(conn int) []string {
	var calls []string
	add := func(format string) {
		calls = append(calls, fmt.Sprintf(format, conn))
	}
	add("connector_capability/%d")
	add("connector_status/%d")
	add("pdos/%d/local/source")
	add("pdos/%d/local/sink")
	add("pdos/%d/partner/source")
	add("pdos/%d/partner/sink")
	add("cable/%d")
	add("modes/%d/connector")
	add("modes/%d/sop_prime")
	add("modes/%d/sop")
	add("message/%d/sop_prime/discover_identity")
	add("message/%d/sop/discover_identity")
	return calls
}

func TestEnumerate(t *testing.T) {
	f := newFake()
	s := newSession(t, f, WithSessionID("enum"))

	rep, err := Enumerate(s)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	want := append([]string{"capability"}, connectorCalls(0)...)
	want = append(want, connectorCalls(1)...)
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Errorf("backend call order mismatch (-want +got):\n%s", diff)
	}

	if rep.Session != "enum" || rep.Backend != "fake" || len(rep.Connectors) != 2 {
		t.Fatalf("Enumerate() = %+v", rep)
	}

	c0 := rep.Connectors[0]
	if c0.Capability == nil || c0.Status == nil || c0.Cable == nil {
		t.Errorf("connector 0 records = %+v, %+v, %+v; want all present", c0.Capability, c0.Status, c0.Cable)
	}
	wantSource := []PDOEntry{{
		Kind: pd.KindFixed,
		Raw:  0x0001912C,
		PDO:  pd.FixedSupply{Role: pd.Source, VoltageMV: 5000, CurrentMA: 3000},
	}}
	if diff := cmp.Diff(wantSource, c0.SourcePDOs); diff != "" {
		t.Errorf("SourcePDOs mismatch (-want +got):\n%s", diff)
	}
	if len(c0.SinkPDOs) != 0 || c0.PartnerSourcePDOs != nil || len(c0.PartnerSinkPDOs) != 2 {
		t.Errorf("PDO sections = %v, %v, %v", c0.SinkPDOs, c0.PartnerSourcePDOs, c0.PartnerSinkPDOs)
	}
	if diff := cmp.Diff([]ucsi.AlternateMode{{SVID: ucsi.SVIDDisplayPort, MID: 0x1C0045}}, c0.AlternateModes); diff != "" {
		t.Errorf("AlternateModes mismatch (-want +got):\n%s", diff)
	}
	if c0.CableModes != nil || c0.CableIdentity != nil {
		t.Errorf("cable sections = %v, %v; want empty", c0.CableModes, c0.CableIdentity)
	}
	if c0.PartnerIdentity == nil || c0.PartnerIdentity.IDHeader.VendorID != 0x05AC {
		t.Errorf("PartnerIdentity = %+v", c0.PartnerIdentity)
	}

	c1 := rep.Connectors[1]
	if c1.Index != 1 || c1.Cable != nil || c1.PartnerIdentity != nil || len(c1.SinkPDOs) != 1 {
		t.Errorf("connector 1 = %+v", c1)
	}

	if got := s.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d, want 0", got)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestEnumerate_NoPowerDelivery(t *testing.T) {
	f := newFake()
	f.capability = (&ucsi.Capability{NumConnectors: 2}).Bytes()
	s := newSession(t, f)

	rep, err := Enumerate(s)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	for _, c := range rep.Connectors {
		if c.SourcePDOs != nil || c.SinkPDOs != nil || c.PartnerSourcePDOs != nil || c.PartnerSinkPDOs != nil {
			t.Errorf("connector %d PDO sections = %v, %v, %v, %v; want empty",
				c.Index, c.SourcePDOs, c.SinkPDOs, c.PartnerSourcePDOs, c.PartnerSinkPDOs)
		}
		if c.PartnerIdentity != nil || c.CableIdentity != nil {
			t.Errorf("connector %d identities = %+v, %+v; want empty", c.Index, c.PartnerIdentity, c.CableIdentity)
		}
	}
	if rep.Connectors[0].Cable == nil || len(rep.Connectors[0].AlternateModes) != 1 {
		t.Errorf("connector 0 = %+v, want cable and alternate modes", rep.Connectors[0])
	}
	if got := f.count("pdos/") + f.count("message/"); got != 0 {
		t.Errorf("backend PD calls = %d, want 0", got)
	}
}

func TestEnumerate_Abort(t *testing.T) {
	f := newFake()
	f.errs = map[string]error{
		"pdos/1/local/sink": &pkg.BackendError{Backend: "fake", Op: "read port1", Err: errors.New("no such device")},
	}
	s := newSession(t, f)

	rep, err := Enumerate(s)
	if !errors.Is(err, pkg.ErrBackend) {
		t.Fatalf("Enumerate() error = %v, want backend error", err)
	}
	if !strings.Contains(err.Error(), "connector 1") {
		t.Errorf("Enumerate() error = %q, want connector 1 named", err)
	}
	if rep == nil || len(rep.Connectors) != 2 {
		t.Fatalf("Enumerate() report = %+v, want partial report of 2 connectors", rep)
	}
	if rep.Connectors[0].PartnerIdentity == nil {
		t.Error("connector 0 missing from partial report")
	}
	if rep.Connectors[1].Status == nil {
		t.Error("connector 1 status missing from partial report")
	}
	if got := f.count("cable/1"); got != 0 {
		t.Errorf("cable/1 calls = %d, want 0 after abort", got)
	}
	if got := s.Outstanding(); got != 0 {
		t.Errorf("Outstanding() = %d, want 0", got)
	}
}

func TestEnumerate_DecodeError(t *testing.T) {
	f := newFake()
	f.data["connector_status/0"] = []byte{1, 2}
	s := newSession(t, f)

	_, err := Enumerate(s)
	var de *pkg.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Enumerate() error = %v, want decode error", err)
	}
	if de.Connector != 0 || de.Query != QueryConnectorStatus {
		t.Errorf("DecodeError context = (%d, %q), want (0, %q)", de.Connector, de.Query, QueryConnectorStatus)
	}
}

func TestReport_YAML(t *testing.T) {
	s := newSession(t, newFake(), WithSessionID("yaml"))
	rep, err := Enumerate(s)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	out, err := yaml.Marshal(rep)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	for _, want := range []string{
		"session: yaml",
		"pd_version: \"3.0\"",
		"kind: fixed supply",
		"role: source",
		"voltage_mv: 5000",
		"plug_end_type: type-c",
		"power_operation_mode: pd",
		"vendor_id: 1452",
	} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml.Marshal() missing %q in:\n%s", want, out)
		}
	}
}
