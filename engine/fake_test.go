package engine

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/pkg/metrics"
	"github.com/ardnew/typecinfo/ucsi"
)

// fakeBackend serves canned records keyed by call, e.g. "cable/0" or
// "pdos/0/partner/source", and logs every call in order. Keys with no
// record answer pkg.ErrNotSupported.
type fakeBackend struct {
	capability []byte
	data       map[string][]byte
	words      map[string][]uint32
	errs       map[string]error
	calls      []string
	closed     int
	closeErr   error
}

func (f *fakeBackend) bytes(key string) ([]byte, error) {
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	d, ok := f.data[key]
	if !ok {
		return nil, pkg.ErrNotSupported
	}
	return append([]byte(nil), d...), nil
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Capability() ([]byte, error) {
	f.calls = append(f.calls, "capability")
	return f.capability, nil
}

func (f *fakeBackend) ConnectorCapability(conn int) ([]byte, error) {
	return f.bytes(fmt.Sprintf("connector_capability/%d", conn))
}

func (f *fakeBackend) ConnectorStatus(conn int) ([]byte, error) {
	return f.bytes(fmt.Sprintf("connector_status/%d", conn))
}

func (f *fakeBackend) PDOs(conn int, partner bool, role pd.Role, _ ucsi.SourceCapabilitiesType, _ pd.Revision) ([]uint32, error) {
	who := "local"
	if partner {
		who = "partner"
	}
	key := fmt.Sprintf("pdos/%d/%s/%s", conn, who, role)
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	w, ok := f.words[key]
	if !ok {
		return nil, pkg.ErrNotSupported
	}
	return append([]uint32{}, w...), nil
}

func (f *fakeBackend) CableProperty(conn int) ([]byte, error) {
	return f.bytes(fmt.Sprintf("cable/%d", conn))
}

func (f *fakeBackend) AlternateModes(conn int, r ucsi.Recipient) ([]byte, error) {
	return f.bytes(fmt.Sprintf("modes/%d/%s", conn, r))
}

func (f *fakeBackend) PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) ([]byte, error) {
	return f.bytes(fmt.Sprintf("message/%d/%s/%s", conn, r, t))
}

func (f *fakeBackend) Close() error {
	f.closed++
	return f.closeErr
}

// count returns the number of calls whose key starts with prefix.
func (f *fakeBackend) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func identityBytes() []byte {
	buf := binary.LittleEndian.AppendUint32(nil, pd.DiscoverIdentityACK(pd.Revision30).Encode())
	for _, w := range []uint32{0x540005AC, 0, 0x14600100, 0} {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}

// newFake returns a two-connector backend reporting PD 3.0. Connector 0
// is a source with a partner and a cable; connector 1 is empty.
func newFake() *fakeBackend {
	capability := ucsi.Capability{
		NumConnectors:    2,
		USBPowerDelivery: true,
		PDVersion:        pd.Revision30,
		OptionalFeatures: ucsi.FeaturePDODetails | ucsi.FeatureAltModeDetails | ucsi.FeatureCableDetails,
	}
	cc := ucsi.ConnectorCapability{OperationMode: ucsi.OpModeDRP, Provider: true, Consumer: true}
	status := ucsi.ConnectorStatus{Connected: true, Provider: true, PowerOperationMode: ucsi.PowerOpModePD}
	cable := ucsi.CableProperty{SpeedExponent: 3, SpeedMantissa: 10, CurrentCapability: 100, PlugEndType: ucsi.PlugEndTypeC}
	return &fakeBackend{
		capability: capability.Bytes(),
		data: map[string][]byte{
			"connector_capability/0":          cc.Bytes(),
			"connector_status/0":              status.Bytes(),
			"cable/0":                         cable.Bytes(),
			"modes/0/connector":               ucsi.MarshalAlternateModes([]ucsi.AlternateMode{{SVID: ucsi.SVIDDisplayPort, MID: 0x1C0045}}),
			"modes/0/sop":                     {},
			"message/0/sop/discover_identity": identityBytes(),
			"connector_capability/1":          (&ucsi.ConnectorCapability{OperationMode: ucsi.OpModeRdOnly}).Bytes(),
			"connector_status/1":              (&ucsi.ConnectorStatus{}).Bytes(),
		},
		words: map[string][]uint32{
			"pdos/0/local/source": {0x0001912C},
			"pdos/0/local/sink":   {},
			"pdos/0/partner/sink": {0x0001912C, 0x0002D0C8},
			"pdos/1/local/sink":   {0x0001912C},
		},
	}
}

func newSession(t *testing.T, f *fakeBackend, options ...Option) *Session {
	t.Helper()
	s, err := New(f, options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

// counter returns the value of a counter or gauge in r matching labels.
func counter(t *testing.T, r *metrics.Recorder, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					match++
				}
			}
			if match != len(labels) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}
