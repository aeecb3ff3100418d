package pd

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/typecinfo/pkg"
)

func le(words ...uint32) []byte {
	buf := make([]byte, 0, 4*len(words))
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return buf
}

func TestVDMHeader_RoundTrip(t *testing.T) {
	h := DiscoverIdentityACK(Revision31)
	w := h.Encode()
	if w != 0xFF00A041 {
		t.Errorf("Encode() = 0x%08x, want 0xff00a041", w)
	}
	got, err := DecodeVDMHeader(w)
	if err != nil {
		t.Fatalf("DecodeVDMHeader() error = %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeVDMHeader_Errors(t *testing.T) {
	if _, err := DecodeVDMHeader(0xFF00A061); !errors.Is(err, pkg.ErrReservedBits) {
		t.Errorf("reserved bit 5: error = %v", err)
	}
	if _, err := DecodeVDMHeader(0x12340000); !errors.Is(err, pkg.ErrUnknownVariant) {
		t.Errorf("unstructured: error = %v", err)
	}
}

func TestDecodeIDHeader_Revisions(t *testing.T) {
	h := IDHeader{
		USBDevice:      true,
		ProductType:    uint8(UFPPeripheral),
		ModalOperation: true,
		DFPProductType: DFPHost,
		ConnectorType:  ConnectorReceptacle,
		VendorID:       0x05AC,
	}
	w := h.Encode()

	got, err := DecodeIDHeader(w, Revision31)
	if err != nil {
		t.Fatalf("DecodeIDHeader(3.1) error = %v", err)
	}
	if diff := cmp.Diff(h, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	// Connector type is reserved before 3.1, DFP type before 3.0.
	if _, err := DecodeIDHeader(w, Revision30); !errors.Is(err, pkg.ErrReservedBits) {
		t.Errorf("DecodeIDHeader(3.0) error = %v, want reserved bits", err)
	}
	h.ConnectorType = ConnectorUnspecified
	if _, err := DecodeIDHeader(h.Encode(), Revision30); err != nil {
		t.Errorf("DecodeIDHeader(3.0) without connector type error = %v", err)
	}
	if _, err := DecodeIDHeader(h.Encode(), Revision20); !errors.Is(err, pkg.ErrReservedBits) {
		t.Errorf("DecodeIDHeader(2.0) error = %v, want reserved bits", err)
	}
	if _, err := DecodeIDHeader(w|1<<16, Revision32); !errors.Is(err, pkg.ErrReservedBits) {
		t.Errorf("DecodeIDHeader(b16) error = %v, want reserved bits", err)
	}
}

func TestProductTypeVDO_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		vdo    ProductTypeVDO
		decode vdoDecoder
	}{
		{"ufp", UFPVDO{Version: 3, DeviceCapability: 0x5, ConnectorType: ConnectorReceptacle, VCONNPower: 2, VBUSRequired: true, AlternateModes: 4, USBHighestSpeed: 3}, typed(DecodeUFPVDO)},
		{"dfp", DFPVDO{Version: 1, HostCapability: 0x3, ConnectorType: ConnectorReceptacle, PortNumber: 7}, typed(DecodeDFPVDO)},
		{"passive", PassiveCableVDO{HWVersion: 1, FWVersion: 2, VDOVersion: 0, PlugType: 2, EPRCapable: true, Latency: 1, MaxVBUSVoltage: 3, VBUSCurrent: CableCurrent5A, USBHighestSpeed: 2}, typed(DecodePassiveCableVDO)},
		{"active", ActiveCableVDO{HWVersion: 4, VDOVersion: 3, PlugType: 2, Latency: 2, Termination: 3, SBUSupported: true, VBUSCurrent: CableCurrent3A, VBUSThroughCable: true, SOPDoublePrimeCtrl: true, USBHighestSpeed: 3}, typed(DecodeActiveCableVDO)},
		{"vpd", VPDVDO{HWVersion: 1, FWVersion: 1, VDOVersion: 1, MaxVBUSVoltage: 2, ChargeThroughCurrent: true, VBUSImpedance: 20, GroundImpedance: 10, ChargeThrough: true}, typed(DecodeVPDVDO)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.decode(tt.vdo.Encode())
			if err != nil {
				t.Fatalf("decode error = %v", err)
			}
			if diff := cmp.Diff(tt.vdo, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPassiveCableVDO_Reserved(t *testing.T) {
	for _, bit := range []uint{20, 8, 7, 4, 3} {
		if _, err := DecodePassiveCableVDO(1 << bit); !errors.Is(err, pkg.ErrReservedBits) {
			t.Errorf("bit %d: error = %v, want reserved bits", bit, err)
		}
	}
}

func TestDecodeDiscoverIdentity_Cable(t *testing.T) {
	want := &DiscoverIdentity{
		SOP:    SOPPrime,
		Header: DiscoverIdentityACK(Revision31),
		IDHeader: IDHeader{
			ProductType:   uint8(PlugPassiveCable),
			ConnectorType: ConnectorPlug,
			VendorID:      0x2109,
		},
		CertStat: CertStat{XID: 0x1234},
		Product:  ProductVDO{ProductID: 0x0100, BCDDevice: 0x0110},
		ProductTypes: []ProductTypeVDO{
			PassiveCableVDO{PlugType: 2, Latency: 1, VBUSCurrent: CableCurrent5A, USBHighestSpeed: 3},
		},
	}

	// Trailing zero objects as reported by sysfs are ignored.
	data := append(want.Encode(), le(0, 0)...)
	msg, err := DecodeMessage(MessageDiscoverIdentity, SOPPrime, Revision31, data)
	if err != nil {
		t.Fatalf("DecodeMessage() error = %v", err)
	}
	if diff := cmp.Diff(Message(want), msg); diff != "" {
		t.Errorf("DecodeMessage() mismatch (-want +got):\n%s", diff)
	}
	if msg.MessageType() != MessageDiscoverIdentity {
		t.Errorf("MessageType() = %v", msg.MessageType())
	}
}

func TestDecodeDiscoverIdentity_DualRole(t *testing.T) {
	idh := IDHeader{
		USBHost:        true,
		USBDevice:      true,
		ProductType:    uint8(UFPPeripheral),
		DFPProductType: DFPHost,
		VendorID:       0x8087,
	}
	ufp := UFPVDO{Version: 3, DeviceCapability: 0x4}
	dfp := DFPVDO{Version: 1, HostCapability: 0x4, PortNumber: 1}
	data := le(DiscoverIdentityACK(Revision30).Encode(), idh.Encode(), 0, 0x12340001, ufp.Encode(), 0, dfp.Encode())

	d, err := DecodeDiscoverIdentity(data, SOP, Revision30)
	if err != nil {
		t.Fatalf("DecodeDiscoverIdentity() error = %v", err)
	}
	want := []ProductTypeVDO{ufp, RawVDO(0), dfp}
	if diff := cmp.Diff(want, d.ProductTypes); diff != "" {
		t.Errorf("ProductTypes mismatch (-want +got):\n%s", diff)
	}
	if d.Product.ProductID != 0x1234 || d.Product.BCDDevice != 0x0001 {
		t.Errorf("Product = %+v", d.Product)
	}
}

func TestDecodeDiscoverIdentity_Errors(t *testing.T) {
	ack := DiscoverIdentityACK(Revision30).Encode()
	tests := []struct {
		name    string
		data    []byte
		rev     Revision
		wantErr error
	}{
		{"truncated", le(ack, 0, 0), Revision30, pkg.ErrTruncated},
		{"ragged", append(le(ack, 0, 0, 0), 1), Revision30, pkg.ErrTruncated},
		{"wrong command", le(0xFF00A042, 0, 0, 0), Revision30, pkg.ErrInvalidValue},
		{"id header reserved", le(ack, 1<<16, 0, 0), Revision30, pkg.ErrReservedBits},
		{"pd 1.0", le(ack, 0, 0, 0), 0x0100, pkg.ErrUnsupportedRevision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDiscoverIdentity(tt.data, SOP, tt.rev)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeDiscoverIdentity() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeRevisionMessage(t *testing.T) {
	m := &RevisionMessage{RevisionMajor: 3, RevisionMinor: 2, VersionMajor: 1, VersionMinor: 1}
	got, err := DecodeRevisionMessage(m.Encode())
	if err != nil {
		t.Fatalf("DecodeRevisionMessage() error = %v", err)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.Revision() != Revision32 {
		t.Errorf("Revision() = %s, want 3.2", got.Revision())
	}

	if _, err := DecodeRevisionMessage(le(0x32110001)); !errors.Is(err, pkg.ErrReservedBits) {
		t.Errorf("reserved: error = %v", err)
	}
}

func TestDecodeMessage_Unknown(t *testing.T) {
	if Decodable(MessageBatteryStatus) {
		t.Error("Decodable(battery_status) = true")
	}
	_, err := DecodeMessage(MessageBatteryStatus, SOP, Revision30, le(0))
	if !errors.Is(err, pkg.ErrUnknownVariant) {
		t.Errorf("DecodeMessage() error = %v, want unknown variant", err)
	}
}
