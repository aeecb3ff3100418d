package pd

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pkg"
)

// MessageType selects the PD message a query retrieves. The values match
// the UCSI GET_PD_MESSAGE response message type field.
type MessageType uint8

// PD message types.
const (
	MessageSinkCapabilitiesExtended MessageType = iota
	MessageSourceCapabilitiesExtended
	MessageBatteryCapabilities
	MessageBatteryStatus
	MessageDiscoverIdentity
	MessageRevision
)

var messageNames = [...]string{
	MessageSinkCapabilitiesExtended:   "sink_capabilities_extended",
	MessageSourceCapabilitiesExtended: "source_capabilities_extended",
	MessageBatteryCapabilities:        "battery_capabilities",
	MessageBatteryStatus:              "battery_status",
	MessageDiscoverIdentity:           "discover_identity",
	MessageRevision:                   "revision",
}

func (t MessageType) String() string {
	if int(t) < len(messageNames) {
		return messageNames[t]
	}
	return fmt.Sprintf("message(%d)", uint8(t))
}

// Decodable reports whether DecodeMessage understands t.
func Decodable(t MessageType) bool {
	return t == MessageDiscoverIdentity || t == MessageRevision
}

// SOPType is the packet addressing tier of a PD message.
type SOPType uint8

// SOP* packet types.
const (
	SOP SOPType = iota
	SOPPrime
	SOPDoublePrime
)

func (s SOPType) String() string {
	switch s {
	case SOPPrime:
		return "SOP'"
	case SOPDoublePrime:
		return "SOP''"
	}
	return "SOP"
}

// MarshalText implements encoding.TextMarshaler.
func (s SOPType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is a decoded PD message: *DiscoverIdentity or *RevisionMessage.
type Message interface {
	MessageType() MessageType
}

// DecodeMessage decodes the data objects of a PD message received on sop.
func DecodeMessage(t MessageType, sop SOPType, rev Revision, data []byte) (Message, error) {
	switch t {
	case MessageDiscoverIdentity:
		return DecodeDiscoverIdentity(data, sop, rev)
	case MessageRevision:
		return DecodeRevisionMessage(data)
	}
	return nil, pkg.NewDecodeError("PD message", "type", uint64(t), pkg.ErrUnknownVariant)
}

func words(record string, data []byte, min int) ([]uint32, error) {
	if len(data) < min*4 || len(data)%4 != 0 {
		return nil, pkg.NewDecodeError(record, "length", uint64(len(data)), pkg.ErrTruncated)
	}
	w := make([]uint32, len(data)/4)
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return w, nil
}

// =============================================================================
// Discover Identity
// =============================================================================

// DiscoverIdentityMinSize is the size of a response with no product-type
// VDOs: VDM header, ID header, Cert Stat and Product VDO.
const DiscoverIdentityMinSize = 16

// DiscoverIdentity is a Discover Identity ACK response.
type DiscoverIdentity struct {
	SOP          SOPType          `yaml:"sop" json:"sop"`
	Header       VDMHeader        `yaml:"header" json:"header"`
	IDHeader     IDHeader         `yaml:"id_header" json:"id_header"`
	CertStat     CertStat         `yaml:"cert_stat" json:"cert_stat"`
	Product      ProductVDO       `yaml:"product" json:"product"`
	ProductTypes []ProductTypeVDO `yaml:"product_types" json:"product_types"`
}

// MessageType implements Message.
func (*DiscoverIdentity) MessageType() MessageType { return MessageDiscoverIdentity }

// DecodeDiscoverIdentity decodes a response received on sop. Product-type
// VDOs are interpreted from the ID header; words past the expected ones
// are ignored, and missing trailing ones are tolerated.
func DecodeDiscoverIdentity(data []byte, sop SOPType, rev Revision) (*DiscoverIdentity, error) {
	const record = "discover identity"
	if err := rev.check(record); err != nil {
		return nil, err
	}
	w, err := words(record, data, 4)
	if err != nil {
		return nil, err
	}

	d := &DiscoverIdentity{SOP: sop}
	if d.Header, err = DecodeVDMHeader(w[0]); err != nil {
		return nil, err
	}
	if d.Header.SVID != SVIDPD || d.Header.Command != CommandDiscoverIdentity {
		return nil, pkg.NewDecodeError(record, "command", uint64(w[0]), pkg.ErrInvalidValue)
	}
	if d.IDHeader, err = DecodeIDHeader(w[1], rev); err != nil {
		return nil, err
	}
	d.CertStat = CertStat{XID: w[2]}
	d.Product = DecodeProductVDO(w[3])

	slots := d.productTypeSlots(rev)
	for i, decode := range slots {
		if 4+i >= len(w) {
			break
		}
		v, err := decode(w[4+i])
		if err != nil {
			return nil, err
		}
		d.ProductTypes = append(d.ProductTypes, v)
	}
	return d, nil
}

type vdoDecoder func(uint32) (ProductTypeVDO, error)

func rawDecoder(w uint32) (ProductTypeVDO, error) { return RawVDO(w), nil }

func typed[T ProductTypeVDO](f func(uint32) (T, error)) vdoDecoder {
	return func(w uint32) (ProductTypeVDO, error) {
		v, err := f(w)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// productTypeSlots lists the decoder for each product-type VDO position.
func (d *DiscoverIdentity) productTypeSlots(rev Revision) []vdoDecoder {
	if rev.Major() < 3 {
		return []vdoDecoder{rawDecoder, rawDecoder, rawDecoder}
	}
	if d.SOP != SOP {
		switch d.IDHeader.CablePlug() {
		case PlugPassiveCable:
			return []vdoDecoder{typed(DecodePassiveCableVDO)}
		case PlugActiveCable:
			return []vdoDecoder{typed(DecodeActiveCableVDO), rawDecoder}
		case PlugVPD:
			return []vdoDecoder{typed(DecodeVPDVDO)}
		}
		return nil
	}
	ufp := d.IDHeader.UFP() == UFPHub || d.IDHeader.UFP() == UFPPeripheral
	dfp := d.IDHeader.DFPProductType >= DFPHub && d.IDHeader.DFPProductType <= DFPPowerBrick
	switch {
	case ufp && dfp:
		return []vdoDecoder{typed(DecodeUFPVDO), rawDecoder, typed(DecodeDFPVDO)}
	case ufp:
		return []vdoDecoder{typed(DecodeUFPVDO)}
	case dfp:
		return []vdoDecoder{typed(DecodeDFPVDO)}
	}
	return nil
}

// Encode returns the message data objects in wire order.
func (d *DiscoverIdentity) Encode() []byte {
	objs := []uint32{d.Header.Encode(), d.IDHeader.Encode(), d.CertStat.Encode(), d.Product.Encode()}
	for _, v := range d.ProductTypes {
		objs = append(objs, v.Encode())
	}
	buf := make([]byte, 4*len(objs))
	for i, w := range objs {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

// =============================================================================
// Revision
// =============================================================================

// RevisionMessage is the Revision Message Data Object of a Revision
// message.
type RevisionMessage struct {
	RevisionMajor uint8 `yaml:"revision_major" json:"revision_major"`
	RevisionMinor uint8 `yaml:"revision_minor" json:"revision_minor"`
	VersionMajor  uint8 `yaml:"version_major" json:"version_major"`
	VersionMinor  uint8 `yaml:"version_minor" json:"version_minor"`
}

// MessageType implements Message.
func (*RevisionMessage) MessageType() MessageType { return MessageRevision }

// Revision returns the reported revision as a BCD Revision.
func (m *RevisionMessage) Revision() Revision {
	return Revision(uint16(m.RevisionMajor)<<8 | uint16(m.RevisionMinor)<<4)
}

// DecodeRevisionMessage decodes a Revision message data object.
func DecodeRevisionMessage(data []byte) (*RevisionMessage, error) {
	w, err := words("revision message", data, 1)
	if err != nil {
		return nil, err
	}
	if bitfield.Get(w[0], 15, 0) != 0 {
		return nil, pkg.NewDecodeError("revision message", "reserved", uint64(w[0]), pkg.ErrReservedBits)
	}
	return &RevisionMessage{
		RevisionMajor: uint8(bitfield.Get(w[0], 31, 28)),
		RevisionMinor: uint8(bitfield.Get(w[0], 27, 24)),
		VersionMajor:  uint8(bitfield.Get(w[0], 23, 20)),
		VersionMinor:  uint8(bitfield.Get(w[0], 19, 16)),
	}, nil
}

// Encode returns the message data object.
func (m *RevisionMessage) Encode() []byte {
	var w uint32
	w = bitfield.Put(w, 31, 28, uint32(m.RevisionMajor))
	w = bitfield.Put(w, 27, 24, uint32(m.RevisionMinor))
	w = bitfield.Put(w, 23, 20, uint32(m.VersionMajor))
	w = bitfield.Put(w, 19, 16, uint32(m.VersionMinor))
	return binary.LittleEndian.AppendUint32(nil, w)
}
