package pd

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pkg"
)

// SVIDPD is the Standard ID used by Discover Identity and other PD
// structured VDMs.
const SVIDPD = 0xFF00

// CommandDiscoverIdentity is the structured VDM command number of
// Discover Identity.
const CommandDiscoverIdentity = 1

// CommandType is the structured VDM command type.
type CommandType uint8

// Structured VDM command types.
const (
	CommandREQ CommandType = iota
	CommandACK
	CommandNAK
	CommandBUSY
)

func (c CommandType) String() string {
	return [...]string{"REQ", "ACK", "NAK", "BUSY"}[c&3]
}

// VDMHeader is a structured Vendor Defined Message header.
type VDMHeader struct {
	SVID           uint16      `yaml:"svid" json:"svid"`
	Structured     bool        `yaml:"structured" json:"structured"`
	VersionMajor   uint8       `yaml:"version_major" json:"version_major"`
	VersionMinor   uint8       `yaml:"version_minor" json:"version_minor"`
	ObjectPosition uint8       `yaml:"object_position" json:"object_position"`
	CommandType    CommandType `yaml:"command_type" json:"command_type"`
	Command        uint8       `yaml:"command" json:"command"`
}

// DecodeVDMHeader decodes a VDM header word.
func DecodeVDMHeader(w uint32) (VDMHeader, error) {
	h := VDMHeader{
		SVID:       uint16(bitfield.Get(w, 31, 16)),
		Structured: bitfield.Bit(w, 15),
	}
	if !h.Structured {
		return h, pkg.NewDecodeError("VDM header", "type", uint64(w), pkg.ErrUnknownVariant)
	}
	if bitfield.Bit(w, 5) {
		return h, pkg.NewDecodeError("VDM header", "reserved", uint64(w), pkg.ErrReservedBits)
	}
	h.VersionMajor = uint8(bitfield.Get(w, 14, 13))
	h.VersionMinor = uint8(bitfield.Get(w, 12, 11))
	h.ObjectPosition = uint8(bitfield.Get(w, 10, 8))
	h.CommandType = CommandType(bitfield.Get(w, 7, 6))
	h.Command = uint8(bitfield.Get(w, 4, 0))
	return h, nil
}

// Encode returns the header word.
func (h VDMHeader) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 16, uint32(h.SVID))
	w = bitfield.Set(w, 15, h.Structured)
	w = bitfield.Put(w, 14, 13, uint32(h.VersionMajor))
	w = bitfield.Put(w, 12, 11, uint32(h.VersionMinor))
	w = bitfield.Put(w, 10, 8, uint32(h.ObjectPosition))
	w = bitfield.Put(w, 7, 6, uint32(h.CommandType))
	return bitfield.Put(w, 4, 0, uint32(h.Command))
}

// DiscoverIdentityACK returns the header of a successful Discover Identity
// response for the given revision.
func DiscoverIdentityACK(rev Revision) VDMHeader {
	h := VDMHeader{
		SVID:        SVIDPD,
		Structured:  true,
		CommandType: CommandACK,
		Command:     CommandDiscoverIdentity,
	}
	if rev.Major() >= 3 {
		h.VersionMajor = 1
	}
	return h
}

// UFPType is the product type a UFP or SOP partner reports.
type UFPType uint8

// UFP product types.
const (
	UFPUndefined  UFPType = 0
	UFPHub        UFPType = 1
	UFPPeripheral UFPType = 2
	UFPPSD        UFPType = 3
)

// CablePlugType is the product type a cable plug reports on SOP′.
type CablePlugType uint8

// Cable plug product types.
const (
	PlugUndefined    CablePlugType = 0
	PlugPassiveCable CablePlugType = 3
	PlugActiveCable  CablePlugType = 4
	PlugVPD          CablePlugType = 6
)

// DFPType is the product type a DFP reports.
type DFPType uint8

// DFP product types.
const (
	DFPUndefined  DFPType = 0
	DFPHub        DFPType = 1
	DFPHost       DFPType = 2
	DFPPowerBrick DFPType = 3
)

// ConnectorType is the connector a product exposes.
type ConnectorType uint8

// Connector types.
const (
	ConnectorUnspecified ConnectorType = 0
	ConnectorReceptacle  ConnectorType = 2
	ConnectorPlug        ConnectorType = 3
)

// IDHeader is the ID Header VDO of a Discover Identity response.
type IDHeader struct {
	USBHost        bool          `yaml:"usb_host" json:"usb_host"`
	USBDevice      bool          `yaml:"usb_device" json:"usb_device"`
	ProductType    uint8         `yaml:"product_type" json:"product_type"` // UFPType on SOP, CablePlugType on SOP′/SOP″
	ModalOperation bool          `yaml:"modal_operation" json:"modal_operation"`
	DFPProductType DFPType       `yaml:"dfp_product_type" json:"dfp_product_type"` // PD 3.0+
	ConnectorType  ConnectorType `yaml:"connector_type" json:"connector_type"`     // PD 3.1+
	VendorID       uint16        `yaml:"vendor_id" json:"vendor_id"`
}

// UFP returns the product type as seen from SOP.
func (h IDHeader) UFP() UFPType { return UFPType(h.ProductType) }

// CablePlug returns the product type as seen from SOP′.
func (h IDHeader) CablePlug() CablePlugType { return CablePlugType(h.ProductType) }

type vdoLayout struct {
	revs     *semver.Constraints
	reserved uint32
}

var idHeaderLayouts = []vdoLayout{
	{rev20, bitfield.Mask[uint32](25, 16)},
	{rev30, bitfield.Mask[uint32](22, 16)},
	{rev31Plus, bitfield.Mask[uint32](20, 16)},
}

func reservedMask(layouts []vdoLayout, rev Revision) uint32 {
	v := rev.Version()
	for _, l := range layouts {
		if l.revs.Check(v) {
			return l.reserved
		}
	}
	return 0
}

// DecodeIDHeader decodes an ID Header VDO under revision rev.
func DecodeIDHeader(w uint32, rev Revision) (IDHeader, error) {
	if err := rev.check("ID header VDO"); err != nil {
		return IDHeader{}, err
	}
	if w&reservedMask(idHeaderLayouts, rev) != 0 {
		return IDHeader{}, pkg.NewDecodeError("ID header VDO", "reserved", uint64(w), pkg.ErrReservedBits)
	}
	return IDHeader{
		USBHost:        bitfield.Bit(w, 31),
		USBDevice:      bitfield.Bit(w, 30),
		ProductType:    uint8(bitfield.Get(w, 29, 27)),
		ModalOperation: bitfield.Bit(w, 26),
		DFPProductType: DFPType(bitfield.Get(w, 25, 23)),
		ConnectorType:  ConnectorType(bitfield.Get(w, 22, 21)),
		VendorID:       uint16(bitfield.Get(w, 15, 0)),
	}, nil
}

// Encode returns the VDO word.
func (h IDHeader) Encode() uint32 {
	var w uint32
	w = bitfield.Set(w, 31, h.USBHost)
	w = bitfield.Set(w, 30, h.USBDevice)
	w = bitfield.Put(w, 29, 27, uint32(h.ProductType))
	w = bitfield.Set(w, 26, h.ModalOperation)
	w = bitfield.Put(w, 25, 23, uint32(h.DFPProductType))
	w = bitfield.Put(w, 22, 21, uint32(h.ConnectorType))
	return bitfield.Put(w, 15, 0, uint32(h.VendorID))
}

// CertStat is the Cert Stat VDO carrying the USB-IF XID.
type CertStat struct {
	XID uint32 `yaml:"xid" json:"xid"`
}

// Encode returns the VDO word.
func (c CertStat) Encode() uint32 { return c.XID }

// ProductVDO carries the product ID and device release.
type ProductVDO struct {
	ProductID uint16 `yaml:"product_id" json:"product_id"`
	BCDDevice uint16 `yaml:"bcd_device" json:"bcd_device"`
}

// DecodeProductVDO decodes a Product VDO.
func DecodeProductVDO(w uint32) ProductVDO {
	return ProductVDO{
		ProductID: uint16(bitfield.Get(w, 31, 16)),
		BCDDevice: uint16(bitfield.Get(w, 15, 0)),
	}
}

// Encode returns the VDO word.
func (p ProductVDO) Encode() uint32 {
	return uint32(p.ProductID)<<16 | uint32(p.BCDDevice)
}

// =============================================================================
// Product Type VDOs
// =============================================================================

// ProductTypeVDO is one of the product-type specific VDOs that follow the
// Product VDO: UFPVDO, DFPVDO, PassiveCableVDO, ActiveCableVDO, VPDVDO or
// RawVDO.
type ProductTypeVDO interface {
	Encode() uint32
	isProductTypeVDO()
}

// RawVDO is a product-type VDO kept undecoded. It is used for the pad
// object between UFP and DFP VDOs, for Active Cable VDO2, and for every
// product-type VDO of a PD 2.0 response.
type RawVDO uint32

// Encode returns the VDO word.
func (v RawVDO) Encode() uint32 { return uint32(v) }

// UFPVDO describes a hub or peripheral.
type UFPVDO struct {
	Version          uint8         `yaml:"version" json:"version"`
	DeviceCapability uint8         `yaml:"device_capability" json:"device_capability"` // bitmap: USB2, USB2 billboard, USB3, USB4
	ConnectorType    ConnectorType `yaml:"connector_type" json:"connector_type"`
	VCONNPower       uint8         `yaml:"vconn_power" json:"vconn_power"`
	VCONNRequired    bool          `yaml:"vconn_required" json:"vconn_required"`
	VBUSRequired     bool          `yaml:"vbus_required" json:"vbus_required"`
	AlternateModes   uint8         `yaml:"alternate_modes" json:"alternate_modes"` // bitmap: TBT3, reconfigurable, non-reconfigurable
	USBHighestSpeed  uint8         `yaml:"usb_highest_speed" json:"usb_highest_speed"`
}

// DFPVDO describes a hub, host or power brick.
type DFPVDO struct {
	Version        uint8         `yaml:"version" json:"version"`
	HostCapability uint8         `yaml:"host_capability" json:"host_capability"` // bitmap: USB2, USB3, USB4
	ConnectorType  ConnectorType `yaml:"connector_type" json:"connector_type"`
	PortNumber     uint8         `yaml:"port_number" json:"port_number"`
}

// CableCurrent is the VBUS current a cable is rated for.
type CableCurrent uint8

// Cable current ratings.
const (
	CableCurrentDefault CableCurrent = 0
	CableCurrent3A      CableCurrent = 1
	CableCurrent5A      CableCurrent = 2
)

// MilliAmps returns the rated current.
func (c CableCurrent) MilliAmps() uint32 {
	switch c {
	case CableCurrent5A:
		return 5000
	default:
		return 3000
	}
}

// PassiveCableVDO describes a passive cable.
type PassiveCableVDO struct {
	HWVersion       uint8        `yaml:"hw_version" json:"hw_version"`
	FWVersion       uint8        `yaml:"fw_version" json:"fw_version"`
	VDOVersion      uint8        `yaml:"vdo_version" json:"vdo_version"`
	PlugType        uint8        `yaml:"plug_type" json:"plug_type"` // 2 = Type-C, 3 = captive
	EPRCapable      bool         `yaml:"epr_capable" json:"epr_capable"`
	Latency         uint8        `yaml:"latency" json:"latency"`
	Termination     uint8        `yaml:"termination" json:"termination"`
	MaxVBUSVoltage  uint8        `yaml:"max_vbus_voltage" json:"max_vbus_voltage"`
	VBUSCurrent     CableCurrent `yaml:"vbus_current" json:"vbus_current"`
	USBHighestSpeed uint8        `yaml:"usb_highest_speed" json:"usb_highest_speed"`
}

// ActiveCableVDO describes an active cable (Active Cable VDO1).
type ActiveCableVDO struct {
	HWVersion          uint8        `yaml:"hw_version" json:"hw_version"`
	FWVersion          uint8        `yaml:"fw_version" json:"fw_version"`
	VDOVersion         uint8        `yaml:"vdo_version" json:"vdo_version"`
	PlugType           uint8        `yaml:"plug_type" json:"plug_type"`
	EPRCapable         bool         `yaml:"epr_capable" json:"epr_capable"`
	Latency            uint8        `yaml:"latency" json:"latency"`
	Termination        uint8        `yaml:"termination" json:"termination"`
	MaxVBUSVoltage     uint8        `yaml:"max_vbus_voltage" json:"max_vbus_voltage"`
	SBUSupported       bool         `yaml:"sbu_supported" json:"sbu_supported"`
	SBUPassive         bool         `yaml:"sbu_passive" json:"sbu_passive"`
	VBUSCurrent        CableCurrent `yaml:"vbus_current" json:"vbus_current"`
	VBUSThroughCable   bool         `yaml:"vbus_through_cable" json:"vbus_through_cable"`
	SOPDoublePrimeCtrl bool         `yaml:"sop_double_prime_controller" json:"sop_double_prime_controller"`
	USBHighestSpeed    uint8        `yaml:"usb_highest_speed" json:"usb_highest_speed"`
}

// VPDVDO describes a VCONN-powered USB device.
type VPDVDO struct {
	HWVersion            uint8 `yaml:"hw_version" json:"hw_version"`
	FWVersion            uint8 `yaml:"fw_version" json:"fw_version"`
	VDOVersion           uint8 `yaml:"vdo_version" json:"vdo_version"`
	MaxVBUSVoltage       uint8 `yaml:"max_vbus_voltage" json:"max_vbus_voltage"`
	ChargeThroughCurrent bool  `yaml:"charge_through_current" json:"charge_through_current"`
	VBUSImpedance        uint8 `yaml:"vbus_impedance" json:"vbus_impedance"`
	GroundImpedance      uint8 `yaml:"ground_impedance" json:"ground_impedance"`
	ChargeThrough        bool  `yaml:"charge_through" json:"charge_through"`
}

func (UFPVDO) isProductTypeVDO()          {}
func (DFPVDO) isProductTypeVDO()          {}
func (PassiveCableVDO) isProductTypeVDO() {}
func (ActiveCableVDO) isProductTypeVDO()  {}
func (VPDVDO) isProductTypeVDO()          {}
func (RawVDO) isProductTypeVDO()          {}

const (
	ufpReserved     = 1<<28 | 0x003FF800 // b28, b21:11
	dfpReserved     = 0x18000000 | 0x003FFFE0
	passiveReserved = 1<<20 | 0x180 | 0x18 // b20, b8:7, b4:3
	activeReserved  = 1 << 20
	vpdReserved     = 0x001E0000 | 1<<13 // b20:17, b13
)

func checkReserved(record string, w, mask uint32) error {
	if w&mask != 0 {
		return pkg.NewDecodeError(record, "reserved", uint64(w), pkg.ErrReservedBits)
	}
	return nil
}

// DecodeUFPVDO decodes a UFP VDO.
func DecodeUFPVDO(w uint32) (UFPVDO, error) {
	if err := checkReserved("UFP VDO", w, ufpReserved); err != nil {
		return UFPVDO{}, err
	}
	return UFPVDO{
		Version:          uint8(bitfield.Get(w, 31, 29)),
		DeviceCapability: uint8(bitfield.Get(w, 27, 24)),
		ConnectorType:    ConnectorType(bitfield.Get(w, 23, 22)),
		VCONNPower:       uint8(bitfield.Get(w, 10, 8)),
		VCONNRequired:    bitfield.Bit(w, 7),
		VBUSRequired:     bitfield.Bit(w, 6),
		AlternateModes:   uint8(bitfield.Get(w, 5, 3)),
		USBHighestSpeed:  uint8(bitfield.Get(w, 2, 0)),
	}, nil
}

// Encode returns the VDO word.
func (v UFPVDO) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 29, uint32(v.Version))
	w = bitfield.Put(w, 27, 24, uint32(v.DeviceCapability))
	w = bitfield.Put(w, 23, 22, uint32(v.ConnectorType))
	w = bitfield.Put(w, 10, 8, uint32(v.VCONNPower))
	w = bitfield.Set(w, 7, v.VCONNRequired)
	w = bitfield.Set(w, 6, v.VBUSRequired)
	w = bitfield.Put(w, 5, 3, uint32(v.AlternateModes))
	return bitfield.Put(w, 2, 0, uint32(v.USBHighestSpeed))
}

// DecodeDFPVDO decodes a DFP VDO.
func DecodeDFPVDO(w uint32) (DFPVDO, error) {
	if err := checkReserved("DFP VDO", w, dfpReserved); err != nil {
		return DFPVDO{}, err
	}
	return DFPVDO{
		Version:        uint8(bitfield.Get(w, 31, 29)),
		HostCapability: uint8(bitfield.Get(w, 26, 24)),
		ConnectorType:  ConnectorType(bitfield.Get(w, 23, 22)),
		PortNumber:     uint8(bitfield.Get(w, 4, 0)),
	}, nil
}

// Encode returns the VDO word.
func (v DFPVDO) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 29, uint32(v.Version))
	w = bitfield.Put(w, 26, 24, uint32(v.HostCapability))
	w = bitfield.Put(w, 23, 22, uint32(v.ConnectorType))
	return bitfield.Put(w, 4, 0, uint32(v.PortNumber))
}

// DecodePassiveCableVDO decodes a Passive Cable VDO.
func DecodePassiveCableVDO(w uint32) (PassiveCableVDO, error) {
	if err := checkReserved("passive cable VDO", w, passiveReserved); err != nil {
		return PassiveCableVDO{}, err
	}
	return PassiveCableVDO{
		HWVersion:       uint8(bitfield.Get(w, 31, 28)),
		FWVersion:       uint8(bitfield.Get(w, 27, 24)),
		VDOVersion:      uint8(bitfield.Get(w, 23, 21)),
		PlugType:        uint8(bitfield.Get(w, 19, 18)),
		EPRCapable:      bitfield.Bit(w, 17),
		Latency:         uint8(bitfield.Get(w, 16, 13)),
		Termination:     uint8(bitfield.Get(w, 12, 11)),
		MaxVBUSVoltage:  uint8(bitfield.Get(w, 10, 9)),
		VBUSCurrent:     CableCurrent(bitfield.Get(w, 6, 5)),
		USBHighestSpeed: uint8(bitfield.Get(w, 2, 0)),
	}, nil
}

// Encode returns the VDO word.
func (v PassiveCableVDO) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 28, uint32(v.HWVersion))
	w = bitfield.Put(w, 27, 24, uint32(v.FWVersion))
	w = bitfield.Put(w, 23, 21, uint32(v.VDOVersion))
	w = bitfield.Put(w, 19, 18, uint32(v.PlugType))
	w = bitfield.Set(w, 17, v.EPRCapable)
	w = bitfield.Put(w, 16, 13, uint32(v.Latency))
	w = bitfield.Put(w, 12, 11, uint32(v.Termination))
	w = bitfield.Put(w, 10, 9, uint32(v.MaxVBUSVoltage))
	w = bitfield.Put(w, 6, 5, uint32(v.VBUSCurrent))
	return bitfield.Put(w, 2, 0, uint32(v.USBHighestSpeed))
}

// DecodeActiveCableVDO decodes Active Cable VDO1.
func DecodeActiveCableVDO(w uint32) (ActiveCableVDO, error) {
	if err := checkReserved("active cable VDO", w, activeReserved); err != nil {
		return ActiveCableVDO{}, err
	}
	return ActiveCableVDO{
		HWVersion:          uint8(bitfield.Get(w, 31, 28)),
		FWVersion:          uint8(bitfield.Get(w, 27, 24)),
		VDOVersion:         uint8(bitfield.Get(w, 23, 21)),
		PlugType:           uint8(bitfield.Get(w, 19, 18)),
		EPRCapable:         bitfield.Bit(w, 17),
		Latency:            uint8(bitfield.Get(w, 16, 13)),
		Termination:        uint8(bitfield.Get(w, 12, 11)),
		MaxVBUSVoltage:     uint8(bitfield.Get(w, 10, 9)),
		SBUSupported:       !bitfield.Bit(w, 8),
		SBUPassive:         !bitfield.Bit(w, 7),
		VBUSCurrent:        CableCurrent(bitfield.Get(w, 6, 5)),
		VBUSThroughCable:   bitfield.Bit(w, 4),
		SOPDoublePrimeCtrl: bitfield.Bit(w, 3),
		USBHighestSpeed:    uint8(bitfield.Get(w, 2, 0)),
	}, nil
}

// Encode returns the VDO word.
func (v ActiveCableVDO) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 28, uint32(v.HWVersion))
	w = bitfield.Put(w, 27, 24, uint32(v.FWVersion))
	w = bitfield.Put(w, 23, 21, uint32(v.VDOVersion))
	w = bitfield.Put(w, 19, 18, uint32(v.PlugType))
	w = bitfield.Set(w, 17, v.EPRCapable)
	w = bitfield.Put(w, 16, 13, uint32(v.Latency))
	w = bitfield.Put(w, 12, 11, uint32(v.Termination))
	w = bitfield.Put(w, 10, 9, uint32(v.MaxVBUSVoltage))
	w = bitfield.Set(w, 8, !v.SBUSupported)
	w = bitfield.Set(w, 7, !v.SBUPassive)
	w = bitfield.Put(w, 6, 5, uint32(v.VBUSCurrent))
	w = bitfield.Set(w, 4, v.VBUSThroughCable)
	w = bitfield.Set(w, 3, v.SOPDoublePrimeCtrl)
	return bitfield.Put(w, 2, 0, uint32(v.USBHighestSpeed))
}

// DecodeVPDVDO decodes a VPD VDO.
func DecodeVPDVDO(w uint32) (VPDVDO, error) {
	if err := checkReserved("VPD VDO", w, vpdReserved); err != nil {
		return VPDVDO{}, err
	}
	return VPDVDO{
		HWVersion:            uint8(bitfield.Get(w, 31, 28)),
		FWVersion:            uint8(bitfield.Get(w, 27, 24)),
		VDOVersion:           uint8(bitfield.Get(w, 23, 21)),
		MaxVBUSVoltage:       uint8(bitfield.Get(w, 16, 15)),
		ChargeThroughCurrent: bitfield.Bit(w, 14),
		VBUSImpedance:        uint8(bitfield.Get(w, 12, 7)),
		GroundImpedance:      uint8(bitfield.Get(w, 6, 1)),
		ChargeThrough:        bitfield.Bit(w, 0),
	}, nil
}

// Encode returns the VDO word.
func (v VPDVDO) Encode() uint32 {
	var w uint32
	w = bitfield.Put(w, 31, 28, uint32(v.HWVersion))
	w = bitfield.Put(w, 27, 24, uint32(v.FWVersion))
	w = bitfield.Put(w, 23, 21, uint32(v.VDOVersion))
	w = bitfield.Put(w, 16, 15, uint32(v.MaxVBUSVoltage))
	w = bitfield.Set(w, 14, v.ChargeThroughCurrent)
	w = bitfield.Put(w, 12, 7, uint32(v.VBUSImpedance))
	w = bitfield.Put(w, 6, 1, uint32(v.GroundImpedance))
	return bitfield.Set(w, 0, v.ChargeThrough)
}
