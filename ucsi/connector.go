package ucsi

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
)

// =============================================================================
// GET_CONNECTOR_CAPABILITY
// =============================================================================

// ConnectorCapabilitySize is the size of GET_CONNECTOR_CAPABILITY data.
// UCSI 1.x PPMs return only the first two bytes.
const (
	ConnectorCapabilitySize    = 4
	ConnectorCapabilityMinSize = 2
)

// OperationMode is the operation mode bitmap of a connector.
type OperationMode uint8

// Operation modes.
const (
	OpModeRpOnly OperationMode = 1 << iota
	OpModeRdOnly
	OpModeDRP
	OpModeAudioAccessory
	OpModeDebugAccessory
	OpModeUSB2
	OpModeUSB3
	OpModeAlternateMode
)

// ExtendedOperationMode is the extended operation mode bitmap.
type ExtendedOperationMode uint8

// Extended operation modes.
const (
	ExtOpModeUSB4Gen2 ExtendedOperationMode = 1 << iota
	ExtOpModeEPRSource
	ExtOpModeEPRSink
	ExtOpModeUSB4Gen3
	ExtOpModeUSB4Gen4
)

// MiscCapabilities is the miscellaneous capabilities bitmap.
type MiscCapabilities uint8

// Miscellaneous capabilities.
const (
	MiscFWUpdate MiscCapabilities = 1 << iota
	MiscSecurity
)

// ConnectorCapability is the GET_CONNECTOR_CAPABILITY data.
type ConnectorCapability struct {
	OperationMode            OperationMode         `yaml:"operation_mode" json:"operation_mode"`
	Provider                 bool                  `yaml:"provider" json:"provider"`
	Consumer                 bool                  `yaml:"consumer" json:"consumer"`
	SwapToDFP                bool                  `yaml:"swap_to_dfp" json:"swap_to_dfp"`
	SwapToUFP                bool                  `yaml:"swap_to_ufp" json:"swap_to_ufp"`
	SwapToSource             bool                  `yaml:"swap_to_source" json:"swap_to_source"`
	SwapToSink               bool                  `yaml:"swap_to_sink" json:"swap_to_sink"`
	ExtendedOperationMode    ExtendedOperationMode `yaml:"extended_operation_mode" json:"extended_operation_mode"`
	MiscCapabilities         MiscCapabilities      `yaml:"misc_capabilities" json:"misc_capabilities"`
	ReverseCurrentProtection bool                  `yaml:"reverse_current_protection" json:"reverse_current_protection"`
	PartnerPDRevision        uint8                 `yaml:"partner_pd_revision" json:"partner_pd_revision"` // Specification Revision field, see pd.RevisionFromHeader
}

const connectorCapabilityReserved = 0xE3380000 // bits 31:29, 25:24, 21:19

// ParseConnectorCapability parses GET_CONNECTOR_CAPABILITY data into out.
func ParseConnectorCapability(data []byte, out *ConnectorCapability) error {
	if len(data) < ConnectorCapabilityMinSize {
		return pkg.NewDecodeError("connector capability", "length", uint64(len(data)), pkg.ErrTruncated)
	}
	var raw [ConnectorCapabilitySize]byte
	copy(raw[:], data)
	w := binary.LittleEndian.Uint32(raw[:])
	if w&connectorCapabilityReserved != 0 {
		return pkg.NewDecodeError("connector capability", "reserved", uint64(w), pkg.ErrReservedBits)
	}
	*out = ConnectorCapability{
		OperationMode:            OperationMode(bitfield.Get(w, 7, 0)),
		Provider:                 bitfield.Bit(w, 8),
		Consumer:                 bitfield.Bit(w, 9),
		SwapToDFP:                bitfield.Bit(w, 10),
		SwapToUFP:                bitfield.Bit(w, 11),
		SwapToSource:             bitfield.Bit(w, 12),
		SwapToSink:               bitfield.Bit(w, 13),
		ExtendedOperationMode:    ExtendedOperationMode(bitfield.Get(w, 18, 14)),
		MiscCapabilities:         MiscCapabilities(bitfield.Get(w, 23, 22)),
		ReverseCurrentProtection: bitfield.Bit(w, 26),
		PartnerPDRevision:        uint8(bitfield.Get(w, 28, 27)),
	}
	return nil
}

// PartnerRevision returns the partner's PD revision.
func (c *ConnectorCapability) PartnerRevision() pd.Revision {
	return pd.RevisionFromHeader(c.PartnerPDRevision)
}

// MarshalTo serializes c to buf.
// Returns the number of bytes written (0 if buf is too small).
func (c *ConnectorCapability) MarshalTo(buf []byte) int {
	if len(buf) < ConnectorCapabilitySize {
		return 0
	}
	var w uint32
	w = bitfield.Put(w, 7, 0, uint32(c.OperationMode))
	w = bitfield.Set(w, 8, c.Provider)
	w = bitfield.Set(w, 9, c.Consumer)
	w = bitfield.Set(w, 10, c.SwapToDFP)
	w = bitfield.Set(w, 11, c.SwapToUFP)
	w = bitfield.Set(w, 12, c.SwapToSource)
	w = bitfield.Set(w, 13, c.SwapToSink)
	w = bitfield.Put(w, 18, 14, uint32(c.ExtendedOperationMode))
	w = bitfield.Put(w, 23, 22, uint32(c.MiscCapabilities))
	w = bitfield.Set(w, 26, c.ReverseCurrentProtection)
	w = bitfield.Put(w, 28, 27, uint32(c.PartnerPDRevision))
	binary.LittleEndian.PutUint32(buf, w)
	return ConnectorCapabilitySize
}

// Bytes returns the wire form of c.
func (c *ConnectorCapability) Bytes() []byte {
	buf := make([]byte, ConnectorCapabilitySize)
	c.MarshalTo(buf)
	return buf
}

// =============================================================================
// GET_CONNECTOR_STATUS
// =============================================================================

// Connector status sizes: UCSI 1.x/2.0 return 9 bytes, UCSI 2.1 adds the
// PD operation revision through reverse current protection status, and
// UCSI 3.0 adds power readings.
const (
	ConnectorStatusMinSize      = 9
	ConnectorStatusExtendedSize = 12
	ConnectorStatusSize         = 16
)

// PowerOperationMode is the power operation mode of a connector.
type PowerOperationMode uint8

// Power operation modes.
const (
	PowerOpModeNone PowerOperationMode = iota
	PowerOpModeUSBDefault
	PowerOpModeBC
	PowerOpModePD
	PowerOpModeTypeC1500
	PowerOpModeTypeC3000
	PowerOpModeTypeC5000
)

var powerOpModeNames = [...]string{
	PowerOpModeNone:       "none",
	PowerOpModeUSBDefault: "usb_default",
	PowerOpModeBC:         "bc",
	PowerOpModePD:         "pd",
	PowerOpModeTypeC1500:  "typec_1.5a",
	PowerOpModeTypeC3000:  "typec_3.0a",
	PowerOpModeTypeC5000:  "typec_5.0a",
}

func (m PowerOperationMode) String() string {
	if int(m) < len(powerOpModeNames) {
		return powerOpModeNames[m]
	}
	return fmt.Sprintf("power_op_mode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m PowerOperationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// PartnerType is the type of partner detected on a connector.
type PartnerType uint8

// Partner types.
const (
	PartnerNone PartnerType = iota
	PartnerDFP
	PartnerUFP
	PartnerPoweredCableNoUFP
	PartnerPoweredCableUFP
	PartnerDebugAccessory
	PartnerAudioAccessory
)

var partnerTypeNames = [...]string{
	PartnerNone:              "none",
	PartnerDFP:               "dfp",
	PartnerUFP:               "ufp",
	PartnerPoweredCableNoUFP: "powered_cable_no_ufp",
	PartnerPoweredCableUFP:   "powered_cable_ufp",
	PartnerDebugAccessory:    "debug_accessory",
	PartnerAudioAccessory:    "audio_accessory",
}

func (t PartnerType) String() string {
	if int(t) < len(partnerTypeNames) {
		return partnerTypeNames[t]
	}
	return fmt.Sprintf("partner_type(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t PartnerType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PartnerFlags is the connector partner flags bitmap.
type PartnerFlags uint8

// Partner flags.
const (
	PartnerFlagUSB PartnerFlags = 1 << iota
	PartnerFlagAltMode
	PartnerFlagUSB4Gen3
	PartnerFlagUSB4Gen4
)

// Status change bits.
const (
	ChangeExternalSupply      uint16 = 1 << 1
	ChangePowerOperationMode  uint16 = 1 << 2
	ChangeAttention           uint16 = 1 << 3
	ChangeProviderCaps        uint16 = 1 << 5
	ChangeNegotiatedPower     uint16 = 1 << 6
	ChangePDResetComplete     uint16 = 1 << 7
	ChangeSupportedCAM        uint16 = 1 << 8
	ChangeBatteryCharging     uint16 = 1 << 9
	ChangeConnectorPartner    uint16 = 1 << 11
	ChangePowerDirection      uint16 = 1 << 12
	ChangeSinkPath            uint16 = 1 << 13
	ChangeConnect             uint16 = 1 << 14
	ChangeError               uint16 = 1 << 15
	connectorStatusChangeRsvd uint16 = 1<<0 | 1<<4 | 1<<10
)

// ConnectorStatus is the GET_CONNECTOR_STATUS data. Extended reports
// whether the PD operation revision and following fields were present,
// and PowerReadings whether the current readings were.
type ConnectorStatus struct {
	Change                   uint16             `yaml:"change" json:"change"`
	PowerOperationMode       PowerOperationMode `yaml:"power_operation_mode" json:"power_operation_mode"`
	Connected                bool               `yaml:"connected" json:"connected"`
	Provider                 bool               `yaml:"provider" json:"provider"` // power direction
	PartnerFlags             PartnerFlags       `yaml:"partner_flags" json:"partner_flags"`
	PartnerType              PartnerType        `yaml:"partner_type" json:"partner_type"`
	RequestDataObject        uint32             `yaml:"request_data_object" json:"request_data_object"`
	BatteryChargingStatus    uint8              `yaml:"battery_charging_status" json:"battery_charging_status"`
	ProviderLimitedReason    uint8              `yaml:"provider_limited_reason" json:"provider_limited_reason"`
	Extended                 bool               `yaml:"extended" json:"extended"`
	PDVersionOperationMode   pd.Revision        `yaml:"pd_version_operation_mode" json:"pd_version_operation_mode"`
	Reversed                 bool               `yaml:"reversed" json:"reversed"` // orientation
	SinkPathEnabled          bool               `yaml:"sink_path_enabled" json:"sink_path_enabled"`
	ReverseCurrentProtection bool               `yaml:"reverse_current_protection" json:"reverse_current_protection"`
	PowerReadings            bool               `yaml:"power_readings" json:"power_readings"`
	PowerReadingReady        bool               `yaml:"power_reading_ready" json:"power_reading_ready"`
	CurrentScale             uint8              `yaml:"current_scale" json:"current_scale"`
	PeakCurrent              uint16             `yaml:"peak_current" json:"peak_current"`
	AverageCurrent           uint16             `yaml:"average_current" json:"average_current"`
}

// ParseConnectorStatus parses GET_CONNECTOR_STATUS data into out.
func ParseConnectorStatus(data []byte, out *ConnectorStatus) error {
	if len(data) < ConnectorStatusMinSize {
		return pkg.NewDecodeError("connector status", "length", uint64(len(data)), pkg.ErrTruncated)
	}
	var raw [ConnectorStatusSize]byte
	copy(raw[:], data)
	lo := binary.LittleEndian.Uint64(raw[0:8])
	hi := binary.LittleEndian.Uint64(raw[8:16])

	change := uint16(bitfield.Get(lo, 15, 0))
	if change&connectorStatusChangeRsvd != 0 {
		return pkg.NewDecodeError("connector status", "change", uint64(change), pkg.ErrReservedBits)
	}
	*out = ConnectorStatus{
		Change:                change,
		PowerOperationMode:    PowerOperationMode(bitfield.Get(lo, 18, 16)),
		Connected:             bitfield.Bit(lo, 19),
		Provider:              bitfield.Bit(lo, 20),
		PartnerFlags:          PartnerFlags(bitfield.Get(lo, 28, 21)),
		PartnerType:           PartnerType(bitfield.Get(lo, 31, 29)),
		RequestDataObject:     uint32(bitfield.Get(lo, 63, 32)),
		BatteryChargingStatus: uint8(bitfield.Get(hi, 1, 0)),
		ProviderLimitedReason: uint8(bitfield.Get(hi, 5, 2)),
	}
	if len(data) >= ConnectorStatusExtendedSize {
		out.Extended = true
		out.PDVersionOperationMode = pd.Revision(bitfield.Get(hi, 21, 6))
		out.Reversed = bitfield.Bit(hi, 22)
		out.SinkPathEnabled = bitfield.Bit(hi, 23)
		out.ReverseCurrentProtection = bitfield.Bit(hi, 24)
	}
	if len(data) >= ConnectorStatusSize {
		out.PowerReadings = true
		out.PowerReadingReady = bitfield.Bit(hi, 25)
		out.CurrentScale = uint8(bitfield.Get(hi, 28, 26))
		out.PeakCurrent = uint16(bitfield.Get(hi, 44, 29))
		out.AverageCurrent = uint16(bitfield.Get(hi, 60, 45))
	}
	return nil
}

// Size returns the wire size of s.
func (s *ConnectorStatus) Size() int {
	switch {
	case s.PowerReadings:
		return ConnectorStatusSize
	case s.Extended:
		return ConnectorStatusExtendedSize
	}
	return ConnectorStatusMinSize
}

// MarshalTo serializes s to buf.
// Returns the number of bytes written (0 if buf is too small).
func (s *ConnectorStatus) MarshalTo(buf []byte) int {
	n := s.Size()
	if len(buf) < n {
		return 0
	}
	var lo, hi uint64
	lo = bitfield.Put(lo, 15, 0, uint64(s.Change))
	lo = bitfield.Put(lo, 18, 16, uint64(s.PowerOperationMode))
	lo = bitfield.Set(lo, 19, s.Connected)
	lo = bitfield.Set(lo, 20, s.Provider)
	lo = bitfield.Put(lo, 28, 21, uint64(s.PartnerFlags))
	lo = bitfield.Put(lo, 31, 29, uint64(s.PartnerType))
	lo = bitfield.Put(lo, 63, 32, uint64(s.RequestDataObject))
	hi = bitfield.Put(hi, 1, 0, uint64(s.BatteryChargingStatus))
	hi = bitfield.Put(hi, 5, 2, uint64(s.ProviderLimitedReason))
	if s.Extended || s.PowerReadings {
		hi = bitfield.Put(hi, 21, 6, uint64(s.PDVersionOperationMode))
		hi = bitfield.Set(hi, 22, s.Reversed)
		hi = bitfield.Set(hi, 23, s.SinkPathEnabled)
		hi = bitfield.Set(hi, 24, s.ReverseCurrentProtection)
	}
	if s.PowerReadings {
		hi = bitfield.Set(hi, 25, s.PowerReadingReady)
		hi = bitfield.Put(hi, 28, 26, uint64(s.CurrentScale))
		hi = bitfield.Put(hi, 44, 29, uint64(s.PeakCurrent))
		hi = bitfield.Put(hi, 60, 45, uint64(s.AverageCurrent))
	}
	var raw [ConnectorStatusSize]byte
	binary.LittleEndian.PutUint64(raw[0:8], lo)
	binary.LittleEndian.PutUint64(raw[8:16], hi)
	return copy(buf, raw[:n])
}

// Bytes returns the wire form of s.
func (s *ConnectorStatus) Bytes() []byte {
	buf := make([]byte, s.Size())
	s.MarshalTo(buf)
	return buf
}
