package ucsi

import (
	"encoding/binary"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
)

// CapabilitySize is the size of GET_CAPABILITY data in bytes.
const CapabilitySize = 16

// PowerSource is the bmPowerSource bitmap of GET_CAPABILITY.
type PowerSource uint8

// Power sources.
const (
	PowerSourceAC    PowerSource = 1 << 0
	PowerSourceOther PowerSource = 1 << 2
	PowerSourceVBUS  PowerSource = 1 << 6
)

const powerSourceReserved = ^(PowerSourceAC | PowerSourceOther | PowerSourceVBUS)

// OptionalFeatures is the bmOptionalFeatures bitmap of GET_CAPABILITY.
type OptionalFeatures uint32

// Optional features.
const (
	FeatureSetCCOM OptionalFeatures = 1 << iota
	FeatureSetPowerLevel
	FeatureAltModeDetails
	FeatureAltModeOverride
	FeaturePDODetails
	FeatureCableDetails
	FeatureExternalSupplyNotification
	FeaturePDResetNotification
	FeatureGetPDMessage
	FeatureGetAttentionVDO
	FeatureFWUpdateRequest
	FeatureNegotiatedPowerLevelChange
	FeatureSecurityRequest
	FeatureSetRetimerMode
	FeatureChunking
)

const optionalFeaturesReserved = OptionalFeatures(0xFF8000)

// Has reports whether every feature in f is set.
func (o OptionalFeatures) Has(f OptionalFeatures) bool { return o&f == f }

// Capability is the GET_CAPABILITY data: the PPM-wide capability summary.
type Capability struct {
	DisabledStateSupport bool             `yaml:"disabled_state_support" json:"disabled_state_support"`
	BatteryCharging      bool             `yaml:"battery_charging" json:"battery_charging"`
	USBPowerDelivery     bool             `yaml:"usb_power_delivery" json:"usb_power_delivery"`
	USBTypeCCurrent      bool             `yaml:"usb_typec_current" json:"usb_typec_current"`
	PowerSources         PowerSource      `yaml:"power_sources" json:"power_sources"`
	NumConnectors        uint8            `yaml:"num_connectors" json:"num_connectors"`
	OptionalFeatures     OptionalFeatures `yaml:"optional_features" json:"optional_features"`
	NumAltModes          uint8            `yaml:"num_alt_modes" json:"num_alt_modes"`
	BCVersion            uint16           `yaml:"bc_version" json:"bc_version"` // BCD
	PDVersion            pd.Revision      `yaml:"pd_version" json:"pd_version"`
	TypeCVersion         uint16           `yaml:"typec_version" json:"typec_version"` // BCD
}

// ParseCapability parses GET_CAPABILITY data into out.
func ParseCapability(data []byte, out *Capability) error {
	if len(data) < CapabilitySize {
		return pkg.NewDecodeError("capability", "length", uint64(len(data)), pkg.ErrTruncated)
	}
	attrs := binary.LittleEndian.Uint32(data[0:4])
	// bits 5:3, 7, 31:16 and the reserved power source bits
	if attrs&0xFFFF00B8 != 0 || PowerSource(bitfield.Get(attrs, 15, 8))&powerSourceReserved != 0 {
		return pkg.NewDecodeError("capability", "bmAttributes", uint64(attrs), pkg.ErrReservedBits)
	}
	if data[4]&0x80 != 0 {
		return pkg.NewDecodeError("capability", "bNumConnectors", uint64(data[4]), pkg.ErrReservedBits)
	}
	features := OptionalFeatures(uint32(data[5]) | uint32(data[6])<<8 | uint32(data[7])<<16)
	if features&optionalFeaturesReserved != 0 {
		return pkg.NewDecodeError("capability", "bmOptionalFeatures", uint64(features), pkg.ErrReservedBits)
	}

	out.DisabledStateSupport = bitfield.Bit(attrs, 0)
	out.BatteryCharging = bitfield.Bit(attrs, 1)
	out.USBPowerDelivery = bitfield.Bit(attrs, 2)
	out.USBTypeCCurrent = bitfield.Bit(attrs, 6)
	out.PowerSources = PowerSource(bitfield.Get(attrs, 15, 8))
	out.NumConnectors = data[4] & 0x7F
	out.OptionalFeatures = features
	out.NumAltModes = data[8]
	out.BCVersion = binary.LittleEndian.Uint16(data[10:12])
	out.PDVersion = pd.Revision(binary.LittleEndian.Uint16(data[12:14]))
	out.TypeCVersion = binary.LittleEndian.Uint16(data[14:16])
	return nil
}

// MarshalTo serializes c to buf.
// Returns the number of bytes written (0 if buf is too small).
func (c *Capability) MarshalTo(buf []byte) int {
	if len(buf) < CapabilitySize {
		return 0
	}
	var attrs uint32
	attrs = bitfield.Set(attrs, 0, c.DisabledStateSupport)
	attrs = bitfield.Set(attrs, 1, c.BatteryCharging)
	attrs = bitfield.Set(attrs, 2, c.USBPowerDelivery)
	attrs = bitfield.Set(attrs, 6, c.USBTypeCCurrent)
	attrs = bitfield.Put(attrs, 15, 8, uint32(c.PowerSources))
	binary.LittleEndian.PutUint32(buf[0:4], attrs)
	buf[4] = c.NumConnectors & 0x7F
	buf[5] = byte(c.OptionalFeatures)
	buf[6] = byte(c.OptionalFeatures >> 8)
	buf[7] = byte(c.OptionalFeatures >> 16)
	buf[8] = c.NumAltModes
	buf[9] = 0
	binary.LittleEndian.PutUint16(buf[10:12], c.BCVersion)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(c.PDVersion))
	binary.LittleEndian.PutUint16(buf[14:16], c.TypeCVersion)
	return CapabilitySize
}

// Bytes returns the wire form of c.
func (c *Capability) Bytes() []byte {
	buf := make([]byte, CapabilitySize)
	c.MarshalTo(buf)
	return buf
}
