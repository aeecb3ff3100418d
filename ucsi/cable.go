package ucsi

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pkg"
)

// CablePropertySize is the size of GET_CABLE_PROPERTY data.
const CablePropertySize = 5

// PlugEndType is the far-end plug of a cable.
type PlugEndType uint8

// Plug end types.
const (
	PlugEndTypeA PlugEndType = iota
	PlugEndTypeB
	PlugEndTypeC
	PlugEndOther
)

func (p PlugEndType) String() string {
	switch p {
	case PlugEndTypeA:
		return "type-a"
	case PlugEndTypeB:
		return "type-b"
	case PlugEndTypeC:
		return "type-c"
	}
	return "other"
}

// MarshalText implements encoding.TextMarshaler.
func (p PlugEndType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// CableProperty is the GET_CABLE_PROPERTY data.
type CableProperty struct {
	SpeedExponent     uint8       `yaml:"speed_exponent" json:"speed_exponent"`         // 0 b/s, 1 Kb/s, 2 Mb/s, 3 Gb/s
	SpeedMantissa     uint16      `yaml:"speed_mantissa" json:"speed_mantissa"`         // 14 bits
	CurrentCapability uint8       `yaml:"current_capability" json:"current_capability"` // 50 mA units
	VBUSInCable       bool        `yaml:"vbus_in_cable" json:"vbus_in_cable"`
	Active            bool        `yaml:"active" json:"active"`
	Directional       bool        `yaml:"directional" json:"directional"`
	PlugEndType       PlugEndType `yaml:"plug_end_type" json:"plug_end_type"`
	ModeSupport       bool        `yaml:"mode_support" json:"mode_support"`
	PDRevision        uint8       `yaml:"pd_revision" json:"pd_revision"` // major revision field, see pd.RevisionFromHeader
	Latency           uint8       `yaml:"latency" json:"latency"`
}

// BitsPerSecond returns the maximum signaling rate of the cable.
func (c *CableProperty) BitsPerSecond() uint64 {
	bps := uint64(c.SpeedMantissa)
	for i := uint8(0); i < c.SpeedExponent; i++ {
		bps *= 1000
	}
	return bps
}

// Speed formats the signaling rate with its unit, e.g. "10Gb/s".
func (c *CableProperty) Speed() string {
	units := [...]string{"b/s", "Kb/s", "Mb/s", "Gb/s"}
	return fmt.Sprintf("%d%s", c.SpeedMantissa, units[c.SpeedExponent&3])
}

// CurrentMA returns the current capability in milliamperes.
func (c *CableProperty) CurrentMA() uint32 {
	return uint32(c.CurrentCapability) * 50
}

// ParseCableProperty parses GET_CABLE_PROPERTY data into out.
func ParseCableProperty(data []byte, out *CableProperty) error {
	if len(data) < CablePropertySize {
		return pkg.NewDecodeError("cable property", "length", uint64(len(data)), pkg.ErrTruncated)
	}
	var raw [8]byte
	copy(raw[:], data[:CablePropertySize])
	w := binary.LittleEndian.Uint64(raw[:])
	if bitfield.Get(w, 39, 36) != 0 {
		return pkg.NewDecodeError("cable property", "reserved", w, pkg.ErrReservedBits)
	}
	*out = CableProperty{
		SpeedExponent:     uint8(bitfield.Get(w, 1, 0)),
		SpeedMantissa:     uint16(bitfield.Get(w, 15, 2)),
		CurrentCapability: uint8(bitfield.Get(w, 23, 16)),
		VBUSInCable:       bitfield.Bit(w, 24),
		Active:            bitfield.Bit(w, 25),
		Directional:       bitfield.Bit(w, 26),
		PlugEndType:       PlugEndType(bitfield.Get(w, 28, 27)),
		ModeSupport:       bitfield.Bit(w, 29),
		PDRevision:        uint8(bitfield.Get(w, 31, 30)),
		Latency:           uint8(bitfield.Get(w, 35, 32)),
	}
	return nil
}

// MarshalTo serializes c to buf.
// Returns the number of bytes written (0 if buf is too small).
func (c *CableProperty) MarshalTo(buf []byte) int {
	if len(buf) < CablePropertySize {
		return 0
	}
	var w uint64
	w = bitfield.Put(w, 1, 0, uint64(c.SpeedExponent))
	w = bitfield.Put(w, 15, 2, uint64(c.SpeedMantissa))
	w = bitfield.Put(w, 23, 16, uint64(c.CurrentCapability))
	w = bitfield.Set(w, 24, c.VBUSInCable)
	w = bitfield.Set(w, 25, c.Active)
	w = bitfield.Set(w, 26, c.Directional)
	w = bitfield.Put(w, 28, 27, uint64(c.PlugEndType))
	w = bitfield.Set(w, 29, c.ModeSupport)
	w = bitfield.Put(w, 31, 30, uint64(c.PDRevision))
	w = bitfield.Put(w, 35, 32, uint64(c.Latency))
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], w)
	return copy(buf, raw[:CablePropertySize])
}

// Bytes returns the wire form of c.
func (c *CableProperty) Bytes() []byte {
	buf := make([]byte, CablePropertySize)
	c.MarshalTo(buf)
	return buf
}
