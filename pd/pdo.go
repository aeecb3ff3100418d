package pd

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pkg"
)

// Role selects the capability list a PDO belongs to.
type Role uint8

// PDO roles.
const (
	Sink Role = iota
	Source
)

func (r Role) String() string {
	if r == Source {
		return "source"
	}
	return "sink"
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Kind identifies a PDO variant.
type Kind uint8

// PDO variants. The augmented kinds share tag 3 and are told apart by the
// sub-tag in bits 29:28.
const (
	KindFixed Kind = iota
	KindBattery
	KindVariable
	KindPPS
	KindEPRAVS
	KindSPRAVS
)

var kindNames = [...]string{
	KindFixed:    "fixed supply",
	KindBattery:  "battery supply",
	KindVariable: "variable supply",
	KindPPS:      "SPR programmable supply",
	KindEPRAVS:   "EPR adjustable voltage supply",
	KindSPRAVS:   "SPR adjustable voltage supply",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PDO is a decoded Power Data Object. The concrete type is one of
// FixedSupply, BatterySupply, VariableSupply, ProgrammableSupply,
// EPRAdjustableSupply or SPRAdjustableSupply.
type PDO interface {
	Kind() Kind
	// Encode returns the 32-bit wire form.
	Encode() uint32
	isPDO()
}

// PeakCurrent is the overload capability of a source, as a percentage of
// IOC for a bounded duty cycle.
type PeakCurrent uint8

// Peak current settings.
const (
	PeakCurrentIOC PeakCurrent = iota
	PeakCurrent110
	PeakCurrent125
	PeakCurrent150
)

// FRSCurrent is the current a sink requires after a Fast Role Swap.
type FRSCurrent uint8

// Fast Role Swap required current settings.
const (
	FRSNotSupported FRSCurrent = iota
	FRSDefaultUSB
	FRS1500mA
	FRS3000mA
)

// FixedSupply is a fixed-voltage PDO. For a source CurrentMA is the
// maximum current; for a sink it is the operational current.
type FixedSupply struct {
	Role                      Role        `yaml:"role" json:"role"`
	DualRolePower             bool        `yaml:"dual_role_power" json:"dual_role_power"`
	USBSuspendSupported       bool        `yaml:"usb_suspend_supported" json:"usb_suspend_supported"` // source only
	HigherCapability          bool        `yaml:"higher_capability" json:"higher_capability"`         // sink only
	UnconstrainedPower        bool        `yaml:"unconstrained_power" json:"unconstrained_power"`
	USBCommunicationsCapable  bool        `yaml:"usb_communications_capable" json:"usb_communications_capable"`
	DualRoleData              bool        `yaml:"dual_role_data" json:"dual_role_data"`
	UnchunkedExtendedMessages bool        `yaml:"unchunked_extended_messages" json:"unchunked_extended_messages"` // source only, PD 3.0+
	EPRCapable                bool        `yaml:"epr_capable" json:"epr_capable"`                                 // source only, PD 3.1+
	PeakCurrent               PeakCurrent `yaml:"peak_current" json:"peak_current"`                               // source only
	FastRoleSwap              FRSCurrent  `yaml:"fast_role_swap" json:"fast_role_swap"`                           // sink only, PD 3.0+
	VoltageMV                 uint32      `yaml:"voltage_mv" json:"voltage_mv"`
	CurrentMA                 uint32      `yaml:"current_ma" json:"current_ma"`
}

// BatterySupply is a battery PDO. For a source PowerMW is the maximum
// allowable power; for a sink it is the operational power.
type BatterySupply struct {
	Role         Role   `yaml:"role" json:"role"`
	MaxVoltageMV uint32 `yaml:"max_voltage_mv" json:"max_voltage_mv"`
	MinVoltageMV uint32 `yaml:"min_voltage_mv" json:"min_voltage_mv"`
	PowerMW      uint32 `yaml:"power_mw" json:"power_mw"`
}

// VariableSupply is a non-battery variable supply PDO.
type VariableSupply struct {
	Role         Role   `yaml:"role" json:"role"`
	MaxVoltageMV uint32 `yaml:"max_voltage_mv" json:"max_voltage_mv"`
	MinVoltageMV uint32 `yaml:"min_voltage_mv" json:"min_voltage_mv"`
	CurrentMA    uint32 `yaml:"current_ma" json:"current_ma"`
}

// ProgrammableSupply is an SPR Programmable Power Supply APDO.
type ProgrammableSupply struct {
	Role         Role   `yaml:"role" json:"role"`
	PowerLimited bool   `yaml:"power_limited" json:"power_limited"` // source only
	MaxVoltageMV uint32 `yaml:"max_voltage_mv" json:"max_voltage_mv"`
	MinVoltageMV uint32 `yaml:"min_voltage_mv" json:"min_voltage_mv"`
	CurrentMA    uint32 `yaml:"current_ma" json:"current_ma"`
}

// EPRAdjustableSupply is an EPR Adjustable Voltage Supply APDO.
type EPRAdjustableSupply struct {
	Role         Role        `yaml:"role" json:"role"`
	PeakCurrent  PeakCurrent `yaml:"peak_current" json:"peak_current"` // source only
	MaxVoltageMV uint32      `yaml:"max_voltage_mv" json:"max_voltage_mv"`
	MinVoltageMV uint32      `yaml:"min_voltage_mv" json:"min_voltage_mv"`
	PDPMW        uint32      `yaml:"pdp_mw" json:"pdp_mw"` // PD power, 1 W resolution
}

// SPRAdjustableSupply is an SPR Adjustable Voltage Supply APDO.
type SPRAdjustableSupply struct {
	Role          Role        `yaml:"role" json:"role"`
	PeakCurrent   PeakCurrent `yaml:"peak_current" json:"peak_current"`             // source only
	MaxCurrent15V uint32      `yaml:"max_current_15v_ma" json:"max_current_15v_ma"` // mA, 9 V to 15 V range
	MaxCurrent20V uint32      `yaml:"max_current_20v_ma" json:"max_current_20v_ma"` // mA, 15 V to 20 V range, zero if unsupported
}

func (FixedSupply) Kind() Kind         { return KindFixed }
func (BatterySupply) Kind() Kind       { return KindBattery }
func (VariableSupply) Kind() Kind      { return KindVariable }
func (ProgrammableSupply) Kind() Kind  { return KindPPS }
func (EPRAdjustableSupply) Kind() Kind { return KindEPRAVS }
func (SPRAdjustableSupply) Kind() Kind { return KindSPRAVS }

func (FixedSupply) isPDO()         {}
func (BatterySupply) isPDO()       {}
func (VariableSupply) isPDO()      {}
func (ProgrammableSupply) isPDO()  {}
func (EPRAdjustableSupply) isPDO() {}
func (SPRAdjustableSupply) isPDO() {}

// =============================================================================
// Encoding
// =============================================================================

func tagged(k Kind) uint32 {
	switch k {
	case KindFixed:
		return 0
	case KindBattery:
		return 1 << 30
	case KindVariable:
		return 2 << 30
	case KindPPS:
		return 3<<30 | 0<<28
	case KindEPRAVS:
		return 3<<30 | 1<<28
	default:
		return 3<<30 | 2<<28
	}
}

func (p FixedSupply) Encode() uint32 {
	w := tagged(KindFixed)
	w = bitfield.Set(w, 29, p.DualRolePower)
	w = bitfield.Set(w, 27, p.UnconstrainedPower)
	w = bitfield.Set(w, 26, p.USBCommunicationsCapable)
	w = bitfield.Set(w, 25, p.DualRoleData)
	if p.Role == Source {
		w = bitfield.Set(w, 28, p.USBSuspendSupported)
		w = bitfield.Set(w, 24, p.UnchunkedExtendedMessages)
		w = bitfield.Set(w, 23, p.EPRCapable)
		w = bitfield.Put(w, 21, 20, uint32(p.PeakCurrent))
	} else {
		w = bitfield.Set(w, 28, p.HigherCapability)
		w = bitfield.Put(w, 24, 23, uint32(p.FastRoleSwap))
	}
	w = bitfield.Put(w, 19, 10, p.VoltageMV/50)
	return bitfield.Put(w, 9, 0, p.CurrentMA/10)
}

func (p BatterySupply) Encode() uint32 {
	w := tagged(KindBattery)
	w = bitfield.Put(w, 29, 20, p.MaxVoltageMV/50)
	w = bitfield.Put(w, 19, 10, p.MinVoltageMV/50)
	return bitfield.Put(w, 9, 0, p.PowerMW/250)
}

func (p VariableSupply) Encode() uint32 {
	w := tagged(KindVariable)
	w = bitfield.Put(w, 29, 20, p.MaxVoltageMV/50)
	w = bitfield.Put(w, 19, 10, p.MinVoltageMV/50)
	return bitfield.Put(w, 9, 0, p.CurrentMA/10)
}

func (p ProgrammableSupply) Encode() uint32 {
	w := tagged(KindPPS)
	if p.Role == Source {
		w = bitfield.Set(w, 27, p.PowerLimited)
	}
	w = bitfield.Put(w, 24, 17, p.MaxVoltageMV/100)
	w = bitfield.Put(w, 15, 8, p.MinVoltageMV/100)
	return bitfield.Put(w, 6, 0, p.CurrentMA/50)
}

func (p EPRAdjustableSupply) Encode() uint32 {
	w := tagged(KindEPRAVS)
	if p.Role == Source {
		w = bitfield.Put(w, 27, 26, uint32(p.PeakCurrent))
	}
	w = bitfield.Put(w, 25, 17, p.MaxVoltageMV/100)
	w = bitfield.Put(w, 15, 8, p.MinVoltageMV/100)
	return bitfield.Put(w, 7, 0, p.PDPMW/1000)
}

func (p SPRAdjustableSupply) Encode() uint32 {
	w := tagged(KindSPRAVS)
	if p.Role == Source {
		w = bitfield.Put(w, 27, 26, uint32(p.PeakCurrent))
	}
	w = bitfield.Put(w, 19, 10, p.MaxCurrent15V/10)
	return bitfield.Put(w, 9, 0, p.MaxCurrent20V/10)
}

// =============================================================================
// Decoding
// =============================================================================

type roleSet uint8

const (
	sinkOnly   roleSet = 1 << Sink
	sourceOnly roleSet = 1 << Source
	anyRole            = sinkOnly | sourceOnly
)

func (s roleSet) has(r Role) bool { return s&(1<<r) != 0 }

// pdoLayout is one row of the PDO decode table.
type pdoLayout struct {
	kind     Kind
	roles    roleSet
	revs     *semver.Constraints
	reserved uint32
	decode   func(w uint32, r Role) PDO
}

var pdoLayouts = []pdoLayout{
	{KindFixed, sourceOnly, rev20, bitfield.Mask[uint32](24, 22), decodeFixed},
	{KindFixed, sourceOnly, rev30, bitfield.Mask[uint32](23, 22), decodeFixed},
	{KindFixed, sourceOnly, rev31Plus, bitfield.Mask[uint32](22, 22), decodeFixed},
	{KindFixed, sinkOnly, rev20, bitfield.Mask[uint32](24, 20), decodeFixed},
	{KindFixed, sinkOnly, rev30Plus, bitfield.Mask[uint32](22, 20), decodeFixed},
	{KindBattery, anyRole, revSupported, 0, decodeBattery},
	{KindVariable, anyRole, revSupported, 0, decodeVariable},
	{KindPPS, sourceOnly, rev30Plus, bitfield.Mask[uint32](26, 25) | 1<<16 | 1<<7, decodePPS},
	{KindPPS, sinkOnly, rev30Plus, bitfield.Mask[uint32](27, 25) | 1<<16 | 1<<7, decodePPS},
	{KindEPRAVS, sourceOnly, rev31Plus, 1 << 16, decodeEPRAVS},
	{KindEPRAVS, sinkOnly, rev31Plus, bitfield.Mask[uint32](27, 26) | 1<<16, decodeEPRAVS},
	{KindSPRAVS, sourceOnly, rev32Plus, bitfield.Mask[uint32](25, 20), decodeSPRAVS},
	{KindSPRAVS, sinkOnly, rev32Plus, bitfield.Mask[uint32](27, 20), decodeSPRAVS},
}

func pdoRecord(r Role, k Kind) string {
	return fmt.Sprintf("%s %s PDO", r, k)
}

// pdoKind reads the variant tag and, for augmented PDOs, the sub-tag.
func pdoKind(w uint32) (Kind, bool) {
	switch bitfield.Get(w, 31, 30) {
	case 0:
		return KindFixed, true
	case 1:
		return KindBattery, true
	case 2:
		return KindVariable, true
	}
	switch bitfield.Get(w, 29, 28) {
	case 0:
		return KindPPS, true
	case 1:
		return KindEPRAVS, true
	case 2:
		return KindSPRAVS, true
	}
	return 0, false
}

// DecodePDO decodes one PDO word from the given role's capability list
// under revision rev.
func DecodePDO(w uint32, role Role, rev Revision) (PDO, error) {
	if err := rev.check(role.String() + " PDO"); err != nil {
		return nil, err
	}
	kind, ok := pdoKind(w)
	if !ok {
		return nil, pkg.NewDecodeError(role.String()+" PDO", "augmented type", uint64(w), pkg.ErrUnknownVariant)
	}
	v := rev.Version()
	for i := range pdoLayouts {
		l := &pdoLayouts[i]
		if l.kind != kind || !l.roles.has(role) || !l.revs.Check(v) {
			continue
		}
		if w&l.reserved != 0 {
			return nil, pkg.NewDecodeError(pdoRecord(role, kind), "reserved", uint64(w), pkg.ErrReservedBits)
		}
		return l.decode(w, role), nil
	}
	return nil, pkg.NewDecodeError(pdoRecord(role, kind), "type", uint64(w), pkg.ErrUnknownVariant)
}

// DecodePDOs decodes a capability list, preserving order.
func DecodePDOs(words []uint32, role Role, rev Revision) ([]PDO, error) {
	pdos := make([]PDO, 0, len(words))
	for i, w := range words {
		p, err := DecodePDO(w, role, rev)
		if err != nil {
			if de, ok := err.(*pkg.DecodeError); ok {
				de.Record = fmt.Sprintf("%s #%d", de.Record, i+1)
			}
			return nil, err
		}
		pdos = append(pdos, p)
	}
	return pdos, nil
}

func decodeFixed(w uint32, r Role) PDO {
	p := FixedSupply{
		Role:                     r,
		DualRolePower:            bitfield.Bit(w, 29),
		UnconstrainedPower:       bitfield.Bit(w, 27),
		USBCommunicationsCapable: bitfield.Bit(w, 26),
		DualRoleData:             bitfield.Bit(w, 25),
		VoltageMV:                bitfield.Get(w, 19, 10) * 50,
		CurrentMA:                bitfield.Get(w, 9, 0) * 10,
	}
	if r == Source {
		p.USBSuspendSupported = bitfield.Bit(w, 28)
		p.UnchunkedExtendedMessages = bitfield.Bit(w, 24)
		p.EPRCapable = bitfield.Bit(w, 23)
		p.PeakCurrent = PeakCurrent(bitfield.Get(w, 21, 20))
	} else {
		p.HigherCapability = bitfield.Bit(w, 28)
		p.FastRoleSwap = FRSCurrent(bitfield.Get(w, 24, 23))
	}
	return p
}

func decodeBattery(w uint32, r Role) PDO {
	return BatterySupply{
		Role:         r,
		MaxVoltageMV: bitfield.Get(w, 29, 20) * 50,
		MinVoltageMV: bitfield.Get(w, 19, 10) * 50,
		PowerMW:      bitfield.Get(w, 9, 0) * 250,
	}
}

func decodeVariable(w uint32, r Role) PDO {
	return VariableSupply{
		Role:         r,
		MaxVoltageMV: bitfield.Get(w, 29, 20) * 50,
		MinVoltageMV: bitfield.Get(w, 19, 10) * 50,
		CurrentMA:    bitfield.Get(w, 9, 0) * 10,
	}
}

func decodePPS(w uint32, r Role) PDO {
	return ProgrammableSupply{
		Role:         r,
		PowerLimited: r == Source && bitfield.Bit(w, 27),
		MaxVoltageMV: bitfield.Get(w, 24, 17) * 100,
		MinVoltageMV: bitfield.Get(w, 15, 8) * 100,
		CurrentMA:    bitfield.Get(w, 6, 0) * 50,
	}
}

func decodeEPRAVS(w uint32, r Role) PDO {
	p := EPRAdjustableSupply{
		Role:         r,
		MaxVoltageMV: bitfield.Get(w, 25, 17) * 100,
		MinVoltageMV: bitfield.Get(w, 15, 8) * 100,
		PDPMW:        bitfield.Get(w, 7, 0) * 1000,
	}
	if r == Source {
		p.PeakCurrent = PeakCurrent(bitfield.Get(w, 27, 26))
	}
	return p
}

func decodeSPRAVS(w uint32, r Role) PDO {
	p := SPRAdjustableSupply{
		Role:          r,
		MaxCurrent15V: bitfield.Get(w, 19, 10) * 10,
		MaxCurrent20V: bitfield.Get(w, 9, 0) * 10,
	}
	if r == Source {
		p.PeakCurrent = PeakCurrent(bitfield.Get(w, 27, 26))
	}
	return p
}
