package ucsi

import (
	"fmt"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pd"
)

// UCSI command codes (UCSI 3.0 Table 6-9).
const (
	CmdGetCapability          = 0x06
	CmdGetConnectorCapability = 0x07
	CmdGetAlternateModes      = 0x0C
	CmdGetCAMSupported        = 0x0D
	CmdGetCurrentCAM          = 0x0E
	CmdGetPDOs                = 0x10
	CmdGetCableProperty       = 0x11
	CmdGetConnectorStatus     = 0x12
	CmdGetErrorStatus         = 0x13
	CmdGetPDMessage           = 0x15
)

// Paging limits of the list-returning commands.
const (
	MaxPDOsPerCommand     = 4
	MaxAltModesPerCommand = 2
	MaxMessageInSize      = 16
	MaxPDOs               = 12
	MaxAlternateModes     = 128
	MaxPDMessageSize      = 28
	MaxConnectorNumber    = 127
)

// Recipient is the addressee of a GET_ALTERNATE_MODES or GET_PD_MESSAGE
// command.
type Recipient uint8

// Recipients.
const (
	RecipientConnector Recipient = iota
	RecipientSOP
	RecipientSOPPrime
	RecipientSOPDoublePrime
)

func (r Recipient) String() string {
	switch r {
	case RecipientConnector:
		return "connector"
	case RecipientSOP:
		return "sop"
	case RecipientSOPPrime:
		return "sop_prime"
	case RecipientSOPDoublePrime:
		return "sop_double_prime"
	}
	return fmt.Sprintf("recipient(%d)", uint8(r))
}

// SOP returns the PD packet type used to reach r. Connector has none.
func (r Recipient) SOP() (pd.SOPType, bool) {
	switch r {
	case RecipientSOP:
		return pd.SOP, true
	case RecipientSOPPrime:
		return pd.SOPPrime, true
	case RecipientSOPDoublePrime:
		return pd.SOPDoublePrime, true
	}
	return 0, false
}

// SourceCapabilitiesType selects which local source capabilities GET_PDOS
// reports.
type SourceCapabilitiesType uint8

// Source capabilities types.
const (
	SourceCapabilitiesCurrent SourceCapabilitiesType = iota
	SourceCapabilitiesAdvertised
	SourceCapabilitiesMaximum
)

func (t SourceCapabilitiesType) String() string {
	switch t {
	case SourceCapabilitiesCurrent:
		return "current"
	case SourceCapabilitiesAdvertised:
		return "advertised"
	case SourceCapabilitiesMaximum:
		return "maximum"
	}
	return fmt.Sprintf("source_caps(%d)", uint8(t))
}

// Command is a UCSI CONTROL data structure: command code in bits 7:0,
// data length in bits 15:8, and command specific fields above. Connector
// arguments are zero-based indexes; the wire form is one-based.
type Command uint64

// Code returns the command code.
func (c Command) Code() uint8 { return uint8(c) }

// Connector returns the zero-based connector index addressed by c.
func (c Command) Connector() int {
	switch c.Code() {
	case CmdGetAlternateModes:
		return int(bitfield.Get(uint64(c), 30, 24)) - 1
	case CmdGetCapability:
		return -1
	}
	return int(bitfield.Get(uint64(c), 22, 16)) - 1
}

// Recipient returns the recipient of GET_ALTERNATE_MODES or GET_PD_MESSAGE.
func (c Command) Recipient() Recipient {
	if c.Code() == CmdGetPDMessage {
		return Recipient(bitfield.Get(uint64(c), 25, 23))
	}
	return Recipient(bitfield.Get(uint64(c), 18, 16))
}

// Offset returns the starting offset of a paged command.
func (c Command) Offset() int {
	switch c.Code() {
	case CmdGetPDOs:
		return int(bitfield.Get(uint64(c), 31, 24))
	case CmdGetPDMessage:
		return int(bitfield.Get(uint64(c), 33, 26))
	}
	return int(bitfield.Get(uint64(c), 39, 32))
}

// Count returns the number of PDOs, modes, or message bytes requested.
func (c Command) Count() int {
	if c.Code() == CmdGetPDMessage {
		return int(bitfield.Get(uint64(c), 41, 34))
	}
	if c.Code() == CmdGetPDOs {
		return int(bitfield.Get(uint64(c), 33, 32)) + 1
	}
	return int(bitfield.Get(uint64(c), 41, 40)) + 1
}

// Partner reports whether GET_PDOS addresses the port partner.
func (c Command) Partner() bool { return bitfield.Bit(uint64(c), 23) }

// Role returns the capability list GET_PDOS addresses.
func (c Command) Role() pd.Role {
	if bitfield.Bit(uint64(c), 34) {
		return pd.Source
	}
	return pd.Sink
}

// SourceCapabilities returns the source capabilities type of GET_PDOS.
func (c Command) SourceCapabilities() SourceCapabilitiesType {
	return SourceCapabilitiesType(bitfield.Get(uint64(c), 36, 35))
}

// MessageType returns the response message type of GET_PD_MESSAGE.
func (c Command) MessageType() pd.MessageType {
	return pd.MessageType(bitfield.Get(uint64(c), 47, 42))
}

func (c Command) String() string {
	return fmt.Sprintf("0x%x", uint64(c))
}

func connectorField(conn int) uint64 {
	return uint64(conn+1) & 0x7F
}

// GetCapability requests the PPM capability summary.
func GetCapability() Command {
	return CmdGetCapability
}

// GetConnectorCapability requests the capability of connector conn.
func GetConnectorCapability(conn int) Command {
	return Command(CmdGetConnectorCapability | connectorField(conn)<<16)
}

// GetConnectorStatus requests the status of connector conn.
func GetConnectorStatus(conn int) Command {
	return Command(CmdGetConnectorStatus | connectorField(conn)<<16)
}

// GetCableProperty requests the properties of the cable on connector conn.
func GetCableProperty(conn int) Command {
	return Command(CmdGetCableProperty | connectorField(conn)<<16)
}

// GetCurrentCAM requests the alternate modes connector conn is operating in.
func GetCurrentCAM(conn int) Command {
	return Command(CmdGetCurrentCAM | connectorField(conn)<<16)
}

// GetAlternateModes requests count modes starting at offset.
func GetAlternateModes(conn int, r Recipient, offset, count int) Command {
	var w uint64 = CmdGetAlternateModes
	w = bitfield.Put(w, 18, 16, uint64(r))
	w = bitfield.Put(w, 30, 24, connectorField(conn))
	w = bitfield.Put(w, 39, 32, uint64(offset))
	return Command(bitfield.Put(w, 41, 40, uint64(count-1)))
}

// GetPDOs requests count PDOs starting at offset.
func GetPDOs(conn int, partner bool, role pd.Role, src SourceCapabilitiesType, offset, count int) Command {
	var w uint64 = CmdGetPDOs
	w = bitfield.Put(w, 22, 16, connectorField(conn))
	w = bitfield.Set(w, 23, partner)
	w = bitfield.Put(w, 31, 24, uint64(offset))
	w = bitfield.Put(w, 33, 32, uint64(count-1))
	w = bitfield.Set(w, 34, role == pd.Source)
	return Command(bitfield.Put(w, 36, 35, uint64(src)))
}

// GetPDMessage requests length bytes of a PD response message starting at
// offset.
func GetPDMessage(conn int, r Recipient, t pd.MessageType, offset, length int) Command {
	var w uint64 = CmdGetPDMessage
	w = bitfield.Put(w, 22, 16, connectorField(conn))
	w = bitfield.Put(w, 25, 23, uint64(r))
	w = bitfield.Put(w, 33, 26, uint64(offset))
	w = bitfield.Put(w, 41, 34, uint64(length))
	return Command(bitfield.Put(w, 47, 42, uint64(t)))
}
