package debugfs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

const name = string(backend.KindDebugfs)

// ResponseSize is the size of the MESSAGE_IN data returned per command.
const ResponseSize = 16

// Transport executes one UCSI command and returns its MESSAGE_IN data.
// Implementations return pkg.ErrNotSupported when the PPM rejects the
// command as unsupported.
type Transport interface {
	Execute(cmd ucsi.Command) ([]byte, error)
	Close() error
}

// Backend issues UCSI commands over a Transport. The capability summary
// is read once at construction and gates the optional commands.
type Backend struct {
	t   Transport
	raw []byte
	cap ucsi.Capability
}

// New returns a Backend using t. It fails if GET_CAPABILITY fails or its
// data does not decode.
func New(t Transport) (*Backend, error) {
	raw, err := t.Execute(ucsi.GetCapability())
	if err != nil {
		return nil, err
	}
	b := &Backend{t: t, raw: clip(raw, ucsi.CapabilitySize)}
	if err := ucsi.ParseCapability(b.raw, &b.cap); err != nil {
		return nil, err
	}
	pkg.LogDebug(pkg.ComponentDebugfs, "capability read",
		"connectors", b.cap.NumConnectors, "features", fmt.Sprintf("0x%x", uint32(b.cap.OptionalFeatures)))
	return b, nil
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return name }

// Close implements backend.Backend.
func (b *Backend) Close() error { return b.t.Close() }

func clip(data []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, data)
	return out
}

func (b *Backend) exec(cmd ucsi.Command, n int) ([]byte, error) {
	data, err := b.t.Execute(cmd)
	if err != nil {
		pkg.LogDebug(pkg.ComponentDebugfs, "command failed", "command", cmd.String(), "error", err)
		return nil, err
	}
	return clip(data, n), nil
}

// require returns pkg.ErrNotSupported unless the PPM reports f.
func (b *Backend) require(f ucsi.OptionalFeatures) error {
	if !b.cap.OptionalFeatures.Has(f) {
		return pkg.ErrNotSupported
	}
	return nil
}

// connected returns pkg.ErrNotSupported if nothing is attached to conn.
func (b *Backend) connected(conn int) error {
	data, err := b.ConnectorStatus(conn)
	if err != nil {
		return err
	}
	var s ucsi.ConnectorStatus
	if err := ucsi.ParseConnectorStatus(data, &s); err != nil {
		return err
	}
	if !s.Connected {
		return pkg.ErrNotSupported
	}
	return nil
}

// cableModes returns pkg.ErrNotSupported unless an attached cable reports
// alternate mode support.
func (b *Backend) cableModes(conn int) error {
	data, err := b.CableProperty(conn)
	if err != nil {
		return err
	}
	var c ucsi.CableProperty
	if err := ucsi.ParseCableProperty(data, &c); err != nil {
		return err
	}
	if !c.ModeSupport {
		return pkg.ErrNotSupported
	}
	return nil
}

// Capability implements backend.Backend.
func (b *Backend) Capability() ([]byte, error) {
	return clip(b.raw, ucsi.CapabilitySize), nil
}

// ConnectorCapability implements backend.Backend.
func (b *Backend) ConnectorCapability(conn int) ([]byte, error) {
	return b.exec(ucsi.GetConnectorCapability(conn), ucsi.ConnectorCapabilitySize)
}

// ConnectorStatus implements backend.Backend.
func (b *Backend) ConnectorStatus(conn int) ([]byte, error) {
	return b.exec(ucsi.GetConnectorStatus(conn), ucsi.ConnectorStatusSize)
}

// PDOs implements backend.Backend. Pages of four are requested until a
// page comes back short; a zero word ends the list.
func (b *Backend) PDOs(conn int, partner bool, role pd.Role, src ucsi.SourceCapabilitiesType, _ pd.Revision) ([]uint32, error) {
	if err := b.require(ucsi.FeaturePDODetails); err != nil {
		return nil, err
	}
	if partner {
		if err := b.connected(conn); err != nil {
			return nil, err
		}
	}

	words := []uint32{}
	for off := 0; off < ucsi.MaxPDOs; off += ucsi.MaxPDOsPerCommand {
		data, err := b.exec(ucsi.GetPDOs(conn, partner, role, src, off, ucsi.MaxPDOsPerCommand), ResponseSize)
		if err != nil {
			return nil, err
		}
		for i := 0; i < ucsi.MaxPDOsPerCommand; i++ {
			w := binary.LittleEndian.Uint32(data[i*4:])
			if w == 0 {
				return words, nil
			}
			words = append(words, w)
		}
	}
	return words, nil
}

// CableProperty implements backend.Backend.
func (b *Backend) CableProperty(conn int) ([]byte, error) {
	if err := b.require(ucsi.FeatureCableDetails); err != nil {
		return nil, err
	}
	if err := b.connected(conn); err != nil {
		return nil, err
	}
	return b.exec(ucsi.GetCableProperty(conn), ucsi.CablePropertySize)
}

// AlternateModes implements backend.Backend. Modes are requested two at a
// time until a zero SVID. Cable plug recipients are only asked when the
// cable reports alternate mode support.
func (b *Backend) AlternateModes(conn int, r ucsi.Recipient) ([]byte, error) {
	if err := b.require(ucsi.FeatureAltModeDetails); err != nil {
		return nil, err
	}
	switch r {
	case ucsi.RecipientConnector:
	case ucsi.RecipientSOP:
		if err := b.connected(conn); err != nil {
			return nil, err
		}
	default:
		if err := b.cableModes(conn); err != nil {
			return nil, err
		}
	}

	var out []byte
	for off := 0; off < ucsi.MaxAlternateModes; off += ucsi.MaxAltModesPerCommand {
		data, err := b.exec(ucsi.GetAlternateModes(conn, r, off, ucsi.MaxAltModesPerCommand), ResponseSize)
		if err != nil {
			return nil, err
		}
		for i := 0; i < ucsi.MaxAltModesPerCommand; i++ {
			entry := data[i*ucsi.AlternateModeSize : (i+1)*ucsi.AlternateModeSize]
			if binary.LittleEndian.Uint16(entry) == 0 {
				return out, nil
			}
			out = append(out, entry...)
		}
	}
	return out, nil
}

// PDMessage implements backend.Backend. The message is read in 16-byte
// chunks and trailing zero data objects are dropped, though a Discover
// Identity keeps its fixed header objects. A message whose first word is
// zero was never received and is NotSupported.
func (b *Backend) PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) ([]byte, error) {
	if err := b.require(ucsi.FeatureGetPDMessage); err != nil {
		return nil, err
	}
	if r == ucsi.RecipientConnector {
		return nil, pkg.ErrNotSupported
	}
	if err := b.connected(conn); err != nil {
		return nil, err
	}

	var msg []byte
	for off := 0; off < ucsi.MaxPDMessageSize; off += ucsi.MaxMessageInSize {
		n := min(ucsi.MaxMessageInSize, ucsi.MaxPDMessageSize-off)
		data, err := b.exec(ucsi.GetPDMessage(conn, r, t, off, n), n)
		if err != nil {
			return nil, err
		}
		msg = append(msg, data...)
	}
	if binary.LittleEndian.Uint32(msg) == 0 {
		return nil, pkg.ErrNotSupported
	}
	floor := 4
	if t == pd.MessageDiscoverIdentity {
		floor = pd.DiscoverIdentityMinSize
	}
	for len(msg) > floor && binary.LittleEndian.Uint32(msg[len(msg)-4:]) == 0 {
		msg = msg[:len(msg)-4]
	}
	return msg, nil
}

// =============================================================================
// Response Parsing
// =============================================================================

var errMalformed = errors.New("malformed response")

// ParseResponse converts the text of the debugfs response file into
// MESSAGE_IN bytes: the low 64 bits first, each little-endian.
func ParseResponse(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) == 0 || len(s) > 32 {
		return nil, fmt.Errorf("%w: %q", errMalformed, s)
	}
	s = strings.Repeat("0", 32-len(s)) + s
	hi, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	lo, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	buf := binary.LittleEndian.AppendUint64(make([]byte, 0, ResponseSize), lo)
	return binary.LittleEndian.AppendUint64(buf, hi), nil
}
