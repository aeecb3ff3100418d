//go:build linux

package sysfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// DefaultRoot is the typec class directory.
const DefaultRoot = "/sys/class/typec"

const name = string(backend.KindSysfs)

var portPattern = regexp.MustCompile(`^port(\d+)$`)

func init() {
	backend.Register(backend.KindSysfs, func(opts backend.Options) (backend.Backend, error) {
		return Open(opts.Root)
	})
}

// Backend reads the typec class directory. Connector indexes map onto
// the port numbers present in ascending order.
type Backend struct {
	root  string
	ports []int
}

// Open scans root (DefaultRoot if empty) for ports. A missing root or one
// with no ports fails with a *pkg.BackendError.
func Open(root string) (*Backend, error) {
	if root == "" {
		root = DefaultRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, backend.Errorf(name, err, "scan %s", root)
	}

	b := &Backend{root: root}
	for _, e := range entries {
		m := portPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		b.ports = append(b.ports, n)
	}
	if len(b.ports) == 0 {
		return nil, backend.Errorf(name, pkg.ErrNoDevice, "scan %s: no ports", root)
	}
	sort.Ints(b.ports)
	if len(b.ports) > ucsi.MaxConnectorNumber {
		b.ports = b.ports[:ucsi.MaxConnectorNumber]
	}
	pkg.LogDebug(pkg.ComponentSysfs, "ports found", "root", root, "ports", b.ports)
	return b, nil
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return name }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

// =============================================================================
// Path Helpers
// =============================================================================

func (b *Backend) port(conn int) string {
	return filepath.Join(b.root, fmt.Sprintf("port%d", b.ports[conn]))
}

func (b *Backend) partner(conn int) string {
	return filepath.Join(b.root, fmt.Sprintf("port%d-partner", b.ports[conn]))
}

func (b *Backend) cable(conn int) string {
	return filepath.Join(b.root, fmt.Sprintf("port%d-cable", b.ports[conn]))
}

func (b *Backend) plug(conn int) string {
	return filepath.Join(b.root, fmt.Sprintf("port%d-plug0", b.ports[conn]))
}

// present returns pkg.ErrNotSupported if dir does not exist.
func present(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pkg.ErrNotSupported
		}
		return backend.Errorf(name, err, "stat %s", dir)
	}
	return nil
}

// fail wraps an attribute read error.
func fail(path string, err error) error {
	return backend.Errorf(name, err, "read %s", path)
}

// =============================================================================
// PPM-wide
// =============================================================================

// Capability implements backend.Backend. The summary is derived from the
// port count and the revision attributes of the first port.
func (b *Backend) Capability() ([]byte, error) {
	c := ucsi.Capability{
		NumConnectors: uint8(len(b.ports)),
		OptionalFeatures: ucsi.FeatureAltModeDetails | ucsi.FeaturePDODetails |
			ucsi.FeatureCableDetails | ucsi.FeatureGetPDMessage,
	}
	for conn := range b.ports {
		modes, _ := filepath.Glob(filepath.Join(b.port(conn), fmt.Sprintf("port%d.*", b.ports[conn])))
		c.NumAltModes += uint8(len(modes))
	}

	first := b.port(0)
	path := filepath.Join(first, "usb_power_delivery_revision")
	rev, err := readSysfsRevision(path)
	switch {
	case err == nil:
		c.PDVersion = rev
		c.USBPowerDelivery = rev != 0
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fail(path, err)
	}

	path = filepath.Join(first, "usb_typec_revision")
	typec, err := readSysfsRevision(path)
	switch {
	case err == nil:
		c.TypeCVersion = uint16(typec)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fail(path, err)
	}
	c.USBTypeCCurrent = true
	return c.Bytes(), nil
}

// =============================================================================
// Per-connector
// =============================================================================

// ConnectorCapability implements backend.Backend.
func (b *Backend) ConnectorCapability(conn int) ([]byte, error) {
	port := b.port(conn)
	path := filepath.Join(port, "power_role")
	roles, _, err := readSysfsSelection(path)
	if err != nil {
		return nil, fail(path, err)
	}

	var c ucsi.ConnectorCapability
	source, sink := contains(roles, "source"), contains(roles, "sink")
	switch {
	case source && sink:
		c.OperationMode = ucsi.OpModeDRP
		c.SwapToSource, c.SwapToSink = true, true
	case source:
		c.OperationMode = ucsi.OpModeRpOnly
	default:
		c.OperationMode = ucsi.OpModeRdOnly
	}
	c.Provider, c.Consumer = source, sink || !source

	if data, _, err := readSysfsSelection(filepath.Join(port, "data_role")); err == nil {
		if contains(data, "host") && contains(data, "device") {
			c.SwapToDFP, c.SwapToUFP = true, true
		}
	}
	if modes, _ := filepath.Glob(filepath.Join(port, fmt.Sprintf("port%d.*", b.ports[conn]))); len(modes) > 0 {
		c.OperationMode |= ucsi.OpModeAlternateMode
	}
	if rev, err := readSysfsRevision(filepath.Join(b.partner(conn), "usb_power_delivery_revision")); err == nil && rev != 0 {
		c.PartnerPDRevision = rev.HeaderField()
	}
	return c.Bytes(), nil
}

// ConnectorStatus implements backend.Backend. Connect status follows the
// partner entry; the request data object is not exposed by sysfs and
// reads as zero.
func (b *Backend) ConnectorStatus(conn int) ([]byte, error) {
	port := b.port(conn)
	var s ucsi.ConnectorStatus

	path := filepath.Join(port, "power_role")
	_, power, err := readSysfsSelection(path)
	if err != nil {
		return nil, fail(path, err)
	}
	s.Provider = power == "source"

	partner := b.partner(conn)
	switch err := present(partner); {
	case err == nil:
		s.Connected = true
	case !errors.Is(err, pkg.ErrNotSupported):
		return nil, err
	}

	if s.Connected {
		s.PowerOperationMode = powerOperationMode(filepath.Join(port, "power_operation_mode"))
		s.PartnerType = b.partnerType(conn)
		if s.PartnerType == ucsi.PartnerDFP || s.PartnerType == ucsi.PartnerUFP {
			s.PartnerFlags |= ucsi.PartnerFlagUSB
		}
		modes, _ := filepath.Glob(filepath.Join(partner, fmt.Sprintf("port%d-partner.*", b.ports[conn])))
		if len(modes) > 0 {
			s.PartnerFlags |= ucsi.PartnerFlagAltMode
		}
	}

	if orientation, err := readSysfsString(filepath.Join(port, "orientation")); err == nil {
		s.Extended = true
		s.Reversed = orientation == "reverse"
		if rev, err := readSysfsRevision(filepath.Join(partner, "usb_power_delivery_revision")); err == nil {
			s.PDVersionOperationMode = rev
		}
	}
	return s.Bytes(), nil
}

func powerOperationMode(path string) ucsi.PowerOperationMode {
	s, err := readSysfsString(path)
	if err != nil {
		return ucsi.PowerOpModeNone
	}
	switch s {
	case "usb_power_delivery":
		return ucsi.PowerOpModePD
	case "1.5A":
		return ucsi.PowerOpModeTypeC1500
	case "3.0A":
		return ucsi.PowerOpModeTypeC3000
	}
	return ucsi.PowerOpModeUSBDefault
}

func (b *Backend) partnerType(conn int) ucsi.PartnerType {
	if acc, err := readSysfsString(filepath.Join(b.partner(conn), "accessory_mode")); err == nil {
		switch acc {
		case "analog_audio":
			return ucsi.PartnerAudioAccessory
		case "debug":
			return ucsi.PartnerDebugAccessory
		}
	}
	_, data, err := readSysfsSelection(filepath.Join(b.port(conn), "data_role"))
	if err != nil {
		return ucsi.PartnerNone
	}
	if data == "host" {
		return ucsi.PartnerUFP
	}
	return ucsi.PartnerDFP
}

// PDOs implements backend.Backend.
func (b *Backend) PDOs(conn int, partner bool, role pd.Role, _ ucsi.SourceCapabilitiesType, rev pd.Revision) ([]uint32, error) {
	dir := b.port(conn)
	if partner {
		dir = b.partner(conn)
	}
	dir = filepath.Join(dir, "usb_power_delivery")
	if err := present(dir); err != nil {
		return nil, err
	}

	sub := "sink-capabilities"
	if role == pd.Source {
		sub = "source-capabilities"
	}
	return readPDOs(filepath.Join(dir, sub), role, rev)
}

// CableProperty implements backend.Backend.
func (b *Backend) CableProperty(conn int) ([]byte, error) {
	cable := b.cable(conn)
	if err := present(cable); err != nil {
		return nil, err
	}

	var c ucsi.CableProperty
	path := filepath.Join(cable, "type")
	typ, err := readSysfsString(path)
	if err != nil {
		return nil, fail(path, err)
	}
	c.Active = typ == "active"

	path = filepath.Join(cable, "plug_type")
	plug, err := readSysfsString(path)
	if err != nil {
		return nil, fail(path, err)
	}
	switch plug {
	case "type-a":
		c.PlugEndType = ucsi.PlugEndTypeA
	case "type-b":
		c.PlugEndType = ucsi.PlugEndTypeB
	case "type-c", "captive":
		c.PlugEndType = ucsi.PlugEndTypeC
	default:
		c.PlugEndType = ucsi.PlugEndOther
	}

	if n, err := readSysfsUint(filepath.Join(b.plug(conn), "number_of_alternate_modes")); err == nil {
		c.ModeSupport = n > 0
	}
	if err := cableIdentity(filepath.Join(cable, "identity"), &c); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// AlternateModes implements backend.Backend.
func (b *Backend) AlternateModes(conn int, r ucsi.Recipient) ([]byte, error) {
	var dir, prefix string
	n := b.ports[conn]
	switch r {
	case ucsi.RecipientConnector:
		dir, prefix = b.port(conn), fmt.Sprintf("port%d.", n)
	case ucsi.RecipientSOP:
		dir, prefix = b.partner(conn), fmt.Sprintf("port%d-partner.", n)
	case ucsi.RecipientSOPPrime:
		dir, prefix = b.plug(conn), fmt.Sprintf("port%d-plug0.", n)
	default:
		return nil, pkg.ErrNotSupported
	}
	if err := present(dir); err != nil {
		return nil, err
	}

	var modes []ucsi.AlternateMode
	for i := 0; i < ucsi.MaxAlternateModes; i++ {
		mode := filepath.Join(dir, prefix+strconv.Itoa(i))
		svid, err := readSysfsHex(filepath.Join(mode, "svid"))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fail(filepath.Join(mode, "svid"), err)
		}
		vdo, err := readSysfsHex(filepath.Join(mode, "vdo"))
		if err != nil {
			return nil, fail(filepath.Join(mode, "vdo"), err)
		}
		modes = append(modes, ucsi.AlternateMode{SVID: uint16(svid), MID: vdo})
	}
	return ucsi.MarshalAlternateModes(modes), nil
}

// PDMessage implements backend.Backend. Only Discover Identity is
// available, rebuilt from the identity attributes of the partner (SOP)
// or cable (SOP′).
func (b *Backend) PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) ([]byte, error) {
	if t != pd.MessageDiscoverIdentity {
		return nil, pkg.ErrNotSupported
	}
	var dir string
	switch r {
	case ucsi.RecipientSOP:
		dir = b.partner(conn)
	case ucsi.RecipientSOPPrime:
		dir = b.cable(conn)
	default:
		return nil, pkg.ErrNotSupported
	}
	if err := present(dir); err != nil {
		return nil, err
	}

	rev, err := readSysfsRevision(filepath.Join(b.port(conn), "usb_power_delivery_revision"))
	if err != nil || rev == 0 {
		rev = pd.Revision30
	}
	return discoverIdentity(filepath.Join(dir, "identity"), rev)
}
