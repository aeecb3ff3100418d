package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

const name = string(backend.KindSnapshot)

func init() {
	backend.Register(backend.KindSnapshot, func(opts backend.Options) (backend.Backend, error) {
		return Open(opts.Root)
	})
}

// Backend replays a Document.
type Backend struct {
	doc *Document
}

// New returns a Backend replaying doc.
func New(doc *Document) *Backend {
	return &Backend{doc: doc}
}

// Open loads the snapshot file at path.
func Open(path string) (*Backend, error) {
	if path == "" {
		return nil, backend.Errorf(name, os.ErrInvalid, "open: no snapshot file")
	}
	path = filepath.Clean(path)
	doc, err := ReadFile(path)
	if err != nil {
		return nil, backend.Errorf(name, err, "open %s", path)
	}
	pkg.LogDebug(pkg.ComponentSnapshot, "snapshot loaded",
		"path", path, "source", doc.Source, "connectors", len(doc.Connectors))
	return New(doc), nil
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return name }

// Close implements backend.Backend.
func (b *Backend) Close() error { return nil }

func (b *Backend) connector(conn int) (*Connector, error) {
	if conn < 0 || conn >= len(b.doc.Connectors) {
		return nil, pkg.ErrNotSupported
	}
	return &b.doc.Connectors[conn], nil
}

func record(h Hex) ([]byte, error) {
	if h == nil {
		return nil, pkg.ErrNotSupported
	}
	return append([]byte{}, h...), nil
}

// Capability implements backend.Backend.
func (b *Backend) Capability() ([]byte, error) {
	if b.doc.Capability == nil {
		return nil, backend.Errorf(name, pkg.ErrNoDevice, "capability not recorded")
	}
	return record(b.doc.Capability)
}

// ConnectorCapability implements backend.Backend.
func (b *Backend) ConnectorCapability(conn int) ([]byte, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	return record(c.Capability)
}

// ConnectorStatus implements backend.Backend.
func (b *Backend) ConnectorStatus(conn int) ([]byte, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	return record(c.Status)
}

// PDOs implements backend.Backend. The words replay as captured; the
// source capabilities type and revision are not part of the record.
func (b *Backend) PDOs(conn int, partner bool, role pd.Role, _ ucsi.SourceCapabilitiesType, _ pd.Revision) ([]uint32, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	list, ok := c.PDOs[pdoKey(partner, role)]
	if !ok {
		return nil, pkg.ErrNotSupported
	}
	words := make([]uint32, len(list))
	for i, w := range list {
		words[i] = uint32(w)
	}
	return words, nil
}

// CableProperty implements backend.Backend.
func (b *Backend) CableProperty(conn int) ([]byte, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	return record(c.Cable)
}

// AlternateModes implements backend.Backend.
func (b *Backend) AlternateModes(conn int, r ucsi.Recipient) ([]byte, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	h, ok := c.AlternateModes[r.String()]
	if !ok {
		return nil, pkg.ErrNotSupported
	}
	return append([]byte{}, h...), nil
}

// PDMessage implements backend.Backend.
func (b *Backend) PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) ([]byte, error) {
	c, err := b.connector(conn)
	if err != nil {
		return nil, err
	}
	h, ok := c.Messages[messageKey(r, t)]
	if !ok {
		return nil, pkg.ErrNotSupported
	}
	return append([]byte{}, h...), nil
}

// =============================================================================
// Capture
// =============================================================================

// Capture records every query of src into a Document. Records src reports
// as not supported are left out; any other failure aborts the capture.
// PDO words are requested for the PD revision src reports, or 3.0 if that
// revision has no decode tables.
func Capture(src backend.Backend) (*Document, error) {
	raw, err := src.Capability()
	if err != nil {
		return nil, fmt.Errorf("capture capability: %w", err)
	}
	var c ucsi.Capability
	if err := ucsi.ParseCapability(raw, &c); err != nil {
		return nil, fmt.Errorf("capture capability: %w", err)
	}
	rev := c.PDVersion
	if !rev.Supported() {
		rev = pd.Revision30
	}

	doc := &Document{
		Version:    Version,
		Source:     src.Name(),
		Capability: raw,
		Connectors: make([]Connector, c.NumConnectors),
	}
	for i := range doc.Connectors {
		if err := capture(src, i, rev, &doc.Connectors[i]); err != nil {
			return nil, fmt.Errorf("capture connector %d: %w", i, err)
		}
	}
	pkg.LogDebug(pkg.ComponentSnapshot, "capture complete", "source", doc.Source, "connectors", len(doc.Connectors))
	return doc, nil
}

// soft returns nil for pkg.ErrNotSupported.
func soft(err error) error {
	if errors.Is(err, pkg.ErrNotSupported) {
		return nil
	}
	return err
}

func capture(src backend.Backend, conn int, rev pd.Revision, out *Connector) error {
	var err error
	if out.Capability, err = src.ConnectorCapability(conn); soft(err) != nil {
		return err
	}
	if out.Status, err = src.ConnectorStatus(conn); soft(err) != nil {
		return err
	}
	if out.Cable, err = src.CableProperty(conn); soft(err) != nil {
		return err
	}

	for _, partner := range []bool{false, true} {
		for _, role := range []pd.Role{pd.Source, pd.Sink} {
			words, err := src.PDOs(conn, partner, role, ucsi.SourceCapabilitiesCurrent, rev)
			if err != nil {
				if soft(err) != nil {
					return err
				}
				continue
			}
			if out.PDOs == nil {
				out.PDOs = make(map[string][]Word)
			}
			list := make([]Word, len(words))
			for i, w := range words {
				list[i] = Word(w)
			}
			out.PDOs[pdoKey(partner, role)] = list
		}
	}

	for _, r := range []ucsi.Recipient{ucsi.RecipientConnector, ucsi.RecipientSOP, ucsi.RecipientSOPPrime} {
		data, err := src.AlternateModes(conn, r)
		if err != nil {
			if soft(err) != nil {
				return err
			}
			continue
		}
		if out.AlternateModes == nil {
			out.AlternateModes = make(map[string]Hex)
		}
		out.AlternateModes[r.String()] = append(Hex{}, data...)
	}

	for _, r := range []ucsi.Recipient{ucsi.RecipientSOP, ucsi.RecipientSOPPrime} {
		for _, t := range []pd.MessageType{pd.MessageDiscoverIdentity, pd.MessageRevision} {
			data, err := src.PDMessage(conn, r, t)
			if err != nil {
				if soft(err) != nil {
					return err
				}
				continue
			}
			if out.Messages == nil {
				out.Messages = make(map[string]Hex)
			}
			out.Messages[messageKey(r, t)] = append(Hex{}, data...)
		}
	}
	return nil
}
