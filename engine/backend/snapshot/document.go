package snapshot

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// Version is the document format version written by Capture.
const Version = 1

// Hex is a raw record, written as a hex string.
type Hex []byte

// MarshalYAML implements yaml.Marshaler.
func (h Hex) MarshalYAML() (any, error) {
	return hex.EncodeToString(h), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. An empty string decodes to a
// present but empty record.
func (h *Hex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: record is not a hex string", node.Line)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(node.Value, "0x"))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*h = append(Hex{}, b...)
	return nil
}

// Word is a PDO word, written as 0x-prefixed hex.
type Word uint32

// MarshalYAML implements yaml.Marshaler.
func (w Word) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("0x%08x", uint32(w))}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Decimal and 0x-prefixed
// values are accepted, quoted or not.
func (w *Word) UnmarshalYAML(node *yaml.Node) error {
	v, err := strconv.ParseUint(node.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("line %d: PDO word: %w", node.Line, err)
	}
	*w = Word(v)
	return nil
}

// Document is a captured set of raw records.
type Document struct {
	Version    int         `yaml:"version"`
	Source     string      `yaml:"source,omitempty"`
	Session    string      `yaml:"session,omitempty"`
	Capability Hex         `yaml:"capability"`
	Connectors []Connector `yaml:"connectors"`
}

// Connector holds the records of one connector. A nil field or missing
// map key is a record the source did not support.
type Connector struct {
	Capability     Hex               `yaml:"capability,omitempty"`
	Status         Hex               `yaml:"status,omitempty"`
	PDOs           map[string][]Word `yaml:"pdos,omitempty"`
	Cable          Hex               `yaml:"cable,omitempty"`
	AlternateModes map[string]Hex    `yaml:"alternate_modes,omitempty"`
	Messages       map[string]Hex    `yaml:"messages,omitempty"`
}

// pdoKey names a PDO list: "source", "sink", "partner_source" or
// "partner_sink".
func pdoKey(partner bool, role pd.Role) string {
	if partner {
		return "partner_" + role.String()
	}
	return role.String()
}

// messageKey names a PD message record, e.g. "sop/discover_identity".
func messageKey(r ucsi.Recipient, t pd.MessageType) string {
	return r.String() + "/" + t.String()
}

// Load decodes a document from r.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("decode snapshot: version %d: %w", doc.Version, pkg.ErrInvalidValue)
	}
	return &doc, nil
}

// ReadFile loads the document at path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Save encodes doc to w.
func Save(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// WriteFile saves doc to path.
func WriteFile(path string, doc *Document) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Save(f, doc)
}
