package pd

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/ardnew/typecinfo/internal/bitfield"
	"github.com/ardnew/typecinfo/pkg"
)

// Revision is a USB PD specification revision in BCD, e.g. 0x0310 for 3.1.
type Revision uint16

// Known PD revisions.
const (
	Revision20 Revision = 0x0200
	Revision30 Revision = 0x0300
	Revision31 Revision = 0x0310
	Revision32 Revision = 0x0320
)

func bcd(b uint16) uint64 {
	return uint64(b>>4&0xF)*10 + uint64(b&0xF)
}

// Major returns the major revision number.
func (r Revision) Major() uint64 { return bcd(bitfield.Get(uint16(r), 15, 8)) }

// Minor returns the minor revision number.
func (r Revision) Minor() uint64 { return uint64(bitfield.Get(uint16(r), 7, 4)) }

// Patch returns the third BCD digit, zero for every published revision.
func (r Revision) Patch() uint64 { return uint64(bitfield.Get(uint16(r), 3, 0)) }

// Version returns r as a semantic version.
func (r Revision) Version() *semver.Version {
	return semver.New(r.Major(), r.Minor(), r.Patch(), "", "")
}

func (r Revision) String() string {
	return fmt.Sprintf("%d.%d", r.Major(), r.Minor())
}

// MarshalText implements encoding.TextMarshaler.
func (r Revision) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Supported reports whether decode tables exist for r.
func (r Revision) Supported() bool {
	return revSupported.Check(r.Version())
}

func (r Revision) check(record string) error {
	if !r.Supported() {
		return pkg.NewDecodeError(record, "revision", uint64(r), pkg.ErrUnsupportedRevision)
	}
	return nil
}

// ParseRevision parses a dotted revision such as "3.1" or "2.0".
func ParseRevision(s string) (Revision, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return 0, fmt.Errorf("parse PD revision %q: %w", s, err)
	}
	if v.Major() > 99 || v.Minor() > 9 || v.Patch() > 9 {
		return 0, fmt.Errorf("parse PD revision %q: %w", s, pkg.ErrInvalidValue)
	}
	hi := uint16(v.Major()/10)<<4 | uint16(v.Major()%10)
	return Revision(hi<<8 | uint16(v.Minor())<<4 | uint16(v.Patch())), nil
}

// RevisionFromHeader maps the two-bit Specification Revision field used in
// PD message headers and UCSI connector capability to a Revision.
func RevisionFromHeader(field uint8) Revision {
	switch field & 0x3 {
	case 0:
		return 0x0100
	case 1:
		return Revision20
	default:
		return Revision30
	}
}

// HeaderField is the inverse of RevisionFromHeader.
func (r Revision) HeaderField() uint8 {
	switch {
	case r.Major() >= 3:
		return 2
	case r.Major() == 2:
		return 1
	}
	return 0
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Revision ranges keying the decode tables.
var (
	revSupported = mustConstraint(">= 2.0, < 4.0")
	rev20        = mustConstraint(">= 2.0, < 3.0")
	rev30        = mustConstraint(">= 3.0, < 3.1")
	rev30Plus    = mustConstraint(">= 3.0, < 4.0")
	rev31Plus    = mustConstraint(">= 3.1, < 4.0")
	rev32Plus    = mustConstraint(">= 3.2, < 4.0")
)
