package ucsi

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/typecinfo/pkg"
)

// AlternateModeSize is the size of one GET_ALTERNATE_MODES entry.
const AlternateModeSize = 6

// Well-known Standard and Vendor IDs.
const (
	SVIDDisplayPort = 0xFF01
	SVIDThunderbolt = 0x8087
	SVIDVirtualLink = 0x28DE
)

// AlternateMode is one alternate mode: its SVID and the mode VDO.
type AlternateMode struct {
	SVID uint16 `yaml:"svid" json:"svid"`
	MID  uint32 `yaml:"mid" json:"mid"`
}

func (m AlternateMode) String() string {
	return fmt.Sprintf("svid=0x%04x mid=0x%08x", m.SVID, m.MID)
}

// ParseAlternateModes parses concatenated GET_ALTERNATE_MODES entries.
// The list ends at the first entry with a zero SVID. A trailing partial
// entry is an error.
func ParseAlternateModes(data []byte) ([]AlternateMode, error) {
	if len(data)%AlternateModeSize != 0 {
		return nil, pkg.NewDecodeError("alternate mode", "length", uint64(len(data)), pkg.ErrTruncated)
	}
	modes := make([]AlternateMode, 0, len(data)/AlternateModeSize)
	for off := 0; off < len(data); off += AlternateModeSize {
		svid := binary.LittleEndian.Uint16(data[off:])
		if svid == 0 {
			break
		}
		modes = append(modes, AlternateMode{
			SVID: svid,
			MID:  binary.LittleEndian.Uint32(data[off+2:]),
		})
	}
	return modes, nil
}

// MarshalAlternateModes serializes modes in GET_ALTERNATE_MODES form.
func MarshalAlternateModes(modes []AlternateMode) []byte {
	buf := make([]byte, len(modes)*AlternateModeSize)
	for i, m := range modes {
		off := i * AlternateModeSize
		binary.LittleEndian.PutUint16(buf[off:], m.SVID)
		binary.LittleEndian.PutUint32(buf[off+2:], m.MID)
	}
	return buf
}
