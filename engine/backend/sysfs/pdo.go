//go:build linux

package sysfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
)

// =============================================================================
// Power Data Objects
// =============================================================================

// pdoEntry is one "N:kind" directory of a capabilities list.
type pdoEntry struct {
	pos  int
	kind string
	path string
}

// readPDOs rebuilds the PDO words of a capabilities directory in object
// position order. A missing directory is an empty list.
func readPDOs(dir string, role pd.Role, rev pd.Revision) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []uint32{}, nil
	}
	if err != nil {
		return nil, fail(dir, err)
	}

	var list []pdoEntry
	for _, e := range entries {
		pos, kind, ok := strings.Cut(e.Name(), ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(pos)
		if err != nil {
			continue
		}
		list = append(list, pdoEntry{pos: n, kind: kind, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].pos < list[j].pos })

	words := make([]uint32, 0, len(list))
	for _, e := range list {
		p, err := readPDO(e, role, rev)
		if err != nil {
			return nil, err
		}
		if p == nil {
			pkg.LogWarn(pkg.ComponentSysfs, "skipping unknown PDO kind", "path", e.path, "kind", e.kind)
			continue
		}
		words = append(words, p.Encode())
	}
	return words, nil
}

// attrReader reads attributes of one PDO directory, keeping the first
// error.
type attrReader struct {
	dir string
	err error
}

func (r *attrReader) uint(name string) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := readSysfsUint(filepath.Join(r.dir, name))
	if err != nil {
		r.err = fail(filepath.Join(r.dir, name), err)
	}
	return v
}

func (r *attrReader) flag(name string) bool { return r.uint(name) != 0 }

// optional reads an attribute that older kernels or some roles omit.
func (r *attrReader) optional(name string) uint32 {
	if r.err != nil {
		return 0
	}
	v, err := readSysfsUint(filepath.Join(r.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.err = fail(filepath.Join(r.dir, name), err)
	}
	return v
}

// readPDO builds the PDO for one entry. Fields the revision does not
// define are left zero so the word encodes cleanly for rev.
func readPDO(e pdoEntry, role pd.Role, rev pd.Revision) (pd.PDO, error) {
	r := &attrReader{dir: e.path}
	pd30 := rev.Major() >= 3

	var p pd.PDO
	switch e.kind {
	case "fixed_supply":
		f := pd.FixedSupply{
			Role:                     role,
			DualRolePower:            r.flag("dual_role_power"),
			UnconstrainedPower:       r.flag("unconstrained_power"),
			USBCommunicationsCapable: r.flag("usb_communication_capable"),
			DualRoleData:             r.flag("dual_role_data"),
			VoltageMV:                r.uint("voltage"),
		}
		if role == pd.Source {
			f.USBSuspendSupported = r.flag("usb_suspend_supported")
			f.PeakCurrent = pd.PeakCurrent(r.optional("peak_current"))
			f.CurrentMA = r.uint("maximum_current")
			if pd30 {
				f.UnchunkedExtendedMessages = r.optional("unchunked_extended_messages_supported") != 0
			}
		} else {
			f.HigherCapability = r.flag("higher_capability")
			f.CurrentMA = r.uint("operational_current")
			if pd30 {
				f.FastRoleSwap = pd.FRSCurrent(r.optional("fast_role_swap_current"))
			}
		}
		p = f
	case "variable_supply":
		v := pd.VariableSupply{
			Role:         role,
			MaxVoltageMV: r.uint("maximum_voltage"),
			MinVoltageMV: r.uint("minimum_voltage"),
		}
		if role == pd.Source {
			v.CurrentMA = r.uint("maximum_current")
		} else {
			v.CurrentMA = r.uint("operational_current")
		}
		p = v
	case "battery":
		bat := pd.BatterySupply{
			Role:         role,
			MaxVoltageMV: r.uint("maximum_voltage"),
			MinVoltageMV: r.uint("minimum_voltage"),
		}
		if role == pd.Source {
			bat.PowerMW = r.uint("maximum_power")
		} else {
			bat.PowerMW = r.uint("operational_power")
		}
		p = bat
	case "programmable_supply":
		pps := pd.ProgrammableSupply{
			Role:         role,
			MaxVoltageMV: r.uint("maximum_voltage"),
			MinVoltageMV: r.uint("minimum_voltage"),
			CurrentMA:    r.uint("maximum_current"),
		}
		if role == pd.Source {
			pps.PowerLimited = r.optional("pps_power_limited") != 0
		}
		p = pps
	default:
		return nil, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}
