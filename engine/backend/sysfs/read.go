//go:build linux

package sysfs

import (
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/typecinfo/pd"
)

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint reads an unsigned decimal integer from a sysfs attribute
// file. A trailing unit such as "mV" or "mA" is ignored.
func readSysfsUint(path string) (uint32, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, os.ErrInvalid
	}
	return uint32(v), nil
}

// readSysfsBool reads a 0/1 flag from a sysfs attribute file.
func readSysfsBool(path string) (bool, error) {
	v, err := readSysfsUint(path)
	return v != 0, err
}

// readSysfsHex reads a hexadecimal uint32 from a sysfs attribute file.
func readSysfsHex(path string) (uint32, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	// Remove any "0x" prefix
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, os.ErrInvalid
	}
	return uint32(v), nil
}

// readSysfsRevision reads a dotted revision such as "3.1". "0.0" means the
// port has no PD support and reads as zero.
func readSysfsRevision(path string) (pd.Revision, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	rev, err := pd.ParseRevision(s)
	if err != nil {
		return 0, os.ErrInvalid
	}
	return rev, nil
}

// readSysfsSelection reads a "[a] b" style attribute, returning every
// listed choice and the bracketed one.
func readSysfsSelection(path string) (choices []string, active string, err error) {
	s, err := readSysfsString(path)
	if err != nil {
		return nil, "", err
	}
	for _, f := range strings.Fields(s) {
		if strings.HasPrefix(f, "[") && strings.HasSuffix(f, "]") {
			f = f[1 : len(f)-1]
			active = f
		}
		choices = append(choices, f)
	}
	if active == "" && len(choices) == 1 {
		active = choices[0]
	}
	return choices, active, nil
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
