//go:build linux

package sysfs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// =============================================================================
// Identity
// =============================================================================

// readIdentity reads the Discover Identity VDOs the kernel caches under
// dir: ID header, Cert Stat, Product and up to three product-type VDOs.
// An all-zero ID header means discovery never completed.
func readIdentity(dir string) ([]uint32, error) {
	if err := present(dir); err != nil {
		return nil, err
	}
	var vdos []uint32
	for _, attr := range []string{"id_header", "cert_stat", "product"} {
		path := filepath.Join(dir, attr)
		v, err := readSysfsHex(path)
		if err != nil {
			return nil, fail(path, err)
		}
		vdos = append(vdos, v)
	}
	if vdos[0] == 0 {
		return nil, pkg.ErrNotSupported
	}
	for i := 1; i <= 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("product_type_vdo%d", i))
		v, err := readSysfsHex(path)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, fail(path, err)
		}
		vdos = append(vdos, v)
	}
	return vdos, nil
}

// discoverIdentity returns the identity under dir as Discover Identity
// ACK data objects for revision rev.
func discoverIdentity(dir string, rev pd.Revision) ([]byte, error) {
	vdos, err := readIdentity(dir)
	if err != nil {
		return nil, err
	}
	buf := binary.LittleEndian.AppendUint32(nil, pd.DiscoverIdentityACK(rev).Encode())
	for _, v := range vdos {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf, nil
}

// USB Highest Speed field of the cable VDOs, as (mantissa, exponent).
var cableSpeeds = [...]struct {
	mantissa uint16
	exponent uint8
}{
	{480, 2}, // USB 2.0
	{5, 3},   // USB 3.2 Gen1
	{10, 3},  // USB 3.2 / USB4 Gen2
	{20, 3},  // USB4 Gen3
	{40, 3},  // USB4 Gen4
}

// cableIdentity fills the speed, current, VBUS and latency fields of c
// from the cable's first product-type VDO. Missing or incomplete identity
// leaves c unchanged.
func cableIdentity(dir string, c *ucsi.CableProperty) error {
	vdos, err := readIdentity(dir)
	if errors.Is(err, pkg.ErrNotSupported) || (err == nil && len(vdos) < 4) {
		return nil
	}
	if err != nil {
		return err
	}

	var (
		speed   uint8
		current pd.CableCurrent
		latency uint8
		vbus    = true
	)
	switch pd.CablePlugType((vdos[0] >> 27) & 0x7) {
	case pd.PlugPassiveCable:
		v, err := pd.DecodePassiveCableVDO(vdos[3])
		if err != nil {
			pkg.LogWarn(pkg.ComponentSysfs, "ignoring cable VDO", "dir", dir, "error", err)
			return nil
		}
		speed, current, latency = v.USBHighestSpeed, v.VBUSCurrent, v.Latency
	case pd.PlugActiveCable:
		v, err := pd.DecodeActiveCableVDO(vdos[3])
		if err != nil {
			pkg.LogWarn(pkg.ComponentSysfs, "ignoring cable VDO", "dir", dir, "error", err)
			return nil
		}
		speed, current, latency, vbus = v.USBHighestSpeed, v.VBUSCurrent, v.Latency, v.VBUSThroughCable
	default:
		return nil
	}

	if int(speed) < len(cableSpeeds) {
		c.SpeedMantissa = cableSpeeds[speed].mantissa
		c.SpeedExponent = cableSpeeds[speed].exponent
	}
	c.CurrentCapability = uint8(current.MilliAmps() / 50)
	c.VBUSInCable = vbus
	c.Latency = latency
	return nil
}
