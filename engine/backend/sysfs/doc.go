// Package sysfs reads USB Type-C port information from the Linux typec
// class directory and presents it in UCSI and PD wire encodings.
//
// The kernel exposes each port, its partner, cable and cable plug as
// entries of /sys/class/typec:
//
//	port0/                       power_role, data_role, usb_power_delivery_revision, ...
//	port0/port0.0/               svid, vdo (one directory per alternate mode)
//	port0/usb_power_delivery/    source-capabilities/1:fixed_supply/voltage, ...
//	port0-partner/identity/      id_header, cert_stat, product, product_type_vdo1..3
//	port0-cable/                 type, plug_type, identity/
//	port0-plug0/port0-plug0.0/   svid, vdo
//
// Records the kernel does not expose are synthesized from attributes with
// the encoders in the pd and ucsi packages, so the engine decodes sysfs
// data through the same layouts as UCSI debugfs data. A missing partner,
// cable or plug entry reports pkg.ErrNotSupported.
//
// Importing the package registers the backend as backend.KindSysfs.
package sysfs
