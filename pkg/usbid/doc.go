// Package usbid parses the usb.ids vendor and product database so that
// Discover Identity responses can be labeled with readable names.
//
// The database is distributed with most Linux systems:
//
//	db, path, err := usbid.Open()
//	if err == nil {
//	    fmt.Println(path, db.Vendor(0x05AC))
//	}
//
// A Database is immutable once parsed and safe for concurrent lookups.
package usbid
