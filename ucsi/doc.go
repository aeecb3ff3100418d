// Package ucsi implements the USB Type-C Connector System Software
// Interface data structures the capability engine reads, and the 64-bit
// command words that request them from a PPM.
//
// Each data structure has a ParseX function that validates reserved bits
// and a MarshalTo method producing the wire form, following the same
// convention as USB descriptor codecs:
//
//	var cap ucsi.Capability
//	if err := ucsi.ParseCapability(data, &cap); err != nil {
//	    return err
//	}
//
// Parse errors are *pkg.DecodeError values.
package ucsi
