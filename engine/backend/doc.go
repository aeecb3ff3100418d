// Package backend defines the raw-record contract between the capability
// engine and a host data source.
//
// A [Backend] answers each query with the raw UCSI or PD encoding of the
// requested record. It never decodes: the engine owns decoding, so every
// backend is held to the same binary layouts and the same validation.
//
// # Outcomes
//
// Every method either returns data, fails with [pkg.ErrNotSupported] when
// the record does not exist for that connector or recipient, or fails
// with a *[pkg.BackendError] when the data source itself misbehaved.
// Backends never return decode errors.
//
// # Implementations
//
// Implementations register a [Factory] under a [Kind] from an init
// function, the way database/sql drivers do:
//
//	func init() {
//	    backend.Register(backend.KindSysfs, open)
//	}
//
// Callers select one with [Open]. The implementations in this module are:
//
//   - [github.com/ardnew/typecinfo/engine/backend/sysfs]: /sys/class/typec
//   - [github.com/ardnew/typecinfo/engine/backend/debugfs]: the UCSI
//     debugfs command and response files
//   - [github.com/ardnew/typecinfo/engine/backend/snapshot]: raw records
//     replayed from a YAML file
package backend
