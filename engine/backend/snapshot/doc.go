// Package snapshot implements an offline backend that replays raw records
// captured from another backend.
//
// A snapshot is a YAML document holding, per connector, the raw bytes of
// each record a live backend returned. Records the live backend reported
// as not supported are absent and replay as pkg.ErrNotSupported. Capture
// builds a document from any backend; Open replays one from a file and is
// registered as backend.KindSnapshot.
package snapshot
