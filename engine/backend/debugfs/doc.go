// Package debugfs implements a backend that issues UCSI commands through
// the kernel's UCSI debugfs interface.
//
// Each UCSI device appears as a directory under /sys/kernel/debug/usb/ucsi
// holding two files. Writing a 64-bit command word to "command" executes
// it; "response" then holds the 16-byte MESSAGE_IN data formatted as
// "0x%016x%016x", high half first. Lists longer than one response are
// paged.
//
// The command/response path is abstracted by Transport so the paging and
// feature gating can run against a fake PPM. On Linux, importing this
// package registers the backend as backend.KindDebugfs.
package debugfs
