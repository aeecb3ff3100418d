// Package pkg provides shared utilities for the typecinfo capability engine.
//
// This package contains common functionality used by the decoders, the
// backends and the engine, including:
//
//   - Structured logging via [go.uber.org/zap]
//   - Sentinel and typed errors for capability queries
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps zap with a component field:
//
//	pkg.SetLogLevel(zapcore.DebugLevel)
//	pkg.LogInfo(pkg.ComponentEngine, "session opened", "connectors", 2)
//
// # Errors
//
// Queries fail with one of four classes. Only [ErrNotSupported] is soft:
//
//	if errors.Is(err, pkg.ErrNotSupported) {
//	    // Skip this section
//	}
//
// [DecodeError], [ConnectorError] and [BackendError] carry context and
// match [ErrDecode], [ErrInvalidConnector] and [ErrBackend] respectively.
package pkg
