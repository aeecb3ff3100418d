package pkg

import (
	"errors"
	"fmt"
)

// Capability retrieval errors.
var (
	// ErrNotSupported indicates the feature does not exist for this backend,
	// connector, or recipient. It is the only soft outcome of a query.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidConnector indicates a connector index outside the range
	// reported by the capability summary.
	ErrInvalidConnector = errors.New("invalid connector")

	// ErrDecode indicates raw data that violates the expected binary layout.
	ErrDecode = errors.New("decode error")

	// ErrBackend indicates the underlying data source failed.
	ErrBackend = errors.New("backend error")

	// ErrUnknownBackend indicates a backend kind that has not been registered.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrNoDevice indicates a backend found nothing to query at its root.
	// Unlike ErrNotSupported it is never a soft outcome.
	ErrNoDevice = errors.New("no device")

	// ErrSessionClosed indicates use of a session after Close.
	ErrSessionClosed = errors.New("session closed")
)

// Decode failure causes. A DecodeError wraps exactly one of these.
var (
	// ErrTruncated indicates a record shorter than its fixed layout.
	ErrTruncated = errors.New("record truncated")

	// ErrReservedBits indicates a nonzero bit in a reserved field.
	ErrReservedBits = errors.New("reserved bits set")

	// ErrUnknownVariant indicates a variant tag with no defined layout.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrUnsupportedRevision indicates a PD revision with no decode tables.
	ErrUnsupportedRevision = errors.New("unsupported PD revision")

	// ErrInvalidValue indicates a field holding an illegal value.
	ErrInvalidValue = errors.New("invalid field value")
)

// Result buffer errors.
var (
	// ErrAlreadyReleased indicates a second release of the same list.
	ErrAlreadyReleased = errors.New("buffer already released")

	// ErrLeakedBuffers indicates lists still outstanding at session teardown.
	ErrLeakedBuffers = errors.New("buffers not released")
)

// NoConnector marks a DecodeError raised outside any connector query.
const NoConnector = -1

// DecodeError describes a raw record that could not be decoded.
type DecodeError struct {
	Record    string // record being decoded, e.g. "fixed supply PDO"
	Field     string // offending field, empty for whole-record failures
	Raw       uint64 // raw value of the field or word
	Err       error  // one of the decode failure causes
	Connector int    // connector index, or NoConnector
	Query     string // engine query that triggered the decode
}

// NewDecodeError returns a DecodeError with no connector context.
func NewDecodeError(record, field string, raw uint64, cause error) *DecodeError {
	return &DecodeError{
		Record:    record,
		Field:     field,
		Raw:       raw,
		Err:       cause,
		Connector: NoConnector,
	}
}

// At returns a copy of e annotated with the connector and query that
// produced it.
func (e *DecodeError) At(connector int, query string) *DecodeError {
	c := *e
	c.Connector = connector
	c.Query = query
	return &c
}

func (e *DecodeError) Error() string {
	msg := e.Record
	if e.Field != "" {
		msg += "." + e.Field
	}
	msg = fmt.Sprintf("%s: %v (raw 0x%x)", msg, e.Err, e.Raw)
	if e.Query != "" {
		if e.Connector != NoConnector {
			return fmt.Sprintf("decode %s on connector %d: %s", e.Query, e.Connector, msg)
		}
		return fmt.Sprintf("decode %s: %s", e.Query, msg)
	}
	return "decode " + msg
}

// Unwrap exposes both ErrDecode and the specific cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}

// ConnectorError reports a connector index outside [0, Count).
type ConnectorError struct {
	Connector int
	Count     int
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector %d out of range [0, %d)", e.Connector, e.Count)
}

// Unwrap returns ErrInvalidConnector.
func (e *ConnectorError) Unwrap() error {
	return ErrInvalidConnector
}

// BackendError wraps a failure of the underlying data source.
type BackendError struct {
	Backend string // backend name
	Op      string // operation, e.g. "read port0/power_role"
	Err     error  // cause passed through from the OS
}

func (e *BackendError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap exposes both ErrBackend and the underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackend, e.Err}
}

// IsSoft reports whether err is an expected outcome that enumeration may
// continue past.
func IsSoft(err error) bool {
	return errors.Is(err, ErrNotSupported)
}
