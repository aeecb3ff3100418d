package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/pkg/metrics"
	"github.com/ardnew/typecinfo/ucsi"
)

// Query names used in metrics, logs and decode errors.
const (
	QueryCapability          = "capability"
	QueryConnectorCapability = "connector_capability"
	QueryConnectorStatus     = "connector_status"
	QueryPDOs                = "pdos"
	QueryCableProperty       = "cable_property"
	QueryAlternateModes      = "alternate_modes"
	QueryPDMessage           = "pd_message"
)

// Session is a capability query session over one backend. A Session is
// not safe for concurrent use, except that lists it returns may be
// released from any goroutine.
type Session struct {
	id         string
	backend    backend.Backend
	capability ucsi.Capability
	recorder   *metrics.Recorder
	logFields  []any
	ledger     *ledger
	closed     bool
}

// Option configures a Session.
type Option func(*Session)

// WithRecorder records query metrics in r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithSessionID replaces the random session ID.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithLogFields adds key-value pairs to every log entry of the session.
func WithLogFields(kv ...any) Option {
	return func(s *Session) {
		s.logFields = append(s.logFields, kv...)
	}
}

// Open opens the backend registered under kind and starts a session on
// it.
func Open(kind backend.Kind, opts backend.Options, options ...Option) (*Session, error) {
	b, err := backend.Open(kind, opts)
	if err != nil {
		return nil, err
	}
	return New(b, options...)
}

// New starts a session on b, reading and caching its capability summary.
// If that fails b is closed and the error returned.
func New(b backend.Backend, options ...Option) (*Session, error) {
	s := &Session{id: uuid.NewString(), backend: b}
	for _, o := range options {
		o(s)
	}
	s.ledger = newLedger(s.recorder)

	raw, err := timed(s, QueryCapability, b.Capability)
	if err == nil {
		err = ucsi.ParseCapability(raw, &s.capability)
	}
	if err = s.finish(QueryCapability, pkg.NoConnector, err); err != nil {
		if cerr := b.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentEngine, "session opened", s.fields(
		"backend", b.Name(),
		"connectors", s.capability.NumConnectors,
		"pd_version", s.capability.PDVersion.String(),
	)...)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// BackendName returns the name of the session's backend.
func (s *Session) BackendName() string { return s.backend.Name() }

// Capability returns the cached capability summary.
func (s *Session) Capability() ucsi.Capability { return s.capability }

// NumConnectors returns the number of connectors reported by the
// capability summary.
func (s *Session) NumConnectors() int { return int(s.capability.NumConnectors) }

// Outstanding returns the number of lists not yet released.
func (s *Session) Outstanding() int { return s.ledger.outstanding() }

// Close closes the backend. Lists still outstanding are reported as
// pkg.ErrLeakedBuffers, joined with any backend error. Closing twice
// returns pkg.ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return pkg.ErrSessionClosed
	}
	s.closed = true

	var errs []error
	if n := s.ledger.outstanding(); n > 0 {
		pkg.LogWarn(pkg.ComponentEngine, "lists not released", s.fields("count", n, "bytes", s.ledger.bytes())...)
		errs = append(errs, fmt.Errorf("%w: %d outstanding", pkg.ErrLeakedBuffers, n))
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, err)
	}
	pkg.LogDebug(pkg.ComponentEngine, "session closed", s.fields()...)
	return errors.Join(errs...)
}

func (s *Session) fields(kv ...any) []any {
	out := make([]any, 0, 2+len(s.logFields)+len(kv))
	out = append(out, "session", s.id)
	out = append(out, s.logFields...)
	return append(out, kv...)
}

// check validates conn before any backend call.
func (s *Session) check(conn int) error {
	if s.closed {
		return pkg.ErrSessionClosed
	}
	if n := int(s.capability.NumConnectors); conn < 0 || conn >= n {
		return &pkg.ConnectorError{Connector: conn, Count: n}
	}
	return nil
}

// timed runs one backend read and records its duration.
func timed[T any](s *Session, query string, read func() (T, error)) (T, error) {
	start := time.Now()
	v, err := read()
	s.recorder.RecordBackend(s.backend.Name(), query, time.Since(start))
	return v, err
}

// finish annotates decode errors, then counts and logs the outcome.
func (s *Session) finish(query string, conn int, err error) error {
	if de, ok := err.(*pkg.DecodeError); ok {
		err = de.At(conn, query)
	}
	s.recorder.RecordQuery(query, err)
	outcome := metrics.Outcome(err)
	if err != nil {
		pkg.LogDebug(pkg.ComponentEngine, "query failed", s.fields(
			"query", query, "connector", conn, "outcome", outcome, "error", err)...)
	} else {
		pkg.LogDebug(pkg.ComponentEngine, "query", s.fields(
			"query", query, "connector", conn, "outcome", outcome)...)
	}
	return err
}
