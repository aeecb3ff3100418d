package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ardnew/typecinfo/pd"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// Kind names a backend implementation.
type Kind string

// Backend kinds.
const (
	KindSysfs    Kind = "sysfs"
	KindDebugfs  Kind = "ucsi_debugfs"
	KindSnapshot Kind = "snapshot"
)

// Backend provides raw capability records for the connectors of one host.
//
// Connector arguments are zero-based indexes already validated by the
// caller against the NumConnectors field of Capability.
type Backend interface {
	// Name returns the backend name used in errors and logs.
	Name() string

	// PPM-wide

	// Capability returns GET_CAPABILITY data.
	Capability() ([]byte, error)

	// Per-connector

	// ConnectorCapability returns GET_CONNECTOR_CAPABILITY data.
	ConnectorCapability(conn int) ([]byte, error)

	// ConnectorStatus returns GET_CONNECTOR_STATUS data.
	ConnectorStatus(conn int) ([]byte, error)

	// PDOs returns the PDO words of the local port (partner false) or the
	// port partner in message order. rev is the revision the caller will
	// decode with; backends that synthesize words encode for it. An
	// addressable but empty list returns no words and no error.
	PDOs(conn int, partner bool, role pd.Role, src ucsi.SourceCapabilitiesType, rev pd.Revision) ([]uint32, error)

	// CableProperty returns GET_CABLE_PROPERTY data.
	CableProperty(conn int) ([]byte, error)

	// AlternateModes returns concatenated GET_ALTERNATE_MODES entries for
	// the recipient.
	AlternateModes(conn int, r ucsi.Recipient) ([]byte, error)

	// PDMessage returns the data objects of the response message t from
	// recipient r.
	PDMessage(conn int, r ucsi.Recipient, t pd.MessageType) ([]byte, error)

	// Lifecycle

	// Close releases all resources. The backend must not be used after.
	Close() error
}

// Options configures a backend at open time.
type Options struct {
	// Root is the sysfs class directory, the UCSI debugfs directory, or
	// the snapshot file, depending on the kind. Empty selects the
	// backend's default.
	Root string
}

// Factory opens a backend.
type Factory func(opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Kind]Factory)
)

// Register makes a backend available under kind. It panics if kind is
// registered twice or f is nil.
func Register(kind Kind, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("backend: Register called twice for " + string(kind))
	}
	registry[kind] = f
}

// Kinds returns the registered kinds in sorted order.
func Kinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Open opens the backend registered under kind. An unregistered kind
// fails with a *pkg.BackendError wrapping pkg.ErrUnknownBackend.
func Open(kind Kind, opts Options) (Backend, error) {
	registryMu.RLock()
	f, ok := registry[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, &pkg.BackendError{Backend: string(kind), Op: "open", Err: pkg.ErrUnknownBackend}
	}
	b, err := f(opts)
	if err != nil {
		return nil, err
	}
	pkg.LogDebug(pkg.ComponentBackend, "backend opened", "kind", string(kind), "root", opts.Root)
	return b, nil
}

// Errorf returns a *pkg.BackendError for backend name.
func Errorf(name string, err error, format string, args ...any) error {
	return &pkg.BackendError{Backend: name, Op: fmt.Sprintf(format, args...), Err: err}
}
