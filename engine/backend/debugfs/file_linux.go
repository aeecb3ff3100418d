//go:build linux

package debugfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// DefaultRoot is the UCSI debugfs directory.
const DefaultRoot = "/sys/kernel/debug/usb/ucsi"

func init() {
	backend.Register(backend.KindDebugfs, func(opts backend.Options) (backend.Backend, error) {
		return Open(opts.Root)
	})
}

// Open opens the first UCSI device under root (DefaultRoot if empty). root
// may also name a device directory itself.
func Open(root string) (*Backend, error) {
	if root == "" {
		root = DefaultRoot
	}
	dir, err := findDevice(root)
	if err != nil {
		return nil, err
	}
	pkg.LogDebug(pkg.ComponentDebugfs, "device found", "dir", dir)

	return New(NewFileTransport(dir))
}

func hasCommand(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "command"))
	return err == nil && !info.IsDir()
}

func findDevice(root string) (string, error) {
	if hasCommand(root) {
		return root, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", backend.Errorf(name, err, "scan %s", root)
	}
	var devs []string
	for _, e := range entries {
		if dir := filepath.Join(root, e.Name()); e.IsDir() && hasCommand(dir) {
			devs = append(devs, dir)
		}
	}
	if len(devs) == 0 {
		return "", backend.Errorf(name, pkg.ErrNoDevice, "scan %s: no UCSI devices", root)
	}
	sort.Strings(devs)
	return devs[0], nil
}

// FileTransport executes commands through the command and response files
// of one debugfs device directory. The pair is a single shared slot, so
// Execute calls are serialized.
type FileTransport struct {
	mu  sync.Mutex
	dir string
}

// NewFileTransport returns a transport for the device directory dir.
func NewFileTransport(dir string) *FileTransport {
	return &FileTransport{dir: dir}
}

// Execute implements Transport.
func (f *FileTransport) Execute(cmd ucsi.Command) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.dir, "command")
	if err := os.WriteFile(path, []byte(fmt.Sprintf("0x%x", uint64(cmd))), 0o200); err != nil {
		return nil, transportError(err, "write %s %v", path, cmd)
	}
	path = filepath.Join(f.dir, "response")
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, transportError(err, "read %s", path)
	}
	data, err := ParseResponse(string(text))
	if err != nil {
		return nil, backend.Errorf(name, err, "read %s", path)
	}
	return data, nil
}

// Close implements Transport.
func (f *FileTransport) Close() error { return nil }

// transportError maps an unsupported-command errno to pkg.ErrNotSupported
// and anything else to a *pkg.BackendError.
func transportError(err error, format string, args ...any) error {
	var errno unix.Errno
	if errors.As(err, &errno) && (errno == unix.EOPNOTSUPP || errno == unix.ENOTSUP) {
		return pkg.ErrNotSupported
	}
	if errors.Is(err, fs.ErrPermission) {
		pkg.LogWarn(pkg.ComponentDebugfs, "debugfs requires root", "error", err)
	}
	return backend.Errorf(name, err, format, args...)
}
