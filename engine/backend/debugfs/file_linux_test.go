//go:build linux

package debugfs

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ardnew/typecinfo/engine/backend"
	"github.com/ardnew/typecinfo/pkg"
	"github.com/ardnew/typecinfo/ucsi"
)

// newDevice creates a device directory whose response file holds data.
func newDevice(t *testing.T, data []byte) (root, dir string) {
	t.Helper()
	root = t.TempDir()
	dir = filepath.Join(root, "USBC000:00")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var raw [ResponseSize]byte
	copy(raw[:], data)
	lo := binary.LittleEndian.Uint64(raw[:8])
	hi := binary.LittleEndian.Uint64(raw[8:])
	resp := fmt.Sprintf("0x%016x%016x\n", hi, lo)
	if err := os.WriteFile(filepath.Join(dir, "response"), []byte(resp), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "command"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return root, dir
}

func TestOpen(t *testing.T) {
	want := ucsi.Capability{NumConnectors: 1, OptionalFeatures: ucsi.FeaturePDODetails}
	root, dir := newDevice(t, want.Bytes())

	b, err := backend.Open(backend.KindDebugfs, backend.Options{Root: root})
	if err != nil {
		t.Fatalf("backend.Open() error = %v", err)
	}
	defer b.Close()

	cmd, err := os.ReadFile(filepath.Join(dir, "command"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(cmd)); got != "0x6" {
		t.Errorf("command = %q, want %q", got, "0x6")
	}

	data, err := b.Capability()
	if err != nil {
		t.Fatal(err)
	}
	var got ucsi.Capability
	if err := ucsi.ParseCapability(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.NumConnectors != 1 || !got.OptionalFeatures.Has(ucsi.FeaturePDODetails) {
		t.Errorf("Capability() = %+v", got)
	}

	// A device directory works as the root too.
	if _, err := Open(dir); err != nil {
		t.Errorf("Open(device) error = %v", err)
	}
}

func TestOpen_NoDevice(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, pkg.ErrBackend) || !errors.Is(err, pkg.ErrNoDevice) || pkg.IsSoft(err) {
		t.Errorf("Open(empty) error = %v, want hard %v", err, pkg.ErrNoDevice)
	}
	_, err = Open(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Open(missing) error = %v", err)
	}
}

func TestFileTransport_Execute(t *testing.T) {
	_, dir := newDevice(t, []byte{1, 2, 3, 4})
	tr := NewFileTransport(dir)

	data, err := tr.Execute(ucsi.GetConnectorStatus(0))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(data) != ResponseSize || data[0] != 1 || data[3] != 4 {
		t.Errorf("Execute() = %x", data)
	}
	cmd, _ := os.ReadFile(filepath.Join(dir, "command"))
	if got, want := string(cmd), "0x"+fmt.Sprintf("%x", uint64(ucsi.GetConnectorStatus(0))); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"eopnotsupp", &fs.PathError{Op: "write", Path: "command", Err: unix.EOPNOTSUPP}, pkg.ErrNotSupported},
		{"eio", &fs.PathError{Op: "write", Path: "command", Err: unix.EIO}, pkg.ErrBackend},
		{"permission", &fs.PathError{Op: "open", Path: "command", Err: unix.EACCES}, pkg.ErrBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transportError(tt.err, "write command"); !errors.Is(got, tt.want) {
				t.Errorf("transportError() = %v, want %v", got, tt.want)
			}
		})
	}
}
