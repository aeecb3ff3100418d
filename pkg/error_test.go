package pkg

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	// Verify all sentinel errors are distinct
	errs := []error{
		ErrNotSupported,
		ErrInvalidConnector,
		ErrDecode,
		ErrBackend,
		ErrUnknownBackend,
		ErrNoDevice,
		ErrSessionClosed,
		ErrTruncated,
		ErrReservedBits,
		ErrUnknownVariant,
		ErrUnsupportedRevision,
		ErrInvalidValue,
		ErrAlreadyReleased,
		ErrLeakedBuffers,
	}

	for i, err1 := range errs {
		if err1 == nil {
			t.Errorf("error %d is nil", i)
			continue
		}
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("error %d and %d are equal", i, j)
			}
		}
	}
}

func TestDecodeError(t *testing.T) {
	err := NewDecodeError("fixed supply PDO", "reserved", 0x00400000, ErrReservedBits)

	if !errors.Is(err, ErrDecode) {
		t.Error("DecodeError does not match ErrDecode")
	}
	if !errors.Is(err, ErrReservedBits) {
		t.Error("DecodeError does not match its cause")
	}
	if errors.Is(err, ErrBackend) {
		t.Error("DecodeError matches ErrBackend")
	}
	if err.Connector != NoConnector {
		t.Errorf("Connector = %d, want %d", err.Connector, NoConnector)
	}

	at := err.At(1, "pdos")
	if at == err {
		t.Fatal("At() returned the receiver")
	}
	if err.Query != "" {
		t.Error("At() modified the receiver")
	}
	msg := at.Error()
	for _, want := range []string{"pdos", "connector 1", "fixed supply PDO.reserved", "0x400000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	var de *DecodeError
	if !errors.As(at, &de) || de.Connector != 1 {
		t.Errorf("errors.As() = %v, want connector 1", de)
	}
}

func TestConnectorError(t *testing.T) {
	err := &ConnectorError{Connector: 5, Count: 2}
	if !errors.Is(err, ErrInvalidConnector) {
		t.Error("ConnectorError does not match ErrInvalidConnector")
	}
	if got, want := err.Error(), "connector 5 out of range [0, 2)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestBackendError(t *testing.T) {
	err := &BackendError{Backend: "sysfs", Op: "read port0/power_role", Err: fs.ErrPermission}
	if !errors.Is(err, ErrBackend) {
		t.Error("BackendError does not match ErrBackend")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("BackendError does not match its cause")
	}
	if !strings.HasPrefix(err.Error(), "sysfs backend: read port0/power_role") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsSoft(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not supported", ErrNotSupported, true},
		{"wrapped not supported", errors.Join(errors.New("cable"), ErrNotSupported), true},
		{"invalid connector", &ConnectorError{Connector: 3, Count: 1}, false},
		{"decode", NewDecodeError("x", "", 0, ErrTruncated), false},
		{"backend", &BackendError{Backend: "b", Err: fs.ErrNotExist}, false},
		{"no device", &BackendError{Backend: "b", Op: "scan", Err: ErrNoDevice}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSoft(tt.err); got != tt.want {
				t.Errorf("IsSoft() = %v, want %v", got, tt.want)
			}
		})
	}
}
