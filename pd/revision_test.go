package pd

import (
	"errors"
	"testing"

	"github.com/ardnew/typecinfo/pkg"
)

func TestParseRevision(t *testing.T) {
	tests := []struct {
		in      string
		want    Revision
		wantErr bool
	}{
		{"2.0", Revision20, false},
		{"3.0", Revision30, false},
		{"3.1", Revision31, false},
		{"3.2", Revision32, false},
		{"3", Revision30, false},
		{"10.1", 0x1010, false},
		{"3.12", 0, true},
		{"three", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRevision(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRevision(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRevision(%q) = 0x%04x, want 0x%04x", tt.in, uint16(got), uint16(tt.want))
			}
		})
	}
}

func TestRevisionString(t *testing.T) {
	tests := []struct {
		rev  Revision
		want string
	}{
		{Revision20, "2.0"},
		{Revision31, "3.1"},
		{Revision32, "3.2"},
	}

	for _, tt := range tests {
		if got := tt.rev.String(); got != tt.want {
			t.Errorf("Revision(0x%04x).String() = %q, want %q", uint16(tt.rev), got, tt.want)
		}
		if got := tt.rev.Version().String(); got != tt.want+".0" {
			t.Errorf("Revision(0x%04x).Version() = %q, want %q", uint16(tt.rev), got, tt.want+".0")
		}
	}
}

func TestRevisionSupported(t *testing.T) {
	tests := []struct {
		rev  Revision
		want bool
	}{
		{0x0100, false},
		{Revision20, true},
		{Revision30, true},
		{Revision31, true},
		{Revision32, true},
		{0x0400, false},
	}

	for _, tt := range tests {
		if got := tt.rev.Supported(); got != tt.want {
			t.Errorf("Revision(%s).Supported() = %v, want %v", tt.rev, got, tt.want)
		}
	}

	err := Revision(0x0100).check("test")
	if !errors.Is(err, pkg.ErrUnsupportedRevision) || !errors.Is(err, pkg.ErrDecode) {
		t.Errorf("check() = %v, want unsupported revision decode error", err)
	}
}

func TestRevisionHeaderField(t *testing.T) {
	for field := uint8(0); field < 3; field++ {
		if got := RevisionFromHeader(field).HeaderField(); got != field {
			t.Errorf("RevisionFromHeader(%d).HeaderField() = %d", field, got)
		}
	}
	if got := RevisionFromHeader(2); got != Revision30 {
		t.Errorf("RevisionFromHeader(2) = %s, want 3.0", got)
	}
}
