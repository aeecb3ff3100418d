package ucsi

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/typecinfo/pkg"
)

func TestAlternateModes_RoundTrip(t *testing.T) {
	want := []AlternateMode{
		{SVID: SVIDDisplayPort, MID: 0x001C0045},
		{SVID: SVIDThunderbolt, MID: 0x00000001},
	}
	got, err := ParseAlternateModes(MarshalAlternateModes(want))
	if err != nil {
		t.Fatalf("ParseAlternateModes() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseAlternateModes() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAlternateModes_Terminator(t *testing.T) {
	data := MarshalAlternateModes([]AlternateMode{
		{SVID: SVIDDisplayPort, MID: 0x0405},
		{},
		{SVID: SVIDVirtualLink, MID: 1},
	})
	got, err := ParseAlternateModes(data)
	if err != nil {
		t.Fatalf("ParseAlternateModes() error = %v", err)
	}
	if len(got) != 1 || got[0].SVID != SVIDDisplayPort {
		t.Errorf("ParseAlternateModes() = %v, want one DisplayPort mode", got)
	}
}

func TestParseAlternateModes_Empty(t *testing.T) {
	got, err := ParseAlternateModes(nil)
	if err != nil {
		t.Fatalf("ParseAlternateModes(nil) error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ParseAlternateModes(nil) = %#v, want empty non-nil", got)
	}
}

func TestParseAlternateModes_Truncated(t *testing.T) {
	_, err := ParseAlternateModes(make([]byte, 7))
	if !errors.Is(err, pkg.ErrTruncated) {
		t.Errorf("ParseAlternateModes(7 bytes) error = %v, want %v", err, pkg.ErrTruncated)
	}
}
