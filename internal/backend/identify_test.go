package backend

import (
	"errors"
	"testing"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/werror"
)

func TestResolveKnownIdentifiers(t *testing.T) {
	cases := []struct {
		identifier string
		kind       Kind
		name       string
		avID       astiav.CodecID
	}{
		{"flac", KindAudio, "flac", astiav.CodecIDFlac},
		{"opus", KindAudio, "libopus", astiav.CodecIDOpus},
		{"vorbis", KindAudio, "libvorbis", astiav.CodecIDVorbis},
		{"av01", KindVideo, "libaom-av1", astiav.CodecIDAv1},
		{"vp09", KindVideo, "libvpx-vp9", astiav.CodecIDVp9},
		{"vp8", KindVideo, "libvpx", astiav.CodecIDVp8},
	}
	for _, c := range cases {
		t.Run(c.identifier, func(t *testing.T) {
			d, err := Resolve(c.identifier, nil)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", c.identifier, err)
			}
			if d.Kind != c.kind {
				t.Errorf("Kind = %v, want %v", d.Kind, c.kind)
			}
			if d.BackendName != c.name {
				t.Errorf("BackendName = %q, want %q", d.BackendName, c.name)
			}
			if d.AVCodecID != c.avID {
				t.Errorf("AVCodecID = %v, want %v", d.AVCodecID, c.avID)
			}
		})
	}
}

func TestResolvePreferredSampleFormat(t *testing.T) {
	cases := []struct {
		identifier string
		want       astiav.SampleFormat
	}{
		{"opus", astiav.SampleFormatFlt},
		{"vorbis", astiav.SampleFormatFltp},
		{"flac", astiav.SampleFormatS32},
	}
	for _, c := range cases {
		d, err := Resolve(c.identifier, nil)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.identifier, err)
		}
		if d.PreferSample != c.want {
			t.Errorf("Resolve(%q).PreferSample = %v, want %v", c.identifier, d.PreferSample, c.want)
		}
	}
}

func TestResolveOverridesTakePrecedence(t *testing.T) {
	d, err := Resolve("opus", map[string]string{"opus": "libvpx"})
	if err != nil {
		t.Fatalf("Resolve with override: %v", err)
	}
	if d.BackendName != "libvpx" {
		t.Fatalf("BackendName = %q, want override %q", d.BackendName, "libvpx")
	}
	if d.AVCodecID != astiav.CodecIDVp8 {
		t.Fatalf("AVCodecID = %v, want %v", d.AVCodecID, astiav.CodecIDVp8)
	}
}

func TestResolveUnrecognizedIsTypeError(t *testing.T) {
	_, err := Resolve("bogus-codec", nil)
	if err == nil {
		t.Fatal("expected an error for an unrecognized identifier")
	}
	if !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want it to wrap werror.ErrType", err)
	}
}

func TestResolveEmptyIsTypeError(t *testing.T) {
	_, err := Resolve("", nil)
	if !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want it to wrap werror.ErrType", err)
	}
}

func TestResolveKnownUnsupportedIsNotSupported(t *testing.T) {
	for _, id := range []string{"mp4a.40.2", "mp4a.40.5", "avc1", "avc3", "hvc1", "hev1"} {
		t.Run(id, func(t *testing.T) {
			_, err := Resolve(id, nil)
			if !errors.Is(err, werror.ErrNotSupported) {
				t.Fatalf("Resolve(%q) err = %v, want it to wrap werror.ErrNotSupported", id, err)
			}
		})
	}
}

func TestResolveAV1SubParams(t *testing.T) {
	d, err := Resolve("av01.0.04M.10.0.112", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Profile != "0" {
		t.Errorf("Profile = %q, want %q", d.Profile, "0")
	}
	if d.Level != "04" {
		t.Errorf("Level = %q, want %q", d.Level, "04")
	}
	if d.Tier != "M" {
		t.Errorf("Tier = %q, want %q", d.Tier, "M")
	}
	if d.BitDepth != 10 {
		t.Errorf("BitDepth = %d, want 10", d.BitDepth)
	}
}

func TestResolveAV1SubParamsDefaultBitDepth(t *testing.T) {
	d, err := Resolve("av01.0.04M", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.BitDepth != 8 {
		t.Errorf("BitDepth = %d, want default 8", d.BitDepth)
	}
}

func TestResolveVP9SubParams(t *testing.T) {
	d, err := Resolve("vp09.00.10.12.02", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Profile != "00" {
		t.Errorf("Profile = %q, want %q", d.Profile, "00")
	}
	if d.Level != "10" {
		t.Errorf("Level = %q, want %q", d.Level, "10")
	}
	if d.BitDepth != 12 {
		t.Errorf("BitDepth = %d, want 12", d.BitDepth)
	}
	if d.ChromaSub != "02" {
		t.Errorf("ChromaSub = %q, want %q", d.ChromaSub, "02")
	}
}

func TestParseVideoSubParamsIgnoredForAudio(t *testing.T) {
	// Audio identifiers never reach parseVideoSubParams; sub-param
	// fields stay zero-valued regardless of any dots in the identifier.
	d, err := Resolve("flac", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Profile != "" || d.Level != "" || d.Tier != "" || d.ChromaSub != "" {
		t.Fatalf("audio Descriptor carries video sub-params: %+v", d)
	}
}
