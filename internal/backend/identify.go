// Package backend is the codec backend adapter of spec.md §4.C: it
// maps a codec identifier + configuration to a backend codec name and
// context, and wraps the astiav (FFmpeg) primitives the four codec
// state machines drive (init/free/send/receive, resample filter,
// rescaler). Grounded throughout on the teacher's astiav usage in
// video.go's openAndDecode/startRecorder (AllocCodecContext,
// FindDecoder/FindEncoder, SendPacket/ReceivePacket,
// SendFrame/ReceiveFrame, SoftwareResampleContext.ConvertFrame,
// SoftwareScaleContext.ScaleFrame).
package backend

import (
	"fmt"
	"strings"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/werror"
)

// Kind distinguishes the audio/video domain of a codec identifier.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

// Descriptor is the result of resolving a WebCodecs codec identifier:
// the backend codec name astiav.FindDecoder/FindEncoder expects plus
// any sub-parameters parsed out of the identifier string (spec.md §6
// "Codec identifier -> backend name").
type Descriptor struct {
	Kind        Kind
	BackendName string
	AVCodecID   astiav.CodecID

	// Sub-parameters, video only (AV1/VP9 profile/level/tier/bit-depth/
	// subsampling per spec.md §6).
	Profile      string
	Level        string
	Tier         string
	BitDepth     int
	ChromaSub    string
	PreferSample astiav.SampleFormat // audio only, preferred sample format
}

// defaultBackendNames is the table in spec.md §6, overridable via
// internal/wcconfig's Backends map.
var defaultBackendNames = map[string]string{
	"flac":   "flac",
	"opus":   "libopus",
	"vorbis": "libvorbis",
	"av01":   "libaom-av1",
	"vp09":   "libvpx-vp9",
	"vp8":    "libvpx",
}

var knownUnsupported = map[string]bool{
	// Recognized-but-unsupported per spec.md §6 (MPEG family etc.):
	// these resolve to NotSupported rather than TypeError.
	"mp4a.40.2": true, // AAC-LC, outside this polyfill's backend set
	"mp4a.40.5": true,
	"avc1":      true,
	"avc3":      true,
	"hvc1":      true,
	"hev1":      true,
}

func codecIDFor(backendName string) (astiav.CodecID, Kind, error) {
	switch backendName {
	case "flac":
		return astiav.CodecIDFlac, KindAudio, nil
	case "libopus":
		return astiav.CodecIDOpus, KindAudio, nil
	case "libvorbis":
		return astiav.CodecIDVorbis, KindAudio, nil
	case "libaom-av1":
		return astiav.CodecIDAv1, KindVideo, nil
	case "libvpx-vp9":
		return astiav.CodecIDVp9, KindVideo, nil
	case "libvpx":
		return astiav.CodecIDVp8, KindVideo, nil
	default:
		return 0, 0, fmt.Errorf("backend: no AVCodecID for backend name %q", backendName)
	}
}

// Resolve maps identifier (e.g. "vp8", "av01.0.04M.08", "opus") plus an
// overrides table (from wcconfig.Config.Backends, may be nil) to a
// Descriptor. Unrecognized identifiers fail with TypeError;
// recognized-but-unsupported ones fail with NotSupported (spec.md §6).
func Resolve(identifier string, overrides map[string]string) (Descriptor, error) {
	if identifier == "" {
		return Descriptor{}, werror.TypeErrorf("backend: empty codec identifier")
	}

	parts := strings.Split(identifier, ".")
	base := parts[0]

	if knownUnsupported[identifier] || knownUnsupported[base] {
		return Descriptor{}, werror.NotSupportedf("backend: codec %q recognized but not supported by this polyfill", identifier)
	}

	name, ok := defaultBackendNames[base]
	if overrides != nil {
		if n, ok2 := overrides[base]; ok2 {
			name, ok = n, true
		}
	}
	if !ok {
		return Descriptor{}, werror.TypeErrorf("backend: unrecognized codec identifier %q", identifier)
	}

	avID, kind, err := codecIDFor(name)
	if err != nil {
		return Descriptor{}, werror.NotSupportedf("backend: %v", err)
	}

	d := Descriptor{Kind: kind, BackendName: name, AVCodecID: avID}

	switch kind {
	case KindAudio:
		switch name {
		case "libopus":
			d.PreferSample = astiav.SampleFormatFlt
		case "libvorbis":
			d.PreferSample = astiav.SampleFormatFltp
		case "flac":
			d.PreferSample = astiav.SampleFormatS32
		}
	case KindVideo:
		parseVideoSubParams(&d, base, parts[1:])
	}

	return d, nil
}

// parseVideoSubParams extracts the dot-separated sub-parameters of an
// AV1/VP9 codec string (spec.md §6): AV1 profile/level/tier/bit-depth/
// mono/subsampling; VP9 profile/level/bit-depth/chroma. Parsing is
// best-effort: it only needs to select backend pixel-format defaults,
// never full constraint validation (spec.md §1 Non-goals).
func parseVideoSubParams(d *Descriptor, base string, rest []string) {
	d.BitDepth = 8
	switch base {
	case "av01":
		// av01.P.LLT.DD(.M.CCC...)  P=profile L=level T=tier D=bit depth
		if len(rest) >= 1 {
			d.Profile = rest[0]
		}
		if len(rest) >= 2 && len(rest[1]) >= 3 {
			d.Level = rest[1][:2]
			d.Tier = rest[1][2:3]
		}
		if len(rest) >= 3 {
			switch rest[2] {
			case "10":
				d.BitDepth = 10
			case "12":
				d.BitDepth = 12
			default:
				d.BitDepth = 8
			}
		}
		if len(rest) >= 5 {
			d.ChromaSub = rest[4]
		}
	case "vp09":
		// vp09.PP.LL.DD(.CSP...)
		if len(rest) >= 1 {
			d.Profile = rest[0]
		}
		if len(rest) >= 2 {
			d.Level = rest[1]
		}
		if len(rest) >= 3 {
			switch rest[2] {
			case "10":
				d.BitDepth = 10
			case "12":
				d.BitDepth = 12
			default:
				d.BitDepth = 8
			}
		}
		if len(rest) >= 4 {
			d.ChromaSub = rest[3]
		}
	}
}
