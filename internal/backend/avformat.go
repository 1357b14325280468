package backend

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/format"
)

// SampleFormatFromAV maps an astiav.SampleFormat to the polyfill's
// closed WebCodecs-identifier variant set (spec.md §9 open question:
// "pick one consistent closed variant set ... map the backend's
// numeric enumeration internally").
func SampleFormatFromAV(f astiav.SampleFormat) (format.SampleFormat, error) {
	switch f {
	case astiav.SampleFormatU8:
		return format.U8, nil
	case astiav.SampleFormatU8p:
		return format.U8Planar, nil
	case astiav.SampleFormatS16:
		return format.S16, nil
	case astiav.SampleFormatS16p:
		return format.S16Planar, nil
	case astiav.SampleFormatS32:
		return format.S32, nil
	case astiav.SampleFormatS32p:
		return format.S32Planar, nil
	case astiav.SampleFormatFlt:
		return format.F32, nil
	case astiav.SampleFormatFltp:
		return format.F32Planar, nil
	default:
		return "", fmt.Errorf("backend: unsupported AVSampleFormat %v", f)
	}
}

// SampleFormatToAV is the inverse of SampleFormatFromAV.
func SampleFormatToAV(f format.SampleFormat) (astiav.SampleFormat, error) {
	switch f {
	case format.U8:
		return astiav.SampleFormatU8, nil
	case format.U8Planar:
		return astiav.SampleFormatU8p, nil
	case format.S16:
		return astiav.SampleFormatS16, nil
	case format.S16Planar:
		return astiav.SampleFormatS16p, nil
	case format.S32:
		return astiav.SampleFormatS32, nil
	case format.S32Planar:
		return astiav.SampleFormatS32p, nil
	case format.F32:
		return astiav.SampleFormatFlt, nil
	case format.F32Planar:
		return astiav.SampleFormatFltp, nil
	default:
		return 0, fmt.Errorf("backend: unknown sample format %q", f)
	}
}

// PixelFormatFromAV maps an astiav.PixelFormat (including P10/P12 and
// NV12/RGBA family members) to the polyfill's closed variant set.
func PixelFormatFromAV(f astiav.PixelFormat) (format.PixelFormat, error) {
	switch f {
	case astiav.PixelFormatYuv420P:
		return format.I420, nil
	case astiav.PixelFormatYuva420P:
		return format.I420A, nil
	case astiav.PixelFormatYuv420P10Le:
		return format.I420P10, nil
	case astiav.PixelFormatYuv420P12Le:
		return format.I420P12, nil
	case astiav.PixelFormatYuv422P:
		return format.I422, nil
	case astiav.PixelFormatYuva422P:
		return format.I422A, nil
	case astiav.PixelFormatYuv422P10Le:
		return format.I422P10, nil
	case astiav.PixelFormatYuv422P12Le:
		return format.I422P12, nil
	case astiav.PixelFormatYuv444P:
		return format.I444, nil
	case astiav.PixelFormatYuva444P:
		return format.I444A, nil
	case astiav.PixelFormatYuv444P10Le:
		return format.I444P10, nil
	case astiav.PixelFormatYuv444P12Le:
		return format.I444P12, nil
	case astiav.PixelFormatNv12:
		return format.NV12, nil
	case astiav.PixelFormatRgba:
		return format.RGBA, nil
	case astiav.PixelFormatRgb0:
		return format.RGBX, nil
	case astiav.PixelFormatBgra:
		return format.BGRA, nil
	case astiav.PixelFormatBgr0:
		return format.BGRX, nil
	default:
		return "", fmt.Errorf("backend: unsupported AVPixelFormat %v", f)
	}
}

// PixelFormatToAV is the inverse of PixelFormatFromAV.
func PixelFormatToAV(f format.PixelFormat) (astiav.PixelFormat, error) {
	switch f {
	case format.I420:
		return astiav.PixelFormatYuv420P, nil
	case format.I420A:
		return astiav.PixelFormatYuva420P, nil
	case format.I420P10:
		return astiav.PixelFormatYuv420P10Le, nil
	case format.I420P12:
		return astiav.PixelFormatYuv420P12Le, nil
	case format.I422:
		return astiav.PixelFormatYuv422P, nil
	case format.I422A:
		return astiav.PixelFormatYuva422P, nil
	case format.I422P10:
		return astiav.PixelFormatYuv422P10Le, nil
	case format.I422P12:
		return astiav.PixelFormatYuv422P12Le, nil
	case format.I444:
		return astiav.PixelFormatYuv444P, nil
	case format.I444A:
		return astiav.PixelFormatYuva444P, nil
	case format.I444P10:
		return astiav.PixelFormatYuv444P10Le, nil
	case format.I444P12:
		return astiav.PixelFormatYuv444P12Le, nil
	case format.NV12:
		return astiav.PixelFormatNv12, nil
	case format.RGBA:
		return astiav.PixelFormatRgba, nil
	case format.RGBX:
		return astiav.PixelFormatRgb0, nil
	case format.BGRA:
		return astiav.PixelFormatBgra, nil
	case format.BGRX:
		return astiav.PixelFormatBgr0, nil
	default:
		return 0, fmt.Errorf("backend: unknown pixel format %q", f)
	}
}

// ChannelLayoutFor returns the astiav default channel layout for n
// channels, the same helper shape as the teacher's use of
// aCtx.ChannelLayout() in video.go (copied onto the encoder context at
// configure time).
func ChannelLayoutFor(numChannels int) astiav.ChannelLayout {
	var cl astiav.ChannelLayout
	astiav.ChannelLayoutDefault(numChannels, &cl)
	return cl
}
