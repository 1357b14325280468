// Package format implements the pure, stateless format descriptors of
// spec.md §4.A: the W3C-identifier sample/pixel format variants and
// the total query functions over them (bytes/sample, plane count,
// subsampling, interleaved-vs-planar). Per spec.md §9's open question
// we settle on ONE closed, string-typed variant set matching the W3C
// identifiers ("u8", "f32-planar", "I420", ...) rather than the
// two-discriminator mix the original source carries; go-astiav's
// numeric SampleFormat/PixelFormat enums are mapped to/from this set
// only at the backend boundary (internal/backend).
package format

import "fmt"

// SampleFormat is a WebCodecs AudioSampleFormat identifier.
type SampleFormat string

const (
	U8        SampleFormat = "u8"
	S16       SampleFormat = "s16"
	S32       SampleFormat = "s32"
	F32       SampleFormat = "f32"
	U8Planar  SampleFormat = "u8-planar"
	S16Planar SampleFormat = "s16-planar"
	S32Planar SampleFormat = "s32-planar"
	F32Planar SampleFormat = "f32-planar"
)

// IsPlanar reports whether the samples for each channel are stored in
// their own contiguous region (vs. interleaved frame-major).
func (f SampleFormat) IsPlanar() bool {
	switch f {
	case U8Planar, S16Planar, S32Planar, F32Planar:
		return true
	default:
		return false
	}
}

// BytesPerSample returns the per-sample byte width: 1, 2, 4, 4 for
// u8/s16/s32/f32 respectively (spec.md §3), regardless of
// interleaved/planar layout.
func (f SampleFormat) BytesPerSample() (int, error) {
	switch f {
	case U8, U8Planar:
		return 1, nil
	case S16, S16Planar:
		return 2, nil
	case S32, S32Planar:
		return 4, nil
	case F32, F32Planar:
		return 4, nil
	default:
		return 0, fmt.Errorf("format: unknown sample format %q", f)
	}
}

// Valid reports whether f is one of the eight known variants.
func (f SampleFormat) Valid() bool {
	_, err := f.BytesPerSample()
	return err == nil
}

// PixelFormat is a WebCodecs VideoPixelFormat identifier.
type PixelFormat string

const (
	I420    PixelFormat = "I420"
	I420A   PixelFormat = "I420A"
	I420P10 PixelFormat = "I420P10"
	I420P12 PixelFormat = "I420P12"
	I422    PixelFormat = "I422"
	I422A   PixelFormat = "I422A"
	I422P10 PixelFormat = "I422P10"
	I422P12 PixelFormat = "I422P12"
	I444    PixelFormat = "I444"
	I444A   PixelFormat = "I444A"
	I444P10 PixelFormat = "I444P10"
	I444P12 PixelFormat = "I444P12"
	NV12    PixelFormat = "NV12"
	RGBA    PixelFormat = "RGBA"
	RGBX    PixelFormat = "RGBX"
	BGRA    PixelFormat = "BGRA"
	BGRX    PixelFormat = "BGRX"
)

type family int

const (
	famI420 family = iota
	famI422
	famI444
	famNV12
	famPacked
)

type descriptor struct {
	fam      family
	hasAlpha bool
	bitDepth int // 8, 10, 12
}

var descriptors = map[PixelFormat]descriptor{
	I420:    {famI420, false, 8},
	I420A:   {famI420, true, 8},
	I420P10: {famI420, false, 10},
	I420P12: {famI420, false, 12},
	I422:    {famI422, false, 8},
	I422A:   {famI422, true, 8},
	I422P10: {famI422, false, 10},
	I422P12: {famI422, false, 12},
	I444:    {famI444, false, 8},
	I444A:   {famI444, true, 8},
	I444P10: {famI444, false, 10},
	I444P12: {famI444, false, 12},
	NV12:    {famNV12, false, 8},
	RGBA:    {famPacked, true, 8},
	RGBX:    {famPacked, false, 8},
	BGRA:    {famPacked, true, 8},
	BGRX:    {famPacked, false, 8},
}

func (p PixelFormat) desc() (descriptor, error) {
	d, ok := descriptors[p]
	if !ok {
		return descriptor{}, fmt.Errorf("format: unknown pixel format %q", p)
	}
	return d, nil
}

// Valid reports whether p is one of the known variants.
func (p PixelFormat) Valid() bool {
	_, err := p.desc()
	return err == nil
}

// PlaneCount returns 1 for packed RGB, 2 for NV12, 3 for YUV without
// alpha, 4 for YUV with alpha (spec.md §3).
func (p PixelFormat) PlaneCount() (int, error) {
	d, err := p.desc()
	if err != nil {
		return 0, err
	}
	switch d.fam {
	case famPacked:
		return 1, nil
	case famNV12:
		return 2, nil
	default:
		if d.hasAlpha {
			return 4, nil
		}
		return 3, nil
	}
}

// BytesPerSample returns the per-sample byte width of plane i: 1 for
// 8-bit YUV planes, 2 for 10/12-bit YUV planes and NV12's chroma
// plane, 4 for packed RGB (spec.md §3).
func (p PixelFormat) BytesPerSample(plane int) (int, error) {
	d, err := p.desc()
	if err != nil {
		return 0, err
	}
	n, err := p.PlaneCount()
	if err != nil {
		return 0, err
	}
	if plane < 0 || plane >= n {
		return 0, fmt.Errorf("format: plane %d out of range for %q", plane, p)
	}
	switch d.fam {
	case famPacked:
		return 4, nil
	case famNV12:
		if plane == 1 {
			return 2, nil
		}
		return 1, nil
	default: // I420/I422/I444 families
		if d.bitDepth > 8 {
			return 2, nil
		}
		return 1, nil
	}
}

// SubsamplingFactors returns the (horizontal, vertical) subsampling
// factor of plane i: plane 0 (and the alpha plane, last index) are
// always 1x1; chroma planes reflect the 4:2:0/4:2:2/4:4:4 family
// (spec.md §3).
func (p PixelFormat) SubsamplingFactors(plane int) (int, int, error) {
	d, err := p.desc()
	if err != nil {
		return 0, 0, err
	}
	n, err := p.PlaneCount()
	if err != nil {
		return 0, 0, err
	}
	if plane < 0 || plane >= n {
		return 0, 0, fmt.Errorf("format: plane %d out of range for %q", plane, p)
	}

	switch d.fam {
	case famPacked:
		return 1, 1, nil
	case famNV12:
		if plane == 0 {
			return 1, 1, nil
		}
		return 2, 2, nil // interleaved UV plane, 4:2:0
	default:
		// plane 0 (luma) and plane 3 (alpha) are always 1x1.
		if plane == 0 || plane == 3 {
			return 1, 1, nil
		}
		switch d.fam {
		case famI420:
			return 2, 2, nil
		case famI422:
			return 2, 1, nil
		case famI444:
			return 1, 1, nil
		}
	}
	return 0, 0, fmt.Errorf("format: unreachable for %q plane %d", p, plane)
}

// Interleaved reports whether the given plane stores multiple channels/samples
// interleaved within a row (true for NV12's chroma plane and all
// packed RGB formats).
func (p PixelFormat) Interleaved(plane int) (bool, error) {
	d, err := p.desc()
	if err != nil {
		return false, err
	}
	switch d.fam {
	case famPacked:
		return true, nil
	case famNV12:
		return plane == 1, nil
	default:
		return false, nil
	}
}
