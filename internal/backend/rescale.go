package backend

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// VideoRescaler is the lazily-constructed, input-keyed rescale filter
// of spec.md §4.F.2, ported directly from the teacher's bgraScaler in
// video.go — generalized from "always scale decoded frames to BGRA for
// on-screen display" to "scale encoder input frames to the configured
// output geometry/pixel format only when they differ."
type VideoRescaler struct {
	ssc *astiav.SoftwareScaleContext
	dst *astiav.Frame

	srcW, srcH int
	srcFmt     astiav.PixelFormat

	outW, outH int
	outFmt     astiav.PixelFormat
}

// NewVideoRescaler fixes the rescaler's output geometry/format (the
// encoder's configured swsOut, spec.md §4.F configure).
func NewVideoRescaler(outW, outH int, outFmt astiav.PixelFormat) *VideoRescaler {
	return &VideoRescaler{outW: outW, outH: outH, outFmt: outFmt}
}

// Matches reports whether src's (width, height, pixel format) already
// equal the rescaler's output — in which case spec.md §4.F.2 says to
// encode directly, bypassing sws entirely.
func (r *VideoRescaler) Matches(src *astiav.Frame) bool {
	return src.Width() == r.outW && src.Height() == r.outH && src.PixelFormat() == r.outFmt
}

func (r *VideoRescaler) close() {
	if r.dst != nil {
		r.dst.Free()
		r.dst = nil
	}
	if r.ssc != nil {
		r.ssc.Free()
		r.ssc = nil
	}
}

// Close tears down the rescaler (spec.md §9 lifecycle note: torn down
// or bypassed once input reverts to matching the output).
func (r *VideoRescaler) Close() { r.close() }

// ensure (re)allocates the sws context and destination frame when the
// input geometry/format differs from what they were built for,
// mirroring bgraScaler.ensure.
func (r *VideoRescaler) ensure(src *astiav.Frame) error {
	sw, sh, sp := src.Width(), src.Height(), src.PixelFormat()
	if r.ssc != nil && sw == r.srcW && sh == r.srcH && sp == r.srcFmt {
		return nil
	}
	r.close()

	flags := astiav.NewSoftwareScaleContextFlags()
	ssc, err := astiav.CreateSoftwareScaleContext(sw, sh, sp, r.outW, r.outH, r.outFmt, flags)
	if err != nil {
		return fmt.Errorf("backend: CreateSoftwareScaleContext(%dx%d %v -> %dx%d %v): %w", sw, sh, sp, r.outW, r.outH, r.outFmt, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(r.outW)
	dst.SetHeight(r.outH)
	dst.SetPixelFormat(r.outFmt)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("backend: dst.AllocBuffer: %w", err)
	}

	r.ssc, r.dst = ssc, dst
	r.srcW, r.srcH, r.srcFmt = sw, sh, sp
	return nil
}

// Scale rescales src into the rescaler's destination frame, preserving
// src's sample aspect ratio (spec.md §4.F.2 "propagate the sample
// aspect ratio"), and returns it. The returned frame is owned by the
// rescaler and is overwritten by the next Scale call.
func (r *VideoRescaler) Scale(src *astiav.Frame) (*astiav.Frame, error) {
	if err := r.ensure(src); err != nil {
		return nil, err
	}
	r.dst.SetSampleAspectRatio(src.SampleAspectRatio())
	if err := r.ssc.ScaleFrame(src, r.dst); err != nil {
		return nil, fmt.Errorf("backend: ScaleFrame: %w", err)
	}
	return r.dst, nil
}
