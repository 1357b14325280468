package backend

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// AudioResampler is the lazily-constructed, input-keyed resample
// filter of spec.md §4.F.1, built around astiav's
// SoftwareResampleContext the way the teacher's recording path builds
// w.aSwr in video.go ("Resampler context – libswresample will
// configure itself on first ConvertFrame()"). Generalized here from
// "always resample to the recorder's AAC input format" to "resample
// to whatever the configured audio encoder requires."
type AudioResampler struct {
	swr *astiav.SoftwareResampleContext

	outFormat     astiav.SampleFormat
	outLayout     astiav.ChannelLayout
	outSampleRate int

	inFormat     astiav.SampleFormat
	inLayout     astiav.ChannelLayout
	inSampleRate int
	haveIn       bool

	ptsCursor  int64
	ptsInited  bool
}

// NewAudioResampler fixes the (format, channel_layout, sample_rate)
// the filter always resamples TO; the input side is tracked lazily
// per incoming frame (spec.md §4.F.1 "filter_out_ctx is fixed at
// configure time").
func NewAudioResampler(outFormat astiav.SampleFormat, outLayout astiav.ChannelLayout, outSampleRate int) *AudioResampler {
	return &AudioResampler{outFormat: outFormat, outLayout: outLayout, outSampleRate: outSampleRate}
}

func sameInputParams(a *AudioResampler, in *astiav.Frame) bool {
	return a.haveIn &&
		a.inFormat == in.SampleFormat() &&
		a.inLayout.String() == in.ChannelLayout().String() &&
		a.inSampleRate == in.SampleRate()
}

// NeedsRebuild reports whether in's (format, channel_layout,
// sample_rate) differ from the last frame the filter was built for.
func (a *AudioResampler) NeedsRebuild(in *astiav.Frame) bool {
	return a.swr == nil || !sameInputParams(a, in)
}

// Close tears down the filter graph (spec.md §9 "reconstructing
// should flush any buffered state first").
func (a *AudioResampler) Close() {
	if a.swr != nil {
		a.swr.Free()
		a.swr = nil
	}
	a.haveIn = false
}

// Rebuild allocates a new SoftwareResampleContext keyed to in's
// current (format, channel_layout, sample_rate). Callers must Drain
// the previous graph first (spec.md §4.F.1).
func (a *AudioResampler) Rebuild(in *astiav.Frame) error {
	a.Close()
	swr := astiav.AllocSoftwareResampleContext()
	if swr == nil {
		return fmt.Errorf("backend: AllocSoftwareResampleContext failed")
	}
	a.swr = swr
	a.inFormat = in.SampleFormat()
	a.inLayout = in.ChannelLayout()
	a.inSampleRate = in.SampleRate()
	a.haveIn = true
	return nil
}

// assignPTS implements the monotonic PTS convention of spec.md §4.F.1:
// the first frame to ever emerge from the filter anchors pts_cursor at
// its own PTS (in output-sample-rate units); every emerging frame
// after that is relabeled to pts_cursor and advances it by its own
// sample count.
func (a *AudioResampler) assignPTS(out *astiav.Frame) {
	if !a.ptsInited {
		a.ptsCursor = out.Pts()
		a.ptsInited = true
	}
	out.SetPts(a.ptsCursor)
	a.ptsCursor += int64(out.NbSamples())
}

func (a *AudioResampler) allocOutFrame() *astiav.Frame {
	f := astiav.AllocFrame()
	f.SetSampleFormat(a.outFormat)
	f.SetChannelLayout(a.outLayout)
	f.SetSampleRate(a.outSampleRate)
	return f
}

// Push runs in through the filter, invoking onOut for every output
// frame the conversion buffer yields right away (swresample may need
// several calls before it emits a full frame's worth of output; this
// loop asks ConvertFrame for fixed-size frames until it signals
// there's nothing more buffered).
func (a *AudioResampler) Push(in *astiav.Frame, onOut func(*astiav.Frame) error) error {
	out := a.allocOutFrame()
	if err := a.swr.ConvertFrame(in, out); err != nil {
		out.Free()
		return fmt.Errorf("backend: swr.ConvertFrame: %w", err)
	}
	// The source frame is only fed once; any further buffered output
	// past the first converted frame is drained with a nil source,
	// same as Drain, until the filter has nothing more queued.
	for out.NbSamples() > 0 {
		a.assignPTS(out)
		cbErr := onOut(out)
		out.Free()
		if cbErr != nil {
			return cbErr
		}
		out = a.allocOutFrame()
		if err := a.swr.ConvertFrame(nil, out); err != nil {
			out.Free()
			return fmt.Errorf("backend: swr.ConvertFrame: %w", err)
		}
	}
	out.Free()
	return nil
}

// Drain flushes any samples buffered inside the filter (swr_convert_frame
// with a nil source flushes in libswresample), invoking onOut for each
// residual output frame.
func (a *AudioResampler) Drain(onOut func(*astiav.Frame) error) error {
	if a.swr == nil {
		return nil
	}
	for {
		out := a.allocOutFrame()
		err := a.swr.ConvertFrame(nil, out)
		if err != nil {
			out.Free()
			return fmt.Errorf("backend: swr.ConvertFrame drain: %w", err)
		}
		if out.NbSamples() == 0 {
			out.Free()
			return nil
		}
		a.assignPTS(out)
		cbErr := onOut(out)
		out.Free()
		if cbErr != nil {
			return cbErr
		}
	}
}
