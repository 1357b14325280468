package webcodecs

import (
	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/internal/backend"
	"github.com/e1z0/gowebcodecs/werror"
)

// VideoEncoderConfig mirrors the WebCodecs VideoEncoderConfig
// dictionary (spec.md §6).
type VideoEncoderConfig struct {
	Codec                       string
	Width, Height               int
	DisplayWidth, DisplayHeight int
	Bitrate                     int64
	FramerateNum, FramerateDen  int
	Realtime                    bool
	BackendOverrides            map[string]string
}

func (c VideoEncoderConfig) toBackend() backend.EncoderConfig {
	return backend.EncoderConfig{
		Identifier:    c.Codec,
		Overrides:     backendOverrides(c.BackendOverrides),
		Width:         c.Width,
		Height:        c.Height,
		DisplayWidth:  c.DisplayWidth,
		DisplayHeight: c.DisplayHeight,
		Bitrate:       c.Bitrate,
		FramerateNum:  c.FramerateNum,
		FramerateDen:  c.FramerateDen,
		Realtime:      c.Realtime,
	}
}

// VideoEncoderInit mirrors the constructor callbacks (spec.md §3).
type VideoEncoderInit struct {
	Output func(*EncodedVideoChunk, []byte)
	Error  func(error)
}

// VideoEncoder is the polyfilled VideoEncoder (spec.md §4.F.2): input
// VideoFrames are rescaled to the configured encode geometry/pixel
// format only when they differ from it.
type VideoEncoder struct {
	base
	adapter *backend.Adapter

	output func(*EncodedVideoChunk, []byte)

	inst *backend.Instance
	desc backend.Descriptor

	rescaler *backend.VideoRescaler

	// sarNum/sarDen is the configure-time sample aspect ratio derived
	// from cfg.DisplayWidth/DisplayHeight vs cfg.Width/Height (spec.md
	// §4.F "capture the configured output geometry... compute whether
	// pixels are non-square and record sar_num/den"). It describes the
	// encoder's own output, independent of whatever SAR an input
	// VideoFrame happens to carry.
	sarNum, sarDen int

	extradataSent bool
}

// NewVideoEncoder constructs a VideoEncoder in the Unconfigured state.
func NewVideoEncoder(init VideoEncoderInit) (*VideoEncoder, error) {
	if init.Output == nil {
		return nil, werror.TypeErrorf("VideoEncoder: output callback required")
	}
	return &VideoEncoder{
		base:    newBase(init.Error, nil),
		adapter: defaultAdapter(),
		output:  init.Output,
	}, nil
}

// IsVideoEncoderConfigSupported probes cfg (spec.md §4.C).
func IsVideoEncoderConfigSupported(cfg VideoEncoderConfig) (bool, error) {
	return defaultAdapter().ProbeEncoder(cfg.toBackend())
}

// Configure opens a fresh backend encode context and fixes the
// rescaler's output geometry/format to it (spec.md §4.F.2).
func (e *VideoEncoder) Configure(cfg VideoEncoderConfig) <-chan error {
	out := make(chan error, 1)
	if err := e.requireNot(StateClosed, "VideoEncoder.configure"); err != nil {
		out <- err
		close(out)
		return out
	}
	bcfg := cfg.toBackend()
	e.q.Enqueue(func() {
		e.teardownLocked()
		inst, info, err := e.adapter.OpenEncoder(bcfg)
		if err != nil {
			e.fireError(err)
			out <- err
			close(out)
			return
		}
		e.inst, e.desc = inst, info.Descriptor
		e.rescaler = backend.NewVideoRescaler(bcfg.Width, bcfg.Height, astiav.PixelFormatYuv420P)
		e.sarNum, e.sarDen = sarFor(bcfg.Width, bcfg.Height, bcfg.DisplayWidth, bcfg.DisplayHeight)
		e.extradataSent = false
		e.setState(StateConfigured)
		out <- nil
		close(out)
	})
	return out
}

// sarFor computes the configure-time sample aspect ratio (spec.md
// §4.F): sar_num = displayWidth*height, sar_den = displayHeight*width,
// the same transposition as VideoFrame.deriveSAR, pinned against §8
// scenario (d). Square (or unset) display dimensions yield 1:1.
func sarFor(width, height, displayWidth, displayHeight int) (int, int) {
	if displayWidth <= 0 || displayHeight <= 0 || (displayWidth == width && displayHeight == height) {
		return 1, 1
	}
	return displayWidth * height, displayHeight * width
}

func (e *VideoEncoder) teardownLocked() {
	if e.rescaler != nil {
		e.rescaler.Close()
		e.rescaler = nil
	}
	if e.inst != nil {
		e.adapter.CloseInstance(e.inst, true)
		e.inst = nil
	}
}

// videoFrameToAVFrame copies vf's visible rect into a freshly allocated
// astiav.Frame in vf's own pixel format, row by row, the inverse of
// VideoDecoder.emit's unpacking (spec.md §4.B Plane layout).
func videoFrameToAVFrame(vf *VideoFrame) (*astiav.Frame, error) {
	pf, err := backend.PixelFormatToAV(vf.Format())
	if err != nil {
		return nil, err
	}
	rect := vf.VisibleRect()
	n, err := vf.Format().PlaneCount()
	if err != nil {
		return nil, err
	}

	layout := make([]PlaneLayout, n)
	offset := 0
	rowBytesOf := make([]int, n)
	rowsOf := make([]int, n)
	for i := 0; i < n; i++ {
		hssf, vssf, err := vf.Format().SubsamplingFactors(i)
		if err != nil {
			return nil, err
		}
		bps, err := vf.Format().BytesPerSample(i)
		if err != nil {
			return nil, err
		}
		rowBytes := ceilDiv(rect.Width, hssf) * bps
		rows := ceilDiv(rect.Height, vssf)
		layout[i] = PlaneLayout{Offset: offset, Stride: rowBytes}
		rowBytesOf[i], rowsOf[i] = rowBytes, rows
		offset += rowBytes * rows
	}
	tight := make([]byte, offset)
	if err := vf.CopyTo(tight, VideoFrameCopyToOptions{Layout: layout}); err != nil {
		return nil, err
	}

	f := astiav.AllocFrame()
	f.SetWidth(rect.Width)
	f.SetHeight(rect.Height)
	f.SetPixelFormat(pf)
	if err := f.AllocBuffer(1); err != nil {
		f.Free()
		return nil, werror.EncodingErrorf("VideoEncoder: frame.AllocBuffer: %w", err)
	}
	linesize := f.Linesize()
	for i := 0; i < n; i++ {
		dst, err := f.Data().Bytes(i)
		if err != nil {
			f.Free()
			return nil, err
		}
		for row := 0; row < rowsOf[i]; row++ {
			s := layout[i].Offset + row*layout[i].Stride
			d := row * linesize[i]
			copy(dst[d:d+rowBytesOf[i]], tight[s:s+rowBytesOf[i]])
		}
	}
	return f, nil
}

// VideoEncodeOptions mirrors the WebCodecs VideoEncoderEncodeOptions
// dictionary (spec.md §6 "`.encode(frame, {keyFrame?})`").
type VideoEncodeOptions struct {
	KeyFrame bool
}

// Encode rescales vf to the configured encode geometry/format only
// when it doesn't already match, then sends it to the backend encoder
// (spec.md §4.F.2).
func (e *VideoEncoder) Encode(vf *VideoFrame, opts VideoEncodeOptions) error {
	if err := e.requireState(StateConfigured, "VideoEncoder.encode"); err != nil {
		return err
	}
	clone, err := vf.Clone()
	if err != nil {
		return err
	}

	e.beginWork()
	e.q.Enqueue(func() {
		defer e.endWork()
		defer clone.Close()

		in, err := videoFrameToAVFrame(clone)
		if err != nil {
			e.fireError(err)
			return
		}
		defer in.Free()
		in.SetPts(backend.USToMS(clone.Timestamp()))
		in.SetSampleAspectRatio(astiav.NewRational(e.sarNum, e.sarDen))
		if opts.KeyFrame {
			in.SetPictureType(astiav.PictureTypeI)
		}

		frame := in
		if !e.rescaler.Matches(in) {
			scaled, err := e.rescaler.Scale(in)
			if err != nil {
				e.fireError(err)
				return
			}
			scaled.SetPts(in.Pts())
			// sws doesn't carry SAR (or picture type) through scaling,
			// so the configured SAR has to be reapplied to the scaled
			// frame too (spec.md §4.F).
			scaled.SetSampleAspectRatio(astiav.NewRational(e.sarNum, e.sarDen))
			if opts.KeyFrame {
				scaled.SetPictureType(astiav.PictureTypeI)
			}
			frame = scaled
		}

		if err := e.adapter.EncodeMulti(e.inst, frame, false, e.onPacket); err != nil {
			e.fireError(err)
		}
	})
	return nil
}

func (e *VideoEncoder) onPacket(pkt *astiav.Packet) error {
	typ := ChunkDelta
	if pkt.Flags()&astiav.PacketFlagKey != 0 {
		typ = ChunkKey
	}
	tsUS := backend.MSToUS(pkt.Pts())
	chunk, err := NewEncodedVideoChunk(typ, tsUS, nil, pkt.Data(), false)
	if err != nil {
		return err
	}
	var desc []byte
	if !e.extradataSent {
		desc = backend.Extradata(e.inst)
		e.extradataSent = true
	}
	e.output(chunk, desc)
	return nil
}

// Flush drains the encoder (spec.md §4.F.2 flush).
func (e *VideoEncoder) Flush() <-chan error {
	result := make(chan error, 1)
	if err := e.requireState(StateConfigured, "VideoEncoder.flush"); err != nil {
		result <- err
		close(result)
		return result
	}
	errc := e.q.EnqueueSync(func() error {
		if err := e.adapter.EncodeMulti(e.inst, nil, true, e.onPacket); err != nil {
			e.fireError(err)
			return err
		}
		return nil
	})
	go func() {
		result <- <-errc
		close(result)
	}()
	return result
}

// Reset aborts in-flight work and returns to Unconfigured (spec.md §3).
func (e *VideoEncoder) Reset() {
	if e.State() == StateClosed {
		return
	}
	e.q.Enqueue(func() {
		e.teardownLocked()
		e.setState(StateUnconfigured)
	})
}

// Close tears down the backend instance permanently (spec.md §3).
func (e *VideoEncoder) Close() {
	e.closeInternal()
	e.q.Enqueue(func() {
		e.teardownLocked()
	})
	e.shutdownQueue()
}
