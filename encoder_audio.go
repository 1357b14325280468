package webcodecs

import (
	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/internal/backend"
	"github.com/e1z0/gowebcodecs/werror"
)

// AudioEncoderConfig mirrors the WebCodecs AudioEncoderConfig
// dictionary (spec.md §6).
type AudioEncoderConfig struct {
	Codec               string
	SampleRate          int
	NumberOfChannels    int
	Bitrate             int64
	OpusFrameDurationUS int
	OpusPacketLossPerc  int
	OpusUseInbandFEC    bool
	FlacBlockSize       int
	BackendOverrides    map[string]string
}

func (c AudioEncoderConfig) toBackend() backend.EncoderConfig {
	return backend.EncoderConfig{
		Identifier:          c.Codec,
		Overrides:           backendOverrides(c.BackendOverrides),
		SampleRate:          c.SampleRate,
		NumberOfChannels:    c.NumberOfChannels,
		Bitrate:             c.Bitrate,
		OpusFrameDurationUS: c.OpusFrameDurationUS,
		OpusPacketLossPerc:  c.OpusPacketLossPerc,
		OpusUseInbandFEC:    c.OpusUseInbandFEC,
		FlacBlockSize:       c.FlacBlockSize,
	}
}

// AudioEncoderInit mirrors the constructor callbacks (spec.md §3).
type AudioEncoderInit struct {
	Output func(*EncodedAudioChunk, []byte) // chunk, decoderConfig description
	Error  func(error)
}

// AudioEncoder is the polyfilled AudioEncoder (spec.md §4.F.1): input
// AudioData is resampled to the backend's required format before
// encoding, and accumulated into the codec's fixed frame size when one
// is required.
type AudioEncoder struct {
	base
	adapter *backend.Adapter

	output func(*EncodedAudioChunk, []byte)

	inst      *backend.Instance
	desc      backend.Descriptor
	info      backend.EncoderInfo
	sampleFmt astiav.SampleFormat
	layout    astiav.ChannelLayout
	sampleRate int
	numChannels int

	resampler *backend.AudioResampler
	acc       [][]byte // per-channel (or single interleaved) accumulator
	accFrames int

	extradataSent bool
}

// NewAudioEncoder constructs an AudioEncoder in the Unconfigured state.
func NewAudioEncoder(init AudioEncoderInit) (*AudioEncoder, error) {
	if init.Output == nil {
		return nil, werror.TypeErrorf("AudioEncoder: output callback required")
	}
	return &AudioEncoder{
		base:    newBase(init.Error, nil),
		adapter: defaultAdapter(),
		output:  init.Output,
	}, nil
}

// IsAudioEncoderConfigSupported probes cfg (spec.md §4.C).
func IsAudioEncoderConfigSupported(cfg AudioEncoderConfig) (bool, error) {
	return defaultAdapter().ProbeEncoder(cfg.toBackend())
}

// Configure opens a fresh backend encode context (spec.md §4.F.1).
func (e *AudioEncoder) Configure(cfg AudioEncoderConfig) <-chan error {
	out := make(chan error, 1)
	if err := e.requireNot(StateClosed, "AudioEncoder.configure"); err != nil {
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
		e.inst, e.info, e.desc = inst, info, info.Descriptor
		e.sampleFmt = info.Descriptor.PreferSample
		if e.sampleFmt == 0 {
			e.sampleFmt = astiav.SampleFormatFltp
		}
		ch := bcfg.NumberOfChannels
		if ch <= 0 {
			ch = 2
		}
		e.numChannels = ch
		e.layout = backend.ChannelLayoutFor(ch)
		sr := bcfg.SampleRate
		if sr <= 0 {
			sr = 48000
		}
		e.sampleRate = sr
		e.resampler = backend.NewAudioResampler(e.sampleFmt, e.layout, sr)
		e.acc = nil
		e.accFrames = 0
		e.extradataSent = false
		e.setState(StateConfigured)
		out <- nil
		close(out)
	})
	return out
}

func (e *AudioEncoder) teardownLocked() {
	if e.resampler != nil {
		e.resampler.Close()
		e.resampler = nil
	}
	if e.inst != nil {
		e.adapter.CloseInstance(e.inst, true)
		e.inst = nil
	}
}

func audioFrameFromData(ad *AudioData, sf astiav.SampleFormat, layout astiav.ChannelLayout, ts int64) (*astiav.Frame, error) {
	f := astiav.AllocFrame()
	f.SetSampleFormat(sf)
	f.SetChannelLayout(layout)
	f.SetSampleRate(int(ad.SampleRate()))
	f.SetNbSamples(ad.NumberOfFrames())
	f.SetPts(ts)
	if err := f.AllocBuffer(0); err != nil {
		f.Free()
		return nil, werror.EncodingErrorf("AudioEncoder: frame.AllocBuffer: %w", err)
	}

	planar := ad.Format().IsPlanar()
	bps, _ := ad.Format().BytesPerSample()
	nCh := ad.NumberOfChannels()
	nSamples := ad.NumberOfFrames()

	opts := AudioDataCopyToOptions{Format: ad.Format()}
	if planar {
		for ch := 0; ch < nCh; ch++ {
			opts.PlaneIndex = ch
			dst, err := f.Data().Bytes(ch)
			if err != nil {
				f.Free()
				return nil, err
			}
			if err := ad.CopyTo(dst[:nSamples*bps], opts); err != nil {
				f.Free()
				return nil, err
			}
		}
	} else {
		dst, err := f.Data().Bytes(0)
		if err != nil {
			f.Free()
			return nil, err
		}
		if err := ad.CopyTo(dst[:nSamples*nCh*bps], opts); err != nil {
			f.Free()
			return nil, err
		}
	}
	return f, nil
}

// Encode resamples ad into the configured backend format and
// accumulates it into fixed-size frames before handing them to the
// encoder (spec.md §4.F.1).
func (e *AudioEncoder) Encode(ad *AudioData) error {
	if err := e.requireState(StateConfigured, "AudioEncoder.encode"); err != nil {
		return err
	}
	clone, err := ad.Clone()
	if err != nil {
		return err
	}

	e.beginWork()
	e.q.Enqueue(func() {
		defer e.endWork()
		defer clone.Close()

		ts := int64(float64(clone.Timestamp()) * float64(e.sampleRate) / 1e6)
		in, err := audioFrameFromData(clone, astiavSampleFormatOf(clone), backend.ChannelLayoutFor(clone.NumberOfChannels()), ts)
		if err != nil {
			e.fireError(err)
			return
		}
		defer in.Free()

		if e.resampler.NeedsRebuild(in) {
			// Flush whatever the old filter graph still has buffered
			// into tail frames before tearing it down, so that a
			// format/rate change never silently drops samples
			// (spec.md §4.F.1, §9 rescaler/resampler lifecycle).
			if err := e.resampler.Drain(e.accumulate); err != nil {
				e.fireError(err)
				return
			}
			if err := e.resampler.Rebuild(in); err != nil {
				e.fireError(err)
				return
			}
		}

		err = e.resampler.Push(in, func(out *astiav.Frame) error {
			return e.accumulate(out)
		})
		if err != nil {
			e.fireError(err)
		}
	})
	return nil
}

func astiavSampleFormatOf(ad *AudioData) astiav.SampleFormat {
	sf, err := backend.SampleFormatToAV(ad.Format())
	if err != nil {
		return astiav.SampleFormatFltp
	}
	return sf
}

// accumulate appends out's samples to e.acc and drains exact-sized
// frames to the encoder as soon as enough samples have built up
// (spec.md §4.F.1 "accumulate into the codec's required frame size").
func (e *AudioEncoder) accumulate(out *astiav.Frame) error {
	planar := e.sampleFmt == astiav.SampleFormatFltp || e.sampleFmt == astiav.SampleFormatS16p ||
		e.sampleFmt == astiav.SampleFormatS32p || e.sampleFmt == astiav.SampleFormatU8p
	bps := sampleFormatBytes(e.sampleFmt)
	nCh := e.numChannels
	n := out.NbSamples()

	if e.acc == nil {
		width := 1
		if planar {
			width = nCh
		}
		e.acc = make([][]byte, width)
	}

	if planar {
		for ch := 0; ch < nCh; ch++ {
			src, err := out.Data().Bytes(ch)
			if err != nil {
				return err
			}
			e.acc[ch] = append(e.acc[ch], src[:n*bps]...)
		}
	} else {
		src, err := out.Data().Bytes(0)
		if err != nil {
			return err
		}
		e.acc[0] = append(e.acc[0], src[:n*nCh*bps]...)
	}
	e.accFrames += n

	return e.drainFixedFrames(false)
}

func sampleFormatBytes(f astiav.SampleFormat) int {
	switch f {
	case astiav.SampleFormatU8, astiav.SampleFormatU8p:
		return 1
	case astiav.SampleFormatS16, astiav.SampleFormatS16p:
		return 2
	case astiav.SampleFormatS32, astiav.SampleFormatS32p, astiav.SampleFormatFlt, astiav.SampleFormatFltp:
		return 4
	default:
		return 4
	}
}

// drainFixedFrames encodes as many frameSize-sample frames as are
// currently buffered; when final is true (flush/close) it also flushes
// any final, possibly short, remainder (spec.md §4.F.1's last-frame
// exception).
func (e *AudioEncoder) drainFixedFrames(final bool) error {
	frameSize := e.info.FrameSize
	planar := len(e.acc) > 1

	take := func(n int) error {
		f := astiav.AllocFrame()
		f.SetSampleFormat(e.sampleFmt)
		f.SetChannelLayout(e.layout)
		f.SetSampleRate(e.sampleRate)
		f.SetNbSamples(n)
		if err := f.AllocBuffer(0); err != nil {
			f.Free()
			return werror.EncodingErrorf("AudioEncoder: frame.AllocBuffer: %w", err)
		}
		bps := sampleFormatBytes(e.sampleFmt)
		if planar {
			for ch := range e.acc {
				dst, err := f.Data().Bytes(ch)
				if err != nil {
					f.Free()
					return err
				}
				copy(dst, e.acc[ch][:n*bps])
				e.acc[ch] = e.acc[ch][n*bps:]
			}
		} else {
			dst, err := f.Data().Bytes(0)
			if err != nil {
				f.Free()
				return err
			}
			copy(dst, e.acc[0][:n*e.numChannels*bps])
			e.acc[0] = e.acc[0][n*e.numChannels*bps:]
		}
		e.accFrames -= n
		err := e.adapter.EncodeMulti(e.inst, f, false, e.onPacket)
		f.Free()
		return err
	}

	if frameSize > 0 {
		for e.accFrames >= frameSize {
			if err := take(frameSize); err != nil {
				return err
			}
		}
	}
	if final && e.accFrames > 0 {
		if err := take(e.accFrames); err != nil {
			return err
		}
	}
	return nil
}

func (e *AudioEncoder) onPacket(pkt *astiav.Packet) error {
	typ := ChunkDelta
	if pkt.Flags()&astiav.PacketFlagKey != 0 {
		typ = ChunkKey
	}
	tsUS := backend.SamplesToUS(pkt.Pts(), float64(e.sampleRate))
	chunk, err := NewEncodedAudioChunk(typ, tsUS, nil, pkt.Data(), false)
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

// Flush drains the resampler, flushes any short final frame and
// drains the encoder (spec.md §4.F.1 flush).
func (e *AudioEncoder) Flush() <-chan error {
	result := make(chan error, 1)
	if err := e.requireState(StateConfigured, "AudioEncoder.flush"); err != nil {
		result <- err
		close(result)
		return result
	}
	errc := e.q.EnqueueSync(func() error {
		if err := e.resampler.Drain(e.accumulate); err != nil {
			e.fireError(err)
			return err
		}
		if err := e.drainFixedFrames(true); err != nil {
			e.fireError(err)
			return err
		}
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
func (e *AudioEncoder) Reset() {
	if e.State() == StateClosed {
		return
	}
	e.q.Enqueue(func() {
		e.teardownLocked()
		e.acc = nil
		e.accFrames = 0
		e.setState(StateUnconfigured)
	})
}

// Close tears down the backend instance permanently (spec.md §3).
func (e *AudioEncoder) Close() {
	e.closeInternal()
	e.q.Enqueue(func() {
		e.teardownLocked()
	})
	e.shutdownQueue()
}
