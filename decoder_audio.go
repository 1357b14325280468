package webcodecs

import (
	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/internal/backend"
	"github.com/e1z0/gowebcodecs/werror"
)

// AudioDecoderConfig mirrors the WebCodecs AudioDecoderConfig
// dictionary (spec.md §6).
type AudioDecoderConfig struct {
	Codec            string
	SampleRate       int
	NumberOfChannels int
	Description      []byte
	BackendOverrides map[string]string
}

func (c AudioDecoderConfig) toBackend() backend.DecoderConfig {
	return backend.DecoderConfig{
		Identifier:       c.Codec,
		Overrides:        backendOverrides(c.BackendOverrides),
		SampleRate:       c.SampleRate,
		NumberOfChannels: c.NumberOfChannels,
		Description:      c.Description,
	}
}

// AudioDecoderInit mirrors the two user-supplied callbacks every
// WebCodecs codec constructor takes (spec.md §3).
type AudioDecoderInit struct {
	Output func(*AudioData)
	Error  func(error)
}

// AudioDecoder is the polyfilled AudioDecoder (spec.md §4.E), a state
// machine driven entirely through its own internal/queue.Queue so every
// configure/decode/flush/reset/close call is synchronous from the
// caller's point of view and serialized underneath (spec.md §5).
type AudioDecoder struct {
	base
	adapter *backend.Adapter

	output func(*AudioData)

	inst *backend.Instance
	desc backend.Descriptor
}

// NewAudioDecoder constructs an AudioDecoder in the Unconfigured state
// (spec.md §3).
func NewAudioDecoder(init AudioDecoderInit) (*AudioDecoder, error) {
	if init.Output == nil {
		return nil, werror.TypeErrorf("AudioDecoder: output callback required")
	}
	d := &AudioDecoder{
		base:    newBase(init.Error, nil),
		adapter: defaultAdapter(),
		output:  init.Output,
	}
	return d, nil
}

// IsAudioDecoderConfigSupported probes cfg without constructing a
// decoder instance (spec.md §4.C "static support-check method").
func IsAudioDecoderConfigSupported(cfg AudioDecoderConfig) (bool, error) {
	return defaultAdapter().ProbeDecoder(cfg.toBackend())
}

// Configure transitions Unconfigured|Configured -> Configured,
// tearing down any prior backend instance first (spec.md §4.E
// configure, §3 "replacing a configuration frees the old one").
func (d *AudioDecoder) Configure(cfg AudioDecoderConfig) <-chan error {
	out := make(chan error, 1)
	if err := d.requireNot(StateClosed, "AudioDecoder.configure"); err != nil {
		out <- err
		close(out)
		return out
	}
	d.q.Enqueue(func() {
		if d.inst != nil {
			d.adapter.CloseInstance(d.inst, false)
			d.inst = nil
		}
		inst, desc, err := d.adapter.OpenDecoder(cfg.toBackend())
		if err != nil {
			d.fireError(err)
			out <- err
			close(out)
			return
		}
		d.inst, d.desc = inst, desc
		d.setState(StateConfigured)
		out <- nil
		close(out)
	})
	return out
}

// Decode enqueues one encoded chunk for decoding (spec.md §4.E decode).
// decodeQueueSize is incremented synchronously before this call
// returns and decremented (firing dequeue) once the step completes.
func (d *AudioDecoder) Decode(chunk *EncodedAudioChunk) error {
	if err := d.requireState(StateConfigured, "AudioDecoder.decode"); err != nil {
		return err
	}
	data, err := chunk.dataBytes()
	if err != nil {
		return err
	}
	ts, dur := chunk.Timestamp(), chunk.Duration()
	hasDur := dur != nil
	durVal := int64(0)
	if hasDur {
		durVal = *dur
	}

	d.beginWork()
	d.q.Enqueue(func() {
		defer d.endWork()
		ptsMS := backend.USToMS(ts)
		durMS := backend.USToMS(durVal)
		err := d.adapter.DecodeMulti(d.inst, data, ptsMS, hasDur, durMS, false, func(f *astiav.Frame) error {
			return d.emit(f)
		})
		if err != nil {
			d.fireError(err)
		}
	})
	return nil
}

func (d *AudioDecoder) emit(f *astiav.Frame) error {
	sf, err := backend.SampleFormatFromAV(f.SampleFormat())
	if err != nil {
		return err
	}
	planar := sf.IsPlanar()
	nCh := f.ChannelLayout().Channels()
	nSamples := f.NbSamples()
	bps, _ := sf.BytesPerSample()

	var data []byte
	if planar {
		data = make([]byte, nCh*nSamples*bps)
		for ch := 0; ch < nCh; ch++ {
			plane, err := f.Data().Bytes(ch)
			if err != nil {
				return err
			}
			copy(data[ch*nSamples*bps:], plane[:nSamples*bps])
		}
	} else {
		plane, err := f.Data().Bytes(0)
		if err != nil {
			return err
		}
		data = make([]byte, nSamples*nCh*bps)
		copy(data, plane[:nSamples*nCh*bps])
	}

	tsUS := backend.MSToUS(f.Pts())
	ad, err := NewAudioData(AudioDataInit{
		Format:           sf,
		SampleRate:       float64(f.SampleRate()),
		NumberOfFrames:   nSamples,
		NumberOfChannels: nCh,
		Timestamp:        tsUS,
		Data:             data,
		Transfer:         true,
	})
	if err != nil {
		return err
	}
	d.output(ad)
	return nil
}

// Flush enqueues a drain step and resolves once every already-decoded
// chunk's output has been emitted (spec.md §4.E flush).
func (d *AudioDecoder) Flush() <-chan error {
	result := make(chan error, 1)
	if err := d.requireState(StateConfigured, "AudioDecoder.flush"); err != nil {
		result <- err
		close(result)
		return result
	}
	errc := d.q.EnqueueSync(func() error {
		err := d.adapter.DecodeMulti(d.inst, nil, 0, false, 0, true, func(f *astiav.Frame) error {
			return d.emit(f)
		})
		if err != nil {
			d.fireError(err)
		}
		return err
	})
	go func() {
		result <- <-errc
		close(result)
	}()
	return result
}

// Reset aborts any in-flight work and returns to Unconfigured without
// firing the error callback (spec.md §3 reset, Abort-class only).
func (d *AudioDecoder) Reset() {
	if d.State() == StateClosed {
		return
	}
	d.q.Enqueue(func() {
		if d.inst != nil {
			d.adapter.CloseInstance(d.inst, false)
			d.inst = nil
		}
		d.setState(StateUnconfigured)
	})
}

// Close tears down the backend instance and transitions to the
// terminal Closed state (spec.md §3 close).
func (d *AudioDecoder) Close() {
	d.closeInternal()
	d.q.Enqueue(func() {
		if d.inst != nil {
			d.adapter.CloseInstance(d.inst, false)
			d.inst = nil
		}
	})
	d.shutdownQueue()
}
