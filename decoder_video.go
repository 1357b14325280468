package webcodecs

import (
	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/internal/backend"
	"github.com/e1z0/gowebcodecs/werror"
)

// VideoDecoderConfig mirrors the WebCodecs VideoDecoderConfig
// dictionary (spec.md §6).
type VideoDecoderConfig struct {
	Codec            string
	CodedWidth       int
	CodedHeight      int
	Description      []byte
	BackendOverrides map[string]string
}

func (c VideoDecoderConfig) toBackend() backend.DecoderConfig {
	return backend.DecoderConfig{
		Identifier:  c.Codec,
		Overrides:   backendOverrides(c.BackendOverrides),
		CodedWidth:  c.CodedWidth,
		CodedHeight: c.CodedHeight,
		Description: c.Description,
	}
}

// VideoDecoderInit mirrors the constructor callbacks (spec.md §3).
type VideoDecoderInit struct {
	Output func(*VideoFrame)
	Error  func(error)
}

// VideoDecoder is the polyfilled VideoDecoder (spec.md §4.E).
type VideoDecoder struct {
	base
	adapter *backend.Adapter

	output func(*VideoFrame)

	inst *backend.Instance
	desc backend.Descriptor
}

// NewVideoDecoder constructs a VideoDecoder in the Unconfigured state.
func NewVideoDecoder(init VideoDecoderInit) (*VideoDecoder, error) {
	if init.Output == nil {
		return nil, werror.TypeErrorf("VideoDecoder: output callback required")
	}
	return &VideoDecoder{
		base:    newBase(init.Error, nil),
		adapter: defaultAdapter(),
		output:  init.Output,
	}, nil
}

// IsVideoDecoderConfigSupported probes cfg (spec.md §4.C).
func IsVideoDecoderConfigSupported(cfg VideoDecoderConfig) (bool, error) {
	return defaultAdapter().ProbeDecoder(cfg.toBackend())
}

// Configure opens a fresh backend decode context (spec.md §4.E).
func (d *VideoDecoder) Configure(cfg VideoDecoderConfig) <-chan error {
	out := make(chan error, 1)
	if err := d.requireNot(StateClosed, "VideoDecoder.configure"); err != nil {
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

// Decode enqueues one encoded chunk for decoding (spec.md §4.E).
func (d *VideoDecoder) Decode(chunk *EncodedVideoChunk) error {
	if err := d.requireState(StateConfigured, "VideoDecoder.decode"); err != nil {
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

// emit packs an astiav.Frame's planes into a tight VideoFrame buffer,
// row by row, since the decoder's linesize may exceed the tight stride
// (spec.md §4.B Plane layout requires the buffer's own layout table,
// not the backend's padded one).
func (d *VideoDecoder) emit(f *astiav.Frame) error {
	pf, err := backend.PixelFormatFromAV(f.PixelFormat())
	if err != nil {
		return err
	}
	w, h := f.Width(), f.Height()

	n, err := pf.PlaneCount()
	if err != nil {
		return err
	}
	linesize := f.Linesize()

	size := 0
	type planeMeta struct{ offset, stride, rows int }
	metas := make([]planeMeta, n)
	for i := 0; i < n; i++ {
		hssf, vssf, err := pf.SubsamplingFactors(i)
		if err != nil {
			return err
		}
		bps, err := pf.BytesPerSample(i)
		if err != nil {
			return err
		}
		rowBytes := ceilDiv(w, hssf) * bps
		rows := ceilDiv(h, vssf)
		metas[i] = planeMeta{offset: size, stride: rowBytes, rows: rows}
		size += rowBytes * rows
	}

	buf := make([]byte, size)
	for i := 0; i < n; i++ {
		src, err := f.Data().Bytes(i)
		if err != nil {
			return err
		}
		m := metas[i]
		for row := 0; row < m.rows; row++ {
			s := row * linesize[i]
			d := m.offset + row*m.stride
			copy(buf[d:d+m.stride], src[s:s+m.stride])
		}
	}

	layout := make([]PlaneLayout, n)
	for i, m := range metas {
		layout[i] = PlaneLayout{Offset: m.offset, Stride: m.stride}
	}

	sar := f.SampleAspectRatio()
	vf, err := NewVideoFrame(VideoFrameBufferInit{
		Format:      pf,
		CodedWidth:  w,
		CodedHeight: h,
		Timestamp:   backend.MSToUS(f.Pts()),
		Layout:      layout,
		Data:        buf,
		Transfer:    true,
	})
	if err != nil {
		return err
	}
	if sar.Numerator() > 0 && sar.Denominator() > 0 && sar.Numerator() != sar.Denominator() {
		// Derive the display size itself from SAR (spec.md §4.E), then
		// recompute sar_num/den from that derived size rather than
		// keeping the backend's SAR and an unrelated display size
		// side by side.
		if sar.Numerator() > sar.Denominator() {
			vf.displayWidth = w * sar.Numerator() / sar.Denominator()
		} else {
			vf.displayHeight = h * sar.Denominator() / sar.Numerator()
		}
		vf.deriveSAR()
	}
	d.output(vf)
	return nil
}

// Flush drains every buffered frame (spec.md §4.E flush).
func (d *VideoDecoder) Flush() <-chan error {
	result := make(chan error, 1)
	if err := d.requireState(StateConfigured, "VideoDecoder.flush"); err != nil {
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

// Reset aborts in-flight work and returns to Unconfigured (spec.md §3).
func (d *VideoDecoder) Reset() {
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

// Close tears down the backend instance permanently (spec.md §3).
func (d *VideoDecoder) Close() {
	d.closeInternal()
	d.q.Enqueue(func() {
		if d.inst != nil {
			d.adapter.CloseInstance(d.inst, false)
			d.inst = nil
		}
	})
	d.shutdownQueue()
}
