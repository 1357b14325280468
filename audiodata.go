package webcodecs

import (
	"math"
	"sync"

	"github.com/e1z0/gowebcodecs/format"
	"github.com/e1z0/gowebcodecs/werror"
)

// AudioDataInit mirrors the WebCodecs AudioDataInit dictionary
// (spec.md §3/§6).
type AudioDataInit struct {
	Format           format.SampleFormat
	SampleRate       float64
	NumberOfFrames   int
	NumberOfChannels int
	Timestamp        int64 // microseconds
	Data             []byte
	// Transfer, when true, moves ownership of Data into the AudioData
	// without copying (spec.md §3 Ownership); the caller must not
	// reuse Data afterwards.
	Transfer bool
}

// AudioData owns a raw sample buffer plus the attributes describing
// its layout (spec.md §3/§4.B).
type AudioData struct {
	mu     sync.Mutex
	buf    ownedBuffer
	format format.SampleFormat

	sampleRate       float64
	numberOfFrames   int
	numberOfChannels int
	timestamp        int64
}

// NewAudioData validates init and constructs an AudioData, copying or
// transferring the backing buffer per init.Transfer.
func NewAudioData(init AudioDataInit) (*AudioData, error) {
	if init.SampleRate <= 0 {
		return nil, werror.TypeErrorf("AudioData: sampleRate must be > 0, got %v", init.SampleRate)
	}
	if init.NumberOfFrames <= 0 {
		return nil, werror.TypeErrorf("AudioData: numberOfFrames must be > 0, got %d", init.NumberOfFrames)
	}
	if init.NumberOfChannels <= 0 {
		return nil, werror.TypeErrorf("AudioData: numberOfChannels must be > 0, got %d", init.NumberOfChannels)
	}
	if !init.Format.Valid() {
		return nil, werror.TypeErrorf("AudioData: unknown sample format %q", init.Format)
	}
	bps, err := init.Format.BytesPerSample()
	if err != nil {
		return nil, werror.TypeErrorf("AudioData: %v", err)
	}
	need := init.NumberOfFrames * init.NumberOfChannels * bps
	if len(init.Data) < need {
		return nil, werror.TypeErrorf("AudioData: data too short: have %d bytes, need %d", len(init.Data), need)
	}

	return &AudioData{
		buf:              newOwnedBuffer(init.Data, init.Transfer),
		format:           init.Format,
		sampleRate:       init.SampleRate,
		numberOfFrames:   init.NumberOfFrames,
		numberOfChannels: init.NumberOfChannels,
		timestamp:        init.Timestamp,
	}, nil
}

func (a *AudioData) Format() format.SampleFormat { return a.format }
func (a *AudioData) SampleRate() float64         { return a.sampleRate }
func (a *AudioData) NumberOfFrames() int         { return a.numberOfFrames }
func (a *AudioData) NumberOfChannels() int       { return a.numberOfChannels }
func (a *AudioData) Timestamp() int64            { return a.timestamp }

// Duration returns the derived duration in microseconds:
// frames * 1e6 / sampleRate (spec.md §3).
func (a *AudioData) Duration() int64 {
	return int64(math.Round(float64(a.numberOfFrames) * 1e6 / a.sampleRate))
}

// AudioDataCopyToOptions mirrors the WebCodecs
// AudioDataCopyToOptions dictionary.
type AudioDataCopyToOptions struct {
	PlaneIndex  int
	FrameOffset int
	FrameCount  *int // nil means "to the end"
	Format      format.SampleFormat
}

// copyElementCount implements "Compute Copy Element Count" (spec.md
// §4.B). Per SPEC_FULL.md's resolution of the §9 open question, exact
// fits are allowed: frameOffset+frameCount <= numberOfFrames.
func (a *AudioData) copyElementCount(opts AudioDataCopyToOptions) (frameCount, elementCount int, destFormat format.SampleFormat, err error) {
	destFormat = opts.Format
	if destFormat == "" {
		destFormat = a.format
	}
	if !destFormat.Valid() {
		return 0, 0, "", werror.TypeErrorf("AudioData: unknown destination format %q", destFormat)
	}

	if destFormat.IsPlanar() {
		if opts.PlaneIndex < 0 || opts.PlaneIndex >= a.numberOfChannels {
			return 0, 0, "", werror.RangeErrorf("AudioData: planeIndex %d out of range for %d channels", opts.PlaneIndex, a.numberOfChannels)
		}
	} else if opts.PlaneIndex != 0 {
		return 0, 0, "", werror.RangeErrorf("AudioData: planeIndex must be 0 for interleaved destFormat %q, got %d", destFormat, opts.PlaneIndex)
	}

	if destFormat != a.format && destFormat != format.F32Planar {
		return 0, 0, "", werror.NotSupportedf("AudioData: cannot convert %q to %q", a.format, destFormat)
	}

	if opts.FrameOffset < 0 || opts.FrameOffset >= a.numberOfFrames {
		return 0, 0, "", werror.RangeErrorf("AudioData: frameOffset %d out of range for %d frames", opts.FrameOffset, a.numberOfFrames)
	}

	fc := a.numberOfFrames - opts.FrameOffset
	if opts.FrameCount != nil {
		fc = *opts.FrameCount
		if fc > a.numberOfFrames-opts.FrameOffset {
			return 0, 0, "", werror.RangeErrorf("AudioData: frameCount %d exceeds available frames %d", fc, a.numberOfFrames-opts.FrameOffset)
		}
	}

	if destFormat.IsPlanar() {
		elementCount = fc
	} else {
		elementCount = fc * a.numberOfChannels
	}
	return fc, elementCount, destFormat, nil
}

// AllocationSize returns the number of bytes copyTo would need to
// write for opts.
func (a *AudioData) AllocationSize(opts AudioDataCopyToOptions) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.buf.bytes(); err != nil {
		return 0, err
	}
	_, elementCount, destFormat, err := a.copyElementCount(opts)
	if err != nil {
		return 0, err
	}
	bps, err := destFormat.BytesPerSample()
	if err != nil {
		return 0, err
	}
	return elementCount * bps, nil
}

// sub/div per spec.md §4.B's linear transform table, keyed by source
// sample format family (the "P" planar variants use the same
// constants as their interleaved counterpart).
func subDiv(f format.SampleFormat) (sub, div float64) {
	switch f {
	case format.U8, format.U8Planar:
		return 0x80, 0x80
	case format.S16, format.S16Planar:
		return 0, 0x8000
	case format.S32, format.S32Planar:
		return 0, 0x80000000
	default: // f32 / f32-planar
		return 0, 1
	}
}

// CopyTo copies samples into dst per opts, converting to f32-planar if
// requested (the only supported conversion target per spec.md §3).
func (a *AudioData) CopyTo(dst []byte, opts AudioDataCopyToOptions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	src, err := a.buf.bytes()
	if err != nil {
		return err
	}
	frameCount, elementCount, destFormat, err := a.copyElementCount(opts)
	if err != nil {
		return err
	}
	destBps, _ := destFormat.BytesPerSample()
	need := elementCount * destBps
	if len(dst) < need {
		return werror.RangeErrorf("AudioData.copyTo: destination too small: have %d bytes, need %d", len(dst), need)
	}

	srcBps, _ := a.format.BytesPerSample()
	ch := a.numberOfChannels

	readSample := func(frame, channel int) float64 {
		var idx int
		if a.format.IsPlanar() {
			idx = (channel*a.numberOfFrames + frame) * srcBps
		} else {
			idx = (frame*ch + channel) * srcBps
		}
		return decodeSample(src[idx:idx+srcBps], a.format)
	}

	if destFormat == a.format {
		// Direct byte copy of the requested slice.
		if a.format.IsPlanar() {
			start := (opts.PlaneIndex*a.numberOfFrames + opts.FrameOffset) * srcBps
			copy(dst, src[start:start+frameCount*srcBps])
		} else {
			start := opts.FrameOffset * ch * srcBps
			copy(dst, src[start:start+frameCount*ch*srcBps])
		}
		return nil
	}

	// Conversion to f32-planar.
	sub, div := subDiv(a.format)
	if destFormat.IsPlanar() {
		for i := 0; i < frameCount; i++ {
			v := (readSample(opts.FrameOffset+i, opts.PlaneIndex) - sub) / div
			writeF32(dst[i*4:], v)
		}
	} else {
		for i := 0; i < frameCount; i++ {
			for c := 0; c < ch; c++ {
				v := (readSample(opts.FrameOffset+i, c) - sub) / div
				writeF32(dst[(i*ch+c)*4:], v)
			}
		}
	}
	return nil
}

func decodeSample(b []byte, f format.SampleFormat) float64 {
	switch f {
	case format.U8, format.U8Planar:
		return float64(b[0])
	case format.S16, format.S16Planar:
		v := int16(uint16(b[0]) | uint16(b[1])<<8)
		return float64(v)
	case format.S32, format.S32Planar:
		v := int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
		return float64(v)
	default: // f32 / f32-planar
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return float64(math.Float32frombits(bits))
	}
}

func writeF32(dst []byte, v float64) {
	bits := math.Float32bits(float32(v))
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

// Clone produces an independent owner over a copy of the same logical
// sample values (spec.md §3/§4.B).
func (a *AudioData) Clone() (*AudioData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.buf.bytes(); err != nil {
		return nil, err
	}
	return &AudioData{
		buf:              a.buf.clone(),
		format:           a.format,
		sampleRate:       a.sampleRate,
		numberOfFrames:   a.numberOfFrames,
		numberOfChannels: a.numberOfChannels,
		timestamp:        a.timestamp,
	}, nil
}

// Close detaches the buffer; subsequent operations fail with
// InvalidState (spec.md §3).
func (a *AudioData) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.close()
}

// Closed reports whether Close has been called.
func (a *AudioData) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.closed
}
