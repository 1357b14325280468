package backend

import (
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/gowebcodecs/werror"
)

// DecoderConfig is the backend-facing view of AudioDecoderConfig /
// VideoDecoderConfig (spec.md §6).
type DecoderConfig struct {
	Identifier       string
	Overrides        map[string]string
	SampleRate       int    // audio
	NumberOfChannels int    // audio
	Description      []byte // audio extradata
	CodedWidth       int    // video, optional hint
	CodedHeight      int
}

// EncoderConfig is the backend-facing view of AudioEncoderConfig /
// VideoEncoderConfig (spec.md §6).
type EncoderConfig struct {
	Identifier       string
	Overrides        map[string]string
	SampleRate       int // audio
	NumberOfChannels int
	Bitrate          int64

	OpusFrameDurationUS int
	OpusPacketLossPerc  int
	OpusUseInbandFEC    bool
	FlacBlockSize       int

	Width, Height               int // video
	DisplayWidth, DisplayHeight int
	FramerateNum, FramerateDen  int
	Realtime                    bool
}

// EncoderInfo carries backend properties the encode preprocessing
// steps (§4.F.1/§4.F.2) need: the codec's required fixed frame size
// (audio) and the resolved Descriptor.
type EncoderInfo struct {
	Descriptor Descriptor
	FrameSize  int // 0 means "any size accepted"
}

// Adapter is the codec backend adapter of spec.md §4.C.
type Adapter struct {
	Pool *Pool
}

// NewAdapter wraps pool (see NewPool) in an Adapter.
func NewAdapter(pool *Pool) *Adapter { return &Adapter{Pool: pool} }

// ProbeDecoder attempts init+free of the codec named by cfg.Identifier and
// reports supported=false rather than propagating init errors, per
// spec.md §4.C's error policy ("probe failures yield supported=false").
func (a *Adapter) ProbeDecoder(cfg DecoderConfig) (supported bool, err error) {
	inst, _, err := a.OpenDecoder(cfg)
	if err != nil {
		return false, nil
	}
	a.CloseInstance(inst, false)
	return true, nil
}

func (a *Adapter) ProbeEncoder(cfg EncoderConfig) (supported bool, err error) {
	inst, _, err := a.OpenEncoder(cfg)
	if err != nil {
		return false, nil
	}
	a.CloseInstance(inst, true)
	return true, nil
}

// OpenDecoder resolves cfg.Identifier and opens a decode context with
// time base 1/1000 for both audio and video, plus the relevant side
// data, per spec.md §4.E configure ("init the backend decoder with
// time base 1/1000").
func (a *Adapter) OpenDecoder(cfg DecoderConfig) (*Instance, Descriptor, error) {
	desc, err := Resolve(cfg.Identifier, cfg.Overrides)
	if err != nil {
		return nil, Descriptor{}, err
	}

	codec := astiav.FindDecoder(desc.AVCodecID)
	if codec == nil {
		return nil, desc, werror.NotSupportedf("backend: FindDecoder(%v) returned nil", desc.AVCodecID)
	}

	inst := a.Pool.Get(desc.BackendName, false)
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		a.Pool.Put(inst)
		return nil, desc, werror.NotSupportedf("backend: AllocCodecContext(%s) returned nil", desc.BackendName)
	}
	inst.Ctx, inst.Codec = ctx, codec

	switch desc.Kind {
	case KindAudio:
		if cfg.SampleRate > 0 {
			ctx.SetSampleRate(cfg.SampleRate)
		}
		if cfg.NumberOfChannels > 0 {
			cl := ChannelLayoutFor(cfg.NumberOfChannels)
			ctx.SetChannelLayout(cl)
		}
		if len(cfg.Description) > 0 {
			ctx.SetExtradata(cfg.Description)
		}
		ctx.SetTimeBase(astiav.NewRational(1, VideoTimeBaseDen))
	case KindVideo:
		if cfg.CodedWidth > 0 && cfg.CodedHeight > 0 {
			ctx.SetWidth(cfg.CodedWidth)
			ctx.SetHeight(cfg.CodedHeight)
		}
		ctx.SetTimeBase(astiav.NewRational(1, VideoTimeBaseDen))
	}

	if err := ctx.Open(codec, nil); err != nil {
		ctx.Free()
		inst.Ctx = nil
		a.Pool.Put(inst)
		return nil, desc, werror.NotSupportedf("backend: open decoder %s: %w", desc.BackendName, err)
	}

	return inst, desc, nil
}

// OpenEncoder resolves cfg.Identifier, opens an encode context and
// returns the codec's required fixed frame size (audio), per spec.md
// §4.F configure.
func (a *Adapter) OpenEncoder(cfg EncoderConfig) (*Instance, EncoderInfo, error) {
	desc, err := Resolve(cfg.Identifier, cfg.Overrides)
	if err != nil {
		return nil, EncoderInfo{}, err
	}

	codec := astiav.FindEncoder(desc.AVCodecID)
	if codec == nil {
		return nil, EncoderInfo{Descriptor: desc}, werror.NotSupportedf("backend: FindEncoder(%v) returned nil", desc.AVCodecID)
	}

	inst := a.Pool.Get(desc.BackendName, true)
	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		a.Pool.Put(inst)
		return nil, EncoderInfo{Descriptor: desc}, werror.NotSupportedf("backend: AllocCodecContext(%s) returned nil", desc.BackendName)
	}
	inst.Ctx, inst.Codec = ctx, codec

	opts := map[string]string{}

	switch desc.Kind {
	case KindAudio:
		sr := cfg.SampleRate
		if sr <= 0 {
			sr = 48000
		}
		ctx.SetSampleRate(sr)
		ch := cfg.NumberOfChannels
		if ch <= 0 {
			ch = 2
		}
		ctx.SetChannelLayout(ChannelLayoutFor(ch))
		if desc.PreferSample != 0 {
			ctx.SetSampleFormat(desc.PreferSample)
		}
		if cfg.Bitrate > 0 {
			ctx.SetBitRate(cfg.Bitrate)
		}
		ctx.SetTimeBase(astiav.NewRational(1, sr))

		switch desc.BackendName {
		case "libopus":
			if cfg.OpusFrameDurationUS > 0 {
				opts["frame_duration"] = fmt.Sprintf("%d", cfg.OpusFrameDurationUS/1000)
			}
			if cfg.OpusPacketLossPerc > 0 {
				opts["packet_loss"] = fmt.Sprintf("%d", cfg.OpusPacketLossPerc)
			}
			if cfg.OpusUseInbandFEC {
				opts["fec"] = "1"
			}
		case "flac":
			if cfg.FlacBlockSize > 0 {
				opts["frame_size"] = fmt.Sprintf("%d", cfg.FlacBlockSize)
			}
		}
	case KindVideo:
		if cfg.Width <= 0 || cfg.Height <= 0 {
			ctx.Free()
			inst.Ctx = nil
			a.Pool.Put(inst)
			return nil, EncoderInfo{Descriptor: desc}, werror.TypeErrorf("backend: video encoder requires width/height")
		}
		ctx.SetWidth(cfg.Width)
		ctx.SetHeight(cfg.Height)
		ctx.SetPixelFormat(astiav.PixelFormatYuv420P)
		if cfg.Bitrate > 0 {
			ctx.SetBitRate(cfg.Bitrate)
		}
		num, den := cfg.FramerateNum, cfg.FramerateDen
		if num <= 0 || den <= 0 {
			num, den = 30, 1
		}
		ctx.SetFramerate(astiav.NewRational(num, den))
		ctx.SetTimeBase(astiav.NewRational(1, VideoTimeBaseDen))

		if cfg.Realtime {
			switch desc.BackendName {
			case "libvpx", "libvpx-vp9":
				opts["deadline"] = "realtime"
				opts["cpu-used"] = "8"
			case "libaom-av1":
				opts["usage"] = "realtime"
				opts["cpu-used"] = "8"
			}
		}
	}

	dict := NewDict(opts)
	defer dict.Free()

	if err := ctx.Open(codec, dict); err != nil {
		ctx.Free()
		inst.Ctx = nil
		a.Pool.Put(inst)
		return nil, EncoderInfo{Descriptor: desc}, werror.NotSupportedf("backend: open encoder %s: %w", desc.BackendName, err)
	}

	return inst, EncoderInfo{Descriptor: desc, FrameSize: ctx.FrameSize()}, nil
}

// CloseInstance frees the CodecContext and returns the scratch
// Packet/Frame to the pool (spec.md §3 "the polyfill owns the
// lifetime: init on configure, free on configure-replace/reset/close").
func (a *Adapter) CloseInstance(inst *Instance, encode bool) {
	if inst == nil {
		return
	}
	if inst.Ctx != nil {
		inst.Ctx.Free()
		inst.Ctx = nil
	}
	a.Pool.Put(inst)
}

// isAgainOrEOF reports whether err is the astiav sentinel for "no more
// output right now" (EAGAIN) or "fully drained" (EOF) — both are
// ordinary loop-termination conditions, not failures, in the
// send-all/drain convenience spec.md §4.C describes.
func isAgainOrEOF(err error) bool {
	return errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof)
}

// DecodeMulti sends one packet (or, when drain is true, a nil/EOF
// packet) and drains every frame the decoder is willing to emit right
// now, invoking onFrame for each before the shared scratch Frame is
// reused. This is the "send all / drain convenience" spec.md §4.C
// says the core consumes.
func (a *Adapter) DecodeMulti(inst *Instance, data []byte, ptsMS int64, hasDuration bool, durationMS int64, drain bool, onFrame func(*astiav.Frame) error) error {
	if !drain {
		inst.Packet.Unref()
		if err := inst.Packet.FromData(data); err != nil {
			return werror.EncodingErrorf("backend: packet.FromData: %w", err)
		}
		inst.Packet.SetPts(ptsMS)
		inst.Packet.SetDts(ptsMS)
		if hasDuration {
			inst.Packet.SetDuration(durationMS)
		}
		if err := inst.Ctx.SendPacket(inst.Packet); err != nil && !isAgainOrEOF(err) {
			return werror.EncodingErrorf("backend: SendPacket: %w", err)
		}
	} else {
		if err := inst.Ctx.SendPacket(nil); err != nil && !isAgainOrEOF(err) {
			return werror.EncodingErrorf("backend: SendPacket(nil) drain: %w", err)
		}
	}

	for {
		err := inst.Ctx.ReceiveFrame(inst.Frame)
		if err != nil {
			inst.Frame.Unref()
			if isAgainOrEOF(err) {
				return nil
			}
			return werror.EncodingErrorf("backend: ReceiveFrame: %w", err)
		}
		cbErr := onFrame(inst.Frame)
		inst.Frame.Unref()
		if cbErr != nil {
			return cbErr
		}
	}
}

// EncodeMulti sends one frame (or, when drain is true, nil) and drains
// every packet the encoder is willing to emit right now.
func (a *Adapter) EncodeMulti(inst *Instance, frame *astiav.Frame, drain bool, onPacket func(*astiav.Packet) error) error {
	var sendErr error
	if drain {
		sendErr = inst.Ctx.SendFrame(nil)
	} else {
		sendErr = inst.Ctx.SendFrame(frame)
	}
	if sendErr != nil && !isAgainOrEOF(sendErr) {
		return werror.EncodingErrorf("backend: SendFrame: %w", sendErr)
	}

	for {
		err := inst.Ctx.ReceivePacket(inst.Packet)
		if err != nil {
			inst.Packet.Unref()
			if isAgainOrEOF(err) {
				return nil
			}
			return werror.EncodingErrorf("backend: ReceivePacket: %w", err)
		}
		cbErr := onPacket(inst.Packet)
		inst.Packet.Unref()
		if cbErr != nil {
			return cbErr
		}
	}
}

// Extradata returns the encoder-emitted out-of-band side data
// (AVCodecContext.extradata), used to fill the first output's
// decoder-config description (spec.md §4.F.4).
func Extradata(inst *Instance) []byte {
	if inst == nil || inst.Ctx == nil {
		return nil
	}
	return inst.Ctx.ExtraData()
}

// TimeBase returns the codec context's configured time base.
func TimeBase(inst *Instance) astiav.Rational {
	return inst.Ctx.TimeBase()
}
