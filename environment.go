package webcodecs

import "github.com/e1z0/gowebcodecs/werror"

// Environment is the resolver of spec.md §4.G: for a given
// (decoder/encoder, kind) pair it checks whether a host-provided
// implementation is registered and supports the requested
// configuration before falling back to this polyfill, and always
// returns a consistent {codec-class, encoded-chunk-class,
// raw-media-class} triple — never a polyfill codec paired with a
// host's chunk/data types or vice versa.
//
// A Go process has no browser host to defer to, so HostAudioDecoder
// etc. are nil by default; they exist so an embedder (e.g. a test
// harness comparing against a reference implementation, or a future
// cgo binding to a platform codec) can register one.
type Environment struct {
	HostAudioDecoderSupported func(AudioDecoderConfig) (bool, error)
	HostVideoDecoderSupported func(VideoDecoderConfig) (bool, error)
	HostAudioEncoderSupported func(AudioEncoderConfig) (bool, error)
	HostVideoEncoderSupported func(VideoEncoderConfig) (bool, error)

	// NewHostAudioDecoder etc. construct the host's codec-class,
	// encoded-chunk-class and raw-media-class objects consistently with
	// the above support checks. Left nil, this Environment always
	// resolves to the polyfill.
	NewHostAudioDecoder func(AudioDecoderInit) (*AudioDecoder, error)
	NewHostVideoDecoder func(VideoDecoderInit) (*VideoDecoder, error)
	NewHostAudioEncoder func(AudioEncoderInit) (*AudioEncoder, error)
	NewHostVideoEncoder func(VideoEncoderInit) (*VideoEncoder, error)
}

// DefaultEnvironment always resolves to the polyfill (spec.md §4.G:
// "otherwise check whether the polyfill supports it").
func DefaultEnvironment() *Environment { return &Environment{} }

// ResolveAudioDecoder selects the host implementation when one is
// registered and reports support, otherwise the polyfill; it fails
// with NotSupported if neither does (spec.md §4.G).
func (e *Environment) ResolveAudioDecoder(cfg AudioDecoderConfig, init AudioDecoderInit) (*AudioDecoder, error) {
	if e.HostAudioDecoderSupported != nil && e.NewHostAudioDecoder != nil {
		if ok, err := e.HostAudioDecoderSupported(cfg); err == nil && ok {
			return e.NewHostAudioDecoder(init)
		}
	}
	if ok, err := IsAudioDecoderConfigSupported(cfg); err != nil || !ok {
		return nil, notSupportedOrWrap(err, "AudioDecoder")
	}
	return NewAudioDecoder(init)
}

// ResolveVideoDecoder is the VideoDecoder analogue of
// ResolveAudioDecoder.
func (e *Environment) ResolveVideoDecoder(cfg VideoDecoderConfig, init VideoDecoderInit) (*VideoDecoder, error) {
	if e.HostVideoDecoderSupported != nil && e.NewHostVideoDecoder != nil {
		if ok, err := e.HostVideoDecoderSupported(cfg); err == nil && ok {
			return e.NewHostVideoDecoder(init)
		}
	}
	if ok, err := IsVideoDecoderConfigSupported(cfg); err != nil || !ok {
		return nil, notSupportedOrWrap(err, "VideoDecoder")
	}
	return NewVideoDecoder(init)
}

// ResolveAudioEncoder is the AudioEncoder analogue.
func (e *Environment) ResolveAudioEncoder(cfg AudioEncoderConfig, init AudioEncoderInit) (*AudioEncoder, error) {
	if e.HostAudioEncoderSupported != nil && e.NewHostAudioEncoder != nil {
		if ok, err := e.HostAudioEncoderSupported(cfg); err == nil && ok {
			return e.NewHostAudioEncoder(init)
		}
	}
	if ok, err := IsAudioEncoderConfigSupported(cfg); err != nil || !ok {
		return nil, notSupportedOrWrap(err, "AudioEncoder")
	}
	return NewAudioEncoder(init)
}

// ResolveVideoEncoder is the VideoEncoder analogue.
func (e *Environment) ResolveVideoEncoder(cfg VideoEncoderConfig, init VideoEncoderInit) (*VideoEncoder, error) {
	if e.HostVideoEncoderSupported != nil && e.NewHostVideoEncoder != nil {
		if ok, err := e.HostVideoEncoderSupported(cfg); err == nil && ok {
			return e.NewHostVideoEncoder(init)
		}
	}
	if ok, err := IsVideoEncoderConfigSupported(cfg); err != nil || !ok {
		return nil, notSupportedOrWrap(err, "VideoEncoder")
	}
	return NewVideoEncoder(init)
}

func notSupportedOrWrap(err error, what string) error {
	if err != nil {
		return err
	}
	return werror.NotSupportedf("%s: configuration not supported by host or polyfill", what)
}
