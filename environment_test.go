package webcodecs

import (
	"errors"
	"testing"

	"github.com/e1z0/gowebcodecs/werror"
)

func TestEnvironmentPrefersRegisteredHost(t *testing.T) {
	var hostBuilt bool
	env := &Environment{
		HostAudioDecoderSupported: func(AudioDecoderConfig) (bool, error) { return true, nil },
		NewHostAudioDecoder: func(init AudioDecoderInit) (*AudioDecoder, error) {
			hostBuilt = true
			return NewAudioDecoder(init)
		},
	}
	dec, err := env.ResolveAudioDecoder(AudioDecoderConfig{Codec: "opus"}, AudioDecoderInit{
		Output: func(*AudioData) {},
	})
	if err != nil {
		t.Fatalf("ResolveAudioDecoder: %v", err)
	}
	if !hostBuilt {
		t.Fatal("registered host constructor was not used")
	}
	if dec.State() != StateUnconfigured {
		t.Fatalf("state = %v, want Unconfigured", dec.State())
	}
}

func TestEnvironmentFallsBackWhenHostUnsupported(t *testing.T) {
	env := &Environment{
		HostAudioDecoderSupported: func(AudioDecoderConfig) (bool, error) { return false, nil },
		NewHostAudioDecoder: func(init AudioDecoderInit) (*AudioDecoder, error) {
			t.Fatal("host constructor must not run when unsupported")
			return nil, nil
		},
	}
	// An unrecognized codec identifier fails resolution before any
	// backend call is made, exercising the "neither side supports it"
	// NotSupported path without requiring a real codec library.
	_, err := env.ResolveAudioDecoder(AudioDecoderConfig{Codec: "not-a-real-codec"}, AudioDecoderInit{
		Output: func(*AudioData) {},
	})
	if !errors.Is(err, werror.ErrNotSupported) && !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want NotSupported or TypeError", err)
	}
}

func TestEnvironmentRejectsMissingOutputCallback(t *testing.T) {
	env := DefaultEnvironment()
	_, err := env.ResolveAudioDecoder(AudioDecoderConfig{Codec: "opus"}, AudioDecoderInit{})
	if err == nil {
		t.Fatal("expected error constructing a decoder with no output callback")
	}
}
