package webcodecs

import (
	"errors"
	"math"
	"testing"

	"github.com/e1z0/gowebcodecs/format"
	"github.com/e1z0/gowebcodecs/werror"
)

func makeS16Data(t *testing.T, frames, channels int) *AudioData {
	t.Helper()
	buf := make([]byte, frames*channels*2)
	for i := range buf {
		buf[i] = byte(i)
	}
	ad, err := NewAudioData(AudioDataInit{
		Format:           format.S16,
		SampleRate:       48000,
		NumberOfFrames:   frames,
		NumberOfChannels: channels,
		Timestamp:        1000,
		Data:             buf,
	})
	if err != nil {
		t.Fatalf("NewAudioData: %v", err)
	}
	return ad
}

func TestAudioDataDuration(t *testing.T) {
	ad := makeS16Data(t, 48000, 2)
	if got := ad.Duration(); got != 1_000_000 {
		t.Fatalf("Duration = %d, want 1000000", got)
	}
}

func TestAudioDataRejectsShortBuffer(t *testing.T) {
	_, err := NewAudioData(AudioDataInit{
		Format:           format.S16,
		SampleRate:       48000,
		NumberOfFrames:   10,
		NumberOfChannels: 2,
		Data:             make([]byte, 4),
	})
	if !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want TypeError", err)
	}
}

func TestAudioDataCopyToExactFit(t *testing.T) {
	ad := makeS16Data(t, 10, 2)
	n := 4
	opts := AudioDataCopyToOptions{FrameOffset: 6, FrameCount: &n, Format: format.S16}
	size, err := ad.AllocationSize(opts)
	if err != nil {
		t.Fatalf("AllocationSize: %v", err)
	}
	dst := make([]byte, size)
	if err := ad.CopyTo(dst, opts); err != nil {
		t.Fatalf("CopyTo exact fit at the boundary: %v", err)
	}
}

func TestAudioDataCopyToOverflowRejected(t *testing.T) {
	ad := makeS16Data(t, 10, 2)
	n := 5
	opts := AudioDataCopyToOptions{FrameOffset: 6, FrameCount: &n, Format: format.S16}
	if _, err := ad.AllocationSize(opts); !errors.Is(err, werror.ErrRange) {
		t.Fatalf("err = %v, want RangeError", err)
	}
}

func TestAudioDataCopyToConvertsToF32Planar(t *testing.T) {
	ad := makeS16Data(t, 4, 1)
	opts := AudioDataCopyToOptions{Format: format.F32Planar}
	size, err := ad.AllocationSize(opts)
	if err != nil {
		t.Fatalf("AllocationSize: %v", err)
	}
	dst := make([]byte, size)
	if err := ad.CopyTo(dst, opts); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	v := math.Float32frombits(uint32(dst[0]) | uint32(dst[1])<<8 | uint32(dst[2])<<16 | uint32(dst[3])<<24)
	if v < -1 || v > 1 {
		t.Fatalf("converted f32 sample %v out of [-1,1]", v)
	}
}

func TestAudioDataCloseThenOperationFails(t *testing.T) {
	ad := makeS16Data(t, 4, 1)
	ad.Close()
	if !ad.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if _, err := ad.AllocationSize(AudioDataCopyToOptions{Format: format.S16}); err == nil {
		t.Fatal("expected error operating on a closed AudioData")
	}
}

func TestAudioDataClonePreservesAttributes(t *testing.T) {
	ad := makeS16Data(t, 4, 2)
	cl, err := ad.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if cl.SampleRate() != ad.SampleRate() || cl.NumberOfFrames() != ad.NumberOfFrames() {
		t.Fatal("clone attributes diverged from original")
	}
	ad.Close()
	if cl.Closed() {
		t.Fatal("closing the original closed the clone")
	}
}
