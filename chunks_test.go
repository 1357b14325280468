package webcodecs

import (
	"bytes"
	"errors"
	"testing"

	"github.com/e1z0/gowebcodecs/werror"
)

func TestEncodedVideoChunkCopyTo(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	c, err := NewEncodedVideoChunk(ChunkKey, 1000, nil, payload, false)
	if err != nil {
		t.Fatalf("NewEncodedVideoChunk: %v", err)
	}
	n, err := c.ByteLength()
	if err != nil || n != len(payload) {
		t.Fatalf("ByteLength = (%d, %v), want (%d, nil)", n, err, len(payload))
	}
	dst := make([]byte, n)
	if err := c.CopyTo(dst); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}
	if !bytes.Equal(dst, payload) {
		t.Fatalf("CopyTo = %v, want %v", dst, payload)
	}
}

func TestEncodedChunkRejectsUnknownType(t *testing.T) {
	_, err := NewEncodedAudioChunk(ChunkType("bogus"), 0, nil, []byte{1}, false)
	if !errors.Is(err, werror.ErrType) {
		t.Fatalf("err = %v, want TypeError", err)
	}
}

func TestEncodedChunkCopyToTooSmallRejected(t *testing.T) {
	c, _ := NewEncodedAudioChunk(ChunkDelta, 0, nil, []byte{1, 2, 3}, false)
	if err := c.CopyTo(make([]byte, 1)); !errors.Is(err, werror.ErrRange) {
		t.Fatalf("err = %v, want RangeError", err)
	}
}
