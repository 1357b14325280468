package webcodecs

import (
	"bytes"
	"testing"
)

func TestOwnedBufferCopyByDefault(t *testing.T) {
	src := []byte{1, 2, 3}
	b := newOwnedBuffer(src, false)
	src[0] = 9
	got, err := b.bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if got[0] != 1 {
		t.Fatalf("copy-constructed buffer observed mutation of source slice: got[0]=%d", got[0])
	}
}

func TestOwnedBufferTransferNoCopy(t *testing.T) {
	src := []byte{1, 2, 3}
	b := newOwnedBuffer(src, true)
	got, _ := b.bytes()
	if !bytes.Equal(got, src) {
		t.Fatalf("transferred buffer = %v, want %v", got, src)
	}
}

func TestOwnedBufferCloseDetaches(t *testing.T) {
	b := newOwnedBuffer([]byte{1}, true)
	b.close()
	if _, err := b.bytes(); err == nil {
		t.Fatal("expected error reading a closed buffer")
	}
}

func TestOwnedBufferClone(t *testing.T) {
	b := newOwnedBuffer([]byte{1, 2}, true)
	cl := b.clone()
	cl.data[0] = 99
	got, _ := b.bytes()
	if got[0] == 99 {
		t.Fatal("clone shares backing storage with the original")
	}
}
