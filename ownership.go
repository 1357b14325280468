package webcodecs

import "github.com/e1z0/gowebcodecs/werror"

// ownedBuffer is the shared "exclusively owned byte buffer" primitive
// behind AudioData, VideoFrame and the encoded chunk types (spec.md
// §3 Ownership). clone() always copies; transferring moves the slice
// header in without a copy and the caller is documented to no longer
// touch the source — Go has no JS-style ArrayBuffer detach, so
// "transfer" here means "the container takes ownership of this exact
// slice, zero-copy" rather than invalidating the caller's reference.
type ownedBuffer struct {
	data   []byte
	closed bool
}

func newOwnedBuffer(src []byte, transfer bool) ownedBuffer {
	if transfer {
		return ownedBuffer{data: src}
	}
	cp := make([]byte, len(src))
	copy(cp, src)
	return ownedBuffer{data: cp}
}

func (b *ownedBuffer) bytes() ([]byte, error) {
	if b.closed {
		return nil, werror.InvalidStatef("ownership: buffer closed")
	}
	return b.data, nil
}

func (b *ownedBuffer) clone() ownedBuffer {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return ownedBuffer{data: cp}
}

func (b *ownedBuffer) close() {
	b.closed = true
	b.data = nil
}
