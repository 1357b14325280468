package webcodecs

import "github.com/e1z0/gowebcodecs/werror"

// ChunkType is the EncodedVideoChunkType / EncodedAudioChunkType union.
type ChunkType string

const (
	ChunkKey   ChunkType = "key"
	ChunkDelta ChunkType = "delta"
)

// encodedChunk is the shared implementation behind EncodedAudioChunk
// and EncodedVideoChunk (spec.md §4.C): an owned, immutable byte
// payload with type/timestamp/duration.
type encodedChunk struct {
	typ       ChunkType
	timestamp int64
	duration  *int64
	buf       ownedBuffer
}

func newEncodedChunk(typ ChunkType, timestamp int64, duration *int64, data []byte, transfer bool) (encodedChunk, error) {
	if typ != ChunkKey && typ != ChunkDelta {
		return encodedChunk{}, werror.TypeErrorf("chunk: unknown type %q", typ)
	}
	return encodedChunk{
		typ:       typ,
		timestamp: timestamp,
		duration:  duration,
		buf:       newOwnedBuffer(data, transfer),
	}, nil
}

// dataBytes returns the chunk's raw payload without copying, for
// internal consumption by the decoder state machines.
func (c *encodedChunk) dataBytes() ([]byte, error) {
	return c.buf.bytes()
}

func (c *encodedChunk) copyTo(dst []byte) error {
	src, err := c.buf.bytes()
	if err != nil {
		return err
	}
	if len(dst) < len(src) {
		return werror.RangeErrorf("chunk.copyTo: destination too small: have %d bytes, need %d", len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

func (c *encodedChunk) byteLength() (int, error) {
	b, err := c.buf.bytes()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// EncodedAudioChunk is an owned, immutable encoded-audio payload
// (spec.md §4.C/§6).
type EncodedAudioChunk struct{ encodedChunk }

// NewEncodedAudioChunk constructs a chunk from (type, timestamp,
// optional duration, payload[, transfer]).
func NewEncodedAudioChunk(typ ChunkType, timestamp int64, duration *int64, data []byte, transfer bool) (*EncodedAudioChunk, error) {
	c, err := newEncodedChunk(typ, timestamp, duration, data, transfer)
	if err != nil {
		return nil, err
	}
	return &EncodedAudioChunk{c}, nil
}

func (c *EncodedAudioChunk) Type() ChunkType      { return c.typ }
func (c *EncodedAudioChunk) Timestamp() int64     { return c.timestamp }
func (c *EncodedAudioChunk) Duration() *int64     { return c.duration }
func (c *EncodedAudioChunk) CopyTo(dst []byte) error { return c.copyTo(dst) }
func (c *EncodedAudioChunk) ByteLength() (int, error) { return c.byteLength() }

// EncodedVideoChunk is an owned, immutable encoded-video payload
// (spec.md §4.C/§6).
type EncodedVideoChunk struct{ encodedChunk }

// NewEncodedVideoChunk constructs a chunk from (type, timestamp,
// optional duration, payload[, transfer]).
func NewEncodedVideoChunk(typ ChunkType, timestamp int64, duration *int64, data []byte, transfer bool) (*EncodedVideoChunk, error) {
	c, err := newEncodedChunk(typ, timestamp, duration, data, transfer)
	if err != nil {
		return nil, err
	}
	return &EncodedVideoChunk{c}, nil
}

func (c *EncodedVideoChunk) Type() ChunkType      { return c.typ }
func (c *EncodedVideoChunk) Timestamp() int64     { return c.timestamp }
func (c *EncodedVideoChunk) Duration() *int64     { return c.duration }
func (c *EncodedVideoChunk) CopyTo(dst []byte) error { return c.copyTo(dst) }
func (c *EncodedVideoChunk) ByteLength() (int, error) { return c.byteLength() }
