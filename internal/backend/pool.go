package backend

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	astiav "github.com/asticode/go-astiav"
)

// poolKey identifies a reusable slot: same backend name, same
// direction (decode vs encode) instances are interchangeable once
// reset, matching the teacher's single-purpose contexts (vctx/aCtx for
// decode, w.aEncCtx for encode are never shared).
type poolKey struct {
	backendName string
	encode      bool
}

// Instance is one pooled backend codec context plus its scratch
// packet/frame, matching the (codec-handle, context, packet-buf,
// frame-buf) tuple spec.md §6 describes the backend init calls as
// returning.
type Instance struct {
	Tag string // short hex id, for log lines (teacher's helpers.go genID())

	Ctx    *astiav.CodecContext
	Codec  *astiav.Codec
	Packet *astiav.Packet
	Frame  *astiav.Frame

	key     poolKey
	opened  bool
}

func newTag() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Pool is a process-wide, single-threaded (per spec.md §5) free list
// of backend instances, amortizing astiav.AllocCodecContext +
// astiav.AllocFrame + astiav.AllocPacket construction across
// configure/reset/close cycles (spec.md §4.C.4).
type Pool struct {
	mu      sync.Mutex
	maxFree int
	free    map[poolKey][]*Instance

	hits   int64
	misses int64
}

// NewPool creates a pool retaining at most maxFree idle instances per
// (backend name, direction) key.
func NewPool(maxFree int) *Pool {
	if maxFree <= 0 {
		maxFree = 1
	}
	return &Pool{maxFree: maxFree, free: make(map[poolKey][]*Instance)}
}

// Get returns a free instance for (backendName, encode) if one is
// idle, else allocates fresh astiav scratch (Packet/Frame only — the
// CodecContext itself is always freshly opened per configure, since
// its parameters are configuration-specific).
func (p *Pool) Get(backendName string, encode bool) *Instance {
	key := poolKey{backendName, encode}

	p.mu.Lock()
	if list := p.free[key]; len(list) > 0 {
		inst := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		p.hits++
		p.mu.Unlock()
		return inst
	}
	p.misses++
	p.mu.Unlock()

	return &Instance{
		Tag:    newTag(),
		Packet: astiav.AllocPacket(),
		Frame:  astiav.AllocFrame(),
		key:    key,
	}
}

// Put returns inst to the pool after the caller has closed its
// CodecContext (Ctx is always nil'd by the caller before Put — only
// the reusable Packet/Frame scratch is pooled).
func (p *Pool) Put(inst *Instance) {
	inst.Ctx = nil
	inst.Codec = nil
	inst.opened = false
	if inst.Frame != nil {
		inst.Frame.Unref()
	}
	if inst.Packet != nil {
		inst.Packet.Unref()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.free[inst.key]
	if len(list) >= p.maxFree {
		inst.free()
		return
	}
	p.free[inst.key] = append(list, inst)
}

func (inst *Instance) free() {
	if inst.Ctx != nil {
		inst.Ctx.Free()
		inst.Ctx = nil
	}
	if inst.Frame != nil {
		inst.Frame.Free()
		inst.Frame = nil
	}
	if inst.Packet != nil {
		inst.Packet.Free()
		inst.Packet = nil
	}
}

// Stats reports pool hit/miss counters (supplemental feature, §SPEC_FULL).
type Stats struct {
	Hits, Misses int64
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Hits: p.hits, Misses: p.misses}
}
