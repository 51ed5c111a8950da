package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

const (
	revealFlagEnabled  uint32 = 1 << 0
	revealFlagAlpha    uint32 = 1 << 1
	revealFlagSize     uint32 = 1 << 2
	revealFlagPerPoint uint32 = 1 << 3
)

// revealUniform mirrors the Reveal struct in the splat shader (96 bytes).
type revealUniform struct {
	Model   [16]float32
	RevealY float32
	Band    float32
	MinY    float32
	MaxY    float32
	Flags   uint32
	Opacity float32
	_pad    [2]float32
}

// splatHandle is the renderer's splat.Handle. Reveal state is staged on the CPU and flushed to
// the asset's uniform buffer by Renderer.Update.
type splatHandle struct {
	mu sync.Mutex

	id       string
	model    [16]float32
	bounds   common.VerticalBounds
	perPoint bool

	params   splat.RevealParams
	uniform  revealUniform
	dirty    bool
	disposed bool

	onDispose func()
}

var _ splat.Handle = &splatHandle{}

func newSplatHandle(id string, model [16]float32, bounds common.VerticalBounds, perPoint bool, onDispose func()) *splatHandle {
	h := &splatHandle{
		id:        id,
		model:     model,
		bounds:    bounds,
		perPoint:  perPoint,
		params:    splat.Shown(bounds),
		onDispose: onDispose,
	}
	h.stage()
	return h
}

func (h *splatHandle) ID() string {
	return h.id
}

func (h *splatHandle) Bounds() common.VerticalBounds {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bounds
}

func (h *splatHandle) SetRevealBounds(bounds common.VerticalBounds) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.bounds = bounds
	h.stage()
}

func (h *splatHandle) SetRevealParams(params splat.RevealParams) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return
	}
	h.params = params
	h.stage()
}

func (h *splatHandle) Dispose() {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return
	}
	h.disposed = true
	cb := h.onDispose
	h.onDispose = nil
	h.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// detach marks the handle disposed without notifying the renderer. Used when the renderer drops
// the asset itself.
func (h *splatHandle) detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
	h.onDispose = nil
}

// takeUniform returns the staged uniform bytes if they changed since the last call.
func (h *splatHandle) takeUniform() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.dirty || h.disposed {
		return nil, false
	}
	h.dirty = false
	u := h.uniform
	return common.StructToBytes(&u), true
}

// restage marks the current uniform for upload again, e.g. after the GPU buffer was recreated.
func (h *splatHandle) restage() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty = true
}

// stage rebuilds the uniform from params and bounds. Caller must hold the mutex.
func (h *splatHandle) stage() {
	b := h.bounds.Normalized()
	u := revealUniform{
		Model:   h.model,
		RevealY: h.params.RevealY,
		Band:    h.params.Band,
		MinY:    b.MinY,
		MaxY:    b.MaxY,
		Opacity: 1,
	}
	if h.params.Enabled {
		u.Flags |= revealFlagEnabled
		if h.params.AffectAlpha {
			u.Flags |= revealFlagAlpha
		}
		if h.params.AffectSize {
			u.Flags |= revealFlagSize
		}
		if h.perPoint {
			u.Flags |= revealFlagPerPoint
		} else {
			// Whole-object fade: transparent with the plane at the bottom, opaque once it clears the top.
			u.Opacity = common.Clamp((h.params.RevealY-b.MinY)/b.Height(), 0, 1)
		}
	}
	h.uniform = u
	h.dirty = true
}
