package tilemap

import (
	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// maxStencilRef is the number of distinct stencil reference values an
// 8-bit stencil buffer offers. Reference 0 is the cleared value, so
// allocatable ids live in [1, 255].
const maxStencilRef = 256

// StencilAllocator issues and recycles 8-bit stencil reference ids.
//
// Ids are unique within an epoch, the span since the last stencil
// buffer clear. When a request would run past the 8-bit range the
// allocator clears the buffer first and restarts at 1, so exhaustion is
// never surfaced as an error. Clearing happens through an injected
// callback because the portable clear is itself a draw (a full-viewport
// quad with an always-pass, zero-write stencil op); the renderer owns
// the program and context needed to issue it.
type StencilAllocator struct {
	nextID      int
	clippingIDs map[uint64]int // tile key -> clipping ref, current epoch

	// clear issues the draw-based stencil clear and resets the
	// renderer's clipping source tracker.
	clear func()

	// invalidate resets the clipping source tracker without clearing,
	// forcing the next clipped layer to regenerate its mask. Overlap
	// and 3D allocations dirty the buffer regions clipping masks rely
	// on, so they always invalidate.
	invalidate func()
}

// NewStencilAllocator creates an allocator with the given clear and
// invalidate hooks. Either hook may be nil.
func NewStencilAllocator(clear, invalidate func()) *StencilAllocator {
	return &StencilAllocator{
		nextID:      1,
		clippingIDs: make(map[uint64]int),
		clear:       clear,
		invalidate:  invalidate,
	}
}

// NextID returns the next reference id that would be issued.
func (s *StencilAllocator) NextID() int {
	return s.nextID
}

// resetEpoch starts a fresh allocation epoch after a buffer clear.
func (s *StencilAllocator) resetEpoch() {
	s.nextID = 1
	s.clippingIDs = make(map[uint64]int)
}

// ensure clears the buffer and restarts allocation if issuing n more
// ids would leave the 8-bit range.
func (s *StencilAllocator) ensure(n int) {
	if s.nextID+n > maxStencilRef {
		Logger().Debug("stencil ids exhausted, clearing", "nextID", s.nextID, "requested", n)
		s.Clear()
	}
}

// Clear clears the stencil buffer through the injected hook and starts
// a fresh allocation epoch. The renderer calls this once per frame; the
// allocator calls it itself when ids run out.
func (s *StencilAllocator) Clear() {
	if s.clear != nil {
		s.clear()
	}
	s.resetEpoch()
}

// AcquireClippingIDs assigns one fresh reference id per tile, in the
// given tile order, ids increasing from 1. The returned mapping, also
// retained for StencilModeForClipping lookups, is keyed by tile key
// and replaces the previous source's mapping: only one source's
// clipping masks are resident in the buffer at a time.
func (s *StencilAllocator) AcquireClippingIDs(coords []tile.ID) map[uint64]int {
	s.ensure(len(coords))
	refs := make(map[uint64]int, len(coords))
	for _, id := range coords {
		ref := s.nextID
		s.nextID++
		refs[id.Key()] = ref
	}
	s.clippingIDs = refs
	return refs
}

// ClippingMaskMode returns the write mode for drawing a tile's clipping
// mask quad: always pass, write ref into every covered stencil pixel.
func ClippingMaskMode(ref int) gfx.StencilMode {
	return gfx.StencilMode{
		Test:      gfx.CompareAlways,
		Ref:       ref,
		WriteMask: 0xFF,
		Fail:      gfx.StencilKeep,
		DepthFail: gfx.StencilKeep,
		Pass:      gfx.StencilReplace,
	}
}

// StencilModeForClipping returns the test mode for drawing tile-clipped
// content: pass only where the tile's clipping mask was written. If no
// id was acquired for the tile this epoch, clipping is disabled for the
// draw; the content is then clipped only by the viewport.
func (s *StencilAllocator) StencilModeForClipping(id tile.ID) gfx.StencilMode {
	ref, ok := s.clippingIDs[id.Key()]
	if !ok {
		return gfx.StencilDisabled()
	}
	return gfx.StencilMode{
		Test:     gfx.CompareEqual,
		Ref:      ref,
		ReadMask: 0xFF,
		Fail:     gfx.StencilKeep,
		// Stays a pure test: WriteMask 0 means the pass op never lands.
		DepthFail: gfx.StencilKeep,
		Pass:      gfx.StencilKeep,
	}
}

// StencilModeFor3D issues a single fresh id and returns the mask mode
// for depth-tested 3D content: each covered pixel is drawn once and
// marked, so overlapping extrusions never double-blend.
func (s *StencilAllocator) StencilModeFor3D() gfx.StencilMode {
	if s.invalidate != nil {
		s.invalidate()
	}
	s.ensure(1)
	ref := s.nextID
	s.nextID++
	return gfx.StencilMode{
		Test:      gfx.CompareNotEqual,
		Ref:       ref,
		ReadMask:  0xFF,
		WriteMask: 0xFF,
		Fail:      gfx.StencilKeep,
		DepthFail: gfx.StencilKeep,
		Pass:      gfx.StencilReplace,
	}
}

// PlanOverlap sorts tiles by descending overscaled zoom and builds the
// per-zoom stencil modes that let higher-zoom children mask out their
// ancestors. Raster-like layers draw content already clipped to tile
// bounds, so masking is only needed when the visible set spans more
// than one zoom level; a single-zoom set gets the disabled mode.
//
// For a set spanning zooms [minZ, maxZ] it allocates a contiguous block
// of maxZ-minZ+1 ids and assigns the lowest id to minZ. Each zoom's
// mode passes where the zoom's id is >= the stored stencil value and
// writes the id. Children drawn first stamp their higher id, so an
// ancestor's lower reference fails the test exactly where a child
// already drew.
func (s *StencilAllocator) PlanOverlap(coords []tile.ID) (map[uint8]gfx.StencilMode, []tile.ID) {
	sorted := make([]tile.ID, len(coords))
	copy(sorted, coords)
	tile.SortDescending(sorted)

	modes := make(map[uint8]gfx.StencilMode)
	if len(sorted) == 0 {
		return modes, sorted
	}

	maxZ := sorted[0].OverscaledZ
	minZ := sorted[len(sorted)-1].OverscaledZ
	span := int(maxZ-minZ) + 1
	if span == 1 {
		modes[minZ] = gfx.StencilDisabled()
		return modes, sorted
	}

	if s.invalidate != nil {
		s.invalidate()
	}
	s.ensure(span)
	for i := 0; i < span; i++ {
		// A span wider than the id range (only reachable with a full
		// uint8 overscale sweep) saturates its deepest zooms at the top
		// id; those zooms then share a mask instead of running past it.
		ref := s.nextID + i
		if ref > maxStencilRef-1 {
			ref = maxStencilRef - 1
		}
		modes[minZ+uint8(i)] = gfx.StencilMode{
			Test:      gfx.CompareGreaterEqual,
			Ref:       ref,
			ReadMask:  0xFF,
			WriteMask: 0xFF,
			Fail:      gfx.StencilKeep,
			DepthFail: gfx.StencilKeep,
			Pass:      gfx.StencilReplace,
		}
	}
	s.nextID += span
	if s.nextID > maxStencilRef {
		s.nextID = maxStencilRef
	}
	return modes, sorted
}
