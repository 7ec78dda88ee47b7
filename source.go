package tilemap

import (
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// Tile pyramid fan-out limits. A rendered zoom level may be served by
// tiles up to MaxUnderzoom levels above it or MaxOverzoom levels below
// it; the depth sublayer planner sizes its per-layer depth slab from
// these so that every parent/child substitution still gets a unique
// depth value.
const (
	MaxUnderzoom = 3
	MaxOverzoom  = 10
)

// SourceCache is the renderer's view of one tile source: which tiles
// are visible this frame, and a hook to upload their GPU resources
// before drawing.
type SourceCache interface {
	// ID returns the source id.
	ID() string

	// GetVisibleCoordinates returns the currently visible tiles in
	// ascending overscaled-zoom order. With symbolPass set, the list may
	// include extra tiles just outside the viewport that still carry
	// fading labels, preserving cross-tile label-fade continuity.
	GetVisibleCoordinates(symbolPass bool) []tile.ID

	// Prepare uploads per-tile GPU resources for the frame.
	Prepare(ctx gfx.Context)

	// MaxZoom returns the source's maximum data zoom. The debug overlay
	// picks the visible source with the highest MaxZoom as the
	// representative source for tile boundary outlines.
	MaxZoom() float64
}

// Transform is the camera state for the frame.
type Transform interface {
	// Zoom returns the current map zoom.
	Zoom() float64

	// HorizonVisible reports whether any part of the sky is on screen.
	// The sky pass is bypassed entirely when it is not.
	HorizonVisible() bool

	// TileMatrix returns the matrix projecting the given tile's extent
	// into clip space. Clipping mask quads and debug outlines draw with
	// it.
	TileMatrix(id tile.ID) f64.Mat4

	// Padding returns the screen padding in pixels (top, right, bottom,
	// left) applied to the viewport center; the padding debug overlay
	// visualizes it.
	Padding() [4]float64
}

// sourceCoords is the per-source tile visibility bundle computed once
// per frame: ascending order for the opaque pass, descending (the
// reverse) for the translucent pass, and the symbol variant of
// descending for symbol layers.
type sourceCoords struct {
	ascending        []tile.ID
	descending       []tile.ID
	descendingSymbol []tile.ID
}

// prepareSources uploads tile resources and snapshots the three
// visibility lists for every source. The lists stay fixed for the rest
// of the frame even if the source updates concurrently elsewhere.
func (r *Renderer) prepareSources(sources map[string]SourceCache) map[string]sourceCoords {
	coords := make(map[string]sourceCoords, len(sources))
	for id, sc := range sources {
		sc.Prepare(r.ctx)
		asc := sc.GetVisibleCoordinates(false)
		coords[id] = sourceCoords{
			ascending:        asc,
			descending:       tile.Reversed(asc),
			descendingSymbol: tile.Reversed(sc.GetVisibleCoordinates(true)),
		}
	}
	return coords
}
