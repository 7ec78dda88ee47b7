package tilemap

import (
	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// LayerKind is the closed set of style layer variants. Per-kind draw
// behavior lives in a LayerDrawer registered for the kind; adding a
// layer kind means extending this set and registering a drawer, not
// growing a conditional chain inside the renderer.
type LayerKind uint8

const (
	KindBackground LayerKind = iota
	KindFill
	KindLine
	KindSymbol
	KindCircle
	KindRaster
	KindHeatmap
	KindHillshade
	KindFillExtrusion
	KindSky
	KindCustom

	numLayerKinds
)

// String returns the style-spec name of the kind.
func (k LayerKind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindFill:
		return "fill"
	case KindLine:
		return "line"
	case KindSymbol:
		return "symbol"
	case KindCircle:
		return "circle"
	case KindRaster:
		return "raster"
	case KindHeatmap:
		return "heatmap"
	case KindHillshade:
		return "hillshade"
	case KindFillExtrusion:
		return "fill-extrusion"
	case KindSky:
		return "sky"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// CoordinateIndependent reports whether layers of this kind draw without
// tile coordinates. Such layers are exempt from the empty-coordinate
// skip in renderLayer and from tile clipping.
func (k LayerKind) CoordinateIndependent() bool {
	return k == KindBackground || k == KindSky || k == KindCustom
}

// Layer is one ordered entry of a style. Implementations are provided
// by the style collaborator; the renderer only reads flags and
// identity from them.
type Layer interface {
	// ID returns the unique layer id within the style.
	ID() string

	// Kind returns the layer's type tag.
	Kind() LayerKind

	// SourceID returns the id of the layer's resolved source binding,
	// or "" for sourceless layers (background, sky, custom).
	SourceID() string

	// IsHidden reports whether the layer is hidden at the given zoom,
	// either by its visibility property or its zoom range.
	IsHidden(zoom float64) bool

	// HasOffscreenPass reports whether the layer needs a render-to-
	// texture step in the offscreen pass.
	HasOffscreenPass() bool

	// Is3D reports whether the layer renders depth-tested 3D content.
	// The first 3D layer caps the opaque pass.
	Is3D() bool

	// IsSky reports whether the layer belongs to the sky pass.
	IsSky() bool

	// IsTileClipped reports whether the layer's draws must be clipped
	// to their tile's bounds with the stencil buffer.
	IsTileClipped() bool

	// Resize invalidates any viewport-sized resources the layer holds.
	Resize()
}

// Style is the ordered layer list the renderer draws, bottom to top,
// together with the sources feeding those layers.
type Style interface {
	// Layers returns the layers in z-order, index 0 at the bottom.
	Layers() []Layer

	// SourceCaches returns the style's sources keyed by source id.
	SourceCaches() map[string]SourceCache
}

// VariableOffsets carries resolved variable label anchor offsets, keyed
// by symbol feature key. Produced during symbol placement and consumed
// by the symbol drawer; the renderer passes it through untouched.
type VariableOffsets map[string][2]float64

// DrawParams is the renderer state handed to a layer drawer for one
// draw dispatch.
type DrawParams struct {
	// Renderer exposes pass state, depth planning, stencil modes and
	// the program cache to the drawer.
	Renderer *Renderer

	// Context is the graphics facade to draw through.
	Context gfx.Context

	// Source is the layer's source cache, nil for sourceless layers.
	Source SourceCache

	// Coords are the tiles to draw, in pass-appropriate order. Nil for
	// coordinate-independent layers.
	Coords []tile.ID

	// VariableOffsets carries symbol placement offsets; nil outside
	// symbol draws.
	VariableOffsets VariableOffsets

	// IsInitialLoad reports whether the map is still in its initial
	// load; drawers use it to suppress fade-in animations.
	IsInitialLoad bool
}

// LayerDrawer implements the draw operation for one layer kind.
// Implementations are the per-layer-kind collaborators of the renderer;
// they issue geometry through the graphics facade using the stencil,
// depth and color modes the renderer computed.
//
// A drawer must inspect p.Renderer.Pass and draw only what belongs to
// the active pass.
type LayerDrawer interface {
	Draw(p *DrawParams, layer Layer)
}

// LayerDrawerFunc adapts a function to the LayerDrawer interface.
type LayerDrawerFunc func(p *DrawParams, layer Layer)

// Draw calls fn(p, layer).
func (fn LayerDrawerFunc) Draw(p *DrawParams, layer Layer) { fn(p, layer) }

// RegisterDrawer installs the drawer for a layer kind, replacing any
// previous registration. The registry is per-renderer state: two
// renderers can dispatch the same kind differently.
func (r *Renderer) RegisterDrawer(kind LayerKind, d LayerDrawer) {
	r.drawers[kind] = d
}

// drawerFor returns the drawer registered for kind, or nil.
func (r *Renderer) drawerFor(kind LayerKind) LayerDrawer {
	return r.drawers[kind]
}
