package tilemap

import (
	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// Terrain is the elevation subsystem collaborator. The renderer treats
// it as opaque: when a terrain is set, the opaque pass is bypassed
// entirely (all content moves to the translucent pass), a depth
// pre-pass runs before the sky pass, and draped layers are rendered
// through the terrain's own render-to-texture cache instead of the
// direct dispatch path.
type Terrain interface {
	// Enabled reports whether terrain rendering is active this frame.
	Enabled() bool

	// RenderingToTexture reports whether the terrain is currently
	// rendering draped layers into its texture cache. Program variants
	// switch between TERRAIN and RENDER_TO_TEXTURE defines on it.
	RenderingToTexture() bool

	// Update synchronizes the terrain with the style and camera before
	// the frame's passes run.
	Update(style Style, tr Transform, cameraChanging bool)

	// Draped reports whether the layer is rendered onto the terrain
	// mesh rather than directly to the screen.
	Draped(layer Layer) bool

	// DrawDepth renders the terrain depth texture used later for label
	// occlusion testing.
	DrawDepth(ctx gfx.Context)

	// Render draws the run of consecutive draped layers starting at
	// startLayer and returns the index of the first layer it did not
	// handle. The translucent pass resumes its cursor there.
	Render(startLayer int) int

	// StencilModeForRTTOverlap returns the stencil mode that masks
	// overlapping render-to-texture tiles for the given tile. While
	// terrain is active this supersedes the renderer's tile clipping
	// stencil for clipped draws.
	StencilModeForRTTOverlap(id tile.ID) gfx.StencilMode

	// PrepareDrawTile readies per-tile terrain state immediately before
	// a draped tile draw.
	PrepareDrawTile(id tile.ID)

	// Destroy releases the terrain's GPU resources.
	Destroy()
}

// SetTerrain installs (or, with nil, removes) the terrain collaborator.
// Must not be called while a frame is in flight.
func (r *Renderer) SetTerrain(t Terrain) {
	r.terrain = t
}

// Terrain returns the installed terrain collaborator, or nil.
func (r *Renderer) Terrain() Terrain {
	return r.terrain
}

// terrainActive reports whether a terrain is installed and enabled for
// the current frame.
func (r *Renderer) terrainActive() bool {
	return r.terrain != nil && r.terrain.Enabled()
}

// renderingToTexture reports whether the terrain collaborator is
// currently drawing draped layers into its texture cache.
func (r *Renderer) renderingToTexture() bool {
	return r.terrainActive() && r.terrain.RenderingToTexture()
}
