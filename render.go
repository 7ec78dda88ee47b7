package tilemap

import (
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// Program names the renderer itself draws with. Layer drawers use their
// own names; these two cover the stencil plumbing and debug overlays.
const (
	clippingMaskProgram = "clippingMask"
	debugProgram        = "debug"
)

// Render draws one complete frame. The frame runs to completion with no
// suspension points: offscreen, opaque, terrain depth, sky and
// translucent passes in fixed order, then debug overlays, then
// end-of-frame state reset. Failures inside collaborator draw calls are
// the collaborators' responsibility; conditions this core handles
// (missing programs, stencil exhaustion, absent timing support) degrade
// the frame visually rather than aborting it.
func (r *Renderer) Render(style Style, tr Transform, opts RenderOptions) {
	r.style = style
	r.transform = tr
	r.opts = opts
	r.overdrawInspector = opts.ShowOverdrawInspector

	if r.terrain != nil {
		r.terrain.Update(style, tr, opts.CameraChanging)
	}

	layers := style.Layers()
	sources := style.SourceCaches()
	coords := r.prepareSources(sources)

	// The opaque pass ends at the first 3D layer: everything above it
	// must blend over real geometry. Terrain moves all content into the
	// translucent pass instead of allocating a depth buffer per tile.
	r.opaquePassCutoff = len(layers)
	for i, layer := range layers {
		if layer.Is3D() {
			r.opaquePassCutoff = i
			break
		}
	}
	if r.terrainActive() {
		r.opaquePassCutoff = 0
	}

	// Offscreen pass. Layers that need a render-to-texture step draw it
	// now; the primary framebuffer is rebound once they are done.
	r.pass = PassOffscreen
	for r.currentLayer = len(layers) - 1; r.currentLayer >= 0; r.currentLayer-- {
		layer := layers[r.currentLayer]
		if !layer.HasOffscreenPass() || layer.IsHidden(tr.Zoom()) {
			continue
		}
		list := coords[layer.SourceID()].descending
		if !layer.Kind().CoordinateIndependent() && len(list) == 0 {
			continue
		}
		r.renderLayer(sources[layer.SourceID()], layer, list)
	}
	r.ctx.BindDefaultFramebuffer()

	// Start the on-screen passes from a known buffer state.
	clearColor := gputypes.Color{A: 0}
	clearDepth := 1.0
	r.ctx.Clear(gfx.ClearOptions{Color: &clearColor, Depth: &clearDepth})
	r.stencil.Clear()

	// Opaque pass, top to bottom, so depth writes let lower layers be
	// rejected early. Bypassed entirely under terrain.
	r.pass = PassOpaque
	if !r.terrainActive() {
		for r.currentLayer = len(layers) - 1; r.currentLayer >= 0; r.currentLayer-- {
			layer := layers[r.currentLayer]
			if layer.IsSky() {
				continue
			}
			source := sources[layer.SourceID()]
			list := coords[layer.SourceID()].ascending
			if layer.SourceID() != "" {
				r.renderTileClippingMasks(layer, source, list)
			}
			r.renderLayer(source, layer, list)
		}
	}

	// Terrain depth pre-pass: the depth texture drawn here is sampled
	// later for label occlusion testing.
	if r.terrainActive() {
		r.terrain.DrawDepth(r.ctx)
	}

	// Sky pass, only when the horizon is on screen. Sky draws after
	// opaque geometry so it fails the depth test against it, and before
	// translucent content so that still composites on top.
	r.pass = PassSky
	if tr.HorizonVisible() {
		for r.currentLayer = 0; r.currentLayer < len(layers); r.currentLayer++ {
			layer := layers[r.currentLayer]
			if !layer.IsSky() {
				continue
			}
			r.renderLayer(sources[layer.SourceID()], layer, coords[layer.SourceID()].descending)
		}
	}

	// Translucent pass, bottom to top. The cursor does not simply
	// increment: a run of consecutive terrain-draped layers is handed
	// to the terrain collaborator as a batch, which reports where to
	// resume.
	r.pass = PassTranslucent
	for r.currentLayer = 0; r.currentLayer < len(layers); {
		layer := layers[r.currentLayer]
		if layer.IsSky() {
			r.currentLayer++
			continue
		}
		if r.terrainActive() && r.terrain.Draped(layer) {
			next := r.terrain.Render(r.currentLayer)
			if next <= r.currentLayer {
				// A terrain that reports no progress would wedge the
				// frame; step past the layer instead.
				Logger().Warn("terrain made no progress", "layer", layer.ID(), "cursor", r.currentLayer)
				next = r.currentLayer + 1
			}
			r.currentLayer = next
			continue
		}

		source := sources[layer.SourceID()]
		list := coords[layer.SourceID()].descending
		if layer.Kind() == KindSymbol {
			// Symbol layers keep extra tiles alive for cross-tile label
			// fade continuity.
			list = coords[layer.SourceID()].descendingSymbol
		}
		if layer.SourceID() != "" {
			r.renderTileClippingMasks(layer, source, list)
		}
		r.renderLayer(source, layer, list)
		r.currentLayer++
	}

	// Debug overlays draw over the finished composite.
	if opts.ShowTileBoundaries {
		r.drawTileBoundaries(sources, coords)
	}
	if opts.ShowQueryGeometry {
		r.drawQueryGeometry()
	}
	if opts.ShowPadding {
		r.drawPadding()
	}

	// Leave the context in a known state so custom layer code outside
	// this frame never inherits dirty bindings.
	r.ctx.SetDefault()
	r.frameCounter = (r.frameCounter + 1) % frameCounterBound

	if r.tileLoaded && opts.SpeedIndexTiming {
		if tex, err := r.ctx.CaptureFrame(); err != nil {
			Logger().Warn("frame capture failed", "err", err)
		} else {
			r.frameCopies = append(r.frameCopies, FrameSnapshot{Texture: tex, Time: time.Now()})
		}
		r.tileLoaded = false
	}

	r.pass = PassNone
}

// renderLayer dispatches one layer draw to its kind's drawer,
// optionally bracketed by GPU timing. Hidden layers and tile-bound
// layers with no visible tiles are skipped; coordinate-independent
// kinds (background, sky, custom) draw regardless of coordinates.
func (r *Renderer) renderLayer(source SourceCache, layer Layer, coords []tile.ID) {
	if layer.IsHidden(r.transform.Zoom()) {
		return
	}
	if !layer.Kind().CoordinateIndependent() && len(coords) == 0 {
		return
	}

	drawer := r.drawerFor(layer.Kind())
	if drawer == nil {
		Logger().Warn("no drawer registered", "kind", layer.Kind().String(), "layer", layer.ID())
		return
	}

	if r.timers != nil {
		r.timers.start(layer.ID())
	}
	drawer.Draw(&DrawParams{
		Renderer:        r,
		Context:         r.ctx,
		Source:          source,
		Coords:          coords,
		VariableOffsets: r.variableOffsets,
		IsInitialLoad:   r.opts.IsInitialLoad,
	}, layer)
	if r.timers != nil {
		r.timers.stop()
	}
}

// renderTileClippingMasks writes one stencil reference per visible tile
// so tile-clipped draws never bleed across tile bounds. Consecutive
// layers sharing a source reuse the resident masks; the
// currentStencilSource tracker skips the regeneration. While terrain is
// active the terrain collaborator's RTT-overlap stencil supersedes tile
// clipping and no masks are drawn here.
func (r *Renderer) renderTileClippingMasks(layer Layer, source SourceCache, coords []tile.ID) {
	if source == nil || !layer.IsTileClipped() || len(coords) == 0 {
		return
	}
	if r.currentStencilSource == source.ID() {
		return
	}
	if r.terrainActive() {
		return
	}
	r.currentStencilSource = source.ID()

	program, err := r.UseProgram(clippingMaskProgram, "")
	if err != nil {
		Logger().Warn("clipping mask program unavailable", "err", err)
		return
	}

	refs := r.stencil.AcquireClippingIDs(coords)
	for _, id := range coords {
		r.ctx.DrawQuad(gfx.QuadCommand{
			Kind:    gfx.QuadFill,
			Program: program,
			Matrix:  r.transform.TileMatrix(id),
			Stencil: ClippingMaskMode(refs[id.Key()]),
			Depth:   gfx.DepthDisabled(),
			Color:   gfx.ColorDisabled(),
		})
	}
}

// clearStencil issues the draw-based stencil clear: a full-viewport
// quad with an always-pass, zero-write stencil op. Drivers disagree on
// direct stencil clears mid-pass, a draw is portable everywhere. The
// clipping source tracker is invalidated since the resident masks are
// gone.
func (r *Renderer) clearStencil() {
	program, err := r.UseProgram(clippingMaskProgram, "")
	if err != nil {
		// The context's passthrough quad program still clears correctly.
		program = nil
	}
	r.ctx.DrawQuad(gfx.QuadCommand{
		Kind:    gfx.QuadFill,
		Program: program,
		Matrix:  identityMat4(),
		Stencil: gfx.StencilMode{
			Test:      gfx.CompareAlways,
			Ref:       0,
			WriteMask: 0xFF,
			Fail:      gfx.StencilZero,
			DepthFail: gfx.StencilZero,
			Pass:      gfx.StencilZero,
		},
		Depth: gfx.DepthDisabled(),
		Color: gfx.ColorDisabled(),
	})
	r.invalidateStencilSource()
}

// identityMat4 returns the identity matrix: the full-viewport quad in
// clip space.
func identityMat4() f64.Mat4 {
	return f64.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// SetVariableOffsets installs the symbol placement offsets passed to
// symbol drawers for subsequent frames. The placement collaborator
// calls this after each placement run.
func (r *Renderer) SetVariableOffsets(offsets VariableOffsets) {
	r.variableOffsets = offsets
}
