package tilemap

import (
	"time"

	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/gfx"
)

// frameCounterBound is the wrap bound of the frame counter. Drawers use
// the counter to phase periodic work (label fading, cache sweeps); it
// wraps instead of growing without bound.
const frameCounterBound = 1 << 30

// FrameSnapshot is a captured copy of a completed frame, taken when
// speed-index timing is enabled and a tile finished loading during the
// frame. The timestamp orders snapshots for later analysis.
type FrameSnapshot struct {
	Texture gfx.Texture
	Time    time.Time
}

// Renderer sequences the GPU draw calls of one map frame across render
// passes, layers and tiles, and owns the shared scarce GPU state this
// requires: stencil reference ids, depth sublayer slabs, and the
// compiled shader-program cache.
//
// All caches are per-instance: their lifetime equals the renderer's,
// released by Destroy. A Renderer is not safe for concurrent use; one
// Render call owns it at a time, and Resize must not overlap a Render.
type Renderer struct {
	ctx       gfx.Context
	device    gfx.DeviceHandle
	halDevice hal.Device

	width, height int

	// Frame state.
	pass             RenderPass
	currentLayer     int
	opaquePassCutoff int
	frameCounter     int
	style            Style
	transform        Transform
	opts             RenderOptions
	variableOffsets  VariableOffsets

	// Shared scarce GPU state.
	stencil              *StencilAllocator
	currentStencilSource string
	programs             *programCache
	texturePool          *gfx.TexturePool

	terrain           Terrain
	timers            *gpuTimers
	drawers           map[LayerKind]LayerDrawer
	overdrawInspector bool
	queryGeometry     []f64.Mat4

	tileLoaded  bool
	frameCopies []FrameSnapshot

	destroyed bool
}

// New creates a renderer drawing through ctx at the given surface size.
func New(ctx gfx.Context, width, height int, opts ...Option) *Renderer {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	r := &Renderer{
		ctx:       ctx,
		device:    options.device,
		halDevice: options.halDevice,
		width:     width,
		height:    height,
		programs:  newProgramCache(options.library, options.halDevice),
		drawers:   make(map[LayerKind]LayerDrawer, numLayerKinds),
	}
	r.stencil = NewStencilAllocator(r.clearStencil, r.invalidateStencilSource)
	r.texturePool = gfx.NewTexturePool(ctx)
	if options.timing {
		r.timers = newGPUTimers(ctx, true)
	}

	Logger().Info("renderer created", "width", width, "height", height, "timing", options.timing)
	return r
}

// Context returns the graphics facade the renderer draws through.
func (r *Renderer) Context() gfx.Context { return r.ctx }

// Device returns the injected host device handle.
func (r *Renderer) Device() gfx.DeviceHandle { return r.device }

// Width returns the surface width in pixels.
func (r *Renderer) Width() int { return r.width }

// Height returns the surface height in pixels.
func (r *Renderer) Height() int { return r.height }

// Pass returns the render pass currently executing, or PassNone between
// frames.
func (r *Renderer) Pass() RenderPass { return r.pass }

// CurrentLayer returns the z-order index of the layer currently being
// drawn. Valid only during a Render call.
func (r *Renderer) CurrentLayer() int { return r.currentLayer }

// FrameCounter returns the frame counter, which increments once per
// Render call and wraps at its bound.
func (r *Renderer) FrameCounter() int { return r.frameCounter }

// Transform returns the camera state of the frame being rendered.
// Valid only during a Render call.
func (r *Renderer) Transform() Transform { return r.transform }

// Stencil returns the stencil allocator. Drawers use it for clipping
// test modes and 3D masking.
func (r *Renderer) Stencil() *StencilAllocator { return r.stencil }

// TexturePool returns the offscreen render texture pool.
func (r *Renderer) TexturePool() *gfx.TexturePool { return r.texturePool }

// Options returns the per-frame options of the Render call in flight.
func (r *Renderer) Options() RenderOptions { return r.opts }

// MarkTileLoaded records that a tile finished loading. Source
// collaborators call this; combined with the SpeedIndexTiming option it
// triggers a frame snapshot at the end of the next rendered frame.
func (r *Renderer) MarkTileLoaded() { r.tileLoaded = true }

// FrameCopies returns the snapshots captured so far and keeps ownership
// of their textures; they are released by Destroy.
func (r *Renderer) FrameCopies() []FrameSnapshot { return r.frameCopies }

// invalidateStencilSource forces the next tile-clipped layer to
// regenerate its clipping mask even if it shares a source with the
// previously drawn layer.
func (r *Renderer) invalidateStencilSource() {
	r.currentStencilSource = ""
}

// Resize updates the surface size, propagates it to every style layer,
// and invalidates size-dependent caches: pooled render textures and
// compiled programs (program variants may bake viewport constants).
// Must not be called while a Render is in flight.
func (r *Renderer) Resize(width, height int) {
	r.width = width
	r.height = height
	r.ctx.Viewport(0, 0, width, height)

	if r.style != nil {
		for _, layer := range r.style.Layers() {
			layer.Resize()
		}
	}

	r.texturePool.Destroy()
	r.programs.destroy()

	Logger().Info("renderer resized", "width", width, "height", height)
}

// Destroy releases every GPU resource the renderer owns: compiled
// programs, pooled textures, captured frame snapshots, and the terrain
// collaborator. The renderer must not be used afterwards. Destroy is
// idempotent.
func (r *Renderer) Destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true

	if r.terrain != nil {
		r.terrain.Destroy()
		r.terrain = nil
	}
	r.programs.destroy()
	r.texturePool.Destroy()
	for _, snap := range r.frameCopies {
		if snap.Texture != nil {
			snap.Texture.Destroy()
		}
	}
	r.frameCopies = nil

	if r.timers != nil {
		for _, rec := range r.timers.collect() {
			if rec.Query != nil {
				rec.Query.Destroy()
			}
		}
	}
}
