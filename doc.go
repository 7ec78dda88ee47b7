// Package tilemap implements the per-frame render-pass orchestrator of a
// tiled map renderer.
//
// # Overview
//
// A frame composites many style layers over many visible tiles. Layers
// and tiles arrive unordered; producing a deterministic, artifact-free
// image requires sequencing draw calls through a fixed set of render
// passes while rationing shared GPU state: 8-bit stencil reference ids
// for tile clipping and overlap masking, depth buffer slabs for
// sublayer ordering, and a cache of compiled shader-program variants.
//
// The [Renderer] drives one frame per Render call:
//
//	offscreen → opaque → terrain depth → sky → translucent → debug
//
// The opaque pass is bypassed when a terrain collaborator is active,
// and the sky pass only runs when the horizon is visible. Per-layer
// drawing is dispatched over a closed set of [LayerKind] variants; the
// concrete draw routines, tile loading, and the terrain subsystem are
// external collaborators expressed as interfaces.
//
// # Quick Start
//
//	r := tilemap.New(ctx, 1024, 768)
//	r.RegisterDrawer(tilemap.KindFill, fillDrawer)
//	// ... register the remaining layer kinds ...
//	for running {
//	    r.Render(style, transform, tilemap.RenderOptions{})
//	}
//	r.Destroy()
//
// # Architecture
//
// The library is organized into:
//   - Public API: Renderer, Layer/Style/SourceCache/Terrain interfaces,
//     StencilAllocator, GPU timing records
//   - gfx: graphics-context facade, stencil/depth/color modes, program
//     compilation
//   - tile: quad-tree tile addressing
//
// # Concurrency
//
// Rendering is single-threaded and frame-synchronous: one Render call
// processes exactly one frame to completion. Resize must not run
// concurrently with Render. GPU timer queries are the only asynchronous
// element; their readback is polled, never blocking.
package tilemap
