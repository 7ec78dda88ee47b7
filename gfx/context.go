// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"
)

// Context is the graphics-context facade the renderer draws through.
//
// The renderer owns pass sequencing and shared GPU state (stencil ids,
// depth slabs, program cache) but never talks to the GPU directly: every
// state change and draw goes through this interface. Window-system
// integrations provide the concrete implementation; tests substitute a
// recording fake.
//
// A Context is bound to a single surface. Methods are not safe for
// concurrent use; exactly one frame owns the context at a time.
type Context interface {
	// Clear clears the currently bound framebuffer. Only the attachments
	// with non-nil options are touched.
	Clear(opts ClearOptions)

	// Viewport sets the drawing region in pixels.
	Viewport(x, y, width, height int)

	// BindFramebuffer directs subsequent draws into fb.
	BindFramebuffer(fb Framebuffer)

	// BindDefaultFramebuffer directs subsequent draws back to the surface.
	// The offscreen pass calls this once all offscreen layers are done.
	BindDefaultFramebuffer()

	// SetDefault resets all cached pipeline state (blend, cull, viewport,
	// pixel-store flags) to known defaults. The renderer calls this at
	// the end of every frame so custom layer code never inherits dirty
	// state.
	SetDefault()

	// DrawQuad issues a single quad draw with explicit stencil, depth and
	// color state. The renderer uses it for the draw-based stencil clear,
	// tile clipping masks and debug overlays; layer drawers issue their
	// own geometry through richer collaborator-side paths.
	DrawQuad(cmd QuadCommand)

	// CreateTexture allocates a texture. Used by the offscreen render
	// texture pool.
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CaptureFrame copies the current surface contents into a new
	// texture. Used by speed-index timing instrumentation.
	CaptureFrame() (Texture, error)

	// CreateTimerQuery creates an elapsed-time GPU query. The boolean is
	// false when the backend has no timer support; all timing then
	// degrades to a no-op, never an error.
	CreateTimerQuery() (TimerQuery, bool)
}

// ClearOptions selects which attachments Clear touches. A nil field
// leaves that attachment untouched.
type ClearOptions struct {
	Color   *gputypes.Color
	Depth   *float64
	Stencil *int
}

// QuadKind selects the geometry of a DrawQuad call.
type QuadKind uint8

const (
	// QuadFill draws two triangles covering the unit quad.
	QuadFill QuadKind = iota
	// QuadOutline draws the quad edges as a line loop. Debug tile
	// boundaries use this.
	QuadOutline
)

// QuadCommand is a fully specified quad draw: program, transform and
// fixed-function state. Matrix maps the unit quad (or a tile's extent)
// into clip space.
//
// Program may be nil; the context then uses its built-in passthrough
// quad program. Stencil-only draws such as the draw-based stencil clear
// need no fragment output at all.
type QuadCommand struct {
	Kind    QuadKind
	Program *Program
	Matrix  f64.Mat4
	Stencil StencilMode
	Depth   DepthMode
	Color   ColorMode
}

// Framebuffer is an offscreen render target with a color attachment.
type Framebuffer interface {
	// ColorView returns the view of the color attachment.
	ColorView() TextureView

	// Destroy releases the framebuffer and its attachments.
	Destroy()
}

// Texture represents a GPU texture resource.
type Texture interface {
	// Width returns the texture width in pixels.
	Width() uint32

	// Height returns the texture height in pixels.
	Height() uint32

	// Format returns the texture pixel format.
	Format() gputypes.TextureFormat

	// CreateView creates a view for this texture.
	CreateView() TextureView

	// Destroy releases GPU resources associated with this texture.
	Destroy()
}

// TextureView represents a view into a texture.
type TextureView interface {
	// Destroy releases resources associated with this view.
	Destroy()
}

// TextureDescriptor describes parameters for creating a texture.
// This mirrors the WebGPU GPUTextureDescriptor specification, reduced
// to the fields the renderer needs.
type TextureDescriptor struct {
	// Label is an optional debug label for the texture.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage
}

// TextureUsage specifies how a texture can be used.
// These flags can be combined with bitwise OR.
type TextureUsage uint32

const (
	// TextureUsageCopySrc allows the texture to be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << iota

	// TextureUsageCopyDst allows the texture to be used as a copy destination.
	TextureUsageCopyDst

	// TextureUsageTextureBinding allows the texture to be sampled in a shader.
	TextureUsageTextureBinding

	// TextureUsageRenderAttachment allows the texture to be rendered into.
	TextureUsageRenderAttachment
)

// RenderTextureDescriptor returns the descriptor the offscreen pass uses
// for its render textures.
func RenderTextureDescriptor(width, height uint32) TextureDescriptor {
	return TextureDescriptor{
		Label:  "offscreen_render_texture",
		Width:  width,
		Height: height,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Usage:  TextureUsageTextureBinding | TextureUsageRenderAttachment,
	}
}

// TimerQuery measures GPU elapsed time across a bracket of draw calls.
//
// Results are not available in the frame the query was issued: Ready
// must be polled, and a false result only means "poll again later".
type TimerQuery interface {
	// Begin opens the timing bracket.
	Begin()

	// End closes the timing bracket.
	End()

	// Ready reports whether the result can be read without blocking.
	Ready() bool

	// Elapsed returns the measured GPU time. Only valid once Ready
	// returns true.
	Elapsed() time.Duration

	// Destroy releases the query object.
	Destroy()
}
