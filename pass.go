package tilemap

// RenderPass identifies the pass the renderer is currently executing.
// Exactly one pass is active at any instant during a frame, and the
// order per frame is fixed: offscreen, opaque, sky, translucent. The
// terrain depth pre-pass runs between opaque and sky but never changes
// the active RenderPass; it belongs to the terrain collaborator.
type RenderPass uint8

const (
	// PassNone is the state between frames.
	PassNone RenderPass = iota

	// PassOffscreen renders layers that need a render-to-texture step
	// before compositing (for example heatmaps).
	PassOffscreen

	// PassOpaque renders opaque layer content top-to-bottom with depth
	// writes, so the translucent pass can rely on early depth rejection.
	PassOpaque

	// PassSky renders sky layers after opaque geometry so they fail the
	// depth test against it, but before translucent content composites
	// over them.
	PassSky

	// PassTranslucent renders the remaining layers bottom-to-top.
	PassTranslucent
)

// String returns the pass name.
func (p RenderPass) String() string {
	switch p {
	case PassNone:
		return "none"
	case PassOffscreen:
		return "offscreen"
	case PassOpaque:
		return "opaque"
	case PassSky:
		return "sky"
	case PassTranslucent:
		return "translucent"
	default:
		return "unknown"
	}
}
