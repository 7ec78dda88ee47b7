package tilemap

import (
	"github.com/gogpu/tilemap/gfx"
)

// depthEpsilon is the depth budget of one sublayer slot. 1/65536 keeps
// every slot distinct in a 16-bit (or deeper) depth buffer.
const depthEpsilon = 1.0 / (1 << 16)

// numSublayers is the number of depth slots reserved per layer: one per
// possible under/over-zoom substitution level plus one, so that draws
// of parent and child tiles within one layer still order correctly.
const numSublayers = MaxUnderzoom + MaxOverzoom + 1

// depthForSublayer maps a (layer index, sublayer index) pair to its
// depth value. Values are strictly decreasing in both indices with a
// constant step of depthEpsilon, so depth testing reproduces painter's
// order: a higher layer always lands strictly in front of a lower one.
func depthForSublayer(layerIndex, sublayer int) float64 {
	return 1 - float64((1+layerIndex)*numSublayers+sublayer)*depthEpsilon
}

// DepthModeForSublayer returns the depth mode for the current layer's
// given sublayer. Outside the opaque-eligible range the depth test is
// disabled entirely: translucent content is ordered by draw order, not
// by the depth buffer. mask selects whether the draw writes depth
// (gfx.DepthReadWrite) or only tests it.
func (r *Renderer) DepthModeForSublayer(sublayer int, mask bool) gfx.DepthMode {
	if !r.OpaquePassEnabledForLayer() {
		return gfx.DepthDisabled()
	}
	depth := depthForSublayer(r.currentLayer, sublayer)
	return gfx.DepthMode{
		Func:  gfx.CompareLessEqual,
		Mask:  mask,
		Range: [2]float64{depth, depth},
	}
}

// DepthModeFor3D returns the depth mode for 3D content, which uses the
// full depth range with a real depth test instead of a sublayer slab.
func (r *Renderer) DepthModeFor3D(mask bool) gfx.DepthMode {
	return gfx.DepthMode{
		Func:  gfx.CompareLessEqual,
		Mask:  mask,
		Range: [2]float64{0, 1},
	}
}

// OpaquePassEnabledForLayer reports whether the current layer may
// resolve in the opaque pass. Layers at or above the opaque pass cutoff
// (the first 3D layer, or layer 0 whenever terrain is active) render
// translucently.
func (r *Renderer) OpaquePassEnabledForLayer() bool {
	return r.currentLayer < r.opaquePassCutoff
}
