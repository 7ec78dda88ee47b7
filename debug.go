package tilemap

import (
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/gfx"
)

// drawTileBoundaries outlines every visible tile of the most detailed
// source. Drawing all sources at once would just overplot; the source
// with the highest max zoom carries the finest tile grid.
func (r *Renderer) drawTileBoundaries(sources map[string]SourceCache, coords map[string]sourceCoords) {
	var best SourceCache
	for _, sc := range sources {
		if len(coords[sc.ID()].ascending) == 0 {
			continue
		}
		if best == nil || sc.MaxZoom() > best.MaxZoom() {
			best = sc
		}
	}
	if best == nil {
		return
	}

	program := r.debugOverlayProgram()
	for _, id := range coords[best.ID()].ascending {
		r.ctx.DrawQuad(gfx.QuadCommand{
			Kind:    gfx.QuadOutline,
			Program: program,
			Matrix:  r.transform.TileMatrix(id),
			Stencil: gfx.StencilDisabled(),
			Depth:   gfx.DepthDisabled(),
			Color:   gfx.ColorUnblended(),
		})
	}
}

// drawPadding outlines the padded viewport region so camera padding can
// be verified visually.
func (r *Renderer) drawPadding() {
	r.ctx.DrawQuad(gfx.QuadCommand{
		Kind:    gfx.QuadOutline,
		Program: r.debugOverlayProgram(),
		Matrix:  paddingMatrix(r.width, r.height, r.transform.Padding()),
		Stencil: gfx.StencilDisabled(),
		Depth:   gfx.DepthDisabled(),
		Color:   gfx.ColorAlphaBlended(),
	})
}

// SetQueryGeometry installs the clip-space quads outlined by the query
// geometry overlay. Feature-query collaborators call this with the
// regions of their last query; nil removes the overlay's input. The
// quads persist across frames until replaced.
func (r *Renderer) SetQueryGeometry(quads []f64.Mat4) {
	r.queryGeometry = quads
}

// drawQueryGeometry outlines the most recent feature-query regions.
func (r *Renderer) drawQueryGeometry() {
	program := r.debugOverlayProgram()
	for _, m := range r.queryGeometry {
		r.ctx.DrawQuad(gfx.QuadCommand{
			Kind:    gfx.QuadOutline,
			Program: program,
			Matrix:  m,
			Stencil: gfx.StencilDisabled(),
			Depth:   gfx.DepthDisabled(),
			Color:   gfx.ColorAlphaBlended(),
		})
	}
}

// debugOverlayProgram resolves the debug program, falling back to the
// context's passthrough quad program. Overlays are a diagnostic aid;
// they draw with whatever is available rather than vanish.
func (r *Renderer) debugOverlayProgram() *gfx.Program {
	program, err := r.UseProgram(debugProgram, "")
	if err != nil {
		return nil
	}
	return program
}

// paddingMatrix maps the unit quad onto the pixel rectangle left inside
// pad (top, right, bottom, left), in clip space with y down in pixels.
func paddingMatrix(width, height int, pad [4]float64) f64.Mat4 {
	w, h := float64(width), float64(height)
	x0, y0 := pad[3], pad[0]
	x1, y1 := w-pad[1], h-pad[2]
	return f64.Mat4{
		2 * (x1 - x0) / w, 0, 0, 2*x0/w - 1,
		0, -2 * (y1 - y0) / h, 0, 1 - 2*y0/h,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
