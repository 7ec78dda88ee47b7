package tilemap

import (
	"fmt"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/tile"
)

// fakeContext records every call the renderer makes through the
// graphics facade.
type fakeContext struct {
	quads      []gfx.QuadCommand
	clears     []gfx.ClearOptions
	events     []string
	timerOK    bool
	queries    []*fakeQuery
	captureErr error
}

func newFakeContext() *fakeContext { return &fakeContext{timerOK: true} }

func (c *fakeContext) Clear(opts gfx.ClearOptions) {
	c.clears = append(c.clears, opts)
	c.events = append(c.events, "clear")
}
func (c *fakeContext) Viewport(x, y, w, h int) {
	c.events = append(c.events, fmt.Sprintf("viewport %dx%d", w, h))
}
func (c *fakeContext) BindFramebuffer(gfx.Framebuffer) { c.events = append(c.events, "bind") }
func (c *fakeContext) BindDefaultFramebuffer()         { c.events = append(c.events, "bindDefault") }
func (c *fakeContext) SetDefault()                     { c.events = append(c.events, "setDefault") }
func (c *fakeContext) DrawQuad(cmd gfx.QuadCommand) {
	c.quads = append(c.quads, cmd)
	c.events = append(c.events, "quad")
}
func (c *fakeContext) CreateTexture(desc gfx.TextureDescriptor) (gfx.Texture, error) {
	return &fakeTexture{w: desc.Width, h: desc.Height}, nil
}
func (c *fakeContext) CaptureFrame() (gfx.Texture, error) {
	if c.captureErr != nil {
		return nil, c.captureErr
	}
	c.events = append(c.events, "capture")
	return &fakeTexture{w: 1, h: 1}, nil
}
func (c *fakeContext) CreateTimerQuery() (gfx.TimerQuery, bool) {
	if !c.timerOK {
		return nil, false
	}
	q := &fakeQuery{}
	c.queries = append(c.queries, q)
	return q, true
}

var _ gfx.Context = (*fakeContext)(nil)

type fakeTexture struct {
	w, h      uint32
	destroyed bool
}

func (t *fakeTexture) Width() uint32                    { return t.w }
func (t *fakeTexture) Height() uint32                   { return t.h }
func (t *fakeTexture) Format() gputypes.TextureFormat   { return gputypes.TextureFormatRGBA8Unorm }
func (t *fakeTexture) CreateView() gfx.TextureView      { return fakeView{} }
func (t *fakeTexture) Destroy()                         { t.destroyed = true }

type fakeView struct{}

func (fakeView) Destroy() {}

type fakeQuery struct {
	begun, ended int
	ready        bool
	elapsed      time.Duration
	destroyed    bool
}

func (q *fakeQuery) Begin()                 { q.begun++ }
func (q *fakeQuery) End()                   { q.ended++ }
func (q *fakeQuery) Ready() bool            { return q.ready }
func (q *fakeQuery) Elapsed() time.Duration { return q.elapsed }
func (q *fakeQuery) Destroy()               { q.destroyed = true }

type fakeLayer struct {
	id        string
	kind      LayerKind
	source    string
	hidden    bool
	offscreen bool
	is3D      bool
	sky       bool
	clipped   bool
	resized   int
}

func (l *fakeLayer) ID() string              { return l.id }
func (l *fakeLayer) Kind() LayerKind         { return l.kind }
func (l *fakeLayer) SourceID() string        { return l.source }
func (l *fakeLayer) IsHidden(float64) bool   { return l.hidden }
func (l *fakeLayer) HasOffscreenPass() bool  { return l.offscreen }
func (l *fakeLayer) Is3D() bool              { return l.is3D }
func (l *fakeLayer) IsSky() bool             { return l.sky }
func (l *fakeLayer) IsTileClipped() bool     { return l.clipped }
func (l *fakeLayer) Resize()                 { l.resized++ }

type fakeSource struct {
	id       string
	coords   []tile.ID
	symbols  []tile.ID
	prepared int
	maxZoom  float64
}

func (s *fakeSource) ID() string { return s.id }
func (s *fakeSource) GetVisibleCoordinates(symbolPass bool) []tile.ID {
	if symbolPass {
		return s.symbols
	}
	return s.coords
}
func (s *fakeSource) Prepare(gfx.Context) { s.prepared++ }
func (s *fakeSource) MaxZoom() float64    { return s.maxZoom }

type fakeStyle struct {
	layers  []Layer
	sources map[string]SourceCache
}

func (s *fakeStyle) Layers() []Layer                        { return s.layers }
func (s *fakeStyle) SourceCaches() map[string]SourceCache   { return s.sources }

type fakeTransform struct {
	zoom    float64
	horizon bool
	padding [4]float64
}

func (t *fakeTransform) Zoom() float64             { return t.zoom }
func (t *fakeTransform) HorizonVisible() bool      { return t.horizon }
func (t *fakeTransform) TileMatrix(tile.ID) f64.Mat4 {
	return identityMat4()
}
func (t *fakeTransform) Padding() [4]float64 { return t.padding }

type fakeTerrain struct {
	enabled    bool
	rtt        bool
	drapedKind map[LayerKind]bool
	renderNext func(start int) int

	updates     int
	depthDraws  int
	renderCalls []int
	destroyed   bool
}

func (t *fakeTerrain) Enabled() bool            { return t.enabled }
func (t *fakeTerrain) RenderingToTexture() bool { return t.rtt }
func (t *fakeTerrain) Update(Style, Transform, bool) {
	t.updates++
}
func (t *fakeTerrain) Draped(layer Layer) bool { return t.drapedKind[layer.Kind()] }
func (t *fakeTerrain) DrawDepth(gfx.Context)   { t.depthDraws++ }
func (t *fakeTerrain) Render(start int) int {
	t.renderCalls = append(t.renderCalls, start)
	if t.renderNext != nil {
		return t.renderNext(start)
	}
	return start + 1
}
func (t *fakeTerrain) StencilModeForRTTOverlap(tile.ID) gfx.StencilMode {
	return gfx.StencilDisabled()
}
func (t *fakeTerrain) PrepareDrawTile(tile.ID) {}
func (t *fakeTerrain) Destroy()                { t.destroyed = true }

// drawRecord is one observed drawer dispatch.
type drawRecord struct {
	pass  RenderPass
	layer string
	tiles int
}

// recordDrawers registers a recording drawer for every layer kind and
// returns the shared dispatch log.
func recordDrawers(r *Renderer) *[]drawRecord {
	var log []drawRecord
	rec := LayerDrawerFunc(func(p *DrawParams, layer Layer) {
		log = append(log, drawRecord{
			pass:  p.Renderer.Pass(),
			layer: layer.ID(),
			tiles: len(p.Coords),
		})
	})
	for k := LayerKind(0); k < numLayerKinds; k++ {
		r.RegisterDrawer(k, rec)
	}
	return &log
}

func testStyle() (*fakeStyle, *fakeSource) {
	src := &fakeSource{
		id:      "composite",
		coords:  []tile.ID{tile.New(3, 1, 2), tile.New(3, 1, 3)},
		symbols: []tile.ID{tile.New(3, 1, 2)},
		maxZoom: 14,
	}
	style := &fakeStyle{
		layers: []Layer{
			&fakeLayer{id: "land", kind: KindBackground},
			&fakeLayer{id: "water", kind: KindFill, source: "composite", clipped: true},
			&fakeLayer{id: "sky", kind: KindSky, sky: true},
		},
		sources: map[string]SourceCache{"composite": src},
	}
	return style, src
}

func TestRenderPassOrder(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	log := recordDrawers(r)
	style, src := testStyle()

	r.Render(style, &fakeTransform{zoom: 3, horizon: true}, RenderOptions{})

	want := []drawRecord{
		{PassOpaque, "water", 2},
		{PassOpaque, "land", 0},
		{PassSky, "sky", 0},
		{PassTranslucent, "land", 0},
		{PassTranslucent, "water", 2},
	}
	if len(*log) != len(want) {
		t.Fatalf("dispatched %d draws %v, want %d", len(*log), *log, len(want))
	}
	for i, rec := range *log {
		if rec != want[i] {
			t.Errorf("draw %d = %+v, want %+v", i, rec, want[i])
		}
	}
	if src.prepared != 1 {
		t.Errorf("source prepared %d times, want 1", src.prepared)
	}
	if r.Pass() != PassNone {
		t.Errorf("pass after frame = %v, want PassNone", r.Pass())
	}
}

func TestRenderSkipsHiddenAndEmpty(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	log := recordDrawers(r)

	empty := &fakeSource{id: "empty"}
	style := &fakeStyle{
		layers: []Layer{
			&fakeLayer{id: "land", kind: KindBackground},
			&fakeLayer{id: "hidden", kind: KindFill, source: "empty", hidden: true},
			&fakeLayer{id: "novisible", kind: KindFill, source: "empty"},
		},
		sources: map[string]SourceCache{"empty": empty},
	}

	r.Render(style, &fakeTransform{}, RenderOptions{})

	for _, rec := range *log {
		if rec.layer != "land" {
			t.Errorf("unexpected dispatch %+v", rec)
		}
	}
	// Background draws in opaque and translucent despite no tiles.
	if len(*log) != 2 {
		t.Errorf("dispatched %d draws %v, want 2", len(*log), *log)
	}
}

func TestRenderSkyPassNeedsHorizon(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	log := recordDrawers(r)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{horizon: false}, RenderOptions{})

	for _, rec := range *log {
		if rec.pass == PassSky {
			t.Errorf("sky dispatch %+v with horizon hidden", rec)
		}
	}
}

func TestRenderStencilClearQuad(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{}, RenderOptions{})

	var clears int
	for _, q := range ctx.quads {
		if q.Stencil.Pass == gfx.StencilZero && q.Stencil.WriteMask == 0xFF {
			clears++
			if q.Stencil.Test != gfx.CompareAlways {
				t.Errorf("stencil clear quad tests %v, want Always", q.Stencil.Test)
			}
			if q.Color.WriteMask != 0 {
				t.Errorf("stencil clear quad writes color: %+v", q.Color)
			}
		}
	}
	if clears != 1 {
		t.Errorf("saw %d stencil clear quads, want 1", clears)
	}
}

func TestRenderOpaquePassCutoff(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)

	src := &fakeSource{id: "s", coords: []tile.ID{tile.New(1, 0, 0)}}
	style := &fakeStyle{
		layers: []Layer{
			&fakeLayer{id: "fill", kind: KindFill, source: "s"},
			&fakeLayer{id: "buildings", kind: KindFillExtrusion, source: "s", is3D: true},
			&fakeLayer{id: "labels", kind: KindSymbol, source: "s"},
		},
		sources: map[string]SourceCache{"s": src},
	}

	r.Render(style, &fakeTransform{}, RenderOptions{})

	if r.opaquePassCutoff != 1 {
		t.Errorf("opaquePassCutoff = %d, want 1 (first 3D layer)", r.opaquePassCutoff)
	}
}

func TestRenderTerrainActive(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	log := recordDrawers(r)

	terrain := &fakeTerrain{
		enabled:    true,
		drapedKind: map[LayerKind]bool{KindBackground: true, KindFill: true},
		// Consumes the whole draped run in one batch.
		renderNext: func(int) int { return 2 },
	}
	r.SetTerrain(terrain)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{horizon: true}, RenderOptions{CameraChanging: true})

	if terrain.updates != 1 {
		t.Errorf("terrain updated %d times, want 1", terrain.updates)
	}
	if terrain.depthDraws != 1 {
		t.Errorf("terrain depth drawn %d times, want 1", terrain.depthDraws)
	}
	if r.opaquePassCutoff != 0 {
		t.Errorf("opaquePassCutoff = %d, want 0 under terrain", r.opaquePassCutoff)
	}
	for _, rec := range *log {
		if rec.pass == PassOpaque {
			t.Errorf("opaque dispatch %+v under terrain", rec)
		}
		if rec.pass == PassTranslucent && rec.layer != "sky" {
			t.Errorf("draped layer %q dispatched directly, want terrain batch", rec.layer)
		}
	}
	// land and water are consecutive draped layers: one batch handoff
	// starting at the bottom.
	if len(terrain.renderCalls) != 1 || terrain.renderCalls[0] != 0 {
		t.Errorf("terrain.Render calls = %v, want [0]", terrain.renderCalls)
	}
}

func TestRenderTerrainLeavesStencilSourceUnset(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)

	// Clipped layer that terrain does not drape: it reaches the
	// clipping-mask path, but under terrain no masks are drawn and the
	// tracker must not claim any are resident.
	terrain := &fakeTerrain{enabled: true}
	r.SetTerrain(terrain)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{}, RenderOptions{})

	if r.currentStencilSource != "" {
		t.Errorf("currentStencilSource = %q with no masks drawn, want empty", r.currentStencilSource)
	}
}

func TestRenderTerrainStallGuard(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)

	terrain := &fakeTerrain{
		enabled:    true,
		drapedKind: map[LayerKind]bool{KindBackground: true, KindFill: true},
		renderNext: func(start int) int { return start }, // never progresses
	}
	r.SetTerrain(terrain)
	style, _ := testStyle()

	done := make(chan struct{})
	go func() {
		r.Render(style, &fakeTransform{}, RenderOptions{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("frame did not terminate with a stalling terrain")
	}
	// One handoff per draped layer, each forced one step forward.
	if len(terrain.renderCalls) != 2 {
		t.Errorf("terrain.Render calls = %v, want one per draped layer", terrain.renderCalls)
	}
}

func TestRenderOffscreenPass(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	log := recordDrawers(r)

	src := &fakeSource{id: "s", coords: []tile.ID{tile.New(1, 0, 0)}}
	style := &fakeStyle{
		layers: []Layer{
			&fakeLayer{id: "glow", kind: KindHeatmap, source: "s", offscreen: true},
			&fakeLayer{id: "plain", kind: KindFill, source: "s"},
		},
		sources: map[string]SourceCache{"s": src},
	}

	r.Render(style, &fakeTransform{}, RenderOptions{})

	if len(*log) == 0 || (*log)[0] != (drawRecord{PassOffscreen, "glow", 1}) {
		t.Fatalf("first dispatch = %v, want offscreen glow", *log)
	}
	// The default framebuffer is rebound before the first clear.
	var sawBind bool
	for _, ev := range ctx.events {
		if ev == "bindDefault" {
			sawBind = true
		}
		if ev == "clear" {
			break
		}
	}
	if !sawBind {
		t.Error("default framebuffer not rebound before the on-screen clear")
	}
}

func TestRenderFrameCounterWraps(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()

	r.frameCounter = frameCounterBound - 1
	r.Render(style, &fakeTransform{}, RenderOptions{})

	if got := r.FrameCounter(); got != 0 {
		t.Errorf("FrameCounter() = %d, want wrap to 0", got)
	}
}

func TestRenderFrameCapture(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{}, RenderOptions{SpeedIndexTiming: true})
	if len(r.FrameCopies()) != 0 {
		t.Fatal("captured without a loaded tile")
	}

	r.MarkTileLoaded()
	r.Render(style, &fakeTransform{}, RenderOptions{SpeedIndexTiming: true})
	if len(r.FrameCopies()) != 1 {
		t.Fatalf("captured %d frames, want 1", len(r.FrameCopies()))
	}

	// The loaded flag is consumed by the capture.
	r.Render(style, &fakeTransform{}, RenderOptions{SpeedIndexTiming: true})
	if len(r.FrameCopies()) != 1 {
		t.Errorf("captured %d frames after consuming flag, want still 1", len(r.FrameCopies()))
	}
}

func TestRenderDebugOverlays(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()

	r.Render(style, &fakeTransform{padding: [4]float64{10, 0, 0, 10}}, RenderOptions{
		ShowTileBoundaries: true,
		ShowPadding:        true,
	})

	// Two tile outlines plus one padding rectangle. Without a shader
	// library the overlays fall back to the context's passthrough quad
	// program instead of vanishing.
	var outlines int
	for _, q := range ctx.quads {
		if q.Kind == gfx.QuadOutline {
			outlines++
			if q.Program != nil {
				t.Errorf("overlay compiled a program without a library: %+v", q)
			}
		}
	}
	if outlines != 3 {
		t.Errorf("drew %d outline quads, want 3", outlines)
	}

	// Overlays are opt-in.
	ctx.quads = nil
	r.Render(style, &fakeTransform{}, RenderOptions{})
	for _, q := range ctx.quads {
		if q.Kind == gfx.QuadOutline {
			t.Errorf("outline quad drawn with overlays disabled: %+v", q)
		}
	}
}

func TestRenderQueryGeometryOverlay(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()

	m := identityMat4()
	m[3] = 0.25 // nudge so the quad is distinguishable from a clear
	r.SetQueryGeometry([]f64.Mat4{identityMat4(), m})

	r.Render(style, &fakeTransform{}, RenderOptions{ShowQueryGeometry: true})

	var outlines []gfx.QuadCommand
	for _, q := range ctx.quads {
		if q.Kind == gfx.QuadOutline {
			outlines = append(outlines, q)
		}
	}
	if len(outlines) != 2 {
		t.Fatalf("drew %d query outlines, want one per installed quad", len(outlines))
	}
	if outlines[1].Matrix != m {
		t.Errorf("second outline matrix = %v, want the installed quad", outlines[1].Matrix)
	}
	if !outlines[0].Color.Blend {
		t.Errorf("query outline not alpha blended: %+v", outlines[0].Color)
	}

	// Removing the geometry removes the overlay.
	r.SetQueryGeometry(nil)
	ctx.quads = nil
	r.Render(style, &fakeTransform{}, RenderOptions{ShowQueryGeometry: true})
	for _, q := range ctx.quads {
		if q.Kind == gfx.QuadOutline {
			t.Errorf("outline drawn after geometry removed: %+v", q)
		}
	}
}

func TestRendererDestroyIdempotent(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	terrain := &fakeTerrain{enabled: true}
	r.SetTerrain(terrain)

	r.Destroy()
	r.Destroy()

	if !terrain.destroyed {
		t.Error("terrain not destroyed")
	}
}

func TestRendererResize(t *testing.T) {
	ctx := newFakeContext()
	r := New(ctx, 256, 256)
	recordDrawers(r)
	style, _ := testStyle()
	r.Render(style, &fakeTransform{}, RenderOptions{})

	r.Resize(512, 384)

	if r.Width() != 512 || r.Height() != 384 {
		t.Errorf("size = %dx%d, want 512x384", r.Width(), r.Height())
	}
	for _, layer := range style.layers {
		if layer.(*fakeLayer).resized != 1 {
			t.Errorf("layer %s resized %d times, want 1", layer.ID(), layer.(*fakeLayer).resized)
		}
	}
	var sawViewport bool
	for _, ev := range ctx.events {
		if ev == "viewport 512x384" {
			sawViewport = true
		}
	}
	if !sawViewport {
		t.Error("viewport not updated on resize")
	}
}
