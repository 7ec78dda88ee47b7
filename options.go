package tilemap

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilemap/gfx"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	// Headless renderer, programs compiled to SPIR-V only:
//	r := tilemap.New(ctx, 512, 512, tilemap.WithShaderLibrary(lib))
//
//	// GPU-backed renderer with per-layer timing:
//	r := tilemap.New(ctx, w, h,
//	    tilemap.WithDevice(handle),
//	    tilemap.WithShaderDevice(device),
//	    tilemap.WithTiming())
type Option func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	device    gfx.DeviceHandle
	halDevice hal.Device
	library   ShaderLibrary
	timing    bool
}

// defaultOptions returns the default renderer options.
func defaultOptions() rendererOptions {
	return rendererOptions{
		device:  gfx.NullDeviceHandle{},
		library: emptyShaderLibrary{},
	}
}

// WithDevice injects the host application's GPU device handle. The
// renderer receives the device from the host, it never creates one.
func WithDevice(h gfx.DeviceHandle) Option {
	return func(o *rendererOptions) {
		if h != nil {
			o.device = h
		}
	}
}

// WithShaderDevice sets the hal device used to instantiate compiled
// shader modules. Without one, programs are compiled to SPIR-V only,
// which is sufficient for headless use and tests.
func WithShaderDevice(d hal.Device) Option {
	return func(o *rendererOptions) {
		o.halDevice = d
	}
}

// WithShaderLibrary sets the WGSL source library the program cache
// compiles from. Without one, every UseProgram call fails and the
// affected draw is skipped for the frame.
func WithShaderLibrary(lib ShaderLibrary) Option {
	return func(o *rendererOptions) {
		if lib != nil {
			o.library = lib
		}
	}
}

// WithTiming enables per-layer GPU timing collection. When the context
// has no timer-query support the renderer silently falls back to doing
// no timing at all.
func WithTiming() Option {
	return func(o *rendererOptions) {
		o.timing = true
	}
}

// emptyShaderLibrary is the default library: it knows no programs.
type emptyShaderLibrary struct{}

func (emptyShaderLibrary) Source(string) (string, bool) { return "", false }

// RenderOptions carries the per-frame flags of one Render call.
type RenderOptions struct {
	// ShowTileBoundaries draws tile outlines after all passes.
	ShowTileBoundaries bool

	// ShowPadding visualizes the transform's screen padding.
	ShowPadding bool

	// ShowQueryGeometry outlines the regions of the most recent feature
	// query, as installed with Renderer.SetQueryGeometry.
	ShowQueryGeometry bool

	// ShowOverdrawInspector renders every layer through the overdraw
	// inspector program variants.
	ShowOverdrawInspector bool

	// SpeedIndexTiming captures a canvas snapshot at the end of a frame
	// in which a tile finished loading, for later speed-index analysis.
	SpeedIndexTiming bool

	// IsInitialLoad reports whether the map is still in its initial
	// load; drawers suppress fade-in animations during it.
	IsInitialLoad bool

	// CameraChanging reports whether the camera is moving this frame;
	// forwarded to the terrain collaborator's update.
	CameraChanging bool
}
