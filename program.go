package tilemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/tilemap/gfx"
	"github.com/gogpu/tilemap/internal/cache"
)

// ShaderLibrary resolves program names to WGSL sources. The shader
// sources themselves are a collaborator concern; the renderer only
// caches their compiled variants.
type ShaderLibrary interface {
	// Source returns the WGSL source for the named program, or false if
	// the library does not know it.
	Source(name string) (string, bool)
}

// ShaderLibraryFunc adapts a function to the ShaderLibrary interface.
type ShaderLibraryFunc func(name string) (string, bool)

// Source calls fn(name).
func (fn ShaderLibraryFunc) Source(name string) (string, bool) { return fn(name) }

// ProgramKey identifies one compiled program variant: the program name,
// the sorted feature-define set, and the per-layer configuration
// signature.
type ProgramKey struct {
	Name    string
	Defines string
	Config  string
}

// programCache memoizes compiled shader-program variants. Entries are
// never evicted or overwritten: identical keys resolve to the same
// compiled program for the lifetime of the renderer, until Destroy or
// Resize invalidates the cache wholesale. The variant space is bounded
// in practice by the finite set of (name, defines, configuration)
// tuples a style produces.
type programCache struct {
	library  ShaderLibrary
	device   hal.Device
	programs *cache.Cache[ProgramKey, *gfx.Program]
}

func newProgramCache(library ShaderLibrary, device hal.Device) *programCache {
	return &programCache{
		library:  library,
		device:   device,
		programs: cache.New[ProgramKey, *gfx.Program](0),
	}
}

// useProgram returns the compiled program for key, compiling and
// storing it on a miss.
func (pc *programCache) useProgram(key ProgramKey, defines []string) (*gfx.Program, error) {
	return pc.programs.GetOrCreate(key, func() (*gfx.Program, error) {
		source, ok := pc.library.Source(key.Name)
		if !ok {
			return nil, fmt.Errorf("shader library has no program %q", key.Name)
		}
		return gfx.CompileProgram(pc.device, key.Name, source, defines)
	})
}

// destroy releases every compiled program and empties the cache.
func (pc *programCache) destroy() {
	pc.programs.Range(func(_ ProgramKey, p *gfx.Program) {
		p.Destroy(pc.device)
	})
	pc.programs.Clear()
}

func (pc *programCache) len() int {
	return pc.programs.Len()
}

// globalDefines derives the frame-state defines every program variant
// is resolved against, merges them with the caller's fixed defines, and
// returns the sorted union.
//
// TERRAIN is set while terrain is active and drawing to the screen;
// RENDER_TO_TEXTURE replaces it while the terrain collaborator renders
// draped layers into its texture cache. OVERDRAW_INSPECTOR is set while
// the overdraw debug display is enabled.
func (r *Renderer) globalDefines(fixed []string) []string {
	defines := make([]string, 0, len(fixed)+2)
	defines = append(defines, fixed...)
	if r.terrainActive() {
		if r.renderingToTexture() {
			defines = append(defines, "RENDER_TO_TEXTURE")
		} else {
			defines = append(defines, "TERRAIN")
		}
	}
	if r.overdrawInspector {
		defines = append(defines, "OVERDRAW_INSPECTOR")
	}
	sort.Strings(defines)
	return defines
}

// UseProgram returns the compiled variant of the named program for the
// current renderer state and the given per-layer configuration
// signature. Identical (name, defines, configuration) triples always
// return the same instance; changing terrain mode, the overdraw
// inspector, or any fixed define selects a distinct variant.
func (r *Renderer) UseProgram(name, configSignature string, fixedDefines ...string) (*gfx.Program, error) {
	defines := r.globalDefines(fixedDefines)
	key := ProgramKey{
		Name:    name,
		Defines: strings.Join(defines, ","),
		Config:  configSignature,
	}
	return r.programs.useProgram(key, defines)
}
