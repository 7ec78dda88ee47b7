// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Program is one compiled shader-program variant: a WGSL source resolved
// against a set of feature defines, compiled to SPIR-V, and (when a
// device is available) instantiated as a shader module.
//
// Programs are created by the renderer's program cache and shared across
// draw calls; callers must not destroy one while draws referencing it
// are in flight.
type Program struct {
	name    string
	defines []string
	spirv   []uint32
	module  hal.ShaderModule
}

// Name returns the program name the variant was compiled from.
func (p *Program) Name() string { return p.name }

// Defines returns the feature defines the variant was resolved with.
func (p *Program) Defines() []string { return p.defines }

// SPIRV returns the compiled SPIR-V words.
func (p *Program) SPIRV() []uint32 { return p.spirv }

// Module returns the shader module, or nil when the program was
// compiled without a device.
func (p *Program) Module() hal.ShaderModule { return p.module }

// Destroy releases the shader module, if any.
func (p *Program) Destroy(device hal.Device) {
	if p.module != nil && device != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
}

// CompileProgram preprocesses source against defines, compiles the
// result to SPIR-V, and creates a shader module on device when device
// is non-nil.
func CompileProgram(device hal.Device, name, source string, defines []string) (*Program, error) {
	resolved := PreprocessWGSL(source, defines)

	spirv, err := CompileWGSL(resolved)
	if err != nil {
		return nil, fmt.Errorf("compile program %q: %w", name, err)
	}

	p := &Program{name: name, defines: defines, spirv: spirv}
	if device != nil {
		module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  name,
			Source: hal.ShaderSource{SPIRV: spirv},
		})
		if err != nil {
			return nil, fmt.Errorf("create shader module %q: %w", name, err)
		}
		p.module = module
	}
	return p, nil
}

// CompileWGSL compiles WGSL source to a SPIR-V uint32 slice.
func CompileWGSL(source string) ([]uint32, error) {
	// Compile WGSL to SPIR-V bytes.
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// Convert bytes to uint32 slice for SPIR-V.
	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	return spirvCode, nil
}

// PreprocessWGSL resolves feature-define guards in WGSL source.
//
// WGSL has no preprocessor, so shader sources in the program library use
// line-oriented guards:
//
//	#ifdef TERRAIN
//	  ... kept when "TERRAIN" is in defines ...
//	#else
//	  ... kept otherwise ...
//	#endif
//
// Guards nest. An inactive outer guard suppresses everything inside it,
// including inner guards for defines that are present. Directive lines
// themselves never appear in the output. Unknown lines pass through
// untouched, so plain WGSL is returned as-is.
func PreprocessWGSL(source string, defines []string) string {
	defined := make(map[string]bool, len(defines))
	for _, d := range defines {
		defined[d] = true
	}

	var out strings.Builder
	out.Grow(len(source))

	var stack []guard

	emitting := func() bool {
		for _, g := range stack {
			if !g.emitting {
				return false
			}
		}
		return true
	}

	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#ifdef "):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "#ifdef "))
			active := emitting() && defined[name]
			stack = append(stack, guard{emitting: active, taken: active})

		case strings.HasPrefix(trimmed, "#ifndef "):
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "#ifndef "))
			active := emitting() && !defined[name]
			stack = append(stack, guard{emitting: active, taken: active})

		case trimmed == "#else":
			if n := len(stack); n > 0 {
				top := &stack[n-1]
				top.emitting = !top.taken && emittingAbove(stack)
				top.taken = top.taken || top.emitting
			}

		case trimmed == "#endif":
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}

		default:
			if emitting() {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		}
	}

	return out.String()
}

// guard is one entry of the preprocessor's #ifdef nesting stack.
type guard struct {
	emitting bool // This branch is active.
	taken    bool // Some branch of this guard was active (for #else).
}

// emittingAbove reports whether every guard other than the innermost is
// active. Used when flipping the innermost guard at #else.
func emittingAbove(stack []guard) bool {
	for _, g := range stack[:len(stack)-1] {
		if !g.emitting {
			return false
		}
	}
	return true
}
