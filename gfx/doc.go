// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gfx defines the graphics-context facade the tilemap renderer
// draws through, and the value types describing fixed-function state.
//
// The renderer never issues GPU calls itself: it computes stencil,
// depth and color modes ([StencilMode], [DepthMode], [ColorMode]) and
// hands them, together with a compiled [Program], to a [Context]
// implementation. The enums mirror the WebGPU specification and convert
// to gputypes / gogpu/wgpu hal descriptors for GPU-backed contexts.
//
// The package also owns the program compile path (WGSL feature-define
// preprocessing, naga compilation to SPIR-V, shader module creation)
// and a render-texture pool for the offscreen pass.
package gfx
