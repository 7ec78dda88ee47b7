// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CompareFunc selects a depth or stencil comparison.
// The values mirror the WebGPU GPUCompareFunction enumeration.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// String returns the WebGPU-style name of the comparison.
func (f CompareFunc) String() string {
	switch f {
	case CompareNever:
		return "never"
	case CompareLess:
		return "less"
	case CompareEqual:
		return "equal"
	case CompareLessEqual:
		return "less-equal"
	case CompareGreater:
		return "greater"
	case CompareNotEqual:
		return "not-equal"
	case CompareGreaterEqual:
		return "greater-equal"
	case CompareAlways:
		return "always"
	default:
		return "unknown"
	}
}

// HAL converts the comparison to its gputypes equivalent.
func (f CompareFunc) HAL() gputypes.CompareFunction {
	switch f {
	case CompareNever:
		return gputypes.CompareFunctionNever
	case CompareLess:
		return gputypes.CompareFunctionLess
	case CompareEqual:
		return gputypes.CompareFunctionEqual
	case CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	case CompareGreater:
		return gputypes.CompareFunctionGreater
	case CompareNotEqual:
		return gputypes.CompareFunctionNotEqual
	case CompareGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	default:
		return gputypes.CompareFunctionAlways
	}
}

// StencilOp selects what happens to a stencil value after a test.
// The values mirror the WebGPU GPUStencilOperation enumeration.
type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilInvert
	StencilIncrementWrap
	StencilDecrementWrap
)

// String returns the WebGPU-style name of the operation.
func (o StencilOp) String() string {
	switch o {
	case StencilKeep:
		return "keep"
	case StencilZero:
		return "zero"
	case StencilReplace:
		return "replace"
	case StencilInvert:
		return "invert"
	case StencilIncrementWrap:
		return "increment-wrap"
	case StencilDecrementWrap:
		return "decrement-wrap"
	default:
		return "unknown"
	}
}

// HAL converts the operation to its hal equivalent.
func (o StencilOp) HAL() hal.StencilOperation {
	switch o {
	case StencilZero:
		return hal.StencilOperationZero
	case StencilReplace:
		return hal.StencilOperationReplace
	case StencilInvert:
		return hal.StencilOperationInvert
	case StencilIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case StencilDecrementWrap:
		return hal.StencilOperationDecrementWrap
	default:
		return hal.StencilOperationKeep
	}
}

// StencilMode describes the stencil test and write behavior for one draw
// call. The zero value is not meaningful; use StencilDisabled or build a
// mode explicitly.
type StencilMode struct {
	Test      CompareFunc
	Ref       int
	ReadMask  uint8
	WriteMask uint8
	Fail      StencilOp
	DepthFail StencilOp
	Pass      StencilOp
}

// StencilDisabled returns the mode that passes every fragment and never
// writes the stencil buffer.
func StencilDisabled() StencilMode {
	return StencilMode{Test: CompareAlways}
}

// Enabled reports whether the mode tests or writes the stencil buffer.
func (m StencilMode) Enabled() bool {
	return m.Test != CompareAlways || m.WriteMask != 0
}

// HALFaceState converts the mode to a hal stencil face descriptor.
// The same state is used for front and back faces: map geometry is drawn
// without face-dependent stencil behavior.
func (m StencilMode) HALFaceState() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     m.Test.HAL(),
		FailOp:      m.Fail.HAL(),
		DepthFailOp: m.DepthFail.HAL(),
		PassOp:      m.Pass.HAL(),
	}
}

// DepthMode describes the depth test and write behavior for one draw
// call. Range is the [near, far] window the draw is clamped into; the
// depth sublayer planner assigns each (layer, sublayer) pair a distinct
// degenerate range so depth testing reproduces paint order.
type DepthMode struct {
	Func  CompareFunc
	Mask  bool
	Range [2]float64
}

// Depth write mask values, named for call-site readability.
const (
	DepthReadOnly  = false
	DepthReadWrite = true
)

// DepthDisabled returns the mode that passes every fragment and never
// writes the depth buffer.
func DepthDisabled() DepthMode {
	return DepthMode{Func: CompareAlways, Mask: DepthReadOnly, Range: [2]float64{0, 1}}
}

// ColorMode describes blending and the color write mask for one draw call.
type ColorMode struct {
	Blend     bool
	WriteMask gputypes.ColorWriteMask
}

// ColorDisabled returns the mode that writes no color channels. Used for
// stencil-only draws such as tile clipping masks.
func ColorDisabled() ColorMode {
	return ColorMode{WriteMask: gputypes.ColorWriteMaskNone}
}

// ColorUnblended returns the mode that overwrites all color channels.
func ColorUnblended() ColorMode {
	return ColorMode{WriteMask: gputypes.ColorWriteMaskAll}
}

// ColorAlphaBlended returns the premultiplied source-over mode.
func ColorAlphaBlended() ColorMode {
	return ColorMode{Blend: true, WriteMask: gputypes.ColorWriteMaskAll}
}

// TargetState converts the mode to a color target descriptor for the
// given surface format.
func (m ColorMode) TargetState(format gputypes.TextureFormat) gputypes.ColorTargetState {
	state := gputypes.ColorTargetState{
		Format:    format,
		WriteMask: m.WriteMask,
	}
	if m.Blend {
		blend := gputypes.BlendStatePremultiplied()
		state.Blend = &blend
	}
	return state
}
