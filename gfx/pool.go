// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gfx

import (
	"fmt"

	"github.com/gogpu/tilemap/internal/cache"
)

// defaultPoolLimit bounds the number of pooled render textures. Offscreen
// layers rarely need more than a handful per frame; the soft limit keeps
// a resize storm from pinning stale sizes forever.
const defaultPoolLimit = 16

// poolKey identifies a reusable render texture by its dimensions.
type poolKey struct {
	width, height uint32
}

// TexturePool reuses offscreen render textures across frames. Layers
// flagged for the offscreen pass render into a texture of the viewport
// size; allocating one per layer per frame would thrash the GPU
// allocator, so textures are cached by size and handed out repeatedly.
//
// The pool owns the textures it creates; Destroy releases them all.
type TexturePool struct {
	ctx      Context
	textures *cache.Cache[poolKey, Texture]
}

// NewTexturePool creates a pool that allocates through ctx.
func NewTexturePool(ctx Context) *TexturePool {
	return &TexturePool{
		ctx:      ctx,
		textures: cache.New[poolKey, Texture](defaultPoolLimit),
	}
}

// Acquire returns a render texture of the given size, creating it on
// first use.
func (p *TexturePool) Acquire(width, height uint32) (Texture, error) {
	tex, err := p.textures.GetOrCreate(poolKey{width, height}, func() (Texture, error) {
		t, err := p.ctx.CreateTexture(RenderTextureDescriptor(width, height))
		if err != nil {
			return nil, fmt.Errorf("acquire %dx%d render texture: %w", width, height, err)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return tex, nil
}

// Len returns the number of textures currently pooled.
func (p *TexturePool) Len() int {
	return p.textures.Len()
}

// Destroy releases every pooled texture. The pool is reusable afterwards.
func (p *TexturePool) Destroy() {
	p.textures.Range(func(_ poolKey, t Texture) {
		t.Destroy()
	})
	p.textures.Clear()
}
