// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tile provides quad-tree tile addressing for tiled map sources.
//
// A tile is identified by its canonical (Z, X, Y) quad-tree address plus an
// overscaled zoom: when a source has no data beyond its maximum zoom, the
// renderer reuses the deepest available tile at higher zoom levels, and
// OverscaledZ records the zoom the tile is actually displayed at.
package tile

import (
	"fmt"
	"sort"
)

// maxZoom is the deepest canonical zoom level an ID may carry.
// It bounds X and Y to 26 bits each so that Key can pack a full ID
// into a single uint64.
const maxZoom = 26

// maxOverscaledZoom bounds OverscaledZ to the 6 bits Key reserves for
// it. Real pyramids stay far below it: the deepest canonical zoom plus
// the overzoom fan-out is 36.
const maxOverscaledZoom = 64

// ID is the address of a map tile: canonical quad-tree coordinates plus
// the overscaled zoom it is rendered at. OverscaledZ == Z for normal
// tiles and OverscaledZ > Z for overscaled ones.
//
// ID is a small value type; pass it by value.
type ID struct {
	Z           uint8
	X, Y        uint32
	OverscaledZ uint8
}

// New creates an ID with OverscaledZ equal to the canonical zoom.
func New(z uint8, x, y uint32) ID {
	return ID{Z: z, X: x, Y: y, OverscaledZ: z}
}

// Valid reports whether the ID addresses an existing quad-tree node and
// can be packed by Key.
func (id ID) Valid() bool {
	return id.Z < maxZoom &&
		id.OverscaledZ >= id.Z && id.OverscaledZ < maxOverscaledZoom &&
		id.X < 1<<id.Z && id.Y < 1<<id.Z
}

// Key returns a total-ordering key for the ID. Keys order by overscaled
// zoom first, then canonical zoom, then Y, then X, and are unique for
// every valid ID. The key is used to index per-tile renderer state such
// as stencil clipping ids.
func (id ID) Key() uint64 {
	return uint64(id.OverscaledZ)<<58 |
		uint64(id.Z)<<52 |
		uint64(id.Y)<<26 |
		uint64(id.X)
}

// String returns the address in "z/x/y" form, with the overscaled zoom
// appended as "@oz" when the tile is overscaled.
func (id ID) String() string {
	if id.OverscaledZ != id.Z {
		return fmt.Sprintf("%d/%d/%d@%d", id.Z, id.X, id.Y, id.OverscaledZ)
	}
	return fmt.Sprintf("%d/%d/%d", id.Z, id.X, id.Y)
}

// ScaledTo returns the ancestor (or overscaled descendant) of id at the
// given overscaled zoom. Scaling below the canonical zoom walks up the
// quad tree; scaling above it keeps the canonical address and only
// raises OverscaledZ.
func (id ID) ScaledTo(z uint8) ID {
	if z >= id.Z {
		return ID{Z: id.Z, X: id.X, Y: id.Y, OverscaledZ: z}
	}
	shift := id.Z - z
	return ID{Z: z, X: id.X >> shift, Y: id.Y >> shift, OverscaledZ: z}
}

// IsChildOf reports whether id lies underneath parent in the quad tree.
// A tile is not considered a child of itself.
func (id ID) IsChildOf(parent ID) bool {
	if parent.Z >= id.Z {
		return false
	}
	shift := id.Z - parent.Z
	return id.X>>shift == parent.X && id.Y>>shift == parent.Y
}

// SortDescending sorts ids in place by descending overscaled zoom.
// Ties are broken by ascending Key so the order is deterministic.
// Overlap stencil planning relies on this order: higher-zoom children
// must be drawn before the ancestors they mask out.
func SortDescending(ids []ID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].OverscaledZ != ids[j].OverscaledZ {
			return ids[i].OverscaledZ > ids[j].OverscaledZ
		}
		return ids[i].Key() < ids[j].Key()
	})
}

// Reversed returns a copy of ids in reverse order. The renderer derives
// the descending draw list from a source's ascending visibility list
// this way.
func Reversed(ids []ID) []ID {
	out := make([]ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}
