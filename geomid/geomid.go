// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package geomid packs an (instance, triangle) pair into the single 32-bit
// word stored per pixel in the visibility buffer.
//
// Layout of a [PackedGeometryId]:
//
//	bit 31            20 19                     0
//	    [ instance (12) | triangle (20)          ]
//
// The all-ones word is reserved as [Clear] and marks pixels without geometry.
// Because the two fields span exactly 32 bits, the largest legitimate pair
// (4095, 1048575) is the only one that would collide with the sentinel; the
// range checks in [NewInstanceId] and [NewTriangleId] accept it, so callers
// that fill the final instance must not also fill the final triangle. The
// scene accumulator never hands out instance 4095.
package geomid

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Bit widths of the packed fields.
const (
	TriangleBits = 20
	InstanceBits = 12

	TriangleMask = 1<<TriangleBits - 1
	InstanceMask = 1<<InstanceBits - 1

	// MaxInstances is the number of addressable instances per frame.
	MaxInstances = InstanceMask + 1

	// MaxTriangles is the number of addressable triangles per model.
	MaxTriangles = TriangleMask + 1
)

// The fields must cover the word exactly; a gap would leave high bits that
// could alias the clear sentinel.
const _ = uint(32 - (TriangleBits + InstanceBits)) // negative constant overflows uint if > 32
const _ = uint((TriangleBits + InstanceBits) - 32) // and here if < 32

// ErrOutOfRange is matched by every range error of this package.
var ErrOutOfRange = errors.New("geomid: value out of range")

// InstanceRangeError reports an instance index that does not fit in InstanceBits.
type InstanceRangeError struct {
	Value uint32
}

func (e *InstanceRangeError) Error() string {
	return fmt.Sprintf("geomid: instance id %d exceeds %d bits (max %d)", e.Value, InstanceBits, InstanceMask)
}

// Is reports whether target is ErrOutOfRange.
func (e *InstanceRangeError) Is(target error) bool { return target == ErrOutOfRange }

// TriangleRangeError reports a triangle index that does not fit in TriangleBits.
type TriangleRangeError struct {
	Value uint32
}

func (e *TriangleRangeError) Error() string {
	return fmt.Sprintf("geomid: triangle id %d exceeds %d bits (max %d)", e.Value, TriangleBits, TriangleMask)
}

// Is reports whether target is ErrOutOfRange.
func (e *TriangleRangeError) Is(target error) bool { return target == ErrOutOfRange }

// InstanceId identifies an instance within a frame's scene.
type InstanceId struct {
	v uint32
}

// NewInstanceId returns v as an InstanceId, or an *InstanceRangeError if it
// does not fit. The value is never truncated.
func NewInstanceId(v uint32) (InstanceId, error) {
	if v&InstanceMask != v {
		return InstanceId{}, &InstanceRangeError{Value: v}
	}
	return InstanceId{v: v}, nil
}

// MustInstanceId is like NewInstanceId but panics on a range error.
func MustInstanceId(v uint32) InstanceId {
	id, err := NewInstanceId(v)
	if err != nil {
		panic(err)
	}
	return id
}

// InstanceIdUnchecked wraps a value that is already known to be in range,
// such as an index produced by the rasterizer.
func InstanceIdUnchecked(v uint32) InstanceId {
	return InstanceId{v: v & InstanceMask}
}

// Uint32 returns the raw index.
func (i InstanceId) Uint32() uint32 { return i.v }

// Int returns the index as an int, for slice indexing.
func (i InstanceId) Int() int { return int(i.v) }

// TriangleId identifies a triangle within a model.
type TriangleId struct {
	v uint32
}

// NewTriangleId returns v as a TriangleId, or a *TriangleRangeError if it
// does not fit.
func NewTriangleId(v uint32) (TriangleId, error) {
	if v&TriangleMask != v {
		return TriangleId{}, &TriangleRangeError{Value: v}
	}
	return TriangleId{v: v}, nil
}

// MustTriangleId is like NewTriangleId but panics on a range error.
func MustTriangleId(v uint32) TriangleId {
	id, err := NewTriangleId(v)
	if err != nil {
		panic(err)
	}
	return id
}

// TriangleIdUnchecked wraps a value that is already known to be in range.
func TriangleIdUnchecked(v uint32) TriangleId {
	return TriangleId{v: v & TriangleMask}
}

// Uint32 returns the raw index.
func (t TriangleId) Uint32() uint32 { return t.v }

// Int returns the index as an int, for slice indexing.
func (t TriangleId) Int() int { return int(t.v) }

// GeometryId is the unpacked form of a visibility buffer texel.
// Instance and Triangle are unspecified when Clear is set.
type GeometryId struct {
	Instance InstanceId
	Triangle TriangleId
	Clear    bool
}

// New returns the geometry id of triangle t in instance i.
func New(i InstanceId, t TriangleId) GeometryId {
	return GeometryId{Instance: i, Triangle: t}
}

// Pack encodes g. A clear id packs to Clear.
func (g GeometryId) Pack() PackedGeometryId {
	if g.Clear {
		return Clear
	}
	return Pack(g.Instance, g.Triangle)
}

func (g GeometryId) String() string {
	if g.Clear {
		return "GeometryId(clear)"
	}
	return fmt.Sprintf("GeometryId(instance=%d, triangle=%d)", g.Instance.v, g.Triangle.v)
}

// PackedGeometryId is the 32-bit storage form of a GeometryId.
type PackedGeometryId uint32

// Clear marks a pixel that no geometry covered.
const Clear PackedGeometryId = 0xFFFFFFFF

// Size is the wire size of a PackedGeometryId in bytes.
const Size = 4

// Pack encodes an instance and triangle pair.
func Pack(i InstanceId, t TriangleId) PackedGeometryId {
	return PackedGeometryId(i.v<<TriangleBits | t.v)
}

// Unpack decodes p. It is total: every word decodes, and Clear reports
// GeometryId.Clear.
func (p PackedGeometryId) Unpack() GeometryId {
	if p == Clear {
		return GeometryId{Clear: true}
	}
	return GeometryId{
		Instance: InstanceId{v: uint32(p) >> TriangleBits & InstanceMask},
		Triangle: TriangleId{v: uint32(p) & TriangleMask},
	}
}

// IsClear reports whether p is the clear sentinel.
func (p PackedGeometryId) IsClear() bool { return p == Clear }

func (p PackedGeometryId) String() string {
	return p.Unpack().String()
}

// AppendBinary appends the little-endian wire form of p to b.
func (p PackedGeometryId) AppendBinary(b []byte) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(b, uint32(p)), nil
}

// PutLE writes the little-endian wire form of p into b[:4].
func (p PackedGeometryId) PutLE(b []byte) {
	binary.LittleEndian.PutUint32(b, uint32(p))
}

// ReadLE decodes a PackedGeometryId from b[:4].
func ReadLE(b []byte) PackedGeometryId {
	return PackedGeometryId(binary.LittleEndian.Uint32(b))
}
