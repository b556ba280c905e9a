// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DynBufferType is the runtime tag of a buffer element type. It crosses to
// the GPU as a plain 32-bit word.
type DynBufferType uint32

// UndefinedBufferType tags a DynBuffer that can never be upcast.
const UndefinedBufferType DynBufferType = 0

// BufferType is the tag issued to element type T by RegisterDynBufferType.
type BufferType[T any] struct {
	tag DynBufferType
}

// Dyn returns the erased tag.
func (b BufferType[T]) Dyn() DynBufferType { return b.tag }

func (b BufferType[T]) String() string {
	return fmt.Sprintf("BufferType[%T](%d)", *new(T), b.tag)
}

// tagCounter issues tags 1, 2, ... and never wraps.
type tagCounter struct {
	last atomic.Uint32
}

func (c *tagCounter) next() DynBufferType {
	for {
		cur := c.last.Load()
		if cur == math.MaxUint32 {
			panic(ErrTagsExhausted)
		}
		if c.last.CompareAndSwap(cur, cur+1) {
			return DynBufferType(cur + 1)
		}
	}
}

var tags tagCounter

// RegisterDynBufferType issues a fresh process-wide tag for T. Every call
// returns a new tag, so register each material type once, typically in a
// package-level variable. Safe for concurrent use.
func RegisterDynBufferType[T any]() BufferType[T] {
	return BufferType[T]{tag: tags.next()}
}

// DynBuffer is a buffer reference whose element type is erased. The tag
// identifies the type so that generic code can recover it with Upcast.
type DynBuffer[R Ownership] struct {
	typ  DynBufferType
	desc Desc[R, AnyBuffer]
}

// Convenience names for common classes of DynBuffer.
type (
	StrongDynBuffer    = DynBuffer[Strong]
	TransientDynBuffer = DynBuffer[Transient]
)

func erase[R Ownership, T any](d Desc[R, Buffer[T]]) Desc[R, AnyBuffer] {
	return Desc[R, AnyBuffer]{idx: d.idx, ver: d.ver, epoch: d.epoch, rc: d.rc}
}

func unerase[R Ownership, T any](d Desc[R, AnyBuffer]) Desc[R, Buffer[T]] {
	return Desc[R, Buffer[T]]{idx: d.idx, ver: d.ver, epoch: d.epoch, rc: d.rc}
}

// NewDynBuffer erases the element type of desc, tagging it with bt.
func NewDynBuffer[R Ownership, T any](bt BufferType[T], desc Desc[R, Buffer[T]]) DynBuffer[R] {
	return DynBuffer[R]{typ: bt.tag, desc: erase(desc)}
}

// NewUndefinedDynBuffer erases desc without a tag. The result can never be
// upcast.
func NewUndefinedDynBuffer[R Ownership, T any](desc Desc[R, Buffer[T]]) DynBuffer[R] {
	return DynBuffer[R]{typ: UndefinedBufferType, desc: erase(desc)}
}

// Type returns the tag of the erased element type.
func (b DynBuffer[R]) Type() DynBufferType { return b.typ }

// Desc returns the untyped descriptor.
func (b DynBuffer[R]) Desc() Desc[R, AnyBuffer] { return b.desc }

// CanUpcast reports whether b was created with tag t. It is false for
// UndefinedBufferType.
func (b DynBuffer[R]) CanUpcast(t DynBufferType) bool {
	return t != UndefinedBufferType && b.typ == t
}

func (b DynBuffer[R]) strongRef() ref { return b.desc.ref() }

func (b DynBuffer[R]) String() string {
	return fmt.Sprintf("DynBuffer(type=%d, %v)", b.typ, b.desc)
}

// Upcast recovers the typed descriptor. A tag mismatch is a programming
// error and panics with a *TypeMismatchError; test with CanUpcast first
// when the type is not known.
func Upcast[R Ownership, T any](b DynBuffer[R], bt BufferType[T]) Desc[R, Buffer[T]] {
	if !b.CanUpcast(bt.tag) {
		panic(&TypeMismatchError{Have: b.typ, Want: bt.tag})
	}
	return unerase[R, T](b.desc)
}

// UpcastUnchecked recovers the typed descriptor without comparing tags.
// The caller must already know the element type.
func UpcastUnchecked[R Ownership, T any](b DynBuffer[R]) Desc[R, Buffer[T]] {
	return unerase[R, T](b.desc)
}

// DynToStrong is ToStrong for an erased buffer.
func DynToStrong[R holding](b DynBuffer[R]) DynBuffer[Strong] {
	return DynBuffer[Strong]{typ: b.typ, desc: ToStrong(b.desc)}
}

// DynToTransient is ToTransient for an erased buffer.
func DynToTransient[R persistent](rec *Recording, b DynBuffer[R]) DynBuffer[Transient] {
	return DynBuffer[Transient]{typ: b.typ, desc: ToTransient(rec, b.desc)}
}

// DynRelease releases an owned or shared erased buffer.
func DynRelease[R holding](b DynBuffer[R]) {
	Release(b.desc)
}
