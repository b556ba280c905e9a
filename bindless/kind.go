// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

// tableKind selects one of the descriptor tables.
type tableKind uint8

const (
	tableBuffer tableKind = iota
	tableImage
	tableMutImage
	tableSampler
	tableCount
)

func (k tableKind) String() string {
	switch k {
	case tableBuffer:
		return "buffer"
	case tableImage:
		return "image"
	case tableMutImage:
		return "mut-image"
	case tableSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// Kind is the resource kind a descriptor points at.
// It is implemented by Buffer, AnyBuffer, Image, MutImage and Sampler only.
type Kind interface {
	table() tableKind
}

// Buffer is the kind of an immutable buffer of T elements.
type Buffer[T any] struct{}

func (Buffer[T]) table() tableKind { return tableBuffer }

// AnyBuffer is the kind of a buffer whose element type is only known at
// runtime. See DynBuffer.
type AnyBuffer struct{}

func (AnyBuffer) table() tableKind { return tableBuffer }

// Image is the kind of a sampled, mipmapped RGBA image.
type Image struct{}

func (Image) table() tableKind { return tableImage }

// MutImage is the kind of a storage image written by a pass.
type MutImage struct{}

func (MutImage) table() tableKind { return tableMutImage }

// Sampler is the kind of a sampler state object.
type Sampler struct{}

func (Sampler) table() tableKind { return tableSampler }
