// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"errors"
	"fmt"
)

// Errors returned or raised by the descriptor tables.
var (
	// ErrCapacity is matched by every allocation failure caused by
	// exhausted table slots or memory.
	ErrCapacity = errors.New("bindless: out of capacity")

	// ErrTableFull is returned when a descriptor table has no free slot.
	ErrTableFull = fmt.Errorf("%w: descriptor table full", ErrCapacity)

	// ErrMemoryBudgetExceeded is returned when an allocation would exceed
	// the configured memory budget.
	ErrMemoryBudgetExceeded = fmt.Errorf("%w: memory budget exceeded", ErrCapacity)

	// ErrStaleDescriptor is raised by checked access to a descriptor whose
	// validity window has closed.
	ErrStaleDescriptor = errors.New("bindless: stale descriptor")

	// ErrTypeMismatch is raised when an erased buffer is upcast to the
	// wrong element type.
	ErrTypeMismatch = errors.New("bindless: dynamic buffer type mismatch")

	// ErrTagsExhausted is raised when no more dynamic buffer types can be
	// registered.
	ErrTagsExhausted = errors.New("bindless: dynamic buffer type counter exhausted")

	// ErrRecordingSubmitted is returned when a recording is used after Submit.
	ErrRecordingSubmitted = errors.New("bindless: recording already submitted")
)

// AccessError describes a failed checked access. It is used as a panic
// value: a lapsed descriptor reaching a shader is a programming error.
type AccessError struct {
	Kind    string
	Index   uint32
	Version uint32
	Reason  string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("bindless: %s descriptor %d (version %d): %s", e.Kind, e.Index, e.Version, e.Reason)
}

// Unwrap returns ErrStaleDescriptor.
func (e *AccessError) Unwrap() error { return ErrStaleDescriptor }

// TypeMismatchError describes an upcast of an erased buffer with the wrong
// tag. It is used as a panic value by Upcast.
type TypeMismatchError struct {
	Have DynBufferType
	Want DynBufferType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("bindless: cannot upcast dynamic buffer of type %d to type %d", e.Have, e.Want)
}

// Unwrap returns ErrTypeMismatch.
func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
