// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"fmt"

	"github.com/gogpu/visi/texel"
)

// lookup resolves r without taking a lock. With validate set it reports
// why the reference may not be dereferenced.
func (d *Descriptors) lookup(r ref, validate bool) (*entry, *AccessError) {
	e := d.tables[r.kind].load(r.idx)
	fail := func(reason string) (*entry, *AccessError) {
		return nil, &AccessError{Kind: r.kind.String(), Index: r.idx, Version: r.ver, Reason: reason}
	}
	switch {
	case e == nil:
		return fail("slot was never allocated")
	case !validate:
		return e, nil
	case e.version != r.ver:
		return fail(fmt.Sprintf("slot was recycled (now version %d)", e.version))
	case r.epoch != 0:
		if r.epoch <= d.epochs.completed.Load() {
			return fail(fmt.Sprintf("transient used after epoch %d completed", r.epoch))
		}
	case e.freed.Load():
		return fail("resource was released")
	}
	return e, nil
}

func (d *Descriptors) resolve(r ref, checked bool) *entry {
	e, err := d.lookup(r, checked && d.checks)
	if err != nil {
		panic(err)
	}
	return e
}

// Check reports whether r may be dereferenced now, without panicking.
func Check[R Ownership, K Kind](d *Descriptors, r Desc[R, K]) error {
	if _, err := d.lookup(r.ref(), true); err != nil {
		return err
	}
	return nil
}

func bufferOf[T any](e *entry, r ref) []T {
	data, ok := e.value.([]T)
	if !ok {
		panic(fmt.Errorf("%w: buffer %d holds %T, not []%T", ErrTypeMismatch, r.idx, e.value, *new(T)))
	}
	return data
}

// AccessBuffer returns the contents of a buffer. The slice is shared with
// every other reader and must not be modified.
//
// With checks enabled, a reference whose validity window has closed
// panics with an *AccessError.
func AccessBuffer[R Ownership, T any](d *Descriptors, r Desc[R, Buffer[T]]) []T {
	rf := r.ref()
	return bufferOf[T](d.resolve(rf, true), rf)
}

// AccessBufferUnchecked is AccessBuffer without lifetime validation.
func AccessBufferUnchecked[R Ownership, T any](d *Descriptors, r Desc[R, Buffer[T]]) []T {
	rf := r.ref()
	return bufferOf[T](d.resolve(rf, false), rf)
}

// AccessStruct returns the first element of a buffer created by AllocStruct.
func AccessStruct[R Ownership, T any](d *Descriptors, r Desc[R, Buffer[T]]) T {
	return AccessBuffer(d, r)[0]
}

// AccessImage returns the mip chain of a sampled image.
func AccessImage[R Ownership](d *Descriptors, r Desc[R, Image]) *texel.MipChain {
	return d.resolve(r.ref(), true).value.(*texel.MipChain)
}

// AccessImageUnchecked is AccessImage without lifetime validation.
func AccessImageUnchecked[R Ownership](d *Descriptors, r Desc[R, Image]) *texel.MipChain {
	return d.resolve(r.ref(), false).value.(*texel.MipChain)
}

// AccessMutImage returns a storage image for reading and writing.
func AccessMutImage[R Ownership](d *Descriptors, r Desc[R, MutImage]) *texel.Storage {
	return d.resolve(r.ref(), true).value.(*texel.Storage)
}

// AccessMutImageUnchecked is AccessMutImage without lifetime validation.
func AccessMutImageUnchecked[R Ownership](d *Descriptors, r Desc[R, MutImage]) *texel.Storage {
	return d.resolve(r.ref(), false).value.(*texel.Storage)
}

// AccessSampler returns sampler state.
func AccessSampler[R Ownership](d *Descriptors, r Desc[R, Sampler]) texel.Sampler {
	return d.resolve(r.ref(), true).value.(texel.Sampler)
}

// AccessSamplerUnchecked is AccessSampler without lifetime validation.
func AccessSamplerUnchecked[R Ownership](d *Descriptors, r Desc[R, Sampler]) texel.Sampler {
	return d.resolve(r.ref(), false).value.(texel.Sampler)
}
