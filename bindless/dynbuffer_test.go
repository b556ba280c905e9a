// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"errors"
	"math"
	"sync"
	"testing"
)

type matA struct{ Color [4]float32 }
type matB struct{ Roughness float32 }

func TestRegisterDynBufferTypeDistinct(t *testing.T) {
	const n = 16
	seen := make(map[DynBufferType]bool)
	for range n {
		tag := RegisterDynBufferType[matA]().Dyn()
		if tag == UndefinedBufferType {
			t.Fatal("registered tag is UndefinedBufferType")
		}
		if seen[tag] {
			t.Fatalf("tag %d issued twice", tag)
		}
		seen[tag] = true
	}
}

func TestRegisterDynBufferTypeConcurrent(t *testing.T) {
	const goroutines, perG = 8, 200
	results := make([][]DynBufferType, goroutines)

	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perG {
				results[g] = append(results[g], RegisterDynBufferType[matB]().Dyn())
			}
		}()
	}
	wg.Wait()

	seen := make(map[DynBufferType]bool, goroutines*perG)
	for _, r := range results {
		for _, tag := range r {
			if seen[tag] {
				t.Fatalf("tag %d issued twice", tag)
			}
			seen[tag] = true
		}
	}
	if len(seen) != goroutines*perG {
		t.Errorf("got %d tags, want %d", len(seen), goroutines*perG)
	}
}

func TestTagCounterExhaustion(t *testing.T) {
	var c tagCounter
	c.last.Store(math.MaxUint32 - 1)
	if got := c.next(); got != math.MaxUint32 {
		t.Fatalf("next() = %d, want MaxUint32", got)
	}
	mustPanic(t, ErrTagsExhausted, func() { c.next() })
	// Still exhausted; the counter never wraps to 0.
	mustPanic(t, ErrTagsExhausted, func() { c.next() })
}

func TestCanUpcast(t *testing.T) {
	typeA := RegisterDynBufferType[matA]()
	typeB := RegisterDynBufferType[matB]()

	d := NewDescriptors()
	a, _ := AllocStruct(d, matA{Color: [4]float32{1, 0, 0, 1}})
	dyn := NewDynBuffer(typeA, ToStrong(a))

	tests := []struct {
		name string
		tag  DynBufferType
		want bool
	}{
		{"own type", typeA.Dyn(), true},
		{"other type", typeB.Dyn(), false},
		{"undefined", UndefinedBufferType, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dyn.CanUpcast(tt.tag); got != tt.want {
				t.Errorf("CanUpcast(%d) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}

	undef := NewUndefinedDynBuffer(ToStrong(a))
	if undef.CanUpcast(UndefinedBufferType) {
		t.Error("undefined buffer upcasts to UndefinedBufferType")
	}
	if undef.CanUpcast(typeA.Dyn()) {
		t.Error("undefined buffer upcasts to a registered type")
	}
}

func TestUpcast(t *testing.T) {
	typeA := RegisterDynBufferType[matA]()
	typeB := RegisterDynBufferType[matB]()

	d := NewDescriptors()
	a, _ := AllocStruct(d, matA{Color: [4]float32{0, 1, 0, 1}})
	dyn := NewDynBuffer(typeA, ToStrong(a))

	got := AccessStruct(d, Upcast(dyn, typeA))
	if got.Color[1] != 1 {
		t.Errorf("upcast contents = %+v", got)
	}

	defer func() {
		r := recover()
		var mismatch *TypeMismatchError
		err, _ := r.(error)
		if !errors.As(err, &mismatch) {
			t.Fatalf("panic = %v, want *TypeMismatchError", r)
		}
		if mismatch.Have != typeA.Dyn() || mismatch.Want != typeB.Dyn() {
			t.Errorf("mismatch = %+v", mismatch)
		}
		if !errors.Is(err, ErrTypeMismatch) {
			t.Error("TypeMismatchError must match ErrTypeMismatch")
		}
	}()
	Upcast(dyn, typeB)
}

func TestUpcastUncheckedWrongTypePanicsOnAccess(t *testing.T) {
	typeA := RegisterDynBufferType[matA]()
	d := NewDescriptors()
	a, _ := AllocStruct(d, matA{})
	dyn := NewDynBuffer(typeA, ToStrong(a))

	wrong := UpcastUnchecked[Strong, matB](dyn)
	mustPanic(t, ErrTypeMismatch, func() { AccessBuffer(d, wrong) })
}

func TestDynBufferOwnership(t *testing.T) {
	typeA := RegisterDynBufferType[matA]()
	d := NewDescriptors()
	a, _ := AllocStruct(d, matA{})
	owned := NewDynBuffer(typeA, a)

	rec := d.Begin()
	tr := DynToTransient(rec, owned)
	strong := DynToStrong(owned)
	if tr.Type() != typeA.Dyn() || strong.Type() != typeA.Dyn() {
		t.Error("conversion dropped the type tag")
	}
	if tr.Desc().Index() != a.Index() {
		t.Error("conversion changed the slot")
	}

	DynRelease(owned)
	if err := Check(d, strong.Desc()); !errors.Is(err, ErrStaleDescriptor) {
		t.Errorf("strong after release: %v", err)
	}
	if err := Check(d, tr.Desc()); err != nil {
		t.Errorf("transient expired before completion: %v", err)
	}
}
