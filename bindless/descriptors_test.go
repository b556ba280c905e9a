// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package bindless

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/visi/texel"
)

func mustPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		if target != nil && !errors.Is(err, target) {
			t.Fatalf("panic %v is not %v", err, target)
		}
	}()
	fn()
}

func TestAllocAccessBuffer(t *testing.T) {
	d := NewDescriptors()
	src := []uint32{1, 2, 3}
	buf, err := AllocBuffer(d, src)
	if err != nil {
		t.Fatalf("AllocBuffer() error = %v", err)
	}
	src[0] = 99 // upload is a copy

	got := AccessBuffer(d, buf)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("AccessBuffer() = %v", got)
	}
	if buf.IsZero() {
		t.Error("allocated descriptor is zero")
	}
	if buf.Version() != 1 {
		t.Errorf("Version() = %d, want 1", buf.Version())
	}

	st := d.Stats()
	if st.Buffers.Live != 1 {
		t.Errorf("Live = %d, want 1", st.Buffers.Live)
	}
	if st.Memory.UsedBytes != 12 {
		t.Errorf("UsedBytes = %d, want 12", st.Memory.UsedBytes)
	}
}

func TestAllocStruct(t *testing.T) {
	type params struct{ A, B float32 }
	d := NewDescriptors()
	s, err := AllocStruct(d, params{A: 1, B: 2})
	if err != nil {
		t.Fatal(err)
	}
	if got := AccessStruct(d, ToStrong(s)); got.B != 2 {
		t.Errorf("AccessStruct() = %+v", got)
	}
}

func TestTableFull(t *testing.T) {
	d := NewDescriptors(WithBufferCapacity(2))
	for range 2 {
		if _, err := AllocBuffer(d, []int{1}); err != nil {
			t.Fatal(err)
		}
	}
	_, err := AllocBuffer(d, []int{1})
	if !errors.Is(err, ErrTableFull) {
		t.Fatalf("error = %v, want ErrTableFull", err)
	}
	if !errors.Is(err, ErrCapacity) {
		t.Errorf("ErrTableFull must match ErrCapacity")
	}
	if st := d.Stats(); st.Memory.Allocations != 2 {
		t.Errorf("failed allocation was accounted: %v", st.Memory)
	}
}

func TestMemoryBudget(t *testing.T) {
	d := NewDescriptors(WithMemoryBudget(64))
	a, err := AllocBuffer(d, make([]uint64, 6)) // 48 bytes
	if err != nil {
		t.Fatal(err)
	}
	_, err = AllocBuffer(d, make([]uint64, 3)) // 24 more
	if !errors.Is(err, ErrMemoryBudgetExceeded) || !errors.Is(err, ErrCapacity) {
		t.Fatalf("error = %v, want ErrMemoryBudgetExceeded", err)
	}
	_, err = AllocBuffer(d, make([]uint64, 100))
	if !errors.Is(err, ErrMemoryBudgetExceeded) {
		t.Fatalf("oversized error = %v", err)
	}

	Release(a)
	d.Reclaim()
	if _, err := AllocBuffer(d, make([]uint64, 3)); err != nil {
		t.Errorf("allocation after release failed: %v", err)
	}
}

func TestSharedRefcount(t *testing.T) {
	d := NewDescriptors()
	owned, _ := AllocBuffer(d, []float32{1})
	a := Share(owned)
	b := Clone(a)

	Release(a)
	Release(a) // double release is a no-op
	if err := Check(d, b); err != nil {
		t.Fatalf("second holder lost its slot: %v", err)
	}
	if got := AccessBuffer(d, b); got[0] != 1 {
		t.Errorf("AccessBuffer() = %v", got)
	}

	Release(b)
	if err := Check(d, b); !errors.Is(err, ErrStaleDescriptor) {
		t.Fatalf("Check after last release = %v, want ErrStaleDescriptor", err)
	}
	mustPanic(t, ErrStaleDescriptor, func() { AccessBuffer(d, b) })

	// The data stays readable until the slot is reclaimed.
	if got := AccessBufferUnchecked(d, b); got[0] != 1 {
		t.Errorf("unchecked access = %v", got)
	}
}

func TestCloneReleasedPanics(t *testing.T) {
	d := NewDescriptors()
	owned, _ := AllocBuffer(d, []int{1})
	s := Share(owned)
	Release(s)
	mustPanic(t, ErrStaleDescriptor, func() { Clone(s) })
}

func TestRecyclingWaitsForEpoch(t *testing.T) {
	d := NewDescriptors(WithBufferCapacity(1))
	owned, _ := AllocBuffer(d, []int{7})
	shared := Share(owned)

	rec := d.Begin()
	tr := ToTransient(rec, shared)
	Release(shared)

	// The only slot is retired but the recording may still read it.
	if _, err := AllocBuffer(d, []int{8}); !errors.Is(err, ErrTableFull) {
		t.Fatalf("slot recycled while recording in flight: %v", err)
	}
	if got := AccessBuffer(d, tr); got[0] != 7 {
		t.Fatalf("transient read = %v, want [7]", got)
	}

	sub, err := rec.Submit()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Submit(); !errors.Is(err, ErrRecordingSubmitted) {
		t.Errorf("second Submit() error = %v", err)
	}
	if err := Check(d, tr); err != nil {
		t.Fatalf("transient expired before completion: %v", err)
	}

	sub.Complete()
	sub.Complete()
	if err := Check(d, tr); !errors.Is(err, ErrStaleDescriptor) {
		t.Fatalf("transient after completion: %v", err)
	}

	next, err := AllocBuffer(d, []int{8})
	if err != nil {
		t.Fatalf("slot not recycled after completion: %v", err)
	}
	if next.Index() != tr.Index() || next.Version() != 2 {
		t.Errorf("recycled slot = %v, want index %d version 2", next, tr.Index())
	}
	mustPanic(t, ErrStaleDescriptor, func() { AccessBuffer(d, tr) })
}

func TestCompletedEpochIsInOrder(t *testing.T) {
	d := NewDescriptors()
	r1, r2 := d.Begin(), d.Begin()
	s1, _ := r1.Submit()
	s2, _ := r2.Submit()

	s2.Complete()
	if got := d.CompletedEpoch(); got != 0 {
		t.Errorf("CompletedEpoch() = %d after out-of-order completion, want 0", got)
	}
	s1.Complete()
	if got := d.CompletedEpoch(); got != 2 {
		t.Errorf("CompletedEpoch() = %d, want 2", got)
	}
	if got := d.CurrentEpoch(); got != 2 {
		t.Errorf("CurrentEpoch() = %d, want 2", got)
	}
}

type holder struct {
	Child StrongDesc[Buffer[int]]
	Mat   DynBuffer[Strong]
}

func (h holder) VisitStrong(visit func(StrongRef)) {
	visit(h.Child)
	visit(h.Mat)
}

func TestStrongChildrenStayAlive(t *testing.T) {
	d := NewDescriptors()
	child, _ := AllocBuffer(d, []int{42})
	strong := ToStrong(child)

	h, err := AllocBuffer(d, []holder{{Child: strong}})
	if err != nil {
		t.Fatal(err)
	}
	Release(child)

	if err := Check(d, strong); err != nil {
		t.Fatalf("embedded strong reference released with its CPU owner: %v", err)
	}
	embedded := AccessBuffer(d, h)[0].Child
	if got := AccessBuffer(d, embedded); got[0] != 42 {
		t.Errorf("child = %v", got)
	}

	Release(h)
	if err := Check(d, strong); !errors.Is(err, ErrStaleDescriptor) {
		t.Errorf("child outlived its holder: %v", err)
	}
	if live := d.Stats().Buffers.Live; live != 0 {
		t.Errorf("Live = %d, want 0", live)
	}
}

func TestEmbeddingReleasedDescriptorFails(t *testing.T) {
	d := NewDescriptors()
	child, _ := AllocBuffer(d, []int{1})
	strong := ToStrong(child)
	Release(child)

	_, err := AllocBuffer(d, []holder{{Child: strong}})
	if !errors.Is(err, ErrStaleDescriptor) {
		t.Fatalf("error = %v, want ErrStaleDescriptor", err)
	}
}

func TestImagesAndSamplers(t *testing.T) {
	d := NewDescriptors()
	img, _ := texel.NewImage(8, 4)
	id, err := AllocImage(d, img)
	if err != nil {
		t.Fatal(err)
	}
	if n := AccessImage(d, id).NumLevels(); n != 4 {
		t.Errorf("NumLevels() = %d, want 4", n)
	}

	mi, err := AllocMutImage(d, 4, 4, gputypes.TextureFormatR32Uint)
	if err != nil {
		t.Fatal(err)
	}
	AccessMutImage(d, mi).StoreU32(1, 1, 5)
	if AccessMutImageUnchecked(d, mi).LoadU32(1, 1) != 5 {
		t.Error("storage image write lost")
	}
	if _, err := AllocMutImage(d, 4, 4, gputypes.TextureFormatBGRA8Unorm); !errors.Is(err, texel.ErrUnsupportedFormat) {
		t.Errorf("unsupported format error = %v", err)
	}

	s, err := AllocSampler(d, texel.LinearRepeat)
	if err != nil {
		t.Fatal(err)
	}
	if AccessSampler(d, s) != texel.LinearRepeat {
		t.Error("sampler state changed")
	}
}

func TestChecksDisabled(t *testing.T) {
	d := NewDescriptors(WithChecks(false))
	owned, _ := AllocBuffer(d, []int{3})
	Release(owned)
	// Without checks a released but unreclaimed slot still reads.
	if got := AccessBuffer(d, owned); got[0] != 3 {
		t.Errorf("AccessBuffer() = %v", got)
	}
}

func TestDescString(t *testing.T) {
	var zero SharedDesc[Image]
	if got := zero.String(); got != "Desc[shared, image](nil)" {
		t.Errorf("zero String() = %q", got)
	}
	d := NewDescriptors()
	b, _ := AllocBuffer(d, []int{1})
	if got := b.String(); got != "Desc[owned, buffer](0 v1)" {
		t.Errorf("String() = %q", got)
	}
	rec := d.Begin()
	if got := ToTransient(rec, b).String(); got != "Desc[transient, buffer](0 v1 @1)" {
		t.Errorf("transient String() = %q", got)
	}
}

func strongOf[R holding, K Kind](r Desc[R, K]) Desc[Strong, K] { return ToStrong(r) }

func transientOf[R persistent, K Kind](rec *Recording, r Desc[R, K]) Desc[Transient, K] {
	return ToTransient(rec, r)
}

func TestConversionsFromEveryClass(t *testing.T) {
	d := NewDescriptors()
	owned, err := AllocBuffer(d, []uint32{1})
	if err != nil {
		t.Fatal(err)
	}
	other, err := AllocBuffer(d, []uint32{2})
	if err != nil {
		t.Fatal(err)
	}
	shared := Share(other)
	rec := d.Begin()

	for name, check := range map[string]error{
		"strong from owned":     Check(d, strongOf(owned)),
		"strong from shared":    Check(d, strongOf(shared)),
		"transient from owned":  Check(d, transientOf(rec, owned)),
		"transient from shared": Check(d, transientOf(rec, shared)),
		"transient from strong": Check(d, transientOf(rec, strongOf(owned))),
	} {
		if check != nil {
			t.Errorf("%s: %v", name, check)
		}
	}
	if got := AccessBuffer(d, transientOf(rec, shared)); len(got) != 1 || got[0] != 2 {
		t.Errorf("AccessBuffer = %v, want [2]", got)
	}

	bt := RegisterDynBufferType[uint32]()
	dyn := DynToTransient(rec, DynToStrong(NewDynBuffer(bt, owned)))
	if !dyn.CanUpcast(bt.Dyn()) {
		t.Error("converted dyn buffer lost its type")
	}

	Release(owned)
	DynRelease(NewDynBuffer(bt, shared))
	if st := d.Stats().Buffers; st.Live != 0 || st.Retired != 2 {
		t.Errorf("Buffers = %+v, want both slots retired until the recording completes", st)
	}
}
