// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestDispatchSize(t *testing.T) {
	tests := []struct {
		w, h uint32
		want Grid
	}{
		{0, 0, Grid{0, 0, 1}},
		{1, 1, Grid{1, 1, 1}},
		{8, 8, Grid{1, 1, 1}},
		{9, 8, Grid{2, 1, 1}},
		{64, 64, Grid{8, 8, 1}},
		{1920, 1080, Grid{240, 135, 1}},
		{1921, 1081, Grid{241, 136, 1}},
	}
	for _, tt := range tests {
		if got := DispatchSize(tt.w, tt.h); got != tt.want {
			t.Errorf("DispatchSize(%d, %d) = %+v, want %+v", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestGridInvocations(t *testing.T) {
	if got := DispatchSize(10, 10).Invocations(); got != 4*64 {
		t.Errorf("Invocations() = %d, want 256", got)
	}
}

func TestDispatchCoversGridOnce(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const w, h = 21, 13
	grid := DispatchSize(w, h)
	gw, gh := grid.X*WorkgroupSize, grid.Y*WorkgroupSize

	var mu sync.Mutex
	hits := make(map[[2]uint32]int)
	var inside atomic.Int64

	pool.Dispatch(grid, func(id [2]uint32) {
		if id[0] < w && id[1] < h {
			inside.Add(1)
		}
		mu.Lock()
		hits[id]++
		mu.Unlock()
	})

	if uint32(len(hits)) != gw*gh {
		t.Fatalf("got %d distinct invocations, want %d", len(hits), gw*gh)
	}
	for id, n := range hits {
		if n != 1 {
			t.Errorf("invocation %v ran %d times", id, n)
		}
		if id[0] >= gw || id[1] >= gh {
			t.Errorf("invocation %v outside the grid", id)
		}
	}
	if inside.Load() != w*h {
		t.Errorf("%d in-bounds invocations, want %d", inside.Load(), w*h)
	}
}

func TestDispatchEmptyGrid(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	pool.Dispatch(Grid{}, func([2]uint32) { called = true })
	if called {
		t.Error("empty grid ran an invocation")
	}
}

func BenchmarkDispatch_HD(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	grid := DispatchSize(1920, 1080)
	out := make([]uint32, 1920*1080)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		pool.Dispatch(grid, func(id [2]uint32) {
			if id[0] < 1920 && id[1] < 1080 {
				out[id[1]*1920+id[0]] = id[0] ^ id[1]
			}
		})
	}
}
