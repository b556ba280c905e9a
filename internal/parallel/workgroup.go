// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

// WorkgroupSize is the edge length of a square 2D workgroup.
const WorkgroupSize = 8

// Grid is the number of workgroups dispatched along each axis.
type Grid struct {
	X, Y, Z uint32
}

// DispatchSize returns the grid that covers a width x height viewport with
// 8x8 workgroups. Partial workgroups on the right and bottom edges are
// included, so invocations may fall outside the viewport.
func DispatchSize(width, height uint32) Grid {
	return Grid{
		X: (width + WorkgroupSize - 1) / WorkgroupSize,
		Y: (height + WorkgroupSize - 1) / WorkgroupSize,
		Z: 1,
	}
}

// Invocations returns the number of invocations in the grid.
func (g Grid) Invocations() uint64 {
	return uint64(g.X) * uint64(g.Y) * uint64(g.Z) * WorkgroupSize * WorkgroupSize
}

// Dispatch runs fn once for every invocation of grid and waits for all of
// them. fn receives the global invocation id and must do its own bounds
// check, exactly like a compute shader.
//
// Each row of workgroups is one work item. Invocations of the same
// workgroup run in row-major order on one goroutine; no ordering holds
// between workgroups.
func (p *WorkerPool) Dispatch(grid Grid, fn func(global [2]uint32)) {
	if grid.X == 0 || grid.Y == 0 || grid.Z == 0 {
		return
	}
	work := make([]func(), 0, grid.Y*grid.Z)
	for range grid.Z {
		for gy := range grid.Y {
			work = append(work, func() {
				for gx := range grid.X {
					runWorkgroup(gx, gy, fn)
				}
			})
		}
	}
	p.ExecuteAll(work)
}

func runWorkgroup(gx, gy uint32, fn func(global [2]uint32)) {
	x0, y0 := gx*WorkgroupSize, gy*WorkgroupSize
	for ly := range uint32(WorkgroupSize) {
		for lx := range uint32(WorkgroupSize) {
			fn([2]uint32{x0 + lx, y0 + ly})
		}
	}
}
