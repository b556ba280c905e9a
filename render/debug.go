// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/internal/parallel"
	"github.com/gogpu/visi/material"
	"github.com/gogpu/visi/scene"
	"github.com/gogpu/visi/texel"
)

// debugVisibility writes the debug view of the visibility image into
// out. Clear pixels become transparent black.
func (r *VisibilityRenderer) debugVisibility(sc scene.Scene, res *resources, out *texel.Storage, s material.DebugSettings) {
	ids := bindless.AccessMutImage(r.d, res.visibility)
	if r.cfg.accelerate && r.accelerated(ids, res, out, s) {
		return
	}
	debugVisibilityCPU(r.d, r.cfg.pool, sc, ids, out, s)
}

// accelerated tries the registered accelerator. It returns false if the
// CPU path has to run.
func (r *VisibilityRenderer) accelerated(ids *texel.Storage, res *resources, out *texel.Storage, s material.DebugSettings) bool {
	a := visi.Accelerator()
	if a == nil || !a.CanAccelerate(visi.AccelDebugVisibility) {
		return false
	}

	n := ids.Width * ids.Height * 4
	if cap(res.color) < n {
		res.color = make([]float32, n)
	}
	res.color = res.color[:n]

	err := a.DebugVisibility(visi.VisibilityTarget{
		IDs:    ids.U32,
		Color:  res.color,
		Width:  ids.Width,
		Height: ids.Height,
	}, s.Params())
	if err != nil {
		if !errors.Is(err, visi.ErrFallbackToCPU) {
			r.cfg.logger.Warn("accelerator failed, using CPU", "accelerator", a.Name(), "err", err)
		}
		return false
	}

	c := res.color
	for y := range out.Height {
		for x := range out.Width {
			i := (y*out.Width + x) * 4
			out.StoreRGBA(x, y, f32.Vec4{c[i], c[i+1], c[i+2], c[i+3]})
		}
	}
	return true
}

// debugVisibilityCPU writes the debug view of ids into out on pool.
// Barycentrics are rebuilt from sc; the other modes only read the ids.
func debugVisibilityCPU(d *bindless.Descriptors, pool *parallel.WorkerPool, sc scene.Scene, ids, out *texel.Storage, s material.DebugSettings) {
	width, height := uint32(ids.Width), uint32(ids.Height)
	pool.Dispatch(parallel.DispatchSize(width, height), func(pixel [2]uint32) {
		if pixel[0] >= width || pixel[1] >= height {
			return
		}
		x, y := int(pixel[0]), int(pixel[1])
		packed := geomid.PackedGeometryId(ids.LoadU32(x, y))
		if packed.IsClear() {
			out.StoreRGBA(x, y, f32.Vec4{})
			return
		}
		geo := packed.Unpack()
		var lambda f32.Vec3
		if s.Type == material.DebugBarycentrics {
			lambda = sc.LoadTriangle(d, pixel, geo).Bary.Lambda
		}
		out.StoreRGBA(x, y, material.DebugColor(geo, lambda, s))
	})
}
