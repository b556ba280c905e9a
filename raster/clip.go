// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import "golang.org/x/image/math/f32"

// clipNear clips a clip-space triangle against the near plane z >= 0 and
// appends the resulting convex polygon (0, 3 or 4 vertices) to out.
// Winding is preserved.
func clipNear(tri [3]f32.Vec4, out []f32.Vec4) []f32.Vec4 {
	out = out[:0]
	if tri[0][2] >= 0 && tri[1][2] >= 0 && tri[2][2] >= 0 {
		return append(out, tri[0], tri[1], tri[2])
	}
	for i := range 3 {
		a, b := tri[i], tri[(i+1)%3]
		ina, inb := a[2] >= 0, b[2] >= 0
		if ina {
			out = append(out, a)
		}
		if ina != inb {
			t := a[2] / (a[2] - b[2])
			out = append(out, lerp(a, b, t))
		}
	}
	return out
}

func lerp(a, b f32.Vec4, t float32) f32.Vec4 {
	return f32.Vec4{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}
}
