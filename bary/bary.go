// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package bary reconstructs perspective-correct barycentric coordinates and
// their screen-space derivatives for a triangle at a pixel.
//
// The visibility buffer stores no interpolants, so the shading pass has to
// rebuild them from the three clip-space vertex positions. The derivatives
// are the analytic equivalent of the ddx/ddy a fragment shader would have
// seen, which is what gradient-based texture filtering needs.
//
// Conventions: pixel (x, y) is sampled at its center (x+0.5, y+0.5). NDC is
// WebGPU style, x right and y up, so image row y+1 is a step of -2/height in
// NDC y. Ddy is the derivative per +1 image row.
package bary

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// DegenerateEpsilon is the smallest NDC-space doubled area accepted.
// Triangles with a smaller |det| yield Degenerate.
const DegenerateEpsilon = 1e-10

// Deriv is the barycentric weight vector at a pixel together with its
// partial derivatives for a one pixel step in x and y.
type Deriv struct {
	Lambda f32.Vec3
	Ddx    f32.Vec3
	Ddy    f32.Vec3
}

// Degenerate is returned for zero-area or numerically broken triangles:
// all weight on vertex 0 and zero derivatives, so the fragment shades with
// the attributes of a single vertex at the finest mip level.
var Degenerate = Deriv{Lambda: f32.Vec3{1, 0, 0}}

// mul rounds the product to float32 on its own; the explicit conversion
// forbids the compiler from fusing it with a following add.
func mul(a, b float32) float32 { return float32(a * b) }

// Compute returns the barycentric derivatives of the triangle (p0, p1, p2),
// given as clip-space positions, at the center of pixel in a viewport of the
// given size. Only x, y and w of each position are used.
func Compute(p0, p1, p2 f32.Vec4, pixel, viewport [2]uint32) Deriv {
	center := f32.Vec2{float32(pixel[0]) + 0.5, float32(pixel[1]) + 0.5}
	size := f32.Vec2{float32(viewport[0]), float32(viewport[1])}
	return ComputeAt(p0, p1, p2, center, size)
}

// ComputeAt is Compute with a continuous sample position in pixels.
func ComputeAt(p0, p1, p2 f32.Vec4, pos, viewport f32.Vec2) Deriv {
	pxNdc := f32.Vec2{
		mul(pos[0]/viewport[0], 2) - 1,
		1 - mul(pos[1]/viewport[1], 2),
	}

	invW := f32.Vec3{1 / p0[3], 1 / p1[3], 1 / p2[3]}
	n0 := f32.Vec2{mul(p0[0], invW[0]), mul(p0[1], invW[0])}
	n1 := f32.Vec2{mul(p1[0], invW[1]), mul(p1[1], invW[1])}
	n2 := f32.Vec2{mul(p2[0], invW[2]), mul(p2[1], invW[2])}

	det := mul(n2[0]-n1[0], n0[1]-n1[1]) - mul(n0[0]-n1[0], n2[1]-n1[1])
	// The negated comparison also catches NaN.
	if !(math32.Abs(det) >= DegenerateEpsilon) {
		return Degenerate
	}
	invDet := 1 / det

	ddx := f32.Vec3{
		mul(mul(n1[1]-n2[1], invDet), invW[0]),
		mul(mul(n2[1]-n0[1], invDet), invW[1]),
		mul(mul(n0[1]-n1[1], invDet), invW[2]),
	}
	ddy := f32.Vec3{
		mul(mul(n2[0]-n1[0], invDet), invW[0]),
		mul(mul(n0[0]-n2[0], invDet), invW[1]),
		mul(mul(n1[0]-n0[0], invDet), invW[2]),
	}
	ddxSum := ddx[0] + ddx[1] + ddx[2]
	ddySum := ddy[0] + ddy[1] + ddy[2]

	dx := pxNdc[0] - n0[0]
	dy := pxNdc[1] - n0[1]
	interpInvW := invW[0] + mul(dx, ddxSum) + mul(dy, ddySum)
	interpW := 1 / interpInvW

	lambda := f32.Vec3{
		mul(interpW, mul(dx, ddx[0])+mul(dy, ddy[0])+invW[0]),
		mul(interpW, mul(dx, ddx[1])+mul(dy, ddy[1])),
		mul(interpW, mul(dx, ddx[2])+mul(dy, ddy[2])),
	}

	// NDC units to pixel steps; NDC y runs against image rows.
	sx := 2 / viewport[0]
	sy := -2 / viewport[1]
	for i := range 3 {
		ddx[i] = mul(ddx[i], sx)
		ddy[i] = mul(ddy[i], sy)
	}
	ddxSum = mul(ddxSum, sx)
	ddySum = mul(ddySum, sy)

	interpWdx := 1 / (interpInvW + ddxSum)
	interpWdy := 1 / (interpInvW + ddySum)

	var out Deriv
	out.Lambda = lambda
	for i := range 3 {
		li := mul(lambda[i], interpInvW)
		out.Ddx[i] = mul(interpWdx, li+ddx[i]) - lambda[i]
		out.Ddy[i] = mul(interpWdy, li+ddy[i]) - lambda[i]
	}
	if !out.finite() {
		return Degenerate
	}
	return out
}

func (d Deriv) finite() bool {
	for _, v := range [...]f32.Vec3{d.Lambda, d.Ddx, d.Ddy} {
		for _, c := range v {
			if math32.IsNaN(c) || math32.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

// Sum returns the sum of the weights. It is 1 up to rounding.
func (d Deriv) Sum() float32 {
	return d.Lambda[0] + d.Lambda[1] + d.Lambda[2]
}

// Inside reports whether every weight is within [-eps, 1+eps].
func (d Deriv) Inside(eps float32) bool {
	for _, l := range d.Lambda {
		if l < -eps || l > 1+eps {
			return false
		}
	}
	return true
}

// Interpolate2 returns the weighted sum of a 2-component vertex attribute
// and its pixel derivatives.
func (d Deriv) Interpolate2(a, b, c f32.Vec2) (v, dx, dy f32.Vec2) {
	for i := range 2 {
		v[i] = mul(a[i], d.Lambda[0]) + mul(b[i], d.Lambda[1]) + mul(c[i], d.Lambda[2])
		dx[i] = mul(a[i], d.Ddx[0]) + mul(b[i], d.Ddx[1]) + mul(c[i], d.Ddx[2])
		dy[i] = mul(a[i], d.Ddy[0]) + mul(b[i], d.Ddy[1]) + mul(c[i], d.Ddy[2])
	}
	return v, dx, dy
}

// Interpolate3 is Interpolate2 for 3-component attributes.
func (d Deriv) Interpolate3(a, b, c f32.Vec3) (v, dx, dy f32.Vec3) {
	for i := range 3 {
		v[i] = mul(a[i], d.Lambda[0]) + mul(b[i], d.Lambda[1]) + mul(c[i], d.Lambda[2])
		dx[i] = mul(a[i], d.Ddx[0]) + mul(b[i], d.Ddx[1]) + mul(c[i], d.Ddx[2])
		dy[i] = mul(a[i], d.Ddy[0]) + mul(b[i], d.Ddy[1]) + mul(c[i], d.Ddy[2])
	}
	return v, dx, dy
}

// Interpolate4 is Interpolate2 for 4-component attributes.
func (d Deriv) Interpolate4(a, b, c f32.Vec4) (v, dx, dy f32.Vec4) {
	for i := range 4 {
		v[i] = mul(a[i], d.Lambda[0]) + mul(b[i], d.Lambda[1]) + mul(c[i], d.Lambda[2])
		dx[i] = mul(a[i], d.Ddx[0]) + mul(b[i], d.Ddx[1]) + mul(c[i], d.Ddx[2])
		dy[i] = mul(a[i], d.Ddy[0]) + mul(b[i], d.Ddy[1]) + mul(c[i], d.Ddy[2])
	}
	return v, dx, dy
}
