// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package vec3 provides the small set of 3-component vector operations
// shared by scene construction, surface reconstruction and shading.
package vec3

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Add returns a + b.
func Add(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }

// Sub returns a - b.
func Sub(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

// Mul returns the component-wise product of a and b.
func Mul(a, b f32.Vec3) f32.Vec3 { return f32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]} }

// Scale returns a * s.
func Scale(a f32.Vec3, s float32) f32.Vec3 { return f32.Vec3{a[0] * s, a[1] * s, a[2] * s} }

func Dot(a, b f32.Vec3) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func Cross(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Length returns the Euclidean length of v.
func Length(v f32.Vec3) float32 { return math32.Sqrt(Dot(v, v)) }

// Normalize returns v scaled to unit length. The zero vector is
// returned unchanged.
func Normalize(v f32.Vec3) f32.Vec3 {
	l := Length(v)
	if l == 0 {
		return v
	}
	return Scale(v, 1/l)
}

// Lerp interpolates linearly from a (t=0) to b (t=1).
func Lerp(a, b f32.Vec3, t float32) f32.Vec3 {
	return Add(Scale(a, 1-t), Scale(b, t))
}
