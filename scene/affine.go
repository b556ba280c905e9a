// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/internal/vec3"
)

// Affine is a 3D affine transformation: a linear part followed by a
// translation. The linear part is stored row-major, so a point p maps to
//
//	p' = Linear * p + Translation
type Affine struct {
	Linear      f32.Mat3
	Translation f32.Vec3
}

// IdentityAffine returns the identity transformation.
func IdentityAffine() Affine {
	return Affine{Linear: f32.Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// TranslateAffine creates a translation.
func TranslateAffine(x, y, z float32) Affine {
	a := IdentityAffine()
	a.Translation = f32.Vec3{x, y, z}
	return a
}

// ScaleAffine creates a scaling along the axes.
func ScaleAffine(x, y, z float32) Affine {
	return Affine{Linear: f32.Mat3{x, 0, 0, 0, y, 0, 0, 0, z}}
}

// RotateXAffine rotates around the x axis (angle in radians).
func RotateXAffine(angle float32) Affine {
	s, c := math32.Sin(angle), math32.Cos(angle)
	return Affine{Linear: f32.Mat3{1, 0, 0, 0, c, -s, 0, s, c}}
}

// RotateYAffine rotates around the y axis (angle in radians).
func RotateYAffine(angle float32) Affine {
	s, c := math32.Sin(angle), math32.Cos(angle)
	return Affine{Linear: f32.Mat3{c, 0, s, 0, 1, 0, -s, 0, c}}
}

// RotateZAffine rotates around the z axis (angle in radians).
func RotateZAffine(angle float32) Affine {
	s, c := math32.Sin(angle), math32.Cos(angle)
	return Affine{Linear: f32.Mat3{c, -s, 0, s, c, 0, 0, 0, 1}}
}

// Multiply returns a*b, the transformation that applies b first.
func (a Affine) Multiply(b Affine) Affine {
	var out Affine
	for r := range 3 {
		for c := range 3 {
			out.Linear[3*r+c] = a.Linear[3*r]*b.Linear[c] +
				a.Linear[3*r+1]*b.Linear[3+c] +
				a.Linear[3*r+2]*b.Linear[6+c]
		}
	}
	out.Translation = a.TransformPoint(b.Translation)
	return out
}

// TransformVector applies the linear part only.
func (a Affine) TransformVector(v f32.Vec3) f32.Vec3 {
	m := &a.Linear
	return f32.Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// TransformNormal transforms a surface normal by the inverse transpose of
// the linear part and renormalizes it, so normals stay perpendicular to
// surfaces under non-uniform scale.
func (a Affine) TransformNormal(n f32.Vec3) f32.Vec3 {
	inv := a.Inverse()
	m := &inv.Linear
	return vec3.Normalize(f32.Vec3{
		m[0]*n[0] + m[3]*n[1] + m[6]*n[2],
		m[1]*n[0] + m[4]*n[1] + m[7]*n[2],
		m[2]*n[0] + m[5]*n[1] + m[8]*n[2],
	})
}

// TransformPoint applies the full transformation to a point.
func (a Affine) TransformPoint(p f32.Vec3) f32.Vec3 {
	v := a.TransformVector(p)
	return f32.Vec3{v[0] + a.Translation[0], v[1] + a.Translation[1], v[2] + a.Translation[2]}
}

// Inverse returns the inverse transformation. A singular linear part
// yields the zero Affine.
func (a Affine) Inverse() Affine {
	m := &a.Linear
	c00 := m[4]*m[8] - m[5]*m[7]
	c01 := m[5]*m[6] - m[3]*m[8]
	c02 := m[3]*m[7] - m[4]*m[6]
	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if det == 0 {
		return Affine{}
	}
	inv := 1 / det
	var out Affine
	out.Linear = f32.Mat3{
		c00 * inv, (m[2]*m[7] - m[1]*m[8]) * inv, (m[1]*m[5] - m[2]*m[4]) * inv,
		c01 * inv, (m[0]*m[8] - m[2]*m[6]) * inv, (m[2]*m[3] - m[0]*m[5]) * inv,
		c02 * inv, (m[1]*m[6] - m[0]*m[7]) * inv, (m[0]*m[4] - m[1]*m[3]) * inv,
	}
	t := out.TransformVector(a.Translation)
	out.Translation = f32.Vec3{-t[0], -t[1], -t[2]}
	return out
}

// Mat4 returns the transformation as a row-major 4x4 matrix.
func (a Affine) Mat4() f32.Mat4 {
	m := &a.Linear
	return f32.Mat4{
		m[0], m[1], m[2], a.Translation[0],
		m[3], m[4], m[5], a.Translation[1],
		m[6], m[7], m[8], a.Translation[2],
		0, 0, 0, 1,
	}
}

// IsIdentity reports whether a is the identity transformation.
func (a Affine) IsIdentity() bool {
	return a == IdentityAffine()
}

// LookAt returns the view transformation of a camera at eye looking at
// target. The view space is right-handed with the camera looking down -z.
func LookAt(eye, target, up f32.Vec3) Affine {
	f := vec3.Normalize(vec3.Sub(target, eye))
	s := vec3.Normalize(vec3.Cross(f, up))
	u := vec3.Cross(s, f)
	a := Affine{Linear: f32.Mat3{
		s[0], s[1], s[2],
		u[0], u[1], u[2],
		-f[0], -f[1], -f[2],
	}}
	a.Translation = f32.Vec3{-vec3.Dot(s, eye), -vec3.Dot(u, eye), vec3.Dot(f, eye)}
	return a
}
