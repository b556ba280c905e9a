// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"
)

// Perspective describes a perspective projection into WebGPU clip space:
// depth 0 at the near plane and 1 at the far plane.
type Perspective struct {
	// FovY is the vertical field of view in radians.
	FovY float32
	Near float32
	Far  float32
}

// NewPerspective returns the projection parameters.
func NewPerspective(fovY, near, far float32) Perspective {
	return Perspective{FovY: fovY, Near: near, Far: far}
}

// Mat4 returns the row-major projection matrix for the given aspect ratio.
func (p Perspective) Mat4(aspect float32) f32.Mat4 {
	f, a, b := p.terms()
	return f32.Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, a, b,
		0, 0, -1, 0,
	}
}

// terms returns the focal length and the depth mapping z' = a*z + b.
func (p Perspective) terms() (f, a, b float32) {
	f = 1 / math32.Tan(p.FovY/2)
	a = p.Far / (p.Near - p.Far)
	b = p.Near * p.Far / (p.Near - p.Far)
	return f, a, b
}

// Camera is the view of a scene. It is uploaded as part of Scene and read
// by both passes.
type Camera struct {
	ViewFromWorld Affine
	Projection    Perspective
	ViewportSize  [2]uint32
}

// TransformedVertex is a vertex position in every space the passes need.
type TransformedVertex struct {
	World f32.Vec3
	View  f32.Vec3
	Clip  f32.Vec4
}

// Aspect returns the viewport aspect ratio, or 1 for an empty viewport.
func (c Camera) Aspect() float32 {
	if c.ViewportSize[1] == 0 {
		return 1
	}
	return float32(c.ViewportSize[0]) / float32(c.ViewportSize[1])
}

// ClipFromWorld returns the row-major world to clip space matrix.
func (c Camera) ClipFromWorld() f32.Mat4 {
	return mulMat4(c.Projection.Mat4(c.Aspect()), c.ViewFromWorld.Mat4())
}

// Position returns the camera position in world space.
func (c Camera) Position() f32.Vec3 {
	return c.ViewFromWorld.Inverse().Translation
}

// TransformVertex transforms a model-space position by the instance
// transform and the camera.
func (c Camera) TransformVertex(worldFromLocal Affine, p f32.Vec3) TransformedVertex {
	world := worldFromLocal.TransformPoint(p)
	view := c.ViewFromWorld.TransformPoint(world)
	return TransformedVertex{
		World: world,
		View:  view,
		Clip:  MulMat4Vec4(c.Projection.Mat4(c.Aspect()), f32.Vec4{view[0], view[1], view[2], 1}),
	}
}

// ReconstructFromDepth returns the world-space position of the surface
// seen at pixel, given the depth buffer value there. Pixel centers are at
// +0.5 and image row 0 is the top of the viewport.
func (c Camera) ReconstructFromDepth(pixel [2]uint32, depth float32) f32.Vec3 {
	w, h := float32(c.ViewportSize[0]), float32(c.ViewportSize[1])
	ndcX := (float32(pixel[0])+0.5)/w*2 - 1
	ndcY := 1 - (float32(pixel[1])+0.5)/h*2

	f, a, b := c.Projection.terms()
	viewZ := -b / (depth + a)
	view := f32.Vec3{
		ndcX * -viewZ * c.Aspect() / f,
		ndcY * -viewZ / f,
		viewZ,
	}
	return c.ViewFromWorld.Inverse().TransformPoint(view)
}

func mulMat4(a, b f32.Mat4) f32.Mat4 {
	var out f32.Mat4
	for r := range 4 {
		for c := range 4 {
			var s float32
			for k := range 4 {
				s += a[4*r+k] * b[4*k+c]
			}
			out[4*r+c] = s
		}
	}
	return out
}

// MulMat4Vec4 multiplies a row-major matrix by a column vector.
func MulMat4Vec4(m f32.Mat4, v f32.Vec4) f32.Vec4 {
	var out f32.Vec4
	for r := range 4 {
		out[r] = m[4*r]*v[0] + m[4*r+1]*v[1] + m[4*r+2]*v[2] + m[4*r+3]*v[3]
	}
	return out
}
