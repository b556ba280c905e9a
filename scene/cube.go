// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/internal/vec3"
)

var cubeCorners = [8]f32.Vec3{
	// front
	{-1, -1, 1},
	{1, -1, 1},
	{1, 1, 1},
	{-1, 1, 1},
	// back
	{-1, -1, -1},
	{1, -1, -1},
	{1, 1, -1},
	{-1, 1, -1},
}

var cubeTriangles = [12]Triangle{
	// front
	{0, 1, 2}, {2, 3, 0},
	// right
	{1, 5, 6}, {6, 2, 1},
	// back
	{7, 6, 5}, {5, 4, 7},
	// left
	{4, 0, 3}, {3, 7, 4},
	// bottom
	{4, 5, 1}, {1, 0, 4},
	// top
	{3, 2, 6}, {6, 7, 3},
}

// CubeMesh returns the 8 vertices and 12 triangles of the cube spanning
// [-1, 1] on every axis, transformed by transform. Corners share vertices,
// so normals point diagonally away from the center.
func CubeMesh(transform Affine) ([]Vertex, []Triangle) {
	vertices := make([]Vertex, len(cubeCorners))
	for i, p := range cubeCorners {
		vertices[i] = Vertex{
			Position: transform.TransformPoint(p),
			Normal:   vec3.Normalize(transform.TransformVector(p)),
			Tangent:  f32.Vec4{1, 0, 0, 1},
			TexCoord: f32.Vec2{p[0]*0.5 + 0.5, 0.5 - p[1]*0.5},
		}
	}
	return vertices, cubeTriangles[:]
}

// Cube uploads a transformed cube with the given material.
func Cube(d *bindless.Descriptors, transform Affine, material bindless.DynBuffer[bindless.Strong]) (*CpuModel, error) {
	vertices, triangles := CubeMesh(transform)
	return NewCpuModel(d, vertices, triangles, material)
}
