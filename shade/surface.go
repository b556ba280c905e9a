// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shade

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/internal/vec3"
	"github.com/gogpu/visi/scene"
)

// Surface is the shading point seen at one pixel, rebuilt from the
// visibility and depth images. Vectors are in world space.
type Surface struct {
	Pixel    [2]uint32
	Geometry geomid.GeometryId
	Depth    float32

	// Position is reconstructed from depth, not interpolated.
	Position f32.Vec3
	// View points from the surface towards the camera.
	View f32.Vec3

	Normal  f32.Vec3
	Tangent f32.Vec4

	// UV and its screen-space derivatives, for gradient sampling.
	UV           f32.Vec2
	UVDdx, UVDdy f32.Vec2

	CameraPosition f32.Vec3
}

// Reconstruct builds the surface of tri at pixel. depth is the value
// stored in the depth image at that pixel.
func Reconstruct(cam scene.Camera, tri scene.TriangleData, pixel [2]uint32, geo geomid.GeometryId, depth float32) Surface {
	v := &tri.Vertices
	b := tri.Bary
	xf := tri.Instance.WorldFromLocal

	s := Surface{
		Pixel:          pixel,
		Geometry:       geo,
		Depth:          depth,
		Position:       cam.ReconstructFromDepth(pixel, depth),
		CameraPosition: cam.Position(),
	}
	s.View = vec3.Normalize(vec3.Sub(s.CameraPosition, s.Position))

	n, _, _ := b.Interpolate3(v[0].Normal, v[1].Normal, v[2].Normal)
	s.Normal = xf.TransformNormal(n)

	tan, _, _ := b.Interpolate4(v[0].Tangent, v[1].Tangent, v[2].Tangent)
	tw := vec3.Normalize(xf.TransformVector(f32.Vec3{tan[0], tan[1], tan[2]}))
	s.Tangent = f32.Vec4{tw[0], tw[1], tw[2], sign(tan[3])}

	s.UV, s.UVDdx, s.UVDdy = b.Interpolate2(v[0].TexCoord, v[1].TexCoord, v[2].TexCoord)
	return s
}

// Bitangent returns the third axis of the tangent frame.
func (s Surface) Bitangent() f32.Vec3 {
	b := vec3.Cross(s.Normal, f32.Vec3{s.Tangent[0], s.Tangent[1], s.Tangent[2]})
	return vec3.Scale(b, s.Tangent[3])
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
