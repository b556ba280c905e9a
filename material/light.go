// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"fmt"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/internal/vec3"
)

// AmbientLight lights every surface uniformly.
type AmbientLight struct {
	Color f32.Vec3
}

// DirectionalLight is a light at infinity shining along Direction.
type DirectionalLight struct {
	Direction f32.Vec3
	Color     f32.Vec3
}

// PointLight emits from Position with inverse square falloff.
type PointLight struct {
	Position f32.Vec3
	Color    f32.Vec3
}

// LightScene holds the lights of a frame. Empty light lists are zero
// descriptors.
type LightScene struct {
	Ambient     AmbientLight
	Directional bindless.StrongDesc[bindless.Buffer[DirectionalLight]]
	Point       bindless.StrongDesc[bindless.Buffer[PointLight]]
}

// VisitStrong implements bindless.StrongHolder.
func (s LightScene) VisitStrong(visit func(bindless.StrongRef)) {
	visit(s.Directional)
	visit(s.Point)
}

// lightEvaluator is a surface that can respond to each kind of light.
type lightEvaluator interface {
	ambient(l AmbientLight) f32.Vec3
	directional(l DirectionalLight) f32.Vec3
	point(l PointLight) f32.Vec3
}

// eval sums the contribution of every light to m.
func (s LightScene) eval(d *bindless.Descriptors, m lightEvaluator) f32.Vec3 {
	out := m.ambient(s.Ambient)
	if !s.Directional.IsZero() {
		for _, l := range bindless.AccessBuffer(d, s.Directional) {
			out = vec3.Add(out, m.directional(l))
		}
	}
	if !s.Point.IsZero() {
		for _, l := range bindless.AccessBuffer(d, s.Point) {
			out = vec3.Add(out, m.point(l))
		}
	}
	return out
}

// UploadLights uploads a light scene and its light lists.
func UploadLights(d *bindless.Descriptors, ambient AmbientLight, directional []DirectionalLight, point []PointLight) (bindless.SharedDesc[bindless.Buffer[LightScene]], error) {
	var zero bindless.SharedDesc[bindless.Buffer[LightScene]]
	scene := LightScene{Ambient: ambient}
	if len(directional) > 0 {
		buf, err := bindless.AllocBuffer(d, directional)
		if err != nil {
			return zero, fmt.Errorf("material: upload directional lights: %w", err)
		}
		defer bindless.Release(buf)
		scene.Directional = bindless.ToStrong(buf)
	}
	if len(point) > 0 {
		buf, err := bindless.AllocBuffer(d, point)
		if err != nil {
			return zero, fmt.Errorf("material: upload point lights: %w", err)
		}
		defer bindless.Release(buf)
		scene.Point = bindless.ToStrong(buf)
	}
	buf, err := bindless.AllocStruct(d, scene)
	if err != nil {
		return zero, fmt.Errorf("material: upload light scene: %w", err)
	}
	return bindless.Share(buf), nil
}
