// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/internal/vec3"
	"github.com/gogpu/visi/shade"
)

// PBR is a metallic-roughness material. Texture references may be zero,
// in which case the corresponding factor is used alone.
type PBR struct {
	BaseColor       bindless.StrongDesc[bindless.Image]
	BaseColorFactor f32.Vec4

	// Normal is a tangent-space normal map.
	Normal      bindless.StrongDesc[bindless.Image]
	NormalScale float32

	// OcclusionRoughnessMetallic packs occlusion, roughness and metallic
	// in the red, green and blue channels.
	OcclusionRoughnessMetallic bindless.StrongDesc[bindless.Image]
	OcclusionStrength          float32
	MetallicFactor             float32
	RoughnessFactor            float32
}

// DefaultPBR returns an untextured white dielectric.
func DefaultPBR() PBR {
	return PBR{
		BaseColorFactor:   f32.Vec4{1, 1, 1, 1},
		NormalScale:       1,
		OcclusionStrength: 1,
		MetallicFactor:    0,
		RoughnessFactor:   0.5,
	}
}

// VisitStrong implements bindless.StrongHolder.
func (m PBR) VisitStrong(visit func(bindless.StrongRef)) {
	visit(m.BaseColor)
	visit(m.Normal)
	visit(m.OcclusionRoughnessMetallic)
}

// PBRBufferType tags PBR material buffers.
var PBRBufferType = bindless.RegisterDynBufferType[PBR]()

// PBRParam is the per-dispatch input of the PBR pipeline.
type PBRParam struct {
	Sampler bindless.TransientDesc[bindless.Sampler]
	Lights  bindless.TransientDesc[bindless.Buffer[LightScene]]
}

// NewPBRPipeline returns the PBR material pipeline.
func NewPBRPipeline() *shade.MaterialPipeline[PBRParam, PBR] {
	return shade.NewMaterialPipeline("pbr", PBRBufferType, EvalPBR)
}

// UploadPBR uploads a PBR material buffer.
func UploadPBR(d *bindless.Descriptors, m PBR) (*Material[PBR], error) {
	return Upload(d, PBRBufferType, m)
}

// EvalPBR shades a pixel under the light scene of in.Param. Alpha is 1.
func EvalPBR(d *bindless.Descriptors, in shade.EvalInput[PBRParam, PBR]) f32.Vec4 {
	m := bindless.AccessStruct(d, in.Material)
	sampler := bindless.AccessSampler(d, in.Param.Sampler)
	s := in.Surface

	sample := func(img bindless.StrongDesc[bindless.Image]) (f32.Vec4, bool) {
		if img.IsZero() {
			return f32.Vec4{}, false
		}
		return sampler.SampleGrad(bindless.AccessImage(d, img), s.UV, s.UVDdx, s.UVDdy), true
	}

	sm := sampledPBR{
		albedo:    f32.Vec3{m.BaseColorFactor[0], m.BaseColorFactor[1], m.BaseColorFactor[2]},
		metallic:  m.MetallicFactor,
		roughness: m.RoughnessFactor,
		occlusion: 1,
		normal:    s.Normal,
		view:      s.View,
		position:  s.Position,
	}
	if c, ok := sample(m.BaseColor); ok {
		sm.albedo = vec3.Mul(sm.albedo, f32.Vec3{c[0], c[1], c[2]})
	}
	if orm, ok := sample(m.OcclusionRoughnessMetallic); ok {
		sm.occlusion = 1 + m.OcclusionStrength*(orm[0]-1)
		sm.roughness *= orm[1]
		sm.metallic *= orm[2]
	}
	if n, ok := sample(m.Normal); ok {
		ts := f32.Vec3{(n[0]*2 - 1) * m.NormalScale, (n[1]*2 - 1) * m.NormalScale, n[2]*2 - 1}
		t := f32.Vec3{s.Tangent[0], s.Tangent[1], s.Tangent[2]}
		sm.normal = vec3.Normalize(vec3.Add(vec3.Add(vec3.Scale(t, ts[0]), vec3.Scale(s.Bitangent(), ts[1])), vec3.Scale(s.Normal, ts[2])))
	}

	lights := bindless.AccessStruct(d, in.Param.Lights)
	c := lights.eval(d, sm)
	return f32.Vec4{c[0], c[1], c[2], 1}
}

// sampledPBR is a PBR material resolved at one surface point.
type sampledPBR struct {
	albedo    f32.Vec3
	metallic  float32
	roughness float32
	occlusion float32

	normal   f32.Vec3
	view     f32.Vec3
	position f32.Vec3
}

func (m sampledPBR) ambient(l AmbientLight) f32.Vec3 {
	return vec3.Scale(vec3.Mul(m.albedo, l.Color), m.occlusion)
}

func (m sampledPBR) directional(l DirectionalLight) f32.Vec3 {
	return m.radiance(vec3.Normalize(vec3.Scale(l.Direction, -1)), l.Color)
}

func (m sampledPBR) point(l PointLight) f32.Vec3 {
	toLight := vec3.Sub(l.Position, m.position)
	dist2 := vec3.Dot(toLight, toLight)
	if dist2 == 0 {
		return f32.Vec3{}
	}
	return m.radiance(vec3.Normalize(toLight), vec3.Scale(l.Color, 1/dist2))
}

// radiance is the light reflected towards the viewer from light arriving
// along dir with the given irradiance color.
func (m sampledPBR) radiance(dir, color f32.Vec3) f32.Vec3 {
	nl := vec3.Dot(m.normal, dir)
	if nl <= 0 {
		return f32.Vec3{}
	}
	diffuse := vec3.Scale(m.albedo, (1-m.metallic)/math32.Pi)

	f0 := vec3.Lerp(f32.Vec3{0.04, 0.04, 0.04}, m.albedo, m.metallic)
	h := vec3.Normalize(vec3.Add(dir, m.view))
	nh := max(vec3.Dot(m.normal, h), 0)
	shininess := blinnExponent(m.roughness)
	specular := vec3.Scale(f0, (shininess+8)/(8*math32.Pi)*math32.Pow(nh, shininess))

	return vec3.Scale(vec3.Mul(vec3.Add(diffuse, specular), color), nl)
}

// blinnExponent converts perceptual roughness to a Blinn-Phong exponent.
func blinnExponent(roughness float32) float32 {
	a := max(roughness*roughness, 1e-3)
	return max(2/(a*a)-2, 0)
}
