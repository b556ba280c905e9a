// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/bary"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
)

// Vertex is one model vertex as stored in GPU memory.
type Vertex struct {
	Position f32.Vec3
	Normal   f32.Vec3
	Tangent  f32.Vec4
	TexCoord f32.Vec2
}

// Triangle holds the vertex indices of one triangle.
type Triangle [3]uint32

// Model is the GPU-resident description of a mesh.
type Model struct {
	Triangles     bindless.StrongDesc[bindless.Buffer[Triangle]]
	Vertices      bindless.StrongDesc[bindless.Buffer[Vertex]]
	TriangleCount uint32

	// Material refers to a buffer whose element type is only known to the
	// material evaluator that registered it.
	Material bindless.DynBuffer[bindless.Strong]
}

// VisitStrong implements bindless.StrongHolder.
func (m Model) VisitStrong(visit func(bindless.StrongRef)) {
	visit(m.Triangles)
	visit(m.Vertices)
	visit(m.Material)
}

// LoadTriangle returns the vertex indices of triangle t.
func (m Model) LoadTriangle(d *bindless.Descriptors, t geomid.TriangleId) Triangle {
	return bindless.AccessBuffer(d, m.Triangles)[t.Int()]
}

// LoadVertex returns vertex i.
func (m Model) LoadVertex(d *bindless.Descriptors, i uint32) Vertex {
	return bindless.AccessBuffer(d, m.Vertices)[i]
}

// InstanceInfo is the per-instance data besides the model reference.
type InstanceInfo struct {
	WorldFromLocal Affine
}

// Instance places a model in the world.
type Instance struct {
	Model bindless.StrongDesc[bindless.Buffer[Model]]
	InstanceInfo
}

// VisitStrong implements bindless.StrongHolder.
func (i Instance) VisitStrong(visit func(bindless.StrongRef)) {
	visit(i.Model)
}

// Scene is the root of the GPU-resident scene graph of one frame.
type Scene struct {
	Instances     bindless.StrongDesc[bindless.Buffer[Instance]]
	InstanceCount uint32
	Camera        Camera
}

// VisitStrong implements bindless.StrongHolder.
func (s Scene) VisitStrong(visit func(bindless.StrongRef)) {
	visit(s.Instances)
}

// LoadInstance returns instance id.
func (s Scene) LoadInstance(d *bindless.Descriptors, id geomid.InstanceId) Instance {
	return bindless.AccessBuffer(d, s.Instances)[id.Int()]
}

// TriangleData is a triangle rebuilt from a geometry id, as seen from one
// pixel.
type TriangleData struct {
	Instance Instance
	Model    Model
	Indices  Triangle
	Vertices [3]Vertex

	// Clip holds the clip-space vertex positions.
	Clip [3]f32.Vec4

	// Bary holds the barycentrics at the pixel center.
	Bary bary.Deriv
}

// LoadTriangle follows instance, model and index buffers from geo and
// computes the barycentrics of pixel. geo must not be clear.
func (s Scene) LoadTriangle(d *bindless.Descriptors, pixel [2]uint32, geo geomid.GeometryId) TriangleData {
	inst, model := s.LoadModel(d, geo.Instance)
	return s.ModelTriangle(d, pixel, geo.Triangle, inst, model)
}

// LoadModel returns instance id and the model it places.
func (s Scene) LoadModel(d *bindless.Descriptors, id geomid.InstanceId) (Instance, Model) {
	inst := s.LoadInstance(d, id)
	return inst, bindless.AccessStruct(d, inst.Model)
}

// ModelTriangle completes LoadTriangle for an instance and model already
// returned by LoadModel.
func (s Scene) ModelTriangle(d *bindless.Descriptors, pixel [2]uint32, t geomid.TriangleId, inst Instance, model Model) TriangleData {
	tri := TriangleData{Instance: inst, Model: model}
	tri.Indices = model.LoadTriangle(d, t)

	vertices := bindless.AccessBuffer(d, tri.Model.Vertices)
	for i, idx := range tri.Indices {
		tri.Vertices[i] = vertices[idx]
		tri.Clip[i] = s.Camera.TransformVertex(tri.Instance.WorldFromLocal, tri.Vertices[i].Position).Clip
	}
	tri.Bary = bary.Compute(tri.Clip[0], tri.Clip[1], tri.Clip[2], pixel, s.Camera.ViewportSize)
	return tri
}
