// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"errors"
	"fmt"

	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
)

// Errors returned while building scene data.
var (
	// ErrTooManyInstances is returned when a frame holds more instances
	// than a geometry id can address.
	ErrTooManyInstances = errors.New("scene: too many instances")

	// ErrTooManyTriangles is returned when a model holds more triangles
	// than a geometry id can address.
	ErrTooManyTriangles = errors.New("scene: too many triangles")

	// ErrIndexOutOfRange is returned when a triangle refers to a vertex
	// that does not exist.
	ErrIndexOutOfRange = errors.New("scene: vertex index out of range")
)

// CpuModel is the CPU-side handle of an uploaded Model. It shares
// ownership of the model buffer, which in turn keeps the index, vertex and
// material buffers alive.
type CpuModel struct {
	Model         bindless.SharedDesc[bindless.Buffer[Model]]
	TriangleCount uint32
}

// NewCpuModel uploads vertices and triangles and creates the Model
// referencing them and material.
func NewCpuModel(d *bindless.Descriptors, vertices []Vertex, triangles []Triangle, material bindless.DynBuffer[bindless.Strong]) (*CpuModel, error) {
	if len(triangles) > geomid.MaxTriangles {
		return nil, fmt.Errorf("%w: %d triangles", ErrTooManyTriangles, len(triangles))
	}
	for i, tri := range triangles {
		for _, idx := range tri {
			if int(idx) >= len(vertices) {
				return nil, fmt.Errorf("%w: triangle %d uses vertex %d of %d", ErrIndexOutOfRange, i, idx, len(vertices))
			}
		}
	}

	tris, err := bindless.AllocBuffer(d, triangles)
	if err != nil {
		return nil, fmt.Errorf("scene: upload triangles: %w", err)
	}
	defer bindless.Release(tris)
	verts, err := bindless.AllocBuffer(d, vertices)
	if err != nil {
		return nil, fmt.Errorf("scene: upload vertices: %w", err)
	}
	defer bindless.Release(verts)

	model, err := bindless.AllocStruct(d, Model{
		Triangles:     bindless.ToStrong(tris),
		Vertices:      bindless.ToStrong(verts),
		TriangleCount: uint32(len(triangles)),
		Material:      material,
	})
	if err != nil {
		return nil, fmt.Errorf("scene: upload model: %w", err)
	}
	return &CpuModel{
		Model:         bindless.Share(model),
		TriangleCount: uint32(len(triangles)),
	}, nil
}

// Release drops this handle's share of the model.
func (m *CpuModel) Release() {
	bindless.Release(m.Model)
}

// Draw is one instanced draw of the raster pass: InstanceCount instances
// of Model starting at InstanceStart in the scene's instance buffer.
type Draw struct {
	Model         *CpuModel
	InstanceStart uint32
	InstanceCount uint32
}

// Accumulator collects the instances of one frame grouped by model, so
// that each model is drawn once with all of its instances.
type Accumulator struct {
	order  []*CpuModel
	groups map[*CpuModel][]InstanceInfo
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{groups: make(map[*CpuModel][]InstanceInfo)}
}

// Push adds an instance of model.
func (a *Accumulator) Push(model *CpuModel, info InstanceInfo) {
	if _, ok := a.groups[model]; !ok {
		a.order = append(a.order, model)
	}
	a.groups[model] = append(a.groups[model], info)
}

// Len returns the number of instances pushed so far.
func (a *Accumulator) Len() int {
	n := 0
	for _, g := range a.groups {
		n += len(g)
	}
	return n
}

// CpuScene is an uploaded frame scene.
type CpuScene struct {
	Scene         bindless.SharedDesc[bindless.Buffer[Scene]]
	Draws         []Draw
	InstanceCount uint32
	Camera        Camera
}

// Finish uploads the instances and the scene. Models are drawn in the order
// they were first pushed.
//
// Instance indices stay below geomid.InstanceMask, which keeps every
// packed id distinct from geomid.Clear.
func (a *Accumulator) Finish(d *bindless.Descriptors, camera Camera) (*CpuScene, error) {
	instances := make([]Instance, 0, a.Len())
	draws := make([]Draw, 0, len(a.order))
	for _, model := range a.order {
		group := a.groups[model]
		start := uint32(len(instances))
		count := uint32(len(group))
		if _, err := geomid.NewInstanceId(start + count); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTooManyInstances, err)
		}
		modelRef := bindless.ToStrong(model.Model)
		for _, info := range group {
			instances = append(instances, Instance{Model: modelRef, InstanceInfo: info})
		}
		draws = append(draws, Draw{Model: model, InstanceStart: start, InstanceCount: count})
	}

	buf, err := bindless.AllocBuffer(d, instances)
	if err != nil {
		return nil, fmt.Errorf("scene: upload instances: %w", err)
	}
	defer bindless.Release(buf)

	sc, err := bindless.AllocStruct(d, Scene{
		Instances:     bindless.ToStrong(buf),
		InstanceCount: uint32(len(instances)),
		Camera:        camera,
	})
	if err != nil {
		return nil, fmt.Errorf("scene: upload scene: %w", err)
	}
	return &CpuScene{
		Scene:         bindless.Share(sc),
		Draws:         draws,
		InstanceCount: uint32(len(instances)),
		Camera:        camera,
	}, nil
}

// Release drops the CPU share of the scene. Buffers still referenced by
// in-flight recordings are recycled once those complete.
func (s *CpuScene) Release() {
	bindless.Release(s.Scene)
}
