// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package material provides material evaluators for the shading pass.
//
// A material is two halves: a buffer type registered with
// bindless.RegisterDynBufferType, whose values are referenced by models,
// and an evaluator run by a shade.MaterialPipeline over every pixel whose
// model carries a buffer of that type.
//
// Two materials are included. Debug visualizes geometry ids and
// barycentrics. PBR is a metallic-roughness material lit by the analytic
// lights of a LightScene, using a Lambert diffuse and normalized
// Blinn-Phong specular term.
package material

import (
	"fmt"

	"github.com/gogpu/visi/bindless"
)

// Material is an uploaded material buffer of element type M.
type Material[M any] struct {
	buf bindless.SharedDesc[bindless.Buffer[M]]
	typ bindless.BufferType[M]
}

// Upload stores v in a new buffer tagged with typ.
func Upload[M any](d *bindless.Descriptors, typ bindless.BufferType[M], v M) (*Material[M], error) {
	buf, err := bindless.AllocStruct(d, v)
	if err != nil {
		return nil, fmt.Errorf("material: upload %v: %w", typ, err)
	}
	return &Material[M]{buf: bindless.Share(buf), typ: typ}, nil
}

// Dyn returns the type-erased reference stored in scene.Model.
func (m *Material[M]) Dyn() bindless.DynBuffer[bindless.Strong] {
	return bindless.NewDynBuffer(m.typ, bindless.ToStrong(m.buf))
}

// Desc returns the shared buffer reference.
func (m *Material[M]) Desc() bindless.SharedDesc[bindless.Buffer[M]] {
	return m.buf
}

// Release drops this handle. Models referencing the material keep it alive.
func (m *Material[M]) Release() {
	bindless.Release(m.buf)
}
