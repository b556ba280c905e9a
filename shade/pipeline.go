// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shade

import (
	"fmt"

	"github.com/gogpu/visi/bindless"
)

// MaterialPipeline is a material evaluator together with the buffer type
// it shades. It corresponds to one compute pipeline on the GPU.
type MaterialPipeline[P, M any] struct {
	name string
	typ  bindless.BufferType[M]
	eval EvalFunc[P, M]
}

// NewMaterialPipeline creates a pipeline shading models whose material
// buffer has type typ.
func NewMaterialPipeline[P, M any](name string, typ bindless.BufferType[M], eval EvalFunc[P, M]) *MaterialPipeline[P, M] {
	return &MaterialPipeline[P, M]{name: name, typ: typ, eval: eval}
}

// Name returns the pipeline name.
func (p *MaterialPipeline[P, M]) Name() string { return p.name }

// Type returns the material buffer type the pipeline shades.
func (p *MaterialPipeline[P, M]) Type() bindless.BufferType[M] { return p.typ }

// Dispatch shades target with param.
func (p *MaterialPipeline[P, M]) Dispatch(d *bindless.Descriptors, target Target, param P, opts ...Option) error {
	return Image(d, Params[P, M]{Target: target, MaterialType: p.typ, Param: param}, p.eval, opts...)
}

// Bind fixes the pipeline parameters, producing an evaluator that can be
// queued on a Pass next to pipelines of other material types.
func (p *MaterialPipeline[P, M]) Bind(param P) MaterialEval {
	return boundPipeline[P, M]{p: p, param: param}
}

// MaterialEval is a pipeline bound to its parameters.
type MaterialEval interface {
	Name() string
	Dispatch(d *bindless.Descriptors, target Target, opts ...Option) error
}

type boundPipeline[P, M any] struct {
	p     *MaterialPipeline[P, M]
	param P
}

func (b boundPipeline[P, M]) Name() string { return b.p.name }

func (b boundPipeline[P, M]) Dispatch(d *bindless.Descriptors, target Target, opts ...Option) error {
	return b.p.Dispatch(d, target, b.param, opts...)
}

// Pass runs a list of bound material pipelines over the same target, in
// order. Every pixel is written by at most the pipelines whose type
// matches its model's material.
type Pass struct {
	evals []MaterialEval
}

// NewPass creates a pass.
func NewPass(evals ...MaterialEval) *Pass {
	return &Pass{evals: evals}
}

// Add appends an evaluator.
func (p *Pass) Add(e MaterialEval) {
	p.evals = append(p.evals, e)
}

// Len returns the number of evaluators.
func (p *Pass) Len() int { return len(p.evals) }

// Run dispatches every evaluator. It stops at the first error.
func (p *Pass) Run(d *bindless.Descriptors, target Target, opts ...Option) error {
	for _, e := range p.evals {
		if err := e.Dispatch(d, target, opts...); err != nil {
			return fmt.Errorf("shade: material %q: %w", e.Name(), err)
		}
	}
	return nil
}
