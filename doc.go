// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package visi is the core of a visibility buffer renderer.
//
// # Overview
//
// Geometry is rasterized once into an image of packed 32-bit geometry ids.
// A later full-screen pass reads each id back, rebuilds the triangle from
// GPU-resident scene data and shades the pixel, so shading cost does not
// depend on overdraw.
//
// # Architecture
//
// The module is organized into:
//   - geomid: the packed (instance, triangle) id and its clear sentinel
//   - bary: perspective-correct barycentrics and their screen derivatives
//   - bindless: descriptor tables with owned, shared, strong and transient
//     references, epoch-gated slot recycling and dynamic buffer types
//   - scene: camera, instances and models, built per frame by an accumulator
//   - raster: the visibility pass
//   - shade: the generic 8x8 shading dispatch and material pipelines
//   - material: debug and PBR-shaped material evaluators
//   - render: the renderer tying the passes together
//
// This package holds what every sub-package shares: the logger and the
// optional GPU accelerator registry.
//
// # Logging
//
// visi is silent by default. Enable logging with [SetLogger]:
//
//	visi.SetLogger(slog.Default())
//
// # GPU acceleration
//
// The passes run on the CPU. Importing the gpu package registers a
// wgpu/hal accelerator for the operations it supports:
//
//	import _ "github.com/gogpu/visi/gpu"
package visi
