// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render drives a frame through the visibility buffer pipeline.
//
// A VisibilityRenderer owns the per-extent attachments of the visibility
// pass (a packed geometry id image and a depth image) and runs the frame
// in three steps:
//
//  1. The raster pass writes the nearest geometry id of every pixel.
//  2. The debug view colors every pixel from its id alone.
//  3. Optional material pipelines shade the pixels of their models.
//
// The debug view is routed through the registered visi.ShadeAccelerator
// when there is one. Accelerators return visi.ErrFallbackToCPU for modes
// they cannot evaluate, and the renderer then runs the CPU path.
//
// # Key Principle
//
// visi RECEIVES a GPU device from the host application, it does NOT
// create one for the renderer. Pass a DeviceHandle with WithDevice to let
// the accelerator share it.
//
// # Usage
//
//	d := bindless.NewDescriptors()
//	r, err := render.New(d)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	rec := d.Begin()
//	err = r.Render(ctx, rec, bindless.ToTransient(rec, output), render.RenderInfo{
//	    Scene: frame,
//	    Debug: material.DefaultDebugSettings(),
//	})
//
// # Thread Safety
//
// A VisibilityRenderer is NOT thread-safe. Render from a single goroutine
// or synchronize externally.
package render
