// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu implements visi.ShadeAccelerator on wgpu/hal compute shaders.
//
// The accelerator evaluates the visibility debug view on the GPU. Ids are
// uploaded to a storage buffer, a WGSL compute shader compiled to SPIR-V
// by naga runs one invocation per pixel in 8x8 workgroups, and the colors
// are read back through a staging buffer.
//
// The accelerator opens its own Vulkan device unless the host shares one
// through SetDeviceProvider. When no device is available Init still
// succeeds and every operation returns visi.ErrFallbackToCPU.
//
// Build with the nogpu tag to exclude the package entirely.
package gpu
