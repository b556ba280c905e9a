// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

// Package gpu registers the compute shader accelerator for the visibility
// debug view.
//
// Import it for its side effect:
//
//	import _ "github.com/gogpu/visi/gpu"
//
// If no GPU device can be opened the accelerator stays registered but
// every operation reports visi.ErrFallbackToCPU, and renderers shade on
// the CPU.
package gpu

import (
	"github.com/gogpu/visi"
	gpuimpl "github.com/gogpu/visi/internal/gpu"
)

func init() {
	if err := visi.RegisterAccelerator(&gpuimpl.DebugAccelerator{}); err != nil {
		visi.ComponentLogger("gpu").Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider makes the accelerator use a GPU device shared by the
// host application instead of its own.
//
// The provider should be a gpucontext.DeviceProvider that also exposes
// HalDevice() and HalQueue(). render.WithDevice calls this for you.
func SetDeviceProvider(provider any) error {
	return visi.SetAcceleratorDeviceProvider(provider)
}
