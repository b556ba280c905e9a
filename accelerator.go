// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package visi

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the accelerator cannot handle this operation.
// The caller should transparently run the CPU path instead.
var ErrFallbackToCPU = errors.New("visi: falling back to CPU shading")

// AcceleratedOp describes operation types for capability checks.
type AcceleratedOp uint32

const (
	// AccelDebugVisibility is the visibility buffer debug view: a color
	// derived from the packed geometry id of every pixel.
	AccelDebugVisibility AcceleratedOp = 1 << iota
)

// Debug view modes shared by the accelerator and the CPU debug passes.
// The values are the wire form of material.DebugType.
const (
	DebugModeNone uint32 = iota
	DebugModeColorfulIds
	DebugModeInstanceId
	DebugModeTriangleId
	DebugModeBarycentrics
)

// VisibilityTarget is a visibility buffer and the color image shaded
// from it, both row-major with Width*Height pixels.
type VisibilityTarget struct {
	// IDs holds one packed geometry id per pixel.
	IDs []uint32

	// Color holds 4 floats (RGBA) per pixel and receives the output.
	Color []float32

	Width, Height int
}

// DebugVisibilityParams configures AccelDebugVisibility.
type DebugVisibilityParams struct {
	Mode     uint32
	Mix      float32
	RangeMin int32
	RangeMax int32
	Wrap     bool
}

// ShadeAccelerator is an optional GPU implementation of shading passes.
//
// When one is registered the renderer tries it first for supported
// operations. ErrFallbackToCPU, or any other error, makes the renderer use
// the CPU implementation instead.
//
// Implementations are provided by GPU backend packages and enabled with a
// blank import:
//
//	import _ "github.com/gogpu/visi/gpu"
type ShadeAccelerator interface {
	// Name returns the accelerator name (e.g. "visi-gpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanAccelerate reports whether the accelerator supports op.
	CanAccelerate(op AcceleratedOp) bool

	// DebugVisibility writes the debug view of target.IDs into
	// target.Color. Clear pixels become transparent black.
	DebugVisibility(target VisibilityTarget, params DebugVisibilityParams) error
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider instead of opening their own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   ShadeAccelerator
)

// RegisterAccelerator registers a to be used by renderers.
//
// Only one accelerator is registered at a time; a later call replaces and
// closes the previous one. Init is called first, and if it fails a is not
// registered and the error is returned.
func RegisterAccelerator(a ShadeAccelerator) error {
	if a == nil {
		return errors.New("visi: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())

	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil && old != a {
		old.Close()
	}
	return nil
}

// UnregisterAccelerator removes and closes the registered accelerator.
func UnregisterAccelerator() {
	accelMu.Lock()
	old := accel
	accel = nil
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Accelerator returns the registered accelerator, or nil if none.
func Accelerator() ShadeAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator. It is a no-op if no accelerator is registered or the
// accelerator cannot share devices.
//
// The provider should implement HalDevice() any and HalQueue() any
// returning wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
