// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/visi"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host (e.g. gogpu.App) implements DeviceHandle and passes it to the
// renderer with WithDevice. The renderer forwards it to the registered
// accelerator so shading runs on the host's device and queue instead of
// a private one.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, keeping full
// compatibility with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// shareDevice hands h to the registered accelerator, if any.
func shareDevice(h DeviceHandle) error {
	if h == nil {
		return nil
	}
	if _, ok := h.(NullDeviceHandle); ok {
		return nil
	}
	return visi.SetAcceleratorDeviceProvider(h)
}

// NullDeviceHandle is a DeviceHandle without a device, for CPU-only
// rendering. It is never forwarded to an accelerator.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo reports an unknown adapter named "null".
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "null", Type: gpucontext.AdapterTypeUnknown}
}

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
