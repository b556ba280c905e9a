// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

func TestNullDeviceHandle(t *testing.T) {
	var h DeviceHandle = NullDeviceHandle{}
	if h.Device() != nil || h.Queue() != nil || h.Adapter() != nil {
		t.Error("null device exposes a GPU object")
	}
	if h.SurfaceFormat() != gputypes.TextureFormatUndefined {
		t.Errorf("SurfaceFormat() = %v", h.SurfaceFormat())
	}
	info := h.AdapterInfo()
	if info.Name != "null" || info.Type != gpucontext.AdapterTypeUnknown {
		t.Errorf("AdapterInfo() = %+v", info)
	}
	if err := shareDevice(h); err != nil {
		t.Errorf("shareDevice(null) = %v", err)
	}
}
