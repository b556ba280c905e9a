// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/texel"
)

// Formats of the visibility pass attachments.
const (
	VisibilityFormat = gputypes.TextureFormatR32Uint
	DepthFormat      = gputypes.TextureFormatDepth32Float
)

// ClearDepth is the value the depth attachment is cleared to.
const ClearDepth float32 = 1

// ErrInvalidTarget is returned when the attachments of a Target do not
// have the expected formats or do not match in size.
var ErrInvalidTarget = errors.New("raster: invalid target")

// Target holds the attachments written by the visibility pass.
type Target struct {
	// IDs receives one PackedGeometryId per pixel.
	IDs *texel.Storage
	// Depth is tested and written with compare function LESS.
	Depth *texel.Storage
}

// Validate checks formats and extents.
func (t Target) Validate() error {
	if t.IDs == nil || t.Depth == nil {
		return fmt.Errorf("%w: missing attachment", ErrInvalidTarget)
	}
	if t.IDs.Format != VisibilityFormat {
		return fmt.Errorf("%w: visibility format %v, want %v", ErrInvalidTarget, t.IDs.Format, VisibilityFormat)
	}
	if t.Depth.Format != DepthFormat {
		return fmt.Errorf("%w: depth format %v, want %v", ErrInvalidTarget, t.Depth.Format, DepthFormat)
	}
	if t.IDs.Width != t.Depth.Width || t.IDs.Height != t.Depth.Height {
		return fmt.Errorf("%w: visibility is %dx%d but depth is %dx%d", ErrInvalidTarget,
			t.IDs.Width, t.IDs.Height, t.Depth.Width, t.Depth.Height)
	}
	return nil
}

// Clear resets every pixel to geomid.Clear and ClearDepth.
func (t Target) Clear() {
	t.IDs.FillU32(uint32(geomid.Clear))
	t.Depth.FillF32(ClearDepth)
}

// Size returns the extent of the attachments.
func (t Target) Size() (width, height int) {
	return t.IDs.Width, t.IDs.Height
}
