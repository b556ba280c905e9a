// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/raster"
)

// resources are the attachments of one output extent.
type resources struct {
	extent     [2]uint32
	visibility bindless.OwnedDesc[bindless.MutImage]
	depth      bindless.OwnedDesc[bindless.MutImage]

	// color receives accelerator output, 4 floats per pixel.
	color []float32
}

// resources returns the attachments for extent, replacing those of the
// previous frame if its extent differed.
func (r *VisibilityRenderer) resources(extent [2]uint32) (*resources, error) {
	if r.res != nil && r.res.extent == extent {
		return r.res, nil
	}
	if r.res != nil {
		r.res.release()
		r.res = nil
	}

	w, h := int(extent[0]), int(extent[1])
	vis, err := bindless.AllocMutImage(r.d, w, h, raster.VisibilityFormat)
	if err != nil {
		return nil, fmt.Errorf("render: allocate visibility image: %w", err)
	}
	depth, err := bindless.AllocMutImage(r.d, w, h, raster.DepthFormat)
	if err != nil {
		bindless.Release(vis)
		return nil, fmt.Errorf("render: allocate depth image: %w", err)
	}
	r.res = &resources{extent: extent, visibility: vis, depth: depth}
	r.cfg.logger.Debug("attachments allocated", visi.ExtentAttr(w, h))
	return r.res, nil
}

func (res *resources) rasterTarget(d *bindless.Descriptors) raster.Target {
	return raster.Target{
		IDs:   bindless.AccessMutImage(d, res.visibility),
		Depth: bindless.AccessMutImage(d, res.depth),
	}
}

func (res *resources) release() {
	bindless.Release(res.visibility)
	bindless.Release(res.depth)
}
