// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shade runs the second pass of the renderer: material evaluation
// over the visibility buffer.
//
// Shading is dispatched like a compute shader, one invocation per pixel in
// 8x8 workgroups. Each invocation reads the packed geometry id written by
// the visibility pass, follows the scene graph to the covered triangle,
// rebuilds barycentrics and the Surface at its pixel, and hands them to a
// material evaluator. An evaluator only shades pixels whose model carries
// a material buffer of its own registered type, so several materials can
// shade one image in turn without touching each other's pixels.
package shade

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/internal/parallel"
	"github.com/gogpu/visi/scene"
	"github.com/gogpu/visi/texel"
)

// Workgroup is the edge length of a shading workgroup.
const Workgroup = parallel.WorkgroupSize

// DispatchSize returns the workgroup counts covering viewport.
func DispatchSize(viewport [2]uint32) [3]uint32 {
	g := parallel.DispatchSize(viewport[0], viewport[1])
	return [3]uint32{g.X, g.Y, g.Z}
}

// ErrImageMismatch is returned when the images of a Target disagree with
// each other or with the scene camera.
var ErrImageMismatch = errors.New("shade: image mismatch")

// Target names the images read and written by one shading dispatch. All
// references are transient: they are only valid within the recording the
// dispatch belongs to.
type Target struct {
	Scene      bindless.TransientDesc[bindless.Buffer[scene.Scene]]
	Visibility bindless.TransientDesc[bindless.MutImage]
	Depth      bindless.TransientDesc[bindless.MutImage]
	Output     bindless.TransientDesc[bindless.MutImage]
}

// EvalInput is everything a material sees for one pixel.
type EvalInput[P, M any] struct {
	Param    P
	Scene    scene.Scene
	Tri      scene.TriangleData
	Surface  Surface
	Material bindless.StrongDesc[bindless.Buffer[M]]
}

// EvalFunc computes the color of one pixel. It runs concurrently for many
// pixels and must not retain in.
type EvalFunc[P, M any] func(d *bindless.Descriptors, in EvalInput[P, M]) f32.Vec4

// Params of a shading dispatch.
type Params[P, M any] struct {
	Target
	MaterialType bindless.BufferType[M]
	Param        P
}

type config struct {
	pool   *parallel.WorkerPool
	logger *slog.Logger
}

// Option configures a dispatch.
type Option func(*config)

// WithPool runs workgroups on pool instead of the process-wide default.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(c *config) { c.pool = pool }
}

// WithLogger sets the logger. By default the visi package logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.pool == nil {
		c.pool = parallel.Default()
	}
	if c.logger == nil {
		c.logger = visi.ComponentLogger("shade")
	}
	return c
}

// images is a Target resolved to its storage.
type images struct {
	scene  scene.Scene
	width  uint32
	height uint32
	vis    []uint32
	depth  []float32
	out    *texel.Storage
}

var outputFormats = map[gputypes.TextureFormat]bool{
	gputypes.TextureFormatRGBA32Float: true,
	gputypes.TextureFormatRGBA8Unorm:  true,
}

// resolve looks up the images of t and checks that they fit together.
// Stale references panic like any other checked access.
func resolve(d *bindless.Descriptors, t Target) (images, error) {
	sc := bindless.AccessStruct(d, t.Scene)
	vis := bindless.AccessMutImage(d, t.Visibility)
	depth := bindless.AccessMutImage(d, t.Depth)
	out := bindless.AccessMutImage(d, t.Output)

	switch {
	case vis.Format != gputypes.TextureFormatR32Uint:
		return images{}, fmt.Errorf("%w: visibility format %v", ErrImageMismatch, vis.Format)
	case depth.Format != gputypes.TextureFormatDepth32Float:
		return images{}, fmt.Errorf("%w: depth format %v", ErrImageMismatch, depth.Format)
	case !outputFormats[out.Format]:
		return images{}, fmt.Errorf("%w: output format %v", ErrImageMismatch, out.Format)
	}
	size := [2]uint32{uint32(vis.Width), uint32(vis.Height)}
	for _, img := range [...]struct {
		name string
		w, h int
	}{{"depth", depth.Width, depth.Height}, {"output", out.Width, out.Height}} {
		if img.w != vis.Width || img.h != vis.Height {
			return images{}, fmt.Errorf("%w: %s is %dx%d, visibility is %dx%d",
				ErrImageMismatch, img.name, img.w, img.h, vis.Width, vis.Height)
		}
	}
	if sc.Camera.ViewportSize != size {
		return images{}, fmt.Errorf("%w: camera viewport %v, images are %v", ErrImageMismatch, sc.Camera.ViewportSize, size)
	}
	return images{
		scene:  sc,
		width:  size[0],
		height: size[1],
		vis:    vis.U32,
		depth:  depth.F32,
		out:    out,
	}, nil
}

// Image shades every pixel of params.Output covered by a model whose
// material has type params.MaterialType. Other pixels are left untouched.
func Image[P, M any](d *bindless.Descriptors, params Params[P, M], eval EvalFunc[P, M], opts ...Option) error {
	cfg := newConfig(opts)
	img, err := resolve(d, params.Target)
	if err != nil {
		return err
	}
	tag := params.MaterialType.Dyn()
	grid := parallel.DispatchSize(img.width, img.height)

	cfg.pool.Dispatch(grid, func(pixel [2]uint32) {
		if pixel[0] >= img.width || pixel[1] >= img.height {
			return
		}
		i := pixel[1]*img.width + pixel[0]
		packed := geomid.PackedGeometryId(img.vis[i])
		if packed.IsClear() {
			return
		}
		geo := packed.Unpack()
		inst, model := img.scene.LoadModel(d, geo.Instance)
		if !model.Material.CanUpcast(tag) {
			return
		}
		tri := img.scene.ModelTriangle(d, pixel, geo.Triangle, inst, model)
		in := EvalInput[P, M]{
			Param:    params.Param,
			Scene:    img.scene,
			Tri:      tri,
			Surface:  Reconstruct(img.scene.Camera, tri, pixel, geo, img.depth[i]),
			Material: bindless.UpcastUnchecked[bindless.Strong, M](tri.Model.Material),
		}
		img.out.StoreRGBA(int(pixel[0]), int(pixel[1]), eval(d, in))
	})

	cfg.logger.Debug("dispatch",
		"material", params.MaterialType,
		visi.ExtentAttr(int(img.width), int(img.height)),
		visi.DispatchAttr([3]uint32{grid.X, grid.Y, grid.Z}))
	return nil
}
