// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/internal/parallel"
	"github.com/gogpu/visi/material"
	"github.com/gogpu/visi/raster"
	"github.com/gogpu/visi/scene"
	"github.com/gogpu/visi/shade"
	"github.com/gogpu/visi/texel"
)

// Output image errors. All of them wrap ErrIncompatibleTarget and are
// returned before any work is recorded.
var (
	ErrIncompatibleTarget = errors.New("render: incompatible output image")
	ErrFormatMismatch     = fmt.Errorf("%w: format mismatch", ErrIncompatibleTarget)
	ErrDimensionMismatch  = fmt.Errorf("%w: image was not 2D", ErrIncompatibleTarget)
	ErrViewportMismatch   = fmt.Errorf("%w: camera viewport does not match", ErrIncompatibleTarget)
)

// DefaultOutputFormat is the output format of a renderer created without
// WithOutputFormat.
const DefaultOutputFormat = gputypes.TextureFormatRGBA32Float

type config struct {
	outputFormat gputypes.TextureFormat
	pool         *parallel.WorkerPool
	raster       []raster.Option
	device       DeviceHandle
	accelerate   bool
	logger       *slog.Logger
}

// Option configures a VisibilityRenderer.
type Option func(*config)

// WithOutputFormat sets the format output images must have. Supported
// are RGBA32Float and RGBA8Unorm.
func WithOutputFormat(f gputypes.TextureFormat) Option {
	return func(c *config) { c.outputFormat = f }
}

// WithPool runs shading workgroups on pool instead of the process-wide
// default.
func WithPool(pool *parallel.WorkerPool) Option {
	return func(c *config) { c.pool = pool }
}

// WithRasterOptions configures the visibility pass.
func WithRasterOptions(opts ...raster.Option) Option {
	return func(c *config) { c.raster = append(c.raster, opts...) }
}

// WithDevice shares the host's GPU device with the registered accelerator.
func WithDevice(h DeviceHandle) Option {
	return func(c *config) { c.device = h }
}

// WithAccelerator enables or disables routing the debug view through the
// registered visi.ShadeAccelerator. Enabled by default.
func WithAccelerator(enabled bool) Option {
	return func(c *config) { c.accelerate = enabled }
}

// WithLogger sets the logger. By default the visi package logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// RenderInfo is the per-frame input of Render.
type RenderInfo struct {
	Scene *scene.CpuScene

	// Debug configures the debug view written to every pixel, and the
	// debug material.
	Debug material.DebugSettings

	// Materials shade the pixels of their models after the debug view.
	// The debug material always runs first when any are given.
	Materials []shade.MaterialEval
}

// VisibilityRenderer renders frames through the visibility buffer.
type VisibilityRenderer struct {
	d      *bindless.Descriptors
	cfg    config
	raster *raster.Rasterizer
	debug  *shade.MaterialPipeline[material.DebugSettings, material.Debug]

	res   *resources
	stats raster.Stats
}

// New creates a renderer allocating its attachments from d.
func New(d *bindless.Descriptors, opts ...Option) (*VisibilityRenderer, error) {
	cfg := config{
		outputFormat: DefaultOutputFormat,
		accelerate:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.pool == nil {
		cfg.pool = parallel.Default()
	}
	if cfg.logger == nil {
		cfg.logger = visi.ComponentLogger("render")
	}
	switch cfg.outputFormat {
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, fmt.Errorf("%w: unsupported output format %v", ErrFormatMismatch, cfg.outputFormat)
	}
	if err := shareDevice(cfg.device); err != nil {
		return nil, fmt.Errorf("render: share device: %w", err)
	}

	rasterOpts := append([]raster.Option{raster.WithLogger(cfg.logger)}, cfg.raster...)
	return &VisibilityRenderer{
		d:      d,
		cfg:    cfg,
		raster: raster.New(rasterOpts...),
		debug:  material.NewDebugPipeline(),
	}, nil
}

// OutputFormat returns the format output images must have.
func (r *VisibilityRenderer) OutputFormat() gputypes.TextureFormat {
	return r.cfg.outputFormat
}

// ImageSupported reports whether out can be rendered to.
func (r *VisibilityRenderer) ImageSupported(out *texel.Storage) error {
	if out.Format != r.cfg.outputFormat {
		return fmt.Errorf("%w: expected format %v but output image has format %v",
			ErrFormatMismatch, r.cfg.outputFormat, out.Format)
	}
	if out.Dimension != gputypes.TextureDimension2D {
		return ErrDimensionMismatch
	}
	return nil
}

// Render draws info.Scene into out, recording into rec.
//
// The camera viewport of the scene must equal the extent of out. The
// attachments are reused as long as the extent stays the same.
func (r *VisibilityRenderer) Render(ctx context.Context, rec *bindless.Recording, out bindless.TransientDesc[bindless.MutImage], info RenderInfo) error {
	if info.Scene == nil {
		return errors.New("render: nil scene")
	}
	img := bindless.AccessMutImage(r.d, out)
	if err := r.ImageSupported(img); err != nil {
		return err
	}
	extent := [2]uint32{uint32(img.Width), uint32(img.Height)}
	if info.Scene.Camera.ViewportSize != extent {
		return fmt.Errorf("%w: viewport %v, output image %v", ErrViewportMismatch, info.Scene.Camera.ViewportSize, extent)
	}

	res, err := r.resources(extent)
	if err != nil {
		return err
	}

	sc := bindless.AccessStruct(r.d, info.Scene.Scene)
	stats, err := r.raster.Draw(ctx, r.d, sc, info.Scene.Draws, res.rasterTarget(r.d))
	r.stats = stats
	if err != nil {
		return fmt.Errorf("render: visibility pass: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.debugVisibility(sc, res, img, info.Debug)

	if len(info.Materials) > 0 {
		pass := shade.NewPass(r.debug.Bind(info.Debug))
		for _, m := range info.Materials {
			pass.Add(m)
		}
		target := shade.Target{
			Scene:      bindless.ToTransient(rec, info.Scene.Scene),
			Visibility: bindless.ToTransient(rec, res.visibility),
			Depth:      bindless.ToTransient(rec, res.depth),
			Output:     out,
		}
		if err := pass.Run(r.d, target, shade.WithPool(r.cfg.pool), shade.WithLogger(r.cfg.logger)); err != nil {
			return fmt.Errorf("render: material pass: %w", err)
		}
	}
	return nil
}

// Stats returns the visibility pass statistics of the last frame.
func (r *VisibilityRenderer) Stats() raster.Stats {
	return r.stats
}

// Visibility returns the packed geometry id image of the last frame. ok
// is false before the first frame.
func (r *VisibilityRenderer) Visibility(rec *bindless.Recording) (desc bindless.TransientDesc[bindless.MutImage], ok bool) {
	if r.res == nil {
		return desc, false
	}
	return bindless.ToTransient(rec, r.res.visibility), true
}

// Depth returns the depth image of the last frame. ok is false before the
// first frame.
func (r *VisibilityRenderer) Depth(rec *bindless.Recording) (desc bindless.TransientDesc[bindless.MutImage], ok bool) {
	if r.res == nil {
		return desc, false
	}
	return bindless.ToTransient(rec, r.res.depth), true
}

// Close releases the attachments. Recordings still using them keep them
// alive until they complete.
func (r *VisibilityRenderer) Close() {
	if r.res != nil {
		r.res.release()
		r.res = nil
	}
}
