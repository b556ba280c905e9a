// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package raster implements the visibility pass of the renderer on the CPU.
//
// The pass draws every instance of every scene.Draw into an R32Uint image
// of packed geometry ids and a Depth32Float image, the same way the
// rasterization pipeline would on the GPU:
//
//   - the vertex stage transforms model positions with Camera.TransformVertex
//   - triangles are clipped against the near plane z >= 0; the other
//     frustum planes are handled by the pixel bounds and the depth test
//   - coverage is sampled at pixel centers with the top-left fill rule
//     and no face culling
//   - depth is tested with LESS against a target cleared to 1.0
//   - each covered pixel receives geomid.Pack(instance, triangle), where
//     instance is the global instance index and triangle the primitive
//     index within the model
//
// Scan conversion runs over horizontal bands of rows in parallel. Each
// band is written by exactly one goroutine, and triangles are visited in
// submission order within a band, so the output is deterministic.
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/image/math/f32"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/scene"
)

// ErrDrawOutOfRange is returned when a draw refers to instances beyond the
// scene's instance buffer.
var ErrDrawOutOfRange = errors.New("raster: draw outside the instance buffer")

// DefaultBandHeight is the number of rows scan-converted per work item.
const DefaultBandHeight = 16

type config struct {
	bandHeight  int
	concurrency int
	logger      *slog.Logger
}

// Option configures a Rasterizer.
type Option func(*config)

// WithBandHeight sets the number of rows per band.
func WithBandHeight(rows int) Option {
	return func(c *config) {
		if rows > 0 {
			c.bandHeight = rows
		}
	}
}

// WithConcurrency limits the number of bands processed at once.
// Zero or negative means GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *config) { c.concurrency = n }
}

// WithLogger sets the logger. By default the visi package logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Rasterizer runs the visibility pass. A Rasterizer is safe for concurrent
// use on distinct targets.
type Rasterizer struct {
	cfg config
}

// New creates a Rasterizer.
func New(opts ...Option) *Rasterizer {
	cfg := config{bandHeight: DefaultBandHeight}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = runtime.GOMAXPROCS(0)
	}
	if cfg.logger == nil {
		cfg.logger = visi.ComponentLogger("raster")
	}
	return &Rasterizer{cfg: cfg}
}

// Stats describes one visibility pass.
type Stats struct {
	Instances int
	// Triangles is the number of primitives submitted.
	Triangles int
	// Discarded counts primitives that were fully clipped, degenerate or
	// covered no pixel center.
	Discarded int
	// Fragments counts depth test passes, including overwritten ones.
	Fragments int
}

// Draw clears t and rasterizes draws of sc into it.
//
// The camera viewport of sc must match the target extent; the shading
// pass rebuilds barycentrics from the same viewport.
func (r *Rasterizer) Draw(ctx context.Context, d *bindless.Descriptors, sc scene.Scene, draws []scene.Draw, t Target) (Stats, error) {
	var stats Stats
	if err := t.Validate(); err != nil {
		return stats, err
	}
	width, height := t.Size()
	if sc.Camera.ViewportSize != [2]uint32{uint32(width), uint32(height)} {
		return stats, fmt.Errorf("%w: camera viewport %v does not match target %dx%d",
			ErrInvalidTarget, sc.Camera.ViewportSize, width, height)
	}

	instances := bindless.AccessBuffer(d, sc.Instances)
	for i, draw := range draws {
		end := uint64(draw.InstanceStart) + uint64(draw.InstanceCount)
		if end > uint64(len(instances)) || end > uint64(sc.InstanceCount) {
			return stats, fmt.Errorf("%w: draw %d covers instances [%d, %d) of %d",
				ErrDrawOutOfRange, i, draw.InstanceStart, end, sc.InstanceCount)
		}
		// Instance InstanceMask is reserved: paired with the last triangle
		// it packs to the clear sentinel.
		if draw.InstanceCount > 0 {
			if _, err := geomid.NewInstanceId(uint32(end)); err != nil {
				return stats, fmt.Errorf("%w: draw %d: %w", ErrDrawOutOfRange, i, err)
			}
		}
	}

	t.Clear()

	tris, err := r.setup(ctx, d, sc, draws, width, height, &stats)
	if err != nil {
		return stats, err
	}

	written, err := r.scan(ctx, tris, t)
	stats.Fragments = written
	if err != nil {
		return stats, err
	}

	r.cfg.logger.Debug("visibility pass",
		visi.ExtentAttr(width, height),
		"draws", len(draws),
		"instances", stats.Instances,
		"triangles", stats.Triangles,
		"discarded", stats.Discarded,
		"fragments", stats.Fragments)
	return stats, nil
}

// setup runs the vertex stage and near clipping, producing screen-space
// triangles in submission order.
func (r *Rasterizer) setup(ctx context.Context, d *bindless.Descriptors, sc scene.Scene, draws []scene.Draw, width, height int, stats *Stats) ([]triangle, error) {
	instances := bindless.AccessBuffer(d, sc.Instances)

	var (
		tris    []triangle
		clip    []f32.Vec4
		polygon = make([]f32.Vec4, 0, 4)
	)
	for _, draw := range draws {
		for i := range draw.InstanceCount {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			instanceIdx := draw.InstanceStart + i
			inst := instances[instanceIdx]
			model := bindless.AccessStruct(d, inst.Model)
			vertices := bindless.AccessBuffer(d, model.Vertices)
			indices := bindless.AccessBuffer(d, model.Triangles)[:model.TriangleCount]

			clip = clip[:0]
			for _, v := range vertices {
				clip = append(clip, sc.Camera.TransformVertex(inst.WorldFromLocal, v.Position).Clip)
			}

			instanceID := geomid.InstanceIdUnchecked(instanceIdx)
			stats.Instances++
			for prim, idx := range indices {
				stats.Triangles++
				id := geomid.Pack(instanceID, geomid.TriangleIdUnchecked(uint32(prim)))

				polygon = clipNear([3]f32.Vec4{clip[idx[0]], clip[idx[1]], clip[idx[2]]}, polygon)
				emitted := false
				for k := 2; k < len(polygon); k++ {
					tri, ok := setupTriangle([3]f32.Vec4{polygon[0], polygon[k-1], polygon[k]}, width, height, id)
					if ok {
						tris = append(tris, tri)
						emitted = true
					}
				}
				if !emitted {
					stats.Discarded++
				}
			}
		}
	}
	return tris, nil
}

// scan converts tris band by band.
func (r *Rasterizer) scan(ctx context.Context, tris []triangle, t Target) (int, error) {
	width, height := t.Size()
	ids, depth := t.IDs.U32, t.Depth.F32
	band := r.cfg.bandHeight

	bands := (height + band - 1) / band
	written := make([]int, bands)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.concurrency)
	for b := range bands {
		y0, y1 := b*band, min((b+1)*band, height)
		g.Go(func() error {
			for i := range tris {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				tri := &tris[i]
				if tri.maxY < y0 || tri.minY >= y1 {
					continue
				}
				written[b] += tri.rasterRows(y0, y1, ids, depth, width)
			}
			return nil
		})
	}
	err := g.Wait()

	total := 0
	for _, n := range written {
		total += n
	}
	return total, err
}
