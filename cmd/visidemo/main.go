// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command visidemo renders four cubes through the visibility buffer
// renderer and writes the result as a PNG.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/material"
	"github.com/gogpu/visi/render"
	"github.com/gogpu/visi/scene"
	"github.com/gogpu/visi/shade"
	"github.com/gogpu/visi/texel"

	_ "github.com/gogpu/visi/gpu" // GPU debug view when a device is available
)

var cubePositions = [][3]float32{{0, 0, -6}, {4, 0, -2}, {0, 3, -3}, {-4, 0, -4}}

type options struct {
	width, height int
	output        string
	debug         material.DebugType
	mix           float64
	pbr           bool
	gpu           bool
	verbose       bool
}

func main() {
	opts := options{debug: material.DebugColorfulIds}
	flag.IntVar(&opts.width, "width", 640, "image width")
	flag.IntVar(&opts.height, "height", 480, "image height")
	flag.StringVar(&opts.output, "output", "visi.png", "output file")
	flag.TextVar(&opts.debug, "debug", opts.debug, "debug view: none, colorful-ids, instance-id, triangle-id, barycentrics")
	flag.Float64Var(&opts.mix, "mix", 1, "alpha of the debug view")
	flag.BoolVar(&opts.pbr, "pbr", false, "shade every other cube with the PBR material")
	flag.BoolVar(&opts.gpu, "gpu", true, "use the GPU accelerator when available")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	visi.SetLogger(logger)

	if err := run(opts, logger); err != nil {
		logger.Error("visidemo failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("invalid size %dx%d", opts.width, opts.height)
	}
	d := bindless.NewDescriptors()

	debug, err := material.UploadDebug(d)
	if err != nil {
		return err
	}
	defer debug.Release()
	pbrMat := material.DefaultPBR()
	pbrMat.BaseColorFactor = f32.Vec4{0.8, 0.3, 0.2, 1}
	pbr, err := material.UploadPBR(d, pbrMat)
	if err != nil {
		return err
	}
	defer pbr.Release()

	debugCube, err := scene.Cube(d, scene.IdentityAffine(), debug.Dyn())
	if err != nil {
		return err
	}
	defer debugCube.Release()
	pbrCube, err := scene.Cube(d, scene.IdentityAffine(), pbr.Dyn())
	if err != nil {
		return err
	}
	defer pbrCube.Release()

	acc := scene.NewAccumulator()
	for i, p := range cubePositions {
		cube := debugCube
		if opts.pbr && i%2 == 1 {
			cube = pbrCube
		}
		world := scene.TranslateAffine(p[0], p[1], p[2]).Multiply(scene.RotateYAffine(0.5))
		acc.Push(cube, scene.InstanceInfo{WorldFromLocal: world})
	}
	cs, err := acc.Finish(d, scene.Camera{
		ViewFromWorld: scene.IdentityAffine(),
		Projection:    scene.NewPerspective(math32.Pi/2, 0.01, 1000),
		ViewportSize:  [2]uint32{uint32(opts.width), uint32(opts.height)}, //nolint:gosec // checked positive
	})
	if err != nil {
		return err
	}
	defer cs.Release()

	lights, err := material.UploadLights(d,
		material.AmbientLight{Color: f32.Vec3{0.1, 0.1, 0.12}},
		[]material.DirectionalLight{{Direction: f32.Vec3{-0.3, -1, -0.5}, Color: f32.Vec3{2.5, 2.4, 2.2}}},
		[]material.PointLight{{Position: f32.Vec3{2, 2, -1}, Color: f32.Vec3{4, 4, 6}}},
	)
	if err != nil {
		return err
	}
	defer bindless.Release(lights)
	sampler, err := bindless.AllocSampler(d, texel.LinearRepeat)
	if err != nil {
		return err
	}
	defer bindless.Release(sampler)

	out, err := bindless.AllocMutImage(d, opts.width, opts.height, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		return err
	}
	defer bindless.Release(out)

	r, err := render.New(d,
		render.WithOutputFormat(gputypes.TextureFormatRGBA8Unorm),
		render.WithAccelerator(opts.gpu),
		render.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	settings := material.DefaultDebugSettings()
	settings.Type = opts.debug
	settings.Mix = float32(opts.mix)

	rec := d.Begin()
	info := render.RenderInfo{Scene: cs, Debug: settings}
	if opts.pbr {
		info.Materials = []shade.MaterialEval{material.NewPBRPipeline().Bind(material.PBRParam{
			Sampler: bindless.ToTransient(rec, sampler),
			Lights:  bindless.ToTransient(rec, lights),
		})}
	}
	if err := r.Render(context.Background(), rec, bindless.ToTransient(rec, out), info); err != nil {
		return err
	}
	sub, err := rec.Submit()
	if err != nil {
		return err
	}
	sub.Complete()

	st := r.Stats()
	logger.Info("rendered", "instances", st.Instances, "triangles", st.Triangles, "fragments", st.Fragments)

	return writePNG(opts.output, bindless.AccessMutImage(d, out))
}

func writePNG(path string, img *texel.Storage) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img.Image().RGBA()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
