// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/material"
)

func TestDebugShaderCompilation(t *testing.T) {
	if debugVisibilityShaderSource == "" {
		t.Fatal("debug shader source is empty")
	}

	spirvBytes, err := naga.Compile(debugVisibilityShaderSource)
	if err != nil {
		if strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile debug shader: %v", err)
	}
	if len(spirvBytes) < 4 {
		t.Fatal("SPIR-V too short")
	}
	magic := binary.LittleEndian.Uint32(spirvBytes)
	if magic != 0x07230203 {
		t.Errorf("invalid SPIR-V magic: 0x%08X, want 0x07230203", magic)
	}

	words, err := compileSPIRV(debugVisibilityShaderSource)
	if err != nil {
		t.Fatalf("compileSPIRV: %v", err)
	}
	if len(words) != len(spirvBytes)/4 || words[0] != 0x07230203 {
		t.Errorf("compileSPIRV returned %d words starting 0x%08X", len(words), words[0])
	}
}

func TestDebugAcceleratorCapabilities(t *testing.T) {
	a := &DebugAccelerator{}
	if a.Name() != "visi-gpu" {
		t.Errorf("Name() = %q", a.Name())
	}
	if !a.CanAccelerate(visi.AccelDebugVisibility) {
		t.Error("CanAccelerate(AccelDebugVisibility) = false")
	}
	if a.CanAccelerate(0) {
		t.Error("CanAccelerate(0) = true")
	}
}

func TestDebugVisibilityFallback(t *testing.T) {
	a := &DebugAccelerator{}
	target := visi.VisibilityTarget{
		IDs:    make([]uint32, 4),
		Color:  make([]float32, 16),
		Width:  2,
		Height: 2,
	}

	// Not initialized.
	err := a.DebugVisibility(target, material.DefaultDebugSettings().Params())
	if !errors.Is(err, visi.ErrFallbackToCPU) {
		t.Errorf("uninitialized: err = %v, want ErrFallbackToCPU", err)
	}

	s := material.DefaultDebugSettings()
	s.Type = material.DebugBarycentrics
	if err := a.DebugVisibility(target, s.Params()); !errors.Is(err, visi.ErrFallbackToCPU) {
		t.Errorf("barycentrics: err = %v, want ErrFallbackToCPU", err)
	}
}

func TestDebugVisibilityRejectsShortBuffers(t *testing.T) {
	a := &DebugAccelerator{}
	params := material.DefaultDebugSettings().Params()

	tests := []struct {
		name   string
		target visi.VisibilityTarget
	}{
		{"ids", visi.VisibilityTarget{IDs: make([]uint32, 3), Color: make([]float32, 16), Width: 2, Height: 2}},
		{"color", visi.VisibilityTarget{IDs: make([]uint32, 4), Color: make([]float32, 15), Width: 2, Height: 2}},
		{"size", visi.VisibilityTarget{Width: -1, Height: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.DebugVisibility(tt.target, params)
			if err == nil || errors.Is(err, visi.ErrFallbackToCPU) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestEncodeParams(t *testing.T) {
	b := encodeParams(640, 480, visi.DebugVisibilityParams{
		Mode: visi.DebugModeTriangleId, Mix: 0.5, RangeMin: -4, RangeMax: 32, Wrap: true,
	})
	if len(b) != debugParamsSize {
		t.Fatalf("len = %d, want %d", len(b), debugParamsSize)
	}
	le := binary.LittleEndian
	want := []uint32{640, 480, visi.DebugModeTriangleId, 1, 0xFFFFFFFC, 32, math.Float32bits(0.5), 0}
	for i, w := range want {
		if got := le.Uint32(b[i*4:]); got != w {
			t.Errorf("word %d = 0x%08X, want 0x%08X", i, got, w)
		}
	}
}

func TestEncodeIDs(t *testing.T) {
	ids := []uint32{
		uint32(geomid.Pack(geomid.MustInstanceId(3), geomid.MustTriangleId(7))),
		uint32(geomid.Clear),
	}
	b := encodeIDs(ids)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	for i, id := range ids {
		if got := geomid.ReadLE(b[i*4:]); uint32(got) != id {
			t.Errorf("id %d = %v, want 0x%08X", i, got, id)
		}
	}
}

func TestDecodeColors(t *testing.T) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(-1))
	dst := make([]float32, 2)
	decodeColors(b, dst)
	if dst[0] != 0.25 || dst[1] != -1 {
		t.Errorf("decodeColors = %v", dst)
	}
}

// TestDebugVisibilityGPU compares the compute shader with material.DebugColor.
func TestDebugVisibilityGPU(t *testing.T) {
	a := &DebugAccelerator{}
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Close()
	if !a.Ready() {
		t.Skip("GPU not available")
	}

	const w, h = 13, 9
	ids := make([]uint32, w*h)
	for i := range ids {
		if i%5 == 0 {
			ids[i] = uint32(geomid.Clear)
			continue
		}
		ids[i] = uint32(geomid.Pack(geomid.MustInstanceId(uint32(i%7)), geomid.MustTriangleId(uint32(i*3))))
	}

	for _, typ := range []material.DebugType{material.DebugNone, material.DebugColorfulIds, material.DebugInstanceId, material.DebugTriangleId} {
		t.Run(typ.String(), func(t *testing.T) {
			s := material.DefaultDebugSettings()
			s.Type = typ
			s.Mix = 0.75
			color := make([]float32, 4*w*h)
			if err := a.DebugVisibility(visi.VisibilityTarget{IDs: ids, Color: color, Width: w, Height: h}, s.Params()); err != nil {
				t.Fatalf("DebugVisibility: %v", err)
			}
			for i, id := range ids {
				var want f32.Vec4
				if p := geomid.PackedGeometryId(id); !p.IsClear() {
					want = material.DebugColor(p.Unpack(), f32.Vec3{}, s)
				}
				for c := range 4 {
					if d := color[i*4+c] - want[c]; d > 1e-5 || d < -1e-5 {
						t.Fatalf("pixel %d = %v, want %v", i, color[i*4:i*4+4], want)
					}
				}
			}
		})
	}
}

// countingQueue completes one submission per poll.
type countingQueue struct {
	hal.Queue
	done  uint64
	polls int
}

func (q *countingQueue) PollCompleted() uint64 {
	q.polls++
	q.done++
	return q.done
}

// stalledQueue never completes anything.
type stalledQueue struct{ hal.Queue }

func (stalledQueue) PollCompleted() uint64 { return 0 }

func TestWaitSubmission(t *testing.T) {
	q := &countingQueue{}
	a := &DebugAccelerator{queue: q}
	if err := a.waitSubmission(3, time.Second); err != nil {
		t.Fatalf("waitSubmission: %v", err)
	}
	if q.polls != 3 {
		t.Errorf("polls = %d, want 3", q.polls)
	}

	a = &DebugAccelerator{queue: stalledQueue{}}
	err := a.waitSubmission(1, time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "submission 1 not completed") {
		t.Errorf("stalled queue: err = %v", err)
	}
}
