// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package material

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi"
	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/shade"
)

// DebugType selects what the debug views display.
type DebugType uint32

// Debug view modes. The numeric values are shared with GPU shaders.
const (
	DebugNone         = DebugType(visi.DebugModeNone)
	DebugColorfulIds  = DebugType(visi.DebugModeColorfulIds)
	DebugInstanceId   = DebugType(visi.DebugModeInstanceId)
	DebugTriangleId   = DebugType(visi.DebugModeTriangleId)
	DebugBarycentrics = DebugType(visi.DebugModeBarycentrics)
)

var debugTypeNames = [...]string{
	DebugNone:         "none",
	DebugColorfulIds:  "colorful-ids",
	DebugInstanceId:   "instance-id",
	DebugTriangleId:   "triangle-id",
	DebugBarycentrics: "barycentrics",
}

// DebugTypes returns every debug type in order.
func DebugTypes() []DebugType {
	out := make([]DebugType, len(debugTypeNames))
	for i := range out {
		out[i] = DebugType(i)
	}
	return out
}

func (t DebugType) String() string {
	if int(t) < len(debugTypeNames) {
		return debugTypeNames[t]
	}
	return fmt.Sprintf("DebugType(%d)", uint32(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t DebugType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names are an
// error; values read from a buffer are instead treated as DebugNone.
func (t *DebugType) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range debugTypeNames {
		if name == s {
			*t = DebugType(i)
			return nil
		}
	}
	return fmt.Errorf("material: unknown debug type %q", text)
}

// DebugValueRange maps integer ids to [0, 1] color intensities.
type DebugValueRange struct {
	Min, Max int32
	// Wrap repeats the ramp instead of letting values run past 1.
	Wrap bool
}

// DefaultDebugValueRange ramps over 32 ids and wraps.
func DefaultDebugValueRange() DebugValueRange {
	return DebugValueRange{Min: 0, Max: 32, Wrap: true}
}

// Clamp maps v onto the range. With Wrap set the result is the Euclidean
// remainder modulo 1, so it is always in [0, 1).
func (r DebugValueRange) Clamp(v float32) float32 {
	out := (v - float32(r.Min)) / float32(r.Max-r.Min)
	if r.Wrap {
		out -= math32.Floor(out)
	}
	return out
}

// DebugSettings configures the debug views.
type DebugSettings struct {
	Type DebugType
	// Mix is written to the alpha channel for covered pixels.
	Mix   float32
	Range DebugValueRange
}

// DefaultDebugSettings shows colorful ids fully opaque.
func DefaultDebugSettings() DebugSettings {
	return DebugSettings{
		Type:  DebugColorfulIds,
		Mix:   1,
		Range: DefaultDebugValueRange(),
	}
}

// Params returns the settings in the form understood by accelerators.
func (s DebugSettings) Params() visi.DebugVisibilityParams {
	return visi.DebugVisibilityParams{
		Mode:     uint32(s.Type),
		Mix:      s.Mix,
		RangeMin: s.Range.Min,
		RangeMax: s.Range.Max,
		Wrap:     s.Range.Wrap,
	}
}

// DebugColor returns the debug color of a covered pixel. Ids are shifted
// by one so that id 0 is not black. lambda is only used by
// DebugBarycentrics. Unknown types render like DebugNone.
func DebugColor(geo geomid.GeometryId, lambda f32.Vec3, s DebugSettings) f32.Vec4 {
	instance := func() float32 { return s.Range.Clamp(float32(geo.Instance.Uint32() + 1)) }
	triangle := func() float32 { return s.Range.Clamp(float32(geo.Triangle.Uint32() + 1)) }

	var c f32.Vec3
	switch s.Type {
	case DebugColorfulIds:
		c = f32.Vec3{instance(), triangle(), 0}
	case DebugInstanceId:
		c = f32.Vec3{instance(), 0, 0}
	case DebugTriangleId:
		c = f32.Vec3{triangle(), 0, 0}
	case DebugBarycentrics:
		c = lambda
	}
	return f32.Vec4{c[0], c[1], c[2], s.Mix}
}

// Debug is the material buffer of models shaded with the debug material.
// It carries no data.
type Debug struct {
	_ uint32
}

// DebugBufferType tags Debug material buffers.
var DebugBufferType = bindless.RegisterDynBufferType[Debug]()

// EvalDebug shades a pixel with DebugColor.
func EvalDebug(_ *bindless.Descriptors, in shade.EvalInput[DebugSettings, Debug]) f32.Vec4 {
	return DebugColor(in.Surface.Geometry, in.Tri.Bary.Lambda, in.Param)
}

// NewDebugPipeline returns the debug material pipeline.
func NewDebugPipeline() *shade.MaterialPipeline[DebugSettings, Debug] {
	return shade.NewMaterialPipeline("debug", DebugBufferType, EvalDebug)
}

// UploadDebug uploads a debug material buffer.
func UploadDebug(d *bindless.Descriptors) (*Material[Debug], error) {
	return Upload(d, DebugBufferType, Debug{})
}
