// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texel

import (
	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Sampler is sampler state: filtering within and between mip levels and
// the address mode per axis.
type Sampler struct {
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
}

// LinearRepeat is a trilinear sampler that tiles in both directions.
var LinearRepeat = Sampler{
	MagFilter:    gputypes.FilterModeLinear,
	MinFilter:    gputypes.FilterModeLinear,
	MipmapFilter: gputypes.FilterModeLinear,
	AddressModeU: gputypes.AddressModeRepeat,
	AddressModeV: gputypes.AddressModeRepeat,
}

// NearestClamp is a point sampler that clamps to the edge.
var NearestClamp = Sampler{
	MagFilter:    gputypes.FilterModeNearest,
	MinFilter:    gputypes.FilterModeNearest,
	MipmapFilter: gputypes.FilterModeNearest,
	AddressModeU: gputypes.AddressModeClampToEdge,
	AddressModeV: gputypes.AddressModeClampToEdge,
}

// LOD returns the level of detail for UV gradients on a width x height
// base level, following the WGSL textureSampleGrad definition.
func LOD(width, height int, ddx, ddy f32.Vec2) float32 {
	w, h := float32(width), float32(height)
	lx := math32.Hypot(ddx[0]*w, ddx[1]*h)
	ly := math32.Hypot(ddy[0]*w, ddy[1]*h)
	rho := max(lx, ly)
	if !(rho > 0) {
		return 0
	}
	return math32.Log2(rho)
}

// SampleGrad samples chain at uv, selecting the mip level from the UV
// derivatives per pixel step.
func (s Sampler) SampleGrad(chain *MipChain, uv, ddx, ddy f32.Vec2) f32.Vec4 {
	base := chain.Level(0)
	if base == nil {
		return f32.Vec4{}
	}
	return s.SampleLevel(chain, uv, LOD(base.Width, base.Height, ddx, ddy))
}

// SampleLevel samples chain at uv and an explicit level of detail.
func (s Sampler) SampleLevel(chain *MipChain, uv f32.Vec2, lod float32) f32.Vec4 {
	n := chain.NumLevels()
	if n == 0 {
		return f32.Vec4{}
	}
	if lod <= 0 {
		return s.sample(chain.Level(0), uv, s.MagFilter)
	}
	lod = min(lod, float32(n-1))

	if s.MipmapFilter != gputypes.FilterModeLinear {
		level := int(math32.Floor(lod + 0.5))
		return s.sample(chain.Level(level), uv, s.MinFilter)
	}

	lo := int(math32.Floor(lod))
	hi := min(lo+1, n-1)
	t := lod - float32(lo)
	a := s.sample(chain.Level(lo), uv, s.MinFilter)
	if hi == lo || t == 0 {
		return a
	}
	b := s.sample(chain.Level(hi), uv, s.MinFilter)
	return lerp4(a, b, t)
}

func (s Sampler) sample(img *Image, uv f32.Vec2, filter gputypes.FilterMode) f32.Vec4 {
	x := uv[0]*float32(img.Width) - 0.5
	y := uv[1]*float32(img.Height) - 0.5

	if filter != gputypes.FilterModeLinear {
		ix := wrap(int(math32.Floor(x+0.5)), img.Width, s.AddressModeU)
		iy := wrap(int(math32.Floor(y+0.5)), img.Height, s.AddressModeV)
		return img.At(ix, iy)
	}

	fx, fy := math32.Floor(x), math32.Floor(y)
	tx, ty := x-fx, y-fy
	x0 := wrap(int(fx), img.Width, s.AddressModeU)
	x1 := wrap(int(fx)+1, img.Width, s.AddressModeU)
	y0 := wrap(int(fy), img.Height, s.AddressModeV)
	y1 := wrap(int(fy)+1, img.Height, s.AddressModeV)

	top := lerp4(img.At(x0, y0), img.At(x1, y0), tx)
	bottom := lerp4(img.At(x0, y1), img.At(x1, y1), tx)
	return lerp4(top, bottom, ty)
}

// wrap maps texel coordinate i into [0, n) per the address mode.
func wrap(i, n int, mode gputypes.AddressMode) int {
	switch mode {
	case gputypes.AddressModeRepeat:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	case gputypes.AddressModeMirrorRepeat:
		period := 2 * n
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - 1 - i
		}
		return i
	default:
		return min(max(i, 0), n-1)
	}
}

func lerp4(a, b f32.Vec4, t float32) f32.Vec4 {
	var out f32.Vec4
	for i := range out {
		out[i] = a[i] + (b[i]-a[i])*t
	}
	return out
}
