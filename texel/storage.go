// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texel

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
)

// Storage is a writable 2D image with a GPU texture format. Exactly one of
// the texel slices is populated, chosen by the format:
//
//	R32Uint            -> U32
//	R32Float, Depth32Float -> F32
//	RGBA8Unorm, RGBA32Float -> RGBA
//
// RGBA8Unorm texels are kept as floats but quantized on store.
type Storage struct {
	Format    gputypes.TextureFormat
	Dimension gputypes.TextureDimension
	Width     int
	Height    int

	U32  []uint32
	F32  []float32
	RGBA []f32.Vec4
}

// NewStorage allocates a 2D storage image.
func NewStorage(width, height int, format gputypes.TextureFormat) (*Storage, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	s := &Storage{
		Format:    format,
		Dimension: gputypes.TextureDimension2D,
		Width:     width,
		Height:    height,
	}
	n := width * height
	switch format {
	case gputypes.TextureFormatR32Uint:
		s.U32 = make([]uint32, n)
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatDepth32Float:
		s.F32 = make([]float32, n)
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA32Float:
		s.RGBA = make([]f32.Vec4, n)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	return s, nil
}

// BytesPerTexel returns the GPU size of one texel of format, or 0 if the
// format is unsupported.
func BytesPerTexel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR32Uint, gputypes.TextureFormatR32Float,
		gputypes.TextureFormatDepth32Float, gputypes.TextureFormatRGBA8Unorm:
		return 4
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// ByteSize returns the GPU size of the image.
func (s *Storage) ByteSize() uint64 {
	return uint64(s.Width*s.Height) * uint64(BytesPerTexel(s.Format))
}

// InBounds reports whether (x, y) addresses a texel.
func (s *Storage) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

// LoadU32 returns the texel at (x, y) of an R32Uint image.
func (s *Storage) LoadU32(x, y int) uint32 { return s.U32[y*s.Width+x] }

// StoreU32 writes the texel at (x, y) of an R32Uint image.
func (s *Storage) StoreU32(x, y int, v uint32) { s.U32[y*s.Width+x] = v }

// LoadF32 returns the texel at (x, y) of a float image.
func (s *Storage) LoadF32(x, y int) float32 { return s.F32[y*s.Width+x] }

// StoreF32 writes the texel at (x, y) of a float image.
func (s *Storage) StoreF32(x, y int, v float32) { s.F32[y*s.Width+x] = v }

// LoadRGBA returns the texel at (x, y) of a color image.
func (s *Storage) LoadRGBA(x, y int) f32.Vec4 { return s.RGBA[y*s.Width+x] }

// StoreRGBA writes c at (x, y) of a color image, quantizing for RGBA8Unorm.
func (s *Storage) StoreRGBA(x, y int, c f32.Vec4) {
	if s.Format == gputypes.TextureFormatRGBA8Unorm {
		for i := range c {
			c[i] = float32(unorm8(c[i])) / 255
		}
	}
	s.RGBA[y*s.Width+x] = c
}

// FillU32 sets every texel of an R32Uint image to v.
func (s *Storage) FillU32(v uint32) {
	for i := range s.U32 {
		s.U32[i] = v
	}
}

// FillF32 sets every texel of a float image to v.
func (s *Storage) FillF32(v float32) {
	for i := range s.F32 {
		s.F32[i] = v
	}
}

// FillRGBA sets every texel of a color image to c.
func (s *Storage) FillRGBA(c f32.Vec4) {
	for i := range s.RGBA {
		s.StoreRGBA(i%s.Width, i/s.Width, c)
	}
}

// Image returns the color texels as an Image sharing storage. It returns
// nil for non-color formats.
func (s *Storage) Image() *Image {
	if s.RGBA == nil {
		return nil
	}
	return &Image{Width: s.Width, Height: s.Height, Pix: s.RGBA}
}
