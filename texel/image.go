// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package texel provides the CPU-side texel storage behind the descriptor
// tables: sampled RGBA images with mip chains, typed storage images, and
// sampler state with gradient-driven filtering.
//
// All color values are linear float32 RGBA.
package texel

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/math/f32"
)

// Common errors for texel operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("texel: invalid dimensions")

	// ErrUnsupportedFormat is returned for a texture format without a
	// CPU representation.
	ErrUnsupportedFormat = errors.New("texel: unsupported texture format")
)

// Image is a 2D RGBA float image, row-major.
type Image struct {
	Width  int
	Height int
	Pix    []f32.Vec4
}

// NewImage returns a transparent black image.
func NewImage(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Image{Width: width, Height: height, Pix: make([]f32.Vec4, width*height)}, nil
}

// FromImage converts a standard library image to linear float RGBA.
// Values are taken as stored, without color space conversion.
func FromImage(src image.Image) (*Image, error) {
	b := src.Bounds()
	img, err := NewImage(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			img.Pix[y*img.Width+x] = f32.Vec4{
				float32(c.R) / 0xFFFF,
				float32(c.G) / 0xFFFF,
				float32(c.B) / 0xFFFF,
				float32(c.A) / 0xFFFF,
			}
		}
	}
	return img, nil
}

// At returns the texel at (x, y). Coordinates must be in bounds.
func (m *Image) At(x, y int) f32.Vec4 {
	return m.Pix[y*m.Width+x]
}

// Set stores c at (x, y). Coordinates must be in bounds.
func (m *Image) Set(x, y int, c f32.Vec4) {
	m.Pix[y*m.Width+x] = c
}

// Fill sets every texel to c.
func (m *Image) Fill(c f32.Vec4) {
	for i := range m.Pix {
		m.Pix[i] = c
	}
}

// ByteSize returns the storage size of the texels.
func (m *Image) ByteSize() uint64 {
	return uint64(len(m.Pix)) * 16
}

// RGBA converts the image to 8-bit non-premultiplied RGBA, clamping each
// channel to [0, 1].
func (m *Image) RGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, c := range m.Pix {
		o := i * 4
		out.Pix[o+0] = unorm8(c[0])
		out.Pix[o+1] = unorm8(c[1])
		out.Pix[o+2] = unorm8(c[2])
		out.Pix[o+3] = unorm8(c[3])
	}
	return out
}

func unorm8(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
