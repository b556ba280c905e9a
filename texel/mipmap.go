// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package texel

import (
	"math"

	"golang.org/x/image/math/f32"
)

// MipChain holds pre-computed downscaled versions of an image.
//
// Level 0 is the original full-resolution image and each following level
// halves both dimensions, down to the level whose larger side is 1 pixel.
type MipChain struct {
	levels []*Image
}

// GenerateMipmaps creates a mipmap chain from the source image.
//
// Uses a box filter (2x2 average) to downsample each level. The source
// image becomes level 0 and is not copied.
//
// Returns nil if src is nil or empty.
func GenerateMipmaps(src *Image) *MipChain {
	if src == nil || src.Width <= 0 || src.Height <= 0 {
		return nil
	}

	maxDim := max(src.Width, src.Height)
	numLevels := 1 + int(math.Floor(math.Log2(float64(maxDim))))

	chain := &MipChain{levels: make([]*Image, numLevels)}
	chain.levels[0] = src
	for i := 1; i < numLevels; i++ {
		chain.levels[i] = downsample(chain.levels[i-1])
	}
	return chain
}

// SingleLevel wraps src as a chain without mipmaps.
func SingleLevel(src *Image) *MipChain {
	if src == nil {
		return nil
	}
	return &MipChain{levels: []*Image{src}}
}

// downsample creates a half-size version of src using a box filter.
func downsample(src *Image) *Image {
	dstW := max(1, src.Width/2)
	dstH := max(1, src.Height/2)
	dst := &Image{Width: dstW, Height: dstH, Pix: make([]f32.Vec4, dstW*dstH)}

	for dy := 0; dy < dstH; dy++ {
		for dx := 0; dx < dstW; dx++ {
			sx := dx * 2
			sy := dy * 2
			// Odd dimensions repeat the edge texel.
			c0 := src.At(sx, sy)
			c1 := src.At(min(sx+1, src.Width-1), sy)
			c2 := src.At(sx, min(sy+1, src.Height-1))
			c3 := src.At(min(sx+1, src.Width-1), min(sy+1, src.Height-1))

			var avg f32.Vec4
			for i := range avg {
				avg[i] = (c0[i] + c1[i] + c2[i] + c3[i]) * 0.25
			}
			dst.Pix[dy*dstW+dx] = avg
		}
	}
	return dst
}

// Level returns the mipmap at the specified level.
// Level 0 is the original image. Returns nil if level is out of range.
func (m *MipChain) Level(n int) *Image {
	if m == nil || n < 0 || n >= len(m.levels) {
		return nil
	}
	return m.levels[n]
}

// NumLevels returns the total number of mipmap levels in the chain.
// Returns 0 if the chain is nil.
func (m *MipChain) NumLevels() int {
	if m == nil {
		return 0
	}
	return len(m.levels)
}

// ByteSize returns the storage size of all levels.
func (m *MipChain) ByteSize() uint64 {
	var n uint64
	for _, l := range m.levels {
		n += l.ByteSize()
	}
	return n
}
