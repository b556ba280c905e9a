// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/geomid"
)

// triangle is a screen-space triangle ready for scan conversion. Vertices
// are ordered so that area is positive.
type triangle struct {
	x, y, z [3]float32
	area    float32

	// topLeft[i] reports whether the edge opposite vertex i is a top or
	// left edge, which owns pixel centers lying exactly on it.
	topLeft [3]bool

	// inclusive pixel bounds, already clamped to the target
	minX, minY, maxX, maxY int

	id geomid.PackedGeometryId
}

// edge returns twice the signed area of (a, b, p). It is positive when p
// lies to the right of a->b in a y-down frame.
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func isTopLeft(ax, ay, bx, by float32) bool {
	dx, dy := bx-ax, by-ay
	return dy < 0 || (dy == 0 && dx > 0)
}

// setupTriangle maps a clipped triangle to pixel coordinates. Pixel
// centers sit at +0.5 and row 0 is the top of the viewport, matching the
// barycentric reconstruction of the shading pass. It returns false for
// degenerate triangles and triangles that cover no pixel center.
func setupTriangle(clip [3]f32.Vec4, width, height int, id geomid.PackedGeometryId) (triangle, bool) {
	var t triangle
	w, h := float32(width), float32(height)
	for i, c := range clip {
		inv := 1 / c[3]
		t.x[i] = (c[0]*inv*0.5 + 0.5) * w
		t.y[i] = (0.5 - c[1]*inv*0.5) * h
		t.z[i] = c[2] * inv
	}

	t.area = edge(t.x[0], t.y[0], t.x[1], t.y[1], t.x[2], t.y[2])
	if !(t.area > 0 || t.area < 0) {
		return t, false
	}
	if t.area < 0 {
		t.x[1], t.x[2] = t.x[2], t.x[1]
		t.y[1], t.y[2] = t.y[2], t.y[1]
		t.z[1], t.z[2] = t.z[2], t.z[1]
		t.area = -t.area
	}
	for i := range 3 {
		a, b := (i+1)%3, (i+2)%3
		t.topLeft[i] = isTopLeft(t.x[a], t.y[a], t.x[b], t.y[b])
	}

	minX := min(t.x[0], t.x[1], t.x[2])
	maxX := max(t.x[0], t.x[1], t.x[2])
	minY := min(t.y[0], t.y[1], t.y[2])
	maxY := max(t.y[0], t.y[1], t.y[2])
	t.minX = int(math32.Ceil(clampf(minX-0.5, -1, w)))
	t.maxX = int(math32.Floor(clampf(maxX-0.5, -1, w)))
	t.minY = int(math32.Ceil(clampf(minY-0.5, -1, h)))
	t.maxY = int(math32.Floor(clampf(maxY-0.5, -1, h)))
	t.minX, t.minY = max(t.minX, 0), max(t.minY, 0)
	t.maxX, t.maxY = min(t.maxX, width-1), min(t.maxY, height-1)

	t.id = id
	return t, t.minX <= t.maxX && t.minY <= t.maxY
}

// covers evaluates the edge functions at a pixel center. It returns the
// normalized depth and whether the center is inside.
func (t *triangle) covers(px, py float32) (float32, bool) {
	w0 := edge(t.x[1], t.y[1], t.x[2], t.y[2], px, py)
	w1 := edge(t.x[2], t.y[2], t.x[0], t.y[0], px, py)
	w2 := edge(t.x[0], t.y[0], t.x[1], t.y[1], px, py)
	if !inside(w0, t.topLeft[0]) || !inside(w1, t.topLeft[1]) || !inside(w2, t.topLeft[2]) {
		return 0, false
	}
	return (w0*t.z[0] + w1*t.z[1] + w2*t.z[2]) / t.area, true
}

func inside(w float32, topLeft bool) bool {
	return w > 0 || (w == 0 && topLeft)
}

// rasterRows scan-converts rows [y0, y1) into the target. Depth uses
// compare function LESS, so of two fragments at equal depth the one
// submitted first wins.
func (t *triangle) rasterRows(y0, y1 int, ids []uint32, depth []float32, width int) (written int) {
	for y := max(t.minY, y0); y <= min(t.maxY, y1-1); y++ {
		py := float32(y) + 0.5
		row := y * width
		for x := t.minX; x <= t.maxX; x++ {
			z, ok := t.covers(float32(x)+0.5, py)
			if !ok || z < 0 {
				continue
			}
			i := row + x
			if !(z < depth[i]) {
				continue
			}
			depth[i] = z
			ids[i] = uint32(t.id)
			written++
		}
	}
	return written
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
