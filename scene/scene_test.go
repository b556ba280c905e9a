// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package scene

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/visi/bindless"
	"github.com/gogpu/visi/geomid"
	"github.com/gogpu/visi/internal/vec3"
)

const eps = 1e-4

func near3(a, b f32.Vec3, tol float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func testCamera(w, h uint32) Camera {
	return Camera{
		ViewFromWorld: LookAt(f32.Vec3{0, 0, 5}, f32.Vec3{}, f32.Vec3{0, 1, 0}),
		Projection:    NewPerspective(math32.Pi/3, 0.1, 100),
		ViewportSize:  [2]uint32{w, h},
	}
}

func TestAffine(t *testing.T) {
	tests := []struct {
		name string
		a    Affine
		in   f32.Vec3
		want f32.Vec3
	}{
		{"identity", IdentityAffine(), f32.Vec3{1, 2, 3}, f32.Vec3{1, 2, 3}},
		{"translate", TranslateAffine(1, -2, 3), f32.Vec3{1, 1, 1}, f32.Vec3{2, -1, 4}},
		{"scale", ScaleAffine(2, 3, 4), f32.Vec3{1, 1, 1}, f32.Vec3{2, 3, 4}},
		{"rotate y", RotateYAffine(math32.Pi / 2), f32.Vec3{1, 0, 0}, f32.Vec3{0, 0, -1}},
		{"rotate x", RotateXAffine(math32.Pi / 2), f32.Vec3{0, 1, 0}, f32.Vec3{0, 0, 1}},
		{"rotate z", RotateZAffine(math32.Pi / 2), f32.Vec3{1, 0, 0}, f32.Vec3{0, 1, 0}},
		{"translate after scale", TranslateAffine(1, 0, 0).Multiply(ScaleAffine(2, 2, 2)), f32.Vec3{1, 1, 1}, f32.Vec3{3, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.TransformPoint(tt.in); !near3(got, tt.want, eps) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAffineInverse(t *testing.T) {
	a := TranslateAffine(3, -1, 2).Multiply(RotateYAffine(0.7)).Multiply(ScaleAffine(2, 1, 0.5))
	id := a.Multiply(a.Inverse())
	for i, v := range id.Linear {
		want := float32(0)
		if i%4 == 0 {
			want = 1
		}
		if math32.Abs(v-want) > eps {
			t.Fatalf("a * a^-1 = %+v, want identity", id)
		}
	}
	if !near3(id.Translation, f32.Vec3{}, eps) {
		t.Errorf("translation = %v", id.Translation)
	}
	if (Affine{}).Inverse() != (Affine{}) {
		t.Error("singular inverse is not zero")
	}
	if !IdentityAffine().IsIdentity() || a.IsIdentity() {
		t.Error("IsIdentity mismatch")
	}
}

func TestTransformNormal(t *testing.T) {
	// A plane x = y scaled along x keeps its normal perpendicular.
	a := ScaleAffine(4, 1, 1)
	n := a.TransformNormal(f32.Vec3{1, -1, 0})
	tangent := a.TransformVector(f32.Vec3{1, 1, 0})
	if d := vec3.Dot(n, tangent); math32.Abs(d) > eps {
		t.Errorf("normal %v not perpendicular to tangent %v (dot %v)", n, tangent, d)
	}
	if l := math32.Sqrt(vec3.Dot(n, n)); math32.Abs(l-1) > eps {
		t.Errorf("|n| = %v, want 1", l)
	}
}

func TestLookAt(t *testing.T) {
	eye := f32.Vec3{1, 2, 5}
	view := LookAt(eye, f32.Vec3{1, 2, 0}, f32.Vec3{0, 1, 0})
	if got := view.TransformPoint(f32.Vec3{1, 2, 0}); !near3(got, f32.Vec3{0, 0, -5}, eps) {
		t.Errorf("target in view space = %v, want (0,0,-5)", got)
	}
	c := Camera{ViewFromWorld: view}
	if got := c.Position(); !near3(got, eye, eps) {
		t.Errorf("Position() = %v, want %v", got, eye)
	}
}

func TestProjectionDepthRange(t *testing.T) {
	c := testCamera(64, 64)
	tests := []struct {
		name  string
		viewZ float32
		depth float32
	}{
		{"near plane", -0.1, 0},
		{"far plane", -100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A world point at the requested view depth straight ahead.
			world := f32.Vec3{0, 0, 5 + tt.viewZ}
			tv := c.TransformVertex(IdentityAffine(), world)
			if got := tv.Clip[2] / tv.Clip[3]; math32.Abs(got-tt.depth) > eps {
				t.Errorf("depth = %v, want %v", got, tt.depth)
			}
			if !near3(tv.World, world, eps) {
				t.Errorf("World = %v", tv.World)
			}
		})
	}
}

func TestClipFromWorldMatchesTransformVertex(t *testing.T) {
	c := testCamera(80, 60)
	p := f32.Vec3{0.3, -0.7, 1.1}
	want := c.TransformVertex(IdentityAffine(), p).Clip
	got := MulMat4Vec4(c.ClipFromWorld(), f32.Vec4{p[0], p[1], p[2], 1})
	for i := range got {
		if math32.Abs(got[i]-want[i]) > eps {
			t.Fatalf("ClipFromWorld * p = %v, want %v", got, want)
		}
	}
}

func TestReconstructFromDepth(t *testing.T) {
	c := testCamera(64, 48)
	pixels := [][2]uint32{{0, 0}, {10, 20}, {32, 24}, {63, 47}}
	for _, px := range pixels {
		for _, depth := range []float32{0.2, 0.9, 0.99} {
			world := c.ReconstructFromDepth(px, depth)
			clip := c.TransformVertex(IdentityAffine(), world).Clip
			ndc := f32.Vec3{clip[0] / clip[3], clip[1] / clip[3], clip[2] / clip[3]}
			want := f32.Vec3{
				(float32(px[0])+0.5)/64*2 - 1,
				1 - (float32(px[1])+0.5)/48*2,
				depth,
			}
			if !near3(ndc, want, 1e-3) {
				t.Errorf("pixel %v depth %v: reprojected ndc %v, want %v", px, depth, ndc, want)
			}
		}
	}
}

func TestCubeMesh(t *testing.T) {
	vertices, triangles := CubeMesh(IdentityAffine())
	if len(vertices) != 8 || len(triangles) != 12 {
		t.Fatalf("cube has %d vertices, %d triangles", len(vertices), len(triangles))
	}
	for i, tri := range triangles {
		p0, p1, p2 := vertices[tri[0]].Position, vertices[tri[1]].Position, vertices[tri[2]].Position
		n := vec3.Cross(vec3.Sub(p1, p0), vec3.Sub(p2, p0))
		centroid := f32.Vec3{(p0[0] + p1[0] + p2[0]) / 3, (p0[1] + p1[1] + p2[1]) / 3, (p0[2] + p1[2] + p2[2]) / 3}
		if vec3.Dot(n, centroid) <= 0 {
			t.Errorf("triangle %d %v faces inward", i, tri)
		}
	}
	scaled, _ := CubeMesh(ScaleAffine(2, 2, 2))
	if scaled[6].Position != (f32.Vec3{2, 2, -2}) {
		t.Errorf("scaled corner = %v", scaled[6].Position)
	}
}

func TestAccumulatorGroupsByModel(t *testing.T) {
	d := bindless.NewDescriptors()
	a, err := Cube(d, IdentityAffine(), bindless.DynBuffer[bindless.Strong]{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Cube(d, ScaleAffine(0.5, 0.5, 0.5), bindless.DynBuffer[bindless.Strong]{})
	if err != nil {
		t.Fatal(err)
	}

	acc := NewAccumulator()
	acc.Push(a, InstanceInfo{WorldFromLocal: TranslateAffine(0, 0, 0)})
	acc.Push(b, InstanceInfo{WorldFromLocal: TranslateAffine(1, 0, 0)})
	acc.Push(a, InstanceInfo{WorldFromLocal: TranslateAffine(2, 0, 0)})
	if acc.Len() != 3 {
		t.Fatalf("Len() = %d", acc.Len())
	}

	frame, err := acc.Finish(d, testCamera(32, 32))
	if err != nil {
		t.Fatal(err)
	}
	want := []Draw{{Model: a, InstanceStart: 0, InstanceCount: 2}, {Model: b, InstanceStart: 2, InstanceCount: 1}}
	if len(frame.Draws) != len(want) {
		t.Fatalf("Draws = %+v", frame.Draws)
	}
	for i := range want {
		if frame.Draws[i] != want[i] {
			t.Errorf("Draws[%d] = %+v, want %+v", i, frame.Draws[i], want[i])
		}
	}

	sc := bindless.AccessStruct(d, frame.Scene)
	if sc.InstanceCount != 3 {
		t.Errorf("InstanceCount = %d", sc.InstanceCount)
	}
	inst := sc.LoadInstance(d, geomid.MustInstanceId(1))
	if inst.WorldFromLocal.Translation[0] != 2 {
		t.Errorf("instance 1 = %+v, want the second instance of model a", inst)
	}
	if inst.Model.Index() != a.Model.Index() {
		t.Error("instance 1 does not refer to model a")
	}

	// The scene keeps the models alive after their CPU handles are gone.
	a.Release()
	b.Release()
	m := bindless.AccessStruct(d, sc.LoadInstance(d, geomid.MustInstanceId(2)).Model)
	if m.TriangleCount != 12 {
		t.Errorf("TriangleCount = %d", m.TriangleCount)
	}

	frame.Release()
	d.Reclaim()
	if live := d.Stats().Buffers.Live; live != 0 {
		t.Errorf("%d buffers alive after releasing everything", live)
	}
}

func TestAccumulatorInstanceLimit(t *testing.T) {
	d := bindless.NewDescriptors()
	m, err := Cube(d, IdentityAffine(), bindless.DynBuffer[bindless.Strong]{})
	if err != nil {
		t.Fatal(err)
	}

	acc := NewAccumulator()
	for range geomid.InstanceMask {
		acc.Push(m, InstanceInfo{WorldFromLocal: IdentityAffine()})
	}
	frame, err := acc.Finish(d, testCamera(8, 8))
	if err != nil {
		t.Fatalf("Finish with %d instances: %v", geomid.InstanceMask, err)
	}
	frame.Release()

	acc.Push(m, InstanceInfo{WorldFromLocal: IdentityAffine()})
	_, err = acc.Finish(d, testCamera(8, 8))
	if !errors.Is(err, ErrTooManyInstances) || !errors.Is(err, geomid.ErrOutOfRange) {
		t.Errorf("error = %v, want ErrTooManyInstances", err)
	}
}

func TestNewCpuModelValidates(t *testing.T) {
	d := bindless.NewDescriptors()
	vertices := make([]Vertex, 3)
	_, err := NewCpuModel(d, vertices, []Triangle{{0, 1, 3}}, bindless.DynBuffer[bindless.Strong]{})
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("error = %v, want ErrIndexOutOfRange", err)
	}
	if live := d.Stats().Buffers.Live; live != 0 {
		t.Errorf("rejected model left %d buffers", live)
	}
}

func TestLoadTriangle(t *testing.T) {
	d := bindless.NewDescriptors()
	vertices := []Vertex{
		{Position: f32.Vec3{-1, -1, 0}},
		{Position: f32.Vec3{1, -1, 0}},
		{Position: f32.Vec3{0, 1, 0}},
	}
	m, err := NewCpuModel(d, vertices, []Triangle{{0, 1, 2}}, bindless.DynBuffer[bindless.Strong]{})
	if err != nil {
		t.Fatal(err)
	}
	acc := NewAccumulator()
	acc.Push(m, InstanceInfo{WorldFromLocal: IdentityAffine()})
	frame, err := acc.Finish(d, testCamera(64, 64))
	if err != nil {
		t.Fatal(err)
	}
	sc := bindless.AccessStruct(d, frame.Scene)

	tri := sc.LoadTriangle(d, [2]uint32{32, 34}, geomid.New(geomid.MustInstanceId(0), geomid.MustTriangleId(0)))
	if tri.Indices != (Triangle{0, 1, 2}) {
		t.Errorf("Indices = %v", tri.Indices)
	}
	if tri.Vertices[2].Position != vertices[2].Position {
		t.Errorf("Vertices = %v", tri.Vertices)
	}
	l := tri.Bary.Lambda
	if s := l[0] + l[1] + l[2]; math32.Abs(s-1) > eps {
		t.Errorf("lambda sum = %v", s)
	}
	for i, v := range l {
		if v < 0 || v > 1 {
			t.Errorf("lambda[%d] = %v outside [0,1] for a center pixel", i, v)
		}
	}

	inst, model := sc.LoadModel(d, geomid.MustInstanceId(0))
	if model != tri.Model || inst != tri.Instance {
		t.Errorf("LoadModel = %v, %v; LoadTriangle saw %v, %v", inst, model, tri.Instance, tri.Model)
	}
	if split := sc.ModelTriangle(d, [2]uint32{32, 34}, geomid.MustTriangleId(0), inst, model); split != tri {
		t.Errorf("ModelTriangle = %+v, want %+v", split, tri)
	}
}
