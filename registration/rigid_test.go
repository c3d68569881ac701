package registration

import (
	"math"
	"testing"
)

func sampleQuad() [4]Point {
	return [4]Point{
		{Pos: Vec3{1, 0, 0}},
		{Pos: Vec3{0, 1, 0}},
		{Pos: Vec3{-1, 0, 0}},
		{Pos: Vec3{0, -1, 0.3}},
	}
}

func TestComputeRigidTransformationIdentity(t *testing.T) {
	quad := sampleQuad()
	fit := ComputeRigidTransformation(quad, quad, Vec3{}, Vec3{}, 0, false)
	if !fit.OK {
		t.Fatal("expected identity fit to succeed")
	}
	if fit.RMS > 1e-6 {
		t.Errorf("expected near-zero RMS for identical quads, got %v", fit.RMS)
	}
	for i := 0; i < 4; i++ {
		out := TransformPoint(quad[i].Pos, fit.Transform)
		if !vecAlmostEqual(out, quad[i].Pos, 1e-6) {
			t.Errorf("point %d: got %v want %v", i, out, quad[i].Pos)
		}
	}
}

func rotateZ(v Vec3, theta float64) Vec3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return Vec3{c*v[0] - s*v[1], s*v[0] + c*v[1], v[2]}
}

func TestComputeRigidTransformationRecoversRotation(t *testing.T) {
	quad := sampleQuad()
	theta := math.Pi / 6
	var rotated [4]Point
	for i, p := range quad {
		rotated[i] = Point{Pos: rotateZ(p.Pos, theta)}
	}

	fit := ComputeRigidTransformation(rotated, quad, Vec3{}, Vec3{}, 0, false)
	if !fit.OK {
		t.Fatal("expected rotation fit to succeed")
	}
	if fit.RMS > 1e-6 {
		t.Errorf("expected near-zero RMS recovering exact rotation, got %v", fit.RMS)
	}
	for i, p := range quad {
		out := TransformPoint(p.Pos, fit.Transform)
		if !vecAlmostEqual(out, rotated[i].Pos, 1e-6) {
			t.Errorf("point %d: got %v want %v", i, out, rotated[i].Pos)
		}
	}
}

func TestComputeRigidTransformationRecoversScale(t *testing.T) {
	quad := sampleQuad()
	const scale = 2.5
	var scaled [4]Point
	for i, p := range quad {
		scaled[i] = Point{Pos: p.Pos.Scale(scale)}
	}

	fit := ComputeRigidTransformation(scaled, quad, Vec3{}, Vec3{}, 0, true)
	if !fit.OK {
		t.Fatal("expected scale fit to succeed")
	}
	if fit.RMS > 1e-6 {
		t.Errorf("expected near-zero RMS recovering exact scale, got %v", fit.RMS)
	}
}

func TestComputeRigidTransformationRejectsExcessiveAngle(t *testing.T) {
	quad := sampleQuad()
	theta := math.Pi / 2
	var rotated [4]Point
	for i, p := range quad {
		rotated[i] = Point{Pos: rotateZ(p.Pos, theta)}
	}

	fit := ComputeRigidTransformation(rotated, quad, Vec3{}, Vec3{}, 10, false)
	if fit.OK {
		t.Errorf("expected a 90 degree rotation to be rejected by a 10 degree cap")
	}
	if fit.RMS != rejectedRMS {
		t.Errorf("expected sentinel rejected RMS, got %v", fit.RMS)
	}
}

func TestComputeRigidTransformationRejectsInconsistentScale(t *testing.T) {
	quad := sampleQuad()
	distorted := quad
	distorted[3].Pos = distorted[3].Pos.Scale(5)

	fit := ComputeRigidTransformation(distorted, quad, Vec3{}, Vec3{}, 0, true)
	if fit.OK {
		t.Errorf("expected inconsistent edge-length ratios to be rejected")
	}
}
