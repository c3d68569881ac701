package registration

import (
	"math"
	"testing"
)

func TestFeatureFilterTranslationCap(t *testing.T) {
	// base a/b sit far from the origin so that comparing p against q
	// (instead of p against a and q against b) would give the wrong
	// answer here.
	f := FeatureFilter{MaxTranslationDistance: 1.0}
	base := Point{Pos: Vec3{10, 0, 0}}
	baseB := Point{Pos: Vec3{11, 0, 0}}
	pNear := Point{Pos: Vec3{10.5, 0, 0}}
	qNear := Point{Pos: Vec3{11.5, 0, 0}}
	pFar := Point{Pos: Vec3{15, 0, 0}}
	qFar := Point{Pos: Vec3{16, 0, 0}}

	if acceptIJ, acceptJI := f.Test(pNear, qNear, base, baseB, 0); !acceptIJ || !acceptJI {
		t.Errorf("expected pair near its base endpoints to be accepted, got acceptIJ=%v acceptJI=%v", acceptIJ, acceptJI)
	}
	if acceptIJ, acceptJI := f.Test(pFar, qNear, base, baseB, 0); acceptIJ || acceptJI {
		t.Errorf("expected p far from a to be rejected, got acceptIJ=%v acceptJI=%v", acceptIJ, acceptJI)
	}
	if acceptIJ, acceptJI := f.Test(pNear, qFar, base, baseB, 0); acceptIJ || acceptJI {
		t.Errorf("expected q far from b to be rejected, got acceptIJ=%v acceptJI=%v", acceptIJ, acceptJI)
	}
}

func TestFeatureFilterColorDistance(t *testing.T) {
	// base a/b carry distinct colours from p/q so that comparing p
	// against q (instead of p against a and q against b) would give the
	// wrong answer here.
	f := FeatureFilter{MaxColorDistance: 10}
	red := [3]int32{255, 0, 0}
	nearRed := [3]int32{250, 0, 0}
	blue := [3]int32{0, 0, 255}

	base := Point{Pos: Vec3{10, 0, 0}, Color: &red}
	baseB := Point{Pos: Vec3{11, 0, 0}, Color: &nearRed}
	pNear := Point{Pos: Vec3{0, 0, 0}, Color: &nearRed}
	qNear := Point{Pos: Vec3{1, 0, 0}, Color: &red}
	pFar := Point{Pos: Vec3{0, 0, 0}, Color: &blue}
	qFar := Point{Pos: Vec3{1, 0, 0}, Color: &blue}

	if acceptIJ, _ := f.Test(pNear, qNear, base, baseB, 0); !acceptIJ {
		t.Errorf("expected colours close to their base endpoints to pass")
	}
	if acceptIJ, acceptJI := f.Test(pFar, qNear, base, baseB, 0); acceptIJ || acceptJI {
		t.Errorf("expected p far from a's colour to fail")
	}
	if acceptIJ, acceptJI := f.Test(pNear, qFar, base, baseB, 0); acceptIJ || acceptJI {
		t.Errorf("expected q far from b's colour to fail")
	}

	// all four points must carry colour for the gate to engage at all
	noColorBase := Point{Pos: Vec3{10, 0, 0}}
	noColorBaseB := Point{Pos: Vec3{11, 0, 0}}
	if acceptIJ, acceptJI := f.Test(pFar, qFar, noColorBase, noColorBaseB, 0); !acceptIJ || !acceptJI {
		t.Errorf("expected colour gate to be skipped when base endpoints lack colour, got acceptIJ=%v acceptJI=%v", acceptIJ, acceptJI)
	}
}

func TestFeatureFilterDisabledWhenBoundNonPositive(t *testing.T) {
	f := FeatureFilter{}
	p := Point{Pos: Vec3{0, 0, 0}}
	q := Point{Pos: Vec3{1000, 1000, 1000}}
	base := Point{Pos: Vec3{0, 0, 0}}
	baseB := Point{Pos: Vec3{1, 0, 0}}

	acceptIJ, acceptJI := f.Test(p, q, base, baseB, 0)
	if !acceptIJ || !acceptJI {
		t.Errorf("all-zero filter should accept everything, got acceptIJ=%v acceptJI=%v", acceptIJ, acceptJI)
	}
}

func TestAngleBetween(t *testing.T) {
	a := angleBetween(Vec3{1, 0, 0}, Vec3{0, 1, 0})
	if !almostEqual(a, math.Pi/2, 1e-9) {
		t.Errorf("expected perpendicular vectors to have angle pi/2, got %v", a)
	}
	b := angleBetween(Vec3{1, 0, 0}, Vec3{1, 0, 0})
	if !almostEqual(b, 0, 1e-9) {
		t.Errorf("expected parallel vectors to have angle 0, got %v", b)
	}
	c := angleBetween(Vec3{}, Vec3{1, 0, 0})
	if c != 0 {
		t.Errorf("expected degenerate zero vector to return angle 0, got %v", c)
	}
}
