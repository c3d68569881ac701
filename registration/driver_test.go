package registration

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"
)

func denseCloud(n int, seed int64) Cloud {
	rng := rand.New(rand.NewSource(seed))
	cloud := make(Cloud, n)
	for i := range cloud {
		cloud[i] = Point{Pos: Vec3{
			rng.Float64()*4 - 2,
			rng.Float64()*4 - 2,
			rng.Float64()*4 - 2,
		}}
	}
	return cloud
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.SampleSize = 0
	opts.Delta = 0.05
	opts.MaxTimeSeconds = 5
	opts.OverlapEstimation = 0.9
	opts.RandomSeed = 1
	return opts
}

func TestComputeTransformationIdentityRecovery(t *testing.T) {
	p := denseCloud(80, 1)
	q := make(Cloud, len(p))
	copy(q, p)

	d := NewDriver(testOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, lcp, err := d.ComputeTransformation(ctx, p, q, UniformSampler{}, NoopVisitor{})
	if err != nil {
		t.Fatalf("ComputeTransformation failed: %v", err)
	}
	if lcp < 0.9 {
		t.Errorf("expected near-perfect LCP for identical clouds, got %v", lcp)
	}
}

func TestComputeTransformationPureRotation(t *testing.T) {
	p := denseCloud(80, 2)
	theta := math.Pi / 9
	q := make(Cloud, len(p))
	for i, pt := range p {
		q[i] = Point{Pos: rotateZ(pt.Pos, theta)}
	}

	d := NewDriver(testOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	transform, lcp, err := d.ComputeTransformation(ctx, p, q, UniformSampler{}, NoopVisitor{})
	if err != nil {
		t.Fatalf("ComputeTransformation failed: %v", err)
	}
	if lcp < 0.8 {
		t.Errorf("expected a high LCP recovering a pure rotation, got %v", lcp)
	}

	aligned := TransformPoints(q, transform)
	index := Build(p)
	matches := 0
	for _, pt := range aligned {
		if _, _, ok := index.NearestWithin(pt.Pos, 0.1*0.1); ok {
			matches++
		}
	}
	if float64(matches)/float64(len(aligned)) < 0.7 {
		t.Errorf("expected most aligned points to land near a reference point, got %d/%d", matches, len(aligned))
	}
}

func TestComputeTransformationNoOverlapStaysLow(t *testing.T) {
	// Two independently-drawn random clouds have no common rigid
	// structure, unlike a rigidly translated copy (whose pairwise
	// distances would still match and which the engine should, and does
	// elsewhere, successfully align).
	p := denseCloud(60, 3)
	q := denseCloud(60, 103)

	opts := testOptions()
	opts.MaxTimeSeconds = 1
	d := NewDriver(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, lcp, err := d.ComputeTransformation(ctx, p, q, UniformSampler{}, NoopVisitor{})
	if err != nil {
		t.Fatalf("ComputeTransformation failed: %v", err)
	}
	if lcp > 0.2 {
		t.Errorf("expected low LCP for non-overlapping clouds, got %v", lcp)
	}
}

func TestComputeTransformationEmptyInputErrors(t *testing.T) {
	d := NewDriver(testOptions())
	ctx := context.Background()
	if _, _, err := d.ComputeTransformation(ctx, nil, denseCloud(10, 4), UniformSampler{}, NoopVisitor{}); err == nil {
		t.Error("expected an error for an empty reference cloud")
	}
	if _, _, err := d.ComputeTransformation(ctx, denseCloud(10, 4), nil, UniformSampler{}, NoopVisitor{}); err == nil {
		t.Error("expected an error for an empty moving cloud")
	}
}

func TestComputeTransformationRecoversScale(t *testing.T) {
	p := denseCloud(80, 5)
	const scale = 1.5
	q := make(Cloud, len(p))
	for i, pt := range p {
		q[i] = Point{Pos: pt.Pos.Scale(1 / scale)}
	}

	opts := testOptions()
	opts.ComputeScale = true
	d := NewDriver(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, lcp, err := d.ComputeTransformation(ctx, p, q, UniformSampler{}, NoopVisitor{})
	if err != nil {
		t.Fatalf("ComputeTransformation failed: %v", err)
	}
	if lcp < 0.7 {
		t.Errorf("expected a high LCP recovering a uniform scale, got %v", lcp)
	}
}

func TestPerformNStepsRespectsContextCancellation(t *testing.T) {
	p := denseCloud(80, 6)
	q := make(Cloud, len(p))
	copy(q, p)

	d := NewDriver(testOptions())
	if err := d.init(p, q, UniformSampler{}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done, err := d.PerformNSteps(ctx, 10, NoopVisitor{})
	if err != nil {
		t.Fatalf("PerformNSteps failed: %v", err)
	}
	if !done {
		t.Error("expected PerformNSteps to report done on a cancelled context")
	}
}

func TestFirstSecondSampledAccessors(t *testing.T) {
	p := denseCloud(40, 7)
	q := denseCloud(40, 8)

	d := NewDriver(testOptions())
	if err := d.init(p, q, UniformSampler{}); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if len(d.FirstSampled()) == 0 {
		t.Error("expected a non-empty sampled P")
	}
	if len(d.SecondSampled()) == 0 {
		t.Error("expected a non-empty sampled Q")
	}
}
