package registration

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	kSmallError         = 1e-5
	kMinNumberOfTrials  = 4
	kBaseDiameterFrac   = 0.3
	terminateThreshold  = 1.0
	distanceFactor      = 2.0
	meanDistanceSamples = 50
)

// Driver runs the RANSAC search for a rigid transformation taking a sampled
// copy of Q onto a sampled copy of P.
type Driver struct {
	opts Options
	rng  *rand.Rand

	filter    FeatureFilter
	extractorA, extractorB PairExtractor

	sampledP, sampledQ Cloud
	index              *Index

	centroidP, centroidQ Vec3
	pDiameter            float64
	maxBaseDiameter      float64

	numberOfTrials int
	trialsDone     int
	startTime      time.Time

	mu            sync.Mutex
	bestLCP       float64
	bestTransform Mat4
	bestBase      Base
	bestQuad      Quad

	congruentAccepted atomic.Int64
}

// NewDriver constructs a Driver from opts, selecting the brute or
// accelerated pair extraction strategy per opts.Accelerated.
func NewDriver(opts Options) *Driver {
	d := &Driver{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.RandomSeed)),
		filter: FeatureFilter{
			MaxNormalDifference:    opts.MaxNormalDifference,
			MaxColorDistance:       opts.MaxColorDistance,
			MaxTranslationDistance: opts.MaxTranslationDistance,
			MaxAngle:               opts.MaxAngle,
		},
	}
	if opts.Accelerated {
		d.extractorA = &AcceleratedPairExtractor{}
		d.extractorB = &AcceleratedPairExtractor{}
	} else {
		d.extractorA = &BrutePairExtractor{}
		d.extractorB = &BrutePairExtractor{}
	}
	return d
}

// FirstSampled returns the sampled, centred copy of P used by the current
// or most recent run.
func (d *Driver) FirstSampled() Cloud { return d.sampledP }

// SecondSampled returns the sampled, centred copy of Q used by the current
// or most recent run.
func (d *Driver) SecondSampled() Cloud { return d.sampledQ }

// ComputeTransformation runs the full RANSAC search, returning the best
// transform found taking q onto p, its LCP score, and an error only for
// setup failures (empty input); per-trial numeric failures never surface
// as an error.
func (d *Driver) ComputeTransformation(ctx context.Context, p, q Cloud, sampler Sampler, visitor Visitor) (Mat4, float64, error) {
	if err := d.init(p, q, sampler); err != nil {
		return Mat4{}, 0, err
	}
	log.Printf("[4PCS] starting search: %d trials estimated, %d/%d points sampled", d.numberOfTrials, len(d.sampledP), len(d.sampledQ))

	for {
		done, err := d.PerformNSteps(ctx, 1, visitor)
		if err != nil {
			return Mat4{}, 0, err
		}
		if done {
			break
		}
	}

	// The returned transform always maps the caller's uncentred q onto p;
	// the visitor's preference only governs what its reports carry.
	d.mu.Lock()
	transform := MultiplyMatrices(translationMat4(d.centroidP),
		MultiplyMatrices(d.bestTransform, translationMat4(d.centroidQ.Scale(-1))))
	lcp := d.bestLCP
	d.mu.Unlock()
	log.Printf("[4PCS] search complete: bestLCP=%.4f trials=%d/%d", lcp, d.trialsDone, d.numberOfTrials)
	return transform, lcp, nil
}

func (d *Driver) init(p, q Cloud, sampler Sampler) error {
	if len(p) == 0 || len(q) == 0 {
		return fmt.Errorf("registration: empty input cloud (p=%d, q=%d points)", len(p), len(q))
	}
	if sampler == nil {
		sampler = UniformSampler{}
	}

	sp := sampler.Sample(p, d.opts.SampleSize, d.rng)
	sq := sampler.Sample(q, d.opts.SampleSize, d.rng)

	d.centroidP = centroid(sp)
	d.centroidQ = centroid(sq)
	d.sampledP = recenter(sp, d.centroidP)
	d.sampledQ = recenter(sq, d.centroidQ)

	d.index = Build(d.sampledP)
	d.pDiameter = estimateDiameter(d.sampledP, d.rng)
	d.maxBaseDiameter = kBaseDiameterFrac * d.pDiameter
	if d.maxBaseDiameter <= 0 {
		return fmt.Errorf("registration: degenerate reference cloud (zero diameter)")
	}

	overlap := d.opts.OverlapEstimation
	if overlap <= 0 {
		overlap = 0.2
	}
	estimated := math.Log(kSmallError) / math.Log(1-math.Pow(overlap, kMinNumberOfTrials))
	estimated *= d.pDiameter / kBaseDiameterFrac / d.maxBaseDiameter
	d.numberOfTrials = int(math.Ceil(estimated))
	if d.numberOfTrials < kMinNumberOfTrials {
		d.numberOfTrials = kMinNumberOfTrials
	}

	if accel, ok := d.extractorA.(*AcceleratedPairExtractor); ok {
		accel.Prepare(d.sampledQ)
	}
	if accel, ok := d.extractorB.(*AcceleratedPairExtractor); ok {
		accel.Prepare(d.sampledQ)
	}

	d.bestTransform = Identity4()
	d.bestLCP = Verify(d.sampledQ, Identity4(), d.index, d.opts.Delta, 0, d.opts.Weighted)
	d.startTime = time.Now()
	d.trialsDone = 0
	return nil
}

func centroid(cloud Cloud) Vec3 {
	if len(cloud) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, p := range cloud {
		sum = sum.Add(p.Pos)
	}
	return sum.Scale(1 / float64(len(cloud)))
}

func recenter(cloud Cloud, c Vec3) Cloud {
	out := make(Cloud, len(cloud))
	for i, p := range cloud {
		out[i] = Point{Pos: p.Pos.Sub(c), Normal: p.Normal, Color: p.Color}
	}
	return out
}

func estimateDiameter(cloud Cloud, rng *rand.Rand) float64 {
	n := len(cloud)
	if n < 2 {
		return 0
	}
	var maxD float64
	for trial := 0; trial < meanDistanceSamples; trial++ {
		i, j := rng.Intn(n), rng.Intn(n)
		if i == j {
			continue
		}
		d := cloud[i].Pos.Sub(cloud[j].Pos).Norm()
		if d > maxD {
			maxD = d
		}
	}
	return maxD
}

// PerformNSteps runs up to n RANSAC base trials (or fewer, if termination
// conditions are reached first), reporting progress via visitor after each.
// It returns true once the search should stop (trial budget, wall clock, or
// LCP goal reached).
func (d *Driver) PerformNSteps(ctx context.Context, n int, visitor Visitor) (bool, error) {
	if visitor == nil {
		visitor = NoopVisitor{}
	}
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return true, nil
		default:
		}

		if d.trialsDone >= d.numberOfTrials {
			return true, nil
		}
		if d.opts.MaxTimeSeconds > 0 && time.Since(d.startTime).Seconds() > d.opts.MaxTimeSeconds {
			return true, nil
		}

		if err := d.tryOneBase(ctx, visitor); err != nil {
			return true, err
		}
		d.trialsDone++

		fractionTry := float64(d.trialsDone) / float64(d.numberOfTrials)
		fractionTime := 0.0
		if d.opts.MaxTimeSeconds > 0 {
			fractionTime = time.Since(d.startTime).Seconds() / d.opts.MaxTimeSeconds
		}
		fraction := math.Max(fractionTry, fractionTime)

		d.mu.Lock()
		bestLCP := d.bestLCP
		transform := d.globalTransform(visitor)
		d.mu.Unlock()
		visitor.Report(fraction, bestLCP, transform)

		if bestLCP >= terminateThreshold {
			return true, nil
		}
		if fraction > 0.99 {
			return true, nil
		}
	}
	return d.trialsDone >= d.numberOfTrials, nil
}

func (d *Driver) tryOneBase(ctx context.Context, visitor Visitor) error {
	base, invariant1, invariant2, ok := SelectQuadrilateral(d.sampledP, d.maxBaseDiameter, d.rng)
	if !ok {
		return nil
	}

	a, b, c, e := base.Points[0], base.Points[1], base.Points[2], base.Points[3]
	distance1 := b.Pos.Sub(a.Pos).Norm()
	distance2 := e.Pos.Sub(c.Pos).Norm()
	var normalAngle1, normalAngle2 float64
	if a.Normal != nil && b.Normal != nil {
		normalAngle1 = a.Normal.Sub(*b.Normal).Norm()
	}
	if c.Normal != nil && e.Normal != nil {
		normalAngle2 = c.Normal.Sub(*e.Normal).Norm()
	}

	d.extractorA.SetBase(base.Indices[0], base.Indices[1], a, b)
	d.extractorB.SetBase(base.Indices[2], base.Indices[3], c, e)

	// Base a/b/c/e are drawn from sampled_P; pair extraction and congruent
	// search run over sampled_Q, looking for quadrilaterals in Q congruent
	// to the base selected in P.
	eps := d.opts.Delta
	pairs1 := d.extractorA.ExtractPairs(d.sampledQ, distance1, normalAngle1, eps, d.filter)
	pairs2 := d.extractorB.ExtractPairs(d.sampledQ, distance2, normalAngle2, eps, d.filter)
	if len(pairs1) == 0 || len(pairs2) == 0 {
		return nil
	}

	sqRadius2 := eps * eps
	quads := FindCongruentQuadrilaterals(d.sampledQ, invariant1, invariant2, 0, sqRadius2, pairs1, pairs2)
	if len(quads) == 0 {
		return nil
	}

	return d.tryCongruentSet(ctx, base, quads, visitor)
}

func (d *Driver) tryCongruentSet(ctx context.Context, base Base, quads []Quad, visitor Visitor) error {
	limit := runtime.GOMAXPROCS(0)
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, quad := range quads {
		quad := quad
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}

			var cand [4]Point
			for i, idx := range quad {
				cand[i] = d.sampledQ[idx]
			}

			fit := ComputeRigidTransformation(base.Points, cand, Vec3{}, Vec3{}, d.opts.MaxAngle, d.opts.ComputeScale)
			if !fit.OK {
				return nil
			}
			if fit.RMS >= distanceFactor*d.opts.Delta {
				return nil
			}
			d.congruentAccepted.Add(1)

			currentBest := d.currentBestLCP()
			lcp := Verify(d.sampledQ, fit.Transform, d.index, d.opts.Delta, currentBest, d.opts.Weighted)
			visitor.Report(-1, lcp, fit.Transform)

			d.mu.Lock()
			if lcp > d.bestLCP {
				d.bestLCP = lcp
				d.bestTransform = fit.Transform
				d.bestBase = base
				d.bestQuad = quad
			}
			d.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (d *Driver) currentBestLCP() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bestLCP
}

// globalTransform composes the best-known transform with the centroid
// recentering so it maps the caller's original (uncentred) Q onto the
// caller's original (uncentred) P, if the visitor requests it; otherwise
// the centred-frame transform is returned as-is. Must be called with d.mu
// held.
func (d *Driver) globalTransform(visitor Visitor) Mat4 {
	if visitor == nil || !visitor.NeedsGlobalTransformation() {
		return d.bestTransform
	}
	toP := translationMat4(d.centroidP)
	fromQ := translationMat4(d.centroidQ.Scale(-1))
	return MultiplyMatrices(toP, MultiplyMatrices(d.bestTransform, fromQ))
}
