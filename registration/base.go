package registration

import (
	"math"
	"math/rand"
)

// Base is four point indices selected from a cloud, together with their
// cached positions, forming a (nearly) planar quadrilateral whose two
// diagonal-intersection ratios are invariant under rigid transformation.
type Base struct {
	Indices [4]int
	Points  [4]Point
}

const (
	kNumberOfDiameterTrials = 50
	kDiameterFraction       = 0.3
)

// SelectRandomTriangle picks three distinct indices from cloud whose
// pairwise edges (from a fixed anchor) are each shorter than maxBaseDiameter,
// preferring the trial with maximum triangle area.
func SelectRandomTriangle(cloud Cloud, maxBaseDiameter float64, rng *rand.Rand) (a, b, c int, ok bool) {
	n := len(cloud)
	if n < 3 {
		return 0, 0, 0, false
	}
	maxSq := maxBaseDiameter * maxBaseDiameter

	bestArea := -1.0
	for trial := 0; trial < kNumberOfDiameterTrials; trial++ {
		i := rng.Intn(n)
		j := rng.Intn(n)
		k := rng.Intn(n)
		if i == j || j == k || i == k {
			continue
		}
		pi, pj, pk := cloud[i].Pos, cloud[j].Pos, cloud[k].Pos
		eij := pj.Sub(pi)
		eik := pk.Sub(pi)
		if eij.NormSq() >= maxSq || eik.NormSq() >= maxSq {
			continue
		}
		area := eij.Cross(eik).Norm()
		if area > bestArea {
			bestArea = area
			a, b, c = i, j, k
			ok = true
		}
	}
	return a, b, c, ok
}

func det3(m Mat3) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// fitPlane returns coefficients (a, b, c) of z = a*x + b*y + c fit exactly
// through p0, p1, p2, solved by Cramer's rule; ok is false if the three
// points are collinear when projected onto the XY plane.
func fitPlane(p0, p1, p2 Vec3) (a, b, c float64, ok bool) {
	m := Mat3{
		{p0[0], p0[1], 1},
		{p1[0], p1[1], 1},
		{p2[0], p2[1], 1},
	}
	denom := det3(m)
	if denom == 0 {
		return 0, 0, 0, false
	}

	mx := Mat3{
		{p0[2], p0[1], 1},
		{p1[2], p1[1], 1},
		{p2[2], p2[1], 1},
	}
	my := Mat3{
		{p0[0], p0[2], 1},
		{p1[0], p1[2], 1},
		{p2[0], p2[2], 1},
	}
	mc := Mat3{
		{p0[0], p0[1], p0[2]},
		{p1[0], p1[1], p1[2]},
		{p2[0], p2[1], p2[2]},
	}
	a = det3(mx) / denom
	b = det3(my) / denom
	c = det3(mc) / denom
	return a, b, c, true
}

// SelectQuadrilateral extends a random triangle with a fourth point close
// to its supporting plane but far enough from all three triangle vertices,
// then resolves the resulting quadrilateral's diagonal invariants via
// TryQuadrilateral.
func SelectQuadrilateral(cloud Cloud, maxBaseDiameter float64, rng *rand.Rand) (base Base, invariant1, invariant2 float64, ok bool) {
	minSep := 0.2 * maxBaseDiameter
	minSepSq := minSep * minSep

	for trial := 0; trial < kNumberOfDiameterTrials; trial++ {
		ia, ib, ic, triOK := SelectRandomTriangle(cloud, maxBaseDiameter, rng)
		if !triOK {
			continue
		}
		pa, pb, pc := cloud[ia].Pos, cloud[ib].Pos, cloud[ic].Pos
		_, _, _, planeOK := fitPlane(pa, pb, pc)
		if !planeOK {
			continue
		}

		bestD := -1
		bestResidual := math.MaxFloat64
		for d := 0; d < len(cloud); d++ {
			if d == ia || d == ib || d == ic {
				continue
			}
			pd := cloud[d].Pos
			if pd.Sub(pa).NormSq() < minSepSq ||
				pd.Sub(pb).NormSq() < minSepSq ||
				pd.Sub(pc).NormSq() < minSepSq {
				continue
			}
			residual := planeResidual(pa, pb, pc, pd)
			if residual < bestResidual {
				bestResidual = residual
				bestD = d
			}
		}
		if bestD < 0 {
			continue
		}

		idx := [4]int{ia, ib, ic, bestD}
		pts := [4]Point{cloud[ia], cloud[ib], cloud[ic], cloud[bestD]}
		newIdx, newPts, inv1, inv2, tryOK := TryQuadrilateral(idx, pts)
		if !tryOK {
			continue
		}
		return Base{Indices: newIdx, Points: newPts}, inv1, inv2, true
	}
	return Base{}, 0, 0, false
}

func planeResidual(p0, p1, p2, q Vec3) float64 {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	nn := n.Norm()
	if nn == 0 {
		return math.MaxFloat64
	}
	return math.Abs(n.Dot(q.Sub(p0))) / nn
}

// TryQuadrilateral searches the pairings of idx/pts into two opposite edges
// for the ordering whose edges come closest to intersecting, and returns
// the two ratios at which each edge is crossed by their common perpendicular
// (the diagonal-intersection invariants). It evaluates the three ways to
// partition four points into two pairs, trying both segment role orders for
// each, capturing the spec's intent (minimal segment-to-segment distance)
// without the original's literal 12-permutation enumeration.
func TryQuadrilateral(idx [4]int, pts [4]Point) (newIdx [4]int, newPts [4]Point, invariant1, invariant2 float64, ok bool) {
	partitions := [3][4]int{
		{0, 1, 2, 3},
		{0, 2, 1, 3},
		{0, 3, 1, 2},
	}

	bestDist := math.MaxFloat64
	var bestOrder [4]int
	var bestS, bestT float64
	found := false

	for _, part := range partitions {
		for _, swap := range [2]bool{false, true} {
			order := part
			if swap {
				order = [4]int{part[2], part[3], part[0], part[1]}
			}
			p0, p1 := pts[order[0]].Pos, pts[order[1]].Pos
			q0, q1 := pts[order[2]].Pos, pts[order[3]].Pos
			s, t, dist := distSegmentToSegment(p0, p1, q0, q1)
			if dist < bestDist {
				bestDist = dist
				bestOrder = order
				bestS, bestT = s, t
				found = true
			}
		}
	}
	if !found {
		return idx, pts, 0, 0, false
	}

	for k := 0; k < 4; k++ {
		newIdx[k] = idx[bestOrder[k]]
		newPts[k] = pts[bestOrder[k]]
	}
	return newIdx, newPts, bestS, bestT, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// distSegmentToSegment computes the closest-point parameters s, t in [0,1]
// on segments p0-p1 and q0-q1, and their distance, following Ericson's
// "Real-Time Collision Detection" closest-point-between-segments algorithm.
func distSegmentToSegment(p0, p1, q0, q1 Vec3) (s, t, dist float64) {
	d1 := p1.Sub(p0)
	d2 := q1.Sub(q0)
	r := p0.Sub(q0)

	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	const epsilon = 1e-12
	if a <= epsilon && e <= epsilon {
		s, t = 0, 0
		return s, t, p0.Sub(q0).Norm()
	}
	if a <= epsilon {
		s = 0
		t = clamp01(f / e)
	} else {
		c := d1.Dot(r)
		if e <= epsilon {
			t = 0
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = clamp01((b*f - c*e) / denom)
			} else {
				s = 0
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}

	closestP := p0.Add(d1.Scale(s))
	closestQ := q0.Add(d2.Scale(t))
	return s, t, closestP.Sub(closestQ).Norm()
}
