package registration

import "math"

// FeatureFilter gates which (i, j) point pairs are accepted as candidate
// extremal pairs, based on the orientation-agnostic normal-angle test, RGB
// colour distance, translation cap, and segment-angle checks. A bound of
// zero or less disables the corresponding check.
type FeatureFilter struct {
	MaxNormalDifference    float64 // degrees
	MaxColorDistance       float64
	MaxTranslationDistance float64
	MaxAngle               float64 // degrees
}

// Test evaluates the filter for the ordered pair (p, q) drawn against the
// base edge (a, b), with deltaNormal the angular gap between the base
// edge's own normals. It reports whether (i, j) and (j, i) orderings survive
// independently, since the segment-angle check is asymmetric.
func (f FeatureFilter) Test(p, q, a, b Point, deltaNormal float64) (acceptIJ, acceptJI bool) {
	if f.MaxNormalDifference > 0 && p.Normal != nil && q.Normal != nil {
		diff := p.Normal.Sub(*q.Normal).Norm()
		sum := p.Normal.Add(*q.Normal).Norm()
		bound := 0.5 * f.MaxNormalDifference * math.Pi / 180
		if math.Min(math.Abs(diff-deltaNormal), math.Abs(sum-deltaNormal)) > bound {
			return false, false
		}
	}

	if f.MaxColorDistance > 0 && p.Color != nil && q.Color != nil && a.Color != nil && b.Color != nil {
		if colorDistance(*p.Color, *a.Color) > f.MaxColorDistance || colorDistance(*q.Color, *b.Color) > f.MaxColorDistance {
			return false, false
		}
	}

	if f.MaxTranslationDistance > 0 {
		if p.Pos.Sub(a.Pos).Norm() > f.MaxTranslationDistance || q.Pos.Sub(b.Pos).Norm() > f.MaxTranslationDistance {
			return false, false
		}
	}

	acceptIJ, acceptJI = true, true
	if f.MaxAngle > 0 {
		bound := f.MaxAngle * math.Pi / 180
		segPQ := q.Pos.Sub(p.Pos)
		segAB := b.Pos.Sub(a.Pos)
		if angleBetween(segPQ, segAB) > bound {
			acceptIJ = false
		}
		if angleBetween(segPQ.Scale(-1), segAB) > bound {
			acceptJI = false
		}
	}
	return acceptIJ, acceptJI
}

func angleBetween(u, v Vec3) float64 {
	nu, nv := u.Norm(), v.Norm()
	if nu == 0 || nv == 0 {
		return 0
	}
	cos := u.Dot(v) / (nu * nv)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}
