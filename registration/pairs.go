package registration

// Pair is an ordered pair of point indices into a cloud, extracted because
// their distance and features are compatible with a base edge.
type Pair struct {
	I, J int
}

// PairExtractor finds, for a base edge (a, b) at a target distance, all
// ordered pairs (i, j) in cloud whose distance matches and which survive
// filter.
type PairExtractor interface {
	SetBase(a, b int, baseA, baseB Point)
	ExtractPairs(cloud Cloud, distance, deltaNormal, eps float64, filter FeatureFilter) []Pair
}

// BrutePairExtractor is the O(n^2) reference implementation: every ordered
// pair is tested directly against the target distance and the filter.
type BrutePairExtractor struct {
	a, b         int
	baseA, baseB Point
}

func (e *BrutePairExtractor) SetBase(a, b int, baseA, baseB Point) {
	e.a, e.b, e.baseA, e.baseB = a, b, baseA, baseB
}

func (e *BrutePairExtractor) ExtractPairs(cloud Cloud, distance, deltaNormal, eps float64, filter FeatureFilter) []Pair {
	var pairs []Pair
	lo, hi := distance-eps, distance+eps
	for j := 0; j < len(cloud); j++ {
		for i := j + 1; i < len(cloud); i++ {
			d := cloud[i].Pos.Sub(cloud[j].Pos).Norm()
			if d < lo || d > hi {
				continue
			}
			acceptIJ, acceptJI := filter.Test(cloud[i], cloud[j], e.baseA, e.baseB, deltaNormal)
			if acceptIJ {
				pairs = append(pairs, Pair{I: i, J: j})
			}
			if acceptJI {
				pairs = append(pairs, Pair{I: j, J: i})
			}
		}
	}
	return pairs
}

// AcceleratedPairExtractor re-expresses the unit-cube-normalised
// hypersphere-intersection scheme as a second spatial index built over
// normalised coordinates, queried with a radius band around the target
// distance. This stands in for a hand-rolled primitive-intersection engine,
// which Go's corpus offers no equivalent of (see DESIGN.md).
type AcceleratedPairExtractor struct {
	a, b         int
	baseA, baseB Point
	center       Vec3
	ratio        float64
	index        *Index
	normalized   Cloud
}

func (e *AcceleratedPairExtractor) SetBase(a, b int, baseA, baseB Point) {
	e.a, e.b, e.baseA, e.baseB = a, b, baseA, baseB
}

// Prepare normalizes cloud into a unit cube and builds the backing index.
// Must be called once before ExtractPairs; distance/eps passed to
// ExtractPairs are in the original (unnormalized) coordinate units.
func (e *AcceleratedPairExtractor) Prepare(cloud Cloud) {
	min, max := cloud.Bounds()
	diag := max.Sub(min).Norm()
	e.ratio = diag + 0.001
	e.center = min.Add(max).Scale(0.5)

	e.normalized = make(Cloud, len(cloud))
	for i, p := range cloud {
		e.normalized[i] = Point{
			Pos:    p.Pos.Sub(e.center).Scale(1 / e.ratio),
			Normal: p.Normal,
			Color:  p.Color,
		}
	}
	e.index = Build(e.normalized)
}

func (e *AcceleratedPairExtractor) ExtractPairs(cloud Cloud, distance, deltaNormal, eps float64, filter FeatureFilter) []Pair {
	if e.index == nil {
		e.Prepare(cloud)
	}
	nd := distance / e.ratio
	neps := eps / e.ratio
	sqRadius := (nd + neps) * (nd + neps)

	var pairs []Pair
	for j := 0; j < len(e.normalized); j++ {
		q := e.normalized[j].Pos
		e.index.Range(q, sqRadius, func(i int) {
			if i <= j {
				return
			}
			d := cloud[i].Pos.Sub(cloud[j].Pos).Norm()
			if d < distance-eps || d > distance+eps {
				return
			}
			acceptIJ, acceptJI := filter.Test(cloud[i], cloud[j], e.baseA, e.baseB, deltaNormal)
			if acceptIJ {
				pairs = append(pairs, Pair{I: i, J: j})
			}
			if acceptJI {
				pairs = append(pairs, Pair{I: j, J: i})
			}
		})
	}
	return pairs
}
