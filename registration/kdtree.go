package registration

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a single indexed position, implementing kdtree.Comparable the
// same way gonum's own kdtree_test.go Point type does.
type kdPoint struct {
	pos Vec3
	idx int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	return p.pos[d] - q.pos[d]
}

func (p kdPoint) Dims() int { return 3 }

func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	return p.pos.Sub(q.pos).NormSq()
}

// kdPoints implements kdtree.Interface over a slice of kdPoint, mirroring
// gonum's own Points/Plane test fixture.
type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                      { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int         { return plane{Dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type plane struct {
	kdtree.Dim
	kdPoints
}

func (p plane) Less(i, j int) bool {
	return p.kdPoints[i].pos[p.Dim] < p.kdPoints[j].pos[p.Dim]
}
func (p plane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// Index is a spatial index over a point cloud's positions, supporting
// nearest-within and bounded-range queries.
type Index struct {
	tree   *kdtree.Tree
	points kdPoints
}

// Build constructs an Index over cloud's positions. Indices returned by
// queries refer to positions in cloud.
func Build(cloud Cloud) *Index {
	points := make(kdPoints, len(cloud))
	for i, p := range cloud {
		points[i] = kdPoint{pos: p.Pos, idx: i}
	}
	tree := kdtree.New(points, false)
	return &Index{tree: tree, points: points}
}

// NearestWithin returns the index (into the original cloud) of the point
// nearest q, provided its squared distance does not exceed sqRadius. Ties
// at (within float epsilon of) the minimum reported distance are broken by
// lowest original index via a linear rescan, since gonum's Tree.Nearest
// does not itself guarantee a tie-break order.
func (ix *Index) NearestWithin(q Vec3, sqRadius float64) (idx int, sqDist float64, ok bool) {
	if ix.tree == nil || len(ix.points) == 0 {
		return 0, 0, false
	}
	query := kdPoint{pos: q}
	best, dist := ix.tree.Nearest(query)
	if best == nil {
		return 0, 0, false
	}
	if dist > sqRadius {
		return 0, 0, false
	}

	bestIdx := best.(kdPoint).idx
	const eps = 1e-9
	for _, p := range ix.points {
		d := p.pos.Sub(q).NormSq()
		if d <= dist+eps && p.idx < bestIdx {
			bestIdx = p.idx
			dist = math.Min(dist, d)
		}
	}
	return bestIdx, dist, true
}

// Range invokes visit with the original-cloud index of every point within
// sqRadius (squared distance) of q, in arbitrary order.
func (ix *Index) Range(q Vec3, sqRadius float64, visit func(idx int)) {
	if ix.tree == nil || len(ix.points) == 0 {
		return
	}
	query := kdPoint{pos: q}
	keeper := kdtree.NewDistKeeper(sqRadius)
	ix.tree.NearestSet(keeper, query)
	for _, h := range keeper.Heap {
		visit(h.Comparable.(kdPoint).idx)
	}
}
