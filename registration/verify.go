package registration

import "math"

// Verify scores transform by counting, for each point in cloud transformed
// into the reference frame, whether index has a neighbor within delta. It
// terminates early once the remaining untested points cannot possibly beat
// bestLCP. When weighted is true each hit contributes the kernel
// (x^4 - 1)^2 (x = distance/delta) instead of a flat unit, matching the
// weighted LCP variant.
func Verify(cloud Cloud, transform Mat4, index *Index, delta float64, bestLCP float64, weighted bool) float64 {
	n := len(cloud)
	if n == 0 {
		return 0
	}
	sqDelta := delta * delta

	var good float64
	remaining := float64(n)
	for _, p := range cloud {
		tp := TransformPoint(p.Pos, transform)
		_, sqDist, ok := index.NearestWithin(tp, sqDelta)
		if ok {
			if weighted {
				x := math.Sqrt(sqDist) / delta
				good += (x*x*x*x - 1) * (x*x*x*x - 1)
			} else {
				good++
			}
		}
		remaining--
		if remaining+good < bestLCP*float64(n) {
			break
		}
	}
	return good / float64(n)
}
