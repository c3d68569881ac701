package registration

import "math"

// rejectedRMS is the sentinel RMS value returned for a geometrically
// degenerate or angle-capped fit, matching the original's large-magnitude
// rejection rather than a Go error return in the hot loop.
const rejectedRMS = 1e9

// RigidFit is the result of fitting a rigid (optionally similarity)
// transform taking cand onto ref.
type RigidFit struct {
	Transform Mat4
	RMS       float64
	OK        bool
}

// orthonormalFrame builds a right-handed orthonormal frame from the edges
// p1-p0 and p2-p0 via explicit Gram-Schmidt orthogonalisation: u1 is the
// normalised first edge, u2 is the second edge with its u1 component
// removed and renormalised, u3 completes the frame.
func orthonormalFrame(p0, p1, p2 Vec3) (frame [3]Vec3, ok bool) {
	e1 := p1.Sub(p0)
	e2 := p2.Sub(p0)
	if e1.NormSq() == 0 {
		return frame, false
	}
	u1 := e1.Normalize()
	e2ortho := e2.Sub(u1.Scale(e2.Dot(u1)))
	if e2ortho.NormSq() == 0 {
		return frame, false
	}
	u2 := e2ortho.Normalize()
	u3 := u1.Cross(u2)
	return [3]Vec3{u1, u2, u3}, true
}

// mulFrame computes R = sum_i up[i] (outer) uq[i], the rotation taking the
// uq frame onto the up frame (equivalently R = Up^T . Uq when Up, Uq are
// matrices whose rows are the frame vectors).
func mulFrame(up, uq [3]Vec3) Mat3 {
	var r Mat3
	for k := 0; k < 3; k++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				r[i][j] += up[k][i] * uq[k][j]
			}
		}
	}
	return r
}

// ComputeRigidTransformation fits the rigid (optionally similarity)
// transform taking the candidate quad cand (already centred so its
// centroid is at c2) onto the reference quad ref (centred at c1), rejecting
// fits whose implied rotation exceeds maxAngle about any axis, or whose
// scale estimate disagrees across edges by more than 10%.
func ComputeRigidTransformation(ref, cand [4]Point, c1, c2 Vec3, maxAngle float64, computeScale bool) RigidFit {
	scale := 1.0
	if computeScale {
		dRef1 := ref[1].Pos.Sub(ref[0].Pos).Norm()
		dCand1 := cand[1].Pos.Sub(cand[0].Pos).Norm()
		dRef2 := ref[3].Pos.Sub(ref[2].Pos).Norm()
		dCand2 := cand[3].Pos.Sub(cand[2].Pos).Norm()
		if dCand1 <= 1e-9 || dCand2 <= 1e-9 {
			return RigidFit{RMS: rejectedRMS}
		}
		ratio1 := dRef1 / dCand1
		ratio2 := dRef2 / dCand2
		if ratio2 == 0 || math.Abs(ratio1/ratio2-1) > 0.10 {
			return RigidFit{RMS: rejectedRMS}
		}
		scale = (ratio1 + ratio2) / 2
	}

	framePRaw, ok1 := orthonormalFrame(ref[0].Pos, ref[1].Pos, ref[2].Pos)
	frameQRaw, ok2 := orthonormalFrame(cand[0].Pos, cand[1].Pos, cand[2].Pos)
	if !ok1 || !ok2 {
		return RigidFit{RMS: rejectedRMS}
	}

	r := mulFrame(framePRaw, frameQRaw)

	// Orthogonality sanity check: no diagonal element of R R may exceed 1 by
	// more than 1e-6 (for a true rotation every such element is at most 1).
	rr := Mat3{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for k := 0; k < 3; k++ {
				s += r[i][k] * r[k][j]
			}
			rr[i][j] = s
		}
	}
	for i := 0; i < 3; i++ {
		if rr[i][i]-1 > 1e-6 {
			return RigidFit{RMS: rejectedRMS}
		}
	}

	if maxAngle > 0 {
		bound := maxAngle * math.Pi / 180
		angleX := math.Atan2(r[2][1], r[2][2])
		angleY := math.Atan2(-r[2][0], math.Sqrt(r[2][1]*r[2][1]+r[2][2]*r[2][2]))
		angleZ := math.Atan2(r[1][0], r[0][0])
		if math.Abs(angleX) > bound || math.Abs(angleY) > bound || math.Abs(angleZ) > bound {
			return RigidFit{RMS: rejectedRMS}
		}
	}

	var rmsSum float64
	for i := 0; i < 3; i++ {
		predicted := mat3Apply(r, cand[i].Pos.Sub(c2).Scale(scale))
		diff := predicted.Sub(ref[i].Pos.Sub(c1))
		rmsSum += diff.Norm()
	}
	rms := rmsSum / 4

	transform := composeRigid(r, scale, c1, c2)
	return RigidFit{Transform: transform, RMS: rms, OK: true}
}
