package registration

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Mat4 is a row-major 4x4 homogeneous matrix.
type Mat4 [4][4]float64

// Identity4 returns the 4x4 identity matrix.
func Identity4() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func mat3Apply(m Mat3, v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func mat3Transpose(m Mat3) Mat3 {
	var t Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[j][i] = m[i][j]
		}
	}
	return t
}

// composeRigid builds the 4x4 homogeneous matrix for y = r*(scale*x - c2) + c1.
func composeRigid(r Mat3, scale float64, c1, c2 Vec3) Mat4 {
	var m Mat4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = r[i][j] * scale
		}
	}
	t := c1.Sub(mat3Apply(r, c2))
	m[0][3] = t[0]
	m[1][3] = t[1]
	m[2][3] = t[2]
	m[3][3] = 1
	return m
}

// TransformPoint applies the homogeneous transform m to v.
func TransformPoint(v Vec3, m Mat4) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2] + m[0][3],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2] + m[1][3],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2] + m[2][3],
	}
}

// TransformPoints applies m to every position in cloud, copying Normal and
// Color through unchanged. Normals are not re-oriented by the linear block;
// callers that need correctly transformed normals (inverse-transpose) must
// do so themselves.
func TransformPoints(cloud Cloud, m Mat4) Cloud {
	out := make(Cloud, len(cloud))
	for i, p := range cloud {
		out[i] = Point{
			Pos:    TransformPoint(p.Pos, m),
			Normal: p.Normal,
			Color:  p.Color,
		}
	}
	return out
}

// MultiplyMatrices returns a*b.
func MultiplyMatrices(a, b Mat4) Mat4 {
	var out Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

// translationMat4 returns the homogeneous matrix for translation by t.
func translationMat4(t Vec3) Mat4 {
	m := Identity4()
	m[0][3] = t[0]
	m[1][3] = t[1]
	m[2][3] = t[2]
	return m
}

// InvertMatrix inverts a rigid or uniform-scale similarity transform. It
// exploits the block structure (linear block s*R with R orthonormal) rather
// than performing a general Gauss-Jordan elimination: the inverse of the
// linear block is its transpose divided by the squared scale, and the
// inverse translation follows directly.
func InvertMatrix(m Mat4) Mat4 {
	var lin Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			lin[i][j] = m[i][j]
		}
	}
	scaleSq := lin[0][0]*lin[0][0] + lin[1][0]*lin[1][0] + lin[2][0]*lin[2][0]
	if scaleSq == 0 {
		scaleSq = 1
	}
	invLin := mat3Transpose(lin)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			invLin[i][j] /= scaleSq
		}
	}
	t := Vec3{m[0][3], m[1][3], m[2][3]}
	invT := mat3Apply(invLin, t).Scale(-1)

	var out Mat4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = invLin[i][j]
		}
	}
	out[0][3] = invT[0]
	out[1][3] = invT[1]
	out[2][3] = invT[2]
	out[3][3] = 1
	return out
}
