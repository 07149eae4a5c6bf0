package surface

import (
	"math"
)

// sym6 is a symmetric 6x6 matrix stored row major.
type sym6 [36]float64

type mat3 [9]float64

// singularDet is the determinant magnitude below which a 3x3 block is treated as singular.
const singularDet = 1e-12

// invert3 inverts a 3x3 matrix by its adjugate.
func invert3(m mat3) (mat3, bool) {
	c00 := m[4]*m[8] - m[5]*m[7]
	c01 := m[5]*m[6] - m[3]*m[8]
	c02 := m[3]*m[7] - m[4]*m[6]
	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if math.Abs(det) < singularDet || math.IsNaN(det) {
		return mat3{}, false
	}
	inv := 1 / det
	return mat3{
		c00 * inv, (m[2]*m[7] - m[1]*m[8]) * inv, (m[1]*m[5] - m[2]*m[4]) * inv,
		c01 * inv, (m[0]*m[8] - m[2]*m[6]) * inv, (m[2]*m[3] - m[0]*m[5]) * inv,
		c02 * inv, (m[1]*m[6] - m[0]*m[7]) * inv, (m[0]*m[4] - m[1]*m[3]) * inv,
	}, true
}

func mul3(a, b mat3) mat3 {
	var out mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = a[r*3]*b[c] + a[r*3+1]*b[3+c] + a[r*3+2]*b[6+c]
		}
	}
	return out
}

func transpose3(a mat3) mat3 {
	return mat3{a[0], a[3], a[6], a[1], a[4], a[7], a[2], a[5], a[8]}
}

// invertSym6 inverts a symmetric 6x6 matrix through its 3x3 blocks
//
//	M = | A  B |
//	    | Bᵗ D |
//
// using the Schur complement S = D − Bᵗ A⁻¹ B. It reports false when A or S is singular.
func invertSym6(m sym6) (sym6, bool) {
	var a, b, d mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			a[r*3+c] = m[r*6+c]
			b[r*3+c] = m[r*6+c+3]
			d[r*3+c] = m[(r+3)*6+c+3]
		}
	}

	ai, ok := invert3(a)
	if !ok {
		return sym6{}, false
	}
	w := mul3(ai, b) // A⁻¹B
	bt := transpose3(b)
	btw := mul3(bt, w)
	var s mat3
	for i := range s {
		s[i] = d[i] - btw[i]
	}
	si, ok := invert3(s)
	if !ok {
		return sym6{}, false
	}

	// top right = −A⁻¹B S⁻¹, top left = A⁻¹ + A⁻¹B S⁻¹ Bᵗ A⁻¹
	tr := mul3(w, si)
	for i := range tr {
		tr[i] = -tr[i]
	}
	tl := mul3(mul3(w, si), transpose3(w))
	for i := range tl {
		tl[i] += ai[i]
	}

	var out sym6
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*6+c] = tl[r*3+c]
			out[r*6+c+3] = tr[r*3+c]
			out[(r+3)*6+c] = tr[c*3+r]
			out[(r+3)*6+c+3] = si[r*3+c]
		}
	}
	return out, true
}

// mulVec6 returns m·v.
func (m *sym6) mulVec6(v [6]float64) [6]float64 {
	var out [6]float64
	for r := 0; r < 6; r++ {
		var sum float64
		for c := 0; c < 6; c++ {
			sum += m[r*6+c] * v[c]
		}
		out[r] = sum
	}
	return out
}
