package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rotation is a proper rotation backed by a unit quaternion.
type Rotation struct {
	q quat.Number
}

// RotIdentity returns the identity rotation.
func RotIdentity() Rotation {
	return Rotation{q: quat.Number{Real: 1}}
}

// RotFromQuat builds a rotation from w-first quaternion components,
// normalizing the input. An all-zero quaternion yields identity.
func RotFromQuat(w, x, y, z float64) Rotation {
	n := math.Sqrt(w*w + x*x + y*y + z*z)
	if n == 0 {
		return RotIdentity()
	}
	return Rotation{q: quat.Number{Real: w / n, Imag: x / n, Jmag: y / n, Kmag: z / n}}
}

// RotFromAxisAngle builds a rotation of angle radians about axis.
func RotFromAxisAngle(axis r3.Vec, angle float64) Rotation {
	n := r3.Norm(axis)
	if n == 0 {
		return RotIdentity()
	}
	s := math.Sin(angle/2) / n
	return Rotation{q: quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}}
}

// Quat returns the w-first quaternion components.
func (r Rotation) Quat() (w, x, y, z float64) {
	return r.q.Real, r.q.Imag, r.q.Jmag, r.q.Kmag
}

// Apply rotates v.
func (r Rotation) Apply(v r3.Vec) r3.Vec {
	p := quat.Mul(quat.Mul(r.q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(r.q))
	return r3.Vec{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// Mul composes rotations: (r.Mul(o)).Apply(v) == r.Apply(o.Apply(v)).
func (r Rotation) Mul(o Rotation) Rotation {
	return Rotation{q: quat.Mul(r.q, o.q)}
}

// Inv returns the inverse rotation.
func (r Rotation) Inv() Rotation {
	return Rotation{q: quat.Conj(r.q)}
}

// X, Y and Z return the basis vectors (matrix columns) of the rotated frame.
func (r Rotation) X() r3.Vec { return r.Apply(r3.Vec{X: 1}) }
func (r Rotation) Y() r3.Vec { return r.Apply(r3.Vec{Y: 1}) }
func (r Rotation) Z() r3.Vec { return r.Apply(r3.Vec{Z: 1}) }

// RotFromBasis builds the rotation whose frame has the given orthonormal
// basis vectors as its x, y and z axes. The caller must supply a
// right-handed orthonormal triple.
func RotFromBasis(x, y, z r3.Vec) Rotation {
	// Shepperd's method on the column matrix [x y z].
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z
	tr := m00 + m11 + m22
	var w, qx, qy, qz float64
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		w = s / 4
		qx = (m21 - m12) / s
		qy = (m02 - m20) / s
		qz = (m10 - m01) / s
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		w = (m21 - m12) / s
		qx = s / 4
		qy = (m01 + m10) / s
		qz = (m02 + m20) / s
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		w = (m02 - m20) / s
		qx = (m01 + m10) / s
		qy = s / 4
		qz = (m12 + m21) / s
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		w = (m10 - m01) / s
		qx = (m02 + m20) / s
		qy = (m12 + m21) / s
		qz = s / 4
	}
	return RotFromQuat(w, qx, qy, qz)
}

// CoordAxis names one of the solver's fixed mobility axes.
type CoordAxis int

const (
	AxisX CoordAxis = iota
	AxisY
	AxisZ
)

// AxisAlign returns a rotation whose `to` basis vector equals the unit of
// axis. The remaining two basis vectors are chosen by a stable orthogonal
// complement: the seed is the world axis least aligned with the input, so
// the construction has no singular direction.
func AxisAlign(axis r3.Vec, to CoordAxis) Rotation {
	a := r3.Unit(axis)
	seed := r3.Vec{X: 1}
	ax, ay, az := math.Abs(a.X), math.Abs(a.Y), math.Abs(a.Z)
	if ay <= ax && ay <= az {
		seed = r3.Vec{Y: 1}
	} else if az <= ax && az <= ay {
		seed = r3.Vec{Z: 1}
	}
	u := r3.Unit(r3.Cross(seed, a))
	v := r3.Cross(a, u)
	switch to {
	case AxisX:
		return RotFromBasis(a, u, v)
	case AxisY:
		return RotFromBasis(v, a, u)
	default:
		return RotFromBasis(u, v, a)
	}
}

// TwoAxisAlign returns a rotation whose x basis vector is the unit of a1
// and whose y basis vector is the component of a2 perpendicular to a1.
// Used for two-mobility joints whose declared axes are not exactly
// orthogonal.
func TwoAxisAlign(a1, a2 r3.Vec) Rotation {
	c := r3.Cross(a1, a2)
	if r3.Norm(c) < 1e-12 {
		// Parallel axes leave the second direction unconstrained; use
		// the stable orthogonal complement of the first axis instead.
		return AxisAlign(a1, AxisX)
	}
	x := r3.Unit(a1)
	z := r3.Unit(c)
	y := r3.Cross(z, x)
	return RotFromBasis(x, y, z)
}
