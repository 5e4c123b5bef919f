package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/spatial"
)

// State holds the generalized coordinates and speeds of one realized
// topology, plus the simulation time.
type State struct {
	Time float64
	Q    []float64
	U    []float64
}

// Clone returns a deep copy.
func (st *State) Clone() *State {
	c := &State{Time: st.Time, Q: make([]float64, len(st.Q)), U: make([]float64, len(st.U))}
	copy(c.Q, st.Q)
	copy(c.U, st.U)
	return c
}

// Valid reports whether every coordinate and speed is finite.
func (st *State) Valid() bool {
	for _, v := range st.Q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range st.U {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// RealizeTopology assigns coordinate slots to every mobilizer and returns
// the default state. Free and ball mobilizers start at their declared
// default transform; everything else starts at zero.
func (s *System) RealizeTopology() *State {
	nq := 0
	for i := range s.mobilizers {
		m := &s.mobilizers[i]
		m.q0 = nq
		m.u0 = nq
		nq += m.kind.Mobilities()
	}
	s.nq = nq
	s.nu = nq
	s.discrete = make([]float64, nq)
	s.realized = true

	st := &State{Q: make([]float64, nq), U: make([]float64, nq)}
	for i := range s.mobilizers {
		m := &s.mobilizers[i]
		switch m.kind {
		case KindFree:
			p := m.defaultX.P
			rx, ry, rz := eulerXYZ(m.defaultX.R)
			copy(st.Q[m.q0:m.q0+6], []float64{p.X, p.Y, p.Z, rx, ry, rz})
		case KindBall:
			rx, ry, rz := eulerXYZ(m.defaultX.R)
			copy(st.Q[m.q0:m.q0+3], []float64{rx, ry, rz})
		}
	}
	return st
}

// Realized reports whether RealizeTopology has run.
func (s *System) Realized() bool { return s.realized }

// NQ returns the number of generalized coordinates.
func (s *System) NQ() int { return s.nq }

// MobilizerQ returns the coordinate slice of one mobilizer, aliasing the
// state vector.
func (s *System) MobilizerQ(st *State, m MobilizerID) []float64 {
	mob := &s.mobilizers[m]
	return st.Q[mob.q0 : mob.q0+mob.kind.Mobilities()]
}

// MobilizerU returns the speed slice of one mobilizer, aliasing the state
// vector.
func (s *System) MobilizerU(st *State, m MobilizerID) []float64 {
	mob := &s.mobilizers[m]
	return st.U[mob.u0 : mob.u0+mob.kind.Mobilities()]
}

// mobilityTransform returns the F-to-M transform of a mobilizer at the
// given coordinates.
func mobilityTransform(m *mobilizer, q []float64) spatial.Transform {
	switch m.kind {
	case KindWeld:
		return spatial.TransformIdentity()
	case KindPin:
		return spatial.Transform{R: spatial.RotFromAxisAngle(r3.Vec{Z: 1}, q[0])}
	case KindSlider:
		return spatial.Transform{R: spatial.RotIdentity(), P: r3.Vec{X: q[0]}}
	case KindScrew:
		return spatial.Transform{
			R: spatial.RotFromAxisAngle(r3.Vec{Z: 1}, q[0]),
			P: r3.Vec{Z: m.screwPitch * q[0]},
		}
	case KindUniversal:
		rx := spatial.RotFromAxisAngle(r3.Vec{X: 1}, q[0])
		ry := spatial.RotFromAxisAngle(r3.Vec{Y: 1}, q[1])
		return spatial.Transform{R: rx.Mul(ry)}
	case KindBall:
		return spatial.Transform{R: rotEulerXYZ(q[0], q[1], q[2])}
	case KindFree:
		return spatial.Transform{
			R: rotEulerXYZ(q[3], q[4], q[5]),
			P: r3.Vec{X: q[0], Y: q[1], Z: q[2]},
		}
	}
	return spatial.TransformIdentity()
}

// BodyTransforms realizes the world transform of every body at st. Bodies
// are stored parent-before-child, so a single forward pass suffices; weld
// constraints then overwrite each slave's pose with its master's.
func (s *System) BodyTransforms(st *State) []spatial.Transform {
	xs := make([]spatial.Transform, len(s.bodies))
	xs[Ground] = spatial.TransformIdentity()
	for bid := 1; bid < len(s.bodies); bid++ {
		m := &s.mobilizers[s.bodies[bid].mobilizer]
		xFM := mobilityTransform(m, s.MobilizerQ(st, s.bodies[bid].mobilizer))
		if m.dir == Reverse {
			xFM = xFM.Inv()
		}
		xPB := m.xIF.Mul(xFM).Mul(m.xOM.Inv())
		xs[bid] = xs[m.parent].Mul(xPB)
	}
	for _, w := range s.welds {
		xs[w.Slave] = xs[w.Master]
	}
	return xs
}

// BodyTransform returns the world transform of one body at st.
func (s *System) BodyTransform(st *State, b BodyID) spatial.Transform {
	return s.BodyTransforms(st)[b]
}

func rotEulerXYZ(rx, ry, rz float64) spatial.Rotation {
	return spatial.RotFromAxisAngle(r3.Vec{X: 1}, rx).
		Mul(spatial.RotFromAxisAngle(r3.Vec{Y: 1}, ry)).
		Mul(spatial.RotFromAxisAngle(r3.Vec{Z: 1}, rz))
}

// eulerXYZ extracts body-fixed XYZ angles, the inverse of rotEulerXYZ
// away from the ry = ±pi/2 singularity.
func eulerXYZ(r spatial.Rotation) (rx, ry, rz float64) {
	x, y, z := r.X(), r.Y(), r.Z()
	ry = math.Asin(clamp(z.X, -1, 1))
	if math.Abs(z.X) < 1-1e-12 {
		rx = math.Atan2(-z.Y, z.Z)
		rz = math.Atan2(-y.X, x.X)
	} else {
		rx = math.Atan2(x.Y, y.Y)
		rz = 0
	}
	return rx, ry, rz
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
