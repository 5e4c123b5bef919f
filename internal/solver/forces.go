package solver

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/spatial"
)

type stopForce struct {
	mob         MobilizerID
	axis        int
	stiffness   float64
	dissipation float64
	lower       float64
	upper       float64
}

type damperForce struct {
	mob     MobilizerID
	axis    int
	damping float64
}

type springForce struct {
	mob       MobilizerID
	axis      int
	stiffness float64
	ref       float64
}

// AddMobilityLinearStop attaches a limit element to one mobility: outside
// [lower, upper] it applies a restoring force of the given stiffness with
// velocity-proportional dissipation.
func (s *System) AddMobilityLinearStop(m MobilizerID, axis int, stiffness, dissipation, lower, upper float64) ForceID {
	id := ForceID(len(s.stops))
	s.stops = append(s.stops, stopForce{
		mob: m, axis: axis,
		stiffness: stiffness, dissipation: dissipation,
		lower: lower, upper: upper,
	})
	return id
}

// AddMobilityLinearDamper attaches a damping element to one mobility. It
// is created even for a zero coefficient so damping stays adjustable after
// construction.
func (s *System) AddMobilityLinearDamper(m MobilizerID, axis int, damping float64) ForceID {
	id := ForceID(len(s.dampers))
	s.dampers = append(s.dampers, damperForce{mob: m, axis: axis, damping: damping})
	return id
}

// SetDamping adjusts a damper created earlier.
func (s *System) SetDamping(id ForceID, damping float64) {
	s.dampers[id].damping = damping
}

// AddMobilityLinearSpring attaches a spring element pulling one mobility
// toward a reference position.
func (s *System) AddMobilityLinearSpring(m MobilizerID, axis int, stiffness, ref float64) ForceID {
	id := ForceID(len(s.springs))
	s.springs = append(s.springs, springForce{mob: m, axis: axis, stiffness: stiffness, ref: ref})
	return id
}

// SetSpring adjusts a spring created earlier.
func (s *System) SetSpring(id ForceID, stiffness, ref float64) {
	s.springs[id].stiffness = stiffness
	s.springs[id].ref = ref
}

// ApplyMobilityForce accumulates a discrete generalized force on one
// mobility for the next advance.
func (s *System) ApplyMobilityForce(m MobilizerID, axis int, f float64) {
	mob := &s.mobilizers[m]
	s.discrete[mob.u0+axis] += f
}

// ClearDiscreteForces zeroes all applied mobility forces. Called after each
// committed step, before forces for the next step are applied.
func (s *System) ClearDiscreteForces() {
	for i := range s.discrete {
		s.discrete[i] = 0
	}
}

// MobilityForce returns the total generalized force currently acting on
// one mobility at st, force elements plus discrete forces.
func (s *System) MobilityForce(st *State, m MobilizerID, axis int) float64 {
	mob := &s.mobilizers[m]
	slot := mob.u0 + axis
	f := s.generalizedForces(st)
	return f[slot]
}

// generalizedForces sums every force element and discrete force into a
// slot-indexed vector.
func (s *System) generalizedForces(st *State) []float64 {
	f := make([]float64, s.nu)
	copy(f, s.discrete)
	for _, sp := range s.springs {
		mob := &s.mobilizers[sp.mob]
		slot := mob.q0 + sp.axis
		f[mob.u0+sp.axis] += -sp.stiffness * (st.Q[slot] - sp.ref)
	}
	for _, d := range s.dampers {
		mob := &s.mobilizers[d.mob]
		f[mob.u0+d.axis] += -d.damping * st.U[mob.u0+d.axis]
	}
	for _, stp := range s.stops {
		mob := &s.mobilizers[stp.mob]
		q := st.Q[mob.q0+stp.axis]
		u := st.U[mob.u0+stp.axis]
		switch {
		case q < stp.lower:
			f[mob.u0+stp.axis] += stp.stiffness*(stp.lower-q) - stp.dissipation*u
		case q > stp.upper:
			f[mob.u0+stp.axis] += stp.stiffness*(stp.upper-q) - stp.dissipation*u
		}
	}
	return f
}

// accelerations computes the generalized accelerations at st under force
// elements, discrete forces and gravity. Gravity drives the translational
// mobilities of free mobilizers, resolved into the mobilizer's inboard
// frame; welded slave mobilities are held.
func (s *System) accelerations(st *State) []float64 {
	f := s.generalizedForces(st)
	udot := make([]float64, s.nu)

	var rots []spatial.Rotation // world rotations of inboard frames, lazy
	for i := range s.mobilizers {
		m := &s.mobilizers[i]
		n := m.kind.Mobilities()
		if n == 0 {
			continue
		}
		if s.bodies[m.child].weldedTo != InvalidBody {
			continue
		}
		for a := 0; a < n; a++ {
			udot[m.u0+a] = f[m.u0+a] / m.effInertia[a]
		}
		if m.kind == KindFree && r3.Norm(s.gravity) > 0 {
			if rots == nil {
				rots = s.inboardRotations(st)
			}
			gF := rots[i].Inv().Apply(s.gravity)
			udot[m.u0+0] += gF.X
			udot[m.u0+1] += gF.Y
			udot[m.u0+2] += gF.Z
		}
	}
	return udot
}

// inboardRotations realizes the world rotation of every mobilizer's
// inboard joint frame F.
func (s *System) inboardRotations(st *State) []spatial.Rotation {
	xs := s.BodyTransforms(st)
	out := make([]spatial.Rotation, len(s.mobilizers))
	for i := range s.mobilizers {
		m := &s.mobilizers[i]
		out[i] = xs[m.parent].R.Mul(m.xIF.R)
	}
	return out
}
