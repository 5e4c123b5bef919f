package solver

import "fmt"

// Integrator advances a system state by one step.
type Integrator interface {
	Name() string
	Step(sys *System, st *State, dt float64) error
}

// NewIntegrator returns the named integrator. Recognized names are
// "semi_explicit_euler", "rk2" and "rk3".
func NewIntegrator(name string) (Integrator, error) {
	switch name {
	case "semi_explicit_euler":
		return &SemiExplicitEuler{}, nil
	case "rk2":
		return &RK2{}, nil
	case "rk3":
		return &RK3{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntegrator, name)
}

// SemiExplicitEuler is the default integrator: speeds first, then
// coordinates from the updated speeds.
type SemiExplicitEuler struct{}

func (e *SemiExplicitEuler) Name() string { return "semi_explicit_euler" }

func (e *SemiExplicitEuler) Step(sys *System, st *State, dt float64) error {
	udot := sys.accelerations(st)
	for i := range st.U {
		st.U[i] += dt * udot[i]
	}
	for i := range st.Q {
		st.Q[i] += dt * st.U[i]
	}
	st.Time += dt
	if !st.Valid() {
		return fmt.Errorf("%w at t=%.6f", ErrInvalidState, st.Time)
	}
	return nil
}

// RK2 is the explicit midpoint method.
type RK2 struct{}

func (r *RK2) Name() string { return "rk2" }

func (r *RK2) Step(sys *System, st *State, dt float64) error {
	mid := st.Clone()
	k1 := sys.accelerations(st)
	for i := range mid.U {
		mid.U[i] += dt / 2 * k1[i]
		mid.Q[i] += dt / 2 * st.U[i]
	}
	k2 := sys.accelerations(mid)
	for i := range st.U {
		st.Q[i] += dt * mid.U[i]
		st.U[i] += dt * k2[i]
	}
	st.Time += dt
	if !st.Valid() {
		return fmt.Errorf("%w at t=%.6f", ErrInvalidState, st.Time)
	}
	return nil
}

// RK3 is Kutta's third-order method.
type RK3 struct{}

func (r *RK3) Name() string { return "rk3" }

func (r *RK3) Step(sys *System, st *State, dt float64) error {
	k1 := sys.accelerations(st)

	s2 := st.Clone()
	for i := range s2.U {
		s2.Q[i] += dt / 2 * st.U[i]
		s2.U[i] += dt / 2 * k1[i]
	}
	k2 := sys.accelerations(s2)

	s3 := st.Clone()
	for i := range s3.U {
		s3.Q[i] += dt * (2*s2.U[i] - st.U[i])
		s3.U[i] += dt * (2*k2[i] - k1[i])
	}
	k3 := sys.accelerations(s3)

	for i := range st.U {
		st.Q[i] += dt / 6 * (st.U[i] + 4*s2.U[i] + s3.U[i])
		st.U[i] += dt / 6 * (k1[i] + 4*k2[i] + k3[i])
	}
	st.Time += dt
	if !st.Valid() {
		return fmt.Errorf("%w at t=%.6f", ErrInvalidState, st.Time)
	}
	return nil
}
