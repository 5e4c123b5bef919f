package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/spatial"
)

// Domain errors for system construction and stepping.
var (
	// ErrInvalidParent indicates a mobilizer referencing a body that does
	// not exist yet.
	ErrInvalidParent = errors.New("solver: invalid parent body")

	// ErrBadMass indicates non-finite or negative mass properties.
	ErrBadMass = errors.New("solver: invalid mass properties")

	// ErrNotRealized indicates a state query before RealizeTopology.
	ErrNotRealized = errors.New("solver: topology not realized")

	// ErrInvalidState indicates NaN or Inf in the state vector.
	ErrInvalidState = errors.New("solver: invalid state (NaN or Inf detected)")

	// ErrUnknownIntegrator indicates an unrecognized integrator name.
	ErrUnknownIntegrator = errors.New("solver: unknown integrator")
)

// BodyID is a stable handle into the system's body arena.
type BodyID int

// Ground is the world-fixed body every system starts with.
const Ground BodyID = 0

// InvalidBody marks an absent body handle.
const InvalidBody BodyID = -1

// MobilizerID is a stable handle into the system's mobilizer arena.
type MobilizerID int

// InvalidMobilizer marks an absent mobilizer handle.
const InvalidMobilizer MobilizerID = -1

// ForceID is a handle to a force element.
type ForceID int

// ConstraintID is a handle to a constraint.
type ConstraintID int

// MobKind selects the joint primitive of a mobilizer.
type MobKind int

const (
	KindWeld MobKind = iota
	KindPin
	KindSlider
	KindScrew
	KindUniversal
	KindBall
	KindFree
)

var mobKindNames = map[MobKind]string{
	KindWeld:      "weld",
	KindPin:       "pin",
	KindSlider:    "slider",
	KindScrew:     "screw",
	KindUniversal: "universal",
	KindBall:      "ball",
	KindFree:      "free",
}

func (k MobKind) String() string { return mobKindNames[k] }

// Mobilities returns the number of generalized coordinates the kind
// contributes.
func (k MobKind) Mobilities() int {
	switch k {
	case KindWeld:
		return 0
	case KindPin, KindSlider, KindScrew:
		return 1
	case KindUniversal:
		return 2
	case KindBall:
		return 3
	case KindFree:
		return 6
	}
	return 0
}

// Direction selects whether a mobilizer runs in the joint's declared
// parent-to-child sense or the reverse. A Reverse mobilizer inverts the
// mobility transform so the physical relative motion is unchanged.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// Inertia is a center-of-mass inertia tensor.
type Inertia struct {
	XX, YY, ZZ float64
	XY, XZ, YZ float64
}

// MassProperties carries a body's mass, center of mass and inertia.
type MassProperties struct {
	Mass    float64
	COM     r3.Vec
	Inertia Inertia
}

// MobilizerSpec describes one mobilized body to add.
type MobilizerSpec struct {
	Kind     MobKind
	Parent   BodyID
	Inboard  spatial.Transform // joint frame F on the parent body
	Outboard spatial.Transform // joint frame M on the new body
	Mass     MassProperties
	Dir      Direction

	// ScrewPitch is the translation per radian along the mobility Z axis;
	// screw mobilizers only.
	ScrewPitch float64

	// DefaultX is the initial F-to-M transform for free and ball
	// mobilizers.
	DefaultX spatial.Transform
}

type body struct {
	mass      MassProperties
	mobilizer MobilizerID
	weldedTo  BodyID
	surfaces  []AttachedSurface
}

type mobilizer struct {
	kind       MobKind
	parent     BodyID
	child      BodyID
	xIF        spatial.Transform
	xOM        spatial.Transform
	dir        Direction
	screwPitch float64
	defaultX   spatial.Transform

	q0, u0     int // slots, assigned at realize
	effInertia []float64
}

// Weld rigidly couples a slave body to its master.
type Weld struct {
	Master BodyID
	Slave  BodyID
}

// System owns the body and mobilizer arenas plus all force elements and
// constraints of one topology build.
type System struct {
	bodies     []body
	mobilizers []mobilizer
	stops      []stopForce
	dampers    []damperForce
	springs    []springForce
	welds      []Weld

	gravity r3.Vec

	cliqueCounter CliqueID

	realized bool
	nq, nu   int
	discrete []float64 // applied mobility forces, slot-indexed
}

// NewSystem returns a system containing only the ground body.
func NewSystem() *System {
	return &System{
		bodies: []body{{
			mass:      MassProperties{Mass: math.Inf(1)},
			mobilizer: InvalidMobilizer,
			weldedTo:  InvalidBody,
		}},
	}
}

// SetGravity sets the gravity vector used for free-mobility acceleration.
// A zero-length vector disables gravity rather than producing a NaN
// direction.
func (s *System) SetGravity(g r3.Vec) {
	if r3.Norm(g) == 0 {
		s.gravity = r3.Vec{}
		return
	}
	s.gravity = g
}

// Gravity returns the current gravity vector.
func (s *System) Gravity() r3.Vec { return s.gravity }

// NumBodies returns the body count including ground.
func (s *System) NumBodies() int { return len(s.bodies) }

// NumMobilizers returns the mobilizer count.
func (s *System) NumMobilizers() int { return len(s.mobilizers) }

// AddMobilized creates a new body connected to spec.Parent by a mobilizer
// of spec.Kind and returns both handles. Parents must be added before
// children; the arena is therefore always in topological order.
func (s *System) AddMobilized(spec MobilizerSpec) (MobilizerID, BodyID, error) {
	if spec.Parent < 0 || int(spec.Parent) >= len(s.bodies) {
		return InvalidMobilizer, InvalidBody,
			fmt.Errorf("%w: %d", ErrInvalidParent, spec.Parent)
	}
	if spec.Mass.Mass < 0 || math.IsNaN(spec.Mass.Mass) {
		return InvalidMobilizer, InvalidBody,
			fmt.Errorf("%w: mass %v", ErrBadMass, spec.Mass.Mass)
	}
	bid := BodyID(len(s.bodies))
	mid := MobilizerID(len(s.mobilizers))
	s.bodies = append(s.bodies, body{
		mass:      spec.Mass,
		mobilizer: mid,
		weldedTo:  InvalidBody,
	})
	s.mobilizers = append(s.mobilizers, mobilizer{
		kind:       spec.Kind,
		parent:     spec.Parent,
		child:      bid,
		xIF:        spec.Inboard,
		xOM:        spec.Outboard,
		dir:        spec.Dir,
		screwPitch: spec.ScrewPitch,
		defaultX:   spec.DefaultX,
		q0:         -1,
		u0:         -1,
		effInertia: effectiveInertia(spec.Kind, spec.Mass),
	})
	return mid, bid, nil
}

// effectiveInertia assigns one scalar inertia per mobility: the mass for
// translational mobilities, the mean diagonal moment for rotational ones,
// clamped away from zero so massless placeholder bodies stay integrable.
func effectiveInertia(kind MobKind, mp MassProperties) []float64 {
	const floor = 1e-9
	mass := math.Max(mp.Mass, floor)
	rot := math.Max((mp.Inertia.XX+mp.Inertia.YY+mp.Inertia.ZZ)/3, floor)
	switch kind {
	case KindPin, KindScrew:
		return []float64{rot}
	case KindSlider:
		return []float64{mass}
	case KindUniversal:
		return []float64{rot, rot}
	case KindBall:
		return []float64{rot, rot, rot}
	case KindFree:
		return []float64{mass, mass, mass, rot, rot, rot}
	}
	return nil
}

// AddWeld rigidly couples slave to master. Body transform realization
// replaces the slave's pose with the master's.
func (s *System) AddWeld(master, slave BodyID) ConstraintID {
	s.bodies[slave].weldedTo = master
	id := ConstraintID(len(s.welds))
	s.welds = append(s.welds, Weld{Master: master, Slave: slave})
	return id
}

// Welds returns the weld constraints.
func (s *System) Welds() []Weld { return s.welds }

// MobilizerKind returns the joint primitive of a mobilizer.
func (s *System) MobilizerKind(m MobilizerID) MobKind {
	return s.mobilizers[m].kind
}

// MobilizerBody returns the body mobilized by m.
func (s *System) MobilizerBody(m MobilizerID) BodyID {
	return s.mobilizers[m].child
}

// BodyMobilizer returns the inbound mobilizer of a body, or
// InvalidMobilizer for ground.
func (s *System) BodyMobilizer(b BodyID) MobilizerID {
	return s.bodies[b].mobilizer
}
