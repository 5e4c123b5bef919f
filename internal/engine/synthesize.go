package engine

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/graph"
	"github.com/san-kum/mbody/internal/scene"
	"github.com/san-kum/mbody/internal/solver"
	"github.com/san-kum/mbody/internal/spatial"
)

// fallbackScrewPitch replaces a zero thread pitch, which would make the
// solver's pitch parameter infinite.
const fallbackScrewPitch = 1.0e6

// synthesize maps one model's generated graph onto solver mobilized
// bodies. Mobilizers come out of the maker inboard-first, so every parent
// body handle exists before its children are added.
func (e *Engine) synthesize(g *graph.Maker, m *modelRec) error {
	bodyID := make([]solver.BodyID, g.NumBodies())
	for i := range bodyID {
		bodyID[i] = solver.InvalidBody
	}
	bodyID[graph.World] = solver.Ground

	for _, mob := range g.Mobilizers() {
		masterIdx := g.MasterOf(mob.Outboard)
		link := m.linkByName[g.GetBody(masterIdx).Name]
		if link == nil {
			return fmt.Errorf("%w: %q", ErrUnknownLink, g.GetBody(masterIdx).Name)
		}
		parent := bodyID[mob.Inboard]
		if parent == solver.InvalidBody {
			return fmt.Errorf("%w: inboard body %q not yet mobilized",
				ErrConfig, g.GetBody(mob.Inboard).Name)
		}

		// A split link's mass is shared equally among its fragments so the
		// composite carries the declared total.
		spec := solver.MobilizerSpec{
			Parent: parent,
			Mass:   massProperties(link.def, g.NumFragments(masterIdx)),
		}
		if mob.Reversed {
			spec.Dir = solver.Reverse
		}

		var jr *jointRec
		if mob.AddedBase {
			spec.Kind = solver.KindFree
			spec.Inboard = spatial.TransformIdentity()
			spec.Outboard = spatial.TransformIdentity()
			spec.DefaultX = e.linkWorld(m, link.def)
		} else {
			jr = m.jointByName[g.GetJoint(mob.JointNum).Name]
			if jr == nil {
				return fmt.Errorf("%w: %q", ErrUnknownJoint,
					g.GetJoint(mob.JointNum).Name)
			}
			if err := e.fillJointSpec(&spec, m, jr.def, mob.Reversed); err != nil {
				return err
			}
		}

		mid, bid, err := e.sys.AddMobilized(spec)
		if err != nil {
			return err
		}
		bodyID[mob.Outboard] = bid
		if mob.Slave {
			link.slaves = append(link.slaves, bid)
		} else {
			link.master = bid
		}
		if mob.AddedBase {
			link.baseMob = mid
		} else {
			jr.mob = mid
			jr.reversed = mob.Reversed
			e.addJointForces(jr)
		}
	}

	// Geometry goes on the master fragment only; slaves are welded to it
	// and would double every contact.
	for _, l := range m.links {
		if l.master != solver.InvalidBody {
			e.addCollisions(m, l, l.master)
		}
	}
	return nil
}

// fillJointSpec translates one joint descriptor into mobilizer kind,
// frames and parameters. The mobility axis convention is the solver's:
// pin and screw move about Z, a slider along X, a universal about X then
// Y, so the joint frames are rotated to carry the declared axes onto
// those directions.
func (e *Engine) fillJointSpec(spec *solver.MobilizerSpec, m *modelRec,
	def *scene.Joint, reversed bool) error {

	xPA := def.ParentOffset.Transform()
	xCB := def.ChildOffset.Transform()
	xIF0, xOM0 := xPA, xCB
	if reversed {
		xIF0, xOM0 = xCB, xPA
	}

	switch def.Type {
	case scene.Revolute:
		spec.Kind = solver.KindPin
		e.alignFrames(spec, xIF0, xOM0,
			spatial.AxisAlign(e.jointAxisDir(def, 0, xCB), spatial.AxisZ))

	case scene.Screw:
		spec.Kind = solver.KindScrew
		pitch := def.ThreadPitch
		if pitch == 0 {
			e.log.Warn("thread pitch is zero, substituting large pitch",
				"joint", def.Name, "pitch", fallbackScrewPitch)
			pitch = fallbackScrewPitch
		}
		// The descriptor counts length per turn with opposite handedness
		// from the solver's length per radian.
		spec.ScrewPitch = -1.0 / pitch
		e.alignFrames(spec, xIF0, xOM0,
			spatial.AxisAlign(e.jointAxisDir(def, 0, xCB), spatial.AxisZ))

	case scene.Prismatic:
		spec.Kind = solver.KindSlider
		e.alignFrames(spec, xIF0, xOM0,
			spatial.AxisAlign(e.jointAxisDir(def, 0, xCB), spatial.AxisX))

	case scene.Universal, scene.Revolute2:
		spec.Kind = solver.KindUniversal
		a1 := e.jointAxisDir(def, 0, xCB)
		a2 := e.jointAxisDir(def, 1, xCB)
		if r3.Norm(r3.Cross(a1, a2)) < 1e-12 {
			e.log.Warn("joint axes are parallel, using orthogonal complement",
				"joint", def.Name)
		}
		e.alignFrames(spec, xIF0, xOM0, spatial.TwoAxisAlign(a1, a2))

	case scene.Ball:
		spec.Kind = solver.KindBall
		spec.Inboard = xIF0
		spec.Outboard = xOM0
		spec.DefaultX = e.defaultFM(m, def, xPA, xCB, reversed)

	case scene.Free:
		spec.Kind = solver.KindFree
		spec.Inboard = xIF0
		spec.Outboard = xOM0
		spec.DefaultX = e.defaultFM(m, def, xPA, xCB, reversed)

	case scene.Weld:
		spec.Kind = solver.KindWeld
		spec.Inboard = xIF0
		spec.Outboard = xOM0

	default:
		// Keep the body in the system so the rest of the model is usable.
		e.log.Error("joint type not implemented, mobilizing as free",
			"joint", def.Name, "type", string(def.Type))
		spec.Kind = solver.KindFree
		spec.Inboard = xIF0
		spec.Outboard = xOM0
		spec.DefaultX = e.defaultFM(m, def, xPA, xCB, reversed)
	}
	return nil
}

// alignFrames applies the axis-carrying rotation to both joint frames so
// the mobility moves along the declared direction.
func (e *Engine) alignFrames(spec *solver.MobilizerSpec,
	xIF0, xOM0 spatial.Transform, rot spatial.Rotation) {
	aligner := spatial.Transform{R: rot}
	spec.Inboard = xIF0.Mul(aligner)
	spec.Outboard = xOM0.Mul(aligner)
}

// jointAxisDir returns axis i of the joint expressed in the joint frame.
// A missing or degenerate axis falls back to unit Z with a warning.
func (e *Engine) jointAxisDir(def *scene.Joint, i int, xCB spatial.Transform) r3.Vec {
	if i >= len(def.Axes) {
		e.log.Warn("joint axis not specified, using unit z",
			"joint", def.Name, "axis", i)
		return r3.Vec{Z: 1}
	}
	a := def.Axes[i]
	frame := spatial.RotFromQuat(a.Frame.W, a.Frame.X, a.Frame.Y, a.Frame.Z)
	v := frame.Apply(a.Xyz) // into the child link frame
	if r3.Norm(v) < 1e-12 {
		e.log.Warn("joint axis is zero length, using unit z",
			"joint", def.Name, "axis", i)
		return r3.Vec{Z: 1}
	}
	// ChildOffset maps joint-frame coordinates into the child frame, so
	// the inverse rotation carries the axis back into the joint frame.
	return r3.Unit(xCB.R.Inv().Apply(v))
}

// defaultFM computes the initial F-to-M transform of a free or ball
// mobilizer from the load poses of the two links.
func (e *Engine) defaultFM(m *modelRec, def *scene.Joint,
	xPA, xCB spatial.Transform, reversed bool) spatial.Transform {

	parentW := spatial.TransformIdentity()
	if def.Parent != "" {
		if pl := m.linkByName[def.Parent]; pl != nil {
			parentW = e.linkWorld(m, pl.def)
		}
	}
	childW := spatial.TransformIdentity()
	if cl := m.linkByName[def.Child]; cl != nil {
		childW = e.linkWorld(m, cl.def)
	}
	// X_FM = X_PA^-1 * (X_WP^-1 * X_WC) * X_CB
	x := xPA.Inv().Mul(parentW.Inv().Mul(childW)).Mul(xCB)
	if reversed {
		x = x.Inv()
	}
	return x
}

// linkWorld returns a link's world transform at load.
func (e *Engine) linkWorld(m *modelRec, l *scene.Link) spatial.Transform {
	return m.def.Pose.Transform().Mul(l.Pose.Transform())
}

// addJointForces attaches stop, damper and spring elements to every
// mobility of a joint. The elements always exist so their parameters can
// be changed while the simulation runs.
func (e *Engine) addJointForces(jr *jointRec) {
	n := e.sys.MobilizerKind(jr.mob).Mobilities()
	jr.forceCache = make([]float64, n)
	for axis := 0; axis < n; axis++ {
		var a scene.Axis
		if axis < len(jr.def.Axes) {
			a = jr.def.Axes[axis]
		}
		jr.limit = append(jr.limit, e.sys.AddMobilityLinearStop(jr.mob, axis,
			a.Limit.Stiffness, a.Limit.Dissipation, a.Limit.Lower, a.Limit.Upper))
		jr.damper = append(jr.damper, e.sys.AddMobilityLinearDamper(jr.mob, axis,
			a.Damping))
		jr.spring = append(jr.spring, e.sys.AddMobilityLinearSpring(jr.mob, axis,
			a.Stiffness, a.SpringRef))
	}
}

// massProperties builds solver mass properties for one fragment of a
// link split into fragments pieces.
func massProperties(l *scene.Link, fragments int) solver.MassProperties {
	if fragments < 1 {
		fragments = 1
	}
	f := 1.0 / float64(fragments)
	return solver.MassProperties{
		Mass: l.Mass * f,
		Inertia: solver.Inertia{
			XX: l.Inertia.IXX * f, YY: l.Inertia.IYY * f, ZZ: l.Inertia.IZZ * f,
			XY: l.Inertia.IXY * f, XZ: l.Inertia.IXZ * f, YZ: l.Inertia.IYZ * f,
		},
	}
}

// addCollisions attaches a link's collision geometry to a solver body.
// Shapes the backend cannot represent are skipped with a diagnostic, not
// an error. Links of a model that does not self-collide share a contact
// clique.
func (e *Engine) addCollisions(m *modelRec, l *linkRec, b solver.BodyID) {
	for _, c := range l.def.Collisions {
		placement := c.Pose.Transform()
		var geom solver.ContactGeometry
		switch c.Type {
		case scene.PlaneShape:
			// The half space occupies x <= 0, so the frame's -X axis is
			// carried onto the declared outward normal.
			n := c.Normal
			if r3.Norm(n) < 1e-12 {
				n = r3.Vec{Z: 1}
			}
			placement = placement.Mul(spatial.Transform{
				R: spatial.AxisAlign(r3.Scale(-1, n), spatial.AxisX),
			})
			geom = solver.HalfSpace()
		case scene.SphereShape:
			geom = solver.Sphere(c.Radius)
		case scene.CylinderShape:
			geom = solver.CylinderMesh(c.Radius, c.Length/2, 1)
		case scene.BoxShape:
			geom = solver.BrickMesh(r3.Scale(0.5, c.Size), 6)
		default:
			e.log.Warn("collision shape not supported, ignored",
				"link", l.def.Name, "collision", c.Name, "type", string(c.Type))
			continue
		}
		surf := solver.NewContactSurface(geom, e.contact)
		if !l.def.SelfCollide {
			if m.clique == 0 {
				m.clique = e.sys.NewContactClique()
			}
			surf.JoinClique(m.clique)
		}
		e.sys.AddContactSurface(b, placement, surf)
	}
}
