package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/scene"
	"github.com/san-kum/mbody/internal/solver"
	"github.com/san-kum/mbody/internal/spatial"
)

func pose(v r3.Vec) spatial.Pose { return spatial.Pose{Pos: v} }

func testWorld() *scene.World {
	w := scene.DefaultWorld()
	w.Gravity = r3.Vec{}
	return w
}

func newTestEngine(t *testing.T, w *scene.World) *Engine {
	t.Helper()
	e, err := New(w, nil)
	require.NoError(t, err)
	return e
}

func unitInertia() scene.Inertia {
	return scene.Inertia{IXX: 1, IYY: 1, IZZ: 1}
}

// pendulumModel is a single link on a revolute joint with a spring so the
// coordinate moves without gravity.
func pendulumModel(name string) *scene.Model {
	return &scene.Model{
		Name: name,
		Links: []*scene.Link{{
			Name: "arm", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 1}),
		}},
		Joints: []*scene.Joint{{
			Name: "pivot", Type: scene.Revolute, Child: "arm",
			ParentOffset: pose(r3.Vec{Z: 1.5}),
			ChildOffset:  pose(r3.Vec{Z: 0.5}),
			Axes: []scene.Axis{{
				Xyz: r3.Vec{Y: 1}, Stiffness: 4, Damping: 0.1,
			}},
		}},
	}
}

func fourbarModel() *scene.Model {
	pin := func(name, parent, child string, po, co r3.Vec) *scene.Joint {
		return &scene.Joint{
			Name: name, Type: scene.Revolute, Parent: parent, Child: child,
			ParentOffset: pose(po), ChildOffset: pose(co),
			Axes: []scene.Axis{{Xyz: r3.Vec{Y: 1}}},
		}
	}
	link := func(name string, pos r3.Vec) *scene.Link {
		return &scene.Link{Name: name, Mass: 1, Inertia: unitInertia(),
			Pose: pose(pos)}
	}
	return &scene.Model{
		Name: "linkage",
		Links: []*scene.Link{
			link("crank", r3.Vec{Z: 0.5}),
			link("coupler", r3.Vec{X: 0.5, Z: 1}),
			link("rocker", r3.Vec{X: 1, Z: 0.5}),
		},
		Joints: []*scene.Joint{
			pin("crank_pivot", "", "crank", r3.Vec{}, r3.Vec{Z: -0.5}),
			pin("crank_coupler", "crank", "coupler", r3.Vec{Z: 0.5}, r3.Vec{X: -0.5}),
			pin("coupler_rocker", "coupler", "rocker", r3.Vec{X: 0.5}, r3.Vec{Z: 0.5}),
			pin("rocker_pivot", "", "rocker", r3.Vec{X: 1}, r3.Vec{Z: -0.5}),
		},
	}
}

func TestAddModelAndStep(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.True(t, e.Initialized())
	assert.Equal(t, []string{"p"}, e.Models())

	require.NoError(t, e.SetJointPosition("p", "pivot", 0, 0.3))
	for i := 0; i < 100; i++ {
		require.NoError(t, e.Step())
	}
	assert.InDelta(t, 0.1, e.SimTime(), 1e-9)

	q, err := e.JointPosition("p", "pivot", 0)
	require.NoError(t, err)
	assert.Less(t, q, 0.3, "spring should pull the joint toward zero")
	u, err := e.JointVelocity("p", "pivot", 0)
	require.NoError(t, err)
	assert.NotZero(t, u)
}

func TestAddModelDuplicate(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	assert.ErrorIs(t, e.AddModel(pendulumModel("p")), ErrModelExists)
}

func TestAddModelBadJointIsBuildError(t *testing.T) {
	e := newTestEngine(t, testWorld())
	bad := pendulumModel("broken")
	bad.Joints[0].Child = "missing"

	err := e.AddModel(bad)
	require.Error(t, err)
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "broken", be.Model)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Empty(t, e.Models(), "failed model should not stay loaded")
}

func TestRemoveModel(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("a")))
	require.NoError(t, e.AddModel(pendulumModel("b")))
	require.NoError(t, e.RemoveModel("a"))
	assert.Equal(t, []string{"b"}, e.Models())
	assert.ErrorIs(t, e.RemoveModel("a"), ErrUnknownModel)

	// The survivor still steps after the rebuild.
	require.NoError(t, e.SetJointPosition("b", "pivot", 0, 0.2))
	require.NoError(t, e.Step())
}

func TestStateSurvivesRebuild(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.NoError(t, e.SetJointPosition("p", "pivot", 0, 0.4))
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Step())
	}
	q0, _ := e.JointPosition("p", "pivot", 0)
	u0, _ := e.JointVelocity("p", "pivot", 0)
	t0 := e.SimTime()

	// Loading an unrelated model rebuilds the whole topology.
	require.NoError(t, e.AddModel(pendulumModel("other")))

	q1, err := e.JointPosition("p", "pivot", 0)
	require.NoError(t, err)
	u1, _ := e.JointVelocity("p", "pivot", 0)
	assert.Equal(t, q0, q1, "joint position should transfer exactly")
	assert.Equal(t, u0, u1, "joint velocity should transfer exactly")
	assert.Equal(t, t0, e.SimTime(), "sim time should survive the rebuild")

	// The new model starts from defaults.
	qn, err := e.JointPosition("other", "pivot", 0)
	require.NoError(t, err)
	assert.Zero(t, qn)
}

func TestLoopModelWeldsSlaves(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(fourbarModel()))

	m := e.model("linkage")
	rocker := m.linkByName["rocker"]
	require.Len(t, rocker.slaves, 1, "the loop should split the rocker")
	require.Len(t, rocker.welds, 1)

	for _, name := range []string{"crank", "coupler"} {
		assert.Empty(t, m.linkByName[name].slaves)
	}

	// Every joint keeps a mobilizer; the loop is never closed by dropping
	// a joint.
	for _, j := range m.joints {
		assert.NotEqual(t, solver.InvalidMobilizer, j.mob, j.def.Name)
	}

	require.NoError(t, e.SetJointPosition("linkage", "crank_pivot", 0, 0.2))
	require.NoError(t, e.Step())

	xs := e.sys.BodyTransforms(e.state)
	mp := xs[rocker.master].P
	sp := xs[rocker.slaves[0]].P
	assert.InDelta(t, mp.X, sp.X, 1e-12)
	assert.InDelta(t, mp.Y, sp.Y, 1e-12)
	assert.InDelta(t, mp.Z, sp.Z, 1e-12)
}

func TestReversedJointMatchesForward(t *testing.T) {
	link := func(name string, z float64) *scene.Link {
		return &scene.Link{Name: name, Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: z})}
	}
	axis := scene.Axis{Xyz: r3.Vec{Y: 1}, Stiffness: 5, Damping: 0.1}

	forward := &scene.Model{
		Name:  "m",
		Links: []*scene.Link{link("base", 1), link("tip", 2)},
		Joints: []*scene.Joint{
			{
				Name: "root", Type: scene.Revolute, Child: "base",
				ParentOffset: pose(r3.Vec{Z: 1}),
				Axes:         []scene.Axis{{Xyz: r3.Vec{Y: 1}}},
			},
			{
				Name: "mid", Type: scene.Revolute, Parent: "base", Child: "tip",
				ParentOffset: pose(r3.Vec{Z: 0.5}),
				ChildOffset:  pose(r3.Vec{Z: -0.5}),
				Axes:         []scene.Axis{axis},
			},
		},
	}
	// Same mechanism with the middle joint declared the other way round;
	// declared first so the tree builder has to reverse it.
	reversed := &scene.Model{
		Name:  "m",
		Links: []*scene.Link{link("base", 1), link("tip", 2)},
		Joints: []*scene.Joint{
			{
				Name: "mid", Type: scene.Revolute, Parent: "tip", Child: "base",
				ParentOffset: pose(r3.Vec{Z: -0.5}),
				ChildOffset:  pose(r3.Vec{Z: 0.5}),
				Axes:         []scene.Axis{axis},
			},
			{
				Name: "root", Type: scene.Revolute, Child: "base",
				ParentOffset: pose(r3.Vec{Z: 1}),
				Axes:         []scene.Axis{{Xyz: r3.Vec{Y: 1}}},
			},
		},
	}

	ef := newTestEngine(t, testWorld())
	require.NoError(t, ef.AddModel(forward))
	er := newTestEngine(t, testWorld())
	require.NoError(t, er.AddModel(reversed))

	jr := er.model("m").jointByName["mid"]
	require.True(t, jr.reversed, "declaration order should force a reversed edge")

	require.NoError(t, ef.SetJointPosition("m", "mid", 0, 0.3))
	require.NoError(t, er.SetJointPosition("m", "mid", 0, -0.3))

	for i := 0; i < 200; i++ {
		require.NoError(t, ef.Step())
		require.NoError(t, er.Step())

		pf, err := ef.LinkPoseNow("m", "tip")
		require.NoError(t, err)
		pr, err := er.LinkPoseNow("m", "tip")
		require.NoError(t, err)
		assert.InDelta(t, pf.Pos.X, pr.Pos.X, 1e-9)
		assert.InDelta(t, pf.Pos.Y, pr.Pos.Y, 1e-9)
		assert.InDelta(t, pf.Pos.Z, pr.Pos.Z, 1e-9)

		qf, _ := ef.JointPosition("m", "mid", 0)
		qr, _ := er.JointPosition("m", "mid", 0)
		assert.InDelta(t, qf, -qr, 1e-9)
	}
}

func TestScrewZeroPitchStaysFinite(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "screwed",
		Links: []*scene.Link{{Name: "nut", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 1})}},
		Joints: []*scene.Joint{{
			Name: "drive", Type: scene.Screw, Child: "nut",
			ThreadPitch: 0,
			Axes:        []scene.Axis{{Xyz: r3.Vec{Z: 1}}},
		}},
	}
	require.NoError(t, e.AddModel(m))

	require.NoError(t, e.ApplyJointForce("screwed", "drive", 0, 1.0))
	require.NoError(t, e.Step())
	q, err := e.JointPosition("screwed", "drive", 0)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(q) || math.IsInf(q, 0))

	pose, err := e.LinkPoseNow("screwed", "nut")
	require.NoError(t, err)
	assert.False(t, math.IsNaN(pose.Pos.Z))
}

func TestSelfCollisionClique(t *testing.T) {
	sphereLink := func(name string, selfCollide bool) *scene.Link {
		return &scene.Link{
			Name: name, Mass: 1, Inertia: unitInertia(),
			SelfCollide: selfCollide,
			Collisions: []*scene.Collision{{
				Name: name + "_col", Type: scene.SphereShape, Radius: 0.1,
			}},
		}
	}

	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name:  "pair",
		Links: []*scene.Link{sphereLink("a", false), sphereLink("b", false)},
	}
	require.NoError(t, e.AddModel(m))

	rec := e.model("pair")
	sa := e.sys.SurfacesOn(rec.linkByName["a"].master)
	sb := e.sys.SurfacesOn(rec.linkByName["b"].master)
	require.Len(t, sa, 1)
	require.Len(t, sb, 1)
	assert.False(t, solver.AllowContact(&sa[0].Surface, &sb[0].Surface),
		"links of the same model should not self collide by default")

	e2 := newTestEngine(t, testWorld())
	m2 := &scene.Model{
		Name:  "pair",
		Links: []*scene.Link{sphereLink("a", true), sphereLink("b", true)},
	}
	require.NoError(t, e2.AddModel(m2))
	rec2 := e2.model("pair")
	sa2 := e2.sys.SurfacesOn(rec2.linkByName["a"].master)
	sb2 := e2.sys.SurfacesOn(rec2.linkByName["b"].master)
	assert.True(t, solver.AllowContact(&sa2[0].Surface, &sb2[0].Surface),
		"self-colliding links should keep their contacts")
}

func TestStaticModelAttachesToGround(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name:   "floor",
		Static: true,
		Links: []*scene.Link{{
			Name: "ground",
			Collisions: []*scene.Collision{{
				Name: "plane", Type: scene.PlaneShape, Normal: r3.Vec{Z: 1},
			}},
		}},
	}
	require.NoError(t, e.AddModel(m))
	surfaces := e.sys.SurfacesOn(solver.Ground)
	require.Len(t, surfaces, 1)
	assert.Equal(t, solver.HalfSpaceGeometry, surfaces[0].Surface.Geometry.Kind)
}

func TestFreeFloatingLinkGetsBaseJoint(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "box",
		Pose: pose(r3.Vec{X: 2}),
		Links: []*scene.Link{{
			Name: "body", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 3}),
		}},
	}
	require.NoError(t, e.AddModel(m))

	l := e.model("box").linkByName["body"]
	require.NotEqual(t, solver.InvalidMobilizer, l.baseMob)

	pose, err := e.LinkPoseNow("box", "body")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pose.Pos.X, 1e-12)
	assert.InDelta(t, 3.0, pose.Pos.Z, 1e-12)

	// No gravity: the free body must hold its pose.
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Step())
	}
	after, _ := e.LinkPoseNow("box", "body")
	assert.InDelta(t, pose.Pos.Z, after.Pos.Z, 1e-12)
}

func TestStepFailureKeepsCommittedState(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.NoError(t, e.Step())
	committed := e.SimTime()

	require.NoError(t, e.ApplyJointForce("p", "pivot", 0, math.Inf(1)))
	err := e.Step()
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.Equal(t, committed, e.SimTime(), "failed step should not advance time")

	q, errQ := e.JointPosition("p", "pivot", 0)
	require.NoError(t, errQ)
	assert.False(t, math.IsNaN(q) || math.IsInf(q, 0))

	// The poisoned force was discarded; stepping resumes.
	require.NoError(t, e.Step())
	assert.Greater(t, e.SimTime(), committed)
}

func TestStepBeforeAddModel(t *testing.T) {
	e := newTestEngine(t, testWorld())
	assert.ErrorIs(t, e.Step(), ErrNotInitialized)
}

func TestDirtyPoseQueue(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.NoError(t, e.Step())
	require.NoError(t, e.Step())

	poses := e.DrainDirtyPoses()
	require.Len(t, poses, 2, "one entry per link per step")
	assert.Equal(t, "p", poses[0].Model)
	assert.Equal(t, "arm", poses[0].Link)
	assert.Less(t, poses[0].Time, poses[1].Time)

	assert.Empty(t, e.DrainDirtyPoses(), "drain should empty the queue")
}

func TestReset(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.NoError(t, e.SetJointPosition("p", "pivot", 0, 0.5))
	for i := 0; i < 20; i++ {
		require.NoError(t, e.Step())
	}
	require.NoError(t, e.Reset())
	assert.Zero(t, e.SimTime())
	q, err := e.JointPosition("p", "pivot", 0)
	require.NoError(t, err)
	assert.Zero(t, q)
}

func TestParams(t *testing.T) {
	w := testWorld()
	w.Integrator = "rk2"
	e := newTestEngine(t, w)

	info := e.Info()
	assert.Equal(t, EngineType, info.Type)
	assert.Equal(t, "rk2", info.Integrator)
	assert.Equal(t, scene.DefaultStepSize, info.StepSize)
	assert.True(t, info.Enabled)

	v, err := e.Param("max_step_size")
	require.NoError(t, err)
	assert.Equal(t, scene.DefaultStepSize, v)

	require.NoError(t, e.SetParam("max_step_size", 0.01))
	v, _ = e.Param("max_step_size")
	assert.Equal(t, 0.01, v)

	assert.Error(t, e.SetParam("max_step_size", -1.0))
	assert.Error(t, e.SetParam("max_step_size", "bogus"))

	_, err = e.Param("warp_factor")
	assert.ErrorIs(t, err, ErrUnsupportedParam)
	assert.ErrorIs(t, e.SetParam("warp_factor", 9.0), ErrUnsupportedParam)
}

func TestUnknownIntegratorFallsBack(t *testing.T) {
	w := testWorld()
	w.Integrator = "rk9"
	e := newTestEngine(t, w)
	assert.Equal(t, "semi_explicit_euler", e.Info().Integrator)
}

func TestDisabledEngineSkipsSteps(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	e.Enable(false)
	require.NoError(t, e.Step())
	assert.Zero(t, e.SimTime())
	e.Enable(true)
	require.NoError(t, e.Step())
	assert.Greater(t, e.SimTime(), 0.0)
}

func TestJointAnchorNotImplemented(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	_, err := e.JointAnchor("p", "pivot")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestUniversalJointHasTwoAxes(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "u",
		Links: []*scene.Link{{Name: "body", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 1})}},
		Joints: []*scene.Joint{{
			Name: "uni", Type: scene.Universal, Child: "body",
			Axes: []scene.Axis{
				{Xyz: r3.Vec{X: 1}},
				{Xyz: r3.Vec{Y: 1}},
			},
		}},
	}
	require.NoError(t, e.AddModel(m))
	for axis := 0; axis < 2; axis++ {
		_, err := e.JointPosition("u", "uni", axis)
		assert.NoError(t, err)
	}
	_, err := e.JointPosition("u", "uni", 2)
	assert.Error(t, err)
}

func TestParallelUniversalAxesStayFinite(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "u",
		Links: []*scene.Link{{Name: "body", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 1})}},
		Joints: []*scene.Joint{{
			Name: "uni", Type: scene.Universal, Child: "body",
			ParentOffset: pose(r3.Vec{Z: 1}),
			Axes: []scene.Axis{
				{Xyz: r3.Vec{X: 1}},
				{Xyz: r3.Vec{X: 1}},
			},
		}},
	}
	require.NoError(t, e.AddModel(m))
	require.NoError(t, e.Step())

	p, err := e.LinkPoseNow("u", "body")
	require.NoError(t, err)
	for _, c := range []float64{p.Pos.X, p.Pos.Y, p.Pos.Z} {
		require.False(t, math.IsNaN(c), "link pose has NaN: %+v", p.Pos)
	}
	// No gravity and no forces: the body holds its declared pose.
	assert.InDelta(t, 1.0, p.Pos.Z, 1e-9)
}

func TestRevolutePrismaticSynthesis(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "cart",
		Links: []*scene.Link{
			{Name: "arm", Mass: 1, Inertia: unitInertia(), Pose: pose(r3.Vec{Z: 1})},
			{Name: "slide", Mass: 1, Inertia: unitInertia(), Pose: pose(r3.Vec{Z: 2})},
		},
		Joints: []*scene.Joint{
			{
				Name: "pivot", Type: scene.Revolute, Child: "arm",
				Axes: []scene.Axis{{
					Xyz:   r3.Vec{Z: 1},
					Limit: scene.Limits{Lower: -1, Upper: 1, Stiffness: 100},
				}},
			},
			{
				Name: "rail", Type: scene.Prismatic, Parent: "arm", Child: "slide",
				Axes: []scene.Axis{{Xyz: r3.Vec{X: 1}}},
			},
		},
	}
	require.NoError(t, e.AddModel(m))

	rec := e.model("cart")
	pivot := rec.jointByName["pivot"]
	rail := rec.jointByName["rail"]
	assert.Equal(t, solver.KindPin, e.sys.MobilizerKind(pivot.mob))
	assert.Equal(t, solver.KindSlider, e.sys.MobilizerKind(rail.mob))
	require.Len(t, pivot.limit, 1)
	require.Len(t, rail.limit, 1)

	// Inside the declared range the limit element is passive.
	require.NoError(t, e.SetJointPosition("cart", "pivot", 0, 0.5))
	assert.Zero(t, e.sys.MobilityForce(e.state, pivot.mob, 0))

	// Past the upper bound it pushes back with the declared stiffness.
	require.NoError(t, e.SetJointPosition("cart", "pivot", 0, 1.5))
	assert.InDelta(t, 100*(1.0-1.5), e.sys.MobilityForce(e.state, pivot.mob, 0), 1e-12)
	require.NoError(t, e.SetJointPosition("cart", "pivot", 0, -1.5))
	assert.InDelta(t, 100*(-1.0+1.5), e.sys.MobilityForce(e.state, pivot.mob, 0), 1e-12)
}

func TestResetClearsAppliedForces(t *testing.T) {
	e := newTestEngine(t, testWorld())
	m := &scene.Model{
		Name: "p",
		Links: []*scene.Link{{Name: "arm", Mass: 1, Inertia: unitInertia(),
			Pose: pose(r3.Vec{Z: 1})}},
		Joints: []*scene.Joint{{
			Name: "pivot", Type: scene.Revolute, Child: "arm",
			Axes: []scene.Axis{{Xyz: r3.Vec{Y: 1}}},
		}},
	}
	require.NoError(t, e.AddModel(m))
	require.NoError(t, e.ApplyJointForce("p", "pivot", 0, 10))
	require.NoError(t, e.Reset())
	require.NoError(t, e.Step())

	u, err := e.JointVelocity("p", "pivot", 0)
	require.NoError(t, err)
	assert.Zero(t, u, "forces applied before a reset must not act after it")
}

func TestRecorderSamplesJoints(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))
	require.NoError(t, e.SetJointPosition("p", "pivot", 0, 0.2))

	rec := NewRecorder(e, "test")
	rec.Sample()
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Step())
		rec.Sample()
	}
	series := rec.Series("pivot", 0)
	require.Len(t, series, 11)
	assert.Equal(t, 0.2, series[0])
	assert.Len(t, rec.Times(), 11)
	assert.Less(t, rec.Times()[0], rec.Times()[10])
}

func TestRecorderSurvivesModelRemoval(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("a")))
	require.NoError(t, e.AddModel(pendulumModel("b")))

	rec := NewRecorder(e, "test")
	rec.Sample()
	require.NoError(t, e.RemoveModel("a"))
	require.NotPanics(t, func() { rec.Sample() })

	require.Len(t, rec.Times(), 2)
	for i := range rec.traj.Joints {
		s := &rec.traj.Joints[i]
		switch s.Model {
		case "a":
			assert.Len(t, s.Values, 1, "removed model stops sampling")
		case "b":
			assert.Len(t, s.Values, 2)
		}
	}
}

func TestRecorderCreationRacesParamChanges(t *testing.T) {
	e := newTestEngine(t, testWorld())
	require.NoError(t, e.AddModel(pendulumModel("p")))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = e.SetStepSize(0.001)
		}
	}()
	for i := 0; i < 200; i++ {
		_ = NewRecorder(e, "w")
	}
	<-done
}
