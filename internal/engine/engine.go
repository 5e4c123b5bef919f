package engine

import (
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/scene"
	"github.com/san-kum/mbody/internal/solver"
	"github.com/san-kum/mbody/internal/spatial"
)

// EngineType identifies this backend in parameter queries.
const EngineType = "mbody"

// LinkPose is one entry of the dirty-pose queue: a link's world pose after
// a successful advance, for the render/publish cycle to consume.
type LinkPose struct {
	Model string
	Link  string
	Pose  spatial.Pose
	Time  float64
}

// Engine is the simulation context. All methods are safe for concurrent
// use; a single lock serializes stepping and topology rebuilds.
type Engine struct {
	mu  sync.Mutex
	log *slog.Logger

	stepSize           float64
	realTimeFactor     float64
	realTimeUpdateRate float64
	gravity            r3.Vec
	enabled            bool
	contact            solver.ContactMaterial

	integ solver.Integrator

	sys         *solver.System
	state       *solver.State
	initialized bool
	stepped     bool

	models []*modelRec
	dirty  []LinkPose
}

type modelRec struct {
	def         *scene.Model
	clique      solver.CliqueID
	links       []*linkRec
	joints      []*jointRec
	linkByName  map[string]*linkRec
	jointByName map[string]*jointRec
}

type linkRec struct {
	def    *scene.Link
	model  *modelRec
	master solver.BodyID
	slaves []solver.BodyID
	welds  []solver.ConstraintID

	// baseMob is the synthetic free mobilizer attaching the link to the
	// world when no user joint exists, or InvalidMobilizer.
	baseMob solver.MobilizerID

	savedQ, savedU []float64
}

type jointRec struct {
	def      *scene.Joint
	model    *modelRec
	mob      solver.MobilizerID
	reversed bool

	limit  []solver.ForceID
	damper []solver.ForceID
	spring []solver.ForceID

	savedQ, savedU []float64
	forceCache     []float64
}

// New creates an engine from a world description. A nil logger discards
// diagnostics. Models listed in the world are not added automatically;
// call AddModel for each.
func New(w *scene.World, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	integName := w.Integrator
	integ, err := solver.NewIntegrator(integName)
	if err != nil {
		log.Error("integrator type not specified, using semi_explicit_euler",
			"requested", integName)
		integ, _ = solver.NewIntegrator("semi_explicit_euler")
	}
	e := &Engine{
		log:                log,
		stepSize:           w.StepSize,
		realTimeFactor:     w.RealTimeFactor,
		realTimeUpdateRate: w.RealTimeUpdateRate,
		gravity:            w.Gravity,
		enabled:            true,
		contact: solver.ContactMaterial{
			Stiffness:       w.Contact.Stiffness,
			Dissipation:     w.Contact.Dissipation,
			StaticFriction:  w.Contact.StaticFriction,
			DynamicFriction: w.Contact.DynamicFriction,
			ViscousFriction: w.Contact.ViscousFriction,
		},
		integ: integ,
	}
	if e.stepSize <= 0 {
		e.stepSize = scene.DefaultStepSize
	}
	return e, nil
}

// Model returns the loaded model record for a name.
func (e *Engine) model(name string) *modelRec {
	for _, m := range e.models {
		if m.def.Name == name {
			return m
		}
	}
	return nil
}

func newModelRec(def *scene.Model) *modelRec {
	rec := &modelRec{
		def:         def,
		linkByName:  make(map[string]*linkRec),
		jointByName: make(map[string]*jointRec),
	}
	for _, l := range def.Links {
		lr := &linkRec{def: l, model: rec, master: solver.InvalidBody,
			baseMob: solver.InvalidMobilizer}
		rec.links = append(rec.links, lr)
		rec.linkByName[l.Name] = lr
	}
	for _, j := range def.Joints {
		jr := &jointRec{def: j, model: rec, mob: solver.InvalidMobilizer}
		rec.joints = append(rec.joints, jr)
		rec.jointByName[j.Name] = jr
	}
	return rec
}

// resetHandles clears solver references before a rebuild; saved state is
// kept.
func (m *modelRec) resetHandles() {
	m.clique = 0
	for _, l := range m.links {
		l.master = solver.InvalidBody
		l.slaves = nil
		l.welds = nil
		l.baseMob = solver.InvalidMobilizer
	}
	for _, j := range m.joints {
		j.mob = solver.InvalidMobilizer
		j.reversed = false
		j.limit = nil
		j.damper = nil
		j.spring = nil
	}
}

// Models returns the names of the loaded models.
func (e *Engine) Models() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, len(e.models))
	for i, m := range e.models {
		names[i] = m.def.Name
	}
	return names
}

// SimTime returns the current simulation time.
func (e *Engine) SimTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return 0
	}
	return e.state.Time
}

// Initialized reports whether a topology has been built.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}
