package engine

import (
	"fmt"

	"github.com/san-kum/mbody/internal/graph"
	"github.com/san-kum/mbody/internal/scene"
	"github.com/san-kum/mbody/internal/solver"
)

// AddModel loads a model into the simulation. The whole topology is
// rebuilt: solver state of every already-loaded model is captured first
// and restored into the new system afterwards, so in-progress motion is
// not perturbed. On failure the previous topology is discarded and a
// *BuildError is returned.
func (e *Engine) AddModel(def *scene.Model) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model(def.Name) != nil {
		return fmt.Errorf("%w: %q", ErrModelExists, def.Name)
	}
	rec := newModelRec(def)
	e.captureState(rec)
	e.models = append(e.models, rec)
	if err := e.rebuild(); err != nil {
		e.models = e.models[:len(e.models)-1]
		return &BuildError{Model: def.Name, Err: err}
	}
	return nil
}

// RemoveModel unloads a model and rebuilds the remaining topology.
func (e *Engine) RemoveModel(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec := e.model(name)
	if rec == nil {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	e.captureState(rec)
	kept := e.models[:0]
	for _, m := range e.models {
		if m != rec {
			kept = append(kept, m)
		}
	}
	e.models = kept
	if err := e.rebuild(); err != nil {
		return &BuildError{Model: name, Err: err}
	}
	return nil
}

// captureState saves every joint's and link's solver coordinates, except
// those of the model being (re)built, keyed by the records themselves.
func (e *Engine) captureState(except *modelRec) {
	if !e.initialized || e.state == nil {
		return
	}
	for _, m := range e.models {
		if m == except {
			continue
		}
		for _, j := range m.joints {
			if j.mob == solver.InvalidMobilizer {
				continue
			}
			j.savedQ = append([]float64(nil), e.sys.MobilizerQ(e.state, j.mob)...)
			j.savedU = append([]float64(nil), e.sys.MobilizerU(e.state, j.mob)...)
		}
		for _, l := range m.links {
			if l.baseMob == solver.InvalidMobilizer {
				continue
			}
			l.savedQ = append([]float64(nil), e.sys.MobilizerQ(e.state, l.baseMob)...)
			l.savedU = append([]float64(nil), e.sys.MobilizerU(e.state, l.baseMob)...)
		}
	}
}

// rebuild constructs a fresh solver system for every loaded model and
// restores captured state into it. Graph construction, synthesis, welding
// and state transfer run strictly in sequence.
func (e *Engine) rebuild() error {
	savedTime := 0.0
	if e.state != nil {
		savedTime = e.state.Time
	}
	e.sys = solver.NewSystem()
	e.sys.SetGravity(e.gravity)
	e.state = nil
	e.initialized = false

	for _, m := range e.models {
		m.resetHandles()
	}
	for _, m := range e.models {
		if m.def.Static {
			e.addStaticModel(m)
			continue
		}
		g, err := e.buildGraph(m)
		if err != nil {
			return err
		}
		if err := e.synthesize(g, m); err != nil {
			return err
		}
	}
	e.weldSlaves()

	e.state = e.sys.RealizeTopology()
	e.state.Time = savedTime
	e.restoreState()
	e.initialized = true
	return nil
}

// restoreState copies captured coordinates back into the new state.
// Unmatched or never-captured records are left at default, never an
// error.
func (e *Engine) restoreState() {
	for _, m := range e.models {
		for _, j := range m.joints {
			if j.mob == solver.InvalidMobilizer || j.savedQ == nil {
				continue
			}
			copyInto(e.sys.MobilizerQ(e.state, j.mob), j.savedQ)
			copyInto(e.sys.MobilizerU(e.state, j.mob), j.savedU)
			j.savedQ, j.savedU = nil, nil
		}
		for _, l := range m.links {
			if l.baseMob == solver.InvalidMobilizer || l.savedQ == nil {
				continue
			}
			copyInto(e.sys.MobilizerQ(e.state, l.baseMob), l.savedQ)
			copyInto(e.sys.MobilizerU(e.state, l.baseMob), l.savedU)
			l.savedQ, l.savedU = nil, nil
		}
	}
}

func copyInto(dst, src []float64) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	copy(dst[:n], src[:n])
}

// buildGraph registers the model's links and joints with a graph maker
// and generates the spanning-tree decomposition.
func (e *Engine) buildGraph(m *modelRec) (*graph.Maker, error) {
	g := graph.NewMaker()
	// "weld" and "free" are predefined at 0 and 6 mobilities. A ball loop
	// constraint would be a good break choice, but loop joints are skipped
	// for now: every cycle goes through the slave+weld path.
	for _, jt := range []struct {
		name       scene.JointType
		mobilities int
	}{
		{scene.Revolute, 1},
		{scene.Revolute2, 2},
		{scene.Prismatic, 1},
		{scene.Universal, 2},
		{scene.Screw, 1},
		{scene.Ball, 3},
	} {
		if err := g.AddJointType(string(jt.name), jt.mobilities, false); err != nil {
			return nil, err
		}
	}

	if _, err := g.AddBody("world", graph.WorldMass, false); err != nil {
		return nil, err
	}
	for _, l := range m.links {
		if _, err := g.AddBody(l.def.Name, l.def.Mass, l.def.MustBeBase); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}
	for _, j := range m.joints {
		def := j.def
		if def.Child == "" || m.linkByName[def.Child] == nil {
			return nil, fmt.Errorf("%w: joint %q does not have a valid child link",
				ErrConfig, def.Name)
		}
		if !def.Type.Valid() {
			e.log.Error("joint type not implemented", "joint", def.Name,
				"type", string(def.Type))
			continue
		}
		parent := def.Parent
		if parent != "" && m.linkByName[parent] == nil {
			return nil, fmt.Errorf("%w: joint %q parent link %q not found",
				ErrConfig, def.Name, parent)
		}
		if err := g.AddJoint(def.Name, string(def.Type), parent, def.Child,
			def.MustBreak); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
	}
	if err := g.Generate(); err != nil {
		return nil, err
	}
	return g, nil
}

// addStaticModel attaches a static model's collision geometry directly to
// the ground body; its links do not move.
func (e *Engine) addStaticModel(m *modelRec) {
	for _, l := range m.links {
		l.master = solver.Ground
		e.addCollisions(m, l, solver.Ground)
	}
}

// weldSlaves rigidly couples every slave body to its master. Welds are
// independent; ordering is irrelevant.
func (e *Engine) weldSlaves() {
	for _, m := range e.models {
		for _, l := range m.links {
			for _, slave := range l.slaves {
				l.welds = append(l.welds, e.sys.AddWeld(l.master, slave))
			}
		}
	}
}
