package engine

import (
	"encoding/json"
	"os"

	"github.com/san-kum/mbody/internal/solver"
)

// JointSeries is one recorded joint coordinate channel.
type JointSeries struct {
	Model  string    `json:"model"`
	Joint  string    `json:"joint"`
	Axis   int       `json:"axis"`
	Values []float64 `json:"values"`
}

// Trajectory is the recorded history of a run.
type Trajectory struct {
	World      string        `json:"world"`
	Integrator string        `json:"integrator"`
	Dt         float64       `json:"dt"`
	Steps      int           `json:"steps"`
	Times      []float64     `json:"times"`
	Joints     []JointSeries `json:"joints"`
}

// Recorder samples joint coordinates after each step.
type Recorder struct {
	engine *Engine
	traj   Trajectory
}

// NewRecorder creates a recorder over every joint mobility of every
// loaded model.
func NewRecorder(e *Engine, world string) *Recorder {
	r := &Recorder{engine: e}
	r.traj.World = world
	e.mu.Lock()
	defer e.mu.Unlock()
	r.traj.Integrator = e.integ.Name()
	r.traj.Dt = e.stepSize
	for _, m := range e.models {
		for _, j := range m.joints {
			if j.mob == solver.InvalidMobilizer {
				continue
			}
			n := e.sys.MobilizerKind(j.mob).Mobilities()
			for axis := 0; axis < n; axis++ {
				r.traj.Joints = append(r.traj.Joints, JointSeries{
					Model: m.def.Name,
					Joint: j.def.Name,
					Axis:  axis,
				})
			}
		}
	}
	return r
}

// Sample appends the current time and joint coordinates.
func (r *Recorder) Sample() {
	e := r.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return
	}
	r.traj.Times = append(r.traj.Times, e.state.Time)
	r.traj.Steps = len(r.traj.Times)
	for i := range r.traj.Joints {
		s := &r.traj.Joints[i]
		m := e.model(s.Model)
		if m == nil {
			// The model was removed after recording began.
			continue
		}
		j := m.jointByName[s.Joint]
		if j == nil || j.mob == solver.InvalidMobilizer {
			continue
		}
		q := e.sys.MobilizerQ(e.state, j.mob)
		if s.Axis < len(q) {
			s.Values = append(s.Values, q[s.Axis])
		} else {
			s.Values = append(s.Values, 0)
		}
	}
}

// Series returns the recorded values of one joint axis, or nil.
func (r *Recorder) Series(joint string, axis int) []float64 {
	for i := range r.traj.Joints {
		s := &r.traj.Joints[i]
		if s.Joint == joint && s.Axis == axis {
			return s.Values
		}
	}
	return nil
}

// Times returns the recorded sample times.
func (r *Recorder) Times() []float64 { return r.traj.Times }

// ExportJSON writes the trajectory to a file.
func (r *Recorder) ExportJSON(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.traj)
}

// ExportJSONStdout writes the trajectory to standard output.
func (r *Recorder) ExportJSONStdout() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r.traj)
}
