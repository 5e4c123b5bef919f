package engine

import (
	"fmt"

	"github.com/san-kum/mbody/internal/solver"
	"github.com/san-kum/mbody/internal/spatial"
)

// Step advances the simulation by one step size. A failed advance leaves
// the last committed state untouched so the next call retries from it.
func (e *Engine) Step() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step(e.stepSize)
}

// StepBy advances the simulation by dt.
func (e *Engine) StepBy(dt float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step(dt)
}

func (e *Engine) step(dt float64) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if !e.enabled || dt <= 0 {
		return nil
	}
	trial := e.state.Clone()
	if err := e.integ.Step(e.sys, trial, dt); err != nil {
		e.log.Error("unable to advance, position probably out of bounds",
			"time", e.state.Time, "err", err)
		e.sys.ClearDiscreteForces()
		return fmt.Errorf("%w: %v", ErrStepFailed, err)
	}
	e.cacheJointForces(trial)
	e.sys.ClearDiscreteForces()
	e.state = trial
	e.stepped = true
	e.queueDirtyPoses()
	return nil
}

// cacheJointForces snapshots the generalized force on every joint
// mobility so queries between steps do not recompute dynamics.
func (e *Engine) cacheJointForces(st *solver.State) {
	for _, m := range e.models {
		for _, j := range m.joints {
			if j.mob == solver.InvalidMobilizer {
				continue
			}
			for axis := range j.forceCache {
				j.forceCache[axis] = e.sys.MobilityForce(st, j.mob, axis)
			}
		}
	}
}

// queueDirtyPoses records the world pose of every moving link for the
// consumer side to drain.
func (e *Engine) queueDirtyPoses() {
	xforms := e.sys.BodyTransforms(e.state)
	for _, m := range e.models {
		if m.def.Static {
			continue
		}
		for _, l := range m.links {
			if l.master == solver.InvalidBody {
				continue
			}
			e.dirty = append(e.dirty, LinkPose{
				Model: m.def.Name,
				Link:  l.def.Name,
				Pose:  spatial.PoseFromTransform(xforms[l.master]),
				Time:  e.state.Time,
			})
		}
	}
}

// DrainDirtyPoses returns the queued link poses and empties the queue.
func (e *Engine) DrainDirtyPoses() []LinkPose {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.dirty
	e.dirty = nil
	return out
}

// Reset returns every coordinate to its default and rewinds time to
// zero. Topology is kept.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	for _, m := range e.models {
		for _, j := range m.joints {
			j.savedQ, j.savedU = nil, nil
		}
		for _, l := range m.links {
			l.savedQ, l.savedU = nil, nil
		}
	}
	e.sys.ClearDiscreteForces()
	e.state = e.sys.RealizeTopology()
	e.stepped = false
	e.dirty = nil
	return nil
}

// LinkPoseNow returns the current world pose of a link.
func (e *Engine) LinkPoseNow(model, link string) (spatial.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, err := e.linkRecOf(model, link)
	if err != nil {
		return spatial.Pose{}, err
	}
	if !e.initialized || l.master == solver.InvalidBody {
		return spatial.Pose{}, ErrNotInitialized
	}
	return spatial.PoseFromTransform(e.sys.BodyTransform(e.state, l.master)), nil
}

// JointPosition returns generalized coordinate axis of a joint.
func (e *Engine) JointPosition(model, joint string, axis int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return 0, err
	}
	q := e.sys.MobilizerQ(e.state, j.mob)
	if axis < 0 || axis >= len(q) {
		return 0, fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	return q[axis], nil
}

// JointVelocity returns generalized speed axis of a joint.
func (e *Engine) JointVelocity(model, joint string, axis int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return 0, err
	}
	u := e.sys.MobilizerU(e.state, j.mob)
	if axis < 0 || axis >= len(u) {
		return 0, fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	return u[axis], nil
}

// SetJointPosition writes one generalized coordinate directly.
func (e *Engine) SetJointPosition(model, joint string, axis int, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return err
	}
	q := e.sys.MobilizerQ(e.state, j.mob)
	if axis < 0 || axis >= len(q) {
		return fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	q[axis] = value
	return nil
}

// ApplyJointForce accumulates a discrete force on one joint mobility for
// the next advance only.
func (e *Engine) ApplyJointForce(model, joint string, axis int, force float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return err
	}
	if axis < 0 || axis >= len(j.forceCache) {
		return fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	e.sys.ApplyMobilityForce(j.mob, axis, force)
	return nil
}

// JointForce returns the generalized force on a joint mobility cached at
// the end of the last advance. Zero before the first step.
func (e *Engine) JointForce(model, joint string, axis int) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return 0, err
	}
	if axis < 0 || axis >= len(j.forceCache) {
		return 0, fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	return j.forceCache[axis], nil
}

// SetJointDamping changes the damper coefficient of one joint mobility.
func (e *Engine) SetJointDamping(model, joint string, axis int, damping float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	j, err := e.jointRecOf(model, joint)
	if err != nil {
		return err
	}
	if axis < 0 || axis >= len(j.damper) {
		return fmt.Errorf("%w: axis %d of joint %q", ErrConfig, axis, joint)
	}
	e.sys.SetDamping(j.damper[axis], damping)
	return nil
}

// JointAnchor would return the world position of the joint frame. The
// backend does not expose it yet.
func (e *Engine) JointAnchor(model, joint string) (spatial.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.jointRecOf(model, joint); err != nil {
		return spatial.Pose{}, err
	}
	return spatial.Pose{}, fmt.Errorf("%w: joint anchor", ErrNotImplemented)
}

func (e *Engine) linkRecOf(model, link string) (*linkRec, error) {
	m := e.model(model)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	l := m.linkByName[link]
	if l == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLink, link)
	}
	return l, nil
}

func (e *Engine) jointRecOf(model, joint string) (*jointRec, error) {
	m := e.model(model)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	j := m.jointByName[joint]
	if j == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJoint, joint)
	}
	if !e.initialized || j.mob == solver.InvalidMobilizer {
		return nil, ErrNotInitialized
	}
	return j, nil
}
