package engine

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Info is the queryable parameter snapshot of an engine.
type Info struct {
	Type               string  `json:"type"`
	StepSize           float64 `json:"step_size"`
	Gravity            r3.Vec  `json:"gravity"`
	Enabled            bool    `json:"enabled"`
	RealTimeFactor     float64 `json:"real_time_factor"`
	RealTimeUpdateRate float64 `json:"real_time_update_rate"`
	Integrator         string  `json:"integrator"`
	SimTime            float64 `json:"sim_time"`
	Models             int     `json:"models"`
}

// Info returns the current parameter snapshot.
func (e *Engine) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := 0.0
	if e.state != nil {
		t = e.state.Time
	}
	return Info{
		Type:               EngineType,
		StepSize:           e.stepSize,
		Gravity:            e.gravity,
		Enabled:            e.enabled,
		RealTimeFactor:     e.realTimeFactor,
		RealTimeUpdateRate: e.realTimeUpdateRate,
		Integrator:         e.integ.Name(),
		SimTime:            t,
		Models:             len(e.models),
	}
}

// SetGravity changes the world gravity vector for subsequent steps.
func (e *Engine) SetGravity(g r3.Vec) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gravity = g
	if e.sys != nil {
		e.sys.SetGravity(g)
	}
}

// Enable turns stepping on or off; a disabled engine ignores Step calls.
func (e *Engine) Enable(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = on
}

// SetStepSize changes the nominal advance per Step call.
func (e *Engine) SetStepSize(dt float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dt <= 0 {
		return fmt.Errorf("%w: step size %v", ErrConfig, dt)
	}
	e.stepSize = dt
	return nil
}

// SetRealTimeFactor sets the target ratio of simulated to wall time.
func (e *Engine) SetRealTimeFactor(f float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.realTimeFactor = f
}

// SetRealTimeUpdateRate sets the target step invocations per wall second.
func (e *Engine) SetRealTimeUpdateRate(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.realTimeUpdateRate = r
}

// Param returns a named scalar parameter.
func (e *Engine) Param(key string) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch key {
	case "type":
		return EngineType, nil
	case "max_step_size":
		return e.stepSize, nil
	case "real_time_factor":
		return e.realTimeFactor, nil
	case "real_time_update_rate":
		return e.realTimeUpdateRate, nil
	case "integrator":
		return e.integ.Name(), nil
	case "gravity":
		return e.gravity, nil
	case "enabled":
		return e.enabled, nil
	}
	e.log.Warn("param not found", "key", key)
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedParam, key)
}

// SetParam changes a named scalar parameter. Unknown keys and wrong value
// types are reported but never panic.
func (e *Engine) SetParam(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch key {
	case "max_step_size":
		v, ok := value.(float64)
		if !ok || v <= 0 {
			return fmt.Errorf("%w: %q wants a positive float", ErrConfig, key)
		}
		e.stepSize = v
	case "real_time_factor":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%w: %q wants a float", ErrConfig, key)
		}
		e.realTimeFactor = v
	case "real_time_update_rate":
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("%w: %q wants a float", ErrConfig, key)
		}
		e.realTimeUpdateRate = v
	case "gravity":
		v, ok := value.(r3.Vec)
		if !ok {
			return fmt.Errorf("%w: %q wants a vector", ErrConfig, key)
		}
		e.gravity = v
		if e.sys != nil {
			e.sys.SetGravity(v)
		}
	case "enabled":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %q wants a bool", ErrConfig, key)
		}
		e.enabled = v
	default:
		e.log.Warn("param not found", "key", key)
		return fmt.Errorf("%w: %q", ErrUnsupportedParam, key)
	}
	return nil
}
