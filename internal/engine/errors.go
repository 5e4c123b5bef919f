package engine

import (
	"errors"
	"fmt"
)

// Domain errors for the multibody layer.
var (
	// ErrModelExists indicates an AddModel with an already-loaded name.
	ErrModelExists = errors.New("engine: model already loaded")

	// ErrUnknownModel indicates a reference to a model that is not loaded.
	ErrUnknownModel = errors.New("engine: unknown model")

	// ErrUnknownLink indicates a reference to a link that does not exist.
	ErrUnknownLink = errors.New("engine: unknown link")

	// ErrUnknownJoint indicates a reference to a joint that does not exist.
	ErrUnknownJoint = errors.New("engine: unknown joint")

	// ErrConfig indicates an invalid scene description, e.g. a joint
	// without a valid child link.
	ErrConfig = errors.New("engine: invalid configuration")

	// ErrNotImplemented indicates an operation with no backend
	// equivalent; callers receive it together with a zero value.
	ErrNotImplemented = errors.New("engine: not implemented")

	// ErrUnsupportedParam indicates an unrecognized parameter key.
	ErrUnsupportedParam = errors.New("engine: unsupported parameter")

	// ErrStepFailed indicates the integrator failed mid-advance; the
	// engine stops advancing for the tick and retries from last-committed
	// state on the next one.
	ErrStepFailed = errors.New("engine: step failed")

	// ErrNotInitialized indicates stepping before any model was added.
	ErrNotInitialized = errors.New("engine: not initialized")
)

// BuildError is the fatal outcome of a topology rebuild. The previous
// topology is discarded; the engine must be rebuilt by re-adding models.
type BuildError struct {
	Model string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("engine: build failed for model %q: %v", e.Model, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
