// Package engine translates an engine-agnostic scene description into a
// tree-structured generalized-coordinate solver and the solver's motion
// back into scene poses.
//
// An [Engine] is an explicit simulation context: it owns the solver
// system, the current state, and the per-model bookkeeping that maps
// scene links and joints to solver handles. All operations go through its
// single lock, so a topology rebuild requested from another goroutine can
// never interleave with an in-progress step.
//
// Adding or removing a model rebuilds the whole topology: the only way to
// change the body count of a generalized-coordinate solver. The in-flight
// simulation survives the rebuild because every joint's and link's solver
// coordinates are captured by identity before the old system is discarded
// and restored into the new one ([Engine.AddModel]).
//
// The rebuild pipeline runs strictly in sequence: multibody graph
// generation (internal/graph), mobilizer synthesis with limit, damper and
// spring elements per controllable axis, slave-to-master welding, collision
// attachment with per-model no-self-collision cliques, and state restore.
package engine
