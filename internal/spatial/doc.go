// Package spatial provides pose and transform math for the multibody layer.
//
// Two representations coexist: the scene side describes placement as a
// [Pose] (position plus w-first quaternion, the world convention), while
// the solver side works with [Transform] (rotation plus translation in a
// body-fixed convention). The conversions are pure and lossless:
//
//	x := pose.Transform()
//	p := PoseFromTransform(x)
//
// The package also builds the axis-alignment rotations mobilizer synthesis
// needs, e.g. [AxisAlign] to carry a declared joint axis onto a solver's
// fixed mobility axis, using a stable orthogonal-complement construction
// that never degenerates for any unit input.
package spatial
