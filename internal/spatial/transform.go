package spatial

import "gonum.org/v1/gonum/spatial/r3"

// Transform is a rigid transform in the solver convention: rotate then
// translate.
type Transform struct {
	R Rotation
	P r3.Vec
}

// TransformIdentity returns the identity transform.
func TransformIdentity() Transform {
	return Transform{R: RotIdentity()}
}

// Apply maps a point through the transform.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	return r3.Add(t.R.Apply(v), t.P)
}

// Mul composes transforms: (a.Mul(b)).Apply(v) == a.Apply(b.Apply(v)).
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		R: t.R.Mul(o.R),
		P: r3.Add(t.R.Apply(o.P), t.P),
	}
}

// Inv returns the inverse transform.
func (t Transform) Inv() Transform {
	ri := t.R.Inv()
	return Transform{R: ri, P: ri.Apply(r3.Scale(-1, t.P))}
}

// Quat is a w-first quaternion in the world pose convention. It is the
// wire/scene-file form of a rotation; the zero value reads as identity.
type Quat struct {
	W float64 `yaml:"w" json:"w"`
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Pose is position plus rotation in the world convention.
type Pose struct {
	Pos r3.Vec `yaml:"pos" json:"pos"`
	Rot Quat   `yaml:"rot" json:"rot"`
}

// Transform converts the pose to the solver transform representation.
func (p Pose) Transform() Transform {
	return Transform{
		R: RotFromQuat(p.Rot.W, p.Rot.X, p.Rot.Y, p.Rot.Z),
		P: p.Pos,
	}
}

// PoseFromTransform converts a solver transform back to a world pose.
func PoseFromTransform(t Transform) Pose {
	w, x, y, z := t.R.Quat()
	return Pose{
		Pos: t.P,
		Rot: Quat{W: w, X: x, Y: y, Z: z},
	}
}
