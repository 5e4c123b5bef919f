package scene

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mbody/internal/spatial"
)

const (
	DefaultStepSize           = 0.001
	DefaultRealTimeFactor     = 1.0
	DefaultRealTimeUpdateRate = 1000.0
	DefaultStopStiffness      = 1e8
	DefaultStopDissipation    = 1.0
)

// JointType tags the kind of a joint.
type JointType string

const (
	Revolute  JointType = "revolute"
	Revolute2 JointType = "revolute2"
	Prismatic JointType = "prismatic"
	Universal JointType = "universal"
	Screw     JointType = "screw"
	Ball      JointType = "ball"
	Free      JointType = "free"
	Weld      JointType = "weld"
)

// Valid reports whether t is one of the known joint types.
func (t JointType) Valid() bool {
	switch t {
	case Revolute, Revolute2, Prismatic, Universal, Screw, Ball, Free, Weld:
		return true
	}
	return false
}

// Limits bound one joint axis. Stiffness and Dissipation parameterize the
// stop force engaged outside [Lower, Upper].
type Limits struct {
	Lower       float64 `yaml:"lower"`
	Upper       float64 `yaml:"upper"`
	Stiffness   float64 `yaml:"stiffness"`
	Dissipation float64 `yaml:"dissipation"`
}

// Axis describes one joint mobility: a unit direction expressed in the
// frame given by Frame (a rotation offset from the child link frame;
// identity means the axis is already in the child frame), plus the force
// element parameters attached to the mobility.
type Axis struct {
	Xyz       r3.Vec       `yaml:"xyz"`
	Frame     spatial.Quat `yaml:"frame"`
	Limit     Limits       `yaml:"limit"`
	Damping   float64      `yaml:"damping"`
	Stiffness float64      `yaml:"stiffness"`
	SpringRef float64      `yaml:"spring_ref"`
}

// Joint connects a parent link to a child link. An empty parent means the
// world. ParentOffset and ChildOffset place the joint frame on each body.
type Joint struct {
	Name         string       `yaml:"name"`
	Type         JointType    `yaml:"type"`
	Parent       string       `yaml:"parent"`
	Child        string       `yaml:"child"`
	ParentOffset spatial.Pose `yaml:"parent_offset"`
	ChildOffset  spatial.Pose `yaml:"child_offset"`
	Axes         []Axis       `yaml:"axes"`
	ThreadPitch  float64      `yaml:"thread_pitch"`
	MustBreak    bool         `yaml:"must_break_loop"`
}

// ShapeType tags collision geometry.
type ShapeType string

const (
	PlaneShape    ShapeType = "plane"
	SphereShape   ShapeType = "sphere"
	BoxShape      ShapeType = "box"
	CylinderShape ShapeType = "cylinder"
	MeshShape     ShapeType = "mesh"
)

// Collision is one collision shape attached to a link.
type Collision struct {
	Name   string       `yaml:"name"`
	Pose   spatial.Pose `yaml:"pose"`
	Type   ShapeType    `yaml:"type"`
	Normal r3.Vec       `yaml:"normal"`
	Radius float64      `yaml:"radius"`
	Length float64      `yaml:"length"`
	Size   r3.Vec       `yaml:"size"`
}

// Inertia is a center-of-mass inertia tensor.
type Inertia struct {
	IXX float64 `yaml:"ixx"`
	IYY float64 `yaml:"iyy"`
	IZZ float64 `yaml:"izz"`
	IXY float64 `yaml:"ixy"`
	IXZ float64 `yaml:"ixz"`
	IYZ float64 `yaml:"iyz"`
}

// Link is one rigid body of a model. Pose is relative to the model frame.
type Link struct {
	Name        string       `yaml:"name"`
	Mass        float64      `yaml:"mass"`
	Inertia     Inertia      `yaml:"inertia"`
	Pose        spatial.Pose `yaml:"pose"`
	MustBeBase  bool         `yaml:"must_be_base"`
	SelfCollide bool         `yaml:"self_collide"`
	Collisions  []*Collision `yaml:"collisions"`
}

// Model is one articulated mechanism: an ordered list of links and joints.
type Model struct {
	Name   string       `yaml:"name"`
	Pose   spatial.Pose `yaml:"pose"`
	Static bool         `yaml:"static"`
	Links  []*Link      `yaml:"links"`
	Joints []*Joint     `yaml:"joints"`
}

// LinkByName returns the named link, or nil.
func (m *Model) LinkByName(name string) *Link {
	for _, l := range m.Links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// JointByName returns the named joint, or nil.
func (m *Model) JointByName(name string) *Joint {
	for _, j := range m.Joints {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// ContactConfig carries the system-wide contact material parameters.
type ContactConfig struct {
	Stiffness       float64 `yaml:"stiffness"`
	Dissipation     float64 `yaml:"dissipation"`
	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	ViscousFriction float64 `yaml:"viscous_friction"`
}

// World is a full scene description.
type World struct {
	Name               string        `yaml:"name"`
	Gravity            r3.Vec        `yaml:"gravity"`
	StepSize           float64       `yaml:"step_size"`
	RealTimeFactor     float64       `yaml:"real_time_factor"`
	RealTimeUpdateRate float64       `yaml:"real_time_update_rate"`
	Integrator         string        `yaml:"integrator"`
	Contact            ContactConfig `yaml:"contact"`
	Models             []*Model      `yaml:"models"`
}

// DefaultWorld returns an empty world with default stepping parameters and
// earth gravity.
func DefaultWorld() *World {
	return &World{
		Name:               "default",
		Gravity:            r3.Vec{Z: -9.8},
		StepSize:           DefaultStepSize,
		RealTimeFactor:     DefaultRealTimeFactor,
		RealTimeUpdateRate: DefaultRealTimeUpdateRate,
		Integrator:         "semi_explicit_euler",
		Contact: ContactConfig{
			Stiffness:       1e8,
			Dissipation:     1000,
			StaticFriction:  0.7,
			DynamicFriction: 0.5,
			ViscousFriction: 0.5,
		},
	}
}

// Load reads a world description from a YAML file, applying defaults for
// omitted fields.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w := DefaultWorld()
	if err := yaml.Unmarshal(data, w); err != nil {
		return nil, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	return w, nil
}

// Save writes a world description to a YAML file.
func Save(path string, w *World) error {
	data, err := yaml.Marshal(w)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
