package graph

import (
	"errors"
	"fmt"
	"math"
)

// Domain errors for graph construction.
var (
	// ErrDuplicateName indicates a body, joint or joint type registered twice.
	ErrDuplicateName = errors.New("graph: duplicate name")

	// ErrUnknownBody indicates a joint referencing an unregistered body.
	ErrUnknownBody = errors.New("graph: unknown body")

	// ErrUnknownJointType indicates a joint of an unregistered type.
	ErrUnknownJointType = errors.New("graph: unknown joint type")

	// ErrNoChild indicates a joint without a valid child body.
	ErrNoChild = errors.New("graph: joint has no valid child body")

	// ErrSelfLoop indicates a joint connecting a body to itself.
	ErrSelfLoop = errors.New("graph: joint connects body to itself")

	// ErrNotGenerated indicates a query before Generate was called.
	ErrNotGenerated = errors.New("graph: graph not generated")
)

// BodyIndex is a stable handle into a Maker's body table.
type BodyIndex int

// InvalidBody marks an absent body reference.
const InvalidBody BodyIndex = -1

// World is the index of the designated world root body.
const World BodyIndex = 0

// JointTypeInfo describes a registered joint type.
type JointTypeInfo struct {
	Name string
	// Mobilities is the number of generalized speeds the type contributes
	// as a tree mobilizer.
	Mobilities int
	// HaveGoodLoopJoint is true if the type has a loop-closing constraint
	// form, so a cycle broken at such a joint needs no slave body.
	HaveGoodLoopJoint bool
}

// Body is one node of the kinematic graph.
type Body struct {
	Name       string
	Mass       float64
	MustBeBase bool

	// Level is the distance from the world root in the spanning tree;
	// -1 until the body is attached.
	Level int

	// Master is the body this one is a slave duplicate of, or InvalidBody.
	Master BodyIndex
	// Slaves lists the slave duplicates created for this body.
	Slaves []BodyIndex

	// Mobilizer is the index of the inbound tree edge, or -1 for the world.
	Mobilizer int

	jointsAsParent []int
	jointsAsChild  []int
}

// IsSlave reports whether the body is a cycle-breaking duplicate.
func (b *Body) IsSlave() bool { return b.Master != InvalidBody }

// Joint is one edge of the kinematic graph.
type Joint struct {
	Name     string
	TypeName string
	Parent   BodyIndex
	Child    BodyIndex

	// MustBreak forces cycle breaking at this joint even if its type has a
	// loop-closing constraint form.
	MustBreak bool

	// Added is true for synthetic free joints the maker inserted to attach
	// otherwise unconnected base bodies.
	Added bool

	// Mobilizer is the tree edge created for this joint, or -1.
	Mobilizer int
	// LoopConstraint is the loop edge created for this joint, or -1.
	LoopConstraint int
}

// Mobilizer is one tree edge of the generated graph.
type Mobilizer struct {
	// JointNum indexes the originating joint, or -1 for none.
	JointNum int
	// JointTypeName is the registered type of the edge.
	JointTypeName string
	// Inboard is the body closer to the world root.
	Inboard BodyIndex
	// Outboard is the mobilized body; it may be a slave.
	Outboard BodyIndex
	// Reversed is true when inboard/outboard are swapped relative to the
	// original joint's parent/child order.
	Reversed bool
	// Slave is true when the outboard body is a slave duplicate.
	Slave bool
	// AddedBase is true for a synthetic free mobilizer with no input joint.
	AddedBase bool
}

// LoopConstraint is a loop-closing edge for joint types that have a
// constraint form, reinstating a cycle removed from the spanning tree.
type LoopConstraint struct {
	JointNum int
	TypeName string
	Parent   BodyIndex
	Child    BodyIndex
}

// Maker accumulates the kinematic description of one model and generates
// its spanning-tree decomposition.
type Maker struct {
	types     []JointTypeInfo
	typeIndex map[string]int

	bodies    []Body
	bodyIndex map[string]BodyIndex

	joints     []Joint
	jointIndex map[string]int

	mobilizers []Mobilizer
	loops      []LoopConstraint
	generated  bool
}

// NewMaker returns an empty maker with the predefined "weld" (0 dof) and
// "free" (6 dof) joint types.
func NewMaker() *Maker {
	m := &Maker{
		typeIndex:  make(map[string]int),
		bodyIndex:  make(map[string]BodyIndex),
		jointIndex: make(map[string]int),
	}
	m.types = append(m.types,
		JointTypeInfo{Name: "weld", Mobilities: 0, HaveGoodLoopJoint: true},
		JointTypeInfo{Name: "free", Mobilities: 6, HaveGoodLoopJoint: true},
	)
	m.typeIndex["weld"] = 0
	m.typeIndex["free"] = 1
	return m
}

// AddJointType registers a joint type before any joints reference it.
func (m *Maker) AddJointType(name string, mobilities int, haveGoodLoopJoint bool) error {
	if _, ok := m.typeIndex[name]; ok {
		return fmt.Errorf("%w: joint type %q", ErrDuplicateName, name)
	}
	m.typeIndex[name] = len(m.types)
	m.types = append(m.types, JointTypeInfo{
		Name:              name,
		Mobilities:        mobilities,
		HaveGoodLoopJoint: haveGoodLoopJoint,
	})
	return nil
}

// AddBody registers a graph node. The first body added is the world root;
// conventionally it carries infinite mass.
func (m *Maker) AddBody(name string, mass float64, mustBeBase bool) (BodyIndex, error) {
	if _, ok := m.bodyIndex[name]; ok {
		return InvalidBody, fmt.Errorf("%w: body %q", ErrDuplicateName, name)
	}
	idx := BodyIndex(len(m.bodies))
	m.bodies = append(m.bodies, Body{
		Name:       name,
		Mass:       mass,
		MustBeBase: mustBeBase,
		Level:      -1,
		Master:     InvalidBody,
		Mobilizer:  -1,
	})
	m.bodyIndex[name] = idx
	return idx, nil
}

// AddJoint registers a graph edge. An empty parent name means the world
// root. The child is required.
func (m *Maker) AddJoint(name, typeName, parent, child string, mustBreak bool) error {
	if _, ok := m.jointIndex[name]; ok {
		return fmt.Errorf("%w: joint %q", ErrDuplicateName, name)
	}
	if _, ok := m.typeIndex[typeName]; !ok {
		return fmt.Errorf("%w: %q for joint %q", ErrUnknownJointType, typeName, name)
	}
	if child == "" {
		return fmt.Errorf("%w: joint %q", ErrNoChild, name)
	}
	ci, ok := m.bodyIndex[child]
	if !ok {
		return fmt.Errorf("%w: child %q of joint %q", ErrUnknownBody, child, name)
	}
	pi := World
	if parent != "" {
		pi, ok = m.bodyIndex[parent]
		if !ok {
			return fmt.Errorf("%w: parent %q of joint %q", ErrUnknownBody, parent, name)
		}
	}
	if pi == ci {
		return fmt.Errorf("%w: joint %q on body %q", ErrSelfLoop, name, child)
	}
	num := len(m.joints)
	m.joints = append(m.joints, Joint{
		Name:           name,
		TypeName:       typeName,
		Parent:         pi,
		Child:          ci,
		MustBreak:      mustBreak,
		Mobilizer:      -1,
		LoopConstraint: -1,
	})
	m.jointIndex[name] = num
	m.bodies[pi].jointsAsParent = append(m.bodies[pi].jointsAsParent, num)
	m.bodies[ci].jointsAsChild = append(m.bodies[ci].jointsAsChild, num)
	return nil
}

// Generate grows the spanning tree and breaks cycles. It must be called
// exactly once, after all types, bodies and joints are registered.
func (m *Maker) Generate() error {
	if len(m.bodies) == 0 {
		return fmt.Errorf("%w: world body", ErrUnknownBody)
	}
	m.bodies[World].Level = 0

	var loopJoints []int
	m.growTree(&loopJoints)
	m.breakLoops(loopJoints)
	m.generated = true
	return nil
}

// growTree attaches every body to the tree. Joints are scanned in
// declaration order on every pass; when no joint can extend the tree, the
// first unattached forced-base body (or, failing that, the first
// unattached body) is connected to the world by a synthetic free joint.
func (m *Maker) growTree(loopJoints *[]int) {
	for {
		progress := false
		for num := range m.joints {
			j := &m.joints[num]
			if j.Mobilizer >= 0 || j.LoopConstraint >= 0 {
				continue
			}
			if contains(*loopJoints, num) {
				continue
			}
			pIn := m.bodies[j.Parent].Level >= 0
			cIn := m.bodies[j.Child].Level >= 0
			switch {
			case pIn && cIn:
				*loopJoints = append(*loopJoints, num)
			case pIn:
				m.addMobilizer(num, j.Parent, j.Child, false, false)
				progress = true
			case cIn:
				m.addMobilizer(num, j.Child, j.Parent, true, false)
				progress = true
			}
		}
		if progress {
			continue
		}
		base := m.chooseBaseBody()
		if base == InvalidBody {
			return
		}
		m.addBaseJoint(base)
	}
}

// chooseBaseBody picks the next unattached body to connect to the world:
// forced-base bodies first, then declaration order.
func (m *Maker) chooseBaseBody() BodyIndex {
	first := InvalidBody
	for i := range m.bodies {
		b := &m.bodies[i]
		if b.Level >= 0 {
			continue
		}
		if b.MustBeBase {
			return BodyIndex(i)
		}
		if first == InvalidBody {
			first = BodyIndex(i)
		}
	}
	return first
}

func (m *Maker) addBaseJoint(base BodyIndex) {
	num := len(m.joints)
	name := fmt.Sprintf("#added_free_%s", m.bodies[base].Name)
	m.joints = append(m.joints, Joint{
		Name:           name,
		TypeName:       "free",
		Parent:         World,
		Child:          base,
		Added:          true,
		Mobilizer:      -1,
		LoopConstraint: -1,
	})
	m.jointIndex[name] = num
	m.addMobilizer(num, World, base, false, false)
}

func (m *Maker) addMobilizer(jointNum int, inboard, outboard BodyIndex, reversed, slave bool) {
	j := &m.joints[jointNum]
	mi := len(m.mobilizers)
	m.mobilizers = append(m.mobilizers, Mobilizer{
		JointNum:      jointNum,
		JointTypeName: j.TypeName,
		Inboard:       inboard,
		Outboard:      outboard,
		Reversed:      reversed,
		Slave:         slave,
		AddedBase:     j.Added,
	})
	j.Mobilizer = mi
	ob := &m.bodies[outboard]
	ob.Level = m.bodies[inboard].Level + 1
	ob.Mobilizer = mi
}

// breakLoops resolves the deferred loop joints in declaration order. A
// joint forced to break, or whose type lacks a loop-constraint form, gets
// a slave duplicate of its child body; the joint becomes the tree edge to
// the slave. Otherwise the joint becomes a direct loop constraint.
func (m *Maker) breakLoops(loopJoints []int) {
	for _, num := range loopJoints {
		j := &m.joints[num]
		t := m.types[m.typeIndex[j.TypeName]]
		if t.HaveGoodLoopJoint && !j.MustBreak {
			li := len(m.loops)
			m.loops = append(m.loops, LoopConstraint{
				JointNum: num,
				TypeName: j.TypeName,
				Parent:   j.Parent,
				Child:    j.Child,
			})
			j.LoopConstraint = li
			continue
		}
		slave := m.splitBody(j.Child)
		m.addMobilizer(num, j.Parent, slave, false, true)
	}
}

// splitBody creates a slave duplicate of master and returns its index.
func (m *Maker) splitBody(master BodyIndex) BodyIndex {
	mb := &m.bodies[master]
	idx := BodyIndex(len(m.bodies))
	name := fmt.Sprintf("%s#slave_%d", mb.Name, len(mb.Slaves)+1)
	m.bodies = append(m.bodies, Body{
		Name:      name,
		Mass:      mb.Mass,
		Level:     -1,
		Master:    master,
		Mobilizer: -1,
	})
	m.bodyIndex[name] = idx
	mb.Slaves = append(mb.Slaves, idx)
	return idx
}

// NumBodies returns the body count including slaves.
func (m *Maker) NumBodies() int { return len(m.bodies) }

// GetBody returns the body record for a handle.
func (m *Maker) GetBody(i BodyIndex) *Body { return &m.bodies[i] }

// BodyByName returns the handle for a body name.
func (m *Maker) BodyByName(name string) (BodyIndex, bool) {
	i, ok := m.bodyIndex[name]
	return i, ok
}

// MasterOf resolves slave handles to their master; non-slaves map to
// themselves.
func (m *Maker) MasterOf(i BodyIndex) BodyIndex {
	if m.bodies[i].IsSlave() {
		return m.bodies[i].Master
	}
	return i
}

// NumFragments returns how many mobilized fragments share the master body
// of i: the master itself plus its slaves.
func (m *Maker) NumFragments(i BodyIndex) int {
	return 1 + len(m.bodies[m.MasterOf(i)].Slaves)
}

// NumJoints returns the joint count including synthetic base joints.
func (m *Maker) NumJoints() int { return len(m.joints) }

// GetJoint returns the joint record at num.
func (m *Maker) GetJoint(num int) *Joint { return &m.joints[num] }

// Mobilizers returns the tree edges in topological order (every inboard
// body is mobilized before its outboard bodies).
func (m *Maker) Mobilizers() []Mobilizer { return m.mobilizers }

// LoopConstraints returns the loop-closing edges.
func (m *Maker) LoopConstraints() []LoopConstraint { return m.loops }

// JointTypeMobilities returns the registered mobility count for a type
// name. Unknown types report 0 and false.
func (m *Maker) JointTypeMobilities(name string) (int, bool) {
	i, ok := m.typeIndex[name]
	if !ok {
		return 0, false
	}
	return m.types[i].Mobilities, true
}

// WorldMass is the conventional mass for the world root body.
const WorldMass = math.MaxFloat64

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
