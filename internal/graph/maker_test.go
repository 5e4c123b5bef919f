package graph

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaker(t *testing.T) *Maker {
	t.Helper()
	m := NewMaker()
	require.NoError(t, m.AddJointType("revolute", 1, false))
	require.NoError(t, m.AddJointType("prismatic", 1, false))
	require.NoError(t, m.AddJointType("ball", 3, true))
	_, err := m.AddBody("world", WorldMass, false)
	require.NoError(t, err)
	return m
}

func addBody(t *testing.T, m *Maker, name string) BodyIndex {
	t.Helper()
	i, err := m.AddBody(name, 1.0, false)
	require.NoError(t, err)
	return i
}

func TestGenerateChain(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")
	addBody(t, m, "b")
	addBody(t, m, "c")
	require.NoError(t, m.AddJoint("j0", "revolute", "", "a", false))
	require.NoError(t, m.AddJoint("j1", "revolute", "a", "b", false))
	require.NoError(t, m.AddJoint("j2", "prismatic", "b", "c", false))
	require.NoError(t, m.Generate())

	assert.Len(t, m.Mobilizers(), 3)
	assert.Empty(t, m.LoopConstraints())
	for _, mob := range m.Mobilizers() {
		assert.False(t, mob.Reversed)
		assert.False(t, mob.Slave)
	}
	for i := 0; i < m.NumBodies(); i++ {
		assert.Empty(t, m.GetBody(BodyIndex(i)).Slaves)
		assert.Equal(t, 1, m.NumFragments(BodyIndex(i)))
	}
	b, ok := m.BodyByName("c")
	require.True(t, ok)
	assert.Equal(t, 3, m.GetBody(b).Level)
}

func TestGenerateLoopSplitsChild(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "crank")
	addBody(t, m, "coupler")
	addBody(t, m, "rocker")
	require.NoError(t, m.AddJoint("crank_pivot", "revolute", "", "crank", false))
	require.NoError(t, m.AddJoint("crank_coupler", "revolute", "crank", "coupler", false))
	require.NoError(t, m.AddJoint("coupler_rocker", "revolute", "coupler", "rocker", false))
	require.NoError(t, m.AddJoint("rocker_pivot", "revolute", "", "rocker", false))
	require.NoError(t, m.Generate())

	// The cycle is broken by duplicating the rocker, never by dropping a
	// joint: four joints, four mobilizers.
	require.Len(t, m.Mobilizers(), 4)
	assert.Empty(t, m.LoopConstraints())

	rocker, ok := m.BodyByName("rocker")
	require.True(t, ok)
	require.Len(t, m.GetBody(rocker).Slaves, 1)
	assert.Equal(t, 2, m.NumFragments(rocker))

	slave := m.GetBody(rocker).Slaves[0]
	assert.True(t, m.GetBody(slave).IsSlave())
	assert.Equal(t, rocker, m.MasterOf(slave))
	assert.Equal(t, "rocker#slave_1", m.GetBody(slave).Name)

	last := m.Mobilizers()[3]
	assert.True(t, last.Slave)
	assert.Equal(t, World, last.Inboard)
	assert.Equal(t, slave, last.Outboard)
}

func TestGenerateGoodLoopJointBecomesConstraint(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")
	addBody(t, m, "b")
	require.NoError(t, m.AddJoint("j0", "revolute", "", "a", false))
	require.NoError(t, m.AddJoint("j1", "revolute", "", "b", false))
	require.NoError(t, m.AddJoint("close", "ball", "a", "b", false))
	require.NoError(t, m.Generate())

	assert.Len(t, m.Mobilizers(), 2)
	require.Len(t, m.LoopConstraints(), 1)
	lc := m.LoopConstraints()[0]
	assert.Equal(t, "ball", lc.TypeName)
	for i := 0; i < m.NumBodies(); i++ {
		assert.False(t, m.GetBody(BodyIndex(i)).IsSlave())
	}
}

func TestGenerateMustBreakOverridesGoodLoopJoint(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")
	addBody(t, m, "b")
	require.NoError(t, m.AddJoint("j0", "revolute", "", "a", false))
	require.NoError(t, m.AddJoint("j1", "revolute", "", "b", false))
	require.NoError(t, m.AddJoint("close", "ball", "a", "b", true))
	require.NoError(t, m.Generate())

	assert.Empty(t, m.LoopConstraints())
	assert.Len(t, m.Mobilizers(), 3)
	b, _ := m.BodyByName("b")
	assert.Len(t, m.GetBody(b).Slaves, 1)
}

func TestGenerateReversedEdge(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")
	addBody(t, m, "b")
	// Only b's joint reaches the world; a is attached through a joint that
	// names it as the parent, so the edge must be reversed.
	require.NoError(t, m.AddJoint("j0", "revolute", "a", "b", false))
	require.NoError(t, m.AddJoint("j1", "revolute", "", "b", false))
	require.NoError(t, m.Generate())

	require.Len(t, m.Mobilizers(), 2)
	var rev *Mobilizer
	for i := range m.Mobilizers() {
		if m.Mobilizers()[i].Reversed {
			rev = &m.Mobilizers()[i]
		}
	}
	require.NotNil(t, rev, "one edge should be reversed")
	bi, _ := m.BodyByName("b")
	ai, _ := m.BodyByName("a")
	assert.Equal(t, bi, rev.Inboard)
	assert.Equal(t, ai, rev.Outboard)
}

func TestGenerateAddsFreeBaseJoint(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "floater")
	require.NoError(t, m.Generate())

	require.Len(t, m.Mobilizers(), 1)
	mob := m.Mobilizers()[0]
	assert.True(t, mob.AddedBase)
	assert.Equal(t, "free", mob.JointTypeName)
	assert.Equal(t, World, mob.Inboard)

	j := m.GetJoint(mob.JointNum)
	assert.True(t, j.Added)
	assert.Equal(t, "#added_free_floater", j.Name)
}

func TestGenerateMustBeBaseWins(t *testing.T) {
	m := NewMaker()
	require.NoError(t, m.AddJointType("revolute", 1, false))
	_, err := m.AddBody("world", WorldMass, false)
	require.NoError(t, err)
	_, err = m.AddBody("first", 1.0, false)
	require.NoError(t, err)
	_, err = m.AddBody("anchor", 1.0, true)
	require.NoError(t, err)
	require.NoError(t, m.AddJoint("j0", "revolute", "anchor", "first", false))
	require.NoError(t, m.Generate())

	// The forced-base body gets the synthetic free joint even though it is
	// declared later.
	first := m.Mobilizers()[0]
	assert.True(t, first.AddedBase)
	anchor, _ := m.BodyByName("anchor")
	assert.Equal(t, anchor, first.Outboard)
	assert.Equal(t, 1, m.GetBody(anchor).Level)
}

func TestAddJointErrors(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")

	err := m.AddJoint("j0", "revolute", "", "", false)
	assert.ErrorIs(t, err, ErrNoChild)

	err = m.AddJoint("j1", "hinge2", "", "a", false)
	assert.ErrorIs(t, err, ErrUnknownJointType)

	err = m.AddJoint("j2", "revolute", "", "missing", false)
	assert.ErrorIs(t, err, ErrUnknownBody)

	err = m.AddJoint("j3", "revolute", "a", "a", false)
	assert.ErrorIs(t, err, ErrSelfLoop)

	require.NoError(t, m.AddJoint("ok", "revolute", "", "a", false))
	err = m.AddJoint("ok", "revolute", "", "a", false)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestDuplicateBodyName(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "a")
	_, err := m.AddBody("a", 1.0, false)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestDumpRequiresGenerate(t *testing.T) {
	m := newTestMaker(t)
	var buf bytes.Buffer
	assert.ErrorIs(t, m.Dump(&buf), ErrNotGenerated)
}

func TestGenerateIsDeterministic(t *testing.T) {
	build := func() string {
		m := newTestMaker(t)
		addBody(t, m, "crank")
		addBody(t, m, "coupler")
		addBody(t, m, "rocker")
		require.NoError(t, m.AddJoint("crank_pivot", "revolute", "", "crank", false))
		require.NoError(t, m.AddJoint("crank_coupler", "revolute", "crank", "coupler", false))
		require.NoError(t, m.AddJoint("coupler_rocker", "revolute", "coupler", "rocker", false))
		require.NoError(t, m.AddJoint("rocker_pivot", "revolute", "", "rocker", false))
		require.NoError(t, m.Generate())
		var buf bytes.Buffer
		require.NoError(t, m.Dump(&buf))
		return buf.String()
	}
	first := build()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
}

func TestDumpGoldenFourbar(t *testing.T) {
	m := newTestMaker(t)
	addBody(t, m, "crank")
	addBody(t, m, "coupler")
	addBody(t, m, "rocker")
	require.NoError(t, m.AddJoint("crank_pivot", "revolute", "", "crank", false))
	require.NoError(t, m.AddJoint("crank_coupler", "revolute", "crank", "coupler", false))
	require.NoError(t, m.AddJoint("coupler_rocker", "revolute", "coupler", "rocker", false))
	require.NoError(t, m.AddJoint("rocker_pivot", "revolute", "", "rocker", false))
	require.NoError(t, m.Generate())

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))

	g := goldie.New(t, goldie.WithFixtureDir("testdata"))
	g.Assert(t, "fourbar", buf.Bytes())
}
