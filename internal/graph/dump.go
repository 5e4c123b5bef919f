package graph

import (
	"fmt"
	"io"
)

// Dump writes a human-readable description of the generated graph. The
// output is deterministic for identical input ordering, so it is also used
// for golden comparisons.
func (m *Maker) Dump(w io.Writer) error {
	if !m.generated {
		return ErrNotGenerated
	}
	fmt.Fprintf(w, "bodies %d joints %d mobilizers %d loop_constraints %d\n",
		len(m.bodies), len(m.joints), len(m.mobilizers), len(m.loops))
	for i := range m.bodies {
		b := &m.bodies[i]
		fmt.Fprintf(w, "body %d %q level=%d", i, b.Name, b.Level)
		if b.MustBeBase {
			fmt.Fprint(w, " base")
		}
		if b.IsSlave() {
			fmt.Fprintf(w, " slave_of=%d", b.Master)
		}
		if len(b.Slaves) > 0 {
			fmt.Fprintf(w, " slaves=%v", b.Slaves)
		}
		fmt.Fprintln(w)
	}
	for i, mob := range m.mobilizers {
		name := "#added"
		if mob.JointNum >= 0 {
			name = m.joints[mob.JointNum].Name
		}
		fmt.Fprintf(w, "mobilizer %d %q type=%s %d->%d", i, name,
			mob.JointTypeName, mob.Inboard, mob.Outboard)
		if mob.Reversed {
			fmt.Fprint(w, " reversed")
		}
		if mob.Slave {
			fmt.Fprint(w, " slave")
		}
		if mob.AddedBase {
			fmt.Fprint(w, " added_base")
		}
		fmt.Fprintln(w)
	}
	for i, lc := range m.loops {
		fmt.Fprintf(w, "loop %d %q type=%s %d->%d\n", i,
			m.joints[lc.JointNum].Name, lc.TypeName, lc.Parent, lc.Child)
	}
	return nil
}
