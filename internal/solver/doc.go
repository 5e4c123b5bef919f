// Package solver is the generalized-coordinate dynamics backend the engine
// targets. It keeps a tree of mobilized bodies in arena storage referenced
// by stable integer handles ([BodyID], [MobilizerID]), per-mobility force
// elements (stops, dampers, springs), weld constraints for slave bodies,
// and contact surfaces grouped into no-self-collision cliques.
//
// The numerical model is deliberately joint-space: each mobility evolves
// under its own force elements and an effective inertia derived from the
// outboard body's mass properties, and gravity acts on the translational
// mobilities of free mobilizers. Weld constraints couple a slave body's
// pose rigidly to its master when body transforms are realized. There is
// no articulated-body mass matrix; the layer above treats this package as
// an opaque integrator and depends only on its coordinate bookkeeping
// being exact and deterministic.
//
// Topology building is a one-shot protocol: add mobilizers and force
// elements, then [System.RealizeTopology] to obtain a [State]. Changing
// topology afterwards requires building a fresh System.
package solver
