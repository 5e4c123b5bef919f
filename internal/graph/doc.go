// Package graph builds a tree-structured multibody decomposition from an
// arbitrary, possibly cyclic kinematic description.
//
// A [Maker] is fed joint types, bodies and joints in declaration order,
// then [Maker.Generate] produces a spanning tree of [Mobilizer] edges:
//
//   - every body except the world root gets exactly one inbound tree edge;
//   - joints that would close a cycle are broken by duplicating the child
//     body as a slave, which becomes the mobilizer's outboard body and is
//     later welded back to its master;
//   - bodies unreachable through declared joints are attached to the world
//     by synthetic free mobilizers, forced-base bodies first;
//   - a tree edge whose original joint pointed the other way is marked
//     reversed so synthesis can swap inboard/outboard conventions exactly.
//
// The maker is transient: it is built, generated, consumed and discarded
// within a single topology rebuild. Bodies are referenced by [BodyIndex]
// handles into the maker's body table, never by pointer.
package graph
