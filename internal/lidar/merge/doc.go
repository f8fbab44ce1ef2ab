// Package merge coalesces near-coincident point records.
//
// Index is an arena octree over record positions: nodes live in one slice
// and refer to children by int32 index, so there are no per-node pointers
// to chase or free. Nodes subdivide lazily until their edge is no larger
// than the merge distance, which bounds a radius query to the handful of
// leaves touching the query sphere.
//
// Merge uses the index for first-match coalescing and repeats the pass
// until nothing moves, so its output is a fixed point of Merge itself.
package merge
