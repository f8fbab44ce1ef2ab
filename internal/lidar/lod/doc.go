// Package lod implements the distance-adaptive decimation policy.
//
// A point at distance d from the camera gets a real-valued skip factor
// S(d) >= 1 that rises linearly through two bands (near→mid, mid→far) and
// is constant outside them. The keep decision is fractional-stride
// sampling: with n the point's 1-based ordinal in its stream, keep iff
// n mod S < 1. Integer S keeps exactly every S-th point; fractional S gives
// a deterministic, locally periodic 1/S retention rate.
//
// A stream is one source's query result, counted before any merge, so a
// source's decimation never depends on which other sources are exported.
package lod
