// Package pipeline aggregates camera-visible points from many sources.
//
// It is the composition root of the export path: it imports geometry, lod,
// merge and the lidar.Source contract, but none of those packages import
// pipeline/. Work is fanned out one task per source on a bounded pool and
// joined in submission order, so output order depends only on the order of
// the sources slice and never on scheduling.
package pipeline
