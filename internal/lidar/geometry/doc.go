// Package geometry owns the world/local spatial model used by the export
// pipeline.
//
// Responsibilities: half-space planes, six-plane convex volumes (camera
// frustums), axis-aligned boxes and the affine source transforms that map a
// point source's stored coordinates into world space.
// Key types: Plane, ConvexVolume, Box, CameraView, SourceTransform.
//
// Convention: a point P is inside a plane when Normal·P + D >= 0. Normals
// always point into the volume and are unit length after any transform.
//
// Dependency rule: geometry depends on no other internal package.
package geometry
