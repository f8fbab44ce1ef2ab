// Package serialize renders exported points.
//
// The ASCII format is one point per line, "x y z intensity r g b", space
// separated, with a trailing newline and no header. Rasters pack points
// into two square textures: RGBA16F positions and RGBA8 colours with
// intensity in alpha.
package serialize
