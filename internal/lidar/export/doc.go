// Package export ties the pipeline to its outputs: it validates a request,
// runs the aggregation, writes the ASCII point file and, optionally, the
// position and colour textures, and records the run.
package export
