// Package lidar holds the domain types shared by the visible-point export
// layers: the point records that flow through the pipeline and the Source
// interface every point storage backend implements.
//
// Layering (each package may depend only on those above it):
//
//	geometry   planes, frustums, source transforms
//	lidar      PointRecord, Candidate, Source
//	lod        distance skip factors and fractional-stride decimation
//	merge      octree merge index
//	source     in-memory and LAS-file sources
//	pipeline   fan-out/fan-in aggregation
//	serialize  ASCII and raster encodings
//	export     exportVisiblePoints orchestration and persistence
//	debug      LOD tuning plots
//
// Storage backends live under storage/ and implement Source; the SQLite
// store also keeps the export run history.
package lidar
