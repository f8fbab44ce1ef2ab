// Package sqlite persists imported point sources and export run history in
// a SQLite database.
//
// Stored sources implement lidar.Source, so an export can read a scene from
// the database exactly as it reads one from memory or a LAS file. Queries
// prefilter rows by the box around the query volume and finish with the
// shared exact plane test.
package sqlite
