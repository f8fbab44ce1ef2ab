// Package source provides lidar.Source implementations backed by memory
// and by LAS files. The SQLite-backed store lives in storage/sqlite.
package source
