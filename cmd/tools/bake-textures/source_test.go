package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func TestOpenSource_Flags(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		f    sourceFlags
	}{
		{"nothing", sourceFlags{}},
		{"both", sourceFlags{LAS: "a.las", DB: "a.db"}},
		{"db without id", sourceFlags{DB: filepath.Join(t.TempDir(), "a.db")}},
		{"bad units", sourceFlags{LAS: "a.las", Units: "furlong"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, closeFn, err := openSource(ctx, tt.f)
			assert.Error(t, err)
			closeFn()
		})
	}
}

func TestOpenSource_Stored(t *testing.T) {
	ctx := context.Background()
	db := filepath.Join(t.TempDir(), "points.db")
	store, err := sqlite.Open(db)
	require.NoError(t, err)
	pts := []lidar.StoredPoint{{Candidate: lidar.Candidate{Position: r3.Vec{X: 1, Y: 2, Z: 3}}}}
	require.NoError(t, store.ImportSource(ctx, "rock", geometry.IdentityTransform(), pts))
	require.NoError(t, store.Close())

	src, closeFn, err := openSource(ctx, sourceFlags{DB: db, ID: "rock"})
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, "rock", src.ID())

	_, closeMissing, err := openSource(ctx, sourceFlags{DB: db, ID: "missing"})
	assert.ErrorIs(t, err, sqlite.ErrSourceNotFound)
	closeMissing()
}
