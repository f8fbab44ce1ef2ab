package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
	"github.com/banshee-data/lodexport/internal/lidar/source"
	"github.com/banshee-data/lodexport/internal/monitoring"
	"github.com/banshee-data/lodexport/internal/testutil"
)

func init() {
	SetLogWriters(nil, nil, nil)
	monitoring.SetLogger(nil)
}

func testCamera() *geometry.CameraView {
	cam := geometry.NewCameraView(r3.Vec{}, geometry.Rotator{}, 90, 1, 10, 0)
	return &cam
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.FrustumFar = 200000
	opts.Workers = 4
	return opts
}

// pointsAlongX builds candidates on the +X axis; intensity is the 1-based
// position so tests can check order.
func pointsAlongX(dists ...float64) []lidar.Candidate {
	pos := testutil.AlongX(dists...)
	out := make([]lidar.Candidate, len(pos))
	for i, p := range pos {
		out[i] = lidar.Candidate{Position: p, Intensity: uint8(i + 1)}
	}
	return out
}

func memSource(id string, t geometry.SourceTransform, c []lidar.Candidate) lidar.Source {
	return source.NewMemoryCandidates(id, t, c)
}

func intensities(pts []lidar.PointRecord) []uint8 {
	out := make([]uint8, len(pts))
	for i, p := range pts {
		out[i] = p.Intensity
	}
	return out
}

type failingSource struct {
	*source.Memory
	err error
}

func (f failingSource) Query(context.Context, geometry.ConvexVolume, bool) ([]lidar.Candidate, error) {
	return nil, f.err
}

func TestRun_TenPointScenario(t *testing.T) {
	dists := []float64{100, 100, 6000, 6000, 25000, 25000, 150000, 150000, 150000, 150000}
	src := memSource("scan", geometry.IdentityTransform(), pointsAlongX(dists...))

	res, err := New(testOptions()).Run(context.Background(), []lidar.Source{src}, testCamera())
	require.NoError(t, err)

	assert.Equal(t, 10, res.Candidates)
	assert.Greater(t, len(res.Points), 2)
	assert.Less(t, len(res.Points), 10)
	far := 0
	for _, p := range res.Points {
		if p.World.X >= lod.DefaultFarRadius {
			far++
		}
	}
	assert.LessOrEqual(t, far, 2)
	assert.Equal(t, []uint8{1, 2, 3, 4, 5, 10}, intensities(res.Points))
	assert.Equal(t, res.Kept, len(res.Points))
	assert.True(t, res.Sources.Contains("scan"))
}

func TestRun_TruncationKeepsFirst(t *testing.T) {
	dists := make([]float64, 10)
	for i := range dists {
		dists[i] = 100 + float64(i)*10
	}
	opts := testOptions()
	opts.MaxPoints = 3

	res, err := New(opts).Run(context.Background(),
		[]lidar.Source{memSource("near", geometry.IdentityTransform(), pointsAlongX(dists...))}, testCamera())
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3}, intensities(res.Points))
	assert.Equal(t, 7, res.Truncated)
}

func TestRun_OrderFollowsSources(t *testing.T) {
	var sources []lidar.Source
	for i := 0; i < 8; i++ {
		c := pointsAlongX(200, 300)
		for j := range c {
			c[j].Position.Y = float64(i)
		}
		sources = append(sources, memSource(string(rune('a'+i)), geometry.IdentityTransform(), c))
	}

	first, err := New(testOptions()).Run(context.Background(), sources, testCamera())
	require.NoError(t, err)
	require.Len(t, first.Points, 16)
	for i, p := range first.Points {
		assert.Equal(t, string(rune('a'+i/2)), p.SourceID, "record %d", i)
	}
	for run := 0; run < 5; run++ {
		again, err := New(testOptions()).Run(context.Background(), sources, testCamera())
		require.NoError(t, err)
		if diff := cmp.Diff(first.Points, again.Points); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", run, diff)
		}
	}
	assert.Equal(t, 8, first.Sources.Cardinality())
}

func TestRun_MergesOverlappingSources(t *testing.T) {
	a := memSource("a", geometry.IdentityTransform(), pointsAlongX(500, 1000))
	// Stored 0 lands on world 500 after translation.
	tb := geometry.NewSourceTransform(geometry.Rotator{}, r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 500}, r3.Vec{})
	b := memSource("b", tb, pointsAlongX(0.5, 2000))

	opts := testOptions()
	opts.MergeDistance = 1
	res, err := New(opts).Run(context.Background(), []lidar.Source{a, b}, testCamera())
	require.NoError(t, err)

	assert.Equal(t, 4, res.Kept)
	assert.Equal(t, 1, res.Merged)
	require.Len(t, res.Points, 3)
	assert.Equal(t, 2, res.Points[0].Weight)
	assert.InDelta(t, 500.25, res.Points[0].World.X, 1e-9)
	assert.InDelta(t, 2500, res.Points[2].World.X, 1e-9)
	assert.True(t, res.Sources.Contains("a"))
	assert.True(t, res.Sources.Contains("b"))
}

func TestRun_MergeNeverEmptiesResult(t *testing.T) {
	src := memSource("dense", geometry.IdentityTransform(), pointsAlongX(500, 500.5, 501, 501.5))

	opts := testOptions()
	opts.MergeDistance = 100
	res, err := New(opts).Run(context.Background(), []lidar.Source{src}, testCamera())
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, 3, res.Merged)
	assert.Equal(t, 4, res.Points[0].Weight)
}

func TestRun_WorldAndLocalPositions(t *testing.T) {
	tr := geometry.NewSourceTransform(geometry.Rotator{Yaw: 90}, r3.Vec{X: 2, Y: 2, Z: 2}, r3.Vec{X: 1000}, r3.Vec{X: 10})
	// Stored (0,0,0) -> local (10,0,0) -> rotated/scaled (0,20,0) -> world (1000,20,0).
	src := memSource("t", tr, []lidar.Candidate{{Intensity: 1}})

	res, err := New(testOptions()).Run(context.Background(), []lidar.Source{src}, testCamera())
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.InDelta(t, 1000, res.Points[0].World.X, 1e-9)
	assert.InDelta(t, 20, res.Points[0].World.Y, 1e-9)
	assert.InDelta(t, 10, res.Points[0].Local.X, 1e-9)
}

func TestRun_CulledSourceIsNotQueried(t *testing.T) {
	behind := failingSource{
		Memory: source.NewMemoryCandidates("behind", geometry.IdentityTransform(), pointsAlongX(-500, -600)),
		err:    errors.New("must not be queried"),
	}
	front := memSource("front", geometry.IdentityTransform(), pointsAlongX(500))

	res, err := New(testOptions()).Run(context.Background(), []lidar.Source{behind, front}, testCamera())
	require.NoError(t, err)
	assert.True(t, res.PerSource[0].Culled)
	assert.False(t, res.PerSource[1].Culled)
	assert.False(t, res.Sources.Contains("behind"))
}

func TestRun_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("disk gone")
	bad := failingSource{
		Memory: source.NewMemoryCandidates("bad", geometry.IdentityTransform(), pointsAlongX(500)),
		err:    boom,
	}
	_, err := New(testOptions()).Run(context.Background(), []lidar.Source{bad}, testCamera())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")
}

func TestRun_Errors(t *testing.T) {
	near := memSource("near", geometry.IdentityTransform(), pointsAlongX(500))
	tests := []struct {
		name     string
		sources  []lidar.Source
		cam      *geometry.CameraView
		mutate   func(*Options)
		want     error
		category error
	}{
		{"no sources", nil, testCamera(), nil, ErrNoSources, ErrInvalidInput},
		{"nil camera", []lidar.Source{near}, nil, nil, ErrNoCamera, ErrInvalidInput},
		{"nil source", []lidar.Source{nil}, testCamera(), nil, nil, ErrInvalidInput},
		{"bad lod", []lidar.Source{near}, testCamera(), func(o *Options) { o.LOD.MidSkip = 0 }, lod.ErrInvalidParams, ErrInvalidInput},
		{"negative cap", []lidar.Source{near}, testCamera(), func(o *Options) { o.MaxPoints = -1 }, nil, ErrInvalidInput},
		{"unusable camera", []lidar.Source{near}, &geometry.CameraView{Far: 10}, nil, geometry.ErrInvalidClip, ErrInvalidInput},
		{"degenerate camera", []lidar.Source{near}, &geometry.CameraView{FOV: 1, Aspect: 1, Near: 1}, nil, geometry.ErrDegenerateCamera, ErrInvalidInput},
		{"nothing in frustum", []lidar.Source{memSource("behind", geometry.IdentityTransform(), pointsAlongX(-500))}, testCamera(), nil, ErrNoPointsInFrustum, ErrEmptyResult},
		{"all skipped", []lidar.Source{memSource("far", geometry.IdentityTransform(), pointsAlongX(150000))}, testCamera(), nil, ErrAllPointsSkipped, ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions()
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			res, err := New(opts).Run(context.Background(), tt.sources, tt.cam)
			require.Error(t, err)
			assert.Nil(t, res)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.ErrorIs(t, err, tt.category)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testOptions()).Run(ctx,
		[]lidar.Source{memSource("a", geometry.IdentityTransform(), pointsAlongX(500))}, testCamera())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVisibleSources(t *testing.T) {
	dists := []float64{100, 100, 6000, 6000, 25000, 25000, 150000, 150000, 150000, 150000}
	front := memSource("front", geometry.IdentityTransform(), pointsAlongX(dists...))
	behind := memSource("behind", geometry.IdentityTransform(), pointsAlongX(-100))
	beyond := memSource("beyond", geometry.IdentityTransform(), pointsAlongX(500000))
	all := []lidar.Source{behind, front, beyond}

	visible, stats, err := VisibleSources(context.Background(), all, testCamera(), 200000, nil, true)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "front", visible[0].ID())
	assert.Equal(t, VisibilityStats{Considered: 3, Visible: 1}, stats)

	params := lod.DefaultParams()
	_, stats, err = VisibleSources(context.Background(), all, testCamera(), 200000, &params, true)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 6, stats.Predicted)

	_, _, err = VisibleSources(context.Background(), nil, testCamera(), 200000, nil, true)
	assert.ErrorIs(t, err, ErrNoSources)
	_, _, err = VisibleSources(context.Background(), all, nil, 200000, nil, true)
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestVisibleSources_MatchesRunValidation(t *testing.T) {
	front := memSource("front", geometry.IdentityTransform(), pointsAlongX(500))
	_, _, err := VisibleSources(context.Background(), []lidar.Source{front, nil}, testCamera(), 200000, nil, true)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = New(testOptions()).Run(context.Background(), []lidar.Source{front, nil}, testCamera())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVisibleSources_ConcurrentKeepsOrder(t *testing.T) {
	var all []lidar.Source
	var want []string
	for i := 0; i < 32; i++ {
		id := fmt.Sprintf("s%02d", i)
		x := 500.0
		if i%3 == 0 {
			x = -500 // behind the camera
		} else {
			want = append(want, id)
		}
		all = append(all, memSource(id, geometry.IdentityTransform(), pointsAlongX(x, x+10)))
	}
	params := lod.DefaultParams()

	visible, stats, err := VisibleSources(context.Background(), all, testCamera(), 200000, &params, true)
	require.NoError(t, err)
	got := make([]string, len(visible))
	for i, s := range visible {
		got[i] = s.ID()
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 2*len(want), stats.Total)
	assert.Equal(t, 2*len(want), stats.Predicted)
}

func TestVisibleSources_QueryErrorNamesSource(t *testing.T) {
	boom := errors.New("disk gone")
	bad := failingSource{
		Memory: source.NewMemoryCandidates("bad", geometry.IdentityTransform(), pointsAlongX(500)),
		err:    boom,
	}
	params := lod.DefaultParams()

	_, _, err := VisibleSources(context.Background(), []lidar.Source{bad}, testCamera(), 200000, &params, true)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")

	// Without LOD params only bounds are checked, so the query never runs.
	visible, _, err := VisibleSources(context.Background(), []lidar.Source{bad}, testCamera(), 200000, nil, true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}
