package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
	"github.com/banshee-data/lodexport/internal/lidar/merge"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

// Options configures one aggregation run.
type Options struct {
	LOD lod.Params
	// FrustumFar replaces the camera's far distance. Zero keeps it.
	FrustumFar float64
	// Workers bounds concurrent source tasks. Zero means GOMAXPROCS.
	Workers int
	// MergeDistance enables merging when > 0.
	MergeDistance float64
	// MaxPoints caps the output when > 0; the first MaxPoints records win.
	MaxPoints   int
	VisibleOnly bool
}

// DefaultOptions returns default LOD bands, one worker per CPU and no
// merge or cap.
func DefaultOptions() Options {
	return Options{
		LOD:         lod.DefaultParams(),
		Workers:     runtime.GOMAXPROCS(0),
		VisibleOnly: true,
	}
}

// Validate checks the options. Failures wrap ErrInvalidInput.
func (o Options) Validate() error {
	if err := o.LOD.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if o.FrustumFar < 0 || math.IsNaN(o.FrustumFar) || math.IsInf(o.FrustumFar, 0) {
		return invalid("frustum far must be finite and >= 0, got %g", o.FrustumFar)
	}
	if o.Workers < 0 {
		return invalid("workers must be >= 0, got %d", o.Workers)
	}
	if o.MergeDistance < 0 || math.IsNaN(o.MergeDistance) || math.IsInf(o.MergeDistance, 0) {
		return invalid("merge distance must be finite and >= 0, got %g", o.MergeDistance)
	}
	if o.MaxPoints < 0 {
		return invalid("max points must be >= 0, got %d", o.MaxPoints)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// SourceStats describes what one source contributed.
type SourceStats struct {
	ID         string
	Culled     bool // rejected by its world bounds before querying
	Candidates int
	Kept       int
	Duration   time.Duration
}

// Result is the output of a successful run.
type Result struct {
	// Points are ordered by source (input order), then by each source's
	// query order; merge keeps cluster anchors in that order.
	Points    []lidar.PointRecord
	PerSource []SourceStats

	Candidates int // points returned by all source queries
	Kept       int // points surviving LOD
	Merged     int // records folded away by merge
	Truncated  int // records dropped by MaxPoints

	// Sources holds the IDs of sources with at least one output point.
	Sources mapset.Set[string]
}

// Pipeline runs visibility, LOD, merge and truncation over a set of sources.
type Pipeline struct {
	opts Options
}

// New creates a pipeline. Options are validated by Run.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Options returns the pipeline's configuration.
func (p *Pipeline) Options() Options { return p.opts }

type sourceOutput struct {
	stats   SourceStats
	records []lidar.PointRecord
}

// Run exports the points of sources visible from cam. The camera is copied;
// its far distance is replaced by Options.FrustumFar when that is set.
func (p *Pipeline) Run(ctx context.Context, sources []lidar.Source, cam *geometry.CameraView) (*Result, error) {
	start := time.Now()
	world, camPos, err := p.prepare(sources, cam)
	if err != nil {
		return nil, err
	}

	outputs := make([]sourceOutput, len(sources))
	workers := p.opts.workers()
	// Spread spare workers over per-point decimation when there are
	// fewer sources than workers.
	decimateWorkers := max(1, workers/len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src // per-iteration copy; go directive is 1.21
		g.Go(func() error {
			out, err := p.processSource(gctx, src, world, camPos, decimateWorkers)
			if err != nil {
				monitoring.InstrumentSource(monitoring.OutcomeFailed)
				opsf("source %s failed: %v", src.ID(), err)
				return fmt.Errorf("source %s: %w", src.ID(), err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		PerSource: make([]SourceStats, len(outputs)),
		Sources:   mapset.NewThreadUnsafeSet[string](),
	}
	for i, out := range outputs {
		res.PerSource[i] = out.stats
		res.Candidates += out.stats.Candidates
		res.Kept += out.stats.Kept
	}
	res.Points = make([]lidar.PointRecord, 0, res.Kept)
	for _, out := range outputs {
		res.Points = append(res.Points, out.records...)
	}
	monitoring.InstrumentPoints(monitoring.StageCandidate, res.Candidates)
	monitoring.InstrumentPoints(monitoring.StageKept, res.Kept)

	if res.Candidates == 0 {
		opsf("no points inside frustum across %d sources", len(sources))
		return nil, ErrNoPointsInFrustum
	}
	if res.Kept == 0 {
		opsf("all %d candidates skipped by LOD", res.Candidates)
		return nil, ErrAllPointsSkipped
	}

	if p.opts.MergeDistance > 0 {
		mergeStart := time.Now()
		merged := merge.Merge(res.Points, p.opts.MergeDistance)
		res.Merged = len(res.Points) - len(merged)
		res.Points = merged
		monitoring.InstrumentPoints(monitoring.StageMerged, res.Merged)
		tracef("merge: %d -> %d records in %v", res.Kept, len(merged), time.Since(mergeStart))
	}

	if p.opts.MaxPoints > 0 && len(res.Points) > p.opts.MaxPoints {
		res.Truncated = len(res.Points) - p.opts.MaxPoints
		res.Points = res.Points[:p.opts.MaxPoints:p.opts.MaxPoints]
		monitoring.InstrumentPoints(monitoring.StageTruncated, res.Truncated)
	}

	for _, pt := range res.Points {
		res.Sources.Add(pt.SourceID)
	}

	monitoring.InstrumentRun(start)
	opsf("run: sources=%d contributing=%d candidates=%d kept=%d merged=%d truncated=%d output=%d in %v",
		len(sources), res.Sources.Cardinality(), res.Candidates, res.Kept, res.Merged, res.Truncated,
		len(res.Points), time.Since(start))
	return res, nil
}

// prepare validates the run inputs and builds the world frustum.
func (p *Pipeline) prepare(sources []lidar.Source, cam *geometry.CameraView) (geometry.ConvexVolume, r3.Vec, error) {
	if len(sources) == 0 {
		return geometry.ConvexVolume{}, r3.Vec{}, ErrNoSources
	}
	if cam == nil {
		return geometry.ConvexVolume{}, r3.Vec{}, ErrNoCamera
	}
	for i, s := range sources {
		if s == nil {
			return geometry.ConvexVolume{}, r3.Vec{}, invalid("source %d is nil", i)
		}
	}
	if err := p.opts.Validate(); err != nil {
		return geometry.ConvexVolume{}, r3.Vec{}, err
	}
	world, err := worldFrustum(*cam, p.opts.FrustumFar)
	if err != nil {
		return geometry.ConvexVolume{}, r3.Vec{}, err
	}
	return world, cam.Position, nil
}

func worldFrustum(cam geometry.CameraView, far float64) (geometry.ConvexVolume, error) {
	if far > 0 {
		cam = cam.WithFar(far)
	}
	world, err := geometry.BuildFrustum(cam)
	if err != nil {
		return geometry.ConvexVolume{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return world, nil
}

// processSource runs the per-source stages: bounds reject, frustum
// transform, query, distance and LOD.
func (p *Pipeline) processSource(ctx context.Context, src lidar.Source, world geometry.ConvexVolume, camPos r3.Vec, decimateWorkers int) (sourceOutput, error) {
	start := time.Now()
	out := sourceOutput{stats: SourceStats{ID: src.ID()}}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	if !visibleBounds(src, world) {
		out.stats.Culled = true
		out.stats.Duration = time.Since(start)
		monitoring.InstrumentSource(monitoring.OutcomeCulled)
		diagf("source %s: culled by bounds", src.ID())
		return out, nil
	}

	t := src.Transform()
	local, err := t.ToLocal(world)
	if err != nil {
		return out, err
	}
	cands, err := src.Query(ctx, local, p.opts.VisibleOnly)
	if err != nil {
		return out, fmt.Errorf("query: %w", err)
	}
	monitoring.InstrumentSource(monitoring.OutcomeQueried)

	worldPos := make([]r3.Vec, len(cands))
	dists := make([]float64, len(cands))
	for i, c := range cands {
		worldPos[i] = t.WorldPoint(c.Position)
		dists[i] = r3.Norm(r3.Sub(worldPos[i], camPos))
	}
	kept := lod.Decimate(dists, p.opts.LOD, decimateWorkers)

	out.records = make([]lidar.PointRecord, len(kept))
	for j, i := range kept {
		c := cands[i]
		out.records[j] = lidar.PointRecord{
			World:     worldPos[i],
			Local:     t.LocalPoint(c.Position),
			Color:     c.Color,
			Intensity: c.Intensity,
			SourceID:  src.ID(),
			Weight:    1,
		}
	}
	out.stats.Candidates = len(cands)
	out.stats.Kept = len(kept)
	out.stats.Duration = time.Since(start)
	diagf("source %s: candidates=%d kept=%d in %v", src.ID(), len(cands), len(kept), out.stats.Duration)
	return out, nil
}

// visibleBounds is the coarse reject: false only when the source's world
// box is entirely outside one frustum plane, or the source is empty.
func visibleBounds(src lidar.Source, world geometry.ConvexVolume) bool {
	b := lidar.WorldBounds(src)
	return !b.IsEmpty() && world.IntersectsBox(b)
}
