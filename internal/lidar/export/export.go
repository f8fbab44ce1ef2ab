package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/lodexport/internal/fsutil"
	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/lidar/pipeline"
	"github.com/banshee-data/lodexport/internal/lidar/serialize"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

// ErrPersistence wraps failures to write the output file or textures.
// The message names the target path.
var ErrPersistence = errors.New("persistence failure")

// RunRecorder keeps a history of export runs. *sqlite.Store implements it.
type RunRecorder interface {
	StartRun(ctx context.Context, outputPath string, params interface{}) (string, error)
	FinishRun(ctx context.Context, runID string, sum sqlite.RunSummary, runErr error) error
}

// Request describes one export.
type Request struct {
	Sources    []lidar.Source
	Camera     *geometry.CameraView
	OutputPath string

	Options pipeline.Options
	ASCII   serialize.ASCIIOptions

	// ExportTextures also packs the output into a texture pair in Assets.
	ExportTextures bool
	Assets         *serialize.AssetStore

	// FS defaults to the OS filesystem.
	FS fsutil.FileSystem
	// Runs, when set, records the run and its outcome.
	Runs RunRecorder
}

// Report describes a successful export.
type Report struct {
	RunID      string
	OutputPath string
	Written    int
	Result     *pipeline.Result

	PositionTexture string
	ColorTexture    string
	Duration        time.Duration
}

// runParams is the JSON shape stored with each run.
type runParams struct {
	Options        pipeline.Options       `json:"options"`
	ASCII          serialize.ASCIIOptions `json:"ascii"`
	Camera         geometry.CameraView    `json:"camera"`
	Sources        []string               `json:"sources"`
	ExportTextures bool                   `json:"export_textures"`
}

// Validate checks the request without touching any storage.
// Failures wrap pipeline.ErrInvalidInput.
func (r *Request) Validate() error {
	if len(r.Sources) == 0 {
		return pipeline.ErrNoSources
	}
	if r.Camera == nil {
		return pipeline.ErrNoCamera
	}
	if r.OutputPath == "" {
		return fmt.Errorf("%w: empty output path", pipeline.ErrInvalidInput)
	}
	if err := r.Options.Validate(); err != nil {
		return err
	}
	if err := r.ASCII.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInvalidInput, err)
	}
	if r.ExportTextures && r.Assets == nil {
		return fmt.Errorf("%w: texture export needs an asset directory", pipeline.ErrInvalidInput)
	}
	return nil
}

func (r *Request) fs() fsutil.FileSystem {
	if r.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return r.FS
}

// ExportVisiblePoints runs the pipeline for req and writes its output.
// It returns a report on success; on failure nothing it wrote is left
// behind.
func ExportVisiblePoints(ctx context.Context, req Request) (_ *Report, err error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		monitoring.Logf("[export] rejected request: %v", err)
		return nil, err
	}

	out := &Report{OutputPath: req.OutputPath}
	if req.Runs != nil {
		runID, serr := req.Runs.StartRun(ctx, req.OutputPath, newRunParams(req))
		if serr != nil {
			monitoring.Logf("[export] run history unavailable: %v", serr)
		} else {
			out.RunID = runID
			defer func() {
				if ferr := req.Runs.FinishRun(context.WithoutCancel(ctx), runID, out.summary(), err); ferr != nil {
					monitoring.Logf("[export] failed to record run %s: %v", runID, ferr)
				}
			}()
		}
	}

	out.Result, err = pipeline.New(req.Options).Run(ctx, req.Sources, req.Camera)
	if err != nil {
		monitoring.Logf("[export] %s: %v", req.OutputPath, err)
		return nil, err
	}

	if err = writeASCII(req, out.Result.Points); err != nil {
		return nil, err
	}
	out.Written = len(out.Result.Points)

	if req.ExportTextures {
		out.PositionTexture, out.ColorTexture, err = writeTextures(req, out.Result)
		if err != nil {
			req.fs().Remove(req.OutputPath)
			out.Written = 0
			return nil, err
		}
	}

	monitoring.InstrumentPoints(monitoring.StageWritten, out.Written)
	out.Duration = time.Since(start)
	monitoring.Logf("[export] wrote %d points from %d sources to %s in %v",
		out.Written, out.Result.Sources.Cardinality(), req.OutputPath, out.Duration)
	return out, nil
}

func writeASCII(req Request, pts []lidar.PointRecord) error {
	data, err := serialize.FormatASCII(pts, req.ASCII)
	if err != nil {
		return fmt.Errorf("%w: render %s: %w", ErrPersistence, req.OutputPath, err)
	}
	fs := req.fs()
	if dir := filepath.Dir(req.OutputPath); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create directory for %s: %w", ErrPersistence, req.OutputPath, err)
		}
	}
	// A file that was already there belongs to an earlier export; only a
	// file this write created is cleaned up.
	existed := fs.Exists(req.OutputPath)
	if err := fs.WriteFile(req.OutputPath, data, 0o644); err != nil {
		if !existed && fs.Exists(req.OutputPath) {
			fs.Remove(req.OutputPath)
		}
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, req.OutputPath, err)
	}
	return nil
}

// writeTextures names the pair after the source of the first output point.
func writeTextures(req Request, res *pipeline.Result) (string, string, error) {
	base := res.Points[0].SourceID
	raster := serialize.PackRaster(res.Points, req.ASCII.WorldSpace)
	pos, col, err := req.Assets.SaveRaster(base, raster)
	if err != nil {
		return "", "", fmt.Errorf("%w: textures in %s: %w", ErrPersistence, req.Assets.Dir(), err)
	}
	return pos, col, nil
}

func newRunParams(req Request) runParams {
	p := runParams{
		Options:        req.Options,
		ASCII:          req.ASCII,
		Camera:         *req.Camera,
		ExportTextures: req.ExportTextures,
	}
	for _, s := range req.Sources {
		if s != nil {
			p.Sources = append(p.Sources, s.ID())
		}
	}
	return p
}

func (r *Report) summary() sqlite.RunSummary {
	if r.Result == nil {
		return sqlite.RunSummary{}
	}
	sum := sqlite.RunSummary{
		Candidates: r.Result.Candidates,
		Kept:       r.Result.Kept,
		Merged:     r.Result.Merged,
		Truncated:  r.Result.Truncated,
		Written:    r.Written,
	}
	for _, s := range r.Result.PerSource {
		sum.Sources = append(sum.Sources, sqlite.RunSource{
			SourceID:   s.ID,
			Culled:     s.Culled,
			Candidates: s.Candidates,
			Kept:       s.Kept,
			Duration:   s.Duration,
		})
	}
	return sum
}
