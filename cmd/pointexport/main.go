// Command pointexport writes the points of a scene that a camera can see,
// thinned by distance, to an ASCII point file and optional textures.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/banshee-data/lodexport/internal/config"
	"github.com/banshee-data/lodexport/internal/fsutil"
	"github.com/banshee-data/lodexport/internal/lidar/debug"
	"github.com/banshee-data/lodexport/internal/lidar/export"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
	"github.com/banshee-data/lodexport/internal/lidar/pipeline"
	"github.com/banshee-data/lodexport/internal/lidar/serialize"
	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/monitoring"
	"github.com/banshee-data/lodexport/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to the export config (.json, .yaml or .yml)")
	outPath       = flag.String("out", "", "Output point file (overrides output_path)")
	storePath     = flag.String("store", "", "SQLite point store for stored sources and run history")
	texturesDir   = flag.String("textures-dir", "", "Texture directory (default: next to the output file)")
	logLevel      = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFile       = flag.String("log-file", "", "Also log to this file, rotated")
	plotLOD       = flag.String("plot-lod", "", "Save a plot of the LOD skip curve to this file")
	plotDistances = flag.String("plot-distances", "", "Save a histogram of exported point distances to this file")
	listVisible   = flag.Bool("list-visible", false, "List visible sources and predicted point counts, then exit")
	metricsDump   = flag.Bool("metrics-dump", false, "Log pipeline metrics before exiting")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// Exit codes.
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitEmptyResult  = 3
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("pointexport"))
		return
	}
	if err := monitoring.Init(*logLevel, *logFile); err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()

	if *metricsDump {
		if derr := monitoring.DumpMetrics(); derr != nil {
			monitoring.Logf("metrics dump failed: %v", derr)
		}
	}
	if err != nil {
		monitoring.Logf("pointexport: %v", err)
		monitoring.Sync()
		os.Exit(exitCode(err))
	}
	monitoring.Sync()
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return exitInvalidInput
	case errors.Is(err, pipeline.ErrEmptyResult):
		return exitEmptyResult
	}
	return exitFailure
}

// loadConfig reads and validates the export config. Every failure is
// reported as invalid input.
func loadConfig(path string) (*config.ExportConfig, error) {
	cfg, err := config.LoadExportConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", pipeline.ErrInvalidInput, path, err)
	}
	return cfg, nil
}

func run(ctx context.Context) error {
	if *configPath == "" {
		if *plotLOD != "" {
			return debug.PlotSkipCurve(lod.DefaultParams(), *plotLOD)
		}
		return fmt.Errorf("%w: -config is required", pipeline.ErrInvalidInput)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *plotLOD != "" {
		if err := debug.PlotSkipCurve(cfg.LODParams(), *plotLOD); err != nil {
			return err
		}
		monitoring.Logf("wrote LOD curve to %s", *plotLOD)
	}

	var store *sqlite.Store
	if *storePath != "" {
		store, err = sqlite.Open(*storePath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	sources, err := openSources(ctx, cfg, store)
	if err != nil {
		return err
	}
	cam := cfg.CameraView()

	if *listVisible {
		params := cfg.LODParams()
		visible, stats, err := pipeline.VisibleSources(ctx, sources, cam, cfg.GetFrustumFar(), &params, cfg.GetVisibleOnly())
		if err != nil {
			return err
		}
		for _, s := range visible {
			fmt.Println(s.ID())
		}
		monitoring.Logf("%d of %d sources visible: %d points in frustum, %d after LOD",
			stats.Visible, stats.Considered, stats.Total, stats.Predicted)
		return nil
	}

	out := cfg.GetOutputPath()
	if *outPath != "" {
		out = *outPath
	}
	req := export.Request{
		Sources:        sources,
		Camera:         cam,
		OutputPath:     out,
		Options:        cfg.ToPipelineOptions(),
		ASCII:          cfg.ASCIIOptions(),
		ExportTextures: cfg.GetExportTextures(),
		FS:             fsutil.OSFileSystem{},
	}
	if req.ExportTextures {
		dir := *texturesDir
		if dir == "" {
			dir = filepath.Dir(out)
		}
		req.Assets = serialize.NewAssetStore(req.FS, dir)
	}
	if store != nil {
		req.Runs = store
	}

	rep, err := export.ExportVisiblePoints(ctx, req)
	if err != nil {
		return err
	}
	if *plotDistances != "" {
		if err := debug.PlotDistanceHistogram(rep.Result.Points, cam.Position, 50, *plotDistances); err != nil {
			return err
		}
	}
	fmt.Printf("%d points -> %s\n", rep.Written, rep.OutputPath)
	if rep.PositionTexture != "" {
		fmt.Printf("textures -> %s, %s\n", rep.PositionTexture, rep.ColorTexture)
	}
	return nil
}
