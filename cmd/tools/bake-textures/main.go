// Command bake-textures packs a whole point source into a position and
// colour texture pair.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lodexport/internal/fsutil"
	"github.com/banshee-data/lodexport/internal/lidar/export"
	"github.com/banshee-data/lodexport/internal/lidar/serialize"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

func main() {
	lasPath := flag.String("las", "", "LAS file to bake")
	lasUnits := flag.String("units", "m", "LAS length unit: cm, m, mm, ft")
	dbPath := flag.String("db", "", "SQLite point store (with -id)")
	id := flag.String("id", "", "source id (stored source, or name for a LAS file)")
	outDir := flag.String("out", "textures", "output directory")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := monitoring.Init(*logLevel, ""); err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}
	defer monitoring.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := openSource(ctx, sourceFlags{LAS: *lasPath, Units: *lasUnits, DB: *dbPath, ID: *id})
	if err != nil {
		log.Fatalf("failed to open source: %v", err)
	}
	defer closeSrc()

	assets := serialize.NewAssetStore(fsutil.OSFileSystem{}, *outDir)
	rep, err := export.BakeSourceTextures(ctx, src, assets)
	if err != nil {
		log.Fatalf("bake failed: %v", err)
	}
	log.Printf("done: %d points as %dx%d -> %s, %s", rep.Points, rep.Side, rep.Side, rep.PositionTexture, rep.ColorTexture)
}
