// Command import-las copies a LAS file into the SQLite point store so
// exports can read it as a stored source.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/lodexport/internal/lidar/storage/sqlite"
	"github.com/banshee-data/lodexport/internal/monitoring"
)

func main() {
	dbPath := flag.String("db", "points.db", "path to sqlite DB file")
	lasPath := flag.String("las", "", "LAS file to import")
	id := flag.String("id", "", "source id (default: LAS file name)")
	lasUnits := flag.String("units", "m", "LAS length unit: cm, m, mm, ft")
	location := flag.String("location", "0,0,0", "world location x,y,z")
	rotation := flag.String("rotation", "0,0,0", "rotation yaw,pitch,roll in degrees")
	scale := flag.String("scale", "1,1,1", "per-axis scale x,y,z")
	offset := flag.String("offset", "0,0,0", "local sub-origin x,y,z")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := monitoring.Init(*logLevel, ""); err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}
	defer monitoring.Sync()

	if *lasPath == "" {
		log.Fatal("-las is required")
	}
	placement, err := parsePlacement(*location, *rotation, *scale, *offset)
	if err != nil {
		log.Fatalf("invalid placement: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open store %s: %v", *dbPath, err)
	}
	defer store.Close()

	n, err := RunImport(ctx, store, ImportOptions{
		ID:        *id,
		LASPath:   *lasPath,
		Units:     *lasUnits,
		Transform: placement,
	})
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	log.Printf("done: imported %d points from %s", n, *lasPath)
}
