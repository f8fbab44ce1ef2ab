package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/geometry"
	"github.com/banshee-data/lodexport/internal/monitoring"
	"github.com/banshee-data/lodexport/internal/timeutil"
)

// ErrSourceNotFound is returned when a source ID has no stored rows.
var ErrSourceNotFound = errors.New("point source not found")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Store wraps a SQLite database holding point sources and export runs.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (or creates) the database at path, applies connection
// pragmas and migrates the schema to the latest version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps the pragmas (and ":memory:" databases) consistent.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used for row timestamps.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SourceInfo describes one stored point source.
type SourceInfo struct {
	ID         string
	Transform  geometry.SourceTransform
	Bounds     geometry.Box
	PointCount int
	CreatedAt  time.Time
}

// ImportSource replaces the source id with the given points. Points keep
// their slice order, which is the order later queries return them in.
func (s *Store) ImportSource(ctx context.Context, id string, t geometry.SourceTransform, pts []lidar.StoredPoint) (err error) {
	if id == "" {
		return errors.New("import source: empty id")
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("import source %s: %w", id, err)
	}
	transformJSON, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("import source %s: marshal transform: %w", id, err)
	}

	bounds := geometry.EmptyBox()
	for _, p := range pts {
		bounds = bounds.Extend(p.Position)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM point_sources WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("import source %s: %w", id, err)
	}
	minX, minY, minZ, maxX, maxY, maxZ := boxColumns(bounds)
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO point_sources (
			source_id, transform_json, min_x, min_y, min_z, max_x, max_y, max_z,
			point_count, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(transformJSON), minX, minY, minZ, maxX, maxY, maxZ,
		len(pts), s.clock.Now().UnixNano(),
	); err != nil {
		return fmt.Errorf("import source %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO source_points (source_id, seq, x, y, z, r, g, b, intensity, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("import source %s: %w", id, err)
	}
	defer stmt.Close()

	for i, p := range pts {
		if i&0xffff == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}
		if _, err = stmt.ExecContext(ctx, id, i,
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Color.R, p.Color.G, p.Color.B, p.Intensity, p.Hidden,
		); err != nil {
			return fmt.Errorf("import source %s point %d: %w", id, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("import source %s: commit: %w", id, err)
	}
	monitoring.Logf("[store] imported source %s: %d points", id, len(pts))
	return nil
}

// DeleteSource removes a source and its points.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM point_sources WHERE source_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	return nil
}

const sourceColumns = `source_id, transform_json, min_x, min_y, min_z, max_x, max_y, max_z, point_count, created_unix_nanos`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSourceInfo(row rowScanner) (SourceInfo, error) {
	var (
		info          SourceInfo
		transformJSON string
		minX, minY    sql.NullFloat64
		minZ, maxX    sql.NullFloat64
		maxY, maxZ    sql.NullFloat64
		created       int64
	)
	if err := row.Scan(&info.ID, &transformJSON, &minX, &minY, &minZ, &maxX, &maxY, &maxZ, &info.PointCount, &created); err != nil {
		return SourceInfo{}, err
	}
	if err := json.Unmarshal([]byte(transformJSON), &info.Transform); err != nil {
		return SourceInfo{}, fmt.Errorf("source %s: decode transform: %w", info.ID, err)
	}
	info.Bounds = geometry.EmptyBox()
	if minX.Valid && minY.Valid && minZ.Valid && maxX.Valid && maxY.Valid && maxZ.Valid {
		info.Bounds.Min.X, info.Bounds.Min.Y, info.Bounds.Min.Z = minX.Float64, minY.Float64, minZ.Float64
		info.Bounds.Max.X, info.Bounds.Max.Y, info.Bounds.Max.Z = maxX.Float64, maxY.Float64, maxZ.Float64
	}
	info.CreatedAt = time.Unix(0, created)
	return info, nil
}

// ListSources returns every stored source ordered by ID.
func (s *Store) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM point_sources ORDER BY source_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []SourceInfo
	for rows.Next() {
		info, err := scanSourceInfo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Source returns the stored source id as a lidar.Source.
func (s *Store) Source(ctx context.Context, id string) (*PointSource, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM point_sources WHERE source_id = ?`, id)
	info, err := scanSourceInfo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", id, err)
	}
	return &PointSource{store: s, info: info}, nil
}

// boxColumns returns the bound columns for a box, NULL for an empty one.
func boxColumns(b geometry.Box) (minX, minY, minZ, maxX, maxY, maxZ interface{}) {
	if b.IsEmpty() {
		return nil, nil, nil, nil, nil, nil
	}
	return b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z
}
