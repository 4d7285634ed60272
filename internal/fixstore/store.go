// Package fixstore keeps a SQLite log of fix reports.
package fixstore

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"nmeafix/internal/gps"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for logged fixes.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fixes (
			id INTEGER PRIMARY KEY,
			recorded_at TEXT NOT NULL,
			fix_utc TEXT NOT NULL,
			valid INTEGER NOT NULL,
			lat_deg REAL NOT NULL,
			lon_deg REAL NOT NULL,
			alt_m REAL NOT NULL,
			speed_kph REAL NOT NULL,
			track_deg REAL NOT NULL,
			mode INTEGER NOT NULL,
			signal INTEGER NOT NULL,
			sats_in_use INTEGER NOT NULL,
			hdop REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fixes_fix_utc ON fixes(fix_utc);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores one fix and returns its row id.
func (s *Store) Insert(ctx context.Context, recordedAt time.Time, fix gps.Fix) (int64, error) {
	valid := 0
	if fix.Valid {
		valid = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fixes (recorded_at, fix_utc, valid, lat_deg, lon_deg, alt_m, speed_kph, track_deg, mode, signal, sats_in_use, hdop)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordedAt.UTC().Format(time.RFC3339Nano),
		fix.Time,
		valid,
		fix.LatDeg,
		fix.LonDeg,
		fix.AltM,
		fix.SpeedKPH,
		fix.TrackDeg,
		fix.Mode,
		fix.Signal,
		fix.SatsInUse,
		fix.HDOP,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recent returns up to limit fixes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]gps.Fix, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fix_utc, valid, lat_deg, lon_deg, alt_m, speed_kph, track_deg, mode, signal, sats_in_use, hdop
		 FROM fixes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gps.Fix
	for rows.Next() {
		var f gps.Fix
		var valid int
		if err := rows.Scan(&f.Time, &valid, &f.LatDeg, &f.LonDeg, &f.AltM, &f.SpeedKPH, &f.TrackDeg, &f.Mode, &f.Signal, &f.SatsInUse, &f.HDOP); err != nil {
			return nil, err
		}
		f.Valid = valid != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// Latest returns the newest fix. ok is false when the log is empty.
func (s *Store) Latest(ctx context.Context) (fix gps.Fix, ok bool, err error) {
	fixes, err := s.Recent(ctx, 1)
	if err != nil || len(fixes) == 0 {
		return gps.Fix{}, false, err
	}
	return fixes[0], true, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fixes`).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Run logs the current fix every interval until ctx is done. A fix is stored
// once per distinct fix time.
func (s *Store) Run(ctx context.Context, interval time.Duration, current func() gps.Fix) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			fix := current()
			if fix.Time == "" || fix.Time == last {
				continue
			}
			if _, err := s.Insert(ctx, now, fix); err != nil {
				if ctx.Err() == nil {
					log.Printf("fixstore insert failed: %v", err)
				}
				continue
			}
			last = fix.Time
		}
	}
}
