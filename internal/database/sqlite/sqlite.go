// Package sqlite implements the cluster store on a local SQLite file, the
// default backend when no PostgreSQL URL is configured.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/logger"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a database.ClusterStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database file and applies migrations.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	m := &database.Migrator{DB: db, FS: migrationsFS, Dir: "migrations", Placeholder: "?", Log: log}
	if err := m.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveClusters replaces all stored clusters in a single transaction
func (s *Store) SaveClusters(ctx context.Context, snap database.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clusters"); err != nil {
		return fmt.Errorf("clear clusters: %w", err)
	}

	for i, c := range snap.Clusters {
		start, end := c.TimeRange()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO clusters (id, position, selection_mode, pinned_photo_id, selected_photo_id, selection_reason, start_at, end_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, i, string(c.Selection.Mode), nullString(c.Selection.PinnedPhotoID), nullString(c.Selection.PhotoID),
			nullString(string(c.Selection.Reason)), formatTime(start), formatTime(end))
		if err != nil {
			return fmt.Errorf("insert cluster %s: %w", c.ID, err)
		}
		for j, p := range c.Photos {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode photo %s: %w", p.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cluster_photos (cluster_id, photo_id, position, taken_at, data) VALUES (?, ?, ?, ?, ?)
			`, c.ID, p.ID, j, formatTime(p.TakenAt), string(data))
			if err != nil {
				return fmt.Errorf("insert photo %s: %w", p.ID, err)
			}
		}
	}

	sourceIDs := snap.SourcePhotoIDs
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	ids, err := json.Marshal(sourceIDs)
	if err != nil {
		return fmt.Errorf("encode source ids: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO curation_state (id, has_ever_analyzed, analyzed_at, source_photo_ids)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			has_ever_analyzed = excluded.has_ever_analyzed,
			analyzed_at = excluded.analyzed_at,
			source_photo_ids = excluded.source_photo_ids
	`, snap.HasEverAnalyzed, formatTime(snap.AnalyzedAt), string(ids))
	if err != nil {
		return fmt.Errorf("update curation state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clusters: %w", err)
	}
	return nil
}

// LoadClusters returns the stored snapshot, database.ErrNotFound when none was saved
func (s *Store) LoadClusters(ctx context.Context) (*database.Snapshot, error) {
	var snap database.Snapshot
	var analyzedAt sql.NullString
	var ids string
	err := s.db.QueryRowContext(ctx, `
		SELECT has_ever_analyzed, analyzed_at, source_photo_ids FROM curation_state WHERE id = 1
	`).Scan(&snap.HasEverAnalyzed, &analyzedAt, &ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query curation state: %w", err)
	}
	if snap.AnalyzedAt, err = parseTime(analyzedAt.String); err != nil {
		return nil, fmt.Errorf("parse analyzed_at: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &snap.SourcePhotoIDs); err != nil {
		return nil, fmt.Errorf("decode source ids: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, selection_mode, COALESCE(pinned_photo_id, ''), COALESCE(selected_photo_id, ''), COALESCE(selection_reason, '')
		FROM clusters ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var c photo.PhotoCluster
		var mode, reason string
		if err := rows.Scan(&c.ID, &mode, &c.Selection.PinnedPhotoID, &c.Selection.PhotoID, &reason); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		c.Selection.Mode = photo.SelectionMode(mode)
		c.Selection.Reason = photo.SelectionReason(reason)
		index[c.ID] = len(snap.Clusters)
		snap.Clusters = append(snap.Clusters, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}

	photoRows, err := s.db.QueryContext(ctx, "SELECT cluster_id, data FROM cluster_photos ORDER BY cluster_id, position")
	if err != nil {
		return nil, fmt.Errorf("query cluster photos: %w", err)
	}
	defer photoRows.Close()
	for photoRows.Next() {
		var clusterID, data string
		if err := photoRows.Scan(&clusterID, &data); err != nil {
			return nil, fmt.Errorf("scan cluster photo: %w", err)
		}
		i, ok := index[clusterID]
		if !ok {
			continue
		}
		var p photo.Photo
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode photo in cluster %s: %w", clusterID, err)
		}
		snap.Clusters[i].Photos = append(snap.Clusters[i].Photos, p)
	}
	if err := photoRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster photos: %w", err)
	}
	return &snap, nil
}

// HasEverAnalyzed reports whether an analysis was ever saved
func (s *Store) HasEverAnalyzed(ctx context.Context) (bool, error) {
	var analyzed bool
	err := s.db.QueryRowContext(ctx, "SELECT has_ever_analyzed FROM curation_state WHERE id = 1").Scan(&analyzed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query curation state: %w", err)
	}
	return analyzed, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
