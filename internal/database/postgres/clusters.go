package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/photo-moments/internal/database"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

// ClusterRepository stores the curation snapshot in PostgreSQL
type ClusterRepository struct {
	pool *Pool
}

// NewClusterRepository creates a new PostgreSQL cluster repository
func NewClusterRepository(pool *Pool) *ClusterRepository {
	return &ClusterRepository{pool: pool}
}

// SaveClusters replaces all stored clusters in a single transaction
func (r *ClusterRepository) SaveClusters(ctx context.Context, snap database.Snapshot) error {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clusters"); err != nil {
		return fmt.Errorf("clear clusters: %w", err)
	}

	clusterStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO clusters (id, position, selection_mode, pinned_photo_id, selected_photo_id, selection_reason, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("prepare cluster insert: %w", err)
	}
	defer clusterStmt.Close()

	photoStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cluster_photos (cluster_id, photo_id, position, taken_at, data)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare photo insert: %w", err)
	}
	defer photoStmt.Close()

	for i, c := range snap.Clusters {
		start, end := c.TimeRange()
		_, err := clusterStmt.ExecContext(ctx, c.ID, i, string(c.Selection.Mode),
			nullString(c.Selection.PinnedPhotoID), nullString(c.Selection.PhotoID),
			nullString(string(c.Selection.Reason)), start, end)
		if err != nil {
			return fmt.Errorf("insert cluster %s: %w", c.ID, err)
		}
		for j, p := range c.Photos {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("encode photo %s: %w", p.ID, err)
			}
			if _, err := photoStmt.ExecContext(ctx, c.ID, p.ID, j, p.TakenAt, data); err != nil {
				return fmt.Errorf("insert photo %s: %w", p.ID, err)
			}
		}
	}

	sourceIDs := snap.SourcePhotoIDs
	if sourceIDs == nil {
		sourceIDs = []string{}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO curation_state (id, has_ever_analyzed, analyzed_at, source_photo_ids)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			has_ever_analyzed = EXCLUDED.has_ever_analyzed,
			analyzed_at = EXCLUDED.analyzed_at,
			source_photo_ids = EXCLUDED.source_photo_ids
	`, snap.HasEverAnalyzed, snap.AnalyzedAt, pq.Array(sourceIDs))
	if err != nil {
		return fmt.Errorf("update curation state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clusters: %w", err)
	}
	return nil
}

// LoadClusters returns the stored snapshot, database.ErrNotFound when none was saved
func (r *ClusterRepository) LoadClusters(ctx context.Context) (*database.Snapshot, error) {
	var snap database.Snapshot
	var analyzedAt sql.NullTime
	err := r.pool.QueryRow(ctx, `
		SELECT has_ever_analyzed, analyzed_at, source_photo_ids FROM curation_state WHERE id = 1
	`).Scan(&snap.HasEverAnalyzed, &analyzedAt, pq.Array(&snap.SourcePhotoIDs))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query curation state: %w", err)
	}
	snap.AnalyzedAt = analyzedAt.Time

	rows, err := r.pool.Query(ctx, `
		SELECT id, selection_mode, COALESCE(pinned_photo_id, ''), COALESCE(selected_photo_id, ''), COALESCE(selection_reason, '')
		FROM clusters ORDER BY position
	`)
	if err != nil {
		return nil, err
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

	photoRows, err := r.pool.Query(ctx, `
		SELECT cluster_id, data FROM cluster_photos ORDER BY cluster_id, position
	`)
	if err != nil {
		return nil, err
	}
	defer photoRows.Close()
	for photoRows.Next() {
		var clusterID string
		var data []byte
		if err := photoRows.Scan(&clusterID, &data); err != nil {
			return nil, fmt.Errorf("scan cluster photo: %w", err)
		}
		i, ok := index[clusterID]
		if !ok {
			continue
		}
		var p photo.Photo
		if err := json.Unmarshal(data, &p); err != nil {
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
func (r *ClusterRepository) HasEverAnalyzed(ctx context.Context) (bool, error) {
	var analyzed bool
	err := r.pool.QueryRow(ctx, "SELECT has_ever_analyzed FROM curation_state WHERE id = 1").Scan(&analyzed)
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
