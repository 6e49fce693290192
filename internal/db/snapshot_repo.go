package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"bloomwatch/internal/types"
)

// SnapshotRepository provides data access for the snapshots table: one row
// per completed analysis. The per-site score series it stores is what feeds
// the trend engine on later runs.
type SnapshotRepository struct {
	db DBTX
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given
// database connection (pool or transaction).
func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapColumns = `n.id, n.site_id, n.location_lat, n.location_lon,
	n.risk_score, n.risk_level, n.who_severity, n.mu_per_day, n.confidence,
	n.payload, n.created_at`

func scanSnapshot(row pgx.Row) (*types.Snapshot, error) {
	var snap types.Snapshot
	err := row.Scan(
		&snap.ID,
		&snap.SiteID,
		&snap.Location.Lat,
		&snap.Location.Lon,
		&snap.RiskScore,
		&snap.RiskLevel,
		&snap.WHOSeverity,
		&snap.MuPerDay,
		&snap.Confidence,
		&snap.Payload,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Insert stores a snapshot. The caller must set the ID and Payload (the full
// analysis result as JSON) before calling.
func (r *SnapshotRepository) Insert(ctx context.Context, snap *types.Snapshot) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO snapshots (
			id, site_id, location_lat, location_lon,
			risk_score, risk_level, who_severity, mu_per_day, confidence,
			payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, NOW()))`,
		snap.ID,
		snap.SiteID,
		snap.Location.Lat,
		snap.Location.Lon,
		snap.RiskScore,
		snap.RiskLevel,
		snap.WHOSeverity,
		snap.MuPerDay,
		snap.Confidence,
		snap.Payload,
		nilIfZeroTime(snap.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert snapshot", err)
	}
	return nil
}

// ListBySite returns the most recent snapshots for a site, newest first.
// limit defaults to 30 and is capped at 100.
func (r *SnapshotRepository) ListBySite(ctx context.Context, siteID string, limit int) ([]*types.Snapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+snapColumns+`
		 FROM snapshots n
		 WHERE n.site_id = $1
		 ORDER BY n.created_at DESC
		 LIMIT $2`,
		siteID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list snapshots", err)
	}
	defer rows.Close()

	var results []*types.Snapshot
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan snapshot row", scanErr)
		}
		results = append(results, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating snapshot rows", err)
	}

	return results, nil
}

// RecentScores returns the last `limit` risk scores for a site ordered oldest
// first, the shape the trend engine consumes.
func (r *SnapshotRepository) RecentScores(ctx context.Context, siteID string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 30
	}

	rows, err := r.db.Query(ctx,
		`SELECT risk_score FROM (
			SELECT risk_score, created_at
			FROM snapshots
			WHERE site_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		siteID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query recent scores", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan score row", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating score rows", err)
	}

	return scores, nil
}

// ListOlderThan returns up to `limit` snapshots created before the cutoff,
// oldest first. The archiver drains old rows through this in batches.
func (r *SnapshotRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*types.Snapshot, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+snapColumns+`
		 FROM snapshots n
		 WHERE n.created_at < $1
		 ORDER BY n.created_at ASC
		 LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list expired snapshots", err)
	}
	defer rows.Close()

	var results []*types.Snapshot
	for rows.Next() {
		snap, scanErr := scanSnapshot(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan snapshot row", scanErr)
		}
		results = append(results, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating snapshot rows", err)
	}

	return results, nil
}

// DeleteByIDs removes snapshots by ID and returns the number deleted. Called
// by the archiver only after the batch has been written to the archive.
func (r *SnapshotRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx,
		`DELETE FROM snapshots WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete archived snapshots", err)
	}
	return tag.RowsAffected(), nil
}

// nilIfZeroTime maps the zero time to nil so the database default applies.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
