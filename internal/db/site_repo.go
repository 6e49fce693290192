package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"bloomwatch/internal/types"
)

// SiteRepository provides data access for the sites table: the registry of
// water bodies the poller re-analyzes on schedule.
type SiteRepository struct {
	db DBTX
}

// NewSiteRepository creates a SiteRepository backed by the given database
// connection (pool or transaction).
func NewSiteRepository(db DBTX) *SiteRepository {
	return &SiteRepository{db: db}
}

const siteColumns = `s.id, s.name, s.location_lat, s.location_lon, s.location_display_name,
	s.active, s.created_at, s.updated_at`

func scanSite(row pgx.Row) (*types.Site, error) {
	var site types.Site
	var displayName *string

	err := row.Scan(
		&site.ID,
		&site.Name,
		&site.Location.Lat,
		&site.Location.Lon,
		&displayName,
		&site.Active,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if displayName != nil {
		site.Location.DisplayName = *displayName
	}
	return &site, nil
}

// Create inserts a new site. The caller must set the ID before calling.
func (r *SiteRepository) Create(ctx context.Context, site *types.Site) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sites (
			id, name, location_lat, location_lon, location_display_name,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
		site.ID,
		site.Name,
		site.Location.Lat,
		site.Location.Lon,
		nilIfEmpty(site.Location.DisplayName),
		site.Active,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create site", err)
	}
	return nil
}

// GetByID retrieves a site by its ID. Returns ErrCodeNotFoundSite if no such
// site exists.
func (r *SiteRepository) GetByID(ctx context.Context, id string) (*types.Site, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+siteColumns+` FROM sites s WHERE s.id = $1`,
		id,
	)

	site, err := scanSite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve site", err)
	}
	return site, nil
}

// ListActive returns every active site ordered by creation time. This is the
// poller's work list, so there is no pagination; deployments monitor tens of
// sites, not thousands.
func (r *SiteRepository) ListActive(ctx context.Context) ([]*types.Site, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+siteColumns+`
		 FROM sites s
		 WHERE s.active
		 ORDER BY s.created_at`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active sites", err)
	}
	defer rows.Close()

	var results []*types.Site
	for rows.Next() {
		site, scanErr := scanSite(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan site row", scanErr)
		}
		results = append(results, site)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating site rows", err)
	}

	return results, nil
}

// SetActive flips a site's active flag. Returns ErrCodeNotFoundSite when the
// site does not exist.
func (r *SiteRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sites SET active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update site", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
	}
	return nil
}

// nilIfEmpty maps an empty string to nil for nullable text columns.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
