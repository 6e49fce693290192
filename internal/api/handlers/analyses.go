// Package handlers contains the HTTP handler implementations for the
// bloomwatch API: on-demand analyses, multi-site comparison, and the site
// registry with its snapshot history.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bloomwatch/internal/core"
	"bloomwatch/internal/model"
	"bloomwatch/internal/pipeline"
	"bloomwatch/internal/types"
)

// maxComparisonSites bounds one comparison request; each site costs up to
// four upstream fetches.
const maxComparisonSites = 10

// InputSource provides complete analysis inputs for a location. Implemented
// by external.InputFetcher.
type InputSource interface {
	Fetch(ctx context.Context, loc types.Location) (types.AnalysisInputs, error)
}

// SnapshotStore is the slice of the snapshot repository the analysis handler
// needs: persisting results and reading back the per-site score series.
type SnapshotStore interface {
	Insert(ctx context.Context, snap *types.Snapshot) error
	RecentScores(ctx context.Context, siteID string, limit int) ([]float64, error)
	ListBySite(ctx context.Context, siteID string, limit int) ([]*types.Snapshot, error)
}

// SiteStore is the slice of the site repository the handlers need.
type SiteStore interface {
	Create(ctx context.Context, site *types.Site) error
	GetByID(ctx context.Context, id string) (*types.Site, error)
	ListActive(ctx context.Context) ([]*types.Site, error)
}

// AnalysisHandler maps HTTP requests onto the analysis pipeline.
type AnalysisHandler struct {
	fetcher   InputSource
	sites     SiteStore
	snapshots SnapshotStore
	validator *core.Validator
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewAnalysisHandler creates an AnalysisHandler with the provided
// dependencies. sites and snapshots may be nil for storage-less deployments;
// site-scoped features then return validation errors.
func NewAnalysisHandler(
	fetcher InputSource,
	sites SiteStore,
	snapshots SnapshotStore,
	val *core.Validator,
	logger *slog.Logger,
) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		fetcher:   fetcher,
		sites:     sites,
		snapshots: snapshots,
		validator: val,
		logger:    logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts the analysis endpoints onto the v1 router.
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Post("/analyses", h.HandleCreateAnalysis)
	r.Post("/analyses/compare", h.HandleCompare)
	r.Get("/reference/who-thresholds", h.HandleWHOThresholds)
}

// HandleWHOThresholds handles GET /v1/reference/who-thresholds. The guidance
// table is static; clients use it to annotate severity displays.
func (h *AnalysisHandler) HandleWHOThresholds(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: model.WHOThresholds()})
}

// AnalyzeRequest is the POST /v1/analyses body. Either site_id or lat/lon
// must be provided. When inputs are omitted they are fetched from the
// upstream data sources.
type AnalyzeRequest struct {
	SiteID    string                `json:"site_id,omitempty"`
	Lat       *float64              `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon       *float64              `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Name      string                `json:"name,omitempty"`
	DayOfYear int                   `json:"day_of_year,omitempty" validate:"day_of_year"`
	Inputs    *types.AnalysisInputs `json:"inputs,omitempty"`
}

// HandleCreateAnalysis handles POST /v1/analyses:
//  1. Resolve the target location from site_id or lat/lon.
//  2. Use caller-supplied inputs, or fetch them from the upstream sources.
//  3. Hydrate the risk-score history from stored snapshots for the trend
//     engine.
//  4. Run the pipeline and, for registered sites, persist a snapshot.
func (h *AnalysisHandler) HandleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	loc, siteID, err := h.resolveLocation(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	inputs, err := h.resolveInputs(r.Context(), req, loc)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var warnings []string
	if siteID != "" && len(inputs.RiskHistory) == 0 && h.snapshots != nil {
		scores, histErr := h.snapshots.RecentScores(r.Context(), siteID, 30)
		if histErr != nil {
			h.logger.WarnContext(r.Context(), "failed to load score history",
				slog.String("site_id", siteID),
				slog.String("error", histErr.Error()),
			)
			warnings = append(warnings, "score history unavailable; trend computed without it")
		} else {
			inputs.RiskHistory = scores
		}
	}

	result := pipeline.Analyze(inputs, h.nowFn())
	result.SiteID = siteID

	if siteID != "" && h.snapshots != nil {
		if persistErr := h.persistSnapshot(r.Context(), siteID, result); persistErr != nil {
			h.logger.ErrorContext(r.Context(), "failed to persist snapshot",
				slog.String("site_id", siteID),
				slog.String("error", persistErr.Error()),
			)
			warnings = append(warnings, "analysis snapshot was not persisted")
		}
	}

	resp := core.APIResponse{Data: result}
	if len(warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: warnings}
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// resolveLocation yields the coordinates to analyze and the owning site ID,
// if any.
func (h *AnalysisHandler) resolveLocation(ctx context.Context, req AnalyzeRequest) (types.Location, string, error) {
	if req.SiteID != "" {
		if h.sites == nil {
			return types.Location{}, "", types.NewAppError(
				types.ErrCodeValidationBadRequest,
				"site_id is not supported without site storage",
				nil,
			)
		}
		site, err := h.sites.GetByID(ctx, req.SiteID)
		if err != nil {
			return types.Location{}, "", err
		}
		return site.Location, site.ID, nil
	}

	if req.Lat == nil || req.Lon == nil {
		return types.Location{}, "", types.NewAppError(
			types.ErrCodeValidationMissingField,
			"either site_id or lat and lon are required",
			nil,
		)
	}
	return types.Location{Lat: *req.Lat, Lon: *req.Lon, DisplayName: req.Name}, "", nil
}

// resolveInputs uses the caller's inputs verbatim, or fetches a full bundle.
// A day-of-year override applies in both cases.
func (h *AnalysisHandler) resolveInputs(ctx context.Context, req AnalyzeRequest, loc types.Location) (types.AnalysisInputs, error) {
	var inputs types.AnalysisInputs
	if req.Inputs != nil {
		inputs = *req.Inputs
		inputs.Observation.Location = loc
	} else {
		fetched, err := h.fetcher.Fetch(ctx, loc)
		if err != nil {
			return types.AnalysisInputs{}, err
		}
		inputs = fetched
	}

	if req.DayOfYear > 0 {
		inputs.Observation.DayOfYear = req.DayOfYear
	}
	return inputs, nil
}

func (h *AnalysisHandler) persistSnapshot(ctx context.Context, siteID string, result types.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize analysis result", err)
	}

	snap := &types.Snapshot{
		ID:          "snap_" + uuid.NewString(),
		SiteID:      siteID,
		Location:    result.Location,
		RiskScore:   result.Risk.RiskScore,
		RiskLevel:   result.Risk.RiskLevel,
		WHOSeverity: result.Risk.WHOSeverity,
		MuPerDay:    result.GrowthRate.MuPerDay,
		Confidence:  result.Confidence,
		Payload:     payload,
		CreatedAt:   result.AnalyzedAt,
	}
	return h.snapshots.Insert(ctx, snap)
}

// CompareRequest is the POST /v1/analyses/compare body.
type CompareRequest struct {
	Sites []CompareSite `json:"sites" validate:"required,min=2,dive"`
}

// CompareSite identifies one comparison participant.
type CompareSite struct {
	SiteID string   `json:"site_id,omitempty"`
	Name   string   `json:"name,omitempty"`
	Lat    *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon    *float64 `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// HandleCompare handles POST /v1/analyses/compare: fetch inputs for every
// site concurrently, analyze them, and return the ranked comparison.
func (h *AnalysisHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if len(req.Sites) > maxComparisonSites {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadRequest,
			fmt.Sprintf("a comparison may include at most %d sites", maxComparisonSites), nil))
		return
	}

	siteInputs := make([]pipeline.SiteInputs, len(req.Sites))
	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, entry := range req.Sites {
		i, entry := i, entry
		g.Go(func() error {
			loc, siteID, err := h.resolveLocation(gctx, AnalyzeRequest{
				SiteID: entry.SiteID,
				Lat:    entry.Lat,
				Lon:    entry.Lon,
				Name:   entry.Name,
			})
			if err != nil {
				return err
			}
			inputs, err := h.fetcher.Fetch(gctx, loc)
			if err != nil {
				return err
			}
			id := siteID
			if id == "" {
				id = entry.Name
			}
			if id == "" {
				id = loc.DisplayName
			}
			siteInputs[i] = pipeline.SiteInputs{SiteID: id, Inputs: inputs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		core.Error(w, r, err)
		return
	}

	comparison, err := pipeline.CompareSites(r.Context(), siteInputs, h.nowFn())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: comparison})
}
