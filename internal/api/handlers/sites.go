package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"bloomwatch/internal/core"
	"bloomwatch/internal/types"
)

// SiteHandler maps HTTP requests to the site registry and its snapshot
// history.
type SiteHandler struct {
	sites       SiteStore
	snapshots   SnapshotStore
	validator   *core.Validator
	logger      *slog.Logger
	adminKey    types.SecretString
	externalURL string
}

// NewSiteHandler creates a SiteHandler with the provided dependencies.
// adminKey gates site creation; an empty key leaves creation open.
// externalURL is the public base URL used in Location headers.
func NewSiteHandler(
	sites SiteStore,
	snapshots SnapshotStore,
	val *core.Validator,
	logger *slog.Logger,
	adminKey types.SecretString,
	externalURL string,
) *SiteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteHandler{
		sites:       sites,
		snapshots:   snapshots,
		validator:   val,
		logger:      logger,
		adminKey:    adminKey,
		externalURL: strings.TrimRight(externalURL, "/"),
	}
}

// RegisterRoutes mounts the site endpoints onto the v1 router.
func (h *SiteHandler) RegisterRoutes(r chi.Router) {
	r.With(core.AdminKeyAuth(h.adminKey)).Post("/sites", h.HandleCreateSite)
	r.Get("/sites", h.HandleListSites)
	r.Get("/sites/{id}", h.HandleGetSite)
	r.Get("/sites/{id}/history", h.HandleGetHistory)
}

// CreateSiteRequest is the POST /v1/sites body.
type CreateSiteRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=120"`
	Lat         *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon         *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	DisplayName string   `json:"display_name,omitempty" validate:"omitempty,max=200"`
}

// HandleCreateSite handles POST /v1/sites. The new site is active
// immediately and will be picked up on the poller's next pass.
func (h *SiteHandler) HandleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req CreateSiteRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	site := &types.Site{
		ID:   "site_" + uuid.NewString(),
		Name: req.Name,
		Location: types.Location{
			Lat:         *req.Lat,
			Lon:         *req.Lon,
			DisplayName: req.DisplayName,
		},
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.sites.Create(r.Context(), site); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "site registered",
		slog.String("site_id", site.ID),
		slog.String("name", site.Name),
	)
	if h.externalURL != "" {
		w.Header().Set("Location", h.externalURL+"/v1/sites/"+site.ID)
	}
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: site})
}

// HandleListSites handles GET /v1/sites.
func (h *SiteHandler) HandleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.sites.ListActive(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if sites == nil {
		sites = []*types.Site{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: sites})
}

// HandleGetSite handles GET /v1/sites/{id}.
func (h *SiteHandler) HandleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := h.sites.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: site})
}

// HandleGetHistory handles GET /v1/sites/{id}/history. Returns the stored
// snapshots for a site, newest first. The optional limit query parameter
// defaults to 30 and is capped by the repository.
func (h *SiteHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "id")

	// Confirm the site exists so a typo yields 404, not an empty list.
	if _, err := h.sites.GetByID(r.Context(), siteID); err != nil {
		core.Error(w, r, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			core.Error(w, r, types.NewAppError(
				types.ErrCodeValidationBadRequest,
				"limit must be a positive integer",
				nil,
			))
			return
		}
		limit = parsed
	}

	snaps, err := h.snapshots.ListBySite(r.Context(), siteID, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*types.Snapshot{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snaps})
}
