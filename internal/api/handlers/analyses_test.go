package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"bloomwatch/internal/core"
	"bloomwatch/internal/types"
)

// --- Mocks ---

type mockInputSource struct {
	inputs types.AnalysisInputs
	err    error

	mu        sync.Mutex
	fetchLocs []types.Location
}

func (m *mockInputSource) Fetch(_ context.Context, loc types.Location) (types.AnalysisInputs, error) {
	m.mu.Lock()
	m.fetchLocs = append(m.fetchLocs, loc)
	m.mu.Unlock()
	if m.err != nil {
		return types.AnalysisInputs{}, m.err
	}
	inputs := m.inputs
	inputs.Observation.Location = loc
	return inputs, nil
}

type mockSnapshotStore struct {
	inserted   []*types.Snapshot
	insertErr  error
	scores     []float64
	scoresErr  error
	listResult []*types.Snapshot
	listErr    error
}

func (m *mockSnapshotStore) Insert(_ context.Context, snap *types.Snapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, snap)
	return nil
}

func (m *mockSnapshotStore) RecentScores(_ context.Context, _ string, _ int) ([]float64, error) {
	return m.scores, m.scoresErr
}

func (m *mockSnapshotStore) ListBySite(_ context.Context, _ string, _ int) ([]*types.Snapshot, error) {
	return m.listResult, m.listErr
}

type mockSiteStore struct {
	sites     map[string]*types.Site
	created   []*types.Site
	createErr error
	listErr   error
}

func (m *mockSiteStore) Create(_ context.Context, site *types.Site) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, site)
	return nil
}

func (m *mockSiteStore) GetByID(_ context.Context, id string) (*types.Site, error) {
	if site, ok := m.sites[id]; ok {
		return site, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundSite, "site not found", nil)
}

func (m *mockSiteStore) ListActive(_ context.Context) ([]*types.Site, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*types.Site
	for _, s := range m.sites {
		out = append(out, s)
	}
	return out, nil
}

// --- Helpers ---

func testObservationInputs() types.AnalysisInputs {
	return types.AnalysisInputs{
		Observation: types.EnvironmentalObservation{
			AirTempC:     28.0,
			WindSpeedKmh: 6.0,
			CloudCover:   20,
			UVIndex:      7,
			DayOfYear:    196,
			ObservedAt:   time.Date(2025, 7, 15, 11, 0, 0, 0, time.UTC),
		},
		Confidence: types.ConfidenceMedium,
	}
}

func newTestAnalysisHandler(fetcher InputSource, sites SiteStore, snaps SnapshotStore) *AnalysisHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewAnalysisHandler(fetcher, sites, snaps, core.NewValidator(logger), logger)
	h.nowFn = func() time.Time { return time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC) }
	return h
}

func makeAnalysisRouter(h *AnalysisHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", func(v1 chi.Router) {
		h.RegisterRoutes(v1)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) *core.ResponseMeta {
	t.Helper()
	var envelope struct {
		Data json.RawMessage    `json:"data"`
		Meta *core.ResponseMeta `json:"meta"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			t.Fatalf("failed to decode data: %v", err)
		}
	}
	return envelope.Meta
}

// --- HandleCreateAnalysis Tests ---

func TestHandleCreateAnalysis_AdHocCoordinates(t *testing.T) {
	fetcher := &mockInputSource{inputs: testObservationInputs()}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"lat": 43.5, "lon": -79.1, "name": "Test Bay"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result types.AnalysisResult
	decodeData(t, rec, &result)

	if result.SiteID != "" {
		t.Errorf("ad-hoc analysis should carry no site ID, got %q", result.SiteID)
	}
	if result.Location.Lat != 43.5 || result.Location.DisplayName != "Test Bay" {
		t.Errorf("unexpected location: %+v", result.Location)
	}
	if result.Risk.RiskScore <= 0 {
		t.Errorf("expected a computed risk score, got %v", result.Risk.RiskScore)
	}

	if len(fetcher.fetchLocs) != 1 || fetcher.fetchLocs[0].Lat != 43.5 {
		t.Errorf("expected one fetch at the requested location, got %+v", fetcher.fetchLocs)
	}
}

func TestHandleCreateAnalysis_RegisteredSitePersistsSnapshot(t *testing.T) {
	fetcher := &mockInputSource{inputs: testObservationInputs()}
	sites := &mockSiteStore{sites: map[string]*types.Site{
		"site_abc": {
			ID:       "site_abc",
			Name:     "Lake Scugog",
			Location: types.Location{Lat: 44.17, Lon: -78.93},
			Active:   true,
		},
	}}
	snaps := &mockSnapshotStore{scores: []float64{40, 42, 45}}

	handler := newTestAnalysisHandler(fetcher, sites, snaps)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"site_id": "site_abc"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result types.AnalysisResult
	decodeData(t, rec, &result)

	if result.SiteID != "site_abc" {
		t.Errorf("expected site_abc, got %q", result.SiteID)
	}
	if result.Location.Lat != 44.17 {
		t.Errorf("expected the registered site's coordinates, got %+v", result.Location)
	}
	// Score history hydrated from storage feeds the trend engines.
	if result.SenSlope.NSlopes != 3 {
		t.Errorf("expected 3 pairwise slopes from the hydrated history, got %d", result.SenSlope.NSlopes)
	}

	if len(snaps.inserted) != 1 {
		t.Fatalf("expected one persisted snapshot, got %d", len(snaps.inserted))
	}
	snap := snaps.inserted[0]
	if snap.SiteID != "site_abc" {
		t.Errorf("unexpected snapshot site: %q", snap.SiteID)
	}
	if !strings.HasPrefix(snap.ID, "snap_") {
		t.Errorf("expected generated snapshot ID, got %q", snap.ID)
	}
	if snap.RiskScore != result.Risk.RiskScore {
		t.Errorf("snapshot score %v != result score %v", snap.RiskScore, result.Risk.RiskScore)
	}
	var stored types.AnalysisResult
	if err := json.Unmarshal(snap.Payload, &stored); err != nil {
		t.Fatalf("snapshot payload is not a serialized result: %v", err)
	}
}

func TestHandleCreateAnalysis_UnknownSite(t *testing.T) {
	handler := newTestAnalysisHandler(&mockInputSource{}, &mockSiteStore{}, &mockSnapshotStore{})
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"site_id": "site_missing"}`)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleCreateAnalysis_MissingCoordinates(t *testing.T) {
	handler := newTestAnalysisHandler(&mockInputSource{}, nil, nil)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"name": "nowhere"}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCreateAnalysis_LatitudeOutOfRange(t *testing.T) {
	handler := newTestAnalysisHandler(&mockInputSource{}, nil, nil)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"lat": 95.0, "lon": 10.0}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCreateAnalysis_SuppliedInputsSkipFetch(t *testing.T) {
	fetcher := &mockInputSource{}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	body := `{
		"lat": 43.5, "lon": -79.1,
		"inputs": {
			"observation": {
				"air_temp_c": 31.0, "wind_speed_kmh": 4.0, "cloud_cover": 10,
				"uv_index": 8, "precip_mm": 0, "humidity_percent": 50,
				"location": {"lat": 0, "lon": 0},
				"day_of_year": 200, "observed_at": "2025-07-19T12:00:00Z"
			},
			"history": {"samples": []},
			"confidence": "LOW"
		}
	}`
	rec := postJSON(t, router, "/v1/analyses", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(fetcher.fetchLocs) != 0 {
		t.Errorf("supplied inputs must not trigger a fetch, got %d fetches", len(fetcher.fetchLocs))
	}

	var result types.AnalysisResult
	decodeData(t, rec, &result)
	if result.Confidence != types.ConfidenceLow {
		t.Errorf("expected LOW confidence echoed, got %s", result.Confidence)
	}
	if result.Location.Lat != 43.5 {
		t.Errorf("request coordinates must override the embedded ones, got %+v", result.Location)
	}
}

func TestHandleCreateAnalysis_UpstreamFailure(t *testing.T) {
	fetcher := &mockInputSource{
		err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather upstream request failed", nil),
	}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"lat": 43.5, "lon": -79.1}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 for upstream failure, got %d", rec.Code)
	}
}

func TestHandleCreateAnalysis_SnapshotFailureWarnsButSucceeds(t *testing.T) {
	fetcher := &mockInputSource{inputs: testObservationInputs()}
	sites := &mockSiteStore{sites: map[string]*types.Site{
		"site_abc": {ID: "site_abc", Location: types.Location{Lat: 44.17, Lon: -78.93}},
	}}
	snaps := &mockSnapshotStore{
		insertErr: types.NewAppError(types.ErrCodeInternalDB, "insert failed", nil),
	}

	handler := newTestAnalysisHandler(fetcher, sites, snaps)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses", `{"site_id": "site_abc"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("analysis must survive a persistence failure, got %d", rec.Code)
	}

	meta := decodeData(t, rec, nil)
	if meta == nil || len(meta.Warnings) == 0 {
		t.Fatal("expected a warning about the unpersisted snapshot")
	}
	if !strings.Contains(meta.Warnings[0], "not persisted") {
		t.Errorf("unexpected warning: %q", meta.Warnings[0])
	}
}

func TestHandleWHOThresholds(t *testing.T) {
	handler := newTestAnalysisHandler(&mockInputSource{}, nil, nil)
	router := makeAnalysisRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/v1/reference/who-thresholds", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rows []struct {
		Label string `json:"label"`
		Cells int    `json:"cells"`
	}
	decodeData(t, rec, &rows)
	if len(rows) != 3 {
		t.Fatalf("expected 3 guidance rows, got %d", len(rows))
	}
	if rows[0].Cells != 20_000 || rows[2].Cells != 10_000_000 {
		t.Errorf("unexpected breakpoints: %+v", rows)
	}
}

// --- HandleCompare Tests ---

func TestHandleCompare_RanksSites(t *testing.T) {
	fetcher := &mockInputSource{inputs: testObservationInputs()}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	body := `{"sites": [
		{"name": "Warm Lake", "lat": 43.5, "lon": -79.1},
		{"name": "Other Lake", "lat": 45.0, "lon": -75.0}
	]}`
	rec := postJSON(t, router, "/v1/analyses/compare", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var comparison struct {
		Available bool `json:"available"`
		Sites     []struct {
			SiteID string `json:"site_id"`
		} `json:"sites"`
		Ranking []struct {
			Rank   int    `json:"rank"`
			SiteID string `json:"site_id"`
		} `json:"ranking"`
	}
	decodeData(t, rec, &comparison)

	if !comparison.Available {
		t.Error("expected an available comparison")
	}
	if len(comparison.Sites) != 2 || len(comparison.Ranking) != 2 {
		t.Fatalf("expected 2 sites and 2 ranking rows, got %d/%d", len(comparison.Sites), len(comparison.Ranking))
	}
	if comparison.Sites[0].SiteID != "Warm Lake" {
		t.Errorf("input order must be preserved, got %q first", comparison.Sites[0].SiteID)
	}
	if comparison.Ranking[0].Rank != 1 {
		t.Errorf("ranking must start at 1, got %d", comparison.Ranking[0].Rank)
	}
	if len(fetcher.fetchLocs) != 2 {
		t.Errorf("expected one fetch per site, got %d", len(fetcher.fetchLocs))
	}
}

func TestHandleCompare_RejectsSingleSite(t *testing.T) {
	handler := newTestAnalysisHandler(&mockInputSource{}, nil, nil)
	router := makeAnalysisRouter(handler)

	rec := postJSON(t, router, "/v1/analyses/compare", `{"sites": [{"name": "Lonely", "lat": 1, "lon": 2}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for fewer than 2 sites, got %d", rec.Code)
	}
}

func TestHandleCompare_RejectsTooManySites(t *testing.T) {
	fetcher := &mockInputSource{}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	entries := make([]string, maxComparisonSites+1)
	for i := range entries {
		entries[i] = fmt.Sprintf(`{"name": "Site %d", "lat": %d, "lon": 2}`, i, i)
	}
	body := `{"sites": [` + strings.Join(entries, ",") + `]}`

	rec := postJSON(t, router, "/v1/analyses/compare", body)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for more than %d sites, got %d", maxComparisonSites, rec.Code)
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.fetchLocs) != 0 {
		t.Errorf("expected no fetches for an oversized request, got %d", len(fetcher.fetchLocs))
	}
}

func TestHandleCompare_UpstreamFailure(t *testing.T) {
	fetcher := &mockInputSource{
		err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather upstream request failed", nil),
	}
	handler := newTestAnalysisHandler(fetcher, nil, nil)
	router := makeAnalysisRouter(handler)

	body := `{"sites": [
		{"name": "A", "lat": 1, "lon": 2},
		{"name": "B", "lat": 3, "lon": 4}
	]}`
	rec := postJSON(t, router, "/v1/analyses/compare", body)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}
