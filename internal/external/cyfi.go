package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bloomwatch/internal/types"
)

// SatelliteClient fetches CyFi-style satellite cyanobacteria estimates. The
// estimate is an optional input: most sites have no recent cloud-free scene,
// and callers treat a nil estimate as "no satellite signal", not an outage.
type SatelliteClient struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
}

// NewSatelliteClient creates a SatelliteClient rooted at baseURL. apiKey may
// be empty for keyless deployments.
func NewSatelliteClient(httpClient *http.Client, baseURL string, apiKey types.SecretString, opts ...BaseClientOption) *SatelliteClient {
	return &SatelliteClient{
		base:    NewBaseClient(httpClient, "satellite", DefaultRetryPolicy(), bloomwatchUserAgent, opts...),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type satelliteResponse struct {
	CellsPerML *float64 `json:"cells_per_ml"`
	Source     string   `json:"source"`
	SceneDate  string   `json:"scene_date"`
}

// FetchEstimate returns the satellite estimate for the location on the given
// date, or (nil, nil) when no scene covers it. The WHO tier is derived locally
// from the cell count so all tiering goes through one classifier.
func (c *SatelliteClient) FetchEstimate(ctx context.Context, loc types.Location, date time.Time) (*types.SatelliteEstimate, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lon))
	q.Set("date", date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/estimate?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build satellite request", err)
	}
	if key := c.apiKey.Unmask(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSatellite, "satellite upstream request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No scene for this location/date.
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewAppError(
			types.ErrCodeUpstreamSatellite,
			fmt.Sprintf("satellite upstream returned %d", resp.StatusCode),
			nil,
		)
	}

	var body satelliteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSatellite, "failed to decode satellite response", err)
	}

	if body.CellsPerML == nil {
		return nil, nil
	}

	est := &types.SatelliteEstimate{
		CellsPerML: body.CellsPerML,
		Severity:   types.ClassifyWHOSeverity(int(*body.CellsPerML)),
		Source:     body.Source,
	}
	if est.Source == "" {
		est.Source = "cyfi"
	}
	return est, nil
}
