package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"bloomwatch/internal/types"
)

// LandCoverClient fetches land-cover class fractions around a point from a
// WorldCover-style summary service. Fractions drive the nutrient loading
// sub-score.
type LandCoverClient struct {
	base    *BaseClient
	baseURL string
}

// NewLandCoverClient creates a LandCoverClient rooted at baseURL.
func NewLandCoverClient(httpClient *http.Client, baseURL string, opts ...BaseClientOption) *LandCoverClient {
	return &LandCoverClient{
		base:    NewBaseClient(httpClient, "land-cover", DefaultRetryPolicy(), bloomwatchUserAgent, opts...),
		baseURL: baseURL,
	}
}

type landCoverResponse struct {
	Fractions struct {
		Cropland float64 `json:"cropland"`
		Urban    float64 `json:"built_up"`
		Forest   float64 `json:"tree_cover"`
		Wetland  float64 `json:"wetland"`
	} `json:"fractions"`
}

// FetchFractions returns the land-cover fractions within radiusKm of the
// point, or (nil, nil) when the service has no coverage there. Coverage gaps
// degrade the nutrient score to its defaults rather than failing the analysis.
func (c *LandCoverClient) FetchFractions(ctx context.Context, loc types.Location, radiusKm float64) (*types.LandUse, error) {
	if radiusKm <= 0 {
		radiusKm = 5
	}

	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lon))
	q.Set("radius_km", fmt.Sprintf("%.1f", radiusKm))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/summary?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build land cover request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamLandCover, "land cover upstream request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, types.NewAppError(
			types.ErrCodeUpstreamLandCover,
			fmt.Sprintf("land cover upstream returned %d", resp.StatusCode),
			nil,
		)
	}

	var body landCoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamLandCover, "failed to decode land cover response", err)
	}

	return &types.LandUse{
		Cropland: clampFraction(body.Fractions.Cropland),
		Urban:    clampFraction(body.Fractions.Urban),
		Forest:   clampFraction(body.Fractions.Forest),
		Wetland:  clampFraction(body.Fractions.Wetland),
	}, nil
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
