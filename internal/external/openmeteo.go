package external

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"bloomwatch/internal/types"
)

const (
	// hourlyWindTail is the number of trailing hourly wind samples kept for
	// the stagnation features (7 days).
	hourlyWindTail = 168

	// rainfallWindowDays is the trailing window of daily precipitation kept
	// for the nutrient flush features.
	rainfallWindowDays = 30
)

// WeatherClient fetches live conditions, the 7-day daily forecast and the
// multi-year daily archive from an Open-Meteo compatible API.
type WeatherClient struct {
	base        *BaseClient
	forecastURL string
	archiveURL  string
	nowFn       func() time.Time
}

// NewWeatherClient creates a WeatherClient. forecastURL and archiveURL are the
// service roots without a trailing slash (the archive lives on a separate host).
func NewWeatherClient(httpClient *http.Client, forecastURL, archiveURL string, opts ...BaseClientOption) *WeatherClient {
	return &WeatherClient{
		base:        NewBaseClient(httpClient, "open-meteo", DefaultRetryPolicy(), bloomwatchUserAgent, opts...),
		forecastURL: forecastURL,
		archiveURL:  archiveURL,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

const bloomwatchUserAgent = "bloomwatch/1.0"

// CurrentBundle is everything one forecast-endpoint call yields: the live
// observation, the daily forecast, and the trailing week of hourly wind.
type CurrentBundle struct {
	Observation   types.EnvironmentalObservation
	Forecast      *types.DailyForecast
	HourlyWindKmh []float64
}

// forecastResponse mirrors the Open-Meteo /v1/forecast JSON shape. Missing
// values decode as nil and are surfaced as NaN so the feature pipeline can
// apply its documented defaults.
type forecastResponse struct {
	Current struct {
		Time          string   `json:"time"`
		Temperature   *float64 `json:"temperature_2m"`
		Humidity      *float64 `json:"relative_humidity_2m"`
		Precipitation *float64 `json:"precipitation"`
		CloudCover    *float64 `json:"cloud_cover"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
		UVIndex       *float64 `json:"uv_index"`
	} `json:"current"`
	Hourly struct {
		WindSpeed []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		Precipitation []float64 `json:"precipitation_sum"`
		WindMax       []float64 `json:"wind_speed_10m_max"`
		UVMax         []float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// FetchCurrent retrieves the live observation, the 7-day forecast and the
// trailing week of hourly wind in a single upstream call.
func (c *WeatherClient) FetchCurrent(ctx context.Context, loc types.Location) (*CurrentBundle, error) {
	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lon))
	q.Set("current", "temperature_2m,relative_humidity_2m,precipitation,cloud_cover,wind_speed_10m,uv_index")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,wind_speed_10m_max,uv_index_max")
	q.Set("hourly", "wind_speed_10m")
	q.Set("past_days", "7")
	q.Set("forecast_days", "7")
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "UTC")

	var body forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), types.ErrCodeUpstreamWeather, &body); err != nil {
		return nil, err
	}

	observedAt := c.nowFn()
	if t, err := time.Parse("2006-01-02T15:04", body.Current.Time); err == nil {
		observedAt = t.UTC()
	}

	obs := types.EnvironmentalObservation{
		AirTempC:     floatOrNaN(body.Current.Temperature),
		WindSpeedKmh: floatOrNaN(body.Current.WindSpeed),
		CloudCover:   floatOrNaN(body.Current.CloudCover),
		UVIndex:      floatOrNaN(body.Current.UVIndex),
		PrecipMM:     floatOrNaN(body.Current.Precipitation),
		Humidity:     floatOrNaN(body.Current.Humidity),
		Location:     loc,
		DayOfYear:    observedAt.YearDay(),
		ObservedAt:   observedAt,
	}

	// With past_days=7 the hourly arrays lead with the trailing week, so the
	// head of the series is the stagnation window.
	wind := body.Hourly.WindSpeed
	if len(wind) > hourlyWindTail {
		wind = wind[:hourlyWindTail]
	}

	var forecast *types.DailyForecast
	if len(body.Daily.Time) > 0 {
		forecast = &types.DailyForecast{
			Dates:      body.Daily.Time,
			TempMaxC:   body.Daily.TempMax,
			TempMinC:   body.Daily.TempMin,
			PrecipMM:   body.Daily.Precipitation,
			WindMaxKmh: body.Daily.WindMax,
			UVMax:      body.Daily.UVMax,
		}
	}

	return &CurrentBundle{
		Observation:   obs,
		Forecast:      forecast,
		HourlyWindKmh: wind,
	}, nil
}

// archiveResponse mirrors the Open-Meteo /v1/archive JSON shape. Daily means
// use pointers because archive gaps are common and must become NaN, which the
// series constructor then drops.
type archiveResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMean      []*float64 `json:"temperature_2m_mean"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		Precipitation []*float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// FetchArchive retrieves up to `years` years of daily history ending today.
// It returns the temperature series for the seasonal baseline plus the
// trailing 30 days of precipitation for the rainfall features.
func (c *WeatherClient) FetchArchive(ctx context.Context, loc types.Location, years int) (types.HistoricalSeries, *types.RainfallHistory, error) {
	if years <= 0 {
		years = 5
	}
	end := c.nowFn()
	start := end.AddDate(-years, 0, 0)

	q := url.Values{}
	q.Set("latitude", formatCoord(loc.Lat))
	q.Set("longitude", formatCoord(loc.Lon))
	q.Set("start_date", start.Format("2006-01-02"))
	q.Set("end_date", end.Format("2006-01-02"))
	q.Set("daily", "temperature_2m_mean,temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "UTC")

	var body archiveResponse
	if err := c.getJSON(ctx, c.archiveURL+"/v1/archive?"+q.Encode(), types.ErrCodeUpstreamWeather, &body); err != nil {
		return types.HistoricalSeries{}, nil, err
	}

	samples := make([]types.TempSample, 0, len(body.Daily.Time))
	for i, day := range body.Daily.Time {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}
		samples = append(samples, types.TempSample{
			Date:  date,
			MeanC: floatAt(body.Daily.TempMean, i),
			MaxC:  floatAt(body.Daily.TempMax, i),
			MinC:  floatAt(body.Daily.TempMin, i),
		})
	}
	series := types.NewHistoricalSeries(samples)

	rainfall := trailingRainfall(body.Daily.Time, body.Daily.Precipitation)

	return series, rainfall, nil
}

// trailingRainfall extracts the last rainfallWindowDays days of precipitation,
// treating gaps as dry days.
func trailingRainfall(dates []string, precip []*float64) *types.RainfallHistory {
	n := len(dates)
	if len(precip) < n {
		n = len(precip)
	}
	if n == 0 {
		return nil
	}
	from := n - rainfallWindowDays
	if from < 0 {
		from = 0
	}

	out := &types.RainfallHistory{
		Dates:    make([]string, 0, n-from),
		PrecipMM: make([]float64, 0, n-from),
	}
	for i := from; i < n; i++ {
		mm := 0.0
		if precip[i] != nil {
			mm = *precip[i]
		}
		out.Dates = append(out.Dates, dates[i])
		out.PrecipMM = append(out.PrecipMM, mm)
	}
	return out
}

// getJSON issues a GET through the resilient transport and decodes the JSON
// body into out. Failures carry the upstream-specific error code.
func (c *WeatherClient) getJSON(ctx context.Context, rawURL string, code types.ErrorCode, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build upstream request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return types.NewAppError(code, "weather upstream request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(code, fmt.Sprintf("weather upstream returned %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(code, "failed to decode weather response", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func floatOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func floatAt(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}
