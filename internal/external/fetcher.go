package external

import (
	"context"
	"log/slog"

	"bloomwatch/internal/types"

	"golang.org/x/sync/errgroup"
)

// archiveYears is how far back the seasonal baseline looks.
const archiveYears = 5

// InputFetcher assembles a complete AnalysisInputs bundle from the upstream
// data sources. The live observation is mandatory; every other source is
// fetched concurrently and its absence only lowers the confidence tier.
type InputFetcher struct {
	Weather   *WeatherClient
	LandCover *LandCoverClient
	Satellite *SatelliteClient
	Logger    *slog.Logger
}

// NewInputFetcher wires the three typed clients into one fetcher.
func NewInputFetcher(weather *WeatherClient, landCover *LandCoverClient, satellite *SatelliteClient, logger *slog.Logger) *InputFetcher {
	return &InputFetcher{
		Weather:   weather,
		LandCover: landCover,
		Satellite: satellite,
		Logger:    logger,
	}
}

// Fetch gathers all inputs for a location. It fails only when the live
// observation cannot be fetched; archive, land cover and satellite failures
// are logged, degrade the confidence tier, and leave their fields unset.
func (f *InputFetcher) Fetch(ctx context.Context, loc types.Location) (types.AnalysisInputs, error) {
	var (
		bundle    *CurrentBundle
		history   types.HistoricalSeries
		rainfall  *types.RainfallHistory
		landUse   *types.LandUse
		satellite *types.SatelliteEstimate
	)

	// Failures of the optional sources are collected, not propagated.
	var archiveErr, landCoverErr, satelliteErr error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		bundle, err = f.Weather.FetchCurrent(gctx, loc)
		return err
	})
	g.Go(func() error {
		history, rainfall, archiveErr = f.Weather.FetchArchive(gctx, loc, archiveYears)
		return nil
	})
	g.Go(func() error {
		if f.LandCover == nil {
			return nil
		}
		landUse, landCoverErr = f.LandCover.FetchFractions(gctx, loc, 0)
		return nil
	})
	g.Go(func() error {
		if f.Satellite == nil {
			return nil
		}
		satellite, satelliteErr = f.Satellite.FetchEstimate(gctx, loc, f.Weather.nowFn())
		return nil
	})

	if err := g.Wait(); err != nil {
		return types.AnalysisInputs{}, err
	}

	failures := 0
	for _, src := range []struct {
		name string
		err  error
	}{
		{"archive", archiveErr},
		{"land_cover", landCoverErr},
		{"satellite", satelliteErr},
	} {
		if src.err != nil {
			failures++
			if f.Logger != nil {
				f.Logger.WarnContext(ctx, "optional input source failed",
					slog.String("source", src.name),
					slog.String("error", src.err.Error()),
				)
			}
		}
	}

	inputs := types.AnalysisInputs{
		Observation:   bundle.Observation,
		History:       history,
		Rainfall:      rainfall,
		HourlyWindKmh: bundle.HourlyWindKmh,
		Forecast:      bundle.Forecast,
		LandUse:       landUse,
		Satellite:     satellite,
		Confidence:    confidenceForFailures(failures),
	}
	return inputs, nil
}

// confidenceForFailures maps the number of failed optional sources to a
// data-quality tier. A satellite coverage gap is not a failure.
func confidenceForFailures(failures int) types.Confidence {
	switch {
	case failures == 0:
		return types.ConfidenceHigh
	case failures == 1:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}
