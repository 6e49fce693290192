package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomwatch/internal/types"
)

// alternatingSeries builds n daily samples oscillating around 20 C starting
// at the given date.
func alternatingSeries(start time.Time, n int) types.HistoricalSeries {
	samples := make([]types.TempSample, 0, n)
	for i := 0; i < n; i++ {
		temp := 19.0
		if i%2 == 1 {
			temp = 21.0
		}
		samples = append(samples, types.TempSample{
			Date:  start.AddDate(0, 0, i),
			MeanC: temp,
		})
	}
	return types.NewHistoricalSeries(samples)
}

func TestBuildHistoricalComparison(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sparse record degrades to unavailable", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 10), 25)
		assert.False(t, r.Available)
		assert.Zero(t, r.AirTempZScore)
		assert.Empty(t, r.AnomalyFlags)
		assert.Equal(t, "Insufficient historical data for comparison.", r.Summary)
	})

	t.Run("stats over the full record", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 40), 20)
		require.True(t, r.Available)
		assert.InDelta(t, 20.0, r.Stats.TempMeanC, 1e-9)
		assert.InDelta(t, 19.0, r.Stats.TempMinC, 1e-9)
		assert.InDelta(t, 21.0, r.Stats.TempMaxC, 1e-9)
		assert.Equal(t, 40, r.Stats.NDays)
		assert.InDelta(t, 1.01, r.Stats.TempStdC, 0.01)
	})

	t.Run("strong warm anomaly is flagged", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 40), 23)
		require.True(t, r.Available)
		assert.Greater(t, r.AirTempZScore, 2.0)
		assert.True(t, r.Anomalous)
		require.Len(t, r.AnomalyFlags, 1)
		assert.Contains(t, r.AnomalyFlags[0], "warmer")
		assert.InDelta(t, 100.0, r.AirTempPercentile, 1e-9)
	})

	t.Run("mild anomaly flags without marking anomalous", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 40), 21.8)
		require.True(t, r.Available)
		assert.False(t, r.Anomalous)
		require.Len(t, r.AnomalyFlags, 1)
	})

	t.Run("typical day is unflagged", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 40), 20.1)
		require.True(t, r.Available)
		assert.False(t, r.Anomalous)
		assert.Empty(t, r.AnomalyFlags)
		assert.Contains(t, r.Summary, "within normal historical range")
	})

	t.Run("cold anomaly reads cooler", func(t *testing.T) {
		r := BuildHistoricalComparison(alternatingSeries(start, 40), 16)
		require.True(t, r.Available)
		assert.Less(t, r.AirTempZScore, -2.0)
		require.NotEmpty(t, r.AnomalyFlags)
		assert.Contains(t, r.AnomalyFlags[0], "cooler")
		assert.Zero(t, r.AirTempPercentile)
	})
}

func TestYearlyAverages(t *testing.T) {
	var samples []types.TempSample
	for i := 0; i < 20; i++ {
		samples = append(samples, types.TempSample{
			Date:  time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			MeanC: 18,
		})
	}
	for i := 0; i < 20; i++ {
		samples = append(samples, types.TempSample{
			Date:  time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			MeanC: 22,
		})
	}
	r := BuildHistoricalComparison(types.NewHistoricalSeries(samples), 20)
	require.True(t, r.Available)
	require.Len(t, r.YearlyAverages, 2)
	assert.Equal(t, 2023, r.YearlyAverages[0].Year)
	assert.InDelta(t, 18.0, r.YearlyAverages[0].AvgTempC, 1e-9)
	assert.Equal(t, 2024, r.YearlyAverages[1].Year)
	assert.InDelta(t, 22.0, r.YearlyAverages[1].AvgTempC, 1e-9)
	assert.Equal(t, 20, r.YearlyAverages[1].NDays)
}
