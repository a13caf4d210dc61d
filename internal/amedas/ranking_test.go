package amedas_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedasmap/amedasmap/internal/amedas"
)

func TestRank(t *testing.T) {
	obs := []amedas.Observation{
		{StationID: "11001", Precipitation1h: fp(0)},
		{StationID: "44132", Precipitation1h: fp(12.5)},
		{StationID: "62078", Precipitation1h: fp(3)},
		{StationID: "50331"},
		{StationID: "33431", Precipitation1h: fp(12.5)},
	}

	ranked := amedas.Rank(obs, amedas.ElementPrecipitation, 0)
	require.Len(t, ranked, 3)
	assert.Equal(t, "33431", ranked[0].StationID)
	assert.Equal(t, "44132", ranked[1].StationID)
	assert.Equal(t, "62078", ranked[2].StationID)

	limited := amedas.Rank(obs, amedas.ElementPrecipitation, 2)
	assert.Len(t, limited, 2)
}

func TestRank_Wind(t *testing.T) {
	obs := []amedas.Observation{
		{StationID: "a", WindDirection: ip(3), WindSpeed: fp(4)},
		{StationID: "b", WindSpeed: fp(20)},
		{StationID: "c", WindDirection: ip(0), WindSpeed: fp(0)},
	}

	ranked := amedas.Rank(obs, amedas.ElementWind, amedas.DefaultRankingLimit)
	require.Len(t, ranked, 2)
	assert.Equal(t, "a", ranked[0].StationID)
	assert.Equal(t, "c", ranked[1].StationID)
}

func TestElementsWithData(t *testing.T) {
	series := []amedas.Observation{
		{Temperature: fp(20), Precipitation1h: fp(0)},
		{Temperature: fp(21), Humidity: fp(60)},
	}
	assert.Equal(t, []amedas.Element{amedas.ElementTemperature, amedas.ElementHumidity}, amedas.ElementsWithData(series))
	assert.Empty(t, amedas.ElementsWithData(nil))
}

func TestHourlySamples(t *testing.T) {
	t0 := time.Date(2023, 6, 19, 0, 0, 0, 0, jst)
	var series []amedas.Observation
	for n := 0; n < 30; n++ {
		series = append(series, amedas.Observation{Time: t0.Add(time.Duration(n) * 10 * time.Minute)})
	}

	hourly := amedas.HourlySamples(series, 3)
	require.Len(t, hourly, 3)
	assert.True(t, hourly[0].Time.Equal(t0.Add(4*time.Hour)))
	assert.True(t, hourly[1].Time.Equal(t0.Add(3*time.Hour)))
	assert.True(t, hourly[2].Time.Equal(t0.Add(2*time.Hour)))

	assert.Len(t, amedas.HourlySamples(series, 24), 5)
}
