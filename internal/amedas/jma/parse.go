package jma

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/amedasmap/amedasmap/internal/amedas"
)

const observedAtLayout = "20060102150405"

// stationEntry is one value of amedastable.json.
type stationEntry struct {
	KjName *string   `json:"kjName"`
	EnName *string   `json:"enName"`
	Lat    []float64 `json:"lat"`
	Lon    []float64 `json:"lon"`
}

// observationEntry holds the [value, flag] pairs of one observation.
// Fields not listed here are ignored.
type observationEntry struct {
	Temp             json.RawMessage `json:"temp"`
	Precipitation1h  json.RawMessage `json:"precipitation1h"`
	Precipitation10m json.RawMessage `json:"precipitation10m"`
	WindDirection    json.RawMessage `json:"windDirection"`
	Wind             json.RawMessage `json:"wind"`
	Sun1h            json.RawMessage `json:"sun1h"`
	Humidity         json.RawMessage `json:"humidity"`
	Pressure         json.RawMessage `json:"pressure"`
	Snow             json.RawMessage `json:"snow"`
}

// parseFlaggedValue decodes a [value, flag] pair. It returns nil unless the
// pair is well formed, the flag is 0 and the value decodes as T.
func parseFlaggedValue[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil
	}
	var flag *int
	if err := json.Unmarshal(pair[1], &flag); err != nil || flag == nil || *flag != 0 {
		return nil
	}
	var v *T
	if err := json.Unmarshal(pair[0], &v); err != nil {
		return nil
	}
	return v
}

func (e observationEntry) toObservation(stationID string, t time.Time) amedas.Observation {
	obs := amedas.Observation{
		StationID:        stationID,
		Time:             t,
		Temperature:      parseFlaggedValue[float64](e.Temp),
		Precipitation1h:  parseFlaggedValue[float64](e.Precipitation1h),
		Precipitation10m: parseFlaggedValue[float64](e.Precipitation10m),
		WindDirection:    parseFlaggedValue[int](e.WindDirection),
		WindSpeed:        parseFlaggedValue[float64](e.Wind),
		Sunshine1h:       parseFlaggedValue[float64](e.Sun1h),
		Humidity:         parseFlaggedValue[float64](e.Humidity),
		Pressure:         parseFlaggedValue[float64](e.Pressure),
		SnowDepth:        parseFlaggedValue[float64](e.Snow),
	}
	if d := obs.WindDirection; d != nil && (*d < 0 || *d >= len(amedas.CompassDirections)) {
		obs.WindDirection = nil
	}
	return obs
}

// parseStationTable decodes amedastable.json. Entries missing a name or a
// [deg, min] coordinate are skipped.
func parseStationTable(body []byte) (map[string]amedas.Station, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrParse, err)
	}

	stations := make(map[string]amedas.Station, len(raw))
	for id, data := range raw {
		var e stationEntry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.KjName == nil || e.EnName == nil || len(e.Lat) != 2 || len(e.Lon) != 2 {
			continue
		}
		stations[id] = amedas.Station{
			ID:            id,
			NameLocal:     *e.KjName,
			NameRomanized: *e.EnName,
			Latitude:      e.Lat[0] + e.Lat[1]/60,
			Longitude:     e.Lon[0] + e.Lon[1]/60,
		}
	}
	return stations, nil
}

// parseLatestTime decodes the ISO-8601 body of latest_time.txt into loc.
func parseLatestTime(body []byte, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, string(bytes.TrimSpace(body)))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", amedas.ErrParse, err)
	}
	return t.In(loc), nil
}

// parseSnapshot decodes a map document keyed by station ID.
// Observations are ordered by station ID.
func parseSnapshot(body []byte, t time.Time) ([]amedas.Observation, error) {
	var raw map[string]observationEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrParse, err)
	}

	obs := make([]amedas.Observation, 0, len(raw))
	for id, e := range raw {
		obs = append(obs, e.toObservation(id, t))
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].StationID < obs[j].StationID })
	return obs, nil
}

// parseWindow decodes a point document keyed by yyyyMMddHHmmss timestamps.
// A malformed key fails the whole window.
func parseWindow(body []byte, stationID string, loc *time.Location) ([]amedas.Observation, error) {
	var raw map[string]observationEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrParse, err)
	}

	obs := make([]amedas.Observation, 0, len(raw))
	for key, e := range raw {
		t, err := time.ParseInLocation(observedAtLayout, key, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp key %q: %w", amedas.ErrParse, key, err)
		}
		obs = append(obs, e.toObservation(stationID, t))
	}
	return obs, nil
}
