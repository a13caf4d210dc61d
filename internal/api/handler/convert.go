package handler

import (
	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/models"
)

func toStation(s amedas.Station) models.Station {
	return models.Station{
		ID:            s.ID,
		Name:          s.NameLocal,
		NameRomanized: s.NameRomanized,
		Lat:           s.Latitude,
		Lon:           s.Longitude,
	}
}

func toObservation(o amedas.Observation) models.Observation {
	out := models.Observation{
		StationID:        o.StationID,
		Time:             models.Timestamp(o.Time),
		Temperature:      o.Temperature,
		Precipitation1h:  o.Precipitation1h,
		Precipitation10m: o.Precipitation10m,
		WindDirection:    o.WindDirection,
		WindSpeed:        o.WindSpeed,
		Sunshine1h:       o.Sunshine1h,
		Humidity:         o.Humidity,
		Pressure:         o.Pressure,
		SnowDepth:        o.SnowDepth,
	}
	if d := o.WindDirection; d != nil && *d > 0 && *d < len(amedas.CompassDirections) {
		out.WindDirectionText = amedas.CompassDirections[*d]
	}
	return out
}

func toMarkerKey(k amedas.Key) models.MarkerKey {
	m := models.MarkerKey{
		Identifier:      k.Identifier(),
		Element:         string(k.Element),
		Shape:           string(k.Shape),
		Bucket:          k.Bucket,
		RotationDegrees: k.RotationDegrees(),
	}
	if k.Element == amedas.ElementWind {
		dir := k.Direction
		m.Direction = &dir
	}
	return m
}

// marker classifies an observation for display. Observations without valid
// data for the element get no marker.
func marker(o amedas.Observation, element amedas.Element) *models.MarkerKey {
	if !o.HasValidData(element) {
		return nil
	}
	key, ok := amedas.ClassifyObservation(o, element)
	if !ok {
		return nil
	}
	m := toMarkerKey(key)
	return &m
}
