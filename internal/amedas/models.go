// Package amedas provides AMeDAS station metadata, observation snapshots,
// per-station time series and the marker classification used to render them.
package amedas

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Load errors. Every loader failure wraps exactly one of the first three.
var (
	ErrWrongURL = errors.New("malformed request URL")
	ErrHTTP     = errors.New("http request failed")
	ErrParse    = errors.New("unexpected response body")

	ErrStationNotFound = errors.New("station not found")
	ErrNoSnapshot      = errors.New("no snapshot loaded yet")
	ErrUnknownElement  = errors.New("unknown element")
)

// Station is a fixed observation point from the station directory.
type Station struct {
	ID            string
	NameLocal     string
	NameRomanized string
	Latitude      float64
	Longitude     float64
}

// String implements fmt.Stringer.
func (s Station) String() string {
	return fmt.Sprintf("%s(%s) %.2f, %.2f", s.NameLocal, s.ID, s.Latitude, s.Longitude)
}

// Observation is one timestamped reading at a station. A nil field means the
// value was not reported, which is different from a reported zero.
type Observation struct {
	StationID        string
	Time             time.Time
	Temperature      *float64 // °C
	Precipitation1h  *float64 // mm
	Precipitation10m *float64 // mm
	WindDirection    *int     // index into CompassDirections, 0 = calm
	WindSpeed        *float64 // m/s
	Sunshine1h       *float64 // hours
	Humidity         *float64 // %
	Pressure         *float64 // hPa
	SnowDepth        *float64 // cm
}

// Snapshot is every station's observation at one shared timestamp.
type Snapshot struct {
	Time         time.Time
	Observations []Observation
}

// Observation returns the snapshot entry for a station.
func (s *Snapshot) Observation(stationID string) (Observation, bool) {
	for _, obs := range s.Observations {
		if obs.StationID == stationID {
			return obs, true
		}
	}
	return Observation{}, false
}

// CompassDirections maps a wind direction index to its label. Index 0 is calm.
var CompassDirections = [17]string{
	"", "北北東", "北東", "東北東", "東",
	"東南東", "南東", "南南東", "南",
	"南南西", "南西", "西南西", "西",
	"西北西", "北西", "北北西", "北",
}

func validDirection(dir *int) bool {
	return dir != nil && *dir >= 0 && *dir < len(CompassDirections)
}

// HasValidData reports whether the observation carries usable data for the element.
// Precipitation of exactly zero does not count as data worth displaying.
func (o Observation) HasValidData(element Element) bool {
	switch element {
	case ElementTemperature:
		return o.Temperature != nil
	case ElementPrecipitation:
		return o.Precipitation1h != nil && *o.Precipitation1h > 0
	case ElementWind:
		return validDirection(o.WindDirection) && o.WindSpeed != nil
	case ElementSunshine:
		return o.Sunshine1h != nil
	case ElementHumidity:
		return o.Humidity != nil
	case ElementPressure:
		return o.Pressure != nil
	case ElementSnow:
		return o.SnowDepth != nil
	default:
		return false
	}
}

// Value returns the scalar used to classify and rank the observation for an element.
// Sunshine is returned in minutes, wind as speed.
func (o Observation) Value(element Element) (float64, bool) {
	var v *float64
	switch element {
	case ElementTemperature:
		v = o.Temperature
	case ElementPrecipitation:
		v = o.Precipitation1h
	case ElementWind:
		v = o.WindSpeed
	case ElementSunshine:
		if o.Sunshine1h == nil {
			return 0, false
		}
		return *o.Sunshine1h * 60, true
	case ElementHumidity:
		v = o.Humidity
	case ElementPressure:
		v = o.Pressure
	case ElementSnow:
		v = o.SnowDepth
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Text renders the element value for display, "-" when not reported.
func (o Observation) Text(element Element) string {
	switch element {
	case ElementWind:
		if !validDirection(o.WindDirection) || o.WindSpeed == nil {
			return "-"
		}
		return fmt.Sprintf("%s %.1fm/s", CompassDirections[*o.WindDirection], *o.WindSpeed)
	case ElementSunshine:
		if o.Sunshine1h == nil {
			return "-"
		}
		return fmt.Sprintf("%.0fmin", *o.Sunshine1h*60)
	}

	v, ok := o.Value(element)
	if !ok {
		return "-"
	}
	switch element {
	case ElementTemperature:
		return fmt.Sprintf("%.1f℃", v)
	case ElementPrecipitation:
		return fmt.Sprintf("%.1fmm/h", v)
	case ElementHumidity:
		return fmt.Sprintf("%.0f%%", v)
	case ElementPressure:
		return fmt.Sprintf("%.1fhPa", v)
	case ElementSnow:
		return fmt.Sprintf("%.0fcm", v)
	default:
		return "-"
	}
}

// String implements fmt.Stringer.
func (o Observation) String() string {
	parts := []string{o.StationID}
	parts = append(parts, "temp:"+o.Text(ElementTemperature))
	parts = append(parts, "prec:"+o.Text(ElementPrecipitation))
	parts = append(parts, "wind:"+o.Text(ElementWind))
	return strings.Join(parts, ", ")
}
