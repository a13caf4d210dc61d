package models

// ElementInfo describes a displayable element.
type ElementInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Shape   string `json:"shape"`
	Buckets int    `json:"buckets"`
}

// ElementList is the response of GET /v1/elements.
type ElementList struct {
	Items []ElementInfo `json:"items"`
}

// MarkerKey identifies the glyph a renderer draws for a classified value.
type MarkerKey struct {
	Identifier      string  `json:"identifier"`
	Element         string  `json:"element"`
	Shape           string  `json:"shape"`
	Bucket          int     `json:"bucket"`
	Direction       *int    `json:"direction,omitempty"`
	RotationDegrees float64 `json:"rotationDegrees"`
}

// MarkerKeyList is the response of GET /v1/markers/keys.
type MarkerKeyList struct {
	Count int         `json:"count"`
	Items []MarkerKey `json:"items"`
}

// Station is an observation point.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	NameRomanized string  `json:"nameRomanized"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}

// StationList is the response of GET /v1/stations.
type StationList struct {
	Count int       `json:"count"`
	Items []Station `json:"items"`
}

// Observation is one reading at a station. Absent values are omitted.
type Observation struct {
	StationID         string    `json:"stationId"`
	Time              Timestamp `json:"time"`
	Temperature       *float64  `json:"temperature,omitempty"`
	Precipitation1h   *float64  `json:"precipitation1h,omitempty"`
	Precipitation10m  *float64  `json:"precipitation10m,omitempty"`
	WindDirection     *int      `json:"windDirection,omitempty"`
	WindDirectionText string    `json:"windDirectionText,omitempty"`
	WindSpeed         *float64  `json:"windSpeed,omitempty"`
	Sunshine1h        *float64  `json:"sunshine1h,omitempty"`
	Humidity          *float64  `json:"humidity,omitempty"`
	Pressure          *float64  `json:"pressure,omitempty"`
	SnowDepth         *float64  `json:"snowDepth,omitempty"`
}

// SnapshotEntry is one station's observation in a snapshot, classified for
// the requested element. Marker is omitted when the station has no valid data.
type SnapshotEntry struct {
	Station     *Station    `json:"station,omitempty"`
	Observation Observation `json:"observation"`
	Text        string      `json:"text"`
	Marker      *MarkerKey  `json:"marker,omitempty"`
}

// SnapshotResponse is the response of GET /v1/snapshot.
type SnapshotResponse struct {
	Time    Timestamp       `json:"time"`
	Element string          `json:"element"`
	Count   int             `json:"count"`
	Items   []SnapshotEntry `json:"items"`
}

// ReloadResponse is the response of POST /v1/snapshot/reload.
type ReloadResponse struct {
	Time         Timestamp `json:"time"`
	Observations int       `json:"observations"`
}

// SeriesResponse is the response of GET /v1/stations/{stationId}/series.
type SeriesResponse struct {
	Station      Station       `json:"station"`
	Anchor       Timestamp     `json:"anchor"`
	Elements     []string      `json:"elements"`
	Count        int           `json:"count"`
	Observations []Observation `json:"observations"`
}

// RankingEntry is one place in a ranking.
type RankingEntry struct {
	Rank        int         `json:"rank"`
	Station     *Station    `json:"station,omitempty"`
	Value       float64     `json:"value"`
	Text        string      `json:"text"`
	Observation Observation `json:"observation"`
}

// RankingResponse is the response of GET /v1/ranking.
type RankingResponse struct {
	Time    Timestamp      `json:"time"`
	Element string         `json:"element"`
	Items   []RankingEntry `json:"items"`
}
