package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/models"
	"github.com/amedasmap/amedasmap/internal/api/response"
)

const (
	maxRankingLimit = 100
	maxHourly       = 24
)

// AmedasService is the read side of the AMeDAS service used by the handlers.
type AmedasService interface {
	Stations() []amedas.Station
	Station(id string) (amedas.Station, error)
	Snapshot() (*amedas.Snapshot, error)
	LoadSeriesAt(ctx context.Context, stationID string, anchor time.Time) ([]amedas.Observation, error)
}

// SnapshotReloader triggers a snapshot load.
type SnapshotReloader interface {
	RefreshSnapshot(ctx context.Context) (*amedas.Snapshot, error)
}

// AmedasHandler serves stations, snapshots, series, rankings and marker keys.
type AmedasHandler struct {
	service  AmedasService
	reloader SnapshotReloader
}

// NewAmedasHandler creates a new AmedasHandler.
func NewAmedasHandler(service AmedasService, reloader SnapshotReloader) *AmedasHandler {
	return &AmedasHandler{
		service:  service,
		reloader: reloader,
	}
}

// ListElements handles GET /v1/elements.
func (h *AmedasHandler) ListElements(w http.ResponseWriter, r *http.Request) {
	resp := models.ElementList{Items: []models.ElementInfo{}}
	for _, e := range amedas.Elements() {
		resp.Items = append(resp.Items, models.ElementInfo{
			Name:    string(e),
			Title:   e.Title(),
			Shape:   string(amedas.ShapeFor(e)),
			Buckets: amedas.BucketCount(e),
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// ListMarkerKeys handles GET /v1/markers/keys.
func (h *AmedasHandler) ListMarkerKeys(w http.ResponseWriter, r *http.Request) {
	keys := amedas.AllKeys()
	resp := models.MarkerKeyList{
		Count: len(keys),
		Items: make([]models.MarkerKey, 0, len(keys)),
	}
	for _, k := range keys {
		resp.Items = append(resp.Items, toMarkerKey(k))
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// ListStations handles GET /v1/stations.
func (h *AmedasHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations := h.service.Stations()
	resp := models.StationList{
		Count: len(stations),
		Items: make([]models.Station, 0, len(stations)),
	}
	for _, s := range stations {
		resp.Items = append(resp.Items, toStation(s))
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// GetStation handles GET /v1/stations/{stationId}.
func (h *AmedasHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Station(chi.URLParam(r, "stationId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toStation(st))
}

// GetSnapshot handles GET /v1/snapshot?element=temperature.
func (h *AmedasHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	element, err := elementParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	snapshot, err := h.service.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.SnapshotResponse{
		Time:    models.Timestamp(snapshot.Time),
		Element: string(element),
		Count:   len(snapshot.Observations),
		Items:   make([]models.SnapshotEntry, 0, len(snapshot.Observations)),
	}
	for _, obs := range snapshot.Observations {
		resp.Items = append(resp.Items, models.SnapshotEntry{
			Station:     h.station(obs.StationID),
			Observation: toObservation(obs),
			Text:        obs.Text(element),
			Marker:      marker(obs, element),
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// ReloadSnapshot handles POST /v1/snapshot/reload. The previous snapshot is
// kept when the load fails.
func (h *AmedasHandler) ReloadSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.reloader.RefreshSnapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.ReloadResponse{
		Time:         models.Timestamp(snapshot.Time),
		Observations: len(snapshot.Observations),
	})
}

// GetSeries handles GET /v1/stations/{stationId}/series[?hourly=24]. With
// hourly set only the newest on-the-hour samples are returned, newest first.
func (h *AmedasHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")

	hourly := 0
	if v := r.URL.Query().Get("hourly"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHourly {
			response.BadRequest(w, r, "hourly must be an integer between 1 and 24", []models.FieldError{
				{Field: "hourly", Message: "must be between 1 and 24", Code: "OUT_OF_RANGE"},
			})
			return
		}
		hourly = n
	}

	snapshot, err := h.service.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Anchored on the snapshot being served so series and map agree.
	series, err := h.service.LoadSeriesAt(r.Context(), stationID, snapshot.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.SeriesResponse{
		Station:  models.Station{ID: stationID},
		Anchor:   models.Timestamp(snapshot.Time),
		Elements: []string{},
	}
	if st := h.station(stationID); st != nil {
		resp.Station = *st
	}
	for _, e := range amedas.ElementsWithData(series) {
		resp.Elements = append(resp.Elements, string(e))
	}

	if hourly > 0 {
		series = amedas.HourlySamples(series, hourly)
	}
	resp.Count = len(series)
	resp.Observations = make([]models.Observation, 0, len(series))
	for _, obs := range series {
		resp.Observations = append(resp.Observations, toObservation(obs))
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// GetRanking handles GET /v1/ranking?element=temperature&limit=30.
func (h *AmedasHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	element, err := elementParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := amedas.DefaultRankingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRankingLimit {
			response.BadRequest(w, r, "limit must be an integer between 1 and 100", []models.FieldError{
				{Field: "limit", Message: "must be between 1 and 100", Code: "OUT_OF_RANGE"},
			})
			return
		}
		limit = n
	}

	snapshot, err := h.service.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Time and items come from the same snapshot even if a reload lands meanwhile.
	ranked := amedas.Rank(snapshot.Observations, element, limit)

	resp := models.RankingResponse{
		Time:    models.Timestamp(snapshot.Time),
		Element: string(element),
		Items:   make([]models.RankingEntry, 0, len(ranked)),
	}
	for i, obs := range ranked {
		value, _ := obs.Value(element)
		resp.Items = append(resp.Items, models.RankingEntry{
			Rank:        i + 1,
			Station:     h.station(obs.StationID),
			Value:       value,
			Text:        obs.Text(element),
			Observation: toObservation(obs),
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// station returns the directory entry, nil while the directory lacks it.
func (h *AmedasHandler) station(id string) *models.Station {
	st, err := h.service.Station(id)
	if err != nil {
		return nil
	}
	m := toStation(st)
	return &m
}

// elementParam reads the element query parameter, temperature when absent.
func elementParam(r *http.Request) (amedas.Element, error) {
	name := r.URL.Query().Get("element")
	if name == "" {
		return amedas.ElementTemperature, nil
	}
	return amedas.ParseElement(name)
}
