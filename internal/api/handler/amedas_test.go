package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/handler"
	"github.com/amedasmap/amedasmap/internal/api/models"
)

// swappingService hands out a new snapshot on every Snapshot call, as if a
// reload completed between two reads.
type swappingService struct {
	snapshots []*amedas.Snapshot
	calls     int
}

func (s *swappingService) Stations() []amedas.Station { return nil }

func (s *swappingService) Station(id string) (amedas.Station, error) {
	return amedas.Station{}, amedas.ErrStationNotFound
}

func (s *swappingService) Snapshot() (*amedas.Snapshot, error) {
	snapshot := s.snapshots[s.calls%len(s.snapshots)]
	s.calls++
	return snapshot, nil
}

func (s *swappingService) LoadSeriesAt(context.Context, string, time.Time) ([]amedas.Observation, error) {
	return nil, nil
}

func temperature(id string, v float64) amedas.Observation {
	return amedas.Observation{StationID: id, Temperature: &v}
}

func TestGetRanking_SingleSnapshot(t *testing.T) {
	loc := amedas.DefaultLocation()
	first := &amedas.Snapshot{
		Time:         time.Date(2023, 6, 19, 3, 0, 0, 0, loc),
		Observations: []amedas.Observation{temperature("44132", 22.5), temperature("11001", 12.0)},
	}
	second := &amedas.Snapshot{
		Time:         time.Date(2023, 6, 19, 3, 10, 0, 0, loc),
		Observations: []amedas.Observation{temperature("62078", 30.1)},
	}
	h := handler.NewAmedasHandler(&swappingService{snapshots: []*amedas.Snapshot{first, second}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ranking?element=temperature&limit=5", http.NoBody)
	w := httptest.NewRecorder()
	h.GetRanking(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.RankingResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.True(t, first.Time.Equal(resp.Time.Time()))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, 1, resp.Items[0].Rank)
	assert.InDelta(t, 22.5, resp.Items[0].Value, 1e-9)
	assert.InDelta(t, 12.0, resp.Items[1].Value, 1e-9)
}
