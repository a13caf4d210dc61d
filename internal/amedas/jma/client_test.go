package jma_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/amedas/jma"
	"github.com/amedasmap/amedasmap/internal/provider/resilience"
)

func newTestClient(baseURL string) *jma.Client {
	return jma.NewClient(jma.ClientConfig{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_FetchStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/const/amedastable.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"11001":{"lat":[45,31.2],"lon":[141,56.1],"kjName":"宗谷岬","enName":"Cape Soya"},
			"11016":{"lat":[45,24.9],"lon":[141,40.7],"kjName":"稚内"}
		}`))
	}))
	defer server.Close()

	stations, err := newTestClient(server.URL).FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "Cape Soya", stations["11001"].NameRomanized)
}

func TestClient_FetchLatestTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/latest_time.txt", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("2023-06-19T03:00:00+09:00"))
	}))
	defer server.Close()

	latest, err := newTestClient(server.URL).FetchLatestTime(context.Background())
	require.NoError(t, err)
	assert.True(t, latest.Equal(time.Date(2023, 6, 18, 18, 0, 0, 0, time.UTC)))
}

func TestClient_FetchSnapshotPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// 18:00 UTC is 03:00 the next day in JST
	at := time.Date(2023, 6, 18, 18, 0, 0, 0, time.UTC)
	snapshot, err := newTestClient(server.URL).FetchSnapshot(context.Background(), at)
	require.NoError(t, err)

	assert.Equal(t, "/data/map/20230619030000.json", gotPath)
	assert.True(t, snapshot.Time.Equal(at))
	assert.Empty(t, snapshot.Observations)
}

func TestClient_FetchWindowPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"20230619030000":{"temp":[22.5,0]},"20230619031000":{"temp":[22.6,0]}}`))
	}))
	defer server.Close()

	start := time.Date(2023, 6, 19, 3, 0, 0, 0, amedas.DefaultLocation())
	obs, err := newTestClient(server.URL).FetchWindow(context.Background(), "44132", start)
	require.NoError(t, err)

	assert.Equal(t, "/data/point/44132/20230619_03.json", gotPath)
	assert.Len(t, obs, 2)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			want: amedas.ErrHTTP,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: amedas.ErrHTTP,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>maintenance</html>`))
			},
			want: amedas.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(server.URL)
			ctx := context.Background()

			_, err := client.FetchStations(ctx)
			assert.ErrorIs(t, err, tt.want)
			_, err = client.FetchLatestTime(ctx)
			assert.ErrorIs(t, err, tt.want)
			_, err = client.FetchSnapshot(ctx, time.Now())
			assert.ErrorIs(t, err, tt.want)
			_, err = client.FetchWindow(ctx, "44132", time.Now())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).FetchLatestTime(context.Background())
	assert.ErrorIs(t, err, amedas.ErrHTTP)
}

func TestClient_WrongURL(t *testing.T) {
	_, err := newTestClient("://no-scheme").FetchStations(context.Background())
	assert.ErrorIs(t, err, amedas.ErrWrongURL)
}

func TestClient_DefaultHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("2023-06-19T03:00:00+09:00"))
	}))
	defer server.Close()

	client := jma.NewClient(jma.ClientConfig{BaseURL: server.URL, Timeout: time.Second})
	assert.Equal(t, jma.ProviderName, client.Name())

	_, err := client.FetchLatestTime(context.Background())
	require.NoError(t, err)
}

func TestClient_FailedSeriesKeepsBreakerClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/data/latest_time.txt":
			_, _ = w.Write([]byte("2023-06-19T03:00:00+09:00"))
		case r.URL.Path == "/data/point/44132/20230619_03.json":
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/data/point/"):
			// Held until the failing window cancels the load.
			<-r.Context().Done()
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := jma.NewClient(jma.ClientConfig{
		BaseURL:  server.URL,
		Timeout:  5 * time.Second,
		Registry: registry,
		Logger:   zerolog.Nop(),
	})
	ctx := context.Background()

	_, err := client.FetchLatestTime(ctx)
	require.NoError(t, err)

	aggregator := amedas.NewSeriesAggregator(amedas.SeriesConfig{Fetcher: client, Logger: zerolog.Nop()})
	anchor := time.Date(2023, 6, 19, 3, 0, 0, 0, amedas.DefaultLocation())
	for i := 0; i < 3; i++ {
		_, err = aggregator.Load(ctx, "44132", anchor)
		assert.ErrorIs(t, err, amedas.ErrHTTP)
	}

	_, err = client.FetchLatestTime(ctx)
	require.NoError(t, err)

	health := registry.GetHealth(jma.ProviderName)
	require.NotNil(t, health)
	assert.Equal(t, resilience.LevelHealthy, health.Level())
}

func TestEndToEnd_LatestSnapshotClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/latest_time.txt":
			_, _ = w.Write([]byte("2023-06-19T03:00:00+09:00"))
		case "/data/map/20230619030000.json":
			_, _ = w.Write([]byte(`{"44132":{"temp":[22.5,0]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	svc := amedas.NewService(amedas.ServiceConfig{
		Provider: newTestClient(server.URL),
		Logger:   zerolog.Nop(),
	})

	snapshot, err := svc.LoadSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Observations, 1)

	key, ok := amedas.ClassifyObservation(snapshot.Observations[0], amedas.ElementTemperature)
	require.True(t, ok)
	assert.Equal(t, 6, key.Bucket)
	assert.Equal(t, "temperature:6", key.Identifier())
}

func TestEndToEnd_SeriesFromWindows(t *testing.T) {
	loc := amedas.DefaultLocation()
	anchor := time.Date(2023, 6, 19, 4, 30, 0, 0, loc)

	var mu sync.Mutex
	requested := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested[r.URL.Path] = true
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc := amedas.NewService(amedas.ServiceConfig{
		Provider: newTestClient(server.URL),
		Logger:   zerolog.Nop(),
	})

	series, err := svc.LoadSeriesAt(context.Background(), "44132", anchor)
	require.NoError(t, err)
	assert.Empty(t, series)

	assert.Len(t, requested, amedas.WindowCount)
	assert.True(t, requested["/data/point/44132/20230619_03.json"])
	assert.True(t, requested["/data/point/44132/20230618_03.json"])
}
