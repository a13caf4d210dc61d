// Package jma provides a client for the JMA bosai AMeDAS endpoints.
package jma

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL of the AMeDAS data tree.
	DefaultBaseURL = "https://www.jma.go.jp/bosai/amedas"

	// ProviderName identifies this provider.
	ProviderName = "jma"

	snapshotLayout = "200601021504"
	windowLayout   = "20060102_15"
)

// ClientConfig holds configuration for the JMA client.
type ClientConfig struct {
	// BaseURL is the data tree base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client without retries is created.
	HTTPClient HTTPDoer

	// Location is the zone upstream timestamps are expressed in (default: JST).
	Location *time.Location

	// Timeout for individual requests (default: 10s).
	Timeout time.Duration

	// Registry receives the default client's health (optional).
	Registry *resilience.Registry

	// Logger for outbound requests.
	Logger zerolog.Logger
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a JMA AMeDAS client. It implements amedas.Provider.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	location   *time.Location
	logger     zerolog.Logger
}

var _ amedas.Provider = (*Client)(nil)

// NewClient creates a new JMA client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	loc := cfg.Location
	if loc == nil {
		loc = amedas.DefaultLocation()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Registry = cfg.Registry
		// A half-open probe must admit every window of one series.
		rc.CircuitBreaker.MaxRequests = amedas.WindowCount
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		location:   loc,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchStations retrieves the station directory.
func (c *Client) FetchStations(ctx context.Context) (map[string]amedas.Station, error) {
	body, err := c.get(ctx, "/const/amedastable.json")
	if err != nil {
		return nil, fmt.Errorf("fetch station table: %w", err)
	}
	stations, err := parseStationTable(body)
	if err != nil {
		return nil, fmt.Errorf("decode station table: %w", err)
	}
	return stations, nil
}

// FetchLatestTime retrieves the timestamp of the newest published snapshot.
func (c *Client) FetchLatestTime(ctx context.Context) (time.Time, error) {
	body, err := c.get(ctx, "/data/latest_time.txt")
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch latest time: %w", err)
	}
	t, err := parseLatestTime(body, c.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode latest time: %w", err)
	}
	return t, nil
}

// FetchSnapshot retrieves every station's observation at t.
func (c *Client) FetchSnapshot(ctx context.Context, t time.Time) (*amedas.Snapshot, error) {
	t = t.In(c.location)
	body, err := c.get(ctx, "/data/map/"+t.Format(snapshotLayout)+"00.json")
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	obs, err := parseSnapshot(body, t)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &amedas.Snapshot{Time: t, Observations: obs}, nil
}

// FetchWindow retrieves the 3 hour window of a station starting at start.
func (c *Client) FetchWindow(ctx context.Context, stationID string, start time.Time) ([]amedas.Observation, error) {
	path := "/data/point/" + url.PathEscape(stationID) + "/" + start.In(c.location).Format(windowLayout) + ".json"
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch window: %w", err)
	}
	obs, err := parseWindow(body, stationID, c.location)
	if err != nil {
		return nil, fmt.Errorf("decode window: %w", err)
	}
	return obs, nil
}

// get performs a GET against the base URL and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	target := c.baseURL + path
	if _, err := url.ParseRequestURI(target); err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrWrongURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrWrongURL, err)
	}

	c.logger.Debug().Str("url", target).Msg("jma request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", amedas.ErrHTTP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", amedas.ErrHTTP, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", amedas.ErrHTTP, err)
	}
	return body, nil
}
