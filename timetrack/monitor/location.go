package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Coordinates is a coarse position fix.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PlaceDetails is the reverse-geocoded label for a fix.
type PlaceDetails struct {
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// LocationProbe resolves a best-effort position through an ip-api.com shaped
// endpoint. Every lookup fails soft: timeouts, non-200 codes, non-success
// payload status and malformed bodies all return nil, never an error. The
// last successful fix is cached under the probe's mutex.
type LocationProbe struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu       sync.Mutex
	cached   *Coordinates
	cachedAt time.Time

	now func() time.Time
}

func NewLocationProbe(baseURL string, log *slog.Logger) *LocationProbe {
	if baseURL == "" {
		baseURL = "http://ip-api.com"
	}
	return &LocationProbe{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: log,
		now: time.Now,
	}
}

type geoResponse struct {
	Status     string  `json:"status"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
	Timezone   string  `json:"timezone"`
}

// ResolveCurrent looks up the current position and updates the cache on
// success.
func (p *LocationProbe) ResolveCurrent(ctx context.Context) *Coordinates {
	data := p.lookup(ctx, p.baseURL+"/json/")
	if data == nil {
		return nil
	}
	fix := &Coordinates{Lat: data.Lat, Lon: data.Lon}
	p.mu.Lock()
	p.cached = fix
	p.cachedAt = p.now()
	p.mu.Unlock()
	return fix
}

// ResolveDetails reverse-geocodes a coordinate pair into a place label.
func (p *LocationProbe) ResolveDetails(ctx context.Context, lat, lon float64) *PlaceDetails {
	data := p.lookup(ctx, fmt.Sprintf("%s/json/%f,%f", p.baseURL, lat, lon))
	if data == nil {
		return nil
	}
	return &PlaceDetails{
		City:     data.City,
		Region:   data.RegionName,
		Country:  data.Country,
		Timezone: data.Timezone,
	}
}

// CachedLocation returns the last successful fix and its timestamp. A zero
// timestamp means no fix has succeeded yet.
func (p *LocationProbe) CachedLocation() (*Coordinates, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cached, p.cachedAt
}

func (p *LocationProbe) lookup(ctx context.Context, url string) *geoResponse {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.log.Warn("geolocation request build failed", slog.String("error", err.Error()))
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		p.log.Warn("geolocation lookup failed", slog.String("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		p.log.Warn("geolocation lookup returned non-200", slog.Int("status", resp.StatusCode))
		return nil
	}

	var data geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		p.log.Warn("geolocation response malformed", slog.String("error", err.Error()))
		return nil
	}
	if data.Status != "success" {
		p.log.Warn("geolocation upstream reported failure", slog.String("status", data.Status))
		return nil
	}
	return &data
}
