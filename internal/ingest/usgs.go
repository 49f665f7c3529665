// Package ingest pulls reports from external disaster feeds and routes
// them through the clustering pipeline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// GeoJSON structures for the USGS earthquake feed.
type usgsFeatureCollection struct {
	Type     string        `json:"type"`
	Metadata usgsMetadata  `json:"metadata"`
	Features []usgsFeature `json:"features"`
}

type usgsMetadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Count     int    `json:"count"`
}

type usgsFeature struct {
	Type       string         `json:"type"`
	Properties usgsProperties `json:"properties"`
	Geometry   usgsGeometry   `json:"geometry"`
	ID         string         `json:"id"`
}

type usgsProperties struct {
	Mag     *float64 `json:"mag"`     // Magnitude
	Place   string   `json:"place"`   // Location description
	Time    int64    `json:"time"`    // Unix timestamp (ms)
	Updated int64    `json:"updated"` // Last updated (ms)
	URL     string   `json:"url"`     // USGS event page
	Status  string   `json:"status"`  // reviewed, automatic
	Tsunami int      `json:"tsunami"` // 1 if tsunami warning
	Title   string   `json:"title"`   // Full title
	Type    string   `json:"type"`    // earthquake, quarry blast, etc.
}

type usgsGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude, depth]
}

// USGSFetcher pulls the USGS GeoJSON earthquake summary feed.
type USGSFetcher struct {
	url    string
	client *http.Client
}

// NewUSGSFetcher creates a fetcher for the given feed URL.
func NewUSGSFetcher(url string, timeout time.Duration) *USGSFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &USGSFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *USGSFetcher) Name() string { return "usgs" }

// Fetch downloads and converts the feed. Features keep their USGS
// feature ID as the external ID for deduplication.
func (f *USGSFetcher) Fetch(ctx context.Context) ([]domain.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build usgs request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch usgs feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usgs feed returned status %d", resp.StatusCode)
	}

	var fc usgsFeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode usgs feed: %w", err)
	}

	reports := make([]domain.Report, 0, len(fc.Features))
	for _, feat := range fc.Features {
		r := domain.Report{
			ID:           uuid.Must(uuid.NewV7()).String(),
			ExtID:        feat.ID,
			Source:       domain.SourceUSGS,
			Text:         feat.Properties.Title,
			Place:        feat.Properties.Place,
			DisasterType: usgsDisasterType(feat.Properties.Type),
			Magnitude:    feat.Properties.Mag,
			CreatedAt:    time.UnixMilli(feat.Properties.Time).UTC(),
		}
		// Coordinates are [lon, lat, depth].
		if len(feat.Geometry.Coordinates) >= 2 {
			c := domain.Coordinate{
				Lat: feat.Geometry.Coordinates[1],
				Lon: feat.Geometry.Coordinates[0],
			}
			if c.Valid() {
				r.Location = &c
			}
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func usgsDisasterType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return "earthquake"
	}
	return t
}
