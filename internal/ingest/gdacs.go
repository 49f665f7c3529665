package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/sahaayak/disasterhub/internal/domain"
)

// gdacsEventTypes maps GDACS two-letter event codes to disaster types.
var gdacsEventTypes = map[string]string{
	"eq": "earthquake",
	"fl": "flood",
	"tc": "cyclone",
	"dr": "drought",
	"wf": "wildfire",
	"vo": "volcano",
	"ts": "tsunami",
}

// disasterKeywords drives the keyword fallback when an entry carries no
// GDACS event type. Order matters: the first matching entry wins, so
// "tropical storm" resolves to cyclone before the generic storm bucket.
var disasterKeywords = []struct {
	dtype    string
	keywords []string
}{
	{"earthquake", []string{"earthquake", "quake", "seismic", "tremor"}},
	{"flood", []string{"flood", "inundation", "deluge"}},
	{"cyclone", []string{"cyclone", "hurricane", "typhoon", "tropical storm"}},
	{"drought", []string{"drought", "dry spell", "water shortage"}},
	{"wildfire", []string{"wildfire", "bushfire", "forest fire", "brush fire"}},
	{"volcano", []string{"volcano", "volcanic", "eruption", "lava"}},
	{"tsunami", []string{"tsunami", "tidal wave"}},
	{"storm", []string{"storm", "thunderstorm", "hailstorm", "blizzard"}},
}

// GDACSFetcher pulls the GDACS RSS alert feed.
type GDACSFetcher struct {
	url     string
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewGDACSFetcher creates a fetcher for the given feed URL.
func NewGDACSFetcher(url string, timeout time.Duration) *GDACSFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GDACSFetcher{
		url:     url,
		parser:  gofeed.NewParser(),
		timeout: timeout,
	}
}

func (f *GDACSFetcher) Name() string { return "gdacs" }

// Fetch downloads and converts the feed. Entries without valid
// coordinates are dropped; the feed regularly carries region-level
// alerts that cannot be clustered.
func (f *GDACSFetcher) Fetch(ctx context.Context) ([]domain.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch gdacs feed: %w", err)
	}

	var reports []domain.Report
	for _, item := range feed.Items {
		loc := gdacsCoordinates(item)
		if loc == nil {
			continue
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		extID := item.GUID
		if extID == "" {
			extID = item.Link
		}

		reports = append(reports, domain.Report{
			ID:           uuid.Must(uuid.NewV7()).String(),
			ExtID:        extID,
			Source:       domain.SourceGDACS,
			Text:         strings.TrimSpace(item.Title),
			Place:        gdacsPlace(item),
			DisasterType: gdacsDisasterType(item),
			Location:     loc,
			CreatedAt:    published,
		})
	}
	return reports, nil
}

// gdacsCoordinates reads the georss:point extension ("lat lon").
func gdacsCoordinates(item *gofeed.Item) *domain.Coordinate {
	point := extensionValue(item, "georss", "point")
	if point == "" {
		return nil
	}
	parts := strings.Fields(point)
	if len(parts) < 2 {
		return nil
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return nil
	}
	return &c
}

func gdacsDisasterType(item *gofeed.Item) string {
	if code := strings.ToLower(extensionValue(item, "gdacs", "eventtype")); code != "" {
		if t, ok := gdacsEventTypes[code]; ok {
			return t
		}
	}

	text := strings.ToLower(item.Title + " " + item.Description)
	for _, entry := range disasterKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.dtype
			}
		}
	}
	return "unknown"
}

func gdacsPlace(item *gofeed.Item) string {
	if country := extensionValue(item, "gdacs", "country"); country != "" {
		return country
	}
	// Titles read like "Green earthquake alert ... in Indonesia".
	if i := strings.LastIndex(item.Title, " in "); i >= 0 {
		return strings.TrimSpace(item.Title[i+4:])
	}
	return ""
}

func extensionValue(item *gofeed.Item, namespace, name string) string {
	exts, ok := item.Extensions[namespace]
	if !ok {
		return ""
	}
	vals, ok := exts[name]
	if !ok || len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}
