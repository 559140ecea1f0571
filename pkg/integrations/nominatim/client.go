package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"

	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/integrations"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// KeyType labels geocode lookups in cache hooks and hit reports.
const KeyType = "coords"

// Client resolves place names to coordinates.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL     string
	keyer       cache.Keyer
	minInterval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewClient creates a Nominatim client. An empty baseURL selects
// [DefaultBaseURL]; an empty userAgent selects [integrations.UserAgent].
func NewClient(backend cache.Cache, baseURL, userAgent string, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = integrations.UserAgent()
	}
	headers := map[string]string{
		"User-Agent": userAgent,
		"Accept":     "application/json",
	}
	return &Client{
		Client:      integrations.NewClient(backend, KeyType, cacheTTL, headers),
		baseURL:     strings.TrimRight(baseURL, "/"),
		keyer:       cache.NewDefaultKeyer(),
		minInterval: time.Second,
	}
}

// SetMinInterval changes the spacing between live requests. Zero disables it.
func (c *Client) SetMinInterval(d time.Duration) { c.minInterval = d }

// Geocode looks up "city, country" and returns the first match. It returns
// a LOCATION_NOT_FOUND error when Nominatim has no result, and a
// NETWORK_ERROR, TIMEOUT or RATE_LIMITED error when it cannot be reached.
func (c *Client) Geocode(ctx context.Context, city, country string, refresh bool) (geo.Location, error) {
	query := strings.TrimSpace(city)
	if country = strings.TrimSpace(country); country != "" {
		query += ", " + country
	}

	var loc geo.Location
	key := c.keyer.GeocodeKey(city, country)
	err := c.Cached(ctx, key, KeyType, refresh, &loc, func() error {
		return c.search(ctx, query, &loc)
	})
	if err != nil {
		if errors.Is(err, errors.ErrCodeLocationNotFound) || ctx.Err() == context.Canceled {
			return geo.Location{}, err
		}
		if te := integrations.TransportError(err, "geocoder"); te != nil {
			return geo.Location{}, te
		}
		return geo.Location{}, errors.LocationNotFound(err, "could not geocode %q", query)
	}
	return loc, nil
}

func (c *Client) search(ctx context.Context, query string, loc *geo.Location) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	body, err := c.GetBytes(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		return err
	}

	parsed, err := parseResult(body)
	if err != nil {
		return err
	}
	if parsed == nil {
		return errors.LocationNotFound(nil, "no results for %q", query)
	}
	*loc = *parsed
	return nil
}

// parseResult extracts the first hit from a search response. It returns
// nil, nil for an empty result list.
func parseResult(body []byte) (*geo.Location, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON from geocoder", integrations.ErrNetwork)
	}
	first := gjson.GetBytes(body, "0")
	if !first.Exists() {
		return nil, nil
	}

	lat := first.Get("lat")
	lon := first.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return nil, fmt.Errorf("%w: geocoder result missing coordinates", integrations.ErrNetwork)
	}
	// Nominatim returns coordinates as strings; Float handles both forms.
	return &geo.Location{
		Point:       orb.Point{lon.Float(), lat.Float()},
		DisplayName: first.Get("display_name").String(),
	}, nil
}

// wait spaces live requests at least minInterval apart.
func (c *Client) wait(ctx context.Context) error {
	if c.minInterval <= 0 {
		return nil
	}
	c.mu.Lock()
	next := c.last.Add(c.minInterval)
	now := time.Now()
	if next.Before(now) {
		next = now
	}
	c.last = next
	c.mu.Unlock()

	d := time.Until(next)
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
