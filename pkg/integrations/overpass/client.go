package overpass

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/integrations"
)

// DefaultBaseURL is the main public Overpass instance.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

// DefaultTimeout is the server-side query timeout.
const DefaultTimeout = 180 * time.Second

// Layer names, also used as cache key types.
const (
	LayerRoads = "roads"
	LayerWater = "water"
	LayerParks = "parks"
)

// Client fetches map features for a viewport.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
	network Network
	timeout time.Duration
	keyer   cache.Keyer
}

// NewClient creates an Overpass client. An empty baseURL selects
// [DefaultBaseURL]; a zero timeout selects [DefaultTimeout].
func NewClient(backend cache.Cache, baseURL string, network Network, timeout, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if network == "" {
		network = NetworkDrive
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	headers := map[string]string{"User-Agent": integrations.UserAgent()}
	c := &Client{
		Client:  integrations.NewClient(backend, "features", cacheTTL, headers),
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		timeout: timeout,
		keyer:   cache.NewDefaultKeyer(),
	}
	// leave headroom over the server-side timeout
	c.SetHTTPClient(integrations.NewHTTPClientWithTimeout(timeout + 30*time.Second))
	return c
}

// Network returns the road network filter in use.
func (c *Client) Network() Network { return c.network }

// Roads returns the highway ways inside vp.
func (c *Client) Roads(ctx context.Context, vp geo.Viewport, refresh bool) ([]geo.Road, error) {
	var roads []geo.Road
	key := c.keyer.FeatureKey(LayerRoads, keyOpts(vp, string(c.network)))
	query := RoadsQuery(vp.Bound(), c.network, c.timeoutSec())
	err := c.Cached(ctx, key, LayerRoads, refresh, &roads, func() error {
		d, err := c.run(ctx, query)
		if err != nil {
			return err
		}
		roads = d.Roads()
		return nil
	})
	return roads, err
}

// Water returns water polygons inside vp.
func (c *Client) Water(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error) {
	return c.areas(ctx, LayerWater, WaterTags, vp, refresh)
}

// Parks returns park and grass polygons inside vp.
func (c *Client) Parks(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error) {
	return c.areas(ctx, LayerParks, ParkTags, vp, refresh)
}

func (c *Client) areas(ctx context.Context, layer string, filters []Tag, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	key := c.keyer.FeatureKey(layer, keyOpts(vp, ""))
	query := AreaQuery(vp.Bound(), filters, c.timeoutSec())
	err := c.Cached(ctx, key, layer, refresh, &mp, func() error {
		d, err := c.run(ctx, query)
		if err != nil {
			return err
		}
		mp = d.Polygons(filters)
		return nil
	})
	return mp, err
}

func (c *Client) run(ctx context.Context, query string) (*document, error) {
	body, err := c.PostForm(ctx, c.baseURL, url.Values{"data": {query}})
	if err != nil {
		return nil, err
	}
	return decode(body)
}

func (c *Client) timeoutSec() int {
	return int(c.timeout / time.Second)
}

func keyOpts(vp geo.Viewport, network string) cache.FeatureKeyOpts {
	radius := min(vp.HalfWidth, vp.HalfHeight)
	aspect := 1.0
	if vp.HalfHeight > 0 {
		aspect = vp.HalfWidth / vp.HalfHeight
	}
	return cache.FeatureKeyOpts{
		Lat:     vp.Center.Lat(),
		Lon:     vp.Center.Lon(),
		Radius:  radius,
		Aspect:  aspect,
		Network: network,
	}
}
