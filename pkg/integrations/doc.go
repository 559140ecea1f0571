// Package integrations provides HTTP clients for the OpenStreetMap services
// a poster is built from.
//
// # Overview
//
// Each upstream has its own subpackage:
//
//   - [nominatim]: place name geocoding
//   - [overpass]: road, water and park geometry
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by both,
// including response caching via [cache.Cache], retry with backoff for
// 5xx and 429 responses, and HTTP hooks from [observability].
//
//	client := integrations.NewClient(c, "coords", cache.TTLGeocode, nil)
//	err := client.Cached(ctx, key, "coords", false, &loc, func() error {
//	    return client.Get(ctx, url, &loc)
//	})
//
// Cached results are JSON-encoded. Failed fetches are never cached.
package integrations
