package cache

import (
	"fmt"
	"strings"
)

// Keyer produces cache keys.
type Keyer interface {
	// HTTPKey keys a raw HTTP response within a namespace.
	HTTPKey(namespace, key string) string
	// GeocodeKey keys a place lookup.
	GeocodeKey(city, country string) string
	// FeatureKey keys one map-data layer for a query.
	FeatureKey(layer string, opts FeatureKeyOpts) string
}

// FeatureKeyOpts identifies a map-data query.
type FeatureKeyOpts struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Radius  float64 `json:"radius"`
	Aspect  float64 `json:"aspect"`
	Network string  `json:"network,omitempty"`
}

// DefaultKeyer is the standard Keyer.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

func (DefaultKeyer) GeocodeKey(city, country string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return hashKey("coords", norm(city), norm(country))
}

func (DefaultKeyer) FeatureKey(layer string, opts FeatureKeyOpts) string {
	// 5 decimals is about a meter; nearby lookups of the same place share entries
	opts.Lat = round5(opts.Lat)
	opts.Lon = round5(opts.Lon)
	return hashKey("features:"+layer, opts)
}

func round5(v float64) float64 {
	const k = 1e5
	if v < 0 {
		return -float64(int64(-v*k+0.5)) / k
	}
	return float64(int64(v*k+0.5)) / k
}
