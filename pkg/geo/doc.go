// Package geo holds the geographic data model shared by the poster pipeline:
// feature sets returned by the map-data provider, geocoded locations, and
// the viewport that frames a poster around its center.
//
// Geometry uses github.com/paulmach/orb types in lon/lat order. The
// viewport projects to Web Mercator (orb/project) and then to canvas
// pixels, keeping the equal-aspect framing of the poster.
package geo
