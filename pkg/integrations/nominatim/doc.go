// Package nominatim geocodes place names with the OpenStreetMap Nominatim
// search API.
//
// Lookups are keyed by the normalized "city, country" pair and cached for
// [cache.TTLGeocode]. Live requests are spaced at least one second apart to
// respect the public instance's usage policy.
package nominatim
