package geo

import "github.com/paulmach/orb"

// Road is a single road edge with its raw highway values.
type Road struct {
	ID      int64          `json:"id,omitempty"`
	Highway []string       `json:"highway"`
	Line    orb.LineString `json:"line"`
}

// FeatureSet is the geometry returned by a map-data provider. Each
// collection is independently optional.
type FeatureSet struct {
	Water Optional[orb.MultiPolygon]
	Parks Optional[orb.MultiPolygon]
	Roads Optional[[]Road]
}

// WaterPolygons returns the water polygons, or nil when absent.
func (f FeatureSet) WaterPolygons() orb.MultiPolygon { return f.Water.OrZero() }

// ParkPolygons returns the park polygons, or nil when absent.
func (f FeatureSet) ParkPolygons() orb.MultiPolygon { return f.Parks.OrZero() }

// RoadEdges returns the road edges, or nil when absent.
func (f FeatureSet) RoadEdges() []Road { return f.Roads.OrZero() }

// Location is a geocoded place.
type Location struct {
	Point       orb.Point `json:"point"`
	DisplayName string    `json:"display_name,omitempty"`
}

// Lat returns the latitude.
func (l Location) Lat() float64 { return l.Point.Lat() }

// Lon returns the longitude.
func (l Location) Lon() float64 { return l.Point.Lon() }
