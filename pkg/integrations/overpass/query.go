package overpass

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// Network selects which highways a road query returns.
type Network string

const (
	NetworkDrive Network = "drive"
	NetworkAll   Network = "all"
)

// ParseNetwork validates a network type name. Empty selects drive.
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case "", NetworkDrive:
		return NetworkDrive, nil
	case NetworkAll:
		return NetworkAll, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown network type %q (want drive or all)", s)
}

var networkFilters = map[Network]string{
	NetworkDrive: `["highway"]["area"!~"yes"]` +
		`["highway"!~"abandoned|bridleway|bus_guideway|construction|corridor|cycleway|elevator|escalator|footway|no|path|pedestrian|planned|platform|proposed|raceway|razed|service|steps|track"]` +
		`["motor_vehicle"!~"no"]["motorcar"!~"no"]` +
		`["service"!~"alley|driveway|emergency_access|parking|parking_aisle|private"]`,
	NetworkAll: `["highway"]["area"!~"yes"]` +
		`["highway"!~"abandoned|construction|no|planned|platform|proposed|raceway|razed"]`,
}

// Tag is a key=value match on an OSM element.
type Tag struct {
	Key   string
	Value string
}

func (t Tag) String() string { return t.Key + "=" + t.Value }

// Area layers and the tags that select them.
var (
	WaterTags = []Tag{{"natural", "water"}, {"waterway", "riverbank"}}
	ParkTags  = []Tag{{"leisure", "park"}, {"landuse", "grass"}}
)

// bbox renders b in Overpass (south,west,north,east) order.
func bbox(b orb.Bound) string {
	return fmt.Sprintf("(%.6f,%.6f,%.6f,%.6f)", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

func header(timeoutSec int) string {
	if timeoutSec <= 0 {
		timeoutSec = 180
	}
	return fmt.Sprintf("[out:xml][timeout:%d];", timeoutSec)
}

// RoadsQuery builds a query for highway ways inside b.
func RoadsQuery(b orb.Bound, n Network, timeoutSec int) string {
	filter, ok := networkFilters[n]
	if !ok {
		filter = networkFilters[NetworkDrive]
	}
	var sb strings.Builder
	sb.WriteString(header(timeoutSec))
	sb.WriteString("(way")
	sb.WriteString(filter)
	sb.WriteString(bbox(b))
	sb.WriteString(";);(._;>;);out body;")
	return sb.String()
}

// AreaQuery builds a query for ways and multipolygon relations inside b
// matching any of tags.
func AreaQuery(b orb.Bound, tags []Tag, timeoutSec int) string {
	box := bbox(b)
	var sb strings.Builder
	sb.WriteString(header(timeoutSec))
	sb.WriteString("(")
	for _, t := range tags {
		fmt.Fprintf(&sb, `way["%s"="%s"]%s;`, t.Key, t.Value, box)
		fmt.Fprintf(&sb, `relation["%s"="%s"]%s;`, t.Key, t.Value, box)
	}
	sb.WriteString(");(._;>;);out body;")
	return sb.String()
}
