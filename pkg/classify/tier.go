package classify

import "fmt"

// Tier is one rung of the road hierarchy. Lower values are more important.
type Tier int

const (
	Motorway Tier = iota
	TrunkPrimary
	Secondary
	Tertiary
	Residential
	Default
)

// Tiers lists every tier from most to least important.
var Tiers = []Tier{Motorway, TrunkPrimary, Secondary, Tertiary, Residential, Default}

var tierNames = [...]string{
	Motorway:     "motorway",
	TrunkPrimary: "trunk_primary",
	Secondary:    "secondary",
	Tertiary:     "tertiary",
	Residential:  "residential",
	Default:      "default",
}

var themeKeys = [...]string{
	Motorway:     "road_motorway",
	TrunkPrimary: "road_primary",
	Secondary:    "road_secondary",
	Tertiary:     "road_tertiary",
	Residential:  "road_residential",
	Default:      "road_default",
}

var widths = [...]float64{
	Motorway:     1.2,
	TrunkPrimary: 1.0,
	Secondary:    0.8,
	Tertiary:     0.6,
	Residential:  0.4,
	Default:      0.4,
}

func (t Tier) valid() bool { return t >= Motorway && t <= Default }

func (t Tier) String() string {
	if !t.valid() {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Rank orders tiers for drawing: motorway is 5, default is 0.
func (t Tier) Rank() int {
	if !t.valid() {
		return 0
	}
	return int(Default - t)
}

// ThemeKey returns the theme color key for the tier, e.g. "road_motorway".
func (t Tier) ThemeKey() string {
	if !t.valid() {
		return themeKeys[Default]
	}
	return themeKeys[t]
}

// Width returns the stroke width in points.
func (t Tier) Width() float64 {
	if !t.valid() {
		return widths[Default]
	}
	return widths[t]
}

// ParseTier resolves a tier name as produced by String.
func ParseTier(s string) (Tier, bool) {
	for i, name := range tierNames {
		if name == s {
			return Tier(i), true
		}
	}
	return Default, false
}
