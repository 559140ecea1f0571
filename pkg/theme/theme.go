package theme

import (
	"encoding/json"
	"sort"

	"github.com/matzehuels/cityposter/pkg/classify"
)

// DefaultName is the name of the built-in palette.
const DefaultName = "feature_based"

// Theme file keys for the required colors.
const (
	KeyBackground      = "bg"
	KeyText            = "text"
	KeyGradient        = "gradient_color"
	KeyWater           = "water"
	KeyParks           = "parks"
	KeyRoadMotorway    = "road_motorway"
	KeyRoadPrimary     = "road_primary"
	KeyRoadSecondary   = "road_secondary"
	KeyRoadTertiary    = "road_tertiary"
	KeyRoadResidential = "road_residential"
	KeyRoadDefault     = "road_default"
)

// RequiredKeys lists every key a resolved theme must carry.
var RequiredKeys = []string{
	KeyBackground, KeyText, KeyGradient, KeyWater, KeyParks,
	KeyRoadMotorway, KeyRoadPrimary, KeyRoadSecondary,
	KeyRoadTertiary, KeyRoadResidential, KeyRoadDefault,
}

const (
	keyName        = "name"
	keyDescription = "description"
)

// Theme is a complete poster palette.
type Theme struct {
	Name        string
	Description string

	Background      Color
	Text            Color
	Gradient        Color
	Water           Color
	Parks           Color
	RoadMotorway    Color
	RoadPrimary     Color
	RoadSecondary   Color
	RoadTertiary    Color
	RoadResidential Color
	RoadDefault     Color

	// Extensions holds optional colors such as "railway".
	Extensions map[string]Color
}

// Default returns the built-in "Feature-Based Shading" palette.
// Each call returns a fresh value.
func Default() Theme {
	return Theme{
		Name:            "Feature-Based Shading",
		Description:     "Different shades for different road types and features with clear hierarchy",
		Background:      MustColor("#FFFFFF"),
		Text:            MustColor("#000000"),
		Gradient:        MustColor("#FFFFFF"),
		Water:           MustColor("#C0C0C0"),
		Parks:           MustColor("#F0F0F0"),
		RoadMotorway:    MustColor("#0A0A0A"),
		RoadPrimary:     MustColor("#1A1A1A"),
		RoadSecondary:   MustColor("#2A2A2A"),
		RoadTertiary:    MustColor("#3A3A3A"),
		RoadResidential: MustColor("#4A4A4A"),
		RoadDefault:     MustColor("#3A3A3A"),
	}
}

func (t *Theme) field(key string) *Color {
	switch key {
	case KeyBackground:
		return &t.Background
	case KeyText:
		return &t.Text
	case KeyGradient:
		return &t.Gradient
	case KeyWater:
		return &t.Water
	case KeyParks:
		return &t.Parks
	case KeyRoadMotorway:
		return &t.RoadMotorway
	case KeyRoadPrimary:
		return &t.RoadPrimary
	case KeyRoadSecondary:
		return &t.RoadSecondary
	case KeyRoadTertiary:
		return &t.RoadTertiary
	case KeyRoadResidential:
		return &t.RoadResidential
	case KeyRoadDefault:
		return &t.RoadDefault
	}
	return nil
}

// IsRequired reports whether key is one of RequiredKeys.
func IsRequired(key string) bool {
	return (&Theme{}).field(key) != nil
}

// Get returns the color stored under key, required or extension.
func (t Theme) Get(key string) (Color, bool) {
	if f := t.field(key); f != nil {
		return *f, true
	}
	c, ok := t.Extensions[key]
	return c, ok
}

// Set stores a color under key. Unknown keys become extensions.
func (t *Theme) Set(key string, c Color) {
	if f := t.field(key); f != nil {
		*f = c
		return
	}
	if t.Extensions == nil {
		t.Extensions = make(map[string]Color)
	}
	t.Extensions[key] = c
}

// RoadColor returns the color for a road tier.
func (t Theme) RoadColor(tier classify.Tier) Color {
	c, _ := t.Get(tier.ThemeKey())
	return c
}

// Clone returns a deep copy.
func (t Theme) Clone() Theme {
	out := t
	if t.Extensions != nil {
		out.Extensions = make(map[string]Color, len(t.Extensions))
		for k, v := range t.Extensions {
			out.Extensions[k] = v
		}
	}
	return out
}

// Keys returns required keys followed by sorted extension keys.
func (t Theme) Keys() []string {
	keys := append([]string(nil), RequiredKeys...)
	ext := make([]string, 0, len(t.Extensions))
	for k := range t.Extensions {
		ext = append(ext, k)
	}
	sort.Strings(ext)
	return append(keys, ext...)
}

// Map returns the theme in file form.
func (t Theme) Map() map[string]string {
	m := make(map[string]string, len(RequiredKeys)+len(t.Extensions)+2)
	for _, k := range t.Keys() {
		c, _ := t.Get(k)
		m[k] = c.Hex()
	}
	if t.Name != "" {
		m[keyName] = t.Name
	}
	if t.Description != "" {
		m[keyDescription] = t.Description
	}
	return m
}

// MarshalJSON writes the theme in file form.
func (t Theme) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Map())
}
