package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   Tier
	}{
		{"motorway", []string{"motorway"}, Motorway},
		{"motorway link", []string{"motorway_link"}, Motorway},
		{"trunk", []string{"trunk"}, TrunkPrimary},
		{"primary link", []string{"primary_link"}, TrunkPrimary},
		{"secondary", []string{"secondary"}, Secondary},
		{"tertiary link", []string{"tertiary_link"}, Tertiary},
		{"residential", []string{"residential"}, Residential},
		{"living street", []string{"living_street"}, Residential},
		{"unclassified", []string{"unclassified"}, Residential},
		{"unrecognized", []string{"busway"}, Default},
		{"empty", nil, Default},
		{"blank values", []string{"", "  "}, Default},
		{"motorway beats residential", []string{"residential", "motorway"}, Motorway},
		{"primary beats tertiary", []string{"tertiary", "primary"}, TrunkPrimary},
		{"unknown plus secondary", []string{"service", "secondary"}, Secondary},
		{"case and space", []string{"  MotorWay "}, Motorway},
		{"multi-value", []string{"tertiary;trunk"}, TrunkPrimary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyValues(tt.values...); got != tt.want {
				t.Errorf("ClassifyValues(%q) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestClassifyIsOrderIndependent(t *testing.T) {
	a := ClassifyValues("residential", "secondary", "footway")
	b := ClassifyValues("footway", "secondary", "residential")
	if a != b {
		t.Errorf("order changed result: %v vs %v", a, b)
	}
	if a != Secondary {
		t.Errorf("got %v, want %v", a, Secondary)
	}
}

func TestClassifyTotal(t *testing.T) {
	inputs := []string{"motorway", "trunk", "primary", "secondary", "tertiary",
		"residential", "service", "track", "path", "cycleway", "footway", "x;y", "🚗"}

	for _, in := range inputs {
		tier := ClassifyValues(in)
		found := false
		for _, known := range Tiers {
			if tier == known {
				found = true
			}
		}
		if !found {
			t.Errorf("ClassifyValues(%q) = %v, not in closed set", in, tier)
		}
	}
}

func TestEveryTierTagClassifiesToItsTier(t *testing.T) {
	for _, tier := range Tiers {
		for _, v := range TagsFor(tier) {
			if got := ClassifyValues(v); got != tier {
				t.Errorf("ClassifyValues(%q) = %v, want %v", v, got, tier)
			}
		}
	}
	if len(TagsFor(Default)) != 0 {
		t.Error("default tier should have no tags")
	}
}

func TestNewTags(t *testing.T) {
	got := NewTags(" Primary ", "secondary;TERTIARY", "", "primary").Values()
	want := []string{"primary", "secondary", "tertiary"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewTags() mismatch (-want +got):\n%s", diff)
	}
}

func TestTierAttributes(t *testing.T) {
	tests := []struct {
		tier  Tier
		name  string
		key   string
		width float64
		rank  int
	}{
		{Motorway, "motorway", "road_motorway", 1.2, 5},
		{TrunkPrimary, "trunk_primary", "road_primary", 1.0, 4},
		{Secondary, "secondary", "road_secondary", 0.8, 3},
		{Tertiary, "tertiary", "road_tertiary", 0.6, 2},
		{Residential, "residential", "road_residential", 0.4, 1},
		{Default, "default", "road_default", 0.4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tier.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.tier.String(), tt.name)
			}
			if tt.tier.ThemeKey() != tt.key {
				t.Errorf("ThemeKey() = %q, want %q", tt.tier.ThemeKey(), tt.key)
			}
			if tt.tier.Width() != tt.width {
				t.Errorf("Width() = %v, want %v", tt.tier.Width(), tt.width)
			}
			if tt.tier.Rank() != tt.rank {
				t.Errorf("Rank() = %v, want %v", tt.tier.Rank(), tt.rank)
			}
			if parsed, ok := ParseTier(tt.name); !ok || parsed != tt.tier {
				t.Errorf("ParseTier(%q) = %v, %v", tt.name, parsed, ok)
			}
		})
	}
}

func TestInvalidTierFallsBackToDefault(t *testing.T) {
	bad := Tier(42)
	if bad.ThemeKey() != "road_default" {
		t.Errorf("ThemeKey() = %q", bad.ThemeKey())
	}
	if bad.Width() != Default.Width() {
		t.Errorf("Width() = %v", bad.Width())
	}
	if bad.String() != "Tier(42)" {
		t.Errorf("String() = %q", bad.String())
	}
	if _, ok := ParseTier("highway"); ok {
		t.Error("ParseTier(highway) should fail")
	}
}
