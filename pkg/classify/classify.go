package classify

import (
	"sort"
	"strings"
)

var tierTags = map[Tier][]string{
	Motorway:     {"motorway", "motorway_link"},
	TrunkPrimary: {"trunk", "trunk_link", "primary", "primary_link"},
	Secondary:    {"secondary", "secondary_link"},
	Tertiary:     {"tertiary", "tertiary_link"},
	Residential:  {"residential", "living_street", "unclassified"},
}

// Tags is a normalized set of highway values.
type Tags map[string]struct{}

// NewTags builds a normalized tag set from raw highway values.
func NewTags(values ...string) Tags {
	tags := make(Tags, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				tags[part] = struct{}{}
			}
		}
	}
	return tags
}

func (t Tags) Has(v string) bool {
	_, ok := t[v]
	return ok
}

// Values returns the set members in sorted order.
func (t Tags) Values() []string {
	out := make([]string, 0, len(t))
	for v := range t {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Classify returns the highest-ranked tier whose tags intersect the set.
func Classify(tags Tags) Tier {
	for _, tier := range Tiers[:len(Tiers)-1] {
		for _, v := range tierTags[tier] {
			if tags.Has(v) {
				return tier
			}
		}
	}
	return Default
}

// ClassifyValues is shorthand for Classify(NewTags(values...)).
func ClassifyValues(values ...string) Tier {
	return Classify(NewTags(values...))
}

// TagsFor returns the highway values that map to the tier. Default has none.
func TagsFor(tier Tier) []string {
	return append([]string(nil), tierTags[tier]...)
}
