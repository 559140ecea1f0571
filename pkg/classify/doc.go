// Package classify maps raw OSM road tags onto a fixed visual hierarchy.
//
// # Overview
//
// Every road edge returned by the map-data provider carries one or more
// `highway` values. The poster does not draw each value differently; it
// collapses them into six tiers, each with a theme color key and a line
// width:
//
//	Tier           Tags                                        Width (pt)
//	motorway       motorway, motorway_link                     1.2
//	trunk_primary  trunk, trunk_link, primary, primary_link    1.0
//	secondary      secondary, secondary_link                   0.8
//	tertiary       tertiary, tertiary_link                     0.6
//	residential    residential, living_street, unclassified    0.4
//	default        anything else                               0.4
//
// # Normalization
//
// A way may arrive with a single value, a list of values (merged edges), or
// an OSM multi-value such as "primary;secondary". [NewTags] normalizes all
// of these to a set: values are trimmed, lowercased and split on ';'.
//
// # Tie-breaking
//
// [Classify] walks the tiers from motorway down to residential and returns
// the first one whose tag set intersects the input. When several recognized
// values are present, the highest-ranked tier wins. Unrecognized and empty
// inputs resolve to [Default]. The function is total and pure.
//
// Usage:
//
//	tier := classify.Classify(classify.NewTags("residential", "motorway"))
//	fmt.Println(tier, tier.Width()) // motorway 1.2
package classify
