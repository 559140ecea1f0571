package compose

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/classify"
	"github.com/matzehuels/cityposter/pkg/geo"
)

// Layer identifies one drawing pass.
type Layer int

const (
	LayerBackground Layer = iota
	LayerWater
	LayerParks
	LayerRoads
	LayerFade
	LayerCaptions
)

// ZOrder is the drawing order, lowest first.
var ZOrder = []Layer{LayerBackground, LayerWater, LayerParks, LayerRoads, LayerFade, LayerCaptions}

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerWater:
		return "water"
	case LayerParks:
		return "parks"
	case LayerRoads:
		return "roads"
	case LayerFade:
		return "fade"
	case LayerCaptions:
		return "captions"
	}
	return fmt.Sprintf("Layer(%d)", int(l))
}

// StyledRoad is a road edge with its resolved tier.
type StyledRoad struct {
	Line orb.LineString
	Tier classify.Tier
}

// ClassifyRoads assigns a tier to every road and orders the result by
// ascending rank, keeping input order within a tier.
func ClassifyRoads(roads []geo.Road) []StyledRoad {
	out := make([]StyledRoad, 0, len(roads))
	for _, r := range roads {
		if len(r.Line) < 2 {
			continue
		}
		out = append(out, StyledRoad{Line: r.Line, Tier: classify.ClassifyValues(r.Highway...)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier.Rank() < out[j].Tier.Rank()
	})
	return out
}

// TierCounts tallies roads per tier.
func TierCounts(roads []StyledRoad) map[classify.Tier]int {
	counts := make(map[classify.Tier]int)
	for _, r := range roads {
		counts[r.Tier]++
	}
	return counts
}
