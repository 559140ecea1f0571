package caption

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/fonts"
)

// Kind identifies a caption element.
type Kind int

const (
	KindCity Kind = iota
	KindDivider
	KindCountry
	KindCoordinates
	KindAttribution
)

func (k Kind) String() string {
	switch k {
	case KindCity:
		return "city"
	case KindDivider:
		return "divider"
	case KindCountry:
		return "country"
	case KindCoordinates:
		return "coordinates"
	case KindAttribution:
		return "attribution"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Block is one positioned caption element. X and Y are normalized axis
// fractions from the bottom left. AnchorX and AnchorY follow gg's
// DrawStringAnchored convention: 0.5, 0.5 centers the text on the point and
// 1, 0 right-aligns it with the baseline on the point.
type Block struct {
	Kind    Kind
	Text    string
	X, Y    float64
	AnchorX float64
	AnchorY float64
	Weight  fonts.Weight
	Size    float64 // points
	Alpha   float64

	// Divider geometry, in normalized units.
	HalfLength float64
	LineWidth  float64 // points
}

// Input is the caption source data.
type Input struct {
	City    string
	Country string
	Coords  *orb.Point
	Clean   bool
	Scale   float64 // poster width in inches / 16; zero means 1
}

const (
	Attribution = "© OpenStreetMap contributors"

	citySize        = 60.0
	countrySize     = 22.0
	coordsSize      = 14.0
	attributionSize = 8.0

	cityMaxChars  = 10
	cityMinFactor = 0.4

	cityY           = 0.14
	dividerY        = 0.125
	dividerYAlone   = 0.105
	countryY        = 0.10
	coordsY         = 0.07
	coordsYAlone    = 0.10
	dividerHalf     = 0.1
	dividerHalfMin  = 0.07
	dividerHalfMax  = 0.2
	dividerWidth    = 1.0
	coordsAlpha     = 0.7
	attributionX    = 0.98
	attributionY    = 0.02
	attributionFade = 0.5
)

// Layout returns the caption blocks for in, top of the stack first and the
// attribution last.
func Layout(in Input) []Block {
	if in.Clean {
		return nil
	}
	scale := in.Scale
	if !(scale > 0) {
		scale = 1
	}

	country := strings.TrimSpace(in.Country)
	hasCountry := country != ""

	var blocks []Block
	if city := strings.TrimSpace(in.City); city != "" {
		blocks = append(blocks, Block{
			Kind: KindCity, Text: SpaceLetters(city),
			X: 0.5, Y: cityY, AnchorX: 0.5, AnchorY: 0.5,
			Weight: fonts.Bold, Size: CitySize(city, scale), Alpha: 1,
		})
	}

	if in.Coords != nil {
		y := dividerY
		if !hasCountry {
			y = dividerYAlone
		}
		blocks = append(blocks, Block{
			Kind: KindDivider, X: 0.5, Y: y, Alpha: 1,
			HalfLength: clamp(dividerHalf*scale, dividerHalfMin, dividerHalfMax),
			LineWidth:  dividerWidth * scale,
		})
	}

	if hasCountry {
		blocks = append(blocks, Block{
			Kind: KindCountry, Text: strings.ToUpper(country),
			X: 0.5, Y: countryY, AnchorX: 0.5, AnchorY: 0.5,
			Weight: fonts.Light, Size: countrySize * scale, Alpha: 1,
		})
	}

	if in.Coords != nil {
		y := coordsY
		if !hasCountry {
			y = coordsYAlone
		}
		blocks = append(blocks, Block{
			Kind: KindCoordinates, Text: FormatCoords(*in.Coords),
			X: 0.5, Y: y, AnchorX: 0.5, AnchorY: 0.5,
			Weight: fonts.Regular, Size: coordsSize * scale, Alpha: coordsAlpha,
		})
	}

	blocks = append(blocks, Block{
		Kind: KindAttribution, Text: Attribution,
		X: attributionX, Y: attributionY, AnchorX: 1, AnchorY: 0,
		Weight: fonts.Light, Size: attributionSize * scale, Alpha: attributionFade,
	})
	return blocks
}

// SpaceLetters uppercases s and separates its letters with two spaces.
func SpaceLetters(s string) string {
	runes := []rune(strings.ToUpper(s))
	parts := make([]string, len(runes))
	for i, r := range runes {
		parts[i] = string(r)
	}
	return strings.Join(parts, "  ")
}

// CitySize returns the city font size, shrinking long names down to 40% of
// the base size.
func CitySize(city string, scale float64) float64 {
	base := citySize * scale
	n := utf8.RuneCountInString(city)
	if n <= cityMaxChars {
		return base
	}
	return math.Max(base*float64(cityMaxChars)/float64(n), base*cityMinFactor)
}

// FormatCoords renders a point as "48.8566° N / 2.3522° E".
func FormatCoords(p orb.Point) string {
	lat, lon := p.Lat(), p.Lon()
	ns, ew := "N", "E"
	if lat < 0 {
		ns = "S"
	}
	if lon < 0 {
		ew = "W"
	}
	return fmt.Sprintf("%.4f° %s / %.4f° %s", math.Abs(lat), ns, math.Abs(lon), ew)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
