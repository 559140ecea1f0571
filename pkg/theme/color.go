package theme

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque theme color.
type Color struct {
	colorful.Color
}

// ParseColor parses "#RRGGBB" or "#RGB". The leading '#' is optional.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s != "" && s[0] != '#' {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, err
	}
	return Color{c}, nil
}

// MustColor is ParseColor for package-level literals.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return c.Color.Clamped().Hex()
}

// WithAlpha returns the color with a straight alpha in [0, 1].
func (c Color) WithAlpha(a float64) color.NRGBA {
	r, g, b := c.Color.Clamped().RGB255()
	switch {
	case a < 0:
		a = 0
	case a > 1:
		a = 1
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

// NRGBA returns the fully opaque color.
func (c Color) NRGBA() color.NRGBA {
	return c.WithAlpha(1)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
