// Package canvas converts physical poster sizes into pixel dimensions.
//
// Both supported units go through centimeters and a single
// centimeters-per-inch factor, so 30 cm and 300 mm always produce the same
// pixel size at a given resolution.
package canvas

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/cityposter/pkg/errors"
)

// Unit is a linear unit for poster dimensions.
type Unit string

const (
	UnitCM Unit = "cm"
	UnitMM Unit = "mm"
)

const (
	cmPerInch = 2.54

	DefaultWidth  = 30.48
	DefaultHeight = 40.64
	DefaultUnit   = UnitCM
	DefaultDPI    = 150.0

	MinDPI = 72.0
	MaxDPI = 1200.0

	// fontScaleBase is the poster width in inches at which caption sizes
	// are used unscaled.
	fontScaleBase = 16.0
)

// Quality presets mapped to DPI.
var qualityDPI = map[string]float64{
	"low":      100,
	"medium":   150,
	"high":     300,
	"ultra":    600,
	"lossless": 600,
}

// Size is a resolved canvas.
type Size struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPI    float64 `json:"dpi"`

	WidthInches  float64 `json:"width_inches"`
	HeightInches float64 `json:"height_inches"`
}

// ParseUnit validates a unit name.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitCM, UnitMM:
		return u, nil
	case "":
		return DefaultUnit, nil
	}
	return "", errors.New(errors.ErrCodeInvalidUnit, "unsupported unit %q (want cm or mm)", s)
}

// perCM returns how many of the unit make up one centimeter.
func (u Unit) perCM() (float64, bool) {
	switch u {
	case UnitCM:
		return 1, true
	case UnitMM:
		return 10, true
	}
	return 0, false
}

// Inches converts a length in the unit to inches.
func (u Unit) Inches(v float64) (float64, error) {
	n, ok := u.perCM()
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidUnit, "unsupported unit %q", string(u))
	}
	return v / n / cmPerInch, nil
}

// Pixels converts a physical width and height into a pixel canvas.
func Pixels(width, height float64, unit Unit, dpi float64) (Size, error) {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return Size{}, errors.New(errors.ErrCodeInvalidInput, "poster size must be positive, got %gx%g", width, height)
	}
	if !(dpi > 0) || math.IsInf(dpi, 0) {
		return Size{}, errors.New(errors.ErrCodeInvalidInput, "resolution must be positive, got %g", dpi)
	}

	wIn, err := unit.Inches(width)
	if err != nil {
		return Size{}, err
	}
	hIn, err := unit.Inches(height)
	if err != nil {
		return Size{}, err
	}

	s := Size{
		Width:        int(math.Round(wIn * dpi)),
		Height:       int(math.Round(hIn * dpi)),
		DPI:          dpi,
		WidthInches:  wIn,
		HeightInches: hIn,
	}
	if s.Width < 1 || s.Height < 1 {
		return Size{}, errors.New(errors.ErrCodeInvalidInput, "poster too small: %dx%d pixels", s.Width, s.Height)
	}
	return s, nil
}

// Aspect returns width / height.
func (s Size) Aspect() float64 {
	if s.HeightInches == 0 {
		return 1
	}
	return s.WidthInches / s.HeightInches
}

// FontScale returns the caption scale factor for the poster width.
func (s Size) FontScale() float64 {
	return s.WidthInches / fontScaleBase
}

// PointsToPixels converts a length in points to pixels at the canvas DPI.
func (s Size) PointsToPixels(pt float64) float64 {
	return pt * s.DPI / 72
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d px @ %g dpi", s.Width, s.Height, s.DPI)
}

// DPIForQuality maps a quality preset to a DPI. Empty selects DefaultDPI.
func DPIForQuality(q string) (float64, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return DefaultDPI, nil
	}
	dpi, ok := qualityDPI[q]
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "unknown quality %q", q)
	}
	return dpi, nil
}

// ClampDPI limits dpi to [MinDPI, MaxDPI].
func ClampDPI(dpi float64) float64 {
	return math.Max(MinDPI, math.Min(MaxDPI, dpi))
}
