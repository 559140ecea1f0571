// Package pipeline provides the poster pipeline shared by the CLI and the
// web server.
//
// # Architecture
//
// A run is split into two halves so that several themes can share one
// download:
//
//  1. Fetch: geocode the place and download roads, water and parks
//  2. Render: classify roads, size the canvas, compose, encode and persist
//
// [Runner.Execute] resolves the theme and runs both halves in sequence.
// [Runner.ExecuteAllThemes] fetches once and renders every requested theme
// with bounded concurrency.
//
// # Usage
//
//	runner := pipeline.NewRunner(geocoder, provider, themes, store, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    City:    "Paris",
//	    Country: "France",
//	    Theme:   "noir",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Location)
//
// # Errors
//
// Four failures end a run, each with its own code from pkg/errors:
// LOCATION_NOT_FOUND, THEME_LOAD, FEATURE_FETCH (roads only) and
// OUTPUT_WRITE. Missing water or parks is logged and the layer is skipped.
package pipeline

import (
	"image"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cityposter/pkg/classify"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/render/canvas"
	"github.com/matzehuels/cityposter/pkg/render/compose"
	"github.com/matzehuels/cityposter/pkg/render/sink"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultDistance is the query radius in meters.
	DefaultDistance = 29000.0

	// MaxDistance bounds the query radius; larger areas overwhelm public
	// Overpass instances.
	MaxDistance = 100000.0

	// MaxPhysicalCM bounds each poster side.
	MaxPhysicalCM = 200.0

	// DefaultConcurrency bounds parallel renders in all-themes mode.
	DefaultConcurrency = 4
)

// =============================================================================
// Options - Poster Configuration
// =============================================================================

// Options describes one poster request. It supports JSON for API requests.
type Options struct {
	City    string `json:"city"`
	Country string `json:"country"`

	Theme          string            `json:"theme,omitempty"`
	ThemeOverrides map[string]string `json:"theme_overrides,omitempty"`

	// Distance is the query radius in meters.
	Distance float64 `json:"distance,omitempty"`

	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
	Unit    string  `json:"unit,omitempty"`
	DPI     float64 `json:"dpi,omitempty"`
	Quality string  `json:"quality,omitempty"`

	Format      string `json:"format,omitempty"`
	JPEGQuality int    `json:"jpeg_quality,omitempty"`
	Clean       bool   `json:"clean,omitempty"`
	Transparent bool   `json:"transparent,omitempty"`

	// Refresh bypasses cached geocoder and provider responses.
	Refresh bool `json:"refresh,omitempty"`

	// OnStage is called as each stage starts. In all-themes mode it is
	// called from several goroutines.
	OnStage func(Stage) `json:"-"`
}

// SetDefaults fills zero values.
func (o *Options) SetDefaults() {
	o.City = strings.TrimSpace(o.City)
	o.Country = strings.TrimSpace(o.Country)
	o.Theme = strings.TrimSpace(o.Theme)
	o.Unit = strings.ToLower(strings.TrimSpace(o.Unit))
	o.Format = strings.ToLower(strings.TrimSpace(o.Format))
	if o.Theme == "" {
		o.Theme = theme.DefaultName
	}
	if o.Distance == 0 {
		o.Distance = DefaultDistance
	}
	if o.Width == 0 {
		o.Width = canvas.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = canvas.DefaultHeight
	}
	if o.Unit == "" {
		o.Unit = string(canvas.DefaultUnit)
	}
	if o.Format == "" {
		o.Format = string(sink.FormatPNG)
	}
	if o.JPEGQuality == 0 {
		o.JPEGQuality = sink.DefaultJPEGQuality
	}
}

// Validate checks the options after SetDefaults.
func (o *Options) Validate() error {
	if o.City == "" {
		return errors.New(errors.ErrCodeInvalidInput, "city is required")
	}
	if o.Country == "" {
		return errors.New(errors.ErrCodeInvalidInput, "country is required")
	}
	if err := errors.ValidatePlaceName("city", o.City); err != nil {
		return err
	}
	if err := errors.ValidatePlaceName("country", o.Country); err != nil {
		return err
	}
	if err := errors.ValidateThemeName(o.Theme); err != nil {
		return err
	}
	if o.Distance <= 0 || o.Distance > MaxDistance {
		return errors.New(errors.ErrCodeInvalidInput, "distance must be between 1 and %.0f meters", MaxDistance)
	}

	unit, err := canvas.ParseUnit(o.Unit)
	if err != nil {
		return err
	}
	for _, side := range []struct {
		name string
		v    float64
	}{{"width", o.Width}, {"height", o.Height}} {
		if side.v <= 0 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must be positive", side.name)
		}
		if in, _ := unit.Inches(side.v); in*2.54 > MaxPhysicalCM {
			return errors.New(errors.ErrCodeInvalidInput, "%s exceeds %.0f cm", side.name, MaxPhysicalCM)
		}
	}

	if o.DPI < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "dpi must be positive")
	}
	if _, err := canvas.DPIForQuality(o.Quality); err != nil {
		return err
	}

	format, err := sink.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	if o.Transparent && !format.SupportsAlpha() {
		return errors.New(errors.ErrCodeInvalidFormat, "transparent background requires png, not %s", format)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return errors.New(errors.ErrCodeInvalidInput, "jpeg quality must be between 1 and 100")
	}
	return nil
}

// ResolvedDPI returns the explicit DPI, or the quality preset's, clamped.
func (o *Options) ResolvedDPI() float64 {
	dpi := o.DPI
	if dpi == 0 {
		dpi, _ = canvas.DPIForQuality(o.Quality)
	}
	return canvas.ClampDPI(dpi)
}

// Aspect returns width / height of the physical poster.
func (o *Options) Aspect() float64 {
	if o.Height == 0 {
		return 1
	}
	return o.Width / o.Height
}

// =============================================================================
// Results
// =============================================================================

// Result is one rendered and persisted poster. It is not modified after
// Execute returns.
type Result struct {
	Image    *image.RGBA `json:"-"`
	Data     []byte      `json:"-"`
	Filename string      `json:"filename"`
	Location string      `json:"location"`
	Format   sink.Format `json:"format"`
	Theme    string      `json:"theme"`

	Place  geo.Location    `json:"place"`
	Canvas canvas.Size     `json:"canvas"`
	Layers []compose.Layer `json:"-"`

	// CaptionRegions bounds the caption pixels, empty for clean posters.
	CaptionRegions []image.Rectangle `json:"-"`

	Stats     Stats    `json:"stats"`
	CacheHits []string `json:"cache_hits,omitempty"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Stages map[Stage]time.Duration `json:"stages"`
	Total  time.Duration           `json:"total"`

	Roads int                   `json:"roads"`
	Water int                   `json:"water"`
	Parks int                   `json:"parks"`
	Tiers map[classify.Tier]int `json:"tiers,omitempty"`
	Bytes int                   `json:"bytes"`
}

func (s Stats) clone() Stats {
	out := s
	out.Stages = make(map[Stage]time.Duration, len(s.Stages))
	for k, v := range s.Stages {
		out.Stages[k] = v
	}
	return out
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
