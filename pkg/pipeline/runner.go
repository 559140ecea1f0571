package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/fonts"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/observability"
	"github.com/matzehuels/cityposter/pkg/render/canvas"
	"github.com/matzehuels/cityposter/pkg/render/caption"
	"github.com/matzehuels/cityposter/pkg/render/compose"
	"github.com/matzehuels/cityposter/pkg/render/fade"
	"github.com/matzehuels/cityposter/pkg/render/sink"
	"github.com/matzehuels/cityposter/pkg/storage"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// Geocoder resolves a place to coordinates. A miss is reported as
// LOCATION_NOT_FOUND; errors without a code are treated as NETWORK_ERROR.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string, refresh bool) (geo.Location, error)
}

// Provider returns map geometry for a viewport.
type Provider interface {
	Roads(ctx context.Context, vp geo.Viewport, refresh bool) ([]geo.Road, error)
	Water(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error)
	Parks(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error)
}

// Runner executes poster runs against its collaborators.
//
// The Runner holds no per-run state. Multiple goroutines can safely use the
// same Runner with different options, provided the collaborators are safe
// for concurrent use.
type Runner struct {
	Geocoder Geocoder
	Provider Provider
	Themes   *theme.Resolver
	Fonts    *fonts.Set
	Store    storage.Store
	Logger   *log.Logger

	// Concurrency bounds parallel renders in ExecuteAllThemes.
	Concurrency int

	// Now stamps output filenames. Nil means time.Now.
	Now func() time.Time
}

// NewRunner creates a runner. A nil resolver uses the themes/ directory, a
// nil store writes to posters/, and a nil logger discards output.
func NewRunner(g Geocoder, p Provider, themes *theme.Resolver, store storage.Store, logger *log.Logger) *Runner {
	if themes == nil {
		themes = theme.NewResolver("themes")
	}
	if store == nil {
		store = storage.NewFileStore("posters")
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Runner{
		Geocoder:    g,
		Provider:    p,
		Themes:      themes,
		Store:       store,
		Logger:      logger,
		Concurrency: DefaultConcurrency,
	}
}

// Scene is the fetched input shared by every theme rendered for one place.
type Scene struct {
	Location geo.Location
	Viewport geo.Viewport
	Features geo.FeatureSet

	stats Stats
}

// run carries per-execution bookkeeping.
type run struct {
	r     *Runner
	opts  *Options
	stats Stats
}

func (r *Runner) newRun(opts *Options) *run {
	return &run{r: r, opts: opts, stats: Stats{Stages: make(map[Stage]time.Duration)}}
}

// stage times fn and reports it to hooks and the progress callback.
func (x *run) stage(ctx context.Context, s Stage, fn func() error) error {
	if x.opts.OnStage != nil {
		x.opts.OnStage(s)
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, string(s))

	start := time.Now()
	err := fn()
	d := time.Since(start)

	x.stats.Stages[s] = d
	hooks.OnStageComplete(ctx, string(s), d, err)
	return err
}

// Execute runs the complete pipeline for one theme.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	ctx, tracker := cache.WithTracker(ctx)

	result, err := r.execute(ctx, &opts, tracker)
	if err != nil {
		r.logger().Error("poster failed", "city", opts.City, "theme", opts.Theme, "err", err)
	} else {
		result.Stats.Total = time.Since(start)
	}
	observability.Pipeline().OnPosterComplete(ctx, opts.City, opts.Theme, time.Since(start), err)
	return result, err
}

func (r *Runner) execute(ctx context.Context, opts *Options, tracker *cache.Tracker) (*Result, error) {
	x := r.newRun(opts)

	if err := x.stage(ctx, StageValidate, func() error {
		opts.SetDefaults()
		return opts.Validate()
	}); err != nil {
		return nil, err
	}

	var th theme.Theme
	if err := x.stage(ctx, StageTheme, func() error {
		var err error
		th, err = r.Themes.Resolve(opts.Theme, opts.ThemeOverrides)
		return err
	}); err != nil {
		return nil, err
	}

	scene, err := r.fetch(ctx, x)
	if err != nil {
		return nil, err
	}

	result, err := r.render(ctx, scene, opts.Theme, th, x)
	if err != nil {
		return nil, err
	}
	result.CacheHits = tracker.Hits()

	if opts.OnStage != nil {
		opts.OnStage(StageDone)
	}
	return result, nil
}

// Fetch geocodes the place and downloads its features. Options must
// already carry defaults.
func (r *Runner) Fetch(ctx context.Context, opts Options) (*Scene, error) {
	return r.fetch(ctx, r.newRun(&opts))
}

func (r *Runner) fetch(ctx context.Context, x *run) (*Scene, error) {
	opts := x.opts
	logger := r.logger()
	scene := &Scene{}

	if err := x.stage(ctx, StageGeocode, func() error {
		loc, err := r.Geocoder.Geocode(ctx, opts.City, opts.Country, opts.Refresh)
		if err != nil {
			// Geocoders report misses and transport failures with their
			// own codes; anything else is treated as unreachable.
			if errors.GetCode(err) != "" || ctx.Err() != nil {
				return err
			}
			return errors.Wrap(errors.ErrCodeNetwork, err, "could not geocode %s, %s", opts.City, opts.Country)
		}
		scene.Location = loc
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Info("geocoded", "city", opts.City, "lat", scene.Location.Lat(), "lon", scene.Location.Lon())

	scene.Viewport = geo.NewViewport(scene.Location.Point, opts.Distance, opts.Aspect())

	if err := x.stage(ctx, StageRoads, func() error {
		roads, err := r.Provider.Roads(ctx, scene.Viewport, opts.Refresh)
		if err != nil {
			return errors.FeatureFetch(err, "could not download streets for %s", opts.City)
		}
		if len(roads) == 0 {
			return errors.FeatureFetch(nil, "no streets found within %.0f m of %s", opts.Distance, opts.City)
		}
		scene.Features.Roads = geo.Some(roads)
		x.stats.Roads = len(roads)
		return nil
	}); err != nil {
		return nil, err
	}
	logger.Info("fetched roads", "count", x.stats.Roads)

	optional := func(s Stage, fetch func(context.Context, geo.Viewport, bool) (orb.MultiPolygon, error)) geo.Optional[orb.MultiPolygon] {
		var out geo.Optional[orb.MultiPolygon]
		_ = x.stage(ctx, s, func() error {
			mp, err := fetch(ctx, scene.Viewport, opts.Refresh)
			if err != nil {
				logger.Warn("optional layer unavailable", "layer", string(s), "err", err)
				return err
			}
			if len(mp) > 0 {
				out = geo.Some(mp)
			}
			return nil
		})
		return out
	}
	scene.Features.Water = optional(StageWater, r.Provider.Water)
	scene.Features.Parks = optional(StageParks, r.Provider.Parks)
	x.stats.Water = len(scene.Features.WaterPolygons())
	x.stats.Parks = len(scene.Features.ParkPolygons())
	logger.Info("fetched areas", "water", x.stats.Water, "parks", x.stats.Parks)

	scene.stats = x.stats.clone()
	return scene, nil
}

// Render draws, encodes and persists one theme for a fetched scene. Options
// must already carry defaults.
func (r *Runner) Render(ctx context.Context, scene *Scene, name string, th theme.Theme, opts Options) (*Result, error) {
	x := r.newRun(&opts)
	x.stats = scene.stats.clone()
	return r.render(ctx, scene, name, th, x)
}

func (r *Runner) render(ctx context.Context, scene *Scene, name string, th theme.Theme, x *run) (*Result, error) {
	opts := x.opts
	logger := r.logger()

	var roads []compose.StyledRoad
	_ = x.stage(ctx, StageClassify, func() error {
		roads = compose.ClassifyRoads(scene.Features.RoadEdges())
		x.stats.Tiers = compose.TierCounts(roads)
		return nil
	})

	var size canvas.Size
	if err := x.stage(ctx, StageCanvas, func() error {
		var err error
		size, err = canvas.Pixels(opts.Width, opts.Height, canvas.Unit(opts.Unit), opts.ResolvedDPI())
		return err
	}); err != nil {
		return nil, err
	}
	logger.Debug("canvas", "size", size.String())

	var out *compose.Output
	if err := x.stage(ctx, StageCompose, func() error {
		coords := scene.Location.Point
		var err error
		out, err = compose.Compose(compose.Input{
			Theme:    th,
			Features: scene.Features,
			Roads:    roads,
			Fade:     fade.Generate(size.Width, size.Height, fade.DefaultFraction, th.Gradient.NRGBA()),
			Captions: caption.Layout(caption.Input{
				City:    opts.City,
				Country: opts.Country,
				Coords:  &coords,
				Clean:   opts.Clean,
				Scale:   size.FontScale(),
			}),
			Canvas:      size,
			Viewport:    scene.Viewport,
			Fonts:       r.Fonts,
			Transparent: opts.Transparent,
		})
		return err
	}); err != nil {
		return nil, err
	}

	format, _ := sink.ParseFormat(opts.Format)
	var data []byte
	if err := x.stage(ctx, StageEncode, func() error {
		var err error
		data, err = sink.Encode(out.Image, format, sink.WithJPEGQuality(opts.JPEGQuality))
		if err != nil {
			return errors.OutputWrite(err, "could not encode %s", format)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	x.stats.Bytes = len(data)

	filename := Filename(opts.City, name, format, r.now())
	var location string
	if err := x.stage(ctx, StagePersist, func() error {
		var err error
		location, err = r.Store.Save(ctx, filename, data)
		if err != nil && !errors.Is(err, errors.ErrCodeOutputWrite) {
			return errors.OutputWrite(err, "could not save %s", filename)
		}
		return err
	}); err != nil {
		return nil, err
	}
	logger.Info("saved poster", "file", location, "bytes", len(data))

	return &Result{
		Image:          out.Image,
		Data:           data,
		Filename:       filename,
		Location:       location,
		Format:         format,
		Theme:          name,
		Place:          scene.Location,
		Canvas:         size,
		Layers:         out.Layers,
		CaptionRegions: out.CaptionRegions,
		Stats:          x.stats,
	}, nil
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return discardLogger()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
