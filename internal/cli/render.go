package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/cityposter/pkg/config"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/pipeline"
	"github.com/matzehuels/cityposter/pkg/storage"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	city        string
	country     string
	theme       string
	colors      []string // key=#hex theme overrides
	distance    float64  // query radius in meters
	width       float64
	height      float64
	unit        string
	dpi         float64
	quality     string // dpi preset, used when --dpi is 0
	format      string
	jpegQuality int
	clean       bool
	transparent bool
	allThemes   bool
	pickTheme   bool
	listThemes  bool
	output      string // output directory
	noCache     bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	defaults := config.Default().Render
	opts := renderOpts{
		theme:    defaults.Theme,
		distance: defaults.Distance,
		width:    defaults.Width,
		height:   defaults.Height,
		unit:     defaults.Unit,
		dpi:      defaults.DPI,
		format:   defaults.Format,
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a map poster for a city",
		Example: `  cityposter render -c Paris -C France
  cityposter render -c Tokyo -C Japan -t noir -d 12000
  cityposter render -c Venice -C Italy --all-themes --format jpeg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			applyConfigDefaults(&opts, cfg.Render, cmd.Flags())
			if opts.listThemes {
				return printThemeTable(theme.NewResolver(cfg.Paths.Themes))
			}
			return c.runRender(cmd.Context(), cfg, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.city, "city", "c", "", "city name")
	f.StringVarP(&opts.country, "country", "C", "", "country name")
	f.StringVarP(&opts.theme, "theme", "t", opts.theme, "theme name (see `cityposter themes`)")
	f.StringArrayVar(&opts.colors, "color", nil, "override a theme color, e.g. --color water=#0A2540 (repeatable)")
	f.Float64VarP(&opts.distance, "distance", "d", opts.distance, "map radius in meters")
	f.Float64VarP(&opts.width, "width", "W", opts.width, "poster width")
	f.Float64VarP(&opts.height, "height", "H", opts.height, "poster height")
	f.StringVar(&opts.unit, "unit", opts.unit, "unit for width and height: cm, mm")
	f.Float64Var(&opts.dpi, "dpi", opts.dpi, "output resolution; 0 uses --quality")
	f.StringVar(&opts.quality, "quality", "", "resolution preset: low, medium, high, ultra, lossless")
	f.StringVar(&opts.format, "format", opts.format, "output format: png, jpeg")
	f.IntVar(&opts.jpegQuality, "jpeg-quality", 0, "JPEG quality 1-100")
	f.BoolVar(&opts.clean, "clean", false, "omit captions")
	f.BoolVar(&opts.transparent, "transparent", false, "transparent background (png only)")
	f.BoolVar(&opts.allThemes, "all-themes", false, "render one poster per available theme")
	f.BoolVar(&opts.pickTheme, "pick-theme", false, "choose the theme interactively")
	f.BoolVar(&opts.listThemes, "list-themes", false, "list available themes and exit")
	f.StringVarP(&opts.output, "output", "o", "", "output directory (default from config, posters/)")
	f.BoolVar(&opts.noCache, "no-cache", false, "bypass the response cache")

	cmd.MarkFlagsMutuallyExclusive("all-themes", "pick-theme")
	cmd.MarkFlagsMutuallyExclusive("all-themes", "theme")

	return cmd
}

// applyConfigDefaults fills flags the user did not set from the [render]
// section of the configuration.
func applyConfigDefaults(opts *renderOpts, r config.Render, flags *pflag.FlagSet) {
	set := func(name string, apply func()) {
		if !flags.Changed(name) {
			apply()
		}
	}
	set("theme", func() {
		if r.Theme != "" {
			opts.theme = r.Theme
		}
	})
	set("distance", func() {
		if r.Distance > 0 {
			opts.distance = r.Distance
		}
	})
	set("width", func() {
		if r.Width > 0 {
			opts.width = r.Width
		}
	})
	set("height", func() {
		if r.Height > 0 {
			opts.height = r.Height
		}
	})
	set("unit", func() {
		if r.Unit != "" {
			opts.unit = r.Unit
		}
	})
	set("dpi", func() {
		if flags.Changed("quality") {
			opts.dpi = 0
			return
		}
		if r.DPI > 0 {
			opts.dpi = r.DPI
		}
	})
	set("format", func() {
		if r.Format != "" {
			opts.format = r.Format
		}
	})
}

// parseColorOverrides turns key=#hex pairs into a theme override map.
func parseColorOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid --color %q (want key=#RRGGBB)", p)
		}
		out[key] = value
	}
	return out, nil
}

// pipelineOptions converts flags into pipeline options.
func (o *renderOpts) pipelineOptions() (pipeline.Options, error) {
	overrides, err := parseColorOverrides(o.colors)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		City:           o.city,
		Country:        o.country,
		Theme:          o.theme,
		ThemeOverrides: overrides,
		Distance:       o.distance,
		Width:          o.width,
		Height:         o.height,
		Unit:           o.unit,
		DPI:            o.dpi,
		Quality:        o.quality,
		Format:         o.format,
		JPEGQuality:    o.jpegQuality,
		Clean:          o.clean,
		Transparent:    o.transparent,
		Refresh:        o.noCache,
	}, nil
}

func (c *CLI) runRender(ctx context.Context, cfg config.Config, opts *renderOpts) error {
	logger := loggerFromContext(ctx)

	popts, err := opts.pipelineOptions()
	if err != nil {
		return err
	}
	if popts.City == "" || popts.Country == "" {
		return errors.New(errors.ErrCodeInvalidInput, "--city and --country are required")
	}

	themes := theme.NewResolver(cfg.Paths.Themes)
	if opts.pickTheme {
		name, err := pickTheme(themes)
		if err != nil {
			return err
		}
		if name == "" {
			printInfo("No theme selected")
			return nil
		}
		popts.Theme = name
	}

	dir := cfg.Paths.Posters
	if opts.output != "" {
		dir = opts.output
	}

	runLogger := logger
	var spin *Spinner
	if !c.verbose() {
		runLogger = quietLogger(logger)
		spin = newSpinnerWithContext(ctx, "Starting")
		popts.OnStage = func(s pipeline.Stage) { spin.SetMessage(s.Label()) }
	}

	runner, cs, err := c.newRunner(ctx, cfg, runnerDeps{
		store:   storage.NewFileStore(dir),
		noCache: opts.noCache,
		logger:  runLogger,
	})
	if err != nil {
		return err
	}
	defer cs.Close()
	runner.Themes = themes

	prog := newProgress(logger)
	if spin != nil {
		spin.Start()
	}

	var results []*pipeline.Result
	if opts.allThemes {
		results, err = runner.ExecuteAllThemes(ctx, popts, nil)
	} else {
		var res *pipeline.Result
		res, err = runner.Execute(ctx, popts)
		results = []*pipeline.Result{res}
	}

	switch {
	case err != nil && ctx.Err() != nil:
		if spin != nil {
			spin.Stop()
		}
		return ctx.Err()
	case err != nil && spin != nil:
		spin.StopWithError(errors.UserMessage(err))
		return err
	case err != nil:
		printError("%s", errors.UserMessage(err))
		return err
	case spin != nil:
		spin.Stop()
	}

	printResults(popts, results)
	if c.verbose() {
		prog.done(fmt.Sprintf("Rendered %d poster(s)", len(results)))
	}
	return nil
}

func printResults(opts pipeline.Options, results []*pipeline.Result) {
	for _, res := range results {
		printSuccess("%s %s", StyleTitle.Render(res.Theme), StyleDim.Render(fmt.Sprintf("%s, %s", opts.City, opts.Country)))
		printFile(res.Location)
		printStats(res.Stats, res.Canvas.String(), res.CacheHits)
	}
	if len(results) == 1 {
		printNewline()
		printNextStep("Try every theme", fmt.Sprintf("%s render -c %q -C %q --all-themes", appName, opts.City, opts.Country))
	}
}
