package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/observability"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// ExecuteAllThemes renders one poster per theme name from a single fetch.
// An empty names list renders every theme the resolver lists. Results are
// returned in the order of names.
//
// Every theme is resolved before anything is downloaded, so a bad name fails
// fast. Renders run with at most Runner.Concurrency in flight; the first
// failure stops scheduling further renders and is returned. A failed batch
// deletes the posters it already stored and returns no results.
func (r *Runner) ExecuteAllThemes(ctx context.Context, opts Options, names []string) ([]*Result, error) {
	start := time.Now()
	ctx, tracker := cache.WithTracker(ctx)

	results, err := r.executeAll(ctx, &opts, names, tracker)
	for _, res := range results {
		if res != nil {
			res.Stats.Total = time.Since(start)
		}
	}
	observability.Pipeline().OnPosterComplete(ctx, opts.City, "*", time.Since(start), err)
	return results, err
}

func (r *Runner) executeAll(ctx context.Context, opts *Options, names []string, tracker *cache.Tracker) ([]*Result, error) {
	x := r.newRun(opts)

	if err := x.stage(ctx, StageValidate, func() error {
		opts.SetDefaults()
		return opts.Validate()
	}); err != nil {
		return nil, err
	}

	var themes []theme.Theme
	if err := x.stage(ctx, StageTheme, func() error {
		if len(names) == 0 {
			infos, err := r.Themes.List()
			if err != nil {
				return errors.ThemeLoad(err, "could not list themes")
			}
			for _, info := range infos {
				names = append(names, info.Name)
			}
		}
		if len(names) == 0 {
			return errors.ThemeLoad(nil, "no themes available")
		}
		for _, name := range names {
			th, err := r.Themes.Resolve(name, opts.ThemeOverrides)
			if err != nil {
				return err
			}
			themes = append(themes, th)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	r.logger().Info("rendering all themes", "city", opts.City, "themes", len(names))

	scene, err := r.fetch(ctx, x)
	if err != nil {
		return nil, err
	}

	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]*Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range names {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := *opts
			o.Theme = names[i]
			res, err := r.Render(gctx, scene, names[i], themes[i], o)
			if err != nil {
				return err
			}
			res.CacheHits = tracker.Hits()
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.discard(ctx, results)
		return nil, err
	}

	if opts.OnStage != nil {
		opts.OnStage(StageDone)
	}
	return results, nil
}

// discardTimeout bounds the cleanup of a failed batch.
const discardTimeout = 10 * time.Second

// discard deletes the stored posters of a failed batch. It runs even when
// ctx is already cancelled.
func (r *Runner) discard(ctx context.Context, results []*Result) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	for _, res := range results {
		if res == nil {
			continue
		}
		if err := r.Store.Delete(ctx, res.Filename); err != nil {
			r.logger().Warn("delete poster of failed batch", "file", res.Filename, "err", err)
			continue
		}
		r.logger().Debug("deleted poster of failed batch", "file", res.Filename)
	}
}
