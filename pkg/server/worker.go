package server

import (
	"context"
	"time"

	"github.com/matzehuels/cityposter/pkg/jobs"
	"github.com/matzehuels/cityposter/pkg/pipeline"
)

// registryTimeout bounds each registry call made by a worker.
const registryTimeout = 5 * time.Second

// submit schedules a job. It returns immediately; the job waits for a free
// worker slot.
func (s *Server) submit(job *jobs.Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			s.fail(job.ID, err)
			return
		}
		defer s.sem.Release(1)
		s.run(job)
	}()
}

func (s *Server) run(job *jobs.Job) {
	logger := s.logger.With("job", job.ID)

	if _, err := s.update(func(ctx context.Context) (*jobs.Job, error) {
		return jobs.Start(ctx, s.registry, job.ID, s.now())
	}); err != nil {
		if err != jobs.ErrSkip {
			logger.Error("start job", "err", err)
		}
		return
	}
	logger.Info("job started", "city", job.Request.City, "themes", job.Themes)

	opts := job.Request
	opts.OnStage = func(st pipeline.Stage) {
		ctx, cancel := context.WithTimeout(s.ctx, registryTimeout)
		defer cancel()
		if err := jobs.Progress(ctx, s.registry, job.ID, st); err != nil {
			logger.Warn("record progress", "stage", st, "err", err)
		}
	}

	results, err := s.execute(opts, job.Themes)
	if err != nil {
		s.fail(job.ID, err)
		logger.Warn("job failed", "err", err)
		return
	}

	files := make([]jobs.File, 0, len(results))
	for _, res := range results {
		files = append(files, jobs.File{
			Name:     res.Filename,
			Location: res.Location,
			Theme:    res.Theme,
			Format:   string(res.Format),
			Bytes:    len(res.Data),
		})
	}
	var hits []string
	if len(results) > 0 {
		hits = results[0].CacheHits
	}

	_, err = s.update(func(ctx context.Context) (*jobs.Job, error) {
		return jobs.Complete(ctx, s.registry, job.ID, files, hits, s.now())
	})
	switch {
	case err == jobs.ErrSkip:
		logger.Info("job cancelled while running, discarding output", "files", len(files))
		s.discard(files)
	case err != nil:
		logger.Error("complete job", "err", err)
	default:
		logger.Info("job completed", "files", len(files))
	}
}

// execute runs one theme, or several from a shared fetch.
func (s *Server) execute(opts pipeline.Options, themes []string) ([]*pipeline.Result, error) {
	if len(themes) > 1 {
		return s.runner.ExecuteAllThemes(s.ctx, opts, themes)
	}
	if len(themes) == 1 {
		opts.Theme = themes[0]
	}
	res, err := s.runner.Execute(s.ctx, opts)
	if err != nil {
		return nil, err
	}
	return []*pipeline.Result{res}, nil
}

func (s *Server) fail(id string, runErr error) {
	_, err := s.update(func(ctx context.Context) (*jobs.Job, error) {
		return jobs.Fail(ctx, s.registry, id, runErr, s.now())
	})
	if err != nil && err != jobs.ErrSkip {
		s.logger.Error("fail job", "job", id, "err", err)
	}
}

// discard deletes stored posters of a cancelled job.
func (s *Server) discard(files []jobs.File) {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	for _, f := range files {
		if err := s.runner.Store.Delete(ctx, f.Name); err != nil {
			s.logger.Warn("delete discarded poster", "file", f.Name, "err", err)
		}
	}
}

func (s *Server) update(fn func(context.Context) (*jobs.Job, error)) (*jobs.Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	return fn(ctx)
}
