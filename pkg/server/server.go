package server

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/matzehuels/cityposter/pkg/jobs"
	"github.com/matzehuels/cityposter/pkg/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	// DefaultWorkers bounds concurrently running jobs.
	DefaultWorkers = 2

	// DefaultPreviewSize is the longest side of preview thumbnails.
	DefaultPreviewSize = 800

	maxRequestBody = 1 << 20
)

// Options configures a Server.
type Options struct {
	Workers     int
	PreviewSize int
	Logger      *log.Logger

	// Now stamps job transitions. Nil means time.Now.
	Now func() time.Time
}

// Server runs poster jobs behind an HTTP API.
type Server struct {
	runner   *pipeline.Runner
	registry jobs.Registry
	logger   *log.Logger
	sem      *semaphore.Weighted
	preview  int
	now      func() time.Time

	// ctx outlives requests; workers use it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server. The runner's store also serves downloads.
func New(runner *pipeline.Runner, registry jobs.Registry, opts Options) *Server {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = DefaultPreviewSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		runner:   runner,
		registry: registry,
		logger:   opts.Logger,
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		preview:  opts.PreviewSize,
		now:      opts.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/themes", s.handleThemes)
		r.Route("/posters", func(r chi.Router) {
			r.Post("/", s.handleCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleStatus)
				r.Post("/cancel", s.handleCancel)
				r.Get("/files/{index}", s.handleFile)
				r.Get("/preview", s.handlePreview)
				r.Get("/archive", s.handleArchive)
			})
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down the
// listener and waits for running jobs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops queued jobs from starting and waits for running ones.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every submitted job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
