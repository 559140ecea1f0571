package server

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/jobs"
	"github.com/matzehuels/cityposter/pkg/pipeline"
	"github.com/matzehuels/cityposter/pkg/render/sink"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// CreateRequest is the body of POST /api/posters.
type CreateRequest struct {
	pipeline.Options

	// AllThemes renders every theme, or those in Themes when set.
	AllThemes bool     `json:"all_themes,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// StatusResponse is the body of GET /api/posters/{id}.
type StatusResponse struct {
	*jobs.Job
	ElapsedSeconds float64  `json:"elapsed_seconds"`
	ETASeconds     *float64 `json:"eta_seconds,omitempty"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidTheme,
		errors.ErrCodeInvalidUnit, errors.ErrCodeInvalidPath, errors.ErrCodeThemeLoad, errors.ErrCodeUnsupported:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeLocationNotFound, errors.ErrCodeJobNotFound, errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeFeatureFetch, errors.ErrCodeNetwork, errors.ErrCodeTimeout, errors.ErrCodeRateLimited:
		return http.StatusBadGateway
	case errors.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	infos, err := s.runner.Themes.List()
	if err != nil {
		s.writeError(w, r, errors.ThemeLoad(err, "could not list themes"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Themes  []theme.Info
		Default string
	}{infos, theme.DefaultName}
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render index", "err", err)
	}
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	infos, err := s.runner.Themes.List()
	if err != nil {
		s.writeError(w, r, errors.ThemeLoad(err, "could not list themes"))
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	opts := req.Options
	opts.OnStage = nil
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	themes, err := s.requestedThemes(&req, opts.Theme)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job := jobs.New(opts, themes, s.now())
	if err := s.registry.Create(r.Context(), job); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.submit(job)

	w.Header().Set("Location", "/api/posters/"+job.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": job.ID})
}

// requestedThemes validates the theme names of a request up front, so a
// typo is reported immediately rather than through a failed job.
func (s *Server) requestedThemes(req *CreateRequest, single string) ([]string, error) {
	names := []string{single}
	if req.AllThemes {
		names = req.Themes
		if len(names) == 0 {
			infos, err := s.runner.Themes.List()
			if err != nil {
				return nil, errors.ThemeLoad(err, "could not list themes")
			}
			for _, info := range infos {
				names = append(names, info.Name)
			}
		}
	}
	for _, name := range names {
		if err := errors.ValidateThemeName(name); err != nil {
			return nil, err
		}
		if !s.runner.Themes.Exists(name) {
			return nil, errors.ThemeLoad(nil, "theme %q not found", name)
		}
	}
	return names, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := s.now()
	resp := StatusResponse{Job: job, ElapsedSeconds: job.Elapsed(now).Seconds()}
	if eta, ok := job.ETA(now); ok {
		secs := eta.Seconds()
		resp.ETASeconds = &secs
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, err := jobs.Cancel(r.Context(), s.registry, chi.URLParam(r, "id"), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("job cancelled", "job", job.ID)
	writeJSON(w, http.StatusOK, StatusResponse{Job: job, ElapsedSeconds: job.Elapsed(s.now()).Seconds()})
}

// finishedJob returns the job named in the URL if it completed.
func (s *Server) finishedJob(r *http.Request) (*jobs.Job, error) {
	job, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusCompleted {
		return nil, errors.New(errors.ErrCodeConflict, "job %s is %s", job.ID, job.Status)
	}
	return job, nil
}

// finishedFile returns file index of a completed job.
func (s *Server) finishedFile(r *http.Request, index int) (jobs.File, error) {
	job, err := s.finishedJob(r)
	if err != nil {
		return jobs.File{}, err
	}
	if index < 0 || index >= len(job.Files) {
		return jobs.File{}, errors.New(errors.ErrCodeNotFound, "job %s has no file %d", job.ID, index)
	}
	return job.Files[index], nil
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "file index must be a number"))
		return
	}
	file, err := s.finishedFile(r, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.runner.Store.Load(r.Context(), file.Name)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeNotFound, err, "poster %s is no longer available", file.Name))
		return
	}

	w.Header().Set("Content-Type", sink.Format(file.Format).ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if r.URL.Query().Get("inline") == "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	}
	_, _ = w.Write(data)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, err := s.finishedFile(r, 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := s.runner.Store.Load(r.Context(), file.Name)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeNotFound, err, "poster %s is no longer available", file.Name))
		return
	}
	img, err := sink.Decode(data)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "decode %s", file.Name))
		return
	}

	size := s.preview
	if v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("size"))); err == nil && v > 0 && v < size {
		size = v
	}
	thumb, err := sink.Encode(sink.Preview(img, size, size), sink.FormatPNG)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", sink.FormatPNG.ContentType())
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(thumb)
}

// handleArchive streams every poster of a job as one zip file.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	job, err := s.finishedJob(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Load everything first so a missing poster still yields a JSON error.
	data := make([][]byte, len(job.Files))
	for i, f := range job.Files {
		data[i], err = s.runner.Store.Load(r.Context(), f.Name)
		if err != nil {
			s.writeError(w, r, errors.Wrap(errors.ErrCodeNotFound, err, "poster %s is no longer available", f.Name))
			return
		}
	}

	name := fmt.Sprintf("posters_%s.zip", pipeline.Slug(job.Request.City))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	zw := zip.NewWriter(w)
	for i, f := range job.Files {
		// Encoded images are already compressed.
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store, Modified: job.FinishedAt})
		if err != nil {
			s.logger.Error("write archive", "job", job.ID, "err", err)
			return
		}
		if _, err := fw.Write(data[i]); err != nil {
			s.logger.Error("write archive", "job", job.ID, "err", err)
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("write archive", "job", job.ID, "err", err)
	}
}
