package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"

	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/geo"
	"github.com/matzehuels/cityposter/pkg/jobs"
	"github.com/matzehuels/cityposter/pkg/pipeline"
	"github.com/matzehuels/cityposter/pkg/storage"
	"github.com/matzehuels/cityposter/pkg/theme"
)

var paris = geo.Location{Point: orb.Point{2.3522, 48.8566}, DisplayName: "Paris, France"}

type fakeGeocoder struct{ err error }

func (f fakeGeocoder) Geocode(ctx context.Context, city, country string, refresh bool) (geo.Location, error) {
	return paris, f.err
}

// gatedProvider blocks Roads until release is closed, when gated.
type gatedProvider struct {
	gated   bool
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedProvider(gated bool) *gatedProvider {
	return &gatedProvider{gated: gated, started: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedProvider) Roads(ctx context.Context, vp geo.Viewport, refresh bool) ([]geo.Road, error) {
	if p.gated {
		p.once.Do(func() { close(p.started) })
		<-p.release
	}
	c := paris.Point
	return []geo.Road{
		{ID: 1, Highway: []string{"primary"}, Line: orb.LineString{{c[0] - 0.05, c[1]}, {c[0] + 0.05, c[1]}}},
	}, nil
}

func (p *gatedProvider) Water(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error) {
	return nil, nil
}

func (p *gatedProvider) Parks(ctx context.Context, vp geo.Viewport, refresh bool) (orb.MultiPolygon, error) {
	return nil, nil
}

type testEnv struct {
	srv      *Server
	ts       *httptest.Server
	store    *storage.MemoryStore
	registry *jobs.MemoryRegistry
	provider *gatedProvider
}

func newTestEnv(t *testing.T, g pipeline.Geocoder, p *gatedProvider, workers int) *testEnv {
	t.Helper()
	themes := &theme.Resolver{
		FS: fstest.MapFS{
			"blueprint.json": {Data: []byte(`{"name": "Blueprint", "bg": "#1A3A5C", "text": "#E8F4FF"}`)},
			"noir.json":      {Data: []byte(`{"name": "Noir", "bg": "#000000", "text": "#FFFFFF"}`)},
		},
		Default: theme.Default(),
	}
	store := storage.NewMemoryStore()
	runner := pipeline.NewRunner(g, p, themes, store, nil)
	registry := jobs.NewMemoryRegistry(time.Hour)

	srv := New(runner, registry, Options{Workers: workers, PreviewSize: 64})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return &testEnv{srv: srv, ts: ts, store: store, registry: registry, provider: p}
}

// smallRequest keeps canvases around 85x113 pixels.
func smallRequest(extra string) string {
	body := `{"city": "Paris", "country": "France", "distance": 4000, "width": 3, "height": 4, "dpi": 72`
	if extra != "" {
		body += ", " + extra
	}
	return body + "}"
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *testEnv) create(t *testing.T, body string) string {
	t.Helper()
	resp, data := e.post(t, "/api/posters", body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, data)
	}
	var out struct{ ID string }
	if err := json.Unmarshal(data, &out); err != nil || out.ID == "" {
		t.Fatalf("create body %s: %v", data, err)
	}
	return out.ID
}

func (e *testEnv) status(t *testing.T, id string) StatusResponse {
	t.Helper()
	resp, data := e.get(t, "/api/posters/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var out StatusResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)
	resp, data := e.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || string(data) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, data)
	}
}

func TestIndexAndThemes(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)

	resp, data := e.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("index status = %d", resp.StatusCode)
	}
	if !bytes.Contains(data, []byte(`value="blueprint"`)) {
		t.Error("index should offer the blueprint theme")
	}

	resp, data = e.get(t, "/api/themes")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("themes status = %d", resp.StatusCode)
	}
	var infos []theme.Info
	if err := json.Unmarshal(data, &infos); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, info := range infos {
		names = append(names, info.Name)
	}
	if diff := cmp.Diff([]string{"blueprint", theme.DefaultName, "noir"}, names); diff != "" {
		t.Errorf("theme names (-want +got):\n%s", diff)
	}
}

func TestCreateDownloadPreview(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)

	id := e.create(t, smallRequest(`"theme": "blueprint"`))
	e.srv.Wait()

	st := e.status(t, id)
	if st.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s (%s)", st.Status, st.Error)
	}
	if st.Percent != 100 || len(st.Files) != 1 {
		t.Fatalf("percent = %d, files = %d", st.Percent, len(st.Files))
	}
	if st.Files[0].Theme != "blueprint" || !strings.HasPrefix(st.Files[0].Name, "paris_blueprint_") {
		t.Errorf("file = %+v", st.Files[0])
	}

	resp, data := e.get(t, "/api/posters/"+id+"/files/0")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), st.Files[0].Name) {
		t.Errorf("Content-Disposition = %q", resp.Header.Get("Content-Disposition"))
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("download is not a PNG: %v", err)
	}

	resp, data = e.get(t, "/api/posters/"+id+"/preview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preview status = %d", resp.StatusCode)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() > 64 || b.Dy() > 64 {
		t.Errorf("preview size = %v, want within 64x64", b.Size())
	}

	if resp, _ := e.get(t, "/api/posters/"+id+"/files/1"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing index status = %d, want 404", resp.StatusCode)
	}
	if resp, _ := e.get(t, "/api/posters/"+id+"/files/x"); resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad index status = %d, want 422", resp.StatusCode)
	}
}

func TestCreateAllThemes(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)

	id := e.create(t, smallRequest(`"all_themes": true, "themes": ["noir", "blueprint"]`))
	e.srv.Wait()

	st := e.status(t, id)
	if st.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s (%s)", st.Status, st.Error)
	}
	var got []string
	for _, f := range st.Files {
		got = append(got, f.Theme)
	}
	if diff := cmp.Diff([]string{"noir", "blueprint"}, got); diff != "" {
		t.Errorf("file themes (-want +got):\n%s", diff)
	}
	if e.store.Len() != 2 {
		t.Errorf("stored %d posters, want 2", e.store.Len())
	}

	resp, data := e.get(t, "/api/posters/"+id+"/archive")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("archive status = %d", resp.StatusCode)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{st.Files[0].Name, st.Files[1].Name}, names); diff != "" {
		t.Errorf("archive entries (-want +got):\n%s", diff)
	}
}

func TestCreateValidation(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)

	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"malformed", `{"city":`, errors.ErrCodeInvalidInput},
		{"unknown field", `{"city": "Paris", "colour": "red"}`, errors.ErrCodeInvalidInput},
		{"missing city", `{"country": "France"}`, errors.ErrCodeInvalidInput},
		{"bad unit", smallRequest(`"unit": "ft"`), errors.ErrCodeInvalidUnit},
		{"bad format", smallRequest(`"format": "gif"`), errors.ErrCodeInvalidFormat},
		{"bad theme name", smallRequest(`"theme": "../x"`), errors.ErrCodeInvalidTheme},
		{"unknown theme", smallRequest(`"theme": "neon"`), errors.ErrCodeThemeLoad},
		{"unknown batch theme", smallRequest(`"all_themes": true, "themes": ["noir", "neon"]`), errors.ErrCodeThemeLoad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := e.post(t, "/api/posters", tt.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422 (%s)", resp.StatusCode, data)
			}
			var er errorResponse
			if err := json.Unmarshal(data, &er); err != nil {
				t.Fatal(err)
			}
			if er.Code != tt.code {
				t.Errorf("code = %s, want %s", er.Code, tt.code)
			}
		})
	}
	if e.registry.Len() != 0 {
		t.Errorf("invalid requests created %d jobs", e.registry.Len())
	}
}

func TestJobFailure(t *testing.T) {
	g := fakeGeocoder{err: errors.LocationNotFound(nil, "no match for Atlantis")}
	e := newTestEnv(t, g, newGatedProvider(false), 1)

	id := e.create(t, smallRequest(""))
	e.srv.Wait()

	st := e.status(t, id)
	if st.Status != jobs.StatusFailed || st.ErrorCode != string(errors.ErrCodeLocationNotFound) {
		t.Errorf("status = %s, code = %s", st.Status, st.ErrorCode)
	}
	if resp, _ := e.get(t, "/api/posters/"+id+"/files/0"); resp.StatusCode != http.StatusConflict {
		t.Errorf("download of failed job = %d, want 409", resp.StatusCode)
	}
}

func TestUnknownJob(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)
	for _, path := range []string{"/api/posters/nope", "/api/posters/nope/preview"} {
		if resp, _ := e.get(t, path); resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
	if resp, _ := e.post(t, "/api/posters/nope/cancel", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("cancel unknown = %d, want 404", resp.StatusCode)
	}
}

func TestCancelQueuedNeverStarts(t *testing.T) {
	p := newGatedProvider(true)
	e := newTestEnv(t, fakeGeocoder{}, p, 1)

	first := e.create(t, smallRequest(""))
	<-p.started
	second := e.create(t, smallRequest(""))

	resp, data := e.post(t, "/api/posters/"+second+"/cancel", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d (%s)", resp.StatusCode, data)
	}

	close(p.release)
	e.srv.Wait()

	if st := e.status(t, first); st.Status != jobs.StatusCompleted {
		t.Errorf("first status = %s", st.Status)
	}
	st := e.status(t, second)
	if st.Status != jobs.StatusCancelled || !st.StartedAt.IsZero() {
		t.Errorf("second status = %s, started %v", st.Status, st.StartedAt)
	}
	if e.store.Len() != 1 {
		t.Errorf("stored %d posters, want 1", e.store.Len())
	}
}

func TestCancelRunningDiscardsOutput(t *testing.T) {
	p := newGatedProvider(true)
	e := newTestEnv(t, fakeGeocoder{}, p, 1)

	id := e.create(t, smallRequest(""))
	<-p.started

	if st := e.status(t, id); st.Status != jobs.StatusRunning {
		t.Fatalf("status = %s, want running", st.Status)
	}
	if resp, _ := e.post(t, "/api/posters/"+id+"/cancel", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}

	close(p.release)
	e.srv.Wait()

	st := e.status(t, id)
	if st.Status != jobs.StatusCancelled || len(st.Files) != 0 {
		t.Errorf("status = %s, files = %d", st.Status, len(st.Files))
	}
	if e.store.Len() != 0 {
		t.Errorf("cancelled job left %d posters in the store", e.store.Len())
	}

	// Cancelling again is a no-op.
	if resp, _ := e.post(t, "/api/posters/"+id+"/cancel", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("second cancel status = %d", resp.StatusCode)
	}
}

func TestCancelCompletedConflict(t *testing.T) {
	e := newTestEnv(t, fakeGeocoder{}, newGatedProvider(false), 1)

	id := e.create(t, smallRequest(""))
	e.srv.Wait()

	if resp, _ := e.post(t, "/api/posters/"+id+"/cancel", ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("cancel completed = %d, want 409", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrCodeInvalidInput, "x"), http.StatusUnprocessableEntity},
		{errors.ThemeLoad(nil, "x"), http.StatusUnprocessableEntity},
		{errors.LocationNotFound(nil, "x"), http.StatusNotFound},
		{errors.New(errors.ErrCodeJobNotFound, "x"), http.StatusNotFound},
		{errors.FeatureFetch(nil, "x"), http.StatusBadGateway},
		{errors.OutputWrite(nil, "x"), http.StatusInternalServerError},
		{errors.New(errors.ErrCodeConflict, "x"), http.StatusConflict},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
