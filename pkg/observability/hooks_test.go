package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "geocode")
	p.OnStageComplete(ctx, "geocode", time.Second, nil)
	p.OnPosterComplete(ctx, "Paris", "noir", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "geocode")
	c.OnCacheMiss(ctx, "features")
	c.OnCacheSet(ctx, "features", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "nominatim.openstreetmap.org", "/search")
	h.OnResponse(ctx, "GET", "nominatim.openstreetmap.org", "/search", 200, time.Second)
	h.OnError(ctx, "POST", "overpass-api.de", "/api/interpreter", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	stages := &recordingHooks{}
	SetPipelineHooks(stages)
	if Pipeline() != PipelineHooks(stages) {
		t.Error("SetPipelineHooks should set custom hooks")
	}
	SetPipelineHooks(nil)
	if Pipeline() != PipelineHooks(stages) {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Pipeline().OnStageStart(context.Background(), "compose")
	if len(stages.started) != 1 || stages.started[0] != "compose" {
		t.Errorf("started = %v", stages.started)
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestLogHooks(t *testing.T) {
	defer Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	h := NewLogHooks(logger)
	h.Register()

	ctx := context.Background()
	Pipeline().OnStageComplete(ctx, "fetch_roads", time.Millisecond, errors.New("overpass down"))
	Cache().OnCacheHit(ctx, "geocode")
	HTTP().OnResponse(ctx, "GET", "example.org", "/search", 200, time.Millisecond)

	out := buf.String()
	for _, want := range []string{"stage failed", "fetch_roads", "overpass down", "cache hit", "http response"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

type recordingHooks struct {
	NoopPipelineHooks
	started []string
}

func (r *recordingHooks) OnStageStart(_ context.Context, stage string) {
	r.started = append(r.started, stage)
}
