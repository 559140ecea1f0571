package integrations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/matzehuels/cityposter/pkg/cache"
	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	client := NewClient(c, "test", time.Hour, nil)
	client.SetBackoff(cache.Backoff{Attempts: 1})
	if server != nil {
		client.http = server.Client()
	}
	return client
}

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	headers := map[string]string{"User-Agent": "cityposter-test"}
	client := NewClient(c, "test", time.Hour, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["User-Agent"] != "cityposter-test" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test", time.Hour, nil)
	if client.cache == nil {
		t.Fatal("NewClient(nil) should fall back to a null cache")
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "cityposter-test" {
			t.Errorf("User-Agent = %q, want %q", r.Header.Get("User-Agent"), "cityposter-test")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"name":"Paris"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	client.headers = map[string]string{"User-Agent": "cityposter-test"}

	var resp map[string]string
	if err := client.Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp["name"] != "Paris" {
		t.Errorf("Get() name = %q, want %q", resp["name"], "Paris")
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "plain text response")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	text, err := client.GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "plain text response" {
		t.Errorf("GetText() = %q, want %q", text, "plain text response")
	}
}

func TestClientPostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error: %v", err)
		}
		io.WriteString(w, "echo:"+r.PostForm.Get("data"))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	body, err := client.PostForm(context.Background(), server.URL, url.Values{"data": {"[out:xml];"}})
	if err != nil {
		t.Fatalf("PostForm() error: %v", err)
	}
	if string(body) != "echo:[out:xml];" {
		t.Errorf("PostForm() = %q", body)
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestClientGet500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	var resp map[string]string
	err := client.Get(context.Background(), server.URL, &resp)
	if err == nil {
		t.Fatal("Get() should return error for 500")
	}
	if !cache.IsRetryable(err) {
		t.Errorf("Get() error should be retryable, got %T", err)
	}
}

func TestClientGet429(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.GetText(context.Background(), server.URL)
	var rl *perrors.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("GetText() error = %v, want RateLimitedError", err)
	}
	if rl.RetryAfter != 30 {
		t.Errorf("RetryAfter = %d, want 30", rl.RetryAfter)
	}
	if !cache.IsRetryable(err) {
		t.Error("rate limit should be retryable")
	}
}

func TestClientCached(t *testing.T) {
	client := newTestClient(t, nil)

	type testData struct {
		Value string `json:"value"`
	}

	fetchCount := 0
	fetch := func(v *testData) func() error {
		return func() error {
			fetchCount++
			*v = testData{Value: "fetched"}
			return nil
		}
	}

	ctx, tracker := cache.WithTracker(context.Background())

	var first testData
	if err := client.Cached(ctx, "key", "coords", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	var second testData
	if err := client.Cached(ctx, "key", "coords", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}

	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1", fetchCount)
	}
	if second.Value != "fetched" {
		t.Errorf("cached value = %q, want %q", second.Value, "fetched")
	}
	hits, misses := tracker.Counts()
	if hits != 1 || misses != 1 {
		t.Errorf("tracker = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestClientCachedRefresh(t *testing.T) {
	client := newTestClient(t, nil)

	fetchCount := 0
	var value string
	fetch := func() error {
		fetchCount++
		value = "fetched"
		return nil
	}

	for i := 0; i < 2; i++ {
		if err := client.Cached(context.Background(), "key", "roads", true, &value, fetch); err != nil {
			t.Fatalf("Cached() error: %v", err)
		}
	}
	if fetchCount != 2 {
		t.Errorf("fetch count = %d, want 2", fetchCount)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := newTestClient(t, nil)

	var value string
	fetchCount := 0
	fetch := func() error {
		fetchCount++
		return ErrNotFound
	}

	err := client.Cached(context.Background(), "missing", "coords", false, &value, fetch)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cached() error = %v, want ErrNotFound", err)
	}

	// failures are never cached
	err = client.Cached(context.Background(), "missing", "coords", false, &value, fetch)
	if err == nil {
		t.Error("second Cached() should fetch again and fail")
	}
	if fetchCount != 2 {
		t.Errorf("fetch count = %d, want 2", fetchCount)
	}
}

func TestClientCachedRetries(t *testing.T) {
	client := newTestClient(t, nil)
	client.SetBackoff(cache.Backoff{Attempts: 3, Delay: time.Millisecond})

	attempts := 0
	var value string
	fetch := func() error {
		attempts++
		if attempts < 3 {
			return cache.Retryable(ErrNetwork)
		}
		value = "ok"
		return nil
	}

	if err := client.Cached(context.Background(), "flaky", "water", false, &value, fetch); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantErr    bool
		wantType   error
		isRetryErr bool
	}{
		{name: "200 OK", code: 200},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrNotFound},
		{name: "500 Internal Server Error", code: 500, wantErr: true, isRetryErr: true},
		{name: "502 Bad Gateway", code: 502, wantErr: true, isRetryErr: true},
		{name: "504 Gateway Timeout", code: 504, wantErr: true, isRetryErr: true},
		{name: "400 Bad Request", code: 400, wantErr: true},
		{name: "403 Forbidden", code: 403, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code)

			if !tt.wantErr {
				if err != nil {
					t.Errorf("checkStatus() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("checkStatus() should return error")
			}
			if tt.wantType != nil && !errors.Is(err, tt.wantType) {
				t.Errorf("checkStatus() error = %v, want %v", err, tt.wantType)
			}
			if cache.IsRetryable(err) != tt.isRetryErr {
				t.Errorf("IsRetryable() = %v, want %v", cache.IsRetryable(err), tt.isRetryErr)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	dialTimeout := &net.DNSError{Err: "i/o timeout", Name: "nominatim.test", IsTimeout: true}

	tests := []struct {
		name string
		err  error
		want perrors.Code
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, perrors.ErrCodeTimeout},
		{"client timeout", cache.Retryable(fmt.Errorf("%w: %w", ErrNetwork, dialTimeout)), perrors.ErrCodeTimeout},
		{"throttled", rateLimited("5"), perrors.ErrCodeRateLimited},
		{"server error", checkStatus(http.StatusBadGateway), perrors.ErrCodeNetwork},
		{"connection refused", cache.Retryable(fmt.Errorf("%w: dial tcp: connection refused", ErrNetwork)), perrors.ErrCodeNetwork},
		{"not found", ErrNotFound, ""},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransportError(tt.err, "geocoder")
			if tt.want == "" {
				if got != nil {
					t.Errorf("TransportError() = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("TransportError() = nil, want %s", tt.want)
			}
			if got.Code != tt.want {
				t.Errorf("TransportError() code = %s, want %s", got.Code, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("TransportError() does not wrap %v", tt.err)
			}
		})
	}
}
