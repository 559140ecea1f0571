package integrations

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/matzehuels/cityposter/pkg/buildinfo"
	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/errors"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the upstream has no such resource.
	ErrNotFound = cache.ErrNotFound

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = cache.ErrNetwork
)

// NewHTTPClient creates an HTTP client with the standard request timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewHTTPClientWithTimeout creates an HTTP client with a custom timeout.
// Overpass queries for large areas routinely take minutes.
func NewHTTPClientWithTimeout(d time.Duration) *http.Client {
	if d <= 0 {
		d = httpTimeout
	}
	return &http.Client{Timeout: d}
}

// UserAgent identifies this tool to public OpenStreetMap services, whose
// usage policies require a descriptive agent.
func UserAgent() string {
	return "cityposter/" + buildinfo.Version + " (+https://github.com/matzehuels/cityposter)"
}

// TransportError maps a failed request to a TIMEOUT, RATE_LIMITED or
// NETWORK_ERROR error prefixed with what. It returns nil when err is not a
// transport failure, so callers can fall back to their own code.
func TransportError(err error, what string) *errors.Error {
	var (
		rl *errors.RateLimitedError
		ne net.Error
	)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &ne) && ne.Timeout():
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s: request timed out", what)
	case stderrors.As(err, &rl):
		return errors.Wrap(errors.ErrCodeRateLimited, err, "%s: rate limited", what)
	case stderrors.Is(err, ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "%s: service unavailable", what)
	}
	return nil
}
