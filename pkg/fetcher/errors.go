package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	// KindTransport covers DNS, connection, TLS and protocol failures.
	KindTransport Kind = iota + 1
	// KindStatus means the server answered with a non-2xx status.
	KindStatus
	// KindRenderTimeout means the headless browser never saw a ready document.
	KindRenderTimeout
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindRenderTimeout:
		return "render timeout"
	default:
		return "unknown"
	}
}

// ErrRenderTimeout is wrapped by render-timeout fetch errors.
// Check with errors.Is(err, fetcher.ErrRenderTimeout).
var ErrRenderTimeout = errors.New("render timeout")

// FetchError reports a failed page or image fetch.
type FetchError struct {
	URL        string
	Kind       Kind
	StatusCode int // set for KindStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the request could succeed.
func (e *FetchError) Temporary() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return e.StatusCode >= 500 || e.StatusCode == 429
	default:
		return false
	}
}

// AuthError reports a failed login submission.
type AuthError struct {
	URL string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login %s: %v", e.URL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be turned into markup.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
