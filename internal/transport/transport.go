package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind distinguishes the failure classes the traversal and retry
// layers react to differently.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindHTTPStatus
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http-status"
	default:
		return "unknown"
	}
}

// Error is the single error shape all transports produce. Status is
// set only for KindHTTPStatus.
type Error struct {
	Kind   Kind
	Status int
	URL    string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("transport %s %d: %s", e.Kind, e.Status, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport %s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("transport %s: %s", e.Kind, e.URL)
}

func (e *Error) Unwrap() error { return e.Err }

// RateLimited reports whether the server blocked or throttled us.
func (e *Error) RateLimited() bool {
	return e.Kind == KindHTTPStatus && (e.Status == http.StatusForbidden || e.Status == http.StatusTooManyRequests)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindTimeout
}

// IsRateLimited reports whether err is an HTTP 403/429 response.
func IsRateLimited(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.RateLimited()
}

// Invoker is the one contract both transport strategies expose.
type Invoker interface {
	Invoke(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// classify wraps a client-side error, keeping timeouts distinct so the
// retry controller can skip re-attempting them.
func classify(url string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, URL: url, Err: err}
}
