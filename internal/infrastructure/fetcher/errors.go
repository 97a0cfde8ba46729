package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"feedpulse/internal/domain/health"
)

// FetchError classifies a failed fetch so the scheduler can record it
// without inspecting transport details.
type FetchError struct {
	Kind       health.ErrorKind
	HTTPStatus int
	Detail     string
	Cause      error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("fetch %s (status %d): %s", e.Kind, e.HTTPStatus, e.Detail)
	}
	return fmt.Sprintf("fetch %s: %s", e.Kind, e.Detail)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newHTTPError(status int, url string) *FetchError {
	return &FetchError{
		Kind:       health.ErrorHTTP,
		HTTPStatus: status,
		Detail:     fmt.Sprintf("unexpected status for %s", url),
	}
}

func newParseError(url string, cause error) *FetchError {
	return &FetchError{
		Kind:   health.ErrorParse,
		Detail: fmt.Sprintf("malformed content from %s", url),
		Cause:  cause,
	}
}

// classifyTransportError maps network-level failures onto the taxonomy.
func classifyTransportError(url string, err error) *FetchError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{Kind: health.ErrorDNS, Detail: fmt.Sprintf("dns failure for %s", url), Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: health.ErrorTimeout, Detail: fmt.Sprintf("timeout fetching %s", url), Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: health.ErrorTimeout, Detail: fmt.Sprintf("timeout fetching %s", url), Cause: err}
	}

	return &FetchError{Kind: health.ErrorDNS, Detail: fmt.Sprintf("connection failure for %s", url), Cause: err}
}

// Classify returns the FetchError inside err, or wraps unknown errors as a
// network failure so every fetch outcome has a kind.
func Classify(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return classifyTransportError("", err)
}
