// Package resilience retries upstream vision/text calls that fail transiently.
package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// temporary is implemented by upstream API errors (and syscall errnos) that
// know whether a retry can succeed.
type temporary interface {
	Temporary() bool
}

// TemporaryStatus reports whether an HTTP status code is worth retrying.
func TemporaryStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// transientSubstrings catch transport failures that arrive as plain strings
// after being wrapped by HTTP clients.
var transientSubstrings = []string{
	"connection reset by peer",
	"broken pipe",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
}

// IsRetryable reports whether err is a transient upstream or network failure.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var te temporary
	if errors.As(err, &te) {
		return te.Temporary()
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
