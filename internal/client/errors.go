package client

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"jotter/internal/gateway"
)

// APIError is a non-2xx answer from the backend. It unwraps to the gateway
// error matching its status, if any.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return strings.ToLower(http.StatusText(e.Status))
}

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	switch {
	case status == http.StatusUnauthorized:
		e.kind = gateway.ErrSessionExpired
	case status == http.StatusNotFound:
		e.kind = gateway.ErrNotFound
	case status == http.StatusTooManyRequests, status >= 500:
		e.kind = gateway.ErrUnavailable
	}
	return e
}

// transportError keeps timeouts recognisable and turns refused or reset
// connections into gateway.ErrUnavailable.
func transportError(err error) error {
	if gateway.IsTimeout(err) {
		return err
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return errors.Join(gateway.ErrUnavailable, err)
	}
	return err
}
