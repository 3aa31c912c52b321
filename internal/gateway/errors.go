package gateway

import (
	"context"
	"errors"
	"net"
)

var (
	ErrTimeout            = errors.New("request timed out")
	ErrSessionExpired     = errors.New("session expired")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrUnavailable        = errors.New("service unavailable")
)

// IsTimeout reports timeouts raised by Call as well as deadline and network
// timeouts surfacing from a transport.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// UserMessage turns err into the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return "The request timed out. Please check your connection and try again."
	case IsSessionExpired(err):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrProfileNotFound):
		return "We couldn't find a profile for this account."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrConflict):
		return "An account with this email already exists."
	case errors.Is(err, ErrNotFound):
		return "The item no longer exists."
	case errors.Is(err, ErrUnavailable):
		return "The service is unavailable right now. Please try again later."
	}
	return err.Error()
}
