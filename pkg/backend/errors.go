package backend

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrSessionExpired is returned after the backend rejected the access token.
	// The token pair has already been cleared when it is returned.
	ErrSessionExpired = errors.New("backend: session expired")
	// ErrMissingAccess means a login response carried no access token.
	ErrMissingAccess = errors.New("Invalid token")
	// ErrBlankSellerToken rejects a login attempt before any request is made.
	ErrBlankSellerToken = errors.New("backend: seller token is required")
	// ErrLoginRejected matches a login the backend refused with a 4xx status.
	ErrLoginRejected = errors.New("backend: login rejected")
)

const tokenNotValidCode = "token_not_valid"

// RemoteError is a non-2xx response from the backend.
type RemoteError struct {
	Status int
	Body   string
}

// Error returns the response body, or the status text when the body is empty.
func (e *RemoteError) Error() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	if text := http.StatusText(e.Status); text != "" {
		return text
	}
	return "backend: remote error"
}

// Detail extracts the Django REST framework "detail" message when present.
func (e *RemoteError) Detail() string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if decodeLenient(e.Body, &payload) && payload.Detail != "" {
		return payload.Detail
	}
	return e.Error()
}

// sessionExpiredError keeps the backend message while matching ErrSessionExpired.
type sessionExpiredError struct {
	remote *RemoteError
}

func (e *sessionExpiredError) Error() string {
	return e.remote.Error()
}

func (e *sessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}

func (e *sessionExpiredError) Unwrap() error {
	return e.remote
}

// loginRejectedError keeps the backend message while matching ErrLoginRejected.
type loginRejectedError struct {
	remote *RemoteError
}

func (e *loginRejectedError) Error() string {
	return e.remote.Error()
}

func (e *loginRejectedError) Is(target error) bool {
	return target == ErrLoginRejected
}

func (e *loginRejectedError) Unwrap() error {
	return e.remote
}

// RejectLogin marks a 4xx response to a login attempt as ErrLoginRejected.
// Other errors, and errors already marked, are returned unchanged.
func RejectLogin(err error) error {
	var remote *RemoteError
	if err == nil || errors.Is(err, ErrLoginRejected) || !errors.As(err, &remote) {
		return err
	}
	if remote.Status < 400 || remote.Status >= 500 {
		return err
	}
	return &loginRejectedError{remote: remote}
}

// IsSessionExpired reports whether err means the seller must sign in again.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Status
	}
	return 0
}
