package httpapi

import (
	"context"
	"errors"
	"net/http"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/assistant"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/session"
)

// ErrNotAuthenticated is returned when a request has no usable token pair.
var ErrNotAuthenticated = errors.New("httpapi: not authenticated")

// SessionExpiredMessage is the JSON error text for session failures.
const SessionExpiredMessage = "Session expired. Please sign in again."

// SessionExpiredNotice is shown on the login page after a forced sign-out.
const SessionExpiredNotice = "Your session has expired. Please sign in again."

// StatusFor maps an action error to the HTTP status returned to browsers.
func StatusFor(err error) int {
	var validation *dashboard.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation),
		errors.Is(err, backend.ErrBlankSellerToken),
		errors.Is(err, assistant.ErrEmptyMessage),
		errors.Is(err, errBadPayload):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrLoginRejected):
		if backend.StatusOf(err) == http.StatusBadRequest {
			return http.StatusBadRequest
		}
		return http.StatusUnauthorized
	case errors.Is(err, assistant.ErrUnknownTopic):
		return http.StatusNotFound
	case RequiresLogin(err), errors.Is(err, backend.ErrMissingAccess):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case backend.StatusOf(err) != 0:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RequiresLogin reports errors after which the browser must sign in again.
func RequiresLogin(err error) bool {
	return backend.IsSessionExpired(err) || errors.Is(err, ErrNotAuthenticated) || session.IsNoSession(err)
}

// ErrorBody is the JSON error envelope. Session errors ask the page to reload.
func ErrorBody(err error) map[string]any {
	body := map[string]any{"error": backend.ErrorMessage(err)}
	if RequiresLogin(err) {
		body["error"] = SessionExpiredMessage
		body["reload"] = true
	}
	return body
}
