package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chitram/companion/internal/app"
	"github.com/chitram/companion/internal/domain"
	"github.com/chitram/companion/pkg/feed"
)

// StatusClientClosedRequest is the de facto status for a client that hung up.
const StatusClientClosedRequest = 499

var errBadRequest = errors.New("malformed request")

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// toHTTP maps an error to a status and a safe client-facing body. Unknown
// errors become 500 without leaking details.
func toHTTP(err error) (int, APIError) {
	var netErr *feed.NetworkError
	var malformed *feed.MalformedResponseError

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, app.ErrInvalidFeed),
		errors.Is(err, app.ErrEmptyCity),
		errors.Is(err, app.ErrInvalidInput),
		errors.Is(err, app.ErrReplyDepth):
		return http.StatusBadRequest, APIError{Code: "invalid_argument", Message: err.Error()}
	case errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "session not found"}
	case errors.Is(err, domain.ErrPostNotFound), errors.Is(err, domain.ErrCommentNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, APIError{Code: "already_exists", Message: "username already taken"}
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, APIError{Code: "unauthenticated", Message: "invalid username or password"}
	case errors.Is(err, app.ErrInvalidToken), errors.Is(err, app.ErrTokenExpired):
		return http.StatusUnauthorized, APIError{Code: "unauthenticated", Message: err.Error()}
	case errors.Is(err, app.ErrTooManySessions):
		return http.StatusServiceUnavailable, APIError{Code: "unavailable", Message: "too many open sessions"}
	case errors.As(err, &netErr), errors.As(err, &malformed):
		return http.StatusBadGateway, APIError{Code: "upstream_error", Message: "movie data source failed"}
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, APIError{Code: "canceled", Message: "canceled"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, APIError{Code: "deadline_exceeded", Message: "deadline exceeded"}
	default:
		return http.StatusInternalServerError, APIError{Code: "internal", Message: "internal error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := toHTTP(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		apiErr.RequestID = rid
	}
	writeJSON(w, status, ErrorResponse{Error: apiErr})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
