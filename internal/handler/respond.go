// Package handler exposes the HTTP API: request decoding, authorization
// glue and the mapping from typed errors to status codes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/apperror"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation, apperror.KindPolicyViolation, apperror.KindTerminalState:
		return http.StatusUnprocessableEntity
	case apperror.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindDeadlineExceeded:
		return http.StatusGatewayTimeout
	case apperror.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError renders err in the error envelope. Unexpected errors are
// logged with the request's correlation id and surfaced as opaque 500s.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := w.Header().Get("X-Request-Id")

	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = apperror.Internal(err)
	}
	status := statusFor(ae.Kind)

	message := ae.Message
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		message = "internal error"
	}

	respondJSON(w, status, errorBody{Error: errorPayload{
		Code:      string(ae.Kind),
		Message:   message,
		Details:   ae.Details,
		RequestID: requestID,
	}})
}
