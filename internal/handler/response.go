package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// ENVELOPE:
// Every response from the API, success or failure, has the same shape:
//   {"status": "NOT_FOUND", "code": 404, "message": "User Not Found!"}
//   {"status": "OK", "code": 200, "data": {...}}
//
// The frontend switches on `status`, shows `message` when present and reads
// `data` on success. `code` repeats the HTTP status for clients that only
// look at the body.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/joshijoe05/records-backend/internal/apperror"
)

// maxBodyBytes caps request bodies. Every endpoint takes a small JSON object.
const maxBodyBytes = 1 << 20

// Envelope is the body of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var statusLabels = map[int]string{
	http.StatusOK:                  "OK",
	http.StatusCreated:             "CREATED",
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusForbidden:           "FORBIDDEN",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "CONFLICT",
	http.StatusInternalServerError: "ERROR",
}

func statusLabel(code int) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return "ERROR"
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes, the headers are on the wire and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// respond writes the envelope for code with an optional message and data.
func respond(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, Envelope{
		Status:  statusLabel(code),
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// writeError maps a service error to the appropriate HTTP status and sends it.
//
// ERROR MAPPING:
// Services return *apperror.AppError for every expected outcome. The kind
// sentinel decides the status; the message goes to the client as-is.
//
//	ErrValidation   → 400
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrUpstream     → 500 with its domain message
//
// Anything else is an unexpected fault. It is logged under op (the handler
// name, e.g. "handleRegister") and the client gets an opaque 500.
// NEVER expose the raw error: it may contain queries, paths or hostnames.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
		case errors.Is(err, apperror.ErrUpstream):
			// Already logged by the service with its context.
		default:
			logger.Error("unmapped application error", slog.String("operation", op), slog.Any("error", err))
		}
		respond(w, status, appErr.Message, nil)
		return
	}

	logger.Error("request failed", slog.String("operation", op), slog.Any("error", err))
	respond(w, http.StatusInternalServerError, "", nil)
}

// decodeJSON reads the request body into dst. A missing, oversized or
// malformed body is a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.BadRequest("request body is required")
		case errors.As(err, &maxErr):
			return apperror.BadRequest(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		}
		return apperror.BadRequest("request body must be valid JSON")
	}
	return nil
}
