// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every body the API writes is a core.Result, so clients can rely on the
// success flag and the message list regardless of the status code.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"envelopes/internal/core"
	applog "envelopes/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	if b.body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

// Result builds a successful result response.
func Result[T any](statusCode int, data T) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(core.NewResult(data, nil))
}

// ErrorResponse creates a failed result with the given status.
func ErrorResponse(statusCode int, err error) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(core.Failure[any](err))
}

// BadRequestError creates a 400 Bad Request response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, core.NewValidationError(message))
}

// NotFoundError creates a 404 Not Found response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, errors.New(message))
}

// InternalServerError creates a 500 response that hides the cause.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, errors.New("internal server error"))
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, errors.New("rate limit exceeded, please try again later"))
}

// StatusFor maps the ledger error taxonomy to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrEnvelopeNotInPeriod):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeResult writes data on success and the mapped failure otherwise.
// Internal errors are logged and replaced by a generic message.
func writeResult[T any](w http.ResponseWriter, r *http.Request, successStatus int, data T, err error) {
	if err == nil {
		Result(successStatus, data).Write(w)
		return
	}
	writeError(w, r, err)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, status)
		InternalServerError().Status(status).Write(w)
		return
	}
	logger.DebugContext(r.Context(), "Request rejected",
		applog.FieldError, err,
		applog.FieldStatusCode, status)
	ErrorResponse(status, err).Write(w)
}
