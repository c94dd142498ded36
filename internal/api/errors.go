package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MJE43/blackjack-advisor-go/internal/numeric"
	"github.com/MJE43/blackjack-advisor-go/internal/store"
)

// ErrorBuilder accumulates the fields of an EngineError before it is written.
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records err under the "cause" key; nil is ignored.
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

func (eb *ErrorBuilder) Build() EngineError {
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler turns handler failures into logged JSON error bodies.
type ErrorHandler struct {
	logger *zap.Logger
}

func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// classify maps engine errors onto an error type and HTTP status.
func classify(err error) (string, int) {
	var engineErr EngineError
	switch {
	case errors.As(err, &engineErr):
		return engineErr.Type, http.StatusBadRequest
	case errors.Is(err, numeric.ErrInvalidArgument):
		return ErrTypeInvalidParams, http.StatusBadRequest
	case errors.Is(err, numeric.ErrInsufficientData):
		return ErrTypeInsufficientData, http.StatusBadRequest
	case errors.Is(err, numeric.ErrDegenerateInput):
		return ErrTypeDegenerateInput, http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return ErrTypeNotFound, http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout, http.StatusRequestTimeout
	default:
		return ErrTypeInternal, http.StatusInternalServerError
	}
}

// HandleError classifies err, logs it and writes the matching response.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	errType, status := classify(err)
	engineErr := NewError(errType, err.Error()).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("operation", operation).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()

	eh.logError(r, engineErr, status)
	eh.writeErrorResponse(w, status, engineErr)
}

// HandleValidationError rejects a request field with 400.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

// HandleScriptError reports a bet script that failed to compile or run.
func (eh *ErrorHandler) HandleScriptError(w http.ResponseWriter, r *http.Request, err error) {
	engineErr := NewError(ErrTypeScript, "Bet script failed").
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithCause(err).
		Build()

	eh.logError(r, engineErr, http.StatusBadRequest)
	eh.writeErrorResponse(w, http.StatusBadRequest, engineErr)
}

// HandleUnavailable reports a feature that is switched off.
func (eh *ErrorHandler) HandleUnavailable(w http.ResponseWriter, r *http.Request, feature string) {
	engineErr := NewError(ErrTypeServiceUnavailable, fmt.Sprintf("%s is not enabled", feature)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("feature", feature).
		WithContext("path", r.URL.Path).
		Build()

	eh.logError(r, engineErr, http.StatusServiceUnavailable)
	eh.writeErrorResponse(w, http.StatusServiceUnavailable, engineErr)
}

// logError logs 5xx at error level and everything else at warn.
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)

	fields := []zap.Field{
		zap.String("type", engineErr.Type),
		zap.String("category", string(category)),
		zap.Int("status", status),
		zap.String("request_id", engineErr.RequestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_ip", r.RemoteAddr),
		zap.Any("context", engineErr.Context),
	}
	if status >= 500 {
		eh.logger.Error(engineErr.Message, fields...)
		return
	}
	eh.logger.Warn(engineErr.Message, fields...)
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		eh.logger.Error("encode error response", zap.Error(err))
	}
}

// RecoveryHandler converts a handler panic into a 500 body. http.ErrAbortHandler is re-raised.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())
				eh.logger.Error("panic_recovered",
					zap.String("request_id", requestID),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.Any("panic", rvr),
					zap.Stack("stack"))

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("panic", fmt.Sprintf("%v", rvr)).
					WithContext("path", r.URL.Path).
					WithContext("method", r.Method).
					Build()

				eh.writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
