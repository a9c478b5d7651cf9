package response

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dndsim/combat-engine/backend/pkg/errors"
	"github.com/dndsim/combat-engine/backend/pkg/logger"
)

// Response is the standard envelope every JSON endpoint returns. Engine
// events ride inside Data untouched -- the envelope never reinterprets
// them.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo is the client-facing slice of an AppError.
type ErrorInfo struct {
	Type    errors.ErrorType `json:"type"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Details interface{}      `json:"details,omitempty"`
}

type contextKey string

// RequestIDKey is the context key the logging middleware stores the
// request id under.
const RequestIDKey contextKey = "request_id"

func getRequestID(r *http.Request) string {
	if id := r.Context().Value(RequestIDKey); id != nil {
		if reqID, ok := id.(string); ok {
			return reqID
		}
	}
	return uuid.New().String()
}

// JSON sends a successful JSON response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	sendJSON(w, status, Response{
		Success:   true,
		Data:      data,
		RequestID: getRequestID(r),
		Timestamp: time.Now().UTC(),
	})
}

// Error sends an error response, logging at a level matched to the
// failure class.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.GetAppError(err)

	log := logger.GetLogger()
	requestID := getRequestID(r)
	switch appErr.StatusCode {
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		log.Error().
			Str("request_id", requestID).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Err(appErr.Internal).
			Msg(appErr.Message)
	default:
		log.Warn().
			Str("request_id", requestID).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(appErr.Message)
	}

	sendJSON(w, appErr.StatusCode, Response{
		Success: false,
		Error: &ErrorInfo{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	})
}

// NotFound sends a not-found error for the named resource.
func NotFound(w http.ResponseWriter, r *http.Request, resource string) {
	Error(w, r, errors.NewNotFoundError(resource).WithCode(string(errors.ErrCodeEncounterNotFound)))
}

// Unauthorized sends an unauthorized error response.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	Error(w, r, errors.NewAuthenticationError(message).WithCode(string(errors.ErrCodeTokenInvalid)))
}

// BadRequest sends a bad request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, errors.NewBadRequestError(message).WithCode(string(errors.ErrCodeInvalidInput)))
}

// InternalServerError sends an internal error response.
func InternalServerError(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, errors.NewInternalError("An unexpected error occurred", err).WithCode(string(errors.ErrCodeInternalError)))
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger().Error().Err(err).Msg("Failed to encode JSON response")
	}
}
