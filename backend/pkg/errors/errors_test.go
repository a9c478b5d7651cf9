package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetTypeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad input"), ErrorTypeValidation, http.StatusBadRequest},
		{"authentication", NewAuthenticationError("bad token"), ErrorTypeAuthentication, http.StatusUnauthorized},
		{"authorization", NewAuthorizationError("not yours"), ErrorTypeAuthorization, http.StatusForbidden},
		{"not found", NewNotFoundError("Encounter"), ErrorTypeNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("already exists"), ErrorTypeConflict, http.StatusConflict},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"bad request", NewBadRequestError("malformed"), ErrorTypeBadRequest, http.StatusBadRequest},
		{"unavailable", NewServiceUnavailableError("down"), ErrorTypeServiceUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
		})
	}
}

func TestNotFoundMessageNamesTheResource(t *testing.T) {
	err := NewNotFoundError("Encounter")
	assert.Equal(t, "Encounter not found", err.Message)
}

func TestInternalErrorKeepsCause(t *testing.T) {
	cause := assert.AnError
	err := NewInternalError("snapshot decode failed", cause)
	assert.Equal(t, cause, err.Internal)
	assert.Contains(t, err.Error(), "internal:")
}

func TestWithDetailsAndCodeChain(t *testing.T) {
	err := NewValidationError("bad formula").
		WithCode(string(ErrCodeBadDiceFormula)).
		WithDetails(map[string]interface{}{"formula": "fireball"})

	assert.Equal(t, string(ErrCodeBadDiceFormula), err.Code)
	assert.Equal(t, "fireball", err.Details["formula"])
}

func TestToJSONNeverLeaksInternal(t *testing.T) {
	err := NewInternalError("boom", assert.AnError).WithCode(string(ErrCodeInternalError))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(err.ToJSON(), &decoded))
	assert.NotContains(t, decoded, "Internal")
	assert.NotContains(t, decoded, "internal")
	assert.Equal(t, "boom", decoded["message"])
}

func TestGetAppErrorWrapsUnknownErrors(t *testing.T) {
	wrapped := GetAppError(assert.AnError)
	assert.Equal(t, ErrorTypeInternal, wrapped.Type)
	assert.Equal(t, assert.AnError, wrapped.Internal)

	original := NewConflictError("dup")
	assert.Same(t, original, GetAppError(original))
}

func TestGetErrorMessageKnownAndUnknownCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeInvalidCredentials, "Invalid username or password"},
		{ErrCodeEncounterNotFound, "Encounter not found"},
		{ErrCodeSnapshotCorrupt, "Stored encounter snapshot could not be decoded"},
		{ErrCodeBadDiceFormula, "Dice formula could not be parsed"},
		{ErrorCode("NOPE999"), "Unknown error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetErrorMessage(tt.code))
	}
}
