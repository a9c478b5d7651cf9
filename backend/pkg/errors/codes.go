package errors

// ErrorCode represents specific error codes for better debugging.
type ErrorCode string

const (
	// Authentication & Authorization.
	ErrCodeInvalidCredentials    ErrorCode = "AUTH001"
	ErrCodeTokenExpired          ErrorCode = "AUTH002"
	ErrCodeTokenInvalid          ErrorCode = "AUTH003"
	ErrCodeInsufficientPrivilege ErrorCode = "AUTH004"

	// Account Management.
	ErrCodeUserNotFound    ErrorCode = "USER001"
	ErrCodeUserExists      ErrorCode = "USER002"
	ErrCodeInvalidPassword ErrorCode = "USER003"

	// Encounters.
	ErrCodeEncounterNotFound ErrorCode = "ENC001"
	ErrCodeEncounterNotOwned ErrorCode = "ENC002"
	ErrCodeEncounterFinished ErrorCode = "ENC003"

	// Engine (tier-2 invariant failures surfaced over HTTP).
	ErrCodeSnapshotCorrupt ErrorCode = "ENGINE001"
	ErrCodeBadDiceFormula  ErrorCode = "ENGINE002"

	// Validation.
	ErrCodeValidationFailed ErrorCode = "VAL001"
	ErrCodeInvalidInput     ErrorCode = "VAL002"
	ErrCodeMissingRequired  ErrorCode = "VAL003"

	// Database.
	ErrCodeDatabaseError  ErrorCode = "DB001"
	ErrCodeDuplicateEntry ErrorCode = "DB002"

	// General.
	ErrCodeInternalError      ErrorCode = "INT001"
	ErrCodeServiceUnavailable ErrorCode = "INT002"
	ErrCodeRateLimitExceeded  ErrorCode = "INT003"
)

// ErrorCodeMessages provides human-readable descriptions for error codes.
var ErrorCodeMessages = map[ErrorCode]string{
	ErrCodeInvalidCredentials:    "Invalid username or password",
	ErrCodeTokenExpired:          "Authentication token has expired",
	ErrCodeTokenInvalid:          "Invalid authentication token",
	ErrCodeInsufficientPrivilege: "Insufficient privileges to perform this action",

	ErrCodeUserNotFound:    "User not found",
	ErrCodeUserExists:      "User already exists",
	ErrCodeInvalidPassword: "Password does not meet requirements",

	ErrCodeEncounterNotFound: "Encounter not found",
	ErrCodeEncounterNotOwned: "Encounter not owned by user",
	ErrCodeEncounterFinished: "Encounter has already finished",

	ErrCodeSnapshotCorrupt: "Stored encounter snapshot could not be decoded",
	ErrCodeBadDiceFormula:  "Dice formula could not be parsed",

	ErrCodeValidationFailed: "Validation failed",
	ErrCodeInvalidInput:     "Invalid input provided",
	ErrCodeMissingRequired:  "Missing required field",

	ErrCodeDatabaseError:  "Database operation failed",
	ErrCodeDuplicateEntry: "Duplicate entry",

	ErrCodeInternalError:      "Internal server error",
	ErrCodeServiceUnavailable: "Service temporarily unavailable",
	ErrCodeRateLimitExceeded:  "Rate limit exceeded",
}

// GetErrorMessage returns the message for an error code.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := ErrorCodeMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}
