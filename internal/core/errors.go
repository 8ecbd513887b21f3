package core

// Error codes for domain errors.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotJoined       = "not_joined"
	ErrCodeUnknownLanguage = "unknown_language"
	ErrCodeExecutionBusy   = "execution_busy"
	ErrCodeExecutionFailed = "execution_failed"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInvalidMessage  = "invalid_message"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
