package errors

import "fmt"

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeResolution  ErrorType = "resolution"   // target cannot be mapped to a channel
	ErrorTypeRateLimit   ErrorType = "rate_limit"   // gateway asked us to wait
	ErrorTypeNetwork     ErrorType = "network"      // transport failure
	ErrorTypeTransform   ErrorType = "transform"    // per-record parse problem
	ErrorTypeMedia       ErrorType = "media"        // attachment download failure
	ErrorTypeServerError ErrorType = "server_error" // gateway 5xx
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a gateway or archiver error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeMedia:
		return true
	case ErrorTypeResolution, ErrorTypeTransform:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
