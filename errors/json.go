package errors

import (
	"encoding/json"
	"time"
)

// ErrorResponse represents the JSON structure of a normalized error.
// The wrapped error chain is intentionally excluded to prevent information
// leakage; details are included only when they are JSON-encodable.
type ErrorResponse struct {
	// Code is the error code identifying the kind of error.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Classification indicates whether the error is retryable or permanent.
	Classification string `json:"classification"`

	// Severity is the logging severity of the error.
	Severity string `json:"severity"`

	// OccurredAt is when the error was constructed.
	OccurredAt time.Time `json:"occurredAt"`

	// Details contains the optional payload. Omitted from JSON if empty.
	Details any `json:"details,omitempty"`
}

// ToJSON converts any error to an ErrorResponse suitable for JSON serialization.
// Returns nil if err is nil. Non-AppError values are normalized first.
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	appErr := Normalize(err)

	details := appErr.Details()
	if details != nil {
		if _, mErr := json.Marshal(details); mErr != nil {
			details = nil
		}
	}

	return &ErrorResponse{
		Code:           string(appErr.Code()),
		Message:        appErr.Message(),
		Classification: string(appErr.Classification()),
		Severity:       string(appErr.Severity()),
		OccurredAt:     appErr.OccurredAt(),
		Details:        details,
	}
}

// MarshalJSON implements json.Marshaler for appError.
func (e *appError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(ToJSON(e))
	if err != nil {
		return nil, &appError{
			code:       CodeUnknown,
			message:    "failed to marshal error response",
			occurredAt: now(),
			cause:      err,
		}
	}
	return data, nil
}
