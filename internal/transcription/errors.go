package transcription

import (
	"encoding/json"
	"fmt"
)

// RequestFailedError is returned for non-2xx responses.
type RequestFailedError struct {
	StatusCode int
	Detail     string
}

func (e *RequestFailedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return e.Detail
}

type errorResponse struct {
	Detail any `json:"detail"`
}

func newRequestFailedError(statusCode int, body string) *RequestFailedError {
	var response errorResponse
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return &RequestFailedError{StatusCode: statusCode, Detail: "Unknown error"}
	}

	switch detail := response.Detail.(type) {
	case nil:
		return &RequestFailedError{StatusCode: statusCode}
	case string:
		return &RequestFailedError{StatusCode: statusCode, Detail: detail}
	default:
		// Validation errors carry a list of objects.
		encoded, err := json.Marshal(detail)
		if err != nil {
			return &RequestFailedError{StatusCode: statusCode}
		}
		return &RequestFailedError{StatusCode: statusCode, Detail: string(encoded)}
	}
}
