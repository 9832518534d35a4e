package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// APIError is the classified failure returned by every Client call.
// Status is the HTTP status code, or 0 when the request never got a response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func networkError(err error) *APIError {
	return &APIError{Message: fmt.Sprintf("Network error: %v", err)}
}

// responseError builds an APIError from a non-2xx response. The "detail" field
// is used verbatim when present: either a string or a list of {msg} objects.
func responseError(status int, body []byte) *APIError {
	message := http.StatusText(status)
	if message == "" {
		message = "Request failed"
	}

	var payload struct {
		Detail any `json:"detail"`
	}
	if len(body) > 0 && sonic.ConfigStd.Unmarshal(body, &payload) == nil {
		if detail := detailMessage(payload.Detail); detail != "" {
			message = detail
		}
	}

	return &APIError{Status: status, Message: message}
}

func detailMessage(detail any) string {
	switch d := detail.(type) {
	case string:
		return d
	case []any:
		parts := make([]string, 0, len(d))
		for _, item := range d {
			switch v := item.(type) {
			case map[string]any:
				if msg, ok := v["msg"].(string); ok {
					parts = append(parts, msg)
					continue
				}
				if b, err := sonic.ConfigStd.Marshal(v); err == nil {
					parts = append(parts, string(b))
				}
			case string:
				parts = append(parts, v)
			default:
				parts = append(parts, fmt.Sprint(v))
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
