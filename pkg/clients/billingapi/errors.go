package billingapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a non-2xx response from the billing API. Message is the
// server-reported reason, passed through unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("billing api error: code=%d, message=%s", e.StatusCode, e.Message)
}

// Unauthorized reports whether the token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Message extracts the user-facing reason from err. Transport errors fall
// back to err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// errorBody covers the error shapes the API returns.
type errorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func newAPIError(status int, payload *errorBody) *APIError {
	message := ""
	if payload != nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		default:
			message = flattenErrors(payload.Errors)
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: message}
}

// flattenErrors accepts ["a","b"] or {"field":["a"]} validation lists.
func flattenErrors(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ", ")
	}

	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %s", k, strings.Join(fields[k], ", ")))
		}
		return strings.Join(parts, "; ")
	}

	return ""
}
