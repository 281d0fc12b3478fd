package httpclient

import (
	"net/http"
	"strings"
)

const (
	messageOK       = "OK"
	messageFallback = "Request failed"
)

// APIResponse is the envelope every call resolves to. Data is non-nil only
// when Status is in the 2xx range.
type APIResponse[T any] struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    *T     `json:"data,omitempty"`
}

// Success reports whether the status is in [200, 300).
func (r APIResponse[T]) Success() bool { return IsSuccess(r.Status) }

// Err returns nil when the envelope succeeded and carries data, otherwise an
// *Error holding the envelope's status and message.
func (r APIResponse[T]) Err() error {
	if r.Success() && r.Data != nil {
		return nil
	}
	return &Error{Status: r.Status, Message: r.Message}
}

// IsSuccess reports whether status is in [200, 300).
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// Error is a failed envelope surfaced as a Go error. Error() returns the
// message unchanged so it can be shown to users as-is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Message) == "" {
		return messageFallback
	}
	return e.Message
}

func normalizeSuccess[T any](status int, data T) APIResponse[T] {
	return APIResponse[T]{Message: messageOK, Status: status, Data: &data}
}

func normalizeFailure[T any](status int, message string) APIResponse[T] {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return APIResponse[T]{Message: message, Status: status}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
