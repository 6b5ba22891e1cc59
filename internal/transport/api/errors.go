package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	platformerrors "hotel-admin-go/internal/platform/errors"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindServer          Kind = "server"
	KindUnknown         Kind = "unknown"
)

// APIError is returned by every Client method that fails.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Fields  []platformerrors.FieldError
	Cause   error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api %s", e.Kind)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " [%s]", platformerrors.FieldNames(e.Fields))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// MessageOf returns the server message carried by err, or "".
func MessageOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// FieldsOf returns the field errors carried by err, if any.
func FieldsOf(err error) []platformerrors.FieldError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return platformerrors.FieldsOf(err)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthenticated
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindUnknown
	}
}

// statusError builds an APIError from a non-2xx response body.
func statusError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:   kindForStatus(status),
		Status: status,
		Cause:  fmt.Errorf("unexpected status %d", status),
	}

	var payload map[string]interface{}
	if len(body) == 0 || sonic.Unmarshal(body, &payload) != nil {
		return apiErr
	}
	if msg, ok := payload["message"].(string); ok {
		apiErr.Message = msg
	}
	if apiErr.Kind == KindValidation {
		apiErr.Fields = normalizeFields(payload)
	}
	return apiErr
}

// normalizeFields accepts both {"errors": {field: [msg]}} and a bare {field: [msg]}.
func normalizeFields(payload map[string]interface{}) []platformerrors.FieldError {
	source := payload
	if nested, ok := payload["errors"].(map[string]interface{}); ok {
		source = nested
	}

	var fields []platformerrors.FieldError
	for name, raw := range source {
		msgs := messages(raw)
		if len(msgs) == 0 {
			continue
		}
		fields = append(fields, platformerrors.FieldError{Field: name, Messages: msgs})
	}
	return platformerrors.SortFields(fields)
}

func messages(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}
