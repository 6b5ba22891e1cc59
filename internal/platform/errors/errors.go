package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindConfig     Kind = "config"
	KindDomain     Kind = "domain"
	KindTransport  Kind = "transport"
	KindPlatform   Kind = "platform"
	KindBootstrap  Kind = "bootstrap"
	KindStorage    Kind = "storage"
	KindSession    Kind = "session"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Fields  []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("[%s:%s] %s (%s)", e.Kind, e.Op, e.Message, FieldNames(e.Fields))
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// Invalid builds a validation error carrying per-field messages.
func Invalid(op, message string, fields []FieldError) *Error {
	return &Error{
		Kind:    KindValidation,
		Op:      op,
		Message: message,
		Fields:  SortFields(fields),
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// FieldError is a single form field with the messages attached to it.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// SortFields orders field errors by field name and merges duplicates.
func SortFields(fields []FieldError) []FieldError {
	if len(fields) == 0 {
		return nil
	}
	merged := make(map[string][]string, len(fields))
	for _, f := range fields {
		merged[f.Field] = append(merged[f.Field], f.Messages...)
	}
	out := make([]FieldError, 0, len(merged))
	for name, msgs := range merged {
		out = append(out, FieldError{Field: name, Messages: msgs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// FieldNames joins the names of the given fields with commas.
func FieldNames(fields []FieldError) string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	return strings.Join(names, ",")
}

// FieldsOf returns the field errors of the first typed error in the chain.
func FieldsOf(err error) []FieldError {
	var target *Error
	if errors.As(err, &target) {
		return target.Fields
	}
	return nil
}
