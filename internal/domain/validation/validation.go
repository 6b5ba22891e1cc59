// Package validation checks form inputs with struct tags and reports French,
// per-field messages in the same shape the backend uses for 422 responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	platformerrors "hotel-admin-go/internal/platform/errors"
)

var phonePattern = regexp.MustCompile(`^[\+]?[0-9\s\-\(\)]+$`)

// Messages overrides the default message of a field for a given tag.
// Keys are "field.tag", e.g. "password.required".
type Messages map[string]string

// Validator wraps validator/v10 with the custom tags the forms need.
type Validator struct {
	engine   *validator.Validate
	messages Messages
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default returns the shared validator.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultV = New(nil)
	})
	return defaultV
}

// New builds a validator. Field names come from json tags.
func New(messages Messages) *Validator {
	engine := validator.New(validator.WithRequiredStructEnabled())
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = engine.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{engine: engine, messages: messages}
}

// Struct validates v. The returned error is a validation *Error listing every failing field.
func (v *Validator) Struct(op string, s any, extra Messages) error {
	err := v.engine.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return platformerrors.Wrap(platformerrors.KindValidation, op, "validation failed", err)
	}
	fields := make([]platformerrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, platformerrors.FieldError{
			Field:    fe.Field(),
			Messages: []string{v.message(fe, extra)},
		})
	}
	return platformerrors.Invalid(op, "Données invalides", fields)
}

func (v *Validator) message(fe validator.FieldError, extra Messages) string {
	key := fe.Field() + "." + fe.Tag()
	if msg, ok := extra[key]; ok {
		return msg
	}
	if msg, ok := v.messages[key]; ok {
		return msg
	}
	return defaultMessage(fe)
}

func defaultMessage(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "Ce champ est requis"
	case "email":
		return "Email invalide"
	case "min":
		if text {
			return fmt.Sprintf("Doit contenir au moins %s caractères", fe.Param())
		}
		return fmt.Sprintf("Doit être supérieur ou égal à %s", fe.Param())
	case "max":
		if text {
			return fmt.Sprintf("Ne doit pas dépasser %s caractères", fe.Param())
		}
		return fmt.Sprintf("Doit être inférieur ou égal à %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Doit être supérieur ou égal à %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Doit être inférieur ou égal à %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Valeur invalide, attendu : %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return "Les valeurs ne correspondent pas"
	case "phone":
		return "Format de téléphone invalide"
	default:
		return "Valeur invalide"
	}
}
