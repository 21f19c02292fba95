package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var (
	registerOnce sync.Once
	registerErr  error
)

var errorMessages = map[string]string{
	"required": "field is required",
	"notblank": "field must not be blank",
	"max":      "value is too long",
	"uuid4":    "value must be a UUID",
}

// RegisterValidators installs the custom tags on gin's validator and makes
// field errors use json names. Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		registerErr = v.RegisterValidation("notblank", notBlank)
	})
	return registerErr
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(field.String()) != ""
}

// ValidationErrors flattens a binding error into per-field messages. Errors
// that are not validation failures yield a single entry without a field.
func ValidationErrors(err error) []ValidationError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(errs))
	for _, e := range errs {
		msg, ok := errorMessages[e.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on %s", e.Tag())
		}
		out = append(out, ValidationError{Field: e.Field(), Message: msg})
	}
	return out
}
