package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wippyai/archive-runtime/errors"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report record keys rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// check runs struct tag validation and converts the first failure into a
// ConfigurationError naming the offending record key.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into configuration errors.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return errors.Configuration([]string{e.Field()},
			"%s: validation failed on '%s' tag (value: %v)", e.Field(), e.Tag(), e.Value())
	}
	return errors.Wrap(errors.PhaseConstruct, errors.KindConfiguration, err, "validation failed")
}
