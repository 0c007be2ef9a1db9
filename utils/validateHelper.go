package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs `validate` tags over an input struct and converts the
// first failure into a ValidationError so callers never see raw
// validator.ValidationErrors.
func ValidateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		first := verrs[0]
		field := strings.ToLower(first.Field()[:1]) + first.Field()[1:]
		return NewValidationError(field, "failed on rule '"+first.Tag()+"'")
	}
	return NewValidationError("", err.Error())
}
