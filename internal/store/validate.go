// ABOUTME: Input validation for store operations using go-playground/validator
// ABOUTME: Maps validation failures to ErrInvalidInput

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// registration is the validated shape of a Register call.
type registration struct {
	Username string `validate:"required,max=64"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
}

// validateStruct checks v against its tags and reports the failing fields.
func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return invalidInput(err)
	}
	return nil
}

// validateGroupName rejects blank and oversized group names.
func validateGroupName(name string) error {
	if err := validate.Var(name, "required,max=100"); err != nil {
		return fmt.Errorf("%w: group name: %s", ErrInvalidInput, describe(err))
	}
	return nil
}

// validateContent rejects empty message bodies.
func validateContent(content string) error {
	if err := validate.Var(content, "required"); err != nil {
		return fmt.Errorf("%w: message content is empty", ErrInvalidInput)
	}
	return nil
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, describe(err))
}

// describe flattens validator errors into "field failed tag" phrases.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if field == "" {
			parts = append(parts, "failed "+fe.Tag())
			continue
		}
		parts = append(parts, field+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
