// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	govalidator "github.com/go-playground/validator/v10"

	"textback_backend/platform/phone"
)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *govalidator.Validate
}

// New creates a new Validator instance with domain validations registered.
func New() *Validator {
	v := govalidator.New()

	// Strict E.164 check for webhook phone fields.
	_ = v.RegisterValidation("e164strict", func(fl govalidator.FieldLevel) bool {
		return phone.IsE164(fl.Field().String())
	})

	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}
