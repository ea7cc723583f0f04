package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers mcpmux-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("upstream_kind", validateUpstreamKind); err != nil {
		return fmt.Errorf("register upstream_kind validator: %w", err)
	}
	return nil
}

// validateUpstreamKind validates the kind field of an upstream spec.
// Valid values: "stdio" or "sse".
func validateUpstreamKind(fl validator.FieldLevel) bool {
	kind := fl.Field().String()
	return kind == "stdio" || kind == "sse"
}

// Validate validates the Config using struct tags and custom rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return errors.New("store: path is required when driver is sqlite")
	}

	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single
// validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "upstream_kind":
		return fmt.Sprintf("%s must be 'stdio' or 'sse'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
