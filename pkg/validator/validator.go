// Package validator provides struct validation utilities with custom validators.
package validator

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/severity"
)

// Validator wraps the go-playground validator with custom validations.
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, e := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return sb.String()
}

// New creates a new Validator with custom validators registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("severity", validateSeverity)
	_ = v.RegisterValidation("license_category", validateLicenseCategory)
	_ = v.RegisterValidation("regexp", validateRegexp)
	_ = v.RegisterValidation("output_format", validateOutputFormat)

	return &Validator{validate: v}
}

// Validate validates a struct and returns ValidationErrors if validation fails.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !stderrors.As(err, &validationErrors) {
		return err
	}

	result := make(ValidationErrors, 0, len(validationErrors))
	for _, e := range validationErrors {
		result = append(result, ValidationError{
			Field:   fieldPath(e.StructNamespace()),
			Message: formatErrorMessage(e),
		})
	}

	return result
}

// validateSeverity accepts canonical severities only. Provider spellings such
// as "moderate" are normalized at ingestion, not in configuration.
func validateSeverity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return severity.Severity(strings.ToLower(value)).IsValid()
}

// validateLicenseCategory accepts approved/conditional/prohibited and the
// green/yellow/red aliases.
func validateLicenseCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	_, err := licensepolicy.ParseCategory(value)
	return err == nil
}

// validateRegexp validates that a string compiles as a Go regular expression.
func validateRegexp(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := regexp.Compile(value)
	return err == nil
}

func validateOutputFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "text", "json", "yaml", "sarif":
		return true
	default:
		return false
	}
}

// formatErrorMessage creates a human-readable error message.
func formatErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "severity":
		return fmt.Sprintf("must be one of: %s", formatSeverities())
	case "license_category":
		return "must be one of: approved, conditional, prohibited (or green, yellow, red)"
	case "regexp":
		return "must be a valid regular expression"
	case "output_format":
		return "must be one of: text, json, yaml, sarif"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}

// fieldPath drops the root struct name from a namespace and converts each
// segment to snake_case: "Policy.Licenses.Approved[0].ID" becomes
// "licenses.approved[0].id".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

// toSnakeCase converts PascalCase/camelCase to snake_case. Runs of capitals
// such as "ID" or "URL" stay together.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				result.WriteByte('_')
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

// formatSeverities returns a comma-separated list of valid severities.
func formatSeverities() string {
	severities := severity.All()
	strs := make([]string, len(severities))
	for i, s := range severities {
		strs[i] = string(s)
	}
	return strings.Join(strs, ", ")
}
