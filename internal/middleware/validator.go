package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

var (
	validate    = newValidator()
	userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.@-]{1,64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// error message pakai nama field JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("maxrunes", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscan(fl.Param(), &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(fl.Field().String()) <= limit
	})
	return v
}

// Validate checks struct tags and returns a KindValidation failure
// naming the first offending field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return failure.Validation(err.Error())
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return failure.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "min", "max", "gte", "lte":
		return failure.Validation(fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	case "oneof":
		return failure.Validation(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	case "maxrunes":
		return failure.Validation(fmt.Sprintf("%s exceeds %s characters", fe.Field(), fe.Param()))
	}
	return failure.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
}

// ValidateUserID validates user ID format
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("invalid user ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
