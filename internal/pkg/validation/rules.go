package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

// Validation rule patterns
var (
	// MobilePattern is a 10 digit mobile number
	MobilePattern = `^\d{10}$`

	// Field length limits, matching the column widths
	NameMaxLength    = 100
	AadharMaxLength  = 12
	CityMaxLength    = 50
	AddressMaxLength = 255
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Mobile *regexp.Regexp
}{
	Mobile: regexp.MustCompile(MobilePattern),
}

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the custom rules registered.
// Field names in errors come from the json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return CompiledPatterns.Mobile.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		validate = v
	})
	return validate
}

// IsValidMobile reports whether s is exactly 10 digits
func IsValidMobile(s string) bool {
	return CompiledPatterns.Mobile.MatchString(s)
}

// Struct validates s and converts failures into a single validation error whose
// details list every failing field.
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("", err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := FormatFieldError(fe)
		fields[fe.Field()] = msg
		messages = append(messages, msg)
	}

	return &apperrors.CustomError{
		Err:     apperrors.ErrValidationFailed,
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{
			"field":  fieldErrs[0].Field(),
			"fields": fields,
		},
	}
}

// FormatFieldError creates a human-readable validation error message
func FormatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "mobile":
		return e.Field() + " must be exactly 10 digits"
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
