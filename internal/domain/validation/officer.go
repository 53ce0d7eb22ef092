package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

// identityFormat carries the citizen identity fields checked on officer edits
type identityFormat struct {
	IDNumber string `json:"id_number" validate:"required,len=12,digits"`
	Phone    string `json:"phone" validate:"required,len=10,digits"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// formatValidator returns the shared validator with the "digits" rule and
// JSON field names registered.
func formatValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("digits", isDigits); err != nil {
			panic(fmt.Sprintf("register digits validation: %v", err))
		}
		validate = v
	})
	return validate
}

func isDigits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidateIdentityFormat checks the id number (exactly 12 digits) and phone
// (exactly 10 digits).
func ValidateIdentityFormat(f *entity.ApplicationFields) []apperr.FieldError {
	err := formatValidator().Struct(identityFormat{
		IDNumber: strings.TrimSpace(f.IDNumber),
		Phone:    strings.TrimSpace(f.Phone),
	})
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []apperr.FieldError{{Field: "identity", Message: err.Error()}}
	}

	fields := make([]apperr.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: formatMessage(fe)})
	}
	return fields
}

func formatMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must be exactly %s digits", fe.Param())
	case "digits":
		return "must contain digits only"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// ValidateOfficerEdit is the gate for an officer editing an existing
// application: the step 1 to 4 predicates plus the identity format checks.
func ValidateOfficerEdit(f *entity.ApplicationFields) error {
	var c apperr.Collector
	for step := FirstStep; step < LastStep; step++ {
		c.Merge(ValidateStep(step, f))
	}
	c.Merge(ValidateIdentityFormat(f))
	return c.Err()
}
