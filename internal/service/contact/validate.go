package contact

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kvetinski/phonebook/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return v
}

func normalize(c domain.Contact) domain.Contact {
	c.Username = strings.TrimSpace(c.Username)
	return c
}

// validateContact reports the first violation in field order.
func validateContact(c domain.Contact) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domain.ValidationError{Field: "contact", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	return &domain.ValidationError{Field: fieldPath(fe), Reason: reason(fe)}
}

// fieldPath drops the root struct name, e.g. "Contact.telephone.mobile".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email_shape":
		return "must be a valid email address"
	case "phone":
		return "may only contain digits, spaces, '+', '-' and parentheses"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
