// Package inputval validates form input structs and single values.
//
// Struct rules are declared with `validate` tags (go-playground/validator
// syntax). The `label` tag names the field in messages and the `form` tag
// names the field key reported back to templates:
//
//	type createGroupInput struct {
//	    Name string `form:"name" validate:"required,max=100,groupname" label:"Group name"`
//	}
//
// Validate always reports every violation, never just the first.
package inputval

import (
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result is the outcome of Validate.
type Result = apperr.ValidationError

// FieldError is one violation inside a Result.
type FieldError = apperr.FieldError

var (
	groupNameRe  = regexp.MustCompile(`^[\w\s\-]+$`)
	nationalIDRe = regexp.MustCompile(`^[0-9]{5}-[0-9]{7}-[0-9]$`)
	phoneRe      = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,19}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	_ = v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
		return groupNameRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
		return nationalIDRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return IsValidHTTPURL(fl.Field().String())
	})
	_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
		return IsValidObjectID(fl.Field().String())
	})
	_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
		return IsValidEmail(fl.Field().String())
	})
	return v
}

// Validate checks input against its struct tags.
func Validate(input any) *Result {
	res := &Result{}
	err := validate.Struct(input)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Add("", "Invalid input.")
		return res
	}
	t := reflect.TypeOf(input)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		res.Add(formKey(t, fe.StructField()), message(fe))
	}
	return res
}

func formKey(t reflect.Type, structField string) string {
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(structField); ok {
			if k := f.Tag.Get("form"); k != "" {
				return k
			}
		}
	}
	return strings.ToLower(structField)
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "email", "emailaddr":
		return "A valid email address is required."
	case "eqfield":
		return fmt.Sprintf("%s does not match.", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "groupname":
		return label + " may only contain letters, numbers, spaces, underscores and hyphens."
	case "nationalid":
		return label + " must be in the format 12345-1234567-1."
	case "phone":
		return label + " must be a valid phone number."
	case "httpurl":
		return label + " must be a valid http or https URL."
	case "objectid":
		return label + " is not a valid identifier."
	}
	return label + " is invalid."
}

// IsValidEmail reports whether s is a bare address (no display name)
// with a well-formed local part and domain.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	return dotsOK(s[:at]) && dotsOK(s[at+1:])
}

func dotsOK(part string) bool {
	return !strings.HasPrefix(part, ".") &&
		!strings.HasSuffix(part, ".") &&
		!strings.Contains(part, "..")
}

// IsValidHTTPURL reports whether s is an absolute http or https URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}
