package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	cardNumberPattern = regexp.MustCompile(`^\d{16}$`)
	expiryPattern     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

// ValidationError maps json field names to messages. Nothing is written when one
// is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed on %s", strings.Join(names, ", "))
}

// NewValidator returns a validator reporting json field names, with the urllist,
// cardnumber, expiry and cvv tags registered.
func NewValidator() *validator.Validate {
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
	// urllist: every comma-separated entry of a non-blank list must be a URL
	_ = v.RegisterValidation("urllist", func(fl validator.FieldLevel) bool {
		text := fl.Field().String()
		if strings.TrimSpace(text) == "" {
			return true
		}
		for _, part := range strings.Split(text, ",") {
			if v.Var(strings.TrimSpace(part), "required,url") != nil {
				return false
			}
		}
		return true
	})
	_ = v.RegisterValidation("cardnumber", matches(cardNumberPattern))
	_ = v.RegisterValidation("expiry", matches(expiryPattern))
	_ = v.RegisterValidation("cvv", matches(cvvPattern))
	return v
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return &ValidationError{Fields: fields}
}
