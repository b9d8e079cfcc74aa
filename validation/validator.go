// Package validation wraps go-playground/validator v10 with a shared,
// lazily built validator instance and readable error messages.
//
//	type byYearParams struct {
//	    Year  int `validate:"min=1000,max=9999"`
//	    Limit int `validate:"min=1"`
//	}
//	if err := validation.ValidateStruct(&p); err != nil { ... }
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError is one failed rule on one field.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (e FieldError) Error() string {
	field := strings.ToLower(e.Field)
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", field, e.Param, e.Value)
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", field, e.Param, e.Value)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, e.Param, e.Value)
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag)
	}
}

// Errors is the list of field failures for one struct.
type Errors []FieldError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct validates s and returns Errors, or nil when s is valid.
func ValidateStruct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}
