package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists the fields of a draft that were rejected, keyed by
// their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid product: " + strings.Join(parts, "; ")
}

// ParseDraft turns raw form input into a validated Draft. A price that is not
// a whole number is rejected rather than mapped to a placeholder value.
func ParseDraft(name, price string) (Draft, error) {
	draft := Draft{Name: strings.TrimSpace(name)}
	fields := map[string]string{}

	rawPrice := strings.TrimSpace(price)
	parsed, err := strconv.Atoi(rawPrice)
	if err != nil {
		fields["price"] = "must be a whole number"
	} else {
		draft.Price = parsed
	}

	if err := draft.Validate(); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return Draft{}, err
		}
		for k, v := range ve.Fields {
			if _, seen := fields[k]; !seen {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return Draft{}, &ValidationError{Fields: fields}
	}
	return draft, nil
}

// Validate checks the draft's constraints.
func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate draft: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeTag(fe)
	}
	return &ValidationError{Fields: fields}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	default:
		return "is invalid"
	}
}
