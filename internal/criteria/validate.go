package criteria

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wonny/valuescreener/pkg/errs"
)

// ValidationError is a rejected criteria value
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Kind classifies the error for presentation
func (e *ValidationError) Kind() errs.Kind {
	return errs.KindValidation
}

// Validate checks every field of a snapshot and joins all failures.
// domain may be empty, in which case any non-blank index name is accepted.
func Validate(c Criteria, domain []string) error {
	var failures []error

	if err := checkIndexName(c.IndexName, domain); err != nil {
		failures = append(failures, err)
	}
	for _, f := range numericFields {
		if err := checkNumeric(f, f.get(&c)); err != nil {
			failures = append(failures, err)
		}
	}

	return errors.Join(failures...)
}

// ValidationErrors flattens a Validate result into its field failures
func ValidationErrors(err error) []*ValidationError {
	switch e := err.(type) {
	case nil:
		return nil
	case *ValidationError:
		return []*ValidationError{e}
	case interface{ Unwrap() []error }:
		var out []*ValidationError
		for _, inner := range e.Unwrap() {
			out = append(out, ValidationErrors(inner)...)
		}
		return out
	case interface{ Unwrap() error }:
		return ValidationErrors(e.Unwrap())
	default:
		return nil
	}
}

func checkIndexName(name string, domain []string) *ValidationError {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: FieldIndexName, Value: name, Message: "is required"}
	}
	if len(name) > MaxIndexNameLen {
		return &ValidationError{
			Field:   FieldIndexName,
			Value:   name,
			Message: fmt.Sprintf("must be at most %d characters", MaxIndexNameLen),
		}
	}
	if len(domain) == 0 {
		return nil
	}
	for _, allowed := range domain {
		if allowed == name {
			return nil
		}
	}
	return &ValidationError{Field: FieldIndexName, Value: name, Message: "is not an available index"}
}

func checkNumeric(f numericField, v float64) *ValidationError {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: f.name, Value: v, Message: "must be a finite number"}
	}
	if !f.bounds.Contains(v) {
		return &ValidationError{
			Field:   f.name,
			Value:   v,
			Message: fmt.Sprintf("must be between %g and %g", f.bounds.Min, f.bounds.Max),
		}
	}
	return nil
}

// thousandsGroup matches "1,000" style input, which reads as 1.0 with a decimal comma
var thousandsGroup = regexp.MustCompile(`^[+-]?[1-9][0-9]{0,2},[0-9]{3}$`)

// ambiguousSeparator reports input mixing ',' and '.', repeating ',' or
// grouping thousands with ','
func ambiguousSeparator(s string) bool {
	commas := strings.Count(s, ",")
	switch {
	case commas == 0:
		return false
	case commas > 1, strings.Contains(s, "."):
		return true
	default:
		return thousandsGroup.MatchString(s)
	}
}

// parseNumeric accepts float values and numeric strings (form input)
func parseNumeric(field string, value interface{}) (float64, *ValidationError) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, &ValidationError{Field: field, Value: value, Message: "is required"}
		}
		// 프랑스어 입력(쉼표 소수점) 허용, 천 단위 구분 기호는 거부
		if ambiguousSeparator(s) {
			return 0, &ValidationError{Field: field, Value: value, Message: "must use a single decimal separator and no thousands separator"}
		}
		f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil {
			return 0, &ValidationError{Field: field, Value: value, Message: "must be a number"}
		}
		return f, nil
	default:
		return 0, &ValidationError{Field: field, Value: value, Message: "must be a number"}
	}
}
