package music

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a comparison used by range filters.
type Operator string

const (
	OpLess    Operator = "<"
	OpEqual   Operator = "="
	OpGreater Operator = ">"
)

// ParseOperator accepts only <, = and >.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(strings.TrimSpace(s)); op {
	case OpLess, OpEqual, OpGreater:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// ComparisonKey is the companion key holding the operator for a range field.
func ComparisonKey(field string) string {
	switch field {
	case "begin_date":
		return "begin_comparison"
	case "end_date":
		return "end_comparison"
	}
	return field + "_comparison"
}

// Filters maps a search field to its user supplied value.
type Filters map[string]string

// FiltersFromMap normalizes a decoded JSON body. Lists keep their first
// non-empty element; a list of empty strings counts as empty.
func FiltersFromMap(m map[string]any) Filters {
	f := make(Filters, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case nil:
		case string:
			f[k] = val
		case float64:
			f[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			f[k] = strconv.FormatBool(val)
		case []any:
			for _, item := range val {
				if s := strings.TrimSpace(fmt.Sprint(item)); item != nil && s != "" {
					f[k] = s
					break
				}
			}
		default:
			f[k] = fmt.Sprint(val)
		}
	}
	return f
}

// Get returns the trimmed value for key and whether it is non-empty.
func (f Filters) Get(key string) (string, bool) {
	v := strings.TrimSpace(f[key])
	return v, v != ""
}

// Operator returns the validated operator paired with a range field.
func (f Filters) Operator(field string) (Operator, error) {
	key := ComparisonKey(field)
	raw, ok := f[key]
	if !ok {
		return "", fmt.Errorf("%w: %s requires %s", ErrValidation, field, key)
	}
	op, err := ParseOperator(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return op, nil
}

// Int parses the value for key as an integer.
func (f Filters) Int(key string) (int, error) {
	v, _ := f.Get(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrValidation, key, v)
	}
	return n, nil
}
