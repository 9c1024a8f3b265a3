package definition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a stanza parameter: either a single string from a <param>
// element or an ordered list of strings from a <param_list> element.
type Value struct {
	list   bool
	scalar string
	values []string
}

// Scalar returns a single-valued parameter.
func Scalar(s string) Value {
	return Value{scalar: s}
}

// List returns a multi-valued parameter. The values are copied.
func List(values ...string) Value {
	return Value{list: true, values: append([]string{}, values...)}
}

// IsList reports whether v came from a <param_list>.
func (v Value) IsList() bool {
	return v.list
}

// String returns the scalar value. For a list it returns the first element,
// or "" when the list is empty.
func (v Value) String() string {
	if !v.list {
		return v.scalar
	}
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// Strings returns the list values. A scalar is returned as a one-element
// slice.
func (v Value) Strings() []string {
	if !v.list {
		return []string{v.scalar}
	}
	return append([]string{}, v.values...)
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.list != o.list {
		return false
	}
	if !v.list {
		return v.scalar == o.scalar
	}
	if len(v.values) != len(o.values) {
		return false
	}
	for i := range v.values {
		if v.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// Stanza is the flat parameter map of one input instance.
type Stanza map[string]Value

// Names returns the parameter names in sorted order.
func (s Stanza) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Has reports whether the parameter is present.
func (s Stanza) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// String returns the scalar value of a parameter, or "" when it is absent.
func (s Stanza) String(name string) string {
	return s[name].String()
}

// Strings returns the values of a parameter, or nil when it is absent.
func (s Stanza) Strings(name string) []string {
	v, ok := s[name]
	if !ok {
		return nil
	}
	return v.Strings()
}

// Bool parses a parameter using the host's boolean spellings
// (true/false, yes/no, 1/0, t/f, y/n).
func (s Stanza) Bool(name string) (bool, error) {
	v, ok := s[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	switch strings.ToLower(strings.TrimSpace(v.String())) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s is not a boolean: %q", ErrDecode, name, v.String())
	}
}

// Int parses a parameter as a base-10 integer.
func (s Stanza) Int(name string) (int64, error) {
	v, ok := s[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return i, nil
}

// Float parses a parameter as a float64.
func (s Stanza) Float(name string) (float64, error) {
	v, ok := s[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return f, nil
}

// Equal reports whether both stanzas hold the same parameters.
func (s Stanza) Equal(o Stanza) bool {
	if len(s) != len(o) {
		return false
	}
	for k, v := range s {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
