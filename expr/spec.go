package expr

import (
	"fmt"
	"sort"
)

// Spec names a registered function and carries its arguments, decoded
// from configuration as
//
//	{func: count, object: jets, op: ">=", value: 2}
type Spec struct {
	Func string                 `yaml:"func"`
	Args map[string]interface{} `yaml:",inline"`
}

// SpecFrom converts a nested argument (as decoded from YAML) into a Spec.
func SpecFrom(v interface{}) (Spec, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return Spec{}, fmt.Errorf("%w: expected a mapping, got %T", ErrBadArgument, v)
	}
	name, ok := m["func"].(string)
	if !ok {
		return Spec{}, fmt.Errorf("%w: nested expression has no func", ErrBadArgument)
	}
	args := make(map[string]interface{}, len(m))
	for k, v := range m {
		if k != "func" {
			args[k] = v
		}
	}
	return Spec{Func: name, Args: args}, nil
}

func (s Spec) String() string {
	keys := make([]string, 0, len(s.Args))
	for k := range s.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := s.Func + "("
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", k, s.Args[k])
	}
	return out + ")"
}

func (s Spec) Has(key string) bool {
	_, ok := s.Args[key]
	return ok
}

// Str returns a required string argument.
func (s Spec) Str(key string) (string, error) {
	v, ok := s.Args[key]
	if !ok {
		return "", fmt.Errorf("%s: %w %q", s.Func, ErrMissingArgument, key)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %w: %q must be a string, got %T", s.Func, ErrBadArgument, key, v)
	}
	return str, nil
}

// StrOr returns an optional string argument.
func (s Spec) StrOr(key, def string) (string, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Str(key)
}

// Float returns a required numeric argument.
func (s Spec) Float(key string) (float64, error) {
	v, ok := s.Args[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w %q", s.Func, ErrMissingArgument, key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("%s: %w: %q must be a number, got %T", s.Func, ErrBadArgument, key, v)
	}
	return f, nil
}

// FloatOr returns an optional numeric argument.
func (s Spec) FloatOr(key string, def float64) (float64, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Float(key)
}

// Strings returns a required list of strings.
func (s Spec) Strings(key string) ([]string, error) {
	v, ok := s.Args[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", s.Func, ErrMissingArgument, key)
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, len(list))
		for i, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %w: %q[%d] must be a string, got %T", s.Func, ErrBadArgument, key, i, item)
			}
			out[i] = str
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w: %q must be a list, got %T", s.Func, ErrBadArgument, key, v)
}

// Op returns the comparison operator argument "op".
func (s Spec) Op() (Op, error) {
	str, err := s.Str("op")
	if err != nil {
		return "", err
	}
	return ParseOp(str)
}

// Nested returns a nested expression argument.
func (s Spec) Nested(key string) (Spec, error) {
	v, ok := s.Args[key]
	if !ok {
		return Spec{}, fmt.Errorf("%s: %w %q", s.Func, ErrMissingArgument, key)
	}
	if spec, ok := v.(Spec); ok {
		return spec, nil
	}
	return SpecFrom(v)
}

// NestedList returns a list of nested expression arguments.
func (s Spec) NestedList(key string) ([]Spec, error) {
	v, ok := s.Args[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w %q", s.Func, ErrMissingArgument, key)
	}
	switch list := v.(type) {
	case []Spec:
		return list, nil
	case []interface{}:
		out := make([]Spec, len(list))
		for i, item := range list {
			spec, err := SpecFrom(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %q[%d]: %w", s.Func, key, i, err)
			}
			out[i] = spec
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w: %q must be a list, got %T", s.Func, ErrBadArgument, key, v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
