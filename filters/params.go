package filters

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Params is one parameter combination. Values are scalars (int, float64,
// string, bool) or sequences ([]any) that are passed as a single value.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Canonical returns the JSON encoding of p with sorted keys. It is the
// identity of the combination in persisted results.
func (p Params) Canonical() (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	b, err := json.Marshal(map[string]any(p))
	if err != nil {
		return "", errors.Wrap(err, "encode params")
	}
	return string(b), nil
}

// String renders "k=v, k=v" in sorted key order.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Names() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, ", ")
}

// Int returns the named parameter as an int, or def when absent.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	n, ok := toInt(v)
	if !ok {
		return 0, errors.Errorf("parameter %q: expected integer, got %T", name, v)
	}
	return n, nil
}

// Float returns the named parameter as a float64, or def when absent.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), nil
	}
	return 0, errors.Errorf("parameter %q: expected number, got %T", name, v)
}

// Text returns the named parameter as a string, or def when absent.
func (p Params) Text(name, def string) (string, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("parameter %q: expected string, got %T", name, v)
	}
	return s, nil
}

// Ints returns the named sequence parameter. A scalar integer is accepted as
// a one-element sequence. ok is false when the parameter is absent.
func (p Params) Ints(name string) (vals []int, ok bool, err error) {
	v, present := p[name]
	if !present {
		return nil, false, nil
	}
	if n, isInt := toInt(v); isInt {
		return []int{n}, true, nil
	}
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []int:
		return append([]int(nil), x...), true, nil
	default:
		return nil, true, errors.Errorf("parameter %q: expected integer list, got %T", name, v)
	}
	vals = make([]int, 0, len(items))
	for _, item := range items {
		n, isInt := toInt(item)
		if !isInt {
			return nil, true, errors.Errorf("parameter %q: expected integer list, got element %T", name, item)
		}
		vals = append(vals, n)
	}
	return vals, true, nil
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
	}
	return 0, false
}

// selectPlanes resolves the "planes" parameter against a frame with n planes.
// Every plane is selected when the parameter is absent.
func selectPlanes(p Params, n int) ([]bool, error) {
	sel := make([]bool, n)
	idx, ok, err := p.Ints("planes")
	if err != nil {
		return nil, err
	}
	if !ok {
		for i := range sel {
			sel[i] = true
		}
		return sel, nil
	}
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, errors.Errorf("parameter \"planes\": plane %d out of range [0, %d)", i, n)
		}
		sel[i] = true
	}
	return sel, nil
}
