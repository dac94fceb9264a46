package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is the outcome of rendering a template body.
type Result struct {
	Output string
	// UsedKeys lists every key referenced by the body, first-seen order, no duplicates.
	UsedKeys []string
	// MissingKeys lists the referenced keys that did not resolve to a non-null value.
	MissingKeys []string
}

// Render substitutes the placeholders in body with values from params.
//
// Substituted values are never re-scanned. Render has no side effects; it fails
// only when body is malformed or a resolved value cannot be formatted.
func Render(body string, params map[string]any) (Result, error) {
	segs, err := parse(body)
	if err != nil {
		return Result{}, fmt.Errorf("malformed template: %w", err)
	}

	var (
		out     strings.Builder
		used    = newKeySet()
		missing = newKeySet()
	)
	out.Grow(len(body))

	for _, seg := range segs {
		if seg.ph == nil {
			out.WriteString(seg.text)
			continue
		}

		key := seg.ph.key
		used.add(key)

		value, ok := Resolve(params, key)
		if !ok {
			missing.add(key)
			if seg.ph.hasDefault {
				out.WriteString(seg.ph.def)
			}
			continue
		}

		s, err := formatValue(value)
		if err != nil {
			return Result{}, fmt.Errorf("cannot format value of %q: %w", key, err)
		}
		out.WriteString(s)
	}

	return Result{
		Output:      out.String(),
		UsedKeys:    used.keys,
		MissingKeys: missing.keys,
	}, nil
}

// Resolve walks params along the dotted path key. Objects are indexed by name and
// arrays by non-negative integer. Any other intermediate value, an absent segment,
// or a null leaf leaves the key unresolved.
func Resolve(params map[string]any, key string) (any, bool) {
	var node any = params
	for _, part := range strings.Split(key, ".") {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[part]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}
			node = n[idx]
		default:
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", fmt.Errorf("unsupported number %v", x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case json.Number:
		return x.String(), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

type keySet struct {
	seen map[string]struct{}
	keys []string
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[string]struct{}), keys: []string{}}
}

func (s *keySet) add(key string) {
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.keys = append(s.keys, key)
}
