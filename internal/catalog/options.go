package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// NormalizeOptions converts the three historical encodings of a question's
// option list into one ordered []string:
//
//   - a native list of strings
//   - a JSON-encoded string (or raw bytes) holding a list or object
//   - a key-indexed object ("0"/"1"/... or "a"/"b"/...)
//
// Scoring indexes into this list, so the ordering must be identical for
// all encodings of the same options.
func NormalizeOptions(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("options missing")
	case []string:
		return v, nil
	case []any:
		return fromList(v)
	case map[string]any:
		return fromKeyed(v)
	case []byte:
		return fromJSON(v)
	case string:
		return fromJSON([]byte(v))
	case json.RawMessage:
		return fromJSON(v)
	default:
		return nil, fmt.Errorf("unsupported options encoding %T", raw)
	}
}

func fromJSON(raw []byte) ([]string, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	switch v := decoded.(type) {
	case []any:
		return fromList(v)
	case map[string]any:
		return fromKeyed(v)
	default:
		return nil, fmt.Errorf("options JSON is neither list nor object")
	}
}

func fromList(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("option %d is %T, want string", len(out), item)
		}
		out = append(out, s)
	}
	return out, nil
}

// fromKeyed orders a key-indexed object by its keys: numerically when every
// key parses as an integer, lexicographically otherwise ("a","b","c","d").
func fromKeyed(obj map[string]any) ([]string, error) {
	keys := make([]string, 0, len(obj))
	numeric := true
	for k := range obj {
		keys = append(keys, k)
		if _, err := strconv.Atoi(k); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		})
	} else {
		sort.Strings(keys)
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		s, ok := obj[k].(string)
		if !ok {
			return nil, fmt.Errorf("option %q is %T, want string", k, obj[k])
		}
		out = append(out, s)
	}
	return out, nil
}
