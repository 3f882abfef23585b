package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is one row of a remote collection in its opaque wire shape.
// Values arrive either from the database driver or from a JSON-decoded
// cache entry, so the typed accessors normalize both representations.
type Record map[string]any

// Filters is a set of equality predicates applied to a collection.
type Filters map[string]any

// String returns the value under key as a string, or "" when absent.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the value under key as a float64, or 0 when absent or
// non-numeric.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		var f float64
		_, _ = fmt.Sscanf(v, "%g", &f)
		return f
	default:
		return 0
	}
}

// Int returns the value under key as an int.
func (r Record) Int(key string) int {
	return int(r.Float(key))
}

// Bool returns the value under key as a bool.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "t"
	default:
		return false
	}
}

// UUID parses the value under key as a UUID; the zero UUID is returned for
// absent or malformed values.
func (r Record) UUID(key string) uuid.UUID {
	switch v := r[key].(type) {
	case [16]byte:
		return uuid.UUID(v)
	case uuid.UUID:
		return v
	default:
		id, err := uuid.Parse(r.String(key))
		if err != nil {
			return uuid.Nil
		}
		return id
	}
}

// Time parses the value under key as a timestamp. Cache entries carry
// RFC 3339 strings; driver rows carry time.Time.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// matches reports whether the record satisfies every equality predicate.
// Comparison is done on the normalized string form so that driver-native
// and JSON-decoded values compare equal.
func (r Record) matches(filters Filters) bool {
	for k, want := range filters {
		if normalize(want) != r.String(k) {
			return false
		}
	}
	return true
}

func normalize(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case uuid.UUID:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
