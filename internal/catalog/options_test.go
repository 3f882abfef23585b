package catalog

import (
	"reflect"
	"testing"
)

func TestNormalizeOptions_AllEncodingsAgree(t *testing.T) {
	want := []string{"12 m/s", "9.8 m/s", "4 m/s", "0 m/s"}

	encodings := map[string]any{
		"native list":    []any{"12 m/s", "9.8 m/s", "4 m/s", "0 m/s"},
		"string slice":   []string{"12 m/s", "9.8 m/s", "4 m/s", "0 m/s"},
		"json string":    `["12 m/s","9.8 m/s","4 m/s","0 m/s"]`,
		"json bytes":     []byte(`["12 m/s","9.8 m/s","4 m/s","0 m/s"]`),
		"numeric keys":   map[string]any{"0": "12 m/s", "1": "9.8 m/s", "2": "4 m/s", "3": "0 m/s"},
		"json object":    `{"0":"12 m/s","1":"9.8 m/s","2":"4 m/s","3":"0 m/s"}`,
		"letter keys":    map[string]any{"a": "12 m/s", "b": "9.8 m/s", "c": "4 m/s", "d": "0 m/s"},
	}

	for name, raw := range encodings {
		t.Run(name, func(t *testing.T) {
			got, err := NormalizeOptions(raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestNormalizeOptions_NumericKeysSortNumerically(t *testing.T) {
	// "10" must come after "9", not between "1" and "2".
	obj := map[string]any{}
	want := make([]string, 11)
	for i := 0; i <= 10; i++ {
		obj[itoa(i)] = "opt" + itoa(i)
		want[i] = "opt" + itoa(i)
	}

	got, err := NormalizeOptions(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNormalizeOptions_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"nil", nil},
		{"broken json", `["a",`},
		{"scalar json", `42`},
		{"non-string element", []any{"a", 2}},
		{"non-string object value", map[string]any{"0": 1}},
		{"unsupported type", 3.14},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeOptions(tc.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func itoa(n int) string {
	if n == 10 {
		return "10"
	}
	return string(rune('0' + n))
}
