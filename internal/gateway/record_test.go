package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecord_StringNormalizesDriverAndCacheShapes(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"native string", Record{"id": id.String()}, id.String()},
		{"driver bytes", Record{"id": [16]byte(id)}, id.String()},
		{"byte slice", Record{"id": []byte("abc")}, "abc"},
		{"absent", Record{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.String("id"); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRecord_NumericCoercion(t *testing.T) {
	rec := Record{
		"a": float64(2.5),
		"b": int64(7),
		"c": "3.25",
	}
	if rec.Float("a") != 2.5 || rec.Float("b") != 7 || rec.Float("c") != 3.25 {
		t.Fatalf("coercion failed: %v %v %v", rec.Float("a"), rec.Float("b"), rec.Float("c"))
	}
	if rec.Int("b") != 7 {
		t.Fatalf("Int failed: %d", rec.Int("b"))
	}
	if rec.Float("missing") != 0 {
		t.Fatal("absent numeric should read as 0")
	}
}

func TestRecord_TimeFromCacheString(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	rec := Record{"at": now.Format(time.RFC3339), "native": now}

	if !rec.Time("at").Equal(now) {
		t.Fatalf("RFC3339 parse failed: %v", rec.Time("at"))
	}
	if !rec.Time("native").Equal(now) {
		t.Fatal("native time passthrough failed")
	}
	if !rec.Time("missing").IsZero() {
		t.Fatal("absent time should be zero")
	}
}

func TestRecord_MatchesMixedRepresentations(t *testing.T) {
	id := uuid.New()
	rec := Record{"test_id": [16]byte(id), "status": "scheduled"}

	if !rec.matches(Filters{"test_id": id, "status": "scheduled"}) {
		t.Fatal("expected match across uuid representations")
	}
	if rec.matches(Filters{"status": "completed"}) {
		t.Fatal("unexpected match")
	}
}
