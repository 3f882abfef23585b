package cache

import (
	"context"
	"testing"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("expected absent key")
	}

	s.Set(ctx, "k", []byte(`"v1"`))
	s.Set(ctx, "k", []byte(`"v2"`))

	raw, ok := s.Get(ctx, "k")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if string(raw) != `"v2"` {
		t.Fatalf("last write should win, got %s", raw)
	}
}

func TestMemoryStore_Queue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if items := s.DrainQueue(ctx, "q", 10); len(items) != 0 {
		t.Fatalf("empty queue should drain to nothing, got %d items", len(items))
	}

	s.AppendToQueue(ctx, "q", []byte("a"))
	s.AppendToQueue(ctx, "q", []byte("b"))
	s.AppendToQueue(ctx, "q", []byte("c"))

	items := s.DrainQueue(ctx, "q", 2)
	if len(items) != 2 || string(items[0]) != "a" || string(items[1]) != "b" {
		t.Fatalf("expected FIFO drain of 2 items, got %q", items)
	}
	if s.QueueLen("q") != 1 {
		t.Fatalf("expected 1 item left, got %d", s.QueueLen("q"))
	}
}

func TestGetJSON_MalformedSlotReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, "bad", []byte(`{not json`))

	var out map[string]string
	if GetJSON(ctx, s, "bad", &out) {
		t.Fatal("malformed slot must read as absent")
	}
}

func TestSetJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := map[string]int{"answered": 3}
	SetJSON(ctx, s, "state", in)

	var out map[string]int
	if !GetJSON(ctx, s, "state", &out) {
		t.Fatal("expected value to round-trip")
	}
	if out["answered"] != 3 {
		t.Fatalf("got %v", out)
	}
}
