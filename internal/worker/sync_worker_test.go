package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway/gatewaytest"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

func queue(t *testing.T, store cache.Store, key string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	store.AppendToQueue(context.Background(), key, raw)
}

func TestDrainOnceReplaysFailedWrites(t *testing.T) {
	fake := gatewaytest.New()
	store := cache.NewMemoryStore()
	examID := uuid.New().String()
	queue(t, store, config.QueueKey.FailedWrites, gateway.QueuedWrite{
		Collection:  "tests",
		ConflictKey: "id",
		Records:     []gateway.Record{{"id": examID, "title": "Parked Exam"}},
	})

	NewSyncWorker(fake, store, zerolog.Nop()).DrainOnce(context.Background())

	rows := fake.Collections["tests"]
	if len(rows) != 1 || rows[0].String("id") != examID {
		t.Fatalf("tests = %+v, want the replayed record", rows)
	}
	if n := store.QueueLen(config.QueueKey.FailedWrites); n != 0 {
		t.Fatalf("queue length = %d, want 0", n)
	}
}

func TestDrainOnceReplaysOfflineResults(t *testing.T) {
	fake := gatewaytest.New()
	store := cache.NewMemoryStore()
	r := model.ExamResult{
		SessionID:      uuid.New(),
		ExamID:         uuid.New(),
		UserID:         uuid.New(),
		AttemptNumber:  1,
		TotalMarks:     4,
		ObtainedMarks:  1.75,
		TotalQuestions: 4,
		CorrectAnswers: 2,
		WrongAnswers:   1,
		Percentage:     43.75,
		IsPassed:       true,
		SubmittedAt:    time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	queue(t, store, config.QueueKey.OfflineResults, r)

	NewSyncWorker(fake, store, zerolog.Nop()).DrainOnce(context.Background())

	rows := fake.Collections["test_results"]
	if len(rows) != 1 {
		t.Fatalf("test_results = %+v, want one replayed row", rows)
	}
	if got := rows[0].String("session_id"); got != r.SessionID.String() {
		t.Fatalf("session_id = %q, want %q", got, r.SessionID)
	}
	if got := rows[0].Float("obtained_marks"); got != 1.75 {
		t.Fatalf("obtained_marks = %v, want 1.75", got)
	}
	if n := store.QueueLen(config.QueueKey.OfflineResults); n != 0 {
		t.Fatalf("queue length = %d, want 0", n)
	}
}

func TestDrainOnceSkipsWhileOffline(t *testing.T) {
	fake := gatewaytest.New()
	fake.Offline = true
	store := cache.NewMemoryStore()
	queue(t, store, config.QueueKey.FailedWrites, gateway.QueuedWrite{
		Collection:  "tests",
		ConflictKey: "id",
		Records:     []gateway.Record{{"id": uuid.New().String()}},
	})

	NewSyncWorker(fake, store, zerolog.Nop()).DrainOnce(context.Background())

	if n := store.QueueLen(config.QueueKey.FailedWrites); n != 1 {
		t.Fatalf("queue length = %d, want untouched", n)
	}
	if fake.UpsertCalls != 0 {
		t.Fatalf("upsert calls = %d, want 0", fake.UpsertCalls)
	}
}

func TestDrainOnceDropsMalformedItems(t *testing.T) {
	fake := gatewaytest.New()
	store := cache.NewMemoryStore()
	store.AppendToQueue(context.Background(), config.QueueKey.FailedWrites, []byte("{not json"))
	store.AppendToQueue(context.Background(), config.QueueKey.OfflineResults, []byte("{not json"))

	NewSyncWorker(fake, store, zerolog.Nop()).DrainOnce(context.Background())

	if n := store.QueueLen(config.QueueKey.FailedWrites); n != 0 {
		t.Fatalf("failed-writes length = %d, want malformed item dropped", n)
	}
	if n := store.QueueLen(config.QueueKey.OfflineResults); n != 0 {
		t.Fatalf("offline-results length = %d, want malformed item dropped", n)
	}
}
