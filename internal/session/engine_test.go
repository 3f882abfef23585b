package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type stubCompleter struct {
	mu    sync.Mutex
	calls int
}

func (s *stubCompleter) MarkExamCompleted(context.Context, uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func (s *stubCompleter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func twoSectionExam() (*model.Exam, []uuid.UUID) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	q := func(id uuid.UUID) model.Question {
		return model.Question{ID: id, Text: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0, Weightage: 1}
	}
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Engineering Mock",
		DurationMinutes: 60,
		Sections: []model.Section{
			{ID: uuid.New(), Name: "Physics", NegativeMarking: 0.25, Questions: []model.Question{q(ids[0]), q(ids[1])}},
			{ID: uuid.New(), Name: "Chemistry", NegativeMarking: 0.25, Questions: []model.Question{q(ids[2]), q(ids[3])}},
		},
		MarkingScheme: model.MarkingScheme{DefaultWeightage: 1, NegativeMarking: 0.25, PassingPercentage: 35},
	}, ids
}

func newTestEngine(t *testing.T, exam *model.Exam, fake *gatewaytest.Fake, store cache.Store, opts ...Option) (*Engine, *stubCompleter) {
	t.Helper()
	completer := &stubCompleter{}
	eng, err := New(exam, uuid.New(), 1, fake, store, completer, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, completer
}

func TestNewRejectsBrokenContent(t *testing.T) {
	fake := gatewaytest.New()
	store := cache.NewMemoryStore()

	empty := &model.Exam{ID: uuid.New(), Sections: []model.Section{{ID: uuid.New()}}}
	if _, err := New(empty, uuid.New(), 1, fake, store, &stubCompleter{}, zerolog.Nop()); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("err = %v, want ErrNoQuestions", err)
	}

	broken, _ := twoSectionExam()
	broken.Sections[0].Questions[0].CorrectAnswer = 9
	if _, err := New(broken, uuid.New(), 1, fake, store, &stubCompleter{}, zerolog.Nop()); !errors.Is(err, ErrBrokenQuestion) {
		t.Fatalf("err = %v, want ErrBrokenQuestion", err)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	exam, ids := twoSectionExam()
	eng, _ := newTestEngine(t, exam, gatewaytest.New(), cache.NewMemoryStore())

	if err := eng.RecordAnswer(ids[0], 0, 5); !errors.Is(err, ErrNotOngoing) {
		t.Fatalf("answer before start: err = %v, want ErrNotOngoing", err)
	}
	eng.Start()
	defer eng.Abandon()

	if err := eng.RecordAnswer(uuid.New(), 0, 5); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("err = %v, want ErrUnknownQuestion", err)
	}
	if err := eng.RecordAnswer(ids[0], 4, 5); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}
	if err := eng.RecordAnswer(ids[0], 1, 5); err != nil {
		t.Fatalf("valid answer: %v", err)
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	exam, ids := twoSectionExam()
	eng, _ := newTestEngine(t, exam, gatewaytest.New(), cache.NewMemoryStore())
	eng.Start()
	defer eng.Abandon()

	if err := eng.RecordAnswer(ids[0], 1, 10); err != nil {
		t.Fatal(err)
	}
	if err := eng.RecordAnswer(ids[0], 2, 25); err != nil {
		t.Fatal(err)
	}

	got := eng.State().Answers[ids[0]]
	want := model.Answer{SelectedOption: 2, TimeSpentSeconds: 25}
	if got != want {
		t.Fatalf("answer = %+v, want %+v", got, want)
	}
	if n := len(eng.State().Answers); n != 1 {
		t.Fatalf("answer count = %d, want 1", n)
	}
}

func TestNavigateCrossesSectionsAndClamps(t *testing.T) {
	exam, _ := twoSectionExam()
	eng, _ := newTestEngine(t, exam, gatewaytest.New(), cache.NewMemoryStore())
	eng.Start()
	defer eng.Abandon()

	steps := []struct {
		delta int
		want  Position
	}{
		{1, Position{Section: 0, Question: 1}},
		{1, Position{Section: 1, Question: 0}}, // crosses the boundary
		{5, Position{Section: 1, Question: 1}}, // clamps at the end
		{-10, Position{Section: 0, Question: 0}},
		{-1, Position{Section: 0, Question: 0}}, // clamps at the start
	}
	for _, step := range steps {
		got, err := eng.Navigate(step.delta)
		if err != nil {
			t.Fatalf("Navigate(%d): %v", step.delta, err)
		}
		if got != step.want {
			t.Fatalf("Navigate(%d) = %+v, want %+v", step.delta, got, step.want)
		}
	}

	if _, err := eng.Goto(Position{Section: 2, Question: 0}); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("Goto out of range: err = %v", err)
	}
	if got, err := eng.Goto(Position{Section: 1, Question: 1}); err != nil || got != (Position{Section: 1, Question: 1}) {
		t.Fatalf("Goto = %+v, %v", got, err)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	exam, ids := twoSectionExam()
	fake := gatewaytest.New()
	eng, completer := newTestEngine(t, exam, fake, cache.NewMemoryStore())
	eng.Start()

	if err := eng.RecordAnswer(ids[0], 0, 5); err != nil {
		t.Fatal(err)
	}

	first, err := eng.Submit(context.Background(), SubmitManual)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := eng.Submit(context.Background(), SubmitTimeout)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatal("second submit returned a different result")
	}
	if fake.UpsertCalls != 1 {
		t.Fatalf("upsert calls = %d, want 1", fake.UpsertCalls)
	}
	if completer.count() != 1 {
		t.Fatalf("exam status writes = %d, want 1", completer.count())
	}
	if got := len(fake.Collections["test_results"]); got != 1 {
		t.Fatalf("persisted results = %d, want 1", got)
	}
}

func TestAutoSubmitFiresOnce(t *testing.T) {
	exam, ids := twoSectionExam()
	fake := gatewaytest.New()
	clock := newFakeClock()
	eng, _ := newTestEngine(t, exam, fake, cache.NewMemoryStore(),
		WithClock(clock.Now), WithTickInterval(2*time.Millisecond))

	ticks, cancel := eng.Subscribe()
	defer cancel()
	eng.Start()

	if err := eng.RecordAnswer(ids[0], 0, 30); err != nil {
		t.Fatal(err)
	}
	if err := eng.RecordAnswer(ids[1], 3, 30); err != nil {
		t.Fatal(err)
	}

	clock.Advance(61 * time.Minute)

	deadline := time.After(2 * time.Second)
	var final Tick
	for done := false; !done; {
		select {
		case tick, ok := <-ticks:
			if !ok {
				done = true
				break
			}
			final = tick
		case <-deadline:
			t.Fatal("timed out waiting for auto-submit")
		}
	}
	if !final.AutoSubmitted {
		t.Fatalf("final tick = %+v, want AutoSubmitted", final)
	}

	result := eng.Result()
	if result == nil {
		t.Fatal("no result after auto-submit")
	}
	if result.CorrectAnswers != 1 || result.WrongAnswers != 1 {
		t.Fatalf("correct/wrong = %d/%d, want 1/1", result.CorrectAnswers, result.WrongAnswers)
	}
	if got := result.SkippedQuestions(); got != 2 {
		t.Fatalf("skipped = %d, want 2", got)
	}
	if fake.UpsertCalls != 1 {
		t.Fatalf("upsert calls = %d, want exactly 1", fake.UpsertCalls)
	}
	if eng.State().Status != model.SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", eng.State().Status)
	}
}

func TestAbandonProducesNoResult(t *testing.T) {
	exam, ids := twoSectionExam()
	fake := gatewaytest.New()
	eng, completer := newTestEngine(t, exam, fake, cache.NewMemoryStore())
	eng.Start()

	if err := eng.RecordAnswer(ids[0], 0, 5); err != nil {
		t.Fatal(err)
	}
	eng.Abandon()

	if eng.Result() != nil {
		t.Fatal("abandoned attempt must not have a result")
	}
	if fake.UpsertCalls != 0 {
		t.Fatalf("upsert calls = %d, want 0", fake.UpsertCalls)
	}
	if completer.count() != 0 {
		t.Fatalf("exam status writes = %d, want 0", completer.count())
	}
	if _, err := eng.Submit(context.Background(), SubmitManual); !errors.Is(err, ErrNotOngoing) {
		t.Fatalf("submit after abandon: err = %v, want ErrNotOngoing", err)
	}
	if eng.State().Status != model.SessionStatusAbandoned {
		t.Fatalf("status = %s, want abandoned", eng.State().Status)
	}
}

func TestSubmitPersistsLocallyWhenRemoteDown(t *testing.T) {
	exam, ids := twoSectionExam()
	fake := gatewaytest.New()
	fake.FailUpsert = true
	store := cache.NewMemoryStore()
	eng, _ := newTestEngine(t, exam, fake, store)
	eng.Start()

	if err := eng.RecordAnswer(ids[0], 0, 5); err != nil {
		t.Fatal(err)
	}
	result, err := eng.Submit(context.Background(), SubmitManual)
	if err != nil {
		t.Fatalf("submit with remote down: %v", err)
	}

	sess := eng.Session()
	key := config.CacheKey.ExamResultKey(exam.ID.String(), sess.UserID.String())
	var cached model.ExamResult
	if !cache.GetJSON(context.Background(), store, key, &cached) {
		t.Fatal("result missing from local cache")
	}
	if cached.SessionID != result.SessionID || cached.ObtainedMarks != result.ObtainedMarks {
		t.Fatalf("cached result diverges: %+v vs %+v", cached, result)
	}
	if n := store.QueueLen(config.QueueKey.OfflineResults); n != 1 {
		t.Fatalf("offline queue length = %d, want 1", n)
	}
}

type stubSource struct {
	stubCompleter
	exam *model.Exam
}

func (s *stubSource) GetExamByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if s.exam == nil || s.exam.ID != id {
		return nil, errors.New("not found")
	}
	return s.exam, nil
}

func TestRegistryAssignsAttemptNumbers(t *testing.T) {
	exam, _ := twoSectionExam()
	fake := gatewaytest.New()
	userID := uuid.New()
	fake.Seed("test_results",
		gateway.Record{"session_id": uuid.New().String(), "test_id": exam.ID.String(), "user_id": userID.String()},
		gateway.Record{"session_id": uuid.New().String(), "test_id": exam.ID.String(), "user_id": userID.String()},
		gateway.Record{"session_id": uuid.New().String(), "test_id": exam.ID.String(), "user_id": uuid.New().String()},
	)

	reg := NewRegistry(&stubSource{exam: exam}, fake, cache.NewMemoryStore(), zerolog.Nop())
	eng, err := reg.StartAttempt(context.Background(), exam.ID, userID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	defer eng.Abandon()

	if got := eng.Session().AttemptNumber; got != 3 {
		t.Fatalf("attempt number = %d, want 3 (two prior results)", got)
	}

	found, err := reg.Get(eng.Session().ID)
	if err != nil || found != eng {
		t.Fatalf("Get = %v, %v", found, err)
	}
	if _, err := reg.Get(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("unknown session: err = %v", err)
	}
}

func TestRegistryAbandonRemoves(t *testing.T) {
	exam, _ := twoSectionExam()
	reg := NewRegistry(&stubSource{exam: exam}, gatewaytest.New(), cache.NewMemoryStore(), zerolog.Nop())

	eng, err := reg.StartAttempt(context.Background(), exam.ID, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	id := eng.Session().ID

	if err := reg.Abandon(id); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if _, err := reg.Get(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if err := reg.Abandon(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second abandon: err = %v", err)
	}
}
