// Package session runs timed exam attempts. Each attempt is driven by one
// Engine: a small state machine (ongoing → completed/abandoned) with a
// countdown timer, an answer map, an activity log, and a single guarded
// submit path shared by manual submission and timeout auto-submission.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// Content errors abort an attempt before the timer ever starts.
var (
	ErrNoQuestions     = errors.New("exam has no sections with questions")
	ErrBrokenQuestion  = errors.New("question references a missing option index")
	ErrNotOngoing      = errors.New("session is not ongoing")
	ErrUnknownQuestion = errors.New("question does not belong to this exam")
	ErrInvalidOption   = errors.New("selected option out of range")
)

// SubmitReason distinguishes the two triggers of the one submit path.
type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
)

// Position addresses one question inside the exam.
type Position struct {
	Section  int `json:"section"`
	Question int `json:"question"`
}

// Tick is pushed to subscribers once per timer interval and once, with
// AutoSubmitted set, when the countdown triggers submission.
type Tick struct {
	RemainingSeconds int  `json:"remaining_seconds"`
	AutoSubmitted    bool `json:"auto_submitted"`
}

// Snapshot is a point-in-time view of an attempt for state reads.
type Snapshot struct {
	SessionID        uuid.UUID            `json:"session_id"`
	ExamID           uuid.UUID            `json:"exam_id"`
	AttemptNumber    int                  `json:"attempt_number"`
	Status           model.SessionStatus  `json:"status"`
	Position         Position             `json:"position"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Answers          map[uuid.UUID]model.Answer `json:"answers"`
}

// examCompleter flips the exam-level status once a session completes.
// Satisfied by the catalog service.
type examCompleter interface {
	MarkExamCompleted(ctx context.Context, id uuid.UUID) error
}

// Engine runs exactly one attempt. All methods are safe for concurrent use
// by the HTTP and WebSocket layers; the timer goroutine funnels through
// the same guarded submit path as manual submission.
type Engine struct {
	mu   sync.Mutex
	exam *model.Exam
	sess *model.ExamSession
	pos  Position

	deadline time.Time
	clock    func() time.Time
	tick     time.Duration

	gw        gateway.Gateway
	store     cache.Store
	completer examCompleter
	log       zerolog.Logger

	result   *model.ExamResult
	stop     chan struct{}
	stopOnce sync.Once
	subs     map[chan Tick]struct{}
}

// Option customizes an Engine. Tests inject a fake clock and a short tick.
type Option func(*Engine)

// WithClock overrides the wall-clock source.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithTickInterval overrides the countdown granularity (default 1s).
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) { e.tick = d }
}

// New validates the exam aggregate and prepares an attempt. The timer does
// not run until Start. Content errors surface here, synchronously, so a
// broken exam never starts a timer.
func New(
	exam *model.Exam,
	userID uuid.UUID,
	attemptNumber int,
	gw gateway.Gateway,
	store cache.Store,
	completer examCompleter,
	log zerolog.Logger,
	opts ...Option,
) (*Engine, error) {
	if exam == nil || exam.CountQuestions() == 0 {
		return nil, ErrNoQuestions
	}
	for i := range exam.Sections {
		for j := range exam.Sections[i].Questions {
			if !exam.Sections[i].Questions[j].Valid() {
				return nil, ErrBrokenQuestion
			}
		}
	}

	e := &Engine{
		exam: exam,
		sess: &model.ExamSession{
			ID:            uuid.New(),
			ExamID:        exam.ID,
			UserID:        userID,
			AttemptNumber: attemptNumber,
			Answers:       make(map[uuid.UUID]model.Answer),
		},
		clock:     time.Now,
		tick:      time.Second,
		gw:        gw,
		store:     store,
		completer: completer,
		stop:      make(chan struct{}),
		subs:      make(map[chan Tick]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = log.With().
		Str("component", "session_engine").
		Str("session_id", e.sess.ID.String()).
		Str("exam_id", exam.ID.String()).
		Logger()
	return e, nil
}

// Start enters Ongoing and launches the countdown.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.Status != "" {
		return
	}
	now := e.clock()
	e.sess.StartedAt = now
	e.sess.Status = model.SessionStatusOngoing
	e.deadline = now.Add(e.exam.Duration())
	e.appendEventLocked(model.EventStart, nil)
	go e.run()
	e.log.Info().
		Int("attempt", e.sess.AttemptNumber).
		Time("deadline", e.deadline).
		Msg("Attempt started")
}

// Session returns the underlying session. Callers must treat it as
// read-only; the engine owns all mutation.
func (e *Engine) Session() *model.ExamSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Result returns the computed result once the session is completed.
func (e *Engine) Result() *model.ExamResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// State snapshots the attempt for reloads.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	answers := make(map[uuid.UUID]model.Answer, len(e.sess.Answers))
	for k, v := range e.sess.Answers {
		answers[k] = v
	}
	return Snapshot{
		SessionID:        e.sess.ID,
		ExamID:           e.sess.ExamID,
		AttemptNumber:    e.sess.AttemptNumber,
		Status:           e.sess.Status,
		Position:         e.pos,
		RemainingSeconds: e.remainingLocked(),
		Answers:          answers,
	}
}

// RecordAnswer stores the selection for a question, overwriting any prior
// choice (last answer wins). Idempotent for identical input.
func (e *Engine) RecordAnswer(questionID uuid.UUID, selectedOption, timeSpentSeconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.Status != model.SessionStatusOngoing {
		return ErrNotOngoing
	}

	q := e.findQuestionLocked(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	if selectedOption < 0 || selectedOption >= len(q.Options) {
		return ErrInvalidOption
	}

	e.sess.Answers[questionID] = model.Answer{
		SelectedOption:   selectedOption,
		TimeSpentSeconds: timeSpentSeconds,
	}
	e.appendEventLocked(model.EventAnswer, &questionID)
	return nil
}

// Navigate moves the current position by delta questions, crossing section
// boundaries, clamping at the first and last question. Answers are never
// discarded by navigation.
func (e *Engine) Navigate(delta int) (Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.Status != model.SessionStatusOngoing {
		return e.pos, ErrNotOngoing
	}

	flat := e.flatIndexLocked(e.pos) + delta
	if flat < 0 {
		flat = 0
	}
	if max := e.exam.CountQuestions() - 1; flat > max {
		flat = max
	}
	e.pos = e.positionAtLocked(flat)
	e.appendEventLocked(model.EventNavigation, nil)
	return e.pos, nil
}

// Goto jumps straight to a section/question pair.
func (e *Engine) Goto(pos Position) (Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.Status != model.SessionStatusOngoing {
		return e.pos, ErrNotOngoing
	}
	if pos.Section < 0 || pos.Section >= len(e.exam.Sections) {
		return e.pos, ErrUnknownQuestion
	}
	if pos.Question < 0 || pos.Question >= len(e.exam.Sections[pos.Section].Questions) {
		return e.pos, ErrUnknownQuestion
	}
	e.pos = pos
	e.appendEventLocked(model.EventNavigation, nil)
	return e.pos, nil
}

// RecordEvent appends an integrity or review event to the activity log.
// tab_switch and idle are flags for later review, never scoring input.
func (e *Engine) RecordEvent(kind model.EventKind, questionID *uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sess.Status != model.SessionStatusOngoing {
		return ErrNotOngoing
	}
	switch kind {
	case model.EventReview, model.EventTabSwitch, model.EventIdle:
		e.appendEventLocked(kind, questionID)
		return nil
	default:
		return errors.New("unsupported event kind")
	}
}

// Submit is the single exit into Completed, shared by the manual path and
// the timeout path so both compute the same score. A second invocation on
// a completed session returns the existing result without writing again.
func (e *Engine) Submit(ctx context.Context, reason SubmitReason) (*model.ExamResult, error) {
	e.mu.Lock()
	switch e.sess.Status {
	case model.SessionStatusCompleted:
		result := e.result
		e.mu.Unlock()
		return result, nil
	case model.SessionStatusOngoing:
		// proceed
	default:
		e.mu.Unlock()
		return nil, ErrNotOngoing
	}

	now := e.clock()
	e.appendEventLocked(model.EventSubmit, nil)
	e.sess.Status = model.SessionStatusCompleted
	e.sess.FinishedAt = &now

	result := Score(e.exam, e.sess, now)
	e.result = &result
	e.mu.Unlock()

	e.stopTimer()
	e.broadcast(Tick{RemainingSeconds: e.remaining(), AutoSubmitted: reason == SubmitTimeout})
	e.closeSubs()

	e.persistResult(ctx, &result)
	e.markExamCompleted(ctx)

	e.log.Info().
		Str("reason", string(reason)).
		Float64("obtained", result.ObtainedMarks).
		Float64("percentage", result.Percentage).
		Bool("passed", result.IsPassed).
		Msg("Attempt submitted")
	return &result, nil
}

// Abandon exits Ongoing without scoring. No result record is ever written
// for an abandoned attempt, and the session cannot become completed later.
func (e *Engine) Abandon() {
	e.mu.Lock()
	if e.sess.Status != model.SessionStatusOngoing {
		e.mu.Unlock()
		return
	}
	e.sess.Status = model.SessionStatusAbandoned
	now := e.clock()
	e.sess.FinishedAt = &now
	e.mu.Unlock()

	e.stopTimer()
	e.closeSubs()
	e.log.Info().Msg("Attempt abandoned")
}

// Subscribe registers a listener for countdown ticks. The returned cancel
// function must be called when the listener goes away.
func (e *Engine) Subscribe() (<-chan Tick, func()) {
	ch := make(chan Tick, 4)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// run is the countdown loop: one re-armed tick per interval. It exits when
// the deadline passes (auto-submit fires exactly once through the guarded
// submit path) or when the session leaves Ongoing.
func (e *Engine) run() {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			remaining := e.remaining()
			if remaining <= 0 {
				if _, err := e.Submit(context.Background(), SubmitTimeout); err != nil && !errors.Is(err, ErrNotOngoing) {
					e.log.Error().Err(err).Msg("Auto-submit failed")
				}
				return
			}
			e.broadcast(Tick{RemainingSeconds: remaining})
		}
	}
}

func (e *Engine) remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

func (e *Engine) remainingLocked() int {
	if e.sess.Status != model.SessionStatusOngoing {
		return 0
	}
	remaining := int(e.deadline.Sub(e.clock()).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *Engine) stopTimer() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) broadcast(t Tick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- t:
		default: // slow subscriber, drop the tick
		}
	}
}

func (e *Engine) closeSubs() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
}

// persistResult writes the result remotely; when that fails the result is
// stored under the deterministic per-exam cache key and queued for the
// sync worker. A completed attempt is never lost to a network error.
func (e *Engine) persistResult(ctx context.Context, r *model.ExamResult) {
	rec := ResultRecord(r)
	if err := e.gw.Upsert(ctx, "test_results", []gateway.Record{rec}, "session_id"); err == nil {
		return
	}

	e.log.Warn().Msg("Remote result write failed, persisting locally")
	cache.SetJSON(ctx, e.store, config.CacheKey.ExamResultKey(r.ExamID.String(), r.UserID.String()), r)
	if raw, err := jsonMarshal(r); err == nil {
		e.store.AppendToQueue(ctx, config.QueueKey.OfflineResults, raw)
	}
}

func (e *Engine) markExamCompleted(ctx context.Context) {
	if err := e.completer.MarkExamCompleted(ctx, e.exam.ID); err != nil {
		e.log.Warn().Err(err).Msg("Exam status update failed")
	}
}

func (e *Engine) appendEventLocked(kind model.EventKind, questionID *uuid.UUID) {
	e.sess.Activity = append(e.sess.Activity, model.ActivityEvent{
		Kind:       kind,
		QuestionID: questionID,
		At:         e.clock(),
	})
}

func (e *Engine) findQuestionLocked(id uuid.UUID) *model.Question {
	for i := range e.exam.Sections {
		for j := range e.exam.Sections[i].Questions {
			if e.exam.Sections[i].Questions[j].ID == id {
				return &e.exam.Sections[i].Questions[j]
			}
		}
	}
	return nil
}

func (e *Engine) flatIndexLocked(pos Position) int {
	flat := 0
	for i := 0; i < pos.Section && i < len(e.exam.Sections); i++ {
		flat += len(e.exam.Sections[i].Questions)
	}
	return flat + pos.Question
}

func (e *Engine) positionAtLocked(flat int) Position {
	for i := range e.exam.Sections {
		n := len(e.exam.Sections[i].Questions)
		if flat < n {
			return Position{Section: i, Question: flat}
		}
		flat -= n
	}
	last := len(e.exam.Sections) - 1
	return Position{Section: last, Question: len(e.exam.Sections[last].Questions) - 1}
}
