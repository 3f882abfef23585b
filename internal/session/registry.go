package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// examSource is the slice of the catalog the registry needs: loading an
// exam aggregate and flipping its status after completion.
type examSource interface {
	GetExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	MarkExamCompleted(ctx context.Context, id uuid.UUID) error
}

// Registry tracks live attempt engines by session ID and assigns attempt
// numbers from the user's persisted result history.
type Registry struct {
	mu      sync.RWMutex
	engines map[uuid.UUID]*Engine

	catalog examSource
	gw      gateway.Gateway
	store   cache.Store
	log     zerolog.Logger
	opts    []Option
}

func NewRegistry(catalog examSource, gw gateway.Gateway, store cache.Store, log zerolog.Logger, opts ...Option) *Registry {
	return &Registry{
		engines: make(map[uuid.UUID]*Engine),
		catalog: catalog,
		gw:      gw,
		store:   store,
		log:     log.With().Str("component", "session_registry").Logger(),
		opts:    opts,
	}
}

// StartAttempt loads the exam, assigns the next attempt number and starts
// a new engine. The attempt number is one more than the user's persisted
// result count for the exam, so abandoned attempts never consume a number.
func (r *Registry) StartAttempt(ctx context.Context, examID, userID uuid.UUID) (*Engine, error) {
	exam, err := r.catalog.GetExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}

	attempt := r.nextAttemptNumber(ctx, examID, userID)
	eng, err := New(exam, userID, attempt, r.gw, r.store, r.catalog, r.log, r.opts...)
	if err != nil {
		return nil, err
	}
	eng.Start()

	r.mu.Lock()
	r.engines[eng.Session().ID] = eng
	r.mu.Unlock()
	return eng, nil
}

// Get returns the engine for a session. Terminal engines remain reachable
// until the janitor reaps them so clients can fetch the final result.
func (r *Registry) Get(sessionID uuid.UUID) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	eng, ok := r.engines[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return eng, nil
}

// Abandon terminates a session without scoring and drops it immediately.
func (r *Registry) Abandon(sessionID uuid.UUID) error {
	r.mu.Lock()
	eng, ok := r.engines[sessionID]
	if ok {
		delete(r.engines, sessionID)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	eng.Abandon()
	return nil
}

// RunJanitor reaps terminal engines on the given interval until the
// context is cancelled. Remaining live attempts are abandoned on exit so
// their timer goroutines stop with the process.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

func (r *Registry) reap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, eng := range r.engines {
		eng.mu.Lock()
		terminal := eng.sess.Status.Terminal()
		eng.mu.Unlock()
		if terminal {
			delete(r.engines, id)
		}
	}
}

func (r *Registry) shutdown() {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.engines))
	for id, eng := range r.engines {
		engines = append(engines, eng)
		delete(r.engines, id)
	}
	r.mu.Unlock()
	for _, eng := range engines {
		eng.Abandon()
	}
}

func (r *Registry) nextAttemptNumber(ctx context.Context, examID, userID uuid.UUID) int {
	prior, err := r.gw.Query(ctx, "test_results", gateway.Filters{
		"test_id": examID.String(),
		"user_id": userID.String(),
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("Attempt history unavailable, defaulting to 1")
		return 1
	}
	return len(prior) + 1
}
