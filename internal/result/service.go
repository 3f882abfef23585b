package result

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// Service is the read side for persisted results. It never mutates a
// result and never fails hard: a degraded read yields cached rows or an
// empty list so callers can always render something.
type Service struct {
	gw    gateway.Gateway
	store cache.Store
	log   zerolog.Logger
}

func NewService(gw gateway.Gateway, store cache.Store, log zerolog.Logger) *Service {
	return &Service{
		gw:    gw,
		store: store,
		log:   log.With().Str("component", "result_service").Logger(),
	}
}

// GetResultsByExam returns every stored attempt for one exam and user,
// ordered by attempt number. Results parked in the local cache by a failed
// submission write are merged in so a just-finished attempt shows up even
// while the remote store is down.
func (s *Service) GetResultsByExam(ctx context.Context, examID, userID uuid.UUID) ([]model.ExamResult, error) {
	rows, err := s.gw.Query(ctx, "test_results", gateway.Filters{
		"test_id": examID.String(),
		"user_id": userID.String(),
	})
	if err != nil {
		return nil, err
	}

	results := make([]model.ExamResult, 0, len(rows))
	seen := make(map[uuid.UUID]bool, len(rows))
	for _, rec := range rows {
		r := Decode(rec).Canonical()
		results = append(results, r)
		seen[r.SessionID] = true
	}

	var parked model.ExamResult
	key := config.CacheKey.ExamResultKey(examID.String(), userID.String())
	if cache.GetJSON(ctx, s.store, key, &parked) && !seen[parked.SessionID] {
		results = append(results, parked)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].AttemptNumber < results[j].AttemptNumber
	})
	return results, nil
}

// GetResultsByUser returns summary rows across all exams for one user,
// most recent first. No section reconciliation happens on this path.
func (s *Service) GetResultsByUser(ctx context.Context, userID uuid.UUID) ([]model.ExamResult, error) {
	rows, err := s.gw.Query(ctx, "test_results", gateway.Filters{"user_id": userID.String()})
	if err != nil {
		return nil, err
	}

	results := make([]model.ExamResult, 0, len(rows))
	for _, rec := range rows {
		r := Decode(rec).Canonical()
		r.Sections = nil
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SubmittedAt.After(results[j].SubmittedAt)
	})
	return results, nil
}
