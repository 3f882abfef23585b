// Package catalog owns the read path for exam aggregates: it denormalizes
// the remote store's relational shape (tests, marking_schemes,
// test_sections, sections, questions) into the single Exam aggregate the
// session engine consumes, with cache and authored-list fallbacks when the
// remote store is unreachable.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// ErrExamNotFound is returned when no remote, cached or authored copy of
// the requested exam exists.
var ErrExamNotFound = errors.New("exam not found")

// Filter narrows ListExams. Empty fields are not applied.
type Filter struct {
	Stream     string
	Subject    string
	Status     string
	Difficulty string
}

// Service resolves exam aggregates.
type Service struct {
	gw    gateway.Gateway
	store cache.Store
	log   zerolog.Logger
}

// NewService creates a catalog Service.
func NewService(gw gateway.Gateway, store cache.Store, log zerolog.Logger) *Service {
	return &Service{
		gw:    gw,
		store: store,
		log:   log.With().Str("component", "catalog").Logger(),
	}
}

// ListExams returns every exam matching the filter. An exam whose section
// or question resolution fails is dropped and logged, never fatal.
func (s *Service) ListExams(ctx context.Context, filter Filter) ([]model.Exam, error) {
	filters := gateway.Filters{}
	if filter.Stream != "" {
		filters["stream"] = filter.Stream
	}
	if filter.Subject != "" {
		filters["subject"] = filter.Subject
	}
	if filter.Status != "" {
		filters["status"] = filter.Status
	}
	if filter.Difficulty != "" {
		filters["difficulty"] = filter.Difficulty
	}

	testRecs, err := s.gw.Query(ctx, "tests", filters)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}

	exams := make([]model.Exam, 0, len(testRecs))
	for _, rec := range testRecs {
		exam, err := s.resolveExam(ctx, rec)
		if err != nil {
			s.log.Warn().Err(err).Str("exam_id", rec.String("id")).Msg("Dropping unresolvable exam")
			continue
		}
		exams = append(exams, *exam)
	}
	return exams, nil
}

// GetExamByID resolves a single aggregate. On failure it falls back first
// to the per-exam cache entry, then to the authored-exams flat list.
func (s *Service) GetExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	testRecs, err := s.gw.Query(ctx, "tests", gateway.Filters{"id": id})
	if err == nil && len(testRecs) == 1 {
		exam, rerr := s.resolveExam(ctx, testRecs[0])
		if rerr == nil {
			cache.SetJSON(ctx, s.store, config.CacheKey.ExamKey(id.String()), exam)
			return exam, nil
		}
		err = rerr
	}
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Remote resolution failed, trying fallbacks")
	}

	var exam model.Exam
	if cache.GetJSON(ctx, s.store, config.CacheKey.ExamKey(id.String()), &exam) {
		return &exam, nil
	}

	var authored []model.Exam
	if cache.GetJSON(ctx, s.store, config.CacheKey.AuthoredExamsKey(), &authored) {
		for i := range authored {
			if authored[i].ID == id {
				return &authored[i], nil
			}
		}
	}

	return nil, ErrExamNotFound
}

// ListStreams returns the configured stream records.
func (s *Service) ListStreams(ctx context.Context) ([]gateway.Record, error) {
	return s.gw.Query(ctx, "streams", nil)
}

// ListSubjects returns subject records, optionally narrowed by stream.
func (s *Service) ListSubjects(ctx context.Context, stream string) ([]gateway.Record, error) {
	filters := gateway.Filters{}
	if stream != "" {
		filters["stream"] = stream
	}
	return s.gw.Query(ctx, "subjects", filters)
}

// resolveExam denormalizes one tests record into the full aggregate.
func (s *Service) resolveExam(ctx context.Context, rec gateway.Record) (*model.Exam, error) {
	id := rec.UUID("id")
	if id == uuid.Nil {
		return nil, errors.New("test record has no id")
	}

	exam := &model.Exam{
		ID:              id,
		Title:           rec.String("title"),
		Stream:          model.Stream(rec.String("stream")),
		Category:        model.ExamCategory(rec.String("category")),
		Subject:         rec.String("subject"),
		ScheduledAt:     rec.Time("scheduled_at"),
		DurationMinutes: rec.Int("duration_minutes"),
		Difficulty:      model.Difficulty(rec.String("difficulty")),
		Status:          model.ExamStatus(rec.String("status")),
		Notification: model.NotificationPrefs{
			ReminderMinutes: rec.Int("reminder_minutes"),
			Enabled:         rec.Bool("notify_enabled"),
		},
		CreatedAt: rec.Time("created_at"),
	}

	scheme, err := s.resolveMarkingScheme(ctx, id)
	if err != nil {
		return nil, err
	}
	exam.MarkingScheme = scheme

	sections, err := s.resolveSections(ctx, id, scheme)
	if err != nil {
		return nil, err
	}
	exam.Sections = sections
	exam.TotalQuestions = exam.CountQuestions()

	return exam, nil
}

// resolveMarkingScheme loads the at-most-one marking scheme record for a
// test, falling back to the documented defaults when absent.
func (s *Service) resolveMarkingScheme(ctx context.Context, testID uuid.UUID) (model.MarkingScheme, error) {
	recs, err := s.gw.Query(ctx, "marking_schemes", gateway.Filters{"test_id": testID})
	if err != nil {
		return model.MarkingScheme{}, fmt.Errorf("marking scheme: %w", err)
	}
	if len(recs) == 0 {
		return model.DefaultMarkingScheme(), nil
	}
	rec := recs[0]
	return model.MarkingScheme{
		DefaultWeightage:  rec.Float("default_weightage"),
		NegativeMarking:   rec.Float("negative_marking"),
		PassingPercentage: rec.Float("passing_percentage"),
	}, nil
}

// resolveSections loads the ordered sections and their ordered questions.
// Ordering comes from the persisted sort keys, never from storage order.
func (s *Service) resolveSections(ctx context.Context, testID uuid.UUID, scheme model.MarkingScheme) ([]model.Section, error) {
	joinRecs, err := s.gw.Query(ctx, "test_sections", gateway.Filters{"test_id": testID})
	if err != nil {
		return nil, fmt.Errorf("test sections: %w", err)
	}
	sort.Slice(joinRecs, func(i, j int) bool {
		return joinRecs[i].Int("section_order") < joinRecs[j].Int("section_order")
	})

	sections := make([]model.Section, 0, len(joinRecs))
	for _, join := range joinRecs {
		sectionID := join.UUID("section_id")

		secRecs, err := s.gw.Query(ctx, "sections", gateway.Filters{"id": sectionID})
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sectionID, err)
		}
		if len(secRecs) == 0 {
			return nil, fmt.Errorf("section %s missing", sectionID)
		}
		secRec := secRecs[0]

		section := model.Section{
			ID:           sectionID,
			Name:         secRec.String("name"),
			Instructions: secRec.String("instructions"),
			Subject:      secRec.String("subject"),
			Order:        join.Int("section_order"),
		}
		if secRec.Has("negative_marking") {
			section.NegativeMarking = secRec.Float("negative_marking")
		} else {
			section.NegativeMarking = scheme.NegativeMarking
		}

		questions, err := s.resolveQuestions(ctx, sectionID, scheme)
		if err != nil {
			return nil, err
		}
		section.Questions = questions
		sections = append(sections, section)
	}
	return sections, nil
}

func (s *Service) resolveQuestions(ctx context.Context, sectionID uuid.UUID, scheme model.MarkingScheme) ([]model.Question, error) {
	qRecs, err := s.gw.Query(ctx, "questions", gateway.Filters{"section_id": sectionID})
	if err != nil {
		return nil, fmt.Errorf("questions of section %s: %w", sectionID, err)
	}
	sort.Slice(qRecs, func(i, j int) bool {
		return qRecs[i].Int("question_order") < qRecs[j].Int("question_order")
	})

	questions := make([]model.Question, 0, len(qRecs))
	for _, rec := range qRecs {
		options, err := NormalizeOptions(rec["options"])
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", rec.String("id"), err)
		}

		q := model.Question{
			ID:            rec.UUID("id"),
			SectionID:     sectionID,
			Text:          rec.String("text"),
			Options:       options,
			CorrectAnswer: rec.Int("correct_answer"),
			Explanation:   rec.String("explanation"),
			Subject:       rec.String("subject"),
			Topic:         rec.String("topic"),
			Difficulty:    model.Difficulty(rec.String("difficulty")),
			Weightage:     rec.Float("weightage"),
			Order:         rec.Int("question_order"),
		}
		if !rec.Has("weightage") {
			q.Weightage = scheme.DefaultWeightage
		}
		questions = append(questions, q)
	}
	return questions, nil
}
