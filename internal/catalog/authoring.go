package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// ErrInvalidContent is returned when an authored exam fails content
// validation, such as a correct-answer index outside the option list.
var ErrInvalidContent = errors.New("invalid exam content")

// CreateExam persists a full exam aggregate through the gateway and
// mirrors it into the authored-exams flat list so reads can fall back to
// it when the remote store is unreachable. IDs missing from the input are
// assigned here.
func (s *Service) CreateExam(ctx context.Context, exam *model.Exam) error {
	if exam.ID == uuid.Nil {
		exam.ID = uuid.New()
	}
	if exam.Status == "" {
		exam.Status = model.ExamStatusScheduled
	}
	exam.TotalQuestions = exam.CountQuestions()

	testRec := gateway.Record{
		"id":               exam.ID,
		"title":            exam.Title,
		"stream":           string(exam.Stream),
		"category":         string(exam.Category),
		"subject":          exam.Subject,
		"scheduled_at":     exam.ScheduledAt,
		"duration_minutes": exam.DurationMinutes,
		"difficulty":       string(exam.Difficulty),
		"status":           string(exam.Status),
		"reminder_minutes": exam.Notification.ReminderMinutes,
		"notify_enabled":   exam.Notification.Enabled,
	}
	if err := s.gw.Upsert(ctx, "tests", []gateway.Record{testRec}, "id"); err != nil {
		return fmt.Errorf("write test: %w", err)
	}

	schemeRec := gateway.Record{
		"id":                 uuid.New(),
		"test_id":            exam.ID,
		"default_weightage":  exam.MarkingScheme.DefaultWeightage,
		"negative_marking":   exam.MarkingScheme.NegativeMarking,
		"passing_percentage": exam.MarkingScheme.PassingPercentage,
	}
	if err := s.gw.Upsert(ctx, "marking_schemes", []gateway.Record{schemeRec}, "test_id"); err != nil {
		return fmt.Errorf("write marking scheme: %w", err)
	}

	var (
		sectionRecs []gateway.Record
		joinRecs    []gateway.Record
		questionRecs []gateway.Record
	)
	for i := range exam.Sections {
		sec := &exam.Sections[i]
		if sec.ID == uuid.Nil {
			sec.ID = uuid.New()
		}
		sec.Order = i

		sectionRecs = append(sectionRecs, gateway.Record{
			"id":               sec.ID,
			"name":             sec.Name,
			"instructions":     sec.Instructions,
			"subject":          sec.Subject,
			"negative_marking": sec.NegativeMarking,
		})
		joinRecs = append(joinRecs, gateway.Record{
			"id":            uuid.New(),
			"test_id":       exam.ID,
			"section_id":    sec.ID,
			"section_order": sec.Order,
		})

		for j := range sec.Questions {
			q := &sec.Questions[j]
			if q.ID == uuid.Nil {
				q.ID = uuid.New()
			}
			q.SectionID = sec.ID
			q.Order = j
			if !q.Valid() {
				return fmt.Errorf("question %d of section %q: %w", j, sec.Name, ErrInvalidContent)
			}
			questionRecs = append(questionRecs, gateway.Record{
				"id":             q.ID,
				"section_id":     sec.ID,
				"text":           q.Text,
				"options":        q.Options,
				"correct_answer": q.CorrectAnswer,
				"explanation":    q.Explanation,
				"subject":        q.Subject,
				"topic":          q.Topic,
				"difficulty":     string(q.Difficulty),
				"weightage":      q.Weightage,
				"question_order": q.Order,
			})
		}
	}

	if err := s.gw.Upsert(ctx, "sections", sectionRecs, "id"); err != nil {
		return fmt.Errorf("write sections: %w", err)
	}
	if err := s.gw.Upsert(ctx, "test_sections", joinRecs, "id"); err != nil {
		return fmt.Errorf("write test sections: %w", err)
	}
	if err := s.gw.Upsert(ctx, "questions", questionRecs, "id"); err != nil {
		return fmt.Errorf("write questions: %w", err)
	}

	s.mirrorAuthoredExam(ctx, exam)
	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("sections", len(exam.Sections)).
		Int("questions", exam.TotalQuestions).
		Msg("Exam authored")
	return nil
}

// DeleteExam removes an exam and its relations. Administrative action; the
// session engine never deletes exams.
func (s *Service) DeleteExam(ctx context.Context, id uuid.UUID) error {
	joinRecs, err := s.gw.Query(ctx, "test_sections", gateway.Filters{"test_id": id})
	if err != nil {
		return fmt.Errorf("resolve sections: %w", err)
	}
	for _, join := range joinRecs {
		sectionID := join.UUID("section_id")
		if err := s.gw.Delete(ctx, "questions", gateway.Filters{"section_id": sectionID}); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := s.gw.Delete(ctx, "sections", gateway.Filters{"id": sectionID}); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
	}
	if err := s.gw.Delete(ctx, "test_sections", gateway.Filters{"test_id": id}); err != nil {
		return fmt.Errorf("delete test sections: %w", err)
	}
	if err := s.gw.Delete(ctx, "marking_schemes", gateway.Filters{"test_id": id}); err != nil {
		return fmt.Errorf("delete marking scheme: %w", err)
	}
	if err := s.gw.Delete(ctx, "tests", gateway.Filters{"id": id}); err != nil {
		return fmt.Errorf("delete test: %w", err)
	}

	s.removeAuthoredExam(ctx, id)
	s.log.Info().Str("exam_id", id.String()).Msg("Exam deleted")
	return nil
}

// MarkExamCompleted flips the exam-level status as a side effect of a
// session completing. Called exactly once per completed session.
func (s *Service) MarkExamCompleted(ctx context.Context, id uuid.UUID) error {
	return s.gw.Update(ctx, "tests",
		gateway.Record{"status": string(model.ExamStatusCompleted)},
		gateway.Filters{"id": id})
}

func (s *Service) mirrorAuthoredExam(ctx context.Context, exam *model.Exam) {
	cache.SetJSON(ctx, s.store, config.CacheKey.ExamKey(exam.ID.String()), exam)

	var authored []model.Exam
	cache.GetJSON(ctx, s.store, config.CacheKey.AuthoredExamsKey(), &authored)
	replaced := false
	for i := range authored {
		if authored[i].ID == exam.ID {
			authored[i] = *exam
			replaced = true
			break
		}
	}
	if !replaced {
		authored = append(authored, *exam)
	}
	cache.SetJSON(ctx, s.store, config.CacheKey.AuthoredExamsKey(), authored)
}

func (s *Service) removeAuthoredExam(ctx context.Context, id uuid.UUID) {
	var authored []model.Exam
	if !cache.GetJSON(ctx, s.store, config.CacheKey.AuthoredExamsKey(), &authored) {
		return
	}
	kept := authored[:0]
	for _, e := range authored {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	cache.SetJSON(ctx, s.store, config.CacheKey.AuthoredExamsKey(), kept)
}
