package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/cache"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway/gatewaytest"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

func seedExam(fake *gatewaytest.Fake, examID uuid.UUID) (sectionID uuid.UUID, questionIDs []uuid.UUID) {
	sectionID = uuid.New()
	q1, q2 := uuid.New(), uuid.New()

	fake.Seed("tests", gateway.Record{
		"id":               examID.String(),
		"title":            "Physics Daily Mock 12",
		"stream":           "engineering",
		"category":         "daily",
		"subject":          "physics",
		"scheduled_at":     time.Now().Format(time.RFC3339),
		"duration_minutes": float64(30),
		"difficulty":       "medium",
		"status":           "scheduled",
	})
	fake.Seed("marking_schemes", gateway.Record{
		"id":                 uuid.New().String(),
		"test_id":            examID.String(),
		"default_weightage":  float64(1),
		"negative_marking":   0.25,
		"passing_percentage": float64(50),
	})
	fake.Seed("test_sections", gateway.Record{
		"id":            uuid.New().String(),
		"test_id":       examID.String(),
		"section_id":    sectionID.String(),
		"section_order": float64(0),
	})
	fake.Seed("sections", gateway.Record{
		"id":               sectionID.String(),
		"name":             "Mechanics",
		"negative_marking": 0.25,
	})
	fake.Seed("questions",
		gateway.Record{
			"id":             q2.String(),
			"section_id":     sectionID.String(),
			"text":           "Second question",
			"options":        `["w","x","y","z"]`,
			"correct_answer": float64(2),
			"weightage":      float64(1),
			"question_order": float64(1),
		},
		gateway.Record{
			"id":             q1.String(),
			"section_id":     sectionID.String(),
			"text":           "First question",
			"options":        []any{"a", "b", "c", "d"},
			"correct_answer": float64(0),
			"weightage":      float64(1),
			"question_order": float64(0),
		},
	)
	return sectionID, []uuid.UUID{q1, q2}
}

func TestGetExamByID_DenormalizesAggregate(t *testing.T) {
	fake := gatewaytest.New()
	examID := uuid.New()
	_, questionIDs := seedExam(fake, examID)

	svc := NewService(fake, cache.NewMemoryStore(), zerolog.Nop())

	exam, err := svc.GetExamByID(context.Background(), examID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if exam.Title != "Physics Daily Mock 12" || exam.DurationMinutes != 30 {
		t.Fatalf("metadata wrong: %+v", exam)
	}
	if exam.MarkingScheme.NegativeMarking != 0.25 || exam.MarkingScheme.PassingPercentage != 50 {
		t.Fatalf("marking scheme wrong: %+v", exam.MarkingScheme)
	}
	if len(exam.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(exam.Sections))
	}
	sec := exam.Sections[0]
	if len(sec.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(sec.Questions))
	}
	// Ordering comes from the persisted sort key, not storage order.
	if sec.Questions[0].ID != questionIDs[0] || sec.Questions[1].ID != questionIDs[1] {
		t.Fatal("questions not ordered by question_order")
	}
	if exam.TotalQuestions != 2 {
		t.Fatalf("total questions = %d", exam.TotalQuestions)
	}
}

func TestGetExamByID_MissingSchemeUsesDefaults(t *testing.T) {
	fake := gatewaytest.New()
	examID := uuid.New()
	seedExam(fake, examID)
	fake.Seed("marking_schemes") // none

	svc := NewService(fake, cache.NewMemoryStore(), zerolog.Nop())
	exam, err := svc.GetExamByID(context.Background(), examID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := model.DefaultMarkingScheme()
	if exam.MarkingScheme != want {
		t.Fatalf("got %+v, want defaults %+v", exam.MarkingScheme, want)
	}
}

func TestGetExamByID_ServesCachedAggregateWhenRemoteDown(t *testing.T) {
	fake := gatewaytest.New()
	examID := uuid.New()
	seedExam(fake, examID)
	store := cache.NewMemoryStore()
	svc := NewService(fake, store, zerolog.Nop())

	// Prime the per-exam cache with a successful read.
	if _, err := svc.GetExamByID(context.Background(), examID); err != nil {
		t.Fatalf("priming read failed: %v", err)
	}

	// Remote goes away; the cached aggregate must still be served.
	fake.FailQuery = true
	exam, err := svc.GetExamByID(context.Background(), examID)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if exam.ID != examID || len(exam.Sections) != 1 {
		t.Fatalf("cached aggregate corrupted: %+v", exam)
	}
}

func TestGetExamByID_FallsBackToAuthoredList(t *testing.T) {
	fake := gatewaytest.New()
	fake.FailQuery = true
	store := cache.NewMemoryStore()
	svc := NewService(fake, store, zerolog.Nop())

	authored := model.Exam{ID: uuid.New(), Title: "Offline authored"}
	cache.SetJSON(context.Background(), store, "exams:authored", []model.Exam{authored})

	exam, err := svc.GetExamByID(context.Background(), authored.ID)
	if err != nil {
		t.Fatalf("expected authored-list fallback, got %v", err)
	}
	if exam.Title != "Offline authored" {
		t.Fatalf("wrong exam: %+v", exam)
	}
}

func TestGetExamByID_NotFound(t *testing.T) {
	svc := NewService(gatewaytest.New(), cache.NewMemoryStore(), zerolog.Nop())
	_, err := svc.GetExamByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestListExams_DropsUnresolvableExam(t *testing.T) {
	fake := gatewaytest.New()
	goodID := uuid.New()
	seedExam(fake, goodID)

	// A second test whose section is missing entirely.
	brokenID := uuid.New()
	orphanSection := uuid.New()
	recs := fake.Collections["tests"]
	fake.Seed("tests", append(recs, gateway.Record{
		"id":     brokenID.String(),
		"title":  "Broken",
		"stream": "engineering",
		"status": "scheduled",
	})...)
	joins := fake.Collections["test_sections"]
	fake.Seed("test_sections", append(joins, gateway.Record{
		"id":            uuid.New().String(),
		"test_id":       brokenID.String(),
		"section_id":    orphanSection.String(),
		"section_order": float64(0),
	})...)

	svc := NewService(fake, cache.NewMemoryStore(), zerolog.Nop())
	exams, err := svc.ListExams(context.Background(), Filter{Stream: "engineering"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exams) != 1 || exams[0].ID != goodID {
		t.Fatalf("broken exam should be dropped, got %d exams", len(exams))
	}
}

func TestCreateExam_RoundTripsThroughGateway(t *testing.T) {
	fake := gatewaytest.New()
	store := cache.NewMemoryStore()
	svc := NewService(fake, store, zerolog.Nop())

	exam := &model.Exam{
		Title:           "Authored Mock",
		Stream:          model.StreamPharmacy,
		Category:        model.CategoryWeekly,
		Subject:         "chemistry",
		DurationMinutes: 45,
		Difficulty:      model.DifficultyEasy,
		MarkingScheme:   model.MarkingScheme{DefaultWeightage: 1, NegativeMarking: 0.25, PassingPercentage: 40},
		Sections: []model.Section{{
			Name:            "Organic",
			NegativeMarking: 0.25,
			Questions: []model.Question{{
				Text:          "Pick one",
				Options:       []string{"p", "q", "r", "s"},
				CorrectAnswer: 1,
				Weightage:     1,
			}},
		}},
	}

	if err := svc.CreateExam(context.Background(), exam); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The authoring flow must leave a readable aggregate behind even with
	// the remote store gone: the authored-exams mirror.
	fake.FailQuery = true
	got, err := svc.GetExamByID(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("authored fallback read failed: %v", err)
	}
	if got.Title != "Authored Mock" || got.TotalQuestions != 1 {
		t.Fatalf("mirrored aggregate wrong: %+v", got)
	}
}

func TestCreateExam_RejectsOutOfRangeCorrectAnswer(t *testing.T) {
	svc := NewService(gatewaytest.New(), cache.NewMemoryStore(), zerolog.Nop())
	exam := &model.Exam{
		Title: "Bad",
		Sections: []model.Section{{
			Name: "S",
			Questions: []model.Question{{
				Text:          "q",
				Options:       []string{"a", "b"},
				CorrectAnswer: 2,
			}},
		}},
	}
	if err := svc.CreateExam(context.Background(), exam); err == nil {
		t.Fatal("expected validation error")
	}
}
