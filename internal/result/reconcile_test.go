package result

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

func storedRow(sessionID, examID, userID uuid.UUID) gateway.Record {
	return gateway.Record{
		"session_id":         sessionID.String(),
		"test_id":            examID.String(),
		"user_id":            userID.String(),
		"attempt_number":     2,
		"total_marks":        float64(4),
		"obtained_marks":     1.75,
		"total_questions":    4,
		"correct_answers":    2,
		"wrong_answers":      1,
		"percentage":         43.75,
		"time_taken_seconds": 1800,
		"is_passed":          true,
		"submitted_at":       "2026-03-01T10:30:00Z",
	}
}

func TestDecodePrefersStructuredShape(t *testing.T) {
	sessionID, examID, userID := uuid.New(), uuid.New(), uuid.New()
	rec := storedRow(sessionID, examID, userID)
	// Cache entries carry the breakdown as a JSON string, driver rows as a
	// decoded slice. Both must classify as structured.
	rec["section_wise_marks"] = `[{"section_id":"` + uuid.New().String() + `","name":"Physics","total_questions":4,"correct":2,"wrong":1,"marks":1.75}]`
	rec["answers"] = `{"totalQuestions":99,"correctAnswers":99}`

	stored := Decode(rec)
	if stored.Structured == nil || stored.Flat != nil {
		t.Fatalf("stored = %+v, want structured", stored)
	}

	r := stored.Canonical()
	if len(r.Sections) != 1 || r.Sections[0].Name != "Physics" {
		t.Fatalf("sections = %+v", r.Sections)
	}
	if r.CorrectAnswers != 2 || r.TotalQuestions != 4 {
		t.Fatalf("summary taken from blob instead of columns: %+v", r)
	}
	if r.SessionID != sessionID || r.ExamID != examID || r.UserID != userID {
		t.Fatal("identifier columns lost in reconciliation")
	}
	if !r.SubmittedAt.Equal(time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("submittedAt = %v", r.SubmittedAt)
	}
}

func TestDecodeSynthesizesSectionFromFlatRow(t *testing.T) {
	rec := storedRow(uuid.New(), uuid.New(), uuid.New())

	stored := Decode(rec)
	if stored.Flat == nil || stored.Structured != nil {
		t.Fatalf("stored = %+v, want flat", stored)
	}

	r := stored.Canonical()
	if len(r.Sections) != 1 {
		t.Fatalf("sections = %+v, want one synthesized section", r.Sections)
	}
	sec := r.Sections[0]
	if sec.TotalQuestions != 4 || sec.Correct != 2 || sec.Wrong != 1 || sec.Marks != 1.75 {
		t.Fatalf("synthesized section = %+v", sec)
	}
}

func TestDecodeFillsSummaryFromAnswersBlob(t *testing.T) {
	rec := gateway.Record{
		"session_id": uuid.New().String(),
		"test_id":    uuid.New().String(),
		"user_id":    uuid.New().String(),
		"answers":    `{"totalQuestions":10,"correctAnswers":6,"wrongAnswers":3,"percentage":52.5,"timeTaken":900,"isPassed":true}`,
	}

	r := Decode(rec).Canonical()
	if r.TotalQuestions != 10 || r.CorrectAnswers != 6 || r.WrongAnswers != 3 {
		t.Fatalf("summary = %+v", r)
	}
	if r.Percentage != 52.5 || r.TimeTakenSeconds != 900 || !r.IsPassed {
		t.Fatalf("summary = %+v", r)
	}
	if got := r.SkippedQuestions(); got != 1 {
		t.Fatalf("skipped = %d, want 1", got)
	}
}

func TestDecodeDriverNativeBreakdown(t *testing.T) {
	// jsonb columns arrive from the driver already decoded into generic maps.
	rec := storedRow(uuid.New(), uuid.New(), uuid.New())
	rec["section_wise_marks"] = []any{
		map[string]any{"name": "Chemistry", "total_questions": float64(4), "correct": float64(2), "wrong": float64(1), "marks": 1.75},
	}

	stored := Decode(rec)
	if stored.Structured == nil {
		t.Fatalf("stored = %+v, want structured", stored)
	}
	if got := stored.Structured.Sections[0].Name; got != "Chemistry" {
		t.Fatalf("name = %q", got)
	}
}

func TestRatiosGuardsZeroQuestions(t *testing.T) {
	if got := Ratios(model.ExamResult{}); got != (Breakdown{}) {
		t.Fatalf("ratios = %+v, want zeros", got)
	}

	got := Ratios(model.ExamResult{TotalQuestions: 4, CorrectAnswers: 2, WrongAnswers: 1})
	want := Breakdown{CorrectPercent: 50, WrongPercent: 25, SkippedPercent: 25}
	if got != want {
		t.Fatalf("ratios = %+v, want %+v", got, want)
	}
}
