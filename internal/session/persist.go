package session

import (
	"encoding/json"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// ResultRecord maps a result onto the test_results wire shape. The
// structured per-section breakdown is always written; the flat answers
// blob only ever appears in historical rows. The sync worker uses the
// same mapping when it replays queued offline results.
func ResultRecord(r *model.ExamResult) gateway.Record {
	return gateway.Record{
		"session_id":         r.SessionID,
		"test_id":            r.ExamID,
		"user_id":            r.UserID,
		"attempt_number":     r.AttemptNumber,
		"total_marks":        r.TotalMarks,
		"obtained_marks":     r.ObtainedMarks,
		"total_questions":    r.TotalQuestions,
		"correct_answers":    r.CorrectAnswers,
		"wrong_answers":      r.WrongAnswers,
		"percentage":         r.Percentage,
		"section_wise_marks": r.Sections,
		"time_taken_seconds": r.TimeTakenSeconds,
		"is_passed":          r.IsPassed,
		"submitted_at":       r.SubmittedAt,
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
