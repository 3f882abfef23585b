// Package result reads back persisted attempt outcomes. Stored rows come
// in two historical shapes: current rows carry a structured per-section
// breakdown, older rows carry only a flat summary blob. Reconciliation
// collapses both into the one canonical model.ExamResult shape so no
// caller downstream of this package ever sees the ambiguity.
package result

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/gateway"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// StructuredResult is a row that carries the per-section marks breakdown.
type StructuredResult struct {
	Summary  Summary
	Sections []model.SectionMarks
}

// FlatResult is a historical row whose only detail is an embedded summary
// blob. It has no per-section data.
type FlatResult struct {
	Summary Summary
}

// Stored is the tagged decoding of one persisted row. Exactly one of the
// two fields is set.
type Stored struct {
	Structured *StructuredResult
	Flat       *FlatResult
}

// Summary holds the fields common to both shapes.
type Summary struct {
	SessionID        uuid.UUID
	ExamID           uuid.UUID
	UserID           uuid.UUID
	AttemptNumber    int
	TotalMarks       float64
	ObtainedMarks    float64
	TotalQuestions   int
	CorrectAnswers   int
	WrongAnswers     int
	Percentage       float64
	TimeTakenSeconds int
	IsPassed         bool
	SubmittedAt      time.Time
}

// flatBlob mirrors the historical answers column.
type flatBlob struct {
	TotalQuestions   int     `json:"totalQuestions"`
	CorrectAnswers   int     `json:"correctAnswers"`
	WrongAnswers     int     `json:"wrongAnswers"`
	Percentage       float64 `json:"percentage"`
	TimeTakenSeconds int     `json:"timeTaken"`
	IsPassed         bool    `json:"isPassed"`
}

// Decode classifies one stored row. A row with a non-empty
// section_wise_marks column is structured; anything else is treated as
// flat, falling back to the embedded answers blob for summary numbers the
// columns do not carry.
func Decode(rec gateway.Record) Stored {
	sum := Summary{
		SessionID:        rec.UUID("session_id"),
		ExamID:           rec.UUID("test_id"),
		UserID:           rec.UUID("user_id"),
		AttemptNumber:    rec.Int("attempt_number"),
		TotalMarks:       rec.Float("total_marks"),
		ObtainedMarks:    rec.Float("obtained_marks"),
		TotalQuestions:   rec.Int("total_questions"),
		CorrectAnswers:   rec.Int("correct_answers"),
		WrongAnswers:     rec.Int("wrong_answers"),
		Percentage:       rec.Float("percentage"),
		TimeTakenSeconds: rec.Int("time_taken_seconds"),
		IsPassed:         rec.Bool("is_passed"),
		SubmittedAt:      rec.Time("submitted_at"),
	}

	var sections []model.SectionMarks
	if decodeJSONField(rec["section_wise_marks"], &sections) && len(sections) > 0 {
		return Stored{Structured: &StructuredResult{Summary: sum, Sections: sections}}
	}

	var blob flatBlob
	if decodeJSONField(rec["answers"], &blob) {
		if sum.TotalQuestions == 0 {
			sum.TotalQuestions = blob.TotalQuestions
		}
		if sum.CorrectAnswers == 0 {
			sum.CorrectAnswers = blob.CorrectAnswers
		}
		if sum.WrongAnswers == 0 {
			sum.WrongAnswers = blob.WrongAnswers
		}
		if sum.Percentage == 0 {
			sum.Percentage = blob.Percentage
		}
		if sum.TimeTakenSeconds == 0 {
			sum.TimeTakenSeconds = blob.TimeTakenSeconds
		}
		sum.IsPassed = sum.IsPassed || blob.IsPassed
	}
	return Stored{Flat: &FlatResult{Summary: sum}}
}

// Canonical reconciles the tagged row into the one internal result shape.
// Structured rows keep their breakdown; flat rows get a single synthesized
// section so review pages always have something to render.
func (s Stored) Canonical() model.ExamResult {
	var sum Summary
	var sections []model.SectionMarks

	switch {
	case s.Structured != nil:
		sum = s.Structured.Summary
		sections = s.Structured.Sections
	case s.Flat != nil:
		sum = s.Flat.Summary
		sections = []model.SectionMarks{{
			Name:           "Overall",
			TotalQuestions: sum.TotalQuestions,
			Correct:        sum.CorrectAnswers,
			Wrong:          sum.WrongAnswers,
			Marks:          sum.ObtainedMarks,
		}}
	}

	return model.ExamResult{
		SessionID:        sum.SessionID,
		ExamID:           sum.ExamID,
		UserID:           sum.UserID,
		AttemptNumber:    sum.AttemptNumber,
		TotalMarks:       sum.TotalMarks,
		ObtainedMarks:    sum.ObtainedMarks,
		TotalQuestions:   sum.TotalQuestions,
		CorrectAnswers:   sum.CorrectAnswers,
		WrongAnswers:     sum.WrongAnswers,
		Percentage:       sum.Percentage,
		Sections:         sections,
		TimeTakenSeconds: sum.TimeTakenSeconds,
		IsPassed:         sum.IsPassed,
		SubmittedAt:      sum.SubmittedAt,
	}
}

// Breakdown is the derived review view of a result: each bucket as a
// fraction of the total question count.
type Breakdown struct {
	CorrectPercent float64 `json:"correct_percent"`
	WrongPercent   float64 `json:"wrong_percent"`
	SkippedPercent float64 `json:"skipped_percent"`
}

// Ratios derives the review fractions. A zero question count yields all
// zeros rather than dividing.
func Ratios(r model.ExamResult) Breakdown {
	if r.TotalQuestions == 0 {
		return Breakdown{}
	}
	total := float64(r.TotalQuestions)
	return Breakdown{
		CorrectPercent: float64(r.CorrectAnswers) / total * 100,
		WrongPercent:   float64(r.WrongAnswers) / total * 100,
		SkippedPercent: float64(r.SkippedQuestions()) / total * 100,
	}
}

// decodeJSONField unmarshals a column value that may arrive as a driver
// native value, a JSON string from the cache, or raw bytes.
func decodeJSONField(v any, dst any) bool {
	if v == nil {
		return false
	}
	var raw []byte
	switch t := v.(type) {
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	case string:
		raw = []byte(t)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return false
		}
		raw = encoded
	}
	return json.Unmarshal(raw, dst) == nil
}
