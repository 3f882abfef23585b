package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionMarks is the per-section breakdown of one result.
type SectionMarks struct {
	SectionID      uuid.UUID `json:"section_id"`
	Name           string    `json:"name"`
	TotalQuestions int       `json:"total_questions"`
	Correct        int       `json:"correct"`
	Wrong          int       `json:"wrong"`
	Marks          float64   `json:"marks"`
}

// Analysis carries the optional AI-generated study advice attached to a
// result by an external collaborator. Never computed here.
type Analysis struct {
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ExamResult is the persisted, immutable outcome of one completed session.
// Exactly one is created per completed attempt; multiple may exist per
// exam+user pair (one per attempt).
type ExamResult struct {
	SessionID        uuid.UUID      `json:"session_id"`
	ExamID           uuid.UUID      `json:"exam_id"`
	UserID           uuid.UUID      `json:"user_id"`
	AttemptNumber    int            `json:"attempt_number"`
	TotalMarks       float64        `json:"total_marks"`
	ObtainedMarks    float64        `json:"obtained_marks"`
	TotalQuestions   int            `json:"total_questions"`
	CorrectAnswers   int            `json:"correct_answers"`
	WrongAnswers     int            `json:"wrong_answers"`
	Percentage       float64        `json:"percentage"`
	Sections         []SectionMarks `json:"sections,omitempty"`
	TimeTakenSeconds int            `json:"time_taken_seconds"`
	IsPassed         bool           `json:"is_passed"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	Analysis         *Analysis      `json:"analysis,omitempty"`
}

// SkippedQuestions derives the skipped count from the totals.
func (r *ExamResult) SkippedQuestions() int {
	skipped := r.TotalQuestions - r.CorrectAnswers - r.WrongAnswers
	if skipped < 0 {
		return 0
	}
	return skipped
}
