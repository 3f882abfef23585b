package model

import (
	"time"

	"github.com/google/uuid"
)

// Stream enumerates the entrance-exam domains served by the platform.
type Stream string

const (
	StreamEngineering Stream = "engineering"
	StreamPharmacy    Stream = "pharmacy"
)

// ExamCategory groups exams by cadence.
type ExamCategory string

const (
	CategoryDaily   ExamCategory = "daily"
	CategoryWeekly  ExamCategory = "weekly"
	CategoryMonthly ExamCategory = "monthly"
)

// Difficulty enumerates exam and question difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ExamStatus enumerates the lifecycle states of an exam.
// An exam flips from scheduled to completed as a side effect of a
// session completing; it is never flipped back.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "scheduled"
	ExamStatusCompleted ExamStatus = "completed"
)

// MarkingScheme carries the exam-level defaults used for scoring.
type MarkingScheme struct {
	DefaultWeightage  float64 `json:"default_weightage"`
	NegativeMarking   float64 `json:"negative_marking"`
	PassingPercentage float64 `json:"passing_percentage"`
}

// DefaultMarkingScheme is applied whenever a test has no marking scheme record.
func DefaultMarkingScheme() MarkingScheme {
	return MarkingScheme{DefaultWeightage: 1, NegativeMarking: 0, PassingPercentage: 35}
}

// NotificationPrefs carries the reminder settings attached to an exam.
type NotificationPrefs struct {
	ReminderMinutes int  `json:"reminder_minutes"`
	Enabled         bool `json:"enabled"`
}

// Exam is the fully resolved aggregate: metadata, ordered sections with
// their ordered questions, and the marking scheme. It is what the session
// engine consumes to run an attempt.
type Exam struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Stream          Stream            `json:"stream"`
	Category        ExamCategory      `json:"category"`
	Subject         string            `json:"subject"`
	ScheduledAt     time.Time         `json:"scheduled_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Difficulty      Difficulty        `json:"difficulty"`
	Status          ExamStatus        `json:"status"`
	Sections        []Section         `json:"sections"`
	MarkingScheme   MarkingScheme     `json:"marking_scheme"`
	Notification    NotificationPrefs `json:"notification"`
	TotalQuestions  int               `json:"total_questions"`
	CreatedAt       time.Time         `json:"created_at"`
}

// Duration returns the exam length as a time.Duration.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// CountQuestions sums question counts across all sections.
func (e *Exam) CountQuestions() int {
	n := 0
	for i := range e.Sections {
		n += len(e.Sections[i].Questions)
	}
	return n
}

// Section is an ordered slice of an exam with its own negative-marking
// value overriding the exam default for the questions it contains.
type Section struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Instructions    string     `json:"instructions,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	NegativeMarking float64    `json:"negative_marking"`
	Order           int        `json:"order"`
	Questions       []Question `json:"questions"`
}
