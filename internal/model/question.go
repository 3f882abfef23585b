package model

import (
	"github.com/google/uuid"
)

// Question is a single multiple-choice question. Options is an ordered list
// of two or more choices; CorrectAnswer is a zero-based index into it.
type Question struct {
	ID            uuid.UUID  `json:"id"`
	SectionID     uuid.UUID  `json:"section_id"`
	Text          string     `json:"text"`
	Options       []string   `json:"options"`
	CorrectAnswer int        `json:"correct_answer"`
	Explanation   string     `json:"explanation,omitempty"`
	Subject       string     `json:"subject"`
	Topic         string     `json:"topic,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	Weightage     float64    `json:"weightage"`
	Order         int        `json:"order"`
}

// Valid reports whether the correct-answer index addresses an option.
func (q *Question) Valid() bool {
	return len(q.Options) >= 2 && q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options)
}
