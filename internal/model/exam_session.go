package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether the status admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusAbandoned
}

// EventKind enumerates activity-log event kinds. tab_switch and idle are
// integrity signals only and never affect scoring.
type EventKind string

const (
	EventStart      EventKind = "start"
	EventAnswer     EventKind = "answer"
	EventNavigation EventKind = "navigation"
	EventReview     EventKind = "review"
	EventSubmit     EventKind = "submit"
	EventTabSwitch  EventKind = "tab_switch"
	EventIdle       EventKind = "idle"
)

// Answer is one recorded selection for a question. Re-answering a question
// overwrites the previous value (last choice wins).
type Answer struct {
	SelectedOption   int `json:"selected_option"`
	TimeSpentSeconds int `json:"time_spent_seconds"`
}

// ActivityEvent is one timestamped entry in a session's activity log.
type ActivityEvent struct {
	Kind       EventKind  `json:"kind"`
	QuestionID *uuid.UUID `json:"question_id,omitempty"`
	At         time.Time  `json:"at"`
}

// ExamSession is one timed attempt at an exam by one user. It is mutable
// only while Status is ongoing; terminal sessions are immutable.
type ExamSession struct {
	ID            uuid.UUID            `json:"id"`
	ExamID        uuid.UUID            `json:"exam_id"`
	UserID        uuid.UUID            `json:"user_id"`
	AttemptNumber int                  `json:"attempt_number"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    *time.Time           `json:"finished_at,omitempty"`
	Status        SessionStatus        `json:"status"`
	Answers       map[uuid.UUID]Answer `json:"answers"`
	Activity      []ActivityEvent      `json:"activity"`
}
