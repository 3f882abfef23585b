package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionGoto     Action = "goto"
	ActionEvent    Action = "event"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records one option selection for a question.
type AnswerRequest struct {
	Action           Action `json:"action"`
	QuestionID       string `json:"question_id"`
	SelectedOption   int    `json:"selected_option"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
}

// NavigateRequest moves the current position by a relative delta.
type NavigateRequest struct {
	Action Action `json:"action"`
	Delta  int    `json:"delta"`
}

// GotoRequest jumps straight to a section/question pair.
type GotoRequest struct {
	Action   Action `json:"action"`
	Section  int    `json:"section"`
	Question int    `json:"question"`
}

// EventRequest reports a review or integrity event.
type EventRequest struct {
	Action     Action  `json:"action"`
	Kind       string  `json:"kind"`
	QuestionID *string `json:"question_id,omitempty"`
}

// SubmitRequest finishes and scores the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventSaved     Event = "saved"
	EventPosition  Event = "position"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TickResponse carries the countdown. AutoSubmitted marks the terminal
// tick pushed when the timer expires.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
	AutoSubmitted    bool  `json:"auto_submitted,omitempty"`
}

// SavedResponse acknowledges a stored answer or activity event.
type SavedResponse struct {
	Event Event `json:"event"`
}

// PositionResponse reports the position after a navigation action.
type PositionResponse struct {
	Event    Event `json:"event"`
	Section  int   `json:"section"`
	Question int   `json:"question"`
}

// SubmittedResponse carries the final score after submission.
type SubmittedResponse struct {
	Event      Event   `json:"event"`
	Obtained   float64 `json:"obtained_marks"`
	Percentage float64 `json:"percentage"`
	IsPassed   bool    `json:"is_passed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
