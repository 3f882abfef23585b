package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/catalog"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/middleware"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/response"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/result"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/session"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/validator"
)

// PortalHandler serves the student exam flow: browse, attempt, review.
type PortalHandler struct {
	catalog  *catalog.Service
	registry *session.Registry
	results  *result.Service
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(catalog *catalog.Service, registry *session.Registry, results *result.Service) *PortalHandler {
	return &PortalHandler{catalog: catalog, registry: registry, results: results}
}

// ListExams godoc
// GET /api/v1/portal/exams?stream=&subject=&status=&difficulty=
// Lists exams matching the filters, without question bodies.
func (h *PortalHandler) ListExams(c *gin.Context) {
	filter := catalog.Filter{
		Stream:     c.Query("stream"),
		Subject:    c.Query("subject"),
		Status:     c.Query("status"),
		Difficulty: c.Query("difficulty"),
	}
	if filter.Stream == "" {
		if claims := middleware.GetClaims(c); claims != nil {
			filter.Stream = claims.Stream
		}
	}

	exams, err := h.catalog.ListExams(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	views := make([]gin.H, 0, len(exams))
	for i := range exams {
		views = append(views, examSummaryView(&exams[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"exams": views})
}

// GetExam godoc
// GET /api/v1/portal/exams/:exam_id
// Returns the exam aggregate with correct answers and explanations
// stripped. Students only see answer keys through the review endpoint.
func (h *PortalHandler) GetExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.catalog.GetExamByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": sanitizedExamView(exam)})
}

// StartAttempt godoc
// POST /api/v1/portal/exams/:exam_id/attempts
// Starts a new timed attempt and returns its initial state.
func (h *PortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	eng, err := h.registry.StartAttempt(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		case errors.Is(err, session.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		case errors.Is(err, session.ErrBrokenQuestion):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrBrokenQuestion)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": eng.State()})
}

// GetAttempt godoc
// GET /api/v1/portal/attempts/:session_id
// Returns the current snapshot of an attempt.
func (h *PortalHandler) GetAttempt(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": eng.State()})
}

// answerRequest is the payload for recording one answer.
type answerRequest struct {
	QuestionID       string `json:"question_id" binding:"required,uuid"`
	SelectedOption   *int   `json:"selected_option" binding:"required"`
	TimeSpentSeconds int    `json:"time_spent_seconds" binding:"gte=0"`
}

// RecordAnswer godoc
// POST /api/v1/portal/attempts/:session_id/answers
// Stores one option selection; re-answering overwrites.
func (h *PortalHandler) RecordAnswer(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}

	var req answerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := eng.RecordAnswer(questionID, *req.SelectedOption, req.TimeSpentSeconds); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// navigateRequest moves the position by a delta or jumps to a pair.
type navigateRequest struct {
	Delta    *int `json:"delta,omitempty"`
	Section  *int `json:"section,omitempty"`
	Question *int `json:"question,omitempty"`
}

// Navigate godoc
// POST /api/v1/portal/attempts/:session_id/navigate
// Moves the current position relatively (delta) or absolutely
// (section+question).
func (h *PortalHandler) Navigate(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}

	var req navigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var (
		pos session.Position
		err error
	)
	switch {
	case req.Delta != nil:
		pos, err = eng.Navigate(*req.Delta)
	case req.Section != nil && req.Question != nil:
		pos, err = eng.Goto(session.Position{Section: *req.Section, Question: *req.Question})
	default:
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"position": pos})
}

// eventRequest reports a review or integrity event.
type eventRequest struct {
	Kind       string  `json:"kind" binding:"required,oneof=review tab_switch idle"`
	QuestionID *string `json:"question_id,omitempty"`
}

// RecordEvent godoc
// POST /api/v1/portal/attempts/:session_id/events
// Appends a review/tab_switch/idle event to the activity log.
func (h *PortalHandler) RecordEvent(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}

	var req eventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var questionID *uuid.UUID
	if req.QuestionID != nil {
		id, err := uuid.Parse(*req.QuestionID)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		questionID = &id
	}

	if err := eng.RecordEvent(model.EventKind(req.Kind), questionID); err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/portal/attempts/:session_id/submit
// Finishes and scores the attempt. Submitting an already-completed
// attempt returns the existing result.
func (h *PortalHandler) Submit(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}

	res, err := eng.Submit(c.Request.Context(), session.SubmitManual)
	if err != nil {
		failAttemptError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"result":    res,
		"breakdown": result.Ratios(*res),
	})
}

// Abandon godoc
// DELETE /api/v1/portal/attempts/:session_id
// Leaves the attempt without scoring. No result is recorded.
func (h *PortalHandler) Abandon(c *gin.Context) {
	eng, ok := h.ownedEngine(c)
	if !ok {
		return
	}

	if err := h.registry.Abandon(eng.Session().ID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// GetExamResults godoc
// GET /api/v1/portal/exams/:exam_id/results
// Returns every stored attempt for this exam and user, oldest attempt
// first, with derived review fractions.
func (h *PortalHandler) GetExamResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.results.GetResultsByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	views := make([]gin.H, 0, len(results))
	for _, r := range results {
		views = append(views, gin.H{"result": r, "breakdown": result.Ratios(r)})
	}
	response.Success(c, http.StatusOK, gin.H{"results": views})
}

// GetExamReview godoc
// GET /api/v1/portal/exams/:exam_id/review
// Returns the full exam aggregate, answer keys included, for students
// who have at least one stored result for it.
func (h *PortalHandler) GetExamReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.results.GetResultsByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil || len(results) == 0 {
		response.Fail(c, http.StatusForbidden, response.ErrAttemptNotFound)
		return
	}

	exam, err := h.catalog.GetExamByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam, "results": results})
}

// GetMyResults godoc
// GET /api/v1/portal/results
// Returns result summaries across all exams for the authenticated user.
func (h *PortalHandler) GetMyResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	results, err := h.results.GetResultsByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}

// ListStreams godoc
// GET /api/v1/portal/streams
func (h *PortalHandler) ListStreams(c *gin.Context) {
	streams, err := h.catalog.ListStreams(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"streams": streams})
}

// ListSubjects godoc
// GET /api/v1/portal/subjects?stream=
func (h *PortalHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.catalog.ListSubjects(c.Request.Context(), c.Query("stream"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// ownedEngine resolves the attempt from the path and enforces ownership.
func (h *PortalHandler) ownedEngine(c *gin.Context) (*session.Engine, bool) {
	claims := middleware.GetClaims(c)
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	eng, err := h.registry.Get(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return nil, false
	}
	if claims == nil || eng.Session().UserID != claims.UserID {
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		return nil, false
	}
	return eng, true
}

// failAttemptError maps engine errors onto API error codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotOngoing):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotOngoing)
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrInvalidOption):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidOption)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// examSummaryView is the list-page shape: metadata, no sections.
func examSummaryView(exam *model.Exam) gin.H {
	return gin.H{
		"id":               exam.ID,
		"title":            exam.Title,
		"stream":           exam.Stream,
		"category":         exam.Category,
		"subject":          exam.Subject,
		"scheduled_at":     exam.ScheduledAt,
		"duration_minutes": exam.DurationMinutes,
		"difficulty":       exam.Difficulty,
		"status":           exam.Status,
		"total_questions":  exam.CountQuestions(),
	}
}

// sanitizedExamView strips answer keys and explanations from the
// aggregate before it reaches a student who has not finished the exam.
func sanitizedExamView(exam *model.Exam) gin.H {
	sections := make([]gin.H, 0, len(exam.Sections))
	for i := range exam.Sections {
		sec := &exam.Sections[i]
		questions := make([]gin.H, 0, len(sec.Questions))
		for j := range sec.Questions {
			q := &sec.Questions[j]
			questions = append(questions, gin.H{
				"id":        q.ID,
				"text":      q.Text,
				"options":   q.Options,
				"subject":   q.Subject,
				"topic":     q.Topic,
				"weightage": q.Weightage,
			})
		}
		sections = append(sections, gin.H{
			"id":               sec.ID,
			"name":             sec.Name,
			"instructions":     sec.Instructions,
			"subject":          sec.Subject,
			"negative_marking": sec.NegativeMarking,
			"questions":        questions,
		})
	}

	view := examSummaryView(exam)
	view["sections"] = sections
	view["marking_scheme"] = exam.MarkingScheme
	return view
}
