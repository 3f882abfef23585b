package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/catalog"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/response"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/validator"
)

// ExamHandler handles the admin authoring flow.
type ExamHandler struct {
	catalog *catalog.Service
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(catalog *catalog.Service) *ExamHandler {
	return &ExamHandler{catalog: catalog}
}

type createQuestionRequest struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectAnswer int      `json:"correct_answer" binding:"gte=0"`
	Explanation   string   `json:"explanation"`
	Subject       string   `json:"subject"`
	Topic         string   `json:"topic"`
	Difficulty    string   `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Weightage     float64  `json:"weightage" binding:"gte=0"`
}

type createSectionRequest struct {
	Name            string                  `json:"name" binding:"required"`
	Instructions    string                  `json:"instructions"`
	Subject         string                  `json:"subject"`
	NegativeMarking float64                 `json:"negative_marking" binding:"gte=0"`
	Questions       []createQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

type createExamRequest struct {
	Title             string                 `json:"title" binding:"required,min=3,max=200"`
	Stream            string                 `json:"stream" binding:"required,oneof=engineering pharmacy"`
	Category          string                 `json:"category" binding:"required,oneof=daily weekly monthly"`
	Subject           string                 `json:"subject"`
	ScheduledAt       time.Time              `json:"scheduled_at" binding:"required"`
	DurationMinutes   int                    `json:"duration_minutes" binding:"required,gt=0"`
	Difficulty        string                 `json:"difficulty" binding:"required,oneof=easy medium hard"`
	DefaultWeightage  float64                `json:"default_weightage" binding:"gte=0"`
	NegativeMarking   float64                `json:"negative_marking" binding:"gte=0"`
	PassingPercentage float64                `json:"passing_percentage" binding:"gte=0,lte=100"`
	Sections          []createSectionRequest `json:"sections" binding:"required,min=1,dive"`
}

// CreateExam godoc
// POST /api/v1/admin/exams
// Creates an exam with its sections, questions and marking scheme.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req createExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := examFromRequest(&req)
	if err := h.catalog.CreateExam(c.Request.Context(), exam); err != nil {
		if errors.Is(err, catalog.ErrInvalidContent) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrBrokenQuestion)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// ListExams godoc
// GET /api/v1/admin/exams?stream=&status=
// Lists exams across all streams with full content.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.catalog.ListExams(c.Request.Context(), catalog.Filter{
		Stream: c.Query("stream"),
		Status: c.Query("status"),
	})
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// GetExam godoc
// GET /api/v1/admin/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
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
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/admin/exams/:exam_id
// Removes the exam and its sections, questions and marking scheme.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.catalog.DeleteExam(c.Request.Context(), examID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

func examFromRequest(req *createExamRequest) *model.Exam {
	scheme := model.DefaultMarkingScheme()
	if req.DefaultWeightage > 0 {
		scheme.DefaultWeightage = req.DefaultWeightage
	}
	scheme.NegativeMarking = req.NegativeMarking
	if req.PassingPercentage > 0 {
		scheme.PassingPercentage = req.PassingPercentage
	}

	sections := make([]model.Section, 0, len(req.Sections))
	for i, s := range req.Sections {
		questions := make([]model.Question, 0, len(s.Questions))
		for j, q := range s.Questions {
			weightage := q.Weightage
			if weightage == 0 {
				weightage = scheme.DefaultWeightage
			}
			questions = append(questions, model.Question{
				Text:          q.Text,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
				Subject:       q.Subject,
				Topic:         q.Topic,
				Difficulty:    model.Difficulty(q.Difficulty),
				Weightage:     weightage,
				Order:         j + 1,
			})
		}
		sections = append(sections, model.Section{
			Name:            s.Name,
			Instructions:    s.Instructions,
			Subject:         s.Subject,
			NegativeMarking: s.NegativeMarking,
			Order:           i + 1,
			Questions:       questions,
		})
	}

	return &model.Exam{
		Title:           req.Title,
		Stream:          model.Stream(req.Stream),
		Category:        model.ExamCategory(req.Category),
		Subject:         req.Subject,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Difficulty:      model.Difficulty(req.Difficulty),
		Status:          model.ExamStatusScheduled,
		Sections:        sections,
		MarkingScheme:   scheme,
	}
}
