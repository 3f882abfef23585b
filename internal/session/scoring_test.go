package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

func scoringExam(negativeMarking, passing float64) (*model.Exam, []uuid.UUID) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	questions := make([]model.Question, len(ids))
	for i, id := range ids {
		questions[i] = model.Question{
			ID:            id,
			Text:          "q",
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: 0,
			Weightage:     1,
		}
	}
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Physics Mock",
		DurationMinutes: 60,
		Sections: []model.Section{{
			ID:              uuid.New(),
			Name:            "Physics",
			NegativeMarking: negativeMarking,
			Questions:       questions,
		}},
		MarkingScheme: model.MarkingScheme{
			DefaultWeightage:  1,
			NegativeMarking:   negativeMarking,
			PassingPercentage: passing,
		},
	}, ids
}

func sessionWith(exam *model.Exam, answers map[uuid.UUID]model.Answer) *model.ExamSession {
	return &model.ExamSession{
		ID:            uuid.New(),
		ExamID:        exam.ID,
		UserID:        uuid.New(),
		AttemptNumber: 1,
		StartedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:        model.SessionStatusOngoing,
		Answers:       answers,
	}
}

func TestScoreNegativeMarkingBreakdown(t *testing.T) {
	exam, ids := scoringExam(0.25, 35)
	sess := sessionWith(exam, map[uuid.UUID]model.Answer{
		ids[0]: {SelectedOption: 0}, // correct
		ids[1]: {SelectedOption: 0}, // correct
		ids[2]: {SelectedOption: 2}, // wrong
		// ids[3] skipped
	})

	r := Score(exam, sess, sess.StartedAt.Add(30*time.Minute))

	if r.ObtainedMarks != 1.75 {
		t.Fatalf("obtained = %v, want 1.75", r.ObtainedMarks)
	}
	if r.Percentage != 43.75 {
		t.Fatalf("percentage = %v, want 43.75", r.Percentage)
	}
	if r.CorrectAnswers != 2 || r.WrongAnswers != 1 || r.TotalQuestions != 4 {
		t.Fatalf("correct/wrong/total = %d/%d/%d, want 2/1/4",
			r.CorrectAnswers, r.WrongAnswers, r.TotalQuestions)
	}
	if got := r.SkippedQuestions(); got != 1 {
		t.Fatalf("skipped = %d, want 1", got)
	}
	if !r.IsPassed {
		t.Fatal("expected pass at 43.75% against a 35% threshold")
	}
	if r.TimeTakenSeconds != 1800 {
		t.Fatalf("timeTaken = %d, want 1800", r.TimeTakenSeconds)
	}
	if len(r.Sections) != 1 || r.Sections[0].Marks != 1.75 || r.Sections[0].Wrong != 1 {
		t.Fatalf("section breakdown = %+v", r.Sections)
	}
}

func TestScorePassingThreshold(t *testing.T) {
	exam, ids := scoringExam(0.25, 50)
	sess := sessionWith(exam, map[uuid.UUID]model.Answer{
		ids[0]: {SelectedOption: 0},
		ids[1]: {SelectedOption: 0},
		ids[2]: {SelectedOption: 2},
	})

	r := Score(exam, sess, sess.StartedAt.Add(time.Minute))
	if r.IsPassed {
		t.Fatalf("43.75%% must not pass a 50%% threshold")
	}
}

func TestScoreSectionPenaltyOverridesDefault(t *testing.T) {
	qEasy := model.Question{ID: uuid.New(), Options: []string{"a", "b"}, CorrectAnswer: 0, Weightage: 1}
	qHard := model.Question{ID: uuid.New(), Options: []string{"a", "b"}, CorrectAnswer: 0, Weightage: 1}
	exam := &model.Exam{
		ID:              uuid.New(),
		DurationMinutes: 30,
		Sections: []model.Section{
			{ID: uuid.New(), Name: "Chemistry", NegativeMarking: 0.25, Questions: []model.Question{qEasy}},
			{ID: uuid.New(), Name: "Mathematics", NegativeMarking: 1, Questions: []model.Question{qHard}},
		},
		MarkingScheme: model.MarkingScheme{DefaultWeightage: 1, NegativeMarking: 0.5, PassingPercentage: 35},
	}
	sess := sessionWith(exam, map[uuid.UUID]model.Answer{
		qEasy.ID: {SelectedOption: 1},
		qHard.ID: {SelectedOption: 1},
	})

	r := Score(exam, sess, sess.StartedAt.Add(time.Minute))
	if r.Sections[0].Marks != -0.25 {
		t.Fatalf("chemistry marks = %v, want -0.25", r.Sections[0].Marks)
	}
	if r.Sections[1].Marks != -1 {
		t.Fatalf("mathematics marks = %v, want -1", r.Sections[1].Marks)
	}
	if r.ObtainedMarks != -1.25 {
		t.Fatalf("obtained = %v, want -1.25 (no clamping)", r.ObtainedMarks)
	}
	if r.Percentage != -62.5 {
		t.Fatalf("percentage = %v, want -62.5", r.Percentage)
	}
}

func TestScoreZeroQuestions(t *testing.T) {
	exam := &model.Exam{
		ID:            uuid.New(),
		Sections:      []model.Section{{ID: uuid.New(), Name: "Empty"}},
		MarkingScheme: model.DefaultMarkingScheme(),
	}
	sess := sessionWith(exam, nil)

	r := Score(exam, sess, sess.StartedAt)
	if r.Percentage != 0 {
		t.Fatalf("percentage = %v, want 0 for an empty exam", r.Percentage)
	}
	if r.IsPassed {
		t.Fatal("empty exam must not pass")
	}
}

func TestScoreClampsNegativeDuration(t *testing.T) {
	exam, ids := scoringExam(0, 35)
	sess := sessionWith(exam, map[uuid.UUID]model.Answer{ids[0]: {SelectedOption: 0}})

	r := Score(exam, sess, sess.StartedAt.Add(-time.Minute))
	if r.TimeTakenSeconds != 0 {
		t.Fatalf("timeTaken = %d, want 0", r.TimeTakenSeconds)
	}
}

func TestScoreDeterministic(t *testing.T) {
	exam, ids := scoringExam(0.25, 35)
	sess := sessionWith(exam, map[uuid.UUID]model.Answer{
		ids[0]: {SelectedOption: 0},
		ids[1]: {SelectedOption: 3},
	})
	at := sess.StartedAt.Add(17 * time.Minute)

	first := Score(exam, sess, at)
	second := Score(exam, sess, at)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same input produced different results:\n%+v\n%+v", first, second)
	}
}
