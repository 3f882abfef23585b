package session

import (
	"time"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
)

// Score computes the result of one attempt. It is pure and deterministic:
// the submission instant is sampled by the caller and passed in, so two
// calls with identical inputs yield identical output.
//
// Wrong answers are penalized with the owning section's negative-marking
// value, not the exam default. The total is not clamped: heavy negative
// marking can produce a negative score and percentage. Skipped questions
// count toward neither correct nor wrong but do count toward the total.
func Score(exam *model.Exam, sess *model.ExamSession, submittedAt time.Time) model.ExamResult {
	var (
		totalScore     float64
		correct, wrong int
		sections       = make([]model.SectionMarks, 0, len(exam.Sections))
	)

	for i := range exam.Sections {
		sec := &exam.Sections[i]
		marks := model.SectionMarks{
			SectionID:      sec.ID,
			Name:           sec.Name,
			TotalQuestions: len(sec.Questions),
		}

		for j := range sec.Questions {
			q := &sec.Questions[j]
			answer, answered := sess.Answers[q.ID]
			if !answered {
				continue
			}
			if answer.SelectedOption == q.CorrectAnswer {
				marks.Correct++
				marks.Marks += q.Weightage
			} else {
				marks.Wrong++
				marks.Marks -= sec.NegativeMarking
			}
		}

		correct += marks.Correct
		wrong += marks.Wrong
		totalScore += marks.Marks
		sections = append(sections, marks)
	}

	totalQuestions := exam.CountQuestions()
	totalMarks := float64(totalQuestions) * exam.MarkingScheme.DefaultWeightage

	percentage := 0.0
	if totalQuestions > 0 && totalMarks != 0 {
		percentage = totalScore / totalMarks * 100
	}

	timeTaken := int(submittedAt.Sub(sess.StartedAt).Seconds())
	if timeTaken < 0 {
		timeTaken = 0
	}

	return model.ExamResult{
		SessionID:        sess.ID,
		ExamID:           exam.ID,
		UserID:           sess.UserID,
		AttemptNumber:    sess.AttemptNumber,
		TotalMarks:       totalMarks,
		ObtainedMarks:    totalScore,
		TotalQuestions:   totalQuestions,
		CorrectAnswers:   correct,
		WrongAnswers:     wrong,
		Percentage:       percentage,
		Sections:         sections,
		TimeTakenSeconds: timeTaken,
		IsPassed:         percentage >= exam.MarkingScheme.PassingPercentage,
		SubmittedAt:      submittedAt,
	}
}
