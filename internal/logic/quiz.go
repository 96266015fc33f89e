package logic

import (
	"strings"

	"formsync-backend/internal/model"
)

// QuizResult 퀴즈 채점 결과
type QuizResult struct {
	Score    int                `json:"score"`
	MaxScore int                `json:"maxScore"`
	Percent  int                `json:"percent"`
	Passed   bool               `json:"passed"`
	Answers  []QuizFieldOutcome `json:"answers,omitempty"` // showAnswers 설정 시에만 포함
}

// QuizFieldOutcome 필드별 채점 내역
type QuizFieldOutcome struct {
	FieldID       string `json:"fieldId"`
	Correct       bool   `json:"correct"`
	Points        int    `json:"points"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// GradeQuiz 답변을 정답 메타데이터와 비교해 채점
// 숨김 필드는 호출 전에 answers에서 제거되어 있어야 한다
func GradeQuiz(fields []model.FormField, answers map[string]any, settings *model.QuizSettings) *QuizResult {
	if settings == nil || !settings.Enabled {
		return nil
	}

	result := &QuizResult{}
	for _, field := range fields {
		if field.Quiz == nil || field.Quiz.CorrectAnswer == "" {
			continue
		}

		points := field.Quiz.Points
		if points == 0 {
			points = 1
		}
		result.MaxScore += points

		answer := stringify(answers[field.ID])
		correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(field.Quiz.CorrectAnswer))
		if correct {
			result.Score += points
		}

		if settings.ShowAnswers {
			result.Answers = append(result.Answers, QuizFieldOutcome{
				FieldID:       field.ID,
				Correct:       correct,
				Points:        points,
				CorrectAnswer: field.Quiz.CorrectAnswer,
				Explanation:   field.Quiz.Explanation,
			})
		}
	}

	if result.MaxScore > 0 {
		result.Percent = result.Score * 100 / result.MaxScore
	}

	passing := 0
	if settings.PassingScore != nil {
		passing = *settings.PassingScore
	}
	result.Passed = result.Percent >= passing

	return result
}
