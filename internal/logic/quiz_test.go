package logic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"formsync-backend/internal/model"
)

func quizFields() []model.FormField {
	return []model.FormField{
		{ID: "q1", Type: model.FieldRadio, Label: "Q1", Quiz: &model.QuizMeta{CorrectAnswer: "Paris", Points: 2}},
		{ID: "q2", Type: model.FieldRadio, Label: "Q2", Quiz: &model.QuizMeta{CorrectAnswer: "4"}}, // 기본 1점
		{ID: "name", Type: model.FieldText, Label: "Name"},                                        // 채점 제외
	}
}

func TestGradeQuiz_Disabled(t *testing.T) {
	answers := map[string]any{"q1": "Paris"}

	require.Nil(t, GradeQuiz(quizFields(), answers, nil))
	require.Nil(t, GradeQuiz(quizFields(), answers, &model.QuizSettings{Enabled: false}))
}

func TestGradeQuiz_ScoringAndPassing(t *testing.T) {
	passing := 60
	settings := &model.QuizSettings{Enabled: true, PassingScore: &passing}

	// 전부 정답 (대소문자/공백 무시)
	result := GradeQuiz(quizFields(), map[string]any{"q1": " paris ", "q2": "4"}, settings)
	require.NotNil(t, result)
	require.Equal(t, 3, result.Score)
	require.Equal(t, 3, result.MaxScore)
	require.Equal(t, 100, result.Percent)
	require.True(t, result.Passed)

	// 2점짜리만 정답 - 66% > 60%
	result = GradeQuiz(quizFields(), map[string]any{"q1": "Paris", "q2": "5"}, settings)
	require.Equal(t, 2, result.Score)
	require.Equal(t, 66, result.Percent)
	require.True(t, result.Passed)

	// 1점짜리만 정답 - 33% < 60%
	result = GradeQuiz(quizFields(), map[string]any{"q2": "4"}, settings)
	require.Equal(t, 1, result.Score)
	require.False(t, result.Passed)
}

func TestGradeQuiz_ShowAnswers(t *testing.T) {
	settings := &model.QuizSettings{Enabled: true, ShowAnswers: true}

	result := GradeQuiz(quizFields(), map[string]any{"q1": "London"}, settings)
	require.Len(t, result.Answers, 2)
	require.Equal(t, "q1", result.Answers[0].FieldID)
	require.False(t, result.Answers[0].Correct)
	require.Equal(t, "Paris", result.Answers[0].CorrectAnswer)

	// showAnswers 꺼져 있으면 내역 미포함
	result = GradeQuiz(quizFields(), map[string]any{"q1": "London"}, &model.QuizSettings{Enabled: true})
	require.Empty(t, result.Answers)
}

func TestGradeQuiz_NoQuizFields(t *testing.T) {
	fields := []model.FormField{{ID: "name", Type: model.FieldText, Label: "Name"}}

	result := GradeQuiz(fields, map[string]any{"name": "x"}, &model.QuizSettings{Enabled: true})
	require.NotNil(t, result)
	require.Equal(t, 0, result.MaxScore)
	require.Equal(t, 0, result.Percent)
	require.True(t, result.Passed) // 기준 0% 이상
}
