package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"formsync-backend/internal/auth"
	"formsync-backend/internal/logic"
	"formsync-backend/internal/model"
	"formsync-backend/internal/store"
)

// SubmissionHandler 폼 제출 핸들러
type SubmissionHandler struct {
	db    *gorm.DB
	store *store.FormStore
}

// NewSubmissionHandler SubmissionHandler 생성
func NewSubmissionHandler(db *gorm.DB, formStore *store.FormStore) *SubmissionHandler {
	return &SubmissionHandler{db: db, store: formStore}
}

// SubmitRequest 공개 제출 요청
// Website는 허니팟 필드 - 사람은 채우지 않음
type SubmitRequest struct {
	Data    map[string]any `json:"data"`
	Website string         `json:"website"`
}

// SubmitResponse 제출 성공 응답
type SubmitResponse struct {
	Message     string            `json:"message"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	Quiz        *logic.QuizResult `json:"quiz,omitempty"`
}

// Submit 공개 폼 제출 (인증 불필요)
func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	formID := c.Params("id")

	form, err := h.store.LoadRow(c.Context(), formID)
	if err != nil {
		return formNotFound(c, err)
	}
	if !form.IsPublic {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found",
		})
	}

	var schema model.FormSchema
	if err := json.Unmarshal([]byte(form.Schema), &schema); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to decode schema",
		})
	}

	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	// 허니팟 검사 - 채워져 있으면 봇 제출로 간주하고 조용히 성공 응답
	security := schema.Settings.Security
	if security != nil && security.HoneypotEnabled && req.Website != "" {
		return c.JSON(SubmitResponse{Message: successMessage(&schema)})
	}

	// 숨김 필드 답변 제거 - 표시되지 않은 질문의 답은 저장하지 않음
	hidden := logic.Evaluate(req.Data, schema.Logic)
	for fieldID := range hidden {
		delete(req.Data, fieldID)
	}

	// 표시 중인 필수 필드 검증
	var missing []string
	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		if _, isHidden := hidden[field.ID]; isHidden {
			continue
		}
		if isAnswerEmpty(req.Data[field.ID]) {
			missing = append(missing, field.ID)
		}
	}
	if len(missing) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":          "required fields are missing",
			"missing_fields": missing,
		})
	}

	// 퀴즈 모드 채점
	quizResult := logic.GradeQuiz(schema.Fields, req.Data, schema.Settings.Quiz)

	data, err := json.Marshal(req.Data)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to encode submission",
		})
	}

	ip := c.IP()
	submission := model.FormSubmission{
		FormID:    formID,
		Data:      string(data),
		IPAddress: &ip,
	}
	if quizResult != nil {
		submission.Score = &quizResult.Score
		submission.MaxScore = &quizResult.MaxScore
		submission.Passed = &quizResult.Passed
	}

	if err := h.db.Create(&submission).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save submission",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(SubmitResponse{
		Message:     successMessage(&schema),
		RedirectURL: schema.Settings.RedirectURL,
		Quiz:        quizResult,
	})
}

// SubmissionResponse 제출 조회 응답
type SubmissionResponse struct {
	ID          int64          `json:"id"`
	Data        map[string]any `json:"data"`
	Score       *int           `json:"score,omitempty"`
	MaxScore    *int           `json:"max_score,omitempty"`
	Passed      *bool          `json:"passed,omitempty"`
	SubmittedAt string         `json:"submitted_at"`
}

// ListSubmissions 폼 제출 목록 조회 (소유자 전용)
func (h *SubmissionHandler) ListSubmissions(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	form, err := h.store.LoadRow(c.Context(), formID)
	if err != nil {
		return formNotFound(c, err)
	}
	if form.OwnerID != claims.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "no permission to view submissions",
		})
	}

	var rows []model.FormSubmission
	if err := h.db.Where("form_id = ?", formID).
		Order("submitted_at DESC").
		Limit(500).
		Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list submissions",
		})
	}

	responses := make([]SubmissionResponse, 0, len(rows))
	for _, row := range rows {
		var data map[string]any
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			continue
		}
		responses = append(responses, SubmissionResponse{
			ID:          row.ID,
			Data:        data,
			Score:       row.Score,
			MaxScore:    row.MaxScore,
			Passed:      row.Passed,
			SubmittedAt: row.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return c.JSON(responses)
}

// successMessage 제출 완료 메시지 (설정 없으면 기본 문구)
func successMessage(schema *model.FormSchema) string {
	if schema.Settings.SuccessMessage != "" {
		return schema.Settings.SuccessMessage
	}
	return "Thank you for your submission!"
}

// isAnswerEmpty 답변이 비어 있는지 확인 (nil, 빈 문자열, 빈 배열)
func isAnswerEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	}
	return false
}
