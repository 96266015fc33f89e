package handler

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"formsync-backend/internal/auth"
	"formsync-backend/internal/editor"
	"formsync-backend/internal/logic"
	"formsync-backend/internal/model"
	"formsync-backend/internal/store"
)

// FormHandler 폼 CRUD + 공유 토큰 핸들러
type FormHandler struct {
	db    *gorm.DB
	store *store.FormStore
}

// NewFormHandler FormHandler 생성
func NewFormHandler(db *gorm.DB, formStore *store.FormStore) *FormHandler {
	return &FormHandler{db: db, store: formStore}
}

// FormResponse 폼 행 + 스키마 응답
type FormResponse struct {
	ID                 string             `json:"id"`
	Schema             *model.FormSchema  `json:"schema"`
	IsPublic           bool               `json:"is_public"`
	AllowCollaboration bool               `json:"allow_collaboration"`
	ShareToken         *string            `json:"share_token,omitempty"` // 소유자에게만
	CreatedAt          string             `json:"created_at"`
	UpdatedAt          string             `json:"updated_at"`
}

// CreateFormRequest 폼 생성 요청
type CreateFormRequest struct {
	Title string `json:"title"`
}

// CreateForm 빈 기본 폼 생성
func (h *FormHandler) CreateForm(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	var req CreateFormRequest
	_ = c.BodyParser(&req) // 본문 없으면 기본값 사용

	schema := editor.NewDefaultForm(claims.Subject)
	if strings.TrimSpace(req.Title) != "" {
		schema.Title = req.Title
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to encode schema",
		})
	}

	form := model.Form{
		ID:      schema.ID,
		OwnerID: claims.UserID,
		Schema:  string(data),
	}
	if err := h.db.Create(&form).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create form",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toFormResponse(&form, schema, true))
}

// GetMyForms 내 폼 목록
func (h *FormHandler) GetMyForms(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)

	var forms []model.Form
	if err := h.db.Where("owner_id = ?", claims.UserID).
		Order("updated_at DESC").
		Find(&forms).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list forms",
		})
	}

	responses := make([]FormResponse, 0, len(forms))
	for i := range forms {
		var schema model.FormSchema
		if err := json.Unmarshal([]byte(forms[i].Schema), &schema); err != nil {
			continue
		}
		responses = append(responses, toFormResponse(&forms[i], &schema, true))
	}

	return c.JSON(responses)
}

// GetForm 폼 조회 (소유자 또는 유효한 공유 토큰 보유자)
func (h *FormHandler) GetForm(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	form, err := h.store.LoadRow(c.Context(), formID)
	if err != nil {
		return formNotFound(c, err)
	}

	isOwner := form.OwnerID == claims.UserID
	if !isOwner && !shareTokenMatches(form, c.Query("token")) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "no permission to access this form",
		})
	}

	var schema model.FormSchema
	if err := json.Unmarshal([]byte(form.Schema), &schema); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to decode schema",
		})
	}

	return c.JSON(toFormResponse(form, &schema, isOwner))
}

// UpdateFormRequest 스키마 전체 업데이트 요청
type UpdateFormRequest struct {
	Schema *model.FormSchema `json:"schema"`
}

// UpdateForm 스키마 저장 (저장 성공 시 변경 채널로 전체 스냅샷 발행)
func (h *FormHandler) UpdateForm(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	form, err := h.store.LoadRow(c.Context(), formID)
	if err != nil {
		return formNotFound(c, err)
	}
	if form.OwnerID != claims.UserID && !shareTokenMatches(form, c.Query("token")) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "no permission to edit this form",
		})
	}

	var req UpdateFormRequest
	if err := c.BodyParser(&req); err != nil || req.Schema == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	req.Schema.ID = formID // 경로가 문서 identity의 기준

	if err := h.store.Save(c.Context(), req.Schema); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save form",
		})
	}

	// best-effort 검증 - 저장은 막지 않고 경고만 전달
	warnings := editor.ValidateSchema(req.Schema)

	return c.JSON(fiber.Map{
		"message":  "form saved",
		"warnings": warnings,
	})
}

// VisibilityRequest 공개 여부 변경 요청
type VisibilityRequest struct {
	IsPublic bool `json:"is_public"`
}

// SetVisibility 공개/비공개 전환 (소유자 전용)
func (h *FormHandler) SetVisibility(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	var req VisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	result := h.db.Model(&model.Form{}).
		Where("id = ? AND owner_id = ?", formID, claims.UserID).
		Update("is_public", req.IsPublic)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update visibility",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found or no permission",
		})
	}

	return c.JSON(fiber.Map{"is_public": req.IsPublic})
}

// DeleteForm 폼 삭제 (소유자 전용 - 동기화 엔진은 삭제하지 않음)
func (h *FormHandler) DeleteForm(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	result := h.db.Where("id = ? AND owner_id = ?", formID, claims.UserID).
		Delete(&model.Form{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete form",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found or no permission",
		})
	}

	return c.JSON(fiber.Map{"message": "form deleted"})
}

// GenerateShareToken 공동 편집 링크용 토큰 발급 (소유자 전용)
func (h *FormHandler) GenerateShareToken(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]

	result := h.db.Model(&model.Form{}).
		Where("id = ? AND owner_id = ?", formID, claims.UserID).
		Updates(map[string]any{
			"share_token":         token,
			"allow_collaboration": true,
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to generate share token",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found or no permission",
		})
	}

	return c.JSON(fiber.Map{"share_token": token})
}

// DisableCollaboration 공동 편집 비활성화 (소유자 전용)
func (h *FormHandler) DisableCollaboration(c *fiber.Ctx) error {
	claims := c.Locals("claims").(*auth.Claims)
	formID := c.Params("id")

	result := h.db.Model(&model.Form{}).
		Where("id = ? AND owner_id = ?", formID, claims.UserID).
		Updates(map[string]any{
			"share_token":         nil,
			"allow_collaboration": false,
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to disable collaboration",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found or no permission",
		})
	}

	return c.JSON(fiber.Map{"message": "collaboration disabled"})
}

// GetPublicForm 공개 폼 스키마 조회 (제출 페이지 렌더링용, 인증 불필요)
func (h *FormHandler) GetPublicForm(c *fiber.Ctx) error {
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

	// 제출자에게 정답 메타데이터를 노출하지 않음
	for i := range schema.Fields {
		schema.Fields[i].Quiz = nil
	}

	return c.JSON(schema)
}

// EvaluateVisibilityRequest 표시 상태 계산 요청
type EvaluateVisibilityRequest struct {
	Data map[string]any `json:"data"`
}

// EvaluateVisibility 현재 답변 기준 숨김 필드 계산 (conversational 렌더러용)
func (h *FormHandler) EvaluateVisibility(c *fiber.Ctx) error {
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

	var req EvaluateVisibilityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	hidden := logic.Evaluate(req.Data, schema.Logic)
	hiddenIDs := make([]string, 0, len(hidden))
	for id := range hidden {
		hiddenIDs = append(hiddenIDs, id)
	}

	return c.JSON(fiber.Map{"hidden_fields": hiddenIDs})
}

// shareTokenMatches 공유 토큰으로 편집 권한 확인
func shareTokenMatches(form *model.Form, token string) bool {
	return form.AllowCollaboration &&
		form.ShareToken != nil &&
		token != "" &&
		*form.ShareToken == token
}

// formNotFound 스토어 에러를 HTTP 응답으로 변환
func formNotFound(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrFormNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "form not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "database error",
	})
}

// toFormResponse 응답 변환 (공유 토큰은 소유자에게만)
func toFormResponse(form *model.Form, schema *model.FormSchema, isOwner bool) FormResponse {
	resp := FormResponse{
		ID:                 form.ID,
		Schema:             schema,
		IsPublic:           form.IsPublic,
		AllowCollaboration: form.AllowCollaboration,
		CreatedAt:          form.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:          form.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if isOwner {
		resp.ShareToken = form.ShareToken
	}
	return resp
}
