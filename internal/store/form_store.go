package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"formsync-backend/internal/model"
)

var (
	ErrFormNotFound = errors.New("form not found")
)

// FormStore 폼 문서 영속화 협력자
//
// Load/Save/SubscribeToChanges 계약: 저장 성공 시 전체 스냅샷이
// 변경 채널로 발행되어 연결된 모든 동기화 엔진에 도달한다
type FormStore struct {
	db       *gorm.DB
	notifier *ChangeNotifier
}

// NewFormStore FormStore 생성 (notifier는 nil 가능 - 알림 생략)
func NewFormStore(db *gorm.DB, notifier *ChangeNotifier) *FormStore {
	return &FormStore{db: db, notifier: notifier}
}

// Load 폼 스키마 로드
func (s *FormStore) Load(ctx context.Context, formID string) (*model.FormSchema, error) {
	var form model.Form
	if err := s.db.WithContext(ctx).First(&form, "id = ?", formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}

	var schema model.FormSchema
	if err := json.Unmarshal([]byte(form.Schema), &schema); err != nil {
		return nil, fmt.Errorf("failed to decode form schema: %w", err)
	}
	return &schema, nil
}

// LoadRow 폼 행 로드 (공개 여부, 공유 토큰 등 플래그 확인용)
func (s *FormStore) LoadRow(ctx context.Context, formID string) (*model.Form, error) {
	var form model.Form
	if err := s.db.WithContext(ctx).First(&form, "id = ?", formID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return &form, nil
}

// Save 스키마 저장 후 전체 스냅샷을 변경 채널에 발행
func (s *FormStore) Save(ctx context.Context, schema *model.FormSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode form schema: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&model.Form{}).
		Where("id = ?", schema.ID).
		Update("schema", string(data))
	if result.Error != nil {
		return fmt.Errorf("failed to save form: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrFormNotFound
	}

	if s.notifier != nil {
		if err := s.notifier.PublishChange(ctx, schema); err != nil {
			return fmt.Errorf("failed to publish change: %w", err)
		}
	}
	return nil
}

// SubscribeToChanges 폼 변경 알림 구독
func (s *FormStore) SubscribeToChanges(ctx context.Context, formID string, fn ChangeFunc) (func(), error) {
	if s.notifier == nil {
		return func() {}, nil
	}
	return s.notifier.SubscribeChanges(ctx, formID, fn)
}
