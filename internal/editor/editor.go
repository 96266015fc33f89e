package editor

import (
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"formsync-backend/internal/model"
	"formsync-backend/internal/sync"
)

// defaultLabels 필드 타입별 기본 라벨
var defaultLabels = map[model.FieldType]string{
	model.FieldText:     "Text Field",
	model.FieldEmail:    "Email Address",
	model.FieldNumber:   "Number",
	model.FieldSelect:   "Select Option",
	model.FieldCheckbox: "Checkbox",
	model.FieldTextarea: "Long Text",
	model.FieldDate:     "Date",
	model.FieldFile:     "File Upload",
	model.FieldRadio:    "Radio Group",
}

// NewDefaultField 타입별 기본값을 가진 새 필드 생성
// 선택형 타입은 placeholder 옵션 2개를 가진다
func NewDefaultField(t model.FieldType) model.FormField {
	field := model.FormField{
		ID:       uuid.NewString(),
		Type:     t,
		Label:    defaultLabels[t],
		Required: false,
	}
	if t.IsChoice() {
		field.Options = []string{"Option 1", "Option 2"}
	}
	return field
}

// NewDefaultForm 빈 기본 폼 생성
func NewDefaultForm(userID string) *model.FormSchema {
	now := time.Now().UTC().Format(time.RFC3339)
	return &model.FormSchema{
		ID:     uuid.NewString(),
		Title:  "Untitled Form",
		Fields: []model.FormField{},
		Settings: model.FormSettings{
			SubmitText:     "Submit",
			SuccessMessage: "Thank you for your submission!",
		},
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
	}
}

// FieldPatch 필드 부분 업데이트 (nil 필드는 변경 없음)
type FieldPatch struct {
	Type        *model.FieldType  `json:"type,omitempty"`
	Label       *string           `json:"label,omitempty"`
	Placeholder *string           `json:"placeholder,omitempty"`
	Required    *bool             `json:"required,omitempty"`
	Options     []string          `json:"options,omitempty"`
	Validation  *model.Validation `json:"validation,omitempty"`
	Quiz        *model.QuizMeta   `json:"quiz,omitempty"`
}

// Editor 폼 편집의 구조적 명령 계층
//
// 모든 명령은 동기화 엔진의 UpdateLocal로 라우팅되는 순수 변형이라서
// 구조 편집 하나하나가 로컬 편집 시각 기록에 참여한다.
type Editor struct {
	engine *sync.Engine

	mu              stdsync.Mutex
	selectedFieldID string
}

// New 엔진에 바인딩된 에디터 생성
func New(engine *sync.Engine) *Editor {
	return &Editor{engine: engine}
}

// AddField 새 필드를 맨 뒤에 추가하고 선택한 뒤 id 반환
func (e *Editor) AddField(t model.FieldType) string {
	field := NewDefaultField(t)

	e.engine.UpdateLocal(func(form *model.FormSchema) {
		form.Fields = append(form.Fields, field)
	})

	e.mu.Lock()
	e.selectedFieldID = field.ID
	e.mu.Unlock()

	return field.ID
}

// UpdateField 부분 업데이트 병합 (id가 없으면 no-op)
func (e *Editor) UpdateField(id string, patch FieldPatch) {
	e.engine.UpdateLocal(func(form *model.FormSchema) {
		field := form.FindField(id)
		if field == nil {
			return
		}
		if patch.Type != nil {
			field.Type = *patch.Type
		}
		if patch.Label != nil {
			field.Label = *patch.Label
		}
		if patch.Placeholder != nil {
			field.Placeholder = *patch.Placeholder
		}
		if patch.Required != nil {
			field.Required = *patch.Required
		}
		if patch.Options != nil {
			field.Options = patch.Options
		}
		if patch.Validation != nil {
			field.Validation = patch.Validation
		}
		if patch.Quiz != nil {
			field.Quiz = patch.Quiz
		}
	})
}

// DeleteField 필드 제거, 선택 중이던 필드면 선택 해제
func (e *Editor) DeleteField(id string) {
	e.engine.UpdateLocal(func(form *model.FormSchema) {
		idx := form.FieldIndex(id)
		if idx < 0 {
			return
		}
		form.Fields = append(form.Fields[:idx], form.Fields[idx+1:]...)
	})

	e.mu.Lock()
	if e.selectedFieldID == id {
		e.selectedFieldID = ""
	}
	e.mu.Unlock()
}

// ReorderFields fromIndex의 필드를 toIndex로 이동 (단일 요소 이동)
// 나머지 필드의 상대 순서는 유지된다
func (e *Editor) ReorderFields(fromIndex, toIndex int) {
	e.engine.UpdateLocal(func(form *model.FormSchema) {
		n := len(form.Fields)
		if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n || fromIndex == toIndex {
			return
		}
		moved := form.Fields[fromIndex]
		fields := append(form.Fields[:fromIndex], form.Fields[fromIndex+1:]...)
		fields = append(fields, model.FormField{})
		copy(fields[toIndex+1:], fields[toIndex:])
		fields[toIndex] = moved
		form.Fields = fields
	})
}

// Select 필드 선택
func (e *Editor) Select(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selectedFieldID = id
}

// SelectedFieldID 현재 선택된 필드 id (없으면 빈 문자열)
func (e *Editor) SelectedFieldID() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.selectedFieldID
}
