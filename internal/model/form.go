package model

import (
	"encoding/json"
)

// FieldType 필드 타입 (닫힌 집합)
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
	FieldDate     FieldType = "date"
	FieldFile     FieldType = "file"
	FieldRadio    FieldType = "radio"
)

// Valid 알려진 필드 타입인지 확인
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldNumber, FieldSelect, FieldCheckbox,
		FieldTextarea, FieldDate, FieldFile, FieldRadio:
		return true
	}
	return false
}

// IsChoice 선택지(options)가 의미 있는 타입인지 확인
func (t FieldType) IsChoice() bool {
	switch t {
	case FieldSelect, FieldCheckbox, FieldRadio:
		return true
	}
	return false
}

// Validation 필드 유효성 제약
type Validation struct {
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
	Message string   `json:"message,omitempty"`
}

// QuizMeta 퀴즈 모드 필드 메타데이터
type QuizMeta struct {
	CorrectAnswer string `json:"correctAnswer,omitempty"` // 정답 옵션 값
	Points        int    `json:"points,omitempty"`
	Explanation   string `json:"explanation,omitempty"` // 답변 후 표시
}

// FormField 폼의 질문/입력 단위
type FormField struct {
	ID          string      `json:"id"`
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Placeholder string      `json:"placeholder,omitempty"`
	Required    bool        `json:"required"`
	Options     []string    `json:"options,omitempty"` // select, radio, checkbox 전용
	Validation  *Validation `json:"validation,omitempty"`
	Quiz        *QuizMeta   `json:"quiz,omitempty"`
}

// SecuritySettings 제출 보안 토글
type SecuritySettings struct {
	HoneypotEnabled  bool `json:"honeypotEnabled"`
	TurnstileEnabled bool `json:"turnstileEnabled"`
}

// QuizSettings 퀴즈 모드 설정
type QuizSettings struct {
	Enabled      bool `json:"enabled"`
	PassingScore *int `json:"passingScore,omitempty"` // 합격 기준 (퍼센트)
	ShowAnswers  bool `json:"showAnswers,omitempty"`  // 제출 후 정답 공개 여부
}

// DesignColors 디자인 색상
type DesignColors struct {
	Primary    string `json:"primary"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Branding 브랜딩 설정
type Branding struct {
	LogoURL      string `json:"logoUrl,omitempty"`
	HideBranding bool   `json:"hideBranding,omitempty"`
}

// DesignSettings 비주얼 디자인 설정
type DesignSettings struct {
	Theme    string        `json:"theme"`            // light, dark, system
	Layout   string        `json:"layout,omitempty"` // standard, conversational
	Colors   *DesignColors `json:"colors,omitempty"`
	Branding *Branding     `json:"branding,omitempty"`
}

// FormSettings 제출 동작 설정
type FormSettings struct {
	SubmitText     string            `json:"submitText,omitempty"`
	SuccessMessage string            `json:"successMessage,omitempty"`
	RedirectURL    string            `json:"redirectUrl,omitempty"`
	Security       *SecuritySettings `json:"security,omitempty"`
	Quiz           *QuizSettings     `json:"quiz,omitempty"`
	Design         *DesignSettings   `json:"design,omitempty"`
}

// FormSchema 공동 편집의 단위가 되는 폼 문서 전체
// 필드 순서가 곧 렌더링 순서 (별도 인덱스 속성 없음)
type FormSchema struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []FormField  `json:"fields"`
	Settings    FormSettings `json:"settings"`
	Logic       *FormLogic   `json:"logic,omitempty"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt"`
	UserID      string       `json:"userId"`
}

// Clone 깊은 복사본 반환 (스냅샷 비교/전달용)
func (s *FormSchema) Clone() *FormSchema {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		// 스키마는 순수 데이터 구조라 마샬 실패는 발생하지 않음
		panic(err)
	}
	var out FormSchema
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

// FindField id로 필드 조회 (없으면 nil)
func (s *FormSchema) FindField(id string) *FormField {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldIndex id로 필드 위치 조회 (없으면 -1)
func (s *FormSchema) FieldIndex(id string) int {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return i
		}
	}
	return -1
}
