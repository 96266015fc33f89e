package model

import (
	"time"
)

// User 사용자
type User struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Nickname   string    `gorm:"type:varchar(100);not null" json:"nickname"`
	ProfileImg *string   `gorm:"type:text" json:"profile_img,omitempty"`
	Provider   *string   `gorm:"type:varchar(50)" json:"provider,omitempty"`
	ProviderID *string   `gorm:"type:varchar(255)" json:"provider_id,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Forms []Form `gorm:"foreignKey:OwnerID" json:"forms,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Form 폼 문서 행 (스키마 본문은 jsonb)
type Form struct {
	ID                 string    `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID            int64     `gorm:"not null;index" json:"owner_id"`
	Schema             string    `gorm:"type:jsonb;not null" json:"schema"` // FormSchema 직렬화 본문
	IsPublic           bool      `gorm:"default:false" json:"is_public"`
	ShareToken         *string   `gorm:"type:varchar(32);uniqueIndex" json:"share_token,omitempty"`
	AllowCollaboration bool      `gorm:"default:false" json:"allow_collaboration"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Owner       User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Submissions []FormSubmission `gorm:"foreignKey:FormID" json:"submissions,omitempty"`
}

func (Form) TableName() string {
	return "forms"
}

// FormSubmission 제출 데이터
type FormSubmission struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FormID      string    `gorm:"type:uuid;not null;index:idx_form_submitted" json:"form_id"`
	Data        string    `gorm:"type:jsonb;not null" json:"data"` // 답변 맵 직렬화
	Score       *int      `json:"score,omitempty"` // 퀴즈 모드 획득 점수
	MaxScore    *int      `json:"max_score,omitempty"`
	Passed      *bool     `json:"passed,omitempty"`
	IPAddress   *string   `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	SubmittedAt time.Time `gorm:"autoCreateTime;index:idx_form_submitted" json:"submitted_at"`

	// Relations
	Form Form `gorm:"foreignKey:FormID" json:"form,omitempty"`
}

func (FormSubmission) TableName() string {
	return "form_submissions"
}
