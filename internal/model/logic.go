package model

// LogicOperator 조건 연산자
type LogicOperator string

const (
	OpEquals      LogicOperator = "equals"
	OpNotEquals   LogicOperator = "not_equals"
	OpContains    LogicOperator = "contains"
	OpStartsWith  LogicOperator = "starts_with"
	OpEndsWith    LogicOperator = "ends_with"
	OpGreaterThan LogicOperator = "greater_than"
	OpLessThan    LogicOperator = "less_than"
	OpIsEmpty     LogicOperator = "is_empty"
	OpIsNotEmpty  LogicOperator = "is_not_empty"
)

// LogicActionType 액션 종류
type LogicActionType string

const (
	ActionShow LogicActionType = "show"
	ActionHide LogicActionType = "hide"
)

// LogicMatchType 조건 결합 방식
type LogicMatchType string

const (
	MatchAll LogicMatchType = "all" // AND
	MatchAny LogicMatchType = "any" // OR
)

// LogicCondition 단일 조건 (value는 emptiness 연산자에서는 생략)
type LogicCondition struct {
	ID       string        `json:"id"`
	FieldID  string        `json:"fieldId"`
	Operator LogicOperator `json:"operator"`
	Value    any           `json:"value,omitempty"`
}

// LogicAction 대상 필드에 적용할 지시
type LogicAction struct {
	ID      string          `json:"id"`
	FieldID string          `json:"fieldId"` // 대상 필드
	Type    LogicActionType `json:"type"`
}

// LogicRule 조건부 표시 규칙
// 조건이 0개인 규칙은 항상 매칭된 것으로 취급 (문서화된 엣지 케이스)
type LogicRule struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	MatchType  LogicMatchType   `json:"matchType"`
	Conditions []LogicCondition `json:"conditions"`
	Actions    []LogicAction    `json:"actions"`
	Enabled    bool             `json:"enabled"`
}

// FormLogic 폼에 부착되는 규칙 집합
type FormLogic struct {
	Rules []LogicRule `json:"rules"`
}
