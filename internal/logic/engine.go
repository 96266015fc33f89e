package logic

import (
	"fmt"
	"strconv"
	"strings"

	"formsync-backend/internal/model"
)

// Evaluate 현재 답변과 규칙으로 숨김 필드 집합 계산 (순수 함수)
//
// 규칙이 매칭되면 액션 그대로, 매칭되지 않으면 액션을 반전해서 적용:
// 발동하지 않은 show는 기본 숨김, 발동하지 않은 hide는 기본 표시.
// 충돌 시 show가 hide를 이긴다.
func Evaluate(data map[string]any, logic *model.FormLogic) map[string]struct{} {
	hidden := make(map[string]struct{})
	if logic == nil || len(logic.Rules) == 0 {
		return hidden
	}

	shown := make(map[string]struct{})

	for _, rule := range logic.Rules {
		if !rule.Enabled {
			continue
		}

		matched := evaluateConditions(data, rule.Conditions, rule.MatchType)

		for _, action := range rule.Actions {
			if matched {
				switch action.Type {
				case model.ActionShow:
					shown[action.FieldID] = struct{}{}
				case model.ActionHide:
					hidden[action.FieldID] = struct{}{}
				}
			} else {
				// 매칭 실패 시 반전 적용
				switch action.Type {
				case model.ActionShow:
					hidden[action.FieldID] = struct{}{}
				case model.ActionHide:
					shown[action.FieldID] = struct{}{}
				}
			}
		}
	}

	// 충돌 해소: show 우선
	for id := range shown {
		delete(hidden, id)
	}

	return hidden
}

// evaluateConditions 조건 목록 평가
// 조건 0개는 항상 true (vacuous match)
func evaluateConditions(data map[string]any, conditions []model.LogicCondition, matchType model.LogicMatchType) bool {
	if len(conditions) == 0 {
		return true
	}

	if matchType == model.MatchAll {
		for _, c := range conditions {
			if !checkCondition(data, c) {
				return false
			}
		}
		return true
	}

	// any (OR)
	for _, c := range conditions {
		if checkCondition(data, c) {
			return true
		}
	}
	return false
}

// checkCondition 단일 조건 평가
func checkCondition(data map[string]any, condition model.LogicCondition) bool {
	fieldValue, exists := data[condition.FieldID]

	switch condition.Operator {
	case model.OpIsEmpty:
		return isEmpty(fieldValue)
	case model.OpIsNotEmpty:
		return !isEmpty(fieldValue)
	}

	// 값이 없는 필드는 emptiness 외의 연산자에 매칭되지 않음
	if !exists || fieldValue == nil {
		return false
	}

	strField := strings.ToLower(stringify(fieldValue))
	strTarget := strings.ToLower(stringify(condition.Value))

	switch condition.Operator {
	case model.OpEquals:
		return strField == strTarget
	case model.OpNotEquals:
		return strField != strTarget
	case model.OpContains:
		return strings.Contains(strField, strTarget)
	case model.OpStartsWith:
		return strings.HasPrefix(strField, strTarget)
	case model.OpEndsWith:
		return strings.HasSuffix(strField, strTarget)
	case model.OpGreaterThan, model.OpLessThan:
		numField, err1 := parseNumber(fieldValue)
		numTarget, err2 := parseNumber(condition.Value)
		if err1 != nil || err2 != nil {
			return false
		}
		if condition.Operator == model.OpGreaterThan {
			return numField > numTarget
		}
		return numField < numTarget
	default:
		return false
	}
}

// isEmpty nil, 빈 문자열, 빈 배열을 비어 있는 것으로 취급
func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// stringify 비교용 문자열 변환
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseNumber 숫자 변환 (실패 시 조건은 false)
func parseNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("not a number: %v", value)
	}
}
