package presence

// FieldLock 필드 하나의 advisory lock 상태
//
// UI가 편집 시작을 막고 경고를 띄우기 위한 것으로 서버가 강제하는
// 상호 배제가 아니다. 전파 지연 안에서 경합한 편집의 최종 승자는
// 동기화 엔진의 freshness 휴리스틱이 정한다.
type FieldLock struct {
	Locked   bool   `json:"locked"`
	HolderID string `json:"holderId,omitempty"`
	HeldBy   string `json:"heldBy,omitempty"` // 잠근 편집자의 표시 이름
}

// ResolveLock presence 집합에서 필드의 잠금 상태 도출
// 본인이 아닌 레코드 중 activeFieldId가 일치하는 첫 번째(집합 순서)가 보유자
func ResolveLock(set []Record, fieldID, currentUserID string) FieldLock {
	if fieldID == "" {
		return FieldLock{}
	}
	for _, rec := range set {
		if rec.UserID == currentUserID {
			continue
		}
		if rec.ActiveFieldID == fieldID {
			return FieldLock{Locked: true, HolderID: rec.UserID, HeldBy: rec.UserName}
		}
	}
	return FieldLock{}
}

// LockedFields 원격 편집자가 잠근 모든 필드 (fieldID → 보유자)
// 같은 필드를 여럿이 잡은 경우 집합 순서의 첫 번째가 이긴다
func LockedFields(set []Record, currentUserID string) map[string]FieldLock {
	locks := make(map[string]FieldLock)
	for _, rec := range set {
		if rec.UserID == currentUserID || rec.ActiveFieldID == "" {
			continue
		}
		if _, taken := locks[rec.ActiveFieldID]; taken {
			continue
		}
		locks[rec.ActiveFieldID] = FieldLock{
			Locked:   true,
			HolderID: rec.UserID,
			HeldBy:   rec.UserName,
		}
	}
	return locks
}
