package presence

// Cursor 뷰포트 좌표
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record 편집자 한 명의 실시간 상태
// 내구 저장소에는 존재하지 않고 실시간 채널에만 산다
type Record struct {
	UserID        string  `json:"userId"`
	UserName      string  `json:"userName"`
	UserColor     string  `json:"userColor"`
	Cursor        *Cursor `json:"cursor,omitempty"`
	ActiveFieldID string  `json:"activeFieldId,omitempty"` // 현재 편집 중인 필드
	LastSeen      int64   `json:"lastSeen"`                // unix ms
}

// Identity 세션 시작 전에 외부 인증 협력자가 공급하는 사용자 정보
type Identity struct {
	ID   string
	Name string
}

// palette 고정 색상 팔레트 - 다른 에디션과의 호환을 위해 순서 고정
var palette = []string{
	"#3b82f6", // blue
	"#10b981", // green
	"#f59e0b", // amber
	"#ef4444", // red
	"#8b5cf6", // purple
	"#ec4899", // pink
}

// ColorFor 사용자 id의 결정적 색상
// 해시는 문자 코드 합 mod 팔레트 크기 (크로스 에디션 호환 규약)
func ColorFor(userID string) string {
	sum := 0
	for _, ch := range userID {
		sum += int(ch)
	}
	return palette[sum%len(palette)]
}
