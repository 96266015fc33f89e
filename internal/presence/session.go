package presence

import (
	"context"
	"sync"
	"time"
)

// DefaultCursorThrottle 커서 게시 최소 간격 (~16회/초)
const DefaultCursorThrottle = 60 * time.Millisecond

// Session 폼 하나에 대한 이 사용자의 presence 세션
//
// 전역 싱글톤 없이 채널 핸들을 직접 소유하며 Join/Leave로 수명을 관리한다.
// 소비자는 onSync 콜백으로 병합된 전체 참가자 집합을 받는다.
type Session struct {
	formID    string
	transport Transport

	mu            sync.Mutex
	self          Record
	participants  []Record
	lastCursorPub time.Time
	throttle      time.Duration
	unsubscribe   func()
	closed        bool

	now func() time.Time // 테스트 주입용
}

// Join 문서 범위의 presence 채널을 열고 이 사용자를 등록
// 색상은 사용자 id의 결정적 해시로 계산된다
func Join(ctx context.Context, transport Transport, formID string, user Identity, throttle time.Duration, onSync func(set []Record)) (*Session, error) {
	if throttle <= 0 {
		throttle = DefaultCursorThrottle
	}

	s := &Session{
		formID:    formID,
		transport: transport,
		throttle:  throttle,
		now:       time.Now,
		self: Record{
			UserID:    user.ID,
			UserName:  user.Name,
			UserColor: ColorFor(user.ID),
		},
	}

	unsubscribe, err := transport.Subscribe(ctx, formID, func(set []Record) {
		s.mu.Lock()
		s.participants = set
		s.mu.Unlock()
		if onSync != nil {
			onSync(set)
		}
	})
	if err != nil {
		return nil, err
	}
	s.unsubscribe = unsubscribe

	if err := s.publish(ctx); err != nil {
		unsubscribe()
		return nil, err
	}

	return s, nil
}

// publish 현재 self 레코드 게시 (호출자가 락을 잡지 않은 상태여야 함)
func (s *Session) publish(ctx context.Context) error {
	s.mu.Lock()
	s.self.LastSeen = s.now().UnixMilli()
	rec := s.self
	s.mu.Unlock()

	return s.transport.Publish(ctx, s.formID, rec)
}

// UpdateCursor 커서 위치 갱신 - throttle 간격당 최대 1회 게시
func (s *Session) UpdateCursor(ctx context.Context, x, y float64) error {
	s.mu.Lock()
	s.self.Cursor = &Cursor{X: x, Y: y}
	if s.now().Sub(s.lastCursorPub) < s.throttle {
		s.mu.Unlock()
		return nil
	}
	s.lastCursorPub = s.now()
	s.mu.Unlock()

	return s.publish(ctx)
}

// SetActiveField 편집 중 필드 변경 - 락 정확성을 위해 즉시 게시 (throttle 없음)
// 빈 문자열은 포커스 해제
func (s *Session) SetActiveField(ctx context.Context, fieldID string) error {
	s.mu.Lock()
	s.self.ActiveFieldID = fieldID
	s.mu.Unlock()

	return s.publish(ctx)
}

// Republish 마지막 상태 재게시 (재연결 시 호출)
func (s *Session) Republish(ctx context.Context) error {
	return s.publish(ctx)
}

// Participants 마지막으로 수신한 전체 참가자 집합
func (s *Session) Participants() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := make([]Record, len(s.participants))
	copy(set, s.participants)
	return set
}

// Self 이 사용자의 현재 레코드
func (s *Session) Self() Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.self
}

// Leave 레코드 게시 중단 및 구독 해제
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	userID := s.self.UserID
	s.mu.Unlock()

	err := s.transport.Unpublish(ctx, s.formID, userID)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return err
}
