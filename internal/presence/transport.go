package presence

import (
	"context"
	"sync"
)

// 채널 이벤트 타입
const (
	eventTrack   = "track"
	eventUntrack = "untrack"
)

// envelope 채널로 흐르는 presence 메시지
type envelope struct {
	Type   string `json:"type"` // track, untrack
	Record Record `json:"record"`
}

// Transport presence 전송 계층 계약
//
// 구독자는 델타가 아니라 병합된 전체 presence 집합을 받는다
// (최신 상태의 at-least-once 전달, 중간 상태 유실은 허용)
type Transport interface {
	// Publish 이 사용자의 레코드를 채널에 게시
	Publish(ctx context.Context, formID string, rec Record) error
	// Unpublish 이 사용자의 레코드 게시 중단 (leave/disconnect)
	Unpublish(ctx context.Context, formID string, userID string) error
	// Subscribe 전체 집합 변경 구독, 해제 함수 반환
	Subscribe(ctx context.Context, formID string, fn func(set []Record)) (func(), error)
}

// roster 폼 하나의 병합된 참가자 집합 (참여 순서 유지)
type roster struct {
	records map[string]Record
	order   []string // 참여 순서 - 락 해석의 배열 순서 기준
}

func newRoster() *roster {
	return &roster{records: make(map[string]Record)}
}

func (r *roster) track(rec Record) {
	if _, ok := r.records[rec.UserID]; !ok {
		r.order = append(r.order, rec.UserID)
	}
	r.records[rec.UserID] = rec
}

func (r *roster) untrack(userID string) {
	if _, ok := r.records[userID]; !ok {
		return
	}
	delete(r.records, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *roster) snapshot() []Record {
	set := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		set = append(set, r.records[id])
	}
	return set
}

// LocalTransport 프로세스 내 전송 (단일 노드/테스트용)
type LocalTransport struct {
	mu    sync.Mutex
	forms map[string]*localForm
}

type localForm struct {
	roster *roster
	subs   map[int]func(set []Record)
	nextID int
}

// NewLocalTransport LocalTransport 생성
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{forms: make(map[string]*localForm)}
}

func (t *LocalTransport) form(formID string) *localForm {
	if f, ok := t.forms[formID]; ok {
		return f
	}
	f := &localForm{
		roster: newRoster(),
		subs:   make(map[int]func(set []Record)),
	}
	t.forms[formID] = f
	return f
}

// Publish 레코드 병합 후 전체 집합 브로드캐스트
func (t *LocalTransport) Publish(_ context.Context, formID string, rec Record) error {
	t.dispatch(formID, envelope{Type: eventTrack, Record: rec})
	return nil
}

// Unpublish 레코드 제거 후 전체 집합 브로드캐스트
func (t *LocalTransport) Unpublish(_ context.Context, formID string, userID string) error {
	t.dispatch(formID, envelope{Type: eventUntrack, Record: Record{UserID: userID}})
	return nil
}

// Subscribe 전체 집합 변경 구독
func (t *LocalTransport) Subscribe(_ context.Context, formID string, fn func(set []Record)) (func(), error) {
	t.mu.Lock()
	f := t.form(formID)
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	snapshot := f.roster.snapshot()
	t.mu.Unlock()

	// 구독 즉시 현재 집합 전달
	fn(snapshot)

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if f, ok := t.forms[formID]; ok {
			delete(f.subs, id)
			if len(f.subs) == 0 && len(f.roster.records) == 0 {
				delete(t.forms, formID)
			}
		}
	}
	return unsubscribe, nil
}

func (t *LocalTransport) dispatch(formID string, env envelope) {
	t.mu.Lock()
	f := t.form(formID)
	switch env.Type {
	case eventTrack:
		f.roster.track(env.Record)
	case eventUntrack:
		f.roster.untrack(env.Record.UserID)
	}
	snapshot := f.roster.snapshot()
	subs := make([]func(set []Record), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	// 락 밖에서 통지 (콜백이 다시 Publish해도 안전)
	for _, fn := range subs {
		fn(snapshot)
	}
}
