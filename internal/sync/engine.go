package sync

import (
	"context"
	"sync"
	"time"

	"formsync-backend/internal/model"
)

// DefaultGraceWindow 로컬 편집 직후 원격 스냅샷을 무시하는 기간
const DefaultGraceWindow = 500 * time.Millisecond

// PersistFunc 외부 영속화 협력자
type PersistFunc func(ctx context.Context, schema *model.FormSchema) error

// Engine 문서 동기화 엔진 (Thread-Safe)
//
// 메모리 문서를 저장소 문서와 수렴시키면서 로컬 편집을 지연 없이 반영한다.
// 필드 단위 병합은 하지 않음 - 원격 스냅샷은 문서 전체 단위로 수락/폐기된다.
type Engine struct {
	mu sync.Mutex

	form          *model.FormSchema
	syncing       bool
	lastLocalEdit time.Time // 가장 최근 로컬 변경 시각
	lastRemote    time.Time // 가장 최근에 수락한 원격 업데이트 시각
	graceWindow   time.Duration

	now func() time.Time // 테스트 주입용
}

// NewEngine 초기 문서로 엔진 생성 (graceWindow <= 0이면 기본값)
func NewEngine(initial *model.FormSchema, graceWindow time.Duration) *Engine {
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Engine{
		form:        initial.Clone(),
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

// Form 현재 문서 스냅샷 반환
func (e *Engine) Form() *model.FormSchema {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.form.Clone()
}

// UpdateLocal 로컬 변경 적용 + 로컬 편집 시각 기록
// 동기적으로 반영되며 네트워크 왕복을 기다리지 않는다 (optimistic local-first)
func (e *Engine) UpdateLocal(mutate func(*model.FormSchema)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mutate(e.form)
	e.form.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	e.lastLocalEdit = e.now()
}

// HandleRemote 저장소 변경 알림 처리
//
// 도착 시각이 마지막 로컬 편집 후 grace window를 지났을 때만 수락한다.
// 윈도우 안의 스냅샷은 입력 중인 편집의 에코로 간주하고 버린다 (큐잉/병합 없음).
// 수락 여부를 반환한다.
func (e *Engine) HandleRemote(snapshot *model.FormSchema, arrivedAt time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastLocalEdit.IsZero() && arrivedAt.Sub(e.lastLocalEdit) <= e.graceWindow {
		return false
	}

	e.form = snapshot.Clone()
	e.lastRemote = arrivedAt
	return true
}

// Save 현재 문서를 영속화 협력자로 전달
// syncing 플래그는 콜백이 실패해도 반드시 해제되고 에러는 호출자에게 전파된다
func (e *Engine) Save(ctx context.Context, persist PersistFunc) error {
	e.mu.Lock()
	e.syncing = true
	snapshot := e.form.Clone()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	return persist(ctx, snapshot)
}

// Syncing 영속화 진행 중 여부
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.syncing
}

// LastLocalEdit 마지막 로컬 편집 시각
func (e *Engine) LastLocalEdit() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastLocalEdit
}
