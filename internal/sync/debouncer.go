package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"formsync-backend/internal/model"
)

// DefaultDebounceDelay 마지막 변경 후 저장까지의 대기 시간
const DefaultDebounceDelay = 2000 * time.Millisecond

// DebounceState 디바운서 상태
type DebounceState int

const (
	StateIdle     DebounceState = iota // 대기
	StatePending                       // 타이머 작동 중
	StateFlushing                      // 저장 진행 중
)

// String 상태를 문자열로 반환
func (s DebounceState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// Debouncer 키 입력마다 저장하지 않도록 쓰기를 묶는 스케줄러 (Thread-Safe)
//
// 상태 전이: idle→pending (첫 변경), pending→pending (변경 시 타이머 리셋),
// pending→flushing (타이머 만료), flushing→idle (완료)
type Debouncer struct {
	mu sync.Mutex

	state         DebounceState
	delay         time.Duration
	timer         *time.Timer
	pending       *model.FormSchema
	lastPersisted []byte // 마지막으로 저장에 성공한 직렬화 결과
	rearm         bool   // 저장 중 새 변경이 들어오면 완료 후 타이머 재시작

	persist PersistFunc
	onError func(error) // 타이머 경로의 저장 실패 통지 (nil 가능)
}

// NewDebouncer 디바운서 생성 (delay <= 0이면 기본값)
func NewDebouncer(delay time.Duration, persist PersistFunc, onError func(error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		state:   StateIdle,
		delay:   delay,
		persist: persist,
		onError: onError,
	}
}

// Notify 문서 변경 통지 - 타이머를 (재)시작한다
// 진행 중인 타이머는 항상 취소되므로 입력 중에는 저장이 일어나지 않는다
func (d *Debouncer) Notify(form *model.FormSchema) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = form.Clone()

	if d.state == StateFlushing {
		d.rearm = true
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.state = StatePending
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire 타이머 만료 경로
func (d *Debouncer) fire() {
	if err := d.Flush(context.Background()); err != nil && d.onError != nil {
		d.onError(err)
	}
}

// Flush 현재 문서를 즉시 저장 시도
//
// 마지막 저장분과 직렬화 결과가 같으면 쓰기를 생략한다 (멱등 no-op).
// lastPersisted는 성공했을 때만 전진하므로 실패한 상태는 다음 사이클에 재시도된다.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.pending == nil {
		d.state = StateIdle
		d.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(d.pending)
	if err != nil {
		d.state = StateIdle
		d.mu.Unlock()
		return err
	}

	if bytes.Equal(data, d.lastPersisted) {
		d.state = StateIdle
		d.mu.Unlock()
		return nil
	}

	snapshot := d.pending.Clone()
	d.state = StateFlushing
	d.mu.Unlock()

	persistErr := d.persist(ctx, snapshot)

	d.mu.Lock()
	if persistErr == nil {
		d.lastPersisted = data
	}
	d.state = StateIdle
	if d.rearm {
		d.rearm = false
		d.state = StatePending
		d.timer = time.AfterFunc(d.delay, d.fire)
	}
	d.mu.Unlock()

	return persistErr
}

// Stop 대기 중인 타이머 취소 (진행 중인 저장은 취소하지 않음)
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.state == StatePending {
		d.state = StateIdle
	}
}

// State 현재 상태 조회
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.state
}
