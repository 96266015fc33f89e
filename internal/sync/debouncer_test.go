package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"formsync-backend/internal/model"
)

// countingPersist 저장 호출 기록용
type countingPersist struct {
	mu    stdsync.Mutex
	calls int
	last  *model.FormSchema
	err   error
}

func (p *countingPersist) persist(_ context.Context, schema *model.FormSchema) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.last = schema
	return p.err
}

func (p *countingPersist) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *countingPersist) lastTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return ""
	}
	return p.last.Title
}

func TestDebouncer_BurstProducesSingleSave(t *testing.T) {
	p := &countingPersist{}
	d := NewDebouncer(50*time.Millisecond, p.persist, nil)
	defer d.Stop()

	// 빠른 연속 변경 - 타이머가 계속 리셋됨
	for i := 0; i < 5; i++ {
		d.Notify(testSchema("edit"))
		time.Sleep(10 * time.Millisecond)
	}
	d.Notify(testSchema("final"))

	require.Eventually(t, func() bool {
		return p.count() == 1
	}, time.Second, 10*time.Millisecond)

	// 마지막 상태만 저장됨
	require.Equal(t, "final", p.lastTitle())
	require.Equal(t, StateIdle, d.State())
}

func TestDebouncer_FlushImmediate(t *testing.T) {
	p := &countingPersist{}
	d := NewDebouncer(time.Hour, p.persist, nil)
	defer d.Stop()

	d.Notify(testSchema("pending"))
	require.Equal(t, StatePending, d.State())

	require.NoError(t, d.Flush(context.Background()))
	require.Equal(t, 1, p.count())
	require.Equal(t, StateIdle, d.State())
}

func TestDebouncer_FlushIdempotent(t *testing.T) {
	p := &countingPersist{}
	d := NewDebouncer(time.Hour, p.persist, nil)
	defer d.Stop()

	d.Notify(testSchema("once"))
	require.NoError(t, d.Flush(context.Background()))

	// 변경 없이 다시 flush - 직렬화 결과가 같으므로 쓰기 생략
	require.NoError(t, d.Flush(context.Background()))
	require.Equal(t, 1, p.count())
}

func TestDebouncer_FlushWithoutChangesIsNoop(t *testing.T) {
	p := &countingPersist{}
	d := NewDebouncer(time.Hour, p.persist, nil)

	require.NoError(t, d.Flush(context.Background()))
	require.Equal(t, 0, p.count())
}

func TestDebouncer_FailureKeepsStateForRetry(t *testing.T) {
	p := &countingPersist{err: errors.New("db down")}
	d := NewDebouncer(time.Hour, p.persist, nil)
	defer d.Stop()

	d.Notify(testSchema("unsaved"))
	require.Error(t, d.Flush(context.Background()))
	require.Equal(t, 1, p.count())

	// lastPersisted가 전진하지 않았으므로 재시도에서 같은 내용이 다시 저장됨
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()

	require.NoError(t, d.Flush(context.Background()))
	require.Equal(t, 2, p.count())
	require.Equal(t, "unsaved", p.lastTitle())
}

func TestDebouncer_TimerErrorReportedViaCallback(t *testing.T) {
	p := &countingPersist{err: errors.New("db down")}

	errCh := make(chan error, 1)
	d := NewDebouncer(10*time.Millisecond, p.persist, func(err error) {
		errCh <- err
	})
	defer d.Stop()

	d.Notify(testSchema("x"))

	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected onError callback")
	}
}

func TestDebouncer_StopCancelsPendingTimer(t *testing.T) {
	p := &countingPersist{}
	d := NewDebouncer(30*time.Millisecond, p.persist, nil)

	d.Notify(testSchema("x"))
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, p.count())
	require.Equal(t, StateIdle, d.State())
}

func TestDebounceState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "pending", StatePending.String())
	require.Equal(t, "flushing", StateFlushing.String())
}
