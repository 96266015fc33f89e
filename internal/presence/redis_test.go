package presence

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

// setCollector 콜백 수신 집합 기록용
type setCollector struct {
	mu   stdsync.Mutex
	sets [][]Record
}

func (c *setCollector) collect(set []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, set)
}

func (c *setCollector) latest() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sets) == 0 {
		return nil
	}
	return c.sets[len(c.sets)-1]
}

func TestRedisTransport_PublishSubscribeRoundtrip(t *testing.T) {
	transport := NewRedisTransport(newTestRedis(t))
	ctx := context.Background()

	collector := &setCollector{}
	unsubscribe, err := transport.Subscribe(ctx, "form-1", collector.collect)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, transport.Publish(ctx, "form-1", Record{UserID: "u1", UserName: "Alice"}))

	require.Eventually(t, func() bool {
		set := collector.latest()
		return len(set) == 1 && set[0].UserID == "u1"
	}, time.Second, 10*time.Millisecond)

	// untrack 후 전체 집합에서 제거
	require.NoError(t, transport.Unpublish(ctx, "form-1", "u1"))

	require.Eventually(t, func() bool {
		return len(collector.latest()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRedisTransport_MergesMultipleUsers(t *testing.T) {
	transport := NewRedisTransport(newTestRedis(t))
	ctx := context.Background()

	collector := &setCollector{}
	unsubscribe, err := transport.Subscribe(ctx, "form-1", collector.collect)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, transport.Publish(ctx, "form-1", Record{UserID: "u1", UserName: "Alice"}))
	require.NoError(t, transport.Publish(ctx, "form-1", Record{UserID: "u2", UserName: "Bob"}))
	// 같은 사용자의 갱신은 추가가 아니라 교체
	require.NoError(t, transport.Publish(ctx, "form-1", Record{UserID: "u1", UserName: "Alice", ActiveFieldID: "f1"}))

	require.Eventually(t, func() bool {
		set := collector.latest()
		return len(set) == 2 &&
			set[0].UserID == "u1" && set[0].ActiveFieldID == "f1" &&
			set[1].UserID == "u2"
	}, time.Second, 10*time.Millisecond)
}

func TestRedisTransport_SubscribeDeliversCurrentSnapshot(t *testing.T) {
	transport := NewRedisTransport(newTestRedis(t))
	ctx := context.Background()

	first := &setCollector{}
	unsub1, err := transport.Subscribe(ctx, "form-1", first.collect)
	require.NoError(t, err)
	defer unsub1()

	require.NoError(t, transport.Publish(ctx, "form-1", Record{UserID: "u1", UserName: "Alice"}))
	require.Eventually(t, func() bool {
		return len(first.latest()) == 1
	}, time.Second, 10*time.Millisecond)

	// 늦게 구독해도 즉시 현재 roster를 받는다
	second := &setCollector{}
	unsub2, err := transport.Subscribe(ctx, "form-1", second.collect)
	require.NoError(t, err)
	defer unsub2()

	require.Len(t, second.latest(), 1)
}
