package store

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"formsync-backend/internal/model"
)

func newTestRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestChangeNotifier_PublishSubscribe(t *testing.T) {
	notifier := NewChangeNotifier(newTestRedis(t))
	ctx := context.Background()

	var mu stdsync.Mutex
	var received []*model.FormSchema
	var arrivals []time.Time

	unsubscribe, err := notifier.SubscribeChanges(ctx, "form-1", func(schema *model.FormSchema, arrivedAt time.Time) {
		mu.Lock()
		received = append(received, schema)
		arrivals = append(arrivals, arrivedAt)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	schema := &model.FormSchema{ID: "form-1", Title: "Published Snapshot"}
	require.NoError(t, notifier.PublishChange(ctx, schema))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	// 페이로드는 diff가 아니라 문서 전체 스냅샷
	require.Equal(t, "form-1", received[0].ID)
	require.Equal(t, "Published Snapshot", received[0].Title)
	require.False(t, arrivals[0].IsZero())
}

func TestChangeNotifier_ChannelIsolation(t *testing.T) {
	notifier := NewChangeNotifier(newTestRedis(t))
	ctx := context.Background()

	var mu stdsync.Mutex
	count := 0
	unsubscribe, err := notifier.SubscribeChanges(ctx, "form-1", func(*model.FormSchema, time.Time) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	// 다른 폼의 변경은 수신되지 않음
	require.NoError(t, notifier.PublishChange(ctx, &model.FormSchema{ID: "form-2", Title: "other"}))
	require.NoError(t, notifier.PublishChange(ctx, &model.FormSchema{ID: "form-1", Title: "mine"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestChangeNotifier_UnsubscribeStopsDelivery(t *testing.T) {
	notifier := NewChangeNotifier(newTestRedis(t))
	ctx := context.Background()

	var mu stdsync.Mutex
	count := 0
	unsubscribe, err := notifier.SubscribeChanges(ctx, "form-1", func(*model.FormSchema, time.Time) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)

	unsubscribe()
	require.NoError(t, notifier.PublishChange(ctx, &model.FormSchema{ID: "form-1"}))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Zero(t, count)
}
