package store

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"formsync-backend/internal/model"
)

// ChangeFunc 변경 알림 콜백 - 전체 문서 스냅샷과 도착 시각을 받는다
type ChangeFunc func(schema *model.FormSchema, arrivedAt time.Time)

// ChangeNotifier 폼 변경 알림 채널 (Redis pub/sub)
//
// postgres_changes 스타일: 페이로드는 diff가 아니라 문서 전체다
type ChangeNotifier struct {
	client *redis.Client
}

// NewChangeNotifier ChangeNotifier 생성
func NewChangeNotifier(client *redis.Client) *ChangeNotifier {
	return &ChangeNotifier{client: client}
}

// changeChannel 폼별 변경 채널 이름
func changeChannel(formID string) string {
	return "form:" + formID + ":changes"
}

// PublishChange 저장된 전체 스냅샷 발행
func (n *ChangeNotifier) PublishChange(ctx context.Context, schema *model.FormSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, changeChannel(schema.ID), data).Err()
}

// SubscribeChanges 폼 변경 구독, 해제 함수 반환
// 해제 전까지 수신 goroutine이 콜백을 도착 순서대로 호출한다
func (n *ChangeNotifier) SubscribeChanges(ctx context.Context, formID string, fn ChangeFunc) (func(), error) {
	pubsub := n.client.Subscribe(context.Background(), changeChannel(formID))
	loopCtx, cancel := context.WithCancel(context.Background())

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-loopCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var schema model.FormSchema
				if err := json.Unmarshal([]byte(msg.Payload), &schema); err != nil {
					log.Printf("[Notifier %s] Failed to decode change payload: %v", formID, err)
					continue
				}
				fn(&schema, time.Now())
			}
		}
	}()

	unsubscribe := func() {
		cancel()
		pubsub.Close()
	}
	return unsubscribe, nil
}
