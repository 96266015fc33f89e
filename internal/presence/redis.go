package presence

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisTransport Redis pub/sub 기반 presence 전송 (멀티 인스턴스 fan-out)
//
// 각 인스턴스가 채널 메시지로 로컬 roster를 유지하고 구독자에게는
// 병합된 전체 집합만 내보낸다. 전송 단절 시 이 사용자의 레코드는
// 연결 종료 처리(Unpublish)로 제거된다.
type RedisTransport struct {
	client *redis.Client

	mu    sync.Mutex
	forms map[string]*redisForm
}

type redisForm struct {
	roster *roster
	subs   map[int]func(set []Record)
	nextID int
	pubsub *redis.PubSub
	cancel context.CancelFunc
}

// NewRedisTransport RedisTransport 생성
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{
		client: client,
		forms:  make(map[string]*redisForm),
	}
}

// channelKey 폼별 presence 채널 이름
func channelKey(formID string) string {
	return "presence:" + formID
}

// Publish 레코드를 채널에 게시
func (t *RedisTransport) Publish(ctx context.Context, formID string, rec Record) error {
	data, err := json.Marshal(envelope{Type: eventTrack, Record: rec})
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, channelKey(formID), data).Err()
}

// Unpublish 레코드 제거를 채널에 게시
func (t *RedisTransport) Unpublish(ctx context.Context, formID string, userID string) error {
	data, err := json.Marshal(envelope{Type: eventUntrack, Record: Record{UserID: userID}})
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, channelKey(formID), data).Err()
}

// Subscribe 전체 집합 변경 구독, 해제 함수 반환
func (t *RedisTransport) Subscribe(ctx context.Context, formID string, fn func(set []Record)) (func(), error) {
	t.mu.Lock()
	f, ok := t.forms[formID]
	if !ok {
		pubsub := t.client.Subscribe(context.Background(), channelKey(formID))
		loopCtx, cancel := context.WithCancel(context.Background())
		f = &redisForm{
			roster: newRoster(),
			subs:   make(map[int]func(set []Record)),
			pubsub: pubsub,
			cancel: cancel,
		}
		t.forms[formID] = f
		go t.receiveLoop(loopCtx, formID, f)
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	snapshot := f.roster.snapshot()
	t.mu.Unlock()

	fn(snapshot)

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		f, ok := t.forms[formID]
		if !ok {
			return
		}
		delete(f.subs, id)
		if len(f.subs) == 0 {
			f.cancel()
			f.pubsub.Close()
			delete(t.forms, formID)
		}
	}
	return unsubscribe, nil
}

// receiveLoop 채널 메시지를 roster에 반영하고 전체 집합을 통지
func (t *RedisTransport) receiveLoop(ctx context.Context, formID string, f *redisForm) {
	ch := f.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("[Presence %s] Failed to decode message: %v", formID, err)
				continue
			}

			t.mu.Lock()
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

			for _, fn := range subs {
				fn(snapshot)
			}
		}
	}
}
