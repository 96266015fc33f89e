package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestColorFor_Deterministic(t *testing.T) {
	// 같은 id는 항상 같은 색
	require.Equal(t, ColorFor("user-1"), ColorFor("user-1"))

	// 팔레트 내의 색이어야 함
	color := ColorFor("anyone")
	require.Contains(t, palette, color)

	// 문자 코드 합 규약: "a"(97) % 6 = 1 → 두 번째 색
	require.Equal(t, palette[97%len(palette)], ColorFor("a"))
}

func TestSession_JoinPublishesSelf(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	var lastSet []Record
	s, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "Alice"}, 0, func(set []Record) {
		lastSet = set
	})
	require.NoError(t, err)
	defer s.Leave(ctx)

	require.Len(t, lastSet, 1)
	require.Equal(t, "u1", lastSet[0].UserID)
	require.Equal(t, "Alice", lastSet[0].UserName)
	require.Equal(t, ColorFor("u1"), lastSet[0].UserColor)
	require.NotZero(t, lastSet[0].LastSeen)
}

func TestSession_TwoUsersSeeMergedSet(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	var aliceSet []Record
	alice, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "Alice"}, 0, func(set []Record) {
		aliceSet = set
	})
	require.NoError(t, err)
	defer alice.Leave(ctx)

	bob, err := Join(ctx, transport, "form-1", Identity{ID: "u2", Name: "Bob"}, 0, nil)
	require.NoError(t, err)

	// 구독자는 델타가 아니라 병합된 전체 집합을 받는다
	require.Len(t, aliceSet, 2)
	// 참여 순서 유지
	require.Equal(t, "u1", aliceSet[0].UserID)
	require.Equal(t, "u2", aliceSet[1].UserID)

	// 떠나면 집합에서 제거
	require.NoError(t, bob.Leave(ctx))
	require.Len(t, aliceSet, 1)
	require.Equal(t, "u1", aliceSet[0].UserID)
}

func TestSession_FormsAreIsolated(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	var set1 []Record
	s1, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "A"}, 0, func(set []Record) {
		set1 = set
	})
	require.NoError(t, err)
	defer s1.Leave(ctx)

	s2, err := Join(ctx, transport, "form-2", Identity{ID: "u2", Name: "B"}, 0, nil)
	require.NoError(t, err)
	defer s2.Leave(ctx)

	// 다른 폼의 참여는 보이지 않음
	require.Len(t, set1, 1)
}

func TestSession_CursorThrottle(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	base := time.Now()
	clock := base

	publishes := 0
	s, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "A"}, 100*time.Millisecond, func(set []Record) {
		publishes++
	})
	require.NoError(t, err)
	defer s.Leave(ctx)
	s.now = func() time.Time { return clock }

	joined := publishes

	// 간격 내 연속 호출 - 첫 호출만 게시
	clock = base.Add(150 * time.Millisecond)
	require.NoError(t, s.UpdateCursor(ctx, 1, 1))
	clock = base.Add(160 * time.Millisecond)
	require.NoError(t, s.UpdateCursor(ctx, 2, 2))
	clock = base.Add(170 * time.Millisecond)
	require.NoError(t, s.UpdateCursor(ctx, 3, 3))

	require.Equal(t, joined+1, publishes)

	// 게시는 억제돼도 로컬 self 상태는 최신
	require.Equal(t, 3.0, s.Self().Cursor.X)

	// 간격 경과 후 다시 게시
	clock = base.Add(300 * time.Millisecond)
	require.NoError(t, s.UpdateCursor(ctx, 4, 4))
	require.Equal(t, joined+2, publishes)
}

func TestSession_SetActiveFieldPublishesImmediately(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	var lastSet []Record
	s, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "A"}, time.Hour, func(set []Record) {
		lastSet = set
	})
	require.NoError(t, err)
	defer s.Leave(ctx)

	// 포커스 변경은 throttle 없이 즉시 전파 (락 정확성)
	require.NoError(t, s.SetActiveField(ctx, "field-1"))
	require.Equal(t, "field-1", lastSet[0].ActiveFieldID)

	// 빈 문자열로 해제
	require.NoError(t, s.SetActiveField(ctx, ""))
	require.Empty(t, lastSet[0].ActiveFieldID)
}

func TestSession_LeaveIsIdempotent(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	s, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "A"}, 0, nil)
	require.NoError(t, err)

	require.NoError(t, s.Leave(ctx))
	require.NoError(t, s.Leave(ctx))
}

func TestSession_Republish(t *testing.T) {
	transport := NewLocalTransport()
	ctx := context.Background()

	var lastSet []Record
	s, err := Join(ctx, transport, "form-1", Identity{ID: "u1", Name: "A"}, 0, func(set []Record) {
		lastSet = set
	})
	require.NoError(t, err)
	defer s.Leave(ctx)

	require.NoError(t, s.SetActiveField(ctx, "f1"))
	before := lastSet[0].LastSeen

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, s.Republish(ctx))

	// 재게시는 상태를 유지하면서 LastSeen만 갱신
	require.Equal(t, "f1", lastSet[0].ActiveFieldID)
	require.GreaterOrEqual(t, lastSet[0].LastSeen, before)
}
