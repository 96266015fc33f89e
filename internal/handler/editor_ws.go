package handler

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"formsync-backend/internal/config"
	"formsync-backend/internal/editor"
	"formsync-backend/internal/model"
	"formsync-backend/internal/presence"
	"formsync-backend/internal/store"
	"formsync-backend/internal/sync"
)

// EditorWSHandler WebSocket 폼 편집 핸들러
//
// 연결 하나가 편집 세션 하나 - 각 연결이 자신의 동기화 엔진, 디바운서,
// 에디터, presence 세션을 소유한다. 편집자 간 병합은 Redis 채널로
// 흐르는 presence 집합과 저장소 변경 알림이 담당한다.
type EditorWSHandler struct {
	store     *store.FormStore
	transport presence.Transport
	collab    config.CollabConfig
}

// NewEditorWSHandler EditorWSHandler 생성
func NewEditorWSHandler(formStore *store.FormStore, transport presence.Transport, collab config.CollabConfig) *EditorWSHandler {
	return &EditorWSHandler{
		store:     formStore,
		transport: transport,
		collab:    collab,
	}
}

// EditorMessage 클라이언트 ↔ 서버 메시지
type EditorMessage struct {
	Type    string          `json:"type"` // cursor, focus, add_field, update_field, delete_field, reorder_fields, save
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CursorPayload 커서 이동 페이로드
type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FocusPayload 필드 포커스 페이로드 (빈 문자열은 해제)
type FocusPayload struct {
	FieldID string `json:"fieldId"`
}

// AddFieldPayload 필드 추가 페이로드
type AddFieldPayload struct {
	FieldType model.FieldType `json:"fieldType"`
}

// UpdateFieldPayload 필드 부분 업데이트 페이로드
type UpdateFieldPayload struct {
	FieldID string            `json:"fieldId"`
	Patch   editor.FieldPatch `json:"patch"`
}

// DeleteFieldPayload 필드 삭제 페이로드
type DeleteFieldPayload struct {
	FieldID string `json:"fieldId"`
}

// ReorderPayload 필드 순서 변경 페이로드
type ReorderPayload struct {
	FromIndex int `json:"fromIndex"`
	ToIndex   int `json:"toIndex"`
}

// PresencePayload 참가자 집합 + 잠긴 필드 (서버 → 클라이언트)
type PresencePayload struct {
	Participants []presence.Record             `json:"participants"`
	Locks        map[string]presence.FieldLock `json:"locks"`
}

// LockedPayload 잠긴 필드 편집 거부 통지 (서버 → 클라이언트)
type LockedPayload struct {
	FieldID string             `json:"fieldId"`
	Lock    presence.FieldLock `json:"lock"`
}

// editorSession 연결 하나의 편집 세션 상태
type editorSession struct {
	conn    *websocket.Conn
	writeMu stdsync.Mutex

	userID string
	formID string

	store     *store.FormStore
	engine    *sync.Engine
	editor    *editor.Editor
	debouncer *sync.Debouncer
	presence  *presence.Session
}

// writeJSON 직렬화 후 단일 writer로 전송 (여러 고루틴에서 호출됨)
func (s *editorSession) writeJSON(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg, err := json.Marshal(EditorMessage{Type: msgType, Payload: data})
	if err != nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Printf("⚠️ [EditorWS] 메시지 전송 실패: form=%s user=%s err=%v", s.formID, s.userID, err)
	}
}

// HandleWebSocket WebSocket 연결 처리
func (h *EditorWSHandler) HandleWebSocket(c *websocket.Conn) {
	formIDInterface := c.Locals("formId")
	userIDInterface := c.Locals("userId")
	nicknameInterface := c.Locals("nickname")

	formID, ok1 := formIDInterface.(string)
	userID, ok2 := userIDInterface.(int64)
	nickname, ok3 := nicknameInterface.(string)

	if !ok1 || !ok2 || !ok3 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"error":"invalid session"}}`))
		c.Close()
		return
	}

	ctx := context.Background()

	// 초기 문서 로드
	schema, err := h.store.Load(ctx, formID)
	if err != nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"error":"form not found"}}`))
		c.Close()
		return
	}

	s := &editorSession{
		conn:   c,
		userID: strconv.FormatInt(userID, 10),
		formID: formID,
		store:  h.store,
	}

	s.engine = sync.NewEngine(schema, h.collab.GraceWindow)
	s.editor = editor.New(s.engine)
	s.debouncer = sync.NewDebouncer(h.collab.DebounceDelay, s.persist, func(err error) {
		log.Printf("⚠️ [EditorWS] 자동 저장 실패: form=%s err=%v", formID, err)
		s.writeJSON("save_error", map[string]string{"error": "failed to save form"})
	})

	// presence 참여 - 전체 집합 수신마다 잠금 상태와 함께 푸시
	s.presence, err = presence.Join(ctx, h.transport, formID, presence.Identity{
		ID:   s.userID,
		Name: nickname,
	}, h.collab.CursorThrottle, func(set []presence.Record) {
		s.writeJSON("presence", PresencePayload{
			Participants: set,
			Locks:        presence.LockedFields(set, s.userID),
		})
	})
	if err != nil {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"error":"failed to join presence channel"}}`))
		c.Close()
		return
	}

	// 저장소 변경 구독 - grace window를 지난 스냅샷만 수락
	unsubscribe, err := h.store.SubscribeToChanges(ctx, formID, func(snapshot *model.FormSchema, arrivedAt time.Time) {
		if s.engine.HandleRemote(snapshot, arrivedAt) {
			s.writeJSON("form", s.engine.Form())
		}
	})
	if err != nil {
		s.presence.Leave(ctx)
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":{"error":"failed to subscribe to changes"}}`))
		c.Close()
		return
	}

	log.Printf("✅ [EditorWS] 편집 세션 시작: form=%s user=%s", formID, s.userID)

	// 연결 해제 시 정리 - 남은 변경은 마지막으로 한 번 저장
	defer func() {
		unsubscribe()
		s.debouncer.Stop()
		if err := s.debouncer.Flush(context.Background()); err != nil {
			log.Printf("⚠️ [EditorWS] 종료 저장 실패: form=%s err=%v", formID, err)
		}
		s.presence.Leave(context.Background())
		c.Close()
		log.Printf("ℹ️ [EditorWS] 편집 세션 종료: form=%s user=%s", formID, s.userID)
	}()

	// 현재 문서 전달
	s.writeJSON("form", s.engine.Form())

	// 메시지 수신 루프
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var msg EditorMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "cursor":
			h.handleCursor(ctx, s, msg.Payload)
		case "focus":
			h.handleFocus(ctx, s, msg.Payload)
		case "add_field":
			h.handleAddField(s, msg.Payload)
		case "update_field":
			h.handleUpdateField(s, msg.Payload)
		case "delete_field":
			h.handleDeleteField(s, msg.Payload)
		case "reorder_fields":
			h.handleReorder(s, msg.Payload)
		case "save":
			h.handleSave(ctx, s)
		}
	}
}

// persist 디바운스된 스냅샷 저장 - syncing 플래그는 엔진이 관리
func (s *editorSession) persist(ctx context.Context, snapshot *model.FormSchema) error {
	return s.engine.Save(ctx, func(ctx context.Context, _ *model.FormSchema) error {
		return s.store.Save(ctx, snapshot)
	})
}

// afterEdit 편집 공통 후처리 - 저장 예약 + 이 클라이언트에 에코
func (s *editorSession) afterEdit() {
	snapshot := s.engine.Form()
	s.debouncer.Notify(snapshot)
	s.writeJSON("form", snapshot)
}

// handleCursor 커서 이동 (throttle은 세션이 처리)
func (h *EditorWSHandler) handleCursor(ctx context.Context, s *editorSession, payload json.RawMessage) {
	var p CursorPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if err := s.presence.UpdateCursor(ctx, p.X, p.Y); err != nil {
		log.Printf("⚠️ [EditorWS] 커서 게시 실패: form=%s err=%v", s.formID, err)
	}
}

// handleFocus 필드 포커스 - 다른 편집자가 잠근 필드면 거부
func (h *EditorWSHandler) handleFocus(ctx context.Context, s *editorSession, payload json.RawMessage) {
	var p FocusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	if p.FieldID != "" {
		lock := presence.ResolveLock(s.presence.Participants(), p.FieldID, s.userID)
		if lock.Locked {
			s.writeJSON("locked", LockedPayload{FieldID: p.FieldID, Lock: lock})
			return
		}
	}

	s.editor.Select(p.FieldID)
	if err := s.presence.SetActiveField(ctx, p.FieldID); err != nil {
		log.Printf("⚠️ [EditorWS] 포커스 게시 실패: form=%s err=%v", s.formID, err)
	}
}

// handleAddField 필드 추가
func (h *EditorWSHandler) handleAddField(s *editorSession, payload json.RawMessage) {
	var p AddFieldPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}
	if !p.FieldType.Valid() {
		return
	}

	s.editor.AddField(p.FieldType)
	s.afterEdit()
}

// handleUpdateField 필드 부분 업데이트 - 잠긴 필드는 거부
func (h *EditorWSHandler) handleUpdateField(s *editorSession, payload json.RawMessage) {
	var p UpdateFieldPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.FieldID == "" {
		return
	}

	lock := presence.ResolveLock(s.presence.Participants(), p.FieldID, s.userID)
	if lock.Locked {
		s.writeJSON("locked", LockedPayload{FieldID: p.FieldID, Lock: lock})
		return
	}

	s.editor.UpdateField(p.FieldID, p.Patch)
	s.afterEdit()
}

// handleDeleteField 필드 삭제 - 잠긴 필드는 거부
func (h *EditorWSHandler) handleDeleteField(s *editorSession, payload json.RawMessage) {
	var p DeleteFieldPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.FieldID == "" {
		return
	}

	lock := presence.ResolveLock(s.presence.Participants(), p.FieldID, s.userID)
	if lock.Locked {
		s.writeJSON("locked", LockedPayload{FieldID: p.FieldID, Lock: lock})
		return
	}

	s.editor.DeleteField(p.FieldID)
	s.afterEdit()
}

// handleReorder 필드 순서 변경
func (h *EditorWSHandler) handleReorder(s *editorSession, payload json.RawMessage) {
	var p ReorderPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.editor.ReorderFields(p.FromIndex, p.ToIndex)
	s.afterEdit()
}

// handleSave 명시적 저장 - 디바운스를 건너뛰고 즉시 flush
func (h *EditorWSHandler) handleSave(ctx context.Context, s *editorSession) {
	s.debouncer.Notify(s.engine.Form())
	if err := s.debouncer.Flush(ctx); err != nil {
		s.writeJSON("save_error", map[string]string{"error": "failed to save form"})
		return
	}
	s.writeJSON("saved", map[string]string{"savedAt": time.Now().UTC().Format(time.RFC3339)})
}
