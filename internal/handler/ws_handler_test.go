package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/m-atharkhan/FrClass/internal/client"
	"github.com/m-atharkhan/FrClass/internal/config"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/events"
	"github.com/m-atharkhan/FrClass/internal/hub"
	"github.com/m-atharkhan/FrClass/internal/registry"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/internal/service"
	"github.com/m-atharkhan/FrClass/pkg/jwt"
)

type denyAllChecker struct{}

func (denyAllChecker) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	return false, nil
}

// wsMessage decodes the shared "message" field: message frames carry a
// ChatMessage object, while auth_result and error frames carry a plain
// string there, which is ignored.
type wsMessage struct {
	domain.ChatMessage
}

func (m *wsMessage) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return nil
	}
	return json.Unmarshal(data, &m.ChatMessage)
}

// wsFrame is a superset of the server frames so one struct can decode
// whatever arrives.
type wsFrame struct {
	Type     string     `json:"type"`
	Success  bool       `json:"success"`
	UserID   string     `json:"user_id"`
	Username string     `json:"username"`
	RoomID   string     `json:"room_id"`
	Code     string     `json:"code"`
	Message  *wsMessage `json:"message"`
}

func newWSServer(t *testing.T, membership client.MembershipChecker) (*httptest.Server, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.MessageModel{}, &domain.RoomCounterModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 4096,
	}

	h := hub.NewHub(registry.NewMemoryRegistry(), wsCfg)
	go h.Run()

	chatSvc := service.NewChatService(repository.NewGormMessageRepository(db), h, events.NewNoopProducer())
	tokens := jwt.NewManager("test-secret", time.Hour, "frclass")

	wsHandler := NewWSHandler(h, chatSvc, tokens, membership, wsCfg)

	r := gin.New()
	r.GET("/ws", wsHandler.HandleWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame interface{}) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write frame failed: %v", err)
	}
}

func readWSFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame failed: %v", err)
	}
	return frame
}

func authenticate(t *testing.T, conn *websocket.Conn, tokens *jwt.Manager, userID string) {
	t.Helper()

	token, err := tokens.Generate(userID, userID+"@school.test", userID, nil)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	writeFrame(t, conn, domain.AuthFrame{Type: domain.MsgTypeAuth, Token: token})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeAuthResult || !frame.Success {
		t.Fatalf("auth failed: %+v", frame)
	}
}

func joinRoom(t *testing.T, conn *websocket.Conn, roomID string) {
	t.Helper()

	writeFrame(t, conn, domain.JoinRoomFrame{Type: domain.MsgTypeJoinRoom, RoomID: roomID})
	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeRoomJoined || frame.RoomID != roomID {
		t.Fatalf("join failed: %+v", frame)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	srv, _ := newWSServer(t, client.AllowAllChecker{})
	conn := dialWS(t, srv)

	writeFrame(t, conn, domain.AuthFrame{Type: domain.MsgTypeAuth, Token: "not-a-token"})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeAuthResult || frame.Success {
		t.Errorf("expected failed auth_result, got %+v", frame)
	}
}

func TestJoinRoomRequiresAuth(t *testing.T) {
	srv, _ := newWSServer(t, client.AllowAllChecker{})
	conn := dialWS(t, srv)

	writeFrame(t, conn, domain.JoinRoomFrame{Type: domain.MsgTypeJoinRoom, RoomID: "room-1"})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeError || frame.Code != domain.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED error frame, got %+v", frame)
	}
}

func TestJoinRoomDeniedForNonMembers(t *testing.T) {
	srv, tokens := newWSServer(t, denyAllChecker{})
	conn := dialWS(t, srv)
	authenticate(t, conn, tokens, "outsider")

	writeFrame(t, conn, domain.JoinRoomFrame{Type: domain.MsgTypeJoinRoom, RoomID: "room-1"})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeError || frame.Code != domain.ErrCodeForbidden {
		t.Errorf("expected FORBIDDEN error frame, got %+v", frame)
	}
}

func TestSendMessageRequiresJoin(t *testing.T) {
	srv, tokens := newWSServer(t, client.AllowAllChecker{})
	conn := dialWS(t, srv)
	authenticate(t, conn, tokens, "alice")

	writeFrame(t, conn, domain.SendMessageFrame{Type: domain.MsgTypeSendMessage, RoomID: "room-1", Body: "hi"})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeError || frame.Code != domain.ErrCodeNotInRoom {
		t.Errorf("expected NOT_IN_ROOM error frame, got %+v", frame)
	}
}

func TestSendEmptyMessageReturnsErrorFrame(t *testing.T) {
	srv, tokens := newWSServer(t, client.AllowAllChecker{})
	conn := dialWS(t, srv)
	authenticate(t, conn, tokens, "alice")
	joinRoom(t, conn, "room-1")

	writeFrame(t, conn, domain.SendMessageFrame{Type: domain.MsgTypeSendMessage, RoomID: "room-1", Body: "   "})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypeError || frame.Code != domain.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST error frame, got %+v", frame)
	}
}

func TestSendMessageReachesAllRoomSessions(t *testing.T) {
	srv, tokens := newWSServer(t, client.AllowAllChecker{})

	alice := dialWS(t, srv)
	authenticate(t, alice, tokens, "alice")
	joinRoom(t, alice, "room-1")

	bob := dialWS(t, srv)
	authenticate(t, bob, tokens, "bob")
	joinRoom(t, bob, "room-1")

	writeFrame(t, alice, domain.SendMessageFrame{Type: domain.MsgTypeSendMessage, RoomID: "room-1", Body: "hello class"})

	// The sender gets the ack and the broadcast, in either order.
	var sawAck, sawBroadcast bool
	for i := 0; i < 2; i++ {
		frame := readWSFrame(t, alice)
		switch frame.Type {
		case domain.MsgTypeMessageSent:
			sawAck = true
		case domain.MsgTypeMessageReceived:
			sawBroadcast = true
		default:
			t.Fatalf("unexpected frame for sender: %+v", frame)
		}
		if frame.Message == nil || frame.Message.Body != "hello class" || frame.Message.MessageID != 1 {
			t.Fatalf("unexpected message payload: %+v", frame.Message)
		}
	}
	if !sawAck || !sawBroadcast {
		t.Errorf("sender got ack=%v broadcast=%v, want both", sawAck, sawBroadcast)
	}

	// The other session in the room gets the broadcast.
	frame := readWSFrame(t, bob)
	if frame.Type != domain.MsgTypeMessageReceived {
		t.Fatalf("expected message_received for bob, got %+v", frame)
	}
	if frame.Message.SenderID != "alice" || frame.Message.SenderName != "alice" || frame.Message.MessageID != 1 {
		t.Errorf("unexpected delivery: %+v", frame.Message)
	}
}

func TestPingPong(t *testing.T) {
	srv, _ := newWSServer(t, client.AllowAllChecker{})
	conn := dialWS(t, srv)

	writeFrame(t, conn, domain.BaseFrame{Type: domain.MsgTypePing})

	frame := readWSFrame(t, conn)
	if frame.Type != domain.MsgTypePong {
		t.Errorf("expected pong, got %+v", frame)
	}
}
