package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/m-atharkhan/FrClass/internal/client"
	"github.com/m-atharkhan/FrClass/internal/config"
	"github.com/m-atharkhan/FrClass/internal/domain"
	"github.com/m-atharkhan/FrClass/internal/hub"
	"github.com/m-atharkhan/FrClass/internal/repository"
	"github.com/m-atharkhan/FrClass/internal/service"
	"github.com/m-atharkhan/FrClass/pkg/jwt"
	"github.com/m-atharkhan/FrClass/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler owns the websocket endpoint: it upgrades connections, walks the
// frame protocol (auth, join, leave, send, ping) and enforces that only
// authenticated members of a room send or receive there.
type WSHandler struct {
	hub        *hub.Hub
	chat       service.ChatService
	tokens     *jwt.Manager
	membership client.MembershipChecker
	wsCfg      config.WebSocketConfig
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(h *hub.Hub, chat service.ChatService, tokens *jwt.Manager, membership client.MembershipChecker, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:        h,
		chat:       chat,
		tokens:     tokens,
		membership: membership,
		wsCfg:      wsCfg,
	}
}

// HandleWebSocket upgrades the request and starts the session's pumps.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	cl := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)

	h.hub.Register(cl)

	go cl.WritePump()
	go cl.ReadPump(h.handleFrame)
}

func (h *WSHandler) handleFrame(cl *hub.Client, message []byte) {
	var base domain.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Invalid frame format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeAuth:
		var frame domain.AuthFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Invalid auth frame"))
			return
		}
		h.handleAuth(cl, &frame)

	case domain.MsgTypeJoinRoom:
		var frame domain.JoinRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Invalid join_room frame"))
			return
		}
		h.handleJoinRoom(cl, &frame)

	case domain.MsgTypeLeaveRoom:
		var frame domain.LeaveRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Invalid leave_room frame"))
			return
		}
		h.handleLeaveRoom(cl, &frame)

	case domain.MsgTypeSendMessage:
		var frame domain.SendMessageFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Invalid send_message frame"))
			return
		}
		h.handleSendMessage(cl, &frame)

	case domain.MsgTypePing:
		cl.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Unknown frame type"))
	}
}

func (h *WSHandler) handleAuth(cl *hub.Client, frame *domain.AuthFrame) {
	claims, err := h.tokens.Validate(frame.Token)
	if err != nil || claims.Type != "access" {
		cl.SendMessage(&domain.AuthResultFrame{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: "Invalid token",
		})
		return
	}

	cl.Session.Authenticate(claims.UserID, claims.Username)

	cl.SendMessage(&domain.AuthResultFrame{
		Type:     domain.MsgTypeAuthResult,
		Success:  true,
		UserID:   claims.UserID,
		Username: claims.Username,
	})
}

func (h *WSHandler) handleJoinRoom(cl *hub.Client, frame *domain.JoinRoomFrame) {
	if !cl.Session.IsAuthenticated() {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeUnauthorized, "Not authenticated"))
		return
	}
	if frame.RoomID == "" {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Missing room_id"))
		return
	}

	ctx := context.Background()
	isMember, err := h.membership.IsMember(ctx, frame.RoomID, cl.Session.GetUserID())
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldRoomID, frame.RoomID).Msg("membership check failed")
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "Membership check failed"))
		return
	}
	if !isMember {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeForbidden, "Not a member of this class"))
		return
	}

	h.hub.JoinRoom(cl, frame.RoomID)
	cl.Session.JoinRoom(frame.RoomID)

	cl.SendMessage(&domain.RoomJoinedFrame{
		Type:   domain.MsgTypeRoomJoined,
		RoomID: frame.RoomID,
	})
}

func (h *WSHandler) handleLeaveRoom(cl *hub.Client, frame *domain.LeaveRoomFrame) {
	if !cl.Session.IsAuthenticated() {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeUnauthorized, "Not authenticated"))
		return
	}
	if !cl.Session.InRoom(frame.RoomID) {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeNotInRoom, "Not in this room"))
		return
	}

	h.hub.LeaveRoom(cl, frame.RoomID)
	cl.Session.LeaveRoom(frame.RoomID)

	cl.SendMessage(&domain.RoomLeftFrame{
		Type:   domain.MsgTypeRoomLeft,
		RoomID: frame.RoomID,
	})
}

func (h *WSHandler) handleSendMessage(cl *hub.Client, frame *domain.SendMessageFrame) {
	if !cl.Session.IsAuthenticated() {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeUnauthorized, "Not authenticated"))
		return
	}
	if !cl.Session.InRoom(frame.RoomID) {
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeNotInRoom, "Join the room before sending"))
		return
	}

	msg, err := h.chat.Send(context.Background(), frame.RoomID, cl.Session.GetUserID(), cl.Session.GetUsername(), &domain.SendMessageRequest{
		Body:          frame.Body,
		AttachmentURL: frame.AttachmentURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmptyMessage) {
			cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeBadRequest, "Message needs a body or an attachment"))
			return
		}
		cl.SendMessage(domain.NewErrorFrame(domain.ErrCodeInternalError, "Failed to send message"))
		return
	}

	// Ack to the sender; the broadcast reaches them separately as a
	// room member.
	cl.SendMessage(&domain.MessageSentFrame{
		Type:    domain.MsgTypeMessageSent,
		Message: *msg,
	})
}
