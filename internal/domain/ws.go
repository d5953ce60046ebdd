package domain

// WebSocket message types from client.
const (
	MsgTypeAuth        = "auth"
	MsgTypeJoinRoom    = "join_room"
	MsgTypeLeaveRoom   = "leave_room"
	MsgTypeSendMessage = "send_message"
	MsgTypePing        = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeAuthResult      = "auth_result"
	MsgTypeRoomJoined      = "room_joined"
	MsgTypeRoomLeft        = "room_left"
	MsgTypeMessageSent     = "message_sent"
	MsgTypeMessageReceived = "message_received"
	MsgTypeError           = "error"
	MsgTypePong            = "pong"
)

// Error codes
const (
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeNotInRoom     = "NOT_IN_ROOM"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseFrame is the base structure for all WebSocket messages.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> Server frames

type AuthFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type JoinRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type LeaveRoomFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type SendMessageFrame struct {
	Type          string `json:"type"`
	RoomID        string `json:"room_id"`
	Body          string `json:"body"`
	AttachmentURL string `json:"attachment_url"`
}

// Server -> Client frames

type AuthResultFrame struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

type RoomJoinedFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

type RoomLeftFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// MessageSentFrame acknowledges a send to the original caller with the
// persisted message. It is sent once the append commits, independent of
// fan-out outcome.
type MessageSentFrame struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

// MessageReceivedFrame is the live delivery event fanned out to every
// session present in the room.
type MessageReceivedFrame struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
