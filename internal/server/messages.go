package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"cassandra-chat/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the envelope a connected client sends over the
// websocket. Exactly one of Publish, Join or Leave is set.
type ClientMessage struct {
	BaseMessage
	Publish *Publish  `json:"publish,omitempty"`
	Join    *Join     `json:"join,omitempty"`
	Leave   *Leave    `json:"leave,omitempty"`
	UserId  uuid.UUID `json:"-"`
	client  *Client
}

type Publish struct {
	RoomId     uuid.UUID `json:"room_id"`
	Content    string    `json:"content"`
	SenderName string    `json:"sender_name"`
}

type Join struct {
	RoomId uuid.UUID `json:"room_id"`
}

type Leave struct {
	RoomId uuid.UUID `json:"room_id"`
}

type ServerMessage struct {
	BaseMessage
	Response   *Response      `json:"response,omitempty"`
	Message    *types.Message `json:"message,omitempty"`
	SkipClient *Client        `json:"-"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
