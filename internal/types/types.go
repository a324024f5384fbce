// Package types holds the JSON-facing shapes shared by the HTTP API and the
// websocket server.
package types

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	UserId    uuid.UUID `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Room struct {
	RoomId      uuid.UUID `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type RoomSummary struct {
	RoomId      uuid.UUID `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

type RoomMember struct {
	UserId      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"user_display_name"`
	Roles       []string  `json:"roles"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Message struct {
	MessageId  uuid.UUID `json:"message_id"`
	RoomId     uuid.UUID `json:"room_id"`
	SenderId   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	IsPinned   bool      `json:"is_pinned"`
	CreatedAt  time.Time `json:"created_at"`
}
