package database

import (
	"time"

	"github.com/google/uuid"
)

// User is the canonical account record in the users table, keyed by user_id.
type User struct {
	UserId    uuid.UUID
	Email     string
	Username  string
	CreatedAt time.Time
}

// Credential is the users_by_email row: the uniqueness-authority copy of an
// email, mapping it to the password hash and the canonical user id.
type Credential struct {
	Email        string
	PasswordHash string
	UserId       uuid.UUID
}

// Room is the canonical room record, keyed by room_id.
type Room struct {
	RoomId      uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
}

// RoomMember is a users_by_room row: one membership fact as seen from the
// room's side, clustered ascending by joined_at.
type RoomMember struct {
	RoomId      uuid.UUID
	UserId      uuid.UUID
	DisplayName string
	Roles       []string
	JoinedAt    time.Time
}

// RoomSummary is a rooms_by_user row: the same membership fact as seen from
// the user's side, carrying denormalized room name and description.
type RoomSummary struct {
	RoomId      uuid.UUID
	Name        string
	Description string
}

// Message is one chat message as stored in messages_by_room and
// messages_by_room_and_sender. The key fields (RoomId, MessageId, SenderId,
// CreatedAt) never change after creation; Content, SenderName and IsPinned
// must stay identical across both views.
type Message struct {
	MessageId  uuid.UUID
	RoomId     uuid.UUID
	SenderId   uuid.UUID
	SenderName string
	Content    string
	IsPinned   bool
	CreatedAt  time.Time
}

type CreateAccountParams struct {
	Email        string
	Username     string
	PasswordHash string
}

type CreateRoomParams struct {
	Name               string
	Description        string
	CreatorId          uuid.UUID
	CreatorDisplayName string
}

type JoinRoomParams struct {
	RoomId      uuid.UUID
	UserId      uuid.UUID
	DisplayName string
	Roles       []string
	// Denormalized room facts supplied by the caller. They are written
	// verbatim into rooms_by_user without re-reading the canonical room,
	// trading a read-before-write for trust in the caller's copy.
	RoomName        string
	RoomDescription string
}

type CreateMessageParams struct {
	RoomId     uuid.UUID
	SenderId   uuid.UUID
	SenderName string
	Content    string
}

// UpdateMessageParams identifies a message by its full coordinates. There is
// no index from message_id alone to the partition, so CreatedAt and SenderId
// must come from a prior read.
type UpdateMessageParams struct {
	RoomId     uuid.UUID
	MessageId  uuid.UUID
	SenderId   uuid.UUID
	CreatedAt  time.Time
	Content    string
	SenderName string
}

type DeleteMessageParams struct {
	RoomId    uuid.UUID
	MessageId uuid.UUID
	SenderId  uuid.UUID
	CreatedAt time.Time
}

// Now returns the current UTC time at millisecond precision, matching the
// resolution of a Cassandra timestamp column so values round-trip unchanged.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
