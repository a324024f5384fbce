package database

import (
	"time"

	"github.com/google/uuid"
)

// ChatRepository is the full operation surface of the chat data layer. Every
// multi-view write behind it keeps the denormalized copies of one fact
// consistent as documented on the method, and every list operation follows
// the cursor contract in paging.go.
type ChatRepository interface {
	Ping() error

	// CreateAccount claims the email with a conditional insert into
	// users_by_email, then writes the canonical users row. Returns
	// ErrEmailTaken if the email is already claimed. The two writes are
	// deliberately not grouped: the conditional outcome must be observed
	// before the canonical insert proceeds.
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(userId uuid.UUID) (User, error)
	GetCredentialByEmail(email string) (Credential, error)

	// CreateRoom writes the canonical room plus both membership views for
	// the creator (role "owner") as one grouped write.
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoom(roomId uuid.UUID) (Room, error)
	// JoinRoom writes users_by_room and rooms_by_user as one grouped write.
	JoinRoom(params JoinRoomParams) (RoomMember, error)
	// ListRoomMembers pages ascending by joined_at; afterJoinedAt is an
	// exclusive cursor, the zero time means the start of the partition.
	ListRoomMembers(roomId uuid.UUID, afterJoinedAt time.Time, pageSize int) ([]RoomMember, error)
	// CountRoomMembers scans the whole partition. Expensive; kept behind
	// the interface so a counter cache can replace it without touching
	// callers.
	CountRoomMembers(roomId uuid.UUID) (int64, error)
	ListRoomsForUser(userId uuid.UUID) ([]RoomSummary, error)

	// CreateMessage inserts both message views as one grouped write. Both
	// rows are new, so the whole write is safe to retry on timeout.
	CreateMessage(params CreateMessageParams) (Message, error)
	// UpdateMessage updates content and sender name in both views as one
	// grouped write. Last write wins; there is no version check, and a
	// partial apply under node failure is a documented anomaly for an
	// external reconciliation pass, not something this layer retries.
	UpdateMessage(params UpdateMessageParams) (Message, error)
	// DeleteMessage removes the message from both views as one grouped
	// write.
	DeleteMessage(params DeleteMessageParams) error
	// ListMessagesByRoom pages descending by created_at; beforeCreatedAt is
	// an exclusive cursor, the zero time means the newest message.
	ListMessagesByRoom(roomId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error)
	ListMessagesBySender(roomId, senderId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error)
}
