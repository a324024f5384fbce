package database

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryChatRepository models the six tables with per-partition ordered rows
// and the same write semantics as the Cassandra backend: compare-and-set on
// the email partition, upsert on primary-key collision, strict-inequality
// paging. It backs the data-layer tests and the -memory dev mode.
type MemoryChatRepository struct {
	mu sync.Mutex
	// Last ordering key handed out. Writes arriving within the same
	// millisecond are nudged forward so ordering keys stay unique, the way
	// distinct wall-clock writes are in practice.
	last time.Time

	users        map[uuid.UUID]User
	usersByEmail map[string]Credential
	rooms        map[uuid.UUID]Room
	// users_by_room partitions, clustered ascending by (joined_at, user_id).
	usersByRoom map[uuid.UUID][]RoomMember
	// rooms_by_user partitions, keyed by (user_id, room_id).
	roomsByUser map[uuid.UUID]map[uuid.UUID]RoomSummary
	// message partitions, clustered descending by created_at with message_id
	// as the tie-break.
	messagesByRoom   map[uuid.UUID][]Message
	messagesBySender map[senderKey][]Message
}

type senderKey struct {
	roomId   uuid.UUID
	senderId uuid.UUID
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		users:            make(map[uuid.UUID]User),
		usersByEmail:     make(map[string]Credential),
		rooms:            make(map[uuid.UUID]Room),
		usersByRoom:      make(map[uuid.UUID][]RoomMember),
		roomsByUser:      make(map[uuid.UUID]map[uuid.UUID]RoomSummary),
		messagesByRoom:   make(map[uuid.UUID][]Message),
		messagesBySender: make(map[senderKey][]Message),
	}
}

func (m *MemoryChatRepository) Ping() error { return nil }

// tick returns a strictly increasing ordering key. Callers hold m.mu.
func (m *MemoryChatRepository) tick() time.Time {
	t := Now()
	if !t.After(m.last) {
		t = m.last.Add(time.Millisecond)
	}
	m.last = t
	return t
}

func (m *MemoryChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByEmail[params.Email]; exists {
		return User{}, ErrEmailTaken
	}

	user := User{
		UserId:    uuid.New(),
		Email:     params.Email,
		Username:  params.Username,
		CreatedAt: m.tick(),
	}
	m.usersByEmail[params.Email] = Credential{
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		UserId:       user.UserId,
	}
	m.users[user.UserId] = user
	return user, nil
}

func (m *MemoryChatRepository) GetAccountById(userId uuid.UUID) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userId]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (m *MemoryChatRepository) GetCredentialByEmail(email string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.usersByEmail[email]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

func (m *MemoryChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := Room{
		RoomId:      uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		CreatedAt:   m.tick(),
	}
	m.rooms[room.RoomId] = room
	m.putRoomSummary(params.CreatorId, RoomSummary{
		RoomId:      room.RoomId,
		Name:        params.Name,
		Description: params.Description,
	})
	m.putMember(RoomMember{
		RoomId:      room.RoomId,
		UserId:      params.CreatorId,
		DisplayName: params.CreatorDisplayName,
		Roles:       OwnerRole,
		JoinedAt:    room.CreatedAt,
	})
	return room, nil
}

func (m *MemoryChatRepository) GetRoom(roomId uuid.UUID) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomId]
	if !ok {
		return Room{}, ErrNotFound
	}
	return room, nil
}

func (m *MemoryChatRepository) JoinRoom(params JoinRoomParams) (RoomMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	member := RoomMember{
		RoomId:      params.RoomId,
		UserId:      params.UserId,
		DisplayName: params.DisplayName,
		Roles:       params.Roles,
		JoinedAt:    m.tick(),
	}
	m.putMember(member)
	m.putRoomSummary(params.UserId, RoomSummary{
		RoomId:      params.RoomId,
		Name:        params.RoomName,
		Description: params.RoomDescription,
	})
	return member, nil
}

func (m *MemoryChatRepository) ListRoomMembers(roomId uuid.UUID, afterJoinedAt time.Time, pageSize int) ([]RoomMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := NormalizePageSize(pageSize, DefaultMemberPageSize)

	var members []RoomMember
	for _, member := range m.usersByRoom[roomId] {
		if !afterJoinedAt.IsZero() && !member.JoinedAt.After(afterJoinedAt) {
			continue
		}
		members = append(members, member)
		if len(members) == limit {
			break
		}
	}
	return members, nil
}

func (m *MemoryChatRepository) CountRoomMembers(roomId uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.usersByRoom[roomId])), nil
}

func (m *MemoryChatRepository) ListRoomsForUser(userId uuid.UUID) ([]RoomSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rooms []RoomSummary
	for _, summary := range m.roomsByUser[userId] {
		rooms = append(rooms, summary)
	}
	// Clustered by room_id in the store; keep the listing deterministic.
	sort.Slice(rooms, func(i, j int) bool {
		return bytes.Compare(rooms[i].RoomId[:], rooms[j].RoomId[:]) < 0
	})
	return rooms, nil
}

func (m *MemoryChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := Message{
		MessageId:  uuid.New(),
		RoomId:     params.RoomId,
		SenderId:   params.SenderId,
		SenderName: params.SenderName,
		Content:    params.Content,
		CreatedAt:  m.tick(),
	}
	m.putMessage(msg)
	return msg, nil
}

func (m *MemoryChatRepository) UpdateMessage(params UpdateMessageParams) (Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Cassandra UPDATE is an upsert on the primary key; putMessage mirrors
	// that by replacing the row at the same coordinates.
	msg := Message{
		MessageId:  params.MessageId,
		RoomId:     params.RoomId,
		SenderId:   params.SenderId,
		SenderName: params.SenderName,
		Content:    params.Content,
		CreatedAt:  params.CreatedAt,
	}
	if existing, ok := m.findMessage(params.RoomId, params.CreatedAt, params.MessageId); ok {
		msg.IsPinned = existing.IsPinned
	}
	m.putMessage(msg)
	return msg, nil
}

func (m *MemoryChatRepository) DeleteMessage(params DeleteMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messagesByRoom[params.RoomId] = deleteMessageRow(m.messagesByRoom[params.RoomId], params.CreatedAt, params.MessageId)
	key := senderKey{roomId: params.RoomId, senderId: params.SenderId}
	m.messagesBySender[key] = deleteMessageRow(m.messagesBySender[key], params.CreatedAt, params.MessageId)
	return nil
}

func (m *MemoryChatRepository) ListMessagesByRoom(roomId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return pageMessages(m.messagesByRoom[roomId], beforeCreatedAt, NormalizePageSize(pageSize, DefaultMessagePageSize)), nil
}

func (m *MemoryChatRepository) ListMessagesBySender(roomId, senderId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	partition := m.messagesBySender[senderKey{roomId: roomId, senderId: senderId}]
	return pageMessages(partition, beforeCreatedAt, NormalizePageSize(pageSize, DefaultMessagePageSize)), nil
}

func (m *MemoryChatRepository) putRoomSummary(userId uuid.UUID, summary RoomSummary) {
	partition, ok := m.roomsByUser[userId]
	if !ok {
		partition = make(map[uuid.UUID]RoomSummary)
		m.roomsByUser[userId] = partition
	}
	partition[summary.RoomId] = summary
}

func (m *MemoryChatRepository) putMember(member RoomMember) {
	partition := m.usersByRoom[member.RoomId]
	partition = deleteMemberRow(partition, member.JoinedAt, member.UserId)
	partition = append(partition, member)
	sort.Slice(partition, func(i, j int) bool {
		if !partition[i].JoinedAt.Equal(partition[j].JoinedAt) {
			return partition[i].JoinedAt.Before(partition[j].JoinedAt)
		}
		return bytes.Compare(partition[i].UserId[:], partition[j].UserId[:]) < 0
	})
	m.usersByRoom[member.RoomId] = partition
}

func (m *MemoryChatRepository) putMessage(msg Message) {
	m.messagesByRoom[msg.RoomId] = upsertMessageRow(m.messagesByRoom[msg.RoomId], msg)
	key := senderKey{roomId: msg.RoomId, senderId: msg.SenderId}
	m.messagesBySender[key] = upsertMessageRow(m.messagesBySender[key], msg)
}

func (m *MemoryChatRepository) findMessage(roomId uuid.UUID, createdAt time.Time, messageId uuid.UUID) (Message, bool) {
	for _, msg := range m.messagesByRoom[roomId] {
		if msg.CreatedAt.Equal(createdAt) && msg.MessageId == messageId {
			return msg, true
		}
	}
	return Message{}, false
}

func upsertMessageRow(partition []Message, msg Message) []Message {
	partition = deleteMessageRow(partition, msg.CreatedAt, msg.MessageId)
	partition = append(partition, msg)
	sort.Slice(partition, func(i, j int) bool {
		if !partition[i].CreatedAt.Equal(partition[j].CreatedAt) {
			return partition[i].CreatedAt.After(partition[j].CreatedAt)
		}
		return bytes.Compare(partition[i].MessageId[:], partition[j].MessageId[:]) < 0
	})
	return partition
}

func deleteMessageRow(partition []Message, createdAt time.Time, messageId uuid.UUID) []Message {
	out := partition[:0]
	for _, msg := range partition {
		if msg.CreatedAt.Equal(createdAt) && msg.MessageId == messageId {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func deleteMemberRow(partition []RoomMember, joinedAt time.Time, userId uuid.UUID) []RoomMember {
	out := partition[:0]
	for _, member := range partition {
		if member.JoinedAt.Equal(joinedAt) && member.UserId == userId {
			continue
		}
		out = append(out, member)
	}
	return out
}

func pageMessages(partition []Message, beforeCreatedAt time.Time, limit int) []Message {
	var msgs []Message
	for _, msg := range partition {
		if !beforeCreatedAt.IsZero() && !msg.CreatedAt.Before(beforeCreatedAt) {
			continue
		}
		msgs = append(msgs, msg)
		if len(msgs) == limit {
			break
		}
	}
	return msgs
}
