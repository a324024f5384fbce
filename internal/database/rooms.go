package database

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// OwnerRole is the role set given to a room's creator.
var OwnerRole = []string{"owner"}

func (r *CassandraChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	roomId := uuid.New()
	createdAt := Now()

	// Three partitions, so the grouping is best-effort. The canonical room
	// is ordered first: it is the one row that is always safe to observe
	// without its derived views.
	err := r.executeGrouped("create room",
		statement{
			cql:  "INSERT INTO rooms (room_id, name, description, created_at) VALUES (?, ?, ?, ?)",
			args: []any{cqlUUID(roomId), params.Name, params.Description, createdAt},
		},
		statement{
			cql:  "INSERT INTO rooms_by_user (user_id, room_id, room_name, room_description) VALUES (?, ?, ?, ?)",
			args: []any{cqlUUID(params.CreatorId), cqlUUID(roomId), params.Name, params.Description},
		},
		statement{
			cql:  "INSERT INTO users_by_room (room_id, joined_at, user_id, roles, user_display_name) VALUES (?, ?, ?, ?, ?)",
			args: []any{cqlUUID(roomId), createdAt, cqlUUID(params.CreatorId), OwnerRole, params.CreatorDisplayName},
		},
	)
	if err != nil {
		return Room{}, err
	}

	return Room{
		RoomId:      roomId,
		Name:        params.Name,
		Description: params.Description,
		CreatedAt:   createdAt,
	}, nil
}

func (r *CassandraChatRepository) GetRoom(roomId uuid.UUID) (Room, error) {
	var (
		id   gocql.UUID
		room Room
	)
	if err := r.session.Query(
		"SELECT room_id, name, description, created_at FROM rooms WHERE room_id = ?",
		cqlUUID(roomId),
	).Scan(&id, &room.Name, &room.Description, &room.CreatedAt); err != nil {
		return Room{}, wrapStoreErr("get room", err)
	}

	room.RoomId = uuid.UUID(id)
	return room, nil
}

func (r *CassandraChatRepository) JoinRoom(params JoinRoomParams) (RoomMember, error) {
	joinedAt := Now()

	err := r.executeGrouped("join room",
		statement{
			cql:  "INSERT INTO users_by_room (room_id, joined_at, user_id, roles, user_display_name) VALUES (?, ?, ?, ?, ?)",
			args: []any{cqlUUID(params.RoomId), joinedAt, cqlUUID(params.UserId), params.Roles, params.DisplayName},
		},
		statement{
			cql:  "INSERT INTO rooms_by_user (user_id, room_id, room_name, room_description) VALUES (?, ?, ?, ?)",
			args: []any{cqlUUID(params.UserId), cqlUUID(params.RoomId), params.RoomName, params.RoomDescription},
		},
	)
	if err != nil {
		return RoomMember{}, err
	}

	return RoomMember{
		RoomId:      params.RoomId,
		UserId:      params.UserId,
		DisplayName: params.DisplayName,
		Roles:       params.Roles,
		JoinedAt:    joinedAt,
	}, nil
}

func (r *CassandraChatRepository) ListRoomMembers(roomId uuid.UUID, afterJoinedAt time.Time, pageSize int) ([]RoomMember, error) {
	limit := NormalizePageSize(pageSize, DefaultMemberPageSize)

	stmt := "SELECT user_id, user_display_name, joined_at, roles FROM users_by_room WHERE room_id = ?"
	args := []any{cqlUUID(roomId)}
	if !afterJoinedAt.IsZero() {
		// Strict inequality: resubmitting a cursor never repeats the
		// boundary row.
		stmt += " AND joined_at > ?"
		args = append(args, afterJoinedAt)
	}
	stmt += " LIMIT ?"
	args = append(args, limit)

	iter := r.session.Query(stmt, args...).Iter()

	var members []RoomMember
	var (
		userId      gocql.UUID
		displayName string
		joinedAt    time.Time
		roles       []string
	)
	for iter.Scan(&userId, &displayName, &joinedAt, &roles) {
		members = append(members, RoomMember{
			RoomId:      roomId,
			UserId:      uuid.UUID(userId),
			DisplayName: displayName,
			Roles:       roles,
			JoinedAt:    joinedAt,
		})
		roles = nil
	}
	if err := iter.Close(); err != nil {
		return nil, wrapStoreErr("list room members", err)
	}

	return members, nil
}

func (r *CassandraChatRepository) CountRoomMembers(roomId uuid.UUID) (int64, error) {
	// Full-partition aggregate scan. Known bottleneck for large rooms; the
	// interface boundary exists so a counter cache can take over.
	var count int64
	if err := r.session.Query(
		"SELECT COUNT(*) FROM users_by_room WHERE room_id = ?",
		cqlUUID(roomId),
	).Scan(&count); err != nil {
		return 0, wrapStoreErr("count room members", err)
	}
	return count, nil
}

func (r *CassandraChatRepository) ListRoomsForUser(userId uuid.UUID) ([]RoomSummary, error) {
	iter := r.session.Query(
		"SELECT room_id, room_name, room_description FROM rooms_by_user WHERE user_id = ?",
		cqlUUID(userId),
	).Iter()

	var rooms []RoomSummary
	var (
		roomId      gocql.UUID
		name        string
		description string
	)
	for iter.Scan(&roomId, &name, &description) {
		rooms = append(rooms, RoomSummary{
			RoomId:      uuid.UUID(roomId),
			Name:        name,
			Description: description,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, wrapStoreErr("list rooms for user", err)
	}

	return rooms, nil
}
