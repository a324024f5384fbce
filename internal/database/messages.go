package database

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

func (r *CassandraChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	messageId := uuid.New()
	createdAt := Now()

	// Both rows are brand new inserts with fixed keys and values, so the
	// whole group is safe to re-run if the outcome of a timeout is unknown.
	err := r.executeGrouped("create message",
		statement{
			cql: "INSERT INTO messages_by_room (room_id, created_at, message_id, sender_id, sender_name, content, is_pinned) " +
				"VALUES (?, ?, ?, ?, ?, ?, ?)",
			args: []any{cqlUUID(params.RoomId), createdAt, cqlUUID(messageId), cqlUUID(params.SenderId), params.SenderName, params.Content, false},
		},
		statement{
			cql: "INSERT INTO messages_by_room_and_sender (room_id, sender_id, created_at, message_id, sender_name, content, is_pinned) " +
				"VALUES (?, ?, ?, ?, ?, ?, ?)",
			args: []any{cqlUUID(params.RoomId), cqlUUID(params.SenderId), createdAt, cqlUUID(messageId), params.SenderName, params.Content, false},
		},
	)
	if err != nil {
		return Message{}, err
	}

	return Message{
		MessageId:  messageId,
		RoomId:     params.RoomId,
		SenderId:   params.SenderId,
		SenderName: params.SenderName,
		Content:    params.Content,
		CreatedAt:  createdAt,
	}, nil
}

func (r *CassandraChatRepository) UpdateMessage(params UpdateMessageParams) (Message, error) {
	// No read-before-write and no version column: concurrent edits resolve
	// last-write-wins by the store's timestamp ordering.
	err := r.executeGrouped("update message",
		statement{
			cql: "UPDATE messages_by_room SET content = ?, sender_name = ? " +
				"WHERE room_id = ? AND created_at = ? AND message_id = ?",
			args: []any{params.Content, params.SenderName, cqlUUID(params.RoomId), params.CreatedAt, cqlUUID(params.MessageId)},
		},
		statement{
			cql: "UPDATE messages_by_room_and_sender SET content = ?, sender_name = ? " +
				"WHERE room_id = ? AND sender_id = ? AND created_at = ? AND message_id = ?",
			args: []any{params.Content, params.SenderName, cqlUUID(params.RoomId), cqlUUID(params.SenderId), params.CreatedAt, cqlUUID(params.MessageId)},
		},
	)
	if err != nil {
		return Message{}, err
	}

	return Message{
		MessageId:  params.MessageId,
		RoomId:     params.RoomId,
		SenderId:   params.SenderId,
		SenderName: params.SenderName,
		Content:    params.Content,
		CreatedAt:  params.CreatedAt,
	}, nil
}

func (r *CassandraChatRepository) DeleteMessage(params DeleteMessageParams) error {
	return r.executeGrouped("delete message",
		statement{
			cql:  "DELETE FROM messages_by_room WHERE room_id = ? AND created_at = ? AND message_id = ?",
			args: []any{cqlUUID(params.RoomId), params.CreatedAt, cqlUUID(params.MessageId)},
		},
		statement{
			cql:  "DELETE FROM messages_by_room_and_sender WHERE room_id = ? AND sender_id = ? AND created_at = ? AND message_id = ?",
			args: []any{cqlUUID(params.RoomId), cqlUUID(params.SenderId), params.CreatedAt, cqlUUID(params.MessageId)},
		},
	)
}

func (r *CassandraChatRepository) ListMessagesByRoom(roomId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	limit := NormalizePageSize(pageSize, DefaultMessagePageSize)

	stmt := "SELECT message_id, created_at, sender_id, sender_name, content, is_pinned FROM messages_by_room WHERE room_id = ?"
	args := []any{cqlUUID(roomId)}
	if !beforeCreatedAt.IsZero() {
		stmt += " AND created_at < ?"
		args = append(args, beforeCreatedAt)
	}
	stmt += " LIMIT ?"
	args = append(args, limit)

	iter := r.session.Query(stmt, args...).Iter()

	var msgs []Message
	var (
		messageId  gocql.UUID
		createdAt  time.Time
		senderId   gocql.UUID
		senderName string
		content    string
		isPinned   bool
	)
	for iter.Scan(&messageId, &createdAt, &senderId, &senderName, &content, &isPinned) {
		msgs = append(msgs, Message{
			MessageId:  uuid.UUID(messageId),
			RoomId:     roomId,
			SenderId:   uuid.UUID(senderId),
			SenderName: senderName,
			Content:    content,
			IsPinned:   isPinned,
			CreatedAt:  createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, wrapStoreErr("list messages by room", err)
	}

	return msgs, nil
}

func (r *CassandraChatRepository) ListMessagesBySender(roomId, senderId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	limit := NormalizePageSize(pageSize, DefaultMessagePageSize)

	stmt := "SELECT message_id, created_at, sender_name, content, is_pinned FROM messages_by_room_and_sender " +
		"WHERE room_id = ? AND sender_id = ?"
	args := []any{cqlUUID(roomId), cqlUUID(senderId)}
	if !beforeCreatedAt.IsZero() {
		stmt += " AND created_at < ?"
		args = append(args, beforeCreatedAt)
	}
	stmt += " LIMIT ?"
	args = append(args, limit)

	iter := r.session.Query(stmt, args...).Iter()

	var msgs []Message
	var (
		messageId  gocql.UUID
		createdAt  time.Time
		senderName string
		content    string
		isPinned   bool
	)
	for iter.Scan(&messageId, &createdAt, &senderName, &content, &isPinned) {
		msgs = append(msgs, Message{
			MessageId:  uuid.UUID(messageId),
			RoomId:     roomId,
			SenderId:   senderId,
			SenderName: senderName,
			Content:    content,
			IsPinned:   isPinned,
			CreatedAt:  createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, wrapStoreErr("list messages by sender", err)
	}

	return msgs, nil
}
