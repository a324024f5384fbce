package server

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"cassandra-chat/internal/database"
	"cassandra-chat/internal/stats"
	"cassandra-chat/internal/testutil"
	"cassandra-chat/internal/types"
)

// newTestChatServer creates a new ChatServer instance for testing purposes
func newTestChatServer(t *testing.T, db database.ChatRepository, su *stats.MockStatsUpdater) *ChatServer {
	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

func newTestClient(t *testing.T, cs *ChatServer, user types.User) *Client {
	return &Client{
		chatServer: cs,
		log:        testutil.TestLogger(t),
		user:       user,
		send:       make(chan *ServerMessage, 16),
		rooms:      make(map[uuid.UUID]struct{}),
		stop:       make(chan struct{}),
	}
}

func recvMessage(t *testing.T, c *Client) *ServerMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}

func TestNewChatServer(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	logger := testutil.TestLogger(t)
	cs, err := NewChatServer(logger, db, su)
	assert.NoError(t, err, "expected no error creating ChatServer")
	assert.NotNil(t, cs, "expected ChatServer to be non-nil")
	assert.Equal(t, logger, cs.log, "expected logger to be set")
	assert.Equal(t, db, cs.db, "expected database repository to be set")
	assert.NotNil(t, cs.joinChan, "expected joinChan to be initialized")
	assert.NotNil(t, cs.publishChan, "expected publishChan to be initialized")
	assert.NotNil(t, cs.broadcastChan, "expected broadcastChan to be initialized")
	assert.NotNil(t, cs.stop, "expected stop channel to be initialized")
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
	assert.NotNil(t, cs.rooms, "expected rooms map to be initialized")

	_, err = NewChatServer(logger, nil, su)
	assert.Error(t, err, "expected error for nil repository")
}

func TestHandleJoin(t *testing.T) {
	roomId := uuid.New()

	t.Run("room exists", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetRoom", roomId).Return(database.Room{RoomId: roomId, Name: "general"}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "alice"})

		cs.handleJoin(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1},
			Join:        &Join{RoomId: roomId},
			client:      c,
		})

		msg := recvMessage(t, c)
		assert.NotNil(t, msg.Response, "expected a response message")
		assert.Equal(t, 200, msg.Response.ResponseCode)
		assert.True(t, c.inRoom(roomId), "expected client to be subscribed to room")
		assert.Contains(t, cs.rooms, roomId, "expected server to track room subscription")
	})

	t.Run("room not found", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetRoom", roomId).Return(database.Room{}, database.ErrNotFound).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "alice"})

		cs.handleJoin(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1},
			Join:        &Join{RoomId: roomId},
			client:      c,
		})

		msg := recvMessage(t, c)
		assert.NotNil(t, msg.Response, "expected a response message")
		assert.Equal(t, 404, msg.Response.ResponseCode)
		assert.False(t, c.inRoom(roomId), "expected client not to be subscribed")
	})
}

func TestHandleLeave(t *testing.T) {
	roomId := uuid.New()

	cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "alice"})

	cs.rooms[roomId] = map[*Client]struct{}{c: {}}
	c.addRoom(roomId)

	cs.handleLeave(&ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Leave:       &Leave{RoomId: roomId},
		client:      c,
	})

	msg := recvMessage(t, c)
	assert.Equal(t, 200, msg.Response.ResponseCode)
	assert.False(t, c.inRoom(roomId), "expected client unsubscribed")
	assert.NotContains(t, cs.rooms, roomId, "expected empty room dropped from server")
}

func TestHandlePublish(t *testing.T) {
	roomId := uuid.New()
	senderId := uuid.New()

	t.Run("persists and fans out to subscribers", func(t *testing.T) {
		saved := database.Message{
			MessageId:  uuid.New(),
			RoomId:     roomId,
			SenderId:   senderId,
			SenderName: "alice",
			Content:    "hello",
			CreatedAt:  database.Now(),
		}

		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateMessage", database.CreateMessageParams{
			RoomId:     roomId,
			SenderId:   senderId,
			SenderName: "alice",
			Content:    "hello",
		}).Return(saved, nil).Once()

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)
		su.On("Incr", stats.MessagesPublished).Once()

		cs := newTestChatServer(t, db, su)
		sender := newTestClient(t, cs, types.User{UserId: senderId, Username: "alice"})
		peer := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "bob"})

		cs.rooms[roomId] = map[*Client]struct{}{sender: {}, peer: {}}
		sender.addRoom(roomId)
		peer.addRoom(roomId)

		cs.handlePublish(&ClientMessage{
			BaseMessage: BaseMessage{Id: 3},
			Publish:     &Publish{RoomId: roomId, Content: "hello", SenderName: "alice"},
			UserId:      senderId,
			client:      sender,
		})

		for _, c := range []*Client{sender, peer} {
			msg := recvMessage(t, c)
			assert.NotNil(t, msg.Message, "expected a chat message")
			assert.Equal(t, saved.MessageId, msg.Message.MessageId)
			assert.Equal(t, "hello", msg.Message.Content)
		}
	})

	t.Run("rejects publish to room the client never joined", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{UserId: senderId, Username: "alice"})

		cs.handlePublish(&ClientMessage{
			BaseMessage: BaseMessage{Id: 4},
			Publish:     &Publish{RoomId: roomId, Content: "hello"},
			UserId:      senderId,
			client:      c,
		})

		msg := recvMessage(t, c)
		assert.Equal(t, 404, msg.Response.ResponseCode)
	})

	t.Run("reports transient store failure as unavailable", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("CreateMessage", mock.Anything).
			Return(database.Message{}, &database.TransientError{Op: "create message", Err: assert.AnError}).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, types.User{UserId: senderId, Username: "alice"})
		cs.rooms[roomId] = map[*Client]struct{}{c: {}}
		c.addRoom(roomId)

		cs.handlePublish(&ClientMessage{
			BaseMessage: BaseMessage{Id: 5},
			Publish:     &Publish{RoomId: roomId, Content: "hello"},
			UserId:      senderId,
			client:      c,
		})

		msg := recvMessage(t, c)
		assert.Equal(t, 503, msg.Response.ResponseCode)
	})
}

func TestBroadcast(t *testing.T) {
	roomId := uuid.New()

	cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "bob"})
	cs.rooms[roomId] = map[*Client]struct{}{c: {}}

	go cs.Run()
	defer cs.Shutdown()

	cs.Broadcast(types.Message{
		MessageId: uuid.New(),
		RoomId:    roomId,
		Content:   "posted over http",
	})

	msg := recvMessage(t, c)
	assert.NotNil(t, msg.Message, "expected broadcast to reach subscriber")
	assert.Equal(t, "posted over http", msg.Message.Content)
}

func TestRemoveClient_DropsRoomSubscriptions(t *testing.T) {
	roomId := uuid.New()

	cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs, types.User{UserId: uuid.New(), Username: "alice"})

	cs.addClient(c)
	cs.rooms[roomId] = map[*Client]struct{}{c: {}}
	c.addRoom(roomId)

	cs.removeClient(c)

	assert.NotContains(t, cs.clients, c, "expected client removed")
	assert.NotContains(t, cs.rooms, roomId, "expected empty room dropped")
}

func TestChatServerShutdown(t *testing.T) {
	cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
	go cs.Run()

	done := make(chan struct{})
	go func() {
		cs.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete")
	}
}
