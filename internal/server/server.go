package server

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"cassandra-chat/internal/database"
	"cassandra-chat/internal/stats"
	"cassandra-chat/internal/types"
)

// ChatServer fans live messages out to websocket clients. Rooms here are
// just subscription sets keyed by room id; history lives in the store and
// is paged over HTTP.
type ChatServer struct {
	log            *log.Logger
	db             database.ChatRepository
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	rooms          map[uuid.UUID]map[*Client]struct{}
	joinChan       chan *ClientMessage
	leaveChan      chan *ClientMessage
	publishChan    chan *ClientMessage
	broadcastChan  chan types.Message
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, sp stats.StatsProvider) (*ChatServer, error) {
	if db == nil {
		return nil, errors.New("nil repository")
	}

	return &ChatServer{
		log:            logger,
		db:             db,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[uuid.UUID]map[*Client]struct{}),
		joinChan:       make(chan *ClientMessage, 256),
		leaveChan:      make(chan *ClientMessage, 256),
		publishChan:    make(chan *ClientMessage, 256),
		broadcastChan:  make(chan types.Message, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case msg := <-cs.joinChan:
			cs.handleJoin(msg)
		case msg := <-cs.leaveChan:
			cs.handleLeave(msg)
		case msg := <-cs.publishChan:
			cs.handlePublish(msg)
		case apiMsg := <-cs.broadcastChan:
			cs.broadcastToRoom(&ServerMessage{
				BaseMessage: BaseMessage{Timestamp: Now()},
				Message:     &apiMsg,
			}, apiMsg.RoomId)
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
			cs.stats.Incr(stats.ActiveConnections)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
			cs.stats.Decr(stats.ActiveConnections)
		case <-cs.stop:
			close(cs.done)
			return
		}
	}
}

func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	roomId := msg.Join.RoomId
	if _, ok := cs.rooms[roomId]; !ok {
		if _, err := cs.db.GetRoom(roomId); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				msg.client.queueMessage(ErrRoomNotFound(msg.Id))
			} else {
				cs.log.Printf("join: get room: %v", err)
				msg.client.queueMessage(ErrInternalError(msg.Id))
			}
			return
		}

		cs.rooms[roomId] = make(map[*Client]struct{})
	}

	cs.rooms[roomId][msg.client] = struct{}{}
	msg.client.addRoom(roomId)
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"room_id": roomId}))
}

func (cs *ChatServer) handleLeave(msg *ClientMessage) {
	roomId := msg.Leave.RoomId
	if subscribers, ok := cs.rooms[roomId]; ok {
		delete(subscribers, msg.client)
		if len(subscribers) == 0 {
			delete(cs.rooms, roomId)
		}
	}

	msg.client.delRoom(roomId)
	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"room_id": roomId}))
}

func (cs *ChatServer) handlePublish(msg *ClientMessage) {
	roomId := msg.Publish.RoomId
	if !msg.client.inRoom(roomId) {
		msg.client.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	saved, err := cs.db.CreateMessage(database.CreateMessageParams{
		RoomId:     roomId,
		SenderId:   msg.UserId,
		SenderName: msg.Publish.SenderName,
		Content:    msg.Publish.Content,
	})
	if err != nil {
		cs.log.Printf("publish: create message: %v", err)
		if database.IsTransient(err) {
			msg.client.queueMessage(ErrServiceUnavailable(msg.Id))
		} else {
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	cs.stats.Incr(stats.MessagesPublished)
	cs.broadcastToRoom(&ServerMessage{
		BaseMessage: BaseMessage{Id: msg.Id, Timestamp: Now()},
		Message: &types.Message{
			MessageId:  saved.MessageId,
			RoomId:     saved.RoomId,
			SenderId:   saved.SenderId,
			SenderName: saved.SenderName,
			Content:    saved.Content,
			IsPinned:   saved.IsPinned,
			CreatedAt:  saved.CreatedAt,
		},
	}, roomId)
}

// Broadcast pushes a message saved elsewhere (the HTTP API) to the
// room's live subscribers. Non-blocking so a slow fanout never stalls
// a request handler.
func (cs *ChatServer) Broadcast(msg types.Message) {
	select {
	case cs.broadcastChan <- msg:
	default:
		cs.log.Printf("broadcast channel full, dropping message %s", msg.MessageId)
	}
}

func (cs *ChatServer) broadcastToRoom(sm *ServerMessage, roomId uuid.UUID) {
	for client := range cs.rooms[roomId] {
		if client == sm.SkipClient {
			continue
		}
		client.queueMessage(sm)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)

	for _, roomId := range c.roomIds() {
		if subscribers, ok := cs.rooms[roomId]; ok {
			delete(subscribers, c)
			if len(subscribers) == 0 {
				delete(cs.rooms, roomId)
			}
		}
	}
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		close(c.stop)
	}
	cs.clientsLock.Unlock()

	close(cs.stop)
	<-cs.done
}
