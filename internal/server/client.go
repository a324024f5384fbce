package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cassandra-chat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *ServerMessage
	rooms      map[uuid.UUID]struct{}
	roomsLock  sync.RWMutex
	stop       chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		rooms:      make(map[uuid.UUID]struct{}),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.UserId = c.user.UserId
		msg.Timestamp = Now()

		switch {
		case msg.Join != nil:
			c.dispatch(c.chatServer.joinChan, &msg)
		case msg.Leave != nil:
			c.dispatch(c.chatServer.leaveChan, &msg)
		case msg.Publish != nil:
			c.dispatch(c.chatServer.publishChan, &msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

func (c *Client) dispatch(ch chan *ClientMessage, msg *ClientMessage) {
	select {
	case ch <- msg:
	default:
		c.log.Printf("server channel full, rejecting message %d", msg.Id)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterChan <- c
	close(c.stop)
}

func (c *Client) addRoom(roomId uuid.UUID) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	c.rooms[roomId] = struct{}{}
}

func (c *Client) delRoom(roomId uuid.UUID) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	delete(c.rooms, roomId)
}

func (c *Client) inRoom(roomId uuid.UUID) bool {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()
	_, ok := c.rooms[roomId]
	return ok
}

func (c *Client) roomIds() []uuid.UUID {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()

	ids := make([]uuid.UUID, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}
