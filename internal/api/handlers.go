package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cassandra-chat/internal/database"
	"cassandra-chat/internal/server"
	"cassandra-chat/internal/stats"
	"cassandra-chat/internal/types"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateRoomRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	UserDisplayName string `json:"user_display_name"`
}

type JoinRoomRequest struct {
	UserDisplayName string   `json:"user_display_name"`
	Roles           []string `json:"roles"`
	RoomName        string   `json:"room_name"`
	RoomDescription string   `json:"room_description"`
}

type PostMessageRequest struct {
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type EditMessageRequest struct {
	CreatedAt  time.Time `json:"created_at"`
	SenderId   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
}

type DeleteMessageRequest struct {
	CreatedAt time.Time `json:"created_at"`
	SenderId  uuid.UUID `json:"sender_id"`
}

type MemberPageResponse struct {
	Members    []types.RoomMember `json:"members"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type MessagePageResponse struct {
	Messages   []types.Message `json:"messages"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

// storeError maps repository failures onto the HTTP error taxonomy.
func storeError(err error) *ApiError {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return NewNotFoundError()
	case errors.Is(err, database.ErrEmailTaken):
		return NewConflictError("user already exists")
	case database.IsTransient(err):
		return NewServiceUnavailableError(err)
	default:
		return NewInternalServerError(err)
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}

// parsePageQuery reads the optional cursor and page_size query parameters.
// The cursor is the ordering-key value echoed back from a prior page,
// RFC3339 with nanoseconds.
func parsePageQuery(r *http.Request) (time.Time, int, error) {
	var cursor time.Time
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, 0, err
		}
		cursor = t
	}

	var pageSize int
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return time.Time{}, 0, err
		}
		pageSize = n
	}

	return cursor, pageSize, nil
}

func cursorString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func toApiUser(u database.User) types.User {
	return types.User{
		UserId:    u.UserId,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func toApiMessage(m database.Message) types.Message {
	return types.Message{
		MessageId:  m.MessageId,
		RoomId:     m.RoomId,
		SenderId:   m.SenderId,
		SenderName: m.SenderName,
		Content:    m.Content,
		IsPinned:   m.IsPinned,
		CreatedAt:  m.CreatedAt,
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.CreateAccount(database.CreateAccountParams{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: pwdHash,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(stats.AccountsCreated)
	s.writeJson(w, http.StatusCreated, toApiUser(user))
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cred, err := s.db.GetCredentialByEmail(req.Email)
	if err != nil {
		// Absent email is the only identity detail disclosed; a wrong
		// password for a known email reports Unauthorized below.
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(cred.PasswordHash, req.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// Index and canonical record can diverge if a registration crashed
	// between its two writes; surfaced as NotFound.
	user, err := s.db.GetAccountById(cred.UserId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createSessionToken(user.UserId, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createSessionCookie(token, defaultExp))
	s.writeJson(w, http.StatusOK, toApiUser(user))
}

func (s *ChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired one
	http.SetCookie(w, createSessionCookie("", -time.Hour))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatApp) getUser(w http.ResponseWriter, r *http.Request) {
	userId, err := pathUUID(r, "userId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiUser(user))
}

func (s *ChatApp) getUserRooms(w http.ResponseWriter, r *http.Request) {
	userId, err := pathUUID(r, "userId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	rooms, err := s.db.ListRoomsForUser(userId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	summaries := make([]types.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, types.RoomSummary{
			RoomId:      room.RoomId,
			Name:        room.Name,
			Description: room.Description,
		})
	}

	s.writeJson(w, http.StatusOK, summaries)
}

func (s *ChatApp) createRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.CreateRoom(database.CreateRoomParams{
		Name:               req.Name,
		Description:        req.Description,
		CreatorId:          userId,
		CreatorDisplayName: req.UserDisplayName,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(stats.RoomsCreated)
	s.writeJson(w, http.StatusCreated, types.Room{
		RoomId:      room.RoomId,
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	})
}

func (s *ChatApp) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoom(roomId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.Room{
		RoomId:      room.RoomId,
		Name:        room.Name,
		Description: room.Description,
		CreatedAt:   room.CreatedAt,
	})
}

func (s *ChatApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// The join write trusts the caller's denormalized room name and
	// description, but the room itself must exist.
	if _, err := s.db.GetRoom(roomId); err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.JoinRoom(database.JoinRoomParams{
		RoomId:          roomId,
		UserId:          userId,
		DisplayName:     req.UserDisplayName,
		Roles:           req.Roles,
		RoomName:        req.RoomName,
		RoomDescription: req.RoomDescription,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.RoomMember{
		UserId:      member.UserId,
		DisplayName: member.DisplayName,
		Roles:       member.Roles,
		JoinedAt:    member.JoinedAt,
	})
}

func (s *ChatApp) listRoomMembers(w http.ResponseWriter, r *http.Request) {
	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cursor, pageSize, err := parsePageQuery(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := database.NormalizePageSize(pageSize, database.DefaultMemberPageSize)
	members, err := s.db.ListRoomMembers(roomId, cursor, limit)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	page := database.NewMemberPage(members, limit)
	resp := MemberPageResponse{
		Members:    make([]types.RoomMember, 0, len(page.Members)),
		NextCursor: cursorString(page.Cursor),
		HasMore:    page.HasMore,
	}
	for _, member := range page.Members {
		resp.Members = append(resp.Members, types.RoomMember{
			UserId:      member.UserId,
			DisplayName: member.DisplayName,
			Roles:       member.Roles,
			JoinedAt:    member.JoinedAt,
		})
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *ChatApp) countRoomMembers(w http.ResponseWriter, r *http.Request) {
	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.db.CountRoomMembers(roomId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, CountResponse{Count: count})
}

func (s *ChatApp) postMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:     roomId,
		SenderId:   userId,
		SenderName: req.SenderName,
		Content:    req.Content,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.stats.Incr(stats.MessagesPublished)
	if s.cs != nil {
		s.cs.Broadcast(toApiMessage(msg))
	}

	s.writeJson(w, http.StatusCreated, toApiMessage(msg))
}

func (s *ChatApp) listMessagesByRoom(w http.ResponseWriter, r *http.Request) {
	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cursor, pageSize, err := parsePageQuery(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := database.NormalizePageSize(pageSize, database.DefaultMessagePageSize)
	msgs, err := s.db.ListMessagesByRoom(roomId, cursor, limit)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, messagePageResponse(msgs, limit))
}

func (s *ChatApp) listMessagesBySender(w http.ResponseWriter, r *http.Request) {
	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	senderId, err := pathUUID(r, "senderId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	cursor, pageSize, err := parsePageQuery(r)
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	limit := database.NormalizePageSize(pageSize, database.DefaultMessagePageSize)
	msgs, err := s.db.ListMessagesBySender(roomId, senderId, cursor, limit)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, messagePageResponse(msgs, limit))
}

func messagePageResponse(msgs []database.Message, limit int) MessagePageResponse {
	page := database.NewMessagePage(msgs, limit)
	resp := MessagePageResponse{
		Messages:   make([]types.Message, 0, len(page.Messages)),
		NextCursor: cursorString(page.Cursor),
		HasMore:    page.HasMore,
	}
	for _, msg := range page.Messages {
		resp.Messages = append(resp.Messages, toApiMessage(msg))
	}
	return resp
}

func (s *ChatApp) editMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := pathUUID(r, "messageId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.CreatedAt.IsZero() || req.Content == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// Only the original sender may edit their message.
	if req.SenderId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.db.UpdateMessage(database.UpdateMessageParams{
		RoomId:     roomId,
		MessageId:  messageId,
		SenderId:   userId,
		CreatedAt:  req.CreatedAt,
		Content:    req.Content,
		SenderName: req.SenderName,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiMessage(msg))
}

func (s *ChatApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, err := pathUUID(r, "roomId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId, err := pathUUID(r, "messageId")
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req DeleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.CreatedAt.IsZero() {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.SenderId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	err = s.db.DeleteMessage(database.DeleteMessageParams{
		RoomId:    roomId,
		MessageId: messageId,
		SenderId:  userId,
		CreatedAt: req.CreatedAt,
	})
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		errResp := storeError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("ws upgrade: %v", err)
		return
	}

	client := server.NewClient(toApiUser(user), conn, s.cs, s.log)
	s.cs.RegisterChan <- client

	go client.Write()
	go client.Read()
}
