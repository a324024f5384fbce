package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(userId uuid.UUID) (User, error) {
	args := m.Called(userId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetCredentialByEmail(email string) (Credential, error) {
	args := m.Called(email)
	return args.Get(0).(Credential), args.Error(1)
}
func (m *MockChatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) GetRoom(roomId uuid.UUID) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockChatRepository) JoinRoom(params JoinRoomParams) (RoomMember, error) {
	args := m.Called(params)
	return args.Get(0).(RoomMember), args.Error(1)
}
func (m *MockChatRepository) ListRoomMembers(roomId uuid.UUID, afterJoinedAt time.Time, pageSize int) ([]RoomMember, error) {
	args := m.Called(roomId, afterJoinedAt, pageSize)
	return args.Get(0).([]RoomMember), args.Error(1)
}
func (m *MockChatRepository) CountRoomMembers(roomId uuid.UUID) (int64, error) {
	args := m.Called(roomId)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockChatRepository) ListRoomsForUser(userId uuid.UUID) ([]RoomSummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]RoomSummary), args.Error(1)
}
func (m *MockChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) UpdateMessage(params UpdateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) DeleteMessage(params DeleteMessageParams) error {
	args := m.Called(params)
	return args.Error(0)
}
func (m *MockChatRepository) ListMessagesByRoom(roomId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	args := m.Called(roomId, beforeCreatedAt, pageSize)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) ListMessagesBySender(roomId, senderId uuid.UUID, beforeCreatedAt time.Time, pageSize int) ([]Message, error) {
	args := m.Called(roomId, senderId, beforeCreatedAt, pageSize)
	return args.Get(0).([]Message), args.Error(1)
}
