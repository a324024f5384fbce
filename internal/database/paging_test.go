package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePageSize(t *testing.T) {
	tcases := []struct {
		name      string
		requested int
		def       int
		expected  int
	}{
		{
			name:      "positive value is honored",
			requested: 25,
			def:       100,
			expected:  25,
		},
		{
			name:      "zero falls back to default",
			requested: 0,
			def:       100,
			expected:  100,
		},
		{
			name:      "negative falls back to default",
			requested: -3,
			def:       5,
			expected:  5,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormalizePageSize(tc.requested, tc.def))
		})
	}
}

func TestNewMessagePage(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{Content: "third", CreatedAt: base.Add(3 * time.Second)},
		{Content: "second", CreatedAt: base.Add(2 * time.Second)},
		{Content: "first", CreatedAt: base.Add(time.Second)},
	}

	t.Run("full page implies more and carries the last key", func(t *testing.T) {
		page := NewMessagePage(msgs, 3)
		assert.True(t, page.HasMore)
		assert.Equal(t, base.Add(time.Second), page.Cursor, "cursor should be the last item's created_at")
	})

	t.Run("short page is terminal", func(t *testing.T) {
		page := NewMessagePage(msgs, 5)
		assert.False(t, page.HasMore)
		assert.True(t, page.Cursor.IsZero())
	})

	t.Run("empty page is terminal", func(t *testing.T) {
		page := NewMessagePage(nil, 100)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.Messages)
	})
}

func TestNewMemberPage(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	members := []RoomMember{
		{DisplayName: "a", JoinedAt: base},
		{DisplayName: "b", JoinedAt: base.Add(time.Minute)},
	}

	page := NewMemberPage(members, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, base.Add(time.Minute), page.Cursor, "cursor should be the last member's joined_at")

	page = NewMemberPage(members, 5)
	assert.False(t, page.HasMore)
}
