package database

import "time"

// Default page sizes per endpoint. Only positive caller-supplied values are
// honored; anything else falls back to these.
const (
	DefaultMemberPageSize  = 5
	DefaultMessagePageSize = 100
)

// NormalizePageSize returns requested if it is positive, def otherwise.
func NormalizePageSize(requested, def int) int {
	if requested > 0 {
		return requested
	}
	return def
}

// MessagePage is one page of a reverse-chronological message listing. Cursor
// is the created_at of the last item and is only meaningful when HasMore is
// true; the client echoes it back verbatim and the next query resumes with a
// strict '<' comparison, so the boundary row is never repeated.
type MessagePage struct {
	Messages []Message
	Cursor   time.Time
	HasMore  bool
}

// NewMessagePage derives the cursor and HasMore from a fetched slice. A short
// page implies the partition is exhausted; a full page may or may not have a
// successor, which the client discovers by asking.
func NewMessagePage(messages []Message, limit int) MessagePage {
	p := MessagePage{Messages: messages}
	if len(messages) == limit && limit > 0 {
		p.HasMore = true
		p.Cursor = messages[len(messages)-1].CreatedAt
	}
	return p
}

// MemberPage is one page of a room's member listing, ascending by joined_at.
type MemberPage struct {
	Members []RoomMember
	Cursor  time.Time
	HasMore bool
}

func NewMemberPage(members []RoomMember, limit int) MemberPage {
	p := MemberPage{Members: members}
	if len(members) == limit && limit > 0 {
		p.HasMore = true
		p.Cursor = members[len(members)-1].JoinedAt
	}
	return p
}
