// Package models defines the core data structures used throughout the application,
// representing database entities, API request/response bodies, and internal data contracts.
package models

import (
	"time"
)

// --- Validation bounds ---

const (
	// MessageMin and MessageMax bound the length of a chat message body.
	MessageMin = 1
	MessageMax = 255

	// BlockedNicknameMin and BlockedNicknameMax bound the length of a nickname
	// used to block or unblock a user.
	BlockedNicknameMin = 3
	BlockedNicknameMax = 64
)

// TimeFormatMs is the wire format for dates: RFC 3339 with millisecond
// precision and a trailing Z.
const TimeFormatMs = "2006-01-02T15:04:05.000Z"

// FormatTime renders a timestamp in the wire format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormatMs)
}

// FormatTimePtr renders an optional timestamp, returning nil when absent.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// --- Database entities ---

// ChatMessage is the unit of user speech in a stream's chat room.
// Msg is NULL once the message has been soft-deleted.
type ChatMessage struct {
	ID          int        `db:"id" json:"id"`
	StreamID    int        `db:"stream_id" json:"streamId"`
	UserID      int        `db:"user_id" json:"userId"`
	UserName    string     `db:"user_name" json:"userName"`
	Msg         *string    `db:"msg" json:"msg"`
	DateCreated time.Time  `db:"date_created" json:"dateCreated"`
	DateChanged *time.Time `db:"date_changed" json:"dateChanged"`
	DateRemoved *time.Time `db:"date_removed" json:"dateRemoved"`
}

// ChatMessageLog keeps the prior body of an edited or soft-deleted message.
type ChatMessageLog struct {
	ID            int       `db:"id" json:"id"`
	ChatMessageID int       `db:"chat_message_id" json:"chatMessageId"`
	OldMsg        string    `db:"old_msg" json:"oldMsg"`
	DateUpdate    time.Time `db:"date_update" json:"dateUpdate"`
}

// BlockedUser is a directed (blocker, blocked) pair. At most one record
// exists per pair.
type BlockedUser struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"userId"`
	BlockedID       int       `db:"blocked_id" json:"blockedId"`
	BlockedNickname string    `db:"blocked_nickname" json:"blockedNickname"`
	BlockDate       time.Time `db:"block_date" json:"blockDate"`
}

// ChatAccess is the read-only view that gates joining a stream's chat.
// IsBlocked is computed against the requesting user; for anonymous
// requesters it is conservatively true.
type ChatAccess struct {
	StreamID    int  `db:"stream_id" json:"streamId"`
	StreamOwner int  `db:"stream_owner" json:"streamOwner"`
	StreamLive  bool `db:"stream_live" json:"streamLive"`
	IsBlocked   bool `db:"is_blocked" json:"isBlocked"`
}

// UserSession is the stored session state a decoded token is checked against.
// Nickname comes from the user row and may be absent when the user record
// is gone while the session row lingers.
type UserSession struct {
	UserID   int     `db:"user_id" json:"userId"`
	Nickname *string `db:"nickname" json:"nickname"`
	Role     *string `db:"role" json:"role"`
	NumToken *int    `db:"num_token" json:"numToken"`
}

// RoleAdmin marks users that may act on messages authored by others.
const RoleAdmin = "admin"

// IsAdmin reports whether the session's user carries the admin role.
func (u *UserSession) IsAdmin() bool {
	return u.Role != nil && *u.Role == RoleAdmin
}

// --- Store operation parameters ---

// CreateChatMessage carries the parameters for creating a chat message.
type CreateChatMessage struct {
	StreamID int
	UserID   int
	Msg      string
}

// SearchChatMessage filters chat messages of a stream. Date bounds are an
// open interval on date_created.
type SearchChatMessage struct {
	StreamID       int
	IsSortDesc     *bool
	MinDateCreated *time.Time
	MaxDateCreated *time.Time
	Limit          *int
}

// SearchChatMessageLimitDefault is applied when no limit is requested.
const SearchChatMessageLimitDefault = 20

// CreateBlockedUser carries the parameters for creating a blocked-user record.
// Exactly one of BlockedID / BlockedNickname must resolve to an existing user.
type CreateBlockedUser struct {
	UserID          int
	BlockedID       *int
	BlockedNickname *string
}

// DeleteBlockedUser carries the parameters for removing a blocked-user record,
// with the same resolution rule as CreateBlockedUser.
type DeleteBlockedUser struct {
	UserID          int
	BlockedID       *int
	BlockedNickname *string
}

// --- API request payloads ---

// CreateChatMessageDto is the body of POST /api/chat_messages.
type CreateChatMessageDto struct {
	StreamID int    `json:"streamId" validate:"required,gt=0"`
	Msg      string `json:"msg" validate:"required,min=1,max=255"`
}

// ModifyChatMessageDto is the body of PUT /api/chat_messages/{id}.
type ModifyChatMessageDto struct {
	Msg string `json:"msg" validate:"required,min=1,max=255"`
}

// BlockedUserParamsDto is the body of POST and DELETE /api/blocked_users.
type BlockedUserParamsDto struct {
	BlockedID       *int    `json:"blockedId" validate:"omitempty,gt=0"`
	BlockedNickname *string `json:"blockedNickname" validate:"omitempty,min=3,max=64"`
}

// --- API response payloads ---

// ChatMessageDto is the REST representation of a chat message. Dates use the
// wire format (RFC 3339, millisecond precision, trailing Z).
type ChatMessageDto struct {
	ID      int     `json:"id"`
	Msg     string  `json:"msg"`
	Member  string  `json:"member"`
	Date    string  `json:"date"`
	DateEdt *string `json:"date_edt,omitempty"`
	DateRmv *string `json:"date_rmv,omitempty"`
}

// NewChatMessageDto converts a stored chat message to its REST shape.
func NewChatMessageDto(m *ChatMessage) ChatMessageDto {
	msg := ""
	if m.Msg != nil {
		msg = *m.Msg
	}
	return ChatMessageDto{
		ID:      m.ID,
		Msg:     msg,
		Member:  m.UserName,
		Date:    FormatTime(m.DateCreated),
		DateEdt: FormatTimePtr(m.DateChanged),
		DateRmv: FormatTimePtr(m.DateRemoved),
	}
}

// BlockedUserDto is the REST representation of a blocked-user record.
type BlockedUserDto struct {
	ID              int    `json:"id"`
	BlockedID       int    `json:"blockedId"`
	BlockedNickname string `json:"blockedNickname"`
	BlockDate       string `json:"blockDate"`
}

// NewBlockedUserDto converts a stored blocked-user record to its REST shape.
func NewBlockedUserDto(b *BlockedUser) BlockedUserDto {
	return BlockedUserDto{
		ID:              b.ID,
		BlockedID:       b.BlockedID,
		BlockedNickname: b.BlockedNickname,
		BlockDate:       FormatTime(b.BlockDate),
	}
}

// ChatMessageLogDto is the REST representation of one edit-history entry.
type ChatMessageLogDto struct {
	ID            int    `json:"id"`
	ChatMessageID int    `json:"chatMessageId"`
	OldMsg        string `json:"oldMsg"`
	DateUpdate    string `json:"dateUpdate"`
}

// NewChatMessageLogDto converts a stored edit-history entry to its REST shape.
func NewChatMessageLogDto(l *ChatMessageLog) ChatMessageLogDto {
	return ChatMessageLogDto{
		ID:            l.ID,
		ChatMessageID: l.ChatMessageID,
		OldMsg:        l.OldMsg,
		DateUpdate:    FormatTime(l.DateUpdate),
	}
}
