// This file defines the text-frame wire protocol: the inbound event grammar,
// the outbound notification shapes, and the precondition checks applied to
// inbound events.

package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"

	"livechat/internal/apperr"
	"livechat/internal/models"
)

// EventType identifies an inbound event by its discriminant key.
type EventType int

const (
	EventUnknown EventType = iota
	EventEcho
	EventName
	EventJoin
	EventLeave
	EventMsg
	EventMsgPut
	EventMsgCut
	EventMsgRmv
	EventBlock
	EventUnblock
	EventCount
)

// discriminants lists the recognized keys in the order they are probed.
// The first present key determines the event type.
var discriminants = []struct {
	key string
	typ EventType
}{
	{"echo", EventEcho},
	{"name", EventName},
	{"join", EventJoin},
	{"leave", EventLeave},
	{"msg", EventMsg},
	{"msgPut", EventMsgPut},
	{"msgCut", EventMsgCut},
	{"msgRmv", EventMsgRmv},
	{"block", EventBlock},
	{"unblock", EventUnblock},
	{"count", EventCount},
}

// InboundEvent is one parsed text frame.
type InboundEvent struct {
	Type   EventType
	fields map[string]json.RawMessage
}

// ParseEvent decodes a text frame into an InboundEvent. A frame that is not
// a JSON object, or carries no recognized key, is an error.
func ParseEvent(text string) (*InboundEvent, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("event is not a JSON object: %w", err)
	}
	for _, d := range discriminants {
		if _, ok := fields[d.key]; ok {
			return &InboundEvent{Type: d.typ, fields: fields}, nil
		}
	}
	return nil, fmt.Errorf("event type not recognized")
}

// GetString returns the string value of a field, or "" when the field is
// absent or not a string.
func (e *InboundEvent) GetString(key string) string {
	raw, ok := e.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// GetInt returns the integer value of a field, or 0 when the field is
// absent or not an integer.
func (e *InboundEvent) GetInt(key string) int {
	raw, ok := e.fields[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// --- Outbound notifications ---

// EchoEWS echoes a client-supplied string.
type EchoEWS struct {
	Echo string `json:"echo"`
}

// NameEWS confirms the session's display name.
type NameEWS struct {
	Name string `json:"name"`
}

// JoinEWS announces a member joining a room. IsOwner and IsBlocked are only
// present on the frame sent to the joiner itself.
type JoinEWS struct {
	Join      int    `json:"join"`
	Member    string `json:"member"`
	Count     int    `json:"count"`
	IsOwner   *bool  `json:"is_owner,omitempty"`
	IsBlocked *bool  `json:"is_blocked,omitempty"`
}

// LeaveEWS announces a member leaving a room.
type LeaveEWS struct {
	Leave  int    `json:"leave"`
	Member string `json:"member"`
	Count  int    `json:"count"`
}

// CountEWS reports the current member count of the session's room.
type CountEWS struct {
	Count int `json:"count"`
}

// MsgEWS carries a created or updated chat message to every room member.
type MsgEWS struct {
	Msg     string  `json:"msg"`
	ID      int     `json:"id"`
	Member  string  `json:"member"`
	Date    string  `json:"date"`
	DateEdt *string `json:"date_edt,omitempty"`
	DateRmv *string `json:"date_rmv,omitempty"`
}

// NewMsgEWS converts a stored chat message to its fan-out shape.
func NewMsgEWS(m *models.ChatMessage) MsgEWS {
	msg := ""
	if m.Msg != nil {
		msg = *m.Msg
	}
	return MsgEWS{
		Msg:     msg,
		ID:      m.ID,
		Member:  m.UserName,
		Date:    models.FormatTime(m.DateCreated),
		DateEdt: models.FormatTimePtr(m.DateChanged),
		DateRmv: models.FormatTimePtr(m.DateRemoved),
	}
}

// MsgRmvEWS announces a message removal; only the id travels.
type MsgRmvEWS struct {
	MsgRmv int `json:"msgRmv"`
}

// BlockEWS reports the outcome of a block command, and is also the directive
// delivered to the blocked member.
type BlockEWS struct {
	Block    string `json:"block"`
	IsInChat bool   `json:"is_in_chat"`
}

// UnblockEWS is the unblock counterpart of BlockEWS.
type UnblockEWS struct {
	Unblock  string `json:"unblock"`
	IsInChat bool   `json:"is_in_chat"`
}

// ErrEWS is the single error frame produced by a failing event.
type ErrEWS struct {
	Err     int    `json:"err"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrEWS converts a StatusError to its wire shape.
func NewErrEWS(serr *apperr.StatusError) ErrEWS {
	return ErrEWS{Err: serr.Status, Code: serr.Code, Message: serr.Message}
}

// --- Precondition checks ---

// checkIsNotEmpty requires a non-empty string field.
func checkIsNotEmpty(value string, name string) *apperr.StatusError {
	if value == "" {
		return apperr.Newf(http.StatusBadRequest, "%s; name: '%s'", apperr.MsgParameterNotDefined, name)
	}
	return nil
}

// checkIsGreaterThanZero requires a positive integer field.
func checkIsGreaterThanZero(value int, name string) *apperr.StatusError {
	if value <= 0 {
		return apperr.Newf(http.StatusBadRequest, "%s; name: '%s'", apperr.MsgParameterNotDefined, name)
	}
	return nil
}

// checkIsJoinedRoom requires that the session has joined a room.
func checkIsJoinedRoom(roomID int) *apperr.StatusError {
	if roomID == 0 {
		return apperr.New(http.StatusNotAcceptable, apperr.MsgThereWasNoJoin)
	}
	return nil
}

// checkIsBlocked requires that the session is not muted.
func checkIsBlocked(isBlocked bool) *apperr.StatusError {
	if isBlocked {
		return apperr.New(http.StatusForbidden, apperr.MsgBlockOnSendMessages)
	}
	return nil
}

// checkIsOwnerRoom requires that the session's user owns the stream.
func checkIsOwnerRoom(isOwner bool) *apperr.StatusError {
	if !isOwner {
		return apperr.New(http.StatusForbidden, apperr.MsgStreamOwnerRightsMissing)
	}
	return nil
}
