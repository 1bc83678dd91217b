// This file defines the session assistant: the stateless facade a chat
// session (and the REST controllers) use to compose token verification,
// user lookup, and message-store operations into high-level outcomes.

package websocket

import (
	"net/http"

	"livechat/internal/apperr"
	"livechat/internal/models"
)

// MessageStore is the persistence interface the chat core consumes.
// *database.DB satisfies it. Absent results are (nil, nil); an error means
// a storage failure.
type MessageStore interface {
	FilterChatMessages(search models.SearchChatMessage) ([]models.ChatMessage, error)
	CreateChatMessage(create models.CreateChatMessage) (*models.ChatMessage, error)
	ModifyChatMessage(id int, userID int, msg string) (*models.ChatMessage, error)
	DeleteChatMessage(id int, userID int) (*models.ChatMessage, error)
	GetChatMessage(id int) (*models.ChatMessage, error)
	GetChatMessageLogs(chatMessageID int) ([]models.ChatMessageLog, error)
	GetStreamLive(streamID int) (*bool, error)
	GetChatAccess(streamID int, userID *int) (*models.ChatAccess, error)
	GetBlockedUsers(userID int) ([]models.BlockedUser, error)
	CreateBlockedUser(create models.CreateBlockedUser) (*models.BlockedUser, error)
	DeleteBlockedUser(del models.DeleteBlockedUser) (*models.BlockedUser, error)
}

// UserLookup resolves a user id to its stored session record.
type UserLookup interface {
	GetUserSession(userID int) (*models.UserSession, error)
}

// TokenVerifier decodes an access token into a (user id, numeric token) pair.
type TokenVerifier interface {
	DecodeToken(token string) (userID int, numToken int, err error)
}

// Assistant composes the three collaborators into the outcomes the session
// needs. It is stateless and cheap to copy.
type Assistant struct {
	store  MessageStore
	users  UserLookup
	tokens TokenVerifier
}

// NewAssistant creates an Assistant bound to its collaborators.
func NewAssistant(store MessageStore, users UserLookup, tokens TokenVerifier) Assistant {
	return Assistant{store: store, users: users, tokens: tokens}
}

// DecodeAndVerifyToken locally decodes an access token. No I/O is performed.
func (a Assistant) DecodeAndVerifyToken(token string) (int, int, *apperr.StatusError) {
	userID, numToken, err := a.tokens.DecodeToken(token)
	if err != nil {
		return 0, 0, apperr.New(http.StatusUnauthorized, err.Error())
	}
	return userID, numToken, nil
}

// CheckNumTokenAndGetUser fetches the user's session record and confirms the
// numeric token matches the stored one.
func (a Assistant) CheckNumTokenAndGetUser(userID int, numToken int) (*models.UserSession, *apperr.StatusError) {
	session, err := a.users.GetUserSession(userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if session == nil {
		return nil, apperr.New(http.StatusNotAcceptable, apperr.MsgSessionNotFound)
	}
	if session.NumToken == nil || *session.NumToken != numToken {
		return nil, apperr.New(http.StatusUnauthorized, apperr.MsgUnacceptableTokenNum)
	}
	if session.Nickname == nil || *session.Nickname == "" {
		return nil, apperr.New(http.StatusUnauthorized, apperr.MsgUnacceptableTokenID)
	}
	return session, nil
}

// GetChatAccess fetches the access view gating a join.
func (a Assistant) GetChatAccess(streamID int, userID *int) (*models.ChatAccess, *apperr.StatusError) {
	access, err := a.store.GetChatAccess(streamID, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return access, nil
}

// GetStreamLive fetches the stream's live state.
func (a Assistant) GetStreamLive(streamID int) (*bool, *apperr.StatusError) {
	live, err := a.store.GetStreamLive(streamID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return live, nil
}

// ExecuteCreateChatMessage creates a new chat message.
func (a Assistant) ExecuteCreateChatMessage(streamID int, userID int, msg string) (*models.ChatMessage, *apperr.StatusError) {
	message, err := a.store.CreateChatMessage(models.CreateChatMessage{StreamID: streamID, UserID: userID, Msg: msg})
	if err != nil {
		return nil, apperr.Database(err)
	}
	return message, nil
}

// ExecuteModifyChatMessage edits (non-empty msg) or soft-deletes (empty msg)
// a chat message authored by userID.
func (a Assistant) ExecuteModifyChatMessage(id int, userID int, msg string) (*models.ChatMessage, *apperr.StatusError) {
	message, err := a.store.ModifyChatMessage(id, userID, msg)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return message, nil
}

// ExecuteDeleteChatMessage soft-deletes a chat message authored by userID,
// returning its prior state.
func (a Assistant) ExecuteDeleteChatMessage(id int, userID int) (*models.ChatMessage, *apperr.StatusError) {
	message, err := a.store.DeleteChatMessage(id, userID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return message, nil
}

// ExecuteBlockUser creates (isBlock) or removes a blocked-user record for
// the blocker against the user resolved from blockedID or blockedNickname.
func (a Assistant) ExecuteBlockUser(isBlock bool, blockerID int, blockedID *int, blockedNickname *string) (*models.BlockedUser, *apperr.StatusError) {
	var blocked *models.BlockedUser
	var err error
	if isBlock {
		blocked, err = a.store.CreateBlockedUser(models.CreateBlockedUser{
			UserID: blockerID, BlockedID: blockedID, BlockedNickname: blockedNickname,
		})
	} else {
		blocked, err = a.store.DeleteBlockedUser(models.DeleteBlockedUser{
			UserID: blockerID, BlockedID: blockedID, BlockedNickname: blockedNickname,
		})
	}
	if err != nil {
		return nil, apperr.Database(err)
	}
	return blocked, nil
}
