package handlers

import (
	"fmt"
	"sync"
	"time"

	"livechat/internal/models"
)

// fakeStore is an in-memory implementation of the store, lookup, and token
// interfaces the handlers consume.
type fakeStore struct {
	mu sync.Mutex

	users   map[int]fakeUser
	streams map[int]fakeStream
	tokens  map[string][2]int

	messages      map[int]*models.ChatMessage
	nextMessageID int

	logs map[int][]models.ChatMessageLog

	blocked       map[[2]int]*models.BlockedUser
	nextBlockedID int
}

type fakeUser struct {
	id       int
	nickname string
	role     string
	numToken int
}

type fakeStream struct {
	id    int
	owner int
	live  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int]fakeUser{},
		streams:  map[int]fakeStream{},
		tokens:   map[string][2]int{},
		messages: map[int]*models.ChatMessage{},
		logs:     map[int][]models.ChatMessageLog{},
		blocked:  map[[2]int]*models.BlockedUser{},
	}
}

func (f *fakeStore) addUser(id int, nickname string, role string, numToken int) {
	f.users[id] = fakeUser{id: id, nickname: nickname, role: role, numToken: numToken}
}

func (f *fakeStore) addStream(id int, owner int, live bool) {
	f.streams[id] = fakeStream{id: id, owner: owner, live: live}
}

func (f *fakeStore) addToken(token string, userID int, numToken int) {
	f.tokens[token] = [2]int{userID, numToken}
}

func (f *fakeStore) DecodeToken(token string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.tokens[token]
	if !ok {
		return 0, 0, fmt.Errorf("token is malformed")
	}
	return pair[0], pair[1], nil
}

func (f *fakeStore) GetUserSession(userID int) (*models.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	nickname := user.nickname
	role := user.role
	numToken := user.numToken
	return &models.UserSession{UserID: user.id, Nickname: &nickname, Role: &role, NumToken: &numToken}, nil
}

func (f *fakeStore) FilterChatMessages(search models.SearchChatMessage) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ChatMessage{}
	for _, m := range f.messages {
		if m.StreamID == search.StreamID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateChatMessage(create models.CreateChatMessage) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, userOK := f.users[create.UserID]
	_, streamOK := f.streams[create.StreamID]
	if !userOK || !streamOK || create.Msg == "" {
		return nil, nil
	}
	f.nextMessageID++
	msg := create.Msg
	message := &models.ChatMessage{
		ID:          f.nextMessageID,
		StreamID:    create.StreamID,
		UserID:      create.UserID,
		UserName:    user.nickname,
		Msg:         &msg,
		DateCreated: time.Now().UTC(),
	}
	f.messages[message.ID] = message
	copied := *message
	return &copied, nil
}

func (f *fakeStore) ModifyChatMessage(id int, userID int, msg string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[id]
	if !ok || message.UserID != userID {
		return nil, nil
	}
	if message.Msg != nil {
		f.logs[id] = append(f.logs[id], models.ChatMessageLog{
			ID: len(f.logs[id]) + 1, ChatMessageID: id, OldMsg: *message.Msg, DateUpdate: time.Now().UTC(),
		})
	}
	now := time.Now().UTC()
	if msg == "" {
		message.Msg = nil
		message.DateRemoved = &now
	} else {
		body := msg
		message.Msg = &body
		message.DateChanged = &now
	}
	copied := *message
	return &copied, nil
}

func (f *fakeStore) DeleteChatMessage(id int, userID int) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[id]
	if !ok || message.UserID != userID {
		return nil, nil
	}
	prior := *message
	now := time.Now().UTC()
	message.Msg = nil
	if message.DateRemoved == nil {
		message.DateRemoved = &now
	}
	return &prior, nil
}

func (f *fakeStore) GetChatMessage(id int) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	message, ok := f.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *message
	return &copied, nil
}

func (f *fakeStore) GetChatMessageLogs(chatMessageID int) ([]models.ChatMessageLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatMessageLog{}, f.logs[chatMessageID]...), nil
}

func (f *fakeStore) GetStreamLive(streamID int) (*bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream, ok := f.streams[streamID]
	if !ok {
		return nil, nil
	}
	live := stream.live
	return &live, nil
}

func (f *fakeStore) GetChatAccess(streamID int, userID *int) (*models.ChatAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream, ok := f.streams[streamID]
	if !ok {
		return nil, nil
	}
	isBlocked := true
	if userID != nil {
		_, isBlocked = f.blocked[[2]int{stream.owner, *userID}]
	}
	return &models.ChatAccess{StreamID: stream.id, StreamOwner: stream.owner, StreamLive: stream.live, IsBlocked: isBlocked}, nil
}

func (f *fakeStore) GetBlockedUsers(userID int) ([]models.BlockedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.BlockedUser{}
	for key, b := range f.blocked {
		if key[0] == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBlockedUser(create models.CreateBlockedUser) (*models.BlockedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.resolveLocked(create.BlockedID, create.BlockedNickname)
	if !ok {
		return nil, nil
	}
	key := [2]int{create.UserID, target.id}
	if existing, ok := f.blocked[key]; ok {
		copied := *existing
		return &copied, nil
	}
	f.nextBlockedID++
	record := &models.BlockedUser{
		ID:              f.nextBlockedID,
		UserID:          create.UserID,
		BlockedID:       target.id,
		BlockedNickname: target.nickname,
		BlockDate:       time.Now().UTC(),
	}
	f.blocked[key] = record
	copied := *record
	return &copied, nil
}

func (f *fakeStore) DeleteBlockedUser(del models.DeleteBlockedUser) (*models.BlockedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.resolveLocked(del.BlockedID, del.BlockedNickname)
	if !ok {
		return nil, nil
	}
	key := [2]int{del.UserID, target.id}
	record, ok := f.blocked[key]
	if !ok {
		return nil, nil
	}
	delete(f.blocked, key)
	copied := *record
	return &copied, nil
}

func (f *fakeStore) resolveLocked(blockedID *int, blockedNickname *string) (fakeUser, bool) {
	if blockedID != nil {
		user, ok := f.users[*blockedID]
		return user, ok
	}
	if blockedNickname != nil {
		for _, user := range f.users {
			if user.nickname == *blockedNickname {
				return user, true
			}
		}
	}
	return fakeUser{}, false
}
