package websocket

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"livechat/internal/models"
)

// fakeUser is one seeded account.
type fakeUser struct {
	id       int
	nickname string
	role     string
	numToken int
}

// fakeStream is one seeded stream.
type fakeStream struct {
	id    int
	owner int
	live  bool
}

// fakeStore is an in-memory MessageStore, UserLookup, and TokenVerifier for
// the chat core tests.
type fakeStore struct {
	mu sync.Mutex

	users   map[int]fakeUser
	streams map[int]fakeStream
	tokens  map[string][2]int // token -> (user id, num token)

	messages      map[int]*models.ChatMessage
	nextMessageID int

	blocked       map[[2]int]*models.BlockedUser // (user id, blocked id)
	nextBlockedID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int]fakeUser{},
		streams:  map[int]fakeStream{},
		tokens:   map[string][2]int{},
		messages: map[int]*models.ChatMessage{},
		blocked:  map[[2]int]*models.BlockedUser{},
	}
}

func (f *fakeStore) addUser(id int, nickname string, numToken int) {
	f.users[id] = fakeUser{id: id, nickname: nickname, role: "user", numToken: numToken}
}

func (f *fakeStore) addStream(id int, owner int, live bool) {
	f.streams[id] = fakeStream{id: id, owner: owner, live: live}
}

func (f *fakeStore) addToken(token string, userID int, numToken int) {
	f.tokens[token] = [2]int{userID, numToken}
}

// --- TokenVerifier ---

func (f *fakeStore) DecodeToken(token string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair, ok := f.tokens[token]
	if !ok {
		return 0, 0, fmt.Errorf("token is malformed")
	}
	return pair[0], pair[1], nil
}

// --- UserLookup ---

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

// --- MessageStore ---

func (f *fakeStore) FilterChatMessages(search models.SearchChatMessage) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.messages {
		if m.StreamID != search.StreamID {
			continue
		}
		if search.MinDateCreated != nil && !m.DateCreated.After(*search.MinDateCreated) {
			continue
		}
		if search.MaxDateCreated != nil && !m.DateCreated.Before(*search.MaxDateCreated) {
			continue
		}
		out = append(out, *m)
	}
	desc := search.IsSortDesc != nil && *search.IsSortDesc
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DateCreated.Equal(b.DateCreated) {
			if desc {
				return a.DateCreated.After(b.DateCreated)
			}
			return a.DateCreated.Before(b.DateCreated)
		}
		if desc {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
	limit := models.SearchChatMessageLimitDefault
	if search.Limit != nil && *search.Limit > 0 {
		limit = *search.Limit
	}
	if len(out) > limit {
		out = out[:limit]
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
	return []models.ChatMessageLog{}, nil
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
	return &models.ChatAccess{
		StreamID:    stream.id,
		StreamOwner: stream.owner,
		StreamLive:  stream.live,
		IsBlocked:   isBlocked,
	}, nil
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
