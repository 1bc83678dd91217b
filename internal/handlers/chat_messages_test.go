package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"livechat/internal/models"
	appwebsocket "livechat/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the REST surface the way cmd/api does, over a fake store.
func newTestRouter(store *fakeStore) *chi.Mux {
	validate := validator.New()
	assistant := appwebsocket.NewAssistant(store, store, store)
	authGuard := &Auth{Assistant: assistant}
	chatMessagesHandler := NewChatMessagesHandler(store, validate)
	blockedUsersHandler := NewBlockedUsersHandler(store, validate)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authGuard.Middleware)

			r.Get("/chat_messages", chatMessagesHandler.Filter)
			r.Post("/chat_messages", chatMessagesHandler.Create)
			r.Put("/chat_messages/{id}", chatMessagesHandler.Update)
			r.Delete("/chat_messages/{id}", chatMessagesHandler.Delete)
			r.Get("/chat_messages/{id}/logs", chatMessagesHandler.Logs)

			r.Get("/blocked_users/{streamId}", blockedUsersHandler.List)
			r.Post("/blocked_users", blockedUsersHandler.Create)
			r.Delete("/blocked_users", blockedUsersHandler.Delete)
		})
	})
	return r
}

// restStore seeds user 1 "Owner" (stream 1), user 2 "Viewer", and admin 9.
func restStore() *fakeStore {
	store := newFakeStore()
	store.addUser(1, "Owner", "user", 11)
	store.addUser(2, "Viewer", "user", 22)
	store.addUser(9, "Admin", models.RoleAdmin, 99)
	store.addToken("tokOwner", 1, 11)
	store.addToken("tokViewer", 2, 22)
	store.addToken("tokAdmin", 9, 99)
	store.addStream(1, 1, true)
	return store
}

func doRequest(t *testing.T, router *chi.Mux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateChatMessageRequiresAuth(t *testing.T) {
	router := newTestRouter(restStore())

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "",
		models.CreateChatMessageDto{StreamID: 1, Msg: "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/chat_messages", "bogus",
		models.CreateChatMessageDto{StreamID: 1, Msg: "hi"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChatMessageBodyBounds(t *testing.T) {
	router := newTestRouter(restStore())

	cases := []struct {
		length int
		status int
	}{
		{0, http.StatusExpectationFailed},
		{1, http.StatusCreated},
		{255, http.StatusCreated},
		{256, http.StatusExpectationFailed},
	}
	for _, tc := range cases {
		rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
			models.CreateChatMessageDto{StreamID: 1, Msg: strings.Repeat("a", tc.length)})
		assert.Equal(t, tc.status, rec.Code, "body length %d", tc.length)
	}
}

func TestCreateChatMessageUnknownStream(t *testing.T) {
	router := newTestRouter(restStore())

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 42, Msg: "hi"})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Contains(t, rec.Body.String(), "parameter_unacceptable")
}

func TestCreateChatMessageReturnsDto(t *testing.T) {
	router := newTestRouter(restStore())

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 1, Msg: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var dto models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "hello", dto.Msg)
	assert.Equal(t, "Owner", dto.Member)
	assert.NotZero(t, dto.ID)
	assert.Nil(t, dto.DateEdt)
	assert.Nil(t, dto.DateRmv)
}

func TestUpdateChatMessage(t *testing.T) {
	store := restStore()
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 1, Msg: "first"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Author edit succeeds and stamps date_edt.
	rec = doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/chat_messages/%d", created.ID), "tokOwner",
		models.ModifyChatMessageDto{Msg: "second"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "second", updated.Msg)
	assert.NotNil(t, updated.DateEdt)

	// A non-author cannot touch it.
	rec = doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/chat_messages/%d", created.ID), "tokViewer",
		models.ModifyChatMessageDto{Msg: "hack"})
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)

	// Non-integer path id.
	rec = doRequest(t, router, http.MethodPut, "/api/chat_messages/abc", "tokOwner",
		models.ModifyChatMessageDto{Msg: "x"})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
}

func TestAdminEditOnBehalf(t *testing.T) {
	store := restStore()
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 1, Msg: "typo"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// The admin supplies the true author id and the edit lands.
	rec = doRequest(t, router, http.MethodPut,
		fmt.Sprintf("/api/chat_messages/%d?userId=1", created.ID), "tokAdmin",
		models.ModifyChatMessageDto{Msg: "fix"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "fix", updated.Msg)

	// A non-admin using ?userId= is rejected outright.
	rec = doRequest(t, router, http.MethodPut,
		fmt.Sprintf("/api/chat_messages/%d?userId=1", created.ID), "tokViewer",
		models.ModifyChatMessageDto{Msg: "hack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteChatMessageReturnsPriorState(t *testing.T) {
	store := restStore()
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 1, Msg: "bye"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/chat_messages/%d", created.ID), "tokOwner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	// The prior state travels back; the row itself is cleared.
	assert.Equal(t, "bye", deleted.Msg)
	assert.Nil(t, deleted.DateRmv)

	stored, err := store.GetChatMessage(created.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Msg)
	assert.NotNil(t, stored.DateRemoved)
}

func TestFilterChatMessages(t *testing.T) {
	store := restStore()
	router := newTestRouter(store)

	for i := 0; i < 3; i++ {
		rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
			models.CreateChatMessageDto{StreamID: 1, Msg: fmt.Sprintf("m%d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/api/chat_messages?streamId=1", "tokViewer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dtos []models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dtos))
	assert.Len(t, dtos, 3)

	rec = doRequest(t, router, http.MethodGet, "/api/chat_messages?streamId=abc", "tokViewer", nil)
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
}

func TestChatMessageLogs(t *testing.T) {
	store := restStore()
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/api/chat_messages", "tokOwner",
		models.CreateChatMessageDto{StreamID: 1, Msg: "v1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.ChatMessageDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/chat_messages/%d", created.ID), "tokOwner",
		models.ModifyChatMessageDto{Msg: "v2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/chat_messages/%d/logs", created.ID), "tokOwner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []models.ChatMessageLogDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "v1", logs[0].OldMsg)

	// The history is private to the author (and admins).
	rec = doRequest(t, router, http.MethodGet, fmt.Sprintf("/api/chat_messages/%d/logs", created.ID), "tokViewer", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
