package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"livechat/internal/apperr"
	"livechat/internal/models"
	appwebsocket "livechat/internal/websocket"

	"github.com/go-playground/validator/v10"
)

// ChatMessagesHandler serves the REST surface over stored chat messages.
type ChatMessagesHandler struct {
	Store    appwebsocket.MessageStore
	Validate *validator.Validate
}

// NewChatMessagesHandler creates a new ChatMessagesHandler.
func NewChatMessagesHandler(store appwebsocket.MessageStore, validate *validator.Validate) *ChatMessagesHandler {
	return &ChatMessagesHandler{Store: store, Validate: validate}
}

// Filter handles GET /api/chat_messages. Date bounds are an open interval
// on the creation timestamp.
func (h *ChatMessagesHandler) Filter(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	streamID, err := strconv.Atoi(query.Get("streamId"))
	if err != nil || streamID <= 0 {
		RespondWithError(w, http.StatusRequestedRangeNotSatisfiable,
			apperr.MsgParsingError+"; name: 'streamId'")
		return
	}

	search := models.SearchChatMessage{StreamID: streamID}
	if raw := query.Get("isDesc"); raw != "" {
		isDesc, err := strconv.ParseBool(raw)
		if err != nil {
			RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'isDesc'")
			return
		}
		search.IsSortDesc = &isDesc
	}
	if raw := query.Get("minDate"); raw != "" {
		minDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'minDate'")
			return
		}
		search.MinDateCreated = &minDate
	}
	if raw := query.Get("maxDate"); raw != "" {
		maxDate, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'maxDate'")
			return
		}
		search.MaxDateCreated = &maxDate
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'limit'")
			return
		}
		search.Limit = &limit
	}

	messages, err := h.Store.FilterChatMessages(search)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	dtos := make([]models.ChatMessageDto, 0, len(messages))
	for i := range messages {
		dtos = append(dtos, models.NewChatMessageDto(&messages[i]))
	}
	RespondWithJSON(w, http.StatusOK, dtos)
}

// Create handles POST /api/chat_messages.
func (h *ChatMessagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)

	var dto models.CreateChatMessageDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.Validate.Struct(dto); err != nil {
		RespondWithValidationErrors(w, validationMessages(err))
		return
	}

	message, err := h.Store.CreateChatMessage(models.CreateChatMessage{
		StreamID: dto.StreamID,
		UserID:   user.UserID,
		Msg:      dto.Msg,
	})
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if message == nil {
		RespondWithError(w, http.StatusNotAcceptable,
			apperr.MsgParameterUnacceptable+"; name: 'streamId'")
		return
	}
	RespondWithJSON(w, http.StatusCreated, models.NewChatMessageDto(message))
}

// Update handles PUT /api/chat_messages/{id}. Administrators may supply
// ?userId= to edit on behalf of the true author.
func (h *ChatMessagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.targetMessage(w, r)
	if !ok {
		return
	}

	var dto models.ModifyChatMessageDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.Validate.Struct(dto); err != nil {
		RespondWithValidationErrors(w, validationMessages(err))
		return
	}

	message, err := h.Store.ModifyChatMessage(id, userID, dto.Msg)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if message == nil {
		RespondWithError(w, http.StatusNotAcceptable,
			fmt.Sprintf("%s; id: %d, user_id: %d", apperr.MsgChatMessageNotFound, id, userID))
		return
	}
	RespondWithJSON(w, http.StatusOK, models.NewChatMessageDto(message))
}

// Delete handles DELETE /api/chat_messages/{id}; the message is soft-deleted
// and returned as it stood before the call.
func (h *ChatMessagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, userID, ok := h.targetMessage(w, r)
	if !ok {
		return
	}

	message, err := h.Store.DeleteChatMessage(id, userID)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if message == nil {
		RespondWithError(w, http.StatusNotAcceptable,
			fmt.Sprintf("%s; id: %d, user_id: %d", apperr.MsgChatMessageNotFound, id, userID))
		return
	}
	RespondWithJSON(w, http.StatusOK, models.NewChatMessageDto(message))
}

// Logs handles GET /api/chat_messages/{id}/logs: the edit history of one
// message, visible to its author and to administrators.
func (h *ChatMessagesHandler) Logs(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)

	id, err := parseIDFromURL(r, "id")
	if err != nil {
		RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'id'")
		return
	}

	message, err := h.Store.GetChatMessage(id)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if message == nil {
		RespondWithError(w, http.StatusNotAcceptable,
			fmt.Sprintf("%s; id: %d", apperr.MsgChatMessageNotFound, id))
		return
	}
	if message.UserID != user.UserID && !user.IsAdmin() {
		RespondWithError(w, http.StatusForbidden, apperr.MsgPermissionDenied)
		return
	}

	logs, err := h.Store.GetChatMessageLogs(id)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	dtos := make([]models.ChatMessageLogDto, 0, len(logs))
	for i := range logs {
		dtos = append(dtos, models.NewChatMessageLogDto(&logs[i]))
	}
	RespondWithJSON(w, http.StatusOK, dtos)
}

// targetMessage resolves the path id and the effective author id for an
// update or delete. Only administrators may act for another author.
func (h *ChatMessagesHandler) targetMessage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	user := UserFromContext(r)

	id, err := parseIDFromURL(r, "id")
	if err != nil {
		RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'id'")
		return 0, 0, false
	}

	userID := user.UserID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		onBehalf, err := strconv.Atoi(raw)
		if err != nil || onBehalf <= 0 {
			RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'userId'")
			return 0, 0, false
		}
		if !user.IsAdmin() {
			RespondWithError(w, http.StatusForbidden, apperr.MsgPermissionDenied)
			return 0, 0, false
		}
		userID = onBehalf
	}
	return id, userID, true
}
