package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"livechat/internal/apperr"
	"livechat/internal/models"
	appwebsocket "livechat/internal/websocket"

	"github.com/go-playground/validator/v10"
)

// BlockedUsersHandler serves the REST surface over blocked-user records.
type BlockedUsersHandler struct {
	Store    appwebsocket.MessageStore
	Validate *validator.Validate
}

// NewBlockedUsersHandler creates a new BlockedUsersHandler.
func NewBlockedUsersHandler(store appwebsocket.MessageStore, validate *validator.Validate) *BlockedUsersHandler {
	return &BlockedUsersHandler{Store: store, Validate: validate}
}

// List handles GET /api/blocked_users/{streamId}. The blocked list belongs
// to the stream owner; any other caller receives an empty array.
func (h *BlockedUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)

	streamID, err := parseIDFromURL(r, "streamId")
	if err != nil {
		RespondWithError(w, http.StatusRequestedRangeNotSatisfiable, apperr.MsgParsingError+"; name: 'streamId'")
		return
	}

	access, err := h.Store.GetChatAccess(streamID, &user.UserID)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if access == nil {
		RespondWithError(w, http.StatusNotFound,
			fmt.Sprintf("%s; stream_id: %d", apperr.MsgStreamNotFound, streamID))
		return
	}
	if access.StreamOwner != user.UserID {
		RespondWithJSON(w, http.StatusOK, []models.BlockedUserDto{})
		return
	}

	blocked, err := h.Store.GetBlockedUsers(user.UserID)
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	dtos := make([]models.BlockedUserDto, 0, len(blocked))
	for i := range blocked {
		dtos = append(dtos, models.NewBlockedUserDto(&blocked[i]))
	}
	RespondWithJSON(w, http.StatusOK, dtos)
}

// Create handles POST /api/blocked_users. Creation is idempotent: an
// existing record for the resolved pair is returned unchanged.
func (h *BlockedUsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)

	dto, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	blocked, err := h.Store.CreateBlockedUser(models.CreateBlockedUser{
		UserID:          user.UserID,
		BlockedID:       dto.BlockedID,
		BlockedNickname: dto.BlockedNickname,
	})
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if blocked == nil {
		// Neither field resolved to an existing user.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	RespondWithJSON(w, http.StatusCreated, models.NewBlockedUserDto(blocked))
}

// Delete handles DELETE /api/blocked_users.
func (h *BlockedUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)

	dto, ok := h.decodeParams(w, r)
	if !ok {
		return
	}

	blocked, err := h.Store.DeleteBlockedUser(models.DeleteBlockedUser{
		UserID:          user.UserID,
		BlockedID:       dto.BlockedID,
		BlockedNickname: dto.BlockedNickname,
	})
	if err != nil {
		RespondWithStatusError(w, apperr.Database(err))
		return
	}
	if blocked == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	RespondWithJSON(w, http.StatusOK, models.NewBlockedUserDto(blocked))
}

// decodeParams decodes and validates the shared body of Create and Delete.
func (h *BlockedUsersHandler) decodeParams(w http.ResponseWriter, r *http.Request) (*models.BlockedUserParamsDto, bool) {
	var dto models.BlockedUserParamsDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request format")
		return nil, false
	}
	if err := h.Validate.Struct(dto); err != nil {
		RespondWithValidationErrors(w, validationMessages(err))
		return nil, false
	}
	if dto.BlockedID == nil && dto.BlockedNickname == nil {
		RespondWithValidationErrors(w, []apperr.ValidationError{
			{Field: "blockedId", Message: apperr.MsgBlockedOneOptionalMustBeSet},
		})
		return nil, false
	}
	return &dto, true
}
