// This file contains database methods related to chat messages.

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"livechat/internal/models"

	"github.com/jmoiron/sqlx"
)

const chatMessageColumns = `id, stream_id, user_id, user_name, msg, date_created, date_changed, date_removed`

// FilterChatMessages returns messages of a stream whose date_created lies
// strictly between the optional bounds, sorted by date_created (ties broken
// by id in the same direction) and truncated to the requested limit.
func (db *DB) FilterChatMessages(search models.SearchChatMessage) ([]models.ChatMessage, error) {
	limit := models.SearchChatMessageLimitDefault
	if search.Limit != nil && *search.Limit > 0 {
		limit = *search.Limit
	}
	direction := "ASC"
	if search.IsSortDesc != nil && *search.IsSortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
        SELECT %s
        FROM chat_messages
        WHERE stream_id = $1
          AND ($2::timestamptz IS NULL OR date_created > $2)
          AND ($3::timestamptz IS NULL OR date_created < $3)
        ORDER BY date_created %s, id %s
        LIMIT $4`, chatMessageColumns, direction, direction)

	messages := []models.ChatMessage{}
	err := db.Select(&messages, query, search.StreamID, search.MinDateCreated, search.MaxDateCreated, limit)
	if err != nil {
		return nil, fmt.Errorf("filter_chat_messages: %w", err)
	}
	return messages, nil
}

// CreateChatMessage inserts a new chat message, denormalizing the author's
// nickname at creation time. It returns nil (without an error) when the
// stream or the user does not exist, or when the body is empty.
func (db *DB) CreateChatMessage(create models.CreateChatMessage) (*models.ChatMessage, error) {
	if create.Msg == "" {
		return nil, nil
	}

	// The INSERT..SELECT yields no row when either the stream or the user
	// is missing, which surfaces as sql.ErrNoRows.
	query := fmt.Sprintf(`
        INSERT INTO chat_messages (stream_id, user_id, user_name, msg)
        SELECT s.id, u.id, u.nickname, $3
        FROM streams s
        JOIN users u ON u.id = $2
        WHERE s.id = $1
        RETURNING %s`, chatMessageColumns)

	var message models.ChatMessage
	err := db.Get(&message, query, create.StreamID, create.UserID, create.Msg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create_chat_message: %w", err)
	}
	return &message, nil
}

// ModifyChatMessage edits or soft-deletes a message authored by the given
// user. An empty body clears the message and sets date_removed; a non-empty
// body replaces it and sets date_changed. The prior body, when present, is
// appended to the edit history. Returns nil when (id, userID) does not name
// a message authored by userID.
func (db *DB) ModifyChatMessage(id int, userID int, msg string) (*models.ChatMessage, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("modify_chat_message: %w", err)
	}
	defer tx.Rollback()

	prior, err := lockChatMessage(tx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("modify_chat_message: %w", err)
	}
	if prior == nil {
		return nil, nil
	}

	if err := appendChatMessageLog(tx, prior); err != nil {
		return nil, fmt.Errorf("modify_chat_message: %w", err)
	}

	var message models.ChatMessage
	if msg == "" {
		query := fmt.Sprintf(`
            UPDATE chat_messages SET msg = NULL, date_removed = NOW()
            WHERE id = $1 AND user_id = $2
            RETURNING %s`, chatMessageColumns)
		err = tx.Get(&message, query, id, userID)
	} else {
		query := fmt.Sprintf(`
            UPDATE chat_messages SET msg = $3, date_changed = NOW()
            WHERE id = $1 AND user_id = $2
            RETURNING %s`, chatMessageColumns)
		err = tx.Get(&message, query, id, userID, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("modify_chat_message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("modify_chat_message: %w", err)
	}
	return &message, nil
}

// DeleteChatMessage soft-deletes a message authored by the given user and
// returns the row as it stood before the call. date_removed is backfilled
// only when absent, so prior history is retained. Returns nil when
// (id, userID) does not name a message authored by userID.
func (db *DB) DeleteChatMessage(id int, userID int) (*models.ChatMessage, error) {
	tx, err := db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("delete_chat_message: %w", err)
	}
	defer tx.Rollback()

	prior, err := lockChatMessage(tx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("delete_chat_message: %w", err)
	}
	if prior == nil {
		return nil, nil
	}

	if err := appendChatMessageLog(tx, prior); err != nil {
		return nil, fmt.Errorf("delete_chat_message: %w", err)
	}

	_, err = tx.Exec(`
        UPDATE chat_messages SET msg = NULL, date_removed = COALESCE(date_removed, NOW())
        WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("delete_chat_message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("delete_chat_message: %w", err)
	}
	return prior, nil
}

// GetChatMessageLogs returns the edit history of a chat message, oldest first.
func (db *DB) GetChatMessageLogs(chatMessageID int) ([]models.ChatMessageLog, error) {
	logs := []models.ChatMessageLog{}
	err := db.Select(&logs, `
        SELECT id, chat_message_id, old_msg, date_update
        FROM chat_message_logs
        WHERE chat_message_id = $1
        ORDER BY date_update ASC, id ASC`, chatMessageID)
	if err != nil {
		return nil, fmt.Errorf("get_chat_message_logs: %w", err)
	}
	return logs, nil
}

// GetChatMessage returns a message by id regardless of author, or nil when absent.
func (db *DB) GetChatMessage(id int) (*models.ChatMessage, error) {
	var message models.ChatMessage
	query := fmt.Sprintf(`SELECT %s FROM chat_messages WHERE id = $1`, chatMessageColumns)
	err := db.Get(&message, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_chat_message: %w", err)
	}
	return &message, nil
}

// lockChatMessage fetches a message row for update within a transaction,
// scoped to its author. Returns nil when no matching row exists.
func lockChatMessage(tx *sqlx.Tx, id int, userID int) (*models.ChatMessage, error) {
	var message models.ChatMessage
	query := fmt.Sprintf(`
        SELECT %s FROM chat_messages
        WHERE id = $1 AND user_id = $2
        FOR UPDATE`, chatMessageColumns)
	err := tx.Get(&message, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// appendChatMessageLog records the message's current body in the edit history.
// A message that is already cleared contributes nothing.
func appendChatMessageLog(tx *sqlx.Tx, prior *models.ChatMessage) error {
	if prior.Msg == nil {
		return nil
	}
	_, err := tx.Exec(`
        INSERT INTO chat_message_logs (chat_message_id, old_msg, date_update)
        VALUES ($1, $2, NOW())`, prior.ID, *prior.Msg)
	return err
}
