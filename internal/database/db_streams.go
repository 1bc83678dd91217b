// This file contains database methods related to stream live-state and chat access.

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"livechat/internal/models"
)

// GetStreamLive reports whether the stream is in a live state, or nil when
// the stream does not exist.
func (db *DB) GetStreamLive(streamID int) (*bool, error) {
	var live bool
	err := db.Get(&live, `SELECT live FROM streams WHERE id = $1`, streamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_stream_live: %w", err)
	}
	return &live, nil
}

// GetChatAccess returns the access view gating a join to the stream's chat,
// or nil when the stream does not exist. For an anonymous requester
// (userID == nil) is_blocked is conservatively true.
func (db *DB) GetChatAccess(streamID int, userID *int) (*models.ChatAccess, error) {
	var access models.ChatAccess
	query := `
        SELECT s.id AS stream_id,
               s.user_id AS stream_owner,
               s.live AS stream_live,
               CASE WHEN $2::int IS NULL THEN TRUE
                    ELSE EXISTS (
                        SELECT 1 FROM blocked_users b
                        WHERE b.user_id = s.user_id AND b.blocked_id = $2
                    )
               END AS is_blocked
        FROM streams s
        WHERE s.id = $1`
	err := db.Get(&access, query, streamID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_chat_access: %w", err)
	}
	return &access, nil
}
