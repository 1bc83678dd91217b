// This file contains database methods related to user session lookup.

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"livechat/internal/models"
)

// GetUserSession fetches the stored session record for a user together with
// the display name and role from the user row. Returns nil when no session
// record exists. The LEFT JOIN keeps a lingering session visible even when
// the user row is gone, in which case Nickname is nil.
func (db *DB) GetUserSession(userID int) (*models.UserSession, error) {
	var session models.UserSession
	query := `
        SELECT s.user_id, u.nickname, u.role, s.num_token
        FROM sessions s
        LEFT JOIN users u ON u.id = s.user_id
        WHERE s.user_id = $1`
	err := db.Get(&session, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get_user_session: %w", err)
	}
	return &session, nil
}
