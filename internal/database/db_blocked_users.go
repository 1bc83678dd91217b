// This file contains database methods related to blocked-user records.

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"livechat/internal/models"
)

const blockedUserColumns = `id, user_id, blocked_id, blocked_nickname, block_date`

// GetBlockedUsers returns all records blocked by the given user.
func (db *DB) GetBlockedUsers(userID int) ([]models.BlockedUser, error) {
	blocked := []models.BlockedUser{}
	query := fmt.Sprintf(`SELECT %s FROM blocked_users WHERE user_id = $1`, blockedUserColumns)
	if err := db.Select(&blocked, query, userID); err != nil {
		return nil, fmt.Errorf("get_blocked_users: %w", err)
	}
	return blocked, nil
}

// CreateBlockedUser inserts a blocked-user record for the pair resolved from
// BlockedID or BlockedNickname. The operation is idempotent: when a record
// for the pair already exists it is returned unchanged. Returns nil when
// neither field resolves to an existing user.
func (db *DB) CreateBlockedUser(create models.CreateBlockedUser) (*models.BlockedUser, error) {
	blockedID, blockedNickname, err := db.resolveBlockedUser(create.BlockedID, create.BlockedNickname)
	if err != nil {
		return nil, fmt.Errorf("create_blocked_user: %w", err)
	}
	if blockedID == 0 {
		return nil, nil
	}

	// The no-op DO UPDATE makes the conflicting row visible to RETURNING,
	// leaving the stored nickname and block_date untouched.
	query := fmt.Sprintf(`
        INSERT INTO blocked_users (user_id, blocked_id, blocked_nickname)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, blocked_id)
            DO UPDATE SET blocked_nickname = blocked_users.blocked_nickname
        RETURNING %s`, blockedUserColumns)

	var blocked models.BlockedUser
	if err := db.Get(&blocked, query, create.UserID, blockedID, blockedNickname); err != nil {
		return nil, fmt.Errorf("create_blocked_user: %w", err)
	}
	return &blocked, nil
}

// DeleteBlockedUser removes the blocked-user record for the resolved pair and
// returns the removed row, or nil when no matching record existed.
func (db *DB) DeleteBlockedUser(del models.DeleteBlockedUser) (*models.BlockedUser, error) {
	blockedID, _, err := db.resolveBlockedUser(del.BlockedID, del.BlockedNickname)
	if err != nil {
		return nil, fmt.Errorf("delete_blocked_user: %w", err)
	}
	if blockedID == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
        DELETE FROM blocked_users
        WHERE user_id = $1 AND blocked_id = $2
        RETURNING %s`, blockedUserColumns)

	var blocked models.BlockedUser
	err = db.Get(&blocked, query, del.UserID, blockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete_blocked_user: %w", err)
	}
	return &blocked, nil
}

// resolveBlockedUser resolves the target of a block operation to an existing
// user, preferring the id over the nickname. A zero id means no resolution.
func (db *DB) resolveBlockedUser(blockedID *int, blockedNickname *string) (int, string, error) {
	var row struct {
		ID       int    `db:"id"`
		Nickname string `db:"nickname"`
	}
	var err error
	switch {
	case blockedID != nil:
		err = db.Get(&row, `SELECT id, nickname FROM users WHERE id = $1`, *blockedID)
	case blockedNickname != nil:
		err = db.Get(&row, `SELECT id, nickname FROM users WHERE nickname = $1`, *blockedNickname)
	default:
		return 0, "", nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	return row.ID, row.Nickname, nil
}
