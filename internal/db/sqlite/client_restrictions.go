package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Abu-al-Hun/telegram-security/internal/db"
)

func (c *sqliteClient) AddRestriction(ctx context.Context, restriction *db.UserRestriction) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO restrictions (user_id, chat_id, restricted_at, expires_at, reason)
		VALUES (:user_id, :chat_id, :restricted_at, :expires_at, :reason)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			restricted_at = excluded.restricted_at,
			expires_at = excluded.expires_at,
			reason = excluded.reason
	`
	if _, err := c.db.NamedExecContext(ctx, query, restriction); err != nil {
		return fmt.Errorf("failed to add restriction for user %d: %w", restriction.UserID, err)
	}
	return nil
}

func (c *sqliteClient) RemoveRestriction(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM restrictions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to remove restriction for user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) GetRestriction(ctx context.Context, userID int64) (*db.UserRestriction, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var restriction db.UserRestriction
	err := c.db.GetContext(ctx, &restriction, `
		SELECT user_id, chat_id, restricted_at, expires_at, reason
		FROM restrictions
		WHERE user_id = ?
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &restriction, nil
}

func (c *sqliteClient) ListActiveRestrictions(ctx context.Context, now time.Time) ([]*db.UserRestriction, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var restrictions []*db.UserRestriction
	err := c.db.SelectContext(ctx, &restrictions, `
		SELECT user_id, chat_id, restricted_at, expires_at, reason
		FROM restrictions
		WHERE expires_at > ?
	`, now)
	return restrictions, err
}
