package db

import (
	"time"
)

type (
	// UserRestriction is the durable record of a mute applied by the bot.
	// The platform's own timeout expiry stays authoritative; this row exists
	// so the unmute workflow survives a process restart.
	UserRestriction struct {
		UserID       int64     `db:"user_id"`
		ChatID       int64     `db:"chat_id"`
		RestrictedAt time.Time `db:"restricted_at"`
		ExpiresAt    time.Time `db:"expires_at"`
		Reason       string    `db:"reason"`
	}
)
