package db

import (
	"context"
	"time"
)

// Client defines the storage interface
type Client interface {
	Close() error
	AddRestriction(ctx context.Context, restriction *UserRestriction) error
	RemoveRestriction(ctx context.Context, userID int64) error
	GetRestriction(ctx context.Context, userID int64) (*UserRestriction, error)
	ListActiveRestrictions(ctx context.Context, now time.Time) ([]*UserRestriction, error)
}
