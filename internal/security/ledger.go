package security

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Abu-al-Hun/telegram-security/internal/db"
	errs "github.com/Abu-al-Hun/telegram-security/internal/errors"
)

type restrictionStore interface {
	AddRestriction(ctx context.Context, restriction *db.UserRestriction) error
	RemoveRestriction(ctx context.Context, userID int64) error
	ListActiveRestrictions(ctx context.Context, now time.Time) ([]*db.UserRestriction, error)
}

// RestrictionLedger is the sole owner of the "who is muted where" mapping.
// A user holds at most one tracked restriction; re-muting overwrites it.
// Entries are advisory bookkeeping for the unmute workflow, the platform's
// own timeout expiry stays authoritative.
type RestrictionLedger struct {
	store restrictionStore

	mutex sync.RWMutex
	muted map[int64]int64
}

// NewRestrictionLedger creates a ledger. A nil store keeps the ledger purely
// in memory.
func NewRestrictionLedger(store restrictionStore) *RestrictionLedger {
	return &RestrictionLedger{
		store: store,
		muted: make(map[int64]int64),
	}
}

// Load hydrates the in-memory mapping from persisted restrictions that have
// not expired yet.
func (l *RestrictionLedger) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	restrictions, err := l.store.ListActiveRestrictions(ctx, time.Now())
	if err != nil {
		return err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, restriction := range restrictions {
		l.muted[restriction.UserID] = restriction.ChatID
	}
	l.getLogEntry().WithField("restrictions", len(restrictions)).Debug("ledger hydrated")
	return nil
}

// Mute records the restriction. Idempotent, always succeeds in memory; the
// write-through to storage is best effort.
func (l *RestrictionLedger) Mute(ctx context.Context, userID, chatID int64, reason string, until time.Time) error {
	l.mutex.Lock()
	l.muted[userID] = chatID
	l.mutex.Unlock()

	if l.store == nil {
		return nil
	}
	restriction := &db.UserRestriction{
		UserID:       userID,
		ChatID:       chatID,
		RestrictedAt: time.Now(),
		ExpiresAt:    until,
		Reason:       reason,
	}
	if err := l.store.AddRestriction(ctx, restriction); err != nil {
		l.getLogEntry().WithField("error", err.Error()).Error("cant persist restriction")
	}
	return nil
}

// RequestUnmute validates the reversal request and, when authorized, removes
// the entry and returns the chat holding the mute. The restriction is kept
// when the requester lacks admin rights.
func (l *RestrictionLedger) RequestUnmute(ctx context.Context, userID int64, requesterIsAdmin bool) (int64, error) {
	l.mutex.Lock()
	chatID, ok := l.muted[userID]
	if !ok {
		l.mutex.Unlock()
		return 0, errs.ErrNotRestricted
	}
	if !requesterIsAdmin {
		l.mutex.Unlock()
		return 0, errs.ErrUnauthorized
	}
	delete(l.muted, userID)
	l.mutex.Unlock()

	if l.store != nil {
		if err := l.store.RemoveRestriction(ctx, userID); err != nil {
			l.getLogEntry().WithField("error", err.Error()).Error("cant remove persisted restriction")
		}
	}
	return chatID, nil
}

// Lookup reports the chat currently holding the user muted, if any.
func (l *RestrictionLedger) Lookup(userID int64) (int64, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	chatID, ok := l.muted[userID]
	return chatID, ok
}

func (l *RestrictionLedger) getLogEntry() *log.Entry {
	return log.WithField("object", "RestrictionLedger")
}
