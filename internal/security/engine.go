package security

import (
	"context"
	"strings"
	"time"

	errs "github.com/Abu-al-Hun/telegram-security/internal/errors"
)

type ActionType int

const (
	ActionNone ActionType = iota
	ActionDeleteAndMute
)

const (
	ReasonFlood          = "spam"
	ReasonProhibitedLink = "prohibited link"
)

// Action is the engine's verdict for one inbound message. The engine never
// talks to the transport itself; the caller executes the verdict.
type Action struct {
	Type   ActionType
	Reason string
}

// MessageEvent is the transport-agnostic view of one inbound chat message.
type MessageEvent struct {
	ChatID    int64
	UserID    int64
	Timestamp time.Time
	Text      string
	IsPrivate bool
}

type ToggleOutcome int

const (
	ToggleStatus ToggleOutcome = iota
	ToggleEnabled
	ToggleDisabled
	ToggleAlreadyDisabled
)

type ToggleReply struct {
	Outcome ToggleOutcome
	Enabled bool
}

// Engine spans the policy store, rate tracker, content matcher and
// restriction ledger. All decision logic is synchronous; the only I/O is the
// policy snapshot rewrite on a toggle.
type Engine struct {
	policies     *PolicyStore
	rate         *RateTracker
	content      *ContentMatcher
	ledger       *RestrictionLedger
	muteDuration time.Duration
}

func NewEngine(policies *PolicyStore, rate *RateTracker, content *ContentMatcher, ledger *RestrictionLedger, muteDuration time.Duration) *Engine {
	return &Engine{
		policies:     policies,
		rate:         rate,
		content:      content,
		ledger:       ledger,
		muteDuration: muteDuration,
	}
}

// OnMessage decides what to do about one message, short-circuiting at the
// first match: private chat, disabled chat, empty text, flood, prohibited
// content.
func (e *Engine) OnMessage(ev MessageEvent) Action {
	if ev.IsPrivate {
		return Action{Type: ActionNone}
	}
	if !e.policies.Get(ev.ChatID) {
		return Action{Type: ActionNone}
	}
	if ev.Text == "" {
		return Action{Type: ActionNone}
	}
	if e.rate.RecordAndCheck(ev.UserID, ev.ChatID, ev.Timestamp) {
		return Action{Type: ActionDeleteAndMute, Reason: ReasonFlood}
	}
	if e.content.IsProhibited(ev.Text) {
		return Action{Type: ActionDeleteAndMute, Reason: ReasonProhibitedLink}
	}
	return Action{Type: ActionNone}
}

// OnToggleCommand handles the admin policy toggle. arg is "on", "off" or
// empty for a status query. The admin flag is precomputed by the transport
// collaborator from a live membership query.
func (e *Engine) OnToggleCommand(chatID int64, requesterIsAdmin bool, arg string) (ToggleReply, error) {
	if !requesterIsAdmin {
		return ToggleReply{}, errs.ErrUnauthorized
	}

	switch strings.ToLower(arg) {
	case "on":
		if err := e.policies.Set(chatID, true); err != nil {
			return ToggleReply{}, err
		}
		return ToggleReply{Outcome: ToggleEnabled, Enabled: true}, nil
	case "off":
		if !e.policies.Get(chatID) {
			return ToggleReply{Outcome: ToggleAlreadyDisabled}, nil
		}
		if err := e.policies.Set(chatID, false); err != nil {
			return ToggleReply{}, err
		}
		return ToggleReply{Outcome: ToggleDisabled}, nil
	default:
		return ToggleReply{Outcome: ToggleStatus, Enabled: e.policies.Get(chatID)}, nil
	}
}

// ConfirmMute commits the ledger entry for an executed mute. Called by the
// transport collaborator only after the remote restrict call succeeded, so a
// failed restriction is never claimed as applied.
func (e *Engine) ConfirmMute(ctx context.Context, userID, chatID int64, reason string) error {
	return e.ledger.Mute(ctx, userID, chatID, reason, time.Now().Add(e.muteDuration))
}

// OnUnmuteRequest handles the admin reversal control.
func (e *Engine) OnUnmuteRequest(ctx context.Context, userID int64, requesterIsAdmin bool) (int64, error) {
	return e.ledger.RequestUnmute(ctx, userID, requesterIsAdmin)
}

// RestrictedChat reports where the user is currently muted, used by the
// transport collaborator to run the live admin check in the right chat.
func (e *Engine) RestrictedChat(userID int64) (int64, bool) {
	return e.ledger.Lookup(userID)
}

// MuteDuration is the timeout passed to the remote restrict call.
func (e *Engine) MuteDuration() time.Duration {
	return e.muteDuration
}
