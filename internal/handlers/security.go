package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Abu-al-Hun/telegram-security/internal/bot"
	"github.com/Abu-al-Hun/telegram-security/internal/config"
	errs "github.com/Abu-al-Hun/telegram-security/internal/errors"
	"github.com/Abu-al-Hun/telegram-security/internal/i18n"
	"github.com/Abu-al-Hun/telegram-security/internal/observability"
	"github.com/Abu-al-Hun/telegram-security/internal/security"
)

const (
	securityCommand      = "security"
	unmuteCallbackPrefix = "unmute:"
)

// Security is the transport collaborator around the moderation engine. It
// maps Telegram updates to engine calls and executes the engine's verdicts:
// delete, restrict, notify with an admin-only unmute control.
type Security struct {
	s      bot.Service
	engine *security.Engine
}

func NewSecurity(s bot.Service, engine *security.Engine) *Security {
	h := &Security{
		s:      s,
		engine: engine,
	}
	h.getLogEntry().Debug("created security handler")
	return h
}

func (h *Security) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil {
		return false, errors.New("nil update")
	}

	if u.CallbackQuery != nil {
		return h.handleUnmuteCallback(ctx, u.CallbackQuery)
	}

	msg := u.Message
	if msg == nil || chat == nil || user == nil {
		return true, nil
	}

	if chat.IsPrivate() {
		return h.handlePrivateMessage(msg, user)
	}

	if msg.IsCommand() {
		if msg.Command() == securityCommand {
			return h.handleToggleCommand(msg, chat, user)
		}
		return true, nil
	}

	return h.handleChatMessage(ctx, msg, chat, user)
}

func (h *Security) handleChatMessage(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	entry := h.getLogEntry().WithFields(log.Fields{
		"chat_id": chat.ID,
		"user_id": user.ID,
	})

	action := h.engine.OnMessage(security.MessageEvent{
		ChatID:    chat.ID,
		UserID:    user.ID,
		Timestamp: time.Unix(int64(msg.Date), 0),
		Text:      msg.Text,
	})
	if action.Type == security.ActionNone {
		return true, nil
	}
	entry.WithField("reason", action.Reason).Info("moderation action")

	if err := bot.DeleteChatMessage(ctx, h.s.GetBot(), chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Error("cant delete flagged message")
	}

	until := time.Now().Add(h.engine.MuteDuration())
	if err := bot.RestrictChatting(ctx, h.s.GetBot(), user.ID, chat.ID, until); err != nil {
		// The ledger entry is committed only after the restrict call
		// succeeded, a user is never claimed muted when they are not.
		return false, errors.WithMessage(err, "cant apply timeout")
	}
	if err := h.engine.ConfirmMute(ctx, user.ID, chat.ID, action.Reason); err != nil {
		entry.WithField("error", err.Error()).Error("cant record restriction")
	}
	observability.RecordModerationAction(action.Reason)

	h.notifyTimeout(chat.ID, user, action.Reason)
	return false, nil
}

func (h *Security) handleToggleCommand(msg *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	language := config.Get().DefaultLanguage

	// Live membership query per privileged action, admin status is never
	// cached.
	isAdmin := h.isChatAdmin(chat.ID, user.ID)

	arg := ""
	if fields := strings.Fields(msg.CommandArguments()); len(fields) > 0 {
		arg = fields[0]
	}

	reply, err := h.engine.OnToggleCommand(chat.ID, isAdmin, arg)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			h.reply(msg, i18n.Get("This command is for admins only", language))
			return false, nil
		}
		return false, errors.WithMessage(err, "cant toggle security policy")
	}

	switch reply.Outcome {
	case security.ToggleEnabled:
		observability.RecordPolicyToggle(true)
		h.reply(msg, i18n.Get("Security enabled", language))
	case security.ToggleDisabled:
		observability.RecordPolicyToggle(false)
		h.reply(msg, i18n.Get("Security disabled", language))
	case security.ToggleAlreadyDisabled:
		h.reply(msg, i18n.Get("Security is already disabled\n\nTo enable security use:\n`/security on`", language))
	default:
		status := i18n.Get("Disabled", language)
		if reply.Enabled {
			status = i18n.Get("Enabled", language)
		}
		h.reply(msg, fmt.Sprintf(i18n.Get("Security status: %s\n\nTo enable security use:\n`/security on`\n\nTo disable security use:\n`/security off`", language), status))
	}
	return false, nil
}

func (h *Security) handleUnmuteCallback(ctx context.Context, query *api.CallbackQuery) (bool, error) {
	if !strings.HasPrefix(query.Data, unmuteCallbackPrefix) {
		return true, nil
	}
	entry := h.getLogEntry().WithField("method", "handleUnmuteCallback")
	language := config.Get().DefaultLanguage

	userID, err := strconv.ParseInt(strings.TrimPrefix(query.Data, unmuteCallbackPrefix), 10, 64)
	if err != nil {
		entry.WithField("data", query.Data).Warn("malformed unmute callback data")
		_, _ = h.s.GetBot().Request(api.NewCallback(query.ID, ""))
		return false, nil
	}

	chatID, ok := h.engine.RestrictedChat(userID)
	if !ok {
		observability.RecordUnmuteRequest("not_restricted")
		_, _ = h.s.GetBot().Request(api.NewCallback(query.ID, i18n.Get("User is not restricted", language)))
		return false, nil
	}

	isAdmin := h.isChatAdmin(chatID, query.From.ID)

	unmuteChatID, err := h.engine.OnUnmuteRequest(ctx, userID, isAdmin)
	switch {
	case errors.Is(err, errs.ErrNotRestricted):
		observability.RecordUnmuteRequest("not_restricted")
		_, _ = h.s.GetBot().Request(api.NewCallback(query.ID, i18n.Get("User is not restricted", language)))
		return false, nil
	case errors.Is(err, errs.ErrUnauthorized):
		observability.RecordUnmuteRequest("unauthorized")
		_, _ = h.s.GetBot().Request(api.NewCallbackWithAlert(query.ID, i18n.Get("Only admins can use this button", language)))
		return false, nil
	case err != nil:
		return false, errors.WithMessage(err, "cant process unmute request")
	}

	_, _ = h.s.GetBot().Request(api.NewCallback(query.ID, ""))

	if err := bot.UnrestrictChatting(ctx, h.s.GetBot(), userID, unmuteChatID); err != nil {
		entry.WithField("error", err.Error()).Error("cant unrestrict user")
		h.editCallbackMessage(query, i18n.Get("Error occurred while unmuting", language))
		return false, nil
	}
	observability.RecordUnmuteRequest("success")
	h.editCallbackMessage(query, i18n.Get("User has been unmuted", language))
	return false, nil
}

func (h *Security) handlePrivateMessage(msg *api.Message, user *api.User) (bool, error) {
	language := user.LanguageCode
	if !i18n.IsSupported(language) {
		language = config.Get().DefaultLanguage
	}
	h.reply(msg, i18n.Get("Welcome to Security Bot\n\nThis bot helps protect your groups from spam and prohibited links.\n\nTo use the bot:\n1. Add the bot to your group\n2. Make the bot an admin\n3. Use /security on to enable protection\n\nCommands:\n/security on - Enable security\n/security off - Disable security\n/security - Check security status\n\nFeatures:\n- Blocks spam (more than 10 messages per minute)\n- Blocks prohibited links\n- Automatic timeout for violators\n- Admin can unmute users\n\nFor support, contact the bot owner", language))
	return false, nil
}

func (h *Security) notifyTimeout(chatID int64, user *api.User, reason string) {
	language := config.Get().DefaultLanguage
	text := tool.ExecTemplate(i18n.Get("User [{{ .user_name }}](tg://user?id={{ .user_id }}) has been timed out for {{ .reason }}", language), map[string]any{
		"user_name": bot.GetFullName(user),
		"user_id":   user.ID,
		"reason":    reason,
	})

	notification := api.NewMessage(chatID, text)
	notification.ParseMode = api.ModeMarkdown
	notification.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("Unmute", language), fmt.Sprintf("%s%d", unmuteCallbackPrefix, user.ID)),
		),
	)
	if _, err := h.s.GetBot().Send(notification); err != nil {
		h.getLogEntry().WithField("error", err.Error()).Error("cant send timeout notification")
	}
}

func (h *Security) isChatAdmin(chatID, userID int64) bool {
	member, err := bot.GetChatMemberStatus(h.s.GetBot(), chatID, userID)
	if err != nil {
		h.getLogEntry().WithField("error", err.Error()).Error("cant get chat member")
		return false
	}
	return member.IsAdministrator() || member.IsCreator()
}

func (h *Security) reply(msg *api.Message, text string) {
	reply := api.NewMessage(msg.Chat.ID, text)
	reply.ReplyParameters = api.ReplyParameters{
		MessageID:                msg.MessageID,
		AllowSendingWithoutReply: true,
	}
	reply.ParseMode = api.ModeMarkdown
	if _, err := h.s.GetBot().Send(reply); err != nil {
		h.getLogEntry().WithField("error", err.Error()).Error("cant send reply")
	}
}

func (h *Security) editCallbackMessage(query *api.CallbackQuery, text string) {
	if query.Message == nil {
		return
	}
	edit := api.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, text)
	if _, err := h.s.GetBot().Send(edit); err != nil {
		h.getLogEntry().WithField("error", err.Error()).Error("cant edit callback message")
	}
}

func (h *Security) getLogEntry() *log.Entry {
	return log.WithField("object", "Security")
}
