package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
)

func (r *RealTelegramBotAdapter) translateCallback(q *tgbotapi.CallbackQuery) adapter.InboundEvent {
	var chat *tgbotapi.Chat
	if q.Message != nil {
		chat = q.Message.Chat
	}
	ev := adapter.InboundEvent{Kind: adapter.EventUnknown, CallbackID: q.ID}
	if q.From != nil {
		ev.From = senderOf(q.From, chat)
	}

	parts := strings.SplitN(q.Data, ":", 3)
	if len(parts) < 2 || parts[0] != adapter.CallbackPrefix {
		return ev
	}
	if parts[1] == "claim" && len(parts) == 2 {
		ev.Kind = adapter.EventClaim
		return ev
	}
	if len(parts) != 3 || parts[2] == "" {
		return ev
	}
	action, err := model.ParseAction(parts[1])
	if err != nil || !action.IsModeratorAction() {
		return ev
	}
	ev.Kind = adapter.EventDecision
	ev.Decision = &adapter.DecisionPayload{SubmissionID: parts[2], Action: action}
	return ev
}
