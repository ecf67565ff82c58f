package usecase

import (
	"strings"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/infra/i18n"
)

// reviewCard renders a submission for a moderator with the decision buttons.
func reviewCard(t *i18n.Translator, s *model.Submission, chatID int64) adapter.OutboundMessage {
	var b strings.Builder
	b.WriteString(t.T("moderation.card", s.ID, s.Category, submitterLabel(s), s.Content))
	if s.Price != nil {
		b.WriteString(t.T("moderation.card_price", s.Price.String()))
	}
	if s.Revision > 0 {
		b.WriteString(t.T("moderation.card_revision", s.Revision))
	}
	return adapter.OutboundMessage{
		ChatID: chatID,
		Text:   b.String(),
		Media:  s.Media,
		Buttons: [][]adapter.InlineButton{
			{
				{Text: t.T("button.approve"), Data: adapter.DecisionCallbackData(model.ActionApprove, s.ID)},
				{Text: t.T("button.reject"), Data: adapter.DecisionCallbackData(model.ActionReject, s.ID)},
			},
			{
				{Text: t.T("button.edit"), Data: adapter.DecisionCallbackData(model.ActionRequestEdit, s.ID)},
				{Text: t.T("button.claim"), Data: adapter.ClaimCallbackData()},
			},
		},
		Kind: "review_card",
	}
}

func submitterLabel(s *model.Submission) string {
	if s.SubmitterName != "" {
		return s.SubmitterName
	}
	return "id " + formatID(s.SubmitterID)
}

// moderatorChats lists where review cards go: the shared moderator chat when
// configured, otherwise each moderator privately.
func moderatorChats(cfg *config.BotConfig) []int64 {
	if cfg.ModeratorChatID != 0 {
		return []int64{cfg.ModeratorChatID}
	}
	return cfg.ModeratorIDs
}
