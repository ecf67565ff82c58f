package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
)

// translate converts a raw update into an InboundEvent. Updates the bot has no
// use for (edits, channel posts, group chatter) are skipped.
func (r *RealTelegramBotAdapter) translate(up tgbotapi.Update) (adapter.InboundEvent, bool) {
	switch {
	case up.CallbackQuery != nil:
		return r.translateCallback(up.CallbackQuery), true
	case up.Message != nil && up.Message.From != nil:
		return r.translateMessage(up.Message)
	}
	return adapter.InboundEvent{}, false
}

func (r *RealTelegramBotAdapter) translateMessage(msg *tgbotapi.Message) (adapter.InboundEvent, bool) {
	from := senderOf(msg.From, msg.Chat)
	if msg.IsCommand() {
		return r.translateCommand(msg, from), true
	}
	if msg.Chat == nil || !msg.Chat.IsPrivate() {
		return adapter.InboundEvent{}, false
	}
	if r.isModerator(msg.From.ID) {
		return adapter.InboundEvent{Kind: adapter.EventUnknown, From: from}, true
	}
	return adapter.InboundEvent{
		Kind: adapter.EventSubmission,
		From: from,
		Submission: &adapter.SubmissionPayload{
			Content:      messageText(msg),
			Media:        mediaOf(msg),
			MediaGroupID: msg.MediaGroupID,
		},
	}, true
}

type commandHandler func(from adapter.Sender, args []string, msg *tgbotapi.Message) adapter.InboundEvent

func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"claim":    claimCommand,
		"next":     claimCommand,
		"approve":  decisionCommand(model.ActionApprove),
		"reject":   decisionCommand(model.ActionReject),
		"edit":     decisionCommand(model.ActionRequestEdit),
		"resubmit": resubmitCommand,
	}
}

func (r *RealTelegramBotAdapter) translateCommand(msg *tgbotapi.Message, from adapter.Sender) adapter.InboundEvent {
	name := strings.ToLower(msg.Command())
	rest := msg.CommandArguments()
	args := strings.Fields(rest)

	if h, ok := r.commandRoutes()[name]; ok {
		return h(from, args, msg)
	}
	return adapter.InboundEvent{
		Kind:    adapter.EventCommand,
		From:    from,
		Command: &adapter.CommandPayload{Name: name, Args: args},
	}
}

func claimCommand(from adapter.Sender, _ []string, _ *tgbotapi.Message) adapter.InboundEvent {
	return adapter.InboundEvent{Kind: adapter.EventClaim, From: from}
}

// decisionCommand handles "/<action> <id> [reason...]". A missing id is left empty
// so the dispatcher can answer with usage.
func decisionCommand(action model.Action) commandHandler {
	return func(from adapter.Sender, args []string, msg *tgbotapi.Message) adapter.InboundEvent {
		p := &adapter.DecisionPayload{Action: action}
		if len(args) > 0 {
			p.SubmissionID = args[0]
			p.Reason = restAfterFirstField(msg.CommandArguments())
		}
		return adapter.InboundEvent{Kind: adapter.EventDecision, From: from, Decision: p}
	}
}

// resubmitCommand handles "/resubmit <id> <new text>"; attached media replaces the old one.
func resubmitCommand(from adapter.Sender, args []string, msg *tgbotapi.Message) adapter.InboundEvent {
	p := &adapter.ResubmitPayload{Media: mediaOf(msg)}
	if len(args) > 0 {
		p.SubmissionID = args[0]
		p.Content = restAfterFirstField(msg.CommandArguments())
	}
	return adapter.InboundEvent{Kind: adapter.EventResubmit, From: from, Resubmit: p}
}

func restAfterFirstField(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' })
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(s[i:])
}

func senderOf(u *tgbotapi.User, chat *tgbotapi.Chat) adapter.Sender {
	s := adapter.Sender{UserID: u.ID, Username: displayName(u), ChatID: u.ID}
	if chat != nil {
		s.ChatID = chat.ID
	}
	return s
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func mediaOf(msg *tgbotapi.Message) []model.Media {
	var out []model.Media
	if n := len(msg.Photo); n > 0 {
		// sizes are ascending; keep the largest
		out = append(out, model.Media{Kind: model.MediaPhoto, FileID: msg.Photo[n-1].FileID})
	}
	if msg.Video != nil {
		out = append(out, model.Media{Kind: model.MediaVideo, FileID: msg.Video.FileID})
	}
	if msg.Document != nil {
		out = append(out, model.Media{Kind: model.MediaDocument, FileID: msg.Document.FileID})
	}
	return out
}
