package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/infra/metrics"
)

var _ adapter.MessageGateway = (*RealTelegramBotAdapter)(nil)

// botAPI is the part of *tgbotapi.BotAPI the gateway uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// RealTelegramBotAdapter polls Telegram for updates and turns them into InboundEvents.
type RealTelegramBotAdapter struct {
	bot          botAPI
	moderatorIDs map[int64]struct{}
	bufferSize   int
	log          *zerolog.Logger
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger.Info().Str("username", bot.Self.UserName).Msg("authorized on telegram")
	return newAdapter(bot, cfg, logger), nil
}

func newAdapter(bot botAPI, cfg *config.BotConfig, logger *zerolog.Logger) *RealTelegramBotAdapter {
	mods := make(map[int64]struct{}, len(cfg.ModeratorIDs))
	for _, id := range cfg.ModeratorIDs {
		mods[id] = struct{}{}
	}
	compLog := logger.With().Str("component", "TelegramGateway").Logger()
	return &RealTelegramBotAdapter{
		bot:          bot,
		moderatorIDs: mods,
		bufferSize:   100,
		log:          &compLog,
	}
}

// Receive starts long polling. The channel is closed once ctx is done.
func (r *RealTelegramBotAdapter) Receive(ctx context.Context) <-chan adapter.InboundEvent {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := r.bot.GetUpdatesChan(u)

	out := make(chan adapter.InboundEvent, r.bufferSize)
	go func() {
		defer close(out)
		defer r.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case up, ok := <-updates:
				if !ok {
					return
				}
				ev, ok := r.translate(up)
				if !ok {
					continue
				}
				metrics.IncTelegramUpdate(string(ev.Kind))
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Send delivers media first, then the text carrying the inline keyboard.
func (r *RealTelegramBotAdapter) Send(ctx context.Context, msg adapter.OutboundMessage) (adapter.Ack, error) {
	if err := ctx.Err(); err != nil {
		return adapter.Ack{}, err
	}
	if err := r.sendMedia(msg.ChatID, msg.Media); err != nil {
		return adapter.Ack{}, err
	}
	if msg.Text == "" {
		return adapter.Ack{}, nil
	}

	m := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	m.DisableWebPagePreview = true
	if markup, ok := inlineKeyboard(msg.Buttons); ok {
		m.ReplyMarkup = markup
	}
	sent, err := r.bot.Send(m)
	if err != nil {
		return adapter.Ack{}, classifyError(err)
	}
	return adapter.Ack{MessageID: sent.MessageID}, nil
}

func (r *RealTelegramBotAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}
	if _, err := r.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return classifyError(err)
	}
	return nil
}

// SetMenuCommands registers the command menu for everyone and the extended one for moderators.
func (r *RealTelegramBotAdapter) SetMenuCommands(ctx context.Context) error {
	userCmds := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start"},
		{Command: "rules", Description: "Posting rules"},
		{Command: "status", Description: "Ad status"},
		{Command: "resubmit", Description: "Send an edited ad"},
		{Command: "help", Description: "Help"},
	}
	if _, err := r.bot.Request(tgbotapi.NewSetMyCommands(userCmds...)); err != nil {
		return classifyError(err)
	}

	modCmds := append([]tgbotapi.BotCommand{
		{Command: "claim", Description: "Review next ad"},
		{Command: "queue", Description: "Queue size"},
		{Command: "approve", Description: "Approve an ad"},
		{Command: "reject", Description: "Reject an ad"},
		{Command: "edit", Description: "Request an edit"},
	}, userCmds...)
	for id := range r.moderatorIDs {
		scope := tgbotapi.NewBotCommandScopeChat(id)
		if _, err := r.bot.Request(tgbotapi.NewSetMyCommandsWithScope(scope, modCmds...)); err != nil {
			r.log.Warn().Err(err).Int64("tg_id", id).Msg("failed to set moderator menu commands")
		}
	}
	return nil
}

func (r *RealTelegramBotAdapter) isModerator(id int64) bool {
	_, ok := r.moderatorIDs[id]
	return ok
}

func (r *RealTelegramBotAdapter) sendMedia(chatID int64, media []model.Media) error {
	switch {
	case len(media) == 0:
		return nil
	case len(media) == 1 || !groupable(media):
		for _, m := range media {
			if _, err := r.bot.Send(singleMedia(chatID, m)); err != nil {
				return classifyError(err)
			}
		}
		return nil
	}

	// albums hold at most 10 items
	for start := 0; start < len(media); start += 10 {
		end := start + 10
		if end > len(media) {
			end = len(media)
		}
		items := make([]interface{}, 0, end-start)
		for _, m := range media[start:end] {
			items = append(items, groupItem(m))
		}
		if _, err := r.bot.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, items)); err != nil {
			return classifyError(err)
		}
	}
	return nil
}

func groupable(media []model.Media) bool {
	for _, m := range media {
		if m.Kind == model.MediaDocument {
			return false
		}
	}
	return true
}

func singleMedia(chatID int64, m model.Media) tgbotapi.Chattable {
	file := tgbotapi.FileID(m.FileID)
	switch m.Kind {
	case model.MediaVideo:
		return tgbotapi.NewVideo(chatID, file)
	case model.MediaDocument:
		return tgbotapi.NewDocument(chatID, file)
	default:
		return tgbotapi.NewPhoto(chatID, file)
	}
}

func groupItem(m model.Media) interface{} {
	file := tgbotapi.FileID(m.FileID)
	if m.Kind == model.MediaVideo {
		return tgbotapi.NewInputMediaVideo(file)
	}
	return tgbotapi.NewInputMediaPhoto(file)
}

func inlineKeyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
			} else {
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
