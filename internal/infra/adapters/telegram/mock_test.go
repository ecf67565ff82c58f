//go:build !integration

package telegram

import (
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
)

type fakeBotAPI struct {
	mu          sync.Mutex
	updates     chan tgbotapi.Update
	stopped     bool
	sent        []tgbotapi.Chattable
	requests    []tgbotapi.Chattable
	groups      []tgbotapi.MediaGroupConfig
	SendErr     error
	RequestErr  error
	nextMessage int
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeBotAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeBotAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return tgbotapi.Message{}, f.SendErr
	}
	f.sent = append(f.sent, c)
	f.nextMessage++
	return tgbotapi.Message{MessageID: f.nextMessage}, nil
}

func (f *fakeBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RequestErr != nil {
		return nil, f.RequestErr
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBotAPI) SendMediaGroup(c tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return nil, f.SendErr
	}
	f.groups = append(f.groups, c)
	return make([]tgbotapi.Message, len(c.Media)), nil
}

func newTestAdapter(api botAPI, moderators ...int64) *RealTelegramBotAdapter {
	l := zerolog.New(nil)
	return newAdapter(api, &config.BotConfig{ModeratorIDs: moderators}, &l)
}

func privateChat(id int64) *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: id, Type: "private"}
}

// commandMessage builds a message whose first token is a bot command entity.
func commandMessage(userID int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID, UserName: "user"},
		Chat:     privateChat(userID),
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}
