package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-ad-moderation/internal/domain"
)

var unreachableMarkers = []string{
	"chat not found",
	"user is deactivated",
	"bot was blocked",
	"bot was kicked",
	"peer_id_invalid",
}

// classifyError maps Bot API failures onto the domain delivery errors.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		var valErr tgbotapi.Error
		if !errors.As(err, &valErr) {
			return fmt.Errorf("%w: %v", domain.ErrDelivery, err)
		}
		apiErr = &valErr
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		retry := time.Duration(apiErr.RetryAfter) * time.Second
		if retry <= 0 {
			retry = time.Second
		}
		return &domain.RateLimitError{RetryAfter: retry}
	case apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrInvalidRecipient, apiErr.Message)
	case apiErr.Code == http.StatusBadRequest && isUnreachable(apiErr.Message):
		return fmt.Errorf("%w: %s", domain.ErrInvalidRecipient, apiErr.Message)
	}
	return fmt.Errorf("%w: telegram %d: %s", domain.ErrDelivery, apiErr.Code, apiErr.Message)
}

func isUnreachable(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range unreachableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
