package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/i18n"
	"telegram-ad-moderation/internal/infra/logging"
	"telegram-ad-moderation/internal/infra/metrics"
	red "telegram-ad-moderation/internal/infra/redis"
	"telegram-ad-moderation/internal/usecase"
)

const (
	laneBuffer     = 64
	handleTimeout  = 30 * time.Second
	commandLimit   = 20
	callbackLimit  = 30
	rateLimitSpan  = time.Minute
	callbackMaxLen = 200
)

// Dispatcher routes inbound gateway events to the use cases. Events sharing a
// shard key (a submission id or a user id) are handled one at a time, in order.
type Dispatcher struct {
	submissions usecase.SubmissionUseCase
	moderation  usecase.ModerationUseCase
	gateway     adapter.MessageGateway
	notifier    adapter.Notifier
	limiter     repository.RateLimiter
	translator  *i18n.Translator
	botCfg      *config.BotConfig
	shards      int
	log         *zerolog.Logger
}

func NewDispatcher(
	submissions usecase.SubmissionUseCase,
	moderation usecase.ModerationUseCase,
	gateway adapter.MessageGateway,
	notifier adapter.Notifier,
	limiter repository.RateLimiter,
	translator *i18n.Translator,
	botCfg *config.BotConfig,
	logger *zerolog.Logger,
) *Dispatcher {
	shards := botCfg.Workers
	if shards <= 0 {
		shards = 1
	}
	l := logger.With().Str("component", "dispatcher").Logger()
	return &Dispatcher{
		submissions: submissions,
		moderation:  moderation,
		gateway:     gateway,
		notifier:    notifier,
		limiter:     limiter,
		translator:  translator,
		botCfg:      botCfg,
		shards:      shards,
		log:         &l,
	}
}

// Run consumes events until the channel closes or ctx is done. Events already
// handed to a lane are finished before Run returns.
func (d *Dispatcher) Run(ctx context.Context, events <-chan adapter.InboundEvent) {
	lanes := make([]chan adapter.InboundEvent, d.shards)
	var wg sync.WaitGroup
	handlerCtx := context.WithoutCancel(ctx)
	for i := range lanes {
		lanes[i] = make(chan adapter.InboundEvent, laneBuffer)
		wg.Add(1)
		go func(in <-chan adapter.InboundEvent) {
			defer wg.Done()
			for ev := range in {
				hctx, cancel := context.WithTimeout(handlerCtx, handleTimeout)
				d.Handle(hctx, ev)
				cancel()
			}
		}(lanes[i])
	}
	defer func() {
		for _, lane := range lanes {
			close(lane)
		}
		wg.Wait()
		d.log.Info().Msg("dispatcher stopped")
	}()

	d.log.Info().Int("shards", d.shards).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			lane := lanes[xxhash.Sum64String(ev.ShardKey())%uint64(len(lanes))]
			select {
			case lane <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Handle processes one event synchronously.
func (d *Dispatcher) Handle(ctx context.Context, ev adapter.InboundEvent) {
	ctx = logging.WithTgID(ctx, ev.From.UserID)
	log := logging.With(ctx, d.log)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("kind", string(ev.Kind)).Msg("event handler panicked")
		}
	}()

	if !d.allow(ctx, ev) {
		metrics.IncRateLimitTriggered()
		d.respond(ctx, ev, d.translator.T("error.rate_limited"))
		return
	}

	var reply string
	switch ev.Kind {
	case adapter.EventSubmission:
		reply = d.onSubmission(ctx, ev)
	case adapter.EventDecision:
		reply = d.onDecision(ctx, ev)
	case adapter.EventClaim:
		reply = d.onClaim(ctx, ev)
	case adapter.EventResubmit:
		reply = d.onResubmit(ctx, ev)
	case adapter.EventCommand:
		reply = d.onCommand(ctx, ev)
	default:
		reply = d.onUnknown(ev)
	}
	d.respond(ctx, ev, reply)
}

func (d *Dispatcher) allow(ctx context.Context, ev adapter.InboundEvent) bool {
	if d.limiter == nil || ev.From.UserID == 0 {
		return true
	}
	limit, bucket := commandLimit, string(ev.Kind)
	if ev.CallbackID != "" {
		limit, bucket = callbackLimit, "callback"
	}
	ok, err := d.limiter.Allow(ctx, red.UserCommandKey(ev.From.UserID, bucket), limit, rateLimitSpan)
	if err != nil {
		logging.With(ctx, d.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

// respond answers a button press with a toast, anything else with a chat message.
func (d *Dispatcher) respond(ctx context.Context, ev adapter.InboundEvent, text string) {
	if ev.CallbackID != "" {
		if err := d.gateway.AnswerCallback(ctx, ev.CallbackID, truncateRunes(text, callbackMaxLen)); err != nil {
			logging.With(ctx, d.log).Warn().Err(err).Msg("failed to answer callback")
		}
		return
	}
	if text == "" || ev.From.ChatID == 0 {
		return
	}
	d.notifier.Notify(ctx, adapter.OutboundMessage{ChatID: ev.From.ChatID, Text: text, Kind: "reply"})
}

func (d *Dispatcher) onSubmission(ctx context.Context, ev adapter.InboundEvent) string {
	p := ev.Submission
	if p == nil {
		return ""
	}
	_, err := d.submissions.Submit(ctx, usecase.SubmitInput{
		SubmitterID:   ev.From.UserID,
		SubmitterName: ev.From.Username,
		ChatID:        ev.From.ChatID,
		Content:       p.Content,
		Media:         p.Media,
		MediaGroupID:  p.MediaGroupID,
	})
	if err == nil || errors.Is(err, usecase.ErrDuplicateAlbumItem) {
		return ""
	}
	return d.errorText(ctx, err, "")
}

func (d *Dispatcher) onDecision(ctx context.Context, ev adapter.InboundEvent) string {
	p := ev.Decision
	if p == nil {
		return ""
	}
	if p.SubmissionID == "" {
		return d.translator.T("moderation.usage_decide", string(p.Action))
	}
	s, err := d.moderation.Decide(ctx, model.ModeratorAction{
		ModeratorID:  ev.From.UserID,
		SubmissionID: p.SubmissionID,
		Action:       p.Action,
		Reason:       p.Reason,
		At:           time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			metrics.IncModeratorCommand(string(p.Action), "unauthorized")
		}
		return d.errorText(ctx, err, p.SubmissionID)
	}
	metrics.IncModeratorCommand(string(p.Action), "authorized")
	return d.translator.T("moderation.done", s.ID, d.statusLabel(s.Status))
}

func (d *Dispatcher) onClaim(ctx context.Context, ev adapter.InboundEvent) string {
	_, _, err := d.moderation.Claim(ctx, ev.From.UserID, ev.From.ChatID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			metrics.IncModeratorCommand("claim", "unauthorized")
		}
		return d.errorText(ctx, err, "")
	}
	metrics.IncModeratorCommand("claim", "authorized")
	return ""
}

func (d *Dispatcher) onResubmit(ctx context.Context, ev adapter.InboundEvent) string {
	p := ev.Resubmit
	if p == nil || p.SubmissionID == "" {
		return d.translator.T("moderation.usage_resubmit")
	}
	_, err := d.submissions.Resubmit(ctx, usecase.ResubmitInput{
		SubmitterID:  ev.From.UserID,
		SubmissionID: p.SubmissionID,
		Content:      p.Content,
		Media:        p.Media,
	})
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrForbidden):
		return d.translator.T("error.not_owner")
	case errors.Is(err, domain.ErrInvalidArgument):
		return d.translator.T("moderation.usage_resubmit")
	}
	return d.errorText(ctx, err, p.SubmissionID)
}

func (d *Dispatcher) onCommand(ctx context.Context, ev adapter.InboundEvent) string {
	if ev.Command == nil {
		return ""
	}
	moderator := d.botCfg.IsModerator(ev.From.UserID)
	switch ev.Command.Name {
	case "start":
		if moderator {
			return d.translator.T("start_moderator")
		}
		return d.translator.T("start")
	case "help":
		if moderator {
			return d.translator.T("help_moderator")
		}
		return d.translator.T("help")
	case "rules":
		return d.translator.Rules()
	case "queue":
		if !moderator {
			metrics.IncModeratorCommand("queue", "unauthorized")
			return d.translator.T("moderation.forbidden")
		}
		metrics.IncModeratorCommand("queue", "authorized")
		stats, err := d.moderation.QueueStats(ctx)
		if err != nil {
			return d.errorText(ctx, err, "")
		}
		return d.translator.T("moderation.queue_stats", stats.Pending, stats.Claimed)
	case "status":
		if len(ev.Command.Args) == 0 {
			return d.translator.T("submission.usage_status")
		}
		id := ev.Command.Args[0]
		s, err := d.moderation.Status(ctx, id)
		if err != nil {
			return d.errorText(ctx, err, id)
		}
		if s.SubmitterID != ev.From.UserID && !moderator {
			return d.translator.T("moderation.not_found", id)
		}
		return d.translator.T("submission.status", s.ID, d.statusLabel(s.Status))
	}
	return d.translator.T("unknown_command", "/"+ev.Command.Name)
}

func (d *Dispatcher) onUnknown(ev adapter.InboundEvent) string {
	switch {
	case ev.CallbackID != "":
		return ""
	case d.botCfg.IsModerator(ev.From.UserID):
		return d.translator.T("help_moderator")
	}
	return d.translator.T("help")
}

// errorText maps a use case error to the reply shown to the user.
func (d *Dispatcher) errorText(ctx context.Context, err error, submissionID string) string {
	var ve *domain.ValidationError
	var ce *domain.CooldownError
	switch {
	case errors.As(err, &ve):
		return d.translator.T(ve.Reason, ve.Args...)
	case errors.As(err, &ce):
		return d.translator.T("cooldown.active", "#"+ce.Category, humanDuration(ce.Remaining))
	case errors.Is(err, domain.ErrConflict):
		return d.translator.T("moderation.already_decided", submissionID)
	case errors.Is(err, domain.ErrNotFound):
		return d.translator.T("moderation.not_found", submissionID)
	case errors.Is(err, domain.ErrForbidden):
		return d.translator.T("moderation.forbidden")
	case errors.Is(err, domain.ErrQueueEmpty):
		return d.translator.T("moderation.queue_empty")
	}
	logging.With(ctx, d.log).Error().Err(err).Msg("event handling failed")
	return d.translator.T("error.generic")
}

func (d *Dispatcher) statusLabel(s model.SubmissionStatus) string {
	return d.translator.T("status." + string(s))
}

// humanDuration renders a remaining cooldown as "2h 5m", never less than a minute.
func humanDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		d = time.Minute
	}
	h, m := int(d/time.Hour), int(d%time.Hour/time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
