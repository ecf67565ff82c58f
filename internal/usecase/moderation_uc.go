package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/config"
	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/i18n"
	"telegram-ad-moderation/internal/infra/logging"
	"telegram-ad-moderation/internal/infra/metrics"
)

// Compile-time check
var _ ModerationUseCase = (*moderationUC)(nil)

// ModerationUseCase is the decision state machine plus the moderator's view of the queue.
type ModerationUseCase interface {
	// Decide applies a moderator action. The first committed decision wins; later ones
	// fail with domain.ErrConflict and leave the submission unchanged.
	Decide(ctx context.Context, action model.ModeratorAction) (*model.Submission, error)
	// Claim hands the oldest pending submission to moderatorID and sends its review
	// card to replyChatID (the moderator's private chat when zero).
	Claim(ctx context.Context, moderatorID, replyChatID int64) (*model.ModerationTask, *model.Submission, error)
	Status(ctx context.Context, submissionID string) (*model.Submission, error)
	QueueStats(ctx context.Context) (repository.QueueStats, error)
}

type moderationUC struct {
	submissions repository.SubmissionRepository
	queue       repository.ModerationQueue
	locker      repository.Locker
	tm          repository.TransactionManager
	notifier    adapter.Notifier
	translator  *i18n.Translator
	botCfg      *config.BotConfig
	lockTTL     time.Duration
	log         *zerolog.Logger
}

func NewModerationUseCase(
	submissions repository.SubmissionRepository,
	queue repository.ModerationQueue,
	locker repository.Locker,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	translator *i18n.Translator,
	botCfg *config.BotConfig,
	modCfg *config.ModerationConfig,
	logger *zerolog.Logger,
) *moderationUC {
	return &moderationUC{
		submissions: submissions,
		queue:       queue,
		locker:      locker,
		tm:          tm,
		notifier:    notifier,
		translator:  translator,
		botCfg:      botCfg,
		lockTTL:     modCfg.DecisionLockTTL,
		log:         logger,
	}
}

func (u *moderationUC) Decide(ctx context.Context, a model.ModeratorAction) (*model.Submission, error) {
	defer logging.TraceDuration(u.log, "ModerationUC.Decide")()
	log := logging.With(logging.WithSubmissionID(logging.WithTgID(ctx, a.ModeratorID), a.SubmissionID), u.log)

	if !u.botCfg.IsModerator(a.ModeratorID) {
		metrics.IncDecision(a.Action, "forbidden")
		return nil, domain.ErrForbidden
	}
	if !a.Action.IsModeratorAction() || a.SubmissionID == "" {
		metrics.IncDecision(a.Action, "invalid")
		return nil, fmt.Errorf("%w: %q on %q", domain.ErrInvalidArgument, a.Action, a.SubmissionID)
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}

	lockKey := "lock:submission:" + a.SubmissionID
	token, err := u.locker.TryLock(ctx, lockKey, u.lockTTL)
	switch {
	case errors.Is(err, domain.ErrLockBusy):
		metrics.IncDecision(a.Action, "conflict")
		return nil, fmt.Errorf("%w: decision already in flight", domain.ErrConflict)
	case err != nil:
		// the conditional update below still guarantees a single winner
		log.Warn().Err(err).Msg("decision lock unavailable")
	default:
		defer func() {
			if err := u.locker.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				log.Warn().Err(err).Msg("failed to release decision lock")
			}
		}()
	}

	var decided *model.Submission
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.submissions.LockByID(ctx, tx, a.SubmissionID)
		if err != nil {
			return err
		}
		to, err := model.Transition(cur.Status, a.Action)
		if err != nil {
			return err
		}
		if err := u.submissions.UpdateStatus(ctx, tx, cur.ID, cur.Status, to, &a.ModeratorID, a.Reason, a.At); err != nil {
			return err
		}
		decided = cur.ApplyDecision(to, a.ModeratorID, a.Reason, a.At)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			metrics.IncDecision(a.Action, "conflict")
		case errors.Is(err, domain.ErrNotFound):
			metrics.IncDecision(a.Action, "not_found")
		default:
			metrics.IncDecision(a.Action, "error")
			log.Error().Err(err).Msg("decision failed")
		}
		return nil, err
	}

	if err := u.queue.Release(ctx, decided.ID); err != nil {
		log.Warn().Err(err).Msg("failed to release queue task")
	}
	metrics.IncDecision(a.Action, "ok")
	log.Info().Str("action", string(a.Action)).Str("status", string(decided.Status)).Msg("submission decided")

	u.notifyOutcome(ctx, decided)
	return decided, nil
}

func (u *moderationUC) notifyOutcome(ctx context.Context, s *model.Submission) {
	t := u.translator
	msg := adapter.OutboundMessage{ChatID: s.ChatID, Kind: string(s.Status)}
	switch s.Status {
	case model.StatusApproved:
		msg.Text = t.T("submission.approved", s.ID)
		if u.botCfg.PublishChatID != 0 {
			text := s.Content
			if s.SubmitterName != "" {
				text += t.T("publish.footer", s.SubmitterName)
			}
			u.notifier.Notify(ctx, adapter.OutboundMessage{
				ChatID: u.botCfg.PublishChatID,
				Text:   text,
				Media:  s.Media,
				Kind:   "publish",
			})
		}
	case model.StatusRejected:
		reason := s.DecisionNote
		if reason == "" {
			reason = t.T("reason.default_reject")
		}
		msg.Text = t.T("submission.rejected", s.ID, reason)
	case model.StatusEditRequested:
		note := s.DecisionNote
		if note == "" {
			note = t.T("reason.default_edit")
		}
		msg.Text = t.T("submission.edit_requested", s.ID, note, s.ID)
	default:
		return
	}
	u.notifier.Notify(ctx, msg)
}

func (u *moderationUC) Claim(ctx context.Context, moderatorID, replyChatID int64) (*model.ModerationTask, *model.Submission, error) {
	defer logging.TraceDuration(u.log, "ModerationUC.Claim")()
	if !u.botCfg.IsModerator(moderatorID) {
		return nil, nil, domain.ErrForbidden
	}
	if replyChatID == 0 {
		replyChatID = moderatorID
	}

	for {
		task, err := u.queue.Claim(ctx, moderatorID, time.Now().UTC())
		if err != nil {
			return nil, nil, err
		}
		s, err := u.submissions.FindByID(ctx, repository.NoTX, task.SubmissionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		if err != nil || s.Status != model.StatusPending {
			// stale task: the submission was decided elsewhere
			_ = u.queue.Release(ctx, task.SubmissionID)
			continue
		}
		u.notifier.Notify(ctx, reviewCard(u.translator, s, replyChatID))
		return task, s, nil
	}
}

func (u *moderationUC) Status(ctx context.Context, submissionID string) (*model.Submission, error) {
	defer logging.TraceDuration(u.log, "ModerationUC.Status")()
	if submissionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.submissions.FindByID(ctx, repository.NoTX, submissionID)
}

func (u *moderationUC) QueueStats(ctx context.Context) (repository.QueueStats, error) {
	return u.queue.Stats(ctx)
}
