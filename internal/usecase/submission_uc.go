package usecase

import (
	"context"
	"errors"
	"strconv"
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

// ErrDuplicateAlbumItem marks a later item of an already submitted media group.
// Its media is attached to the submission built from the first item.
var ErrDuplicateAlbumItem = errors.New("media group already submitted")

const mediaGroupWindow = 60 * time.Second

// Compile-time check
var _ SubmissionUseCase = (*submissionUC)(nil)

type SubmitInput struct {
	SubmitterID   int64
	SubmitterName string
	ChatID        int64
	Content       string
	Media         []model.Media
	MediaGroupID  string
}

type ResubmitInput struct {
	SubmitterID  int64
	SubmissionID string
	Content      string
	Media        []model.Media
}

// SubmissionUseCase covers the submitter side: intake, resubmission and queue recovery.
type SubmissionUseCase interface {
	Submit(ctx context.Context, in SubmitInput) (*model.Submission, error)
	Resubmit(ctx context.Context, in ResubmitInput) (*model.Submission, error)
	// RebuildQueue enqueues every pending submission; already queued ones are skipped.
	RebuildQueue(ctx context.Context) (int, error)
}

type submissionUC struct {
	submissions repository.SubmissionRepository
	queue       repository.ModerationQueue
	cooldowns   repository.CooldownStore
	albums      repository.MediaGroupIndex
	tm          repository.TransactionManager
	notifier    adapter.Notifier
	screener    *Screener
	translator  *i18n.Translator
	botCfg      *config.BotConfig
	modCfg      *config.ModerationConfig
	log         *zerolog.Logger
}

func NewSubmissionUseCase(
	submissions repository.SubmissionRepository,
	queue repository.ModerationQueue,
	cooldowns repository.CooldownStore,
	albums repository.MediaGroupIndex,
	tm repository.TransactionManager,
	notifier adapter.Notifier,
	translator *i18n.Translator,
	botCfg *config.BotConfig,
	modCfg *config.ModerationConfig,
	logger *zerolog.Logger,
) *submissionUC {
	return &submissionUC{
		submissions: submissions,
		queue:       queue,
		cooldowns:   cooldowns,
		albums:      albums,
		tm:          tm,
		notifier:    notifier,
		screener:    NewScreener(*modCfg),
		translator:  translator,
		botCfg:      botCfg,
		modCfg:      modCfg,
		log:         logger,
	}
}

func (u *submissionUC) Submit(ctx context.Context, in SubmitInput) (*model.Submission, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.Submit")()
	log := logging.With(logging.WithTgID(ctx, in.SubmitterID), u.log)

	if in.MediaGroupID != "" {
		first, boundID, err := u.albums.Reserve(ctx, in.MediaGroupID, mediaGroupWindow)
		if err != nil {
			log.Warn().Err(err).Str("media_group", in.MediaGroupID).Msg("album dedup unavailable")
		} else if !first {
			u.attachAlbumItem(ctx, boundID, in, log)
			return nil, ErrDuplicateAlbumItem
		}
	}

	category, price, err := u.screener.Screen(in.Content)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.IncScreeningRejection(ve.Reason)
		}
		return nil, err
	}

	if u.modCfg.Cooldown > 0 {
		remaining, err := u.cooldowns.Remaining(ctx, in.SubmitterID, string(category))
		if err != nil {
			log.Warn().Err(err).Msg("cooldown lookup failed")
		} else if remaining > 0 {
			return nil, &domain.CooldownError{Category: string(category), Remaining: remaining}
		}
	}

	s, err := model.NewSubmission(in.SubmitterID, in.ChatID, in.SubmitterName, in.Content, in.Media, category, u.modCfg.MaxContentLength)
	if err != nil {
		return nil, err
	}
	s.Price = price

	if err := u.submissions.Create(ctx, repository.NoTX, s); err != nil {
		log.Error().Err(err).Msg("failed to store submission")
		return nil, err
	}
	log = logging.With(logging.WithSubmissionID(ctx, s.ID), log)

	if in.MediaGroupID != "" {
		if err := u.albums.Bind(ctx, in.MediaGroupID, s.ID, mediaGroupWindow); err != nil {
			log.Warn().Err(err).Str("media_group", in.MediaGroupID).Msg("failed to bind album")
		}
	}
	if _, err := u.queue.Enqueue(ctx, s.ID, s.CreatedAt); err != nil {
		// the reconciler picks it up from the store
		log.Error().Err(err).Msg("failed to enqueue submission")
	}
	if u.modCfg.Cooldown > 0 {
		if err := u.cooldowns.Start(ctx, in.SubmitterID, string(category), u.modCfg.Cooldown); err != nil {
			log.Warn().Err(err).Msg("failed to record cooldown")
		}
	}
	metrics.IncSubmissionCreated(category)
	log.Info().Str("category", string(category)).Msg("submission received")

	u.notifier.Notify(ctx, adapter.OutboundMessage{
		ChatID: s.ChatID,
		Text:   u.translator.T("submission.received", s.ID),
		Kind:   "received",
	})
	u.announce(ctx, s)
	return s, nil
}

func (u *submissionUC) Resubmit(ctx context.Context, in ResubmitInput) (*model.Submission, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.Resubmit")()
	if in.SubmissionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(logging.WithSubmissionID(logging.WithTgID(ctx, in.SubmitterID), in.SubmissionID), u.log)

	category, price, err := u.screener.Screen(in.Content)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			metrics.IncScreeningRejection(ve.Reason)
		}
		return nil, err
	}

	now := time.Now().UTC()
	var updated *model.Submission
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.submissions.LockByID(ctx, tx, in.SubmissionID)
		if err != nil {
			return err
		}
		if cur.SubmitterID != in.SubmitterID {
			return domain.ErrForbidden
		}
		to, err := model.Transition(cur.Status, model.ActionResubmit)
		if err != nil {
			return err
		}
		next := cur.Resubmitted(in.Content, in.Media, price, now)
		next.Category = category
		if err := u.submissions.UpdateContent(ctx, tx, next); err != nil {
			return err
		}
		if err := u.submissions.UpdateStatus(ctx, tx, cur.ID, cur.Status, to, nil, "", now); err != nil {
			return err
		}
		next.DecidedBy, next.DecidedAt, next.DecisionNote = nil, nil, ""
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := u.queue.Enqueue(ctx, updated.ID, now); err != nil {
		log.Error().Err(err).Msg("failed to enqueue resubmission")
	}
	log.Info().Int("revision", updated.Revision).Msg("submission resubmitted")

	u.notifier.Notify(ctx, adapter.OutboundMessage{
		ChatID: updated.ChatID,
		Text:   u.translator.T("submission.resubmitted", updated.ID),
		Kind:   "resubmitted",
	})
	u.announce(ctx, updated)
	return updated, nil
}

func (u *submissionUC) RebuildQueue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "SubmissionUC.RebuildQueue")()
	pending, err := u.submissions.ListByStatus(ctx, repository.NoTX, []model.SubmissionStatus{model.StatusPending}, 0)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, s := range pending {
		ok, err := u.queue.Enqueue(ctx, s.ID, s.UpdatedAt)
		if err != nil {
			return added, err
		}
		if !ok {
			continue
		}
		// A decision committed after the listing releases its task before or
		// after this Enqueue; re-reading the status covers the "before" case.
		cur, err := u.submissions.FindByID(ctx, repository.NoTX, s.ID)
		if err != nil {
			return added, err
		}
		if cur.Status != model.StatusPending {
			if err := u.queue.Release(ctx, s.ID); err != nil {
				return added, err
			}
			continue
		}
		added++
	}
	return added, nil
}

// attachAlbumItem appends the media of a later album item to the submission
// built from the first one while it is still pending.
func (u *submissionUC) attachAlbumItem(ctx context.Context, submissionID string, in SubmitInput, log *zerolog.Logger) {
	if submissionID == "" || len(in.Media) == 0 {
		// first item was refused or is not stored yet
		return
	}
	var updated *model.Submission
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.submissions.LockByID(ctx, tx, submissionID)
		if err != nil {
			return err
		}
		if cur.SubmitterID != in.SubmitterID || cur.Status != model.StatusPending {
			return nil
		}
		next := *cur
		next.Media = append(append([]model.Media(nil), cur.Media...), in.Media...)
		next.UpdatedAt = time.Now().UTC()
		if err := u.submissions.UpdateContent(ctx, tx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("submission_id", submissionID).Msg("failed to attach album item")
		return
	}
	if updated == nil {
		return
	}
	log.Debug().Str("submission_id", submissionID).Int("media", len(updated.Media)).Msg("album item attached")
	for _, chatID := range moderatorChats(u.botCfg) {
		u.notifier.Notify(ctx, adapter.OutboundMessage{
			ChatID: chatID,
			Text:   u.translator.T("submission.album_item", submissionID),
			Media:  in.Media,
			Kind:   "album_item",
		})
	}
}

// announce sends the review card to the moderators.
func (u *submissionUC) announce(ctx context.Context, s *model.Submission) {
	for _, chatID := range moderatorChats(u.botCfg) {
		u.notifier.Notify(ctx, reviewCard(u.translator, s, chatID))
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
