package repository

import (
	"context"
	"time"

	"telegram-ad-moderation/internal/domain/model"
)

// -----------------------------
// Submissions
// -----------------------------

// SubmissionRepository exclusively owns Submission records. Records are never deleted.
type SubmissionRepository interface {
	Create(ctx context.Context, tx Tx, s *model.Submission) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Submission, error)
	// LockByID reads the row with FOR UPDATE; tx must be a live transaction.
	LockByID(ctx context.Context, tx Tx, id string) (*model.Submission, error)
	// UpdateStatus moves id from `from` to `to` only if the stored status still equals
	// `from`; otherwise it fails with domain.ErrConflict.
	UpdateStatus(ctx context.Context, tx Tx, id string, from, to model.SubmissionStatus, decidedBy *int64, note string, at time.Time) error
	// UpdateContent stores a resubmitted payload (content, media, price, revision).
	UpdateContent(ctx context.Context, tx Tx, s *model.Submission) error
	ListByStatus(ctx context.Context, tx Tx, statuses []model.SubmissionStatus, limit int) ([]*model.Submission, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubmissionStatus]int, error)
}
