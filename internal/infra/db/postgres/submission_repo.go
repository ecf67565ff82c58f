package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/repository"
)

var _ repository.SubmissionRepository = (*submissionRepo)(nil)

type submissionRepo struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepo(pool *pgxpool.Pool) repository.SubmissionRepository {
	return &submissionRepo{pool: pool}
}

const submissionColumns = `id, submitter_id, submitter_name, chat_id, content, media, category, price,
status, revision, decided_by, decision_note, decided_at, created_at, updated_at`

func (r *submissionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Submission) error {
	media, err := json.Marshal(mediaOrEmpty(s.Media))
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	const q = `
INSERT INTO submissions (` + submissionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err = execSQL(ctx, r.pool, tx, q,
		s.ID, s.SubmitterID, s.SubmitterName, s.ChatID, s.Content, media, string(s.Category), nullPrice(s.Price),
		string(s.Status), s.Revision, s.DecidedBy, s.DecisionNote, s.DecidedAt, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *submissionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Submission, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanSubmission(row)
}

func (r *submissionRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.Submission, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, err
	}
	return scanSubmission(row)
}

func (r *submissionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, from, to model.SubmissionStatus, decidedBy *int64, note string, at time.Time) error {
	// resubmission clears the previous decision
	var decidedAt *time.Time
	if decidedBy != nil {
		decidedAt = &at
	}
	const q = `
UPDATE submissions
SET status = $3, decided_by = $4, decision_note = $5, decided_at = $6, updated_at = $7
WHERE id = $1 AND status = $2`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to), decidedBy, note, decidedAt, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, tx, id, from)
	}
	return nil
}

func (r *submissionRepo) missingOrConflict(ctx context.Context, tx repository.Tx, id string, from model.SubmissionStatus) error {
	row, err := pickRow(ctx, r.pool, tx, `SELECT status FROM submissions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	var current string
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return domain.ErrReadDatabaseRow
	}
	return fmt.Errorf("%w: submission %s is %s, expected %s", domain.ErrConflict, id, current, from)
}

func (r *submissionRepo) UpdateContent(ctx context.Context, tx repository.Tx, s *model.Submission) error {
	media, err := json.Marshal(mediaOrEmpty(s.Media))
	if err != nil {
		return fmt.Errorf("marshal media: %w", err)
	}
	const q = `
UPDATE submissions
SET content = $2, media = $3, category = $4, price = $5, revision = $6, updated_at = $7
WHERE id = $1`
	tag, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Content, media, string(s.Category), nullPrice(s.Price), s.Revision, s.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *submissionRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses []model.SubmissionStatus, limit int) ([]*model.Submission, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE status = ANY($1) ORDER BY id`
	args := []interface{}{ss}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *submissionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubmissionStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.SubmissionStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.SubmissionStatus(status)] = n
	}
	return out, rows.Err()
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var (
		s        model.Submission
		media    []byte
		category string
		status   string
		price    decimal.NullDecimal
	)
	err := row.Scan(&s.ID, &s.SubmitterID, &s.SubmitterName, &s.ChatID, &s.Content, &media, &category, &price,
		&status, &s.Revision, &s.DecidedBy, &s.DecisionNote, &s.DecidedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &s.Media); err != nil {
			return nil, fmt.Errorf("%w: media: %v", domain.ErrReadDatabaseRow, err)
		}
	}
	s.Category = model.Category(category)
	s.Status = model.SubmissionStatus(status)
	if price.Valid {
		p := price.Decimal
		s.Price = &p
	}
	return &s, nil
}

func nullPrice(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func mediaOrEmpty(m []model.Media) []model.Media {
	if m == nil {
		return []model.Media{}
	}
	return m
}
