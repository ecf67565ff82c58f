package model

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"telegram-ad-moderation/internal/domain"
)

type SubmissionStatus string

const (
	StatusPending       SubmissionStatus = "pending"
	StatusApproved      SubmissionStatus = "approved"
	StatusRejected      SubmissionStatus = "rejected"
	StatusEditRequested SubmissionStatus = "edit_requested"
)

// Terminal reports whether no further decision may be applied.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusEditRequested:
		return true
	}
	return false
}

type Category string

const (
	CategorySell Category = "sell"
	CategoryBuy  Category = "buy"
)

type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Media is a reference to a file hosted by the messaging platform.
type Media struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// Submission is a single advertisement awaiting or having received a decision.
type Submission struct {
	ID            string
	SubmitterID   int64
	SubmitterName string
	ChatID        int64
	Content       string
	Media         []Media
	Category      Category
	Price         *decimal.Decimal
	Status        SubmissionStatus
	Revision      int
	DecidedBy     *int64
	DecisionNote  string
	DecidedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSubmissionID returns a ULID; ids sort in creation order.
func NewSubmissionID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// NewSubmission validates the payload and builds a pending submission.
// maxLen is measured in runes; zero disables the check.
func NewSubmission(submitterID, chatID int64, submitterName, content string, media []Media, category Category, maxLen int) (*Submission, error) {
	if submitterID <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	content = strings.TrimSpace(content)
	if err := ValidateContent(content, maxLen); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if chatID == 0 {
		chatID = submitterID
	}
	return &Submission{
		ID:            NewSubmissionID(now),
		SubmitterID:   submitterID,
		SubmitterName: submitterName,
		ChatID:        chatID,
		Content:       content,
		Media:         media,
		Category:      category,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidateContent enforces the non-empty and size limits of a submission body.
func ValidateContent(content string, maxLen int) error {
	if strings.TrimSpace(content) == "" {
		return domain.NewValidationError("screen.empty")
	}
	if maxLen > 0 && utf8.RuneCountInString(content) > maxLen {
		return domain.NewValidationError("screen.too_long", maxLen)
	}
	return nil
}

// ApplyDecision records the outcome of a moderator action on a copy.
func (s *Submission) ApplyDecision(to SubmissionStatus, moderatorID int64, note string, at time.Time) *Submission {
	cp := *s
	cp.Status = to
	cp.DecidedBy = &moderatorID
	cp.DecisionNote = note
	cp.DecidedAt = &at
	cp.UpdatedAt = at
	return &cp
}

// Resubmitted returns a pending copy carrying the new payload.
func (s *Submission) Resubmitted(content string, media []Media, price *decimal.Decimal, at time.Time) *Submission {
	cp := *s
	cp.Content = strings.TrimSpace(content)
	if len(media) > 0 {
		cp.Media = media
	}
	cp.Price = price
	cp.Status = StatusPending
	cp.Revision++
	cp.UpdatedAt = at
	return &cp
}

// Preview returns at most n runes of content for cards and logs.
func (s *Submission) Preview(n int) string {
	if utf8.RuneCountInString(s.Content) <= n {
		return s.Content
	}
	r := []rune(s.Content)
	return string(r[:n]) + "…"
}
