//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("load translator: %v", err)
	}
	return tr
}

// =============================
// Repositories
// =============================

// MockSubmissionRepo keeps submissions in memory and enforces the conditional update.
type MockSubmissionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Submission

	CreateFunc   func(ctx context.Context, tx repository.Tx, s *model.Submission) error
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Submission, error)
	// AfterList runs once the listing snapshot is taken.
	AfterList func(listed []*model.Submission)
}

var _ repository.SubmissionRepository = (*MockSubmissionRepo)(nil)

func NewMockSubmissionRepo() *MockSubmissionRepo {
	return &MockSubmissionRepo{byID: map[string]*model.Submission{}}
}

func (m *MockSubmissionRepo) Put(s *model.Submission) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byID[s.ID] = &cp
}

func (m *MockSubmissionRepo) Get(id string) *model.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

func (m *MockSubmissionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Submission) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, s)
	}
	m.Put(s)
	return nil
}

func (m *MockSubmissionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Submission, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	if s := m.Get(id); s != nil {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubmissionRepo) LockByID(ctx context.Context, tx repository.Tx, id string) (*model.Submission, error) {
	if tx == nil {
		return nil, domain.ErrInvalidExecContext
	}
	return m.FindByID(ctx, tx, id)
}

func (m *MockSubmissionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, from, to model.SubmissionStatus, decidedBy *int64, note string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != from {
		return fmt.Errorf("%w: %s is %s", domain.ErrConflict, id, s.Status)
	}
	s.Status = to
	s.DecidedBy = decidedBy
	s.DecisionNote = note
	if decidedBy != nil {
		s.DecidedAt = &at
	} else {
		s.DecidedAt = nil
	}
	s.UpdatedAt = at
	return nil
}

func (m *MockSubmissionRepo) UpdateContent(ctx context.Context, tx repository.Tx, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Content, cur.Media, cur.Category, cur.Price, cur.Revision, cur.UpdatedAt = s.Content, s.Media, s.Category, s.Price, s.Revision, s.UpdatedAt
	return nil
}

func (m *MockSubmissionRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses []model.SubmissionStatus, limit int) ([]*model.Submission, error) {
	m.mu.Lock()
	var out []*model.Submission
	for _, s := range m.byID {
		for _, st := range statuses {
			if s.Status == st {
				cp := *s
				out = append(out, &cp)
			}
		}
	}
	m.mu.Unlock()
	if m.AfterList != nil {
		m.AfterList(out)
	}
	return out, nil
}

func (m *MockSubmissionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubmissionStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.SubmissionStatus]int{}
	for _, s := range m.byID {
		out[s.Status]++
	}
	return out, nil
}

// MockTxManager serializes transactions, standing in for row locks.
type MockTxManager struct {
	mu sync.Mutex
}

type mockTx struct{}

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, mockTx{})
}

// =============================
// Guards
// =============================

type MockLocker struct {
	mu       sync.Mutex
	held     map[string]string
	TryErr   error
	Unlocked int
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TryErr != nil {
		return "", m.TryErr
	}
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockBusy
	}
	token := uuid.NewString()
	m.held[key] = token
	return token, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
		m.Unlocked++
	}
	return nil
}

type MockCooldownStore struct {
	mu        sync.Mutex
	remaining map[string]time.Duration
	Started   []string
}

func NewMockCooldownStore() *MockCooldownStore {
	return &MockCooldownStore{remaining: map[string]time.Duration{}}
}

func (m *MockCooldownStore) Remaining(ctx context.Context, userID int64, category string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining[fmt.Sprintf("%d:%s", userID, category)], nil
}

func (m *MockCooldownStore) Start(ctx context.Context, userID int64, category string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d:%s", userID, category)
	m.remaining[key] = d
	m.Started = append(m.Started, key)
	return nil
}

type MockMediaGroupIndex struct {
	mu    sync.Mutex
	bound map[string]string
}

func (m *MockMediaGroupIndex) Reserve(ctx context.Context, groupID string, ttl time.Duration) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bound == nil {
		m.bound = map[string]string{}
	}
	if id, ok := m.bound[groupID]; ok {
		return false, id, nil
	}
	m.bound[groupID] = ""
	return true, "", nil
}

func (m *MockMediaGroupIndex) Bind(ctx context.Context, groupID, submissionID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bound == nil {
		m.bound = map[string]string{}
	}
	m.bound[groupID] = submissionID
	return nil
}

// =============================
// Adapters
// =============================

// MockNotifier records outbound messages synchronously.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.OutboundMessage
}

var _ adapter.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Notify(ctx context.Context, msg adapter.OutboundMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
}

func (m *MockNotifier) To(chatID int64) []adapter.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []adapter.OutboundMessage
	for _, s := range m.Sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *MockNotifier) Reset() {
	m.mu.Lock()
	m.Sent = nil
	m.mu.Unlock()
}

func containsText(msgs []adapter.OutboundMessage, sub string) bool {
	for _, m := range msgs {
		if strings.Contains(m.Text, sub) {
			return true
		}
	}
	return false
}
