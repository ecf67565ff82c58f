//go:build !integration

package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/adapter"
	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/i18n"
	"telegram-ad-moderation/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func newTestTranslator(t *testing.T) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("failed to load translator: %v", err)
	}
	return tr
}

// ---- submission use case ----

type mockSubmissionUC struct {
	mu         sync.Mutex
	submitted  []usecase.SubmitInput
	resubmits  []usecase.ResubmitInput
	submitErr  error
	resubErr   error
	submitHook func(in usecase.SubmitInput)
}

func (m *mockSubmissionUC) Submit(ctx context.Context, in usecase.SubmitInput) (*model.Submission, error) {
	if m.submitHook != nil {
		m.submitHook(in)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, in)
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &model.Submission{ID: "01SUB", SubmitterID: in.SubmitterID, Status: model.StatusPending}, nil
}

func (m *mockSubmissionUC) Resubmit(ctx context.Context, in usecase.ResubmitInput) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resubmits = append(m.resubmits, in)
	if m.resubErr != nil {
		return nil, m.resubErr
	}
	return &model.Submission{ID: in.SubmissionID, SubmitterID: in.SubmitterID, Status: model.StatusPending, Revision: 1}, nil
}

func (m *mockSubmissionUC) RebuildQueue(ctx context.Context) (int, error) { return 0, nil }

func (m *mockSubmissionUC) Submitted() []usecase.SubmitInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]usecase.SubmitInput(nil), m.submitted...)
}

// ---- moderation use case ----

type mockModerationUC struct {
	mu        sync.Mutex
	decisions []model.ModeratorAction
	decideErr error
	claims    []int64
	claimErr  error
	status    *model.Submission
	statusErr error
	stats     repository.QueueStats
}

func (m *mockModerationUC) Decide(ctx context.Context, a model.ModeratorAction) (*model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, a)
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	to, err := model.Transition(model.StatusPending, a.Action)
	if err != nil {
		return nil, err
	}
	return &model.Submission{ID: a.SubmissionID, Status: to}, nil
}

func (m *mockModerationUC) Claim(ctx context.Context, moderatorID, replyChatID int64) (*model.ModerationTask, *model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, replyChatID)
	if m.claimErr != nil {
		return nil, nil, m.claimErr
	}
	now := time.Now()
	return &model.ModerationTask{SubmissionID: "01SUB", EnqueuedAt: now, ClaimedBy: &moderatorID, ClaimedAt: &now},
		&model.Submission{ID: "01SUB", Status: model.StatusPending}, nil
}

func (m *mockModerationUC) Status(ctx context.Context, id string) (*model.Submission, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *mockModerationUC) QueueStats(ctx context.Context) (repository.QueueStats, error) {
	return m.stats, nil
}

// ---- gateway / notifier ----

type mockGateway struct {
	mu      sync.Mutex
	answers map[string]string
}

func (g *mockGateway) Receive(ctx context.Context) <-chan adapter.InboundEvent {
	ch := make(chan adapter.InboundEvent)
	close(ch)
	return ch
}

func (g *mockGateway) Send(ctx context.Context, msg adapter.OutboundMessage) (adapter.Ack, error) {
	return adapter.Ack{}, nil
}

func (g *mockGateway) AnswerCallback(ctx context.Context, callbackID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.answers == nil {
		g.answers = map[string]string{}
	}
	g.answers[callbackID] = text
	return nil
}

func (g *mockGateway) Answer(id string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	text, ok := g.answers[id]
	return text, ok
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []adapter.OutboundMessage
}

func (n *mockNotifier) Notify(ctx context.Context, msg adapter.OutboundMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *mockNotifier) Sent() []adapter.OutboundMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]adapter.OutboundMessage(nil), n.sent...)
}

// onlyReply returns the single message sent, failing otherwise.
func (n *mockNotifier) onlyReply(t *testing.T) adapter.OutboundMessage {
	t.Helper()
	sent := n.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one reply, got %d: %+v", len(sent), sent)
	}
	return sent[0]
}

// ---- rate limiter ----

type mockLimiter struct {
	mu   sync.Mutex
	deny bool
	err  error
	keys []string
}

func (l *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.err != nil {
		return false, l.err
	}
	return !l.deny, nil
}

func containsText(s, sub string) bool { return strings.Contains(s, sub) }
