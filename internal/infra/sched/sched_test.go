//go:build !integration

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/repository"
	"telegram-ad-moderation/internal/infra/queue"
	"telegram-ad-moderation/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

type stubSubmissionUC struct {
	rebuilt int
	err     error
	calls   int
}

func (s *stubSubmissionUC) Submit(context.Context, usecase.SubmitInput) (*model.Submission, error) {
	return nil, nil
}

func (s *stubSubmissionUC) Resubmit(context.Context, usecase.ResubmitInput) (*model.Submission, error) {
	return nil, nil
}

func (s *stubSubmissionUC) RebuildQueue(context.Context) (int, error) {
	s.calls++
	return s.rebuilt, s.err
}

type countingRepo struct {
	repository.SubmissionRepository // only CountByStatus is exercised
	counts                          map[model.SubmissionStatus]int
	err                             error
}

func (r *countingRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubmissionStatus]int, error) {
	return r.counts, r.err
}

func TestClaimReaper_ReleasesOnlyStaleClaims(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, _ = q.Enqueue(ctx, "old", now.Add(-time.Hour))
	_, _ = q.Enqueue(ctx, "fresh", now.Add(-time.Hour+time.Second))
	if _, err := q.Claim(ctx, 900, now.Add(-20*time.Minute)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := q.Claim(ctx, 901, now.Add(-time.Minute)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	r := NewClaimReaper(time.Minute, 15*time.Minute, q, newTestLogger())
	r.now = func() time.Time { return now }

	if n := r.reap(ctx); n != 1 {
		t.Fatalf("expected 1 reaped claim, got %d", n)
	}
	task, err := q.Get(ctx, "old")
	if err != nil || task.Claimed() {
		t.Errorf("expected old claim released, got %+v (%v)", task, err)
	}
	task, err = q.Get(ctx, "fresh")
	if err != nil || !task.Claimed() {
		t.Errorf("expected fresh claim kept, got %+v (%v)", task, err)
	}
}

func TestClaimReaper_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewClaimReaper(time.Millisecond, time.Minute, queue.NewMemoryQueue(), newTestLogger())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

func TestQueueReconciler_RunCheck(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemoryQueue()
	_, _ = q.Enqueue(ctx, "a", time.Now())
	uc := &stubSubmissionUC{rebuilt: 2}
	repo := &countingRepo{counts: map[model.SubmissionStatus]int{model.StatusPending: 3}}
	var poolCalls int

	w := NewQueueReconciler(time.Minute, uc, repo, q, func() (int32, int32, int32) {
		poolCalls++
		return 10, 7, 3
	}, newTestLogger())
	w.runCheck(ctx)

	if uc.calls != 1 {
		t.Errorf("expected one rebuild, got %d", uc.calls)
	}
	if poolCalls != 1 {
		t.Errorf("expected pool stats to be read once, got %d", poolCalls)
	}
}

func TestQueueReconciler_KeepsGoingOnErrors(t *testing.T) {
	uc := &stubSubmissionUC{err: errors.New("db down")}
	repo := &countingRepo{err: errors.New("db down")}
	w := NewQueueReconciler(time.Minute, uc, repo, queue.NewMemoryQueue(), nil, newTestLogger())

	w.runCheck(context.Background())

	if uc.calls != 1 {
		t.Errorf("expected rebuild to be attempted, got %d", uc.calls)
	}
}
