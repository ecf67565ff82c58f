package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"telegram-ad-moderation/internal/domain"
	"telegram-ad-moderation/internal/domain/model"
	"telegram-ad-moderation/internal/domain/ports/repository"
)

var _ repository.ModerationQueue = (*MemoryQueue)(nil)

// MemoryQueue keeps pending submission ids in process memory.
// It is rebuilt from the submission store on start.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks map[string]*model.ModerationTask
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{tasks: make(map[string]*model.ModerationTask)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, submissionID string, at time.Time) (bool, error) {
	if submissionID == "" {
		return false, fmt.Errorf("%w: empty submission id", domain.ErrInvalidArgument)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.tasks[submissionID]; ok {
		return false, nil
	}
	q.tasks[submissionID] = &model.ModerationTask{SubmissionID: submissionID, EnqueuedAt: at}
	return true, nil
}

func (q *MemoryQueue) Claim(_ context.Context, moderatorID int64, at time.Time) (*model.ModerationTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var oldest *model.ModerationTask
	for _, t := range q.tasks {
		if t.Claimed() {
			continue
		}
		if oldest == nil || before(t, oldest) {
			oldest = t
		}
	}
	if oldest == nil {
		return nil, domain.ErrQueueEmpty
	}
	by, claimedAt := moderatorID, at
	oldest.ClaimedBy = &by
	oldest.ClaimedAt = &claimedAt
	return copyTask(oldest), nil
}

func (q *MemoryQueue) Release(_ context.Context, submissionID string) error {
	q.mu.Lock()
	delete(q.tasks, submissionID)
	q.mu.Unlock()
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, submissionID string) (*model.ModerationTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[submissionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyTask(t), nil
}

func (q *MemoryQueue) Unclaim(_ context.Context, olderThan time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, t := range q.tasks {
		if t.Claimed() && t.ClaimedAt.Before(olderThan) {
			t.ClaimedBy = nil
			t.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (q *MemoryQueue) Stats(_ context.Context) (repository.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var st repository.QueueStats
	for _, t := range q.tasks {
		if t.Claimed() {
			st.Claimed++
		} else {
			st.Pending++
		}
		if st.OldestEnqueuedAt == nil || t.EnqueuedAt.Before(*st.OldestEnqueuedAt) {
			at := t.EnqueuedAt
			st.OldestEnqueuedAt = &at
		}
	}
	return st, nil
}

func before(a, b *model.ModerationTask) bool {
	if a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.SubmissionID < b.SubmissionID
	}
	return a.EnqueuedAt.Before(b.EnqueuedAt)
}

func copyTask(t *model.ModerationTask) *model.ModerationTask {
	c := *t
	if t.ClaimedBy != nil {
		by := *t.ClaimedBy
		c.ClaimedBy = &by
	}
	if t.ClaimedAt != nil {
		at := *t.ClaimedAt
		c.ClaimedAt = &at
	}
	return &c
}
