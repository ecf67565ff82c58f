package model

import (
	"fmt"
	"time"

	"telegram-ad-moderation/internal/domain"
)

type Action string

const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionRequestEdit Action = "edit"
	ActionResubmit    Action = "resubmit"
)

// ParseAction accepts the callback and command spellings of an action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "approve", "ok":
		return ActionApprove, nil
	case "reject", "no":
		return ActionReject, nil
	case "edit", "request_edit", "request-edit":
		return ActionRequestEdit, nil
	case "resubmit":
		return ActionResubmit, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, s)
}

// IsModeratorAction reports whether a moderator (not the submitter) issues it.
func (a Action) IsModeratorAction() bool {
	return a == ActionApprove || a == ActionReject || a == ActionRequestEdit
}

var transitions = map[SubmissionStatus]map[Action]SubmissionStatus{
	StatusPending: {
		ActionApprove:     StatusApproved,
		ActionReject:      StatusRejected,
		ActionRequestEdit: StatusEditRequested,
	},
	StatusEditRequested: {
		ActionResubmit: StatusPending,
	},
}

// Transition returns the status reached by applying a to from.
// Terminal states and undefined pairs fail with domain.ErrConflict.
func Transition(from SubmissionStatus, a Action) (SubmissionStatus, error) {
	if from.Terminal() {
		return from, fmt.Errorf("%w: submission already %s", domain.ErrConflict, from)
	}
	to, ok := transitions[from][a]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s submission", domain.ErrConflict, a, from)
	}
	return to, nil
}

// ModerationTask is the queueable unit of work for one pending submission.
type ModerationTask struct {
	SubmissionID string
	EnqueuedAt   time.Time
	ClaimedBy    *int64
	ClaimedAt    *time.Time
}

func (t *ModerationTask) Claimed() bool { return t != nil && t.ClaimedBy != nil }

// ModeratorAction is the ephemeral event produced by a moderator button or command.
type ModeratorAction struct {
	ModeratorID  int64
	SubmissionID string
	Action       Action
	Reason       string
	At           time.Time
}
