package adapter

import (
	"strconv"

	"telegram-ad-moderation/internal/domain/model"
)

type EventKind string

const (
	EventSubmission EventKind = "submission"
	EventDecision   EventKind = "decision"
	EventClaim      EventKind = "claim"
	EventResubmit   EventKind = "resubmit"
	EventCommand    EventKind = "command"
	EventUnknown    EventKind = "unknown"
)

// Sender identifies who produced an inbound event and where to answer.
type Sender struct {
	UserID   int64
	Username string
	ChatID   int64
}

// InboundEvent is the typed variant produced by the gateway. Exactly one payload
// pointer matching Kind is set.
type InboundEvent struct {
	Kind       EventKind
	From       Sender
	CallbackID string

	Submission *SubmissionPayload
	Decision   *DecisionPayload
	Resubmit   *ResubmitPayload
	Command    *CommandPayload
}

type SubmissionPayload struct {
	Content      string
	Media        []model.Media
	MediaGroupID string
}

type DecisionPayload struct {
	SubmissionID string
	Action       model.Action
	Reason       string
}

type ResubmitPayload struct {
	SubmissionID string
	Content      string
	Media        []model.Media
}

type CommandPayload struct {
	Name string
	Args []string
}

// ShardKey groups events that must be handled sequentially.
func (e InboundEvent) ShardKey() string {
	switch {
	case e.Decision != nil:
		return e.Decision.SubmissionID
	case e.Resubmit != nil:
		return e.Resubmit.SubmissionID
	}
	return strconv.FormatInt(e.From.UserID, 10)
}

// CallbackPrefix namespaces the inline button payloads of the review card.
const CallbackPrefix = "mod"

// DecisionCallbackData encodes a review button payload: mod:<action>:<id>.
func DecisionCallbackData(action model.Action, submissionID string) string {
	return CallbackPrefix + ":" + string(action) + ":" + submissionID
}

// ClaimCallbackData is the payload of the "next ad" button.
func ClaimCallbackData() string {
	return CallbackPrefix + ":claim"
}
