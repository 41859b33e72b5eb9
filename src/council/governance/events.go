package governance

import (
	"context"
	"time"
)

// Event kinds
const (
	EventInitialized       = "dao.initialized"
	EventFunded            = "treasury.funded"
	EventEnrolled          = "member.enrolled"
	EventExited            = "member.exited"
	EventProposalSubmitted = "proposal.submitted"
	EventProposalVoted     = "proposal.voted"
	EventProposalReviewed  = "proposal.reviewed"
	EventProposalResolved  = "proposal.resolved"
	EventFundsReleased     = "treasury.released"
	EventRoleInitiated     = "role.initiated"
	EventRoleVoted         = "role.voted"
	EventRoleReviewed      = "role.reviewed"
	EventRoleResolved      = "role.resolved"
	EventMemberRemoved     = "member.removed"
)

// Event describes one committed state transition.
type Event struct {
	Kind   string    `json:"kind"`
	Dao    string    `json:"dao"`
	Ref    string    `json:"ref,omitempty"`
	Actor  string    `json:"actor,omitempty"`
	Status string    `json:"status,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Amount uint64    `json:"amount,omitempty"`
	At     time.Time `json:"at"`
}

// EventSink receives committed events. Publish errors are logged and never
// undo the committed work.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// Sinks fans an event out to several sinks and returns the first error.
type Sinks []EventSink

func (s Sinks) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
