package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"BarterLedger/internal/item"
)

// TTL is the fixed lifetime of a trade from creation. Bargaining does
// not renew it.
const TTL = 5 * time.Minute

// Status is the lifecycle state of a trade. Transitions are monotonic:
// PENDING may move to any other state, BARGAINING only to a terminal
// state, and terminal states never change.
type Status int

const (
	StatusPending Status = iota
	StatusBargaining
	StatusCompleted
	StatusDenied
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusBargaining:
		return "BARGAINING"
	case StatusCompleted:
		return "COMPLETED"
	case StatusDenied:
		return "DENIED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("STATUS(%d)", int(s))
	}
}

// Terminal reports whether the status ends the trade's life.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDenied || s == StatusExpired
}

// Trade is a single negotiation between two actors. Identity, parties,
// the offered bundle and the requested kinds are fixed at creation; only
// the requested amounts (via bargaining) and the status ever change, and
// only the state machine changes them.
type Trade struct {
	ID          uuid.UUID
	InitiatorID uuid.UUID
	TargetID    uuid.UUID

	Offered item.Bundle

	RequestedKind1   string
	RequestedAmount1 int
	RequestedKind2   string
	RequestedAmount2 int

	Note      string
	CreatedAt time.Time
	Status    Status
}

// New builds a PENDING trade with a fresh id.
func New(initiator, target uuid.UUID, offered item.Bundle, kind1 string, amt1 int, kind2 string, amt2 int, note string, now time.Time) *Trade {
	return &Trade{
		ID:               uuid.New(),
		InitiatorID:      initiator,
		TargetID:         target,
		Offered:          offered,
		RequestedKind1:   kind1,
		RequestedAmount1: amt1,
		RequestedKind2:   kind2,
		RequestedAmount2: amt2,
		Note:             note,
		CreatedAt:        now,
		Status:           StatusPending,
	}
}

// HasSecondRequest reports whether the trade asks for a second kind.
// A zero amount is the "no second item" sentinel.
func (t *Trade) HasSecondRequest() bool {
	return t.RequestedKind2 != "" && t.RequestedAmount2 > 0
}

// Expired reports whether the trade's TTL has elapsed at now.
func (t *Trade) Expired(now time.Time) bool {
	return now.Sub(t.CreatedAt) > TTL
}

// Participant reports whether the actor is one of the two parties.
func (t *Trade) Participant(actorID uuid.UUID) bool {
	return actorID == t.InitiatorID || actorID == t.TargetID
}

// Counterparty returns the other party, assuming actorID participates.
func (t *Trade) Counterparty(actorID uuid.UUID) uuid.UUID {
	if actorID == t.InitiatorID {
		return t.TargetID
	}
	return t.InitiatorID
}
