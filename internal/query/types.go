package query

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeResponse represents an archived trade outcome for API queries.
type OutcomeResponse struct {
	TradeID          uuid.UUID `json:"trade_id"`
	Status           string    `json:"status"`
	InitiatorID      uuid.UUID `json:"initiator_id"`
	TargetID         uuid.UUID `json:"target_id"`
	OfferedKind      string    `json:"offered_kind"`
	OfferedAmount    int       `json:"offered_amount"`
	RequestedKind1   string    `json:"requested_kind_1"`
	RequestedAmount1 int       `json:"requested_amount_1"`
	RequestedKind2   string    `json:"requested_kind_2,omitempty"`
	RequestedAmount2 int       `json:"requested_amount_2,omitempty"`
	Note             string    `json:"note,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// OutcomeStats summarizes archived outcomes per status.
type OutcomeStats struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}
