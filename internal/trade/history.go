package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History is an immutable snapshot of a trade's terms plus the status it
// carried when the entry was recorded. Entries outlive the trade itself.
type History struct {
	TradeID     uuid.UUID `json:"trade_id"`
	InitiatorID uuid.UUID `json:"initiator_id"`
	TargetID    uuid.UUID `json:"target_id"`

	OfferedKind   string `json:"offered_kind"`
	OfferedAmount int    `json:"offered_amount"`

	RequestedKind1   string `json:"requested_kind_1"`
	RequestedAmount1 int    `json:"requested_amount_1"`
	RequestedKind2   string `json:"requested_kind_2,omitempty"`
	RequestedAmount2 int    `json:"requested_amount_2,omitempty"`

	Note       string    `json:"note,omitempty"`
	Status     string    `json:"status"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Snapshot captures the trade's current terms with the given status.
func Snapshot(t *Trade, status Status, now time.Time) History {
	return History{
		TradeID:          t.ID,
		InitiatorID:      t.InitiatorID,
		TargetID:         t.TargetID,
		OfferedKind:      t.Offered.Kind,
		OfferedAmount:    t.Offered.Count,
		RequestedKind1:   t.RequestedKind1,
		RequestedAmount1: t.RequestedAmount1,
		RequestedKind2:   t.RequestedKind2,
		RequestedAmount2: t.RequestedAmount2,
		Note:             t.Note,
		Status:           status.String(),
		RecordedAt:       now,
	}
}

// LogLine renders the entry as one line of the durable text log.
func (h History) LogLine() string {
	note := h.Note
	if note == "" {
		note = "none"
	}
	second := ""
	if h.RequestedKind2 != "" && h.RequestedAmount2 > 0 {
		second = fmt.Sprintf(" + %dx%s", h.RequestedAmount2, h.RequestedKind2)
	}
	return fmt.Sprintf("%s | trade=%s | initiator=%s | target=%s | status=%s | offered=%dx%s | requested=%dx%s%s | note=%s",
		h.RecordedAt.UTC().Format(time.RFC3339),
		h.TradeID, h.InitiatorID, h.TargetID, h.Status,
		h.OfferedAmount, h.OfferedKind,
		h.RequestedAmount1, h.RequestedKind1, second,
		note)
}
