package engine

import (
	"errors"

	"BarterLedger/internal/trade"
)

// reasonLabel maps a failure to a bounded metric label.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, trade.ErrNotFound):
		return "not_found"
	case errors.Is(err, trade.ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, trade.ErrExpired):
		return "expired"
	case errors.Is(err, trade.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, trade.ErrInsufficientResources):
		return "insufficient_resources"
	case errors.Is(err, trade.ErrPolicyBlocked):
		return "policy_blocked"
	case errors.Is(err, trade.ErrNoSpace):
		return "no_space"
	case errors.Is(err, trade.ErrVerifyMismatch):
		return "verify_mismatch"
	case errors.Is(err, trade.ErrWrongState):
		return "wrong_state"
	default:
		return "other"
	}
}
