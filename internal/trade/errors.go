package trade

import "errors"

// Failure taxonomy for trade operations. All are local to the failing
// operation; none are fatal to the engine.
var (
	// ErrNotFound: the trade id is absent from the pending map.
	ErrNotFound = errors.New("trade not found")

	// ErrNotParticipant: the acting actor is neither initiator nor target.
	ErrNotParticipant = errors.New("actor not a trade participant")

	// ErrExpired: the trade's TTL elapsed; it has been reaped.
	ErrExpired = errors.New("trade expired")

	// ErrInvalidAmount: a bargaining proposal is out of stack bounds.
	// The trade is untouched; the caller may retry with corrected values.
	ErrInvalidAmount = errors.New("invalid bargain amount")

	// ErrInsufficientResources: a party does not hold the required bundle.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrPolicyBlocked: a kind is blocked by policy, or a code is
	// unresolvable, for one of the parties.
	ErrPolicyBlocked = errors.New("blocked by policy")

	// ErrNoSpace: a destination container could not absorb a bundle
	// mid-transfer; the exchange was rolled back.
	ErrNoSpace = errors.New("no space in destination container")

	// ErrVerifyMismatch: the transfer reported success but the
	// post-condition re-scan disagreed. Resources have moved; no second
	// rollback is attempted.
	ErrVerifyMismatch = errors.New("post-trade verification mismatch")

	// ErrWrongState: accept attempted by the wrong party for the current
	// status. The trade is untouched.
	ErrWrongState = errors.New("cannot accept in current state")
)
