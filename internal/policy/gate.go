package policy

import "github.com/google/uuid"

// Gate is the read side of administrative policy consulted by the trade
// engine. Implementations must be safe for concurrent use.
type Gate interface {
	// IsBanned reports whether the actor is currently banned. Expired
	// bans read as not banned.
	IsBanned(actorID uuid.UUID) bool

	// IsBlocked reports whether the kind is blocked for the actor,
	// either globally or on the actor's personal blocklist.
	IsBlocked(kind string, actorID uuid.UUID) bool

	// Aliases returns an immutable snapshot of the currency alias table.
	// Callers resolve all codes for one operation against a single
	// snapshot so a concurrent alias change cannot split an operation.
	Aliases() AliasTable

	// HasInfiniteMode reports whether the actor is exempt from the
	// must-hold-offered-bundle precondition.
	HasInfiniteMode(actorID uuid.UUID) bool
}

// AliasTable is an immutable currency-code to resource-kind mapping,
// versioned so observers can tell snapshots apart.
type AliasTable struct {
	version uint64
	codes   map[string]string
}

// Version identifies the snapshot.
func (t AliasTable) Version() uint64 { return t.version }

// Resolve maps a currency code to a resource kind. Unknown codes are
// unresolved; the engine treats that as a policy failure.
func (t AliasTable) Resolve(code string) (string, bool) {
	kind, ok := t.codes[code]
	return kind, ok
}

// Codes lists the registered currency codes.
func (t AliasTable) Codes() map[string]string {
	out := make(map[string]string, len(t.codes))
	for c, k := range t.codes {
		out[c] = k
	}
	return out
}
