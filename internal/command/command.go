package command

import (
	"time"

	"github.com/google/uuid"

	"BarterLedger/internal/item"
)

// Command is a typed, validated inbound instruction. CommandID is the
// idempotency key protecting against JetStream redelivery.
type Command interface {
	Type() string
	CID() uuid.UUID
}

// Command type names, matching the inbound subject suffixes.
const (
	TypeCreateTrade   = "CreateTrade"
	TypeAcceptTrade   = "AcceptTrade"
	TypeDenyTrade     = "DenyTrade"
	TypeBargainTrade  = "BargainTrade"
	TypeRegisterActor = "RegisterActor"
	TypeGrantBundle   = "GrantBundle"
	TypePolicyUpdate  = "PolicyUpdate"
)

// CreateTrade opens a negotiation: the initiator offers a bundle and
// names one or two requested kinds by currency code.
type CreateTrade struct {
	CommandID   uuid.UUID
	InitiatorID uuid.UUID
	TargetID    uuid.UUID
	Offered     item.Bundle
	Kind1       string
	Amount1     int
	Kind2       string
	Amount2     int
	Note        string
	Timestamp   time.Time
}

func (c *CreateTrade) Type() string   { return TypeCreateTrade }
func (c *CreateTrade) CID() uuid.UUID { return c.CommandID }

// AcceptTrade accepts the newest pending trade between the actor and the
// named counterparty.
type AcceptTrade struct {
	CommandID      uuid.UUID
	ActorID        uuid.UUID
	CounterpartyID uuid.UUID
	Timestamp      time.Time
}

func (c *AcceptTrade) Type() string   { return TypeAcceptTrade }
func (c *AcceptTrade) CID() uuid.UUID { return c.CommandID }

// DenyTrade denies the newest pending trade between the actor and the
// named counterparty.
type DenyTrade struct {
	CommandID      uuid.UUID
	ActorID        uuid.UUID
	CounterpartyID uuid.UUID
	Timestamp      time.Time
}

func (c *DenyTrade) Type() string   { return TypeDenyTrade }
func (c *DenyTrade) CID() uuid.UUID { return c.CommandID }

// BargainTrade counter-offers new requested amounts on the newest
// pending trade between the actor and the counterparty.
type BargainTrade struct {
	CommandID      uuid.UUID
	ActorID        uuid.UUID
	CounterpartyID uuid.UUID
	NewAmount1     int
	NewAmount2     int
	Timestamp      time.Time
}

func (c *BargainTrade) Type() string   { return TypeBargainTrade }
func (c *BargainTrade) CID() uuid.UUID { return c.CommandID }

// RegisterActor announces an actor and creates its container.
type RegisterActor struct {
	CommandID uuid.UUID
	ActorID   uuid.UUID
	Name      string
	Timestamp time.Time
}

func (c *RegisterActor) Type() string   { return TypeRegisterActor }
func (c *RegisterActor) CID() uuid.UUID { return c.CommandID }

// GrantBundle places resources into an actor's container out-of-band.
type GrantBundle struct {
	CommandID uuid.UUID
	ActorID   uuid.UUID
	Bundle    item.Bundle
	Timestamp time.Time
}

func (c *GrantBundle) Type() string   { return TypeGrantBundle }
func (c *GrantBundle) CID() uuid.UUID { return c.CommandID }

// Policy update actions.
const (
	PolicyBan         = "ban"
	PolicyUnban       = "unban"
	PolicyBlock       = "block"
	PolicyUnblock     = "unblock"
	PolicyBlockFor    = "block_for"
	PolicyUnblockFor  = "unblock_for"
	PolicyAliasSet    = "alias_set"
	PolicyAliasRemove = "alias_remove"
	PolicyInfinite    = "infinite"
)

// PolicyUpdate mutates administrative policy state. Which fields apply
// depends on Action.
type PolicyUpdate struct {
	CommandID uuid.UUID
	Action    string
	ActorID   uuid.UUID     // ban/unban/block_for/unblock_for/infinite
	Kind      string        // block/unblock/block_for/unblock_for/alias_set
	Code      string        // alias_set/alias_remove
	Duration  time.Duration // ban
	Enable    bool          // infinite
	Timestamp time.Time
}

func (c *PolicyUpdate) Type() string   { return TypePolicyUpdate }
func (c *PolicyUpdate) CID() uuid.UUID { return c.CommandID }
