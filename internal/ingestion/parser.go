package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"BarterLedger/internal/command"
	"BarterLedger/internal/item"
)

// ParseRawCommand converts a RawCommand (JSON bytes + command type
// string) into a typed command.Command. The ingestion shell validates,
// parses, and converts raw commands before dispatch to the engine.
func ParseRawCommand(raw RawCommand, commandType string) (command.Command, error) {
	switch commandType {
	case command.TypeCreateTrade:
		return parseCreateTrade(raw.Data)
	case command.TypeAcceptTrade:
		return parseAcceptTrade(raw.Data)
	case command.TypeDenyTrade:
		return parseDenyTrade(raw.Data)
	case command.TypeBargainTrade:
		return parseBargainTrade(raw.Data)
	case command.TypeRegisterActor:
		return parseRegisterActor(raw.Data)
	case command.TypeGrantBundle:
		return parseGrantBundle(raw.Data)
	case command.TypePolicyUpdate:
		return parsePolicyUpdate(raw.Data)
	default:
		return nil, fmt.Errorf("unknown command type: %s", commandType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type bundleJSON struct {
	Kind  string           `json:"kind"`
	Count int              `json:"count"`
	Attrs *item.Attributes `json:"attrs,omitempty"`
}

func (j bundleJSON) toBundle() item.Bundle {
	return item.Bundle{Kind: j.Kind, Count: j.Count, Attrs: j.Attrs}
}

type createTradeJSON struct {
	CommandID   string     `json:"command_id"`
	InitiatorID string     `json:"initiator_id"`
	TargetID    string     `json:"target_id"`
	Offered     bundleJSON `json:"offered"`
	Kind1       string     `json:"requested_kind_1"`
	Amount1     int        `json:"requested_amount_1"`
	Kind2       string     `json:"requested_kind_2,omitempty"`
	Amount2     int        `json:"requested_amount_2,omitempty"`
	Note        string     `json:"note,omitempty"`
	TimestampUs int64      `json:"timestamp_us"`
}

func parseCreateTrade(data []byte) (*command.CreateTrade, error) {
	var j createTradeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateTrade: %w", err)
	}

	cmdID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	initiatorID, err := uuid.Parse(j.InitiatorID)
	if err != nil {
		return nil, fmt.Errorf("parse initiator_id: %w", err)
	}
	targetID, err := uuid.Parse(j.TargetID)
	if err != nil {
		return nil, fmt.Errorf("parse target_id: %w", err)
	}
	if j.Offered.Kind == "" || j.Offered.Count <= 0 {
		return nil, fmt.Errorf("offered bundle must name a kind with positive count")
	}
	if j.Kind1 == "" {
		return nil, fmt.Errorf("requested_kind_1 is required")
	}

	return &command.CreateTrade{
		CommandID:   cmdID,
		InitiatorID: initiatorID,
		TargetID:    targetID,
		Offered:     j.Offered.toBundle(),
		Kind1:       j.Kind1,
		Amount1:     j.Amount1,
		Kind2:       j.Kind2,
		Amount2:     j.Amount2,
		Note:        j.Note,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type tradeActionJSON struct {
	CommandID      string `json:"command_id"`
	ActorID        string `json:"actor_id"`
	CounterpartyID string `json:"counterparty_id"`
	NewAmount1     int    `json:"new_amount_1,omitempty"`
	NewAmount2     int    `json:"new_amount_2,omitempty"`
	TimestampUs    int64  `json:"timestamp_us"`
}

func (j tradeActionJSON) ids(what string) (cmdID, actorID, counterpartyID uuid.UUID, err error) {
	cmdID, err = uuid.Parse(j.CommandID)
	if err != nil {
		return cmdID, actorID, counterpartyID, fmt.Errorf("parse %s command_id: %w", what, err)
	}
	actorID, err = uuid.Parse(j.ActorID)
	if err != nil {
		return cmdID, actorID, counterpartyID, fmt.Errorf("parse %s actor_id: %w", what, err)
	}
	counterpartyID, err = uuid.Parse(j.CounterpartyID)
	if err != nil {
		return cmdID, actorID, counterpartyID, fmt.Errorf("parse %s counterparty_id: %w", what, err)
	}
	return cmdID, actorID, counterpartyID, nil
}

func parseAcceptTrade(data []byte) (*command.AcceptTrade, error) {
	var j tradeActionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse AcceptTrade: %w", err)
	}
	cmdID, actorID, counterpartyID, err := j.ids("AcceptTrade")
	if err != nil {
		return nil, err
	}
	return &command.AcceptTrade{
		CommandID:      cmdID,
		ActorID:        actorID,
		CounterpartyID: counterpartyID,
		Timestamp:      time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseDenyTrade(data []byte) (*command.DenyTrade, error) {
	var j tradeActionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse DenyTrade: %w", err)
	}
	cmdID, actorID, counterpartyID, err := j.ids("DenyTrade")
	if err != nil {
		return nil, err
	}
	return &command.DenyTrade{
		CommandID:      cmdID,
		ActorID:        actorID,
		CounterpartyID: counterpartyID,
		Timestamp:      time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseBargainTrade(data []byte) (*command.BargainTrade, error) {
	var j tradeActionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse BargainTrade: %w", err)
	}
	cmdID, actorID, counterpartyID, err := j.ids("BargainTrade")
	if err != nil {
		return nil, err
	}
	return &command.BargainTrade{
		CommandID:      cmdID,
		ActorID:        actorID,
		CounterpartyID: counterpartyID,
		NewAmount1:     j.NewAmount1,
		NewAmount2:     j.NewAmount2,
		Timestamp:      time.UnixMicro(j.TimestampUs),
	}, nil
}

type registerActorJSON struct {
	CommandID   string `json:"command_id"`
	ActorID     string `json:"actor_id"`
	Name        string `json:"name,omitempty"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseRegisterActor(data []byte) (*command.RegisterActor, error) {
	var j registerActorJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RegisterActor: %w", err)
	}
	cmdID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	actorID, err := uuid.Parse(j.ActorID)
	if err != nil {
		return nil, fmt.Errorf("parse actor_id: %w", err)
	}
	return &command.RegisterActor{
		CommandID: cmdID,
		ActorID:   actorID,
		Name:      j.Name,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type grantBundleJSON struct {
	CommandID   string     `json:"command_id"`
	ActorID     string     `json:"actor_id"`
	Bundle      bundleJSON `json:"bundle"`
	TimestampUs int64      `json:"timestamp_us"`
}

func parseGrantBundle(data []byte) (*command.GrantBundle, error) {
	var j grantBundleJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse GrantBundle: %w", err)
	}
	cmdID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}
	actorID, err := uuid.Parse(j.ActorID)
	if err != nil {
		return nil, fmt.Errorf("parse actor_id: %w", err)
	}
	if j.Bundle.Kind == "" || j.Bundle.Count <= 0 {
		return nil, fmt.Errorf("grant bundle must name a kind with positive count")
	}
	return &command.GrantBundle{
		CommandID: cmdID,
		ActorID:   actorID,
		Bundle:    j.Bundle.toBundle(),
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type policyUpdateJSON struct {
	CommandID   string `json:"command_id"`
	Action      string `json:"action"`
	ActorID     string `json:"actor_id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Code        string `json:"code,omitempty"`
	DurationSec int64  `json:"duration_sec,omitempty"`
	Enable      bool   `json:"enable,omitempty"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parsePolicyUpdate(data []byte) (*command.PolicyUpdate, error) {
	var j policyUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PolicyUpdate: %w", err)
	}
	cmdID, err := uuid.Parse(j.CommandID)
	if err != nil {
		return nil, fmt.Errorf("parse command_id: %w", err)
	}

	var actorID uuid.UUID
	if j.ActorID != "" {
		actorID, err = uuid.Parse(j.ActorID)
		if err != nil {
			return nil, fmt.Errorf("parse actor_id: %w", err)
		}
	}

	switch j.Action {
	case command.PolicyBan, command.PolicyUnban, command.PolicyBlockFor,
		command.PolicyUnblockFor, command.PolicyInfinite:
		if j.ActorID == "" {
			return nil, fmt.Errorf("action %s requires actor_id", j.Action)
		}
	case command.PolicyBlock, command.PolicyUnblock:
		if j.Kind == "" {
			return nil, fmt.Errorf("action %s requires kind", j.Action)
		}
	case command.PolicyAliasSet:
		if j.Code == "" || j.Kind == "" {
			return nil, fmt.Errorf("alias_set requires code and kind")
		}
	case command.PolicyAliasRemove:
		if j.Code == "" {
			return nil, fmt.Errorf("alias_remove requires code")
		}
	default:
		return nil, fmt.Errorf("unknown policy action: %s", j.Action)
	}

	return &command.PolicyUpdate{
		CommandID: cmdID,
		Action:    j.Action,
		ActorID:   actorID,
		Kind:      j.Kind,
		Code:      j.Code,
		Duration:  time.Duration(j.DurationSec) * time.Second,
		Enable:    j.Enable,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}
