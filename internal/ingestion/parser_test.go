package ingestion

import (
	"strings"
	"testing"

	"BarterLedger/internal/command"
)

func raw(payload string) RawCommand {
	return RawCommand{Data: []byte(payload)}
}

func TestParseCreateTrade(t *testing.T) {
	payload := `{
		"command_id": "11111111-1111-1111-1111-111111111111",
		"initiator_id": "aaaaaaaa-0000-0000-0000-00000000000a",
		"target_id": "bbbbbbbb-0000-0000-0000-00000000000b",
		"offered": {"kind": "diamond", "count": 2},
		"requested_kind_1": "iron_ingot",
		"requested_amount_1": 5,
		"requested_kind_2": "ender_pearl",
		"requested_amount_2": 1,
		"note": "quick deal",
		"timestamp_us": 1748779200000000
	}`

	cmd, err := ParseRawCommand(raw(payload), command.TypeCreateTrade)
	if err != nil {
		t.Fatalf("ParseRawCommand: %v", err)
	}
	c, ok := cmd.(*command.CreateTrade)
	if !ok {
		t.Fatalf("command type = %T", cmd)
	}
	if c.Offered.Kind != "diamond" || c.Offered.Count != 2 {
		t.Errorf("offered = %+v", c.Offered)
	}
	if c.Kind1 != "iron_ingot" || c.Amount1 != 5 {
		t.Errorf("request 1 = %dx%s", c.Amount1, c.Kind1)
	}
	if c.Kind2 != "ender_pearl" || c.Amount2 != 1 {
		t.Errorf("request 2 = %dx%s", c.Amount2, c.Kind2)
	}
	if c.Note != "quick deal" {
		t.Errorf("note = %q", c.Note)
	}
}

func TestParseCreateTradeRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		errSub  string
	}{
		{
			name:    "bad json",
			payload: `{not json`,
			errSub:  "parse CreateTrade",
		},
		{
			name: "bad initiator uuid",
			payload: `{"command_id": "11111111-1111-1111-1111-111111111111",
				"initiator_id": "nope",
				"target_id": "bbbbbbbb-0000-0000-0000-00000000000b",
				"offered": {"kind": "diamond", "count": 1},
				"requested_kind_1": "iron_ingot", "requested_amount_1": 1}`,
			errSub: "initiator_id",
		},
		{
			name: "offered without kind",
			payload: `{"command_id": "11111111-1111-1111-1111-111111111111",
				"initiator_id": "aaaaaaaa-0000-0000-0000-00000000000a",
				"target_id": "bbbbbbbb-0000-0000-0000-00000000000b",
				"offered": {"count": 1},
				"requested_kind_1": "iron_ingot", "requested_amount_1": 1}`,
			errSub: "offered bundle",
		},
		{
			name: "missing requested kind",
			payload: `{"command_id": "11111111-1111-1111-1111-111111111111",
				"initiator_id": "aaaaaaaa-0000-0000-0000-00000000000a",
				"target_id": "bbbbbbbb-0000-0000-0000-00000000000b",
				"offered": {"kind": "diamond", "count": 1},
				"requested_amount_1": 1}`,
			errSub: "requested_kind_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawCommand(raw(tt.payload), command.TypeCreateTrade)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestParseTradeActions(t *testing.T) {
	payload := `{
		"command_id": "11111111-1111-1111-1111-111111111111",
		"actor_id": "aaaaaaaa-0000-0000-0000-00000000000a",
		"counterparty_id": "bbbbbbbb-0000-0000-0000-00000000000b",
		"new_amount_1": 7,
		"new_amount_2": 2
	}`

	accept, err := ParseRawCommand(raw(payload), command.TypeAcceptTrade)
	if err != nil {
		t.Fatalf("AcceptTrade: %v", err)
	}
	if _, ok := accept.(*command.AcceptTrade); !ok {
		t.Errorf("accept type = %T", accept)
	}

	deny, err := ParseRawCommand(raw(payload), command.TypeDenyTrade)
	if err != nil {
		t.Fatalf("DenyTrade: %v", err)
	}
	if _, ok := deny.(*command.DenyTrade); !ok {
		t.Errorf("deny type = %T", deny)
	}

	bargain, err := ParseRawCommand(raw(payload), command.TypeBargainTrade)
	if err != nil {
		t.Fatalf("BargainTrade: %v", err)
	}
	b, ok := bargain.(*command.BargainTrade)
	if !ok {
		t.Fatalf("bargain type = %T", bargain)
	}
	if b.NewAmount1 != 7 || b.NewAmount2 != 2 {
		t.Errorf("bargain amounts = %d / %d", b.NewAmount1, b.NewAmount2)
	}
}

func TestParseGrantBundle(t *testing.T) {
	payload := `{
		"command_id": "11111111-1111-1111-1111-111111111111",
		"actor_id": "aaaaaaaa-0000-0000-0000-00000000000a",
		"bundle": {"kind": "diamond", "count": 16}
	}`
	cmd, err := ParseRawCommand(raw(payload), command.TypeGrantBundle)
	if err != nil {
		t.Fatalf("GrantBundle: %v", err)
	}
	g := cmd.(*command.GrantBundle)
	if g.Bundle.Kind != "diamond" || g.Bundle.Count != 16 {
		t.Errorf("bundle = %+v", g.Bundle)
	}

	bad := `{"command_id": "11111111-1111-1111-1111-111111111111",
		"actor_id": "aaaaaaaa-0000-0000-0000-00000000000a",
		"bundle": {"kind": "diamond", "count": 0}}`
	if _, err := ParseRawCommand(raw(bad), command.TypeGrantBundle); err == nil {
		t.Error("zero-count grant should fail")
	}
}

func TestParsePolicyUpdateFieldRequirements(t *testing.T) {
	const cmdID = `"command_id": "11111111-1111-1111-1111-111111111111"`

	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "ban requires actor",
			payload: `{` + cmdID + `, "action": "ban", "duration_sec": 60}`,
			wantErr: true,
		},
		{
			name:    "valid ban",
			payload: `{` + cmdID + `, "action": "ban", "actor_id": "aaaaaaaa-0000-0000-0000-00000000000a", "duration_sec": 60}`,
		},
		{
			name:    "block requires kind",
			payload: `{` + cmdID + `, "action": "block"}`,
			wantErr: true,
		},
		{
			name:    "valid block",
			payload: `{` + cmdID + `, "action": "block", "kind": "ancient_debris"}`,
		},
		{
			name:    "alias_set requires code and kind",
			payload: `{` + cmdID + `, "action": "alias_set", "code": "DIA"}`,
			wantErr: true,
		},
		{
			name:    "valid alias_set",
			payload: `{` + cmdID + `, "action": "alias_set", "code": "DIA", "kind": "diamond"}`,
		},
		{
			name:    "alias_remove requires code",
			payload: `{` + cmdID + `, "action": "alias_remove"}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			payload: `{` + cmdID + `, "action": "explode"}`,
			wantErr: true,
		},
		{
			name:    "valid infinite",
			payload: `{` + cmdID + `, "action": "infinite", "actor_id": "aaaaaaaa-0000-0000-0000-00000000000a", "enable": true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRawCommand(raw(tt.payload), command.TypePolicyUpdate)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseUnknownCommandType(t *testing.T) {
	if _, err := ParseRawCommand(raw(`{}`), "Teleport"); err == nil {
		t.Error("unknown command type should fail")
	}
}
