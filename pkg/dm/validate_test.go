package dm

import (
	"errors"
	"strings"
	"testing"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

func validRequest() *Request {
	return &Request{
		Action: ActionGenerateCombat,
		GameState: &state.GameState{
			Scene: "A damp cave mouth",
			NPCs: []actor.NPC{
				{ID: "npc-1", Name: "Old Tam", Description: "A hermit", Location: "cave", Attitude: actor.AttitudeFriendly},
			},
			Enemies: []actor.Enemy{
				{
					ID: "goblin-1", Name: "Goblin", Type: "goblin",
					Health: 7, MaxHealth: 7, ArmorClass: 15,
					Attacks: []actor.Attack{{Name: "Scimitar", Damage: "1d6+2", Type: actor.AttackMelee, Bonus: 4}},
					Loot:    actor.LootTable{Gold: actor.GoldRange{Min: 1, Max: 6}, Experience: 50},
				},
			},
			Environment: state.Environment{
				Name: "Cave", Description: "Dripping walls", Lighting: state.LightingDim, Terrain: "rock",
			},
			TurnOrder:   []state.TurnEntry{{PlayerID: "p1", Initiative: 15, Name: "Korga"}},
			CurrentTurn: "p1",
			RoundNumber: 1,
		},
		PlayerAction: "I attack the goblin",
		PlayerID:     "p1",
	}
}

func TestValidate_ValidRequest(t *testing.T) {
	if err := Validate(validRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Request)
		want   string
	}{
		{"missing action", func(r *Request) { r.Action = "" }, "action is required"},
		{"unknown action", func(r *Request) { r.Action = "dance" }, "action must be one of"},
		{"missing scene", func(r *Request) { r.GameState.Scene = "" }, "game_state.scene is required"},
		{"bad lighting", func(r *Request) { r.GameState.Environment.Lighting = "pitch" }, "lighting must be one of"},
		{"missing terrain", func(r *Request) { r.GameState.Environment.Terrain = "" }, "environment.terrain is required"},
		{"missing turn order", func(r *Request) { r.GameState.TurnOrder = nil }, "turn_order is required"},
		{"turn entry without name", func(r *Request) { r.GameState.TurnOrder[0].Name = "" }, "turn_order[0].name is required"},
		{"empty current turn", func(r *Request) { r.GameState.CurrentTurn = "" }, "current_turn is required"},
		{"round zero", func(r *Request) { r.GameState.RoundNumber = 0 }, "round_number must be greater"},
		{"npc bad attitude", func(r *Request) { r.GameState.NPCs[0].Attitude = "grumpy" }, "npcs[0].attitude"},
		{"npc missing location", func(r *Request) { r.GameState.NPCs[0].Location = "" }, "npcs[0].location is required"},
		{"enemy health above max", func(r *Request) { r.GameState.Enemies[0].Health = 9 }, "less than or equal to max_health"},
		{"enemy negative ac", func(r *Request) { r.GameState.Enemies[0].ArmorClass = -1 }, "armor_class must be greater"},
		{"bad dice", func(r *Request) { r.GameState.Enemies[0].Attacks[0].Damage = "lots" }, "not valid dice notation"},
		{"bad attack type", func(r *Request) { r.GameState.Enemies[0].Attacks[0].Type = "psychic" }, "type must be one of [melee, ranged, magic]"},
		{"gold range inverted", func(r *Request) { r.GameState.Enemies[0].Loot.Gold = actor.GoldRange{Min: 5, Max: 1} }, "gold.max must be greater"},
		{"negative experience", func(r *Request) { r.GameState.Enemies[0].Loot.Experience = -1 }, "experience must be greater"},
		{"duplicate enemy id", func(r *Request) {
			r.GameState.Enemies = append(r.GameState.Enemies, r.GameState.Enemies[0])
		}, "duplicates"},
		{"missing game state", func(r *Request) { r.GameState = nil }, "game_state is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := Validate(req)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			found := false
			for _, d := range verr.Details {
				if strings.Contains(d, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("details %v do not mention %q", verr.Details, tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllDetails(t *testing.T) {
	req := validRequest()
	req.Action = "dance"
	req.GameState.Scene = ""
	req.GameState.RoundNumber = 0

	var verr *ValidationError
	if !errors.As(Validate(req), &verr) {
		t.Fatal("expected validation error")
	}
	if len(verr.Details) != 3 {
		t.Errorf("expected 3 details, got %d: %v", len(verr.Details), verr.Details)
	}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "known fields",
			body: `{"action":"generate_scene","game_state":{"scene":"x","round_number":1},"player_id":"p1","context":{"mood":"grim"}}`,
		},
		{"unknown top level field", `{"action":"generate_scene","dice":"1d20"}`, true},
		{"unknown nested field", `{"action":"generate_scene","game_state":{"hp":3}}`, true},
		{"malformed json", `{"action":`, true},
		{"trailing data", `{"action":"generate_scene"} {}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest(strings.NewReader(tt.body))
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Action != ActionGenerateScene || req.Context["mood"] != "grim" {
				t.Errorf("unexpected request: %+v", req)
			}
		})
	}
}

func TestActions(t *testing.T) {
	got := Actions()
	if len(got) != 5 {
		t.Fatalf("expected 5 actions, got %d", len(got))
	}
	for _, a := range got {
		if !a.Valid() {
			t.Errorf("action %q should be valid", a)
		}
	}
	got[0] = "mutated"
	if Actions()[0] != ActionGenerateScene {
		t.Error("Actions must return a copy")
	}
	if Action("dance").Valid() {
		t.Error("unknown action should not be valid")
	}
}

func TestBackstoryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *BackstoryRequest
		wantErr bool
	}{
		{"complete", &BackstoryRequest{CharacterClass: "rogue", CharacterName: "Vex"}, false},
		{"missing name", &BackstoryRequest{CharacterClass: "rogue"}, true},
		{"missing class", &BackstoryRequest{CharacterName: "Vex"}, true},
		{"blank name", &BackstoryRequest{CharacterClass: "rogue", CharacterName: "  "}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != errors.Is(err, ErrMissingParameters) {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdventureHookRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *AdventureHookRequest
		wantErr bool
	}{
		{"complete", &AdventureHookRequest{Level: 3, PlayerClasses: []string{"fighter", "wizard"}}, false},
		{"missing level", &AdventureHookRequest{PlayerClasses: []string{"fighter"}}, true},
		{"missing classes", &AdventureHookRequest{Level: 2}, true},
		{"blank class", &AdventureHookRequest{Level: 2, PlayerClasses: []string{""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != errors.Is(err, ErrMissingParameters) {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGameState(t *testing.T) {
	if err := ValidateGameState(validRequest().GameState); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}

	var verr *ValidationError
	if !errors.As(ValidateGameState(nil), &verr) {
		t.Fatal("expected validation error for nil state")
	}

	gs := validRequest().GameState
	gs.CurrentTurn = ""
	if !errors.As(ValidateGameState(gs), &verr) {
		t.Fatal("expected validation error")
	}
	if len(verr.Details) != 1 || !strings.Contains(verr.Details[0], "current_turn") {
		t.Errorf("unexpected details: %v", verr.Details)
	}
}
