package dm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// ValidationError reports every rule a request broke.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "invalid request data"
	}
	return "invalid request data: " + strings.Join(e.Details, "; ")
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.addError("%s is required", field)
	}
}

func (v *validator) err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Details: v.errors}
}

// DecodeRequest reads a JSON request. Unknown fields and malformed JSON
// are reported as a *ValidationError. The decoded request is not yet
// validated; call Validate.
func DecodeRequest(r io.Reader) (*Request, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return nil, &ValidationError{Details: []string{"malformed request body: " + err.Error()}}
	}
	if dec.More() {
		return nil, &ValidationError{Details: []string{"malformed request body: unexpected data after JSON object"}}
	}
	return &req, nil
}

// Validate checks a request at the system boundary. It returns a
// *ValidationError listing every problem found, or nil.
func Validate(req *Request) error {
	if req == nil {
		return &ValidationError{Details: []string{"request is required"}}
	}
	v := &validator{}

	if req.Action == "" {
		v.addError("action is required")
	} else if !req.Action.Valid() {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		v.addError("action must be one of [%s]", strings.Join(names, ", "))
	}

	if req.GameState == nil {
		v.addError("game_state is required")
		return v.err()
	}
	v.validateGameState(req.GameState)
	return v.err()
}

// ValidateGameState checks a stored or client-supplied game state on its
// own, with the same rules Validate applies to game_state.
func ValidateGameState(gs *state.GameState) error {
	v := &validator{}
	if gs == nil {
		v.addError("game_state is required")
		return v.err()
	}
	v.validateGameState(gs)
	return v.err()
}

func (v *validator) validateGameState(gs *state.GameState) {
	v.required("game_state.scene", gs.Scene)

	env := gs.Environment
	v.required("game_state.environment.name", env.Name)
	v.required("game_state.environment.description", env.Description)
	v.required("game_state.environment.terrain", env.Terrain)
	if !env.Lighting.Valid() {
		v.addError("game_state.environment.lighting must be one of [bright, dim, dark]")
	}

	if gs.TurnOrder == nil {
		v.addError("game_state.turn_order is required")
	}
	for i, t := range gs.TurnOrder {
		v.required(fmt.Sprintf("game_state.turn_order[%d].player_id", i), t.PlayerID)
		v.required(fmt.Sprintf("game_state.turn_order[%d].name", i), t.Name)
	}
	v.required("game_state.current_turn", gs.CurrentTurn)
	if gs.RoundNumber < 1 {
		v.addError("game_state.round_number must be greater than or equal to 1")
	}

	if gs.NPCs == nil {
		v.addError("game_state.npcs is required")
	}
	ids := make(map[string]string)
	for i := range gs.NPCs {
		field := fmt.Sprintf("game_state.npcs[%d]", i)
		v.validateNPC(field, &gs.NPCs[i])
		v.unique(ids, field, gs.NPCs[i].ID)
	}

	if gs.Enemies == nil {
		v.addError("game_state.enemies is required")
	}
	ids = make(map[string]string)
	for i := range gs.Enemies {
		field := fmt.Sprintf("game_state.enemies[%d]", i)
		v.validateEnemy(field, &gs.Enemies[i])
		v.unique(ids, field, gs.Enemies[i].ID)
	}
}

func (v *validator) unique(seen map[string]string, field, id string) {
	if id == "" {
		return
	}
	if prev, ok := seen[id]; ok {
		v.addError("%s.id %q duplicates %s.id", field, id, prev)
		return
	}
	seen[id] = field
}

func (v *validator) validateNPC(field string, n *actor.NPC) {
	v.required(field+".id", n.ID)
	v.required(field+".name", n.Name)
	v.required(field+".description", n.Description)
	v.required(field+".location", n.Location)
	if !n.Attitude.Valid() {
		v.addError("%s.attitude must be one of [friendly, neutral, hostile]", field)
	}
}

func (v *validator) validateEnemy(field string, e *actor.Enemy) {
	v.required(field+".id", e.ID)
	v.required(field+".name", e.Name)
	v.required(field+".type", e.Type)
	if e.Health < 0 {
		v.addError("%s.health must be greater than or equal to 0", field)
	}
	if e.MaxHealth < 0 {
		v.addError("%s.max_health must be greater than or equal to 0", field)
	}
	if e.Health > e.MaxHealth {
		v.addError("%s.health must be less than or equal to max_health", field)
	}
	if e.ArmorClass < 0 {
		v.addError("%s.armor_class must be greater than or equal to 0", field)
	}

	if e.Attacks == nil {
		v.addError("%s.attacks is required", field)
	}
	for i, a := range e.Attacks {
		af := fmt.Sprintf("%s.attacks[%d]", field, i)
		v.required(af+".name", a.Name)
		if !actor.ValidDiceNotation(a.Damage) {
			v.addError("%s.damage %q is not valid dice notation", af, a.Damage)
		}
		if !a.Type.Valid() {
			v.addError("%s.type must be one of [melee, ranged, magic]", af)
		}
	}

	loot := e.Loot
	if loot.Gold.Min < 0 {
		v.addError("%s.loot.gold.min must be greater than or equal to 0", field)
	}
	if loot.Gold.Max < loot.Gold.Min {
		v.addError("%s.loot.gold.max must be greater than or equal to min", field)
	}
	if loot.Experience < 0 {
		v.addError("%s.loot.experience must be greater than or equal to 0", field)
	}
}
