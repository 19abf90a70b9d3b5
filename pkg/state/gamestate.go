package state

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
)

// Lighting is the light level of the active environment.
type Lighting string

const (
	LightingBright Lighting = "bright"
	LightingDim    Lighting = "dim"
	LightingDark   Lighting = "dark"
)

// Valid reports whether l is one of the known light levels.
func (l Lighting) Valid() bool {
	switch l {
	case LightingBright, LightingDim, LightingDark:
		return true
	}
	return false
}

// Environment describes the single active environment.
type Environment struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Lighting    Lighting `json:"lighting"`
	Terrain     string   `json:"terrain"`
	Weather     string   `json:"weather,omitempty"`
	Obstacles   []string `json:"obstacles"`
}

// TurnEntry is one slot in the initiative order.
type TurnEntry struct {
	PlayerID   string `json:"player_id"`
	Initiative int    `json:"initiative"`
	Name       string `json:"name"`
}

// GameState is the snapshot of a running encounter. It is owned by the
// session layer; the dungeon master only reads it and proposes deltas.
type GameState struct {
	Scene       string        `json:"scene"`
	NPCs        []actor.NPC   `json:"npcs"`
	Enemies     []actor.Enemy `json:"enemies"`
	Environment Environment   `json:"environment"`
	TurnOrder   []TurnEntry   `json:"turn_order"` // initiative descending
	CurrentTurn string        `json:"current_turn"`
	RoundNumber int           `json:"round_number"`
}

// NewGameState returns an empty state at round 1.
func NewGameState() *GameState {
	return &GameState{
		NPCs:    make([]actor.NPC, 0),
		Enemies: make([]actor.Enemy, 0),
		Environment: Environment{
			Lighting:  LightingBright,
			Obstacles: make([]string, 0),
		},
		TurnOrder:   make([]TurnEntry, 0),
		RoundNumber: 1,
	}
}

// DeepCopy creates a deep copy of the GameState
func (gs *GameState) DeepCopy() (*GameState, error) {
	if gs == nil {
		return nil, fmt.Errorf("cannot copy nil gamestate")
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	var c GameState
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &c, nil
}

// HasTurnEntry reports whether id appears in the turn order.
func (gs *GameState) HasTurnEntry(id string) bool {
	for _, t := range gs.TurnOrder {
		if t.PlayerID == id {
			return true
		}
	}
	return false
}

// FindEnemy returns the enemy with the given id, or nil.
func (gs *GameState) FindEnemy(id string) *actor.Enemy {
	for i := range gs.Enemies {
		if gs.Enemies[i].ID == id {
			return &gs.Enemies[i]
		}
	}
	return nil
}

// FindNPC returns the NPC with the given id, or nil.
func (gs *GameState) FindNPC(id string) *actor.NPC {
	for i := range gs.NPCs {
		if gs.NPCs[i].ID == id {
			return &gs.NPCs[i]
		}
	}
	return nil
}

// ApplyDelta changes only the fields present in the delta. The round
// counter never moves backwards and the current turn is never cleared.
func (gs *GameState) ApplyDelta(d *GameStateDelta) {
	if d.IsEmpty() {
		return
	}
	if d.Scene != nil {
		gs.Scene = *d.Scene
	}
	if d.NPCs != nil {
		gs.NPCs = d.NPCs
	}
	if d.Enemies != nil {
		gs.Enemies = d.Enemies
	}
	if d.Environment != nil {
		gs.Environment = *d.Environment
	}
	if d.TurnOrder != nil {
		gs.TurnOrder = d.TurnOrder
	}
	if d.CurrentTurn != nil && *d.CurrentTurn != "" {
		gs.CurrentTurn = *d.CurrentTurn
	}
	if d.RoundNumber != nil && *d.RoundNumber > gs.RoundNumber {
		gs.RoundNumber = *d.RoundNumber
	}
}
