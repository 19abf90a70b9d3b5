package state

import (
	"time"

	"github.com/jwebster45206/dungeon-master/pkg/actor"
)

// GameStateDelta is a sparse patch over GameState. A nil field means
// "unchanged"; a non-nil slice replaces the whole list.
//
// LastAction and Timestamp are audit fields only. They record which action
// produced the delta and never touch the game state itself.
type GameStateDelta struct {
	Scene       *string       `json:"scene,omitempty"`
	NPCs        []actor.NPC   `json:"npcs,omitempty"`
	Enemies     []actor.Enemy `json:"enemies,omitempty"`
	Environment *Environment  `json:"environment,omitempty"`
	TurnOrder   []TurnEntry   `json:"turn_order,omitempty"`
	CurrentTurn *string       `json:"current_turn,omitempty"`
	RoundNumber *int          `json:"round_number,omitempty"`

	LastAction string     `json:"last_action,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// IsEmpty checks if the GameStateDelta changes no game state field
func (d *GameStateDelta) IsEmpty() bool {
	return d == nil || (d.Scene == nil &&
		d.NPCs == nil &&
		d.Enemies == nil &&
		d.Environment == nil &&
		d.TurnOrder == nil &&
		d.CurrentTurn == nil &&
		d.RoundNumber == nil)
}
