package dm

import "github.com/jwebster45206/dungeon-master/pkg/state"

// ResponseType classifies the content of a Response.
type ResponseType string

const (
	ResponseNarrative ResponseType = "narrative"
	ResponseDialogue  ResponseType = "dialogue"
	ResponseCombat    ResponseType = "combat"
	ResponseSystem    ResponseType = "system"
)

// Valid reports whether t is one of the known response types.
func (t ResponseType) Valid() bool {
	switch t {
	case ResponseNarrative, ResponseDialogue, ResponseCombat, ResponseSystem:
		return true
	}
	return false
}

// Response is what the dungeon master says back for one turn.
// Effect tags are hints for client-side sound and visuals only; they are
// never game state.
type Response struct {
	Content          string                `json:"content"`
	Type             ResponseType          `json:"type"`
	GameStateUpdates *state.GameStateDelta `json:"game_state_updates,omitempty"`
	NPCResponses     map[string]string     `json:"npc_responses,omitempty"`
	SoundEffects     []string              `json:"sound_effects"`
	VisualEffects    []string              `json:"visual_effects"`
}
