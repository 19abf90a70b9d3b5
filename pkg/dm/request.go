package dm

import (
	"errors"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// ErrMissingParameters is returned when an auxiliary request lacks a
// required field.
var ErrMissingParameters = errors.New("missing required parameters")

// Request is a single dungeon master turn. It is built per player action
// and discarded once the matching Response is produced.
type Request struct {
	Action       Action           `json:"action"`
	GameState    *state.GameState `json:"game_state"`
	PlayerAction string           `json:"player_action,omitempty"`
	PlayerID     string           `json:"player_id,omitempty"`
	Context      map[string]any   `json:"context,omitempty"`
}

// BackstoryRequest asks for a short character backstory.
type BackstoryRequest struct {
	CharacterClass string `json:"characterClass"`
	CharacterName  string `json:"characterName"`
}

// Validate returns ErrMissingParameters if either field is blank.
func (r *BackstoryRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.CharacterClass) == "" || strings.TrimSpace(r.CharacterName) == "" {
		return ErrMissingParameters
	}
	return nil
}

// AdventureHookRequest asks for an adventure hook suited to a party.
type AdventureHookRequest struct {
	Level         int      `json:"level"`
	PlayerClasses []string `json:"playerClasses"`
}

// Validate returns ErrMissingParameters if the level or the class list is
// missing.
func (r *AdventureHookRequest) Validate() error {
	if r == nil || r.Level < 1 || len(r.PlayerClasses) == 0 {
		return ErrMissingParameters
	}
	for _, c := range r.PlayerClasses {
		if strings.TrimSpace(c) == "" {
			return ErrMissingParameters
		}
	}
	return nil
}
