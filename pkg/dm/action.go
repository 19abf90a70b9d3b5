package dm

// Action is the kind of work a request asks the dungeon master to do.
type Action string

const (
	ActionGenerateScene   Action = "generate_scene"
	ActionProcessAction   Action = "process_action"
	ActionCreateNPC       Action = "create_npc"
	ActionGenerateCombat  Action = "generate_combat"
	ActionRespondToPlayer Action = "respond_to_player"
)

var actions = []Action{
	ActionGenerateScene,
	ActionProcessAction,
	ActionCreateNPC,
	ActionGenerateCombat,
	ActionRespondToPlayer,
}

// Actions returns every known action in declaration order.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	for _, known := range actions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string {
	return string(a)
}
