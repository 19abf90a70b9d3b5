package actor

// Attitude is how an NPC currently feels about the party.
type Attitude string

const (
	AttitudeFriendly Attitude = "friendly"
	AttitudeNeutral  Attitude = "neutral"
	AttitudeHostile  Attitude = "hostile"
)

// Valid reports whether a is one of the known attitudes.
func (a Attitude) Valid() bool {
	switch a {
	case AttitudeFriendly, AttitudeNeutral, AttitudeHostile:
		return true
	}
	return false
}

// NPC represents a non-player character in the game
type NPC struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Dialogue    []string `json:"dialogue"` // canned lines, may be empty
	Location    string   `json:"location"`
	Attitude    Attitude `json:"attitude"`
}
