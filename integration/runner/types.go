package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// ResetGameStateAction is a step action that restores the seed state
// instead of playing a turn.
const ResetGameStateAction = "RESET_GAMESTATE"

// TestSuite defines a complete integration test scenario.
// Either Steps run against SeedGameState, or Cases lists other case files.
type TestSuite struct {
	Name          string          `json:"name"`
	SeedGameState state.GameState `json:"seed_game_state"`
	Steps         []TestStep      `json:"steps,omitempty"`
	Cases         []string        `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one turn played against the game, and what to check after it.
type TestStep struct {
	Name         string         `json:"name,omitempty"`
	Action       dm.Action      `json:"action"`
	PlayerAction string         `json:"player_action,omitempty"`
	PlayerID     string         `json:"player_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	Expectations Expectations   `json:"expect"`
}

// IsReset reports whether the step restores the seed state.
func (s TestStep) IsReset() bool {
	return string(s.Action) == ResetGameStateAction
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Game state
	RoundNumber  *int              `json:"round_number,omitempty"`
	CurrentTurn  *string           `json:"current_turn,omitempty"`
	EnemyHealth  map[string]int    `json:"enemy_health,omitempty"`  // enemy id -> health
	NPCAttitudes map[string]string `json:"npc_attitudes,omitempty"` // npc id -> attitude
	MessageCount *int              `json:"message_count,omitempty"`

	// Response
	ResponseTypes       []dm.ResponseType `json:"response_types,omitempty"` // any of
	ResponseContains    []string          `json:"response_contains,omitempty"`
	ResponseNotContains []string          `json:"response_not_contains,omitempty"`
	ResponseRegex       string            `json:"response_regex,omitempty"`
	ResponseMinLength   *int              `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int              `json:"response_max_length,omitempty"`
	NoFallback          bool              `json:"no_fallback,omitempty"`
	StatusCode          *int              `json:"status_code,omitempty"` // expect the turn to be rejected
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	RequestID    string
	ResponseText string
	Warning      string
	IsReset      bool // reset steps do not count toward pass/fail metrics
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID
}
