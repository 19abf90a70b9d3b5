package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dungeon-master/internal/dungeonmaster"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// maxMessageCheck bounds the message log read for message_count checks.
const maxMessageCheck = 500

// Runner executes integration tests against a running dungeon-master API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // per step
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
	KeepGames         bool // skip deleting games after each suite
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence.
// Case paths in a sequence are relative to casesDir.
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	return loadExpanded(filename, casesDir, map[string]bool{})
}

func loadExpanded(filename, casesDir string, visiting map[string]bool) ([]TestJob, error) {
	if visiting[filename] {
		return nil, fmt.Errorf("sequence cycle at %s", filename)
	}
	visiting[filename] = true
	defer delete(visiting, filename)

	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := loadExpanded(filepath.Join(casesDir, caseFile), casesDir, visiting)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite creates a game from the suite's seed state and plays each step
// against it.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	seed := suite.SeedGameState
	gameID, err := CreateGame(ctx, r.Client, r.BaseURL, &seed)
	if err != nil {
		result.Error = fmt.Errorf("failed to seed game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = gameID

	if !r.KeepGames {
		defer func() {
			if err := DeleteGame(context.WithoutCancel(ctx), r.Client, r.BaseURL, gameID); err != nil {
				r.Logger("    Warning: failed to delete game %s: %v", gameID, err)
			}
		}()
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, gameID, step, &suite.SeedGameState)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep executes a step, retrying once if the turn timed out.
func (r *Runner) runStep(ctx context.Context, gameID uuid.UUID, step TestStep, seed *state.GameState) TestResult {
	result := r.executeStep(ctx, gameID, step, seed)
	if result.Error != nil && isTimeout(result.Error) {
		r.Logger("    Timeout detected, retrying step: %s", step.Name)
		result = r.executeStep(ctx, gameID, step, seed)
	}
	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (r *Runner) executeStep(ctx context.Context, gameID uuid.UUID, step TestStep, seed *state.GameState) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if step.IsReset() {
		reset := *seed
		if err := ReplaceGame(stepCtx, r.Client, r.BaseURL, gameID, &reset); err != nil {
			return fail(fmt.Errorf("failed to reset game state: %w", err))
		}
		gs, err := GetGameState(stepCtx, r.Client, r.BaseURL, gameID)
		if err != nil {
			return fail(fmt.Errorf("failed to get reset game state: %w", err))
		}
		if err := r.checkState(stepCtx, gameID, step.Expectations, gs); err != nil {
			return fail(fmt.Errorf("reset expectation failed: %w", err))
		}
		result.Success = true
		result.IsReset = true
		result.ResponseText = "[GAMESTATE RESET]"
		result.Duration = time.Since(start)
		return result
	}

	res, warning, err := PlayTurn(stepCtx, r.Client, r.BaseURL, gameID, dungeonmaster.TurnRequest{
		Action:       step.Action,
		PlayerAction: step.PlayerAction,
		PlayerID:     step.PlayerID,
		Context:      step.Context,
	})

	if want := step.Expectations.StatusCode; want != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return fail(fmt.Errorf("expected status %d, turn returned err=%v", *want, err))
		}
		if apiErr.StatusCode != *want {
			return fail(fmt.Errorf("expected status %d, got %w", *want, apiErr))
		}
		result.Success = true
		result.Duration = time.Since(start)
		return result
	}
	if err != nil {
		return fail(fmt.Errorf("failed to play turn: %w", err))
	}

	result.RequestID = res.RequestID
	result.Warning = warning
	if res.Response != nil {
		result.ResponseText = res.Response.Content
	}

	if err := r.checkResponse(step.Expectations, res, warning); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}
	if err := r.checkState(stepCtx, gameID, step.Expectations, res.GameState); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) checkResponse(exp Expectations, res *dungeonmaster.TurnResult, warning string) error {
	if res.Response == nil {
		return fmt.Errorf("turn returned no response")
	}
	text := res.Response.Content

	if exp.NoFallback && warning != "" {
		return fmt.Errorf("expected a generated response, got fallback (%s)", warning)
	}

	if len(exp.ResponseTypes) > 0 && !slices.Contains(exp.ResponseTypes, res.Response.Type) {
		return fmt.Errorf("expected response type in %v, got %s", exp.ResponseTypes, res.Response.Type)
	}

	lower := strings.ToLower(text)
	for _, want := range exp.ResponseContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", want)
		}
	}
	for _, unwanted := range exp.ResponseNotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unwanted)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	if exp.ResponseMinLength != nil && len(text) < *exp.ResponseMinLength {
		return fmt.Errorf("expected response length >= %d, got %d", *exp.ResponseMinLength, len(text))
	}
	if exp.ResponseMaxLength != nil && len(text) > *exp.ResponseMaxLength {
		return fmt.Errorf("expected response length <= %d, got %d", *exp.ResponseMaxLength, len(text))
	}
	return nil
}

func (r *Runner) checkState(ctx context.Context, gameID uuid.UUID, exp Expectations, gs *state.GameState) error {
	if gs == nil {
		return fmt.Errorf("no game state to check")
	}

	if exp.RoundNumber != nil && gs.RoundNumber != *exp.RoundNumber {
		return fmt.Errorf("expected round_number to be %d, got %d", *exp.RoundNumber, gs.RoundNumber)
	}
	if exp.CurrentTurn != nil && gs.CurrentTurn != *exp.CurrentTurn {
		return fmt.Errorf("expected current_turn to be %s, got %s", *exp.CurrentTurn, gs.CurrentTurn)
	}

	for id, want := range exp.EnemyHealth {
		e := gs.FindEnemy(id)
		if e == nil {
			return fmt.Errorf("expected enemy %s to exist, but it doesn't", id)
		}
		if e.Health != want {
			return fmt.Errorf("expected enemy %s health to be %d, got %d", id, want, e.Health)
		}
	}

	for id, want := range exp.NPCAttitudes {
		n := gs.FindNPC(id)
		if n == nil {
			return fmt.Errorf("expected NPC %s to exist, but it doesn't", id)
		}
		if string(n.Attitude) != want {
			return fmt.Errorf("expected NPC %s attitude to be %s, got %s", id, want, n.Attitude)
		}
	}

	if exp.MessageCount != nil {
		msgs, err := ListMessages(ctx, r.Client, r.BaseURL, gameID, maxMessageCheck)
		if err != nil {
			return fmt.Errorf("failed to list messages: %w", err)
		}
		if len(msgs) != *exp.MessageCount {
			return fmt.Errorf("expected %d messages, got %d", *exp.MessageCount, len(msgs))
		}
	}
	return nil
}
