// Package dungeonmaster runs player requests through prompt compilation,
// generation and normalization, and plays turns against stored games.
package dungeonmaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/normalize"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

// ErrProcessingFailed reports an internal fault, as opposed to a bad
// request or a backend failure.
var ErrProcessingFailed = errors.New("dungeon master processing failed")

// FallbackWarning accompanies every response that was replaced by fallback
// content.
const FallbackWarning = "Using fallback response due to AI error"

// Stage is a step of request processing.
type Stage int

const (
	StageReceived Stage = iota
	StageValidated
	StageCompiling
	StageInvoking
	StageNormalizing
	StageCompleted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageReceived:
		return "received"
	case StageValidated:
		return "validated"
	case StageCompiling:
		return "compiling"
	case StageInvoking:
		return "invoking"
	case StageNormalizing:
		return "normalizing"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Config holds everything a Dispatcher needs. Only LLM is required.
type Config struct {
	LLM           services.LLMService
	Model         string
	AuxModel      string
	Timeout       time.Duration
	Classifier    normalize.Classifier
	Filter        normalize.ContentFilter
	ContentRating string
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Result is the outcome of a completed request. Warning is set when the
// response is fallback content.
type Result struct {
	Response *dm.Response
	Warning  string
	Stage    Stage
}

// Dispatcher processes dungeon master requests. It holds no per-request
// state and is safe for concurrent use.
type Dispatcher struct {
	invoker    *Invoker
	normalizer *normalize.Normalizer
	mode       services.Mode
	rating     string
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config) (*Dispatcher, error) {
	if cfg.LLM == nil {
		return nil, errors.New("dungeonmaster: LLM service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		invoker: NewInvoker(cfg.LLM, cfg.Model, cfg.AuxModel, cfg.Timeout, logger),
		normalizer: &normalize.Normalizer{
			Classifier: cfg.Classifier,
			Filter:     cfg.Filter,
		},
		mode:   cfg.LLM.Mode(),
		rating: cfg.ContentRating,
		logger: logger,
		now:    now,
	}, nil
}

// Mode reports how the backend's output is normalized.
func (d *Dispatcher) Mode() services.Mode {
	return d.mode
}

// Process handles one request. Invalid requests return a *dm.ValidationError
// before any generation call. Generation failures still complete, with
// fallback content and a warning. Internal faults return ErrProcessingFailed.
func (d *Dispatcher) Process(ctx context.Context, req *dm.Request) (res *Result, err error) {
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{"stage", stage.String(), "panic", r, "stack", string(debug.Stack())}
			if req != nil {
				attrs = append(attrs, "action", req.Action, "player_id", req.PlayerID)
			}
			d.logger.Error("Panic while processing request", attrs...)
			res = nil
			err = fmt.Errorf("%w: %v", ErrProcessingFailed, r)
		}
	}()

	if err := dm.Validate(req); err != nil {
		d.logger.Info("Rejected invalid request", "stage", StageFailed.String(), "error", err)
		return nil, err
	}
	stage = StageValidated

	log := d.logger.With("action", req.Action, "player_id", req.PlayerID)

	stage = StageCompiling
	messages := prompts.New().
		WithAction(req.Action).
		WithGameState(req.GameState).
		WithPlayerAction(req.PlayerAction).
		WithContext(req.Context).
		WithContentRating(d.rating).
		WithStructuredOutput(d.mode == services.ModeStructured).
		Build()

	stage = StageInvoking
	raw, fail := d.invoker.GenerateTurnResponse(ctx, messages)
	if fail != nil {
		log.Warn("Returning fallback response", "error", fail)
		return d.fallback(), nil
	}

	stage = StageNormalizing
	resp, nerr := d.normalize(raw, req.Action)
	if nerr != nil {
		fail = &GenerationFailure{Op: OpTurnResponse, Err: nerr}
		log.Warn("Returning fallback response", "error", fail)
		return d.fallback(), nil
	}

	stage = StageCompleted
	log.Info("Request completed", "type", resp.Type, "mode", d.mode)
	return &Result{Response: resp, Stage: stage}, nil
}

func (d *Dispatcher) normalize(raw string, action dm.Action) (*dm.Response, error) {
	if d.mode == services.ModeFreeform {
		return d.normalizer.Freeform(raw, action, d.now())
	}
	return d.normalizer.Structured(raw)
}

func (d *Dispatcher) fallback() *Result {
	return &Result{
		Response: FallbackResponse(),
		Warning:  FallbackWarning,
		Stage:    StageCompleted,
	}
}

// AuxResult is the outcome of a backstory or adventure hook request.
type AuxResult struct {
	Text    string
	Warning string
}

// Backstory validates the request and generates a character backstory.
func (d *Dispatcher) Backstory(ctx context.Context, req *dm.BackstoryRequest) (*AuxResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text, fail := d.invoker.GenerateBackstory(ctx, req.CharacterClass, req.CharacterName)
	return auxResult(text, fail), nil
}

// AdventureHook validates the request and generates an adventure hook.
func (d *Dispatcher) AdventureHook(ctx context.Context, req *dm.AdventureHookRequest) (*AuxResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text, fail := d.invoker.GenerateAdventureHook(ctx, req.Level, req.PlayerClasses)
	return auxResult(text, fail), nil
}

func auxResult(text string, fail *GenerationFailure) *AuxResult {
	res := &AuxResult{Text: text}
	if fail != nil {
		res.Warning = FallbackWarning
	}
	return res
}
