package dungeonmaster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

// Generation operations, used in logs and failures.
const (
	OpTurnResponse  = "turn_response"
	OpBackstory     = "backstory"
	OpAdventureHook = "adventure_hook"
)

const (
	generationTemperature    = 0.8
	turnMaxTokens            = 1000
	backstoryMaxTokens       = 200
	adventureHookMaxTokens   = 300
	defaultGenerationTimeout = 30 * time.Second
)

const (
	FallbackBackstory     = "A mysterious adventurer with an unknown past."
	FallbackAdventureHook = "A mysterious quest awaits the brave adventurers."

	fallbackContent     = "The dungeon master seems to be lost in thought. Try again in a moment."
	fallbackSoundEffect = "mysterious_wind"
)

// FallbackResponse is returned in place of generated content whenever a
// turn cannot be generated.
func FallbackResponse() *dm.Response {
	return &dm.Response{
		Content:       fallbackContent,
		Type:          dm.ResponseSystem,
		SoundEffects:  []string{fallbackSoundEffect},
		VisualEffects: []string{},
	}
}

// GenerationFailure wraps anything that kept a backend from producing
// usable output: transport errors, timeouts, empty or malformed completions.
type GenerationFailure struct {
	Op  string
	Err error
}

func (f *GenerationFailure) Error() string {
	return fmt.Sprintf("%s generation failed: %v", f.Op, f.Err)
}

func (f *GenerationFailure) Unwrap() error {
	return f.Err
}

// Invoker runs the named generation operations against one backend with
// fixed parameters per operation.
type Invoker struct {
	llm      services.LLMService
	model    string
	auxModel string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewInvoker(llm services.LLMService, model, auxModel string, timeout time.Duration, logger *slog.Logger) *Invoker {
	if timeout <= 0 {
		timeout = defaultGenerationTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		llm:      llm,
		model:    model,
		auxModel: auxModel,
		timeout:  timeout,
		logger:   logger,
	}
}

// GenerateTurnResponse asks for the dungeon master's next turn. JSON output
// is requested when the backend is structured.
func (i *Invoker) GenerateTurnResponse(ctx context.Context, messages []chat.ChatMessage) (string, *GenerationFailure) {
	return i.generate(ctx, OpTurnResponse, services.GenerationRequest{
		Model:       i.model,
		Messages:    messages,
		Temperature: generationTemperature,
		MaxTokens:   turnMaxTokens,
		Structured:  i.llm.Mode() == services.ModeStructured,
	})
}

// GenerateBackstory returns a short character backstory. On failure it
// returns FallbackBackstory along with the failure.
func (i *Invoker) GenerateBackstory(ctx context.Context, class, name string) (string, *GenerationFailure) {
	out, fail := i.generate(ctx, OpBackstory, services.GenerationRequest{
		Model: i.auxModel,
		Messages: []chat.ChatMessage{
			{Role: chat.ChatRoleSystem, Content: prompts.BackstorySystemPrompt},
			{Role: chat.ChatRoleUser, Content: prompts.BackstoryPrompt(class, name)},
		},
		Temperature: generationTemperature,
		MaxTokens:   backstoryMaxTokens,
	})
	if fail != nil {
		return FallbackBackstory, fail
	}
	return out, nil
}

// GenerateAdventureHook returns an adventure hook for the party. On
// failure it returns FallbackAdventureHook along with the failure.
func (i *Invoker) GenerateAdventureHook(ctx context.Context, level int, classes []string) (string, *GenerationFailure) {
	out, fail := i.generate(ctx, OpAdventureHook, services.GenerationRequest{
		Model: i.auxModel,
		Messages: []chat.ChatMessage{
			{Role: chat.ChatRoleSystem, Content: prompts.AdventureHookSystemPrompt},
			{Role: chat.ChatRoleUser, Content: prompts.AdventureHookPrompt(level, classes)},
		},
		Temperature: generationTemperature,
		MaxTokens:   adventureHookMaxTokens,
	})
	if fail != nil {
		return FallbackAdventureHook, fail
	}
	return out, nil
}

func (i *Invoker) generate(ctx context.Context, op string, req services.GenerationRequest) (string, *GenerationFailure) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	start := time.Now()
	out, err := i.llm.Generate(ctx, req)
	if err != nil {
		i.logger.Warn("Generation failed",
			"op", op,
			"backend", i.llm.Name(),
			"model", req.Model,
			"duration", time.Since(start),
			"error", err)
		return "", &GenerationFailure{Op: op, Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		i.logger.Warn("Generation returned empty output", "op", op, "backend", i.llm.Name())
		return "", &GenerationFailure{Op: op, Err: services.ErrEmptyCompletion}
	}

	i.logger.Debug("Generation completed",
		"op", op,
		"backend", i.llm.Name(),
		"model", req.Model,
		"duration", time.Since(start),
		"length", len(out))
	return out, nil
}
