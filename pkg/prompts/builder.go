package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// Builder constructs the messages for one dungeon master turn using a
// fluent interface. Build never fails; missing optional parts are left out.
type Builder struct {
	action       dm.Action
	gs           *state.GameState
	playerAction string
	context      map[string]any
	rating       string
	structured   bool
}

// New creates a new prompt builder. Output defaults to the JSON contract.
func New() *Builder {
	return &Builder{structured: true}
}

// WithAction sets the requested action.
func (b *Builder) WithAction(a dm.Action) *Builder {
	b.action = a
	return b
}

// WithGameState sets the game state snapshot.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithPlayerAction sets the player's free-text action.
func (b *Builder) WithPlayerAction(s string) *Builder {
	b.playerAction = s
	return b
}

// WithContext sets optional caller-supplied context.
func (b *Builder) WithContext(ctx map[string]any) *Builder {
	b.context = ctx
	return b
}

// WithContentRating appends rating guidance to the system prompt.
func (b *Builder) WithContentRating(rating string) *Builder {
	b.rating = rating
	return b
}

// WithStructuredOutput selects the JSON response contract, or plain prose
// for freeform backends.
func (b *Builder) WithStructuredOutput(structured bool) *Builder {
	b.structured = structured
	return b
}

// Build returns the system persona followed by the turn prompt.
func (b *Builder) Build() []chat.ChatMessage {
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: b.systemPrompt()},
		{Role: chat.ChatRoleUser, Content: b.turnPrompt()},
	}
}

func (b *Builder) systemPrompt() string {
	sys := SystemPrompt(b.structured)
	if r := GetContentRatingPrompt(b.rating); r != "" {
		return sys + "\n\nContent Rating: " + b.rating + " (" + r + ")"
	}
	return sys
}

func (b *Builder) turnPrompt() string {
	var sb strings.Builder

	sb.WriteString("Action: " + string(b.action) + "\n\n")

	if gs := b.gs; gs != nil {
		sb.WriteString("Current Game State:\n")
		sb.WriteString("- Scene: " + gs.Scene + "\n")
		sb.WriteString(fmt.Sprintf("- Round: %d\n", gs.RoundNumber))
		sb.WriteString("- Current Turn: " + gs.CurrentTurn + "\n")
		sb.WriteString("- Environment: " + indentJSON(gs.Environment) + "\n")

		if len(gs.NPCs) > 0 {
			sb.WriteString("\nNPCs:\n")
			for _, npc := range gs.NPCs {
				sb.WriteString(fmt.Sprintf("- %s: %s (%s)\n", npc.Name, npc.Description, npc.Attitude))
			}
		}
		if len(gs.Enemies) > 0 {
			sb.WriteString("\nEnemies:\n")
			for _, e := range gs.Enemies {
				sb.WriteString(fmt.Sprintf("- %s: HP %d/%d, AC %d\n", e.Name, e.Health, e.MaxHealth, e.ArmorClass))
			}
		}
	}

	if b.playerAction != "" {
		sb.WriteString("\nPlayer Action: " + b.playerAction + "\n")
	}
	if len(b.context) > 0 {
		sb.WriteString("\nAdditional Context: " + indentJSON(b.context) + "\n")
	}

	sb.WriteString("\n" + Instruction(b.action))
	return sb.String()
}

// indentJSON marshals v with two-space indentation. Map keys come out
// sorted, so the result is stable.
func indentJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// Compile renders the whole turn prompt as one string, persona first.
// Identical inputs always produce identical output.
func Compile(action dm.Action, gs *state.GameState, playerAction string, context map[string]any) string {
	msgs := New().
		WithAction(action).
		WithGameState(gs).
		WithPlayerAction(playerAction).
		WithContext(context).
		Build()
	return Join(msgs)
}

// Join concatenates message contents separated by a blank line.
func Join(msgs []chat.ChatMessage) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n\n")
}
