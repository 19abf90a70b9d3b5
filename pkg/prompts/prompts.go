package prompts

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/dungeon-master/pkg/dm"
)

// DungeonMasterSystemPrompt is the fixed persona sent ahead of every turn.
// It never varies between requests; the output format block for the
// backend's mode follows it.
const DungeonMasterSystemPrompt = `You are an expert Dungeon Master running a Dungeons & Dragons 5e game for a party of up to four players in a shared chat.

### Your responsibilities:
1. Create immersive, descriptive scenes.
2. Role-play NPCs with distinct personalities.
3. Run combat encounters following D&D 5e rules.
4. Respond to player actions appropriately.
5. Keep the game world and its state consistent.
6. Keep the game engaging and balanced.

### Writing rules:
- Be descriptive but concise, at most 3 paragraphs.
- Always give the players meaningful choices.
- Use D&D 5e mechanics for combat and skill checks.
- Adapt to player choices and creativity.
- Include sensory details: sights, sounds and smells.
- End with a question or a prompt for action.`

// StructuredResponseFormat asks JSON-mode backends for the response contract.
const StructuredResponseFormat = `### Response format:
{
  "content": "Your narrative, description or dialogue",
  "type": "narrative|dialogue|combat|system",
  "game_state_updates": {...},
  "npc_responses": {...},
  "sound_effects": [...],
  "visual_effects": [...]
}

Always respond in valid JSON.`

// FreeformResponseFormat asks prose backends for plain narrative.
const FreeformResponseFormat = `### Response format:
Reply with the narrative itself as plain prose. Write NPC dialogue inline in quotes. Do not use JSON, code blocks or field labels.`

// SystemPrompt returns the persona followed by the output format for a
// structured or freeform backend.
func SystemPrompt(structured bool) string {
	if structured {
		return DungeonMasterSystemPrompt + "\n\n" + StructuredResponseFormat
	}
	return DungeonMasterSystemPrompt + "\n\n" + FreeformResponseFormat
}

// GenericInstruction is used for actions without a dedicated instruction.
const GenericInstruction = "Respond as the Dungeon Master to advance the story."

var instructions = map[dm.Action]string{
	dm.ActionGenerateScene:   "Generate a new, engaging scene description with exploration opportunities.",
	dm.ActionProcessAction:   "Respond to the player action and describe the outcome. Include consequences and new choices.",
	dm.ActionCreateNPC:       "Create a new NPC with personality, appearance, and potential dialogue options.",
	dm.ActionGenerateCombat:  "Initiate or continue combat. Describe the action and determine outcomes based on D&D rules.",
	dm.ActionRespondToPlayer: "Provide a natural response to the player that advances the story or provides information.",
}

// Instruction returns the closing instruction for an action.
func Instruction(a dm.Action) string {
	if s, ok := instructions[a]; ok {
		return s
	}
	return GenericInstruction
}

// Content ratings
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG13"
	RatingR    = "R"
)

const ContentRatingG = `Write content suitable for young children. Avoid violence, romance and scary elements. Use simple language and positive messages.`
const ContentRatingPG = `Write content suitable for children and families. Mild peril or tension is okay, but avoid strong language, explicit violence, or dark themes.`
const ContentRatingPG13 = `Write content appropriate for teenagers. Action scenes and mild swearing are fine, but avoid explicit adult situations, graphic violence, or drug use.`
const ContentRatingR = `Write with full freedom for adult audiences. All content should progress the story.`

// GetContentRatingPrompt returns the guidance for a rating, or "" when
// the rating is unset or unknown.
func GetContentRatingPrompt(rating string) string {
	switch rating {
	case RatingG:
		return ContentRatingG
	case RatingPG:
		return ContentRatingPG
	case RatingPG13:
		return ContentRatingPG13
	case RatingR:
		return ContentRatingR
	default:
		return ""
	}
}

// Auxiliary generations
const (
	BackstorySystemPrompt     = "Generate a brief, engaging D&D character backstory (2-3 sentences) based on the class and name provided."
	AdventureHookSystemPrompt = "Generate an exciting D&D adventure hook suitable for the party level and composition."
)

// Casers are stateful, so each call builds its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// BackstoryPrompt formats the user prompt for a backstory.
func BackstoryPrompt(class, name string) string {
	return fmt.Sprintf("Class: %s, Name: %s", titleCase(class), strings.TrimSpace(name))
}

// AdventureHookPrompt formats the user prompt for an adventure hook.
func AdventureHookPrompt(level int, classes []string) string {
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = titleCase(c)
	}
	return fmt.Sprintf("Party Level: %d, Classes: %s", level, strings.Join(names, ", "))
}
