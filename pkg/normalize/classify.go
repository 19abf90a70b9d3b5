package normalize

import (
	"strings"

	"github.com/jwebster45206/dungeon-master/pkg/dm"
)

// Classifier derives response metadata from freeform text. Results are
// hints for the client and never game state.
type Classifier interface {
	Classify(text string) dm.ResponseType
	SoundEffects(text string) []string
	VisualEffects(text string) []string
}

type keywordRule struct {
	keywords []string
	tags     []string
}

var (
	combatWords = []string{"combat", "attack", "damage"}
	speechWords = []string{"says", "asks"}
	quoteMarks  = []string{`"`, "“", "”"}

	soundRules = []keywordRule{
		{keywords: []string{"combat", "sword", "attack", "damage"}, tags: []string{"sword_clash", "battle_cry"}},
		{keywords: []string{"magic", "spell"}, tags: []string{"magic_whoosh", "mystical_chime"}},
		{keywords: []string{"door", "open"}, tags: []string{"door_creak"}},
		{keywords: []string{"fire", "torch"}, tags: []string{"fire_crackle"}},
	}

	visualRules = []keywordRule{
		{keywords: []string{"magic", "spell"}, tags: []string{"magic_sparkles", "mystical_glow"}},
		{keywords: []string{"combat", "attack", "damage"}, tags: []string{"impact_flash", "weapon_trail"}},
		{keywords: []string{"fire", "torch"}, tags: []string{"flickering_light", "warm_glow"}},
		{keywords: []string{"dark", "shadow"}, tags: []string{"eerie_darkness", "shadow_movement"}},
	}
)

// KeywordClassifier matches case-insensitive substrings. It is best effort
// and makes no claim to be exhaustive.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

// Classify returns combat for fighting words, dialogue for quoted speech,
// and narrative otherwise.
func (KeywordClassifier) Classify(text string) dm.ResponseType {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, combatWords):
		return dm.ResponseCombat
	case containsAny(lower, quoteMarks) && containsAny(lower, speechWords):
		return dm.ResponseDialogue
	default:
		return dm.ResponseNarrative
	}
}

func (KeywordClassifier) SoundEffects(text string) []string {
	return applyRules(text, soundRules)
}

func (KeywordClassifier) VisualEffects(text string) []string {
	return applyRules(text, visualRules)
}

func applyRules(text string, rules []keywordRule) []string {
	lower := strings.ToLower(text)
	tags := make([]string, 0)
	for _, r := range rules {
		if containsAny(lower, r.keywords) {
			tags = append(tags, r.tags...)
		}
	}
	return dedupe(tags)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of each tag.
func dedupe(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
