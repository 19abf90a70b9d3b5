// Package textfilter softens profanity in generated narration and NPC
// dialogue for family-friendly content ratings.
package textfilter

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/dungeon-master/pkg/normalize"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

var _ normalize.ContentFilter = (*ProfanityFilter)(nil)

const censored = "[censored]"

// substitutions maps each filtered word or phrase to its softer form.
var substitutions = map[string]string{
	"fuck":         "fudge",
	"motherfucker": "mother-trucker",
	"shit":         "shoot",
	"bullshit":     "baloney",
	"horseshit":    "nonsense",
	"dipshit":      "dummy",
	"shithead":     "jerk",
	"damn":         "dang",
	"goddamn":      "gosh-dang",
	"hell":         "heck",
	"ass":          "butt",
	"asshole":      "jerk",
	"dumbass":      "dummy",
	"jackass":      "jerk",
	"smartass":     "smarty",
	"badass":       "tough",
	"bitch":        "jerk",
	"bastard":      "jerk",
	"crap":         "crud",
	"piss":         "ticked",
	"dick":         "jerk",
	"dickhead":     "jerk",
	"prick":        "jerk",
	"douche":       "jerk",
	"douchebag":    "jerk",
	"jesus christ": "jeez",
	"christ":       "crikey",
	"cock":         censored,
	"pussy":        censored,
	"tits":         censored,
	"boobs":        censored,
	"whore":        censored,
	"slut":         censored,
	"fag":          censored,
	"retard":       censored,
	"nigger":       censored,
	"nigga":        censored,
	"spic":         censored,
	"chink":        censored,
	"kike":         censored,
}

// ProfanityFilter rewrites filtered words in place, keeping the case and
// plural suffix of the original.
type ProfanityFilter struct {
	pattern *regexp.Regexp
}

// NewProfanityFilter compiles the word list into a single pattern. Longer
// entries come first so phrases win over the words inside them.
func NewProfanityFilter() *ProfanityFilter {
	words := make([]string, 0, len(substitutions))
	for w := range substitutions {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})

	alts := make([]string, len(words))
	for i, w := range words {
		alts[i] = regexp.QuoteMeta(w)
	}
	return &ProfanityFilter{
		pattern: regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)(s)?\b`),
	}
}

// ForRating returns a filter for ratings that call for one, and nil for
// R or an unset rating.
func ForRating(rating string) normalize.ContentFilter {
	if !ShouldFilterContent(rating) {
		return nil
	}
	return NewProfanityFilter()
}

// FilterText implements normalize.ContentFilter.
func (pf *ProfanityFilter) FilterText(text string) string {
	if text == "" {
		return text
	}
	return pf.pattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := pf.pattern.FindStringSubmatch(match)
		word, suffix := sub[1], sub[2]
		replacement, ok := substitutions[strings.ToLower(word)]
		if !ok {
			return match
		}
		if replacement == censored {
			return censored
		}
		return matchCase(word, replacement) + suffix
	})
}

// ContainsProfanity reports whether FilterText would change text.
func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	return pf.pattern.MatchString(text)
}

func matchCase(original, replacement string) string {
	switch {
	case strings.ToUpper(original) == original:
		return strings.ToUpper(replacement)
	case strings.ToLower(original) == original:
		return replacement
	}

	title := cases.Title(language.English)
	if title.String(strings.ToLower(original)) == original {
		return title.String(replacement)
	}

	// mixed case, copied letter by letter
	orig := []rune(original)
	out := []rune(replacement)
	for i, r := range out {
		if i < len(orig) && unicode.IsUpper(orig[i]) {
			out[i] = unicode.ToUpper(r)
		} else {
			out[i] = unicode.ToLower(r)
		}
	}
	return string(out)
}

// ShouldFilterContent reports whether a content rating calls for the
// profanity filter. "PG-13" is accepted as an alias of PG13.
func ShouldFilterContent(rating string) bool {
	rating = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(rating)), "-", "")
	switch rating {
	case prompts.RatingG, prompts.RatingPG, prompts.RatingPG13:
		return true
	default:
		return false
	}
}
