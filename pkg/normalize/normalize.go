// Package normalize turns raw generation output into a dm.Response.
//
// Structured output is decoded against the response contract. Freeform
// prose is wrapped as content and annotated by a Classifier.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/dungeon-master/pkg/dm"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

var (
	// ErrEmptyOutput means the backend produced no usable text.
	ErrEmptyOutput = errors.New("empty generation output")
	// ErrInvalidOutput means structured output did not match the contract.
	ErrInvalidOutput = errors.New("invalid structured output")
)

// ContentFilter rewrites narrative text, e.g. a profanity filter.
type ContentFilter interface {
	FilterText(text string) string
}

// Normalizer holds the pluggable parts of normalization. The zero value
// uses KeywordClassifier and no filter.
type Normalizer struct {
	Classifier Classifier
	Filter     ContentFilter
}

// structuredResponse mirrors dm.Response with the patch left raw, so a
// patch of the wrong shape can be dropped without losing the narrative.
type structuredResponse struct {
	Content          string            `json:"content"`
	Type             dm.ResponseType   `json:"type"`
	GameStateUpdates json.RawMessage   `json:"game_state_updates"`
	NPCResponses     map[string]string `json:"npc_responses"`
	SoundEffects     []string          `json:"sound_effects"`
	VisualEffects    []string          `json:"visual_effects"`
}

// Structured decodes a JSON completion. A missing content field or an
// unknown type is an error; the caller treats it as a generation failure.
func (n *Normalizer) Structured(raw string) (*dm.Response, error) {
	txt := CleanJSON(raw)
	if txt == "" {
		return nil, ErrEmptyOutput
	}

	var sr structuredResponse
	if err := json.Unmarshal([]byte(txt), &sr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	content := strings.TrimSpace(sr.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: missing content", ErrInvalidOutput)
	}
	if sr.Type == "" {
		sr.Type = dm.ResponseNarrative
	}
	if !sr.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidOutput, sr.Type)
	}

	resp := &dm.Response{
		Content:       content,
		Type:          sr.Type,
		NPCResponses:  sr.NPCResponses,
		SoundEffects:  dedupe(sr.SoundEffects),
		VisualEffects: dedupe(sr.VisualEffects),
	}
	resp.GameStateUpdates = decodeDelta(sr.GameStateUpdates)
	n.filter(resp)
	return resp, nil
}

// decodeDelta returns nil for absent, null or malformed patches.
func decodeDelta(raw json.RawMessage) *state.GameStateDelta {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var d state.GameStateDelta
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	if d.IsEmpty() && d.LastAction == "" && d.Timestamp == nil {
		return nil
	}
	return &d
}

// Freeform wraps prose as content and derives type and effect tags. The
// only state update is an audit record of the action and time.
func (n *Normalizer) Freeform(text string, action dm.Action, now time.Time) (*dm.Response, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, ErrEmptyOutput
	}

	c := n.classifier()
	ts := now.UTC()
	resp := &dm.Response{
		Content:       content,
		Type:          c.Classify(content),
		SoundEffects:  c.SoundEffects(content),
		VisualEffects: c.VisualEffects(content),
		GameStateUpdates: &state.GameStateDelta{
			LastAction: string(action),
			Timestamp:  &ts,
		},
	}
	if resp.SoundEffects == nil {
		resp.SoundEffects = []string{}
	}
	if resp.VisualEffects == nil {
		resp.VisualEffects = []string{}
	}
	n.filter(resp)
	return resp, nil
}

func (n *Normalizer) classifier() Classifier {
	if n == nil || n.Classifier == nil {
		return KeywordClassifier{}
	}
	return n.Classifier
}

func (n *Normalizer) filter(resp *dm.Response) {
	if n == nil || n.Filter == nil {
		return
	}
	resp.Content = n.Filter.FilterText(resp.Content)
	for id, line := range resp.NPCResponses {
		resp.NPCResponses[id] = n.Filter.FilterText(line)
	}
}

var defaultNormalizer = &Normalizer{}

// Structured normalizes with the default Normalizer.
func Structured(raw string) (*dm.Response, error) {
	return defaultNormalizer.Structured(raw)
}

// Freeform normalizes with the default Normalizer.
func Freeform(text string, action dm.Action, now time.Time) (*dm.Response, error) {
	return defaultNormalizer.Freeform(text, action, now)
}
