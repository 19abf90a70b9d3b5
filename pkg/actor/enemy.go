package actor

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jwebster45206/d20"
)

// AttackType is the delivery of an enemy attack.
type AttackType string

const (
	AttackMelee  AttackType = "melee"
	AttackRanged AttackType = "ranged"
	AttackMagic  AttackType = "magic"
)

// Valid reports whether t is one of the known attack types.
func (t AttackType) Valid() bool {
	switch t {
	case AttackMelee, AttackRanged, AttackMagic:
		return true
	}
	return false
}

// Attack is a single attack an enemy can make.
type Attack struct {
	Name   string     `json:"name"`
	Damage string     `json:"damage"` // dice notation, e.g. "2d6+3"
	Type   AttackType `json:"type"`
	Bonus  int        `json:"bonus"`
}

// GoldRange is the inclusive range of gold an enemy drops.
type GoldRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// LootTable describes what an enemy yields on defeat.
// Items are opaque to the engine and passed through untouched.
type LootTable struct {
	Gold       GoldRange         `json:"gold"`
	Items      []json.RawMessage `json:"items"`
	Experience int               `json:"experience"`
}

// Enemy represents a hostile creature in the current encounter.
type Enemy struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Health     int       `json:"health"`
	MaxHealth  int       `json:"max_health"`
	ArmorClass int       `json:"armor_class"`
	Attacks    []Attack  `json:"attacks"`
	Loot       LootTable `json:"loot"`
}

var diceNotation = regexp.MustCompile(`^\s*[1-9]\d*d[1-9]\d*\s*([+-]\s*\d+)?\s*$`)

// ValidDiceNotation reports whether s looks like "NdM", "NdM+K" or "NdM-K".
func ValidDiceNotation(s string) bool {
	return diceNotation.MatchString(s)
}

// TakeDamage reduces the enemy's health by the specified amount.
// Health cannot go below 0.
func (e *Enemy) TakeDamage(n int) {
	if n <= 0 {
		return
	}
	e.Health -= n
	if e.Health < 0 {
		e.Health = 0
	}
}

// Heal increases the enemy's health by the specified amount.
// Health cannot exceed MaxHealth.
func (e *Enemy) Heal(n int) {
	if n <= 0 {
		return
	}
	e.Health += n
	if e.Health > e.MaxHealth {
		e.Health = e.MaxHealth
	}
}

// IsDefeated returns true if the enemy's health is 0 or less.
func (e *Enemy) IsDefeated() bool {
	return e.Health <= 0
}

// Actor builds a d20 actor for the enemy. Attack bonuses become combat
// modifiers keyed by attack name.
func (e *Enemy) Actor() (*d20.Actor, error) {
	mods := make(map[string]int, len(e.Attacks))
	for _, a := range e.Attacks {
		mods[a.Name] = a.Bonus
	}

	actor, err := d20.NewActor(e.ID).
		WithHP(e.MaxHealth).
		WithAC(e.ArmorClass).
		WithCombatModifiers(mods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor for enemy %s: %w", e.ID, err)
	}

	// Current health only differs from max once the enemy has been hurt
	if e.Health != e.MaxHealth && e.Health > 0 {
		if err := actor.SetHP(e.Health); err != nil {
			return nil, fmt.Errorf("failed to set HP for enemy %s: %w", e.ID, err)
		}
	}
	return actor, nil
}
