// Package ability holds the six ability scores and the modifier arithmetic
// derived from them.
package ability

import (
	"strconv"
	"strings"
)

// Ability score names as stored in skills.ability_score.
const (
	Strength     = "strength"
	Dexterity    = "dexterity"
	Constitution = "constitution"
	Intelligence = "intelligence"
	Wisdom       = "wisdom"
	Charisma     = "charisma"
)

// Names lists the abilities in sheet order.
var Names = []string{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// Valid reports whether name is one of the six abilities.
func Valid(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Modifier returns floor((score-10)/2) for every int. The arithmetic shift
// floors toward negative infinity and cannot overflow.
func Modifier(score int) int {
	return (score >> 1) - 5
}

// Format renders a modifier with an explicit sign: +0, +3, -1.
func Format(mod int) string {
	if mod >= 0 {
		return "+" + strconv.Itoa(mod)
	}
	return strconv.Itoa(mod)
}

// FormatScore is Format(Modifier(score)).
func FormatScore(score int) string {
	return Format(Modifier(score))
}

// Abbrev returns the three-letter label for an ability, e.g. "DEX".
func Abbrev(name string) string {
	if len(name) < 3 {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(name[:3])
}
