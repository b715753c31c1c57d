package models

// Skill is read-only reference data tied to one governing ability.
type Skill struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	AbilityScore string `json:"ability_score"`
}
