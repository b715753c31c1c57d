package models

import "time"

// AbilityLine is one ability score with its derived modifier.
type AbilityLine struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Score     int    `json:"score"`
	Modifier  int    `json:"modifier"`
	Formatted string `json:"formatted"`
}

// SkillLine is a selected skill with the modifier of its governing ability.
type SkillLine struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Ability   string `json:"ability"`
	Label     string `json:"label"`
	Modifier  int    `json:"modifier"`
	Formatted string `json:"formatted"`
}

// Sheet is the rendered character sheet stored as an export.
type Sheet struct {
	Character   Character     `json:"character"`
	Abilities   []AbilityLine `json:"abilities"`
	Skills      []SkillLine   `json:"skills"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ExportResponse is returned by POST /api/characters/{id}/sheet.
type ExportResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}
