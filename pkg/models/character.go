package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Luffy852/dnd5e-character-manager/internal/ability"
)

// SkillList is the ordered set of skill ids picked for a character. It is
// persisted as JSON text ("[3,7,12]") and travels on the wire in that same
// text form; decoding also accepts a plain JSON array.
type SkillList []int64

// Text returns the JSON text form, "[]" when empty.
func (s SkillList) Text() string {
	if len(s) == 0 {
		return "[]"
	}
	b, _ := json.Marshal([]int64(s))
	return string(b)
}

// ParseSkillList parses the stored text form. Blank text is an empty list.
func ParseSkillList(text string) (SkillList, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "null" {
		return SkillList{}, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return nil, fmt.Errorf("parse skills %q: %w", text, err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return SkillList(ids), nil
}

func (s SkillList) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text())
}

func (s *SkillList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		parsed, err := ParseSkillList(text)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	parsed, err := ParseSkillList(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the list as JSON text.
func (s SkillList) Value() (driver.Value, error) {
	return s.Text(), nil
}

// Scan reads the JSON text column.
func (s *SkillList) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case nil:
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("scan skills: unsupported type %T", src)
	}
	parsed, err := ParseSkillList(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Character is a row in the characters table, serialized with the column names.
type Character struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	Race            string    `json:"race"`
	Class           string    `json:"class"`
	Level           int       `json:"level"`
	Background      string    `json:"background"`
	Alignment       string    `json:"alignment"`
	Experience      int       `json:"experience"`
	Strength        int       `json:"strength"`
	Dexterity       int       `json:"dexterity"`
	Constitution    int       `json:"constitution"`
	Intelligence    int       `json:"intelligence"`
	Wisdom          int       `json:"wisdom"`
	Charisma        int       `json:"charisma"`
	HitPoints       int       `json:"hit_points"`
	HitDice         string    `json:"hit_dice"`
	ArmorClass      int       `json:"armor_class"`
	Speed           int       `json:"speed"`
	Skills          SkillList `json:"skills"`
	Features        string    `json:"features"`
	Equipment       string    `json:"equipment"`
	BackgroundStory string    `json:"background_story"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Scores returns the six ability scores keyed by ability name.
func (c Character) Scores() map[string]int {
	return map[string]int{
		ability.Strength:     c.Strength,
		ability.Dexterity:    c.Dexterity,
		ability.Constitution: c.Constitution,
		ability.Intelligence: c.Intelligence,
		ability.Wisdom:       c.Wisdom,
		ability.Charisma:     c.Charisma,
	}
}

// CharacterInput is the camelCase JSON body for creating or updating a character.
type CharacterInput struct {
	UserID          int64   `json:"userId"`
	Name            string  `json:"name"`
	Race            string  `json:"race"`
	Class           string  `json:"class"`
	Level           int     `json:"level"`
	Background      string  `json:"background"`
	Alignment       string  `json:"alignment"`
	Experience      int     `json:"experience"`
	Strength        int     `json:"strength"`
	Dexterity       int     `json:"dexterity"`
	Constitution    int     `json:"constitution"`
	Intelligence    int     `json:"intelligence"`
	Wisdom          int     `json:"wisdom"`
	Charisma        int     `json:"charisma"`
	HitPoints       int     `json:"hitPoints"`
	HitDice         string  `json:"hitDice"`
	ArmorClass      int     `json:"armorClass"`
	Speed           int     `json:"speed"`
	Skills          []int64 `json:"skills"`
	Features        string  `json:"features"`
	Equipment       string  `json:"equipment"`
	BackgroundStory string  `json:"backgroundStory"`
}

// Character builds a row from the payload. ID and timestamps are left zero.
func (in CharacterInput) Character() Character {
	skills := make(SkillList, len(in.Skills))
	copy(skills, in.Skills)
	return Character{
		UserID:          in.UserID,
		Name:            in.Name,
		Race:            in.Race,
		Class:           in.Class,
		Level:           in.Level,
		Background:      in.Background,
		Alignment:       in.Alignment,
		Experience:      in.Experience,
		Strength:        in.Strength,
		Dexterity:       in.Dexterity,
		Constitution:    in.Constitution,
		Intelligence:    in.Intelligence,
		Wisdom:          in.Wisdom,
		Charisma:        in.Charisma,
		HitPoints:       in.HitPoints,
		HitDice:         in.HitDice,
		ArmorClass:      in.ArmorClass,
		Speed:           in.Speed,
		Skills:          skills,
		Features:        in.Features,
		Equipment:       in.Equipment,
		BackgroundStory: in.BackgroundStory,
	}
}

// CreateCharacterResponse is returned by POST /api/characters.
type CreateCharacterResponse struct {
	Success     bool  `json:"success"`
	CharacterID int64 `json:"characterId"`
}
