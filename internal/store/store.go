// Package store holds the persistence contracts and their Postgres, SQLite,
// MongoDB, MinIO and Redis backed implementations.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Luffy852/dnd5e-character-manager/internal/ability"
	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore persists users. Email uniqueness is enforced by the schema.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
}

// CharacterStore persists characters.
type CharacterStore interface {
	CreateCharacter(ctx context.Context, c models.Character) (int64, error)
	GetCharacter(ctx context.Context, id int64) (models.Character, error)
	// ListCharactersByUser returns the user's characters in insertion order.
	ListCharactersByUser(ctx context.Context, userID int64) ([]models.Character, error)
	UpdateCharacter(ctx context.Context, c models.Character) error
	// DeleteCharacter does not fail when the row is already gone.
	DeleteCharacter(ctx context.Context, id int64) error
}

// SkillStore reads the skill reference table.
type SkillStore interface {
	// ListSkills returns every skill ordered by name.
	ListSkills(ctx context.Context) ([]models.Skill, error)
}

// Store is the full relational contract used by the HTTP layer.
type Store interface {
	UserStore
	CharacterStore
	SkillStore
	Close() error
}

// characterColumns is the select list shared by both SQL backends.
const characterColumns = `id, user_id, name, race, "class", level, background, alignment, experience,
	strength, dexterity, constitution, intelligence, wisdom, charisma,
	hit_points, hit_dice, armor_class, speed, skills, features, equipment, background_story,
	created_at, updated_at`

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// characterFields returns scan destinations for every column except the timestamps.
func characterFields(c *models.Character) []any {
	return []any{
		&c.ID, &c.UserID, &c.Name, &c.Race, &c.Class, &c.Level, &c.Background, &c.Alignment, &c.Experience,
		&c.Strength, &c.Dexterity, &c.Constitution, &c.Intelligence, &c.Wisdom, &c.Charisma,
		&c.HitPoints, &c.HitDice, &c.ArmorClass, &c.Speed, &c.Skills, &c.Features, &c.Equipment, &c.BackgroundStory,
	}
}

// characterArgs returns insert/update arguments in column order, without id and timestamps.
func characterArgs(c models.Character) []any {
	return []any{
		c.UserID, c.Name, c.Race, c.Class, c.Level, c.Background, c.Alignment, c.Experience,
		c.Strength, c.Dexterity, c.Constitution, c.Intelligence, c.Wisdom, c.Charisma,
		c.HitPoints, c.HitDice, c.ArmorClass, c.Speed, c.Skills.Text(), c.Features, c.Equipment, c.BackgroundStory,
	}
}

// checkSkills rejects seed rows whose governing ability is not one of the six.
func checkSkills(skills []models.Skill) error {
	for _, sk := range skills {
		if !ability.Valid(sk.AbilityScore) {
			return fmt.Errorf("seed skills: %q has unknown ability %q", sk.Name, sk.AbilityScore)
		}
	}
	return nil
}

// DefaultSkills is the seeded skill table.
var DefaultSkills = []models.Skill{
	{ID: 1, Name: "Acrobatics", AbilityScore: "dexterity"},
	{ID: 2, Name: "Animal Handling", AbilityScore: "wisdom"},
	{ID: 3, Name: "Arcana", AbilityScore: "intelligence"},
	{ID: 4, Name: "Athletics", AbilityScore: "strength"},
	{ID: 5, Name: "Deception", AbilityScore: "charisma"},
	{ID: 6, Name: "History", AbilityScore: "intelligence"},
	{ID: 7, Name: "Insight", AbilityScore: "wisdom"},
	{ID: 8, Name: "Intimidation", AbilityScore: "charisma"},
	{ID: 9, Name: "Investigation", AbilityScore: "intelligence"},
	{ID: 10, Name: "Medicine", AbilityScore: "wisdom"},
	{ID: 11, Name: "Nature", AbilityScore: "intelligence"},
	{ID: 12, Name: "Perception", AbilityScore: "wisdom"},
	{ID: 13, Name: "Performance", AbilityScore: "charisma"},
	{ID: 14, Name: "Persuasion", AbilityScore: "charisma"},
	{ID: 15, Name: "Religion", AbilityScore: "intelligence"},
	{ID: 16, Name: "Sleight of Hand", AbilityScore: "dexterity"},
	{ID: 17, Name: "Stealth", AbilityScore: "dexterity"},
	{ID: 18, Name: "Survival", AbilityScore: "wisdom"},
}
