package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Luffy852/dnd5e-character-manager/pkg/models"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore handles users, characters and skills against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects a pool, pings it and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Migrate creates the tables if they don't exist and seeds the skills.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      VARCHAR(50)  NOT NULL,
			email         VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique_idx ON users (email)`,
		`CREATE TABLE IF NOT EXISTS skills (
			id            BIGINT PRIMARY KEY,
			name          TEXT UNIQUE NOT NULL,
			ability_score TEXT NOT NULL CHECK (ability_score IN
				('strength', 'dexterity', 'constitution', 'intelligence', 'wisdom', 'charisma'))
		)`,
		`CREATE TABLE IF NOT EXISTS characters (
			id               BIGSERIAL PRIMARY KEY,
			user_id          BIGINT  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name             TEXT    NOT NULL DEFAULT '',
			race             TEXT    NOT NULL DEFAULT '',
			"class"          TEXT    NOT NULL DEFAULT '',
			level            INTEGER NOT NULL DEFAULT 1,
			background       TEXT    NOT NULL DEFAULT '',
			alignment        TEXT    NOT NULL DEFAULT '',
			experience       INTEGER NOT NULL DEFAULT 0,
			strength         INTEGER NOT NULL DEFAULT 10,
			dexterity        INTEGER NOT NULL DEFAULT 10,
			constitution     INTEGER NOT NULL DEFAULT 10,
			intelligence     INTEGER NOT NULL DEFAULT 10,
			wisdom           INTEGER NOT NULL DEFAULT 10,
			charisma         INTEGER NOT NULL DEFAULT 10,
			hit_points       INTEGER NOT NULL DEFAULT 0,
			hit_dice         TEXT    NOT NULL DEFAULT '',
			armor_class      INTEGER NOT NULL DEFAULT 10,
			speed            INTEGER NOT NULL DEFAULT 30,
			skills           TEXT    NOT NULL DEFAULT '[]',
			features         TEXT    NOT NULL DEFAULT '',
			equipment        TEXT    NOT NULL DEFAULT '',
			background_story TEXT    NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS characters_user_id_idx ON characters (user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	if err := checkSkills(DefaultSkills); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, sk := range DefaultSkills {
		batch.Queue(`INSERT INTO skills (id, name, ability_score) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			sk.ID, sk.Name, sk.AbilityScore)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed skills: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return models.User{}, ErrAlreadyExists
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) CreateCharacter(ctx context.Context, c models.Character) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO characters (
			user_id, name, race, "class", level, background, alignment, experience,
			strength, dexterity, constitution, intelligence, wisdom, charisma,
			hit_points, hit_dice, armor_class, speed, skills, features, equipment, background_story
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id`,
		characterArgs(c)...,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create character: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetCharacter(ctx context.Context, id int64) (models.Character, error) {
	c, err := scanPgCharacter(s.pool.QueryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Character{}, ErrNotFound
		}
		return models.Character{}, fmt.Errorf("get character: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCharactersByUser(ctx context.Context, userID int64) ([]models.Character, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+characterColumns+` FROM characters WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	out := []models.Character{}
	for rows.Next() {
		c, err := scanPgCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateCharacter(ctx context.Context, c models.Character) error {
	args := append(characterArgs(c)[1:], c.ID)
	tag, err := s.pool.Exec(ctx,
		`UPDATE characters
		 SET name = $1, race = $2, "class" = $3, level = $4, background = $5, alignment = $6,
		     experience = $7, strength = $8, dexterity = $9, constitution = $10, intelligence = $11,
		     wisdom = $12, charisma = $13, hit_points = $14, hit_dice = $15, armor_class = $16,
		     speed = $17, skills = $18, features = $19, equipment = $20, background_story = $21,
		     updated_at = NOW()
		 WHERE id = $22`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteCharacter(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSkills(ctx context.Context) ([]models.Skill, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, ability_score FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()

	out := []models.Skill{}
	for rows.Next() {
		var sk models.Skill
		if err := rows.Scan(&sk.ID, &sk.Name, &sk.AbilityScore); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func scanPgCharacter(row rowScanner) (models.Character, error) {
	var c models.Character
	dest := append(characterFields(&c), &c.CreatedAt, &c.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return models.Character{}, err
	}
	return c, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
