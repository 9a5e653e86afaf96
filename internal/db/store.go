package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"friday/internal/nlu"
	"friday/internal/skills"
)

var (
	ErrExpressionExists   = errors.New("expression already taught")
	ErrExpressionNotFound = errors.New("expression not found")
)

// TaughtSkillName is the registration source of user-taught patterns.
const TaughtSkillName = "taught"

// Store persists phrase patterns and vocabulary users teach the assistant.
type Store struct {
	pool *pgxpool.Pool
}

type Expression struct {
	ID        string
	Intent    string
	Pattern   string
	CreatedAt time.Time
}

type EntityValue struct {
	Category string
	Value    string
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS taught_expressions (
			id TEXT PRIMARY KEY,
			intent TEXT NOT NULL,
			pattern TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (intent, pattern)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_taught_expressions_created ON taught_expressions(created_at);`,
		`CREATE TABLE IF NOT EXISTS taught_entities (
			category TEXT NOT NULL,
			value TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (category, value)
		);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// AddExpression stores pattern for intent after checking that it compiles.
func (s *Store) AddExpression(ctx context.Context, intent, pattern string) (Expression, error) {
	intent = strings.TrimSpace(intent)
	if err := nlu.ValidateIntent(intent); err != nil {
		return Expression{}, err
	}
	if _, err := nlu.Compile(pattern); err != nil {
		return Expression{}, err
	}

	out := Expression{ID: uuid.NewString(), Intent: intent, Pattern: pattern}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO taught_expressions (id, intent, pattern)
		VALUES ($1, $2, $3)
		ON CONFLICT (intent, pattern) DO NOTHING
		RETURNING created_at
	`, out.ID, out.Intent, out.Pattern).Scan(&out.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expression{}, fmt.Errorf("%w: %s %q", ErrExpressionExists, intent, pattern)
	}
	if err != nil {
		return Expression{}, err
	}
	return out, nil
}

// ListExpressions returns taught expressions oldest first, the order they
// are registered in.
func (s *Store) ListExpressions(ctx context.Context) ([]Expression, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, intent, pattern, created_at
		FROM taught_expressions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expression
	for rows.Next() {
		var e Expression
		if err := rows.Scan(&e.ID, &e.Intent, &e.Pattern, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteExpression(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM taught_expressions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrExpressionNotFound, id)
	}
	return nil
}

func (s *Store) AddEntityValue(ctx context.Context, category, value string) error {
	category = strings.TrimSpace(category)
	value = strings.TrimSpace(value)
	if category == "" || value == "" {
		return fmt.Errorf("entity category and value are required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO taught_entities (category, value)
		VALUES ($1, $2)
		ON CONFLICT (category, value) DO NOTHING
	`, category, value)
	return err
}

func (s *Store) ListEntityValues(ctx context.Context) ([]EntityValue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, value
		FROM taught_entities
		ORDER BY created_at ASC, category ASC, value ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EntityValue
	for rows.Next() {
		var v EntityValue
		if err := rows.Scan(&v.Category, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadTaughtSkill reads everything users taught into one skill.
func (s *Store) LoadTaughtSkill(ctx context.Context) (skills.Skill, error) {
	exprs, err := s.ListExpressions(ctx)
	if err != nil {
		return skills.Skill{}, fmt.Errorf("list taught expressions: %w", err)
	}
	values, err := s.ListEntityValues(ctx)
	if err != nil {
		return skills.Skill{}, fmt.Errorf("list taught entities: %w", err)
	}
	return TaughtSkill(exprs, values), nil
}

// TaughtSkill groups taught rows into a skill without handlers: its
// patterns extend intents other skills handle.
func TaughtSkill(exprs []Expression, values []EntityValue) skills.Skill {
	sk := skills.Skill{Name: TaughtSkillName}

	index := map[string]int{}
	for _, e := range exprs {
		i, ok := index[e.Intent]
		if !ok {
			i = len(sk.Intents)
			index[e.Intent] = i
			sk.Intents = append(sk.Intents, skills.IntentSpec{Intent: e.Intent})
		}
		sk.Intents[i].Patterns = append(sk.Intents[i].Patterns, e.Pattern)
	}

	cats := map[string]int{}
	for _, v := range values {
		i, ok := cats[v.Category]
		if !ok {
			i = len(sk.Entities)
			cats[v.Category] = i
			sk.Entities = append(sk.Entities, nlu.Category{Name: v.Category})
		}
		sk.Entities[i].Values = append(sk.Entities[i].Values, v.Value)
	}
	return sk
}
