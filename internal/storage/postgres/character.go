package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Muggle-mew/Urba/internal/game/character"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create inserts a new character and returns it with ID and timestamps set.
//
// Precondition: c.Nickname must be non-empty; c.MaxHP must be >= 1.
// Postcondition: Returns the created character with a generated ID.
func (r *CharacterRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	var out character.Character
	err := r.db.QueryRow(ctx, `
		INSERT INTO characters
			(nickname, level, exp, money, hp, max_hp,
			 strength, agility, intuition, will, constitution)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, nickname, level, exp, money, hp, max_hp,
		          strength, agility, intuition, will, constitution,
		          created_at, updated_at`,
		c.Nickname, c.Level, c.Exp, c.Money, c.HP, c.MaxHP,
		c.Attributes.Strength, c.Attributes.Agility, c.Attributes.Intuition,
		c.Attributes.Will, c.Attributes.Constitution,
	).Scan(
		&out.ID, &out.Nickname, &out.Level, &out.Exp, &out.Money, &out.HP, &out.MaxHP,
		&out.Attributes.Strength, &out.Attributes.Agility, &out.Attributes.Intuition,
		&out.Attributes.Will, &out.Attributes.Constitution,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a character by its primary key.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the Character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id string) (*character.Character, error) {
	var c character.Character
	err := r.db.QueryRow(ctx, `
		SELECT id, nickname, level, exp, money, hp, max_hp,
		       strength, agility, intuition, will, constitution,
		       created_at, updated_at
		FROM characters WHERE id = $1`,
		id,
	).Scan(
		&c.ID, &c.Nickname, &c.Level, &c.Exp, &c.Money, &c.HP, &c.MaxHP,
		&c.Attributes.Strength, &c.Attributes.Agility, &c.Attributes.Intuition,
		&c.Attributes.Will, &c.Attributes.Constitution,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return &c, nil
}

// UpdateHP persists a character's hit points after a battle.
//
// Precondition: id must be non-empty; hp must be >= 0.
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row updated.
func (r *CharacterRepository) UpdateHP(ctx context.Context, id string, hp int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET hp = $2, updated_at = NOW()
		WHERE id = $1`,
		id, hp,
	)
	if err != nil {
		return fmt.Errorf("updating character hp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// GrantReward atomically increments a character's experience and currency.
//
// Precondition: id must be non-empty; exp and money must be >= 0.
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row updated.
func (r *CharacterRepository) GrantReward(ctx context.Context, id string, exp, money int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE characters SET exp = exp + $2, money = money + $3, updated_at = NOW()
		WHERE id = $1`,
		id, exp, money,
	)
	if err != nil {
		return fmt.Errorf("granting character reward: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
