package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Muggle-mew/Urba/internal/game/monster"
)

// ErrMonsterNotFound is returned when a monster template lookup yields no
// results.
var ErrMonsterNotFound = errors.New("monster not found")

// MonsterRepository provides monster template persistence. It serves the
// same lookup surface as the YAML-backed catalog, so deployments can load
// templates from either source.
type MonsterRepository struct {
	db *pgxpool.Pool
}

// NewMonsterRepository creates a MonsterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewMonsterRepository(db *pgxpool.Pool) *MonsterRepository {
	return &MonsterRepository{db: db}
}

// Upsert inserts or replaces a monster template row.
//
// Precondition: tmpl must pass Validate.
func (r *MonsterRepository) Upsert(ctx context.Context, tmpl *monster.Template) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO monsters
			(id, name, zone, level, max_hp,
			 strength, agility, intuition, will, constitution,
			 exp_reward, money_reward, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, zone = EXCLUDED.zone, level = EXCLUDED.level,
			max_hp = EXCLUDED.max_hp,
			strength = EXCLUDED.strength, agility = EXCLUDED.agility,
			intuition = EXCLUDED.intuition, will = EXCLUDED.will,
			constitution = EXCLUDED.constitution,
			exp_reward = EXCLUDED.exp_reward, money_reward = EXCLUDED.money_reward,
			image = EXCLUDED.image`,
		tmpl.ID, tmpl.Name, tmpl.ZoneID, tmpl.Level, tmpl.MaxHP,
		tmpl.Attributes.Strength, tmpl.Attributes.Agility, tmpl.Attributes.Intuition,
		tmpl.Attributes.Will, tmpl.Attributes.Constitution,
		tmpl.ExpReward, tmpl.MoneyReward, tmpl.Image,
	)
	if err != nil {
		return fmt.Errorf("upserting monster: %w", err)
	}
	return nil
}

// GetByID retrieves a monster template by its id.
//
// Precondition: id must be non-empty.
// Postcondition: Returns the Template or ErrMonsterNotFound.
func (r *MonsterRepository) GetByID(ctx context.Context, id string) (*monster.Template, error) {
	var tmpl monster.Template
	err := r.db.QueryRow(ctx, `
		SELECT id, name, zone, level, max_hp,
		       strength, agility, intuition, will, constitution,
		       exp_reward, money_reward, image
		FROM monsters WHERE id = $1`,
		id,
	).Scan(
		&tmpl.ID, &tmpl.Name, &tmpl.ZoneID, &tmpl.Level, &tmpl.MaxHP,
		&tmpl.Attributes.Strength, &tmpl.Attributes.Agility, &tmpl.Attributes.Intuition,
		&tmpl.Attributes.Will, &tmpl.Attributes.Constitution,
		&tmpl.ExpReward, &tmpl.MoneyReward, &tmpl.Image,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMonsterNotFound
		}
		return nil, fmt.Errorf("querying monster: %w", err)
	}
	return &tmpl, nil
}

// ListByZone returns all monster templates in a zone, ordered by level.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *MonsterRepository) ListByZone(ctx context.Context, zoneID string) ([]*monster.Template, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, zone, level, max_hp,
		       strength, agility, intuition, will, constitution,
		       exp_reward, money_reward, image
		FROM monsters WHERE zone = $1 ORDER BY level ASC, id ASC`,
		zoneID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing monsters: %w", err)
	}
	defer rows.Close()

	out := make([]*monster.Template, 0)
	for rows.Next() {
		var tmpl monster.Template
		if err := rows.Scan(
			&tmpl.ID, &tmpl.Name, &tmpl.ZoneID, &tmpl.Level, &tmpl.MaxHP,
			&tmpl.Attributes.Strength, &tmpl.Attributes.Agility, &tmpl.Attributes.Intuition,
			&tmpl.Attributes.Will, &tmpl.Attributes.Constitution,
			&tmpl.ExpReward, &tmpl.MoneyReward, &tmpl.Image,
		); err != nil {
			return nil, fmt.Errorf("scanning monster row: %w", err)
		}
		out = append(out, &tmpl)
	}
	return out, rows.Err()
}
