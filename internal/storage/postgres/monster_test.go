package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Muggle-mew/Urba/internal/game/monster"
	"github.com/Muggle-mew/Urba/internal/storage/postgres"
	"github.com/Muggle-mew/Urba/internal/testutil"
)

func makeTestMonster(id, zone string, level int) *monster.Template {
	return &monster.Template{
		ID:     id,
		Name:   "Test " + id,
		ZoneID: zone,
		Level:  level,
		MaxHP:  60,
		Attributes: monster.Attributes{
			Strength:     6,
			Agility:      5,
			Intuition:    4,
			Will:         5,
			Constitution: 5,
		},
		ExpReward:   25,
		MoneyReward: 12,
	}
}

func TestMonsterRepository_UpsertAndGet(t *testing.T) {
	repo := postgres.NewMonsterRepository(testutil.NewPool(t))
	ctx := context.Background()

	tmpl := makeTestMonster("rustjaw", "z1", 3)
	require.NoError(t, repo.Upsert(ctx, tmpl))

	got, err := repo.GetByID(ctx, "rustjaw")
	require.NoError(t, err)
	assert.Equal(t, tmpl.Name, got.Name)
	assert.Equal(t, tmpl.Attributes, got.Attributes)
	assert.Equal(t, 25, got.ExpReward)

	// Upsert replaces.
	tmpl.MaxHP = 80
	require.NoError(t, repo.Upsert(ctx, tmpl))
	got, err = repo.GetByID(ctx, "rustjaw")
	require.NoError(t, err)
	assert.Equal(t, 80, got.MaxHP)
}

func TestMonsterRepository_GetByIDNotFound(t *testing.T) {
	repo := postgres.NewMonsterRepository(testutil.NewPool(t))

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, postgres.ErrMonsterNotFound)
}

func TestMonsterRepository_ListByZone(t *testing.T) {
	repo := postgres.NewMonsterRepository(testutil.NewPool(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, makeTestMonster("b-high", "z1", 5)))
	require.NoError(t, repo.Upsert(ctx, makeTestMonster("a-low", "z1", 2)))
	require.NoError(t, repo.Upsert(ctx, makeTestMonster("elsewhere", "z2", 3)))

	got, err := repo.ListByZone(ctx, "z1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a-low", got[0].ID, "ordered by level ascending")
	assert.Equal(t, "b-high", got[1].ID)

	empty, err := repo.ListByZone(ctx, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
