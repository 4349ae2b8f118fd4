// Package character defines the persistent player character model.
package character

import (
	"time"

	"github.com/Muggle-mew/Urba/internal/game/combat"
)

// Character is a player character as stored in the characters table.
type Character struct {
	ID       string
	Nickname string
	Level    int
	Exp      int
	Money    int
	// HP is the character's persisted hit points; battles start from this
	// value, not from MaxHP.
	HP         int
	MaxHP      int
	Attributes combat.Attributes
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Fighter projects the character into a battle participant bound to the
// given connection identity.
//
// Postcondition: Returns a human fighter carrying the character's persisted
// HP, which may be below MaxHP.
func (c *Character) Fighter(connID string) *combat.Fighter {
	return &combat.Fighter{
		ID:         c.ID,
		ConnID:     connID,
		Kind:       combat.KindHuman,
		Name:       c.Nickname,
		Level:      c.Level,
		HP:         c.HP,
		MaxHP:      c.MaxHP,
		Attributes: c.Attributes,
	}
}
