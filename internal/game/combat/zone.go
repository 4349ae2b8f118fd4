// Package combat implements the pure combat core for Urba battles: body
// zones, move declarations, fighters, and single-direction attack resolution.
package combat

import "errors"

// ErrInvalidMove is returned when a move declaration violates the
// one-attack/two-distinct-blocks shape.
var ErrInvalidMove = errors.New("combat: invalid move")

// Zone is one of the four body regions used both as an attack target and as
// a block selection.
type Zone string

const (
	ZoneHead    Zone = "head"
	ZoneChest   Zone = "chest"
	ZoneStomach Zone = "stomach"
	ZoneLegs    Zone = "legs"
)

// Zones lists all four zones in canonical order.
var Zones = [4]Zone{ZoneHead, ZoneChest, ZoneStomach, ZoneLegs}

// Valid reports whether z is one of the four body zones.
func (z Zone) Valid() bool {
	switch z {
	case ZoneHead, ZoneChest, ZoneStomach, ZoneLegs:
		return true
	}
	return false
}

// Move is one fighter's declared action for a round: exactly one attack zone
// and exactly two distinct block zones. Block order is irrelevant.
type Move struct {
	Attack Zone
	Block  [2]Zone
}

// Validate checks the move shape at the boundary.
//
// Postcondition: Returns nil iff Attack is a valid zone and Block holds two
// distinct valid zones; returns ErrInvalidMove otherwise.
func (m Move) Validate() error {
	if !m.Attack.Valid() {
		return ErrInvalidMove
	}
	if !m.Block[0].Valid() || !m.Block[1].Valid() {
		return ErrInvalidMove
	}
	if m.Block[0] == m.Block[1] {
		return ErrInvalidMove
	}
	return nil
}

// Blocks reports whether the move's block set covers the given zone.
func (m Move) Blocks(z Zone) bool {
	return m.Block[0] == z || m.Block[1] == z
}
