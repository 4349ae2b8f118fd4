package combat

import "github.com/Muggle-mew/Urba/internal/game/rng"

// RandomMove produces a legal random move: a uniformly chosen attack zone
// and two distinct block zones taken from a shuffle of all four.
//
// Used for the NPC side of a PvE battle on every round, and for filling in
// for any fighter that has not submitted a move by the round deadline.
//
// Precondition: src must be non-nil.
// Postcondition: the returned move passes Validate.
func RandomMove(src rng.Source) Move {
	attack := Zones[src.Intn(len(Zones))]

	shuffled := Zones
	for i := len(shuffled) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return Move{
		Attack: attack,
		Block:  [2]Zone{shuffled[0], shuffled[1]},
	}
}
