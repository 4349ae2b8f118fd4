package combat

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/Muggle-mew/Urba/internal/game/rng"
)

func TestRandomMove_AlwaysLegal(t *testing.T) {
	src := rng.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		m := RandomMove(src)
		if err := m.Validate(); err != nil {
			t.Fatalf("generated illegal move %+v: %v", m, err)
		}
	}
}

func TestRandomMove_CoversAllAttackZones(t *testing.T) {
	src := rng.NewCryptoSource()
	seen := make(map[Zone]bool)
	for i := 0; i < 1000; i++ {
		seen[RandomMove(src).Attack] = true
	}
	for _, z := range Zones {
		if !seen[z] {
			t.Errorf("attack zone %q never generated in 1000 draws", z)
		}
	}
}

// TestProperty_RandomMoveBlocksDistinct asserts block zones are distinct for
// any scripted shuffle choices.
func TestProperty_RandomMoveBlocksDistinct(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := &scriptSrc{ints: []int{
			rapid.IntRange(0, 3).Draw(rt, "attack"),
			rapid.IntRange(0, 3).Draw(rt, "swap3"),
			rapid.IntRange(0, 2).Draw(rt, "swap2"),
			rapid.IntRange(0, 1).Draw(rt, "swap1"),
		}}
		m := RandomMove(src)
		if m.Block[0] == m.Block[1] {
			rt.Errorf("block zones must be distinct, got %+v", m)
		}
		if err := m.Validate(); err != nil {
			rt.Errorf("generated illegal move %+v: %v", m, err)
		}
	})
}
