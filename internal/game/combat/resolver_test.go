package combat

import (
	"testing"

	"pgregory.net/rapid"
)

// scriptSrc replays scripted Float64 rolls in order; once exhausted it keeps
// returning the last value. Intn cycles through scripted ints the same way.
type scriptSrc struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (s *scriptSrc) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.99
	}
	v := s.floats[s.fi]
	if s.fi < len(s.floats)-1 {
		s.fi++
	}
	return v
}

func (s *scriptSrc) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[s.ii]
	if s.ii < len(s.ints)-1 {
		s.ii++
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// neverSrc rolls high on every chance check: no dodge (below certainty), no crit.
func neverSrc() *scriptSrc { return &scriptSrc{floats: []float64{0.99}} }

func makeFighter(id string, attrs Attributes) *Fighter {
	return &Fighter{
		ID:         id,
		Kind:       KindHuman,
		Name:       id,
		Level:      1,
		HP:         100,
		MaxHP:      100,
		Attributes: attrs,
	}
}

func TestResolve_HeadHitDoublesDamage(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 20})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneHead, Block: [2]Zone{ZoneChest, ZoneLegs}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneChest, ZoneLegs}}

	r := Resolve(attacker, attack, defender, block, neverSrc())

	if r.Damage != 40 {
		t.Errorf("expected damage 40 (20*2.0), got %d", r.Damage)
	}
	if r.Crit || r.Blocked || r.Dodged {
		t.Errorf("expected clean hit, got %+v", r)
	}
}

func TestResolve_LegsHitHalvesDamage(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 20})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneLegs, Block: [2]Zone{ZoneChest, ZoneStomach}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneChest, ZoneStomach}}

	r := Resolve(attacker, attack, defender, block, neverSrc())

	if r.Damage != 10 {
		t.Errorf("expected damage 10 (20*0.5), got %d", r.Damage)
	}
}

func TestResolve_FractionalDamageFloored(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 7})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneLegs, Block: [2]Zone{ZoneChest, ZoneStomach}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneChest, ZoneStomach}}

	r := Resolve(attacker, attack, defender, block, neverSrc())

	if r.Damage != 3 {
		t.Errorf("expected damage 3 (floor(7*0.5)), got %d", r.Damage)
	}
}

func TestResolve_BlockedAttackDealsZero(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 50})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneHead, Block: [2]Zone{ZoneChest, ZoneLegs}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneChest}}

	r := Resolve(attacker, attack, defender, block, neverSrc())

	if !r.Blocked {
		t.Error("expected Blocked=true")
	}
	if r.Damage != 0 {
		t.Errorf("blocked attack must deal 0 damage, got %d", r.Damage)
	}
	if r.Crit {
		t.Error("crit must not be rolled on a blocked attack")
	}
}

func TestResolve_DodgeBeatsBlock(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 50})
	// 200 agility → dodge chance 1.0: any roll below certainty dodges.
	defender := makeFighter("b", Attributes{Agility: 200})
	attack := Move{Attack: ZoneHead, Block: [2]Zone{ZoneChest, ZoneLegs}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneChest}}

	r := Resolve(attacker, attack, defender, block, &scriptSrc{floats: []float64{0.5}})

	if !r.Dodged {
		t.Error("expected Dodged=true")
	}
	if r.Blocked {
		t.Error("dodge must short-circuit the block check")
	}
	if r.Damage != 0 {
		t.Errorf("dodged attack must deal 0 damage, got %d", r.Damage)
	}
}

func TestResolve_CritMultipliesByWill(t *testing.T) {
	attacker := makeFighter("a", Attributes{Strength: 10, Will: 25})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneLegs}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneLegs}}

	// First roll: dodge (0.99, no dodge at 0 agility). Second roll: crit
	// (0.05 < 0.10 base chance).
	src := &scriptSrc{floats: []float64{0.99, 0.05}}
	r := Resolve(attacker, attack, defender, block, src)

	if !r.Crit {
		t.Fatal("expected Crit=true")
	}
	// 10 * (1 + 25*0.02) = 15
	if r.Damage != 15 {
		t.Errorf("expected damage 15, got %d", r.Damage)
	}
}

func TestResolve_IntuitionRaisesCritChance(t *testing.T) {
	// 40 intuition → crit chance 0.10 + 0.20 = 0.30; a 0.25 roll crits.
	attacker := makeFighter("a", Attributes{Strength: 10, Intuition: 40})
	defender := makeFighter("b", Attributes{})
	attack := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneLegs}}
	block := Move{Attack: ZoneChest, Block: [2]Zone{ZoneHead, ZoneLegs}}

	src := &scriptSrc{floats: []float64{0.99, 0.25}}
	r := Resolve(attacker, attack, defender, block, src)

	if !r.Crit {
		t.Error("expected 0.25 roll to crit at 30% chance")
	}
}

// TestProperty_DamageNeverNegative asserts damage >= 0 and that dodge and
// block are mutually exclusive for any stats, zones, and rolls.
func TestProperty_DamageNeverNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attacker := makeFighter("a", Attributes{
			Strength:  rapid.IntRange(0, 500).Draw(rt, "strength"),
			Intuition: rapid.IntRange(0, 200).Draw(rt, "intuition"),
			Will:      rapid.IntRange(0, 200).Draw(rt, "will"),
		})
		defender := makeFighter("b", Attributes{
			Agility: rapid.IntRange(0, 300).Draw(rt, "agility"),
		})
		atkZone := Zones[rapid.IntRange(0, 3).Draw(rt, "atkZone")]
		blockA := rapid.IntRange(0, 3).Draw(rt, "blockA")
		blockB := (blockA + rapid.IntRange(1, 3).Draw(rt, "blockOffset")) % 4

		attack := Move{Attack: atkZone, Block: [2]Zone{ZoneHead, ZoneChest}}
		block := Move{Attack: ZoneChest, Block: [2]Zone{Zones[blockA], Zones[blockB]}}

		src := &scriptSrc{floats: []float64{
			rapid.Float64Range(0, 0.999).Draw(rt, "dodgeRoll"),
			rapid.Float64Range(0, 0.999).Draw(rt, "critRoll"),
		}}
		r := Resolve(attacker, attack, defender, block, src)

		if r.Damage < 0 {
			rt.Errorf("damage must never be negative, got %d", r.Damage)
		}
		if r.Blocked && r.Dodged {
			rt.Error("blocked and dodged are mutually exclusive")
		}
		if (r.Blocked || r.Dodged) && r.Damage != 0 {
			rt.Errorf("blocked/dodged attack must deal 0, got %d", r.Damage)
		}
		if (r.Blocked || r.Dodged) && r.Crit {
			rt.Error("crit must not be set on a blocked or dodged attack")
		}
	})
}
