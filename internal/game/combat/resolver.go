package combat

import "github.com/Muggle-mew/Urba/internal/game/rng"

// Chance and multiplier constants for attack resolution.
const (
	// dodgePerAgility is the dodge probability added per point of the
	// defender's agility.
	dodgePerAgility = 0.005
	// critBase is the flat critical hit probability before intuition.
	critBase = 0.10
	// critPerIntuition is the crit probability added per point of the
	// attacker's intuition.
	critPerIntuition = 0.005
	// critPerWill is the crit damage bonus per point of the attacker's will.
	critPerWill = 0.02
	// headMultiplier and legsMultiplier scale damage by target zone;
	// chest and stomach attacks deal base damage.
	headMultiplier = 2.0
	legsMultiplier = 0.5
)

// Result holds the outcome of one attack direction within a round.
//
// Invariant: at most one of Blocked and Dodged is true; Damage is 0 whenever
// either is true.
type Result struct {
	// Damage is the final integer damage dealt to the defender.
	Damage int
	// Crit is true when the critical roll succeeded. Never true on a
	// blocked or dodged attack: both short-circuit before the crit roll.
	Crit bool
	// Blocked is true when the defender's block set covered the attack zone.
	Blocked bool
	// Dodged is true when the defender's agility roll evaded the attack.
	Dodged bool
}

// Resolve computes one attack direction: attacker striking defender with the
// given declared moves. Pure and deterministic under a fixed source; a round
// always produces two independent resolutions, one per direction.
//
// Evaluation order is load-bearing:
//  1. Dodge roll (defender's agility) — short-circuits everything.
//  2. Block check (defender's block set vs attack zone) — short-circuits
//     the crit roll, so a block is never bypassed by a crit.
//  3. Crit roll, base damage (attacker's strength), zone multiplier, crit
//     multiplier, floored to an integer.
//
// Precondition: attacker and defender must be non-nil; attack and block must
// have passed Validate; src must be non-nil.
// Postcondition: Result.Damage >= 0.
func Resolve(attacker *Fighter, attack Move, defender *Fighter, block Move, src rng.Source) Result {
	dodgeChance := float64(defender.Attributes.Agility) * dodgePerAgility
	if src.Float64() < dodgeChance {
		return Result{Dodged: true}
	}

	if block.Blocks(attack.Attack) {
		return Result{Blocked: true}
	}

	critChance := critBase + float64(attacker.Attributes.Intuition)*critPerIntuition
	crit := src.Float64() < critChance

	damage := float64(attacker.Attributes.Strength)
	switch attack.Attack {
	case ZoneHead:
		damage *= headMultiplier
	case ZoneLegs:
		damage *= legsMultiplier
	}
	if crit {
		damage *= 1 + float64(attacker.Attributes.Will)*critPerWill
	}

	return Result{Damage: int(damage), Crit: crit}
}
