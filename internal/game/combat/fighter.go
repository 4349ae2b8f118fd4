package combat

// Kind distinguishes human fighters from NPC fighters. Persistence and
// reward logic branch on this tag; identifiers are never parsed to infer it.
type Kind int

const (
	KindHuman Kind = iota
	KindNPC
)

// Attributes holds the five combat-relevant ability scores.
// Strength drives damage, agility dodge, intuition crit chance, will crit
// magnitude; constitution is carried for character-sheet completeness.
type Attributes struct {
	Strength     int
	Agility      int
	Intuition    int
	Will         int
	Constitution int
}

// Fighter represents one participant in a battle session — a human character
// or a monster instance.
type Fighter struct {
	// ID is the stable participant identity: the character id for a human,
	// a synthesized instance id for an NPC. Reward and persistence logic
	// key on ID, never on ConnID.
	ID string
	// ConnID is the transient connection identity. It is reassigned on
	// reconnect and carries no meaning beyond event routing.
	ConnID string
	Kind   Kind
	Name   string
	Level  int
	// HP is clamped to [0, MaxHP] after every round.
	HP         int
	MaxHP      int
	Attributes Attributes
	// TemplateID is the source monster template id. NPC fighters only.
	TemplateID string
	// ExpReward and MoneyReward are the (level-scaled) rewards granted to a
	// human opponent that defeats this fighter. NPC fighters only.
	ExpReward   int
	MoneyReward int

	// PendingMove is this round's declared move; cleared on every resolution.
	PendingMove *Move

	// Per-round transient result fields, overwritten each resolution. They
	// describe the attack this fighter dealt, not the one it received.
	LastDamage  int
	LastCrit    bool
	LastBlocked bool
	LastDodged  bool
}

// IsHuman reports whether this fighter is a human participant.
func (f *Fighter) IsHuman() bool { return f.Kind == KindHuman }

// IsDead reports whether this fighter has been reduced to zero hit points.
// Reaching zero is terminal for the session containing the fighter.
func (f *Fighter) IsDead() bool { return f.HP <= 0 }

// ApplyDamage reduces HP by amount, flooring at zero.
//
// Precondition: amount must be >= 0.
// Postcondition: HP >= 0.
func (f *Fighter) ApplyDamage(amount int) {
	f.HP -= amount
	if f.HP < 0 {
		f.HP = 0
	}
}

// SetResult records the outcome of this fighter's attack for the round.
func (f *Fighter) SetResult(r Result) {
	f.LastDamage = r.Damage
	f.LastCrit = r.Crit
	f.LastBlocked = r.Blocked
	f.LastDodged = r.Dodged
}

// ClearMove discards the pending move at the end of a round.
func (f *Fighter) ClearMove() {
	f.PendingMove = nil
}
