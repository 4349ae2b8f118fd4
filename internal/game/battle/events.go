// Package battle implements the stateful battle engine: sessions, the
// process-wide session registry, round deadline timers, and end-of-battle
// reward settlement.
package battle

import (
	"time"

	"github.com/Muggle-mew/Urba/internal/game/combat"
)

// Status is the battle session lifecycle state. Transitions are strictly
// forward: waiting → in_progress → finished.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// FighterView is the public projection of a fighter carried in state
// snapshots. It never includes the pending move: the opponent's declared
// zones stay secret until the round resolves.
type FighterView struct {
	ID         string
	ConnID     string
	Name       string
	Level      int
	HP         int
	MaxHP      int
	NPC        bool
	Attributes combat.Attributes
}

// Snapshot is the full session state emitted on start, after every resolved
// round, and to a reconnecting participant.
type Snapshot struct {
	ID       string
	Fighters [2]FighterView
	Round    int
	Status   Status
	Log      []string
	Deadline time.Time
}

// FighterRound describes one fighter's side of a resolved round: its
// post-round HP and the attack it dealt.
type FighterRound struct {
	ID      string
	HP      int
	Damage  int
	Crit    bool
	Blocked bool
	Dodged  bool
}

// RoundReport is the outcome of one resolved round.
type RoundReport struct {
	Round    int
	Log      string
	Fighters [2]FighterRound
}

// EventSink receives the engine's outward notifications. Implementations
// fan them out to the session's participants and observers; the engine
// guarantees ordering per session: the round result for round N precedes
// the snapshot for round N+1, and the battle-end event is always last.
type EventSink interface {
	// BattleState delivers a full state snapshot.
	BattleState(battleID string, s Snapshot)
	// MoveAccepted signals that a participant has moved, without revealing
	// the move, while the round is not yet resolvable.
	MoveAccepted(battleID, participantID string)
	// RoundResolved delivers the outcome of one round.
	RoundResolved(battleID string, r RoundReport)
	// BattleEnded delivers the winner (empty for a draw) and the reward.
	BattleEnded(battleID, winnerID string, reward Reward)
}
