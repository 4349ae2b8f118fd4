package battle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/combat"
	"github.com/Muggle-mew/Urba/internal/game/rng"
)

var (
	// ErrSessionFull is returned when seating a third fighter.
	ErrSessionFull = errors.New("battle: session full")
	// ErrSessionNotActive is returned for operations against a session in
	// the wrong lifecycle state. Callers typically treat it as a benign
	// race with a just-completed round and log rather than surface it.
	ErrSessionNotActive = errors.New("battle: session not active")
	// ErrMoveAlreadySubmitted is returned when a participant resubmits a
	// move within the same round.
	ErrMoveAlreadySubmitted = errors.New("battle: move already submitted this round")
	// ErrNotAFighter is returned when the participant is not seated in the
	// session.
	ErrNotAFighter = errors.New("battle: participant not in this session")
)

// Session is the stateful aggregate tracking one battle from seating
// through settlement. It is owned exclusively by the Registry.
//
// All state transitions (Seat, Start, SubmitMove, Timeout) are serialized
// by the session's own mutex: "both fighters have moved" is a
// check-then-act race between two inbound submissions and the round timer,
// and must be decided atomically.
type Session struct {
	id string

	mu       sync.Mutex
	fighters []*combat.Fighter
	round    int
	status   Status
	deadline time.Time
	log      []string
	winnerID string
	timer    *RoundTimer

	roundDuration time.Duration
	src           rng.Source
	sink          EventSink
	settler       *Settler
	logger        *zap.Logger

	// onFinished is invoked exactly once, after the battle-end event, so
	// the registry can tear the session down. Set by the Registry.
	onFinished func(*Session)
}

// NewSession creates an empty session in the waiting state.
//
// Precondition: id must be non-empty; roundDuration > 0; src, sink,
// settler, and logger must be non-nil.
func NewSession(id string, roundDuration time.Duration, src rng.Source, sink EventSink, settler *Settler, logger *zap.Logger) *Session {
	return &Session{
		id:            id,
		status:        StatusWaiting,
		roundDuration: roundDuration,
		src:           src,
		sink:          sink,
		settler:       settler,
		logger:        logger,
	}
}

// ID returns the session's opaque unique identifier.
func (s *Session) ID() string { return s.id }

// Seat adds a fighter to the first open slot. Seating does not start the
// session; Start is triggered once both slots are filled.
//
// Postcondition: Returns ErrSessionNotActive if the session has left the
// waiting state, ErrSessionFull if both slots are occupied.
func (s *Session) Seat(f *combat.Fighter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return ErrSessionNotActive
	}
	if len(s.fighters) >= 2 {
		return ErrSessionFull
	}
	s.fighters = append(s.fighters, f)
	return nil
}

// Start transitions the session to in_progress, begins round 1, emits a
// full state snapshot, and arms the round timer.
//
// Precondition: exactly two fighters are seated.
// Postcondition: Returns ErrSessionNotActive if the session is not waiting.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return ErrSessionNotActive
	}
	if len(s.fighters) != 2 {
		return fmt.Errorf("battle: session %s needs two seated fighters to start, has %d", s.id, len(s.fighters))
	}

	s.status = StatusInProgress
	s.round = 1
	s.beginRoundLocked()
	return nil
}

// SubmitMove stores a participant's declared move for the current round.
// If the opponent is an NPC its move is generated immediately; once both
// fighters have a move the round resolves synchronously, otherwise a
// move-accepted notice (with no move content) is emitted.
//
// Postcondition: Returns combat.ErrInvalidMove for a malformed move with no
// state change; ErrSessionNotActive, ErrNotAFighter, or
// ErrMoveAlreadySubmitted as applicable.
func (s *Session) SubmitMove(participantID string, move combat.Move) error {
	if err := move.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return ErrSessionNotActive
	}
	f := s.fighterLocked(participantID)
	if f == nil {
		return ErrNotAFighter
	}
	if f.PendingMove != nil {
		return ErrMoveAlreadySubmitted
	}

	mv := move
	f.PendingMove = &mv

	opp := s.opponentLocked(f)
	if !opp.IsHuman() && opp.PendingMove == nil {
		bm := combat.RandomMove(s.src)
		opp.PendingMove = &bm
	}

	if opp.PendingMove != nil {
		s.resolveRoundLocked()
		return nil
	}
	s.sink.MoveAccepted(s.id, participantID)
	return nil
}

// Timeout is invoked by the round timer for a specific round. It is a
// no-op when the session has moved past forRound or is no longer in
// progress: timers are not cancelled when a round resolves early, so this
// stale guard is load-bearing. Otherwise every fighter still missing a
// move gets a generated one and the round resolves.
func (s *Session) Timeout(forRound int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress || s.round != forRound {
		s.logger.Debug("stale round timer ignored",
			zap.String("battle_id", s.id),
			zap.Int("timer_round", forRound),
			zap.Int("current_round", s.round),
		)
		return
	}

	for _, f := range s.fighters {
		if f.PendingMove == nil {
			m := combat.RandomMove(s.src)
			f.PendingMove = &m
			s.logger.Info("round deadline reached, move generated",
				zap.String("battle_id", s.id),
				zap.String("participant_id", f.ID),
				zap.Int("round", s.round),
			)
		}
	}
	s.resolveRoundLocked()
}

// Rebind reassigns a fighter's transient connection identity without
// touching any combat state. Returns the previous connection id so the
// registry can remap its reverse index.
func (s *Session) Rebind(participantID, newConnID string) (oldConnID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.fighterLocked(participantID)
	if f == nil {
		return "", ErrNotAFighter
	}
	oldConnID = f.ConnID
	f.ConnID = newConnID
	return oldConnID, nil
}

// ParticipantByConn resolves a connection identity to the stable
// participant identity of the fighter bound to it.
func (s *Session) ParticipantByConn(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fighters {
		if f.ConnID == connID {
			return f.ID, true
		}
	}
	return "", false
}

// Snapshot returns the session's current public state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the session's lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Round returns the current round number.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// WinnerID returns the winner's participant id, or "" before the session
// finishes and for a draw.
func (s *Session) WinnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winnerID
}

// beginRoundLocked computes the new round deadline, emits a state
// snapshot, and arms the round timer for exactly this round number.
// Caller must hold s.mu.
func (s *Session) beginRoundLocked() {
	s.deadline = time.Now().Add(s.roundDuration)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.sink.BattleState(s.id, s.snapshotLocked())
	s.timer = NewRoundTimer(s.round, s.roundDuration, s.Timeout)
}

// resolveRoundLocked resolves both attack directions against pre-round HP,
// applies damage simultaneously, appends the round log line, emits the
// round result, and either finishes the session or begins the next round.
// Caller must hold s.mu; both fighters must have a pending move.
func (s *Session) resolveRoundLocked() {
	a, b := s.fighters[0], s.fighters[1]
	moveA, moveB := *a.PendingMove, *b.PendingMove

	resA := combat.Resolve(a, moveA, b, moveB, s.src)
	resB := combat.Resolve(b, moveB, a, moveA, s.src)
	a.SetResult(resA)
	b.SetResult(resB)

	// Both directions resolved against pre-round state; damage lands on
	// both fighters at once.
	b.ApplyDamage(resA.Damage)
	a.ApplyDamage(resB.Damage)

	line := fmt.Sprintf("Round %d: %s. %s", s.round, describeAttack(a, b), describeAttack(b, a))
	s.log = append(s.log, line)

	report := RoundReport{
		Round:    s.round,
		Log:      line,
		Fighters: [2]FighterRound{roundView(a), roundView(b)},
	}

	a.ClearMove()
	b.ClearMove()

	s.sink.RoundResolved(s.id, report)

	if a.IsDead() || b.IsDead() {
		s.finishLocked()
		return
	}

	s.round++
	s.beginRoundLocked()
}

// finishLocked transitions to finished, determines the winner, emits the
// battle-end event, and hands persistence off to a separate goroutine so a
// slow character store cannot stall the engine. A simultaneous double KO
// is an explicit draw: no winner, no reward.
// Caller must hold s.mu.
func (s *Session) finishLocked() {
	s.status = StatusFinished
	if s.timer != nil {
		s.timer.Stop()
	}

	a, b := s.fighters[0], s.fighters[1]
	var winner, loser *combat.Fighter
	switch {
	case !a.IsDead() && b.IsDead():
		winner, loser = a, b
	case !b.IsDead() && a.IsDead():
		winner, loser = b, a
	}

	var reward Reward
	if winner != nil {
		s.winnerID = winner.ID
		reward = s.settler.RewardFor(loser)
	}

	s.logger.Info("battle finished",
		zap.String("battle_id", s.id),
		zap.String("winner_id", s.winnerID),
		zap.Int("rounds", s.round),
	)

	// The battle-end event is the last event emitted for this session.
	s.sink.BattleEnded(s.id, s.winnerID, reward)

	finals := make([]FinalState, 0, len(s.fighters))
	for _, f := range s.fighters {
		finals = append(finals, FinalState{
			ParticipantID: f.ID,
			Human:         f.IsHuman(),
			HP:            f.HP,
		})
	}
	winnerHuman := winner != nil && winner.IsHuman()
	go s.settler.Persist(s.id, s.winnerID, winnerHuman, reward, finals)

	if s.onFinished != nil {
		s.onFinished(s)
	}
}

// fighterLocked returns the seated fighter with the given participant id,
// or nil. Caller must hold s.mu.
func (s *Session) fighterLocked(participantID string) *combat.Fighter {
	for _, f := range s.fighters {
		if f.ID == participantID {
			return f
		}
	}
	return nil
}

// opponentLocked returns the other seated fighter. Caller must hold s.mu.
func (s *Session) opponentLocked(f *combat.Fighter) *combat.Fighter {
	if s.fighters[0] == f {
		return s.fighters[1]
	}
	return s.fighters[0]
}

// snapshotLocked builds the public state snapshot. Caller must hold s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Round:    s.round,
		Status:   s.status,
		Log:      append([]string(nil), s.log...),
		Deadline: s.deadline,
	}
	for i, f := range s.fighters {
		snap.Fighters[i] = FighterView{
			ID:         f.ID,
			ConnID:     f.ConnID,
			Name:       f.Name,
			Level:      f.Level,
			HP:         f.HP,
			MaxHP:      f.MaxHP,
			NPC:        !f.IsHuman(),
			Attributes: f.Attributes,
		}
	}
	return snap
}

// describeAttack composes the log fragment for one attack direction.
func describeAttack(attacker, defender *combat.Fighter) string {
	switch {
	case attacker.LastDodged:
		return fmt.Sprintf("%s dodged %s's attack", defender.Name, attacker.Name)
	case attacker.LastBlocked:
		return fmt.Sprintf("%s blocked %s's strike", defender.Name, attacker.Name)
	case attacker.LastCrit:
		return fmt.Sprintf("%s hit %s for %d damage (CRIT!)", attacker.Name, defender.Name, attacker.LastDamage)
	default:
		return fmt.Sprintf("%s hit %s for %d damage", attacker.Name, defender.Name, attacker.LastDamage)
	}
}

// roundView projects a fighter's side of a resolved round.
func roundView(f *combat.Fighter) FighterRound {
	return FighterRound{
		ID:      f.ID,
		HP:      f.HP,
		Damage:  f.LastDamage,
		Crit:    f.LastCrit,
		Blocked: f.LastBlocked,
		Dodged:  f.LastDodged,
	}
}
