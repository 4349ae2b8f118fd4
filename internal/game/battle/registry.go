package battle

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/combat"
	"github.com/Muggle-mew/Urba/internal/game/rng"
)

// ErrSessionNotFound is returned when no live session matches the lookup.
var ErrSessionNotFound = errors.New("battle: session not found")

// ErrAlreadyInBattle is returned when a participant already holds a seat in
// a live session.
var ErrAlreadyInBattle = errors.New("battle: participant already in a battle")

// Registry owns every live battle session in the process and the lookup
// indexes over them. Participant ids map to at most one live session, so a
// fighter can never be seated in two battles at once.
//
// Registry methods never call into a session while holding the registry
// lock; teardown callbacks from inside a session therefore cannot
// deadlock.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	byParticipant map[string]string
	byConn        map[string]string

	roundDuration time.Duration
	src           rng.Source
	sink          EventSink
	settler       *Settler
	logger        *zap.Logger
}

// NewRegistry creates an empty session registry.
//
// Precondition: roundDuration > 0; src, sink, settler, and logger must be
// non-nil.
func NewRegistry(roundDuration time.Duration, src rng.Source, sink EventSink, settler *Settler, logger *zap.Logger) *Registry {
	return &Registry{
		sessions:      make(map[string]*Session),
		byParticipant: make(map[string]string),
		byConn:        make(map[string]string),
		roundDuration: roundDuration,
		src:           src,
		sink:          sink,
		settler:       settler,
		logger:        logger,
	}
}

// CreateAndStartPvE creates a session for a human fighter against an NPC,
// seats both, and starts it. subscribe is called with the new battle id
// after the session is registered but before the opening snapshot is
// emitted, so the caller can route events before any are produced.
//
// Postcondition: On success the human is indexed by participant and
// connection id; the NPC is not indexed. If the human already holds a seat
// in a live session, that session is returned with ErrAlreadyInBattle and
// nothing is created.
func (r *Registry) CreateAndStartPvE(human, npc *combat.Fighter, subscribe func(battleID string)) (*Session, error) {
	id := uuid.NewString()
	s := NewSession(id, r.roundDuration, r.src, r.sink, r.settler, r.logger)
	s.onFinished = r.teardown

	if err := s.Seat(human); err != nil {
		return nil, err
	}
	if err := s.Seat(npc); err != nil {
		return nil, err
	}

	// The participant claim and the session registration are one critical
	// section: two racing starts for the same human cannot both pass.
	r.mu.Lock()
	if liveID, ok := r.byParticipant[human.ID]; ok {
		live := r.sessions[liveID]
		r.mu.Unlock()
		return live, ErrAlreadyInBattle
	}
	r.sessions[id] = s
	r.byParticipant[human.ID] = id
	if human.ConnID != "" {
		r.byConn[human.ConnID] = id
	}
	r.mu.Unlock()

	if subscribe != nil {
		subscribe(id)
	}

	if err := s.Start(); err != nil {
		r.Remove(s)
		return nil, err
	}

	r.logger.Info("battle started",
		zap.String("battle_id", id),
		zap.String("participant_id", human.ID),
		zap.String("opponent_id", npc.ID),
	)
	return s, nil
}

// FindByParticipant returns the live session a participant is seated in.
//
// Postcondition: Returns ErrSessionNotFound if the participant has no live
// session.
func (r *Registry) FindByParticipant(participantID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byParticipant[participantID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.sessions[id], nil
}

// FindByConn returns the live session bound to a connection identity.
//
// Postcondition: Returns ErrSessionNotFound if the connection has no live
// session.
func (r *Registry) FindByConn(connID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byConn[connID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.sessions[id], nil
}

// Reconnect rebinds a seated participant to a new connection identity and
// updates the connection index. Combat state is untouched.
func (r *Registry) Reconnect(s *Session, participantID, newConnID string) error {
	oldConnID, err := s.Rebind(participantID, newConnID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if oldConnID != "" {
		delete(r.byConn, oldConnID)
	}
	if newConnID != "" {
		r.byConn[newConnID] = s.ID()
	}
	r.mu.Unlock()

	r.logger.Info("participant reconnected to battle",
		zap.String("battle_id", s.ID()),
		zap.String("participant_id", participantID),
	)
	return nil
}

// Remove drops a session and all index entries pointing at it. Idempotent.
func (r *Registry) Remove(s *Session) {
	id := s.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	for pid, sid := range r.byParticipant {
		if sid == id {
			delete(r.byParticipant, pid)
		}
	}
	for cid, sid := range r.byConn {
		if sid == id {
			delete(r.byConn, cid)
		}
	}
}

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// teardown is the session finish hook: a finished session leaves the
// registry immediately so its participants can start new battles.
func (r *Registry) teardown(s *Session) {
	r.Remove(s)
	r.logger.Debug("battle session removed", zap.String("battle_id", s.ID()))
}
