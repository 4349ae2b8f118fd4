package battle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/combat"
)

// Reward is the experience and currency granted to a winning human
// participant.
type Reward struct {
	Exp   int
	Money int
}

// CharacterStore is the subset of the external character store used by
// settlement. NPC fighters are never written through it.
type CharacterStore interface {
	// UpdateHP writes a character's post-battle hit points.
	UpdateHP(ctx context.Context, characterID string, hp int) error
	// GrantReward increments a character's experience and currency.
	GrantReward(ctx context.Context, characterID string, exp, money int) error
}

// FinalState is one fighter's identity and final hit points at settlement
// time, captured by value so persistence can run after session teardown.
type FinalState struct {
	ParticipantID string
	Human         bool
	HP            int
}

// Settler computes and persists end-of-battle rewards and final state.
//
// Every persistence call is independent and best-effort: a failure writing
// one fighter's state is logged and never blocks the other writes, and the
// battle-end notification has already been delivered by the time Persist
// runs.
type Settler struct {
	store         CharacterStore
	defaultReward Reward
	timeout       time.Duration
	logger        *zap.Logger
}

// NewSettler creates a Settler.
//
// Precondition: store and logger must be non-nil; timeout must be > 0.
func NewSettler(store CharacterStore, defaultReward Reward, timeout time.Duration, logger *zap.Logger) *Settler {
	return &Settler{
		store:         store,
		defaultReward: defaultReward,
		timeout:       timeout,
		logger:        logger,
	}
}

// RewardFor determines the reward for defeating loser: an NPC's (possibly
// level-scaled) template rewards, or the fixed default for a human loser.
//
// Postcondition: Returns a zero Reward only when loser is nil (a draw).
func (s *Settler) RewardFor(loser *combat.Fighter) Reward {
	if loser == nil {
		return Reward{}
	}
	if !loser.IsHuman() {
		return Reward{Exp: loser.ExpReward, Money: loser.MoneyReward}
	}
	return s.defaultReward
}

// Persist writes settlement results to the character store: the reward for
// a human winner, and final hit points for every human fighter regardless
// of outcome. Each write uses its own timeout context; failures are logged
// and swallowed so one slow or broken write cannot affect the others.
//
// Precondition: winnerHuman implies winnerID is non-empty.
func (s *Settler) Persist(battleID, winnerID string, winnerHuman bool, reward Reward, finals []FinalState) {
	if winnerID != "" && winnerHuman {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.store.GrantReward(ctx, winnerID, reward.Exp, reward.Money); err != nil {
			s.logger.Error("granting battle reward",
				zap.String("battle_id", battleID),
				zap.String("character_id", winnerID),
				zap.Error(err),
			)
		}
		cancel()
	}

	for _, f := range finals {
		if !f.Human {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.store.UpdateHP(ctx, f.ParticipantID, f.HP); err != nil {
			s.logger.Error("persisting post-battle hp",
				zap.String("battle_id", battleID),
				zap.String("character_id", f.ParticipantID),
				zap.Int("hp", f.HP),
				zap.Error(err),
			)
		}
		cancel()
	}
}
