// Package gameserver exposes the battle engine over WebSocket connections:
// message payloads, the connection hub that fans engine events out to
// battle rooms, and the handler that drives sessions from client messages.
package gameserver

import (
	"fmt"
	"time"

	"github.com/Muggle-mew/Urba/internal/game/battle"
	"github.com/Muggle-mew/Urba/internal/game/combat"
	"github.com/Muggle-mew/Urba/internal/game/monster"
)

// Client message types. MsgMonsterList doubles as the response type.
const (
	MsgBattleJoin     = "battle_join"
	MsgBattleStartPvE = "battle_start_pve"
	MsgBattleTurn     = "battle_turn"
	MsgMonsterList    = "monster_list"
)

// Server message types.
const (
	MsgBattleState         = "battle_state"
	MsgBattleTurnConfirmed = "battle_turn_confirmed"
	MsgBattleResult        = "battle_result"
	MsgBattleEnd           = "battle_end"
	MsgError               = "error"
)

// ClientMessage is the envelope for every inbound WebSocket message.
type ClientMessage struct {
	Type        string `json:"type"`
	CharacterID string `json:"character_id,omitempty"`
	MonsterID   string `json:"monster_id,omitempty"`
	Zone        string `json:"zone,omitempty"`
	// MonsterLevel optionally overrides the level the monster is scaled
	// to; 0 means "the challenger's level".
	MonsterLevel int      `json:"monster_level,omitempty"`
	Attack       string   `json:"attack,omitempty"`
	Block        []string `json:"block,omitempty"`
}

// Move converts the message's attack and block fields into a combat move.
//
// Postcondition: Returns a move that passes Validate, or an error wrapping
// combat.ErrInvalidMove.
func (m ClientMessage) Move() (combat.Move, error) {
	if len(m.Block) != 2 {
		return combat.Move{}, fmt.Errorf("%w: exactly two block zones required, got %d", combat.ErrInvalidMove, len(m.Block))
	}
	mv := combat.Move{
		Attack: combat.Zone(m.Attack),
		Block:  [2]combat.Zone{combat.Zone(m.Block[0]), combat.Zone(m.Block[1])},
	}
	if err := mv.Validate(); err != nil {
		return combat.Move{}, err
	}
	return mv, nil
}

// ServerMessage is the envelope for every outbound WebSocket message.
// Exactly one payload field is set, matching Type.
type ServerMessage struct {
	Type string `json:"type"`

	State    *StatePayload       `json:"state,omitempty"`
	Turn     *TurnPayload        `json:"turn,omitempty"`
	Result   *ResultPayload      `json:"result,omitempty"`
	End      *EndPayload         `json:"end,omitempty"`
	Monsters *MonsterListPayload `json:"monsters,omitempty"`
	Error    *ErrorPayload       `json:"error,omitempty"`
}

// FighterPayload is the wire projection of one fighter. Pending moves are
// never carried: declared zones stay secret until the round resolves.
type FighterPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"max_hp"`
	NPC   bool   `json:"npc"`
}

// StatePayload carries a full battle snapshot.
type StatePayload struct {
	BattleID string           `json:"battle_id"`
	Round    int              `json:"round"`
	Status   string           `json:"status"`
	Fighters []FighterPayload `json:"fighters"`
	Log      []string         `json:"log"`
	Deadline time.Time        `json:"deadline"`
}

// TurnPayload acknowledges a submitted move without revealing it.
type TurnPayload struct {
	BattleID      string `json:"battle_id"`
	ParticipantID string `json:"participant_id"`
}

// TurnResultPayload is one fighter's side of a resolved round.
type TurnResultPayload struct {
	ID      string `json:"id"`
	HP      int    `json:"hp"`
	Damage  int    `json:"damage"`
	Crit    bool   `json:"crit"`
	Blocked bool   `json:"blocked"`
	Dodged  bool   `json:"dodged"`
}

// ResultPayload carries the outcome of one resolved round.
type ResultPayload struct {
	BattleID string              `json:"battle_id"`
	Round    int                 `json:"round"`
	Log      string              `json:"log"`
	Fighters []TurnResultPayload `json:"fighters"`
}

// EndPayload carries the final outcome of a battle.
type EndPayload struct {
	BattleID string `json:"battle_id"`
	WinnerID string `json:"winner_id"`
	Draw     bool   `json:"draw"`
	Exp      int    `json:"exp"`
	Money    int    `json:"money"`
}

// MonsterPayload is the wire projection of one monster template.
type MonsterPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
	MaxHP       int    `json:"max_hp"`
	ExpReward   int    `json:"exp_reward"`
	MoneyReward int    `json:"money_reward"`
	Image       string `json:"image,omitempty"`
}

// MonsterListPayload carries the monsters that can be challenged in a zone.
type MonsterListPayload struct {
	Zone     string           `json:"zone"`
	Monsters []MonsterPayload `json:"monsters"`
}

// ErrorPayload carries a client-visible failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

func stateMessage(battleID string, s battle.Snapshot) ServerMessage {
	fighters := make([]FighterPayload, 0, len(s.Fighters))
	for _, f := range s.Fighters {
		if f.ID == "" {
			continue
		}
		fighters = append(fighters, FighterPayload{
			ID:    f.ID,
			Name:  f.Name,
			Level: f.Level,
			HP:    f.HP,
			MaxHP: f.MaxHP,
			NPC:   f.NPC,
		})
	}
	return ServerMessage{
		Type: MsgBattleState,
		State: &StatePayload{
			BattleID: battleID,
			Round:    s.Round,
			Status:   string(s.Status),
			Fighters: fighters,
			Log:      s.Log,
			Deadline: s.Deadline,
		},
	}
}

func turnMessage(battleID, participantID string) ServerMessage {
	return ServerMessage{
		Type: MsgBattleTurnConfirmed,
		Turn: &TurnPayload{BattleID: battleID, ParticipantID: participantID},
	}
}

func resultMessage(battleID string, r battle.RoundReport) ServerMessage {
	fighters := make([]TurnResultPayload, 0, len(r.Fighters))
	for _, f := range r.Fighters {
		fighters = append(fighters, TurnResultPayload{
			ID:      f.ID,
			HP:      f.HP,
			Damage:  f.Damage,
			Crit:    f.Crit,
			Blocked: f.Blocked,
			Dodged:  f.Dodged,
		})
	}
	return ServerMessage{
		Type: MsgBattleResult,
		Result: &ResultPayload{
			BattleID: battleID,
			Round:    r.Round,
			Log:      r.Log,
			Fighters: fighters,
		},
	}
}

func endMessage(battleID, winnerID string, reward battle.Reward) ServerMessage {
	return ServerMessage{
		Type: MsgBattleEnd,
		End: &EndPayload{
			BattleID: battleID,
			WinnerID: winnerID,
			Draw:     winnerID == "",
			Exp:      reward.Exp,
			Money:    reward.Money,
		},
	}
}

func monsterListMessage(zoneID string, templates []*monster.Template) ServerMessage {
	monsters := make([]MonsterPayload, 0, len(templates))
	for _, t := range templates {
		monsters = append(monsters, MonsterPayload{
			ID:          t.ID,
			Name:        t.Name,
			Level:       t.Level,
			MaxHP:       t.MaxHP,
			ExpReward:   t.ExpReward,
			MoneyReward: t.MoneyReward,
			Image:       t.Image,
		})
	}
	return ServerMessage{
		Type:     MsgMonsterList,
		Monsters: &MonsterListPayload{Zone: zoneID, Monsters: monsters},
	}
}

func errorMessage(msg string) ServerMessage {
	return ServerMessage{
		Type:  MsgError,
		Error: &ErrorPayload{Message: msg},
	}
}
