package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/battle"
	"github.com/Muggle-mew/Urba/internal/game/character"
	"github.com/Muggle-mew/Urba/internal/game/combat"
	"github.com/Muggle-mew/Urba/internal/game/monster"
)

// writeTimeout bounds a single outbound WebSocket write.
const writeTimeout = 10 * time.Second

// CharacterSource loads player characters for battle seating.
type CharacterSource interface {
	GetByID(ctx context.Context, id string) (*character.Character, error)
}

// MonsterSource loads monster templates. Both the YAML catalog and the
// database repository satisfy it.
type MonsterSource interface {
	GetByID(ctx context.Context, id string) (*monster.Template, error)
	ListByZone(ctx context.Context, zoneID string) ([]*monster.Template, error)
}

// BattleHandler terminates WebSocket connections and drives battle
// sessions from client messages.
type BattleHandler struct {
	registry   *battle.Registry
	hub        *Hub
	characters CharacterSource
	monsters   MonsterSource
	logger     *zap.Logger
}

// NewBattleHandler creates a BattleHandler.
//
// Precondition: all arguments must be non-nil.
func NewBattleHandler(registry *battle.Registry, hub *Hub, characters CharacterSource, monsters MonsterSource, logger *zap.Logger) *BattleHandler {
	return &BattleHandler{
		registry:   registry,
		hub:        hub,
		characters: characters,
		monsters:   monsters,
		logger:     logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket connection and runs its
// read loop until the client disconnects.
func (h *BattleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("accepting websocket connection", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	connID := uuid.NewString()
	client := h.hub.Register(connID)
	defer h.hub.Unregister(connID)

	h.logger.Debug("connection accepted", zap.String("conn_id", connID))

	// Write pump. Exits when Unregister closes the outbound channel or
	// the connection dies.
	writeCtx, cancelWrites := context.WithCancel(ctx)
	defer cancelWrites()
	go func() {
		for data := range client.Outbound() {
			wctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			h.logger.Debug("connection closed",
				zap.String("conn_id", connID),
				zap.Error(err),
			)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.hub.SendTo(connID, errorMessage("malformed message"))
			continue
		}
		h.dispatch(ctx, connID, msg)
	}
}

func (h *BattleHandler) dispatch(ctx context.Context, connID string, msg ClientMessage) {
	switch msg.Type {
	case MsgBattleJoin:
		h.handleJoin(connID, msg)
	case MsgBattleStartPvE:
		h.handleStartPvE(ctx, connID, msg)
	case MsgBattleTurn:
		h.handleTurn(connID, msg)
	case MsgMonsterList:
		h.handleListMonsters(ctx, connID, msg)
	default:
		h.hub.SendTo(connID, errorMessage(fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// handleJoin reattaches a character's connection to its live battle and
// replays the current state.
func (h *BattleHandler) handleJoin(connID string, msg ClientMessage) {
	if msg.CharacterID == "" {
		h.hub.SendTo(connID, errorMessage("character_id is required"))
		return
	}

	s, err := h.registry.FindByParticipant(msg.CharacterID)
	if err != nil {
		h.hub.SendTo(connID, errorMessage("no active battle for character"))
		return
	}

	if err := h.rejoin(s, msg.CharacterID, connID); err != nil {
		h.hub.SendTo(connID, errorMessage("rejoining battle failed"))
	}
}

// handleStartPvE starts a battle against a monster. A character already in
// a live battle is reattached to it instead: the engine never seats the
// same character twice.
func (h *BattleHandler) handleStartPvE(ctx context.Context, connID string, msg ClientMessage) {
	if msg.CharacterID == "" || msg.MonsterID == "" {
		h.hub.SendTo(connID, errorMessage("character_id and monster_id are required"))
		return
	}

	if s, err := h.registry.FindByParticipant(msg.CharacterID); err == nil {
		h.logger.Info("character already in battle, rejoining",
			zap.String("character_id", msg.CharacterID),
			zap.String("battle_id", s.ID()),
		)
		if err := h.rejoin(s, msg.CharacterID, connID); err != nil {
			h.hub.SendTo(connID, errorMessage("rejoining battle failed"))
		}
		return
	}

	char, err := h.characters.GetByID(ctx, msg.CharacterID)
	if err != nil {
		h.hub.SendTo(connID, errorMessage("character not found"))
		return
	}
	if char.HP <= 0 {
		h.hub.SendTo(connID, errorMessage("character has no hit points left"))
		return
	}

	tmpl, err := h.monsters.GetByID(ctx, msg.MonsterID)
	if err != nil {
		h.hub.SendTo(connID, errorMessage("monster not found"))
		return
	}

	// Monsters meet the challenger at the challenger's level unless the
	// request names one.
	targetLevel := char.Level
	if msg.MonsterLevel > 0 {
		targetLevel = msg.MonsterLevel
	}
	scaled := tmpl.AtLevel(targetLevel)
	npc := scaled.Fighter(fmt.Sprintf("monster_%s_%s", scaled.ID, uuid.NewString()))
	human := char.Fighter(connID)

	s, err := h.registry.CreateAndStartPvE(human, npc, func(battleID string) {
		h.hub.Join(battleID, connID)
	})
	if errors.Is(err, battle.ErrAlreadyInBattle) {
		// Lost a race with another start for the same character; attach to
		// the session that won.
		if err := h.rejoin(s, msg.CharacterID, connID); err != nil {
			h.hub.SendTo(connID, errorMessage("rejoining battle failed"))
		}
		return
	}
	if err != nil {
		h.logger.Error("starting pve battle",
			zap.String("character_id", msg.CharacterID),
			zap.String("monster_id", msg.MonsterID),
			zap.Error(err),
		)
		h.hub.SendTo(connID, errorMessage("starting battle failed"))
	}
}

// handleTurn submits the connection's move for the current round.
func (h *BattleHandler) handleTurn(connID string, msg ClientMessage) {
	move, err := msg.Move()
	if err != nil {
		h.hub.SendTo(connID, errorMessage(err.Error()))
		return
	}

	s, err := h.registry.FindByConn(connID)
	if err != nil {
		h.hub.SendTo(connID, errorMessage("no active battle for connection"))
		return
	}
	participantID, ok := s.ParticipantByConn(connID)
	if !ok {
		h.hub.SendTo(connID, errorMessage("connection not bound to a fighter"))
		return
	}

	switch err := s.SubmitMove(participantID, move); {
	case err == nil:
	case errors.Is(err, battle.ErrMoveAlreadySubmitted):
		h.hub.SendTo(connID, errorMessage("move already submitted this round"))
	case errors.Is(err, battle.ErrSessionNotActive):
		h.hub.SendTo(connID, errorMessage("battle is not active"))
	case errors.Is(err, combat.ErrInvalidMove):
		h.hub.SendTo(connID, errorMessage(err.Error()))
	default:
		h.logger.Error("submitting move",
			zap.String("battle_id", s.ID()),
			zap.String("participant_id", participantID),
			zap.Error(err),
		)
		h.hub.SendTo(connID, errorMessage("submitting move failed"))
	}
}

// handleListMonsters returns the monsters that can be challenged in a zone.
func (h *BattleHandler) handleListMonsters(ctx context.Context, connID string, msg ClientMessage) {
	if msg.Zone == "" {
		h.hub.SendTo(connID, errorMessage("zone is required"))
		return
	}

	templates, err := h.monsters.ListByZone(ctx, msg.Zone)
	if err != nil {
		h.logger.Error("listing zone monsters",
			zap.String("zone", msg.Zone),
			zap.Error(err),
		)
		h.hub.SendTo(connID, errorMessage("listing monsters failed"))
		return
	}
	h.hub.SendTo(connID, monsterListMessage(msg.Zone, templates))
}

// rejoin rebinds a participant to a new connection, subscribes it to the
// battle room, and replays the full state to the new connection only.
func (h *BattleHandler) rejoin(s *battle.Session, participantID, connID string) error {
	if err := h.registry.Reconnect(s, participantID, connID); err != nil {
		return err
	}
	h.hub.Join(s.ID(), connID)
	h.hub.SendTo(connID, stateMessage(s.ID(), s.Snapshot()))
	return nil
}
