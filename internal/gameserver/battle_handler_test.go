package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/game/battle"
	"github.com/Muggle-mew/Urba/internal/game/character"
	"github.com/Muggle-mew/Urba/internal/game/combat"
	"github.com/Muggle-mew/Urba/internal/game/monster"
)

// deterministicSource never dodges or crits, and generated moves always
// attack head and block chest and stomach.
type deterministicSource struct{}

func (deterministicSource) Intn(int) int     { return 0 }
func (deterministicSource) Float64() float64 { return 0.99 }

type memoryStore struct {
	mu     sync.Mutex
	grants map[string][2]int
	hps    map[string]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{grants: make(map[string][2]int), hps: make(map[string]int)}
}

func (s *memoryStore) GrantReward(_ context.Context, id string, exp, money int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[id] = [2]int{exp, money}
	return nil
}

func (s *memoryStore) UpdateHP(_ context.Context, id string, hp int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hps[id] = hp
	return nil
}

type fakeCharacters map[string]*character.Character

func (f fakeCharacters) GetByID(_ context.Context, id string) (*character.Character, error) {
	c, ok := f[id]
	if !ok {
		return nil, errors.New("character not found")
	}
	return c, nil
}

type fakeMonsters map[string]*monster.Template

func (f fakeMonsters) GetByID(_ context.Context, id string) (*monster.Template, error) {
	m, ok := f[id]
	if !ok {
		return nil, monster.ErrTemplateNotFound
	}
	return m, nil
}

func (f fakeMonsters) ListByZone(_ context.Context, zoneID string) ([]*monster.Template, error) {
	out := make([]*monster.Template, 0)
	for _, m := range f {
		if m.ZoneID == zoneID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func testCharacter() *character.Character {
	return &character.Character{
		ID:       "char-1",
		Nickname: "Zara",
		Level:    3,
		HP:       30,
		MaxHP:    30,
		Attributes: combat.Attributes{
			Strength: 10,
			Agility:  5,
		},
	}
}

func testMonster() *monster.Template {
	return &monster.Template{
		ID:     "rustjaw",
		Name:   "Rustjaw",
		ZoneID: "slums",
		Level:  3,
		MaxHP:  20,
		Attributes: monster.Attributes{
			Strength: 8,
			Agility:  5,
		},
		ExpReward:   30,
		MoneyReward: 20,
	}
}

func newTestHandler(t *testing.T) (*BattleHandler, *Hub, *memoryStore) {
	t.Helper()
	logger := zap.NewNop()
	hub := NewHub(logger)
	store := newMemoryStore()
	settler := battle.NewSettler(store, battle.Reward{Exp: 10, Money: 5}, time.Second, logger)
	registry := battle.NewRegistry(time.Minute, deterministicSource{}, hub, settler, logger)
	chars := fakeCharacters{"char-1": testCharacter()}
	monsters := fakeMonsters{"rustjaw": testMonster()}
	return NewBattleHandler(registry, hub, chars, monsters, logger), hub, store
}

func killTurn() ClientMessage {
	return ClientMessage{
		Type:   MsgBattleTurn,
		Attack: "head",
		Block:  []string{"head", "chest"},
	}
}

func TestBattleHandlerDispatch_PvEFlow(t *testing.T) {
	h, hub, store := newTestHandler(t)
	ctx := context.Background()

	c := hub.Register("conn-1")
	h.dispatch(ctx, "conn-1", ClientMessage{
		Type:        MsgBattleStartPvE,
		CharacterID: "char-1",
		MonsterID:   "rustjaw",
	})

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgBattleState, msgs[0].Type)
	assert.Equal(t, 1, msgs[0].State.Round)
	assert.Equal(t, "in_progress", msgs[0].State.Status)
	require.Len(t, msgs[0].State.Fighters, 2)

	// The head attack lands for 20 against the unblocked monster; the
	// monster's generated head attack is blocked. One round, human wins.
	h.dispatch(ctx, "conn-1", killTurn())

	msgs = drain(t, c)
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgBattleResult, msgs[0].Type)
	assert.Equal(t, 1, msgs[0].Result.Round)
	assert.Equal(t, MsgBattleEnd, msgs[1].Type)
	assert.Equal(t, "char-1", msgs[1].End.WinnerID)
	assert.Equal(t, 30, msgs[1].End.Exp)
	assert.Equal(t, 20, msgs[1].End.Money)

	// Settlement runs off the event path.
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		granted := store.grants["char-1"] == [2]int{30, 20} && store.hps["char-1"] == 30
		store.mu.Unlock()
		if granted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("settlement never persisted")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBattleHandlerDispatch_MonsterLevelOverride(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	ctx := context.Background()

	c := hub.Register("conn-1")
	h.dispatch(ctx, "conn-1", ClientMessage{
		Type:         MsgBattleStartPvE,
		CharacterID:  "char-1",
		MonsterID:    "rustjaw",
		MonsterLevel: 6,
	})

	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgBattleState, msgs[0].Type)

	var npc FighterPayload
	for _, f := range msgs[0].State.Fighters {
		if f.NPC {
			npc = f
		}
	}
	assert.Equal(t, 6, npc.Level)
	assert.Equal(t, 40, npc.MaxHP, "level 3 template with 20 hp doubles at level 6")
}

func TestBattleHandlerDispatch_MonsterList(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	ctx := context.Background()

	c := hub.Register("conn-1")
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgMonsterList, Zone: "slums"})
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgMonsterList, Zone: "wastes"})
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgMonsterList})

	msgs := drain(t, c)
	require.Len(t, msgs, 3)

	require.Equal(t, MsgMonsterList, msgs[0].Type)
	require.NotNil(t, msgs[0].Monsters)
	assert.Equal(t, "slums", msgs[0].Monsters.Zone)
	require.Len(t, msgs[0].Monsters.Monsters, 1)
	assert.Equal(t, "rustjaw", msgs[0].Monsters.Monsters[0].ID)
	assert.Equal(t, 20, msgs[0].Monsters.Monsters[0].MaxHP)

	// An unknown zone is an empty listing, not an error.
	require.Equal(t, MsgMonsterList, msgs[1].Type)
	assert.Empty(t, msgs[1].Monsters.Monsters)

	assert.Equal(t, MsgError, msgs[2].Type)
}

func TestBattleHandlerDispatch_Errors(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	ctx := context.Background()

	c := hub.Register("conn-1")

	h.dispatch(ctx, "conn-1", ClientMessage{Type: "warp"})
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgBattleStartPvE, CharacterID: "ghost", MonsterID: "rustjaw"})
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgBattleStartPvE, CharacterID: "char-1", MonsterID: "ghost"})
	h.dispatch(ctx, "conn-1", ClientMessage{Type: MsgBattleJoin, CharacterID: "char-1"})
	h.dispatch(ctx, "conn-1", killTurn())

	msgs := drain(t, c)
	require.Len(t, msgs, 5)
	for _, msg := range msgs {
		assert.Equal(t, MsgError, msg.Type)
	}
}

func TestBattleHandlerDispatch_TurnErrors(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	ctx := context.Background()

	c := hub.Register("conn-1")
	h.dispatch(ctx, "conn-1", ClientMessage{
		Type:        MsgBattleStartPvE,
		CharacterID: "char-1",
		MonsterID:   "rustjaw",
	})
	drain(t, c)

	h.dispatch(ctx, "conn-1", ClientMessage{
		Type:   MsgBattleTurn,
		Attack: "knee",
		Block:  []string{"head", "chest"},
	})
	msgs := drain(t, c)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgError, msgs[0].Type)
}

func TestBattleHandlerDispatch_Rejoin(t *testing.T) {
	h, hub, _ := newTestHandler(t)
	ctx := context.Background()

	c1 := hub.Register("conn-1")
	h.dispatch(ctx, "conn-1", ClientMessage{
		Type:        MsgBattleStartPvE,
		CharacterID: "char-1",
		MonsterID:   "rustjaw",
	})
	require.Len(t, drain(t, c1), 1)

	// A second connection joins the same character's battle and gets the
	// current state replayed.
	c2 := hub.Register("conn-2")
	h.dispatch(ctx, "conn-2", ClientMessage{Type: MsgBattleJoin, CharacterID: "char-1"})

	msgs := drain(t, c2)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgBattleState, msgs[0].Type)
	assert.Equal(t, 1, msgs[0].State.Round)

	// Starting again while in battle also reattaches instead of seating twice.
	c3 := hub.Register("conn-3")
	h.dispatch(ctx, "conn-3", ClientMessage{
		Type:        MsgBattleStartPvE,
		CharacterID: "char-1",
		MonsterID:   "rustjaw",
	})
	msgs = drain(t, c3)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgBattleState, msgs[0].Type)

	// The turn now comes from the latest connection.
	h.dispatch(ctx, "conn-3", killTurn())
	msgs = drain(t, c3)
	require.Len(t, msgs, 2)
	assert.Equal(t, MsgBattleResult, msgs[0].Type)
	assert.Equal(t, MsgBattleEnd, msgs[1].Type)
}

func TestBattleHandlerWebSocket_EndToEnd(t *testing.T) {
	h, _, _ := newTestHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := strings.Replace(srv.URL, "http", "ws", 1)
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	send := func(msg ClientMessage) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
	}
	recv := func() ServerMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}

	send(ClientMessage{Type: MsgBattleStartPvE, CharacterID: "char-1", MonsterID: "rustjaw"})

	state := recv()
	require.Equal(t, MsgBattleState, state.Type)
	assert.Equal(t, "in_progress", state.State.Status)

	send(killTurn())

	result := recv()
	require.Equal(t, MsgBattleResult, result.Type)
	assert.Equal(t, 1, result.Result.Round)

	end := recv()
	require.Equal(t, MsgBattleEnd, end.Type)
	assert.Equal(t, "char-1", end.End.WinnerID)
	assert.False(t, end.End.Draw)
}
