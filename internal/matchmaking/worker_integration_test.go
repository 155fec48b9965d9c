package matchmaking

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/skilledgame/backend/internal/apperr"
	"github.com/skilledgame/backend/internal/config"
	"github.com/skilledgame/backend/internal/database"
	"github.com/skilledgame/backend/internal/lobby"
	"github.com/skilledgame/backend/internal/notify"
	"github.com/skilledgame/backend/internal/settlement"
)

// These tests exercise the queue and lobby flows against a real database.
// They need a migrated Postgres and are skipped when TEST_DATABASE_URL is
// unset.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	for _, table := range []string{
		"game_moves", "ledger_entries", "wager_locks",
		"matchmaking_queue", "rooms", "games", "players",
	} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("clear %s: %v", table, err)
		}
	}
	return db
}

func seedPlayer(t *testing.T, db *sqlx.DB, name string, coins int64) int {
	t.Helper()
	var id int
	err := db.QueryRowx(`INSERT INTO players (display_name, skilled_coins) VALUES ($1, $2) RETURNING id`, name, coins).Scan(&id)
	if err != nil {
		t.Fatalf("seed player %s: %v", name, err)
	}
	return id
}

// A player who enqueues and then starts a lobby game must not stay pairable:
// the start clears their queue entry, and even a leftover entry is skipped by
// the pairing pass while their game is unfinished.
func TestLobbyStartKeepsPlayerOutOfPairing(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cfg := config.Load()
	notifier := notify.New(nil)
	engine := settlement.NewEngine(db, nil, cfg, notifier)
	queue := NewQueue(db, nil, cfg, notifier, engine)
	lobbies := lobby.NewManager(db, cfg, notifier, engine)

	a := seedPlayer(t, db, "alice", 10000)
	b := seedPlayer(t, db, "bob", 10000)
	c := seedPlayer(t, db, "carol", 10000)

	if _, err := queue.Enqueue(ctx, a, 500, ""); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}

	room, err := lobbies.CreateLobby(ctx, b, 500)
	if err != nil {
		t.Fatalf("create lobby: %v", err)
	}
	if _, err := lobbies.JoinLobby(ctx, a, room.Code); err != nil {
		t.Fatalf("join lobby: %v", err)
	}
	if _, err := lobbies.ToggleReady(ctx, a, room.ID); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if _, err := lobbies.ToggleReady(ctx, b, room.ID); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if _, err := lobbies.StartGame(ctx, b, room.ID); err != nil {
		t.Fatalf("start game: %v", err)
	}

	var left int
	if err := db.Get(&left, `SELECT COUNT(*) FROM matchmaking_queue WHERE player_id=$1`, a); err != nil {
		t.Fatalf("count queue: %v", err)
	}
	if left != 0 {
		t.Fatalf("queue entry for player %d survived game start", a)
	}

	// Simulate an entry that escaped the cleanup; pairing must still skip it.
	if _, err := db.Exec(`INSERT INTO matchmaking_queue (player_id, display_name, wager) VALUES ($1, 'alice', 500)`, a); err != nil {
		t.Fatalf("reinsert entry: %v", err)
	}
	if _, err := queue.Enqueue(ctx, c, 500, ""); err != nil {
		t.Fatalf("enqueue c: %v", err)
	}
	if queue.tryMatchPair(ctx, 500) {
		t.Fatal("pairing bound a player who already has an unfinished game")
	}

	var unfinished int
	if err := db.Get(&unfinished, `
		SELECT COUNT(*) FROM games
		WHERE status IN ('waiting','active') AND (white_player_id=$1 OR black_player_id=$1)
	`, a); err != nil {
		t.Fatalf("count games: %v", err)
	}
	if unfinished != 1 {
		t.Fatalf("player %d is in %d unfinished games, want 1", a, unfinished)
	}
}

func TestJoinLobbyRejectsPlayerInActiveGame(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cfg := config.Load()
	notifier := notify.New(nil)
	engine := settlement.NewEngine(db, nil, cfg, notifier)
	lobbies := lobby.NewManager(db, cfg, notifier, engine)

	a := seedPlayer(t, db, "alice", 10000)
	b := seedPlayer(t, db, "bob", 10000)
	c := seedPlayer(t, db, "carol", 10000)

	room1, err := lobbies.CreateLobby(ctx, b, 500)
	if err != nil {
		t.Fatalf("create lobby 1: %v", err)
	}
	if _, err := lobbies.JoinLobby(ctx, a, room1.Code); err != nil {
		t.Fatalf("join lobby 1: %v", err)
	}
	if _, err := lobbies.ToggleReady(ctx, a, room1.ID); err != nil {
		t.Fatalf("ready a: %v", err)
	}
	if _, err := lobbies.ToggleReady(ctx, b, room1.ID); err != nil {
		t.Fatalf("ready b: %v", err)
	}
	if _, err := lobbies.StartGame(ctx, b, room1.ID); err != nil {
		t.Fatalf("start game: %v", err)
	}

	room2, err := lobbies.CreateLobby(ctx, c, 500)
	if err != nil {
		t.Fatalf("create lobby 2: %v", err)
	}
	_, err = lobbies.JoinLobby(ctx, a, room2.Code)
	if !errors.Is(err, apperr.ErrAlreadyInActiveGame) {
		t.Fatalf("join with active game: err = %v, want already_in_active_game", err)
	}
}
