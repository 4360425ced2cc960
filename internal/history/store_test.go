package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a sqlite store in a temp dir with migrations applied
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open("sqlite3", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func finishedGame(id string, finishedAt time.Time) GameRecord {
	return GameRecord{
		Id:         id,
		SeatCount:  2,
		WinnerSeat: 1,
		WinnerName: "Cesare",
		Moves:      4,
		Draws:      9,
		StartedAt:  finishedAt.Add(-10 * time.Minute),
		FinishedAt: finishedAt,
		Players: []PlayerRecord{
			{Seat: 0, Name: "Lorenzo", CardsLeft: 12},
			{Seat: 1, Name: "Cesare", CardsLeft: 0},
		},
	}
}

func TestStore_SaveAndLoadGame(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	game := finishedGame("round-1", now)
	require.NoError(t, store.SaveGame(ctx, game))

	loaded, err := store.LoadGame(ctx, "round-1")
	require.NoError(t, err)

	assert.Equal(t, game.Id, loaded.Id)
	assert.Equal(t, game.SeatCount, loaded.SeatCount)
	assert.Equal(t, game.WinnerSeat, loaded.WinnerSeat)
	assert.Equal(t, game.WinnerName, loaded.WinnerName)
	assert.Equal(t, game.Moves, loaded.Moves)
	assert.Equal(t, game.Draws, loaded.Draws)
	assert.WithinDuration(t, game.StartedAt, loaded.StartedAt, time.Second)
	assert.WithinDuration(t, game.FinishedAt, loaded.FinishedAt, time.Second)
	assert.Equal(t, game.Players, loaded.Players)
}

func TestStore_SaveGameTwice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	game := finishedGame("round-1", time.Now())
	require.NoError(t, store.SaveGame(ctx, game))
	assert.Error(t, store.SaveGame(ctx, game))

	// The failed insert must not leave extra players behind.
	loaded, err := store.LoadGame(ctx, "round-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Players, 2)
}

func TestStore_LoadMissingGame(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.LoadGame(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestStore_RecentGames(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	games, err := store.RecentGames(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, games)
	assert.NotNil(t, games)

	now := time.Now()
	require.NoError(t, store.SaveGame(ctx, finishedGame("oldest", now.Add(-2*time.Hour))))
	require.NoError(t, store.SaveGame(ctx, finishedGame("newest", now)))
	require.NoError(t, store.SaveGame(ctx, finishedGame("middle", now.Add(-time.Hour))))

	games, err = store.RecentGames(ctx, 2)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "newest", games[0].Id)
	assert.Equal(t, "middle", games[1].Id)
	assert.Len(t, games[0].Players, 2)
}

func TestStore_CleanupOldGames(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.SaveGame(ctx, finishedGame("ancient", now.Add(-48*time.Hour))))
	require.NoError(t, store.SaveGame(ctx, finishedGame("recent", now.Add(-time.Hour))))

	deleted, err := store.CleanupOldGames(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = store.LoadGame(ctx, "ancient")
	assert.ErrorIs(t, err, ErrGameNotFound)
	_, err = store.LoadGame(ctx, "recent")
	assert.NoError(t, err)

	var orphans int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM game_players WHERE game_id = 'ancient'`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestStore_Health(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Health(context.Background()))

	store.Close()
	assert.Error(t, store.Health(context.Background()))
}

func TestStore_Rebind(t *testing.T) {
	sqlite := &Store{}
	assert.Equal(t, "a = ? AND b = ?", sqlite.rebind("a = ? AND b = ?"))

	pg := &Store{postgres: true}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
}
