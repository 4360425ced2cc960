package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrGameNotFound = errors.New("GAME_NOT_FOUND: No finished game with that id")

// GameRecord is one finished round.
type GameRecord struct {
	Id         string         `json:"id"`
	SeatCount  int            `json:"seatCount"`
	WinnerSeat int            `json:"winnerSeat"`
	WinnerName string         `json:"winnerName"`
	Moves      int            `json:"moves"`
	Draws      int            `json:"draws"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Players    []PlayerRecord `json:"players"`
}

type PlayerRecord struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	CardsLeft int    `json:"cardsLeft"`
}

// Store keeps the history of finished rounds in sqlite or postgres.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects with driver ("sqlite3" or "pgx") and brings the schema up
// to date.
func Open(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" && !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	store, err := New(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database and runs the migrations.
func New(db *sql.DB, driver string) (*Store, error) {
	dialect := "sqlite3"
	if driver == "pgx" || driver == "postgres" {
		dialect = "postgres"
	}

	if err := runMigrations(db, dialect); err != nil {
		return nil, err
	}

	return &Store{db: db, postgres: dialect == "postgres"}, nil
}

// runMigrations applies database migrations using goose
func runMigrations(db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Printf("[HISTORY] Database migrations applied (%s)", dialect)
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind turns ? placeholders into $1, $2... for postgres.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveGame records a finished round and its players.
func (s *Store) SaveGame(ctx context.Context, game GameRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO games (id, seat_count, winner_seat, winner_name, moves, draws, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, s.rebind(query),
		game.Id,
		game.SeatCount,
		game.WinnerSeat,
		game.WinnerName,
		game.Moves,
		game.Draws,
		game.StartedAt.UTC(),
		game.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", game.Id, err)
	}

	playerQuery := s.rebind(`INSERT INTO game_players (game_id, seat, name, cards_left) VALUES (?, ?, ?, ?)`)
	for _, p := range game.Players {
		if _, err := tx.ExecContext(ctx, playerQuery, game.Id, p.Seat, p.Name, p.CardsLeft); err != nil {
			return fmt.Errorf("failed to save seat %d of game %s: %w", p.Seat, game.Id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game %s: %w", game.Id, err)
	}
	return nil
}

const selectGame = `
	SELECT id, seat_count, winner_seat, winner_name, moves, draws, started_at, finished_at
	FROM games
`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (GameRecord, error) {
	var game GameRecord
	err := row.Scan(
		&game.Id,
		&game.SeatCount,
		&game.WinnerSeat,
		&game.WinnerName,
		&game.Moves,
		&game.Draws,
		&game.StartedAt,
		&game.FinishedAt,
	)
	return game, err
}

// LoadGame retrieves a finished game by id
func (s *Store) LoadGame(ctx context.Context, id string) (*GameRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(selectGame+` WHERE id = ?`), id)

	game, err := scanGame(row)
	if err == sql.ErrNoRows {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}

	if game.Players, err = s.loadPlayers(ctx, id); err != nil {
		return nil, err
	}
	return &game, nil
}

// RecentGames returns up to limit finished games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(selectGame+` ORDER BY finished_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent games: %w", err)
	}

	games := make([]GameRecord, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	rows.Close()

	for i := range games {
		if games[i].Players, err = s.loadPlayers(ctx, games[i].Id); err != nil {
			return nil, err
		}
	}
	return games, nil
}

func (s *Store) loadPlayers(ctx context.Context, gameId string) ([]PlayerRecord, error) {
	query := `SELECT seat, name, cards_left FROM game_players WHERE game_id = ? ORDER BY seat`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), gameId)
	if err != nil {
		return nil, fmt.Errorf("failed to query players of game %s: %w", gameId, err)
	}
	defer rows.Close()

	players := make([]PlayerRecord, 0)
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.Seat, &p.Name, &p.CardsLeft); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

// CleanupOldGames deletes games that finished longer ago than olderThan.
func (s *Store) CleanupOldGames(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	playersQuery := `DELETE FROM game_players WHERE game_id IN (SELECT id FROM games WHERE finished_at < ?)`
	if _, err := tx.ExecContext(ctx, s.rebind(playersQuery), cutoff); err != nil {
		return 0, fmt.Errorf("failed to cleanup old players: %w", err)
	}

	result, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM games WHERE finished_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old games: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check cleanup result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return int(rowsAffected), nil
}
