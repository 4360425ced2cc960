package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	PlayerJoined  EventType = "player_joined"
	PlayerRemoved EventType = "player_removed"
	GameStarted   EventType = "game_started"
	GameFinished  EventType = "game_finished"
	GameReset     EventType = "game_reset"
)

// Event is a table lifecycle change, published as JSON.
type Event struct {
	Type      EventType `json:"type"`
	GameId    string    `json:"gameId"`
	Seat      int       `json:"seat"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Publisher sends lifecycle events to a Redis channel. A nil *Publisher
// drops everything, so callers never need to check whether Redis is on.
type Publisher struct {
	client  *redis.Client
	channel string
}

// New creates a new Redis publisher and checks the connection
func New(config Config) (*Publisher, error) {
	log.Printf("[REDIS] Connecting to Redis at %s...", config.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[REDIS] Connected to Redis at %s, publishing on %s", config.Addr, config.Channel)

	return &Publisher{client: client, channel: config.Channel}, nil
}

func (p *Publisher) Publish(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	log.Println("[REDIS] Closing Redis connection...")
	return p.client.Close()
}
