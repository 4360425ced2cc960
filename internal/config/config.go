package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"machiavelli-server/internal/cards"
	"machiavelli-server/internal/protocol"
)

type Config struct {
	Port      int
	HTTPPort  int // 0 disables the status and websocket listener
	Seats     int
	AdminName string
	HandSize  int
	Codec     string
	RateLimit int // commands per second per connection

	HistoryDriver string // sqlite3, pgx, or empty for no history
	HistoryDSN    string

	RedisAddr     string // empty disables event publishing
	RedisPassword string
	RedisChannel  string
}

// GetEnv returns an environment variable value or a fallback
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, value)
	}
	return n, nil
}

// Load reads the configuration from the environment (and .env, if present).
func Load() (Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		n, err := getInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}

	cfg := Config{
		Port:          intVar("PORT", 4444),
		HTTPPort:      intVar("HTTP_PORT", 0),
		Seats:         intVar("SEATS", 2),
		AdminName:     GetEnv("ADMIN_NAME", "Admin"),
		HandSize:      intVar("HAND_SIZE", 15),
		Codec:         GetEnv("CODEC", "json"),
		RateLimit:     intVar("RATE_LIMIT", 20),
		HistoryDriver: os.Getenv("HISTORY_DRIVER"),
		HistoryDSN:    GetEnv("HISTORY_DSN", "machiavelli.db"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisChannel:  GetEnv("REDIS_CHANNEL", "machiavelli:events"),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT must be between 0 and 65535, got %d", c.HTTPPort))
	}
	if c.HTTPPort != 0 && c.HTTPPort == c.Port {
		errs = append(errs, fmt.Errorf("HTTP_PORT and PORT cannot both be %d", c.Port))
	}
	if c.Seats < 2 {
		errs = append(errs, fmt.Errorf("SEATS must be at least 2, got %d", c.Seats))
	}
	if strings.TrimSpace(c.AdminName) == "" || len(c.AdminName) > 20 {
		errs = append(errs, errors.New("ADMIN_NAME must be 1 to 20 characters"))
	}
	if c.HandSize < 1 {
		errs = append(errs, fmt.Errorf("HAND_SIZE must be at least 1, got %d", c.HandSize))
	} else if c.Seats >= 2 && c.Seats*c.HandSize > cards.DeckSize {
		errs = append(errs, fmt.Errorf("%d seats with %d cards each need more than %d cards", c.Seats, c.HandSize, cards.DeckSize))
	}
	if _, err := protocol.CodecByName(c.Codec); err != nil {
		errs = append(errs, fmt.Errorf("CODEC: %w", err))
	}
	if c.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT must be at least 1, got %d", c.RateLimit))
	}
	switch c.HistoryDriver {
	case "", "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("HISTORY_DRIVER must be sqlite3 or pgx, got %q", c.HistoryDriver))
	}

	return errors.Join(errs...)
}
