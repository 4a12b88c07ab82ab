// Package store provides document persistence for users, games, and quest
// progress. Three backends implement the same Store interface: SQLite
// (default), PostgreSQL (behind the shared SQL dialect), and MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a record lookup fails.
var ErrNotFound = errors.New("record not found")

// UserRecord is the persisted form of a user. A record may be a bare
// reference (no UID) created when a fork arrives before sign-in.
type UserRecord struct {
	Key    string
	Source string
	UserID string
	UID    string
	Name   string
	Handle string
	Joined time.Time
}

// GameRecord is the persisted form of a game.
type GameRecord struct {
	Key       string
	UserKey   string
	ForkURL   string
	PlayerID  int64
	CreatedAt time.Time
}

// QuestRecord is the persisted form of quest progress. Version gates
// deserialization of SerializedData against the current quest definition;
// CompletedStages grows monotonically; Complete makes the record inert.
type QuestRecord struct {
	Key             string
	GameKey         string
	QuestName       string
	Version         string
	CompletedStages []string
	SerializedData  string
	Complete        bool
	LastRun         time.Time
}

// Store is the persistence port. Implementations must return ErrNotFound
// (possibly wrapped) for missing records, and Put must upsert.
type Store interface {
	GetUser(ctx context.Context, key string) (*UserRecord, error)
	PutUser(ctx context.Context, user *UserRecord) error

	// FindUserBySource looks a user up by external identity instead of key.
	FindUserBySource(ctx context.Context, source, userID string) (*UserRecord, error)

	GetGame(ctx context.Context, key string) (*GameRecord, error)
	PutGame(ctx context.Context, game *GameRecord) error

	GetQuest(ctx context.Context, key string) (*QuestRecord, error)
	PutQuest(ctx context.Context, quest *QuestRecord) error
	DeleteQuest(ctx context.Context, key string) error

	// IncompleteQuests returns every quest record not yet complete, for the
	// tick loop to advance.
	IncompleteQuests(ctx context.Context) ([]*QuestRecord, error)

	Close() error
}

// Config holds storage configuration.
type Config struct {
	// Driver selects the backend: "sqlite", "postgres", or "mongo".
	Driver string `yaml:"driver"`

	// SQLitePath is the database file path for the sqlite driver.
	SQLitePath string `yaml:"sqlite_path"`

	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// DefaultConfig returns a Config using SQLite at the given path.
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: sqlitePath,
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "gitforged",
		},
	}
}

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQL(DialectSQLite, cfg)
	case "postgres":
		return OpenSQL(DialectPostgres, cfg)
	case "mongo":
		return OpenMongo(ctx, cfg.Mongo)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
