package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// SQLStore implements Store on database/sql, with SQLite and PostgreSQL
// behind the shared Dialect.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens (and migrates) a SQL-backed store.
func OpenSQL(dialectType DialectType, cfg Config) (*SQLStore, error) {
	dialect := NewDialect(dialectType)

	var dsn string
	switch dialectType {
	case DialectPostgres:
		p := cfg.Postgres
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init statement failed: %w", err)
		}
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist. Timestamps are stored as
// RFC3339 text and booleans as integers so both dialects scan identically.
func (s *SQLStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			key TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			user_id TEXT NOT NULL,
			uid TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			handle TEXT NOT NULL DEFAULT '',
			joined TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS games (
			key TEXT PRIMARY KEY,
			user_key TEXT NOT NULL,
			fork_url TEXT NOT NULL,
			player_id BIGINT NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS quests (
			key TEXT PRIMARY KEY,
			game_key TEXT NOT NULL,
			quest_name TEXT NOT NULL,
			version TEXT NOT NULL,
			completed_stages TEXT NOT NULL DEFAULT '[]',
			data TEXT NOT NULL DEFAULT '',
			complete INTEGER NOT NULL DEFAULT 0,
			last_run TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_source ON users(source, user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_game_key ON quests(game_key)`,
		`CREATE INDEX IF NOT EXISTS idx_quests_complete ON quests(complete)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// GetUser returns the user with the given key.
func (s *SQLStore) GetUser(ctx context.Context, key string) (*UserRecord, error) {
	query := rebind(s.dialect, "SELECT key, source, user_id, uid, name, handle, joined FROM users WHERE key = ?")
	return s.scanUser(s.db.QueryRowContext(ctx, query, key))
}

// FindUserBySource looks a user up by external identity.
func (s *SQLStore) FindUserBySource(ctx context.Context, source, userID string) (*UserRecord, error) {
	query := rebind(s.dialect, "SELECT key, source, user_id, uid, name, handle, joined FROM users WHERE source = ? AND user_id = ?")
	return s.scanUser(s.db.QueryRowContext(ctx, query, source, userID))
}

func (s *SQLStore) scanUser(row *sql.Row) (*UserRecord, error) {
	var user UserRecord
	var joined string
	err := row.Scan(&user.Key, &user.Source, &user.UserID, &user.UID, &user.Name, &user.Handle, &joined)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	user.Joined = parseTime(joined)
	return &user, nil
}

// PutUser inserts or updates a user.
func (s *SQLStore) PutUser(ctx context.Context, user *UserRecord) error {
	query := "INSERT INTO users (key, source, user_id, uid, name, handle, joined) VALUES (?, ?, ?, ?, ?, ?, ?)" +
		s.dialect.UpsertClause("key", "source", "user_id", "uid", "name", "handle", "joined")
	_, err := s.db.ExecContext(ctx, rebind(s.dialect, query),
		user.Key, user.Source, user.UserID, user.UID, user.Name, user.Handle, formatTime(user.Joined))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetGame returns the game with the given key.
func (s *SQLStore) GetGame(ctx context.Context, key string) (*GameRecord, error) {
	query := rebind(s.dialect, "SELECT key, user_key, fork_url, player_id, created_at FROM games WHERE key = ?")

	var g GameRecord
	var created string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&g.Key, &g.UserKey, &g.ForkURL, &g.PlayerID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game: %w", err)
	}
	g.CreatedAt = parseTime(created)
	return &g, nil
}

// PutGame inserts or updates a game.
func (s *SQLStore) PutGame(ctx context.Context, g *GameRecord) error {
	query := "INSERT INTO games (key, user_key, fork_url, player_id, created_at) VALUES (?, ?, ?, ?, ?)" +
		s.dialect.UpsertClause("key", "user_key", "fork_url", "player_id", "created_at")
	_, err := s.db.ExecContext(ctx, rebind(s.dialect, query),
		g.Key, g.UserKey, g.ForkURL, g.PlayerID, formatTime(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	return nil
}

const questColumns = "key, game_key, quest_name, version, completed_stages, data, complete, last_run"

// GetQuest returns the quest record with the given key.
func (s *SQLStore) GetQuest(ctx context.Context, key string) (*QuestRecord, error) {
	query := rebind(s.dialect, "SELECT "+questColumns+" FROM quests WHERE key = ?")
	rec, err := scanQuest(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuest(row rowScanner) (*QuestRecord, error) {
	var rec QuestRecord
	var stages, lastRun string
	var complete int
	err := row.Scan(&rec.Key, &rec.GameKey, &rec.QuestName, &rec.Version, &stages, &rec.SerializedData, &complete, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query quest: %w", err)
	}

	if err := json.Unmarshal([]byte(stages), &rec.CompletedStages); err != nil {
		return nil, fmt.Errorf("failed to decode completed stages: %w", err)
	}
	rec.Complete = complete != 0
	rec.LastRun = parseTime(lastRun)
	return &rec, nil
}

// PutQuest inserts or updates a quest record.
func (s *SQLStore) PutQuest(ctx context.Context, rec *QuestRecord) error {
	stages := rec.CompletedStages
	if stages == nil {
		stages = []string{}
	}
	encoded, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("failed to encode completed stages: %w", err)
	}

	complete := 0
	if rec.Complete {
		complete = 1
	}

	query := "INSERT INTO quests (" + questColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)" +
		s.dialect.UpsertClause("key", "game_key", "quest_name", "version", "completed_stages", "data", "complete", "last_run")
	_, err = s.db.ExecContext(ctx, rebind(s.dialect, query),
		rec.Key, rec.GameKey, rec.QuestName, rec.Version, string(encoded), rec.SerializedData, complete, formatTime(rec.LastRun))
	if err != nil {
		return fmt.Errorf("failed to save quest: %w", err)
	}
	return nil
}

// DeleteQuest removes a quest record. Deleting a missing record is not an error.
func (s *SQLStore) DeleteQuest(ctx context.Context, key string) error {
	query := rebind(s.dialect, "DELETE FROM quests WHERE key = ?")
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	return nil
}

// IncompleteQuests returns every quest record not yet complete.
func (s *SQLStore) IncompleteQuests(ctx context.Context) ([]*QuestRecord, error) {
	query := "SELECT " + questColumns + " FROM quests WHERE complete = 0 ORDER BY key"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomplete quests: %w", err)
	}
	defer rows.Close()

	var records []*QuestRecord
	for rows.Next() {
		rec, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quests: %w", err)
	}
	return records, nil
}
