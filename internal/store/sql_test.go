package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	s, err := OpenSQL(DialectSQLite, cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestUserRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	joined := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	user := &UserRecord{
		Key:    "github:1234",
		Source: "github",
		UserID: "1234",
		UID:    "a1b2c3",
		Name:   "Test User",
		Handle: "testuser",
		Joined: joined,
	}

	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := s.GetUser(ctx, "github:1234")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Source != "github" || got.UserID != "1234" || got.UID != "a1b2c3" {
		t.Errorf("Unexpected user record: %+v", got)
	}
	if got.Handle != "testuser" || got.Name != "Test User" {
		t.Errorf("Unexpected user identity fields: %+v", got)
	}
	if !got.Joined.Equal(joined) {
		t.Errorf("Joined = %v, want %v", got.Joined, joined)
	}
}

func TestUserUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	user := &UserRecord{Key: "github:1234", Source: "github", UserID: "1234"}
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	// Writing the same key again must update in place, not error.
	user.UID = "later-uid"
	user.Handle = "signedin"
	if err := s.PutUser(ctx, user); err != nil {
		t.Fatalf("PutUser upsert failed: %v", err)
	}

	got, err := s.GetUser(ctx, "github:1234")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.UID != "later-uid" || got.Handle != "signedin" {
		t.Errorf("Upsert did not update record: %+v", got)
	}
}

func TestFindUserBySource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.PutUser(ctx, &UserRecord{Key: "github:1234", Source: "github", UserID: "1234"}); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}
	if err := s.PutUser(ctx, &UserRecord{Key: "test:1234", Source: "test", UserID: "1234"}); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}

	got, err := s.FindUserBySource(ctx, "github", "1234")
	if err != nil {
		t.Fatalf("FindUserBySource failed: %v", err)
	}
	if got.Key != "github:1234" {
		t.Errorf("Key = %q, want %q", got.Key, "github:1234")
	}

	if _, err := s.FindUserBySource(ctx, "github", "9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown identity, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUser(context.Background(), "github:nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGameRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	created := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	game := &GameRecord{
		Key:       "github:1234",
		UserKey:   "github:1234",
		ForkURL:   "https://github.com/testuser/forked-game",
		PlayerID:  42,
		CreatedAt: created,
	}

	if err := s.PutGame(ctx, game); err != nil {
		t.Fatalf("PutGame failed: %v", err)
	}

	got, err := s.GetGame(ctx, "github:1234")
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if got.ForkURL != game.ForkURL || got.PlayerID != 42 {
		t.Errorf("Unexpected game record: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	if _, err := s.GetGame(ctx, "github:9999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown game, got %v", err)
	}
}

func TestQuestRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	lastRun := time.Date(2024, 3, 3, 18, 45, 30, 0, time.UTC)
	rec := &QuestRecord{
		Key:             "github:1234:IntroQuest",
		GameKey:         "github:1234",
		QuestName:       "IntroQuest",
		Version:         "1.2.0",
		CompletedStages: []string{"Start", "CreateIssue"},
		SerializedData:  `{"data":{"issue_id":7},"stage_data":{}}`,
		Complete:        false,
		LastRun:         lastRun,
	}

	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest failed: %v", err)
	}

	got, err := s.GetQuest(ctx, "github:1234:IntroQuest")
	if err != nil {
		t.Fatalf("GetQuest failed: %v", err)
	}
	if got.Version != "1.2.0" || got.QuestName != "IntroQuest" {
		t.Errorf("Unexpected quest record: %+v", got)
	}
	if len(got.CompletedStages) != 2 || got.CompletedStages[0] != "Start" || got.CompletedStages[1] != "CreateIssue" {
		t.Errorf("CompletedStages = %v, want [Start CreateIssue]", got.CompletedStages)
	}
	if got.SerializedData != rec.SerializedData {
		t.Errorf("SerializedData = %q, want %q", got.SerializedData, rec.SerializedData)
	}
	if got.Complete {
		t.Error("Complete should be false")
	}
	if !got.LastRun.Equal(lastRun) {
		t.Errorf("LastRun = %v, want %v", got.LastRun, lastRun)
	}
}

func TestQuestNilStagesStoredAsEmpty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := &QuestRecord{
		Key:       "github:1234:IntroQuest",
		GameKey:   "github:1234",
		QuestName: "IntroQuest",
		Version:   "1.0.0",
	}
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest failed: %v", err)
	}

	got, err := s.GetQuest(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetQuest failed: %v", err)
	}
	if got.CompletedStages == nil || len(got.CompletedStages) != 0 {
		t.Errorf("CompletedStages = %v, want empty slice", got.CompletedStages)
	}
}

func TestQuestCompleteFlag(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := &QuestRecord{
		Key:       "github:1234:IntroQuest",
		GameKey:   "github:1234",
		QuestName: "IntroQuest",
		Version:   "1.0.0",
	}
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest failed: %v", err)
	}

	rec.Complete = true
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest update failed: %v", err)
	}

	got, err := s.GetQuest(ctx, rec.Key)
	if err != nil {
		t.Fatalf("GetQuest failed: %v", err)
	}
	if !got.Complete {
		t.Error("Complete should be true after update")
	}
}

func TestIncompleteQuests(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	records := []*QuestRecord{
		{Key: "github:1:Intro", GameKey: "github:1", QuestName: "Intro", Version: "1.0.0"},
		{Key: "github:2:Intro", GameKey: "github:2", QuestName: "Intro", Version: "1.0.0", Complete: true},
		{Key: "github:3:Intro", GameKey: "github:3", QuestName: "Intro", Version: "1.0.0"},
	}
	for _, rec := range records {
		if err := s.PutQuest(ctx, rec); err != nil {
			t.Fatalf("PutQuest failed: %v", err)
		}
	}

	got, err := s.IncompleteQuests(ctx)
	if err != nil {
		t.Fatalf("IncompleteQuests failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 incomplete quests, got %d", len(got))
	}
	if got[0].Key != "github:1:Intro" || got[1].Key != "github:3:Intro" {
		t.Errorf("Unexpected incomplete quest keys: %q, %q", got[0].Key, got[1].Key)
	}
}

func TestDeleteQuest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec := &QuestRecord{Key: "github:1:Intro", GameKey: "github:1", QuestName: "Intro", Version: "1.0.0"}
	if err := s.PutQuest(ctx, rec); err != nil {
		t.Fatalf("PutQuest failed: %v", err)
	}

	if err := s.DeleteQuest(ctx, rec.Key); err != nil {
		t.Fatalf("DeleteQuest failed: %v", err)
	}
	if _, err := s.GetQuest(ctx, rec.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting a missing record is not an error.
	if err := s.DeleteQuest(ctx, rec.Key); err != nil {
		t.Errorf("DeleteQuest on missing record failed: %v", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	cfg.Driver = "oracle"

	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("Expected error for unknown driver")
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"sqlite passthrough", &SQLiteDialect{}, "SELECT * FROM users WHERE key = ?", "SELECT * FROM users WHERE key = ?"},
		{"postgres single", &PostgresDialect{}, "SELECT * FROM users WHERE key = ?", "SELECT * FROM users WHERE key = $1"},
		{"postgres multiple", &PostgresDialect{}, "INSERT INTO games VALUES (?, ?, ?)", "INSERT INTO games VALUES ($1, $2, $3)"},
		{"no placeholders", &PostgresDialect{}, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rebind(tt.dialect, tt.query); got != tt.want {
				t.Errorf("rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}
